package sx127x

// SX127x LoRa mode registers.
const (
	_FIFO                 = 0x00
	_OP_MODE              = 0x01
	_FRF_MSB              = 0x06
	_FRF_MID              = 0x07
	_FRF_LSB              = 0x08
	_PA_CONFIG            = 0x09
	_OCP                  = 0x0B
	_LNA                  = 0x0C
	_FIFO_ADDR_PTR        = 0x0D
	_FIFO_TX_BASE_ADDR    = 0x0E
	_FIFO_RX_BASE_ADDR    = 0x0F
	_FIFO_RX_CURRENT_ADDR = 0x10
	_IRQ_FLAGS_MASK       = 0x11
	_IRQ_FLAGS            = 0x12
	_RX_NB_BYTES          = 0x13
	_MODEM_STAT           = 0x18
	_PKT_SNR_VALUE        = 0x19
	_PKT_RSSI_VALUE       = 0x1A
	_MODEM_CONFIG_1       = 0x1D
	_MODEM_CONFIG_2       = 0x1E
	_PREAMBLE_MSB         = 0x20
	_PREAMBLE_LSB         = 0x21
	_PAYLOAD_LENGTH       = 0x22
	_MODEM_CONFIG_3       = 0x26
	_FREQ_ERROR_MSB       = 0x28
	_FREQ_ERROR_MID       = 0x29
	_FREQ_ERROR_LSB       = 0x2A
	_DETECTION_OPTIMIZE   = 0x31
	_DETECTION_THRESHOLD  = 0x37
	_SYNC_WORD            = 0x39
	_DIO_MAPPING_1        = 0x40
	_VERSION              = 0x42
	_PA_DAC               = 0x4D

	_WRITE = 0x80
)

// OP_MODE bits.
const (
	_LONG_RANGE_MODE = 0x80
	_LOW_FREQ_MODE   = 0x08
	_MODE_MASK       = 0x07

	_MODE_SLEEP         = 0x00
	_MODE_STANDBY       = 0x01
	_MODE_TX            = 0x03
	_MODE_RX_CONTINUOUS = 0x05
	_MODE_RX_SINGLE     = 0x06
	_MODE_CAD           = 0x07
)

// IRQ_FLAGS bits.
const (
	_IRQ_RX_TIMEOUT   = 1 << 7
	_IRQ_RX_DONE      = 1 << 6
	_IRQ_PAYLOAD_CRC  = 1 << 5
	_IRQ_VALID_HEADER = 1 << 4
	_IRQ_TX_DONE      = 1 << 3
	_IRQ_CAD_DONE     = 1 << 2
	_IRQ_FHSS_CHANGE  = 1 << 1
	_IRQ_CAD_DETECTED = 1 << 0
	_IRQ_ALL          = 0xFF
)

// DIO_MAPPING_1 values: DIO0 in bits 7-6, DIO1 in bits 5-4.
const (
	_DIO_RX_DONE_RX_TIMEOUT = 0x00
	_DIO_TX_DONE            = 0x40
	_DIO_CAD_DONE_DETECTED  = 0xA0
)

// Modem config bits.
const (
	_RX_PAYLOAD_CRC_ON = 0x04
	_AGC_AUTO_ON       = 0x04
	_LOW_DATA_RATE_OPT = 0x08
	_LNA_BOOST_HF      = 0x03
)

const (
	_CHIP_VERSION     = 0x12
	_MAX_PAYLOAD      = 255
	_FXOSC            = 32000000
	_LF_BAND_LIMIT_HZ = 779000000
)
