// Package sx127x drives the Semtech SX1276/77/78/79 family in LoRa mode and
// implements loraduplex.Driver. Long running operations (channel activity
// detection, reception, transmission) are started here and signalled back on
// the DIO0 and DIO1 lines:
//
//	mode      DIO0       DIO1
//	CAD       CadDone    CadDetected
//	RX        RxDone     RxTimeout
//	TX        TxDone     -
package sx127x

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/michcald/loraduplex"
	"github.com/soypat/lora"
)

// Frequency range accepted by the family (SX1276 covers the widest band).
const (
	MinFrequency = 137 * lora.Megahertz
	MaxFrequency = 1020 * lora.Megahertz
)

// Supported bandwidths, indexed by their MODEM_CONFIG_1 code.
var bandwidths = [...]lora.Frequency{
	7800, 10400, 15600, 20800, 31250, 41700, 62500,
	lora.BW125k, lora.BW250k, lora.BW500k,
}

type HardwareConfig struct {
	// Reset is the NRESET line.
	// Optional. If not provided, Begin skips the hardware reset.
	Reset OutputPin
	// DIO0 signals operation completion (CadDone, RxDone, TxDone).
	DIO0 InterruptPin
	// DIO1 signals preamble detection during channel activity detection.
	DIO1 InterruptPin
}

// Device is an SX127x transceiver in LoRa mode.
type Device struct {
	hw      HardwareConfig
	conn    SPI
	port    io.Closer
	mu      sync.Mutex
	freq    lora.Frequency
	bw      lora.Frequency
	scratch [_MAX_PAYLOAD + 1]byte
	// busErr is the first failed transfer of the current locked operation.
	busErr error
}

var _ loraduplex.Driver = (*Device)(nil)

// NewWithHardware creates a driver on an already opened SPI connection.
// It performs no I/O; Begin resets and configures the chip.
func NewWithHardware(hw HardwareConfig, conn SPI) (*Device, error) {
	if conn == nil {
		return nil, fmt.Errorf("%w: SPI connection not configured", loraduplex.ErrPkg)
	}
	return &Device{hw: hw, conn: conn}, nil
}

func (d *Device) String() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return fmt.Sprintf("SX127x(Frequency=%.3fMHz, Bandwidth=%.1fkHz)",
		float64(d.freq)/float64(lora.Megahertz), float64(d.bw)/float64(lora.Kilohertz))
}

// Begin resets the chip, switches it to LoRa mode and applies p.
// Frequency, bandwidth, spreading factor and coding rate must all be valid for
// anything to be configured. Output power, preamble length and gain are
// applied independently: an invalid value is skipped and its error returned
// after the remaining parameters are written, so the other direction stays
// usable.
// This method is concurrent safe.
func (d *Device) Begin(p loraduplex.Params) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.busErr = nil

	if err := d.reset(); err != nil {
		return fmt.Errorf("%w: reset: %w", loraduplex.ErrPkg, err)
	}
	v := d.readRegister(_VERSION)
	if err := d.takeBusErr(); err != nil {
		return err
	}
	if v != _CHIP_VERSION {
		return fmt.Errorf("%w: version register 0x%02X", loraduplex.ErrChipNotFound, v)
	}

	if p.Frequency < MinFrequency || p.Frequency > MaxFrequency {
		return loraduplex.ErrInvalidFrequency
	}
	bwCode, ok := bandwidthCode(p.Bandwidth)
	if !ok {
		return loraduplex.ErrInvalidBandwidth
	}
	if p.SpreadFactor < lora.SF6 || p.SpreadFactor > lora.SF12 {
		return loraduplex.ErrInvalidSpreadingFactor
	}
	if p.CodingRate < lora.CR4_5 || p.CodingRate > lora.CR4_8 {
		return loraduplex.ErrInvalidCodingRate
	}

	lowFreq := byte(0)
	if p.Frequency < _LF_BAND_LIMIT_HZ {
		lowFreq = _LOW_FREQ_MODE
	}
	// LoRa mode can only be selected from sleep.
	d.writeRegister(_OP_MODE, _LONG_RANGE_MODE|lowFreq|_MODE_SLEEP)
	d.setMode(_MODE_STANDBY)

	d.writeFrequency(p.Frequency)
	d.bw = p.Bandwidth

	d.writeRegister(_MODEM_CONFIG_1, bwCode<<4|byte(p.CodingRate)<<1)
	crc := d.readRegister(_MODEM_CONFIG_2) & _RX_PAYLOAD_CRC_ON
	d.writeRegister(_MODEM_CONFIG_2, byte(p.SpreadFactor)<<4|crc)
	if p.SpreadFactor == lora.SF6 {
		d.writeRegister(_DETECTION_OPTIMIZE, 0xC5)
		d.writeRegister(_DETECTION_THRESHOLD, 0x0C)
	} else {
		d.writeRegister(_DETECTION_OPTIMIZE, 0xC3)
		d.writeRegister(_DETECTION_THRESHOLD, 0x0A)
	}
	d.writeRegister(_SYNC_WORD, p.SyncWord)

	var firstErr error
	keep := func(err error) {
		if firstErr == nil {
			firstErr = err
		}
	}

	if err := d.writeTxPower(p.TxPower); err != nil {
		keep(err)
	}

	if p.PreambleLength < 6 {
		keep(loraduplex.ErrInvalidPreambleLength)
	} else {
		d.writeRegister(_PREAMBLE_MSB, byte(p.PreambleLength>>8))
		d.writeRegister(_PREAMBLE_LSB, byte(p.PreambleLength))
	}

	cfg3 := byte(0)
	// Mandated when a symbol lasts longer than 16ms.
	symbol := time.Second * time.Duration(p.SpreadFactor.ChipsPerSymbol()) / time.Duration(p.Bandwidth.Hertz())
	if symbol > 16*time.Millisecond {
		cfg3 |= _LOW_DATA_RATE_OPT
	}
	switch {
	case p.Gain == 0:
		cfg3 |= _AGC_AUTO_ON
	case p.Gain <= 6:
		d.writeRegister(_LNA, p.Gain<<5|_LNA_BOOST_HF)
	default:
		cfg3 |= _AGC_AUTO_ON
		keep(loraduplex.ErrInvalidGain)
	}
	d.writeRegister(_MODEM_CONFIG_3, cfg3)

	d.writeRegister(_FIFO_TX_BASE_ADDR, 0)
	d.writeRegister(_FIFO_RX_BASE_ADDR, 0)
	d.setMode(_MODE_STANDBY)
	if err := d.takeBusErr(); err != nil {
		return err
	}
	return firstErr
}

// writeTxPower programs the PA_BOOST output: 2 to 17dBm, or 20dBm with the
// high power DAC.
func (d *Device) writeTxPower(dbm int8) error {
	switch {
	case dbm == 20:
		d.writeRegister(_PA_DAC, 0x87)
		d.writeRegister(_OCP, ocpTrim(140))
		d.writeRegister(_PA_CONFIG, 0x80|0x70|byte(dbm-5))
	case dbm >= 2 && dbm <= 17:
		d.writeRegister(_PA_DAC, 0x84)
		d.writeRegister(_OCP, ocpTrim(100))
		d.writeRegister(_PA_CONFIG, 0x80|0x70|byte(dbm-2))
	default:
		return loraduplex.ErrInvalidOutputPower
	}
	return nil
}

func ocpTrim(mA uint8) byte {
	trim := uint8(27)
	switch {
	case mA <= 120:
		trim = (mA - 45) / 5
	case mA <= 240:
		trim = (mA + 30) / 10
	}
	return 0x20 | (trim & 0x1F)
}

func bandwidthCode(bw lora.Frequency) (byte, bool) {
	for i, b := range bandwidths {
		if b == bw {
			return byte(i), true
		}
	}
	return 0, false
}

// SetCRC enables or disables the payload CRC.
// This method is concurrent safe.
func (d *Device) SetCRC(enable bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.busErr = nil
	v := d.readRegister(_MODEM_CONFIG_2)
	if enable {
		v |= _RX_PAYLOAD_CRC_ON
	} else {
		v &^= _RX_PAYLOAD_CRC_ON
	}
	d.writeRegister(_MODEM_CONFIG_2, v)
	return d.takeBusErr()
}

// SetFrequency retunes the carrier. The chip is left in standby.
// This method is concurrent safe.
func (d *Device) SetFrequency(f lora.Frequency) error {
	if f < MinFrequency || f > MaxFrequency {
		return loraduplex.ErrInvalidFrequency
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.busErr = nil
	d.setMode(_MODE_STANDBY)
	d.writeFrequency(f)
	return d.takeBusErr()
}

// StartChannelScan starts channel activity detection.
// This method is concurrent safe.
func (d *Device) StartChannelScan() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.busErr = nil
	d.setMode(_MODE_STANDBY)
	d.writeRegister(_DIO_MAPPING_1, _DIO_CAD_DONE_DETECTED)
	d.writeRegister(_IRQ_FLAGS_MASK, ^byte(_IRQ_CAD_DONE|_IRQ_CAD_DETECTED))
	d.writeRegister(_IRQ_FLAGS, _IRQ_ALL)
	d.setMode(_MODE_CAD)
	return d.takeBusErr()
}

// StartReceive arms the receiver.
// This method is concurrent safe.
func (d *Device) StartReceive(mode loraduplex.ReceiveMode) error {
	var op byte
	switch mode {
	case loraduplex.ReceiveSingle:
		op = _MODE_RX_SINGLE
	case loraduplex.ReceiveContinuous:
		op = _MODE_RX_CONTINUOUS
	default:
		return fmt.Errorf("%w: unsupported receive mode %d", loraduplex.ErrPkg, mode)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.busErr = nil
	d.setMode(_MODE_STANDBY)
	d.writeRegister(_DIO_MAPPING_1, _DIO_RX_DONE_RX_TIMEOUT)
	d.writeRegister(_IRQ_FLAGS_MASK, ^byte(_IRQ_RX_DONE|_IRQ_RX_TIMEOUT|_IRQ_PAYLOAD_CRC))
	d.writeRegister(_IRQ_FLAGS, _IRQ_ALL)
	d.writeRegister(_FIFO_ADDR_PTR, 0)
	d.setMode(op)
	return d.takeBusErr()
}

// ReadData returns the last received packet and puts the chip in standby.
// This method is concurrent safe.
func (d *Device) ReadData() ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.busErr = nil

	var data []byte
	var err error
	flags := d.readRegister(_IRQ_FLAGS)
	switch {
	case flags&_IRQ_RX_TIMEOUT != 0:
		err = loraduplex.ErrRxTimeout
	case flags&_IRQ_PAYLOAD_CRC != 0:
		err = loraduplex.ErrCRCMismatch
	default:
		n := int(d.readRegister(_RX_NB_BYTES))
		d.writeRegister(_FIFO_ADDR_PTR, d.readRegister(_FIFO_RX_CURRENT_ADDR))
		// Copy out of scratch before the next transfer reuses it.
		data = append([]byte(nil), d.readFIFO(n)...)
	}

	d.writeRegister(_IRQ_FLAGS, _IRQ_ALL)
	d.setMode(_MODE_STANDBY)
	if busErr := d.takeBusErr(); busErr != nil {
		return nil, busErr
	}
	return data, err
}

// StartTransmit loads p into the FIFO and starts transmission.
// This method is concurrent safe.
func (d *Device) StartTransmit(p []byte) error {
	if len(p) > _MAX_PAYLOAD {
		return fmt.Errorf("%w: %d bytes, max is %d", loraduplex.ErrPacketTooLong, len(p), _MAX_PAYLOAD)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.busErr = nil
	d.setMode(_MODE_STANDBY)
	d.writeRegister(_DIO_MAPPING_1, _DIO_TX_DONE)
	d.writeRegister(_IRQ_FLAGS_MASK, ^byte(_IRQ_TX_DONE))
	d.writeRegister(_IRQ_FLAGS, _IRQ_ALL)
	d.writeRegister(_FIFO_TX_BASE_ADDR, 0)
	d.writeRegister(_FIFO_ADDR_PTR, 0)
	d.writeRegister(_PAYLOAD_LENGTH, byte(len(p)))
	d.writeFIFO(p)
	d.setMode(_MODE_TX)
	return d.takeBusErr()
}

// FinishTransmit clears the TxDone flag and returns to standby.
// This method is concurrent safe.
func (d *Device) FinishTransmit() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.busErr = nil
	flags := d.readRegister(_IRQ_FLAGS)
	d.writeRegister(_IRQ_FLAGS, _IRQ_ALL)
	d.setMode(_MODE_STANDBY)
	if err := d.takeBusErr(); err != nil {
		return err
	}
	if flags&_IRQ_TX_DONE == 0 {
		return fmt.Errorf("%w: TxDone not set (flags 0x%02X)", loraduplex.ErrPkg, flags)
	}
	return nil
}

// RSSI returns the RSSI of the last packet in dBm.
// This method is concurrent safe.
func (d *Device) RSSI() float32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	offset := float32(-157)
	if d.freq < _LF_BAND_LIMIT_HZ {
		offset = -164
	}
	rssi := offset + float32(d.readRegister(_PKT_RSSI_VALUE))
	if snr := d.snr(); snr < 0 {
		rssi += snr
	}
	return rssi
}

// SNR returns the SNR of the last packet in dB.
// This method is concurrent safe.
func (d *Device) SNR() float32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.snr()
}

func (d *Device) snr() float32 {
	return float32(int8(d.readRegister(_PKT_SNR_VALUE))) / 4
}

// FrequencyError returns the estimated carrier offset of the last packet in Hz.
// This method is concurrent safe.
func (d *Device) FrequencyError() float32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	raw := int32(d.readRegister(_FREQ_ERROR_MSB)&0x0F)<<16 |
		int32(d.readRegister(_FREQ_ERROR_MID))<<8 |
		int32(d.readRegister(_FREQ_ERROR_LSB))
	if raw&0x80000 != 0 {
		raw -= 1 << 20
	}
	return float32(float64(raw) * (1 << 24) / _FXOSC * (float64(d.bw) / 500e3))
}

// ModemStatus returns the ModemStatus* bitfield. A failed bus read reports
// no activity.
// This method is concurrent safe.
func (d *Device) ModemStatus() uint8 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.readRegister(_MODEM_STAT) & 0x1F
}

// SetDio0Action calls handler on every rising edge of DIO0.
func (d *Device) SetDio0Action(handler func()) error {
	return watch(d.hw.DIO0, "DIO0", handler)
}

// SetDio1Action calls handler on every rising edge of DIO1.
func (d *Device) SetDio1Action(handler func()) error {
	return watch(d.hw.DIO1, "DIO1", handler)
}

// ClearDio0Action removes the DIO0 handler.
func (d *Device) ClearDio0Action() error {
	if d.hw.DIO0 == nil {
		return nil
	}
	return d.hw.DIO0.Unwatch()
}

// ClearDio1Action removes the DIO1 handler.
func (d *Device) ClearDio1Action() error {
	if d.hw.DIO1 == nil {
		return nil
	}
	return d.hw.DIO1.Unwatch()
}

func watch(p InterruptPin, name string, handler func()) error {
	if p == nil {
		return fmt.Errorf("%w: %s pin not configured", loraduplex.ErrPkg, name)
	}
	if err := p.Watch(handler); err != nil {
		return fmt.Errorf("%w: watch %s: %w", loraduplex.ErrPkg, name, err)
	}
	return nil
}

// Close puts the chip to sleep, removes the DIO handlers and releases the bus.
// It returns the first error encountered.
// This method is concurrent safe.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.busErr = nil

	d.setMode(_MODE_SLEEP)
	errs := []error{d.takeBusErr()}
	if d.hw.DIO0 != nil {
		errs = append(errs, d.hw.DIO0.Unwatch())
	}
	if d.hw.DIO1 != nil {
		errs = append(errs, d.hw.DIO1.Unwatch())
	}
	if d.port != nil {
		errs = append(errs, d.port.Close())
	}
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// --- SPI register access, call with lock held ---

func (d *Device) reset() error {
	if d.hw.Reset == nil {
		return nil
	}
	if err := d.hw.Reset.Set(false); err != nil {
		return err
	}
	time.Sleep(time.Millisecond)
	if err := d.hw.Reset.Set(true); err != nil {
		return err
	}
	time.Sleep(10 * time.Millisecond)
	return nil
}

// spiTransfer runs one full duplex transfer on the scratch buffer, byte 0
// being the address. A failure is kept in busErr and yields nil.
func (d *Device) spiTransfer(n int) []byte {
	slice := d.scratch[:n]
	if err := d.conn.Tx(slice, slice); err != nil {
		if d.busErr == nil {
			d.busErr = err
		}
		return nil
	}
	return d.scratch[1:n]
}

// takeBusErr returns and clears the transfer error of the current operation.
func (d *Device) takeBusErr() error {
	err := d.busErr
	d.busErr = nil
	if err != nil {
		return fmt.Errorf("%w: SPI transfer failed: %w", loraduplex.ErrPkg, err)
	}
	return nil
}

func (d *Device) readRegister(reg byte) byte {
	d.scratch[0] = reg &^ _WRITE
	d.scratch[1] = 0
	data := d.spiTransfer(2)
	if len(data) > 0 {
		return data[0]
	}
	return 0
}

func (d *Device) writeRegister(reg, val byte) {
	d.scratch[0] = reg | _WRITE
	d.scratch[1] = val
	d.spiTransfer(2)
}

func (d *Device) readFIFO(n int) []byte {
	d.scratch[0] = _FIFO
	for i := 1; i <= n; i++ {
		d.scratch[i] = 0
	}
	return d.spiTransfer(n + 1)
}

func (d *Device) writeFIFO(p []byte) {
	d.scratch[0] = _FIFO | _WRITE
	copy(d.scratch[1:], p)
	d.spiTransfer(len(p) + 1)
}

func (d *Device) setMode(mode byte) {
	v := d.readRegister(_OP_MODE)
	d.writeRegister(_OP_MODE, v&^_MODE_MASK|mode)
}

func (d *Device) writeFrequency(f lora.Frequency) {
	frf := (uint64(f.Hertz()) << 19) / _FXOSC
	d.writeRegister(_FRF_MSB, byte(frf>>16))
	d.writeRegister(_FRF_MID, byte(frf>>8))
	d.writeRegister(_FRF_LSB, byte(frf))
	d.freq = f
}
