package loraduplex

import (
	"errors"

	"github.com/soypat/lora"
)

var (
	ErrPkg = errors.New("loraduplex")

	ErrChipNotFound           = errors.New("transceiver not found")
	ErrInvalidFrequency       = errors.New("invalid frequency")
	ErrInvalidBandwidth       = errors.New("invalid bandwidth")
	ErrInvalidSpreadingFactor = errors.New("invalid spreading factor")
	ErrInvalidCodingRate      = errors.New("invalid coding rate")
	ErrInvalidOutputPower     = errors.New("invalid output power")
	ErrInvalidPreambleLength  = errors.New("invalid preamble length")
	ErrInvalidGain            = errors.New("invalid gain")
	ErrPacketTooLong          = errors.New("packet too long")
	ErrCRCMismatch            = errors.New("crc mismatch")
	ErrRxTimeout              = errors.New("rx timeout")
)

// ReceiveMode selects how long the receiver stays armed.
type ReceiveMode uint8

const (
	// ReceiveSingle receives one packet and returns to standby.
	ReceiveSingle ReceiveMode = iota
	// ReceiveContinuous keeps receiving until another mode is requested.
	ReceiveContinuous
)

func (m ReceiveMode) String() string {
	switch m {
	case ReceiveSingle:
		return "single"
	case ReceiveContinuous:
		return "continuous"
	default:
		return "unknown"
	}
}

// Modem status bits reported by Driver.ModemStatus.
const (
	ModemStatusSignalDetected     = 1 << 0
	ModemStatusSignalSynchronized = 1 << 1
	ModemStatusRxOngoing          = 1 << 2
	ModemStatusHeaderInfoValid    = 1 << 3
	ModemStatusModemClear         = 1 << 4
)

// Params are the modulation parameters passed to Driver.Begin.
type Params struct {
	Frequency      lora.Frequency
	Bandwidth      lora.Frequency
	SpreadFactor   lora.SpreadingFactor
	CodingRate     lora.CodingRate
	SyncWord       uint8
	TxPower        int8
	PreambleLength uint16
	// Gain is the LNA gain step, 1 (max) to 6 (min). 0 enables automatic gain control.
	Gain uint8
}

// Driver abstracts the physical transceiver. All calls are synchronous register
// operations; long-latency events are signalled through the two interrupt
// lines registered with SetDio0Action and SetDio1Action.
type Driver interface {
	// Begin resets and configures the transceiver. Validation failures are
	// reported with one of the ErrInvalid* sentinels.
	Begin(p Params) error
	SetCRC(enable bool) error
	SetFrequency(f lora.Frequency) error
	// StartChannelScan arms channel activity detection. DIO0 fires when the
	// scan finishes, DIO1 when a preamble is detected.
	StartChannelScan() error
	// StartReceive arms the receiver. DIO0 fires when a packet is received.
	StartReceive(mode ReceiveMode) error
	// ReadData returns the last received packet.
	ReadData() ([]byte, error)
	// StartTransmit loads p and starts transmission. DIO0 fires when done.
	StartTransmit(p []byte) error
	// FinishTransmit clears the transmit-done state after DIO0 fired.
	FinishTransmit() error
	// RSSI returns the last packet RSSI in dBm.
	RSSI() float32
	// SNR returns the last packet SNR in dB.
	SNR() float32
	// FrequencyError returns the last packet frequency error in Hz.
	FrequencyError() float32
	// ModemStatus returns the ModemStatus* bitfield.
	ModemStatus() uint8
	SetDio0Action(handler func()) error
	SetDio1Action(handler func()) error
	ClearDio0Action() error
	ClearDio1Action() error
}
