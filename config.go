package loraduplex

import (
	"fmt"
	"time"

	"github.com/soypat/lora"
)

// SyncWordPrivate is the LoRa sync word used for private networks.
const SyncWordPrivate = 0x12

// ChannelConfig holds the modulation parameters of one channel slot.
type ChannelConfig struct {
	// FrequencyRx is the carrier the radio scans and receives on.
	FrequencyRx lora.Frequency
	// FrequencyTx is the carrier used to transmit. When it differs from
	// FrequencyRx the radio is retuned before every direction change.
	// Defaults to FrequencyRx if not provided.
	FrequencyTx lora.Frequency
	// Bandwidth defaults to 125kHz if not provided.
	Bandwidth lora.Frequency
	// SpreadFactor defaults to SF12 if not provided.
	SpreadFactor lora.SpreadingFactor
	// CodingRate defaults to 4/5 if not provided.
	CodingRate lora.CodingRate
	// SyncWord defaults to SyncWordPrivate if not provided.
	SyncWord uint8
	// TxPower is the output power in dBm.
	TxPower int8
	// PreambleLength is the number of preamble symbols.
	// Defaults to 8 if not provided.
	PreambleLength uint16
	// PreambleDuration is the on-air time of the preamble. The transmit guard
	// time is twice this value.
	// Derived from the symbol period if not provided.
	PreambleDuration time.Duration
	// Gain is the receiver LNA gain step (1 max, 6 min). 0 enables automatic
	// gain control.
	Gain uint8
	// TxEnable allows the scheduler to transmit on this channel.
	TxEnable bool
}

// SplitFrequency reports whether receive and transmit use different carriers.
func (c ChannelConfig) SplitFrequency() bool {
	return c.FrequencyRx != c.FrequencyTx
}

// GuardTime is the hold-off applied after every transmission.
func (c ChannelConfig) GuardTime() time.Duration {
	return 2 * c.PreambleDuration
}

// Params returns the driver parameters for beginning on the receive frequency.
func (c ChannelConfig) Params() Params {
	return Params{
		Frequency:      c.FrequencyRx,
		Bandwidth:      c.Bandwidth,
		SpreadFactor:   c.SpreadFactor,
		CodingRate:     c.CodingRate,
		SyncWord:       c.SyncWord,
		TxPower:        c.TxPower,
		PreambleLength: c.PreambleLength,
		Gain:           c.Gain,
	}
}

// loraConfig maps the slot to the airtime model.
func (c ChannelConfig) loraConfig() lora.Config {
	return lora.Config{
		Bandwidth:       c.Bandwidth,
		Frequency:       c.FrequencyTx,
		PreambleLength:  c.PreambleLength,
		HeaderType:      lora.HeaderExplicit,
		CodingRate:      c.CodingRate,
		SpreadingFactor: c.SpreadFactor,
		SyncWord:        uint16(c.SyncWord),
		TxPower:         c.TxPower,
		CRC:             true,
	}
}

// TimeOnAir estimates how long a frame of n bytes occupies the channel.
func (c ChannelConfig) TimeOnAir(n int) time.Duration {
	cfg := c.loraConfig()
	return cfg.TimeOnAir(n)
}

func (c ChannelConfig) withDefaults() ChannelConfig {
	if c.FrequencyTx == 0 {
		c.FrequencyTx = c.FrequencyRx
	}
	if c.Bandwidth == 0 {
		c.Bandwidth = lora.BW125k
	}
	if c.SpreadFactor == 0 {
		c.SpreadFactor = lora.SF12
	}
	if c.CodingRate == 0 {
		c.CodingRate = lora.CR4_5
	}
	if c.SyncWord == 0 {
		c.SyncWord = SyncWordPrivate
	}
	if c.PreambleLength == 0 {
		c.PreambleLength = 8
	}
	if c.PreambleDuration == 0 && c.Bandwidth > 0 {
		cfg := c.loraConfig()
		// 4.25 symbols of sync word and SFD follow the programmed preamble.
		c.PreambleDuration = cfg.SymbolPeriod() * time.Duration(c.PreambleLength+5)
	}
	return c
}

func (c ChannelConfig) String() string {
	return fmt.Sprintf("rx=%.3fMHz tx=%.3fMHz bw=%.1fkHz sf=%d cr=4/%d pwr=%ddBm preamble=%d(%s) gain=%d",
		mhz(c.FrequencyRx), mhz(c.FrequencyTx), float64(c.Bandwidth)/float64(lora.Kilohertz),
		c.SpreadFactor, c.CodingRate+4, c.TxPower, c.PreambleLength, c.PreambleDuration, c.Gain)
}

// Config is the dual channel configuration. Only Channels[Active] is driven.
type Config struct {
	Channels [2]ChannelConfig
	// Active selects the channel slot. Defaults to 0.
	Active int
}

func (c Config) withDefaults() Config {
	if c.Active < 0 || c.Active >= len(c.Channels) {
		c.Active = 0
	}
	for i := range c.Channels {
		c.Channels[i] = c.Channels[i].withDefaults()
	}
	return c
}

func mhz(f lora.Frequency) float64 {
	return float64(f) / float64(lora.Megahertz)
}
