package loraduplex

import (
	"fmt"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/soypat/lora"
)

// channelFile is the on-disk shape of one channel slot. Frequencies are in Hz
// and the coding rate is the denominator (5 to 8).
type channelFile struct {
	FrequencyRx        int64  `koanf:"frequency_rx"`
	FrequencyTx        int64  `koanf:"frequency_tx"`
	SignalBandwidth    int64  `koanf:"signal_bandwidth"`
	SpreadingFactor    uint8  `koanf:"spreading_factor"`
	CodingRate4        uint8  `koanf:"coding_rate4"`
	SyncWord           uint8  `koanf:"sync_word"`
	Power              int8   `koanf:"power"`
	PreambleLength     uint16 `koanf:"preamble_length"`
	PreambleDurationMs int64  `koanf:"preamble_duration_ms"`
	GainRx             uint8  `koanf:"gain_rx"`
	TxEnable           bool   `koanf:"tx_enable"`
}

type configFile struct {
	Lora   channelFile `koanf:"lora"`
	Lora2  channelFile `koanf:"lora2"`
	Active int         `koanf:"active"`
}

// LoadConfig reads a YAML file with "lora" and "lora2" channel sections.
// Values are not validated here: invalid parameters are reported by the
// driver at setup and disable the affected direction.
func LoadConfig(path string) (Config, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return Config{}, fmt.Errorf("%w: load config %s: %w", ErrPkg, path, err)
	}
	var f configFile
	if err := k.Unmarshal("", &f); err != nil {
		return Config{}, fmt.Errorf("%w: decode config %s: %w", ErrPkg, path, err)
	}
	cfg := Config{Active: f.Active}
	for i, cf := range []channelFile{f.Lora, f.Lora2} {
		ch, err := cf.channel()
		if err != nil {
			return Config{}, fmt.Errorf("%w: config %s: channel %d: %w", ErrPkg, path, i, err)
		}
		cfg.Channels[i] = ch
	}
	return cfg.withDefaults(), nil
}

func (f channelFile) channel() (ChannelConfig, error) {
	c := ChannelConfig{
		FrequencyRx:      lora.Frequency(f.FrequencyRx) * lora.Hertz,
		FrequencyTx:      lora.Frequency(f.FrequencyTx) * lora.Hertz,
		Bandwidth:        lora.Frequency(f.SignalBandwidth) * lora.Hertz,
		SpreadFactor:     lora.SpreadingFactor(f.SpreadingFactor),
		SyncWord:         f.SyncWord,
		TxPower:          f.Power,
		PreambleLength:   f.PreambleLength,
		PreambleDuration: time.Duration(f.PreambleDurationMs) * time.Millisecond,
		Gain:             f.GainRx,
		TxEnable:         f.TxEnable,
	}
	switch {
	case f.CodingRate4 == 0:
	case f.CodingRate4 < 5 || f.CodingRate4 > 8:
		return ChannelConfig{}, fmt.Errorf("coding_rate4 %d not in 5..8", f.CodingRate4)
	default:
		c.CodingRate = lora.CodingRate(f.CodingRate4 - 4)
	}
	return c, nil
}
