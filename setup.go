package loraduplex

import (
	"errors"
	"fmt"
)

// Capability is a direction the scheduler may drive the radio in.
type Capability uint8

const (
	CapRx Capability = 1 << iota
	CapTx

	capBoth = CapRx | CapTx
)

func (c Capability) String() string {
	switch c {
	case 0:
		return "none"
	case CapRx:
		return "rx"
	case CapTx:
		return "tx"
	case capBoth:
		return "rx+tx"
	default:
		return "unknown"
	}
}

// setupFault maps a driver configuration error to the directions it disables.
type setupFault struct {
	err     error
	revokes Capability
	message func(c ChannelConfig) string
}

var setupFaults = []setupFault{
	{ErrInvalidFrequency, capBoth, func(c ChannelConfig) string {
		return fmt.Sprintf("the supplied frequency value (%.3fMHz) is invalid for this module", mhz(c.FrequencyRx))
	}},
	{ErrInvalidBandwidth, capBoth, func(c ChannelConfig) string {
		return fmt.Sprintf("the supplied bandwidth value (%.1fkHz) is invalid for this module, should be one of 7.8, 10.4, 15.6, 20.8, 31.25, 41.7, 62.5, 125, 250, 500",
			float64(c.Bandwidth)/1e3)
	}},
	{ErrInvalidSpreadingFactor, capBoth, func(c ChannelConfig) string {
		return fmt.Sprintf("the supplied spreading factor value (%d) is invalid for this module", c.SpreadFactor)
	}},
	{ErrInvalidCodingRate, capBoth, func(c ChannelConfig) string {
		return fmt.Sprintf("the supplied coding rate value (4/%d) is invalid for this module", c.CodingRate+4)
	}},
	{ErrInvalidOutputPower, CapTx, func(c ChannelConfig) string {
		return fmt.Sprintf("the supplied output power value (%ddBm) is invalid for this module", c.TxPower)
	}},
	{ErrInvalidPreambleLength, CapTx, func(c ChannelConfig) string {
		return fmt.Sprintf("the supplied preamble length (%d) is invalid", c.PreambleLength)
	}},
	{ErrInvalidGain, CapRx, func(c ChannelConfig) string {
		return fmt.Sprintf("the supplied gain value (%d) is invalid", c.Gain)
	}},
}

var unknownSetupFault = setupFault{revokes: capBoth, message: func(ChannelConfig) string { return "unexpected driver error" }}

func lookupSetupFault(err error) setupFault {
	for _, f := range setupFaults {
		if errors.Is(err, f.err) {
			return f
		}
	}
	return unknownSetupFault
}

// Setup configures the transceiver with the active channel, registers the
// interrupt handlers and arms the first channel scan. It never fails: each
// problem disables the directions it affects and is recorded in Fault.
// Calling Setup more than once has no effect.
func (s *Scheduler) Setup() {
	if s.setupDone {
		return
	}
	s.setupDone = true

	ch := s.channel()
	s.rxEnable = true
	s.txEnable = ch.TxEnable
	logInfof("configuring channel %d: %s", s.cfg.Active, ch)

	if err := s.drv.Begin(ch.Params()); err != nil {
		f := lookupSetupFault(err)
		msg := f.message(ch)
		logErrorf("init failed, %s: %v", msg, err)
		s.revoke(f.revokes, msg)
	}

	if err := s.drv.SetCRC(true); err != nil {
		logErrorf("setCRC failed: %v", err)
		s.revoke(capBoth, "setCRC failed")
	}

	if err := s.drv.SetDio0Action(s.irq.OnOperationDone); err != nil {
		logErrorf("registering DIO0 handler failed: %v", err)
		s.revoke(capBoth, "DIO0 interrupt unavailable")
	}
	if err := s.drv.SetDio1Action(s.irq.OnPreamble); err != nil {
		logErrorf("registering DIO1 handler failed: %v", err)
		s.revoke(CapRx, "DIO1 interrupt unavailable")
	}

	logInfof("rx enabled: %t, tx enabled: %t", s.rxEnable, s.txEnable)
	if !s.rxEnable {
		return
	}
	if err := s.startScan(); err != nil {
		logErrorf("startChannelScan failed: %v", err)
		s.revoke(CapRx, "initial channel scan failed")
		return
	}
	s.state = StateIdleScanning
	logInfof("initial channel scan armed")
}

// revoke permanently disables the given directions and records why.
func (s *Scheduler) revoke(c Capability, reason string) {
	if c&CapRx != 0 {
		s.rxEnable = false
	}
	if c&CapTx != 0 {
		s.txEnable = false
	}
	if s.fault == "" {
		s.fault = "LoRa-Modem failed: " + reason
	} else {
		s.fault += "; " + reason
	}
}
