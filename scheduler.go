package loraduplex

import (
	"errors"
	"fmt"
	"time"

	"github.com/michcald/loraduplex/aprs"
	"github.com/soypat/lora"
)

// State is the radio phase as seen by the scheduler.
type State uint8

const (
	StateIdleScanning State = iota
	StatePreambleDetected
	StateReceivingSingle
	StateTransmitting
	StateGuardWait
)

func (s State) String() string {
	switch s {
	case StateIdleScanning:
		return "idle-scanning"
	case StatePreambleDetected:
		return "preamble-detected"
	case StateReceivingSingle:
		return "receiving-single"
	case StateTransmitting:
		return "transmitting"
	case StateGuardWait:
		return "guard-wait"
	default:
		return "unknown"
	}
}

type SchedulerConfig struct {
	Config
	// Driver is the transceiver. The scheduler is its only user.
	Driver Driver
	// Inbound receives decoded messages.
	Inbound Inbound
	// Outbound supplies messages to transmit.
	Outbound Outbound
	// Display shows received messages.
	// Optional.
	Display Display
	// Interrupts is the bridge the DIO handlers write to.
	// Defaults to a new bridge if not provided.
	Interrupts *InterruptBridge
	// Clock drives the transmit guard timer.
	// Defaults to time.Now if not provided.
	Clock func() time.Time
}

// Scheduler time-shares one half-duplex LoRa transceiver between channel
// scanning, single packet reception and transmission. Tick must be called
// from a single goroutine; only the interrupt bridge is touched concurrently.
type Scheduler struct {
	drv      Driver
	irq      *InterruptBridge
	cfg      Config
	inbound  Inbound
	outbound Outbound
	display  Display
	guard    *GuardTimer

	setupDone    bool
	rxEnable     bool
	txEnable     bool
	receiving    bool
	transmitting bool
	lastTxErr    error
	state        State
	fault        string
}

// NewScheduler validates the wiring and applies configuration defaults.
// It performs no I/O; call Setup before the first Tick.
func NewScheduler(c SchedulerConfig) (*Scheduler, error) {
	if c.Driver == nil {
		return nil, fmt.Errorf("%w: driver not configured", ErrPkg)
	}
	if c.Inbound == nil || c.Outbound == nil {
		return nil, fmt.Errorf("%w: inbound and outbound queues are required", ErrPkg)
	}
	if c.Display == nil {
		c.Display = nopDisplay{}
	}
	if c.Interrupts == nil {
		c.Interrupts = NewInterruptBridge()
	}
	return &Scheduler{
		drv:      c.Driver,
		irq:      c.Interrupts,
		cfg:      c.Config.withDefaults(),
		inbound:  c.Inbound,
		outbound: c.Outbound,
		display:  c.Display,
		guard:    NewGuardTimer(c.Clock),
	}, nil
}

func (s *Scheduler) channel() ChannelConfig {
	return s.cfg.Channels[s.cfg.Active]
}

// Interrupts returns the bridge registered as DIO handler.
func (s *Scheduler) Interrupts() *InterruptBridge { return s.irq }

// State returns the current radio phase.
func (s *Scheduler) State() State { return s.state }

// Fault returns a description of setup or transmit failures, empty if none.
func (s *Scheduler) Fault() string { return s.fault }

// Capabilities returns the directions still enabled.
func (s *Scheduler) Capabilities() Capability {
	var c Capability
	if s.rxEnable {
		c |= CapRx
	}
	if s.txEnable {
		c |= CapTx
	}
	return c
}

// LastTransmitError returns the result of the last completed transmission.
func (s *Scheduler) LastTransmitError() error { return s.lastTxErr }

// Tick runs one scheduling step. It never blocks.
func (s *Scheduler) Tick() {
	if s.irq.Pending() {
		s.irq.Disable()
		s.handleInterrupt()
		s.irq.Clear()
		s.irq.Enable()
		return
	}
	s.serviceOutbound()
}

func (s *Scheduler) handleInterrupt() {
	// Latches are stable while the gate is closed.
	preamble := s.irq.PreambleDetected()

	if s.transmitting {
		s.completeTransmit()
	} else {
		if s.receiving {
			// In receive mode DIO1 signals RxTimeout, not a preamble.
			if err := s.consumeReceive(); errors.Is(err, ErrRxTimeout) {
				preamble = false
			}
		}
		if preamble {
			s.onPreamble()
		}
	}

	if s.rxEnable && !s.receiving {
		if err := s.startScan(); err != nil {
			logWarnf("startChannelScan failed: %v", err)
			return
		}
		s.setState(StateIdleScanning)
	}
}

func (s *Scheduler) completeTransmit() {
	s.lastTxErr = s.drv.FinishTransmit()
	if s.lastTxErr == nil {
		logDebugf("TX done")
	} else {
		logErrorf("transmission failed: %v", s.lastTxErr)
	}
	s.transmitting = false
	s.irq.Clear()

	d := s.channel().GuardTime()
	s.guard.Start(d)
	s.state = StateGuardWait
}

// consumeReceive reads the completed receive and returns the driver error, if any.
func (s *Scheduler) consumeReceive() error {
	s.receiving = false
	s.setState(StateIdleScanning)

	data, err := s.drv.ReadData()
	switch {
	case errors.Is(err, ErrRxTimeout):
		logDebugf("no packet after preamble: %v", err)
		return err
	case err != nil:
		logErrorf("readData failed: %v", err)
		return err
	}
	payload, ok := Unframe(data)
	if !ok {
		logDebugf("unknown packet %q with RSSI %.0fdBm, SNR %.2fdB and FreqErr %.0fHz",
			data, s.drv.RSSI(), s.drv.SNR(), -s.drv.FrequencyError())
		return nil
	}
	msg, err := aprs.Decode(string(payload))
	if err != nil {
		logWarnf("dropping undecodable packet %q: %v", payload, err)
		return nil
	}
	s.inbound.Push(msg)
	logDebugf("received packet '%s' with RSSI %.0fdBm, SNR %.2fdB and FreqErr %.0fHz",
		msg, s.drv.RSSI(), s.drv.SNR(), -s.drv.FrequencyError())
	s.display.ShowFrame("LoRa", msg.String())
	return nil
}

func (s *Scheduler) onPreamble() {
	if !s.rxEnable {
		return
	}
	s.setState(StatePreambleDetected)
	logDebugf("preamble detected")
	if err := s.startRX(ReceiveSingle); err != nil {
		logErrorf("startReceive single failed: %v", err)
		s.setState(StateIdleScanning)
		return
	}
	s.receiving = true
	s.setState(StateReceivingSingle)
}

// setState moves to st unless the transmit hold-off is still running.
func (s *Scheduler) setState(st State) {
	if s.state == StateGuardWait && !s.guard.Elapsed() {
		return
	}
	s.state = st
}

func (s *Scheduler) serviceOutbound() {
	if !s.guard.Elapsed() {
		return
	}
	if s.state == StateGuardWait {
		s.state = StateIdleScanning
	}
	if !s.txEnable || s.transmitting || s.outbound.Empty() {
		return
	}

	ch := s.channel()
	if !ch.SplitFrequency() && s.drv.ModemStatus()&ModemStatusSignalDetected != 0 {
		// Someone else is on air on our channel.
		return
	}

	msg, ok := s.outbound.Pop()
	if !ok {
		return
	}
	frame := Frame([]byte(msg.Encode()))
	logDebugf("transmitting packet '%s' (%d bytes, ~%s on air)", msg, len(frame), ch.TimeOnAir(len(frame)))

	if err := s.startTX(frame); err != nil {
		logErrorf("startTransmit failed, disabling tx: %v", err)
		s.revoke(CapTx, "transmit start failed")
		return
	}
	// An armed single receive is abandoned by the transceiver once it transmits.
	s.receiving = false
	s.transmitting = true
	s.state = StateTransmitting
}

// Close removes the interrupt handlers from the driver.
func (s *Scheduler) Close() error {
	err0 := s.drv.ClearDio0Action()
	err1 := s.drv.ClearDio1Action()
	if err0 != nil {
		return err0
	}
	return err1
}

// startScan arms channel activity detection on the receive frequency.
func (s *Scheduler) startScan() error {
	if err := s.tune(s.channel().FrequencyRx); err != nil {
		return err
	}
	return s.drv.StartChannelScan()
}

// startRX arms the receiver on the receive frequency.
func (s *Scheduler) startRX(mode ReceiveMode) error {
	if err := s.tune(s.channel().FrequencyRx); err != nil {
		return err
	}
	return s.drv.StartReceive(mode)
}

// startTX transmits p on the transmit frequency.
func (s *Scheduler) startTX(p []byte) error {
	if err := s.tune(s.channel().FrequencyTx); err != nil {
		return err
	}
	return s.drv.StartTransmit(p)
}

// tune reprograms the carrier, only needed when rx and tx frequencies differ.
func (s *Scheduler) tune(f lora.Frequency) error {
	if !s.channel().SplitFrequency() {
		return nil
	}
	if err := s.drv.SetFrequency(f); err != nil {
		return fmt.Errorf("set frequency %.3fMHz: %w", mhz(f), err)
	}
	return nil
}
