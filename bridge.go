package loraduplex

import "sync/atomic"

// InterruptBridge carries the two interrupt latches from handler context to
// the scheduler. Handlers are the only writers of the latches; the scheduler
// is the only writer of the gate, which it closes while consuming them.
type InterruptBridge struct {
	enabled       atomic.Bool
	operationDone atomic.Bool
	dio1Triggered atomic.Bool
}

// NewInterruptBridge returns a bridge with the gate open and both latches clear.
func NewInterruptBridge() *InterruptBridge {
	b := &InterruptBridge{}
	b.enabled.Store(true)
	return b
}

// OnOperationDone is the DIO0 handler: scan done, packet received or packet sent.
// It must stay allocation free.
func (b *InterruptBridge) OnOperationDone() {
	if !b.enabled.Load() {
		return
	}
	b.operationDone.Store(true)
}

// OnPreamble is the DIO1 handler: preamble detected during a channel scan.
func (b *InterruptBridge) OnPreamble() {
	if !b.enabled.Load() {
		return
	}
	b.dio1Triggered.Store(true)
}

// Pending reports whether either latch is set.
func (b *InterruptBridge) Pending() bool {
	return b.operationDone.Load() || b.dio1Triggered.Load()
}

// PreambleDetected reports the DIO1 latch.
func (b *InterruptBridge) PreambleDetected() bool {
	return b.dio1Triggered.Load()
}

// Disable closes the gate so handlers become no-ops.
func (b *InterruptBridge) Disable() { b.enabled.Store(false) }

// Enable reopens the gate.
func (b *InterruptBridge) Enable() { b.enabled.Store(true) }

// Enabled reports the gate state.
func (b *InterruptBridge) Enabled() bool { return b.enabled.Load() }

// Clear resets both latches.
func (b *InterruptBridge) Clear() {
	b.operationDone.Store(false)
	b.dio1Triggered.Store(false)
}
