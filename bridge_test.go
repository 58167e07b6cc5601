package loraduplex

import (
	"sync"
	"testing"
)

func TestInterruptBridge(t *testing.T) {
	b := NewInterruptBridge()
	if !b.Enabled() || b.Pending() {
		t.Fatalf("Expected new bridge to be enabled and clear")
	}

	b.OnPreamble()
	if !b.Pending() || !b.PreambleDetected() {
		t.Errorf("Expected preamble latch to be set")
	}

	b.Clear()
	b.Disable()
	b.OnOperationDone()
	b.OnPreamble()
	if b.Pending() {
		t.Errorf("Expected handlers to be ignored while disabled")
	}

	b.Enable()
	b.OnOperationDone()
	if !b.Pending() || b.PreambleDetected() {
		t.Errorf("Expected only the operation latch to be set")
	}
}

func TestInterruptBridgeConcurrentHandlers(t *testing.T) {
	b := NewInterruptBridge()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				b.OnOperationDone()
				b.OnPreamble()
			}
		}()
	}
	wg.Wait()

	if !b.Pending() {
		t.Errorf("Expected latches to be set")
	}
}
