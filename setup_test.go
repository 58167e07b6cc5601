package loraduplex

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestSetupArmsInitialScan(t *testing.T) {
	h := newHarness(t, &fakeDriver{}, testChannel())
	h.s.Setup()

	want := []string{fmt.Sprintf("begin %d", testFreqRx), "crc true", "scan"}
	if strings.Join(h.drv.calls, ",") != strings.Join(want, ",") {
		t.Errorf("Expected calls %v, got %v", want, h.drv.calls)
	}
	if h.s.Capabilities() != CapRx|CapTx {
		t.Errorf("Expected rx+tx, got %s", h.s.Capabilities())
	}
	if h.s.Fault() != "" {
		t.Errorf("Expected no fault, got %q", h.s.Fault())
	}
	if h.drv.dio0 == nil || h.drv.dio1 == nil {
		t.Errorf("Expected both interrupt handlers to be registered")
	}
}

func TestSetupIsIdempotent(t *testing.T) {
	h := newHarness(t, &fakeDriver{}, testChannel())
	h.s.Setup()
	h.drv.reset()
	h.s.Setup()
	if len(h.drv.calls) != 0 {
		t.Errorf("Expected second Setup to do nothing, got calls %v", h.drv.calls)
	}
}

func TestSetupFaultMapping(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		want    Capability
		message string
	}{
		{"frequency", ErrInvalidFrequency, 0, "frequency value (433.775MHz)"},
		{"bandwidth", ErrInvalidBandwidth, 0, "bandwidth value (125.0kHz)"},
		{"spreading factor", ErrInvalidSpreadingFactor, 0, "spreading factor value (12)"},
		{"coding rate", ErrInvalidCodingRate, 0, "coding rate value (4/5)"},
		{"output power", ErrInvalidOutputPower, CapRx, "output power value (17dBm)"},
		{"preamble", ErrInvalidPreambleLength, CapRx, "preamble length (8)"},
		{"gain", ErrInvalidGain, CapTx, "gain value (0)"},
		{"wrapped gain", fmt.Errorf("%w: %w", ErrPkg, ErrInvalidGain), CapTx, "gain value"},
		{"unknown", errors.New("spi timeout"), 0, "unexpected driver error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, &fakeDriver{beginErr: tt.err}, testChannel())
			h.s.Setup()

			if got := h.s.Capabilities(); got != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, got)
			}
			if !strings.HasPrefix(h.s.Fault(), "LoRa-Modem failed: ") || !strings.Contains(h.s.Fault(), tt.message) {
				t.Errorf("Expected fault mentioning %q, got %q", tt.message, h.s.Fault())
			}
			scanned := h.drv.count("scan") == 1
			if scanned != (tt.want&CapRx != 0) {
				t.Errorf("Expected scan armed only with rx enabled, got calls %v", h.drv.calls)
			}
		})
	}
}

func TestSetupCRCFailureDisablesBoth(t *testing.T) {
	h := newHarness(t, &fakeDriver{crcErr: errors.New("write failed")}, testChannel())
	h.s.Setup()

	if h.s.Capabilities() != 0 {
		t.Errorf("Expected nothing enabled, got %s", h.s.Capabilities())
	}
	if h.drv.count("scan") != 0 {
		t.Errorf("Expected no scan, got calls %v", h.drv.calls)
	}
}

func TestSetupScanFailureDisablesRx(t *testing.T) {
	h := newHarness(t, &fakeDriver{scanErr: errors.New("busy")}, testChannel())
	h.s.Setup()

	if h.s.Capabilities() != CapTx {
		t.Errorf("Expected only tx, got %s", h.s.Capabilities())
	}
	if !strings.Contains(h.s.Fault(), "initial channel scan failed") {
		t.Errorf("Unexpected fault %q", h.s.Fault())
	}
}

func TestSetupInterruptRegistration(t *testing.T) {
	h := newHarness(t, &fakeDriver{dio1Err: errors.New("no such pin")}, testChannel())
	h.s.Setup()
	if h.s.Capabilities() != CapTx {
		t.Errorf("Expected only tx without DIO1, got %s", h.s.Capabilities())
	}

	h = newHarness(t, &fakeDriver{dio0Err: errors.New("no such pin")}, testChannel())
	h.s.Setup()
	if h.s.Capabilities() != 0 {
		t.Errorf("Expected nothing without DIO0, got %s", h.s.Capabilities())
	}
}

func TestSetupTxDisabledByConfig(t *testing.T) {
	ch := testChannel()
	ch.TxEnable = false
	h := newHarness(t, &fakeDriver{}, ch)
	h.s.Setup()

	if h.s.Capabilities() != CapRx {
		t.Errorf("Expected only rx, got %s", h.s.Capabilities())
	}
	if h.s.Fault() != "" {
		t.Errorf("Expected no fault, got %q", h.s.Fault())
	}
}

func TestSetupFaultsAccumulate(t *testing.T) {
	h := newHarness(t, &fakeDriver{beginErr: ErrInvalidOutputPower, scanErr: errors.New("busy")}, testChannel())
	h.s.Setup()

	if h.s.Capabilities() != 0 {
		t.Errorf("Expected nothing enabled, got %s", h.s.Capabilities())
	}
	if strings.Count(h.s.Fault(), ";") != 1 {
		t.Errorf("Expected two fault reasons, got %q", h.s.Fault())
	}
}
