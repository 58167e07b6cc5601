//go:build tinygo

package sx127x

import (
	"machine"
)

type outPin machine.Pin

func (p outPin) Set(high bool) error {
	machine.Pin(p).Set(high)
	return nil
}

// irqPin installs the handler as a real pin change interrupt.
type irqPin machine.Pin

func (p irqPin) Watch(handler func()) error {
	pin := machine.Pin(p)
	pin.Configure(machine.PinConfig{Mode: machine.PinInputPulldown})
	return pin.SetInterrupt(machine.PinRising, func(machine.Pin) {
		handler()
	})
}

func (p irqPin) Unwatch() error {
	return machine.Pin(p).SetInterrupt(0, nil)
}

// spiBus frames each transfer with chip select.
type spiBus struct {
	bus *machine.SPI
	cs  machine.Pin
}

func (s *spiBus) Tx(w, r []byte) error {
	s.cs.Low()
	err := s.bus.Tx(w, r)
	s.cs.High()
	return err
}

// NewTinyGo creates a driver on a configured machine.SPI. Pass machine.NoPin
// for an unconnected reset line.
func NewTinyGo(bus *machine.SPI, csPin, resetPin, dio0Pin, dio1Pin machine.Pin) (*Device, error) {
	csPin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	csPin.High()

	hw := HardwareConfig{
		DIO0: irqPin(dio0Pin),
		DIO1: irqPin(dio1Pin),
	}
	if resetPin != machine.NoPin {
		resetPin.Configure(machine.PinConfig{Mode: machine.PinOutput})
		resetPin.High()
		hw.Reset = outPin(resetPin)
	}
	return NewWithHardware(hw, &spiBus{bus: bus, cs: csPin})
}
