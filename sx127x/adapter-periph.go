//go:build !tinygo

package sx127x

import (
	"fmt"

	"github.com/michcald/loraduplex"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

type outPin struct {
	gpio.PinIO
}

func (p outPin) Set(high bool) error {
	if high {
		return p.Out(gpio.High)
	}
	return p.Out(gpio.Low)
}

// irqPin turns edge detection into a callback from a goroutine blocked in
// WaitForEdge, which is the closest Linux gets to an interrupt handler.
type irqPin struct {
	gpio.PinIO
	stop chan struct{}
}

func (p *irqPin) Watch(handler func()) error {
	if err := p.Unwatch(); err != nil {
		return err
	}
	if err := p.In(gpio.PullDown, gpio.RisingEdge); err != nil {
		return err
	}

	stop := make(chan struct{})
	p.stop = stop
	go func() {
		for {
			edged := p.WaitForEdge(-1)
			select {
			case <-stop:
				return
			default:
			}
			if edged {
				handler()
			}
		}
	}()
	return nil
}

func (p *irqPin) Unwatch() error {
	if p.stop == nil {
		return nil
	}
	close(p.stop)
	p.stop = nil
	// Disabling edge detection also wakes the watcher.
	return p.In(gpio.PullDown, gpio.NoEdge)
}

// Config holds the wiring of an SX127x module on a Linux board.
type Config struct {
	// SpiBusPath is the path to the SPI bus (e.g., "/dev/spidev0.0").
	// Defaults to "/dev/spidev0.0" if not provided.
	SpiBusPath string
	// SpiClockHz is the SPI clock frequency in Hz. The chip accepts up to 10MHz.
	// Defaults to 8000000 (8MHz) if not provided.
	SpiClockHz int
	// ResetPin is the GPIO number (BCM numbering) wired to NRESET.
	// Optional.
	ResetPin int
	// DIO0Pin is the GPIO number (BCM numbering) wired to DIO0.
	// Defaults to 25 if not provided.
	DIO0Pin int
	// DIO1Pin is the GPIO number (BCM numbering) wired to DIO1.
	// Defaults to 24 if not provided.
	DIO1Pin int
}

// New opens the SPI bus and GPIO lines with periph.io and returns a driver
// ready for Begin.
func New(c Config) (*Device, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("%w: failed to initialize periph.io host: %w", loraduplex.ErrPkg, err)
	}

	if c.SpiBusPath == "" {
		c.SpiBusPath = "/dev/spidev0.0"
	}
	if c.SpiClockHz == 0 {
		c.SpiClockHz = 8000000
	}
	if c.DIO0Pin == 0 {
		c.DIO0Pin = 25
	}
	if c.DIO1Pin == 0 {
		c.DIO1Pin = 24
	}

	hw := HardwareConfig{}
	if c.ResetPin != 0 {
		pin, err := gpioByNumber(c.ResetPin)
		if err != nil {
			return nil, err
		}
		hw.Reset = outPin{pin}
	}
	dio0, err := gpioByNumber(c.DIO0Pin)
	if err != nil {
		return nil, err
	}
	dio1, err := gpioByNumber(c.DIO1Pin)
	if err != nil {
		return nil, err
	}
	hw.DIO0 = &irqPin{PinIO: dio0}
	hw.DIO1 = &irqPin{PinIO: dio1}

	p, err := spireg.Open(c.SpiBusPath)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open SPI port: %w", loraduplex.ErrPkg, err)
	}
	conn, err := p.Connect(physic.Frequency(c.SpiClockHz)*physic.Hertz, spi.Mode0, 8)
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("%w: failed to create SPI connection: %w", loraduplex.ErrPkg, err)
	}

	dev, err := NewWithHardware(hw, conn)
	if err != nil {
		p.Close()
		return nil, err
	}
	dev.port = p
	return dev, nil
}

func gpioByNumber(n int) (gpio.PinIO, error) {
	name := fmt.Sprintf("GPIO%d", n)
	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, fmt.Errorf("%w: failed to open pin %s", loraduplex.ErrPkg, name)
	}
	return pin, nil
}
