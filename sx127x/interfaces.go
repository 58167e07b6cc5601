package sx127x

// SPI is a full duplex transfer framed by the radio's chip select.
type SPI interface {
	// Tx clocks out w while filling r. w and r may be the same slice.
	Tx(w, r []byte) error
}

// OutputPin drives the NRESET line.
type OutputPin interface {
	Set(high bool) error
}

// InterruptPin is one of the DIO lines. The chip drives a DIO line high to
// signal an event, so implementations pull the input down and trigger on the
// rising edge.
type InterruptPin interface {
	// Watch calls handler on every rising edge. The handler may run in
	// interrupt context or on a dedicated goroutine and must not block.
	Watch(handler func()) error
	// Unwatch removes the handler. It is a no-op on an idle pin.
	Unwatch() error
}
