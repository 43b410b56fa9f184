package adc

import "github.com/sweeney/cell-charger/internal/logic"

// Fake is a test double. It records the commanded channels and delivers the
// conversions pushed with Complete.
type Fake struct {
	// Started contains every channel passed to StartConversion.
	Started []logic.Channel

	// StartError, if set, will be returned by StartConversion.
	StartError error

	// Closed tracks if Close was called.
	Closed bool

	out chan Conversion
}

// NewFake creates a Fake with an unbuffered conversion channel, so Complete
// returns only once the consumer has taken the conversion.
func NewFake() *Fake {
	return &Fake{out: make(chan Conversion)}
}

// StartConversion records ch.
func (f *Fake) StartConversion(ch logic.Channel) error {
	if f.StartError != nil {
		return f.StartError
	}
	f.Started = append(f.Started, ch)
	return nil
}

// Conversions returns the channel fed by Complete.
func (f *Fake) Conversions() <-chan Conversion {
	return f.out
}

// Complete delivers a conversion result. It blocks until it is received.
func (f *Fake) Complete(ch logic.Channel, raw logic.Raw) {
	f.out <- Conversion{Channel: ch, Raw: raw}
}

// CompleteCycle delivers an A then B conversion.
func (f *Fake) CompleteCycle(a, b logic.Raw) {
	f.Complete(logic.ChannelA, a)
	f.Complete(logic.ChannelB, b)
}

// Close marks the source as closed.
func (f *Fake) Close() error {
	f.Closed = true
	return nil
}
