// Package adc provides the converter side of the hardware boundary.
// The serial implementation talks to a converter front-end over a line-based
// protocol. The fake implementation allows testing without hardware.
package adc

import "github.com/sweeney/cell-charger/internal/logic"

// Conversion is a completed conversion reported by the front-end.
type Conversion struct {
	Channel logic.Channel
	Raw     logic.Raw
}

// Source starts conversions and delivers their results in order.
type Source interface {
	logic.Converter

	// Conversions delivers completed conversions. Exactly one conversion is
	// delivered per StartConversion call that the front-end accepted.
	Conversions() <-chan Conversion

	// Close releases the front-end.
	Close() error
}

// DefaultMaxRaw is the full-scale count of a 10-bit converter.
const DefaultMaxRaw = 1023

var (
	_ Source = (*Serial)(nil)
	_ Source = (*Fake)(nil)
)
