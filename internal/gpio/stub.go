//go:build !linux

package gpio

import (
	"errors"

	"github.com/sweeney/cell-charger/internal/logic"
)

// RealOutputs is not available on non-Linux platforms.
type RealOutputs struct{}

var _ Outputs = (*RealOutputs)(nil)

// NewRealOutputs returns an error on non-Linux platforms.
func NewRealOutputs(chipName string, pins Pins) (*RealOutputs, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// SetChargeEnable is not implemented on non-Linux platforms.
func (o *RealOutputs) SetChargeEnable(on bool) error {
	return errors.New("gpio: not supported")
}

// SetIndicator is not implemented on non-Linux platforms.
func (o *RealOutputs) SetIndicator(kind logic.Indicator, on bool) error {
	return errors.New("gpio: not supported")
}

// Close is not implemented on non-Linux platforms.
func (o *RealOutputs) Close() error {
	return nil
}
