// Package gpio drives the charger outputs with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

import "github.com/sweeney/cell-charger/internal/logic"

// Outputs drives the charge-enable line and the indicator lines.
// All lines are active high.
type Outputs interface {
	logic.Actuator

	// Close drives every line low and releases GPIO resources.
	Close() error
}

// Pins holds the BCM line offsets of the outputs.
type Pins struct {
	ChargeEnable int
	Low          int
	Full         int
	Charging     int
	Presence     int
}

// DefaultPins is the standard board wiring.
var DefaultPins = Pins{
	ChargeEnable: 17,
	Low:          22,
	Full:         27,
	Charging:     23,
	Presence:     24,
}

// indicator returns the offset wired to kind.
func (p Pins) indicator(kind logic.Indicator) (int, bool) {
	switch kind {
	case logic.IndicatorLow:
		return p.Low, true
	case logic.IndicatorFull:
		return p.Full, true
	case logic.IndicatorCharging:
		return p.Charging, true
	case logic.IndicatorPresence:
		return p.Presence, true
	}
	return 0, false
}
