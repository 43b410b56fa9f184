package gpio

import (
	"fmt"

	"github.com/sweeney/cell-charger/internal/logic"
)

// FakeOutputs is a test double that records output levels.
type FakeOutputs struct {
	// ChargeEnable is the current charge-enable level.
	ChargeEnable bool

	// Indicators holds the current indicator levels.
	Indicators logic.IndicatorSet

	// Writes counts every successful Set call.
	Writes int

	// Closed tracks if Close was called
	Closed bool

	// SetError, if set, will be returned by every Set call.
	SetError error
}

var _ Outputs = (*FakeOutputs)(nil)

// NewFakeOutputs creates a FakeOutputs with every line low.
func NewFakeOutputs() *FakeOutputs {
	return &FakeOutputs{}
}

// SetChargeEnable records the charge-enable level.
func (f *FakeOutputs) SetChargeEnable(on bool) error {
	if f.SetError != nil {
		return f.SetError
	}
	f.ChargeEnable = on
	f.Writes++
	return nil
}

// SetIndicator records an indicator level.
func (f *FakeOutputs) SetIndicator(kind logic.Indicator, on bool) error {
	if f.SetError != nil {
		return f.SetError
	}
	switch kind {
	case logic.IndicatorLow:
		f.Indicators.Low = on
	case logic.IndicatorFull:
		f.Indicators.Full = on
	case logic.IndicatorCharging:
		f.Indicators.Charging = on
	case logic.IndicatorPresence:
		f.Indicators.Presence = on
	default:
		return fmt.Errorf("unknown indicator %s", kind)
	}
	f.Writes++
	return nil
}

// Close drives every line low and marks the outputs as closed.
func (f *FakeOutputs) Close() error {
	f.ChargeEnable = false
	f.Indicators = logic.IndicatorSet{}
	f.Closed = true
	return nil
}
