//go:build linux

package gpio

import (
	"errors"
	"fmt"

	"github.com/warthog618/go-gpiocdev"

	"github.com/sweeney/cell-charger/internal/logic"
)

// RealOutputs drives actual hardware through the Linux GPIO character device.
type RealOutputs struct {
	chip       *gpiocdev.Chip
	enable     *gpiocdev.Line
	indicators map[logic.Indicator]*gpiocdev.Line
}

var _ Outputs = (*RealOutputs)(nil)

// NewRealOutputs requests every output line on chipName, driven low.
func NewRealOutputs(chipName string, pins Pins) (*RealOutputs, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	o := &RealOutputs{
		chip:       chip,
		indicators: make(map[logic.Indicator]*gpiocdev.Line, len(logic.AllIndicators)),
	}

	// Charge-enable starts low so the charger is off until the first decision.
	o.enable, err = chip.RequestLine(pins.ChargeEnable, gpiocdev.AsOutput(0))
	if err != nil {
		o.Close()
		return nil, fmt.Errorf("request charge-enable pin %d: %w", pins.ChargeEnable, err)
	}

	for _, kind := range logic.AllIndicators {
		offset, _ := pins.indicator(kind)
		line, err := chip.RequestLine(offset, gpiocdev.AsOutput(0))
		if err != nil {
			o.Close()
			return nil, fmt.Errorf("request %s indicator pin %d: %w", kind, offset, err)
		}
		o.indicators[kind] = line
	}

	return o, nil
}

// SetChargeEnable drives the charge-enable line.
func (o *RealOutputs) SetChargeEnable(on bool) error {
	if err := o.enable.SetValue(level(on)); err != nil {
		return fmt.Errorf("set charge-enable: %w", err)
	}
	return nil
}

// SetIndicator drives one indicator line.
func (o *RealOutputs) SetIndicator(kind logic.Indicator, on bool) error {
	line, ok := o.indicators[kind]
	if !ok {
		return fmt.Errorf("unknown indicator %s", kind)
	}
	if err := line.SetValue(level(on)); err != nil {
		return fmt.Errorf("set %s indicator: %w", kind, err)
	}
	return nil
}

func level(on bool) int {
	if on {
		return 1
	}
	return 0
}

// Close drives every line low, then reconfigures the lines to input with
// pull-down (matching Pi boot defaults) before releasing them.
func (o *RealOutputs) Close() error {
	var errs []error

	release := func(name string, line *gpiocdev.Line) {
		if line == nil {
			return
		}
		if err := line.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("drive %s low: %w", name, err))
		}
		if err := line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure %s pin: %w", name, err))
		}
		if err := line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s pin: %w", name, err))
		}
	}

	release("charge-enable", o.enable)
	o.enable = nil
	for _, kind := range logic.AllIndicators {
		release(kind.String(), o.indicators[kind])
		delete(o.indicators, kind)
	}

	if o.chip != nil {
		if err := o.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
		o.chip = nil
	}

	return errors.Join(errs...)
}
