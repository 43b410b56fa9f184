package logic

import (
	"errors"
	"fmt"
)

var (
	// ErrThresholdOrder is returned when the low threshold is not below the high one.
	ErrThresholdOrder = errors.New("low charge threshold must be below high charge threshold")

	// ErrActuation wraps output failures. They are not fatal: the next settled
	// estimate re-asserts every output.
	ErrActuation = errors.New("actuation")
)

// Thresholds are the calibration constants in raw differential counts.
// Values in [Low, High) charge; below Low protects; at or above High is full.
type Thresholds struct {
	Low  int32
	High int32
}

// Validate checks Low < High.
func (t Thresholds) Validate() error {
	if t.Low >= t.High {
		return fmt.Errorf("%w: low=%d high=%d", ErrThresholdOrder, t.Low, t.High)
	}
	return nil
}

// Decision is the complete output configuration for a charge state.
type Decision struct {
	State        ChargeState
	ChargeEnable bool
	Indicators   IndicatorSet
}

// Decide maps a settled value and presence onto a Decision. It is a total
// function of its inputs: the same inputs always give the same decision.
func Decide(th Thresholds, value int32, presence Presence) Decision {
	switch {
	case presence == PresenceAbsent:
		return Decision{State: StateDisconnected}
	case value < th.Low:
		return Decision{
			State:      StateProtect,
			Indicators: IndicatorSet{Low: true, Presence: true},
		}
	case value >= th.High:
		return Decision{
			State:      StateFull,
			Indicators: IndicatorSet{Full: true, Presence: true},
		}
	default:
		return Decision{
			State:        StateCharging,
			ChargeEnable: true,
			Indicators:   IndicatorSet{Charging: true, Presence: true},
		}
	}
}

// Controller owns the charge state and pushes decisions to the Actuator.
type Controller struct {
	th       Thresholds
	act      Actuator
	state    ChargeState
	decision Decision
}

// NewController creates a Controller in the Disconnected state.
// No output is driven until the first Apply.
func NewController(th Thresholds, act Actuator) (*Controller, error) {
	if err := th.Validate(); err != nil {
		return nil, err
	}
	return &Controller{
		th:       th,
		act:      act,
		state:    StateDisconnected,
		decision: Decision{State: StateDisconnected},
	}, nil
}

// Evaluate decides on value and presence and applies the result.
func (c *Controller) Evaluate(value int32, presence Presence) (Decision, error) {
	d := Decide(c.th, value, presence)
	return d, c.Apply(d)
}

// Apply records d as the current state and drives every output.
// Charge-enable is driven first so a disable never waits on an indicator.
func (c *Controller) Apply(d Decision) error {
	c.state = d.State
	c.decision = d

	var errs []error
	if err := c.act.SetChargeEnable(d.ChargeEnable); err != nil {
		errs = append(errs, fmt.Errorf("charge enable: %w", err))
	}
	for _, ind := range AllIndicators {
		if err := c.act.SetIndicator(ind, d.Indicators.Get(ind)); err != nil {
			errs = append(errs, fmt.Errorf("indicator %s: %w", ind, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrActuation, errors.Join(errs...))
	}
	return nil
}

// State returns the current charge state.
func (c *Controller) State() ChargeState {
	return c.state
}

// Decision returns the last applied decision.
func (c *Controller) Decision() Decision {
	return c.decision
}

// Thresholds returns the configured thresholds.
func (c *Controller) Thresholds() Thresholds {
	return c.th
}
