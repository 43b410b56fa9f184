package logic

import (
	"errors"
	"fmt"
	"time"
)

// Config holds the start-up parameters of the core. It is immutable once the
// Core is built.
type Config struct {
	Thresholds Thresholds
	MaxSamples int
}

// Validate fails fast on any configuration error.
func (c Config) Validate() error {
	if err := c.Thresholds.Validate(); err != nil {
		return err
	}
	if c.MaxSamples < 1 || c.MaxSamples > MaxWindow {
		return fmt.Errorf("%w: %d (want 1..%d)", ErrInvalidWindow, c.MaxSamples, MaxWindow)
	}
	return nil
}

// Update describes what one conversion did to the core.
type Update struct {
	Cycle    CycleStatus
	Presence Presence // set only when Cycle.Complete
	Estimate EstimateStatus
	Decided  bool // a decision was applied
	Decision Decision
	Event    *Event // non-nil when the charge state changed
}

// Core chains the sampler, estimator, presence monitor and controller behind a
// single entry point. It must be driven from one goroutine; other readers use
// a snapshot published by that goroutine.
type Core struct {
	sampler    *Sampler
	estimator  *Estimator
	controller *Controller

	startTime     time.Time
	lastHeartbeat time.Time
	cycles        uint64
	settles       uint64
	counts        StateCounts
}

// New validates cfg and builds a Core in the Disconnected state.
func New(cfg Config, conv Converter, act Actuator, startTime time.Time) (*Core, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	est, err := NewEstimator(cfg.MaxSamples)
	if err != nil {
		return nil, err
	}
	ctl, err := NewController(cfg.Thresholds, act)
	if err != nil {
		return nil, err
	}
	return &Core{
		sampler:       NewSampler(conv),
		estimator:     est,
		controller:    ctl,
		startTime:     startTime,
		lastHeartbeat: startTime,
	}, nil
}

// Start drives the safe Disconnected outputs and commands the first conversion.
func (c *Core) Start() error {
	actErr := c.controller.Apply(Decide(c.controller.Thresholds(), 0, PresenceAbsent))
	return errors.Join(c.sampler.Start(), actErr)
}

// OnConversionComplete is the single entry point for completed conversions.
// Errors for which IsFatal reports true leave the core unable to continue.
func (c *Core) OnConversionComplete(ch Channel, raw Raw, now time.Time) (Update, error) {
	cycle, err := c.sampler.OnConversionComplete(ch, raw)
	if errors.Is(err, ErrChannelMismatch) || errors.Is(err, ErrNotStarted) {
		return Update{}, err
	}
	startErr := err

	u := Update{Cycle: cycle}
	if !cycle.Complete {
		return u, startErr
	}
	c.cycles++

	u.Presence = CheckPresence(ChannelA, cycle.A)
	var value int32
	if u.Presence == PresenceAbsent {
		// Loss of source is acted on at once; a partial window would mix
		// readings from before and after the loss.
		c.estimator.Reset()
	} else {
		u.Estimate = c.estimator.Consume(cycle.A, cycle.B)
		if !u.Estimate.Settled {
			return u, startErr
		}
		c.settles++
		value = u.Estimate.Value
	}

	u.Decided = true
	var actErr error
	u.Decision, u.Event, actErr = c.apply(Decide(c.controller.Thresholds(), value, u.Presence), value, u.Presence, now)
	return u, errors.Join(startErr, actErr)
}

// Kick re-issues the conversion currently in flight.
func (c *Core) Kick() error {
	return c.sampler.Kick()
}

// Stop forces the Disconnected outputs, e.g. before the process exits.
func (c *Core) Stop(now time.Time) (*Event, error) {
	_, ev, err := c.apply(Decide(c.controller.Thresholds(), 0, PresenceAbsent), 0, PresenceAbsent, now)
	return ev, err
}

func (c *Core) apply(d Decision, value int32, presence Presence, now time.Time) (Decision, *Event, error) {
	prev := c.controller.State()
	err := c.controller.Apply(d)
	if d.State == prev {
		return d, nil, err
	}
	c.counts.add(d.State)
	return d, &Event{
		Timestamp:    now,
		From:         prev,
		To:           d.State,
		Value:        value,
		Presence:     presence,
		ChargeEnable: d.ChargeEnable,
	}, err
}

// State returns the current charge state.
func (c *Core) State() ChargeState {
	return c.controller.State()
}

// Decision returns the last applied decision.
func (c *Core) Decision() Decision {
	return c.controller.Decision()
}

// Pending returns the channel whose conversion is in flight.
func (c *Core) Pending() Channel {
	return c.sampler.Pending()
}

// Discarded returns the number of duplicate completions dropped after Kick.
func (c *Core) Discarded() uint64 {
	return c.sampler.Discarded()
}

// Estimator exposes the estimator for inspection.
func (c *Core) Estimator() *Estimator {
	return c.estimator
}

// Cycles returns the number of completed A/B cycles.
func (c *Core) Cycles() uint64 {
	return c.cycles
}

// Settles returns the number of settled estimates.
func (c *Core) Settles() uint64 {
	return c.settles
}

// Counts returns the per-state transition counters.
func (c *Core) Counts() StateCounts {
	return c.counts
}

// CheckHeartbeat returns heartbeat data if the interval has elapsed since the
// last heartbeat (or startup). Returns nil if the interval has not elapsed,
// or if interval is <= 0 (disabled).
func (c *Core) CheckHeartbeat(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 {
		return nil
	}
	if now.Sub(c.lastHeartbeat) < interval {
		return nil
	}

	c.lastHeartbeat = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(c.startTime),
		State:     c.controller.State(),
		Cycles:    c.cycles,
		Settles:   c.settles,
		Counts:    c.counts,
	}
}

// IsFatal reports whether err leaves the control loop unable to continue.
// Output failures are not fatal; conversion failures break the closed loop.
func IsFatal(err error) bool {
	return errors.Is(err, ErrChannelMismatch) ||
		errors.Is(err, ErrNotStarted) ||
		errors.Is(err, ErrConversionStart)
}
