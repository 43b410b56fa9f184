// Package sim provides a bench simulator standing in for the converter
// front-end and the charger outputs, so the daemon can run without hardware.
package sim

import (
	"errors"
	"sync"
	"time"

	"github.com/sweeney/cell-charger/internal/adc"
	"github.com/sweeney/cell-charger/internal/logic"
)

// ErrClosed is returned when a conversion is requested after Close.
var ErrClosed = errors.New("bench closed")

// Config describes the simulated cell and converter.
type Config struct {
	Interval   time.Duration // time for one conversion
	CellStart  int           // initial cell level in counts
	Reference  int           // level of channel B
	ChargeStep int           // rise per cycle while charging
	DrainStep  int           // fall per cycle otherwise
	MaxRaw     int           // converter full scale
}

// Bench models a cell connected to a charger. Channel A reads the reference
// plus the cell level, or 0 while the supply is removed. Channel B reads the
// reference. The cell rises by ChargeStep each cycle while charge-enable is
// on and the supply is present, and falls by DrainStep otherwise.
type Bench struct {
	cfg Config

	mu         sync.Mutex
	cell       int
	supply     bool
	enabled    bool
	indicators logic.IndicatorSet
	closed     bool

	out  chan adc.Conversion
	done chan struct{}
}

var (
	_ adc.Source     = (*Bench)(nil)
	_ logic.Actuator = (*Bench)(nil)
)

// New creates a bench with the supply present.
func New(cfg Config) *Bench {
	if cfg.MaxRaw <= 0 {
		cfg.MaxRaw = adc.DefaultMaxRaw
	}
	return &Bench{
		cfg:    cfg,
		cell:   cfg.CellStart,
		supply: true,
		out:    make(chan adc.Conversion, 1),
		done:   make(chan struct{}),
	}
}

// StartConversion schedules a conversion of ch. Each request for channel A
// advances the cell model by one cycle.
func (b *Bench) StartConversion(ch logic.Channel) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrClosed
	}
	if ch == logic.ChannelA {
		b.step()
	}

	time.AfterFunc(b.cfg.Interval, func() { b.complete(ch) })
	return nil
}

// step must be called with mu held.
func (b *Bench) step() {
	if b.enabled && b.supply {
		b.cell += b.cfg.ChargeStep
	} else {
		b.cell -= b.cfg.DrainStep
	}
	if b.cell < 0 {
		b.cell = 0
	}
	if top := b.cfg.MaxRaw - b.cfg.Reference; b.cell > top {
		b.cell = top
	}
}

func (b *Bench) complete(ch logic.Channel) {
	conv := adc.Conversion{Channel: ch, Raw: b.read(ch)}
	select {
	case b.out <- conv:
	case <-b.done:
	}
}

func (b *Bench) read(ch logic.Channel) logic.Raw {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch == logic.ChannelB {
		return clamp(b.cfg.Reference, b.cfg.MaxRaw)
	}
	if !b.supply {
		return 0
	}
	return clamp(b.cfg.Reference+b.cell, b.cfg.MaxRaw)
}

func clamp(v, max int) logic.Raw {
	if v < 0 {
		return 0
	}
	if v > max {
		return logic.Raw(max)
	}
	return logic.Raw(v)
}

// Conversions returns the channel of completed conversions.
func (b *Bench) Conversions() <-chan adc.Conversion {
	return b.out
}

// Close stops delivering conversions. Pending timers are abandoned.
func (b *Bench) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.closed {
		b.closed = true
		close(b.done)
	}
	return nil
}

// SetChargeEnable implements logic.Actuator.
func (b *Bench) SetChargeEnable(on bool) error {
	b.mu.Lock()
	b.enabled = on
	b.mu.Unlock()
	return nil
}

// SetIndicator implements logic.Actuator.
func (b *Bench) SetIndicator(kind logic.Indicator, on bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch kind {
	case logic.IndicatorLow:
		b.indicators.Low = on
	case logic.IndicatorFull:
		b.indicators.Full = on
	case logic.IndicatorCharging:
		b.indicators.Charging = on
	case logic.IndicatorPresence:
		b.indicators.Presence = on
	}
	return nil
}

// SetSupply connects or removes the charging supply.
func (b *Bench) SetSupply(present bool) {
	b.mu.Lock()
	b.supply = present
	b.mu.Unlock()
}

// ToggleSupply flips the supply and returns the new setting.
func (b *Bench) ToggleSupply() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.supply = !b.supply
	return b.supply
}

// Cell returns the simulated cell level.
func (b *Bench) Cell() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cell
}

// ChargeEnabled reports the charge-enable output.
func (b *Bench) ChargeEnabled() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.enabled
}

// Indicators returns the indicator outputs.
func (b *Bench) Indicators() logic.IndicatorSet {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.indicators
}
