package logic

import (
	"errors"
	"fmt"
)

// MaxWindow is the largest supported averaging window. With int64 accumulation
// MaxWindow * 65535 is far from overflow.
const MaxWindow = 1 << 16

// ErrInvalidWindow is returned for an averaging window outside [1, MaxWindow].
var ErrInvalidWindow = errors.New("invalid averaging window")

// EstimateStatus is the result of feeding one completed cycle to the Estimator.
// Value is only meaningful when Settled is true.
type EstimateStatus struct {
	Settled bool
	Value   int32
}

// Differential returns a - b as a signed count. Negative results are valid.
func Differential(a, b Raw) int32 {
	return int32(a) - int32(b)
}

// Estimator averages differential readings over a fixed number of cycles.
type Estimator struct {
	maxSamples  int
	accumulator int64
	count       int
}

// NewEstimator creates an Estimator that settles every maxSamples cycles.
func NewEstimator(maxSamples int) (*Estimator, error) {
	if maxSamples < 1 || maxSamples > MaxWindow {
		return nil, fmt.Errorf("%w: %d (want 1..%d)", ErrInvalidWindow, maxSamples, MaxWindow)
	}
	return &Estimator{maxSamples: maxSamples}, nil
}

// Consume adds the differential of one cycle. When the window is full the
// truncated mean is returned as a settled value and the window restarts.
func (e *Estimator) Consume(a, b Raw) EstimateStatus {
	d := Differential(a, b)
	if e.maxSamples == 1 {
		return EstimateStatus{Settled: true, Value: d}
	}

	e.accumulator += int64(d)
	e.count++
	if e.count < e.maxSamples {
		return EstimateStatus{}
	}

	// Go integer division truncates toward zero.
	value := int32(e.accumulator / int64(e.maxSamples))
	e.Reset()
	return EstimateStatus{Settled: true, Value: value}
}

// Reset discards any partial accumulation.
func (e *Estimator) Reset() {
	e.accumulator = 0
	e.count = 0
}

// Pending returns the partial accumulation and the number of cycles in it.
func (e *Estimator) Pending() (accumulator int64, count int) {
	return e.accumulator, e.count
}

// Window returns the configured number of cycles per settled estimate.
func (e *Estimator) Window() int {
	return e.maxSamples
}
