package logic

import (
	"errors"
	"fmt"
)

var (
	// ErrChannelMismatch means a conversion completed on a channel other than
	// the one last commanded. It indicates a broken adapter, not a reading.
	ErrChannelMismatch = errors.New("conversion channel mismatch")

	// ErrNotStarted means a conversion arrived before the sampler was started.
	ErrNotStarted = errors.New("sampler not started")

	// ErrConversionStart wraps a Converter failure to begin the next conversion.
	ErrConversionStart = errors.New("start conversion")
)

// SampleSet holds the readings of the current cycle.
type SampleSet struct {
	A    Raw
	B    Raw
	HasA bool
	HasB bool
}

// Complete reports whether both channels were sampled in this cycle.
func (s SampleSet) Complete() bool {
	return s.HasA && s.HasB
}

// CycleStatus is the result of feeding one conversion to the Sampler.
// A and B are only meaningful when Complete is true.
type CycleStatus struct {
	Complete bool
	A        Raw
	B        Raw
}

// Sampler alternates conversions between channel A and channel B and collects
// one reading from each per cycle. Exactly one conversion is in flight at a time.
type Sampler struct {
	conv    Converter
	pending Channel
	started bool
	set     SampleSet

	// reissued counts duplicate conversions commanded by Kick per channel
	// whose completions may still arrive.
	reissued  [2]int
	discarded uint64
}

// NewSampler creates a Sampler driving the given converter.
func NewSampler(conv Converter) *Sampler {
	return &Sampler{conv: conv}
}

// Start resets the cycle and commands the first conversion on channel A.
func (s *Sampler) Start() error {
	s.set = SampleSet{}
	s.pending = ChannelA
	s.started = true
	s.reissued = [2]int{}
	return s.command(ChannelA)
}

// OnConversionComplete stores raw for ch and commands the alternate channel.
// A late duplicate of a conversion re-issued by Kick is dropped. Any other
// mismatched channel is rejected without touching any state.
func (s *Sampler) OnConversionComplete(ch Channel, raw Raw) (CycleStatus, error) {
	if !s.started {
		return CycleStatus{}, ErrNotStarted
	}
	if ch != s.pending {
		if ch <= ChannelB && s.reissued[ch] > 0 {
			s.reissued[ch]--
			s.discarded++
			return CycleStatus{}, nil
		}
		return CycleStatus{}, fmt.Errorf("%w: got %s, want %s", ErrChannelMismatch, ch, s.pending)
	}
	// Completions arrive in command order, so no duplicate of the other
	// channel can follow this one.
	s.reissued[ch.Next()] = 0

	var status CycleStatus
	if ch == ChannelA {
		// A new cycle begins; anything left from the previous one is stale.
		s.set = SampleSet{A: raw, HasA: true}
	} else {
		s.set.B = raw
		s.set.HasB = true
		status = CycleStatus{Complete: true, A: s.set.A, B: s.set.B}
		s.set = SampleSet{}
	}

	s.pending = ch.Next()
	return status, s.command(s.pending)
}

// Kick re-issues the conversion currently in flight. It is used when the
// adapter appears to have lost a completion.
func (s *Sampler) Kick() error {
	if !s.started {
		return ErrNotStarted
	}
	s.reissued[s.pending]++
	return s.command(s.pending)
}

// Discarded returns the number of duplicate completions dropped after Kick.
func (s *Sampler) Discarded() uint64 {
	return s.discarded
}

// Pending returns the channel whose conversion is in flight.
func (s *Sampler) Pending() Channel {
	return s.pending
}

// Samples returns the partially filled set of the current cycle.
func (s *Sampler) Samples() SampleSet {
	return s.set
}

func (s *Sampler) command(ch Channel) error {
	if err := s.conv.StartConversion(ch); err != nil {
		return fmt.Errorf("%w %s: %w", ErrConversionStart, ch, err)
	}
	return nil
}
