package logic

import (
	"errors"
	"testing"
)

func TestDifferential(t *testing.T) {
	tests := []struct {
		a, b Raw
		want int32
	}{
		{600, 0, 600},
		{0, 500, -500},
		{1023, 1023, 0},
		{65535, 0, 65535},
		{0, 65535, -65535},
	}
	for _, tt := range tests {
		if got := Differential(tt.a, tt.b); got != tt.want {
			t.Errorf("Differential(%d, %d) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestNewEstimatorInvalidWindow(t *testing.T) {
	for _, n := range []int{0, -1, MaxWindow + 1} {
		if _, err := NewEstimator(n); !errors.Is(err, ErrInvalidWindow) {
			t.Errorf("NewEstimator(%d): expected ErrInvalidWindow, got %v", n, err)
		}
	}
	if _, err := NewEstimator(MaxWindow); err != nil {
		t.Errorf("NewEstimator(MaxWindow): %v", err)
	}
}

func TestEstimatorWindowOfOneSettlesEveryCycle(t *testing.T) {
	e, _ := NewEstimator(1)
	for _, pair := range [][2]Raw{{600, 0}, {0, 500}, {900, 60}} {
		st := e.Consume(pair[0], pair[1])
		if !st.Settled {
			t.Fatalf("expected settled for %v", pair)
		}
		if want := Differential(pair[0], pair[1]); st.Value != want {
			t.Errorf("value: got %d, want %d", st.Value, want)
		}
	}
}

func TestEstimatorAveraging(t *testing.T) {
	e, _ := NewEstimator(4)
	pairs := [][2]Raw{{610, 0}, {600, 0}, {590, 0}, {603, 0}}

	for i, p := range pairs[:3] {
		if st := e.Consume(p[0], p[1]); st.Settled {
			t.Fatalf("cycle %d: settled too early", i)
		}
	}
	acc, n := e.Pending()
	if acc != 1800 || n != 3 {
		t.Errorf("pending: got (%d, %d), want (1800, 3)", acc, n)
	}

	st := e.Consume(pairs[3][0], pairs[3][1])
	if !st.Settled {
		t.Fatal("expected settled after 4 cycles")
	}
	// (610+600+590+603)/4 = 2403/4 = 600 (truncated)
	if st.Value != 600 {
		t.Errorf("value: got %d, want 600", st.Value)
	}
	acc, n = e.Pending()
	if acc != 0 || n != 0 {
		t.Errorf("accumulator must be cleared after settling, got (%d, %d)", acc, n)
	}
}

func TestEstimatorTruncatesTowardZero(t *testing.T) {
	e, _ := NewEstimator(2)
	e.Consume(0, 3)
	st := e.Consume(0, 4)
	// (-3 + -4) / 2 = -3.5 -> -3
	if !st.Settled || st.Value != -3 {
		t.Errorf("got %+v, want settled -3", st)
	}
}

func TestEstimatorSecondWindowIndependent(t *testing.T) {
	e, _ := NewEstimator(2)
	e.Consume(100, 0)
	e.Consume(200, 0)

	e.Consume(10, 0)
	st := e.Consume(20, 0)
	if !st.Settled || st.Value != 15 {
		t.Errorf("second window: got %+v, want settled 15", st)
	}
}

func TestEstimatorReset(t *testing.T) {
	e, _ := NewEstimator(3)
	e.Consume(900, 0)
	e.Consume(900, 0)
	e.Reset()

	acc, n := e.Pending()
	if acc != 0 || n != 0 {
		t.Fatalf("Reset: got (%d, %d)", acc, n)
	}

	e.Consume(10, 0)
	e.Consume(20, 0)
	st := e.Consume(30, 0)
	if !st.Settled || st.Value != 20 {
		t.Errorf("after reset: got %+v, want settled 20", st)
	}
}

func TestEstimatorLargeWindowNoOverflow(t *testing.T) {
	e, _ := NewEstimator(MaxWindow)
	var st EstimateStatus
	for i := 0; i < MaxWindow; i++ {
		st = e.Consume(65535, 0)
	}
	if !st.Settled || st.Value != 65535 {
		t.Errorf("got %+v, want settled 65535", st)
	}
}

func TestCheckPresence(t *testing.T) {
	tests := []struct {
		ch   Channel
		raw  Raw
		want Presence
	}{
		{ChannelA, 0, PresenceAbsent},
		{ChannelA, 1, PresencePresent},
		{ChannelB, 0, PresencePresent},
		{ChannelB, 500, PresencePresent},
	}
	for _, tt := range tests {
		if got := CheckPresence(tt.ch, tt.raw); got != tt.want {
			t.Errorf("CheckPresence(%s, %d) = %s, want %s", tt.ch, tt.raw, got, tt.want)
		}
	}
}
