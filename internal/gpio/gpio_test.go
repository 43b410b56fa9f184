package gpio

import (
	"errors"
	"testing"

	"github.com/sweeney/cell-charger/internal/logic"
)

func TestPinsIndicator(t *testing.T) {
	tests := []struct {
		kind logic.Indicator
		want int
	}{
		{logic.IndicatorLow, 22},
		{logic.IndicatorFull, 27},
		{logic.IndicatorCharging, 23},
		{logic.IndicatorPresence, 24},
	}
	for _, tt := range tests {
		got, ok := DefaultPins.indicator(tt.kind)
		if !ok || got != tt.want {
			t.Errorf("indicator(%s) = %d, %v; want %d", tt.kind, got, ok, tt.want)
		}
	}

	if _, ok := DefaultPins.indicator(logic.Indicator(9)); ok {
		t.Error("unknown indicator should not map to a line")
	}
}

func TestFakeOutputsSet(t *testing.T) {
	f := NewFakeOutputs()

	if err := f.SetChargeEnable(true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := f.SetIndicator(logic.IndicatorCharging, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := f.SetIndicator(logic.IndicatorPresence, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !f.ChargeEnable {
		t.Error("charge-enable should be on")
	}
	want := logic.IndicatorSet{Charging: true, Presence: true}
	if f.Indicators != want {
		t.Errorf("indicators = %+v, want %+v", f.Indicators, want)
	}
	if f.Writes != 3 {
		t.Errorf("writes = %d, want 3", f.Writes)
	}
}

func TestFakeOutputsUnknownIndicator(t *testing.T) {
	f := NewFakeOutputs()
	if err := f.SetIndicator(logic.Indicator(9), true); err == nil {
		t.Error("expected error for unknown indicator")
	}
}

func TestFakeOutputsError(t *testing.T) {
	f := NewFakeOutputs()
	f.SetError = errors.New("simulated error")

	if err := f.SetChargeEnable(true); err == nil || err.Error() != "simulated error" {
		t.Errorf("unexpected error: %v", err)
	}
	if f.ChargeEnable {
		t.Error("failed write should not change the level")
	}
}

func TestFakeOutputsClose(t *testing.T) {
	f := NewFakeOutputs()
	f.SetChargeEnable(true)
	f.SetIndicator(logic.IndicatorFull, true)

	if f.Closed {
		t.Error("should not be closed initially")
	}
	if err := f.Close(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if !f.Closed {
		t.Error("should be closed after Close()")
	}
	if f.ChargeEnable || f.Indicators != (logic.IndicatorSet{}) {
		t.Error("close should drive every line low")
	}
}
