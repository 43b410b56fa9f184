// Package status provides a thread-safe status tracker for the cell-charger daemon.
// The control loop writes it; HTTP handlers and system events read snapshots.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/cell-charger/internal/logic"
)

// NetworkInfo contains network state. This is a local copy to avoid
// importing internal/mqtt from status.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	LowCharge     int32
	HighCharge    int32
	MaxSamples    int
	HeartbeatMs   int64
	Broker        string
	HTTPAddr      string
	ADCDriver     string
	OutputsDriver string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	State        logic.ChargeState
	ChargeEnable bool
	Indicators   logic.IndicatorSet
	Presence     logic.Presence // empty until the first complete cycle
	Value        int32          // last settled estimate
	HasValue     bool
	LastChange   time.Time // zero until the first transition

	Cycles        uint64
	Settles       uint64
	Counts        logic.StateCounts
	WindowFill    int
	WindowSize    int
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker in the Disconnected state.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			State:      logic.StateDisconnected,
			WindowSize: cfg.MaxSamples,
			StartTime:  startTime,
			Config:     cfg,
		},
	}
}

// Record folds the result of one conversion into the snapshot.
// Called from runLoop for every conversion.
func (t *Tracker) Record(u logic.Update) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if u.Cycle.Complete {
		t.snap.Presence = u.Presence
		if u.Presence == logic.PresenceAbsent {
			// No estimate is valid without a source.
			t.snap.Value = 0
			t.snap.HasValue = false
		}
	}
	if u.Estimate.Settled {
		t.snap.Value = u.Estimate.Value
		t.snap.HasValue = true
	}
	if u.Decided {
		t.setDecision(u.Decision)
	}
	if u.Event != nil {
		t.snap.LastChange = u.Event.Timestamp
	}
}

// SetDecision records outputs applied outside a conversion (start, shutdown).
func (t *Tracker) SetDecision(d logic.Decision) {
	t.mu.Lock()
	t.setDecision(d)
	t.mu.Unlock()
}

func (t *Tracker) setDecision(d logic.Decision) {
	t.snap.State = d.State
	t.snap.ChargeEnable = d.ChargeEnable
	t.snap.Indicators = d.Indicators
}

// SetCounters sets the cycle, settle and transition counters and the
// averaging window fill level.
func (t *Tracker) SetCounters(cycles, settles uint64, counts logic.StateCounts, windowFill int) {
	t.mu.Lock()
	t.snap.Cycles = cycles
	t.snap.Settles = settles
	t.snap.Counts = counts
	t.snap.WindowFill = windowFill
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
