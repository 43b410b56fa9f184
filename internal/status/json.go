package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string         `json:"event,omitempty"`
	Reason        string         `json:"reason,omitempty"`
	State         string         `json:"state"`
	ChargeEnable  bool           `json:"charge_enable"`
	Presence      string         `json:"presence"`
	Value         *int32         `json:"value,omitempty"`
	Indicators    IndicatorsJSON `json:"indicators"`
	Estimator     EstimatorJSON  `json:"estimator"`
	Cycles        uint64         `json:"cycles"`
	Settles       uint64         `json:"settles"`
	UptimeSeconds int64          `json:"uptime_seconds"`
	StartTime     string         `json:"start_time"`
	Timestamp     string         `json:"timestamp"`
	LastChange    string         `json:"last_change,omitempty"`
	MQTT          MQTTStatus     `json:"mqtt"`
	Counts        CountsJSON     `json:"state_counts"`
	Network       *NetworkJSON   `json:"network,omitempty"`
	Config        ConfigJSON     `json:"config"`
}

// IndicatorsJSON is the JSON representation of the indicator outputs.
type IndicatorsJSON struct {
	Low      bool `json:"low"`
	Full     bool `json:"full"`
	Charging bool `json:"charging"`
	Presence bool `json:"presence"`
}

// EstimatorJSON reports how far the averaging window has filled.
type EstimatorJSON struct {
	Window int `json:"window"`
	Filled int `json:"filled"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of state transition counts.
type CountsJSON struct {
	Disconnected int `json:"disconnected"`
	Charging     int `json:"charging"`
	Full         int `json:"full"`
	Protect      int `json:"protect"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	LowCharge     int32  `json:"low_charge"`
	HighCharge    int32  `json:"high_charge"`
	MaxSamples    int    `json:"max_samples"`
	HeartbeatMs   int64  `json:"heartbeat_ms"`
	Broker        string `json:"broker"`
	HTTPAddr      string `json:"http_addr"`
	ADCDriver     string `json:"adc_driver"`
	OutputsDriver string `json:"outputs_driver"`
}

func buildInner(snap Snapshot) StatusInner {
	state := string(snap.State)
	if state == "" {
		state = "UNKNOWN"
	}
	presence := string(snap.Presence)
	if presence == "" {
		presence = "UNKNOWN"
	}

	inner := StatusInner{
		State:        state,
		ChargeEnable: snap.ChargeEnable,
		Presence:     presence,
		Indicators: IndicatorsJSON{
			Low:      snap.Indicators.Low,
			Full:     snap.Indicators.Full,
			Charging: snap.Indicators.Charging,
			Presence: snap.Indicators.Presence,
		},
		Estimator:     EstimatorJSON{Window: snap.WindowSize, Filled: snap.WindowFill},
		Cycles:        snap.Cycles,
		Settles:       snap.Settles,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Disconnected: snap.Counts.Disconnected,
			Charging:     snap.Counts.Charging,
			Full:         snap.Counts.Full,
			Protect:      snap.Counts.Protect,
		},
		Config: ConfigJSON{
			LowCharge:     snap.Config.LowCharge,
			HighCharge:    snap.Config.HighCharge,
			MaxSamples:    snap.Config.MaxSamples,
			HeartbeatMs:   snap.Config.HeartbeatMs,
			Broker:        snap.Config.Broker,
			HTTPAddr:      snap.Config.HTTPAddr,
			ADCDriver:     snap.Config.ADCDriver,
			OutputsDriver: snap.Config.OutputsDriver,
		},
	}
	if snap.HasValue {
		v := snap.Value
		inner.Value = &v
	}
	if !snap.LastChange.IsZero() {
		inner.LastChange = snap.LastChange.UTC().Format(time.RFC3339)
	}
	return inner
}

func buildNetwork(snap Snapshot, inner *StatusInner) {
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	buildNetwork(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
