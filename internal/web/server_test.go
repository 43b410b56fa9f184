package web

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/cell-charger/internal/logic"
	"github.com/sweeney/cell-charger/internal/status"
)

func newTestServer(t *testing.T) (*httptest.Server, *status.Tracker) {
	t.Helper()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := status.Config{
		LowCharge:     553,
		HighCharge:    840,
		MaxSamples:    1,
		HeartbeatMs:   900000,
		Broker:        "tcp://192.168.1.200:1883",
		HTTPAddr:      ":80",
		ADCDriver:     "serial",
		OutputsDriver: "gpio",
	}
	tr := status.NewTracker(start, cfg)
	srv := New(":0", tr)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, tr
}

func charging(value int32) logic.Update {
	return logic.Update{
		Cycle:    logic.CycleStatus{Complete: true, A: logic.Raw(value)},
		Presence: logic.PresencePresent,
		Estimate: logic.EstimateStatus{Settled: true, Value: value},
		Decided:  true,
		Decision: logic.Decide(logic.Thresholds{Low: 553, High: 840}, value, logic.PresencePresent),
	}
}

func getJSON(t *testing.T, url string) status.StatusJSON {
	t.Helper()
	resp, err := http.Get(url + "/index.json")
	if err != nil {
		t.Fatalf("GET /index.json: %v", err)
	}
	defer resp.Body.Close()

	var sj status.StatusJSON
	if err := json.NewDecoder(resp.Body).Decode(&sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	return sj
}

func TestJSONEndpoint(t *testing.T) {
	ts, tr := newTestServer(t)
	tr.Record(charging(600))
	tr.SetCounters(5, 5, logic.StateCounts{Charging: 1}, 0)
	tr.SetMQTTConnected(true)

	resp, err := http.Get(ts.URL + "/index.json")
	if err != nil {
		t.Fatalf("GET /index.json: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want application/json", ct)
	}

	var sj status.StatusJSON
	if err := json.NewDecoder(resp.Body).Decode(&sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}

	if sj.Status.State != "CHARGING" {
		t.Errorf("State: got %q, want CHARGING", sj.Status.State)
	}
	if !sj.Status.ChargeEnable {
		t.Error("expected ChargeEnable=true")
	}
	if sj.Status.Value == nil || *sj.Status.Value != 600 {
		t.Errorf("Value: got %v, want 600", sj.Status.Value)
	}
	if !sj.Status.MQTT.Connected {
		t.Error("expected MQTT.Connected=true")
	}
	if sj.Status.MQTT.Broker != "tcp://192.168.1.200:1883" {
		t.Errorf("MQTT.Broker: got %q, want tcp://192.168.1.200:1883", sj.Status.MQTT.Broker)
	}
	if sj.Status.Cycles != 5 {
		t.Errorf("Cycles: got %d, want 5", sj.Status.Cycles)
	}
	if sj.Status.Counts.Charging != 1 {
		t.Errorf("Counts.Charging: got %d, want 1", sj.Status.Counts.Charging)
	}
	if sj.Status.Config.LowCharge != 553 {
		t.Errorf("Config.LowCharge: got %d, want 553", sj.Status.Config.LowCharge)
	}
}

func TestJSONBeforeFirstCycle(t *testing.T) {
	ts, _ := newTestServer(t)

	sj := getJSON(t, ts.URL)

	if sj.Status.State != "DISCONNECTED" {
		t.Errorf("State before first cycle: got %q, want DISCONNECTED", sj.Status.State)
	}
	if sj.Status.Presence != "UNKNOWN" {
		t.Errorf("Presence before first cycle: got %q, want UNKNOWN", sj.Status.Presence)
	}
	if sj.Status.Value != nil {
		t.Errorf("Value before first estimate: got %d, want omitted", *sj.Status.Value)
	}
}

func TestJSONNetworkInfo(t *testing.T) {
	ts, tr := newTestServer(t)
	tr.SetNetwork(&status.NetworkInfo{
		Type:   "wifi",
		IP:     "192.168.1.42",
		Status: "connected",
		SSID:   "MyNet",
	})

	sj := getJSON(t, ts.URL)

	if sj.Status.Network == nil {
		t.Fatal("expected Network in JSON")
	}
	if sj.Status.Network.IP != "192.168.1.42" {
		t.Errorf("Network.IP: got %q, want 192.168.1.42", sj.Status.Network.IP)
	}
}

func TestHTMLEndpointRoot(t *testing.T) {
	ts, tr := newTestServer(t)
	tr.Record(charging(900))

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	ct := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type: got %q, want text/html", ct)
	}

	body, _ := io.ReadAll(resp.Body)
	page := string(body)
	for _, want := range []string{`class="full">FULL`, "<td>900</td>", "low 553, high 840"} {
		if !strings.Contains(page, want) {
			t.Errorf("page missing %q", want)
		}
	}
}

func TestHTMLEndpointIndexHTML(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/index.html")
	if err != nil {
		t.Fatalf("GET /index.html: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "never") {
		t.Error("expected last change to read never before any transition")
	}
}

func TestNotFoundForUnknownPath(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/nonexistent")
	if err != nil {
		t.Fatalf("GET /nonexistent: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 404 {
		t.Errorf("status: got %d, want 404", resp.StatusCode)
	}
}

func TestStateChangesReflectedInResponse(t *testing.T) {
	ts, tr := newTestServer(t)

	tr.Record(charging(600))
	if sj := getJSON(t, ts.URL); sj.Status.State != "CHARGING" {
		t.Fatalf("State: got %q, want CHARGING", sj.Status.State)
	}

	tr.Record(charging(500))
	tr.SetMQTTConnected(true)

	sj := getJSON(t, ts.URL)
	if sj.Status.State != "PROTECT" {
		t.Errorf("State: got %q, want PROTECT", sj.Status.State)
	}
	if sj.Status.ChargeEnable {
		t.Error("charge-enable must be off in PROTECT")
	}
	if !sj.Status.Indicators.Low {
		t.Error("expected LOW indicator in PROTECT")
	}
	if !sj.Status.MQTT.Connected {
		t.Error("expected MQTT connected after update")
	}
}

func getCharge(t *testing.T, url string) (int, chargeJSON) {
	t.Helper()
	resp, err := http.Get(url + "/charge")
	if err != nil {
		t.Fatalf("GET /charge: %v", err)
	}
	defer resp.Body.Close()

	var cj chargeJSON
	if err := json.NewDecoder(resp.Body).Decode(&cj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	return resp.StatusCode, cj
}

func TestChargeEndpoint(t *testing.T) {
	ts, tr := newTestServer(t)

	code, cj := getCharge(t, ts.URL)
	if code != http.StatusServiceUnavailable {
		t.Errorf("before first estimate: got %d, want 503", code)
	}
	if cj.Value != nil || cj.Presence != "UNKNOWN" || cj.Error == "" {
		t.Errorf("before first estimate: %+v", cj)
	}

	tr.Record(charging(600))
	code, cj = getCharge(t, ts.URL)
	if code != http.StatusOK {
		t.Errorf("charging: got %d, want 200", code)
	}
	if cj.State != "CHARGING" || cj.Value == nil || *cj.Value != 600 || !cj.ChargeEnable || cj.Error != "" {
		t.Errorf("charging: %+v", cj)
	}

	tr.Record(logic.Update{
		Cycle:    logic.CycleStatus{Complete: true, B: 500},
		Presence: logic.PresenceAbsent,
		Decided:  true,
		Decision: logic.Decision{State: logic.StateDisconnected},
	})
	code, cj = getCharge(t, ts.URL)
	if code != http.StatusServiceUnavailable {
		t.Errorf("disconnected: got %d, want 503", code)
	}
	if cj.State != "DISCONNECTED" || cj.Presence != "ABSENT" || cj.Value != nil || cj.ChargeEnable {
		t.Errorf("disconnected: %+v", cj)
	}
}

func TestUptime(t *testing.T) {
	var sb strings.Builder
	snap := status.Snapshot{
		StartTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Now:       time.Date(2026, 1, 2, 1, 2, 3, 0, time.UTC),
	}
	if err := renderHTML(&sb, snap); err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(sb.String(), "1d 1h 2m 3s") {
		t.Error("expected formatted uptime 1d 1h 2m 3s")
	}
}
