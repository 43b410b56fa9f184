package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/cell-charger/internal/logic"
	"github.com/sweeney/cell-charger/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"orUnknown": func(s string) string {
		if s == "" {
			return "UNKNOWN"
		}
		return s
	},
	"stateClass": func(s logic.ChargeState) string {
		switch s {
		case logic.StateCharging:
			return "charging"
		case logic.StateFull:
			return "full"
		case logic.StateProtect:
			return "protect"
		}
		return "off"
	},
	"onOff": func(on bool) string {
		if on {
			return "on"
		}
		return "off"
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Cell Charger</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on, .charging { color: green; font-weight: bold; }
.full { color: blue; font-weight: bold; }
.protect { color: red; font-weight: bold; }
.off { color: #888; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Cell Charger</h1>

<h2>State</h2>
<table>
<tr><th>State</th><td id="state" class="{{stateClass .State}}">{{orUnknown (printf "%s" .State)}}</td></tr>
<tr><th>Charge enable</th><td class="{{onOff .ChargeEnable}}">{{onOff .ChargeEnable}}</td></tr>
<tr><th>Supply</th><td>{{orUnknown (printf "%s" .Presence)}}</td></tr>
<tr><th>Cell value</th><td>{{if .HasValue}}{{.Value}}{{else}}-{{end}}</td></tr>
<tr><th>Window</th><td>{{.WindowFill}}/{{.WindowSize}}</td></tr>
</table>

<h2>Indicators</h2>
<table>
<tr><th>Low</th><td class="{{onOff .Indicators.Low}}">{{onOff .Indicators.Low}}</td></tr>
<tr><th>Full</th><td class="{{onOff .Indicators.Full}}">{{onOff .Indicators.Full}}</td></tr>
<tr><th>Charging</th><td class="{{onOff .Indicators.Charging}}">{{onOff .Indicators.Charging}}</td></tr>
<tr><th>Presence</th><td class="{{onOff .Indicators.Presence}}">{{onOff .Indicators.Presence}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{if .Config.Broker}}{{.Config.Broker}}{{else}}disabled{{end}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>Transitions</h2>
<table>
<tr><th>Disconnected</th><td>{{.Counts.Disconnected}}</td></tr>
<tr><th>Charging</th><td>{{.Counts.Charging}}</td></tr>
<tr><th>Full</th><td>{{.Counts.Full}}</td></tr>
<tr><th>Protect</th><td>{{.Counts.Protect}}</td></tr>
<tr><th>Last change</th><td>{{if .LastChange.IsZero}}never{{else}}{{.LastChange.UTC.Format "2006-01-02T15:04:05Z"}}{{end}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Cycles</th><td>{{.Cycles}}</td></tr>
<tr><th>Settled estimates</th><td>{{.Settles}}</td></tr>
<tr><th>Thresholds</th><td>low {{.Config.LowCharge}}, high {{.Config.HighCharge}}</td></tr>
<tr><th>Converter</th><td>{{.Config.ADCDriver}}</td></tr>
<tr><th>Outputs</th><td>{{.Config.OutputsDriver}}</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> · <a href="/charge">charge</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) error {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	return indexTmpl.Execute(w, data)
}
