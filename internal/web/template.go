package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/kepler-watch/internal/status"
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
	"onOff": func(b bool) string {
		if b {
			return "on"
		}
		return "off"
	},
	"bit": func(mask uint8, n int) bool {
		return mask&(1<<uint(n)) != 0
	},
	"tz": func(sec int16) string {
		// Seconds west of UTC.
		east := -int(sec)
		sign := "+"
		if east < 0 {
			sign, east = "-", -east
		}
		return fmt.Sprintf("UTC%s%02d:%02d", sign, east/3600, east%3600/60)
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Kepler Watch</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.alert { color: orange; font-weight: bold; }
.connected { color: green; }
.disconnected { color: red; }
img.panel { image-rendering: pixelated; border: 4px solid #222; background: #000; }
</style>
</head>
<body>
<h1>Kepler Watch</h1>

{{if .Frame}}<p><img class="panel" src="/display.png" alt="display" width="384" height="156"></p>{{end}}

<h2>Display</h2>
<table>
<tr><th>Panel</th><td class="{{onOff .Watch.DisplayOn}}">{{onOff .Watch.DisplayOn}}</td></tr>
<tr><th>Alert</th><td{{if ne .Watch.Alert "none"}} class="alert"{{end}}>{{.Watch.Alert}}{{if .Watch.Caller}} ({{.Watch.Caller}}){{end}}</td></tr>
<tr><th>Email</th><td>{{if bit .Watch.Bar 0}}yes{{else}}no{{end}}</td></tr>
<tr><th>Text</th><td>{{if bit .Watch.Bar 1}}yes{{else}}no{{end}}</td></tr>
<tr><th>Voicemail</th><td>{{if bit .Watch.Bar 2}}yes{{else}}no{{end}}</td></tr>
<tr><th>Missed call</th><td>{{if bit .Watch.Bar 3}}yes{{else}}no{{end}}</td></tr>
</table>

<h2>Clock</h2>
<table>
<tr><th>Local time</th><td>{{.Watch.Local.Format "2006-01-02 15:04:05"}}</td></tr>
<tr><th>Epoch</th><td>{{.Watch.Epoch}}</td></tr>
<tr><th>Timezone</th><td>{{tz .Watch.TimeZone}}</td></tr>
<tr><th>Hour mode</th><td>{{.Watch.HourMode}}</td></tr>
<tr><th>DST</th><td>{{if .Watch.DST}}yes{{else}}no{{end}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>BLE</th><td class="{{if .BLEConnected}}connected{{else}}disconnected{{end}}">{{if .BLEConnected}}connected{{if .BLEPeer}} ({{.BLEPeer}}){{end}}{{else}}disconnected{{end}}</td></tr>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>Event Counts</h2>
<table>
<tr><th>Writes</th><td>{{.Counts.CharWrites}}</td></tr>
<tr><th>Button 0</th><td>{{index .Counts.ButtonReleases 0}}</td></tr>
<tr><th>Button 1</th><td>{{index .Counts.ButtonReleases 1}}</td></tr>
<tr><th>Alerts shown</th><td>{{.Counts.AlertsShown}}</td></tr>
<tr><th>Alerts timed out</th><td>{{.Counts.AlertsTimedOut}}</td></tr>
<tr><th>Alerts dismissed</th><td>{{.Counts.AlertsOverride}}</td></tr>
<tr><th>Dropped</th><td>{{.Counts.RouterDropped}} router, {{.Counts.ClockDropped}} clock, {{.Counts.ButtonDropped}} button</td></tr>
</table>

{{if .Recent}}<h2>Recent</h2>
<table>
{{range .Recent}}<tr><th>{{.Timestamp.UTC.Format "15:04:05"}}</th><td>{{.Type}}{{if .Detail}} {{.Detail}}{{end}}{{if .Value}} {{.Value}}{{end}}</td></tr>
{{end}}</table>{{end}}

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Debounce</th><td>{{.Config.DebounceMs}}ms</td></tr>
<tr><th>Idle timeout</th><td>{{.Config.IdleTimeoutMs}}ms</td></tr>
<tr><th>Alert timeout</th><td>{{.Config.AlertTimeoutMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
{{if .Config.Simulated}}<tr><th>Hardware</th><td>simulated</td></tr>{{end}}
</table>

<p><a href="/index.json">JSON</a>{{if .Frame}} | <a href="/display.png?scale=8">Display</a>{{end}} | <a href="/metrics">Metrics</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot, frame bool) {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
		Frame  bool
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
		Frame:    frame,
	}
	indexTmpl.Execute(w, data)
}
