package report

import (
	"html/template"
	"io"

	"xm2m/internal/repo"
)

var htmlTmpl = template.Must(template.New("report").Parse(`
{{- define "begin" -}}
<html>
 <head>
  <title>xm2m-server session test results</title>
 </head>
 <body>
  <h1>xm2m-server session test results</h1>
  <h2>Report run on {{.Run}}</h2>
  <p>Server version: {{.Version}}</p>
  <p>Server port: {{.Port}}</p>
  <table border="1" cellpadding="3" cellspacing="0">
  <tr><td>Transaction #</td><td>Transaction time</td><td>From IP address</td><td>From port</td><td>Inbound data</td><td>Reply data</td></tr>
{{ end -}}
{{- define "record" -}}
<tr><td>{{.Seq}}</td> <td>{{.Time}}</td> <td>{{.Addr}}</td> <td>{{.Port}}</td> <td>{{.Received}}</td> <td>{{.Sent}}</td></tr>
{{ end -}}
{{- define "end" -}}
  </table>
 </body>
</html>
{{ end -}}
`))

// HTML renders records as a single HTML table.  Payloads are escaped.
type HTML struct {
	w    io.Writer
	info Info
}

// NewHTML returns an HTML sink writing to w.
func NewHTML(w io.Writer, info Info) *HTML {
	return &HTML{w: w, info: info}
}

func (h *HTML) Begin() error {
	return htmlTmpl.ExecuteTemplate(h.w, "begin", map[string]interface{}{
		"Run":     h.info.now().Format(TimeLayout),
		"Version": h.info.Version,
		"Port":    h.info.TransactionPort,
	})
}

func (h *HTML) WriteRecord(rec repo.Record) error {
	return htmlTmpl.ExecuteTemplate(h.w, "record", rowOf(rec))
}

func (h *HTML) End() error {
	return htmlTmpl.ExecuteTemplate(h.w, "end", nil)
}

// row is the flattened, printable form of a record shared by the
// text-oriented sinks.
type row struct {
	Seq      uint32 `yaml:"transaction"`
	Time     string `yaml:"time"`
	Addr     string `yaml:"address"`
	Port     uint16 `yaml:"port"`
	Received string `yaml:"received"`
	Sent     string `yaml:"sent"`
}

func rowOf(rec repo.Record) row {
	return row{
		Seq:      rec.Seq,
		Time:     recordTime(rec.Start),
		Addr:     rec.Peer.Addr().String(),
		Port:     rec.Peer.Port(),
		Received: rec.Received.String(),
		Sent:     rec.Sent.String(),
	}
}
