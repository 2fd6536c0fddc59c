package report

import (
	"bytes"
	"html/template"

	"github.com/kestrelsec/walletscout/pkg/walletscout/types"
)

func init() {
	Register("html", func() Formatter { return &HTMLFormatter{} })
}

// htmlPage is the data passed to the HTML template.
type htmlPage struct {
	ScanID     string
	Timestamp  string
	TargetName string
	TargetPath string
	Duration   string

	TotalFilesSeen int64
	FilesScanned   int64
	FilesFound     int
	High, Medium   int
	Low            int

	Findings []htmlFinding
}

type htmlFinding struct {
	Path       string
	Category   string
	Confidence float64
	Tier       string
	Method     string
	Size       string
}

var htmlTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Wallet Scan Report {{.ScanID}}</title>
<style>
  body { font-family: -apple-system, "Segoe UI", sans-serif; margin: 2rem; color: #1d1d1f; }
  h1 { font-size: 1.4rem; }
  table { border-collapse: collapse; width: 100%; margin-top: 1rem; }
  th, td { text-align: left; padding: 0.4rem 0.7rem; border-bottom: 1px solid #ddd; font-size: 0.9rem; }
  th { background: #f5f5f7; }
  .tier-high { color: #b00020; font-weight: 600; }
  .tier-medium { color: #b36b00; }
  .tier-low { color: #555; }
  .summary span { margin-right: 1.5rem; }
  code { font-size: 0.85rem; }
</style>
</head>
<body>
<h1>Wallet Scan Report</h1>
<p class="summary">
  <span><strong>Target:</strong> {{.TargetName}} (<code>{{.TargetPath}}</code>)</span>
  <span><strong>Scanned:</strong> {{.Timestamp}}</span>
  <span><strong>Duration:</strong> {{.Duration}}</span>
</p>
<p class="summary">
  <span><strong>Files seen:</strong> {{.TotalFilesSeen}}</span>
  <span><strong>Files classified:</strong> {{.FilesScanned}}</span>
  <span><strong>Findings:</strong> {{.FilesFound}} ({{.High}} high, {{.Medium}} medium, {{.Low}} low)</span>
</p>
{{if .Findings}}
<table>
<tr><th>Path</th><th>Category</th><th>Confidence</th><th>Method</th><th>Size</th></tr>
{{range .Findings}}
<tr>
  <td><code>{{.Path}}</code></td>
  <td>{{.Category}}</td>
  <td class="tier-{{.Tier}}">{{printf "%.2f" .Confidence}} ({{.Tier}})</td>
  <td>{{.Method}}</td>
  <td>{{.Size}}</td>
</tr>
{{end}}
</table>
{{else}}
<p>No wallet material detected.</p>
{{end}}
</body>
</html>
`))

// HTMLFormatter renders a standalone HTML page.
type HTMLFormatter struct{}

func (f *HTMLFormatter) Ext() string { return "html" }

// Format writes the rendered report to the buffer.
func (f *HTMLFormatter) Format(w *bytes.Buffer, r *Result) error {
	high, medium, low := r.TierCounts()

	page := htmlPage{
		ScanID:         r.ScanID,
		Timestamp:      r.Timestamp.Format("2006-01-02 15:04:05 MST"),
		TargetName:     r.TargetName,
		TargetPath:     r.TargetPath,
		Duration:       formatDuration(r.Duration),
		TotalFilesSeen: r.TotalFilesSeen,
		FilesScanned:   r.FilesScanned,
		FilesFound:     len(r.Findings),
		High:           high,
		Medium:         medium,
		Low:            low,
		Findings:       make([]htmlFinding, len(r.Findings)),
	}

	for i, fd := range r.Findings {
		page.Findings[i] = htmlFinding{
			Path:       fd.Path,
			Category:   string(fd.Category),
			Confidence: fd.Confidence,
			Tier:       string(types.Tier(fd.Confidence)),
			Method:     fd.Method,
			Size:       formatSize(fd.SizeBytes),
		}
	}

	return htmlTemplate.Execute(w, page)
}
