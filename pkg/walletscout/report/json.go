package report

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/kestrelsec/walletscout/pkg/walletscout/types"
)

func init() {
	Register("json", func() Formatter { return &JSONFormatter{} })
}

// jsonReport is the full JSON report structure.
type jsonReport struct {
	Meta     jsonMeta      `json:"meta"`
	Summary  jsonSummary   `json:"summary"`
	Findings []jsonFinding `json:"findings"`
}

type jsonMeta struct {
	ScanID     string    `json:"scan_id"`
	Timestamp  time.Time `json:"timestamp"`
	TargetName string    `json:"target_name"`
	TargetPath string    `json:"target_path"`
	Duration   string    `json:"duration"`
}

type jsonSummary struct {
	TotalFilesSeen   int64 `json:"total_files_seen"`
	FilesScanned     int64 `json:"files_scanned"`
	FilesFound       int   `json:"files_found"`
	HighConfidence   int   `json:"high_confidence"`
	MediumConfidence int   `json:"medium_confidence"`
	LowConfidence    int   `json:"low_confidence"`
}

type jsonFinding struct {
	Path       string            `json:"path"`
	Category   string            `json:"category"`
	Confidence float64           `json:"confidence"`
	Tier       string            `json:"tier"`
	Method     string            `json:"method"`
	Size       int64             `json:"size"`
	SizeHuman  string            `json:"size_human"`
	Details    map[string]string `json:"details,omitempty"`
}

// JSONFormatter renders a single indented JSON document.
type JSONFormatter struct{}

func (f *JSONFormatter) Ext() string { return "json" }

// Format writes the rendered report to the buffer.
func (f *JSONFormatter) Format(w *bytes.Buffer, r *Result) error {
	high, medium, low := r.TierCounts()

	out := jsonReport{
		Meta: jsonMeta{
			ScanID:     r.ScanID,
			Timestamp:  r.Timestamp,
			TargetName: r.TargetName,
			TargetPath: r.TargetPath,
			Duration:   formatDuration(r.Duration),
		},
		Summary: jsonSummary{
			TotalFilesSeen:   r.TotalFilesSeen,
			FilesScanned:     r.FilesScanned,
			FilesFound:       len(r.Findings),
			HighConfidence:   high,
			MediumConfidence: medium,
			LowConfidence:    low,
		},
		Findings: make([]jsonFinding, len(r.Findings)),
	}

	for i, fd := range r.Findings {
		out.Findings[i] = jsonFinding{
			Path:       fd.Path,
			Category:   string(fd.Category),
			Confidence: fd.Confidence,
			Tier:       string(types.Tier(fd.Confidence)),
			Method:     fd.Method,
			Size:       fd.SizeBytes,
			SizeHuman:  formatSize(fd.SizeBytes),
			Details:    fd.Details,
		}
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}
