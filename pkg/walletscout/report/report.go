// Package report renders scan results as report artifacts in various
// formats (json, html, markdown).
//
// The package uses a registry pattern so formats can be selected at
// runtime:
//
//	formatter, err := report.Get("html")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	var buf bytes.Buffer
//	if err := formatter.Format(&buf, result); err != nil {
//	    log.Fatal(err)
//	}
package report

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/kestrelsec/walletscout/pkg/walletscout/types"
)

// Result contains the complete scan outcome for rendering.
type Result struct {
	// ScanID identifies the scan session.
	ScanID string `json:"scan_id"`

	// Timestamp is when the scan started.
	Timestamp time.Time `json:"timestamp"`

	// TargetName is the base name of the scanned volume or directory.
	TargetName string `json:"target_name"`

	// TargetPath is the root that was scanned.
	TargetPath string `json:"target_path"`

	// Duration is the total scan time.
	Duration time.Duration `json:"duration"`

	// TotalFilesSeen is every regular file the walk encountered.
	TotalFilesSeen int64 `json:"total_files_seen"`

	// FilesScanned is the number of candidate files classified.
	FilesScanned int64 `json:"files_scanned"`

	// Findings are the classified hits, strongest first.
	Findings []types.Finding `json:"findings"`
}

// TierCounts returns the number of findings per confidence tier.
func (r *Result) TierCounts() (high, medium, low int) {
	for _, f := range r.Findings {
		switch types.Tier(f.Confidence) {
		case types.TierHigh:
			high++
		case types.TierMedium:
			medium++
		default:
			low++
		}
	}
	return high, medium, low
}

// SortFindings orders findings by confidence descending, path ascending
// within a tie.
func (r *Result) SortFindings() {
	sort.SliceStable(r.Findings, func(i, j int) bool {
		if r.Findings[i].Confidence != r.Findings[j].Confidence {
			return r.Findings[i].Confidence > r.Findings[j].Confidence
		}
		return r.Findings[i].Path < r.Findings[j].Path
	})
}

// Formatter renders a Result into one output format.
type Formatter interface {
	// Format writes the rendered report to the buffer.
	Format(w *bytes.Buffer, r *Result) error

	// Ext returns the artifact file extension without the dot.
	Ext() string
}

// FormatterFactory is a function that creates a new Formatter instance.
type FormatterFactory func() Formatter

// Registry manages formatter registration and lookup.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]FormatterFactory
}

// NewRegistry creates a new formatter registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]FormatterFactory)}
}

// Register adds a formatter factory, replacing any existing one with the
// same name.
func (r *Registry) Register(name string, factory FormatterFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Get returns a new formatter instance by name.
func (r *Registry) Get(name string) (Formatter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown report format: %s", name)
	}
	return factory(), nil
}

// Available returns a sorted list of registered format names.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry is the global formatter registry.
var DefaultRegistry = NewRegistry()

// Register adds a formatter factory to the default registry.
func Register(name string, factory FormatterFactory) {
	DefaultRegistry.Register(name, factory)
}

// Get returns a new formatter instance from the default registry.
func Get(name string) (Formatter, error) {
	return DefaultRegistry.Get(name)
}

// Available returns all format names from the default registry.
func Available() []string {
	return DefaultRegistry.Available()
}

// WriteAll renders the result in each requested format and writes one
// artifact per format into dir. It returns format name to file name.
// "all" expands to every registered format.
func WriteAll(dir string, formats []string, r *Result) (map[string]string, error) {
	expanded := formats
	for _, f := range formats {
		if f == "all" {
			expanded = Available()
			break
		}
	}

	r.SortFindings()

	written := make(map[string]string, len(expanded))
	for _, name := range expanded {
		formatter, err := Get(name)
		if err != nil {
			return written, err
		}

		var buf bytes.Buffer
		if err := formatter.Format(&buf, r); err != nil {
			return written, fmt.Errorf("render %s report: %w", name, err)
		}

		file := "report." + formatter.Ext()
		if err := os.WriteFile(filepath.Join(dir, file), buf.Bytes(), 0o644); err != nil {
			return written, fmt.Errorf("write %s report: %w", name, err)
		}
		written[name] = file
	}
	return written, nil
}

// formatDuration renders a duration in a compact human form.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}

// formatSize renders a byte count in IEC units.
func formatSize(n int64) string {
	return types.FormatSize(n)
}
