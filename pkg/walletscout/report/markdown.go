package report

import (
	"bytes"
	"fmt"

	"github.com/kestrelsec/walletscout/pkg/walletscout/types"
)

func init() {
	Register("markdown", func() Formatter { return &MarkdownFormatter{} })
}

// MarkdownFormatter renders a GitHub-flavored Markdown report.
type MarkdownFormatter struct{}

func (f *MarkdownFormatter) Ext() string { return "md" }

// Format writes the rendered report to the buffer.
func (f *MarkdownFormatter) Format(w *bytes.Buffer, r *Result) error {
	high, medium, low := r.TierCounts()

	fmt.Fprintf(w, "# Wallet Scan Report\n\n")
	fmt.Fprintf(w, "- **Scan:** %s\n", r.ScanID)
	fmt.Fprintf(w, "- **Target:** %s (`%s`)\n", r.TargetName, r.TargetPath)
	fmt.Fprintf(w, "- **Scanned:** %s\n", r.Timestamp.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(w, "- **Duration:** %s\n", formatDuration(r.Duration))
	fmt.Fprintf(w, "- **Files seen:** %d, classified: %d\n", r.TotalFilesSeen, r.FilesScanned)
	fmt.Fprintf(w, "- **Findings:** %d (%d high, %d medium, %d low)\n\n", len(r.Findings), high, medium, low)

	if len(r.Findings) == 0 {
		fmt.Fprintln(w, "No wallet material detected.")
		return nil
	}

	fmt.Fprintln(w, "| Path | Category | Confidence | Method | Size |")
	fmt.Fprintln(w, "|------|----------|------------|--------|------|")
	for _, fd := range r.Findings {
		fmt.Fprintf(w, "| `%s` | %s | %.2f (%s) | %s | %s |\n",
			fd.Path, fd.Category, fd.Confidence, types.Tier(fd.Confidence), fd.Method, formatSize(fd.SizeBytes))
	}
	return nil
}
