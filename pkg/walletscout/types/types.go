// Package types provides the core data types for the walletscout scanner.
// It includes the finding model, collection statistics, scan configuration,
// durable scan records, and utility functions for parsing and formatting
// file sizes.
package types

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Size constants for binary (IEC) units.
const (
	KiB int64 = 1024
	MiB int64 = 1024 * KiB
	GiB int64 = 1024 * MiB
	TiB int64 = 1024 * GiB
)

// Category identifies what kind of crypto-related item a finding represents.
// The set of values is closed; detectors only ever produce categories from
// the tables in the detect package.
type Category = string

// Well-known categories produced by the detectors.
const (
	CategoryBitcoinCoreWallet  Category = "bitcoin_core_wallet"
	CategoryElectrumWallet     Category = "electrum_wallet"
	CategoryEthereumWallet     Category = "ethereum_wallet"
	CategoryLitecoinWallet     Category = "litecoin_wallet"
	CategoryEthereumKeystore   Category = "ethereum_keystore"
	CategoryMultibitWallet     Category = "multibit_wallet"
	CategoryExodusWallet       Category = "exodus_wallet"
	CategoryBitcoinPrivateKey  Category = "bitcoin_private_key"
	CategoryEthereumPrivateKey Category = "ethereum_private_key"
	CategoryGenericPrivateKey  Category = "generic_private_key"
	CategoryBIP39SeedPhrase    Category = "bip39_seed_phrase"
)

// Finding represents one detected crypto-related item. A Finding is
// immutable once created and owned exclusively by the session that
// produced it.
type Finding struct {
	// Path is the absolute path to the file.
	Path string `json:"path"`

	// Category is the kind of item detected (e.g. bitcoin_core_wallet).
	Category Category `json:"category"`

	// Confidence is an ordinal heuristic score in [0,1] fixed per
	// detection rule. It is not a calibrated probability.
	Confidence float64 `json:"confidence"`

	// Method names the detector rule that fired.
	Method string `json:"method"`

	// Details carries rule-specific metadata such as the matched
	// pattern, wallet family, or word count.
	Details map[string]string `json:"details,omitempty"`

	// SizeBytes is the size of the file at detection time.
	SizeBytes int64 `json:"size_bytes"`

	// DiscoveredAt is when the detector produced this finding.
	DiscoveredAt time.Time `json:"discovered_at"`
}

// Confidence tiers used to group findings in reports.
const (
	TierHigh   = "high"
	TierMedium = "medium"
	TierLow    = "low"
)

// Tier buckets a confidence score the way reports group findings:
// TierHigh for >= 0.7, TierMedium for >= 0.5, TierLow below that.
func Tier(confidence float64) string {
	switch {
	case confidence >= 0.7:
		return TierHigh
	case confidence >= 0.5:
		return TierMedium
	default:
		return TierLow
	}
}

// ExtStat aggregates count and byte totals for one file extension.
type ExtStat struct {
	Count int64 `json:"count"`
	Bytes int64 `json:"bytes"`
}

// LargestFile tracks the single biggest file seen during collection.
type LargestFile struct {
	Size int64  `json:"size"`
	Path string `json:"path"`
}

// CollectionStats aggregates what one collection walk saw. It is owned by
// one collector for the lifetime of one walk; callers receive a snapshot.
type CollectionStats struct {
	// TotalFiles is the number of regular, non-symlink files seen.
	TotalFiles int64 `json:"total_files"`

	// TotalDirs is the number of directories descended into below the root.
	TotalDirs int64 `json:"total_dirs"`

	// TotalBytes is the byte total of all files seen.
	TotalBytes int64 `json:"total_bytes"`

	// Extensions maps lower-cased extension (or "no_extension") to totals.
	Extensions map[string]ExtStat `json:"extensions"`

	// Largest is the biggest single file seen.
	Largest LargestFile `json:"largest_file"`

	// MaxDepth is the deepest directory level reached, root being 0.
	MaxDepth int `json:"max_depth"`

	// TextFiles and BinaryFiles count candidates bucketed by extension.
	TextFiles   int64 `json:"text_files"`
	BinaryFiles int64 `json:"binary_files"`

	// CryptoFlagged counts files whose extension is in the
	// crypto-specific extension set, candidates or not.
	CryptoFlagged int64 `json:"crypto_flagged"`
}

// Clone returns a deep copy safe to hand to callers while the walk
// continues mutating the original.
func (s *CollectionStats) Clone() CollectionStats {
	out := *s
	out.Extensions = make(map[string]ExtStat, len(s.Extensions))
	for k, v := range s.Extensions {
		out.Extensions[k] = v
	}
	return out
}

// Progress is a point-in-time snapshot of a running scan. Derived fields
// (percent, throughput, ETA) are computed at snapshot time.
type Progress struct {
	// FilesScanned is the number of classification tasks completed.
	FilesScanned int64 `json:"files_scanned"`

	// FilesFound is the number of completed tasks that yielded a finding.
	FilesFound int64 `json:"files_found"`

	// TotalFiles is the number of candidate files queued for the scan.
	TotalFiles int64 `json:"total_files"`

	// EstimatedTotalFiles is a display heuristic inflated during
	// collection. Advisory only; nothing may depend on it for
	// correctness.
	EstimatedTotalFiles int64 `json:"estimated_total_files"`

	// CurrentPath is the most recently dispatched file.
	CurrentPath string `json:"current_path"`

	// Percent is FilesScanned/TotalFiles * 100, or 0 with no total.
	Percent float64 `json:"percent"`

	// Elapsed is the time since the scan phase started.
	Elapsed time.Duration `json:"elapsed"`

	// FilesPerSecond is the scan throughput so far.
	FilesPerSecond float64 `json:"files_per_second"`

	// ETA is the estimated time remaining, zero when throughput is zero.
	ETA time.Duration `json:"eta"`
}

// ScanConfig configures one scan session.
type ScanConfig struct {
	// Root is the directory tree to scan.
	Root string `json:"root" mapstructure:"root"`

	// MaxDepth limits how deep the collector descends below Root.
	MaxDepth int `json:"max_depth" mapstructure:"max_depth"`

	// MaxFileSize is the per-file size ceiling in bytes; larger files
	// are counted in statistics but never classified.
	MaxFileSize int64 `json:"max_file_size" mapstructure:"max_file_size"`

	// Workers is the number of concurrent classification workers.
	Workers int `json:"workers" mapstructure:"workers"`

	// Formats lists the report encodings to render on completion.
	Formats []string `json:"formats" mapstructure:"formats"`

	// Verbose surfaces per-file skip errors as informational output.
	Verbose bool `json:"verbose" mapstructure:"verbose"`
}

// RecordStatus is the terminal-or-running status of a durable scan record.
// Status is monotone: running moves to exactly one of the terminal values
// and never reverts.
type RecordStatus string

const (
	StatusRunning   RecordStatus = "running"
	StatusCompleted RecordStatus = "completed"
	StatusStopped   RecordStatus = "stopped"
	StatusFailed    RecordStatus = "failed"
)

// Terminal reports whether the status is one of the final states.
func (s RecordStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusStopped || s == StatusFailed
}

// ScanRecord is the durable, append-only history entry derived from a scan
// session. It is written with status running when the session starts and
// rewritten once when the session reaches a terminal state.
type ScanRecord struct {
	ID             string            `json:"id"`
	Timestamp      time.Time         `json:"timestamp"`
	TargetName     string            `json:"target_name"`
	TargetPath     string            `json:"target_path"`
	TargetSize     int64             `json:"target_size"`
	FilesFound     int64             `json:"files_found"`
	TotalFilesSeen int64             `json:"total_files_seen"`
	Duration       time.Duration     `json:"duration"`
	Reports        map[string]string `json:"reports,omitempty"`
	Status         RecordStatus      `json:"status"`
}

// sizePattern matches size strings like "100M", "2G", "500K", "1.5GiB".
var sizePattern = regexp.MustCompile(`(?i)^\s*([0-9]+(?:\.[0-9]+)?)\s*([KMGT]?(?:i?B)?)\s*$`)

// ErrInvalidSize indicates that the size string could not be parsed.
var ErrInvalidSize = errors.New("invalid size format")

// ErrNegativeSize indicates that a negative size value was provided.
var ErrNegativeSize = errors.New("size cannot be negative")

// ParseSize parses a human-readable size string and returns the size in
// bytes. It accepts plain byte counts ("1024"), and K/M/G/T suffixes with
// optional B/iB ("100K", "50MiB", "2GB"). Decimal values are truncated to
// the nearest byte.
func ParseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty string", ErrInvalidSize)
	}

	if strings.HasPrefix(s, "-") {
		return 0, ErrNegativeSize
	}

	matches := sizePattern.FindStringSubmatch(s)
	if matches == nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSize, s)
	}

	value, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSize, s)
	}

	suffix := strings.ToUpper(matches[2])
	suffix = strings.TrimSuffix(suffix, "IB")
	suffix = strings.TrimSuffix(suffix, "B")

	var multiplier int64
	switch suffix {
	case "":
		multiplier = 1
	case "K":
		multiplier = KiB
	case "M":
		multiplier = MiB
	case "G":
		multiplier = GiB
	case "T":
		multiplier = TiB
	default:
		return 0, fmt.Errorf("%w: unknown suffix %q", ErrInvalidSize, suffix)
	}

	return int64(value * float64(multiplier)), nil
}

// FormatSize converts a size in bytes to a human-readable string using
// binary (IEC) units. Negative sizes come from failed stats and render
// as "unknown" rather than wrapping around.
func FormatSize(bytes int64) string {
	if bytes < 0 {
		return "unknown"
	}
	return humanize.IBytes(uint64(bytes))
}
