// Package config provides configuration management for the walletscout
// scanner.
package config

// Default configuration values for walletscout.
const (
	// DefaultScanPath is the path scanned when none is specified.
	// External volumes are mounted here in the usual deployment.
	DefaultScanPath = "/mnt/volumes"

	// DefaultMaxDepth is how deep the collector descends below the root.
	DefaultMaxDepth = 20

	// DefaultMaxFileSize is the per-file scan ceiling ("100MiB").
	DefaultMaxFileSize = "100MiB"

	// DefaultWorkers is the number of classification workers.
	DefaultWorkers = 4

	// DefaultReportFormat is the report encoding rendered on completion.
	DefaultReportFormat = "html"

	// DefaultHistoryRetention is how many scan records are kept before
	// the oldest are evicted along with their report artifacts.
	DefaultHistoryRetention = 50

	// DefaultListenAddr is the HTTP control surface bind address.
	DefaultListenAddr = ":8799"
)
