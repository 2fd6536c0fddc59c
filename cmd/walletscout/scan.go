package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kestrelsec/walletscout/cmd/walletscout/tui"
	"github.com/kestrelsec/walletscout/pkg/walletscout/config"
	"github.com/kestrelsec/walletscout/pkg/walletscout/history"
	"github.com/kestrelsec/walletscout/pkg/walletscout/logging"
	"github.com/kestrelsec/walletscout/pkg/walletscout/session"
	"github.com/kestrelsec/walletscout/pkg/walletscout/types"
)

// runScan is the main scan command handler.
func runScan(_ *cobra.Command, args []string) error {
	scanPath := viper.GetString("scan_path")
	if len(args) > 0 {
		scanPath = args[0]
	}

	expandedPath, err := config.ExpandPath(scanPath)
	if err != nil {
		return fmt.Errorf("failed to expand path: %w", err)
	}
	absPath, err := filepath.Abs(expandedPath)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("path does not exist: %s", absPath)
		}
		return fmt.Errorf("cannot access path: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", absPath)
	}

	maxFileSize, err := types.ParseSize(viper.GetString("max_file_size"))
	if err != nil {
		return fmt.Errorf("invalid max file size %q: %w", viper.GetString("max_file_size"), err)
	}

	if err := initLogging(); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer logging.Close()

	store, err := history.Open(viper.GetString("history.dir"))
	if err != nil {
		return fmt.Errorf("failed to open scan history: %w", err)
	}
	defer store.Close()

	manager := session.NewManager(session.Options{
		Store:     store,
		Retention: viper.GetInt("history.retention"),
		Formats:   []string{viper.GetString("format")},
	})

	cfg := types.ScanConfig{
		Root:        absPath,
		MaxDepth:    viper.GetInt("max_depth"),
		MaxFileSize: maxFileSize,
		Workers:     viper.GetInt("workers"),
		Verbose:     getVerbose(),
	}

	id, err := manager.Start(cfg)
	if err != nil {
		return fmt.Errorf("failed to start scan: %w", err)
	}

	if viper.GetBool("no_interactive") {
		return runPlainScan(manager, store, id)
	}
	return runInteractiveScan(manager, store, id, absPath)
}

// runInteractiveScan drives the live progress display until the scan ends.
func runInteractiveScan(manager *session.Manager, store *history.Store, id, root string) error {
	model := tui.NewScanModel(root, manager.Status, manager.Stop)
	program := tea.NewProgram(model, tea.WithAltScreen())

	final, err := program.Run()
	if err != nil {
		// The scan keeps running headless if the terminal fails; fall
		// back to plain output.
		printError("progress display failed: %v", err)
		return runPlainScan(manager, store, id)
	}

	if m, ok := final.(tui.ScanModel); ok && m.Err() != nil {
		return m.Err()
	}
	return printSummary(manager, store, id)
}

// runPlainScan polls status and prints one line per tick.
func runPlainScan(manager *session.Manager, store *history.Store, id string) error {
	// Ctrl+C requests a cooperative stop rather than killing the process.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-sigCh:
			printInfo("stop requested, letting in-flight files finish...")
			if err := manager.Stop(); err != nil {
				return err
			}

		case <-ticker.C:
			st := manager.Status()
			if st.State == session.StateIdle {
				return printSummary(manager, store, id)
			}
			if st.Progress != nil && st.Phase == session.PhaseClassifying {
				printInfo("scanned %d/%d files, %d findings (%.1f%%)",
					st.Progress.FilesScanned, st.Progress.TotalFiles,
					st.Progress.FilesFound, st.Progress.Percent)
			} else {
				printInfo("collecting candidates...")
			}
		}
	}
}

// printSummary prints the terminal record for a finished scan.
func printSummary(manager *session.Manager, store *history.Store, id string) error {
	rec, err := store.Get(id)
	if err != nil {
		return fmt.Errorf("failed to load scan record: %w", err)
	}

	printInfo("")
	printInfo("Scan %s %s", rec.ID, rec.Status)
	printInfo("  target:   %s (%s)", rec.TargetPath, types.FormatSize(rec.TargetSize))
	printInfo("  files:    %d seen, %d findings", rec.TotalFilesSeen, rec.FilesFound)
	printInfo("  duration: %s", rec.Duration.Round(time.Millisecond))

	for _, finding := range manager.Results() {
		printInfo("  [%.2f] %-24s %s", finding.Confidence, finding.Category, finding.Path)
	}

	if len(rec.Reports) > 0 {
		dir, err := store.SubDir(rec.ID)
		if err == nil {
			for format, file := range rec.Reports {
				printInfo("  report (%s): %s", format, filepath.Join(dir, file))
			}
			if outDir := viper.GetString("output"); outDir != "" {
				if err := copyReports(dir, outDir, rec.Reports); err != nil {
					printError("failed to copy reports to %s: %v", outDir, err)
				} else {
					printInfo("  copied to: %s", outDir)
				}
			}
		}
	}
	return nil
}

// copyReports copies rendered report files into a user-chosen directory.
func copyReports(srcDir, dstDir string, reports map[string]string) error {
	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return err
	}
	for _, file := range reports {
		data, err := os.ReadFile(filepath.Join(srcDir, file))
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(dstDir, file), data, 0o644); err != nil {
			return err
		}
	}
	return nil
}
