package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kestrelsec/walletscout/pkg/walletscout/history"
	"github.com/kestrelsec/walletscout/pkg/walletscout/types"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View scan history",
	Long: `View the history of completed scans.

Each scan is recorded with its target, file counts and generated
report locations. Records are kept up to the configured retention.`,
	RunE: runHistory,
}

var historyShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show details of a specific scan",
	Long:  `Display detailed information about a specific scan by its ID.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Trim history to the retention limit",
	Long:  `Remove scan records beyond the configured retention count.`,
	RunE:  runHistoryClean,
}

var historyLimit int

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 20, "maximum number of scans to show")

	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyCleanCmd)
	rootCmd.AddCommand(historyCmd)
}

// runHistory lists recent scans, newest first.
func runHistory(cmd *cobra.Command, args []string) error {
	store, err := history.Open(viper.GetString("history.dir"))
	if err != nil {
		return fmt.Errorf("failed to open scan history: %w", err)
	}
	defer store.Close()

	records, err := store.List()
	if err != nil {
		return fmt.Errorf("failed to list history: %w", err)
	}

	if len(records) == 0 {
		printInfo("No scans recorded yet.")
		printInfo("Run 'walletscout [path]' to scan a volume.")
		return nil
	}

	shown := records
	if historyLimit > 0 && len(shown) > historyLimit {
		shown = shown[:historyLimit]
	}

	fmt.Printf("\n%-40s  %-16s  %-10s  %-8s  %s\n", "ID", "TARGET", "STATUS", "FOUND", "WHEN")
	fmt.Println(strings.Repeat("-", 96))

	for _, rec := range shown {
		fmt.Printf("%-40s  %-16s  %-10s  %-8d  %s\n",
			truncateString(rec.ID, 40),
			truncateString(rec.TargetName, 16),
			rec.Status,
			rec.FilesFound,
			rec.Timestamp.Format("2006-01-02 15:04"),
		)
	}

	fmt.Println(strings.Repeat("-", 96))
	fmt.Printf("\nShowing %d of %d scans. Use --limit to see more.\n", len(shown), len(records))
	fmt.Println("Use 'walletscout history show <id>' for details on a specific scan.")

	return nil
}

// runHistoryShow displays details of a single scan record.
func runHistoryShow(cmd *cobra.Command, args []string) error {
	id := args[0]

	store, err := history.Open(viper.GetString("history.dir"))
	if err != nil {
		return fmt.Errorf("failed to open scan history: %w", err)
	}
	defer store.Close()

	rec, err := store.Get(id)
	if err != nil {
		return fmt.Errorf("failed to get scan record: %w", err)
	}

	fmt.Println("\nScan Details")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("ID:          %s\n", rec.ID)
	fmt.Printf("Timestamp:   %s\n", rec.Timestamp.Format("2006-01-02 15:04:05 MST"))
	fmt.Printf("Target:      %s (%s)\n", rec.TargetName, rec.TargetPath)
	fmt.Printf("Target Size: %s\n", types.FormatSize(rec.TargetSize))
	fmt.Printf("Status:      %s\n", rec.Status)
	fmt.Printf("Duration:    %s\n", rec.Duration.Round(10*time.Millisecond))
	fmt.Printf("Files Seen:  %d\n", rec.TotalFilesSeen)
	fmt.Printf("Found:       %d\n", rec.FilesFound)

	if len(rec.Reports) > 0 {
		dir, dirErr := store.SubDir(rec.ID)
		fmt.Println("\nReports:")
		fmt.Println(strings.Repeat("-", 60))
		for format, filename := range rec.Reports {
			if dirErr == nil {
				fmt.Printf("%-10s  %s/%s\n", format, dir, filename)
			} else {
				fmt.Printf("%-10s  %s\n", format, filename)
			}
		}
	}

	return nil
}

// runHistoryClean trims stored scans down to the retention count.
func runHistoryClean(cmd *cobra.Command, args []string) error {
	store, err := history.Open(viper.GetString("history.dir"))
	if err != nil {
		return fmt.Errorf("failed to open scan history: %w", err)
	}
	defer store.Close()

	retention := viper.GetInt("history.retention")
	printInfo("Trimming history to the newest %d scans...", retention)

	removed, err := store.Trim(retention)
	if err != nil {
		return fmt.Errorf("failed to trim history: %w", err)
	}

	printInfo("Removed %d scan record(s).", removed)
	return nil
}

// truncateString truncates a string to maxLen, adding "..." if truncated.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
