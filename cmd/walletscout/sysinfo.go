package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kestrelsec/walletscout/pkg/walletscout/config"
	"github.com/kestrelsec/walletscout/pkg/walletscout/sysinfo"
)

var sysinfoCmd = &cobra.Command{
	Use:   "sysinfo",
	Short: "Show host and volume information",
	Long: `Display the host snapshot walletscout uses for scan tuning,
plus the volumes attached under the configured scan path.`,
	RunE: runSysinfo,
}

func init() {
	rootCmd.AddCommand(sysinfoCmd)
}

func runSysinfo(cmd *cobra.Command, args []string) error {
	base, err := config.ExpandPath(viper.GetString("scan_path"))
	if err != nil {
		return fmt.Errorf("invalid scan path: %w", err)
	}

	info, err := sysinfo.Collect(base)
	if err != nil {
		return fmt.Errorf("failed to collect system info: %w", err)
	}

	fmt.Println("\nSystem")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("Hostname:  %s\n", info.Hostname)
	fmt.Printf("Platform:  %s\n", info.Platform)
	fmt.Printf("CPUs:      %d\n", info.CPUs)
	fmt.Printf("Memory:    %s total, %s available (%.1f%% used)\n",
		humanize.IBytes(info.Memory.TotalBytes),
		humanize.IBytes(info.Memory.AvailableBytes),
		info.Memory.UsedPercent,
	)

	fmt.Printf("\nVolumes under %s\n", base)
	fmt.Println(strings.Repeat("-", 60))

	if len(info.Volumes) == 0 {
		fmt.Println("(none attached)")
		return nil
	}

	fmt.Printf("%-20s  %-10s  %-10s  %s\n", "NAME", "SIZE", "FREE", "FILESYSTEM")
	for _, vol := range info.Volumes {
		fs := vol.Filesystem
		if fs == "" {
			fs = "-"
		}
		fmt.Printf("%-20s  %-10s  %-10s  %s\n",
			truncateString(vol.Name, 20),
			humanize.IBytes(vol.TotalBytes),
			humanize.IBytes(vol.FreeBytes),
			fs,
		)
	}

	return nil
}
