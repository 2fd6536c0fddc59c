package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kestrelsec/walletscout/pkg/walletscout/config"
	"github.com/kestrelsec/walletscout/pkg/walletscout/logging"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "walletscout [path]",
		Short: "Scan disks for cryptocurrency wallet files and key material",
		Long: `Walletscout walks a disk or directory tree looking for cryptocurrency
wallets, keystores, private keys and seed phrases, and writes a report of
everything it finds.

By default, walletscout scans with a live progress display. Use
--no-interactive for plain text output, or 'walletscout serve' to run the
HTTP control surface instead.

Examples:
  walletscout /mnt/volumes/usb-drive   # Scan an attached volume
  walletscout -w 8 ~/backups           # Scan with 8 workers
  walletscout -f markdown /data        # Render a markdown report
  walletscout serve                    # Run the HTTP API
  walletscout history                  # View past scans
  walletscout sysinfo                  # Show host and volume info`,
		Args: cobra.MaximumNArgs(1),
		RunE: runScan,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.config/walletscout/config.yaml)")
	rootCmd.PersistentFlags().IntP("max-depth", "d", 0, "maximum directory depth (0=default)")
	rootCmd.PersistentFlags().String("max-file-size", "", "per-file size ceiling (e.g. 100M, 1G)")
	rootCmd.PersistentFlags().IntP("workers", "w", 0, "override worker count (0=auto)")
	rootCmd.PersistentFlags().StringP("format", "f", "", "report format: json, html, markdown, all")
	rootCmd.PersistentFlags().StringP("output", "o", "", "also write reports to this directory")
	rootCmd.PersistentFlags().BoolP("no-interactive", "n", false, "disable live progress display")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "debug output")

	_ = viper.BindPFlag("max_depth", rootCmd.PersistentFlags().Lookup("max-depth"))
	_ = viper.BindPFlag("max_file_size", rootCmd.PersistentFlags().Lookup("max-file-size"))
	_ = viper.BindPFlag("workers", rootCmd.PersistentFlags().Lookup("workers"))
	_ = viper.BindPFlag("format", rootCmd.PersistentFlags().Lookup("format"))
	_ = viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output"))
	_ = viper.BindPFlag("no_interactive", rootCmd.PersistentFlags().Lookup("no-interactive"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// initConfig reads in config file and environment variables.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")

		if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
			viper.AddConfigPath(filepath.Join(xdgConfigHome, "walletscout"))
		}

		homeDir, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(homeDir, ".config", "walletscout"))
		}
	}

	viper.SetEnvPrefix("WALLETSCOUT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	config.SetDefaults(viper.GetViper())
	viper.SetDefault("history.dir", config.HistoryDir())

	_ = viper.ReadInConfig()
}

// initLogging configures the logging subsystem from resolved settings.
// Console output stays off unless verbose is set, so the progress display
// owns the terminal.
func initLogging() error {
	console := viper.GetString("logging.console_level")
	if getVerbose() {
		console = "debug"
	}
	return logging.Init(logging.Config{
		Level:        viper.GetString("logging.level"),
		Path:         viper.GetString("logging.path"),
		ConsoleLevel: console,
	})
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// getVerbose returns true if verbose mode is enabled.
func getVerbose() bool {
	return viper.GetBool("verbose")
}

// printInfo prints a message to stdout.
func printInfo(format string, args ...interface{}) {
	fmt.Printf(format+"\n", args...)
}

// printError prints an error message to stderr.
func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}
