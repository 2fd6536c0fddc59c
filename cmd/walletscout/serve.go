package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kestrelsec/walletscout/pkg/walletscout/api"
	"github.com/kestrelsec/walletscout/pkg/walletscout/history"
	"github.com/kestrelsec/walletscout/pkg/walletscout/logging"
	"github.com/kestrelsec/walletscout/pkg/walletscout/session"
	"github.com/kestrelsec/walletscout/pkg/walletscout/types"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP control surface",
	Long: `Run the walletscout HTTP API. Scans are started and stopped over
HTTP while the server owns the single scan session.

The listen address comes from server.listen in the config file, the
WALLETSCOUT_SERVER_LISTEN environment variable, or the --listen flag.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringP("listen", "l", "", "listen address (e.g. :8799)")
	_ = viper.BindPFlag("server.listen", serveCmd.Flags().Lookup("listen"))

	rootCmd.AddCommand(serveCmd)
}

// runServe starts the HTTP server and blocks until interrupted.
func runServe(_ *cobra.Command, _ []string) error {
	if err := initLogging(); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer logging.Close()

	maxFileSize, err := types.ParseSize(viper.GetString("max_file_size"))
	if err != nil {
		return fmt.Errorf("invalid max file size: %w", err)
	}

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

	server := api.New(api.Options{
		Listen:     viper.GetString("server.listen"),
		Manager:    manager,
		Store:      store,
		VolumeBase: viper.GetString("scan_path"),
		Defaults: types.ScanConfig{
			Root:        viper.GetString("scan_path"),
			MaxDepth:    viper.GetInt("max_depth"),
			MaxFileSize: maxFileSize,
			Workers:     viper.GetInt("workers"),
		},
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	printInfo("walletscout API listening on %s", viper.GetString("server.listen"))
	return server.Serve(ctx)
}
