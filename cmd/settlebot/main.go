package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mmynk/settlebot/internal/config"
	"github.com/mmynk/settlebot/pkg/logging"
)

// Version is set at build time with -ldflags "-X main.Version=...".
var Version = "dev"

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:          "settlebot",
		Short:        "settlebot - split shared purchases in a Telegram chat",
		Version:      Version,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")

	rootCmd.AddCommand(serveCmd(&configPath))
	rootCmd.AddCommand(migrateCmd(&configPath))

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the configuration and sets up logging from it.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	logging.SetupWithLevel(logging.ParseLevel(cfg.Log.Level))
	return cfg, nil
}
