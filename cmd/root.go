package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/tariff-radar/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "tariff-radar",
	Short: "US-China hardwood tariff intelligence aggregator",
	Long:  "Fetches trade statistics, Federal Register notices, and economic indicators, reconciles them with cached and policy data, and derives effective tariff rates for hardwood imports.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
