package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/newthinker/strata/internal/config"
	"github.com/newthinker/strata/internal/logger"
)

var (
	cfgFile string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "strata",
	Short: "strata - rule-based strategy backtester",
	Long: `strata evaluates rule-based trading strategies (moving average, RSI and
MACD crosses, and custom combinations) against historical prices and reports
trades, returns, drawdown and Sharpe ratio.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug mode")
}

// setup loads and validates the config and builds the logger.
func setup() (*config.Config, *zap.Logger, error) {
	cfg := config.Defaults()
	if cfgFile != "" {
		var err error
		if cfg, err = config.Load(cfgFile); err != nil {
			return nil, nil, fmt.Errorf("loading config: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("config validation failed: %w", err)
	}

	level := cfg.Log.Level
	if debug {
		level = "debug"
	}
	log, err := logger.New(debug, level)
	if err != nil {
		return nil, nil, err
	}
	if cfgFile == "" {
		log.Debug("no config file specified, using defaults")
	}
	return cfg, log, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
