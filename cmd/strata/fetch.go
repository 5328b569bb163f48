package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/newthinker/strata/internal/collector"
	"github.com/newthinker/strata/internal/collector/parquet"
	"github.com/newthinker/strata/internal/collector/yahoo"
	"github.com/newthinker/strata/internal/marketdata"
)

var (
	fetchPeriod  string
	fetchDataDir string
)

var fetchCmd = &cobra.Command{
	Use:   "fetch [tickers...]",
	Short: "Download daily bars from Yahoo Finance into the parquet store",
	Long: `Download daily bars for each ticker and merge them into
<data-dir>/1d/<TICKER>.parquet so backtests can run offline with
collector.provider: parquet.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().StringVar(&fetchPeriod, "period", "max", "lookback period")
	fetchCmd.Flags().StringVar(&fetchDataDir, "data-dir", "", "parquet root (default collector.data_dir)")
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	dir := fetchDataDir
	if dir == "" {
		dir = cfg.Collector.DataDir
	}
	if dir == "" {
		return fmt.Errorf("--data-dir is required when collector.data_dir is not set")
	}

	source := yahoo.New(yahoo.WithLogger(log))
	if err := source.Init(collector.Config{
		Timeout:    cfg.Collector.Timeout,
		MaxRetries: cfg.Collector.MaxRetries,
	}); err != nil {
		return err
	}
	store := parquet.New(dir)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	end := time.Now().UTC()
	start, err := marketdata.ParsePeriod(fetchPeriod, end)
	if err != nil {
		return err
	}

	failed := 0
	for _, arg := range args {
		ticker := strings.ToUpper(arg)
		bars, err := source.FetchHistory(ctx, ticker, start, end, "1d")
		if err == nil {
			err = store.WriteHistory(ctx, bars)
		}
		if err != nil {
			failed++
			log.Error("fetch failed", zap.String("ticker", ticker), zap.Error(err))
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d bars\n", ticker, len(bars))
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d tickers failed", failed, len(args))
	}
	return nil
}
