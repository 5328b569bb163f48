package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/newthinker/strata/internal/app"
	"github.com/newthinker/strata/internal/backtest"
	"github.com/newthinker/strata/internal/core"
	"github.com/newthinker/strata/internal/strategy"
)

var (
	backtestPeriod     string
	backtestCapital    float64
	backtestMode       string
	backtestStrategies []string
	backtestFile       string
	backtestCompare    bool
	backtestOutput     string
)

var backtestCmd = &cobra.Command{
	Use:   "backtest [ticker]",
	Short: "Run a backtest",
	Long: `Run one or more strategies against historical data and show performance statistics.

Strategies are given as type:key=value,... for example
  strata backtest AAPL -s moving_average_cross:lower_period=50,upper_period=200,ma_type=SMA -s rsi_cross:rsi_period=14,lower_bound=30,upper_bound=70

or as a YAML/JSON request file with --file. With --compare each strategy is
evaluated on its own and the results are ranked by total return.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBacktest,
}

func init() {
	backtestCmd.Flags().StringVar(&backtestPeriod, "period", "", "lookback period: Nd, Nwk, Nmo, Ny, ytd, max (default from config)")
	backtestCmd.Flags().Float64Var(&backtestCapital, "capital", 0, "initial capital (default from config)")
	backtestCmd.Flags().StringVar(&backtestMode, "mode", "", "request mode: all, any, majority")
	backtestCmd.Flags().StringArrayVarP(&backtestStrategies, "strategy", "s", nil, "strategy as type:key=value,... (repeatable)")
	backtestCmd.Flags().StringVarP(&backtestFile, "file", "f", "", "request file (YAML or JSON)")
	backtestCmd.Flags().BoolVar(&backtestCompare, "compare", false, "rank each strategy separately on the same data")
	backtestCmd.Flags().StringVarP(&backtestOutput, "output", "o", "text", "output format: text, json")

	rootCmd.AddCommand(backtestCmd)
}

func runBacktest(cmd *cobra.Command, args []string) error {
	req, err := buildRequest(args)
	if err != nil {
		return err
	}

	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	if req.Period == "" {
		req.Period = cfg.Backtest.DefaultPeriod
	}

	application, err := app.New(cfg, log)
	if err != nil {
		return err
	}
	defer application.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	out := cmd.OutOrStdout()
	if backtestCompare {
		results, err := application.Backtester().Compare(ctx, req.Ticker, req.Period, float64(req.InitialCapital), req.Strategies)
		if err != nil {
			return err
		}
		if backtestOutput == "json" {
			return writeJSON(out, results)
		}
		printComparison(out, results)
		return nil
	}

	result, err := application.Backtester().Run(ctx, req)
	if err != nil {
		return err
	}
	if backtestOutput == "json" {
		return writeJSON(out, result)
	}
	printResult(out, result)
	return nil
}

func buildRequest(args []string) (backtest.Request, error) {
	var req backtest.Request
	if backtestFile != "" {
		data, err := os.ReadFile(backtestFile)
		if err != nil {
			return req, fmt.Errorf("reading request: %w", err)
		}
		// YAML is a superset of JSON
		if err := yaml.Unmarshal(data, &req); err != nil {
			return req, core.Errorf(core.ErrInvalidConfiguration, "parsing %s: %v", backtestFile, err)
		}
	}

	if len(args) == 1 {
		req.Ticker = args[0]
	}
	if backtestPeriod != "" {
		req.Period = backtestPeriod
	}
	if backtestCapital != 0 {
		req.InitialCapital = backtest.Amount(backtestCapital)
	}
	if backtestMode != "" {
		req.Mode = backtestMode
	}
	for _, s := range backtestStrategies {
		cfg, err := parseStrategyFlag(s)
		if err != nil {
			return req, err
		}
		req.Strategies = append(req.Strategies, cfg)
	}

	if req.Ticker == "" {
		return req, core.Errorf(core.ErrMissingParameter, "ticker is required")
	}
	if len(req.Strategies) == 0 {
		return req, core.Errorf(core.ErrNoStrategies, "at least one --strategy or a --file is required")
	}
	return req, nil
}

// parseStrategyFlag parses "type:key=value,key=value". Values stay strings;
// strategies coerce them when built.
func parseStrategyFlag(s string) (strategy.Config, error) {
	typ, rest, _ := strings.Cut(s, ":")
	cfg := strategy.Config{Type: strings.TrimSpace(typ), Params: map[string]any{}}
	if cfg.Type == "" {
		return cfg, core.Errorf(core.ErrInvalidConfiguration, "strategy %q has no type", s)
	}
	if rest == "" {
		return cfg, nil
	}
	for _, kv := range strings.Split(rest, ",") {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return cfg, core.Errorf(core.ErrInvalidConfiguration, "strategy %q: expected key=value, got %q", s, kv)
		}
		cfg.Params[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return cfg, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printResult(w io.Writer, r *backtest.Result) {
	m := r.Metrics
	fmt.Fprintln(w, "=== strata Backtest ===")
	fmt.Fprintf(w, "Ticker:   %s\n", r.Ticker)
	fmt.Fprintf(w, "Strategy: %s\n", r.Strategy)
	fmt.Fprintf(w, "Period:   %s (%s to %s, %d bars)\n", r.Period,
		r.StartDate.Format("2006-01-02"), r.EndDate.Format("2006-01-02"), r.Bars)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Total return:     %8.2f%%\n", m.TotalReturn*100)
	fmt.Fprintf(w, "Trades:           %8d (%d won, %d lost)\n", m.TotalTrades, m.WinningTrades, m.LosingTrades)
	fmt.Fprintf(w, "Win rate:         %8.2f%%\n", m.WinRate*100)
	fmt.Fprintf(w, "Avg trade:        %8.2f%%\n", m.AvgReturnPerTrade*100)
	fmt.Fprintf(w, "Max drawdown:     %8.2f%%\n", m.MaxDrawdown*100)
	fmt.Fprintf(w, "Sharpe ratio:     %8.2f\n", m.SharpeRatio)
	fmt.Fprintf(w, "Capital:          %.2f -> %.2f\n", m.InitialCapital, m.FinalCapital)

	if len(r.Trades) > 0 {
		fmt.Fprintln(w)
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ENTRY\tEXIT\tENTRY PRICE\tEXIT PRICE\tRETURN\tDAYS")
		for _, t := range r.Trades {
			fmt.Fprintf(tw, "%s\t%s\t%.2f\t%.2f\t%+.2f%%\t%d\n",
				t.EntryDate.Format("2006-01-02"), t.ExitDate.Format("2006-01-02"),
				t.EntryPrice, t.ExitPrice, t.Return*100, t.DurationDays)
		}
		tw.Flush()
	}

	if p := r.OpenPosition; p != nil {
		fmt.Fprintf(w, "\nOpen position since %s at %.2f (unrealized %+.2f%%)\n",
			p.EntryDate.Format("2006-01-02"), p.EntryPrice, p.UnrealizedReturn*100)
	}
}

func printComparison(w io.Writer, results []*backtest.Result) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tSTRATEGY\tRETURN\tTRADES\tWIN RATE\tMAX DD\tSHARPE")
	for i, r := range results {
		m := r.Metrics
		fmt.Fprintf(tw, "%d\t%s\t%+.2f%%\t%d\t%.1f%%\t%.2f%%\t%.2f\n",
			i+1, r.Strategy, m.TotalReturn*100, m.TotalTrades, m.WinRate*100, m.MaxDrawdown*100, m.SharpeRatio)
	}
	tw.Flush()
}

