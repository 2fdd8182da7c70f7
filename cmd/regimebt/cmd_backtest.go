package main

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/XabiBlaz/Regime-Aware-trading-strategy/internal/backtest"
	"github.com/XabiBlaz/Regime-Aware-trading-strategy/internal/config"
	"github.com/XabiBlaz/Regime-Aware-trading-strategy/internal/market"
	"github.com/XabiBlaz/Regime-Aware-trading-strategy/internal/ops"
	"github.com/XabiBlaz/Regime-Aware-trading-strategy/internal/persistence"
)

var (
	configPath  string
	dataDir     string
	pricesURL   string
	vixURL      string
	startDate   string
	endDate     string
	outputDir   string
	opsAddr     string
	redisAddr   string
	postgresDSN string
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Run the full historical simulation",
	Long: `Load the price/VIX panel, replay the regime classification, sleeve
blending, and risk overlay pipeline day by day, and write the ledger and
summary artifacts.

Example usage:
  regimebt backtest --data ./data/cache
  regimebt backtest --config strategy.yaml --output ./artifacts
  regimebt backtest --ops-addr :9090 --redis localhost:6379`,
	RunE: runBacktest,
}

func init() {
	backtestCmd.Flags().StringVarP(&configPath, "config", "c", "", "Strategy config YAML (defaults applied when omitted)")
	backtestCmd.Flags().StringVarP(&dataDir, "data", "d", "./data/cache", "Directory holding prices.csv and vix.csv")
	backtestCmd.Flags().StringVar(&pricesURL, "prices-url", "", "Remote prices CSV endpoint (overrides --data)")
	backtestCmd.Flags().StringVar(&vixURL, "vix-url", "", "Remote VIX CSV endpoint (required with --prices-url)")
	backtestCmd.Flags().StringVar(&startDate, "start", "", "First reporting date YYYY-MM-DD (overrides config)")
	backtestCmd.Flags().StringVar(&endDate, "end", "", "Last date YYYY-MM-DD (overrides config)")
	backtestCmd.Flags().StringVarP(&outputDir, "output", "o", "", "Artifact directory (overrides config)")
	backtestCmd.Flags().StringVar(&opsAddr, "ops-addr", "", "Address for the /health and /metrics listener")
	backtestCmd.Flags().StringVar(&redisAddr, "redis", "", "Redis address for the panel cache")
	backtestCmd.Flags().StringVar(&postgresDSN, "postgres", "", "Postgres DSN for ledger persistence")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg := config.DefaultConfig()
	if configPath != "" {
		loaded, err := config.LoadFromFile(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	} else if err := cfg.Validate(); err != nil {
		return fmt.Errorf("default config invalid: %w", err)
	}
	if startDate != "" {
		cfg.Start = startDate
	}
	if endDate != "" {
		cfg.End = endDate
	}
	if startDate != "" || endDate != "" {
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid date override: %w", err)
		}
	}
	if outputDir != "" {
		cfg.OutputDir = outputDir
	}

	registry := prometheus.NewRegistry()
	var collector *backtest.Collector
	if opsAddr != "" {
		collector = backtest.NewCollector(registry)
		ops.NewServer(opsAddr, registry).Start()
	}

	var provider market.Provider = market.NewCSVProvider(dataDir)
	if pricesURL != "" {
		if vixURL == "" {
			return fmt.Errorf("--vix-url is required when --prices-url is set")
		}
		provider = market.NewHTTPProvider(market.DefaultHTTPProviderConfig(pricesURL, vixURL))
	}
	if redisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: redisAddr})
		provider = market.NewCachedProvider(provider, client, 24*time.Hour)
	}

	panel, err := provider.LoadPanel(ctx, cfg.Universe, cfg.VolatilityID)
	if err != nil {
		return fmt.Errorf("data load failed before simulation start: %w", err)
	}
	panel, err = clampPanel(panel, cfg)
	if err != nil {
		return err
	}

	engine, err := backtest.NewEngine(cfg, panel, collector)
	if err != nil {
		return err
	}

	result, err := engine.Run(ctx)
	if err != nil {
		return err
	}

	printSummary(result)

	if err := backtest.NewWriter(cfg.OutputDir).WriteResult(result); err != nil {
		return fmt.Errorf("failed to write artifacts: %w", err)
	}
	log.Info().Str("dir", backtest.NewWriter(cfg.OutputDir).OutputDir(result.RunID)).Msg("Artifacts written")

	if postgresDSN != "" {
		store, err := persistence.NewPostgresStore(postgresDSN)
		if err != nil {
			return fmt.Errorf("failed to open ledger store: %w", err)
		}
		defer store.Close()
		if err := store.SaveRun(ctx, result); err != nil {
			return fmt.Errorf("failed to persist run: %w", err)
		}
	}

	return nil
}

// clampPanel restricts the panel to the configured date range, keeping the
// full trailing history before the start so warmup windows stay intact
func clampPanel(panel *market.Panel, cfg *config.Config) (*market.Panel, error) {
	from := 0
	to := panel.Len()
	if cfg.End != "" {
		end, _ := time.Parse("2006-01-02", cfg.End)
		for to > 0 && panel.Dates[to-1].After(end) {
			to--
		}
	}
	if cfg.Start != "" {
		start, _ := time.Parse("2006-01-02", cfg.Start)
		if idx, ok := panel.IndexOnOrAfter(start); ok {
			from = idx - cfg.MaxLookback()
			if from < 0 {
				from = 0
			}
		}
	}
	if from == 0 && to == panel.Len() {
		return panel, nil
	}
	return panel.Slice(from, to)
}

func printSummary(result *backtest.Result) {
	s := result.Summary
	fmt.Printf("\nBacktest %s\n", result.RunID)
	fmt.Printf("Period:        %s to %s (%d days)\n",
		result.StartDate.Format("2006-01-02"), result.EndDate.Format("2006-01-02"), s.Days)
	fmt.Printf("Total return:  %8.2f%%\n", s.TotalReturn*100)
	fmt.Printf("CAGR:          %8.2f%%\n", s.CAGR*100)
	fmt.Printf("Sharpe:        %8.3f\n", s.Sharpe)
	fmt.Printf("Volatility:    %8.2f%%\n", s.Volatility*100)
	fmt.Printf("Max drawdown:  %8.2f%%\n", s.MaxDrawdown*100)
	fmt.Printf("Avg turnover:  %8.4f\n", s.AvgTurnover)
	fmt.Printf("Total costs:   %8.4f\n", s.TotalCosts)
	for label, rs := range s.ByRegime {
		fmt.Printf("  %-12s %4d days, return %7.2f%%, sharpe %6.3f\n",
			label, rs.Days, rs.TotalReturn*100, rs.Sharpe)
	}
}
