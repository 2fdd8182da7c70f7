package main

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var verbose bool

// rootCmd is the base command for the regime backtester CLI
var rootCmd = &cobra.Command{
	Use:   "regimebt",
	Short: "Regime-aware multi-sleeve portfolio backtester",
	Long: `regimebt replays a regime-aware trading strategy over a historical daily
price/indicator panel: a walk-forward logistic model estimates the
volatility regime, four signal sleeves are blended under regime-dependent
budgets, and a volatility-targeting risk overlay with drawdown throttling
and crash cooldown shapes the final book.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			zerolog.SetGlobalLevel(zerolog.DebugLevel)
		} else {
			zerolog.SetGlobalLevel(zerolog.InfoLevel)
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("regimebt - regime-aware strategy backtester")
		fmt.Println("Use 'regimebt backtest --help' to run a simulation")
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.AddCommand(backtestCmd)
}
