package backtest

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Writer persists run artifacts to disk: a summary JSON and the full ledger
// as CSV. Result persistence is a sink outside the simulation; a write
// failure after the run is reported but cannot corrupt the ledger.
type Writer struct {
	outputDir string
}

// NewWriter creates an artifact writer rooted at outputDir
func NewWriter(outputDir string) *Writer {
	return &Writer{outputDir: outputDir}
}

// OutputDir returns the artifact directory for this run
func (w *Writer) OutputDir(runID string) string {
	return filepath.Join(w.outputDir, runID)
}

// WriteResult writes summary.json and ledger.csv for the run
func (w *Writer) WriteResult(result *Result) error {
	dir := w.OutputDir(result.RunID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := w.writeSummary(dir, result); err != nil {
		return err
	}
	return w.writeLedgerCSV(dir, result)
}

func (w *Writer) writeSummary(dir string, result *Result) error {
	// Ledger entries go to the CSV; the JSON carries identity and summary
	trimmed := *result
	trimmed.Ledger = nil

	data, err := json.MarshalIndent(&trimmed, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}
	path := filepath.Join(dir, "summary.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func (w *Writer) writeLedgerCSV(dir string, result *Result) error {
	path := filepath.Join(dir, "ledger.csv")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	header := []string{
		"date", "turnover", "transaction_cost", "daily_return", "equity",
		"regime_label", "p_high_smoothed", "confidence", "risk_mode",
		"cooldown_remaining", "drawdown",
	}
	for _, asset := range result.Assets {
		header = append(header, "w_"+asset)
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, entry := range result.Ledger {
		row := []string{
			entry.Date.Format("2006-01-02"),
			formatFloat(entry.Turnover),
			formatFloat(entry.TransactionCost),
			formatFloat(entry.DailyReturn),
			formatFloat(entry.Equity),
			entry.RegimeLabel,
			formatFloat(entry.PHighSmoothed),
			formatFloat(entry.Confidence),
			entry.RiskMode,
			strconv.Itoa(entry.CooldownRemaining),
			formatFloat(entry.Drawdown),
		}
		for _, weight := range entry.WeightsPostCost {
			row = append(row, formatFloat(weight))
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write ledger row: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush ledger CSV: %w", err)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
