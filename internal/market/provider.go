package market

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Provider supplies the daily price/indicator panel for a fixed asset
// universe. Implementations must guarantee no look-ahead: every value is
// timestamped at the close of its stated date.
type Provider interface {
	LoadPanel(ctx context.Context, universe []string, volatilityID string) (*Panel, error)
}

// CSVProvider loads a panel from the cached CSV pair the data pipeline
// writes: prices.csv (Date + one column per asset) and vix.csv (Date + the
// volatility index).
type CSVProvider struct {
	Dir        string
	PricesFile string // Default: prices.csv
	VIXFile    string // Default: vix.csv
}

// NewCSVProvider creates a CSV provider rooted at dir
func NewCSVProvider(dir string) *CSVProvider {
	return &CSVProvider{
		Dir:        dir,
		PricesFile: "prices.csv",
		VIXFile:    "vix.csv",
	}
}

// LoadPanel reads, aligns, and validates the cached price and VIX series
func (p *CSVProvider) LoadPanel(ctx context.Context, universe []string, volatilityID string) (*Panel, error) {
	pricesPath := filepath.Join(p.Dir, p.PricesFile)
	vixPath := filepath.Join(p.Dir, p.VIXFile)

	priceDates, priceCols, err := readCSVTable(pricesPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load prices: %w", err)
	}
	vixDates, vixCols, err := readCSVTable(vixPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load vix: %w", err)
	}

	vixSeries, ok := vixCols[volatilityID]
	if !ok {
		// Single-column files are accepted regardless of header
		if len(vixCols) == 1 {
			for _, col := range vixCols {
				vixSeries = col
			}
		} else {
			return nil, fmt.Errorf("volatility index %q not found in %s", volatilityID, vixPath)
		}
	}

	// Align on the intersection of dates, preserving order
	vixByDate := make(map[string]float64, len(vixDates))
	for i, d := range vixDates {
		vixByDate[d.Format("2006-01-02")] = vixSeries[i]
	}

	var dates []time.Time
	var prices [][]float64
	var vix []float64
	for i, d := range priceDates {
		v, ok := vixByDate[d.Format("2006-01-02")]
		if !ok {
			continue
		}
		row := make([]float64, len(universe))
		for a, asset := range universe {
			col, ok := priceCols[asset]
			if !ok {
				return nil, fmt.Errorf("asset %q not found in %s", asset, pricesPath)
			}
			row[a] = col[i]
		}
		dates = append(dates, d)
		prices = append(prices, row)
		vix = append(vix, v)
	}

	panel, err := NewPanel(universe, dates, prices, vix)
	if err != nil {
		return nil, fmt.Errorf("panel validation failed: %w", err)
	}

	log.Info().
		Int("days", panel.Len()).
		Int("assets", panel.NumAssets()).
		Str("from", panel.Dates[0].Format("2006-01-02")).
		Str("to", panel.Dates[panel.Len()-1].Format("2006-01-02")).
		Msg("Loaded panel from CSV cache")

	return panel, nil
}

// readCSVTable parses a Date-indexed CSV into per-column series. Blank or
// unparseable cells become NaN.
func readCSVTable(path string) ([]time.Time, map[string][]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	return parseCSVTable(f, path)
}

func parseCSVTable(r io.Reader, name string) ([]time.Time, map[string][]float64, error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read header of %s: %w", name, err)
	}
	if len(header) < 2 {
		return nil, nil, fmt.Errorf("%s needs a date column plus at least one series", name)
	}

	cols := make(map[string][]float64, len(header)-1)
	names := make([]string, len(header)-1)
	for i, h := range header[1:] {
		names[i] = strings.TrimSpace(h)
	}

	var dates []time.Time
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read row in %s: %w", name, err)
		}
		d, err := parseDate(record[0])
		if err != nil {
			return nil, nil, fmt.Errorf("bad date %q in %s: %w", record[0], name, err)
		}
		dates = append(dates, d)
		for i, cell := range record[1:] {
			v := math.NaN()
			if s := strings.TrimSpace(cell); s != "" {
				if parsed, err := strconv.ParseFloat(s, 64); err == nil {
					v = parsed
				}
			}
			cols[names[i]] = append(cols[names[i]], v)
		}
	}

	return dates, cols, nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"2006-01-02", "2006-01-02 15:04:05", time.RFC3339} {
		if d, err := time.Parse(layout, s); err == nil {
			return d.UTC().Truncate(24 * time.Hour), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date format")
}
