// Package holdings reads and writes the current position file. Holdings are
// maintained by hand (or by the bootstrap command); the daily run only reads
// them to compute portfolio weights.
package holdings

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/minghuang/etfdca/internal/contracts"
)

// Load reads a ticker,shares CSV. A missing file is an error: the portfolio
// must be declared before the first run, even if every share count is zero.
func Load(path string) (contracts.Holdings, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("holdings file %s not found, create it with ticker,shares columns", path)
		}
		return nil, fmt.Errorf("failed to open holdings file: %w", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read holdings file: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("holdings file %s is empty", path)
	}

	header := records[0]
	tickerCol, sharesCol := -1, -1
	for i, col := range header {
		switch strings.ToLower(strings.TrimSpace(col)) {
		case "ticker":
			tickerCol = i
		case "shares":
			sharesCol = i
		}
	}
	if tickerCol < 0 || sharesCol < 0 {
		return nil, fmt.Errorf("holdings file %s needs ticker and shares columns", path)
	}

	h := make(contracts.Holdings, len(records)-1)
	for i, rec := range records[1:] {
		ticker := strings.ToUpper(strings.TrimSpace(rec[tickerCol]))
		if ticker == "" {
			continue
		}
		shares, err := strconv.ParseFloat(strings.TrimSpace(rec[sharesCol]), 64)
		if err != nil {
			return nil, fmt.Errorf("holdings row %d: bad share count %q: %w", i+2, rec[sharesCol], err)
		}
		h[ticker] = shares
	}
	return h, nil
}

// Save writes holdings as a ticker,shares CSV, tickers sorted for stable
// diffs. Used by the bootstrap command to seed the position file.
func Save(path string, h contracts.Holdings) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create holdings directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create holdings file: %w", err)
	}
	defer f.Close()

	tickers := make([]string, 0, len(h))
	for t := range h {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)

	w := csv.NewWriter(f)
	if err := w.Write([]string{"ticker", "shares"}); err != nil {
		return fmt.Errorf("failed to write holdings header: %w", err)
	}
	for _, t := range tickers {
		row := []string{t, strconv.FormatFloat(h[t], 'f', -1, 64)}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write holdings row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}
