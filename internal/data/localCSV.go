// Local, file-backed Provider for offline VRP calibration: daily bars
// read from a per-symbol CSV, no ATM quote support (calibration falls
// back to its secondary for implied vol in that case).
package data

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type localCSVProvider struct {
	dir       string
	secondary Provider
}

// NewLocalCSVProvider reads daily bars from "<dir>/<SYMBOL>.csv", a
// headerless CSV of date,open,high,low,close,volume rows.
func NewLocalCSVProvider(dir string, secondary Provider) Provider {
	return &localCSVProvider{dir: dir, secondary: secondary}
}

func (p *localCSVProvider) Secondary() Provider { return p.secondary }

func (p *localCSVProvider) DailyBars(ctx context.Context, symbol string, from, to time.Time) ([]Bar, error) {
	path := filepath.Join(p.dir, strings.ToUpper(symbol)+".csv")
	f, err := os.Open(path)
	if err != nil {
		if p.secondary != nil {
			return p.secondary.DailyBars(ctx, symbol, from, to)
		}
		return nil, fmt.Errorf("data: open %q: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("data: read %q: %w", path, err)
	}

	var out []Bar
	for _, row := range records {
		if len(row) < 5 {
			continue
		}
		date, err := time.Parse("2006-01-02", strings.TrimSpace(row[0]))
		if err != nil || date.Before(from) || date.After(to) {
			continue
		}
		open, _ := strconv.ParseFloat(row[1], 64)
		high, _ := strconv.ParseFloat(row[2], 64)
		low, _ := strconv.ParseFloat(row[3], 64)
		closeP, _ := strconv.ParseFloat(row[4], 64)
		var vol float64
		if len(row) > 5 {
			vol, _ = strconv.ParseFloat(row[5], 64)
		}
		out = append(out, Bar{Date: date, Open: open, High: high, Low: low, Close: closeP, Vol: vol})
	}
	return out, nil
}

func (p *localCSVProvider) ATMOptionMid(ctx context.Context, symbol string, asOf, expiry time.Time, underlyingPrice float64) (float64, float64, float64, error) {
	if p.secondary != nil {
		return p.secondary.ATMOptionMid(ctx, symbol, asOf, expiry, underlyingPrice)
	}
	return 0, 0, 0, fmt.Errorf("data: no local option-quote file for %s", symbol)
}
