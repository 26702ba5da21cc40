package data

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/contactkeval/option-iv/internal/logger"
	"github.com/contactkeval/option-iv/internal/pricing"
)

// File names inside a cleaned data directory.
const (
	OptionsFile = "options.csv"
	SpotsFile   = "current_prices.csv"
)

var (
	quoteHeader = []string{"contractSymbol", "strike", "bid", "ask", "optionType", "expiration", "underlying", "data_date"}
	spotHeader  = []string{"date", "close", "ticker", "fed_funds"}
)

// ErrMissingColumn is returned when a CSV lacks a required column.
var ErrMissingColumn = errors.New("missing column")

// ErrNonFinite is returned for NaN or infinite numeric cells.
var ErrNonFinite = errors.New("non-finite value")

// localCSVSource implements Source from a cleaned data directory.
type localCSVSource struct {
	dir  string
	rate float64
}

// NewLocalCSVSource reads options.csv and current_prices.csv from dir.
// defaultRate is used for spot rows without a fed_funds value.
func NewLocalCSVSource(dir string, defaultRate float64) *localCSVSource {
	return &localCSVSource{dir: dir, rate: defaultRate}
}

func (s *localCSVSource) Chain(ctx context.Context, underlying string) ([]OptionQuote, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	all, err := ReadQuotesCSV(filepath.Join(s.dir, OptionsFile))
	if err != nil {
		return nil, err
	}
	out := all[:0:0]
	for _, q := range all {
		if strings.EqualFold(q.Underlying, underlying) {
			out = append(out, q)
		}
	}
	logger.Debugf("csv: %d of %d quotes belong to %s", len(out), len(all), underlying)
	return out, nil
}

func (s *localCSVSource) Spots(ctx context.Context, underlying string) ([]Spot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	all, err := ReadSpotsCSV(filepath.Join(s.dir, SpotsFile))
	if err != nil {
		return nil, err
	}
	var out []Spot
	for _, sp := range all {
		if !strings.EqualFold(sp.Underlying, underlying) {
			continue
		}
		if sp.RateMissing {
			sp.Rate, sp.RateMissing = s.rate, false
		}
		out = append(out, sp)
	}
	return out, nil
}

// columns maps lower-cased header names to their index.
type columns map[string]int

func newColumns(header []string) columns {
	cols := make(columns, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return cols
}

func (c columns) get(row []string, name string) string {
	i, ok := c[strings.ToLower(name)]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func (c columns) require(names ...string) error {
	for _, n := range names {
		if _, ok := c[strings.ToLower(n)]; !ok {
			return fmt.Errorf("%w %q", ErrMissingColumn, n)
		}
	}
	return nil
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range []string{dateLayout, "2006-01-02 15:04:05", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

// parseFloat reads an optional number; an empty cell is zero. NaN and
// infinities are rejected so a bad cell drops its row instead of reaching
// the solver or the reports.
func parseFloat(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %q", ErrNonFinite, s)
	}
	return v, nil
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("read %s: %w", path, io.ErrUnexpectedEOF)
	}
	return records, nil
}

// ReadQuotesCSV reads option quotes by header name. Extra columns (such as a
// leading index column) are ignored; rows that fail to parse are skipped
// and logged.
func ReadQuotesCSV(path string) ([]OptionQuote, error) {
	records, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	cols := newColumns(records[0])
	if err := cols.require("strike", "bid", "ask", "optionType", "expiration", "underlying", "data_date"); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	out := make([]OptionQuote, 0, len(records)-1)
	for i, row := range records[1:] {
		q, err := parseQuote(cols, row)
		if err != nil {
			logger.Debugf("%s line %d skipped: %v", filepath.Base(path), i+2, err)
			continue
		}
		out = append(out, q)
	}
	return out, nil
}

func parseQuote(cols columns, row []string) (OptionQuote, error) {
	var (
		q   OptionQuote
		err error
	)
	if q.Type, err = pricing.ParseOptionType(cols.get(row, "optionType")); err != nil {
		return q, err
	}
	if q.Strike, err = parseFloat(cols.get(row, "strike")); err != nil {
		return q, fmt.Errorf("strike: %w", err)
	}
	if q.Bid, err = parseFloat(cols.get(row, "bid")); err != nil {
		return q, fmt.Errorf("bid: %w", err)
	}
	if q.Ask, err = parseFloat(cols.get(row, "ask")); err != nil {
		return q, fmt.Errorf("ask: %w", err)
	}
	if q.Expiration, err = parseDate(cols.get(row, "expiration")); err != nil {
		return q, err
	}
	if q.DataDate, err = parseDate(cols.get(row, "data_date")); err != nil {
		return q, err
	}
	q.Underlying = cols.get(row, "underlying")
	q.ContractSymbol = cols.get(row, "contractSymbol")
	if q.ContractSymbol == "" {
		q.ContractSymbol = OptionSymbolFromParts(q.Underlying, q.Expiration, q.Type, q.Strike)
	}
	return q, nil
}

// ReadSpotsCSV reads underlying prices. The date column may be named "date"
// or left unnamed (a pandas index).
func ReadSpotsCSV(path string) ([]Spot, error) {
	records, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	cols := newColumns(records[0])
	if err := cols.require("close", "ticker"); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	dateCol := "date"
	if _, ok := cols[dateCol]; !ok {
		dateCol = ""
	}

	var out []Spot
	for i, row := range records[1:] {
		date, err := parseDate(cols.get(row, dateCol))
		if err != nil {
			logger.Debugf("%s line %d skipped: %v", filepath.Base(path), i+2, err)
			continue
		}
		price, err := parseFloat(cols.get(row, "close"))
		if err != nil {
			logger.Debugf("%s line %d skipped: close: %v", filepath.Base(path), i+2, err)
			continue
		}
		rateCell := cols.get(row, "fed_funds")
		rate, err := parseFloat(rateCell)
		if err != nil {
			logger.Debugf("%s line %d skipped: fed_funds: %v", filepath.Base(path), i+2, err)
			continue
		}
		out = append(out, Spot{
			Underlying:  cols.get(row, "ticker"),
			Date:        date,
			Price:       price,
			Rate:        rate,
			RateMissing: rateCell == "",
		})
	}
	return out, nil
}

// WriteQuotesCSV writes quotes in the layout ReadQuotesCSV expects.
func WriteQuotesCSV(path string, quotes []OptionQuote) error {
	rows := make([][]string, 0, len(quotes))
	for _, q := range quotes {
		rows = append(rows, []string{
			q.ContractSymbol,
			strconv.FormatFloat(q.Strike, 'f', -1, 64),
			strconv.FormatFloat(q.Bid, 'f', -1, 64),
			strconv.FormatFloat(q.Ask, 'f', -1, 64),
			string(q.Type),
			q.Expiration.Format(dateLayout),
			q.Underlying,
			q.DataDate.Format(dateLayout),
		})
	}
	return writeCSV(path, quoteHeader, rows)
}

// WriteSpotsCSV writes spots in the layout ReadSpotsCSV expects.
func WriteSpotsCSV(path string, spots []Spot) error {
	rows := make([][]string, 0, len(spots))
	for _, s := range spots {
		rate := strconv.FormatFloat(s.Rate, 'f', -1, 64)
		if s.RateMissing {
			rate = ""
		}
		rows = append(rows, []string{
			s.Date.Format(dateLayout),
			strconv.FormatFloat(s.Price, 'f', -1, 64),
			s.Underlying,
			rate,
		})
	}
	return writeCSV(path, spotHeader, rows)
}

func writeCSV(path string, header []string, rows [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// CleanStats summarises a CleanRaw run.
type CleanStats struct {
	QuoteFiles int
	SpotFiles  int
	Kept       int
	Dropped    int
	Spots      int
}

// CleanRaw merges the raw files written by the ingest step
// (<TICKER>_options_*.csv and <TICKER>_current_price_*.csv) into a cleaned
// options.csv and current_prices.csv under outDir. Contracts without quotes
// are dropped; spots without a rate are annotated with rate.
func CleanRaw(rawDir, outDir string, rate float64) (CleanStats, error) {
	var stats CleanStats

	quoteFiles, err := filepath.Glob(filepath.Join(rawDir, "*_options_*.csv"))
	if err != nil {
		return stats, err
	}
	sort.Strings(quoteFiles)
	stats.QuoteFiles = len(quoteFiles)

	var quotes []OptionQuote
	for _, path := range quoteFiles {
		qs, err := ReadQuotesCSV(path)
		if err != nil {
			return stats, err
		}
		quotes = append(quotes, qs...)
	}
	kept, dropped := Clean(quotes)
	stats.Kept, stats.Dropped = len(kept), dropped
	logger.Infof("removing %d options with no posted quotes", dropped)

	if err := WriteQuotesCSV(filepath.Join(outDir, OptionsFile), kept); err != nil {
		return stats, err
	}

	spotFiles, err := filepath.Glob(filepath.Join(rawDir, "*_current_price_*.csv"))
	if err != nil {
		return stats, err
	}
	sort.Strings(spotFiles)
	stats.SpotFiles = len(spotFiles)

	var spots []Spot
	for _, path := range spotFiles {
		ss, err := ReadSpotsCSV(path)
		if err != nil {
			return stats, err
		}
		for _, s := range ss {
			if s.RateMissing {
				s.Rate, s.RateMissing = rate, false
			}
			spots = append(spots, s)
		}
	}
	stats.Spots = len(spots)

	if err := WriteSpotsCSV(filepath.Join(outDir, SpotsFile), spots); err != nil {
		return stats, err
	}
	return stats, nil
}

// RawQuotesPath names a raw chain file: <TICKER>_options_<expiry>_<timestamp>.csv.
func RawQuotesPath(dir, underlying string, expiry, now time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("%s_options_%s_%s.csv",
		underlying, expiry.Format(dateLayout), now.Format("20060102_150405")))
}

// RawSpotPath names a raw spot file: <TICKER>_current_price_<date>.csv.
func RawSpotPath(dir, underlying string, date time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("%s_current_price_%s.csv", underlying, date.Format(dateLayout)))
}
