package data

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/contactkeval/option-iv/internal/logger"
)

// IngestStats counts what one Ingest call wrote.
type IngestStats struct {
	Underlyings int
	QuoteFiles  int
	Quotes      int
	SpotFiles   int
}

// Ingest pulls the chain and spot of every underlying from src and writes
// them to rawDir: one quote file per expiration and one spot file per data
// date. The files are named so that CleanRaw picks them up.
func Ingest(ctx context.Context, src Source, underlyings []string, rawDir string, now time.Time) (IngestStats, error) {
	var stats IngestStats
	for _, u := range underlyings {
		name := strings.TrimPrefix(strings.ToUpper(u), "^")

		chain, err := src.Chain(ctx, u)
		if err != nil {
			return stats, fmt.Errorf("ingest %s chain: %w", u, err)
		}
		spots, err := src.Spots(ctx, u)
		if err != nil {
			return stats, fmt.Errorf("ingest %s spots: %w", u, err)
		}

		byExpiry := make(map[time.Time][]OptionQuote)
		var exps []time.Time
		for _, q := range chain {
			if _, ok := byExpiry[q.Expiration]; !ok {
				exps = append(exps, q.Expiration)
			}
			byExpiry[q.Expiration] = append(byExpiry[q.Expiration], q)
		}
		for _, exp := range exps {
			if err := WriteQuotesCSV(RawQuotesPath(rawDir, name, exp, now), byExpiry[exp]); err != nil {
				return stats, err
			}
			stats.QuoteFiles++
		}
		stats.Quotes += len(chain)

		byDate := make(map[time.Time][]Spot)
		var dates []time.Time
		for _, s := range spots {
			if _, ok := byDate[s.Date]; !ok {
				dates = append(dates, s.Date)
			}
			byDate[s.Date] = append(byDate[s.Date], s)
		}
		for _, d := range dates {
			if err := WriteSpotsCSV(RawSpotPath(rawDir, name, d), byDate[d]); err != nil {
				return stats, err
			}
			stats.SpotFiles++
		}

		stats.Underlyings++
		logger.Infof("%s: wrote %d contracts across %d expiries", u, len(chain), len(byExpiry))
	}
	return stats, nil
}
