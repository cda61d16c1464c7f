package readapi

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"macro-stress-pipeline/internal/entity"
	"macro-stress-pipeline/internal/scoring"
	"macro-stress-pipeline/internal/store"
)

// historyLimit is the number of most-recent scored rows a per-country
// history response carries.
const historyLimit = 30

// deltaLookbackDays are the two lookback windows the scoreboard reports
// a delta for.
const (
	delta7Days  = 7
	delta30Days = 30
)

// Composer holds the pure read-side aggregation logic: the scoreboard
// and per-country history views. It touches no HTTP concerns.
type Composer struct {
	countries  store.CountryRepository
	obs        store.ObservationRepository
	normParams store.NormParamRepository
}

// NewComposer builds the read-side composer.
func NewComposer(countries store.CountryRepository, obs store.ObservationRepository, normParams store.NormParamRepository) *Composer {
	return &Composer{countries: countries, obs: obs, normParams: normParams}
}

// Scoreboard returns every country with at least one scored row,
// ranked by stress score descending, ties broken by country ID
// ascending for a stable order.
func (c *Composer) Scoreboard(ctx context.Context) ([]ScoreboardEntry, error) {
	countries, err := c.countries.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("scoreboard: load countries: %w", err)
	}
	paramsByCountry, err := c.normParams.AllIndexed(ctx)
	if err != nil {
		return nil, fmt.Errorf("scoreboard: load normalization params: %w", err)
	}

	type ranked struct {
		entry     ScoreboardEntry
		countryID uint
	}
	var rows []ranked

	for _, country := range countries {
		latest, err := c.obs.LatestScored(ctx, country.ID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("scoreboard: latest scored for %s: %w", country.ISO2, err)
		}

		entry := ScoreboardEntry{
			CountryCode: country.ISO2,
			CountryName: country.Name,
			Date:        latest.Date,
			Score:       *latest.StressScore,
			Components:  scoring.ComponentScores(latest.RawMetrics(), paramsByCountry[country.ID]),
		}
		entry.Delta7d, err = c.delta(ctx, country.ID, latest, delta7Days)
		if err != nil {
			return nil, err
		}
		entry.Delta30d, err = c.delta(ctx, country.ID, latest, delta30Days)
		if err != nil {
			return nil, err
		}
		applyFlags(&entry, latest.DataFlags)

		rows = append(rows, ranked{entry: entry, countryID: country.ID})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].entry.Score != rows[j].entry.Score {
			return rows[i].entry.Score > rows[j].entry.Score
		}
		return rows[i].countryID < rows[j].countryID
	})

	out := make([]ScoreboardEntry, len(rows))
	for i, r := range rows {
		r.entry.Rank = i + 1
		out[i] = r.entry
	}
	return out, nil
}

func (c *Composer) delta(ctx context.Context, countryID uint, latest *entity.DailyObservation, days int) (*float64, error) {
	cutoff := latest.Date.AddDate(0, 0, -days)
	prior, err := c.obs.LatestScoredOnOrBefore(ctx, countryID, cutoff)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("delta %dd: %w", days, err)
	}
	d := *latest.StressScore - *prior.StressScore
	return &d, nil
}

func applyFlags(entry *ScoreboardEntry, flags map[string]interface{}) {
	if v, ok := flags["partial"].(bool); ok {
		entry.Partial = v
	}
	if v, ok := flags["low_confidence"].(bool); ok {
		entry.LowConfidence = v
	}
	if v, ok := flags["missing"].([]interface{}); ok {
		missing := make([]string, 0, len(v))
		for _, m := range v {
			if s, ok := m.(string); ok {
				missing = append(missing, s)
			}
		}
		entry.Missing = missing
	} else if v, ok := flags["missing"].([]string); ok {
		entry.Missing = v
	}
}

// History returns up to the last historyLimit scored rows for the
// country identified by an uppercase two-letter ISO2 code, oldest
// first. found is false when the code doesn't match a known country.
func (c *Composer) History(ctx context.Context, iso2 string) (points []HistoryPoint, found bool, err error) {
	country, err := c.countries.FindByISO2(ctx, strings.ToUpper(iso2))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("history: find country %s: %w", iso2, err)
	}

	paramsByCountry, err := c.normParams.AllIndexed(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("history: load normalization params: %w", err)
	}
	params := paramsByCountry[country.ID]

	rows, err := c.obs.History(ctx, country.ID, historyLimit)
	if err != nil {
		return nil, false, fmt.Errorf("history: load rows for %s: %w", iso2, err)
	}

	points = make([]HistoryPoint, len(rows))
	for i, row := range rows {
		points[i] = HistoryPoint{
			Date:        row.Date,
			StressScore: *row.StressScore,
			Components:  scoring.ComponentScores(row.RawMetrics(), params),
		}
	}
	return points, true, nil
}
