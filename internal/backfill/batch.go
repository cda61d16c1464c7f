// Package backfill implements the five offline reducers from
// spec.md §4.5: one per source family, each populating dense per-day
// history by forward-filling a sparser provider series and batch
// upserting the result.
package backfill

import "macro-stress-pipeline/internal/entity"

// batchSize is the reference upsert batch size from spec.md §4.5.
const batchSize = 500

func chunk(rows []entity.DailyObservation, size int) [][]entity.DailyObservation {
	if size <= 0 {
		size = len(rows)
	}
	var out [][]entity.DailyObservation
	for i := 0; i < len(rows); i += size {
		end := i + size
		if end > len(rows) {
			end = len(rows)
		}
		out = append(out, rows[i:end])
	}
	return out
}
