package scoring

import (
	"sort"

	"macro-stress-pipeline/internal/entity"
)

// CanonicalWeights are the fixed per-metric weights used before
// redistribution. They must sum to 1.0.
var CanonicalWeights = map[string]float64{
	entity.MetricFXVol:             0.25,
	entity.MetricInflation:         0.20,
	entity.MetricRiskSpread:        0.20,
	entity.MetricCryptoRatio:       0.10,
	entity.MetricReservesChange:    0.10,
	entity.MetricStablecoinPremium: 0.15,
}

// lowConfidenceThreshold is the available-weight floor below which a
// score is flagged low_confidence.
const lowConfidenceThreshold = 0.5

// Result is the outcome of a single scoring call.
type Result struct {
	Score         float64
	Partial       bool
	Missing       []string
	LowConfidence bool
	// NormMissing lists metrics that had a raw value but no usable
	// normalization parameter (either absent, or degenerate and thus
	// treated as absent — see DESIGN.md's Open Question 3).
	NormMissing []string
}

// Flags renders the result as the free-form flags bag persisted
// alongside a daily observation.
func (r *Result) Flags() map[string]interface{} {
	flags := map[string]interface{}{
		"partial":        r.Partial,
		"low_confidence": r.LowConfidence,
	}
	if len(r.Missing) > 0 {
		flags["missing"] = append([]string(nil), r.Missing...)
	}
	for _, m := range r.NormMissing {
		flags[m+"_norm_missing"] = true
	}
	return flags
}

// usableParam reports whether p is present and not degenerate. A
// stale persisted param with min_val == max_val is treated as if it
// were never loaded, rather than silently emitting the
// ClampNormalize 0.5 fallback for a database-sourced row (see
// DESIGN.md's Open Question 3 resolution).
func usableParam(p entity.NormalizationParam, ok bool) bool {
	return ok && !p.Degenerate()
}

// Score computes the final stress score for raw against the country's
// normalization parameters. It returns ok=false when no metric could
// be scored (availableWeight == 0) — a row that cannot be scored,
// distinct from a row scoring 0.
func Score(raw entity.RawMetricRecord, params map[string]entity.NormalizationParam) (*Result, bool) {
	componentByMetric := make(map[string]float64, len(entity.AllMetrics))
	var missing []string
	var normMissing []string
	availableWeight := 0.0

	for _, metric := range entity.AllMetrics {
		val, present := raw.Get(metric)
		param, hasParam := params[metric]

		if present && usableParam(param, hasParam) {
			componentByMetric[metric] = ClampNormalize(val, param.MinVal, param.MaxVal)
			availableWeight += CanonicalWeights[metric]
			continue
		}

		missing = append(missing, metric)
		if present && !usableParam(param, hasParam) {
			normMissing = append(normMissing, metric)
		}
	}

	if availableWeight == 0 {
		return nil, false
	}

	weightedSum := 0.0
	for metric, component := range componentByMetric {
		adjustedWeight := CanonicalWeights[metric] / availableWeight
		weightedSum += adjustedWeight * component
	}

	sort.Strings(missing)
	sort.Strings(normMissing)

	return &Result{
		Score:         Round1(100 * weightedSum),
		Partial:       len(missing) > 0,
		Missing:       missing,
		LowConfidence: availableWeight < lowConfidenceThreshold,
		NormMissing:   normMissing,
	}, true
}

// ComponentScores returns the per-metric normalized score (0-100,
// rounded to one decimal) for UI presentation. A metric lacking a raw
// value or a usable normalization parameter maps to nil rather than
// being omitted, so callers can render a fixed set of columns.
func ComponentScores(raw entity.RawMetricRecord, params map[string]entity.NormalizationParam) map[string]*float64 {
	out := make(map[string]*float64, len(entity.AllMetrics))
	for _, metric := range entity.AllMetrics {
		val, present := raw.Get(metric)
		param, hasParam := params[metric]
		if !present || !usableParam(param, hasParam) {
			out[metric] = nil
			continue
		}
		score := Round1(100 * ClampNormalize(val, param.MinVal, param.MaxVal))
		out[metric] = &score
	}
	return out
}
