package entity

// Metric name constants, shared by the scoring engine, the
// normalization builder, and the store's point-query helpers. These
// are never persisted as column names directly (see
// DailyObservation) but identify a metric across normalization_params
// rows and RawMetricRecord fields.
const (
	MetricFXVol             = "fx_vol"
	MetricInflation         = "inflation"
	MetricRiskSpread        = "risk_spread"
	MetricCryptoRatio       = "crypto_ratio"
	MetricReservesChange    = "reserves_change"
	MetricStablecoinPremium = "stablecoin_premium"
)

// AllMetrics lists every metric name the scoring engine and
// normalization builder know about, in a stable order.
var AllMetrics = []string{
	MetricFXVol,
	MetricInflation,
	MetricRiskSpread,
	MetricCryptoRatio,
	MetricReservesChange,
	MetricStablecoinPremium,
}

// RawMetricRecord is the transient tuple fed to the scoring engine. A
// nil field means "missing", never a default zero — zero is a valid
// normalized reading and must not be conflated with absence.
type RawMetricRecord struct {
	FXVol             *float64
	Inflation         *float64
	RiskSpread        *float64
	CryptoRatio       *float64
	ReservesChange    *float64
	StablecoinPremium *float64
}

// Get returns the value for a named metric and whether it is present.
func (r RawMetricRecord) Get(metric string) (float64, bool) {
	var v *float64
	switch metric {
	case MetricFXVol:
		v = r.FXVol
	case MetricInflation:
		v = r.Inflation
	case MetricRiskSpread:
		v = r.RiskSpread
	case MetricCryptoRatio:
		v = r.CryptoRatio
	case MetricReservesChange:
		v = r.ReservesChange
	case MetricStablecoinPremium:
		v = r.StablecoinPremium
	default:
		return 0, false
	}
	if v == nil {
		return 0, false
	}
	return *v, true
}
