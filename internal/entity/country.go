package entity

// Country is the stable, seed-once country registry. It is never
// mutated by the pipeline; primary_source_series_id is the opaque
// series identifier used by the primary sovereign-yield source when
// that source covers the country, and is empty when the country
// relies on the SDMX fallback adapter instead.
type Country struct {
	ID                    uint   `gorm:"primaryKey"`
	Name                  string `gorm:"not null"`
	ISO2                  string `gorm:"column:iso2;uniqueIndex;not null"`
	ISO3                  string `gorm:"column:iso3;uniqueIndex;not null"`
	IMFCode               string `gorm:"column:imf_code"`
	Currency              string `gorm:"not null"`
	PrimarySourceSeriesID string `gorm:"column:primary_source_series_id"`
}

func (Country) TableName() string {
	return "countries"
}

// HasPrimaryYieldSource reports whether this country's sovereign yield
// should be fetched from the primary macroeconomic source rather than
// the SDMX-style fallback.
func (c Country) HasPrimaryYieldSource() bool {
	return c.PrimarySourceSeriesID != ""
}
