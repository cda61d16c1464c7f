package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"macro-stress-pipeline/internal/entity"
)

// NormParamRepository is the normalization_params persistence layer.
type NormParamRepository interface {
	// AllIndexed loads every normalization param, indexed by country
	// ID then metric name, for the scoring engine's prelude read.
	AllIndexed(ctx context.Context) (map[uint]map[string]entity.NormalizationParam, error)

	// Upsert writes one (country, metric) bound, replacing any
	// existing row for that key entirely.
	Upsert(ctx context.Context, param *entity.NormalizationParam) error
}

type normParamRepository struct {
	db *gorm.DB
}

// NewNormParamRepository builds the normalization-params repository.
func NewNormParamRepository(db *gorm.DB) NormParamRepository {
	return &normParamRepository{db: db}
}

func (r *normParamRepository) AllIndexed(ctx context.Context) (map[uint]map[string]entity.NormalizationParam, error) {
	var params []entity.NormalizationParam
	if err := r.db.WithContext(ctx).Find(&params).Error; err != nil {
		return nil, fmt.Errorf("load normalization params: %w", err)
	}

	byCountry := make(map[uint]map[string]entity.NormalizationParam)
	for _, p := range params {
		if byCountry[p.CountryID] == nil {
			byCountry[p.CountryID] = make(map[string]entity.NormalizationParam)
		}
		byCountry[p.CountryID][p.MetricName] = p
	}
	return byCountry, nil
}

func (r *normParamRepository) Upsert(ctx context.Context, param *entity.NormalizationParam) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "country_id"}, {Name: "metric_name"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"min_val", "max_val", "method", "window_start", "window_end", "updated_at",
		}),
	}).Create(param).Error
	if err != nil {
		return fmt.Errorf("upsert normalization param: %w", err)
	}
	return nil
}
