package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"macro-stress-pipeline/internal/entity"
)

// CountryRepository loads the stable country registry.
type CountryRepository interface {
	All(ctx context.Context) ([]entity.Country, error)
	FindByISO2(ctx context.Context, iso2 string) (*entity.Country, error)
}

type countryRepository struct {
	db *gorm.DB
}

// NewCountryRepository builds the country repository.
func NewCountryRepository(db *gorm.DB) CountryRepository {
	return &countryRepository{db: db}
}

func (r *countryRepository) All(ctx context.Context) ([]entity.Country, error) {
	var countries []entity.Country
	if err := r.db.WithContext(ctx).Order("id asc").Find(&countries).Error; err != nil {
		return nil, fmt.Errorf("load countries: %w", err)
	}
	return countries, nil
}

func (r *countryRepository) FindByISO2(ctx context.Context, iso2 string) (*entity.Country, error) {
	var country entity.Country
	err := r.db.WithContext(ctx).Where("iso2 = ?", iso2).First(&country).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find country %s: %w", iso2, err)
	}
	return &country, nil
}
