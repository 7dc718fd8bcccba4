package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"jobtrack-backend/internal/tracker/domain"
)

// CompanyRepository resolves companies by normalized name.
type CompanyRepository interface {
	FindOrCreate(ctx context.Context, name string, location *string) (*domain.Company, error)
	FindByID(ctx context.Context, id string) (*domain.Company, error)
}

type companyRepository struct {
	db *gorm.DB
}

func NewCompanyRepository(db *gorm.DB) CompanyRepository {
	return &companyRepository{db: db}
}

// FindOrCreate inserts the company unless one with the same normalized name
// exists, then reads back whichever row won. Concurrent callers converge on
// one row. A location fills in a missing one but never replaces it.
func (r *companyRepository) FindOrCreate(ctx context.Context, name string, location *string) (*domain.Company, error) {
	key := domain.CompanyKey(name)
	if key == "" {
		return nil, eris.New("companies: empty name")
	}

	candidate := &domain.Company{
		ID:       uuid.New().String(),
		Name:     strings.Join(strings.Fields(name), " "),
		NameKey:  key,
		Location: location,
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name_key"}},
		DoNothing: true,
	}).Create(candidate).Error
	if err != nil {
		return nil, eris.Wrap(err, "companies: insert")
	}

	var company domain.Company
	if err := r.db.WithContext(ctx).Where("name_key = ?", key).First(&company).Error; err != nil {
		return nil, eris.Wrap(err, "companies: read back")
	}

	if company.Location == nil && location != nil && *location != "" {
		if err := r.db.WithContext(ctx).Model(&company).Update("location", *location).Error; err != nil {
			return nil, eris.Wrap(err, "companies: set location")
		}
		company.Location = location
	}
	return &company, nil
}

func (r *companyRepository) FindByID(ctx context.Context, id string) (*domain.Company, error) {
	var company domain.Company
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&company).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "companies: find")
	}
	return &company, nil
}
