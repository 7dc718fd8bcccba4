package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"jobtrack-backend/internal/tracker/domain"
)

type JobRepository interface {
	FindOrCreate(ctx context.Context, companyID, title string) (*domain.Job, error)
}

type jobRepository struct {
	db *gorm.DB
}

func NewJobRepository(db *gorm.DB) JobRepository {
	return &jobRepository{db: db}
}

// FindOrCreate resolves a job by (company, title), inserting it on first
// reference.
func (r *jobRepository) FindOrCreate(ctx context.Context, companyID, title string) (*domain.Job, error) {
	title = strings.Join(strings.Fields(title), " ")
	if title == "" {
		title = domain.UnknownRole
	}

	candidate := &domain.Job{
		ID:        uuid.New().String(),
		CompanyID: companyID,
		Title:     title,
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "company_id"}, {Name: "title"}},
		DoNothing: true,
	}).Create(candidate).Error
	if err != nil {
		return nil, eris.Wrap(err, "jobs: insert")
	}

	var job domain.Job
	err = r.db.WithContext(ctx).
		Where("company_id = ? AND title = ?", companyID, title).
		First(&job).Error
	if err != nil {
		return nil, eris.Wrap(err, "jobs: read back")
	}
	return &job, nil
}
