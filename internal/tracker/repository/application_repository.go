package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"jobtrack-backend/internal/tracker/domain"
)

// ApplicationUpdate lists the fields a caller wants to change. Nil fields
// are left alone.
type ApplicationUpdate struct {
	Status    *domain.LifecycleStatus
	CreatedAt *time.Time
}

type ApplicationRepository interface {
	// CreateIfAbsent inserts app unless the owner already tracks the job.
	// It reports whether app was inserted.
	CreateIfAbsent(ctx context.Context, app *domain.Application) (bool, error)
	FindByOwnerAndJob(ctx context.Context, ownerID, jobID string) (*domain.Application, error)
	FindByID(ctx context.Context, id string) (*domain.Application, error)
	Update(ctx context.Context, id string, update ApplicationUpdate) error
	ListByOwner(ctx context.Context, ownerID string, status *domain.LifecycleStatus) ([]domain.Application, error)
	CountByStatus(ctx context.Context, ownerID string) ([]domain.StatusCount, error)
	// Delete removes the application together with its activity log.
	Delete(ctx context.Context, id string) error
}

type applicationRepository struct {
	db *gorm.DB
}

func NewApplicationRepository(db *gorm.DB) ApplicationRepository {
	return &applicationRepository{db: db}
}

func (r *applicationRepository) CreateIfAbsent(ctx context.Context, app *domain.Application) (bool, error) {
	if app.ID == "" {
		app.ID = uuid.New().String()
	}
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "job_id"}},
		DoNothing: true,
	}).Omit(clause.Associations).Create(app)
	if result.Error != nil {
		return false, eris.Wrap(result.Error, "applications: insert")
	}
	return result.RowsAffected > 0, nil
}

func (r *applicationRepository) FindByOwnerAndJob(ctx context.Context, ownerID, jobID string) (*domain.Application, error) {
	var app domain.Application
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND job_id = ?", ownerID, jobID).
		First(&app).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "applications: find by owner and job")
	}
	return &app, nil
}

// FindByID loads the application with its job, company and activity log,
// newest activity first.
func (r *applicationRepository) FindByID(ctx context.Context, id string) (*domain.Application, error) {
	var app domain.Application
	err := r.db.WithContext(ctx).
		Preload("Job.Company").
		Preload("Activities", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC")
		}).
		Where("id = ?", id).
		First(&app).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "applications: find")
	}
	return &app, nil
}

func (r *applicationRepository) Update(ctx context.Context, id string, update ApplicationUpdate) error {
	fields := map[string]interface{}{}
	if update.Status != nil {
		fields["status"] = *update.Status
	}
	if update.CreatedAt != nil {
		fields["created_at"] = *update.CreatedAt
	}
	if len(fields) == 0 {
		return nil
	}
	fields["updated_at"] = time.Now()

	err := r.db.WithContext(ctx).
		Model(&domain.Application{}).
		Where("id = ?", id).
		Updates(fields).Error
	if err != nil {
		return eris.Wrap(err, "applications: update")
	}
	return nil
}

func (r *applicationRepository) ListByOwner(ctx context.Context, ownerID string, status *domain.LifecycleStatus) ([]domain.Application, error) {
	query := r.db.WithContext(ctx).
		Preload("Job.Company").
		Where("user_id = ?", ownerID)
	if status != nil {
		query = query.Where("status = ?", *status)
	}

	var apps []domain.Application
	if err := query.Order("created_at DESC").Find(&apps).Error; err != nil {
		return nil, eris.Wrap(err, "applications: list")
	}
	return apps, nil
}

func (r *applicationRepository) CountByStatus(ctx context.Context, ownerID string) ([]domain.StatusCount, error) {
	var counts []domain.StatusCount
	err := r.db.WithContext(ctx).
		Model(&domain.Application{}).
		Select("status, count(*) AS count").
		Where("user_id = ?", ownerID).
		Group("status").
		Scan(&counts).Error
	if err != nil {
		return nil, eris.Wrap(err, "applications: count by status")
	}
	return counts, nil
}

func (r *applicationRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("application_id = ?", id).Delete(&domain.Activity{}).Error; err != nil {
			return eris.Wrap(err, "applications: delete activities")
		}
		if err := tx.Where("id = ?", id).Delete(&domain.Application{}).Error; err != nil {
			return eris.Wrap(err, "applications: delete")
		}
		return nil
	})
}
