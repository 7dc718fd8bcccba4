package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"jobtrack-backend/internal/ingest/domain"
)

// EmailEventRepository is the deduplication ledger.
type EmailEventRepository interface {
	HasProcessed(ctx context.Context, ownerID, externalID string) (bool, error)
	// Record inserts the entry or, for an already known message, overwrites
	// its detection fields and processing time.
	Record(ctx context.Context, event *domain.EmailEvent) error
	ListByOwner(ctx context.Context, ownerID string, limit int) ([]domain.EmailEvent, error)
	LastProcessedAt(ctx context.Context, ownerID string) (*time.Time, error)
}

type emailEventRepository struct {
	db *gorm.DB
}

func NewEmailEventRepository(db *gorm.DB) EmailEventRepository {
	return &emailEventRepository{db: db}
}

func (r *emailEventRepository) HasProcessed(ctx context.Context, ownerID, externalID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.EmailEvent{}).
		Where("user_id = ? AND external_id = ?", ownerID, externalID).
		Count(&count).Error
	if err != nil {
		return false, eris.Wrap(err, "email events: lookup")
	}
	return count > 0, nil
}

func (r *emailEventRepository) Record(ctx context.Context, event *domain.EmailEvent) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "external_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"subject",
			"sender",
			"snippet",
			"detected_status",
			"detected_company",
			"detected_position",
			"received_at",
			"processed_at",
			"updated_at",
		}),
	}).Create(event).Error
	if err != nil {
		return eris.Wrap(err, "email events: record")
	}
	return nil
}

func (r *emailEventRepository) ListByOwner(ctx context.Context, ownerID string, limit int) ([]domain.EmailEvent, error) {
	var events []domain.EmailEvent
	query := r.db.WithContext(ctx).
		Where("user_id = ?", ownerID).
		Order("processed_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&events).Error; err != nil {
		return nil, eris.Wrap(err, "email events: list")
	}
	return events, nil
}

// LastProcessedAt returns nil when the owner has no ledger entries.
func (r *emailEventRepository) LastProcessedAt(ctx context.Context, ownerID string) (*time.Time, error) {
	var events []domain.EmailEvent
	err := r.db.WithContext(ctx).
		Where("user_id = ?", ownerID).
		Order("processed_at DESC").
		Limit(1).
		Find(&events).Error
	if err != nil {
		return nil, eris.Wrap(err, "email events: last processed")
	}
	if len(events) == 0 {
		return nil, nil
	}
	return &events[0].ProcessedAt, nil
}
