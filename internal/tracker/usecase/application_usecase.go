package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"jobtrack-backend/internal/tracker/domain"
	"jobtrack-backend/internal/tracker/dto"
	"jobtrack-backend/internal/tracker/repository"
	"jobtrack-backend/pkg/fuzzy"
)

var (
	ErrApplicationNotFound = errors.New("application not found")
	ErrForbidden           = errors.New("application belongs to another user")
	ErrApplicationExists   = errors.New("application already tracked")
	ErrInvalidStatus       = errors.New("invalid status")
	ErrInvalidInput        = errors.New("invalid input")
)

const (
	DefaultActivityLimit = 20
	MaxActivityLimit     = 100
)

// ApplicationUsecase is the manual side of the tracker: everything a user can
// do to their applications without an email.
type ApplicationUsecase interface {
	Create(ctx context.Context, ownerID string, req dto.CreateApplicationRequest) (*domain.Application, error)
	List(ctx context.Context, ownerID, status string) ([]domain.Application, error)
	// Search ranks the owner's applications by how well company and position
	// match query, dropping non-matches.
	Search(ctx context.Context, ownerID, query, status string) ([]domain.Application, error)
	Get(ctx context.Context, ownerID, id string) (*domain.Application, error)
	UpdateStatus(ctx context.Context, ownerID, id string, req dto.UpdateStatusRequest) (*domain.Application, error)
	Delete(ctx context.Context, ownerID, id string) error
	Stats(ctx context.Context, ownerID string) (*dto.StatsResponse, error)
	RecentActivity(ctx context.Context, ownerID string, limit int) ([]domain.Activity, error)
}

type applicationUsecase struct {
	repos  repository.Repositories
	logger *zap.Logger
}

func NewApplicationUsecase(repos repository.Repositories, logger *zap.Logger) ApplicationUsecase {
	return &applicationUsecase{repos: repos, logger: logger.Named("applications")}
}

func (u *applicationUsecase) Create(ctx context.Context, ownerID string, req dto.CreateApplicationRequest) (*domain.Application, error) {
	if strings.TrimSpace(req.Company) == "" {
		return nil, eris.Wrap(ErrInvalidInput, "company is required")
	}
	status := domain.StatusSaved
	if req.Status != "" {
		parsed, ok := domain.ParseStatus(req.Status)
		if !ok {
			return nil, eris.Wrapf(ErrInvalidStatus, "%q", req.Status)
		}
		status = parsed
	}

	var created *domain.Application
	err := u.repos.Transaction(ctx, func(tx repository.Repositories) error {
		company, err := tx.Companies().FindOrCreate(ctx, req.Company, req.Location)
		if err != nil {
			return err
		}
		job, err := tx.Jobs().FindOrCreate(ctx, company.ID, req.Position)
		if err != nil {
			return err
		}

		app := &domain.Application{UserID: ownerID, JobID: job.ID, Status: status}
		inserted, err := tx.Applications().CreateIfAbsent(ctx, app)
		if err != nil {
			return err
		}
		if !inserted {
			return ErrApplicationExists
		}

		activity := &domain.Activity{
			ApplicationID: app.ID,
			Kind:          domain.ActivityManual,
			Status:        status,
			Details:       fmt.Sprintf("Added manually as %s", status),
		}
		if err := tx.Activities().Append(ctx, activity); err != nil {
			return err
		}

		job.Company = company
		app.Job = job
		app.Activities = []domain.Activity{*activity}
		created = app
		return nil
	})
	if err != nil {
		return nil, err
	}

	u.logger.Info("application added",
		zap.String("user_id", ownerID),
		zap.String("application_id", created.ID))
	return created, nil
}

func (u *applicationUsecase) List(ctx context.Context, ownerID, status string) ([]domain.Application, error) {
	var filter *domain.LifecycleStatus
	if status != "" {
		parsed, ok := domain.ParseStatus(status)
		if !ok {
			return nil, eris.Wrapf(ErrInvalidStatus, "%q", status)
		}
		filter = &parsed
	}
	return u.repos.Applications().ListByOwner(ctx, ownerID, filter)
}

func (u *applicationUsecase) Search(ctx context.Context, ownerID, query, status string) ([]domain.Application, error) {
	apps, err := u.List(ctx, ownerID, status)
	if err != nil || strings.TrimSpace(query) == "" {
		return apps, err
	}

	type ranked struct {
		app   domain.Application
		score float64
	}
	hits := make([]ranked, 0, len(apps))
	for _, app := range apps {
		var company, title string
		if app.Job != nil {
			title = app.Job.Title
			if app.Job.Company != nil {
				company = app.Job.Company.Name
			}
		}
		score := fuzzy.Score(query,
			fuzzy.Field{Text: company, Weight: 2},
			fuzzy.Field{Text: title, Weight: 1})
		if score > 0 {
			hits = append(hits, ranked{app: app, score: score})
		}
	}
	// Ties keep the newest-first order of List.
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })

	out := make([]domain.Application, len(hits))
	for i, h := range hits {
		out[i] = h.app
	}
	return out, nil
}

func (u *applicationUsecase) Get(ctx context.Context, ownerID, id string) (*domain.Application, error) {
	app, err := u.repos.Applications().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if app == nil {
		return nil, ErrApplicationNotFound
	}
	if app.UserID != ownerID {
		return nil, ErrForbidden
	}
	return app, nil
}

// UpdateStatus is a manual override and may move the status in any direction.
func (u *applicationUsecase) UpdateStatus(ctx context.Context, ownerID, id string, req dto.UpdateStatusRequest) (*domain.Application, error) {
	status, ok := domain.ParseStatus(req.Status)
	if !ok {
		return nil, eris.Wrapf(ErrInvalidStatus, "%q", req.Status)
	}
	app, err := u.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	previous := app.Status

	err = u.repos.Transaction(ctx, func(tx repository.Repositories) error {
		if err := tx.Applications().Update(ctx, id, repository.ApplicationUpdate{Status: &status}); err != nil {
			return err
		}
		details := fmt.Sprintf("Status changed from %s to %s", previous, status)
		if note := strings.TrimSpace(req.Note); note != "" {
			details += ": " + note
		}
		return tx.Activities().Append(ctx, &domain.Activity{
			ApplicationID: id,
			Kind:          domain.ActivityManual,
			Status:        status,
			Details:       details,
		})
	})
	if err != nil {
		return nil, err
	}

	return u.Get(ctx, ownerID, id)
}

func (u *applicationUsecase) Delete(ctx context.Context, ownerID, id string) error {
	if _, err := u.Get(ctx, ownerID, id); err != nil {
		return err
	}
	if err := u.repos.Applications().Delete(ctx, id); err != nil {
		return err
	}
	u.logger.Info("application deleted",
		zap.String("user_id", ownerID),
		zap.String("application_id", id))
	return nil
}

func (u *applicationUsecase) Stats(ctx context.Context, ownerID string) (*dto.StatsResponse, error) {
	counts, err := u.repos.Applications().CountByStatus(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	resp := &dto.StatsResponse{Counts: make(map[domain.LifecycleStatus]int64)}
	for _, status := range domain.AllStatuses() {
		resp.Counts[status] = 0
	}
	for _, c := range counts {
		if !c.Status.Valid() {
			continue
		}
		resp.Counts[c.Status] = c.Count
		resp.Total += c.Count
	}
	return resp, nil
}

func (u *applicationUsecase) RecentActivity(ctx context.Context, ownerID string, limit int) ([]domain.Activity, error) {
	if limit <= 0 {
		limit = DefaultActivityLimit
	}
	if limit > MaxActivityLimit {
		limit = MaxActivityLimit
	}
	return u.repos.Activities().ListRecentByOwner(ctx, ownerID, limit)
}
