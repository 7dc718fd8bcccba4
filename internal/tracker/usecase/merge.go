package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"jobtrack-backend/internal/tracker/domain"
	"jobtrack-backend/internal/tracker/repository"
)

// MergeInput is one email's evidence about one application.
type MergeInput struct {
	OwnerID    string
	Signal     domain.Signal
	Subject    string
	ExternalID string
	ReceivedAt time.Time
	// Force lets the signal move the status in any direction.
	Force bool
}

type MergeOutcome string

const (
	// MergeSkipped means the signal named no company and nothing was touched.
	MergeSkipped   MergeOutcome = "skipped"
	MergeCreated   MergeOutcome = "created"
	MergeUpdated   MergeOutcome = "updated"
	MergeUnchanged MergeOutcome = "unchanged"
)

type MergeResult struct {
	Outcome     MergeOutcome
	Application *domain.Application
	Company     *domain.Company
	Job         *domain.Job
	// Previous is the status before the merge; empty when the application
	// was created.
	Previous domain.LifecycleStatus
}

func (r MergeResult) Created() bool { return r.Outcome == MergeCreated }
func (r MergeResult) Updated() bool { return r.Outcome == MergeUpdated }

// Merger folds email signals into stored applications. Status only moves to
// a higher rank unless forced, CreatedAt only moves earlier, and every merge
// that reaches an application appends exactly one activity.
type Merger struct {
	logger *zap.Logger
}

func NewMerger(logger *zap.Logger) *Merger {
	return &Merger{logger: logger.Named("merge")}
}

// Merge applies in using repos. Run it inside a transaction to make the
// company, job, application and activity writes atomic.
func (m *Merger) Merge(ctx context.Context, repos repository.Repositories, in MergeInput) (MergeResult, error) {
	if !in.Signal.HasCompany() {
		return MergeResult{Outcome: MergeSkipped}, nil
	}

	company, err := repos.Companies().FindOrCreate(ctx, in.Signal.Company, nil)
	if err != nil {
		return MergeResult{}, eris.Wrap(err, "merge: company")
	}
	job, err := repos.Jobs().FindOrCreate(ctx, company.ID, in.Signal.JobTitle())
	if err != nil {
		return MergeResult{}, eris.Wrap(err, "merge: job")
	}

	existing, err := repos.Applications().FindByOwnerAndJob(ctx, in.OwnerID, job.ID)
	if err != nil {
		return MergeResult{}, eris.Wrap(err, "merge: find application")
	}

	if existing == nil {
		app := &domain.Application{
			UserID:    in.OwnerID,
			JobID:     job.ID,
			Status:    in.Signal.Status,
			CreatedAt: in.ReceivedAt,
		}
		created, err := repos.Applications().CreateIfAbsent(ctx, app)
		if err != nil {
			return MergeResult{}, eris.Wrap(err, "merge: create application")
		}
		if created {
			details := fmt.Sprintf("Detected %s from email: %s", in.Signal.Status, in.Subject)
			if err := m.appendActivity(ctx, repos, app.ID, in, in.Signal.Status, details); err != nil {
				return MergeResult{}, err
			}
			m.logger.Debug("application created",
				zap.String("application_id", app.ID),
				zap.String("status", string(app.Status)))
			return MergeResult{Outcome: MergeCreated, Application: app, Company: company, Job: job}, nil
		}

		// Another run inserted it between our read and write.
		existing, err = repos.Applications().FindByOwnerAndJob(ctx, in.OwnerID, job.ID)
		if err != nil {
			return MergeResult{}, eris.Wrap(err, "merge: reread application")
		}
		if existing == nil {
			return MergeResult{}, eris.New("merge: application vanished after conflict")
		}
	}

	return m.mergeExisting(ctx, repos, existing, company, job, in)
}

func (m *Merger) mergeExisting(ctx context.Context, repos repository.Repositories, app *domain.Application, company *domain.Company, job *domain.Job, in MergeInput) (MergeResult, error) {
	previous := app.Status
	advance := in.Signal.Status.Outranks(previous) || (in.Force && in.Signal.Status != previous)

	var update repository.ApplicationUpdate
	if advance {
		status := in.Signal.Status
		update.Status = &status
	}
	if in.ReceivedAt.Before(app.CreatedAt) {
		earliest := in.ReceivedAt
		update.CreatedAt = &earliest
	}
	if err := repos.Applications().Update(ctx, app.ID, update); err != nil {
		return MergeResult{}, eris.Wrap(err, "merge: update application")
	}
	if update.Status != nil {
		app.Status = *update.Status
	}
	if update.CreatedAt != nil {
		app.CreatedAt = *update.CreatedAt
	}

	outcome := MergeUnchanged
	details := fmt.Sprintf("Email processed, status unchanged (%s): %s", previous, in.Subject)
	if advance {
		outcome = MergeUpdated
		details = fmt.Sprintf("Status updated from %s to %s by email: %s", previous, app.Status, in.Subject)
	}
	if err := m.appendActivity(ctx, repos, app.ID, in, app.Status, details); err != nil {
		return MergeResult{}, err
	}

	m.logger.Debug("application merged",
		zap.String("application_id", app.ID),
		zap.String("outcome", string(outcome)),
		zap.String("from", string(previous)),
		zap.String("to", string(app.Status)))
	return MergeResult{Outcome: outcome, Application: app, Company: company, Job: job, Previous: previous}, nil
}

func (m *Merger) appendActivity(ctx context.Context, repos repository.Repositories, applicationID string, in MergeInput, status domain.LifecycleStatus, details string) error {
	activity := &domain.Activity{
		ApplicationID: applicationID,
		Kind:          domain.ActivityEmail,
		Status:        status,
		Details:       details,
	}
	if in.ExternalID != "" {
		externalID := in.ExternalID
		activity.ExternalID = &externalID
	}
	if err := repos.Activities().Append(ctx, activity); err != nil {
		return eris.Wrap(err, "merge: append activity")
	}
	return nil
}
