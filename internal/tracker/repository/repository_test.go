package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobtrack-backend/internal/testutil"
	"jobtrack-backend/internal/tracker/domain"
)

func TestCompanyFindOrCreateNormalizesName(t *testing.T) {
	repos := NewRepositories(testutil.NewDB(t))
	ctx := context.Background()

	first, err := repos.Companies().FindOrCreate(ctx, "  Acme   Corp ", nil)
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", first.Name)

	again, err := repos.Companies().FindOrCreate(ctx, "ACME corp", nil)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, "Acme Corp", again.Name)

	_, err = repos.Companies().FindOrCreate(ctx, "   ", nil)
	assert.Error(t, err)
}

func TestCompanyFindOrCreateFillsLocation(t *testing.T) {
	repos := NewRepositories(testutil.NewDB(t))
	ctx := context.Background()

	_, err := repos.Companies().FindOrCreate(ctx, "Globex", nil)
	require.NoError(t, err)

	berlin, remote := "Berlin", "Remote"
	withLocation, err := repos.Companies().FindOrCreate(ctx, "Globex", &berlin)
	require.NoError(t, err)
	require.NotNil(t, withLocation.Location)
	assert.Equal(t, "Berlin", *withLocation.Location)

	kept, err := repos.Companies().FindOrCreate(ctx, "Globex", &remote)
	require.NoError(t, err)
	assert.Equal(t, "Berlin", *kept.Location)

	found, err := repos.Companies().FindByID(ctx, kept.ID)
	require.NoError(t, err)
	assert.Equal(t, "Berlin", *found.Location)

	missing, err := repos.Companies().FindByID(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestJobFindOrCreate(t *testing.T) {
	repos := NewRepositories(testutil.NewDB(t))
	ctx := context.Background()
	company, err := repos.Companies().FindOrCreate(ctx, "Initech", nil)
	require.NoError(t, err)

	job, err := repos.Jobs().FindOrCreate(ctx, company.ID, "Backend  Engineer")
	require.NoError(t, err)
	assert.Equal(t, "Backend Engineer", job.Title)

	same, err := repos.Jobs().FindOrCreate(ctx, company.ID, "Backend Engineer")
	require.NoError(t, err)
	assert.Equal(t, job.ID, same.ID)

	unknown, err := repos.Jobs().FindOrCreate(ctx, company.ID, "")
	require.NoError(t, err)
	assert.Equal(t, domain.UnknownRole, unknown.Title)
}

func seedApplication(t *testing.T, repos Repositories, owner, company, title string, status domain.LifecycleStatus, createdAt time.Time) *domain.Application {
	t.Helper()
	ctx := context.Background()
	c, err := repos.Companies().FindOrCreate(ctx, company, nil)
	require.NoError(t, err)
	j, err := repos.Jobs().FindOrCreate(ctx, c.ID, title)
	require.NoError(t, err)

	app := &domain.Application{UserID: owner, JobID: j.ID, Status: status, CreatedAt: createdAt}
	created, err := repos.Applications().CreateIfAbsent(ctx, app)
	require.NoError(t, err)
	require.True(t, created)
	return app
}

func TestApplicationCreateIfAbsent(t *testing.T) {
	repos := NewRepositories(testutil.NewDB(t))
	ctx := context.Background()
	app := seedApplication(t, repos, "u1", "Acme", "SRE", domain.StatusApplied, time.Now())

	dup := &domain.Application{UserID: "u1", JobID: app.JobID, Status: domain.StatusOffer}
	created, err := repos.Applications().CreateIfAbsent(ctx, dup)
	require.NoError(t, err)
	assert.False(t, created)

	found, err := repos.Applications().FindByOwnerAndJob(ctx, "u1", app.JobID)
	require.NoError(t, err)
	assert.Equal(t, app.ID, found.ID)
	assert.Equal(t, domain.StatusApplied, found.Status)

	other, err := repos.Applications().FindByOwnerAndJob(ctx, "u2", app.JobID)
	require.NoError(t, err)
	assert.Nil(t, other)
}

func TestApplicationUpdateAndList(t *testing.T) {
	repos := NewRepositories(testutil.NewDB(t))
	ctx := context.Background()
	base := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)

	older := seedApplication(t, repos, "u1", "Acme", "SRE", domain.StatusApplied, base)
	newer := seedApplication(t, repos, "u1", "Globex", "Analyst", domain.StatusApplied, base.Add(24*time.Hour))
	seedApplication(t, repos, "u2", "Acme", "SRE", domain.StatusApplied, base)

	interview := domain.StatusInterview
	earlier := base.Add(-time.Hour)
	require.NoError(t, repos.Applications().Update(ctx, older.ID, ApplicationUpdate{Status: &interview, CreatedAt: &earlier}))
	require.NoError(t, repos.Applications().Update(ctx, newer.ID, ApplicationUpdate{}))

	got, err := repos.Applications().FindByID(ctx, older.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInterview, got.Status)
	assert.True(t, got.CreatedAt.Equal(earlier))
	require.NotNil(t, got.Job)
	require.NotNil(t, got.Job.Company)
	assert.Equal(t, "Acme", got.Job.Company.Name)

	all, err := repos.Applications().ListByOwner(ctx, "u1", nil)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, newer.ID, all[0].ID, "newest first")

	filtered, err := repos.Applications().ListByOwner(ctx, "u1", &interview)
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, older.ID, filtered[0].ID)
}

func TestApplicationCountByStatus(t *testing.T) {
	repos := NewRepositories(testutil.NewDB(t))
	ctx := context.Background()
	now := time.Now()

	seedApplication(t, repos, "u1", "Acme", "SRE", domain.StatusApplied, now)
	seedApplication(t, repos, "u1", "Globex", "SRE", domain.StatusApplied, now)
	seedApplication(t, repos, "u1", "Initech", "SRE", domain.StatusOffer, now)
	seedApplication(t, repos, "u2", "Acme", "SRE", domain.StatusRejected, now)

	counts, err := repos.Applications().CountByStatus(ctx, "u1")
	require.NoError(t, err)

	byStatus := map[domain.LifecycleStatus]int64{}
	for _, c := range counts {
		byStatus[c.Status] = c.Count
	}
	assert.Equal(t, map[domain.LifecycleStatus]int64{
		domain.StatusApplied: 2,
		domain.StatusOffer:   1,
	}, byStatus)
}

func TestApplicationDeleteRemovesActivities(t *testing.T) {
	db := testutil.NewDB(t)
	repos := NewRepositories(db)
	ctx := context.Background()
	app := seedApplication(t, repos, "u1", "Acme", "SRE", domain.StatusApplied, time.Now())

	require.NoError(t, repos.Activities().Append(ctx, &domain.Activity{
		ApplicationID: app.ID, Kind: domain.ActivityManual, Status: domain.StatusApplied, Details: "added",
	}))

	require.NoError(t, repos.Applications().Delete(ctx, app.ID))

	gone, err := repos.Applications().FindByID(ctx, app.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)

	var n int64
	require.NoError(t, db.Model(&domain.Activity{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestActivityListings(t *testing.T) {
	repos := NewRepositories(testutil.NewDB(t))
	ctx := context.Background()
	mine := seedApplication(t, repos, "u1", "Acme", "SRE", domain.StatusApplied, time.Now())
	theirs := seedApplication(t, repos, "u2", "Acme", "SRE", domain.StatusApplied, time.Now())

	base := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	for i, details := range []string{"first", "second", "third"} {
		require.NoError(t, repos.Activities().Append(ctx, &domain.Activity{
			ApplicationID: mine.ID,
			Kind:          domain.ActivityEmail,
			Status:        domain.StatusApplied,
			Details:       details,
			CreatedAt:     base.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, repos.Activities().Append(ctx, &domain.Activity{
		ApplicationID: theirs.ID, Kind: domain.ActivityEmail, Status: domain.StatusApplied, Details: "other",
	}))

	log, err := repos.Activities().ListByApplication(ctx, mine.ID)
	require.NoError(t, err)
	require.Len(t, log, 3)
	assert.Equal(t, "first", log[0].Details)

	recent, err := repos.Activities().ListRecentByOwner(ctx, "u1", 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "third", recent[0].Details)
	assert.Equal(t, "second", recent[1].Details)
}

func TestTransactionRollsBack(t *testing.T) {
	db := testutil.NewDB(t)
	repos := NewRepositories(db)
	ctx := context.Background()

	err := repos.Transaction(ctx, func(tx Repositories) error {
		if _, err := tx.Companies().FindOrCreate(ctx, "Rollback Inc", nil); err != nil {
			return err
		}
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	var n int64
	require.NoError(t, db.Model(&domain.Company{}).Where("name_key = ?", "rollback inc").Count(&n).Error)
	assert.Zero(t, n)
}
