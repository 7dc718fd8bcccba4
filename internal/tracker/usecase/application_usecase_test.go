package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"jobtrack-backend/internal/testutil"
	"jobtrack-backend/internal/tracker/domain"
	"jobtrack-backend/internal/tracker/dto"
	"jobtrack-backend/internal/tracker/repository"
)

func newApplicationUsecase(t *testing.T) ApplicationUsecase {
	return NewApplicationUsecase(repository.NewRepositories(testutil.NewDB(t)), zap.NewNop())
}

func TestCreateApplication(t *testing.T) {
	uc := newApplicationUsecase(t)
	ctx := context.Background()
	remote := "Remote"

	app, err := uc.Create(ctx, "u1", dto.CreateApplicationRequest{Company: "Acme", Position: "SRE", Location: &remote})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSaved, app.Status)
	assert.Equal(t, "Acme", app.Job.Company.Name)
	require.Len(t, app.Activities, 1)
	assert.Equal(t, domain.ActivityManual, app.Activities[0].Kind)

	_, err = uc.Create(ctx, "u1", dto.CreateApplicationRequest{Company: "acme", Position: "SRE"})
	assert.ErrorIs(t, err, ErrApplicationExists)

	other, err := uc.Create(ctx, "u2", dto.CreateApplicationRequest{Company: "Acme", Position: "SRE", Status: "applied"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApplied, other.Status)
}

func TestCreateApplicationValidation(t *testing.T) {
	uc := newApplicationUsecase(t)
	ctx := context.Background()

	_, err := uc.Create(ctx, "u1", dto.CreateApplicationRequest{Company: " "})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = uc.Create(ctx, "u1", dto.CreateApplicationRequest{Company: "Acme", Status: "GHOSTED"})
	assert.ErrorIs(t, err, ErrInvalidStatus)

	app, err := uc.Create(ctx, "u1", dto.CreateApplicationRequest{Company: "Acme"})
	require.NoError(t, err)
	assert.Equal(t, domain.UnknownRole, app.Job.Title)
}

func TestGetChecksOwnership(t *testing.T) {
	uc := newApplicationUsecase(t)
	ctx := context.Background()
	app, err := uc.Create(ctx, "u1", dto.CreateApplicationRequest{Company: "Acme", Position: "SRE"})
	require.NoError(t, err)

	_, err = uc.Get(ctx, "u1", "missing")
	assert.ErrorIs(t, err, ErrApplicationNotFound)

	_, err = uc.Get(ctx, "u2", app.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	got, err := uc.Get(ctx, "u1", app.ID)
	require.NoError(t, err)
	assert.Equal(t, app.ID, got.ID)
}

func TestUpdateStatusOverridesInAnyDirection(t *testing.T) {
	uc := newApplicationUsecase(t)
	ctx := context.Background()
	app, err := uc.Create(ctx, "u1", dto.CreateApplicationRequest{Company: "Acme", Position: "SRE", Status: "OFFER"})
	require.NoError(t, err)

	updated, err := uc.UpdateStatus(ctx, "u1", app.ID, dto.UpdateStatusRequest{Status: "interview", Note: "offer rescinded"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInterview, updated.Status)
	require.Len(t, updated.Activities, 2)
	assert.Contains(t, updated.Activities[0].Details+updated.Activities[1].Details, "offer rescinded")

	_, err = uc.UpdateStatus(ctx, "u1", app.ID, dto.UpdateStatusRequest{Status: "nope"})
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = uc.UpdateStatus(ctx, "u2", app.ID, dto.UpdateStatusRequest{Status: "OFFER"})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestDeleteApplication(t *testing.T) {
	uc := newApplicationUsecase(t)
	ctx := context.Background()
	app, err := uc.Create(ctx, "u1", dto.CreateApplicationRequest{Company: "Acme", Position: "SRE"})
	require.NoError(t, err)

	assert.ErrorIs(t, uc.Delete(ctx, "u2", app.ID), ErrForbidden)
	require.NoError(t, uc.Delete(ctx, "u1", app.ID))
	assert.ErrorIs(t, uc.Delete(ctx, "u1", app.ID), ErrApplicationNotFound)
}

func TestStatsAreZeroFilled(t *testing.T) {
	uc := newApplicationUsecase(t)
	ctx := context.Background()
	for _, req := range []dto.CreateApplicationRequest{
		{Company: "Acme", Position: "SRE", Status: "APPLIED"},
		{Company: "Globex", Position: "SRE", Status: "APPLIED"},
		{Company: "Initech", Position: "SRE", Status: "REJECTED"},
	} {
		_, err := uc.Create(ctx, "u1", req)
		require.NoError(t, err)
	}

	stats, err := uc.Stats(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, stats.Counts, len(domain.AllStatuses()))
	assert.Equal(t, int64(2), stats.Counts[domain.StatusApplied])
	assert.Equal(t, int64(1), stats.Counts[domain.StatusRejected])
	assert.Equal(t, int64(0), stats.Counts[domain.StatusOffer])
	assert.Equal(t, int64(3), stats.Total)

	empty, err := uc.Stats(ctx, "nobody")
	require.NoError(t, err)
	assert.Zero(t, empty.Total)
	assert.Len(t, empty.Counts, len(domain.AllStatuses()))
}

func TestListAndRecentActivity(t *testing.T) {
	uc := newApplicationUsecase(t)
	ctx := context.Background()
	first, err := uc.Create(ctx, "u1", dto.CreateApplicationRequest{Company: "Acme", Position: "SRE", Status: "APPLIED"})
	require.NoError(t, err)
	_, err = uc.Create(ctx, "u1", dto.CreateApplicationRequest{Company: "Globex", Position: "SRE"})
	require.NoError(t, err)
	_, err = uc.UpdateStatus(ctx, "u1", first.ID, dto.UpdateStatusRequest{Status: "OA"})
	require.NoError(t, err)

	all, err := uc.List(ctx, "u1", "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	oa, err := uc.List(ctx, "u1", "oa")
	require.NoError(t, err)
	require.Len(t, oa, 1)
	assert.Equal(t, first.ID, oa[0].ID)

	_, err = uc.List(ctx, "u1", "bogus")
	assert.ErrorIs(t, err, ErrInvalidStatus)

	recent, err := uc.RecentActivity(ctx, "u1", 0)
	require.NoError(t, err)
	assert.Len(t, recent, 3)

	limited, err := uc.RecentActivity(ctx, "u1", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestSearchRanksByCompanyThenTitle(t *testing.T) {
	uc := newApplicationUsecase(t)
	ctx := context.Background()
	for _, req := range []dto.CreateApplicationRequest{
		{Company: "Globex", Position: "Stripe Integrations Engineer", Status: "APPLIED"},
		{Company: "Stripe", Position: "Backend Engineer"},
		{Company: "Initech", Position: "SRE"},
	} {
		_, err := uc.Create(ctx, "u1", req)
		require.NoError(t, err)
	}

	hits, err := uc.Search(ctx, "u1", "strpe", "")
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "Stripe", hits[0].Job.Company.Name)
	assert.Equal(t, "Globex", hits[1].Job.Company.Name)

	applied, err := uc.Search(ctx, "u1", "stripe", "APPLIED")
	require.NoError(t, err)
	require.Len(t, applied, 1)
	assert.Equal(t, "Globex", applied[0].Job.Company.Name)

	all, err := uc.Search(ctx, "u1", "  ", "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	none, err := uc.Search(ctx, "u2", "stripe", "")
	require.NoError(t, err)
	assert.Empty(t, none)
}
