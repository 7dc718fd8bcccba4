package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	authdomain "jobtrack-backend/internal/auth/domain"
	authrepo "jobtrack-backend/internal/auth/repository"
	"jobtrack-backend/internal/ingest/domain"
	"jobtrack-backend/internal/ingest/usecase"
	"jobtrack-backend/internal/testutil"
)

type recordingIngest struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]error
}

func (r *recordingIngest) Run(ctx context.Context, ownerID string, force bool) (domain.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, ownerID)
	if force {
		return domain.Result{}, errors.New("scheduler must not force")
	}
	if err := r.fail[ownerID]; err != nil {
		return domain.Result{}, err
	}
	return domain.Result{Scanned: 1}, nil
}

func (r *recordingIngest) History(ctx context.Context, ownerID string, limit int) (*usecase.History, error) {
	return &usecase.History{}, nil
}

func (r *recordingIngest) SetNotifier(usecase.Notifier) {}

func (r *recordingIngest) owners() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func seedAccounts(t *testing.T) authrepo.AccountRepository {
	t.Helper()
	accounts := authrepo.NewAccountRepository(testutil.NewDB(t))
	ctx := context.Background()
	for _, a := range []authdomain.LinkedAccount{
		{UserID: "u1", Provider: authdomain.ProviderGoogle, Email: "u1@example.com", AccessToken: "a"},
		{UserID: "u1", Provider: authdomain.ProviderIMAP, Email: "u1@example.org", IMAPHost: "imap.example.org"},
		{UserID: "u2", Provider: authdomain.ProviderGoogle, Email: "u2@example.com", AccessToken: "b"},
		{UserID: "u3", Provider: authdomain.ProviderIMAP, Email: "u3@example.net", IMAPHost: "imap.example.net"},
	} {
		a := a
		require.NoError(t, accounts.Upsert(ctx, &a))
	}
	return accounts
}

func TestSyncAllRunsEachOwnerOnce(t *testing.T) {
	ingest := &recordingIngest{fail: map[string]error{
		"u2": domain.Errorf(domain.KindCredentialRefreshFailed, "revoked"),
	}}
	s := NewAutoSyncScheduler(seedAccounts(t), ingest, time.Hour, zap.NewNop())

	s.SyncAll(context.Background())

	assert.ElementsMatch(t, []string{"u1", "u2", "u3"}, ingest.owners(), "one failing owner does not stop the sweep")
}

func TestSyncAllStopsOnCanceledContext(t *testing.T) {
	ingest := &recordingIngest{}
	s := NewAutoSyncScheduler(seedAccounts(t), ingest, time.Hour, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.SyncAll(ctx)

	assert.Empty(t, ingest.owners())
}

func TestStartTicksUntilStopped(t *testing.T) {
	ingest := &recordingIngest{}
	s := NewAutoSyncScheduler(seedAccounts(t), ingest, 10*time.Millisecond, zap.NewNop())

	s.Start(context.Background())
	require.Eventually(t, func() bool {
		return len(ingest.owners()) >= 3
	}, 2*time.Second, 5*time.Millisecond)

	s.Stop()
	n := len(ingest.owners())
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, n, len(ingest.owners()))

	s.Stop()
}
