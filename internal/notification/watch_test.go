package notification

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
	"jobtrack-backend/internal/testutil"
)

type stateCredentials map[string]authdomain.CredentialResult

func (s stateCredentials) Obtain(ctx context.Context, ownerID string) (authdomain.CredentialResult, error) {
	if res, ok := s[ownerID]; ok {
		return res, nil
	}
	return authdomain.CredentialResult{}, errors.New("db down")
}

type fakeWatcher struct {
	mu     sync.Mutex
	owners []string
	topic  string
	failOn string
}

func (f *fakeWatcher) Watch(ctx context.Context, cred *authdomain.Credential, topicName string) (uint64, time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if cred.OwnerID == f.failOn {
		return 0, time.Time{}, errors.New("403 topic permission")
	}
	f.owners = append(f.owners, cred.OwnerID)
	f.topic = topicName
	return 1, time.Now().Add(7 * 24 * time.Hour), nil
}

func (f *fakeWatcher) watched() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.owners...)
}

func googleCred(owner string) authdomain.CredentialResult {
	return authdomain.CredentialResult{
		State:      authdomain.CredentialValid,
		Credential: &authdomain.Credential{OwnerID: owner, Provider: authdomain.ProviderGoogle, AccessToken: "tok"},
	}
}

func watchAccounts(t *testing.T) authrepo.AccountRepository {
	t.Helper()
	accounts := authrepo.NewAccountRepository(testutil.NewDB(t))
	ctx := context.Background()
	for _, a := range []authdomain.LinkedAccount{
		{UserID: "u1", Provider: authdomain.ProviderGoogle, Email: "u1@example.com"},
		{UserID: "u2", Provider: authdomain.ProviderGoogle, Email: "u2@example.com"},
		{UserID: "u3", Provider: authdomain.ProviderGoogle, Email: "u3@example.com"},
		{UserID: "u4", Provider: authdomain.ProviderIMAP, Email: "u4@example.org"},
		{UserID: "u5", Provider: authdomain.ProviderGoogle, Email: "u5@example.com"},
	} {
		a := a
		require.NoError(t, accounts.Upsert(ctx, &a))
	}
	return accounts
}

func TestRenewAll(t *testing.T) {
	creds := stateCredentials{
		"u1": googleCred("u1"),
		"u2": {State: authdomain.CredentialRefreshFailed},
		"u3": googleCred("u3"),
		"u4": googleCred("u4"),
		// u5 has no entry: lookup error
	}
	watcher := &fakeWatcher{failOn: "u3"}
	w := NewWatchRenewer(watchAccounts(t), creds, watcher, "projects/p/topics/gmail-updates", zap.NewNop())

	renewed := w.RenewAll(context.Background())

	assert.Equal(t, 1, renewed)
	assert.Equal(t, []string{"u1"}, watcher.watched(), "imap accounts, refresh failures and lookup errors are skipped")
	assert.Equal(t, "projects/p/topics/gmail-updates", watcher.topic)
}

func TestWatchRenewerStartRenewsImmediately(t *testing.T) {
	watcher := &fakeWatcher{}
	creds := stateCredentials{"u1": googleCred("u1"), "u2": googleCred("u2"), "u3": googleCred("u3"), "u5": googleCred("u5")}
	w := NewWatchRenewer(watchAccounts(t), creds, watcher, "projects/p/topics/t", zap.NewNop())

	w.Start(context.Background())
	require.Eventually(t, func() bool {
		return len(watcher.watched()) == 4
	}, 2*time.Second, 5*time.Millisecond)
	w.Stop()
}
