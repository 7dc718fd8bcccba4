package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	authdomain "jobtrack-backend/internal/auth/domain"
	authdto "jobtrack-backend/internal/auth/dto"
	"jobtrack-backend/internal/auth/repository"
	"jobtrack-backend/internal/testutil"
	"jobtrack-backend/pkg/crypto"
)

func TestIssueAndValidateToken(t *testing.T) {
	auth := NewAuthUsecase("secret")

	token, err := auth.IssueToken("u1", "u1@example.com", time.Hour)
	require.NoError(t, err)

	owner, err := auth.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", owner)

	_, err = NewAuthUsecase("other").ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired, err := auth.IssueToken("u1", "", -time.Minute)
	require.NoError(t, err)
	_, err = auth.ValidateToken(expired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = auth.ValidateToken("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = auth.IssueToken("", "", time.Hour)
	assert.Error(t, err)
}

func newAccountUsecase(t *testing.T, sealer *crypto.Sealer) (AccountUsecase, repository.AccountRepository) {
	db := testutil.NewDB(t)
	accounts := repository.NewAccountRepository(db)
	return NewAccountUsecase(accounts, repository.NewFCMTokenRepository(db), sealer, zap.NewNop()), accounts
}

func TestLinkAndUnlinkAccounts(t *testing.T) {
	sealer, err := crypto.NewSealer("k")
	require.NoError(t, err)
	uc, accounts := newAccountUsecase(t, sealer)
	ctx := context.Background()

	_, err = uc.LinkGoogle(ctx, "u1", authdto.LinkGoogleRequest{Email: "a@gmail.com", AccessToken: "at", RefreshToken: "rt"})
	require.NoError(t, err)

	resp, err := uc.LinkIMAP(ctx, "u1", authdto.LinkIMAPRequest{Email: "a@fastmail.com", Host: "imap.fastmail.com", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, authdomain.ProviderIMAP, resp.Provider)

	stored, err := accounts.FindByOwner(ctx, "u1", authdomain.ProviderIMAP)
	require.NoError(t, err)
	assert.Equal(t, 993, stored.IMAPPort)
	assert.NotEqual(t, "pw", stored.IMAPPasswordEnc)

	list, err := uc.List(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, list, 2)

	require.NoError(t, uc.Unlink(ctx, "u1", authdomain.ProviderGoogle))
	assert.ErrorIs(t, uc.Unlink(ctx, "u1", authdomain.ProviderGoogle), ErrAccountNotFound)
	assert.ErrorIs(t, uc.Unlink(ctx, "u1", "outlook"), ErrUnknownProvider)
}

func TestLinkIMAPWithoutKey(t *testing.T) {
	uc, _ := newAccountUsecase(t, nil)
	_, err := uc.LinkIMAP(context.Background(), "u1", authdto.LinkIMAPRequest{Email: "a@b.c", Host: "h", Password: "p"})
	assert.ErrorIs(t, err, ErrIMAPNotAvailable)
}

func TestUnregisterOnlyOwnTokens(t *testing.T) {
	db := testutil.NewDB(t)
	tokens := repository.NewFCMTokenRepository(db)
	uc := NewAccountUsecase(repository.NewAccountRepository(db), tokens, nil, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, uc.RegisterFCMToken(ctx, "u1", authdto.RegisterFCMTokenRequest{Token: "device"}))
	require.NoError(t, uc.UnregisterFCMToken(ctx, "u2", "device"))

	kept, err := tokens.GetTokensByUserID(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, kept, 1)

	require.NoError(t, uc.UnregisterFCMToken(ctx, "u1", "device"))
	kept, err = tokens.GetTokensByUserID(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, kept)
}

func TestUnregisterAllFCMTokens(t *testing.T) {
	db := testutil.NewDB(t)
	tokens := repository.NewFCMTokenRepository(db)
	uc := NewAccountUsecase(repository.NewAccountRepository(db), tokens, nil, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, uc.RegisterFCMToken(ctx, "u1", authdto.RegisterFCMTokenRequest{Token: "phone"}))
	require.NoError(t, uc.RegisterFCMToken(ctx, "u1", authdto.RegisterFCMTokenRequest{Token: "laptop"}))
	require.NoError(t, uc.RegisterFCMToken(ctx, "u2", authdto.RegisterFCMTokenRequest{Token: "tablet"}))

	require.NoError(t, uc.UnregisterAllFCMTokens(ctx, "u1"))

	gone, err := tokens.GetTokensByUserID(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, gone)
	kept, err := tokens.GetTokensByUserID(ctx, "u2")
	require.NoError(t, err)
	assert.Len(t, kept, 1)
}
