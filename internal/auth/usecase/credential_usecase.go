package usecase

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/sync/singleflight"

	authdomain "jobtrack-backend/internal/auth/domain"
	"jobtrack-backend/internal/auth/repository"
	"jobtrack-backend/pkg/crypto"
)

// RefreshSkew is how close to expiry a token may get before it is refreshed.
const RefreshSkew = 60 * time.Second

// TokenExchanger trades a refresh token for a new access token.
type TokenExchanger interface {
	Exchange(ctx context.Context, refreshToken string) (*authdomain.RefreshedToken, error)
}

type oauthExchanger struct {
	cfg *oauth2.Config
}

func NewOAuthExchanger(cfg *oauth2.Config) TokenExchanger {
	return &oauthExchanger{cfg: cfg}
}

func NewGoogleExchanger(clientID, clientSecret string) TokenExchanger {
	return NewOAuthExchanger(&oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
	})
}

func (e *oauthExchanger) Exchange(ctx context.Context, refreshToken string) (*authdomain.RefreshedToken, error) {
	tok, err := e.cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return nil, eris.Wrap(err, "oauth: refresh token")
	}
	return &authdomain.RefreshedToken{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    tok.Expiry,
	}, nil
}

// CredentialRefresher hands out usable mailbox credentials. Lookup outcomes
// are reported as states; only storage failures come back as errors.
type CredentialRefresher interface {
	Obtain(ctx context.Context, ownerID string) (authdomain.CredentialResult, error)
}

type credentialRefresher struct {
	accounts  repository.AccountRepository
	exchanger TokenExchanger
	sealer    *crypto.Sealer
	logger    *zap.Logger
	now       func() time.Time
	flights   singleflight.Group
}

// NewCredentialRefresher builds a refresher. A nil sealer disables IMAP
// accounts.
func NewCredentialRefresher(accounts repository.AccountRepository, exchanger TokenExchanger, sealer *crypto.Sealer, logger *zap.Logger) CredentialRefresher {
	return &credentialRefresher{
		accounts:  accounts,
		exchanger: exchanger,
		sealer:    sealer,
		logger:    logger.Named("credentials"),
		now:       time.Now,
	}
}

func (r *credentialRefresher) Obtain(ctx context.Context, ownerID string) (authdomain.CredentialResult, error) {
	accounts, err := r.accounts.ListByOwner(ctx, ownerID)
	if err != nil {
		return authdomain.CredentialResult{}, err
	}
	if len(accounts) == 0 {
		return authdomain.CredentialResult{State: authdomain.CredentialNoAccount}, nil
	}

	// Listed by provider name, so Google wins over IMAP when both exist.
	account := accounts[0]
	switch account.Provider {
	case authdomain.ProviderGoogle:
		return r.obtainOAuth(ctx, &account)
	case authdomain.ProviderIMAP:
		return r.obtainIMAP(&account), nil
	default:
		r.logger.Warn("linked account has unknown provider",
			zap.String("user_id", ownerID),
			zap.String("provider", account.Provider))
		return authdomain.CredentialResult{State: authdomain.CredentialNoAccount}, nil
	}
}

func (r *credentialRefresher) obtainOAuth(ctx context.Context, account *authdomain.LinkedAccount) (authdomain.CredentialResult, error) {
	now := r.now()
	if !needsRefresh(account, now) {
		return valid(account, authdomain.CredentialValid), nil
	}
	if account.RefreshToken == "" {
		if now.Before(*account.ExpiresAt) {
			return valid(account, authdomain.CredentialExpiring), nil
		}
		r.logger.Warn("access token expired without refresh token", zap.String("user_id", account.UserID))
		return authdomain.CredentialResult{State: authdomain.CredentialRefreshFailed}, nil
	}

	// Concurrent callers for one owner share a single exchange.
	v, err, _ := r.flights.Do(account.UserID, func() (interface{}, error) {
		return r.refresh(ctx, account.UserID)
	})
	if err != nil {
		return authdomain.CredentialResult{}, err
	}
	return v.(authdomain.CredentialResult), nil
}

func (r *credentialRefresher) refresh(ctx context.Context, ownerID string) (authdomain.CredentialResult, error) {
	// Re-read inside the flight: a previous flight may already have
	// refreshed this expiry window.
	account, err := r.accounts.FindByOwner(ctx, ownerID, authdomain.ProviderGoogle)
	if err != nil {
		return authdomain.CredentialResult{}, err
	}
	if account == nil {
		return authdomain.CredentialResult{State: authdomain.CredentialNoAccount}, nil
	}
	if !needsRefresh(account, r.now()) {
		return valid(account, authdomain.CredentialValid), nil
	}

	token, err := r.exchanger.Exchange(ctx, account.RefreshToken)
	if err != nil {
		r.logger.Warn("token refresh failed",
			zap.String("user_id", ownerID),
			zap.Error(err))
		return authdomain.CredentialResult{State: authdomain.CredentialRefreshFailed}, nil
	}
	if token.AccessToken == "" {
		r.logger.Warn("token refresh returned no access token", zap.String("user_id", ownerID))
		return authdomain.CredentialResult{State: authdomain.CredentialRefreshFailed}, nil
	}

	if err := r.accounts.UpdateTokens(ctx, account.ID, *token); err != nil {
		return authdomain.CredentialResult{}, eris.Wrap(err, "credentials: persist refreshed token")
	}
	account.AccessToken = token.AccessToken
	expiry := token.ExpiresAt
	account.ExpiresAt = &expiry
	if token.RefreshToken != "" {
		account.RefreshToken = token.RefreshToken
	}

	r.logger.Info("access token refreshed",
		zap.String("user_id", ownerID),
		zap.Time("expires_at", expiry))
	return valid(account, authdomain.CredentialRefreshed), nil
}

func (r *credentialRefresher) obtainIMAP(account *authdomain.LinkedAccount) authdomain.CredentialResult {
	if r.sealer == nil {
		r.logger.Warn("imap account linked but no encryption key configured", zap.String("user_id", account.UserID))
		return authdomain.CredentialResult{State: authdomain.CredentialRefreshFailed}
	}
	password, err := r.sealer.Open(account.IMAPPasswordEnc)
	if err != nil {
		r.logger.Warn("stored imap password unreadable", zap.String("user_id", account.UserID))
		return authdomain.CredentialResult{State: authdomain.CredentialRefreshFailed}
	}

	result := valid(account, authdomain.CredentialValid)
	username := account.IMAPUsername
	if username == "" {
		username = account.Email
	}
	result.Credential.IMAP = &authdomain.IMAPLogin{
		Host:     account.IMAPHost,
		Port:     account.IMAPPort,
		Username: username,
		Password: password,
	}
	return result
}

// needsRefresh reports whether the token is expired or within RefreshSkew of
// expiring. Tokens without an expiry never need a refresh.
func needsRefresh(account *authdomain.LinkedAccount, now time.Time) bool {
	if account.ExpiresAt == nil {
		return false
	}
	return !now.Add(RefreshSkew).Before(*account.ExpiresAt)
}

func valid(account *authdomain.LinkedAccount, state authdomain.CredentialState) authdomain.CredentialResult {
	return authdomain.CredentialResult{
		State: state,
		Credential: &authdomain.Credential{
			OwnerID:     account.UserID,
			AccountID:   account.ID,
			Provider:    account.Provider,
			Email:       account.Email,
			AccessToken: account.AccessToken,
			ExpiresAt:   account.ExpiresAt,
		},
	}
}
