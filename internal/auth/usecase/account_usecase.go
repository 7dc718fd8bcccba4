package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	authdomain "jobtrack-backend/internal/auth/domain"
	authdto "jobtrack-backend/internal/auth/dto"
	"jobtrack-backend/internal/auth/repository"
	"jobtrack-backend/pkg/crypto"
)

const defaultIMAPPort = 993

var (
	ErrAccountNotFound  = errors.New("linked account not found")
	ErrUnknownProvider  = errors.New("unknown provider")
	ErrIMAPNotAvailable = errors.New("imap accounts are not enabled")
)

// AccountUsecase manages the mailboxes an owner links and the devices that
// receive their notifications.
type AccountUsecase interface {
	LinkGoogle(ctx context.Context, ownerID string, req authdto.LinkGoogleRequest) (*authdto.AccountResponse, error)
	LinkIMAP(ctx context.Context, ownerID string, req authdto.LinkIMAPRequest) (*authdto.AccountResponse, error)
	Unlink(ctx context.Context, ownerID, provider string) error
	List(ctx context.Context, ownerID string) ([]authdto.AccountResponse, error)
	RegisterFCMToken(ctx context.Context, ownerID string, req authdto.RegisterFCMTokenRequest) error
	UnregisterFCMToken(ctx context.Context, ownerID, token string) error
	UnregisterAllFCMTokens(ctx context.Context, ownerID string) error
}

type accountUsecase struct {
	accounts repository.AccountRepository
	tokens   repository.FCMTokenRepository
	sealer   *crypto.Sealer
	logger   *zap.Logger
}

func NewAccountUsecase(accounts repository.AccountRepository, tokens repository.FCMTokenRepository, sealer *crypto.Sealer, logger *zap.Logger) AccountUsecase {
	return &accountUsecase{
		accounts: accounts,
		tokens:   tokens,
		sealer:   sealer,
		logger:   logger.Named("accounts"),
	}
}

func (u *accountUsecase) LinkGoogle(ctx context.Context, ownerID string, req authdto.LinkGoogleRequest) (*authdto.AccountResponse, error) {
	account := &authdomain.LinkedAccount{
		UserID:       ownerID,
		Provider:     authdomain.ProviderGoogle,
		Email:        strings.TrimSpace(req.Email),
		AccessToken:  req.AccessToken,
		RefreshToken: req.RefreshToken,
		ExpiresAt:    req.ExpiresAt,
	}
	if err := u.accounts.Upsert(ctx, account); err != nil {
		return nil, err
	}

	u.logger.Info("google account linked", zap.String("user_id", ownerID))
	return toAccountResponse(account), nil
}

func (u *accountUsecase) LinkIMAP(ctx context.Context, ownerID string, req authdto.LinkIMAPRequest) (*authdto.AccountResponse, error) {
	if u.sealer == nil {
		return nil, ErrIMAPNotAvailable
	}
	sealed, err := u.sealer.Seal(req.Password)
	if err != nil {
		return nil, eris.Wrap(err, "accounts: seal imap password")
	}

	port := req.Port
	if port == 0 {
		port = defaultIMAPPort
	}
	account := &authdomain.LinkedAccount{
		UserID:          ownerID,
		Provider:        authdomain.ProviderIMAP,
		Email:           strings.TrimSpace(req.Email),
		IMAPHost:        strings.TrimSpace(req.Host),
		IMAPPort:        port,
		IMAPUsername:    strings.TrimSpace(req.Username),
		IMAPPasswordEnc: sealed,
	}
	if err := u.accounts.Upsert(ctx, account); err != nil {
		return nil, err
	}

	u.logger.Info("imap account linked",
		zap.String("user_id", ownerID),
		zap.String("host", account.IMAPHost))
	return toAccountResponse(account), nil
}

// Unlink removes the stored credential so the owner can connect again.
func (u *accountUsecase) Unlink(ctx context.Context, ownerID, provider string) error {
	switch provider {
	case authdomain.ProviderGoogle, authdomain.ProviderIMAP:
	default:
		return ErrUnknownProvider
	}
	deleted, err := u.accounts.Delete(ctx, ownerID, provider)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrAccountNotFound
	}
	u.logger.Info("account unlinked",
		zap.String("user_id", ownerID),
		zap.String("provider", provider))
	return nil
}

func (u *accountUsecase) List(ctx context.Context, ownerID string) ([]authdto.AccountResponse, error) {
	accounts, err := u.accounts.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	resp := make([]authdto.AccountResponse, 0, len(accounts))
	for i := range accounts {
		resp = append(resp, *toAccountResponse(&accounts[i]))
	}
	return resp, nil
}

func (u *accountUsecase) RegisterFCMToken(ctx context.Context, ownerID string, req authdto.RegisterFCMTokenRequest) error {
	return u.tokens.SaveToken(ctx, ownerID, req.Token, req.DeviceInfo)
}

// UnregisterFCMToken only removes tokens that belong to ownerID.
func (u *accountUsecase) UnregisterFCMToken(ctx context.Context, ownerID, token string) error {
	tokens, err := u.tokens.GetTokensByUserID(ctx, ownerID)
	if err != nil {
		return err
	}
	for _, t := range tokens {
		if t.Token == token {
			return u.tokens.DeleteToken(ctx, token)
		}
	}
	return nil
}

func toAccountResponse(account *authdomain.LinkedAccount) *authdto.AccountResponse {
	return &authdto.AccountResponse{
		Provider:  account.Provider,
		Email:     account.Email,
		ExpiresAt: account.ExpiresAt,
		LinkedAt:  account.CreatedAt,
	}
}

// UnregisterAllFCMTokens stops push delivery to every device of ownerID.
func (u *accountUsecase) UnregisterAllFCMTokens(ctx context.Context, ownerID string) error {
	if err := u.tokens.DeleteTokensByUserID(ctx, ownerID); err != nil {
		return err
	}
	u.logger.Info("fcm tokens cleared", zap.String("user_id", ownerID))
	return nil
}
