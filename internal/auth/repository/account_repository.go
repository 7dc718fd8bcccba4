package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	authdomain "jobtrack-backend/internal/auth/domain"
)

// AccountRepository stores linked mailbox accounts and their credentials.
type AccountRepository interface {
	FindByOwner(ctx context.Context, ownerID, provider string) (*authdomain.LinkedAccount, error)
	ListByOwner(ctx context.Context, ownerID string) ([]authdomain.LinkedAccount, error)
	FindByEmail(ctx context.Context, provider, email string) (*authdomain.LinkedAccount, error)
	ListAll(ctx context.Context) ([]authdomain.LinkedAccount, error)
	// Upsert links the account, replacing any earlier link of the same
	// provider for the owner.
	Upsert(ctx context.Context, account *authdomain.LinkedAccount) error
	UpdateTokens(ctx context.Context, accountID string, token authdomain.RefreshedToken) error
	Delete(ctx context.Context, ownerID, provider string) (bool, error)
}

type accountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) FindByOwner(ctx context.Context, ownerID, provider string) (*authdomain.LinkedAccount, error) {
	return r.first(ctx, "user_id = ? AND provider = ?", ownerID, provider)
}

func (r *accountRepository) ListByOwner(ctx context.Context, ownerID string) ([]authdomain.LinkedAccount, error) {
	var accounts []authdomain.LinkedAccount
	err := r.db.WithContext(ctx).
		Where("user_id = ?", ownerID).
		Order("provider ASC").
		Find(&accounts).Error
	if err != nil {
		return nil, eris.Wrap(err, "accounts: list by owner")
	}
	return accounts, nil
}

func (r *accountRepository) FindByEmail(ctx context.Context, provider, email string) (*authdomain.LinkedAccount, error) {
	return r.first(ctx, "provider = ? AND LOWER(email) = LOWER(?)", provider, email)
}

func (r *accountRepository) ListAll(ctx context.Context) ([]authdomain.LinkedAccount, error) {
	var accounts []authdomain.LinkedAccount
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&accounts).Error; err != nil {
		return nil, eris.Wrap(err, "accounts: list")
	}
	return accounts, nil
}

func (r *accountRepository) Upsert(ctx context.Context, account *authdomain.LinkedAccount) error {
	if account.ID == "" {
		account.ID = uuid.New().String()
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "provider"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"email",
			"access_token",
			"refresh_token",
			"expires_at",
			"imap_host",
			"imap_port",
			"imap_username",
			"imap_password_enc",
			"updated_at",
		}),
	}).Create(account).Error
	if err != nil {
		return eris.Wrap(err, "accounts: upsert")
	}

	// The insert may have lost to an existing row; report the stored id.
	stored, err := r.FindByOwner(ctx, account.UserID, account.Provider)
	if err != nil {
		return err
	}
	if stored != nil {
		account.ID = stored.ID
		account.CreatedAt = stored.CreatedAt
	}
	return nil
}

// UpdateTokens keeps the stored refresh token when the exchange did not
// rotate it.
func (r *accountRepository) UpdateTokens(ctx context.Context, accountID string, token authdomain.RefreshedToken) error {
	fields := map[string]interface{}{
		"access_token": token.AccessToken,
		"expires_at":   token.ExpiresAt,
		"updated_at":   time.Now(),
	}
	if token.RefreshToken != "" {
		fields["refresh_token"] = token.RefreshToken
	}
	result := r.db.WithContext(ctx).
		Model(&authdomain.LinkedAccount{}).
		Where("id = ?", accountID).
		Updates(fields)
	if result.Error != nil {
		return eris.Wrap(result.Error, "accounts: update tokens")
	}
	if result.RowsAffected == 0 {
		return eris.Errorf("accounts: %s not found", accountID)
	}
	return nil
}

func (r *accountRepository) Delete(ctx context.Context, ownerID, provider string) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND provider = ?", ownerID, provider).
		Delete(&authdomain.LinkedAccount{})
	if result.Error != nil {
		return false, eris.Wrap(result.Error, "accounts: delete")
	}
	return result.RowsAffected > 0, nil
}

func (r *accountRepository) first(ctx context.Context, query string, args ...interface{}) (*authdomain.LinkedAccount, error) {
	var account authdomain.LinkedAccount
	err := r.db.WithContext(ctx).Where(query, args...).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "accounts: find")
	}
	return &account, nil
}
