package domain

import "time"

const (
	ProviderGoogle = "google"
	ProviderIMAP   = "imap"
)

// LinkedAccount is a mailbox an owner connected. Google accounts carry OAuth
// tokens; IMAP accounts carry server settings and a sealed password.
// Secrets never leave the server in JSON.
type LinkedAccount struct {
	ID           string     `json:"id" gorm:"primaryKey"`
	UserID       string     `json:"user_id" gorm:"not null;uniqueIndex:idx_accounts_owner_provider"`
	Provider     string     `json:"provider" gorm:"type:varchar(16);not null;uniqueIndex:idx_accounts_owner_provider"`
	Email        string     `json:"email" gorm:"index"`
	AccessToken  string     `json:"-"`
	RefreshToken string     `json:"-"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`

	IMAPHost        string `json:"imap_host,omitempty" gorm:"column:imap_host"`
	IMAPPort        int    `json:"imap_port,omitempty" gorm:"column:imap_port"`
	IMAPUsername    string `json:"imap_username,omitempty" gorm:"column:imap_username"`
	IMAPPasswordEnc string `json:"-" gorm:"column:imap_password_enc"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (LinkedAccount) TableName() string {
	return "linked_accounts"
}
