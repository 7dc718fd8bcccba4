package domain

import (
	"context"
	"time"

	authdomain "jobtrack-backend/internal/auth/domain"
)

// SearchQuery selects candidate messages. Providers render it in their own
// search syntax. A zero NewerThan means no recency limit.
type SearchQuery struct {
	NewerThan       time.Duration
	SubjectKeywords []string
	SenderKeywords  []string
}

// Mailbox is an authenticated view of one owner's inbox.
type Mailbox interface {
	ListMessageIDs(ctx context.Context, query SearchQuery, maxResults int64) ([]string, error)
	GetMessage(ctx context.Context, id string) (*ExternalMessage, error)
	Close() error
}

// MailboxOpener connects to a provider with a credential that is already
// valid. Openers never refresh credentials themselves.
type MailboxOpener interface {
	Open(ctx context.Context, cred *authdomain.Credential) (Mailbox, error)
}

// ProviderOpeners routes a credential to the opener for its provider.
type ProviderOpeners map[string]MailboxOpener

func (p ProviderOpeners) Open(ctx context.Context, cred *authdomain.Credential) (Mailbox, error) {
	opener, ok := p[cred.Provider]
	if !ok {
		return nil, Errorf(KindNoLinkedAccount, "no mailbox provider for %q", cred.Provider)
	}
	return opener.Open(ctx, cred)
}
