package domain

import (
	"fmt"
	"time"
)

// CredentialState is where the credential lookup for one owner ended up.
type CredentialState string

const (
	CredentialNoAccount     CredentialState = "NoAccount"
	CredentialValid         CredentialState = "HasTokenValid"
	CredentialExpiring      CredentialState = "HasTokenExpiring"
	CredentialRefreshed     CredentialState = "Refreshed"
	CredentialRefreshFailed CredentialState = "RefreshFailed"
)

// Usable reports whether a credential in this state may be used against the
// mailbox provider.
func (s CredentialState) Usable() bool {
	switch s {
	case CredentialValid, CredentialExpiring, CredentialRefreshed:
		return true
	}
	return false
}

// Credential is a ready-to-use mailbox credential. It is a capability and
// must not be logged; String redacts it.
type Credential struct {
	OwnerID     string
	AccountID   string
	Provider    string
	Email       string
	AccessToken string
	ExpiresAt   *time.Time
	IMAP        *IMAPLogin
}

type IMAPLogin struct {
	Host     string
	Port     int
	Username string
	Password string
}

func (c Credential) String() string {
	return fmt.Sprintf("Credential{owner=%s provider=%s account=%s}", c.OwnerID, c.Provider, c.AccountID)
}

// CredentialResult is the outcome of one lookup: the state transition that
// happened and, when usable, the credential.
type CredentialResult struct {
	State      CredentialState
	Credential *Credential
}

// RefreshedToken is what a token exchange returns.
type RefreshedToken struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}
