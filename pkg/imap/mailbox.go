// Package imap reads an inbox over IMAP for accounts that are not Gmail.
package imap

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	goimap "github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	authdomain "jobtrack-backend/internal/auth/domain"
	ingestdomain "jobtrack-backend/internal/ingest/domain"
)

const (
	defaultPort    = 993
	commandTimeout = 30 * time.Second
	inbox          = "INBOX"
)

// imapClient is the part of *client.Client a Mailbox uses.
type imapClient interface {
	UidSearch(criteria *goimap.SearchCriteria) ([]uint32, error)
	UidFetch(seqset *goimap.SeqSet, items []goimap.FetchItem, ch chan *goimap.Message) error
	Logout() error
}

type dialFunc func(ctx context.Context, login *authdomain.IMAPLogin) (imapClient, uint32, error)

// Opener logs into the IMAP server named by a credential.
type Opener struct {
	dial   dialFunc
	logger *zap.Logger
	now    func() time.Time
}

func NewOpener(logger *zap.Logger) *Opener {
	return &Opener{dial: dialTLS, logger: logger.Named("imap"), now: time.Now}
}

func (o *Opener) Open(ctx context.Context, cred *authdomain.Credential) (ingestdomain.Mailbox, error) {
	if cred == nil || cred.IMAP == nil {
		return nil, ingestdomain.Errorf(ingestdomain.KindCredentialRefreshFailed, "imap: no login")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c, validity, err := o.dial(ctx, cred.IMAP)
	if err != nil {
		return nil, err
	}
	return &Mailbox{
		client:      c,
		uidValidity: validity,
		logger:      o.logger.With(zap.String("user_id", cred.OwnerID)),
		now:         o.now,
	}, nil
}

func dialTLS(ctx context.Context, login *authdomain.IMAPLogin) (imapClient, uint32, error) {
	port := login.Port
	if port == 0 {
		port = defaultPort
	}
	addr := fmt.Sprintf("%s:%d", login.Host, port)

	c, err := client.DialTLS(addr, nil)
	if err != nil {
		return nil, 0, ingestdomain.NewError(ingestdomain.KindProviderRequestFailed, "imap: dial "+addr, err)
	}
	c.Timeout = commandTimeout

	if err := c.Login(login.Username, login.Password); err != nil {
		_ = c.Logout()
		return nil, 0, ingestdomain.NewError(ingestdomain.KindCredentialRefreshFailed, "imap: login rejected", err)
	}

	status, err := c.Select(inbox, true)
	if err != nil {
		_ = c.Logout()
		return nil, 0, ingestdomain.NewError(ingestdomain.KindProviderRequestFailed, "imap: select inbox", err)
	}
	return c, status.UidValidity, nil
}

// Mailbox is a read-only session on the INBOX. Message ids have the form
// "<uidvalidity>:<uid>" so they stay unique if the server renumbers.
type Mailbox struct {
	client      imapClient
	uidValidity uint32
	logger      *zap.Logger
	now         func() time.Time
}

// ListMessageIDs returns the newest maxResults matching messages, oldest
// first.
func (m *Mailbox) ListMessageIDs(ctx context.Context, query ingestdomain.SearchQuery, maxResults int64) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	uids, err := m.client.UidSearch(BuildCriteria(query, m.now()))
	if err != nil {
		return nil, ingestdomain.NewError(ingestdomain.KindProviderRequestFailed, "imap: search", err)
	}

	sort.Slice(uids, func(i, j int) bool { return uids[i] < uids[j] })
	if maxResults > 0 && int64(len(uids)) > maxResults {
		uids = uids[int64(len(uids))-maxResults:]
	}

	ids := make([]string, 0, len(uids))
	for _, uid := range uids {
		ids = append(ids, formatID(m.uidValidity, uid))
	}
	m.logger.Debug("imap search", zap.Int("matches", len(ids)))
	return ids, nil
}

func (m *Mailbox) GetMessage(ctx context.Context, id string) (*ingestdomain.ExternalMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	validity, uid, err := parseID(id)
	if err != nil {
		return nil, ingestdomain.NewError(ingestdomain.KindMessageParseFailed, "imap: bad id "+id, err)
	}
	if validity != m.uidValidity {
		return nil, ingestdomain.Errorf(ingestdomain.KindMessageParseFailed, "imap: %s is from an older uid validity", id)
	}

	seqset := new(goimap.SeqSet)
	seqset.AddNum(uid)
	section := &goimap.BodySectionName{Peek: true}
	items := []goimap.FetchItem{section.FetchItem(), goimap.FetchInternalDate, goimap.FetchUid}

	messages := make(chan *goimap.Message, 1)
	done := make(chan error, 1)
	go func() {
		done <- m.client.UidFetch(seqset, items, messages)
	}()

	var fetched *goimap.Message
	for msg := range messages {
		if fetched == nil {
			fetched = msg
		}
	}
	if err := <-done; err != nil {
		return nil, ingestdomain.NewError(ingestdomain.KindProviderRequestFailed, "imap: fetch "+id, err)
	}
	if fetched == nil {
		return nil, ingestdomain.Errorf(ingestdomain.KindMessageParseFailed, "imap: message %s not found", id)
	}

	body := fetched.GetBody(section)
	if body == nil {
		return nil, ingestdomain.Errorf(ingestdomain.KindMessageParseFailed, "imap: message %s has no body", id)
	}
	msg, err := ParseMessage(id, body, fetched.InternalDate, m.now())
	if err != nil {
		return nil, ingestdomain.NewError(ingestdomain.KindMessageParseFailed, "imap: parse "+id, err)
	}
	return msg, nil
}

func (m *Mailbox) Close() error {
	return m.client.Logout()
}

// BuildCriteria renders a SearchQuery as IMAP SEARCH criteria: any keyword
// in Subject or From, and SINCE the recency window when one is set.
func BuildCriteria(q ingestdomain.SearchQuery, now time.Time) *goimap.SearchCriteria {
	var alternatives []*goimap.SearchCriteria
	for _, kw := range q.SubjectKeywords {
		c := goimap.NewSearchCriteria()
		c.Header.Add("Subject", kw)
		alternatives = append(alternatives, c)
	}
	for _, kw := range q.SenderKeywords {
		c := goimap.NewSearchCriteria()
		c.Header.Add("From", kw)
		alternatives = append(alternatives, c)
	}

	root := orAll(alternatives)
	if root == nil {
		root = goimap.NewSearchCriteria()
	}
	if q.NewerThan > 0 {
		root.Since = now.Add(-q.NewerThan)
	}
	return root
}

func orAll(criteria []*goimap.SearchCriteria) *goimap.SearchCriteria {
	switch len(criteria) {
	case 0:
		return nil
	case 1:
		return criteria[0]
	}
	c := goimap.NewSearchCriteria()
	c.Or = [][2]*goimap.SearchCriteria{{criteria[0], orAll(criteria[1:])}}
	return c
}

func formatID(validity, uid uint32) string {
	return fmt.Sprintf("%d:%d", validity, uid)
}

func parseID(id string) (uint32, uint32, error) {
	left, right, ok := strings.Cut(id, ":")
	if !ok {
		return 0, 0, eris.New("missing separator")
	}
	validity, err := strconv.ParseUint(left, 10, 32)
	if err != nil {
		return 0, 0, eris.Wrap(err, "uid validity")
	}
	uid, err := strconv.ParseUint(right, 10, 32)
	if err != nil {
		return 0, 0, eris.Wrap(err, "uid")
	}
	return uint32(validity), uint32(uid), nil
}
