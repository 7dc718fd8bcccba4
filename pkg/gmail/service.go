// Package gmail reads a Gmail inbox through the Gmail REST API.
package gmail

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	authdomain "jobtrack-backend/internal/auth/domain"
	ingestdomain "jobtrack-backend/internal/ingest/domain"
)

const (
	user        = "me"
	maxPageSize = 500
)

type Option func(*Opener)

// WithClientOptions adds options to every Gmail client the opener creates.
func WithClientOptions(opts ...option.ClientOption) Option {
	return func(o *Opener) {
		o.clientOpts = append(o.clientOpts, opts...)
	}
}

// WithRateLimit caps Gmail calls made by all mailboxes of this opener.
func WithRateLimit(rps float64, burst int) Option {
	return func(o *Opener) {
		if rps <= 0 {
			o.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		if burst < 1 {
			burst = 1
		}
		o.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// Opener turns an access token into a Mailbox. It never refreshes tokens;
// the credential refresher has already done that.
type Opener struct {
	clientOpts []option.ClientOption
	limiter    *rate.Limiter
	logger     *zap.Logger
}

func NewOpener(logger *zap.Logger, opts ...Option) *Opener {
	o := &Opener{
		limiter: rate.NewLimiter(rate.Limit(5), 5),
		logger:  logger.Named("gmail"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Opener) Open(ctx context.Context, cred *authdomain.Credential) (ingestdomain.Mailbox, error) {
	mb, err := o.OpenGmail(ctx, cred)
	if err != nil {
		return nil, err
	}
	return mb, nil
}

// OpenGmail is Open with the concrete type, for callers that also need
// Watch and Stop.
func (o *Opener) OpenGmail(ctx context.Context, cred *authdomain.Credential) (*Mailbox, error) {
	if cred == nil || cred.AccessToken == "" {
		return nil, ingestdomain.Errorf(ingestdomain.KindCredentialRefreshFailed, "gmail: no access token")
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cred.AccessToken, TokenType: "Bearer"})
	opts := append([]option.ClientOption{option.WithTokenSource(ts)}, o.clientOpts...)
	srv, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, ingestdomain.NewError(ingestdomain.KindProviderRequestFailed, "gmail: create client", err)
	}
	return &Mailbox{srv: srv, limiter: o.limiter, logger: o.logger.With(zap.String("user_id", cred.OwnerID))}, nil
}

// Watch (re)registers Gmail push notifications for cred's inbox on the
// Pub/Sub topic, given as "projects/<project>/topics/<topic>".
func (o *Opener) Watch(ctx context.Context, cred *authdomain.Credential, topicName string) (uint64, time.Time, error) {
	mb, err := o.OpenGmail(ctx, cred)
	if err != nil {
		return 0, time.Time{}, err
	}
	defer mb.Close()
	return mb.Watch(ctx, topicName)
}

// Mailbox is one owner's Gmail inbox.
type Mailbox struct {
	srv     *gmail.Service
	limiter *rate.Limiter
	logger  *zap.Logger
}

// ListMessageIDs pages through search results until maxResults ids are
// collected or the results run out.
func (m *Mailbox) ListMessageIDs(ctx context.Context, query ingestdomain.SearchQuery, maxResults int64) ([]string, error) {
	q := RenderQuery(query)
	m.logger.Debug("listing messages", zap.String("q", q), zap.Int64("max", maxResults))

	var ids []string
	pageToken := ""
	for {
		pageSize := maxResults - int64(len(ids))
		if pageSize <= 0 {
			break
		}
		if pageSize > maxPageSize {
			pageSize = maxPageSize
		}

		if err := m.limiter.Wait(ctx); err != nil {
			return ids, eris.Wrap(err, "gmail: rate limit")
		}
		call := m.srv.Users.Messages.List(user).Q(q).MaxResults(pageSize).Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		resp, err := call.Do()
		if err != nil {
			return ids, providerError("list messages", err)
		}
		for _, msg := range resp.Messages {
			ids = append(ids, msg.Id)
		}

		pageToken = resp.NextPageToken
		if pageToken == "" {
			break
		}
	}
	return ids, nil
}

func (m *Mailbox) GetMessage(ctx context.Context, id string) (*ingestdomain.ExternalMessage, error) {
	if err := m.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "gmail: rate limit")
	}
	msg, err := m.srv.Users.Messages.Get(user, id).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, providerError("get message "+id, err)
	}
	if msg.Payload == nil {
		return nil, ingestdomain.Errorf(ingestdomain.KindMessageParseFailed, "gmail: message %s has no payload", id)
	}
	return convertMessage(msg, time.Now()), nil
}

func (m *Mailbox) Close() error {
	return nil
}

// Watch subscribes the inbox to push notifications on topicName, replacing
// any earlier watch. It returns the history id the watch starts from.
func (m *Mailbox) Watch(ctx context.Context, topicName string) (uint64, time.Time, error) {
	// Gmail allows one push client per user. Stopping fails harmlessly when
	// no watch exists yet.
	if err := m.Stop(ctx); err != nil {
		m.logger.Debug("stop previous watch", zap.Error(err))
	}

	resp, err := m.srv.Users.Watch(user, &gmail.WatchRequest{
		TopicName: topicName,
		LabelIds:  []string{"INBOX"},
	}).Context(ctx).Do()
	if err != nil {
		return 0, time.Time{}, providerError("watch", err)
	}
	return resp.HistoryId, time.UnixMilli(resp.Expiration), nil
}

func (m *Mailbox) Stop(ctx context.Context) error {
	if err := m.srv.Users.Stop(user).Context(ctx).Do(); err != nil {
		return providerError("stop watch", err)
	}
	return nil
}

// RenderQuery writes a SearchQuery in Gmail search syntax.
func RenderQuery(q ingestdomain.SearchQuery) string {
	var parts []string
	if q.NewerThan > 0 {
		days := int((q.NewerThan + 24*time.Hour - 1) / (24 * time.Hour))
		parts = append(parts, fmt.Sprintf("newer_than:%dd", days))
	}

	var groups []string
	if len(q.SubjectKeywords) > 0 {
		groups = append(groups, "subject:("+orTerms(q.SubjectKeywords)+")")
	}
	if len(q.SenderKeywords) > 0 {
		groups = append(groups, "from:("+orTerms(q.SenderKeywords)+")")
	}
	switch len(groups) {
	case 0:
	case 1:
		parts = append(parts, groups[0])
	default:
		parts = append(parts, "{"+strings.Join(groups, " ")+"}")
	}
	return strings.Join(parts, " ")
}

func orTerms(terms []string) string {
	quoted := make([]string, 0, len(terms))
	for _, t := range terms {
		if strings.ContainsAny(t, " \t") {
			t = `"` + t + `"`
		}
		quoted = append(quoted, t)
	}
	return strings.Join(quoted, " OR ")
}

// providerError maps Gmail failures to ingestion error kinds. A 401 means the
// token was revoked after it was handed out.
func providerError(op string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusUnauthorized:
			return ingestdomain.NewError(ingestdomain.KindCredentialRefreshFailed, "gmail: "+op, err)
		case http.StatusNotFound:
			return ingestdomain.NewError(ingestdomain.KindMessageParseFailed, "gmail: "+op, err)
		}
	}
	return ingestdomain.NewError(ingestdomain.KindProviderRequestFailed, "gmail: "+op, err)
}

func convertMessage(msg *gmail.Message, now time.Time) *ingestdomain.ExternalMessage {
	headers := msg.Payload.Headers
	return &ingestdomain.ExternalMessage{
		ExternalID: msg.Id,
		Subject:    getHeader(headers, "Subject"),
		Sender:     getHeader(headers, "From"),
		ReceivedAt: receivedAt(msg, now),
		Snippet:    html.UnescapeString(msg.Snippet),
		Body:       convertPart(msg.Payload),
	}
}

// receivedAt prefers Gmail's internal timestamp, then the Date header, then
// now.
func receivedAt(msg *gmail.Message, now time.Time) time.Time {
	if msg.InternalDate > 0 {
		return time.UnixMilli(msg.InternalDate).UTC()
	}
	if date := getHeader(msg.Payload.Headers, "Date"); date != "" {
		if t, err := mail.ParseDate(date); err == nil {
			return t.UTC()
		}
	}
	return now.UTC()
}

func convertPart(part *gmail.MessagePart) *ingestdomain.MessagePart {
	if part == nil {
		return nil
	}
	out := &ingestdomain.MessagePart{MimeType: strings.ToLower(part.MimeType)}
	if part.Body != nil {
		out.Data = part.Body.Data
	}
	for _, child := range part.Parts {
		if c := convertPart(child); c != nil {
			out.Parts = append(out.Parts, c)
		}
	}
	return out
}

func getHeader(headers []*gmail.MessagePartHeader, name string) string {
	for _, header := range headers {
		if strings.EqualFold(header.Name, name) {
			return header.Value
		}
	}
	return ""
}
