package gmail

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"google.golang.org/api/option"

	authdomain "jobtrack-backend/internal/auth/domain"
	ingestdomain "jobtrack-backend/internal/ingest/domain"
	"jobtrack-backend/pkg/mailtext"
)

type fakeGmail struct {
	t          *testing.T
	lastQ      string
	pageSize   []string
	watchTopic string
	stops      int
	stopStatus int
}

func (f *fakeGmail) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	path := strings.TrimPrefix(r.URL.Path, "/gmail/v1/users/me/")

	switch {
	case path == "messages":
		f.lastQ = r.URL.Query().Get("q")
		f.pageSize = append(f.pageSize, r.URL.Query().Get("maxResults"))
		if r.URL.Query().Get("pageToken") == "" {
			writeJSON(w, map[string]interface{}{
				"messages":      []map[string]string{{"id": "m1"}, {"id": "m2"}},
				"nextPageToken": "p2",
			})
			return
		}
		writeJSON(w, map[string]interface{}{
			"messages": []map[string]string{{"id": "m3"}},
		})
	case path == "stop":
		f.stops++
		if f.stopStatus != 0 {
			w.WriteHeader(f.stopStatus)
			_, _ = w.Write([]byte(`{"error":{"code":404,"message":"no watch"}}`))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	case path == "watch":
		var req struct {
			TopicName string `json:"topicName"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.watchTopic = req.TopicName
		writeJSON(w, map[string]string{"historyId": "4242", "expiration": "1735725600000"})
	case path == "messages/m1":
		writeJSON(w, map[string]interface{}{
			"id":           "m1",
			"internalDate": "1735725600000",
			"snippet":      "Thanks for applying &amp; good luck",
			"payload": map[string]interface{}{
				"mimeType": "multipart/alternative",
				"headers": []map[string]string{
					{"name": "Subject", "value": "Thank you for applying to Acme Corp"},
					{"name": "From", "value": "Acme Careers <careers@acme.com>"},
				},
				"parts": []map[string]interface{}{
					{"mimeType": "text/plain", "body": map[string]string{"data": mailtext.EncodeData([]byte("We received your application."))}},
					{"mimeType": "text/html", "body": map[string]string{"data": mailtext.EncodeData([]byte("<p>We received your application.</p>"))}},
				},
			},
		})
	case path == "messages/dated":
		writeJSON(w, map[string]interface{}{
			"id": "dated",
			"payload": map[string]interface{}{
				"mimeType": "text/plain",
				"headers": []map[string]string{
					{"name": "date", "value": "Mon, 02 Jun 2025 10:00:00 +0200"},
				},
				"body": map[string]string{"data": mailtext.EncodeData([]byte("hi"))},
			},
		})
	case path == "messages/revoked":
		w.WriteHeader(http.StatusUnauthorized)
		writeJSON(w, map[string]interface{}{"error": map[string]interface{}{"code": 401, "message": "Invalid Credentials"}})
	case path == "messages/gone":
		w.WriteHeader(http.StatusNotFound)
		writeJSON(w, map[string]interface{}{"error": map[string]interface{}{"code": 404, "message": "Not Found"}})
	default:
		w.WriteHeader(http.StatusInternalServerError)
		writeJSON(w, map[string]interface{}{"error": map[string]interface{}{"code": 500, "message": "backend error"}})
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	_ = json.NewEncoder(w).Encode(v)
}

func openTestMailbox(t *testing.T) (*Mailbox, *fakeGmail) {
	fake := &fakeGmail{t: t}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	opener := NewOpener(zap.NewNop(),
		WithRateLimit(0, 0),
		WithClientOptions(option.WithEndpoint(srv.URL+"/"), option.WithHTTPClient(srv.Client())),
	)
	mb, err := opener.OpenGmail(context.Background(), &authdomain.Credential{OwnerID: "u1", AccessToken: "token"})
	require.NoError(t, err)
	return mb, fake
}

func TestListMessageIDsPaginates(t *testing.T) {
	mb, fake := openTestMailbox(t)

	ids, err := mb.ListMessageIDs(context.Background(), ingestdomain.SearchQuery{
		NewerThan:       72 * time.Hour,
		SubjectKeywords: []string{"interview"},
	}, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"m1", "m2", "m3"}, ids)
	assert.Equal(t, "newer_than:3d subject:(interview)", fake.lastQ)
	assert.Equal(t, []string{"10", "8"}, fake.pageSize)
}

func TestListMessageIDsStopsAtMax(t *testing.T) {
	mb, fake := openTestMailbox(t)

	ids, err := mb.ListMessageIDs(context.Background(), ingestdomain.SearchQuery{}, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"m1", "m2"}, ids)
	assert.Len(t, fake.pageSize, 1)
}

func TestGetMessageConvertsPayload(t *testing.T) {
	mb, _ := openTestMailbox(t)

	msg, err := mb.GetMessage(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, "m1", msg.ExternalID)
	assert.Equal(t, "Thank you for applying to Acme Corp", msg.Subject)
	assert.Equal(t, "Acme Careers <careers@acme.com>", msg.Sender)
	assert.Equal(t, "Thanks for applying & good luck", msg.Snippet)
	assert.True(t, msg.ReceivedAt.Equal(time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)))
	assert.Equal(t, "We received your application.", mailtext.Extract(msg.Body).Text())
}

func TestGetMessageFallsBackToDateHeader(t *testing.T) {
	mb, _ := openTestMailbox(t)

	msg, err := mb.GetMessage(context.Background(), "dated")
	require.NoError(t, err)
	assert.True(t, msg.ReceivedAt.Equal(time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)))
}

func TestProviderErrorKinds(t *testing.T) {
	mb, _ := openTestMailbox(t)

	tests := []struct {
		id   string
		want ingestdomain.ErrorKind
	}{
		{"revoked", ingestdomain.KindCredentialRefreshFailed},
		{"gone", ingestdomain.KindMessageParseFailed},
		{"boom", ingestdomain.KindProviderRequestFailed},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			_, err := mb.GetMessage(context.Background(), tt.id)
			require.Error(t, err)
			assert.Equal(t, tt.want, ingestdomain.KindOf(err))
		})
	}
}

func TestOpenWithoutToken(t *testing.T) {
	_, err := NewOpener(zap.NewNop()).Open(context.Background(), &authdomain.Credential{})
	assert.Equal(t, ingestdomain.KindCredentialRefreshFailed, ingestdomain.KindOf(err))
}

func TestRenderQuery(t *testing.T) {
	tests := []struct {
		name string
		q    ingestdomain.SearchQuery
		want string
	}{
		{"empty", ingestdomain.SearchQuery{}, ""},
		{"partial day rounds up", ingestdomain.SearchQuery{NewerThan: 25 * time.Hour}, "newer_than:2d"},
		{
			"subject and sender",
			ingestdomain.SearchQuery{
				NewerThan:       720 * time.Hour,
				SubjectKeywords: []string{"thank you for applying", "interview"},
				SenderKeywords:  []string{"greenhouse.io", "careers"},
			},
			`newer_than:30d {subject:("thank you for applying" OR interview) from:(greenhouse.io OR careers)}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RenderQuery(tt.q))
		})
	}
}

func TestOpenerWatch(t *testing.T) {
	fake := &fakeGmail{t: t}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	opener := NewOpener(zap.NewNop(),
		WithClientOptions(option.WithEndpoint(srv.URL+"/"), option.WithHTTPClient(srv.Client())),
	)
	historyID, expires, err := opener.Watch(context.Background(),
		&authdomain.Credential{OwnerID: "u1", AccessToken: "token"}, "projects/p/topics/gmail-updates")
	require.NoError(t, err)

	assert.Equal(t, uint64(4242), historyID)
	assert.True(t, expires.Equal(time.UnixMilli(1735725600000)))
	assert.Equal(t, "projects/p/topics/gmail-updates", fake.watchTopic)
	assert.Equal(t, 1, fake.stops, "an existing watch is stopped first")
}

func TestOpenerWatchLogsFailedStop(t *testing.T) {
	fake := &fakeGmail{t: t, stopStatus: http.StatusNotFound}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	core, logs := observer.New(zapcore.DebugLevel)
	opener := NewOpener(zap.New(core),
		WithClientOptions(option.WithEndpoint(srv.URL+"/"), option.WithHTTPClient(srv.Client())),
	)
	historyID, _, err := opener.Watch(context.Background(),
		&authdomain.Credential{OwnerID: "u1", AccessToken: "token"}, "projects/p/topics/gmail-updates")
	require.NoError(t, err)
	assert.Equal(t, uint64(4242), historyID)

	stopped := logs.FilterMessage("stop previous watch").All()
	require.Len(t, stopped, 1)
	assert.Equal(t, zapcore.DebugLevel, stopped[0].Level)
}
