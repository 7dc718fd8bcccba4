package imap

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobtrack-backend/pkg/mailtext"
)

const multipartMessage = "From: =?UTF-8?Q?Acme_Caf=C3=A9_Careers?= <careers@acme.com>\r\n" +
	"Subject: Interview invitation\r\n" +
	"Date: Tue, 03 Jun 2025 09:30:00 +0000\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: multipart/alternative; boundary=XYZ\r\n" +
	"\r\n" +
	"--XYZ\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"Content-Transfer-Encoding: quoted-printable\r\n" +
	"\r\n" +
	"We would like to schedule an interview =\r\nwith you.\r\n" +
	"--XYZ\r\n" +
	"Content-Type: text/html; charset=iso-8859-1\r\n" +
	"Content-Transfer-Encoding: base64\r\n" +
	"\r\n" +
	"PHA+V2Ugd291bGQgbGlrZSB0byBzY2hlZHVsZSBhbiBpbnRlcnZpZXc8L3A+\r\n" +
	"--XYZ\r\n" +
	"Content-Type: application/pdf\r\n" +
	"Content-Transfer-Encoding: base64\r\n" +
	"\r\n" +
	"JVBERi0=\r\n" +
	"--XYZ--\r\n"

func TestParseMessageMultipart(t *testing.T) {
	internal := time.Date(2025, 6, 3, 9, 31, 0, 0, time.UTC)

	msg, err := ParseMessage("7:42", strings.NewReader(multipartMessage), internal, time.Now())
	require.NoError(t, err)

	assert.Equal(t, "7:42", msg.ExternalID)
	assert.Equal(t, "Interview invitation", msg.Subject)
	assert.Equal(t, "Acme Café Careers <careers@acme.com>", msg.Sender)
	assert.True(t, msg.ReceivedAt.Equal(internal))

	require.NotNil(t, msg.Body)
	assert.Equal(t, "multipart/alternative", msg.Body.MimeType)
	require.Len(t, msg.Body.Parts, 3)
	assert.Equal(t, "application/pdf", msg.Body.Parts[2].MimeType)
	assert.Empty(t, msg.Body.Parts[2].Data)

	extracted := mailtext.Extract(msg.Body)
	assert.Contains(t, extracted.PlainText, "schedule an interview with you.")
	assert.Contains(t, extracted.HTMLText, "We would like to schedule an interview")
	assert.Equal(t, "We would like to schedule an interview with you.", msg.Snippet)
}

func TestParseMessageDateFallbacks(t *testing.T) {
	now := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)

	msg, err := ParseMessage("1:1", strings.NewReader(multipartMessage), time.Time{}, now)
	require.NoError(t, err)
	assert.True(t, msg.ReceivedAt.Equal(time.Date(2025, 6, 3, 9, 30, 0, 0, time.UTC)))

	plain := "Subject: hi\r\n\r\nbody\r\n"
	msg, err = ParseMessage("1:2", strings.NewReader(plain), time.Time{}, now)
	require.NoError(t, err)
	assert.True(t, msg.ReceivedAt.Equal(now))
	assert.Equal(t, "text/plain", msg.Body.MimeType)
	assert.Equal(t, "body", strings.TrimSpace(mailtext.Extract(msg.Body).Text()))
}

func TestSnippetIsTruncated(t *testing.T) {
	raw := "Subject: long\r\n\r\n" + strings.Repeat("word ", 100) + "\r\n"
	msg, err := ParseMessage("1:3", strings.NewReader(raw), time.Now(), time.Now())
	require.NoError(t, err)
	assert.Len(t, []rune(msg.Snippet), snippetLength)
}
