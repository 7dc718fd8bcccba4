package imap

import (
	"io"
	"strings"
	"time"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
	"github.com/rotisserie/eris"

	ingestdomain "jobtrack-backend/internal/ingest/domain"
	"jobtrack-backend/pkg/mailtext"
)

const snippetLength = 200

// ParseMessage reads an RFC 5322 message into an ExternalMessage. Leaf
// bodies are transfer-decoded, converted to UTF-8 and re-encoded as base64url
// so the tree looks like any other provider's.
func ParseMessage(id string, r io.Reader, internalDate, now time.Time) (*ingestdomain.ExternalMessage, error) {
	entity, err := message.Read(r)
	if err != nil && !message.IsUnknownCharset(err) {
		return nil, eris.Wrap(err, "read message")
	}

	header := mail.Header{Header: entity.Header}
	subject, err := header.Subject()
	if err != nil {
		subject = header.Get("Subject")
	}
	sender, err := header.Text("From")
	if err != nil {
		sender = header.Get("From")
	}

	body, err := convertEntity(entity)
	if err != nil {
		return nil, err
	}

	return &ingestdomain.ExternalMessage{
		ExternalID: id,
		Subject:    subject,
		Sender:     sender,
		ReceivedAt: receivedAt(internalDate, header, now),
		Snippet:    snippet(body),
		Body:       body,
	}, nil
}

func receivedAt(internalDate time.Time, header mail.Header, now time.Time) time.Time {
	if !internalDate.IsZero() {
		return internalDate.UTC()
	}
	if date, err := header.Date(); err == nil && !date.IsZero() {
		return date.UTC()
	}
	return now.UTC()
}

func convertEntity(e *message.Entity) (*ingestdomain.MessagePart, error) {
	mediaType, _, err := e.Header.ContentType()
	if err != nil || mediaType == "" {
		mediaType = "text/plain"
	}

	if mr := e.MultipartReader(); mr != nil {
		part := &ingestdomain.MessagePart{MimeType: mediaType}
		for {
			child, err := mr.NextPart()
			if err == io.EOF {
				break
			}
			if err != nil && !message.IsUnknownCharset(err) {
				return nil, eris.Wrap(err, "read part")
			}
			converted, err := convertEntity(child)
			if err != nil {
				return nil, err
			}
			part.Parts = append(part.Parts, converted)
		}
		return part, nil
	}

	if !strings.HasPrefix(mediaType, "text/") {
		return &ingestdomain.MessagePart{MimeType: mediaType}, nil
	}
	data, err := io.ReadAll(e.Body)
	if err != nil {
		// A broken leaf contributes no text; the rest of the message survives.
		return &ingestdomain.MessagePart{MimeType: mediaType}, nil
	}
	return &ingestdomain.MessagePart{MimeType: mediaType, Data: mailtext.EncodeData(data)}, nil
}

func snippet(body *ingestdomain.MessagePart) string {
	text := strings.Join(strings.Fields(mailtext.Extract(body).Text()), " ")
	if r := []rune(text); len(r) > snippetLength {
		return string(r[:snippetLength])
	}
	return text
}
