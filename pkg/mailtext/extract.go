// Package mailtext turns a MIME part tree into text the classifier can read.
package mailtext

import (
	"encoding/base64"
	"regexp"
	"strings"

	ingestdomain "jobtrack-backend/internal/ingest/domain"
)

// Extracted holds the text found in a message body.
type Extracted struct {
	PlainText string
	HTMLText  string
}

// Text is the plain-text rendition when it has content, otherwise the
// converted HTML, otherwise "".
func (e Extracted) Text() string {
	if strings.TrimSpace(e.PlainText) != "" {
		return e.PlainText
	}
	if strings.TrimSpace(e.HTMLText) != "" {
		return e.HTMLText
	}
	return ""
}

// Extract walks the part tree depth-first, left to right, concatenating
// text/plain leaves and converted text/html leaves. A leaf whose payload is
// missing or undecodable contributes nothing; its siblings are unaffected.
func Extract(root *ingestdomain.MessagePart) Extracted {
	var plain, htmlText strings.Builder
	walk(root, &plain, &htmlText)
	return Extracted{
		PlainText: plain.String(),
		HTMLText:  htmlText.String(),
	}
}

func walk(part *ingestdomain.MessagePart, plain, htmlText *strings.Builder) {
	if part == nil {
		return
	}
	if part.IsContainer() {
		for _, child := range part.Parts {
			walk(child, plain, htmlText)
		}
		return
	}

	mimeType := strings.ToLower(part.MimeType)
	switch {
	case strings.HasPrefix(mimeType, "text/plain"):
		plain.WriteString(DecodeData(part.Data))
	case strings.HasPrefix(mimeType, "text/html"):
		if raw := DecodeData(part.Data); raw != "" {
			htmlText.WriteString(HTMLToText(raw))
		}
	}
}

var (
	base64Whitespace = strings.NewReplacer("\r", "", "\n", "", " ", "", "\t", "")
	curlyQuotes      = strings.NewReplacer("\u2018", "'", "\u2019", "'", "\u201c", `"`, "\u201d", `"`)
)

// DecodeData decodes a base64url payload, padded or not. Standard-alphabet
// payloads are accepted too. Anything undecodable yields "".
func DecodeData(data string) string {
	if data == "" {
		return ""
	}
	cleaned := strings.TrimRight(base64Whitespace.Replace(data), "=")
	if b, err := base64.RawURLEncoding.DecodeString(cleaned); err == nil {
		return string(b)
	}
	if b, err := base64.RawStdEncoding.DecodeString(cleaned); err == nil {
		return string(b)
	}
	return ""
}

// EncodeData is the inverse of DecodeData, for providers that hand over raw
// bytes.
func EncodeData(raw []byte) string {
	return base64.RawURLEncoding.EncodeToString(raw)
}

var (
	horizontalSpace = regexp.MustCompile(`[ \t\f\v\r\x{00a0}]+`)
	spaceAroundNL   = regexp.MustCompile(` ?\n ?`)
	manyNewlines    = regexp.MustCompile(`\n{3,}`)
)

// Normalize lowercases text, straightens curly quotes and collapses all
// whitespace, newlines included, to single spaces.
func Normalize(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(curlyQuotes.Replace(text))), " ")
}

// tidy collapses horizontal whitespace runs to one space, trims spaces next to
// newlines and caps newline runs at two.
func tidy(text string) string {
	text = horizontalSpace.ReplaceAllString(text, " ")
	text = spaceAroundNL.ReplaceAllString(text, "\n")
	text = manyNewlines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
