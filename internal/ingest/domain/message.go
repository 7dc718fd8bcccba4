package domain

import "time"

// ExternalMessage is a read-only view of one inbox entry as the mailbox
// provider returned it.
type ExternalMessage struct {
	ExternalID string
	Subject    string
	Sender     string
	ReceivedAt time.Time
	Snippet    string
	Body       *MessagePart
}

// MessagePart is a node of the MIME tree. Leaves carry a MIME type and a
// base64url payload in Data; containers carry Parts.
type MessagePart struct {
	MimeType string
	Data     string
	Parts    []*MessagePart
}

func (p *MessagePart) IsContainer() bool {
	return p != nil && len(p.Parts) > 0
}
