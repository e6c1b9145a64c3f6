package email

import (
	"bytes"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/jhillyerd/enmime"
)

// Parsed is the host view of a single message.
type Parsed struct {
	Subject     string
	FromName    string
	FromAddress string
	MessageID   string
	Date        time.Time
	Text        string
	HTML        string
	Attachments []string
}

// ParseMessage decodes a raw RFC 822 message. Text falls back to a plain
// rendering of the HTML part when the message has no text part.
func ParseMessage(raw []byte) (*Parsed, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse message: %w", err)
	}

	p := &Parsed{
		Subject:   env.GetHeader("Subject"),
		MessageID: strings.TrimSpace(env.GetHeader("Message-Id")),
		Text:      env.Text,
		HTML:      env.HTML,
	}
	if from, err := env.AddressList("From"); err == nil && len(from) > 0 {
		p.FromName = from[0].Name
		p.FromAddress = from[0].Address
	}
	if date, err := mail.ParseDate(env.GetHeader("Date")); err == nil {
		p.Date = date
	}
	for i, att := range env.Attachments {
		name := att.FileName
		if name == "" {
			name = fmt.Sprintf("attachment-%d", i+1)
		}
		p.Attachments = append(p.Attachments, name)
	}
	return p, nil
}

// SenderDisplayName is the sender's display name, or the address when the
// From header carries no name.
func (p *Parsed) SenderDisplayName() string {
	if p.FromName != "" {
		return p.FromName
	}
	return p.FromAddress
}
