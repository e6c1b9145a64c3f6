package mailbox

import (
	"context"
	"fmt"

	"mailassist/internal/config"
	"mailassist/internal/email"
	"mailassist/internal/imap"
	"mailassist/internal/panel"
)

// IMAPMessage is a message on the IMAP server. Replies are saved as
// drafts in the configured drafts mailbox.
type IMAPMessage struct {
	message

	service *imap.Service
	cfg     config.Config
	mailbox string
	uid     uint32
	sink    AppointmentSink
}

var (
	_ panel.Mailbox = (*IMAPMessage)(nil)
	_ panel.Host    = (*IMAPMessage)(nil)
)

func NewIMAPMessage(service *imap.Service, cfg config.Config, mailbox string, uid uint32, sink AppointmentSink) *IMAPMessage {
	if mailbox == "" {
		mailbox = cfg.Defaults.Mailbox
	}
	m := &IMAPMessage{
		service: service,
		cfg:     cfg,
		mailbox: mailbox,
		uid:     uid,
		sink:    sink,
	}
	m.load = func(ctx context.Context) ([]byte, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return m.service.FetchRawMessage(m.cfg, m.mailbox, m.uid)
	}
	return m
}

func (m *IMAPMessage) InsertReply(ctx context.Context, text string) error {
	raw, err := m.rawBytes(ctx)
	if err != nil {
		return err
	}
	reply, err := email.BuildReply(raw, email.ReplyOptions{
		From:  m.cfg.Auth.Username,
		Body:  text,
		Quote: true,
	})
	if err != nil {
		return fmt.Errorf("build reply: %w", err)
	}
	drafts := m.cfg.Defaults.DraftsMailbox
	if drafts == "" {
		drafts = "Drafts"
	}
	return m.service.SaveDraft(m.cfg, drafts, reply)
}

func (m *IMAPMessage) NewAppointment(ctx context.Context, appt panel.Appointment) error {
	return newAppointment(ctx, m.sink, appt)
}
