package corpus

import (
	"context"
	"fmt"
	"time"

	"mailassist/internal/config"
	"mailassist/internal/email"
	"mailassist/internal/imap"
	"mailassist/internal/logger"

	"go.uber.org/zap"
)

const isoMillis = "2006-01-02T15:04:05.000Z07:00"

// Source fetches sent messages newer than since, newest first. A limit of
// zero or less means no limit.
type Source interface {
	Fetch(ctx context.Context, since time.Time, limit int) ([]Message, error)
}

// Window is the look-back range of an export.
type Window struct {
	Start time.Time
	End   time.Time
}

// MonthsBack is the window ending at now and starting the given number of
// calendar months earlier.
func MonthsBack(now time.Time, months int) Window {
	return Window{Start: now.AddDate(0, -months, 0), End: now}
}

// Run fetches from src and assembles the export document.
func Run(ctx context.Context, src Source, window Window, limit int, log *zap.Logger) (Export, error) {
	log = logger.OrNop(log)
	log.Info("extracting sent mail",
		zap.Time("start", window.Start),
		zap.Time("end", window.End),
		zap.Int("limit", limit))

	msgs, err := src.Fetch(ctx, window.Start, limit)
	if err != nil {
		return Export{}, err
	}
	log.Info("extracted sent mail", zap.Int("count", len(msgs)))
	return NewExport(msgs, time.Now()), nil
}

// IMAPSource reads the sent-mail folder of an IMAP account.
type IMAPSource struct {
	Service *imap.Service
	Config  config.Config
	Mailbox string
	Log     *zap.Logger
}

func (s *IMAPSource) Fetch(ctx context.Context, since time.Time, limit int) ([]Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	mailbox := s.Mailbox
	if mailbox == "" {
		mailbox = s.Config.Defaults.SentMailbox
	}
	raws, err := s.Service.FetchSince(s.Config, mailbox, since, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", mailbox, err)
	}

	log := logger.OrNop(s.Log)
	msgs := make([]Message, 0, len(raws))
	for _, raw := range raws {
		parsed, err := email.ParseMessage(raw.Raw)
		if err != nil {
			log.Warn("skipping unparsable message", zap.Uint32("uid", raw.UID), zap.Error(err))
			continue
		}
		msgs = append(msgs, messageFromParsed(parsed, raw))
	}
	return msgs, nil
}

func messageFromParsed(p *email.Parsed, raw imap.RawMessage) Message {
	sent := p.Date
	if sent.IsZero() {
		sent = raw.InternalDate
	}
	m := Message{
		Subject:  p.Subject,
		SentDate: sent.UTC().Format(time.RFC3339),
		Body:     p.Text,
		BodyType: "text",
		From:     p.FromAddress,
	}
	if m.Body == "" && p.HTML != "" {
		m.Body = p.HTML
		m.BodyType = "html"
	}
	if info, err := email.ReadReplyInfo(raw.Raw); err == nil {
		m.ToRecipients = info.To
	}
	return m
}
