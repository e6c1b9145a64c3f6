package imap

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"mailassist/internal/config"

	"github.com/emersion/go-imap"
	imapclient "github.com/emersion/go-imap/client"
)

// Client is the subset of the go-imap client used by Service.
type Client interface {
	Login(username, password string) error
	Logout() error
	Select(name string, readOnly bool) (*imap.MailboxStatus, error)
	List(ref, name string, ch chan *imap.MailboxInfo) error
	UidSearch(criteria *imap.SearchCriteria) ([]uint32, error)
	UidFetch(seqset *imap.SeqSet, items []imap.FetchItem, ch chan *imap.Message) error
	Append(mailbox string, flags []string, date time.Time, msg imap.Literal) error
}

type Service struct {
	Connector func(cfg config.Config) (Client, error)
}

func NewService() *Service {
	return &Service{Connector: Connect}
}

func Connect(cfg config.Config) (Client, error) {
	addr := fmt.Sprintf("%s:%d", cfg.IMAP.Host, cfg.IMAP.Port)
	tlsConfig := &tls.Config{
		ServerName:         cfg.IMAP.Host,
		InsecureSkipVerify: cfg.IMAP.InsecureSkipVerify,
	}

	var c *imapclient.Client
	var err error
	if cfg.IMAP.TLS {
		c, err = imapclient.DialTLS(addr, tlsConfig)
	} else {
		c, err = imapclient.Dial(addr)
		if err == nil && cfg.IMAP.StartTLS {
			if err := c.StartTLS(tlsConfig); err != nil {
				_ = c.Logout()
				return nil, err
			}
		}
	}
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", addr, err)
	}

	if err := c.Login(cfg.Auth.Username, cfg.Auth.Password); err != nil {
		_ = c.Logout()
		return nil, fmt.Errorf("login: %w", err)
	}

	return c, nil
}

func (s *Service) withClient(cfg config.Config, fn func(Client) error) error {
	connector := s.Connector
	if connector == nil {
		connector = Connect
	}
	client, err := connector(cfg)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Logout()
	}()
	return fn(client)
}

func (s *Service) ListMailboxes(cfg config.Config) ([]string, error) {
	mailboxes := []string{}
	err := s.withClient(cfg, func(c Client) error {
		ch := make(chan *imap.MailboxInfo, 10)
		done := make(chan error, 1)
		go func() {
			done <- c.List("", "*", ch)
		}()
		for mbox := range ch {
			mailboxes = append(mailboxes, mbox.Name)
		}
		return <-done
	})
	return mailboxes, err
}

func (s *Service) ListMessages(cfg config.Config, mailbox string, page, pageSize int) ([]MessageSummary, int, error) {
	return s.listMessagesWithCriteria(cfg, mailbox, nil, page, pageSize)
}

func (s *Service) SearchMessages(cfg config.Config, mailbox, query string, page, pageSize int) ([]MessageSummary, int, error) {
	criteria := imap.NewSearchCriteria()
	criteria.Text = []string{query}
	return s.listMessagesWithCriteria(cfg, mailbox, criteria, page, pageSize)
}

func (s *Service) listMessagesWithCriteria(cfg config.Config, mailbox string, criteria *imap.SearchCriteria, page, pageSize int) ([]MessageSummary, int, error) {
	var messages []MessageSummary
	var total int

	err := s.withClient(cfg, func(c Client) error {
		if _, err := c.Select(mailbox, true); err != nil {
			return err
		}
		if criteria == nil {
			criteria = imap.NewSearchCriteria()
		}

		uids, err := c.UidSearch(criteria)
		if err != nil {
			return err
		}
		total = len(uids)
		subset := pageNewestFirst(uids, page, pageSize)
		if len(subset) == 0 {
			return nil
		}

		messages, err = fetchSummaries(c, subset)
		return err
	})

	sort.Slice(messages, func(i, j int) bool { return messages[i].UID > messages[j].UID })

	return messages, total, err
}

// pageNewestFirst sorts uids ascending and returns the page-th window
// counted from the highest UID.
func pageNewestFirst(uids []uint32, page, pageSize int) []uint32 {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	sort.Slice(uids, func(i, j int) bool { return uids[i] < uids[j] })

	end := len(uids) - (page-1)*pageSize
	if end <= 0 {
		return nil
	}
	start := end - pageSize
	if start < 0 {
		start = 0
	}
	return uids[start:end]
}

func fetchSummaries(c Client, uids []uint32) ([]MessageSummary, error) {
	seqset := new(imap.SeqSet)
	seqset.AddNum(uids...)

	items := []imap.FetchItem{imap.FetchEnvelope, imap.FetchFlags, imap.FetchUid, imap.FetchRFC822Size}
	ch := make(chan *imap.Message, len(uids))
	done := make(chan error, 1)
	go func() {
		done <- c.UidFetch(seqset, items, ch)
	}()

	var out []MessageSummary
	for msg := range ch {
		if msg == nil || msg.Envelope == nil {
			continue
		}
		out = append(out, MessageSummary{
			UID:     msg.Uid,
			Subject: msg.Envelope.Subject,
			From:    formatIMAPAddresses(msg.Envelope.From),
			Date:    msg.Envelope.Date,
			Size:    msg.Size,
			Flags:   msg.Flags,
		})
	}
	if err := <-done; err != nil {
		return nil, err
	}
	return out, nil
}

// fetchRaw streams the full bodies of uids. The server may return them in
// any order.
func fetchRaw(c Client, uids []uint32) ([]RawMessage, error) {
	seqset := new(imap.SeqSet)
	seqset.AddNum(uids...)
	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchUid, imap.FetchInternalDate, section.FetchItem()}

	ch := make(chan *imap.Message, len(uids))
	done := make(chan error, 1)
	go func() {
		done <- c.UidFetch(seqset, items, ch)
	}()

	var out []RawMessage
	var readErr error
	for msg := range ch {
		if msg == nil || readErr != nil {
			continue
		}
		body := msg.GetBody(section)
		if body == nil {
			continue
		}
		data, err := io.ReadAll(body)
		if err != nil {
			readErr = fmt.Errorf("read message %d: %w", msg.Uid, err)
			continue
		}
		out = append(out, RawMessage{UID: msg.Uid, InternalDate: msg.InternalDate, Raw: data})
	}
	if err := <-done; err != nil {
		return nil, err
	}
	return out, readErr
}

func (s *Service) FetchRawMessage(cfg config.Config, mailbox string, uid uint32) ([]byte, error) {
	var raw []byte
	err := s.withClient(cfg, func(c Client) error {
		if _, err := c.Select(mailbox, true); err != nil {
			return err
		}
		messages, err := fetchRaw(c, []uint32{uid})
		if err != nil {
			return err
		}
		for _, m := range messages {
			if m.UID == uid {
				raw = m.Raw
				return nil
			}
		}
		return fmt.Errorf("message %d not found in %s", uid, mailbox)
	})
	return raw, err
}

// SaveDraft appends raw to mailbox flagged as a draft.
func (s *Service) SaveDraft(cfg config.Config, mailbox string, raw []byte) error {
	return s.withClient(cfg, func(c Client) error {
		return c.Append(mailbox, []string{imap.DraftFlag}, time.Now(), bytes.NewReader(raw))
	})
}

// FetchSince returns up to limit messages of mailbox dated on or after
// since, newest first. Only the newest UIDs are downloaded.
func (s *Service) FetchSince(cfg config.Config, mailbox string, since time.Time, limit int) ([]RawMessage, error) {
	var out []RawMessage
	err := s.withClient(cfg, func(c Client) error {
		if _, err := c.Select(mailbox, true); err != nil {
			return err
		}
		criteria := imap.NewSearchCriteria()
		criteria.Since = since
		uids, err := c.UidSearch(criteria)
		if err != nil || len(uids) == 0 {
			return err
		}
		sort.Slice(uids, func(i, j int) bool { return uids[i] > uids[j] })
		if limit > 0 && len(uids) > limit {
			uids = uids[:limit]
		}
		out, err = fetchRaw(c, uids)
		return err
	})

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].InternalDate.Equal(out[j].InternalDate) {
			return out[i].InternalDate.After(out[j].InternalDate)
		}
		return out[i].UID > out[j].UID
	})
	return out, err
}

func formatIMAPAddresses(addrs []*imap.Address) string {
	if len(addrs) == 0 {
		return ""
	}
	parts := make([]string, 0, len(addrs))
	for _, addr := range addrs {
		if addr == nil {
			continue
		}
		full := addr.MailboxName
		if addr.HostName != "" {
			full = addr.MailboxName + "@" + addr.HostName
		}
		if addr.PersonalName != "" {
			parts = append(parts, fmt.Sprintf("%s <%s>", addr.PersonalName, full))
		} else {
			parts = append(parts, full)
		}
	}
	return strings.Join(parts, ", ")
}
