package imap

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"time"

	"mailassist/internal/config"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/responses"
)

type mockClient struct {
	listNames []string
	uids      []uint32
	messages  map[uint32]*imap.Message
	appended  []appendCall
	criteria  *imap.SearchCriteria
	loggedOut bool
}

type appendCall struct {
	mailbox string
	flags   []string
	data    []byte
}

func (m *mockClient) Login(username, password string) error { return nil }
func (m *mockClient) Logout() error {
	m.loggedOut = true
	return nil
}
func (m *mockClient) Select(name string, readOnly bool) (*imap.MailboxStatus, error) {
	return &imap.MailboxStatus{Name: name}, nil
}
func (m *mockClient) List(ref, name string, ch chan *imap.MailboxInfo) error {
	for _, mailbox := range m.listNames {
		ch <- &imap.MailboxInfo{Name: mailbox}
	}
	close(ch)
	return nil
}
func (m *mockClient) UidSearch(criteria *imap.SearchCriteria) ([]uint32, error) {
	m.criteria = criteria
	return append([]uint32(nil), m.uids...), nil
}
func (m *mockClient) UidFetch(seqset *imap.SeqSet, items []imap.FetchItem, ch chan *imap.Message) error {
	for _, uid := range m.uids {
		if msg, ok := m.messages[uid]; ok && seqset.Contains(uid) {
			ch <- msg
		}
	}
	close(ch)
	return nil
}
func (m *mockClient) Append(mailbox string, flags []string, date time.Time, msg imap.Literal) error {
	data, err := io.ReadAll(msg)
	if err != nil {
		return err
	}
	m.appended = append(m.appended, appendCall{mailbox: mailbox, flags: flags, data: data})
	return nil
}

type threadMockClient struct {
	*mockClient
	caps    map[string]bool
	threads []conversation
}

func (m *threadMockClient) Capability() (map[string]bool, error) { return m.caps, nil }
func (m *threadMockClient) Execute(cmdr imap.Commander, h responses.Handler) (*imap.StatusResp, error) {
	res, ok := h.(*threadResponse)
	if !ok {
		return nil, errors.New("unexpected handler")
	}
	res.conversations = m.threads
	return &imap.StatusResp{Type: imap.StatusRespOk}, nil
}

func serviceFor(c Client) *Service {
	return &Service{Connector: func(cfg config.Config) (Client, error) {
		return c, nil
	}}
}

func rawMessage(uid uint32, date time.Time, body string) *imap.Message {
	return &imap.Message{
		Uid:          uid,
		InternalDate: date,
		Envelope:     &imap.Envelope{Subject: body, Date: date, From: []*imap.Address{{PersonalName: "Ana", MailboxName: "ana", HostName: "example.com"}}},
		Body: map[*imap.BodySectionName]imap.Literal{
			{}: bytes.NewBufferString(body),
		},
	}
}

func TestListMailboxesWithMock(t *testing.T) {
	mock := &mockClient{listNames: []string{"INBOX", "Archive"}}

	mailboxes, err := serviceFor(mock).ListMailboxes(config.Config{})
	if err != nil {
		t.Fatalf("list mailboxes: %v", err)
	}
	if len(mailboxes) != 2 {
		t.Fatalf("expected 2 mailboxes, got %d", len(mailboxes))
	}
	if mailboxes[0] != "INBOX" || mailboxes[1] != "Archive" {
		t.Fatalf("unexpected mailboxes: %v", mailboxes)
	}
	if !mock.loggedOut {
		t.Fatalf("expected logout to be called")
	}
}

func TestFetchRawMessage(t *testing.T) {
	now := time.Now()
	mock := &mockClient{uids: []uint32{7}, messages: map[uint32]*imap.Message{7: rawMessage(7, now, "raw-7")}}

	raw, err := serviceFor(mock).FetchRawMessage(config.Config{}, "INBOX", 7)
	if err != nil {
		t.Fatalf("fetch raw: %v", err)
	}
	if string(raw) != "raw-7" {
		t.Fatalf("raw = %q", raw)
	}

	if _, err := serviceFor(&mockClient{}).FetchRawMessage(config.Config{}, "INBOX", 9); err == nil {
		t.Fatalf("expected not found error")
	}
}

func TestSaveDraftAppendsWithDraftFlag(t *testing.T) {
	mock := &mockClient{}
	if err := serviceFor(mock).SaveDraft(config.Config{}, "Drafts", []byte("draft")); err != nil {
		t.Fatalf("save draft: %v", err)
	}
	if len(mock.appended) != 1 {
		t.Fatalf("expected one append, got %d", len(mock.appended))
	}
	call := mock.appended[0]
	if call.mailbox != "Drafts" || string(call.data) != "draft" {
		t.Fatalf("unexpected append: %+v", call)
	}
	if len(call.flags) != 1 || call.flags[0] != imap.DraftFlag {
		t.Fatalf("flags = %v", call.flags)
	}
}

func TestFetchSinceNewestFirstWithLimit(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	mock := &mockClient{
		uids: []uint32{1, 2, 3},
		messages: map[uint32]*imap.Message{
			1: rawMessage(1, base, "one"),
			2: rawMessage(2, base.Add(time.Hour), "two"),
			3: rawMessage(3, base.Add(2*time.Hour), "three"),
		},
	}

	since := base.Add(-24 * time.Hour)
	got, err := serviceFor(mock).FetchSince(config.Config{}, "Sent", since, 2)
	if err != nil {
		t.Fatalf("fetch since: %v", err)
	}
	if len(got) != 2 || string(got[0].Raw) != "three" || string(got[1].Raw) != "two" {
		t.Fatalf("unexpected messages: %+v", got)
	}
	if !mock.criteria.Since.Equal(since) {
		t.Fatalf("since criteria = %v", mock.criteria.Since)
	}
}

func TestListMessagesPagination(t *testing.T) {
	now := time.Now()
	mock := &mockClient{uids: []uint32{1, 2, 3, 4, 5}, messages: map[uint32]*imap.Message{}}
	for _, uid := range mock.uids {
		mock.messages[uid] = rawMessage(uid, now, "m")
	}

	messages, total, err := serviceFor(mock).ListMessages(config.Config{}, "INBOX", 1, 2)
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if total != 5 || len(messages) != 2 || messages[0].UID != 5 || messages[1].UID != 4 {
		t.Fatalf("unexpected page: total %d %+v", total, messages)
	}
	if messages[0].From != "Ana <ana@example.com>" {
		t.Fatalf("from = %q", messages[0].From)
	}
}

func TestSearchThreadsUnsupported(t *testing.T) {
	_, _, err := serviceFor(&mockClient{}).SearchThreads(config.Config{}, "INBOX", "q", 1, 10)
	if !errors.Is(err, ErrThreadUnsupported) {
		t.Fatalf("expected ErrThreadUnsupported, got %v", err)
	}

	noThreadCaps := &threadMockClient{mockClient: &mockClient{}, caps: map[string]bool{"IMAP4rev1": true}}
	_, _, err = serviceFor(noThreadCaps).SearchThreads(config.Config{}, "INBOX", "q", 1, 10)
	if !errors.Is(err, ErrThreadUnsupported) {
		t.Fatalf("expected ErrThreadUnsupported without THREAD capability, got %v", err)
	}
}

func TestSearchThreads(t *testing.T) {
	now := time.Now()
	base := &mockClient{uids: []uint32{1, 2, 3, 4}, messages: map[uint32]*imap.Message{}}
	for _, uid := range base.uids {
		base.messages[uid] = rawMessage(uid, now, "subject")
	}
	mock := &threadMockClient{
		mockClient: base,
		caps:       map[string]bool{"THREAD=REFERENCES": true},
		threads:    []conversation{{1, 3}, {2}, {4}},
	}

	threads, total, err := serviceFor(mock).SearchThreads(config.Config{}, "INBOX", "q", 1, 10)
	if err != nil {
		t.Fatalf("search threads: %v", err)
	}
	if total != 3 || len(threads) != 3 {
		t.Fatalf("unexpected threads: total %d %+v", total, threads)
	}
	if threads[0].UID != 4 || threads[1].UID != 3 || threads[1].Count != 2 || threads[2].UID != 2 {
		t.Fatalf("unexpected ordering: %+v", threads)
	}
}

func TestThreadSize(t *testing.T) {
	mock := &threadMockClient{
		mockClient: &mockClient{},
		caps:       map[string]bool{"THREAD=REFERENCES": true},
		threads:    []conversation{{1, 3, 5}, {2}},
	}
	tests := []struct {
		uid  uint32
		want int
	}{
		{uid: 3, want: 3},
		{uid: 2, want: 1},
		{uid: 9, want: 1},
	}
	for _, tc := range tests {
		got, err := serviceFor(mock).ThreadSize(config.Config{}, "INBOX", tc.uid)
		if err != nil {
			t.Fatalf("thread size: %v", err)
		}
		if got != tc.want {
			t.Fatalf("ThreadSize(%d) = %d, want %d", tc.uid, got, tc.want)
		}
	}

	if _, err := serviceFor(&mockClient{}).ThreadSize(config.Config{}, "INBOX", 1); !errors.Is(err, ErrThreadUnsupported) {
		t.Fatalf("expected ErrThreadUnsupported, got %v", err)
	}
}

func TestPickAlgorithm(t *testing.T) {
	tests := []struct {
		name string
		caps map[string]bool
		want string
		ok   bool
	}{
		{name: "prefers references", caps: map[string]bool{"THREAD=ORDEREDSUBJECT": true, "THREAD=REFERENCES": true}, want: "REFERENCES", ok: true},
		{name: "hyphenated ordered subject", caps: map[string]bool{"thread=ordered-subject": true}, want: "ORDEREDSUBJECT", ok: true},
		{name: "none", caps: map[string]bool{"IMAP4rev1": true}},
		{name: "empty"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := pickAlgorithm(tc.caps)
			if got != tc.want || ok != tc.ok {
				t.Fatalf("pickAlgorithm = %q %v, want %q %v", got, ok, tc.want, tc.ok)
			}
		})
	}
}

func TestParseConversations(t *testing.T) {
	fields := []interface{}{
		[]interface{}{"1", []interface{}{"2", "3"}},
		[]interface{}{"4", "4"},
		[]interface{}{},
	}
	convs, err := parseConversations(fields)
	if err != nil {
		t.Fatalf("parse conversations: %v", err)
	}
	if len(convs) != 2 || len(convs[0]) != 3 || len(convs[1]) != 1 {
		t.Fatalf("conversations = %v", convs)
	}
	if convs[0].newest() != 3 {
		t.Fatalf("newest = %d", convs[0].newest())
	}
}
