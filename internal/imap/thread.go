package imap

import (
	"errors"
	"sort"
	"strings"

	"mailassist/internal/config"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/commands"
	"github.com/emersion/go-imap/responses"
)

var ErrThreadUnsupported = errors.New("imap server does not support THREAD")

// threadAlgorithms lists the RFC 5256 algorithms in order of preference.
var threadAlgorithms = []string{"REFERENCES", "REFS", "ORDEREDSUBJECT"}

// threader is implemented by clients that can send raw commands, which the
// THREAD extension needs since go-imap v1 has no helper for it.
type threader interface {
	Execute(cmdr imap.Commander, h responses.Handler) (*imap.StatusResp, error)
	Capability() (map[string]bool, error)
}

// conversation is the UIDs of one THREAD response branch, deduplicated.
type conversation []uint32

func (c conversation) newest() uint32 {
	var max uint32
	for _, uid := range c {
		if uid > max {
			max = uid
		}
	}
	return max
}

func (c conversation) contains(uid uint32) bool {
	for _, u := range c {
		if u == uid {
			return true
		}
	}
	return false
}

type threadCommand struct {
	algorithm string
	criteria  *imap.SearchCriteria
}

func (cmd *threadCommand) Command() *imap.Command {
	args := []interface{}{imap.RawString(cmd.algorithm), imap.RawString("UTF-8")}
	args = append(args, cmd.criteria.Format()...)
	return &imap.Command{Name: "THREAD", Arguments: args}
}

type threadResponse struct {
	conversations []conversation
}

func (r *threadResponse) Handle(resp imap.Resp) error {
	name, fields, ok := imap.ParseNamedResp(resp)
	if !ok || name != "THREAD" {
		return responses.ErrUnhandled
	}
	conversations, err := parseConversations(fields)
	if err != nil {
		return err
	}
	r.conversations = conversations
	return nil
}

// parseConversations turns the nested THREAD response lists into flat
// conversations. Each top-level list is one conversation.
func parseConversations(fields []interface{}) ([]conversation, error) {
	var out []conversation
	for _, field := range fields {
		uids, err := flattenUIDs(field, nil)
		if err != nil {
			return nil, err
		}
		conv := dedupe(uids)
		if len(conv) > 0 {
			out = append(out, conv)
		}
	}
	return out, nil
}

func flattenUIDs(field interface{}, acc []uint32) ([]uint32, error) {
	switch v := field.(type) {
	case nil:
		return acc, nil
	case []interface{}:
		var err error
		for _, item := range v {
			if acc, err = flattenUIDs(item, acc); err != nil {
				return nil, err
			}
		}
		return acc, nil
	default:
		uid, err := imap.ParseNumber(v)
		if err != nil {
			return nil, err
		}
		return append(acc, uid), nil
	}
}

func dedupe(uids []uint32) conversation {
	seen := make(map[uint32]struct{}, len(uids))
	out := make(conversation, 0, len(uids))
	for _, uid := range uids {
		if _, ok := seen[uid]; ok {
			continue
		}
		seen[uid] = struct{}{}
		out = append(out, uid)
	}
	return out
}

// pickAlgorithm returns the preferred THREAD algorithm advertised in caps.
func pickAlgorithm(caps map[string]bool) (string, bool) {
	advertised := map[string]bool{}
	for c := range caps {
		name, ok := strings.CutPrefix(strings.ToUpper(c), "THREAD=")
		if ok {
			advertised[strings.ReplaceAll(name, "-", "")] = true
		}
	}
	for _, alg := range threadAlgorithms {
		if advertised[alg] {
			return alg, true
		}
	}
	return "", false
}

// conversations runs UID THREAD over the selected mailbox.
func conversations(c Client, criteria *imap.SearchCriteria) ([]conversation, error) {
	t, ok := c.(threader)
	if !ok {
		return nil, ErrThreadUnsupported
	}
	caps, err := t.Capability()
	if err != nil {
		return nil, err
	}
	alg, ok := pickAlgorithm(caps)
	if !ok {
		return nil, ErrThreadUnsupported
	}
	if criteria == nil {
		criteria = imap.NewSearchCriteria()
	}

	res := &threadResponse{}
	status, err := t.Execute(&commands.Uid{Cmd: &threadCommand{algorithm: alg, criteria: criteria}}, res)
	if err != nil {
		return nil, err
	}
	if err := status.Err(); err != nil {
		return nil, err
	}
	return res.conversations, nil
}

// SearchThreads groups the messages matching query into conversations. Each
// summary describes the newest message of its conversation, newest first.
func (s *Service) SearchThreads(cfg config.Config, mailbox, query string, page, pageSize int) ([]ThreadSummary, int, error) {
	var summaries []ThreadSummary
	var total int

	err := s.withClient(cfg, func(c Client) error {
		if _, err := c.Select(mailbox, true); err != nil {
			return err
		}
		criteria := imap.NewSearchCriteria()
		if q := strings.TrimSpace(query); q != "" {
			criteria.Text = []string{q}
		}
		convs, err := conversations(c, criteria)
		if err != nil {
			return err
		}
		total = len(convs)

		sizes := make(map[uint32]int, len(convs))
		heads := make([]uint32, 0, len(convs))
		for _, conv := range convs {
			head := conv.newest()
			sizes[head] = len(conv)
			heads = append(heads, head)
		}
		window := pageNewestFirst(heads, page, pageSize)
		if len(window) == 0 {
			return nil
		}

		messages, err := fetchSummaries(c, window)
		if err != nil {
			return err
		}
		for _, m := range messages {
			summaries = append(summaries, ThreadSummary{
				UID:     m.UID,
				Count:   sizes[m.UID],
				Subject: m.Subject,
				From:    m.From,
				Date:    m.Date,
			})
		}
		return nil
	})

	sort.Slice(summaries, func(i, j int) bool { return summaries[i].UID > summaries[j].UID })
	return summaries, total, err
}

// ThreadSize returns how many messages of mailbox share a conversation with
// uid. A message outside any conversation counts as 1.
func (s *Service) ThreadSize(cfg config.Config, mailbox string, uid uint32) (int, error) {
	size := 1
	err := s.withClient(cfg, func(c Client) error {
		if _, err := c.Select(mailbox, true); err != nil {
			return err
		}
		convs, err := conversations(c, nil)
		if err != nil {
			return err
		}
		for _, conv := range convs {
			if conv.contains(uid) {
				size = len(conv)
				break
			}
		}
		return nil
	})
	return size, err
}
