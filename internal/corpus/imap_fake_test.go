package corpus

import (
	"bytes"
	"time"

	"github.com/emersion/go-imap"
)

type sentClient struct {
	raw []byte
}

func (c *sentClient) Login(username, password string) error { return nil }
func (c *sentClient) Logout() error                         { return nil }
func (c *sentClient) Select(name string, readOnly bool) (*imap.MailboxStatus, error) {
	return &imap.MailboxStatus{Name: name}, nil
}
func (c *sentClient) List(ref, name string, ch chan *imap.MailboxInfo) error {
	close(ch)
	return nil
}
func (c *sentClient) UidSearch(criteria *imap.SearchCriteria) ([]uint32, error) {
	return []uint32{1}, nil
}
func (c *sentClient) UidFetch(seqset *imap.SeqSet, items []imap.FetchItem, ch chan *imap.Message) error {
	ch <- &imap.Message{
		Uid:          1,
		InternalDate: time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC),
		Body:         map[*imap.BodySectionName]imap.Literal{{}: bytes.NewReader(c.raw)},
	}
	close(ch)
	return nil
}
func (c *sentClient) Append(mailbox string, flags []string, date time.Time, msg imap.Literal) error {
	return nil
}
