package panel

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"mailassist/internal/draft"
	"mailassist/internal/heuristic"
	"mailassist/internal/logger"
	"mailassist/internal/metrics"

	"go.uber.org/zap"
)

var (
	ErrNotLoaded  = errors.New("no email loaded")
	ErrNoDraft    = errors.New("no draft to regenerate")
	ErrNotMeeting = errors.New("email is not a meeting request")
)

const eventLength = 30 * time.Minute

// Mailbox exposes the fields of the currently open message.
type Mailbox interface {
	Subject(ctx context.Context) (string, error)
	Body(ctx context.Context) (string, error)
	SenderDisplayName(ctx context.Context) (string, error)
	AttachmentCount(ctx context.Context) (int, error)
}

// Host receives the actions the user confirms in the panel.
type Host interface {
	InsertReply(ctx context.Context, text string) error
	NewAppointment(ctx context.Context, appt Appointment) error
}

// DraftStore keeps the last draft of a message between sessions. Load
// returns "" when nothing was saved.
type DraftStore interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, text string) error
}

type Appointment struct {
	Subject           string    `json:"subject" yaml:"subject"`
	Body              string    `json:"body" yaml:"body"`
	RequiredAttendees []string  `json:"requiredAttendees" yaml:"required_attendees"`
	Location          string    `json:"location" yaml:"location"`
	Start             time.Time `json:"start" yaml:"start"`
	End               time.Time `json:"end" yaml:"end"`
}

// Controller runs panel actions against one loaded email.
type Controller struct {
	mailbox   Mailbox
	host      Host
	generator draft.Generator
	drafts    DraftStore
	log       *zap.Logger
	now       func() time.Time

	mu        sync.Mutex
	email     *heuristic.EmailContext
	lastDraft string
}

func New(mailbox Mailbox, host Host, generator draft.Generator, log *zap.Logger) *Controller {
	return &Controller{
		mailbox:   mailbox,
		host:      host,
		generator: generator,
		log:       logger.OrNop(log),
		now:       time.Now,
	}
}

// WithDraftStore makes the last draft survive across controllers. It must be
// set before Load.
func (c *Controller) WithDraftStore(store DraftStore) *Controller {
	c.drafts = store
	return c
}

// Load reads the open message once. Later calls keep the cached context.
func (c *Controller) Load(ctx context.Context) (heuristic.EmailContext, error) {
	c.mu.Lock()
	if c.email != nil {
		email := *c.email
		c.mu.Unlock()
		return email, nil
	}
	c.mu.Unlock()
	return c.Reload(ctx)
}

// Reload replaces the cached context with a fresh read of the mailbox.
func (c *Controller) Reload(ctx context.Context) (heuristic.EmailContext, error) {
	email, err := readEmail(ctx, c.mailbox)
	if err != nil {
		return heuristic.EmailContext{}, err
	}
	last := c.restoreDraft(ctx)
	c.mu.Lock()
	c.email = &email
	c.lastDraft = last
	c.mu.Unlock()
	c.log.Debug("email loaded",
		zap.String("subject", email.Subject),
		zap.Int("attachments", email.AttachmentCount))
	return email, nil
}

func readEmail(ctx context.Context, m Mailbox) (heuristic.EmailContext, error) {
	var email heuristic.EmailContext
	var err error
	if email.Subject, err = m.Subject(ctx); err != nil {
		return email, fmt.Errorf("read subject: %w", err)
	}
	if email.BodyText, err = m.Body(ctx); err != nil {
		return email, fmt.Errorf("read body: %w", err)
	}
	if email.SenderDisplayName, err = m.SenderDisplayName(ctx); err != nil {
		return email, fmt.Errorf("read sender: %w", err)
	}
	if email.AttachmentCount, err = m.AttachmentCount(ctx); err != nil {
		return email, fmt.Errorf("read attachments: %w", err)
	}
	return email, nil
}

func (c *Controller) current() (heuristic.EmailContext, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.email == nil {
		return heuristic.EmailContext{}, ErrNotLoaded
	}
	return *c.email, nil
}

// GenerateReply drafts a reply of the given type and tone.
func (c *Controller) GenerateReply(ctx context.Context, responseType heuristic.ResponseType, tone heuristic.Tone) (string, error) {
	email, err := c.current()
	if err != nil {
		return "", err
	}
	metrics.IncrementPipelineRun("compose")

	out, err := c.generator.Generate(ctx, draft.Request{
		EmailContent: email.BodyText,
		Subject:      email.Subject,
		Sender:       email.SenderDisplayName,
		Type:         responseType,
		Tone:         tone,
	})
	if err != nil {
		return "", fmt.Errorf("generate reply: %w", err)
	}

	c.mu.Lock()
	c.lastDraft = out
	c.mu.Unlock()
	if c.drafts != nil {
		if err := c.drafts.Save(ctx, out); err != nil {
			c.log.Warn("draft not saved", zap.Error(err))
		}
	}
	return out, nil
}

func (c *Controller) restoreDraft(ctx context.Context) string {
	if c.drafts == nil {
		return ""
	}
	text, err := c.drafts.Load(ctx)
	if err != nil {
		c.log.Warn("previous draft not restored", zap.Error(err))
		return ""
	}
	return text
}

// Regenerate produces a fresh quick reply once a draft exists.
func (c *Controller) Regenerate(ctx context.Context, tone heuristic.Tone) (string, error) {
	if _, err := c.current(); err != nil {
		return "", err
	}
	if c.LastDraft() == "" {
		return "", ErrNoDraft
	}
	return c.GenerateReply(ctx, heuristic.ResponseQuick, tone)
}

func (c *Controller) LastDraft() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastDraft
}

// InsertReply hands text to the host unchanged.
func (c *Controller) InsertReply(ctx context.Context, text string) error {
	if _, err := c.current(); err != nil {
		return err
	}
	if err := c.host.InsertReply(ctx, text); err != nil {
		return fmt.Errorf("insert reply: %w", err)
	}
	return nil
}

func (c *Controller) ExtractTasks() ([]heuristic.ActionItem, error) {
	email, err := c.current()
	if err != nil {
		return nil, err
	}
	metrics.IncrementPipelineRun("tasks")
	return heuristic.ExtractTasks(email.BodyText, email.Subject), nil
}

// ExportTasks is the text copied out by the export action: the unchecked
// items, one per line.
func ExportTasks(items []heuristic.ActionItem, done map[int]bool) string {
	return heuristic.FormatTaskList(items, done)
}

func (c *Controller) Summarize(isThread bool) (heuristic.SummaryDigest, error) {
	email, err := c.current()
	if err != nil {
		return heuristic.SummaryDigest{}, err
	}
	metrics.IncrementPipelineRun("summary")
	return heuristic.Summarize(email.BodyText, email.Subject, email.SenderDisplayName, email.AttachmentCount, isThread), nil
}

func (c *Controller) DetectMeeting() (heuristic.MeetingInfo, error) {
	email, err := c.current()
	if err != nil {
		return heuristic.MeetingInfo{}, err
	}
	metrics.IncrementPipelineRun("meeting")
	return heuristic.DetectMeeting(email.BodyText, email.Subject, email.SenderDisplayName), nil
}

// NewAppointment builds the calendar item for a detected meeting. It starts
// now and lasts thirty minutes.
func (c *Controller) NewAppointment(info heuristic.MeetingInfo) (Appointment, error) {
	email, err := c.current()
	if err != nil {
		return Appointment{}, err
	}
	if !info.IsMeetingRequest {
		return Appointment{}, ErrNotMeeting
	}
	start := c.now()
	var attendees []string
	if info.Attendees != "" {
		attendees = []string{info.Attendees}
	}
	return Appointment{
		Subject:           info.Title,
		Body:              fmt.Sprintf("Meeting regarding: %s\n\nOrganized based on email from %s", email.Subject, email.SenderDisplayName),
		RequiredAttendees: attendees,
		Location:          info.Location,
		Start:             start,
		End:               start.Add(eventLength),
	}, nil
}

// CreateEvent builds the appointment and forwards it to the host.
func (c *Controller) CreateEvent(ctx context.Context, info heuristic.MeetingInfo) (Appointment, error) {
	appt, err := c.NewAppointment(info)
	if err != nil {
		return Appointment{}, err
	}
	if err := c.host.NewAppointment(ctx, appt); err != nil {
		return Appointment{}, fmt.Errorf("create event: %w", err)
	}
	return appt, nil
}
