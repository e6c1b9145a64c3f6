package mailbox

import (
	"context"
	"fmt"
	"io"
	"sync"

	"mailassist/internal/email"
	"mailassist/internal/panel"

	"gopkg.in/yaml.v3"
)

// AppointmentSink receives calendar items created from the panel.
type AppointmentSink interface {
	NewAppointment(ctx context.Context, appt panel.Appointment) error
}

// YAMLSink writes each appointment as a YAML document.
type YAMLSink struct {
	W io.Writer
}

func (s YAMLSink) NewAppointment(ctx context.Context, appt panel.Appointment) error {
	enc := yaml.NewEncoder(s.W)
	enc.SetIndent(2)
	if err := enc.Encode(appt); err != nil {
		return fmt.Errorf("write appointment: %w", err)
	}
	return enc.Close()
}

// message parses a raw message on first use and serves the host getters.
type message struct {
	load func(ctx context.Context) ([]byte, error)

	once   sync.Once
	raw    []byte
	parsed *email.Parsed
	err    error
}

func (m *message) get(ctx context.Context) (*email.Parsed, error) {
	m.once.Do(func() {
		m.raw, m.err = m.load(ctx)
		if m.err != nil {
			return
		}
		m.parsed, m.err = email.ParseMessage(m.raw)
	})
	return m.parsed, m.err
}

func (m *message) rawBytes(ctx context.Context) ([]byte, error) {
	if _, err := m.get(ctx); err != nil {
		return nil, err
	}
	return m.raw, nil
}

func (m *message) Subject(ctx context.Context) (string, error) {
	p, err := m.get(ctx)
	if err != nil {
		return "", err
	}
	return p.Subject, nil
}

func (m *message) Body(ctx context.Context) (string, error) {
	p, err := m.get(ctx)
	if err != nil {
		return "", err
	}
	return p.Text, nil
}

func (m *message) SenderDisplayName(ctx context.Context) (string, error) {
	p, err := m.get(ctx)
	if err != nil {
		return "", err
	}
	return p.SenderDisplayName(), nil
}

func (m *message) AttachmentCount(ctx context.Context) (int, error) {
	p, err := m.get(ctx)
	if err != nil {
		return 0, err
	}
	return len(p.Attachments), nil
}

// Parsed exposes the decoded message for read-only views.
func (m *message) Parsed(ctx context.Context) (*email.Parsed, error) {
	return m.get(ctx)
}

func newAppointment(ctx context.Context, sink AppointmentSink, appt panel.Appointment) error {
	if sink == nil {
		return fmt.Errorf("no calendar configured for new appointments")
	}
	return sink.NewAppointment(ctx, appt)
}
