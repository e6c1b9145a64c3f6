package mailbox

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"mailassist/internal/email"
	"mailassist/internal/panel"
)

// File is a message read from a .eml file or stdin. Replies are written
// as .eml files.
type File struct {
	message

	path      string
	from      string
	replyPath string
	sink      AppointmentSink
}

var (
	_ panel.Mailbox = (*File)(nil)
	_ panel.Host    = (*File)(nil)
)

// NewFile opens path, or reads stdin when path is "-".
func NewFile(path, from string, sink AppointmentSink) *File {
	f := &File{path: path, from: from, sink: sink}
	f.load = func(ctx context.Context) ([]byte, error) {
		if path == "-" {
			return io.ReadAll(os.Stdin)
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read message: %w", err)
		}
		return raw, nil
	}
	return f
}

// NewFileFromBytes serves an already loaded message.
func NewFileFromBytes(raw []byte, from string, sink AppointmentSink) *File {
	f := &File{path: "-", from: from, sink: sink}
	f.load = func(ctx context.Context) ([]byte, error) { return raw, nil }
	return f
}

// SetReplyPath overrides where InsertReply writes the reply.
func (f *File) SetReplyPath(path string) {
	f.replyPath = path
}

// ReplyPath is the destination of InsertReply: the override, else the
// source name with a .reply.eml suffix, else reply.eml.
func (f *File) ReplyPath() string {
	if f.replyPath != "" {
		return f.replyPath
	}
	if f.path == "" || f.path == "-" {
		return "reply.eml"
	}
	base := strings.TrimSuffix(f.path, filepath.Ext(f.path))
	return base + ".reply.eml"
}

func (f *File) InsertReply(ctx context.Context, text string) error {
	raw, err := f.rawBytes(ctx)
	if err != nil {
		return err
	}
	reply, err := email.BuildReply(raw, email.ReplyOptions{From: f.from, Body: text, Quote: true})
	if err != nil {
		return fmt.Errorf("build reply: %w", err)
	}
	dest := f.ReplyPath()
	if dir := filepath.Dir(dest); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	if err := os.WriteFile(dest, reply, 0o644); err != nil {
		return fmt.Errorf("write reply: %w", err)
	}
	return nil
}

func (f *File) NewAppointment(ctx context.Context, appt panel.Appointment) error {
	return newAppointment(ctx, f.sink, appt)
}
