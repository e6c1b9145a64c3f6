package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"mailassist/internal/config"
	"mailassist/internal/draft"
	"mailassist/internal/email"
	"mailassist/internal/imap"
	"mailassist/internal/mailbox"
	"mailassist/internal/panel"

	"github.com/spf13/cobra"
)

// openMessage is a message the panel can read and act on.
type openMessage interface {
	panel.Mailbox
	panel.Host
	Parsed(ctx context.Context) (*email.Parsed, error)
}

// messageFlags select the message a command works on: a UID argument on
// the IMAP server or a local .eml file.
type messageFlags struct {
	mailbox  string
	file     string
	replyOut string

	// keepDraft persists the last draft so a later run can regenerate it.
	keepDraft bool
}

func (f *messageFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.mailbox, "mailbox", "", "Mailbox name (defaults.mailbox when empty)")
	cmd.Flags().StringVarP(&f.file, "file", "f", "", "Read the message from an .eml file (- for stdin) instead of IMAP")
}

func (f *messageFlags) open(cmd *cobra.Command, args []string, cfg config.Config) (openMessage, error) {
	sink := mailbox.YAMLSink{W: cmd.OutOrStdout()}

	if f.file != "" {
		if len(args) > 0 {
			return nil, fmt.Errorf("use either <uid> or --file")
		}
		if f.file != "-" {
			if _, err := os.Stat(f.file); err != nil {
				return nil, err
			}
		}
		msg := mailbox.NewFile(f.file, cfg.Auth.Username, sink)
		if f.replyOut != "" {
			msg.SetReplyPath(f.replyOut)
		}
		return msg, nil
	}

	if len(args) != 1 {
		return nil, fmt.Errorf("a message <uid> or --file is required")
	}
	uid, err := parseUID(args[0])
	if err != nil {
		return nil, err
	}
	if err := config.ValidateIMAP(cfg); err != nil {
		return nil, err
	}
	return mailbox.NewIMAPMessage(imap.NewService(), cfg, f.mailbox, uid, sink), nil
}

// openController loads the selected message into a panel controller.
func openController(cmd *cobra.Command, args []string, flags *messageFlags, cfg config.Config) (*panel.Controller, error) {
	msg, err := flags.open(cmd, args, cfg)
	if err != nil {
		return nil, err
	}

	log := commandLogger(cmd)
	generator, err := draft.New(cfg.Assistant, log)
	if err != nil {
		return nil, err
	}

	controller := panel.New(msg, msg, generator, log)
	if flags.keepDraft {
		store, err := flags.draftStore(args, cfg)
		if err != nil {
			return nil, err
		}
		if store != nil {
			controller.WithDraftStore(store)
		}
	}
	if _, err := controller.Load(cmd.Context()); err != nil {
		return nil, err
	}
	return controller, nil
}

// draftStore returns the file that keeps the last draft of the selected
// message, or nil for stdin.
func (f *messageFlags) draftStore(args []string, cfg config.Config) (panel.DraftStore, error) {
	var key string
	switch {
	case f.file == "-":
		return nil, nil
	case f.file != "":
		abs, err := filepath.Abs(f.file)
		if err != nil {
			return nil, err
		}
		key = "file:" + abs
	default:
		mbox := f.mailbox
		if mbox == "" {
			mbox = cfg.Defaults.Mailbox
		}
		key = fmt.Sprintf("imap:%s@%s/%s/%s", cfg.Auth.Username, cfg.IMAP.Host, mbox, args[0])
	}
	dir, err := config.Dir()
	if err != nil {
		return nil, err
	}
	return mailbox.DraftFileFor(filepath.Join(dir, "drafts"), key), nil
}
