package cli

import (
	"fmt"
	"io"
	"strings"

	"mailassist/internal/email"

	"github.com/spf13/cobra"
)

type readView struct {
	Subject     string   `json:"subject" yaml:"subject"`
	From        string   `json:"from" yaml:"from"`
	MessageID   string   `json:"messageId,omitempty" yaml:"message_id,omitempty"`
	Date        string   `json:"date,omitempty" yaml:"date,omitempty"`
	Attachments []string `json:"attachments,omitempty" yaml:"attachments,omitempty"`
	Body        string   `json:"body" yaml:"body"`
}

func newReadCmd() *cobra.Command {
	var flags messageFlags
	var format string

	cmd := &cobra.Command{
		Use:   "read [uid]",
		Short: "Read a message by UID or from a file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			msg, err := flags.open(cmd, args, cfg)
			if err != nil {
				return err
			}
			parsed, err := msg.Parsed(cmd.Context())
			if err != nil {
				return err
			}

			view := newReadView(parsed)
			return writeFormatted(cmd.OutOrStdout(), format, view, func(out io.Writer) error {
				if view.Subject != "" {
					fmt.Fprintf(out, "Subject: %s\n", view.Subject)
				}
				if view.From != "" {
					fmt.Fprintf(out, "From: %s\n", view.From)
				}
				if view.Date != "" {
					fmt.Fprintf(out, "Date: %s\n", view.Date)
				}
				if len(view.Attachments) > 0 {
					fmt.Fprintf(out, "Attachments: %s\n", strings.Join(view.Attachments, ", "))
				}
				fmt.Fprintln(out, "")
				fmt.Fprintln(out, view.Body)
				return nil
			})
		},
	}

	flags.register(cmd)
	addFormatFlag(cmd, &format)

	return cmd
}

func newReadView(p *email.Parsed) readView {
	view := readView{
		Subject:     p.Subject,
		MessageID:   p.MessageID,
		Attachments: p.Attachments,
		Body:        p.Text,
	}
	switch {
	case p.FromName != "" && p.FromAddress != "":
		view.From = fmt.Sprintf("%s <%s>", p.FromName, p.FromAddress)
	case p.FromAddress != "":
		view.From = p.FromAddress
	default:
		view.From = p.FromName
	}
	if !p.Date.IsZero() {
		view.Date = p.Date.Format("2006-01-02 15:04:05 -0700")
	}
	if view.Body == "" && p.HTML != "" {
		view.Body = email.StripHTMLTags(p.HTML)
	}
	return view
}
