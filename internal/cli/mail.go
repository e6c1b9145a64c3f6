package cli

import (
	"errors"
	"fmt"
	"io"

	"mailassist/internal/config"
	"mailassist/internal/imap"

	"github.com/spf13/cobra"
)

// listing is one page of messages or threads from a mailbox.
type listing struct {
	Mailbox  string                `json:"mailbox" yaml:"mailbox"`
	Total    int                   `json:"total" yaml:"total"`
	Messages []imap.MessageSummary `json:"messages,omitempty" yaml:"messages,omitempty"`
	Threads  []imap.ThreadSummary  `json:"threads,omitempty" yaml:"threads,omitempty"`
}

func (l listing) write(out io.Writer, format string) error {
	return writeFormatted(out, format, l, func(out io.Writer) error {
		if l.Threads != nil {
			fmt.Fprintf(out, "Mailbox: %s (threads %d)\n", l.Mailbox, l.Total)
			printThreads(out, l.Threads)
			return nil
		}
		fmt.Fprintf(out, "Mailbox: %s (total %d)\n", l.Mailbox, l.Total)
		printMessages(out, l.Messages)
		return nil
	})
}

type pageFlags struct {
	mailbox  string
	page     int
	pageSize int
	format   string
}

func (f *pageFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.mailbox, "mailbox", "", "Mailbox name (defaults.mailbox when empty)")
	cmd.Flags().IntVar(&f.page, "page", 1, "Page number (1-based, newest first)")
	cmd.Flags().IntVar(&f.pageSize, "page-size", 20, "Messages per page")
	addFormatFlag(cmd, &f.format)
}

// imapConfig loads the config and checks the IMAP settings.
func imapConfig() (config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return cfg, err
	}
	if err := config.ValidateIMAP(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func newMailCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mail",
		Short: "Browse messages to pick a UID",
	}
	cmd.AddCommand(newMailListCmd())
	return cmd
}

func newMailListCmd() *cobra.Command {
	var flags pageFlags

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List messages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := imapConfig()
			if err != nil {
				return err
			}
			mailbox := flags.mailbox
			if mailbox == "" {
				mailbox = cfg.Defaults.Mailbox
			}

			messages, total, err := imap.NewService().ListMessages(cfg, mailbox, flags.page, flags.pageSize)
			if err != nil {
				return err
			}
			return listing{Mailbox: mailbox, Total: total, Messages: messages}.write(cmd.OutOrStdout(), flags.format)
		},
	}

	flags.register(cmd)
	return cmd
}

func newSearchCmd() *cobra.Command {
	var flags pageFlags
	var threads bool

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := imapConfig()
			if err != nil {
				return err
			}
			mailbox := flags.mailbox
			if mailbox == "" {
				mailbox = cfg.Defaults.Mailbox
			}

			service := imap.NewService()
			if threads {
				found, total, err := service.SearchThreads(cfg, mailbox, args[0], flags.page, flags.pageSize)
				if err == nil {
					if found == nil {
						found = []imap.ThreadSummary{}
					}
					return listing{Mailbox: mailbox, Total: total, Threads: found}.write(cmd.OutOrStdout(), flags.format)
				}
				if !errors.Is(err, imap.ErrThreadUnsupported) {
					return err
				}
				commandLogger(cmd).Debug("THREAD not supported; falling back to message search")
				fmt.Fprintln(cmd.ErrOrStderr(), "Server does not support THREAD; showing messages instead.")
			}

			messages, total, err := service.SearchMessages(cfg, mailbox, args[0], flags.page, flags.pageSize)
			if err != nil {
				return err
			}
			return listing{Mailbox: mailbox, Total: total, Messages: messages}.write(cmd.OutOrStdout(), flags.format)
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&threads, "threads", false, "Show thread summaries when supported")
	return cmd
}

func newMailboxesCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "mailboxes",
		Short: "List mailboxes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := imapConfig()
			if err != nil {
				return err
			}
			names, err := imap.NewService().ListMailboxes(cfg)
			if err != nil {
				return err
			}
			return writeFormatted(cmd.OutOrStdout(), format, names, func(out io.Writer) error {
				for _, name := range names {
					fmt.Fprintln(out, name)
				}
				return nil
			})
		},
	}

	addFormatFlag(cmd, &format)
	return cmd
}
