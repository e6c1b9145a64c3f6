package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"mailassist/internal/config"
	"mailassist/internal/heuristic"
	"mailassist/internal/imap"
	"mailassist/internal/mailbox"
	"mailassist/internal/panel"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type replyView struct {
	Type  heuristic.ResponseType `json:"type" yaml:"type"`
	Tone  heuristic.Tone         `json:"tone" yaml:"tone"`
	Draft string                 `json:"draft" yaml:"draft"`
}

func newReplyCmd() *cobra.Command {
	var flags messageFlags
	var format string
	var responseType string
	var tone string
	var insert bool
	var regenerate bool

	cmd := &cobra.Command{
		Use:   "reply [uid]",
		Short: "Draft a reply to a message",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, ok := heuristic.ParseResponseType(responseType)
			if !ok {
				return fmt.Errorf("invalid --type %q (want quick, detailed or meeting)", responseType)
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("tone") {
				tone = cfg.Assistant.Tone
			}

			flags.keepDraft = true
			controller, err := openController(cmd, args, &flags, cfg)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			var text string
			if regenerate {
				rt = heuristic.ResponseQuick
				text, err = controller.Regenerate(ctx, heuristic.ParseTone(tone))
				if errors.Is(err, panel.ErrNoDraft) {
					return fmt.Errorf("%w; run reply without --regenerate first", err)
				}
			} else {
				text, err = controller.GenerateReply(ctx, rt, heuristic.ParseTone(tone))
			}
			if err != nil {
				return err
			}

			view := replyView{Type: rt, Tone: heuristic.ParseTone(tone), Draft: text}
			if err := writeFormatted(cmd.OutOrStdout(), format, view, func(out io.Writer) error {
				_, err := fmt.Fprintln(out, text)
				return err
			}); err != nil {
				return err
			}

			if !insert {
				return nil
			}
			if err := controller.InsertReply(ctx, text); err != nil {
				return err
			}
			fmt.Fprintln(cmd.ErrOrStderr(), insertedMessage(flags, cfg.Defaults.DraftsMailbox))
			return nil
		},
	}

	flags.register(cmd)
	addFormatFlag(cmd, &format)
	cmd.Flags().StringVarP(&responseType, "type", "t", string(heuristic.ResponseQuick), "Response type: quick, detailed or meeting")
	cmd.Flags().StringVar(&tone, "tone", string(heuristic.ToneProfessional), "Tone: professional, friendly, formal or casual (assistant.tone when unset)")
	cmd.Flags().BoolVar(&insert, "insert", false, "Save the draft as a reply-all message")
	cmd.Flags().BoolVar(&regenerate, "regenerate", false, "Replace the previous draft of this message with a new quick reply")
	cmd.Flags().StringVar(&flags.replyOut, "reply-out", "", "With --file, where to write the reply .eml")

	return cmd
}

func insertedMessage(flags messageFlags, draftsMailbox string) string {
	if flags.file == "" {
		if draftsMailbox == "" {
			draftsMailbox = "Drafts"
		}
		return fmt.Sprintf("Reply saved to %s.", draftsMailbox)
	}
	msg := mailbox.NewFile(flags.file, "", nil)
	if flags.replyOut != "" {
		msg.SetReplyPath(flags.replyOut)
	}
	return fmt.Sprintf("Reply written to %s.", msg.ReplyPath())
}

func newTasksCmd() *cobra.Command {
	var flags messageFlags
	var format string
	var exportPath string
	var done string

	cmd := &cobra.Command{
		Use:   "tasks [uid]",
		Short: "Extract action items from a message",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			controller, err := openController(cmd, args, &flags, cfg)
			if err != nil {
				return err
			}

			items, err := controller.ExtractTasks()
			if err != nil {
				return err
			}
			checked, err := parseIndices(done, len(items))
			if err != nil {
				return err
			}

			if err := writeFormatted(cmd.OutOrStdout(), format, items, func(out io.Writer) error {
				printTasks(out, items, checked)
				return nil
			}); err != nil {
				return err
			}

			if exportPath == "" {
				return nil
			}
			list := panel.ExportTasks(items, checked)
			if exportPath == "-" {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), list)
				return err
			}
			if err := os.WriteFile(exportPath, []byte(list+"\n"), 0o644); err != nil {
				return fmt.Errorf("export tasks: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Tasks exported to %s\n", exportPath)
			return nil
		},
	}

	flags.register(cmd)
	addFormatFlag(cmd, &format)
	cmd.Flags().StringVar(&exportPath, "export", "", "Write the unchecked tasks, one per line, to a file (- for stdout)")
	cmd.Flags().StringVar(&done, "done", "", "Comma separated item numbers to mark as done")

	return cmd
}

func printTasks(out io.Writer, items []heuristic.ActionItem, done map[int]bool) {
	for i, item := range items {
		box := "[ ]"
		if done[i] {
			box = "[x]"
		}
		line := fmt.Sprintf("%d. %s %s (%s)", i+1, box, item.Text, item.Priority)
		if item.DueDate != "" {
			line += " due " + item.DueDate
		}
		fmt.Fprintln(out, line)
	}
}

func newSummaryCmd() *cobra.Command {
	var flags messageFlags
	var format string
	var thread bool

	cmd := &cobra.Command{
		Use:   "summary [uid]",
		Short: "Summarize a message",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			controller, err := openController(cmd, args, &flags, cfg)
			if err != nil {
				return err
			}

			if !cmd.Flags().Changed("thread") {
				thread = inThread(cmd, args, flags, cfg)
			}
			digest, err := controller.Summarize(thread)
			if err != nil {
				return err
			}
			return writeFormatted(cmd.OutOrStdout(), format, digest, func(out io.Writer) error {
				_, err := io.WriteString(out, digest.Render())
				return err
			})
		},
	}

	flags.register(cmd)
	addFormatFlag(cmd, &format)
	cmd.Flags().BoolVar(&thread, "thread", false, "Summarize as part of a thread (detected on the server when unset)")

	return cmd
}

// inThread asks the server whether the message shares a conversation with
// other messages. Local files and servers without THREAD report false.
func inThread(cmd *cobra.Command, args []string, flags messageFlags, cfg config.Config) bool {
	if flags.file != "" || len(args) != 1 {
		return false
	}
	uid, err := parseUID(args[0])
	if err != nil {
		return false
	}
	mailbox := flags.mailbox
	if mailbox == "" {
		mailbox = cfg.Defaults.Mailbox
	}
	size, err := imap.NewService().ThreadSize(cfg, mailbox, uid)
	if err != nil {
		commandLogger(cmd).Debug("thread detection skipped", zap.Uint32("uid", uid), zap.Error(err))
		return false
	}
	return size > 1
}

func newMeetingCmd() *cobra.Command {
	var flags messageFlags
	var format string
	var createEvent bool

	cmd := &cobra.Command{
		Use:   "meeting [uid]",
		Short: "Detect a meeting request in a message",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			controller, err := openController(cmd, args, &flags, cfg)
			if err != nil {
				return err
			}

			info, err := controller.DetectMeeting()
			if err != nil {
				return err
			}
			if err := writeFormatted(cmd.OutOrStdout(), format, info, func(out io.Writer) error {
				printMeeting(out, info)
				return nil
			}); err != nil {
				return err
			}

			if !createEvent || !info.IsMeetingRequest {
				return nil
			}
			if _, err := controller.CreateEvent(cmd.Context(), info); err != nil {
				return err
			}
			return nil
		},
	}

	flags.register(cmd)
	addFormatFlag(cmd, &format)
	cmd.Flags().BoolVar(&createEvent, "create-event", false, "Print the calendar appointment for a detected meeting")

	return cmd
}

func printMeeting(out io.Writer, info heuristic.MeetingInfo) {
	if !info.IsMeetingRequest {
		fmt.Fprintln(out, "No meeting request detected.")
		return
	}
	fmt.Fprintf(out, "Title: %s\n", info.Title)
	fmt.Fprintf(out, "When: %s\n", info.DateTime)
	fmt.Fprintf(out, "Duration: %s\n", info.Duration)
	fmt.Fprintf(out, "Attendees: %s\n", info.Attendees)
	fmt.Fprintf(out, "Location: %s\n", info.Location)
}
