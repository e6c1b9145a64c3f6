package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"mailassist/internal/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type loggerKey struct{}

func NewRootCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:          "mailassist",
		Short:        "mailassist drafts replies, extracts tasks and detects meetings in your mail",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			log, err := logger.New(verbose)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cmd.SetContext(context.WithValue(ctx, loggerKey{}, log))
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = commandLogger(cmd).Sync()
		},
	}

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging on stderr")

	cmd.AddCommand(newAuthCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newMailCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newReadCmd())
	cmd.AddCommand(newMailboxesCmd())
	cmd.AddCommand(newReplyCmd())
	cmd.AddCommand(newTasksCmd())
	cmd.AddCommand(newSummaryCmd())
	cmd.AddCommand(newMeetingCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newCorpusCmd())

	cmd.SetErr(os.Stderr)
	cmd.SetOut(os.Stdout)

	return cmd
}

// commandLogger returns the logger installed by the root command.
func commandLogger(cmd *cobra.Command) *zap.Logger {
	if ctx := cmd.Context(); ctx != nil {
		if log, ok := ctx.Value(loggerKey{}).(*zap.Logger); ok {
			return log
		}
	}
	return zap.NewNop()
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := NewRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
