package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"mailassist/internal/config"
	"mailassist/internal/corpus"
	"mailassist/internal/imap"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	defaultCleanedPath  = "output/cleaned-emails.json"
	defaultProfilePath  = "output/style-profile.json"
	defaultTrainingPath = "output/training-data.txt"
)

func newCorpusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "corpus",
		Short: "Build a writing-style corpus from sent mail",
	}
	cmd.AddCommand(newCorpusExportCmd())
	cmd.AddCommand(newCorpusAuthCmd())
	cmd.AddCommand(newCorpusCleanCmd())
	cmd.AddCommand(newCorpusAnalyzeCmd())
	return cmd
}

func newCorpusExportCmd() *cobra.Command {
	var source string
	var months int
	var limit int
	var output string
	var mailbox string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export sent mail to a JSON file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("source") {
				cfg.Corpus.Source = source
			}
			if cmd.Flags().Changed("months") {
				cfg.Corpus.Months = months
			}
			if cmd.Flags().Changed("limit") {
				cfg.Corpus.Limit = limit
			}
			if cmd.Flags().Changed("output") {
				cfg.Corpus.Output = output
			}
			if mailbox == "" {
				mailbox = cfg.Defaults.SentMailbox
			}

			log := commandLogger(cmd)
			src, err := corpusSource(cmd, cfg, mailbox, log)
			if err != nil {
				return err
			}

			window := corpus.MonthsBack(time.Now(), cfg.Corpus.Months)
			exp, err := corpus.Run(cmd.Context(), src, window, cfg.Corpus.Limit, log)
			if err != nil {
				return err
			}
			if err := corpus.Save(cfg.Corpus.Output, exp); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Exported %d emails to %s\n", exp.TotalEmails, cfg.Corpus.Output)
			if exp.TotalEmails > 0 {
				fmt.Fprintf(out, "Date range: %s to %s\n", exp.DateRange.Oldest, exp.DateRange.Newest)
				fmt.Fprintf(out, "Average length: %d words\n", exp.AverageWords())
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&source, "source", "", "Mail source: imap or graph (corpus.source when unset)")
	cmd.Flags().IntVar(&months, "months", 0, "Months of sent mail to export (corpus.months when unset)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of emails, 0 for no limit (corpus.limit when unset)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (corpus.output when unset)")
	cmd.Flags().StringVar(&mailbox, "mailbox", "", "Sent mailbox for the imap source (defaults.sent_mailbox when empty)")

	return cmd
}

func corpusSource(cmd *cobra.Command, cfg config.Config, mailbox string, log *zap.Logger) (corpus.Source, error) {
	switch strings.ToLower(cfg.Corpus.Source) {
	case "", "imap":
		if err := config.ValidateIMAP(cfg); err != nil {
			return nil, err
		}
		return &corpus.IMAPSource{Service: imap.NewService(), Config: cfg, Mailbox: mailbox, Log: log}, nil
	case "graph":
		auth, err := corpus.NewGraphAuth(cfg.Corpus.Graph, nil, log)
		if err != nil {
			return nil, err
		}
		client, err := auth.Client(cmd.Context())
		if err != nil {
			return nil, err
		}
		return &corpus.GraphSource{Client: client, Log: log}, nil
	default:
		return nil, fmt.Errorf("unknown corpus source %q (want imap or graph)", cfg.Corpus.Source)
	}
}

func newCorpusAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorize Microsoft Graph access to sent mail",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			auth, err := corpus.NewGraphAuth(cfg.Corpus.Graph, nil, commandLogger(cmd))
			if err != nil {
				return err
			}
			auth.Notify = func(authURL string) {
				fmt.Fprintln(cmd.OutOrStdout(), "Open this URL in your browser to authorize:")
				fmt.Fprintln(cmd.OutOrStdout(), authURL)
			}
			if _, err := auth.Login(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Authentication successful. Token stored in keyring.")
			return nil
		},
	}
	return cmd
}

func newCorpusCleanCmd() *cobra.Command {
	var input string
	var output string

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Strip quoted text and anonymize an export",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if input == "" {
				input = cfg.Corpus.Output
			}

			exp, err := corpus.LoadExport(input)
			if err != nil {
				return err
			}

			cleaner := corpus.NewCleaner(cfg.Assistant.Signature)
			cleaned := cleaner.Clean(exp, time.Now())
			if err := corpus.Save(output, cleaned); err != nil {
				return err
			}

			stats := cleaned.ProcessingStats
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Processed %d emails, kept %d\n", stats.TotalProcessed, cleaned.TotalEmails)
			fmt.Fprintf(out, "Quoted text removed: %d\n", stats.QuotedTextRemoved)
			fmt.Fprintf(out, "Empty after cleaning: %d\n", stats.EmptyAfterCleaning)
			fmt.Fprintf(out, "Saved to %s\n", output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "Raw export file (corpus.output when unset)")
	cmd.Flags().StringVarP(&output, "output", "o", defaultCleanedPath, "Cleaned output file")

	return cmd
}

func newCorpusAnalyzeCmd() *cobra.Command {
	var input string
	var output string
	var trainingOut string

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Build a writing-style profile and training samples",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			cleaned, err := corpus.LoadCleaned(input)
			if err != nil {
				return err
			}
			if n := len(cleaned.Emails); n < corpus.FewEmailsWarning {
				commandLogger(cmd).Warn("few emails to analyze; results may not be representative", zap.Int("emails", n))
			}

			now := time.Now()
			analyzer := corpus.NewAnalyzer(cfg.Assistant.Signature)
			profile, err := analyzer.Analyze(cleaned.Emails, now)
			if err != nil {
				return err
			}
			if err := corpus.Save(output, profile); err != nil {
				return err
			}

			if trainingOut != "" {
				if err := writeTrainingSamples(analyzer, trainingOut, corpus.Categorize(cleaned.Emails), now); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Analyzed %d emails\n", profile.TotalEmailsAnalyzed)
			fmt.Fprintf(out, "Overall tone: %s (formality %.2f, warmth %.2f)\n", profile.ToneAnalysis.OverallTone, profile.ToneAnalysis.FormalityScore, profile.ToneAnalysis.WarmthScore)
			fmt.Fprintf(out, "Profile saved to %s\n", output)
			if trainingOut != "" {
				fmt.Fprintf(out, "Training samples saved to %s\n", trainingOut)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", defaultCleanedPath, "Cleaned export file")
	cmd.Flags().StringVarP(&output, "output", "o", defaultProfilePath, "Style profile output file")
	cmd.Flags().StringVar(&trainingOut, "training-out", defaultTrainingPath, "Training samples output file, empty to skip")

	return cmd
}

func writeTrainingSamples(analyzer *corpus.Analyzer, path string, categories []corpus.Category, now time.Time) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := analyzer.WriteTrainingSamples(f, categories, now); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
