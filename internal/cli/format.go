package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"mailassist/internal/imap"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

func printMessages(out io.Writer, messages []imap.MessageSummary) {
	tw := tabwriter.NewWriter(out, 0, 2, 2, ' ', 0)
	fmt.Fprintln(tw, "UID\tDATE\tFROM\tSUBJECT")
	for _, msg := range messages {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", msg.UID, formatDate(msg.Date), msg.From, msg.Subject)
	}
	_ = tw.Flush()
}

func printThreads(out io.Writer, threads []imap.ThreadSummary) {
	tw := tabwriter.NewWriter(out, 0, 2, 2, ' ', 0)
	fmt.Fprintln(tw, "UID\tCOUNT\tDATE\tFROM\tSUBJECT")
	for _, thread := range threads {
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%s\n", thread.UID, thread.Count, formatDate(thread.Date), thread.From, thread.Subject)
	}
	_ = tw.Flush()
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func addFormatFlag(cmd *cobra.Command, format *string) {
	cmd.Flags().StringVar(format, "format", formatText, "Output format: text, json or yaml")
}

// writeFormatted renders v as JSON or YAML, or calls text for the plain
// format.
func writeFormatted(out io.Writer, format string, v any, text func(io.Writer) error) error {
	switch format {
	case "", formatText:
		return text(out)
	case formatJSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown format %q (want text, json or yaml)", format)
	}
}
