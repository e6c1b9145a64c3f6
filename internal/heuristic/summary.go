package heuristic

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

type SummaryDigest struct {
	Subject         string   `json:"subject" yaml:"subject"`
	Sender          string   `json:"sender" yaml:"sender"`
	WordCount       int      `json:"wordCount" yaml:"word_count"`
	AttachmentCount int      `json:"attachmentCount" yaml:"attachment_count"`
	KeyPoints       []string `json:"keyPoints" yaml:"key_points"`
	ThreadNote      string   `json:"threadNote,omitempty" yaml:"thread_note,omitempty"`
}

// Summarize builds a digest of a single message. isThread only adds the
// advisory note; earlier messages are never read.
func Summarize(body, subject, sender string, attachmentCount int, isThread bool) SummaryDigest {
	digest := SummaryDigest{
		Subject:         subject,
		Sender:          sender,
		WordCount:       len(strings.Fields(body)),
		AttachmentCount: attachmentCount,
		KeyPoints:       keyPoints(body),
	}
	if isThread {
		digest.ThreadNote = ThreadAdvisoryNote
	}
	return digest
}

func keyPoints(body string) []string {
	points := []string{}
	for _, fragment := range strings.Split(body, ".") {
		trimmed := strings.TrimSpace(fragment)
		if utf8.RuneCountInString(trimmed) <= minKeyPointLength {
			continue
		}
		points = append(points, trimmed)
		if len(points) == maxKeyPoints {
			break
		}
	}
	return points
}

// Render formats the digest as plain text.
func (d SummaryDigest) Render() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Subject: %s\n", d.Subject)
	fmt.Fprintf(&sb, "From: %s\n", d.Sender)
	fmt.Fprintf(&sb, "Length: %d words\n", d.WordCount)
	if d.AttachmentCount > 0 {
		fmt.Fprintf(&sb, "Attachments: %d file(s)\n", d.AttachmentCount)
	}
	sb.WriteString("\nKey Points:\n")
	for _, point := range d.KeyPoints {
		fmt.Fprintf(&sb, "  - %s.\n", point)
	}
	if d.ThreadNote != "" {
		sb.WriteString("\n")
		sb.WriteString(d.ThreadNote)
		sb.WriteString("\n")
	}
	return sb.String()
}
