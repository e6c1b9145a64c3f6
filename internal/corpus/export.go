package corpus

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"mailassist/internal/email"
)

const (
	noSubject         = "(no subject)"
	defaultImportance = "normal"
	unknownSender     = "unknown"
)

// Record is one sent message in an export.
type Record struct {
	ID           int      `json:"id"`
	Subject      string   `json:"subject"`
	SentDate     string   `json:"sentDate"`
	Body         string   `json:"body"`
	BodyType     string   `json:"bodyType"`
	From         string   `json:"from"`
	ToRecipients []string `json:"toRecipients"`
	Importance   string   `json:"importance"`
	WordCount    int      `json:"wordCount"`
}

type DateRange struct {
	Oldest string `json:"oldest,omitempty"`
	Newest string `json:"newest,omitempty"`
}

// Export is the document written by corpus export.
type Export struct {
	ExtractedAt string    `json:"extractedAt"`
	TotalEmails int       `json:"totalEmails"`
	DateRange   DateRange `json:"dateRange"`
	Emails      []Record  `json:"emails"`
}

// Message is a fetched message before numbering.
type Message struct {
	Subject      string
	SentDate     string
	Body         string
	BodyType     string
	From         string
	ToRecipients []string
	Importance   string
}

// NewExport numbers msgs from 1 in the order given (newest first) and fills
// the defaults for missing fields.
func NewExport(msgs []Message, extractedAt time.Time) Export {
	records := make([]Record, 0, len(msgs))
	for i, m := range msgs {
		rec := Record{
			ID:           i + 1,
			Subject:      m.Subject,
			SentDate:     m.SentDate,
			Body:         m.Body,
			BodyType:     m.BodyType,
			From:         m.From,
			ToRecipients: m.ToRecipients,
			Importance:   m.Importance,
			WordCount:    CountWords(m.Body),
		}
		if rec.Subject == "" {
			rec.Subject = noSubject
		}
		if rec.From == "" {
			rec.From = unknownSender
		}
		if rec.Importance == "" {
			rec.Importance = defaultImportance
		}
		if rec.ToRecipients == nil {
			rec.ToRecipients = []string{}
		}
		records = append(records, rec)
	}

	exp := Export{
		ExtractedAt: extractedAt.UTC().Format(isoMillis),
		TotalEmails: len(records),
		Emails:      records,
	}
	if len(records) > 0 {
		exp.DateRange.Newest = records[0].SentDate
		exp.DateRange.Oldest = records[len(records)-1].SentDate
	}
	return exp
}

// CountWords counts whitespace separated tokens after replacing HTML tags
// with spaces. An empty body has zero words.
func CountWords(text string) int {
	if text == "" {
		return 0
	}
	return len(strings.Fields(email.StripHTMLTags(text)))
}

// AverageWords is the mean word count, rounded to the nearest integer.
func (e Export) AverageWords() int {
	if len(e.Emails) == 0 {
		return 0
	}
	total := 0
	for _, rec := range e.Emails {
		total += rec.WordCount
	}
	return roundInt(float64(total) / float64(len(e.Emails)))
}

// Save writes v as indented JSON, creating the parent directory.
func Save(path string, v any) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func LoadExport(path string) (Export, error) {
	var exp Export
	if err := load(path, &exp); err != nil {
		return Export{}, err
	}
	return exp, nil
}

func load(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("input file not found: %s", path)
		}
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}
