package corpus

import (
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	CustomerPlaceholder = "[Customer]"
	minCleanedLength    = 20
)

type sensitiveRule struct {
	name        string
	pattern     *regexp.Regexp
	replacement string
}

// sensitiveRules are applied in order.
var sensitiveRules = []sensitiveRule{
	{"email", regexp.MustCompile(`(?i)\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Z|a-z]{2,}\b`), "[email removed]"},
	{"phone", regexp.MustCompile(`(?i)\b(?:\+?1[-.]?)?\(?\d{3}\)?[-.]?\d{3}[-.]?\d{4}\b`), "[phone removed]"},
	{"ssn", regexp.MustCompile(`(?i)\b\d{3}-\d{2}-\d{4}\b`), "[SSN removed]"},
	{"account_number", regexp.MustCompile(`(?i)\b[Aa]ccount\s*#?\s*:?\s*\d{4,}\b`), "[account removed]"},
	{"currency", regexp.MustCompile(`(?i)\$\s*\d+(?:,\d{3})*(?:\.\d{2})?`), "$$[amount]"},
	{"credit_card", regexp.MustCompile(`(?i)\b\d{4}[-\s]?\d{4}[-\s]?\d{4}[-\s]?\d{4}\b`), "[card number removed]"},
	{"address", regexp.MustCompile(`(?i)\b\d+\s+[\w\s]+(?:Street|St|Avenue|Ave|Road|Rd|Boulevard|Blvd|Lane|Ln|Drive|Dr|Court|Ct|Way)\b`), "[address removed]"},
}

var (
	htmlStylePattern  = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	htmlScriptPattern = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	htmlTagPattern    = regexp.MustCompile(`<[^>]+>`)
	spacePattern      = regexp.MustCompile(`\s+`)
	excessNewlines    = regexp.MustCompile(`\n\s*\n\s*\n+`)
	greetingName      = regexp.MustCompile(`(?:Hi|Hello|Hey|Dear)\s+([A-Z][a-z]+(?:\s+[A-Z][a-z]+)?)`)

	htmlEntities = strings.NewReplacer(
		"&nbsp;", " ",
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
	)

	quotePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?ms)On .+ wrote:.*$`),
		regexp.MustCompile(`(?ms)From:.*?Sent:.*?To:.*?Subject:.*$`),
		regexp.MustCompile(`(?m)^>.*$`),
		regexp.MustCompile(`_{5,}`),
		regexp.MustCompile(`(?s)-{3,}.*?-{3,}`),
	}

	quoteIndicators = []string{
		"wrote:",
		"From:",
		"Sent:",
		"-----Original Message-----",
		"________________________________",
	}
)

// CleanStats counts what the cleaner removed.
type CleanStats struct {
	TotalProcessed      int            `json:"total_processed"`
	AnonymizationCounts map[string]int `json:"anonymization_counts"`
	QuotedTextRemoved   int            `json:"quoted_text_removed"`
	EmptyAfterCleaning  int            `json:"empty_after_cleaning"`
}

type CleanedEmail struct {
	ID                int    `json:"id"`
	Subject           string `json:"subject"`
	SentDate          string `json:"sentDate"`
	Body              string `json:"body"`
	WordCount         int    `json:"wordCount"`
	OriginalWordCount int    `json:"originalWordCount"`
}

// CleanedExport is the document written by corpus clean.
type CleanedExport struct {
	ProcessedAt     string         `json:"processedAt"`
	TotalEmails     int            `json:"totalEmails"`
	DateRange       DateRange      `json:"dateRange"`
	ProcessingStats CleanStats     `json:"processingStats"`
	Emails          []CleanedEmail `json:"emails"`
}

func LoadCleaned(path string) (CleanedExport, error) {
	var c CleanedExport
	if err := load(path, &c); err != nil {
		return CleanedExport{}, err
	}
	return c, nil
}

// Cleaner strips quoted replies and markup from sent mail and anonymizes
// names and sensitive values. Greeting names matching the signer's own
// names are kept.
type Cleaner struct {
	ownNames map[string]bool
	stats    CleanStats
}

// NewCleaner keeps signature and each of its words out of name
// anonymization.
func NewCleaner(signature string) *Cleaner {
	own := map[string]bool{}
	signature = strings.ToLower(strings.TrimSpace(signature))
	if signature != "" {
		own[signature] = true
		for _, part := range strings.Fields(signature) {
			own[part] = true
		}
	}
	c := &Cleaner{ownNames: own}
	c.stats.AnonymizationCounts = make(map[string]int, len(sensitiveRules))
	for _, rule := range sensitiveRules {
		c.stats.AnonymizationCounts[rule.name] = 0
	}
	return c
}

func (c *Cleaner) Stats() CleanStats {
	return c.stats
}

// Clean processes every record of exp. Records whose cleaned body is
// shorter than twenty characters are dropped.
func (c *Cleaner) Clean(exp Export, now time.Time) CleanedExport {
	out := CleanedExport{
		ProcessedAt: now.Format(time.RFC3339),
		DateRange:   exp.DateRange,
		Emails:      []CleanedEmail{},
	}
	for _, rec := range exp.Emails {
		body := c.CleanBody(rec.Body, rec.BodyType)
		if utf8.RuneCountInString(body) < minCleanedLength {
			c.stats.EmptyAfterCleaning++
			continue
		}
		out.Emails = append(out.Emails, CleanedEmail{
			ID:                rec.ID,
			Subject:           rec.Subject,
			SentDate:          rec.SentDate,
			Body:              body,
			WordCount:         len(strings.Fields(body)),
			OriginalWordCount: rec.WordCount,
		})
		c.stats.TotalProcessed++
	}
	out.TotalEmails = len(out.Emails)
	out.ProcessingStats = c.stats
	return out
}

// CleanBody runs the cleaning steps on one body.
func (c *Cleaner) CleanBody(body, bodyType string) string {
	if body == "" {
		return ""
	}
	if strings.EqualFold(bodyType, "html") {
		body = RemoveHTML(body)
	}
	body = c.removeQuoted(body)
	body = c.anonymizeNames(body, GreetingNames(body))
	body = c.anonymizeSensitive(body)
	body = excessNewlines.ReplaceAllString(body, "\n\n")
	return strings.TrimSpace(body)
}

// RemoveHTML drops style and script blocks and tags, decodes the common
// entities and collapses whitespace.
func RemoveHTML(text string) string {
	if text == "" {
		return ""
	}
	text = htmlStylePattern.ReplaceAllString(text, "")
	text = htmlScriptPattern.ReplaceAllString(text, "")
	text = htmlTagPattern.ReplaceAllString(text, " ")
	text = htmlEntities.Replace(text)
	text = spacePattern.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

func (c *Cleaner) removeQuoted(text string) string {
	for _, p := range quotePatterns {
		text = p.ReplaceAllString(text, "")
	}
	for _, indicator := range quoteIndicators {
		if i := strings.Index(text, indicator); i >= 0 {
			c.stats.QuotedTextRemoved++
			text = text[:i]
		}
	}
	return strings.TrimSpace(text)
}

// GreetingNames returns the distinct capitalized names following a
// greeting word, longest first.
func GreetingNames(text string) []string {
	seen := map[string]bool{}
	var names []string
	for _, m := range greetingName.FindAllStringSubmatch(text, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	sort.SliceStable(names, func(i, j int) bool { return len(names[i]) > len(names[j]) })
	return names
}

func (c *Cleaner) anonymizeNames(text string, names []string) string {
	for _, name := range names {
		if c.ownNames[strings.ToLower(name)] {
			continue
		}
		text = strings.ReplaceAll(text, name, CustomerPlaceholder)
	}
	return text
}

func (c *Cleaner) anonymizeSensitive(text string) string {
	for _, rule := range sensitiveRules {
		matches := rule.pattern.FindAllStringIndex(text, -1)
		if len(matches) == 0 {
			continue
		}
		c.stats.AnonymizationCounts[rule.name] += len(matches)
		text = rule.pattern.ReplaceAllString(text, rule.replacement)
	}
	return text
}
