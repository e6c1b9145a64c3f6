package corpus

import (
	"errors"
	"fmt"
	"io"
	"math"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	greetingWindow   = 100
	signoffWindow    = 150
	categoryWindow   = 200
	sampleLength     = 200
	samplesPerGroup  = 5
	minPhraseWords   = 3
	maxPhraseWords   = 8
	topPhrases       = 15
	minPhraseCount   = 3
	defaultGreeting  = "Hi [Name],"
	FewEmailsWarning = 10
)

var ErrNoEmails = errors.New("no emails to analyze")

type labeledPattern struct {
	pattern *regexp.Regexp
	label   string
}

var greetingPatterns = []labeledPattern{
	{regexp.MustCompile(`(?i)^Hi\s+\[Customer\],?`), "Hi [Name],"},
	{regexp.MustCompile(`(?i)^Hello\s+\[Customer\],?`), "Hello [Name],"},
	{regexp.MustCompile(`(?i)^Hey\s+\[Customer\],?`), "Hey [Name],"},
	{regexp.MustCompile(`(?i)^Dear\s+\[Customer\],?`), "Dear [Name],"},
	{regexp.MustCompile(`(?i)^\[Customer\],?`), "[Name],"},
	{regexp.MustCompile(`(?i)^Good\s+(?:morning|afternoon|evening)\s+\[Customer\],?`), "Good [time] [Name],"},
}

var (
	formalIndicators = []string{
		"dear", "sincerely", "regards", "please find", "i am writing to",
		"hereby", "pursuant to", "kindly", "appreciate your", "furthermore",
	}
	friendlyIndicators = []string{
		"hey", "thanks", "great", "awesome", "love", "excited",
		"looking forward", "!", "happy to", "glad to",
	}
	professionalIndicators = []string{
		"please", "thank you", "appreciate", "per our discussion",
		"as discussed", "following up", "wanted to", "just checking",
	}
)

type categoryRule struct {
	name     string
	keywords []string
}

// categoryRules are tried in order; unmatched emails are "general".
var categoryRules = []categoryRule{
	{"quote_requests", []string{"quote", "pricing", "price", "cost", "estimate"}},
	{"delivery_scheduling", []string{"delivery", "schedule", "ship", "pickup"}},
	{"orders", []string{"order", "purchase", "buy", "need"}},
	{"questions", []string{"question", "wondering", "inquiry", "ask"}},
}

const generalCategory = "general"

var (
	sentenceSplit = regexp.MustCompile(`[.!?]+`)
	punctuation   = regexp.MustCompile(`[^\p{L}\p{N}_\s]`)
)

type UsagePatterns struct {
	MostCommon       string             `json:"most_common"`
	Variations       []string           `json:"variations"`
	UsagePercentages map[string]float64 `json:"usage_percentages"`
}

type ToneAnalysis struct {
	OverallTone          string  `json:"overall_tone"`
	FormalityScore       float64 `json:"formality_score"`
	WarmthScore          float64 `json:"warmth_score"`
	ProfessionalismScore float64 `json:"professionalism_score"`
}

type WritingCharacteristics struct {
	AvgEmailLength    int     `json:"avg_email_length"`
	AvgSentenceLength int     `json:"avg_sentence_length"`
	AvgParagraphCount float64 `json:"avg_paragraph_count"`
}

type ResponsePattern struct {
	Count     int    `json:"count"`
	AvgLength int    `json:"avg_length"`
	Sample    string `json:"sample"`
}

// StyleProfile is the document written by corpus analyze.
type StyleProfile struct {
	GeneratedAt            string                     `json:"generated_at"`
	TotalEmailsAnalyzed    int                        `json:"total_emails_analyzed"`
	GreetingPatterns       UsagePatterns              `json:"greeting_patterns"`
	SignOffs               UsagePatterns              `json:"sign_offs"`
	ToneAnalysis           ToneAnalysis               `json:"tone_analysis"`
	WritingCharacteristics WritingCharacteristics     `json:"writing_characteristics"`
	CommonPhrases          []string                   `json:"common_phrases"`
	ResponsePatterns       map[string]ResponsePattern `json:"response_patterns"`
}

// Category is a named group of emails in first-seen order.
type Category struct {
	Name   string
	Emails []CleanedEmail
}

// Analyzer derives a writing-style profile from cleaned sent mail.
type Analyzer struct {
	signature string
	signoffs  []labeledPattern
}

// NewAnalyzer recognizes sign-offs ending with the first name or full
// name of signature.
func NewAnalyzer(signature string) *Analyzer {
	signature = strings.TrimSpace(signature)
	if signature == "" {
		signature = "Joe Newman"
	}
	first := strings.Fields(signature)[0]
	rest := strings.TrimSpace(strings.TrimPrefix(signature, first))

	names := regexp.QuoteMeta(first)
	if rest != "" {
		names = fmt.Sprintf("%s|%s", regexp.QuoteMeta(signature), regexp.QuoteMeta(first))
	}
	closing := func(word string) labeledPattern {
		return labeledPattern{
			pattern: regexp.MustCompile(fmt.Sprintf(`(?im)%s,?\s*(?:%s)`, word, names)),
			label:   fmt.Sprintf("%s,\n%s", word, first),
		}
	}
	lastLine := regexp.QuoteMeta(first)
	if rest != "" {
		lastLine += `(?:\s+` + regexp.QuoteMeta(rest) + `)?`
	}

	return &Analyzer{
		signature: signature,
		signoffs: []labeledPattern{
			closing("Thanks"),
			closing("Best"),
			closing("Best regards"),
			closing("Regards"),
			closing("Sincerely"),
			closing("Cheers"),
			{regexp.MustCompile(`(?im)(?:^|\n)` + lastLine + `$`), first},
		},
	}
}

func (a *Analyzer) defaultSignoff() string {
	return "Thanks,\n" + strings.Fields(a.signature)[0]
}

// Analyze builds the profile. It fails only when emails is empty.
func (a *Analyzer) Analyze(emails []CleanedEmail, now time.Time) (StyleProfile, error) {
	if len(emails) == 0 {
		return StyleProfile{}, ErrNoEmails
	}
	categories := Categorize(emails)
	return StyleProfile{
		GeneratedAt:            now.Format(time.RFC3339),
		TotalEmailsAnalyzed:    len(emails),
		GreetingPatterns:       a.greetings(emails),
		SignOffs:               a.signOffs(emails),
		ToneAnalysis:           AnalyzeTone(emails),
		WritingCharacteristics: Characteristics(emails),
		CommonPhrases:          CommonPhrases(emails),
		ResponsePatterns:       ResponsePatterns(categories),
	}, nil
}

func (a *Analyzer) greetings(emails []CleanedEmail) UsagePatterns {
	var counts labelCounter
	for _, e := range emails {
		head := strings.TrimSpace(firstRunes(e.Body, greetingWindow))
		for _, p := range greetingPatterns {
			if p.pattern.MatchString(head) {
				counts.add(p.label)
				break
			}
		}
	}
	return counts.usage(defaultGreeting)
}

func (a *Analyzer) signOffs(emails []CleanedEmail) UsagePatterns {
	var counts labelCounter
	for _, e := range emails {
		tail := strings.TrimSpace(lastRunes(e.Body, signoffWindow))
		for _, p := range a.signoffs {
			if p.pattern.MatchString(tail) {
				counts.add(p.label)
				break
			}
		}
	}
	return counts.usage(a.defaultSignoff())
}

// AnalyzeTone scores formality, warmth and professionalism on a 0-10 scale
// from indicator hits per email.
func AnalyzeTone(emails []CleanedEmail) ToneAnalysis {
	if len(emails) == 0 {
		return ToneAnalysis{OverallTone: "Casual-Professional"}
	}
	var formal, friendly, professional int
	for _, e := range emails {
		lower := strings.ToLower(e.Body)
		formal += countIndicators(lower, formalIndicators)
		friendly += countIndicators(lower, friendlyIndicators)
		professional += countIndicators(lower, professionalIndicators)
	}
	n := float64(len(emails))
	formality := math.Min(10, float64(formal)/n*2)
	warmth := math.Min(10, float64(friendly)/n*1.5)
	professionalism := math.Min(10, float64(professional)/n*1.5)

	var overall string
	switch {
	case formality > 7:
		overall = "Formal"
	case warmth > 7:
		overall = "Friendly"
	case professionalism > 6:
		overall = "Professional-Friendly"
	default:
		overall = "Casual-Professional"
	}
	return ToneAnalysis{
		OverallTone:          overall,
		FormalityScore:       round1(formality),
		WarmthScore:          round1(warmth),
		ProfessionalismScore: round1(professionalism),
	}
}

func countIndicators(text string, indicators []string) int {
	n := 0
	for _, ind := range indicators {
		if strings.Contains(text, ind) {
			n++
		}
	}
	return n
}

func Characteristics(emails []CleanedEmail) WritingCharacteristics {
	var emailWords, sentenceWords, sentences, paragraphs int
	for _, e := range emails {
		emailWords += len(strings.Fields(e.Body))
		for _, s := range sentenceSplit.Split(e.Body, -1) {
			if s = strings.TrimSpace(s); s != "" {
				sentenceWords += len(strings.Fields(s))
				sentences++
			}
		}
		for _, p := range strings.Split(e.Body, "\n\n") {
			if strings.TrimSpace(p) != "" {
				paragraphs++
			}
		}
	}
	var wc WritingCharacteristics
	if len(emails) > 0 {
		wc.AvgEmailLength = roundInt(float64(emailWords) / float64(len(emails)))
		wc.AvgParagraphCount = round1(float64(paragraphs) / float64(len(emails)))
	}
	if sentences > 0 {
		wc.AvgSentenceLength = roundInt(float64(sentenceWords) / float64(sentences))
	}
	return wc
}

// CommonPhrases returns up to fifteen 3 to 8 word phrases used at least
// three times, most frequent first. Phrases never span the customer
// placeholder.
func CommonPhrases(emails []CleanedEmail) []string {
	var counts labelCounter
	for _, e := range emails {
		for _, segment := range strings.Split(strings.ToLower(e.Body), strings.ToLower(CustomerPlaceholder)) {
			words := strings.Fields(punctuation.ReplaceAllString(segment, " "))
			for n := minPhraseWords; n <= maxPhraseWords; n++ {
				for i := 0; i+n <= len(words); i++ {
					counts.add(strings.Join(words[i:i+n], " "))
				}
			}
		}
	}

	phrases := []string{}
	for _, lc := range counts.ranked() {
		if len(phrases) == topPhrases || lc.count < minPhraseCount {
			break
		}
		phrases = append(phrases, lc.label)
	}
	return phrases
}

// Categorize groups emails by subject and opening keywords.
func Categorize(emails []CleanedEmail) []Category {
	index := map[string]int{}
	var out []Category
	for _, e := range emails {
		name := categoryOf(e)
		i, ok := index[name]
		if !ok {
			i = len(out)
			index[name] = i
			out = append(out, Category{Name: name})
		}
		out[i].Emails = append(out[i].Emails, e)
	}
	return out
}

func categoryOf(e CleanedEmail) string {
	subject := strings.ToLower(e.Subject)
	opening := firstRunes(strings.ToLower(e.Body), categoryWindow)
	for _, rule := range categoryRules {
		for _, kw := range rule.keywords {
			if strings.Contains(subject, kw) || strings.Contains(opening, kw) {
				return rule.name
			}
		}
	}
	return generalCategory
}

func ResponsePatterns(categories []Category) map[string]ResponsePattern {
	out := make(map[string]ResponsePattern, len(categories))
	for _, c := range categories {
		if len(c.Emails) == 0 {
			continue
		}
		total := 0
		for _, e := range c.Emails {
			total += e.WordCount
		}
		out[c.Name] = ResponsePattern{
			Count:     len(c.Emails),
			AvgLength: roundInt(float64(total) / float64(len(c.Emails))),
			Sample:    firstRunes(c.Emails[0].Body, sampleLength) + "...",
		}
	}
	return out
}

// WriteTrainingSamples writes up to five samples per category as plain
// text.
func (a *Analyzer) WriteTrainingSamples(w io.Writer, categories []Category, now time.Time) error {
	rule := strings.Repeat("=", 80)
	var b strings.Builder
	fmt.Fprintf(&b, "# %s Writing Style - Training Samples\n", a.signature)
	fmt.Fprintf(&b, "# Generated: %s\n\n", now.Format(time.RFC3339))
	b.WriteString(rule + "\n\n")

	for _, c := range categories {
		if len(c.Emails) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n%s\n", rule)
		fmt.Fprintf(&b, "CATEGORY: %s\n", strings.ToUpper(strings.ReplaceAll(c.Name, "_", " ")))
		fmt.Fprintf(&b, "%s\n\n", rule)
		for i, e := range c.Emails {
			if i == samplesPerGroup {
				break
			}
			fmt.Fprintf(&b, "--- Sample %d ---\n", i+1)
			fmt.Fprintf(&b, "Subject: %s\n", e.Subject)
			fmt.Fprintf(&b, "Length: %d words\n\n", e.WordCount)
			b.WriteString(e.Body)
			b.WriteString("\n\n")
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

type labelCount struct {
	label string
	count int
}

// labelCounter counts labels and ranks them by count, ties in first-seen
// order.
type labelCounter struct {
	index map[string]int
	items []labelCount
}

func (c *labelCounter) add(label string) {
	if c.index == nil {
		c.index = map[string]int{}
	}
	if i, ok := c.index[label]; ok {
		c.items[i].count++
		return
	}
	c.index[label] = len(c.items)
	c.items = append(c.items, labelCount{label: label, count: 1})
}

func (c *labelCounter) ranked() []labelCount {
	out := append([]labelCount(nil), c.items...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].count > out[j].count })
	return out
}

func (c *labelCounter) usage(fallback string) UsagePatterns {
	total := 0
	for _, it := range c.items {
		total += it.count
	}
	if total == 0 {
		return UsagePatterns{MostCommon: fallback, Variations: []string{}, UsagePercentages: map[string]float64{}}
	}
	ranked := c.ranked()
	u := UsagePatterns{
		MostCommon:       ranked[0].label,
		Variations:       make([]string, 0, len(ranked)),
		UsagePercentages: make(map[string]float64, len(ranked)),
	}
	for _, it := range ranked {
		u.Variations = append(u.Variations, it.label)
		u.UsagePercentages[it.label] = round2(float64(it.count) / float64(total) * 100)
	}
	return u
}

func firstRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func lastRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[len(r)-n:])
}

func roundInt(v float64) int { return int(math.RoundToEven(v)) }
func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }
