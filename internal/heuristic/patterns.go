package heuristic

import (
	"regexp"
	"strings"
)

// actionIndicators flag a body line as a task candidate. Matched as
// lowercase substrings.
var actionIndicators = []string{
	"need to",
	"please",
	"can you",
	"would you",
	"could you",
	"review",
	"complete",
	"send",
	"prepare",
	"schedule",
}

type priorityRule struct {
	priority Priority
	terms    []string
}

// priorityRules are evaluated in order; the first rule with a matching term
// wins. Lines that match none are PriorityMedium.
var priorityRules = []priorityRule{
	{priority: PriorityHigh, terms: []string{"urgent", "asap"}},
	{priority: PriorityLow, terms: []string{"when you can", "no rush"}},
}

var dueDatePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)by\s+(\w+\s+\d{1,2})`),
	regexp.MustCompile(`(?i)due\s+(\w+\s+\d{1,2})`),
	regexp.MustCompile(`(\d{1,2}/\d{1,2}/\d{2,4})`),
}

var meetingKeywords = []string{
	"meeting",
	"call",
	"discussion",
	"sync",
	"catch up",
	"chat",
	"conference",
}

var dateTimePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(\w+day,?\s+\w+\s+\d{1,2}(?:st|nd|rd|th)?\s+at\s+\d{1,2}:\d{2}(?:\s*(?:AM|PM))?)`),
	regexp.MustCompile(`(?i)(\w+\s+\d{1,2}(?:st|nd|rd|th)?\s+at\s+\d{1,2}:\d{2}(?:\s*(?:AM|PM))?)`),
	regexp.MustCompile(`(?i)(\d{1,2}/\d{1,2}/\d{2,4}\s+at\s+\d{1,2}:\d{2}(?:\s*(?:AM|PM))?)`),
}

var durationPattern = regexp.MustCompile(`(?i)\d+\s*(?:minutes?|mins?|hours?|hrs?)`)

type locationRule struct {
	keywords []string
	name     string
}

var locationRules = []locationRule{
	{keywords: []string{"zoom", "zoom.us"}, name: "Zoom"},
	{keywords: []string{"teams", "microsoft teams"}, name: "Microsoft Teams"},
	{keywords: []string{"meet.google", "google meet"}, name: "Google Meet"},
	{keywords: []string{"webex"}, name: "Webex"},
}

var roomPattern = regexp.MustCompile(`(?i)(?:room|conference room|office)\s+(\w+|\d+)`)

// ContainsAny reports whether text contains any of terms. Callers lowercase
// text when the match should be case-insensitive.
func ContainsAny(text string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(text, term) {
			return true
		}
	}
	return false
}

// FirstCapture returns the first capture group of the first pattern that
// matches text.
func FirstCapture(text string, patterns []*regexp.Regexp) (string, bool) {
	for _, pattern := range patterns {
		if m := pattern.FindStringSubmatch(text); m != nil && len(m) > 1 {
			return m[1], true
		}
	}
	return "", false
}

func IsActionLine(line string) bool {
	return ContainsAny(strings.ToLower(line), actionIndicators)
}

func ClassifyPriority(line string) Priority {
	lower := strings.ToLower(line)
	for _, rule := range priorityRules {
		if ContainsAny(lower, rule.terms) {
			return rule.priority
		}
	}
	return PriorityMedium
}

func ExtractDueDate(line string) (string, bool) {
	return FirstCapture(line, dueDatePatterns)
}

func IsMeetingText(text string) bool {
	return ContainsAny(strings.ToLower(text), meetingKeywords)
}

func ExtractDateTime(text string) (string, bool) {
	return FirstCapture(text, dateTimePatterns)
}

func ExtractDuration(text string) (string, bool) {
	m := durationPattern.FindString(text)
	return m, m != ""
}

// ExtractLocation resolves a meeting platform by keyword, then falls back to
// a room or office reference.
func ExtractLocation(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, rule := range locationRules {
		if ContainsAny(lower, rule.keywords) {
			return rule.name, true
		}
	}
	if m := roomPattern.FindString(text); m != "" {
		return m, true
	}
	return "", false
}
