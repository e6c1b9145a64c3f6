package heuristic

import (
	"strings"
)

// quickBranches pick the middle paragraph of a quick reply. The first rule
// whose keyword appears in the lowercased body wins; the last is the default.
var quickBranches = []struct {
	keyword   string
	paragraph string
}{
	{"question", "I have received your questions and will review them carefully. I will get back to you with detailed answers shortly.\n\n"},
	{"meeting", "I have noted your meeting request. Let me check my calendar and I will propose some times that work.\n\n"},
	{"", "I have reviewed your message and will respond with more details soon.\n\n"},
}

// Composer renders reply drafts from fixed templates, signed with Signature.
type Composer struct {
	Signature string
}

func NewComposer(signature string) Composer {
	if strings.TrimSpace(signature) == "" {
		signature = DefaultSignature
	}
	return Composer{Signature: signature}
}

// Compose renders a draft with the default signature.
func Compose(body, subject, sender string, responseType ResponseType, tone Tone) string {
	return NewComposer(DefaultSignature).Compose(body, subject, sender, responseType, tone)
}

// Compose renders the template for responseType and applies the tone pass.
// An unknown response type renders an empty draft.
func (c Composer) Compose(body, subject, sender string, responseType ResponseType, tone Tone) string {
	return ApplyTone(c.render(body, subject, sender, responseType), tone)
}

func (c Composer) render(body, subject, sender string, responseType ResponseType) string {
	signature := c.Signature
	if signature == "" {
		signature = DefaultSignature
	}
	closing := "Best regards,\n" + signature

	var sb strings.Builder
	switch responseType {
	case ResponseQuick:
		sb.WriteString("Hi " + sender + ",\n\n")
		sb.WriteString("Thank you for your email regarding \"" + subject + "\".\n\n")
		sb.WriteString(quickParagraph(body))
		sb.WriteString(closing)
	case ResponseDetailed:
		sb.WriteString("Dear " + sender + ",\n\n")
		sb.WriteString("Thank you for reaching out regarding \"" + subject + "\".\n\n")
		sb.WriteString("I appreciate you taking the time to share this information. Based on your message, here are my thoughts:\n\n")
		sb.WriteString("1. [Point addressing main concern]\n")
		sb.WriteString("2. [Additional relevant information]\n")
		sb.WriteString("3. [Next steps or action items]\n\n")
		sb.WriteString("Please let me know if you need any clarification or have additional questions.\n\n")
		sb.WriteString(closing)
	case ResponseMeeting:
		sb.WriteString("Hi " + sender + ",\n\n")
		sb.WriteString("Thank you for your email about \"" + subject + "\".\n\n")
		sb.WriteString("I think a meeting would be beneficial to discuss this further. I have availability:\n\n")
		sb.WriteString("- [Option 1: Date/Time]\n")
		sb.WriteString("- [Option 2: Date/Time]\n")
		sb.WriteString("- [Option 3: Date/Time]\n\n")
		sb.WriteString("Please let me know which time works best for you, or suggest an alternative.\n\n")
		sb.WriteString(closing)
	}
	return sb.String()
}

func quickParagraph(body string) string {
	lower := strings.ToLower(body)
	for _, branch := range quickBranches {
		if branch.keyword == "" || strings.Contains(lower, branch.keyword) {
			return branch.paragraph
		}
	}
	return ""
}

// ParseResponseType maps a user-supplied value to a ResponseType.
func ParseResponseType(value string) (ResponseType, bool) {
	switch t := ResponseType(strings.ToLower(strings.TrimSpace(value))); t {
	case ResponseQuick, ResponseDetailed, ResponseMeeting:
		return t, true
	}
	return "", false
}
