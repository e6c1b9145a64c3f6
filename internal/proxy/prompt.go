package proxy

import (
	"fmt"
	"strings"

	"mailassist/internal/heuristic"
)

var typeInstructions = map[heuristic.ResponseType]string{
	heuristic.ResponseQuick:    "Write a brief 2-3 sentence response.",
	heuristic.ResponseDetailed: "Write a comprehensive 2-3 paragraph response addressing all points.",
	heuristic.ResponseMeeting:  "Write a response suggesting a meeting. Propose 2-3 time slots this week.",
}

const defaultTypeInstruction = "Write an appropriate response."

var toneInstructions = map[heuristic.Tone]string{
	heuristic.ToneProfessional: "Use a professional, business-appropriate tone.",
	heuristic.ToneFriendly:     "Use a warm, friendly tone while remaining professional.",
	heuristic.ToneFormal:       "Use a formal, highly professional tone.",
}

// BuildPrompt renders the user prompt sent to the language model.
func BuildPrompt(emailContent, subject, sender string, responseType heuristic.ResponseType, tone heuristic.Tone, signature string) string {
	if signature == "" {
		signature = heuristic.DefaultSignature
	}
	instructions, ok := typeInstructions[responseType]
	if !ok {
		instructions = defaultTypeInstruction
	}
	toneLine, ok := toneInstructions[tone]
	if !ok {
		toneLine = toneInstructions[heuristic.ToneProfessional]
	}

	prompt := fmt.Sprintf(`
Email Subject: %s
From: %s

Email Content:
%s

Instructions:
%s
%s

Sign as "%s" or "Best regards, %s".

Generate the response:
`, subject, sender, emailContent, instructions, toneLine, signature, signature)
	return strings.TrimSpace(prompt)
}
