package heuristic

import "strings"

type replacement struct {
	old string
	new string
}

// toneReplacements are literal, case-sensitive substitutions applied to the
// whole draft. They also rewrite matching words inside interpolated subject
// or sender text.
var toneReplacements = map[Tone][]replacement{
	ToneFriendly: {
		{old: "Dear", new: "Hi"},
		{old: "Best regards", new: "Cheers"},
	},
	ToneFormal: {
		{old: "Hi", new: "Dear"},
		{old: "Cheers", new: "Sincerely"},
	},
	ToneCasual: {
		{old: "Dear", new: "Hey"},
		{old: "Best regards", new: "Thanks"},
	},
}

// ApplyTone rewrites text for tone. Professional and unknown tones return
// text unchanged.
func ApplyTone(text string, tone Tone) string {
	for _, r := range toneReplacements[tone] {
		text = strings.ReplaceAll(text, r.old, r.new)
	}
	return text
}

func ParseTone(value string) Tone {
	switch t := Tone(strings.ToLower(strings.TrimSpace(value))); t {
	case ToneFriendly, ToneFormal, ToneCasual:
		return t
	}
	return ToneProfessional
}
