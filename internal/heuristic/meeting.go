package heuristic

import "strings"

// DetectMeeting classifies the message and, for meeting requests, extracts
// the event fields. Fields that cannot be found fall back to placeholders.
func DetectMeeting(body, subject, sender string) MeetingInfo {
	if !IsMeetingText(body) && !IsMeetingText(subject) {
		return MeetingInfo{IsMeetingRequest: false}
	}

	info := MeetingInfo{
		IsMeetingRequest: true,
		Title:            meetingTitle(subject),
		DateTime:         placeholderTBD,
		Duration:         defaultDuration,
		Attendees:        sender,
		Location:         placeholderTBD,
	}
	if v, ok := ExtractDateTime(body); ok {
		info.DateTime = v
	}
	if v, ok := ExtractDuration(body); ok {
		info.Duration = v
	}
	if v, ok := ExtractLocation(body); ok {
		info.Location = v
	}
	return info
}

func meetingTitle(subject string) string {
	if !strings.Contains(subject, "RE:") {
		return subject
	}
	return strings.TrimSpace(strings.Replace(subject, "RE:", "", 1))
}
