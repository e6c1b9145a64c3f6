package heuristic

// EmailContext is the currently loaded message. It is populated once from
// the host mailbox and read by every pipeline.
type EmailContext struct {
	Subject           string `json:"subject" yaml:"subject"`
	BodyText          string `json:"bodyText" yaml:"body_text"`
	SenderDisplayName string `json:"senderDisplayName" yaml:"sender_display_name"`
	AttachmentCount   int    `json:"attachmentCount" yaml:"attachment_count"`
}

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

type ActionItem struct {
	Text     string   `json:"text" yaml:"text"`
	Priority Priority `json:"priority" yaml:"priority"`
	DueDate  string   `json:"dueDate,omitempty" yaml:"due_date,omitempty"`
}

// MeetingInfo fields other than IsMeetingRequest are only populated when
// IsMeetingRequest is true.
type MeetingInfo struct {
	IsMeetingRequest bool   `json:"isMeetingRequest" yaml:"is_meeting_request"`
	Title            string `json:"title,omitempty" yaml:"title,omitempty"`
	DateTime         string `json:"dateTime,omitempty" yaml:"date_time,omitempty"`
	Duration         string `json:"duration,omitempty" yaml:"duration,omitempty"`
	Attendees        string `json:"attendees,omitempty" yaml:"attendees,omitempty"`
	Location         string `json:"location,omitempty" yaml:"location,omitempty"`
}

type ResponseType string

const (
	ResponseQuick    ResponseType = "quick"
	ResponseDetailed ResponseType = "detailed"
	ResponseMeeting  ResponseType = "meeting"
)

type Tone string

const (
	ToneProfessional Tone = "professional"
	ToneFriendly     Tone = "friendly"
	ToneFormal       Tone = "formal"
	ToneCasual       Tone = "casual"
)

const (
	placeholderTBD     = "To be determined"
	defaultDuration    = "30 minutes"
	followUpPrefix     = "Follow up on: "
	maxActionItems     = 10
	minKeyPointLength  = 20
	maxKeyPoints       = 3
	DefaultSignature   = "Joe Newman"
	ThreadAdvisoryNote = "Note: Thread analysis would include previous messages in the conversation."
)
