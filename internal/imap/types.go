package imap

import "time"

type MessageSummary struct {
	UID     uint32    `json:"uid" yaml:"uid"`
	Subject string    `json:"subject" yaml:"subject"`
	From    string    `json:"from" yaml:"from"`
	Date    time.Time `json:"date" yaml:"date"`
	Size    uint32    `json:"size" yaml:"size"`
	Flags   []string  `json:"flags,omitempty" yaml:"flags,omitempty"`
}

// ThreadSummary describes a thread by its newest message.
type ThreadSummary struct {
	UID     uint32    `json:"uid" yaml:"uid"`
	Count   int       `json:"count" yaml:"count"`
	Subject string    `json:"subject" yaml:"subject"`
	From    string    `json:"from" yaml:"from"`
	Date    time.Time `json:"date" yaml:"date"`
}

// RawMessage is a full RFC 822 message with its server-side arrival time.
type RawMessage struct {
	UID          uint32
	InternalDate time.Time
	Raw          []byte
}
