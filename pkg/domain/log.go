package domain

import "time"

// LogEntry is one line of a conversation transcript.
type LogEntry struct {
	// ID uniquely identifies the entry (UUID).
	ID string `json:"id"`

	// SessionID names the conversation this entry belongs to.
	SessionID string `json:"session_id"`

	// Message is the raw text as sent or received.
	Message string `json:"message"`

	// FromUser is true for inbound messages and false for bot replies.
	FromUser bool `json:"from_user"`

	// At is the log timestamp. Within a session, timestamps are
	// monotonically non-decreasing.
	At time.Time `json:"at"`
}
