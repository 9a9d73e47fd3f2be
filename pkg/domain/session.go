package domain

import "encoding/json"

// StartExchange is the sentinel exchange for sessions that have never
// been seen before.
const StartExchange = "start"

// Reserved session data keys. Variant handlers read and write these;
// anything else in the data map belongs to prompt templates.
const (
	// KeyQueued marks a session as handed off to a human. While set,
	// automatic progression stops.
	KeyQueued = "queued"

	// KeyName holds the remote party's captured first name.
	KeyName = "name"
)

// SessionState is the persisted snapshot of one conversation.
type SessionState struct {
	// Exchange is the name of the currently active exchange.
	Exchange string `json:"exchange"`

	// Data is a flat string-to-string mapping rendered into prompts.
	// It is never nil: stores and the engine normalize absent or
	// malformed payloads to an empty map.
	Data map[string]string `json:"data"`
}

// NewSessionState creates a fresh state parked at the start exchange.
func NewSessionState() *SessionState {
	return &SessionState{
		Exchange: StartExchange,
		Data:     make(map[string]string),
	}
}

// DecodeSessionState parses a persisted JSON snapshot. Malformed
// payloads degrade instead of failing the turn: an unreadable envelope
// yields a fresh state, and unreadable data keeps the exchange with an
// empty map.
func DecodeSessionState(raw []byte) *SessionState {
	state := NewSessionState()
	var probe struct {
		Exchange string          `json:"exchange"`
		Data     json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return state
	}
	if probe.Exchange != "" {
		state.Exchange = probe.Exchange
	}
	if len(probe.Data) > 0 {
		if err := json.Unmarshal(probe.Data, &state.Data); err != nil {
			state.Data = make(map[string]string)
		}
	}
	return state
}

// Queued reports whether the session is held for manual handling.
func (s *SessionState) Queued() bool {
	return s.Data[KeyQueued] == "true"
}

// SetQueued flips the manual-handling flag.
func (s *SessionState) SetQueued(v bool) {
	if s.Data == nil {
		s.Data = make(map[string]string)
	}
	if v {
		s.Data[KeyQueued] = "true"
	} else {
		delete(s.Data, KeyQueued)
	}
}

// Clone returns a deep copy so callers can mutate freely.
func (s *SessionState) Clone() *SessionState {
	out := &SessionState{
		Exchange: s.Exchange,
		Data:     make(map[string]string, len(s.Data)),
	}
	for k, v := range s.Data {
		out.Data[k] = v
	}
	return out
}
