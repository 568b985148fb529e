// Package chattypes defines session and conversation types for gemchat.
// This file contains the message, session and collection types that are persisted
// as one JSON blob in the key-value store.
package chattypes

import (
	"encoding/json"
	"time"
)

// Role identifies the author of a message.
type Role string

// Known roles. Anything that is not RoleUser is treated as RoleAssistant.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ParseRole maps a raw role string to a Role. "user" is the user; every other
// value ("assistant", "ai", "model", ...) is the assistant.
func ParseRole(raw string) Role {
	if raw == string(RoleUser) {
		return RoleUser
	}
	return RoleAssistant
}

// RemoteRole returns the role name used by the generate-content API.
func (r Role) RemoteRole() string {
	if r == RoleUser {
		return "user"
	}
	return "model"
}

// UnmarshalJSON normalizes legacy and remote role names. A non-string role is the assistant.
func (r *Role) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		*r = RoleAssistant
		return nil
	}
	*r = ParseRole(raw)
	return nil
}

// Message is a single turn in a conversation.
type Message struct {
	Role      Role      `json:"role" yaml:"role"`
	Content   string    `json:"content" yaml:"content"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
}

// timestampLayouts are tried in order when decoding a stored timestamp.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp decodes a stored timestamp. It accepts ISO-8601 strings and
// epoch milliseconds. Anything else, including "" and null, is the zero time.
func ParseTimestamp(raw json.RawMessage) time.Time {
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		for _, layout := range timestampLayouts {
			if ts, err := time.Parse(layout, text); err == nil {
				return ts
			}
		}
		return time.Time{}
	}
	var millis int64
	if err := json.Unmarshal(raw, &millis); err == nil {
		return time.UnixMilli(millis).UTC()
	}
	return time.Time{}
}

// UnmarshalJSON decodes a message without failing on a malformed timestamp,
// so one bad element never makes a whole history unreadable.
func (m *Message) UnmarshalJSON(data []byte) error {
	var raw struct {
		Role      Role            `json:"role"`
		Content   string          `json:"content"`
		Timestamp json.RawMessage `json:"timestamp"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*m = Message{Role: raw.Role, Content: raw.Content}
	if len(raw.Timestamp) > 0 {
		m.Timestamp = ParseTimestamp(raw.Timestamp)
	}
	return nil
}

// MarshalJSON encodes a zero timestamp as "".
func (m Message) MarshalJSON() ([]byte, error) {
	timestamp := ""
	if !m.Timestamp.IsZero() {
		timestamp = m.Timestamp.Format(time.RFC3339Nano)
	}
	return json.Marshal(struct {
		Role      Role   `json:"role"`
		Content   string `json:"content"`
		Timestamp string `json:"timestamp"`
	}{m.Role, m.Content, timestamp})
}

// NewMessage creates a message stamped with the clock's current time.
func NewMessage(role Role, content string, clock Clock) Message {
	return Message{
		Role:      role,
		Content:   content,
		Timestamp: clock.Now(),
	}
}

// Session is a named conversation thread.
type Session struct {
	Name    string    `json:"name" yaml:"name"`
	History []Message `json:"history" yaml:"history"`
}

// LastActivity returns the timestamp of the newest message, or the zero time.
func (s Session) LastActivity() time.Time {
	if len(s.History) == 0 {
		return time.Time{}
	}
	return s.History[len(s.History)-1].Timestamp
}

// MarshalJSON always encodes an empty history as [] instead of null.
func (s Session) MarshalJSON() ([]byte, error) {
	type plain Session
	p := plain(s)
	if p.History == nil {
		p.History = []Message{}
	}
	return json.Marshal(p)
}

// Collection is the ordered list of sessions stored under one key.
type Collection []Session

// Find returns the index of the session named name, or -1.
func (c Collection) Find(name string) int {
	for i := range c {
		if c[i].Name == name {
			return i
		}
	}
	return -1
}

// Names returns the session names in collection order.
func (c Collection) Names() []string {
	names := make([]string, 0, len(c))
	for _, s := range c {
		names = append(names, s.Name)
	}
	return names
}

// SessionInfo is a lightweight summary of a stored session (for listing).
type SessionInfo struct {
	Name         string    `json:"name"`
	Messages     int       `json:"messages"`
	LastActivity time.Time `json:"last_activity"`
	Active       bool      `json:"active"`
	Preview      string    `json:"preview,omitempty"`
}
