package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecide(t *testing.T) {
	tests := []struct {
		name     string
		intent   Intent
		expected Intent
	}{
		{name: "delete message confirmed", intent: DecideDeleteMessage(true, 2), expected: Intent{Kind: IntentDeleteMessage, Index: 2}},
		{name: "delete message declined", intent: DecideDeleteMessage(false, 2), expected: Intent{}},
		{name: "clear confirmed", intent: DecideClear(true), expected: Intent{Kind: IntentClear}},
		{name: "clear declined", intent: DecideClear(false), expected: Intent{}},
		{name: "delete session confirmed", intent: DecideDeleteSession(true, "work"), expected: Intent{Kind: IntentDeleteSession, Session: "work"}},
		{name: "delete session without name", intent: DecideDeleteSession(true, ""), expected: Intent{}},
		{name: "reset confirmed", intent: DecideReset(true), expected: Intent{Kind: IntentReset}},
		{name: "reset declined", intent: DecideReset(false), expected: Intent{}},
		{name: "import confirmed", intent: DecideImport(true, []byte("[]")), expected: Intent{Kind: IntentImport, Blob: []byte("[]")}},
		{name: "import empty blob", intent: DecideImport(true, nil), expected: Intent{}},
		{name: "import declined", intent: DecideImport(false, []byte("[]")), expected: Intent{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.intent)
		})
	}
}

func TestIntentKind_String(t *testing.T) {
	assert.Equal(t, "none", IntentNone.String())
	assert.Equal(t, "delete-session", IntentDeleteSession.String())
	assert.True(t, Intent{}.IsNone())
}
