package chat

import (
	"testing"
	"time"

	"gemchat/pkg/chattypes"

	"github.com/stretchr/testify/assert"
)

func history(contents ...string) []chattypes.Message {
	msgs := make([]chattypes.Message, 0, len(contents))
	for i, content := range contents {
		role := chattypes.RoleUser
		if i%2 == 1 {
			role = chattypes.RoleAssistant
		}
		msgs = append(msgs, chattypes.Message{Role: role, Content: content, Timestamp: time.Unix(int64(i), 0).UTC()})
	}
	return msgs
}

func TestBuildContext(t *testing.T) {
	tests := []struct {
		name          string
		history       []chattypes.Message
		contextLength int
		content       string
		expected      []chattypes.Turn
	}{
		{
			name:          "no truncation appends current turn after the slice",
			history:       history("q1", "a1", "q2", "a2"),
			contextLength: 6,
			content:       "q3",
			expected: []chattypes.Turn{
				{Role: "user", Text: "q1"},
				{Role: "model", Text: "a1"},
				{Role: "user", Text: "q2"},
				{Role: "model", Text: "a2"},
				{Role: "user", Text: "q3"},
			},
		},
		{
			name:          "trailing window",
			history:       history("q1", "a1", "q2", "a2", "q3"),
			contextLength: 2,
			content:       "q3",
			expected: []chattypes.Turn{
				{Role: "model", Text: "a2"},
				{Role: "user", Text: "q3"},
				{Role: "user", Text: "q3"},
			},
		},
		{
			name:          "context length one still sends current turn",
			history:       history("q1", "a1", "q2"),
			contextLength: 1,
			content:       "q2",
			expected: []chattypes.Turn{
				{Role: "user", Text: "q2"},
				{Role: "user", Text: "q2"},
			},
		},
		{
			name:          "context length zero sends only current turn",
			history:       history("q1"),
			contextLength: 0,
			content:       "q1",
			expected:      []chattypes.Turn{{Role: "user", Text: "q1"}},
		},
		{
			name:          "empty history",
			history:       nil,
			contextLength: 6,
			content:       "hello",
			expected:      []chattypes.Turn{{Role: "user", Text: "hello"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, BuildContext(tt.history, tt.contextLength, tt.content))
		})
	}
}

// The newest user turn is included by the slice and appended again.
func TestBuildContext_DuplicatesNewestTurn(t *testing.T) {
	msgs := history("q1", "a1", "q2")
	turns := BuildContext(msgs, 6, "q2")

	assert.Len(t, turns, 4)
	assert.Equal(t, turns[2], turns[3])
}

func TestIsResendOfLast(t *testing.T) {
	assert.False(t, isResendOfLast(nil, "x"))
	assert.True(t, isResendOfLast(history("x"), "x"))
	assert.False(t, isResendOfLast(history("x"), "y"))
	assert.False(t, isResendOfLast(history("x", "x"), "x"), "newest message is from the assistant")
}
