package chat

import "gemchat/pkg/chattypes"

// BuildContext returns the turns sent for content: the trailing contextLength
// messages of history, then content again as the final user turn. When content
// is already the newest message it is sent twice, so the model always sees the
// current turn even with a context length of 0 or 1.
func BuildContext(history []chattypes.Message, contextLength int, content string) []chattypes.Turn {
	start := 0
	if contextLength >= 0 && len(history) > contextLength {
		start = len(history) - contextLength
	}
	recent := history[start:]

	turns := make([]chattypes.Turn, 0, len(recent)+1)
	for _, msg := range recent {
		turns = append(turns, chattypes.Turn{Role: msg.Role.RemoteRole(), Text: msg.Content})
	}
	return append(turns, chattypes.Turn{Role: chattypes.RoleUser.RemoteRole(), Text: content})
}

// isResendOfLast reports whether content repeats the newest message, which must be a user message.
func isResendOfLast(history []chattypes.Message, content string) bool {
	if len(history) == 0 {
		return false
	}
	last := history[len(history)-1]
	return last.Role == chattypes.RoleUser && last.Content == content
}
