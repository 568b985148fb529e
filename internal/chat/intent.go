package chat

// IntentKind names the effect a confirmed dialog asks for.
type IntentKind int

// Intent kinds. IntentNone is what a declined confirmation yields.
const (
	IntentNone IntentKind = iota
	IntentDeleteMessage
	IntentClear
	IntentDeleteSession
	IntentReset
	IntentImport
)

// String returns the intent kind name.
func (k IntentKind) String() string {
	switch k {
	case IntentDeleteMessage:
		return "delete-message"
	case IntentClear:
		return "clear"
	case IntentDeleteSession:
		return "delete-session"
	case IntentReset:
		return "reset"
	case IntentImport:
		return "import"
	default:
		return "none"
	}
}

// Intent is a decided, not yet applied, mutation.
type Intent struct {
	Kind    IntentKind
	Index   int
	Session string
	Blob    []byte
}

// IsNone reports whether applying the intent does nothing.
func (i Intent) IsNone() bool {
	return i.Kind == IntentNone
}

// DecideDeleteMessage turns the answer to "delete this message?" into an intent.
func DecideDeleteMessage(confirmed bool, index int) Intent {
	if !confirmed {
		return Intent{}
	}
	return Intent{Kind: IntentDeleteMessage, Index: index}
}

// DecideClear turns the answer to "clear this conversation?" into an intent.
func DecideClear(confirmed bool) Intent {
	if !confirmed {
		return Intent{}
	}
	return Intent{Kind: IntentClear}
}

// DecideDeleteSession turns the answer to "delete session name?" into an intent.
func DecideDeleteSession(confirmed bool, name string) Intent {
	if !confirmed || name == "" {
		return Intent{}
	}
	return Intent{Kind: IntentDeleteSession, Session: name}
}

// DecideReset turns the answer to "start a new session?" into an intent.
func DecideReset(confirmed bool) Intent {
	if !confirmed {
		return Intent{}
	}
	return Intent{Kind: IntentReset}
}

// DecideImport turns the answer to "replace all history with this file?" into an intent.
// An empty blob never imports.
func DecideImport(confirmed bool, blob []byte) Intent {
	if !confirmed || len(blob) == 0 {
		return Intent{}
	}
	return Intent{Kind: IntentImport, Blob: blob}
}
