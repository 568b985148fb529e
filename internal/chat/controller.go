// Package chat implements the conversation controller: the active session's
// in-memory history, the Idle/AwaitingReply guard and the submit cycle.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"gemchat/internal/gemini"
	"gemchat/internal/logger"
	"gemchat/internal/session"
	"gemchat/pkg/chattypes"
)

var (
	// ErrBusy is returned while a reply is outstanding.
	ErrBusy = errors.New("waiting for a reply")

	// ErrEmptyInput is returned for blank submissions.
	ErrEmptyInput = errors.New("message is empty")

	// ErrIndexOutOfRange is returned for a message index outside the history.
	ErrIndexOutOfRange = errors.New("message index out of range")

	// ErrSessionExists is returned when creating a session under a taken name.
	ErrSessionExists = errors.New("session already exists")

	// ErrCompletion wraps remote failures. The notifier has already been told.
	ErrCompletion = errors.New("completion failed")
)

// Notified reports whether err was already passed to the notifier, so callers
// should not print it again.
func Notified(err error) bool {
	return errors.Is(err, ErrCompletion) || errors.Is(err, session.ErrImportFormat)
}

// State is the controller's request state.
type State int32

// Controller states.
const (
	Idle State = iota
	AwaitingReply
)

// String returns the state name.
func (s State) String() string {
	if s == AwaitingReply {
		return "awaiting-reply"
	}
	return "idle"
}

// Config wires a Controller. Notifier and Clock are optional.
type Config struct {
	Store     *session.Store
	Completer chattypes.Completer
	Notifier  chattypes.Notifier
	Clock     chattypes.Clock
}

// Controller drives one conversation at a time. All methods are safe for
// concurrent use; at most one reply is outstanding.
type Controller struct {
	store     *session.Store
	completer chattypes.Completer
	notifier  chattypes.Notifier
	clock     chattypes.Clock

	state atomic.Int32

	mu      sync.Mutex
	name    string
	history []chattypes.Message
}

// New creates a Controller showing the store's active session.
func New(cfg Config) (*Controller, error) {
	if cfg.Store == nil {
		return nil, errors.New("chat controller requires a session store")
	}
	if cfg.Completer == nil {
		return nil, errors.New("chat controller requires a completer")
	}
	if cfg.Notifier == nil {
		cfg.Notifier = chattypes.NotifierFunc(func(chattypes.NoticeLevel, string, string) {})
	}
	if cfg.Clock == nil {
		cfg.Clock = chattypes.SystemClock{}
	}

	c := &Controller{
		store:     cfg.Store,
		completer: cfg.Completer,
		notifier:  cfg.Notifier,
		clock:     cfg.Clock,
	}

	name := cfg.Store.CurrentSession()
	history, err := cfg.Store.History(name)
	if err != nil {
		return nil, fmt.Errorf("load active session: %w", err)
	}
	c.name = name
	c.history = history
	return c, nil
}

// State returns the current request state.
func (c *Controller) State() State {
	return State(c.state.Load())
}

// SessionName returns the active session name.
func (c *Controller) SessionName() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.name
}

// History returns a copy of the active session's messages.
func (c *Controller) History() []chattypes.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]chattypes.Message, len(c.history))
	copy(out, c.history)
	return out
}

// Submit sends text as a new user message and waits for the reply.
// Returns the appended assistant message.
func (c *Controller) Submit(ctx context.Context, text string) (chattypes.Message, error) {
	return c.submit(ctx, text, false)
}

// Resend sends content again. If the newest message is a user message with the
// same content, no new user message is appended.
func (c *Controller) Resend(ctx context.Context, content string) (chattypes.Message, error) {
	return c.submit(ctx, content, true)
}

// submit stores and sends content as typed. Whitespace only decides emptiness.
func (c *Controller) submit(ctx context.Context, content string, resend bool) (chattypes.Message, error) {
	if strings.TrimSpace(content) == "" {
		return chattypes.Message{}, ErrEmptyInput
	}
	if !c.state.CompareAndSwap(int32(Idle), int32(AwaitingReply)) {
		return chattypes.Message{}, ErrBusy
	}
	defer c.state.Store(int32(Idle))

	c.mu.Lock()
	name := c.name
	if !(resend && isResendOfLast(c.history, content)) {
		c.history = append(c.history, chattypes.NewMessage(chattypes.RoleUser, content, c.clock))
	}
	snapshot := make([]chattypes.Message, len(c.history))
	copy(snapshot, c.history)
	c.mu.Unlock()

	if err := c.store.Save(name, snapshot); err != nil {
		return chattypes.Message{}, fmt.Errorf("save session: %w", err)
	}

	req := chattypes.CompletionRequest{
		Model:  c.store.Model(),
		APIKey: c.store.APIKey(),
		Turns:  BuildContext(snapshot, c.store.ContextLength(), content),
	}
	logger.Debug("Submitting message", "session", name, "turns", len(req.Turns), "model", req.Model)

	text, err := c.completer.Complete(ctx, req)
	if err != nil {
		c.notifyFailure(err)
		return chattypes.Message{}, fmt.Errorf("%w: %w", ErrCompletion, err)
	}

	reply := chattypes.NewMessage(chattypes.RoleAssistant, text, c.clock)
	if err := c.appendReply(name, reply); err != nil {
		return chattypes.Message{}, err
	}
	return reply, nil
}

// appendReply stores reply under the session it was submitted from.
func (c *Controller) appendReply(name string, reply chattypes.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.name == name {
		c.history = append(c.history, reply)
		return c.saveLocked()
	}

	history, err := c.store.History(name)
	if err != nil {
		return fmt.Errorf("load session %s: %w", name, err)
	}
	return c.store.Save(name, append(history, reply))
}

func (c *Controller) notifyFailure(err error) {
	switch {
	case errors.Is(err, gemini.ErrMissingAPIKey):
		c.notifier.Notify(chattypes.NoticeError, "Error", "No API key is set. Configure one and try again.")
	case errors.Is(err, gemini.ErrInvalidResponse):
		c.notifier.Notify(chattypes.NoticeError, "Error", "Failed to get a reply. Retry or check your API key.")
	default:
		c.notifier.Notify(chattypes.NoticeError, "Error", "Sending the message failed. Please retry.")
	}
	logger.Error("Completion failed", "error", err)
}

func (c *Controller) saveLocked() error {
	if err := c.store.Save(c.name, c.history); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// lockIdle takes the mutex if no reply is outstanding.
func (c *Controller) lockIdle() error {
	c.mu.Lock()
	if c.State() != Idle {
		c.mu.Unlock()
		return ErrBusy
	}
	return nil
}

// DeleteMessage removes the message at index from the active session.
func (c *Controller) DeleteMessage(index int) error {
	if err := c.lockIdle(); err != nil {
		return err
	}
	defer c.mu.Unlock()

	if index < 0 || index >= len(c.history) {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	c.history = append(c.history[:index:index], c.history[index+1:]...)
	return c.saveLocked()
}

// Clear empties the active session's history and selects the default session.
func (c *Controller) Clear() error {
	if err := c.lockIdle(); err != nil {
		return err
	}
	defer c.mu.Unlock()

	if err := c.store.Save(c.name, nil); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return c.selectLocked(chattypes.DefaultSessionName)
}

// SwitchSession selects an existing session, or the default one.
func (c *Controller) SwitchSession(name string) error {
	if err := c.lockIdle(); err != nil {
		return err
	}
	defer c.mu.Unlock()

	if name != chattypes.DefaultSessionName {
		if _, err := c.store.Load(name); err != nil {
			return err
		}
	}
	return c.selectLocked(name)
}

// NewSession starts a new named session with an empty history and selects it.
func (c *Controller) NewSession(name string) error {
	name, err := session.ValidateSessionName(name)
	if err != nil {
		return err
	}
	if err := c.lockIdle(); err != nil {
		return err
	}
	defer c.mu.Unlock()

	if _, err := c.store.Load(name); err == nil {
		return fmt.Errorf("%w: %s", ErrSessionExists, name)
	}
	if err := c.store.Save(name, nil); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return c.selectLocked(name)
}

// Rename renames the active session, keeping its history.
func (c *Controller) Rename(newName string) error {
	if err := c.lockIdle(); err != nil {
		return err
	}
	defer c.mu.Unlock()

	if err := c.saveLocked(); err != nil {
		return err
	}
	sess, err := c.store.Rename(c.name, newName)
	if err != nil {
		return err
	}
	c.name = sess.Name
	return nil
}

func (c *Controller) selectLocked(name string) error {
	history, err := c.store.History(name)
	if err != nil {
		return err
	}
	if err := c.store.SetCurrentSession(name); err != nil {
		return err
	}
	c.name = name
	c.history = history
	return nil
}

func (c *Controller) showLocked(sess chattypes.Session) {
	c.name = sess.Name
	c.history = sess.History
	if c.history == nil {
		c.history = []chattypes.Message{}
	}
}

// Apply performs a decided intent. IntentNone does nothing.
func (c *Controller) Apply(intent Intent) error {
	switch intent.Kind {
	case IntentNone:
		return nil
	case IntentDeleteMessage:
		if err := c.DeleteMessage(intent.Index); err != nil {
			return err
		}
		c.notifier.Notify(chattypes.NoticeSuccess, "Deleted", "The message has been deleted.")
		return nil
	case IntentClear:
		if err := c.Clear(); err != nil {
			return err
		}
		c.notifier.Notify(chattypes.NoticeSuccess, "Cleared", "The conversation has been cleared.")
		return nil
	}

	if err := c.lockIdle(); err != nil {
		return err
	}
	defer c.mu.Unlock()

	switch intent.Kind {
	case IntentDeleteSession:
		active, err := c.store.Delete(intent.Session)
		if err != nil {
			return err
		}
		c.showLocked(active)
		c.notifier.Notify(chattypes.NoticeSuccess, "Deleted", fmt.Sprintf("Session %q has been deleted.", intent.Session))
	case IntentReset:
		sess, err := c.store.Reset()
		if err != nil {
			return err
		}
		c.showLocked(sess)
	case IntentImport:
		sess, err := c.store.Import(intent.Blob)
		if err != nil {
			if errors.Is(err, session.ErrImportFormat) {
				c.notifier.Notify(chattypes.NoticeError, "Import failed", "The file is not a valid chat history.")
			}
			return err
		}
		c.showLocked(sess)
		c.notifier.Notify(chattypes.NoticeSuccess, "Imported", "Chat history has been imported.")
	default:
		return fmt.Errorf("unknown intent %s", intent.Kind)
	}
	return nil
}
