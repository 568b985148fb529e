// Package session implements the session store: named conversation threads kept as
// one JSON collection blob in a key-value store, plus the persisted active selection.
package session

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"gemchat/internal/logger"
	"gemchat/pkg/chattypes"

	"github.com/tidwall/gjson"
)

// maxNameLength bounds session names.
const maxNameLength = 64

// Store owns the session collection and the active selection.
// Every mutation rewrites the whole collection blob.
type Store struct {
	mu       sync.Mutex
	kv       chattypes.KVStore
	defaults Defaults
}

// NewStore creates a Store over kv. Zero-valued defaults are filled in.
func NewStore(kv chattypes.KVStore, defaults Defaults) *Store {
	if defaults.Model == "" {
		defaults.Model = chattypes.DefaultModel()
	}
	if defaults.ContextLength <= 0 {
		defaults.ContextLength = chattypes.DefaultContextLength
	}
	return &Store{kv: kv, defaults: defaults}
}

// emptyCollection is the collection a corrupt blob is reset to.
func emptyCollection() chattypes.Collection {
	return chattypes.Collection{{Name: chattypes.DefaultSessionName, History: []chattypes.Message{}}}
}

// ValidateSessionName trims whitespace and surrounding quotes and checks the result.
// Returns the processed name.
func ValidateSessionName(name string) (string, error) {
	processed := strings.TrimSpace(name)
	if len(processed) >= 2 {
		if (processed[0] == '"' && processed[len(processed)-1] == '"') ||
			(processed[0] == '\'' && processed[len(processed)-1] == '\'') {
			processed = strings.TrimSpace(processed[1 : len(processed)-1])
		}
	}

	if processed == "" {
		return "", fmt.Errorf("%w: name cannot be empty", ErrInvalidName)
	}
	if len(processed) > maxNameLength {
		return "", fmt.Errorf("%w: name too long (max %d characters)", ErrInvalidName, maxNameLength)
	}
	for _, char := range processed {
		if char < 32 || char == 127 {
			return "", fmt.Errorf("%w: name contains control characters", ErrInvalidName)
		}
	}
	return processed, nil
}

// readCollection loads the collection. exists is false when nothing is stored.
// Only a blob that is not a JSON array is reset to the empty default collection.
func (s *Store) readCollection() (c chattypes.Collection, exists bool, err error) {
	raw, found, err := s.kv.Get(chattypes.KeyCollection)
	if err != nil {
		return nil, false, fmt.Errorf("read collection: %w", err)
	}
	if !found {
		return chattypes.Collection{}, false, nil
	}

	if !gjson.Valid(raw) || !gjson.Parse(raw).IsArray() {
		return s.repair("stored value is not a JSON array")
	}

	return decodeCollection(raw), true, nil
}

// decodeCollection decodes each element of a JSON array on its own. Elements
// that are not sessions are skipped and logged; the rest of the history survives.
func decodeCollection(raw string) chattypes.Collection {
	c := chattypes.Collection{}
	gjson.Parse(raw).ForEach(func(index, value gjson.Result) bool {
		var sess chattypes.Session
		if err := json.Unmarshal([]byte(value.Raw), &sess); err != nil || !value.IsObject() {
			logger.Warn("Skipping unreadable session entry", "index", index.Int(), "error", err)
			return true
		}
		c = append(c, sess)
		return true
	})
	return c
}

func (s *Store) repair(reason string) (chattypes.Collection, bool, error) {
	logger.Warn("Resetting corrupt session collection", "reason", reason)
	c := emptyCollection()
	if err := s.writeCollection(c); err != nil {
		return nil, false, err
	}
	return c, true, nil
}

func (s *Store) writeCollection(c chattypes.Collection) error {
	if c == nil {
		c = chattypes.Collection{}
	}
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal collection: %w", err)
	}
	if err := s.kv.Set(chattypes.KeyCollection, string(data)); err != nil {
		return fmt.Errorf("write collection: %w", err)
	}
	return nil
}

// Load returns the named session.
func (s *Store) Load(name string) (chattypes.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, _, err := s.readCollection()
	if err != nil {
		return chattypes.Session{}, err
	}
	idx := c.Find(name)
	if idx < 0 {
		return chattypes.Session{}, fmt.Errorf("%w: %s", ErrSessionNotFound, name)
	}
	return c[idx], nil
}

// History returns the named session's messages, or an empty history if it does not exist.
func (s *Store) History(name string) ([]chattypes.Message, error) {
	sess, err := s.Load(name)
	if err != nil {
		if isNotFound(err) {
			return []chattypes.Message{}, nil
		}
		return nil, err
	}
	if sess.History == nil {
		return []chattypes.Message{}, nil
	}
	return sess.History, nil
}

// Save overwrites the named session's history, appending a new entry if it is absent.
func (s *Store) Save(name string, history []chattypes.Message) error {
	if name == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidName)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, _, err := s.readCollection()
	if err != nil {
		return err
	}
	c = upsert(c, name, history)

	logger.ServiceOperation("session", "save", "name", name, "messages", len(history))
	return s.writeCollection(c)
}

func upsert(c chattypes.Collection, name string, history []chattypes.Message) chattypes.Collection {
	stored := make([]chattypes.Message, len(history))
	copy(stored, history)

	if idx := c.Find(name); idx >= 0 {
		c[idx].History = stored
		return c
	}
	return append(c, chattypes.Session{Name: name, History: stored})
}

// Rename moves oldName's history to newName. An existing newName entry is
// overwritten (last write wins). If oldName was active, newName becomes active.
func (s *Store) Rename(oldName, newName string) (chattypes.Session, error) {
	newName, err := ValidateSessionName(newName)
	if err != nil {
		return chattypes.Session{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	active := s.currentSession()
	c, _, err := s.readCollection()
	if err != nil {
		return chattypes.Session{}, err
	}

	idx := c.Find(oldName)
	if idx < 0 && oldName != active {
		return chattypes.Session{}, fmt.Errorf("%w: %s", ErrSessionNotFound, oldName)
	}
	if oldName == newName {
		if idx < 0 {
			return chattypes.Session{Name: newName, History: []chattypes.Message{}}, nil
		}
		return c[idx], nil
	}

	history := []chattypes.Message{}
	if idx >= 0 {
		history = c[idx].History
		c = append(c[:idx], c[idx+1:]...)
	}
	c = upsert(c, newName, history)

	if err := s.writeCollection(c); err != nil {
		return chattypes.Session{}, err
	}
	if oldName == active {
		if err := s.kv.Set(chattypes.KeyActiveSession, newName); err != nil {
			return chattypes.Session{}, fmt.Errorf("update active session: %w", err)
		}
	}

	logger.Debug("Session renamed", "from", oldName, "to", newName)
	return chattypes.Session{Name: newName, History: history}, nil
}

// Delete removes the named session. If it was active, the default session
// becomes active (recreated empty if missing). Returns the active session afterwards.
func (s *Store) Delete(name string) (chattypes.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, _, err := s.readCollection()
	if err != nil {
		return chattypes.Session{}, err
	}
	idx := c.Find(name)
	if idx < 0 {
		return chattypes.Session{}, fmt.Errorf("%w: %s", ErrSessionNotFound, name)
	}
	c = append(c[:idx], c[idx+1:]...)

	active := s.currentSession()
	if name == active {
		active = chattypes.DefaultSessionName
		if c.Find(active) < 0 {
			c = append(c, chattypes.Session{Name: active, History: []chattypes.Message{}})
		}
		if err := s.kv.Set(chattypes.KeyActiveSession, active); err != nil {
			return chattypes.Session{}, fmt.Errorf("update active session: %w", err)
		}
	}

	if err := s.writeCollection(c); err != nil {
		return chattypes.Session{}, err
	}
	logger.Debug("Session deleted", "name", name, "active", active)

	if i := c.Find(active); i >= 0 {
		return c[i], nil
	}
	return chattypes.Session{Name: active, History: []chattypes.Message{}}, nil
}

// List summarizes stored sessions in collection order.
func (s *Store) List() ([]chattypes.SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, _, err := s.readCollection()
	if err != nil {
		return nil, err
	}
	active := s.currentSession()

	infos := make([]chattypes.SessionInfo, 0, len(c))
	for _, sess := range c {
		info := chattypes.SessionInfo{
			Name:         sess.Name,
			Messages:     len(sess.History),
			LastActivity: sess.LastActivity(),
			Active:       sess.Name == active,
		}
		if n := len(sess.History); n > 0 {
			info.Preview = sess.History[n-1].Content
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// Export returns the raw stored collection blob.
func (s *Store) Export() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, found, err := s.kv.Get(chattypes.KeyCollection)
	if err != nil {
		return nil, fmt.Errorf("read collection: %w", err)
	}
	if !found || raw == "" {
		return nil, ErrNothingToExport
	}
	return []byte(raw), nil
}

// ExportFileName is the download name for an export of the active session's store.
func (s *Store) ExportFileName() string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, s.CurrentSession())
	return fmt.Sprintf("gemini_chat_history_%s.json", name)
}

// Import replaces the whole collection with blob. The blob must be a non-empty
// JSON array of sessions with unique, non-empty names; otherwise ErrImportFormat
// is returned and storage is untouched. The default session (or the first one)
// becomes active and is returned.
func (s *Store) Import(blob []byte) (chattypes.Session, error) {
	c, err := parseImport(blob)
	if err != nil {
		return chattypes.Session{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.kv.Set(chattypes.KeyCollection, string(blob)); err != nil {
		return chattypes.Session{}, fmt.Errorf("write collection: %w", err)
	}

	selected := c[0]
	if idx := c.Find(chattypes.DefaultSessionName); idx >= 0 {
		selected = c[idx]
	}
	if selected.History == nil {
		selected.History = []chattypes.Message{}
	}
	if err := s.kv.Set(chattypes.KeyActiveSession, selected.Name); err != nil {
		return chattypes.Session{}, fmt.Errorf("update active session: %w", err)
	}

	logger.Info("Chat history imported", "sessions", len(c), "active", selected.Name)
	return selected, nil
}

func parseImport(blob []byte) (chattypes.Collection, error) {
	if !gjson.ValidBytes(blob) {
		return nil, fmt.Errorf("%w: not valid JSON", ErrImportFormat)
	}
	root := gjson.ParseBytes(blob)
	if !root.IsArray() {
		return nil, fmt.Errorf("%w: top-level value is not an array", ErrImportFormat)
	}
	if len(root.Array()) == 0 {
		return nil, fmt.Errorf("%w: no sessions in file", ErrImportFormat)
	}

	var c chattypes.Collection
	if err := json.Unmarshal(blob, &c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImportFormat, err)
	}

	seen := make(map[string]bool, len(c))
	for i, sess := range c {
		if sess.Name == "" {
			return nil, fmt.Errorf("%w: session %d has no name", ErrImportFormat, i)
		}
		if seen[sess.Name] {
			return nil, fmt.Errorf("%w: duplicate session name %q", ErrImportFormat, sess.Name)
		}
		seen[sess.Name] = true
	}
	return c, nil
}

// Reset empties the default session (creating it if needed) and makes it active.
func (s *Store) Reset() (chattypes.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, exists, err := s.readCollection()
	if err != nil {
		return chattypes.Session{}, err
	}
	if !exists {
		c = chattypes.Collection{}
	}
	c = upsert(c, chattypes.DefaultSessionName, nil)

	if err := s.writeCollection(c); err != nil {
		return chattypes.Session{}, err
	}
	if err := s.kv.Set(chattypes.KeyActiveSession, chattypes.DefaultSessionName); err != nil {
		return chattypes.Session{}, fmt.Errorf("update active session: %w", err)
	}
	return chattypes.Session{Name: chattypes.DefaultSessionName, History: []chattypes.Message{}}, nil
}

// Purge removes the whole collection and selects the default session.
func (s *Store) Purge() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.kv.Delete(chattypes.KeyCollection); err != nil {
		return fmt.Errorf("delete collection: %w", err)
	}
	if err := s.kv.Set(chattypes.KeyActiveSession, chattypes.DefaultSessionName); err != nil {
		return fmt.Errorf("update active session: %w", err)
	}
	logger.Info("All chat history removed")
	return nil
}
