package testutils

import (
	"context"
	"sync"
	"testing"

	"gemchat/internal/session"
	"gemchat/internal/storage"
	"gemchat/pkg/chattypes"

	"github.com/stretchr/testify/require"
)

// NewMemorySessionStore returns a session store over a fresh in-memory KV store.
func NewMemorySessionStore(t *testing.T, defaults session.Defaults) (*session.Store, *storage.MemoryStore) {
	t.Helper()
	kv := storage.NewMemoryStore(nil)
	return session.NewStore(kv, defaults), kv
}

// NewSQLiteSessionStore returns a session store over a SQLite file in t.TempDir().
func NewSQLiteSessionStore(t *testing.T, defaults session.Defaults) *session.Store {
	t.Helper()
	kv, err := storage.NewSQLiteStore(t.TempDir() + "/gemchat.db")
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })
	return session.NewStore(kv, defaults)
}

// CompleterResult is one scripted completer outcome.
type CompleterResult struct {
	Text string
	Err  error
}

// FakeCompleter replays scripted results and records every request.
// When Gate is set, Complete blocks until a value is received from it.
type FakeCompleter struct {
	mu       sync.Mutex
	results  []CompleterResult
	requests []chattypes.CompletionRequest

	Gate    chan struct{}
	Started chan struct{}
}

// NewFakeCompleter creates a completer that returns results in order and
// repeats the last one once the script is exhausted.
func NewFakeCompleter(results ...CompleterResult) *FakeCompleter {
	return &FakeCompleter{results: results}
}

// Complete implements chattypes.Completer.
func (f *FakeCompleter) Complete(ctx context.Context, req chattypes.CompletionRequest) (string, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	var result CompleterResult
	if len(f.results) > 0 {
		result = f.results[0]
		if len(f.results) > 1 {
			f.results = f.results[1:]
		}
	}
	f.mu.Unlock()

	if f.Started != nil {
		f.Started <- struct{}{}
	}
	if f.Gate != nil {
		select {
		case <-f.Gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return result.Text, result.Err
}

// Requests returns the requests received so far.
func (f *FakeCompleter) Requests() []chattypes.CompletionRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]chattypes.CompletionRequest, len(f.requests))
	copy(out, f.requests)
	return out
}

// Notice is a recorded notification.
type Notice struct {
	Level chattypes.NoticeLevel
	Title string
	Text  string
}

// RecordingNotifier collects notices.
type RecordingNotifier struct {
	mu      sync.Mutex
	notices []Notice
}

// Notify implements chattypes.Notifier.
func (r *RecordingNotifier) Notify(level chattypes.NoticeLevel, title, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, Notice{Level: level, Title: title, Text: text})
}

// Notices returns the recorded notices.
func (r *RecordingNotifier) Notices() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notice, len(r.notices))
	copy(out, r.notices)
	return out
}
