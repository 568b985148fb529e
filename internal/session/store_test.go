package session

import (
	"encoding/json"
	"testing"
	"time"

	"gemchat/internal/storage"
	"gemchat/pkg/chattypes"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func msg(role chattypes.Role, content string, offset int) chattypes.Message {
	return chattypes.Message{Role: role, Content: content, Timestamp: baseTime.Add(time.Duration(offset) * time.Minute)}
}

func newTestStore(t *testing.T, seed map[string]string) (*Store, *storage.MemoryStore) {
	t.Helper()
	kv := storage.NewMemoryStore(seed)
	return NewStore(kv, Defaults{}), kv
}

func storedCollection(t *testing.T, kv *storage.MemoryStore) chattypes.Collection {
	t.Helper()
	raw, found, err := kv.Get(chattypes.KeyCollection)
	require.NoError(t, err)
	require.True(t, found)
	var c chattypes.Collection
	require.NoError(t, json.Unmarshal([]byte(raw), &c))
	return c
}

func TestValidateSessionName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		wantErr  bool
	}{
		{name: "plain", input: "work", expected: "work"},
		{name: "trimmed", input: "  work  ", expected: "work"},
		{name: "double quoted", input: `"my notes"`, expected: "my notes"},
		{name: "single quoted", input: "'my notes'", expected: "my notes"},
		{name: "empty", input: "   ", wantErr: true},
		{name: "empty quotes", input: `""`, wantErr: true},
		{name: "control character", input: "a\x01b", wantErr: true},
		{name: "too long", input: string(make([]byte, 65)), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateSessionName(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidName)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestStore_SaveThenLoad(t *testing.T) {
	store, _ := newTestStore(t, nil)
	history := []chattypes.Message{
		msg(chattypes.RoleUser, "hi", 0),
		msg(chattypes.RoleAssistant, "hello", 1),
	}

	require.NoError(t, store.Save("work", history))

	sess, err := store.Load("work")
	require.NoError(t, err)
	assert.Equal(t, "work", sess.Name)
	assert.Equal(t, history, sess.History)
}

func TestStore_SaveOverwritesInPlace(t *testing.T) {
	store, kv := newTestStore(t, nil)
	require.NoError(t, store.Save("a", nil))
	require.NoError(t, store.Save("b", nil))
	require.NoError(t, store.Save("a", []chattypes.Message{msg(chattypes.RoleUser, "x", 0)}))

	c := storedCollection(t, kv)
	assert.Equal(t, []string{"a", "b"}, c.Names())
	assert.Len(t, c[0].History, 1)
}

func TestStore_SaveEmptyHistoryStoresArray(t *testing.T) {
	store, kv := newTestStore(t, nil)
	require.NoError(t, store.Save("default", nil))

	raw, _, err := kv.Get(chattypes.KeyCollection)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"name":"default","history":[]}]`, raw)
}

func TestStore_LoadMissing(t *testing.T) {
	store, _ := newTestStore(t, nil)

	_, err := store.Load("nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	history, err := store.History("nope")
	require.NoError(t, err)
	assert.Empty(t, history)
	assert.NotNil(t, history)
}

func TestStore_CorruptCollectionIsReset(t *testing.T) {
	tests := []struct {
		name string
		blob string
	}{
		{name: "object", blob: `{"name":"default"}`},
		{name: "number", blob: `42`},
		{name: "not json", blob: `not json at all`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, kv := newTestStore(t, map[string]string{chattypes.KeyCollection: tt.blob})

			infos, err := store.List()
			require.NoError(t, err)
			require.Len(t, infos, 1)
			assert.Equal(t, chattypes.DefaultSessionName, infos[0].Name)
			assert.Zero(t, infos[0].Messages)

			raw, _, err := kv.Get(chattypes.KeyCollection)
			require.NoError(t, err)
			assert.JSONEq(t, `[{"name":"default","history":[]}]`, raw)
		})
	}
}

func TestStore_ArrayWithBadEntriesIsKept(t *testing.T) {
	tests := []struct {
		name    string
		blob    string
		content string
	}{
		{
			name:    "empty timestamp",
			blob:    `[{"name":"work","history":[{"role":"user","content":"keep me","timestamp":""}]}]`,
			content: "keep me",
		},
		{
			name:    "missing timestamp",
			blob:    `[{"name":"work","history":[{"role":"user","content":"keep me"}]}]`,
			content: "keep me",
		},
		{
			name:    "unreadable neighbour",
			blob:    `[1,{"name":"work","history":[{"role":"user","content":"keep me","timestamp":"yesterday"}]},"x"]`,
			content: "keep me",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, kv := newTestStore(t, map[string]string{chattypes.KeyCollection: tt.blob})

			sess, err := store.Load("work")
			require.NoError(t, err)
			require.Len(t, sess.History, 1)
			assert.Equal(t, tt.content, sess.History[0].Content)
			assert.True(t, sess.History[0].Timestamp.IsZero())

			raw, _, err := kv.Get(chattypes.KeyCollection)
			require.NoError(t, err)
			assert.Equal(t, tt.blob, raw)
		})
	}

	t.Run("array of numbers lists nothing", func(t *testing.T) {
		store, kv := newTestStore(t, map[string]string{chattypes.KeyCollection: `[1,2,3]`})

		infos, err := store.List()
		require.NoError(t, err)
		assert.Empty(t, infos)

		raw, _, err := kv.Get(chattypes.KeyCollection)
		require.NoError(t, err)
		assert.Equal(t, `[1,2,3]`, raw)
	})
}

func TestStore_LegacyAssistantRole(t *testing.T) {
	blob := `[{"name":"default","history":[{"role":"user","content":"q","timestamp":"2024-05-01T12:00:00Z"},{"role":"ai","content":"a","timestamp":"2024-05-01T12:01:00Z"}]}]`
	store, _ := newTestStore(t, map[string]string{chattypes.KeyCollection: blob})

	sess, err := store.Load("default")
	require.NoError(t, err)
	require.Len(t, sess.History, 2)
	assert.Equal(t, chattypes.RoleAssistant, sess.History[1].Role)
}

func TestStore_Rename(t *testing.T) {
	t.Run("moves history and active pointer", func(t *testing.T) {
		store, kv := newTestStore(t, nil)
		history := []chattypes.Message{msg(chattypes.RoleUser, "hi", 0)}
		require.NoError(t, store.Save("old", history))
		require.NoError(t, store.SetCurrentSession("old"))

		sess, err := store.Rename("old", "new")
		require.NoError(t, err)
		assert.Equal(t, "new", sess.Name)
		assert.Equal(t, history, sess.History)

		c := storedCollection(t, kv)
		assert.Equal(t, []string{"new"}, c.Names())
		assert.Equal(t, "new", store.CurrentSession())
	})

	t.Run("overwrites existing target", func(t *testing.T) {
		store, kv := newTestStore(t, nil)
		require.NoError(t, store.Save("a", []chattypes.Message{msg(chattypes.RoleUser, "from a", 0)}))
		require.NoError(t, store.Save("b", []chattypes.Message{msg(chattypes.RoleUser, "from b", 0)}))

		_, err := store.Rename("a", "b")
		require.NoError(t, err)

		c := storedCollection(t, kv)
		require.Equal(t, []string{"b"}, c.Names())
		assert.Equal(t, "from a", c[0].History[0].Content)
	})

	t.Run("inactive session keeps active pointer", func(t *testing.T) {
		store, _ := newTestStore(t, nil)
		require.NoError(t, store.Save("a", nil))

		_, err := store.Rename("a", "z")
		require.NoError(t, err)
		assert.Equal(t, chattypes.DefaultSessionName, store.CurrentSession())
	})

	t.Run("unsaved active session", func(t *testing.T) {
		store, _ := newTestStore(t, nil)

		sess, err := store.Rename("default", "first")
		require.NoError(t, err)
		assert.Equal(t, "first", sess.Name)
		assert.Equal(t, "first", store.CurrentSession())
	})

	t.Run("missing inactive session", func(t *testing.T) {
		store, _ := newTestStore(t, nil)
		_, err := store.Rename("ghost", "x")
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})

	t.Run("invalid target", func(t *testing.T) {
		store, _ := newTestStore(t, nil)
		_, err := store.Rename("default", "  ")
		assert.ErrorIs(t, err, ErrInvalidName)
	})
}

func TestStore_Delete(t *testing.T) {
	t.Run("active session falls back to default", func(t *testing.T) {
		store, kv := newTestStore(t, nil)
		require.NoError(t, store.Save("default", []chattypes.Message{msg(chattypes.RoleUser, "kept", 0)}))
		require.NoError(t, store.Save("work", nil))
		require.NoError(t, store.SetCurrentSession("work"))

		active, err := store.Delete("work")
		require.NoError(t, err)
		assert.Equal(t, "default", active.Name)
		assert.Len(t, active.History, 1)
		assert.Equal(t, "default", store.CurrentSession())
		assert.Equal(t, []string{"default"}, storedCollection(t, kv).Names())
	})

	t.Run("deleting active default recreates it empty", func(t *testing.T) {
		store, kv := newTestStore(t, nil)
		require.NoError(t, store.Save("default", []chattypes.Message{msg(chattypes.RoleUser, "gone", 0)}))

		active, err := store.Delete("default")
		require.NoError(t, err)
		assert.Equal(t, "default", active.Name)
		assert.Empty(t, active.History)

		c := storedCollection(t, kv)
		require.Equal(t, []string{"default"}, c.Names())
		assert.Empty(t, c[0].History)
	})

	t.Run("inactive session keeps selection", func(t *testing.T) {
		store, _ := newTestStore(t, nil)
		require.NoError(t, store.Save("a", nil))
		require.NoError(t, store.Save("b", nil))
		require.NoError(t, store.SetCurrentSession("a"))

		active, err := store.Delete("b")
		require.NoError(t, err)
		assert.Equal(t, "a", active.Name)
		assert.Equal(t, "a", store.CurrentSession())
	})

	t.Run("missing", func(t *testing.T) {
		store, _ := newTestStore(t, nil)
		_, err := store.Delete("ghost")
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})
}

func TestStore_List(t *testing.T) {
	store, _ := newTestStore(t, nil)
	require.NoError(t, store.Save("default", nil))
	require.NoError(t, store.Save("work", []chattypes.Message{
		msg(chattypes.RoleUser, "a", 0),
		msg(chattypes.RoleAssistant, "b", 5),
	}))
	require.NoError(t, store.SetCurrentSession("work"))

	infos, err := store.List()
	require.NoError(t, err)
	require.Len(t, infos, 2)

	assert.Equal(t, "default", infos[0].Name)
	assert.False(t, infos[0].Active)
	assert.True(t, infos[0].LastActivity.IsZero())

	assert.Equal(t, "work", infos[1].Name)
	assert.True(t, infos[1].Active)
	assert.Equal(t, 2, infos[1].Messages)
	assert.Equal(t, baseTime.Add(5*time.Minute), infos[1].LastActivity)
	assert.Equal(t, "b", infos[1].Preview)
	assert.Empty(t, infos[0].Preview)
}

func TestStore_Export(t *testing.T) {
	t.Run("nothing stored", func(t *testing.T) {
		store, _ := newTestStore(t, nil)
		_, err := store.Export()
		assert.ErrorIs(t, err, ErrNothingToExport)
	})

	t.Run("returns raw blob", func(t *testing.T) {
		blob := `[{"name":"default","history":[]}]`
		store, _ := newTestStore(t, map[string]string{chattypes.KeyCollection: blob})
		data, err := store.Export()
		require.NoError(t, err)
		assert.Equal(t, blob, string(data))
	})
}

func TestStore_ExportFileName(t *testing.T) {
	store, _ := newTestStore(t, nil)
	assert.Equal(t, "gemini_chat_history_default.json", store.ExportFileName())

	require.NoError(t, store.SetCurrentSession("a/b"))
	assert.Equal(t, "gemini_chat_history_a_b.json", store.ExportFileName())
}

func TestStore_Import(t *testing.T) {
	t.Run("selects default when present", func(t *testing.T) {
		store, _ := newTestStore(t, nil)
		blob := `[{"name":"x","history":[]},{"name":"default","history":[{"role":"user","content":"hi","timestamp":"2024-05-01T12:00:00Z"}]}]`

		active, err := store.Import([]byte(blob))
		require.NoError(t, err)
		assert.Equal(t, "default", active.Name)
		assert.Len(t, active.History, 1)
		assert.Equal(t, "default", store.CurrentSession())
	})

	t.Run("selects first otherwise", func(t *testing.T) {
		store, _ := newTestStore(t, nil)
		active, err := store.Import([]byte(`[{"name":"x","history":[]},{"name":"y","history":[]}]`))
		require.NoError(t, err)
		assert.Equal(t, "x", active.Name)
		assert.Equal(t, "x", store.CurrentSession())
	})

	t.Run("replaces storage exactly", func(t *testing.T) {
		store, _ := newTestStore(t, nil)
		require.NoError(t, store.Save("old", nil))

		blob := `[{"name":"new","history":[]}]`
		_, err := store.Import([]byte(blob))
		require.NoError(t, err)

		exported, err := store.Export()
		require.NoError(t, err)
		assert.Equal(t, blob, string(exported))
	})

	rejects := []struct {
		name string
		blob string
	}{
		{name: "empty array", blob: `[]`},
		{name: "object", blob: `{"name":"default","history":[]}`},
		{name: "invalid json", blob: `[{`},
		{name: "wrong element shape", blob: `[1]`},
		{name: "missing name", blob: `[{"history":[]}]`},
		{name: "duplicate names", blob: `[{"name":"a","history":[]},{"name":"a","history":[]}]`},
	}
	for _, tt := range rejects {
		t.Run("rejects "+tt.name, func(t *testing.T) {
			original := `[{"name":"keep","history":[]}]`
			store, kv := newTestStore(t, map[string]string{chattypes.KeyCollection: original})
			require.NoError(t, store.SetCurrentSession("keep"))

			_, err := store.Import([]byte(tt.blob))
			assert.ErrorIs(t, err, ErrImportFormat)

			raw, _, err := kv.Get(chattypes.KeyCollection)
			require.NoError(t, err)
			assert.Equal(t, original, raw)
			assert.Equal(t, "keep", store.CurrentSession())
		})
	}
}

func TestStore_Reset(t *testing.T) {
	store, kv := newTestStore(t, nil)
	require.NoError(t, store.Save("default", []chattypes.Message{msg(chattypes.RoleUser, "x", 0)}))
	require.NoError(t, store.Save("work", []chattypes.Message{msg(chattypes.RoleUser, "y", 0)}))
	require.NoError(t, store.SetCurrentSession("work"))

	sess, err := store.Reset()
	require.NoError(t, err)
	assert.Equal(t, "default", sess.Name)
	assert.Empty(t, sess.History)
	assert.Equal(t, "default", store.CurrentSession())

	c := storedCollection(t, kv)
	assert.Equal(t, []string{"default", "work"}, c.Names())
	assert.Empty(t, c[0].History)
	assert.Len(t, c[1].History, 1)
}

func TestStore_Purge(t *testing.T) {
	store, kv := newTestStore(t, nil)
	require.NoError(t, store.Save("work", nil))
	require.NoError(t, store.SetCurrentSession("work"))

	require.NoError(t, store.Purge())

	_, found, err := kv.Get(chattypes.KeyCollection)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, "default", store.CurrentSession())

	_, err = store.Export()
	assert.ErrorIs(t, err, ErrNothingToExport)
}

func TestStore_SQLiteBackend(t *testing.T) {
	kv, err := storage.NewSQLiteStore(t.TempDir() + "/chat.db")
	require.NoError(t, err)
	defer kv.Close()

	store := NewStore(kv, Defaults{})
	require.NoError(t, store.Save("default", []chattypes.Message{msg(chattypes.RoleUser, "persisted", 0)}))

	sess, err := store.Load("default")
	require.NoError(t, err)
	require.Len(t, sess.History, 1)
	assert.Equal(t, "persisted", sess.History[0].Content)
}
