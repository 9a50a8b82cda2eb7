// internal/storage/script_store_test.go
package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Corphon/PaperCastMCP/internal/errors"
)

func newTestStore(t *testing.T) *ScriptStore {
	t.Helper()
	store, err := NewScriptStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func sampleScript(id string, createdAt time.Time) *StoredScript {
	return &StoredScript{
		ID:                    id,
		PaperID:               "1706.03762",
		Title:                 "Attention Is All You Need",
		Model:                 "test-model",
		TargetDurationMinutes: 5,
		ComponentCount:        4,
		ScriptText:            "\\Headline: Welcome.\n\\Text: Let us dig in.",
		CreatedAt:             createdAt,
	}
}

func TestScriptStore_SaveAndLoad(t *testing.T) {
	store := newTestStore(t)

	original := sampleScript("task-1", time.Now().UTC().Truncate(time.Second))
	require.NoError(t, store.Save(original))

	loaded, err := store.Load("task-1")
	require.NoError(t, err)
	assert.Equal(t, original.Title, loaded.Title)
	assert.Equal(t, original.ScriptText, loaded.ScriptText)
	assert.Equal(t, original.ComponentCount, loaded.ComponentCount)
	assert.True(t, original.CreatedAt.Equal(loaded.CreatedAt))
}

func TestScriptStore_SaveRejectsBadID(t *testing.T) {
	store := newTestStore(t)

	assert.Error(t, store.Save(sampleScript("", time.Now())))
	assert.Error(t, store.Save(sampleScript("../escape", time.Now())))
	assert.Error(t, store.Save(sampleScript(`bad\id`, time.Now())))
	assert.Error(t, store.Save(nil))
}

func TestScriptStore_LoadMissing(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Load("nope")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFoundError(err))
}

func TestScriptStore_SaveOverwrites(t *testing.T) {
	store := newTestStore(t)

	first := sampleScript("task-1", time.Now())
	require.NoError(t, store.Save(first))

	second := sampleScript("task-1", time.Now())
	second.Title = "Updated Title"
	require.NoError(t, store.Save(second))

	loaded, err := store.Load("task-1")
	require.NoError(t, err)
	assert.Equal(t, "Updated Title", loaded.Title)
}

func TestScriptStore_ListSortedWithoutText(t *testing.T) {
	store := newTestStore(t)

	now := time.Now().UTC()
	require.NoError(t, store.Save(sampleScript("old", now.Add(-time.Hour))))
	require.NoError(t, store.Save(sampleScript("newest", now)))
	require.NoError(t, store.Save(sampleScript("middle", now.Add(-30*time.Minute))))

	scripts, err := store.List()
	require.NoError(t, err)
	require.Len(t, scripts, 3)

	assert.Equal(t, "newest", scripts[0].ID)
	assert.Equal(t, "middle", scripts[1].ID)
	assert.Equal(t, "old", scripts[2].ID)
	for _, s := range scripts {
		assert.Empty(t, s.ScriptText, "列表不应携带脚本正文")
	}
}

func TestScriptStore_ListSkipsCorruptFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := NewScriptStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.Save(sampleScript("good", time.Now())))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{not json"), 0644))

	scripts, err := store.List()
	require.NoError(t, err)
	require.Len(t, scripts, 1)
	assert.Equal(t, "good", scripts[0].ID)
}

func TestScriptStore_Delete(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Save(sampleScript("task-1", time.Now())))
	require.NoError(t, store.Delete("task-1"))

	_, err := store.Load("task-1")
	assert.True(t, apperrors.IsNotFoundError(err))

	err = store.Delete("task-1")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFoundError(err))
}
