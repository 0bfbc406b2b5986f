package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xscraper/pkg/normalize"
)

func int64p(v int64) *int64 { return &v }

func TestSaveBatchRoundTrip(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(filepath.Join(dir, "out"), nil)
	m.now = func() time.Time { return time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC) }

	records := []normalize.Record{
		{ID: "1", Text: "hello", Likes: int64p(3), Provenance: normalize.ProvenancePrimary},
		{ID: "2", Text: "world", Provenance: normalize.ProvenanceDocumentFallback},
	}

	path, err := m.SaveBatch("search", "india news", records)
	require.NoError(t, err)
	assert.Equal(t, "search_india_news_20260824_120000.json", filepath.Base(path))

	batch, err := LoadBatch(path)
	require.NoError(t, err)
	assert.Equal(t, "2026-08-24T12:00:00Z", batch.Timestamp)
	assert.Equal(t, "search", batch.Kind)
	assert.Equal(t, "india news", batch.Target)
	require.Len(t, batch.Records, 2)

	require.NotNil(t, batch.Records[0].Likes)
	assert.Equal(t, int64(3), *batch.Records[0].Likes)
	assert.Nil(t, batch.Records[1].Likes, "unknown counts stay null across the round trip")
}

func TestSaveBatchLeavesNoTempFiles(t *testing.T) {
	m := NewManager(t.TempDir(), nil)
	_, err := m.SaveBatch("item_detail", "777", nil)
	require.NoError(t, err)

	entries, err := os.ReadDir(m.BaseDir())
	require.NoError(t, err)
	for _, entry := range entries {
		assert.False(t, strings.HasSuffix(entry.Name(), ".tmp"), "temp file left behind: %s", entry.Name())
	}
}

func TestSafeLabelSanitizesTargets(t *testing.T) {
	assert.Equal(t, "conversation_id_777", safeLabel(`conversation_id:777`))
	assert.Equal(t, "batch", safeLabel("///"))
	long := strings.Repeat("a", 100)
	assert.Len(t, safeLabel(long), 60)
}

func TestLoadBatchRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))
	_, err := LoadBatch(path)
	assert.Error(t, err)
}
