package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestGuildSettingsDefaults(t *testing.T) {
	s := openTestStore(t)

	gs, err := s.GetGuildSettings("g1", 30)
	require.NoError(t, err)
	assert.Equal(t, 30, gs.Volume)
	assert.False(t, gs.Loop)
}

func TestGuildSettingsRoundTrip(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.SaveGuildSettings("g1", 80, true))

	gs, err := s.GetGuildSettings("g1", 30)
	require.NoError(t, err)
	assert.Equal(t, 80, gs.Volume)
	assert.True(t, gs.Loop)

	// Upsert overwrites.
	require.NoError(t, s.SaveGuildSettings("g1", 50, false))
	gs, err = s.GetGuildSettings("g1", 30)
	require.NoError(t, err)
	assert.Equal(t, 50, gs.Volume)
	assert.False(t, gs.Loop)
}

func TestResolutionCache(t *testing.T) {
	s := openTestStore(t)

	_, ok := s.GetResolution("missing")
	assert.False(t, ok)

	urls := []string{"https://www.youtube.com/watch?v=a", "https://www.youtube.com/watch?v=b"}
	require.NoError(t, s.PutResolution("some query", urls))

	got, ok := s.GetResolution("some query")
	require.True(t, ok)
	assert.Equal(t, urls, got)

	// Hits are counted.
	s.GetResolution("some query")
	entries, hits, err := s.CacheStats()
	require.NoError(t, err)
	assert.Equal(t, 1, entries)
	assert.Equal(t, 2, hits)
}

func TestPlayHistory(t *testing.T) {
	s := openTestStore(t)

	for _, title := range []string{"first", "second", "third"} {
		require.NoError(t, s.RecordPlay(HistoryEntry{
			GuildID:       "g1",
			Title:         title,
			URL:           "https://example.com/" + title,
			RequesterID:   "u1",
			RequesterName: "alice",
		}))
	}
	require.NoError(t, s.RecordPlay(HistoryEntry{
		GuildID: "g2", Title: "other guild", URL: "https://example.com/x", RequesterID: "u2",
	}))

	plays, err := s.RecentPlays("g1", 10)
	require.NoError(t, err)
	require.Len(t, plays, 3)
	assert.Equal(t, "third", plays[0].Title)
	assert.Equal(t, "alice", plays[0].RequesterName)
}

func TestMigrationsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.db")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// Reopening re-runs migrations against an already-migrated schema.
	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.SaveGuildSettings("g1", 10, false))
}
