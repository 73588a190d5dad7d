package store

import (
	"database/sql"
	"encoding/json"

	"groovebot/internal/logging"
)

// The resolution cache maps a query to the watch-page URLs yt-dlp found.
// Only stable URLs are stored; stream URLs expire and are regathered per
// playback.

// GetResolution implements resolver.Cache.
func (s *Store) GetResolution(query string) ([]string, bool) {
	s.mu.RLock()
	var raw string
	err := s.db.QueryRow(
		"SELECT urls FROM resolution_cache WHERE query = ?", query,
	).Scan(&raw)
	s.mu.RUnlock()

	if err == sql.ErrNoRows {
		return nil, false
	}
	if err != nil {
		logging.StoreError("cache lookup failed for %q: %v", query, err)
		return nil, false
	}

	var urls []string
	if err := json.Unmarshal([]byte(raw), &urls); err != nil {
		logging.StoreError("corrupt cache entry for %q: %v", query, err)
		return nil, false
	}

	s.mu.Lock()
	_, err = s.db.Exec(
		"UPDATE resolution_cache SET hit_count = hit_count + 1, last_hit = CURRENT_TIMESTAMP WHERE query = ?",
		query,
	)
	s.mu.Unlock()
	if err != nil {
		logging.StoreDebug("hit count update failed for %q: %v", query, err)
	}
	return urls, true
}

// PutResolution implements resolver.Cache.
func (s *Store) PutResolution(query string, urls []string) error {
	raw, err := json.Marshal(urls)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.Exec(
		`INSERT INTO resolution_cache (query, urls) VALUES (?, ?)
		 ON CONFLICT(query) DO UPDATE SET urls = excluded.urls`,
		query, string(raw),
	)
	if err != nil {
		logging.StoreError("cache write failed for %q: %v", query, err)
		return err
	}
	return nil
}

// CacheStats reports cache size and total hits.
func (s *Store) CacheStats() (entries int, hits int, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	err = s.db.QueryRow(
		"SELECT COUNT(*), COALESCE(SUM(hit_count), 0) FROM resolution_cache",
	).Scan(&entries, &hits)
	return entries, hits, err
}
