package store

import (
	"time"

	"groovebot/internal/logging"
)

// HistoryEntry is one played track.
type HistoryEntry struct {
	GuildID       string
	Title         string
	URL           string
	RequesterID   string
	RequesterName string
	PlayedAt      time.Time
}

// RecordPlay appends a track to a guild's play history.
func (s *Store) RecordPlay(e HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`INSERT INTO play_history (guild_id, title, url, requester_id, requester_name)
		 VALUES (?, ?, ?, ?, ?)`,
		e.GuildID, e.Title, e.URL, e.RequesterID, e.RequesterName,
	)
	if err != nil {
		logging.StoreError("failed to record play for guild %s: %v", e.GuildID, err)
		return err
	}
	return nil
}

// RecentPlays returns a guild's most recent plays, newest first.
func (s *Store) RecentPlays(guildID string, limit int) ([]HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(
		`SELECT title, url, requester_id, requester_name, played_at
		 FROM play_history WHERE guild_id = ?
		 ORDER BY played_at DESC, id DESC LIMIT ?`,
		guildID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []HistoryEntry
	for rows.Next() {
		e := HistoryEntry{GuildID: guildID}
		if err := rows.Scan(&e.Title, &e.URL, &e.RequesterID, &e.RequesterName, &e.PlayedAt); err != nil {
			continue
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
