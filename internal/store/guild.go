package store

import (
	"database/sql"

	"groovebot/internal/logging"
)

// GuildSettings are the persisted per-guild playback settings.
type GuildSettings struct {
	GuildID string
	Volume  int
	Loop    bool
}

// GetGuildSettings returns a guild's settings, or the provided defaults if
// the guild has none saved.
func (s *Store) GetGuildSettings(guildID string, defaultVolume int) (GuildSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	gs := GuildSettings{GuildID: guildID, Volume: defaultVolume}

	var loopInt int
	err := s.db.QueryRow(
		"SELECT volume, loop_mode FROM guild_settings WHERE guild_id = ?", guildID,
	).Scan(&gs.Volume, &loopInt)
	if err == sql.ErrNoRows {
		return gs, nil
	}
	if err != nil {
		logging.StoreError("failed to load settings for guild %s: %v", guildID, err)
		return gs, err
	}
	gs.Loop = loopInt != 0
	return gs, nil
}

// SaveGuildSettings upserts a guild's settings.
func (s *Store) SaveGuildSettings(guildID string, volume int, loop bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	loopInt := 0
	if loop {
		loopInt = 1
	}
	_, err := s.db.Exec(
		`INSERT INTO guild_settings (guild_id, volume, loop_mode, updated_at)
		 VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(guild_id) DO UPDATE SET
		   volume = excluded.volume,
		   loop_mode = excluded.loop_mode,
		   updated_at = CURRENT_TIMESTAMP`,
		guildID, volume, loopInt,
	)
	if err != nil {
		logging.StoreError("failed to save settings for guild %s: %v", guildID, err)
		return err
	}
	logging.StoreDebug("saved settings: guild=%s volume=%d loop=%v", guildID, volume, loop)
	return nil
}
