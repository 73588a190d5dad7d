package bot

import (
	"errors"
	"fmt"

	"groovebot/internal/logging"
	"groovebot/internal/player"
)

var (
	errNotInVoice   = errors.New("you are not connected to a voice channel")
	errBotElsewhere = errors.New("the bot is already in a different voice channel")
	errNoSession    = errors.New("the bot is not connected to a voice channel")
)

// userVoiceChannel returns the voice channel the user currently occupies.
func (b *Bot) userVoiceChannel(guildID, userID string) (string, error) {
	guild, err := b.session.State.Guild(guildID)
	if err != nil {
		return "", fmt.Errorf("guild %s not in state cache: %w", guildID, err)
	}
	for _, vs := range guild.VoiceStates {
		if vs.UserID == userID {
			return vs.ChannelID, nil
		}
	}
	return "", errNotInVoice
}

// ensureSession returns the guild's live session, connecting to the user's
// voice channel when none exists. The caller's voice channel wins ties: if
// the bot already sits in another channel it refuses rather than hopping.
func (b *Bot) ensureSession(guildID, userID string) (*player.State, error) {
	channelID, err := b.userVoiceChannel(guildID, userID)
	if err != nil {
		return nil, err
	}
	if channelID == "" {
		return nil, errNotInVoice
	}

	if st := b.manager.Get(guildID); st != nil {
		if vc, ok := b.session.VoiceConnections[guildID]; ok && vc.ChannelID != channelID {
			return nil, errBotElsewhere
		}
		return st, nil
	}

	return b.manager.GetOrCreate(guildID, func() (*player.State, error) {
		return b.connect(guildID, channelID)
	})
}

// liveSession returns the guild's session or errNoSession; it never connects.
func (b *Bot) liveSession(guildID string) (*player.State, error) {
	st := b.manager.Get(guildID)
	if st == nil {
		return nil, errNoSession
	}
	return st, nil
}

// controlSession is liveSession plus a seat check: commands that change
// playback require the caller to sit in the bot's voice channel.
func (b *Bot) controlSession(guildID, userID string) (*player.State, error) {
	st, err := b.liveSession(guildID)
	if err != nil {
		return nil, err
	}
	channelID, err := b.userVoiceChannel(guildID, userID)
	if err != nil {
		return nil, err
	}
	if vc, ok := b.session.VoiceConnections[guildID]; ok && vc.ChannelID != channelID {
		return nil, errNotInVoice
	}
	return st, nil
}

// connect joins the voice channel and builds the player session around the
// connection, seeded with the guild's persisted volume and loop settings.
func (b *Bot) connect(guildID, channelID string) (*player.State, error) {
	vc, err := b.session.ChannelVoiceJoin(guildID, channelID, false, true)
	if err != nil {
		return nil, fmt.Errorf("join voice channel: %w", err)
	}

	settings, err := b.store.GetGuildSettings(guildID, b.cfg.Player.DefaultVolume)
	if err != nil {
		logging.StoreError("guild %s: load settings: %v", guildID, err)
		settings.Volume = b.cfg.Player.DefaultVolume
	}

	streamer := player.NewDCAStreamer(vc,
		b.cfg.Resolver.FFmpegPath,
		b.cfg.Resolver.AudioFilter,
		b.cfg.Player.Bitrate)

	st := player.NewState(guildID, player.Settings{
		Volume:           settings.Volume,
		Loop:             settings.Loop,
		IdleTimeout:      b.cfg.GetIdleTimeout(),
		WatchdogInterval: b.cfg.GetWatchdogInterval(),
		SkipThreshold:    b.cfg.Player.SkipThreshold,
	}, nil, b.res, streamer, vc, b, b.store)
	st.Start(b.ctx)

	logging.Audit().Record(logging.AuditEvent{
		EventType: logging.AuditVoiceJoin,
		GuildID:   guildID,
		Target:    channelID,
		Success:   true,
	})
	return st, nil
}
