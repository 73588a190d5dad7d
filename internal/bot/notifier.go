package bot

import (
	"github.com/bwmarrin/discordgo"

	"groovebot/internal/logging"
	"groovebot/internal/resolver"
	"groovebot/internal/store"
)

// The bot implements player.Notifier: playback updates are posted to the
// text channel the guild's last command came from.

// NowPlaying posts the now-playing card and records the play.
func (b *Bot) NowPlaying(guildID string, t *resolver.Track, action string) {
	if err := b.store.RecordPlay(store.HistoryEntry{
		GuildID:       guildID,
		Title:         t.Title,
		URL:           t.WebpageURL,
		RequesterID:   t.RequesterID,
		RequesterName: t.RequesterName,
	}); err != nil {
		logging.StoreError("guild %s: record play: %v", guildID, err)
	}

	channelID := b.boundChannel(guildID)
	if channelID == "" {
		return
	}
	st := b.manager.Get(guildID)
	volume, loop := b.cfg.Player.DefaultVolume, false
	if st != nil {
		volume, loop = st.Volume(), st.Loop()
	}

	embed := nowPlayingEmbed(t, 0, volume, loop)
	if action != "" {
		embed.Title = action
	}
	_, err := b.session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Embeds:     []*discordgo.MessageEmbed{embed},
		Components: nowPlayingComponents(false),
	})
	if err != nil {
		logging.GatewayError("guild %s: post now playing: %v", guildID, err)
	}
}

// PlaybackError posts a stream failure notice.
func (b *Bot) PlaybackError(guildID string, t *resolver.Track, err error) {
	channelID := b.boundChannel(guildID)
	if channelID == "" {
		return
	}
	if _, sendErr := b.session.ChannelMessageSendEmbed(channelID, playbackErrorEmbed(t, err)); sendErr != nil {
		logging.GatewayError("guild %s: post playback error: %v", guildID, sendErr)
	}
}

// Idle announces that the session ended and forgets the channel binding.
func (b *Bot) Idle(guildID string, reason string) {
	channelID := b.boundChannel(guildID)
	b.chanMu.Lock()
	delete(b.channels, guildID)
	b.chanMu.Unlock()

	if channelID == "" || reason == "stopped" {
		// Explicit /leave and /stop already answered the interaction.
		return
	}
	msg := "Left the voice channel after sitting idle."
	if _, err := b.session.ChannelMessageSend(channelID, msg); err != nil {
		logging.GatewayError("guild %s: post idle notice: %v", guildID, err)
	}
}
