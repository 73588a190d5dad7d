package bot

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"groovebot/internal/logging"
)

// commandDefinitions is the full slash command surface. Registered with a
// bulk overwrite so removed commands disappear on restart.
func commandDefinitions() []*discordgo.ApplicationCommand {
	minVolume := 0.0
	minIndex := 1.0
	return []*discordgo.ApplicationCommand{
		{
			Name:        "join",
			Description: "Summon the bot to your voice channel",
		},
		{
			Name:        "leave",
			Description: "Clear the queue and leave the voice channel",
		},
		{
			Name:        "play",
			Description: "Play a song or playlist (URL, Spotify playlist, or search terms)",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "query",
					Description: "URL or search terms",
					Required:    true,
				},
			},
		},
		{
			Name:        "pause",
			Description: "Pause the current song",
		},
		{
			Name:        "resume",
			Description: "Resume a paused song",
		},
		{
			Name:        "skip",
			Description: "Vote to skip the current song (the requester skips instantly)",
		},
		{
			Name:        "stop",
			Description: "Stop playback and clear the queue",
		},
		{
			Name:        "queue",
			Description: "Show the song queue",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "page",
					Description: "Page to show",
					MinValue:    &minIndex,
				},
			},
		},
		{
			Name:        "nowplaying",
			Description: "Show the currently playing song",
		},
		{
			Name:        "volume",
			Description: "Set the playback volume (applies from the next song)",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "percent",
					Description: "Volume percent (0-200)",
					Required:    true,
					MinValue:    &minVolume,
					MaxValue:    200,
				},
			},
		},
		{
			Name:        "loop",
			Description: "Toggle looping of the current song",
		},
		{
			Name:        "shuffle",
			Description: "Shuffle the queue",
		},
		{
			Name:        "remove",
			Description: "Remove a song from the queue",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "index",
					Description: "Queue position to remove (from /queue)",
					Required:    true,
					MinValue:    &minIndex,
				},
			},
		},
		{
			Name:        "clear",
			Description: "Clear the queue (asks for confirmation)",
		},
		{
			Name:        "history",
			Description: "Show recently played songs in this server",
		},
	}
}

// registerCommands overwrites the command set. With a dev guild configured
// commands propagate instantly; global registration can take up to an hour.
func (b *Bot) registerCommands() error {
	appID := b.session.State.User.ID
	defs := commandDefinitions()

	timer := logging.StartTimer(logging.CategoryGateway, "command registration")
	_, err := b.session.ApplicationCommandBulkOverwrite(appID, b.cfg.Discord.DevGuildID, defs)
	timer.Stop()
	if err != nil {
		return fmt.Errorf("register commands: %w", err)
	}

	scope := "global"
	if b.cfg.Discord.DevGuildID != "" {
		scope = "guild " + b.cfg.Discord.DevGuildID
	}
	logging.Gateway("registered %d slash commands (%s)", len(defs), scope)
	return nil
}
