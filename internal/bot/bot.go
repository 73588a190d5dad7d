// Package bot owns the Discord gateway session: slash command registration,
// interaction routing, and the glue between Discord voice channels and the
// per-guild player sessions.
package bot

import (
	"context"
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"

	"groovebot/internal/config"
	"groovebot/internal/logging"
	"groovebot/internal/player"
	"groovebot/internal/resolver"
	"groovebot/internal/spotify"
	"groovebot/internal/store"
)

// Bot is the gateway session plus everything the command handlers need.
type Bot struct {
	cfg     *config.Config
	session *discordgo.Session
	manager *player.Manager
	res     *resolver.Resolver
	store   *store.Store

	// expander is nil when Spotify credentials are not configured.
	expander *spotify.Expander

	// channels maps guild ID to the text channel playback updates go to.
	// Rebound on every command so updates follow the conversation.
	chanMu   sync.Mutex
	channels map[string]string

	ctx    context.Context
	cancel context.CancelFunc

	removeHandlers []func()
}

// New builds the bot but does not open the gateway connection.
func New(cfg *config.Config, st *store.Store) (*Bot, error) {
	if cfg.Discord.Token == "" {
		return nil, fmt.Errorf("DISCORD_TOKEN is not set")
	}

	session, err := discordgo.New("Bot " + cfg.Discord.Token)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildVoiceStates |
		discordgo.IntentsGuildMessages

	res := resolver.New(resolver.Options{
		YTDLPPath: cfg.Resolver.YTDLPPath,
		Timeout:   cfg.GetResolverTimeout(),
	}, st)

	return &Bot{
		cfg:      cfg,
		session:  session,
		manager:  player.NewManager(),
		res:      res,
		store:    st,
		channels: make(map[string]string),
	}, nil
}

// Start opens the gateway connection and registers slash commands. The
// Spotify client is authenticated here because the client-credentials flow
// needs a live context.
func (b *Bot) Start(ctx context.Context) error {
	b.ctx, b.cancel = context.WithCancel(ctx)

	if b.cfg.SpotifyEnabled() {
		client, err := spotify.NewClient(b.ctx, b.cfg.Spotify.ClientID, b.cfg.Spotify.ClientSecret)
		if err != nil {
			// Playback works without Spotify; log and carry on.
			logging.SpotifyError("spotify disabled: %v", err)
		} else {
			b.expander = spotify.NewExpander(client, b.res, b.cfg.GetTrackDelay())
			logging.Spotify("spotify playlist expansion enabled")
		}
	}

	b.removeHandlers = append(b.removeHandlers,
		b.session.AddHandler(b.onReady),
		b.session.AddHandler(b.onInteraction),
		b.session.AddHandler(b.onVoiceStateUpdate),
	)

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("open gateway: %w", err)
	}

	if err := b.registerCommands(); err != nil {
		b.session.Close()
		return err
	}
	return nil
}

// Stop tears down every voice session and closes the gateway.
func (b *Bot) Stop() {
	if b.cancel != nil {
		b.cancel()
	}
	b.manager.StopAll()
	for _, remove := range b.removeHandlers {
		remove()
	}
	if err := b.session.Close(); err != nil {
		logging.GatewayError("close session: %v", err)
	}
	logging.Gateway("gateway session closed")
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	logging.Gateway("logged in as %s#%s (%d guilds)",
		r.User.Username, r.User.Discriminator, len(r.Guilds))
}

// onVoiceStateUpdate tears the session down when the bot itself is
// disconnected from voice, e.g. by a server moderator.
func (b *Bot) onVoiceStateUpdate(s *discordgo.Session, v *discordgo.VoiceStateUpdate) {
	if s.State.User == nil || v.UserID != s.State.User.ID {
		return
	}
	if v.ChannelID == "" && v.GuildID != "" {
		if st := b.manager.Get(v.GuildID); st != nil {
			logging.Gateway("guild %s: disconnected from voice externally", v.GuildID)
			b.manager.Remove(v.GuildID)
		}
	}
}

// bindChannel remembers where to post playback updates for a guild.
func (b *Bot) bindChannel(guildID, channelID string) {
	b.chanMu.Lock()
	b.channels[guildID] = channelID
	b.chanMu.Unlock()
}

func (b *Bot) boundChannel(guildID string) string {
	b.chanMu.Lock()
	defer b.chanMu.Unlock()
	return b.channels[guildID]
}
