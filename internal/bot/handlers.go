package bot

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"

	"groovebot/internal/logging"
	"groovebot/internal/player"
	"groovebot/internal/resolver"
	"groovebot/internal/spotify"
)

type commandHandler func(b *Bot, s *discordgo.Session, i *discordgo.InteractionCreate, rl *logging.RequestLogger) error

var commandHandlers = map[string]commandHandler{
	"join":       (*Bot).handleJoin,
	"leave":      (*Bot).handleLeave,
	"play":       (*Bot).handlePlay,
	"pause":      (*Bot).handlePause,
	"resume":     (*Bot).handleResume,
	"skip":       (*Bot).handleSkip,
	"stop":       (*Bot).handleStop,
	"queue":      (*Bot).handleQueue,
	"nowplaying": (*Bot).handleNowPlaying,
	"volume":     (*Bot).handleVolume,
	"loop":       (*Bot).handleLoop,
	"shuffle":    (*Bot).handleShuffle,
	"remove":     (*Bot).handleRemove,
	"clear":      (*Bot).handleClear,
	"history":    (*Bot).handleHistory,
}

// onInteraction routes interactions: slash commands to commandHandlers,
// button presses to the component router.
func (b *Bot) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		b.dispatchCommand(s, i)
	case discordgo.InteractionMessageComponent:
		b.dispatchComponent(s, i)
	}
}

func (b *Bot) dispatchCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	data := i.ApplicationCommandData()
	name := data.Name
	userID := interactionUserID(i)
	requestID := uuid.NewString()[:8]

	rl := logging.WithRequestID(logging.CategoryCommands, requestID).
		WithField("cmd", name).
		WithField("guild", i.GuildID)
	rl.Info("invoked by %s", userID)
	logging.RecordCommand(logging.AuditCommandInvoke, i.GuildID, userID, name, requestID, nil)

	if i.GuildID == "" {
		respondEphemeral(s, i, "This command only works in a server.")
		return
	}
	b.bindChannel(i.GuildID, i.ChannelID)

	handler, ok := commandHandlers[name]
	if !ok {
		rl.Error("no handler registered")
		respondEphemeral(s, i, "Unknown command.")
		return
	}

	start := time.Now()
	err := handler(b, s, i, rl)
	if err != nil {
		rl.Error("failed: %v", err)
		logging.RecordCommand(logging.AuditCommandError, i.GuildID, userID, name, requestID, err)
		respondError(s, i, err)
		return
	}
	rl.Debug("completed in %v", time.Since(start))
	logging.Audit().Record(logging.AuditEvent{
		EventType:  logging.AuditCommandComplete,
		GuildID:    i.GuildID,
		UserID:     userID,
		Command:    name,
		RequestID:  requestID,
		Success:    true,
		DurationMs: time.Since(start).Milliseconds(),
	})
}

func (b *Bot) handleJoin(s *discordgo.Session, i *discordgo.InteractionCreate, rl *logging.RequestLogger) error {
	if _, err := b.ensureSession(i.GuildID, interactionUserID(i)); err != nil {
		return err
	}
	return respond(s, i, "Connected. Queue something with `/play`.")
}

func (b *Bot) handleLeave(s *discordgo.Session, i *discordgo.InteractionCreate, rl *logging.RequestLogger) error {
	if _, err := b.controlSession(i.GuildID, interactionUserID(i)); err != nil {
		return err
	}
	b.manager.Remove(i.GuildID)
	logging.Audit().Record(logging.AuditEvent{
		EventType: logging.AuditVoiceLeave,
		GuildID:   i.GuildID,
		UserID:    interactionUserID(i),
		Success:   true,
	})
	return respond(s, i, "Cleared the queue and left the voice channel.")
}

func (b *Bot) handlePlay(s *discordgo.Session, i *discordgo.InteractionCreate, rl *logging.RequestLogger) error {
	query := optString(i, "query")
	if strings.TrimSpace(query) == "" {
		return respondEphemeral(s, i, "Give me a URL or something to search for.")
	}

	st, err := b.ensureSession(i.GuildID, interactionUserID(i))
	if err != nil {
		return err
	}

	// Resolution shells out to yt-dlp, so always defer.
	if err := deferResponse(s, i); err != nil {
		return err
	}

	if spotify.IsPlaylistURL(query) {
		return b.playSpotifyPlaylist(s, i, st, query, rl)
	}

	urls, err := b.res.Resolve(b.ctx, query)
	if errors.Is(err, resolver.ErrNoResults) {
		return followUp(s, i, fmt.Sprintf("No results for `%s`.", query))
	}
	if err != nil {
		return fmt.Errorf("resolve %q: %w", query, err)
	}

	enqueued := 0
	var first *resolver.Track
	for _, url := range urls {
		if !st.Exists() {
			break
		}
		t, err := b.res.Fetch(b.ctx, url)
		if err != nil {
			rl.Error("fetch %s: %v", url, err)
			continue
		}
		b.stampRequester(t, i)
		st.Enqueue(t)
		if first == nil {
			first = t
		}
		enqueued++
	}
	if enqueued == 0 {
		return followUp(s, i, fmt.Sprintf("Could not load anything for `%s`.", query))
	}
	if enqueued == 1 {
		return followUp(s, i, fmt.Sprintf("Enqueued %s.", first.String()))
	}
	return followUp(s, i, fmt.Sprintf("Enqueued **%d** tracks.", enqueued))
}

// playSpotifyPlaylist expands the playlist in the background: large lists
// take minutes with pacing, far past any sane interaction window.
func (b *Bot) playSpotifyPlaylist(s *discordgo.Session, i *discordgo.InteractionCreate, st *player.State, url string, rl *logging.RequestLogger) error {
	if b.expander == nil {
		return followUp(s, i, "Spotify support is not configured on this bot.")
	}
	progressMsg, err := s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
		Content: "Expanding the Spotify playlist, tracks will trickle into the queue.",
	})
	if err != nil {
		return err
	}

	logging.Audit().Record(logging.AuditEvent{
		EventType: logging.AuditPlaylistStart,
		GuildID:   i.GuildID,
		UserID:    interactionUserID(i),
		Target:    url,
		Success:   true,
	})

	go func() {
		name, n, err := b.expander.Expand(b.ctx, url, func(webpageURL string) error {
			if !st.Exists() {
				return fmt.Errorf("voice session ended")
			}
			t, err := b.res.Fetch(b.ctx, webpageURL)
			if err != nil {
				return nil // skip this track, keep going
			}
			b.stampRequester(t, i)
			st.Enqueue(t)
			return nil
		}, func(done, total int, trackName string) {
			rl.Debug("playlist progress %d/%d: %s", done, total, trackName)
			// Edit sparingly; Discord rate-limits message edits.
			if done%5 == 0 || done == total {
				content := fmt.Sprintf("Expanding the Spotify playlist: %d/%d tracks.", done, total)
				s.FollowupMessageEdit(i.Interaction, progressMsg.ID, &discordgo.WebhookEdit{
					Content: &content,
				})
			}
		})

		channelID := b.boundChannel(i.GuildID)
		if err != nil {
			logging.SpotifyWarn("playlist %s aborted after %d tracks: %v", url, n, err)
			logging.Audit().Record(logging.AuditEvent{
				EventType: logging.AuditPlaylistAbort,
				GuildID:   i.GuildID,
				Target:    url,
				Error:     err.Error(),
			})
			if channelID != "" {
				s.ChannelMessageSend(channelID,
					fmt.Sprintf("Playlist expansion stopped after %d track(s).", n))
			}
			return
		}
		logging.Audit().Record(logging.AuditEvent{
			EventType: logging.AuditPlaylistComplete,
			GuildID:   i.GuildID,
			Target:    url,
			Success:   true,
			Message:   fmt.Sprintf("%d tracks", n),
		})
		if channelID != "" {
			s.ChannelMessageSend(channelID,
				fmt.Sprintf("Enqueued **%d** track(s) from **%s**.", n, name))
		}
	}()
	return nil
}

func (b *Bot) handlePause(s *discordgo.Session, i *discordgo.InteractionCreate, rl *logging.RequestLogger) error {
	st, err := b.controlSession(i.GuildID, interactionUserID(i))
	if err != nil {
		return err
	}
	if err := st.Pause(); err != nil {
		return err
	}
	return respond(s, i, "Paused. `/resume` to pick it back up.")
}

func (b *Bot) handleResume(s *discordgo.Session, i *discordgo.InteractionCreate, rl *logging.RequestLogger) error {
	st, err := b.controlSession(i.GuildID, interactionUserID(i))
	if err != nil {
		return err
	}
	if err := st.Resume(); err != nil {
		return err
	}
	return respond(s, i, "Resumed.")
}

func (b *Bot) handleSkip(s *discordgo.Session, i *discordgo.InteractionCreate, rl *logging.RequestLogger) error {
	st, err := b.controlSession(i.GuildID, interactionUserID(i))
	if err != nil {
		return err
	}
	skipped, votes := st.Skip(interactionUserID(i))
	switch {
	case skipped:
		return respond(s, i, "Skipped.")
	case votes == 0:
		return respondEphemeral(s, i, "Nothing is playing.")
	default:
		return respond(s, i, fmt.Sprintf("Skip vote added: **%d/%d**.", votes, b.cfg.Player.SkipThreshold))
	}
}

func (b *Bot) handleStop(s *discordgo.Session, i *discordgo.InteractionCreate, rl *logging.RequestLogger) error {
	if _, err := b.controlSession(i.GuildID, interactionUserID(i)); err != nil {
		return err
	}
	b.manager.Remove(i.GuildID)
	return respond(s, i, "Stopped playback and cleared the queue.")
}

func (b *Bot) handleQueue(s *discordgo.Session, i *discordgo.InteractionCreate, rl *logging.RequestLogger) error {
	st, err := b.liveSession(i.GuildID)
	if err != nil {
		return err
	}
	page := int(optInt(i, "page"))
	if page < 1 {
		page = 1
	}
	embed, components := b.queuePage(st, page)
	return respondComplex(s, i, embed, components, false)
}

// queuePage builds the queue embed plus pagination buttons for one page.
// Pages are 1-based here and in the embeds; Queue.Page counts from zero.
func (b *Bot) queuePage(st *player.State, page int) (*discordgo.MessageEmbed, []discordgo.MessageComponent) {
	perPage := b.cfg.Player.ItemsPerPage
	items, totalPages := st.Queue().Page(page-1, perPage)
	if items == nil && totalPages > 0 && page > totalPages {
		page = totalPages
		items, totalPages = st.Queue().Page(page-1, perPage)
	}
	embed := queueEmbed(st.Current(), items, page, totalPages, perPage, st.Queue().Len())
	return embed, queueComponents(page, totalPages)
}

func (b *Bot) handleNowPlaying(s *discordgo.Session, i *discordgo.InteractionCreate, rl *logging.RequestLogger) error {
	st, err := b.liveSession(i.GuildID)
	if err != nil {
		return err
	}
	current := st.Current()
	if current == nil {
		return respondEphemeral(s, i, "Nothing is playing.")
	}
	embed := nowPlayingEmbed(current, st.Position(), st.Volume(), st.Loop())
	return respondComplex(s, i, embed, nowPlayingComponents(!st.IsPlaying()), false)
}

func (b *Bot) handleVolume(s *discordgo.Session, i *discordgo.InteractionCreate, rl *logging.RequestLogger) error {
	st, err := b.controlSession(i.GuildID, interactionUserID(i))
	if err != nil {
		return err
	}
	applied := st.SetVolume(int(optInt(i, "percent")))
	return respond(s, i, fmt.Sprintf("Volume set to **%d%%**. Applies from the next track.", applied))
}

func (b *Bot) handleLoop(s *discordgo.Session, i *discordgo.InteractionCreate, rl *logging.RequestLogger) error {
	st, err := b.controlSession(i.GuildID, interactionUserID(i))
	if err != nil {
		return err
	}
	if st.ToggleLoop() {
		return respond(s, i, "Looping the current track. Run `/loop` again to turn it off.")
	}
	return respond(s, i, "Loop off.")
}

func (b *Bot) handleShuffle(s *discordgo.Session, i *discordgo.InteractionCreate, rl *logging.RequestLogger) error {
	st, err := b.controlSession(i.GuildID, interactionUserID(i))
	if err != nil {
		return err
	}
	if st.Queue().Len() == 0 {
		return respondEphemeral(s, i, "The queue is empty.")
	}
	st.Queue().Shuffle()
	return respond(s, i, "Shuffled the queue.")
}

func (b *Bot) handleRemove(s *discordgo.Session, i *discordgo.InteractionCreate, rl *logging.RequestLogger) error {
	st, err := b.controlSession(i.GuildID, interactionUserID(i))
	if err != nil {
		return err
	}
	index := int(optInt(i, "index"))
	removed, err := st.Queue().Remove(index - 1)
	if errors.Is(err, player.ErrIndexOutOfRange) {
		return respondEphemeral(s, i, fmt.Sprintf("There is no track at position %d.", index))
	}
	if err != nil {
		return err
	}
	return respond(s, i, fmt.Sprintf("Removed **%s** from the queue.", removed.Title))
}

func (b *Bot) handleClear(s *discordgo.Session, i *discordgo.InteractionCreate, rl *logging.RequestLogger) error {
	st, err := b.controlSession(i.GuildID, interactionUserID(i))
	if err != nil {
		return err
	}
	n := st.Queue().Len()
	if n == 0 {
		return respondEphemeral(s, i, "The queue is already empty.")
	}
	return respondComplex(s, i, &discordgo.MessageEmbed{
		Title:       "Clear the queue?",
		Description: fmt.Sprintf("This drops **%d** queued track(s). The current song keeps playing.", n),
		Color:       colorError,
	}, clearComponents(), false)
}

func (b *Bot) handleHistory(s *discordgo.Session, i *discordgo.InteractionCreate, rl *logging.RequestLogger) error {
	entries, err := b.store.RecentPlays(i.GuildID, b.cfg.Player.ItemsPerPage)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}
	return respondComplex(s, i, historyEmbed(entries), nil, false)
}

func (b *Bot) stampRequester(t *resolver.Track, i *discordgo.InteractionCreate) {
	t.RequesterID = interactionUserID(i)
	if i.Member != nil && i.Member.User != nil {
		t.RequesterName = i.Member.User.Username
	}
}

// interactionUserID works for both guild (Member) and DM (User) interactions.
func interactionUserID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

func optString(i *discordgo.InteractionCreate, name string) string {
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == name {
			return opt.StringValue()
		}
	}
	return ""
}

func optInt(i *discordgo.InteractionCreate, name string) int64 {
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == name {
			return opt.IntValue()
		}
	}
	return 0
}
