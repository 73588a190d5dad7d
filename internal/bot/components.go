package bot

import (
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"

	"groovebot/internal/logging"
)

// dispatchComponent routes button presses by custom ID prefix:
//
//	np:*          playback controls under the now-playing card
//	queue:page:N  queue pagination
//	clear:*       clear confirmation
func (b *Bot) dispatchComponent(s *discordgo.Session, i *discordgo.InteractionCreate) {
	customID := i.MessageComponentData().CustomID
	logging.CommandsDebug("guild %s: button %q by %s", i.GuildID, customID, interactionUserID(i))

	var err error
	switch {
	case strings.HasPrefix(customID, "np:"):
		err = b.handleNowPlayingButton(s, i, strings.TrimPrefix(customID, "np:"))
	case strings.HasPrefix(customID, "queue:page:"):
		err = b.handleQueuePageButton(s, i, strings.TrimPrefix(customID, "queue:page:"))
	case strings.HasPrefix(customID, "clear:"):
		err = b.handleClearButton(s, i, strings.TrimPrefix(customID, "clear:"))
	default:
		err = respondEphemeral(s, i, "That button no longer does anything.")
	}
	if err != nil {
		logging.CommandsError("button %q: %v", customID, err)
		respondError(s, i, err)
	}
}

func (b *Bot) handleNowPlayingButton(s *discordgo.Session, i *discordgo.InteractionCreate, action string) error {
	st, err := b.controlSession(i.GuildID, interactionUserID(i))
	if err != nil {
		return err
	}

	switch action {
	case "pause":
		if err := st.Pause(); err != nil {
			return err
		}
	case "resume":
		if err := st.Resume(); err != nil {
			return err
		}
	case "skip":
		skipped, votes := st.Skip(interactionUserID(i))
		if !skipped && votes > 0 {
			return respondEphemeral(s, i,
				"Skip vote added: "+strconv.Itoa(votes)+"/"+strconv.Itoa(b.cfg.Player.SkipThreshold)+".")
		}
	case "stop":
		b.manager.Remove(i.GuildID)
		return updateMessage(s, i, &discordgo.MessageEmbed{
			Title: "Stopped",
			Color: colorError,
		}, nil)
	case "loop":
		st.ToggleLoop()
	default:
		return respondEphemeral(s, i, "That button no longer does anything.")
	}

	current := st.Current()
	if current == nil {
		return updateMessage(s, i, &discordgo.MessageEmbed{
			Title: "Nothing playing",
			Color: colorQueue,
		}, nil)
	}
	embed := nowPlayingEmbed(current, st.Position(), st.Volume(), st.Loop())
	return updateMessage(s, i, embed, nowPlayingComponents(!st.IsPlaying()))
}

func (b *Bot) handleQueuePageButton(s *discordgo.Session, i *discordgo.InteractionCreate, pageStr string) error {
	st, err := b.liveSession(i.GuildID)
	if err != nil {
		return err
	}
	page, err := strconv.Atoi(pageStr)
	if err != nil || page < 1 {
		page = 1
	}
	embed, components := b.queuePage(st, page)
	return updateMessage(s, i, embed, components)
}

func (b *Bot) handleClearButton(s *discordgo.Session, i *discordgo.InteractionCreate, action string) error {
	if action != "confirm" {
		return updateMessage(s, i, &discordgo.MessageEmbed{
			Title: "Kept the queue",
			Color: colorQueue,
		}, nil)
	}

	st, err := b.controlSession(i.GuildID, interactionUserID(i))
	if err != nil {
		return err
	}
	n := st.Queue().Clear()
	logging.Queue("guild %s: cleared %d track(s)", i.GuildID, n)
	return updateMessage(s, i, &discordgo.MessageEmbed{
		Title:       "Queue cleared",
		Description: "Dropped " + strconv.Itoa(n) + " track(s).",
		Color:       colorError,
	}, nil)
}
