package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"groovebot/internal/resolver"
	"groovebot/internal/store"
)

const (
	colorPlaying = 0x1db954
	colorQueue   = 0x5865f2
	colorError   = 0xed4245
)

// nowPlayingEmbed renders the current track card.
func nowPlayingEmbed(t *resolver.Track, position time.Duration, volume int, loop bool) *discordgo.MessageEmbed {
	description := fmt.Sprintf("[**%s**](%s)", t.Title, t.WebpageURL)
	loopState := "off"
	if loop {
		loopState = "on"
	}

	embed := &discordgo.MessageEmbed{
		Title:       "Now playing",
		Description: description,
		Color:       colorPlaying,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Duration", Value: resolver.FormatDuration(t.Duration), Inline: true},
			{Name: "Requested by", Value: fmt.Sprintf("<@%s>", t.RequesterID), Inline: true},
			{Name: "Volume", Value: fmt.Sprintf("%d%%", volume), Inline: true},
			{Name: "Loop", Value: loopState, Inline: true},
		},
	}
	if position > 0 {
		embed.Fields[0].Value = fmt.Sprintf("%s / %s",
			formatClock(position), resolver.FormatDuration(t.Duration))
	}
	if t.Uploader != "" {
		field := &discordgo.MessageEmbedField{Name: "Uploader", Value: t.Uploader, Inline: true}
		if t.UploaderURL != "" {
			field.Value = fmt.Sprintf("[%s](%s)", t.Uploader, t.UploaderURL)
		}
		embed.Fields = append(embed.Fields, field)
	}
	if t.Thumbnail != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: t.Thumbnail}
	}
	return embed
}

// queueEmbed renders one page of the queue, ten tracks per page.
func queueEmbed(current *resolver.Track, items []*resolver.Track, page, totalPages, perPage, queueLen int) *discordgo.MessageEmbed {
	var sb strings.Builder
	if current != nil {
		fmt.Fprintf(&sb, "**Now playing:** [%s](%s)\n\n", current.Title, current.WebpageURL)
	}
	if len(items) == 0 {
		sb.WriteString("The queue is empty.")
	} else {
		offset := (page - 1) * perPage
		for i, t := range items {
			fmt.Fprintf(&sb, "`%d.` [**%s**](%s)\n", offset+i+1, t.Title, t.WebpageURL)
		}
	}

	return &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("Queue — %d track(s)", queueLen),
		Description: sb.String(),
		Color:       colorQueue,
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Viewing page %d/%d", page, maxInt(totalPages, 1)),
		},
	}
}

// historyEmbed renders recently played tracks.
func historyEmbed(entries []store.HistoryEntry) *discordgo.MessageEmbed {
	var sb strings.Builder
	if len(entries) == 0 {
		sb.WriteString("Nothing has been played here yet.")
	}
	for i, e := range entries {
		fmt.Fprintf(&sb, "`%d.` [**%s**](%s) — <@%s>\n", i+1, e.Title, e.URL, e.RequesterID)
	}
	return &discordgo.MessageEmbed{
		Title:       "Recently played",
		Description: sb.String(),
		Color:       colorQueue,
	}
}

// playbackErrorEmbed renders a stream failure notice.
func playbackErrorEmbed(t *resolver.Track, err error) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "Playback error",
		Description: fmt.Sprintf("Could not play [**%s**](%s): %v", t.Title, t.WebpageURL, err),
		Color:       colorError,
	}
}

// formatClock renders a position as m:ss or h:mm:ss.
func formatClock(d time.Duration) string {
	total := int(d.Seconds())
	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// nowPlayingComponents are the playback control buttons under the now-playing
// card.
func nowPlayingComponents(paused bool) []discordgo.MessageComponent {
	pauseResume := discordgo.Button{
		Label:    "Pause",
		Style:    discordgo.SecondaryButton,
		CustomID: "np:pause",
	}
	if paused {
		pauseResume.Label = "Resume"
		pauseResume.CustomID = "np:resume"
	}
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			pauseResume,
			discordgo.Button{Label: "Skip", Style: discordgo.PrimaryButton, CustomID: "np:skip"},
			discordgo.Button{Label: "Stop", Style: discordgo.DangerButton, CustomID: "np:stop"},
			discordgo.Button{Label: "Loop", Style: discordgo.SecondaryButton, CustomID: "np:loop"},
		}},
	}
}

// queueComponents are the pagination buttons under the queue embed.
func queueComponents(page, totalPages int) []discordgo.MessageComponent {
	if totalPages <= 1 {
		return nil
	}
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{
				Label:    "Prev",
				Style:    discordgo.SecondaryButton,
				CustomID: fmt.Sprintf("queue:page:%d", page-1),
				Disabled: page <= 1,
			},
			discordgo.Button{
				Label:    "Next",
				Style:    discordgo.SecondaryButton,
				CustomID: fmt.Sprintf("queue:page:%d", page+1),
				Disabled: page >= totalPages,
			},
		}},
	}
}

// clearComponents are the confirm/cancel buttons for /clear.
func clearComponents() []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{Label: "Clear it", Style: discordgo.DangerButton, CustomID: "clear:confirm"},
			discordgo.Button{Label: "Keep the queue", Style: discordgo.SecondaryButton, CustomID: "clear:cancel"},
		}},
	}
}
