package bot

import (
	"errors"
	"fmt"
	"unicode"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"

	"groovebot/internal/logging"
	"groovebot/internal/player"
)

// Interaction response helpers. Discord gives three seconds to acknowledge
// an interaction; anything slower must defer first and follow up.

func respond(s *discordgo.Session, i *discordgo.InteractionCreate, content string) error {
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: content},
	})
}

func respondEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate, content string) error {
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
}

func respondComplex(s *discordgo.Session, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed, components []discordgo.MessageComponent, ephemeral bool) error {
	data := &discordgo.InteractionResponseData{
		Embeds:     []*discordgo.MessageEmbed{embed},
		Components: components,
	}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
}

// respondError reports a handler failure. Known user errors read as-is;
// anything else gets a generic line so internals stay out of chat.
func respondError(s *discordgo.Session, i *discordgo.InteractionCreate, err error) {
	msg := userFacingError(err)
	if respondErr := respondEphemeral(s, i, msg); respondErr != nil {
		// Already acknowledged (deferred): fall back to a follow-up.
		if _, fuErr := s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
			Content: msg,
			Flags:   discordgo.MessageFlagsEphemeral,
		}); fuErr != nil {
			logging.CommandsError("could not deliver error response: %v", fuErr)
		}
	}
}

func userFacingError(err error) string {
	if isUserError(err) {
		return fmt.Sprintf("%s.", upperFirst(err.Error()))
	}
	return "Something went wrong running that command."
}

func isUserError(err error) bool {
	for _, known := range []error{
		errNotInVoice, errBotElsewhere, errNoSession,
		player.ErrNotPlaying, player.ErrAlreadyPlaying,
	} {
		if errors.Is(err, known) {
			return true
		}
	}
	return false
}

func upperFirst(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}

func deferResponse(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	})
}

func followUp(s *discordgo.Session, i *discordgo.InteractionCreate, content string) error {
	_, err := s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{Content: content})
	return err
}

// updateMessage edits the message the pressed button belongs to.
func updateMessage(s *discordgo.Session, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed, components []discordgo.MessageComponent) error {
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Embeds:     []*discordgo.MessageEmbed{embed},
			Components: components,
		},
	})
}
