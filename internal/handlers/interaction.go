package handlers

import (
	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"

	"github.com/mizube/hibiki/internal/commands"
)

// InteractionHandler routes slash command interactions to their
// handlers. Long-running commands rely on the deferred response so the
// three second interaction deadline never trips.
type InteractionHandler struct {
	commands *commands.Commands
}

func NewInteractionHandler(cmds *commands.Commands) *InteractionHandler {
	return &InteractionHandler{commands: cmds}
}

// Handle is registered as the discordgo InteractionCreate handler.
func (h *InteractionHandler) Handle(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	if i.Member == nil || i.Member.User == nil || i.Member.User.Bot {
		return
	}

	// Acknowledge immediately, then edit in the real response.
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to acknowledge interaction")
		return
	}

	data := i.ApplicationCommandData()
	log.Debug().
		Str("command", data.Name).
		Str("guild", i.GuildID).
		Str("user", i.Member.User.Username).
		Msg("dispatching command")

	var response string
	switch data.Name {
	case "play":
		response = h.commands.Play(s, i)
	case "skip":
		response = h.commands.Skip(s, i)
	case "stop":
		response = h.commands.Stop(s, i)
	case "pause":
		response = h.commands.Pause(s, i)
	case "resume":
		response = h.commands.Resume(s, i)
	case "queue":
		response = h.commands.Queue(s, i)
	case "nowplaying":
		response = h.commands.NowPlaying(s, i)
	case "history":
		response = h.commands.HistoryList(s, i)
	case "help":
		response = h.commands.Help(s, i)
	default:
		response = "❌ Unknown command."
	}

	if _, err := s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{
		Content: &response,
	}); err != nil {
		log.Error().Err(err).Str("command", data.Name).Msg("failed to send interaction response")
	}
}
