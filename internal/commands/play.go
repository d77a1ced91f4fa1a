package commands

import (
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"

	"github.com/mizube/hibiki/pkg/player"
	"github.com/mizube/hibiki/pkg/resolver"
)

// Play resolves the query and enqueues the result in the caller's
// voice channel. The first song of a session starts immediately.
func (c *Commands) Play(s *discordgo.Session, i *discordgo.InteractionCreate) string {
	query := stringOption(i.ApplicationCommandData(), "query")
	if query == "" {
		return "❌ Please provide a YouTube URL or search terms."
	}

	voiceChannel := player.FindVoiceChannel(s, i.GuildID, i.Member.User.ID)
	if voiceChannel == "" {
		return "❌ Join a voice channel first."
	}

	result, err := c.Resolver.Resolve(query)
	if err != nil {
		if errors.Is(err, resolver.ErrNoResults) {
			return fmt.Sprintf("❌ No results for **%s**.", query)
		}
		log.Error().Err(err).Str("query", query).Msg("resolution failed")
		return "❌ Could not resolve that song, try again later."
	}

	song := &player.Song{
		Title:       result.Title,
		URL:         result.URL,
		Duration:    result.Duration,
		RequestedBy: i.Member.User.Username,
	}

	position, err := c.Players.Enqueue(i.GuildID, voiceChannel, song)
	if err != nil {
		var jerr *player.JoinError
		if errors.As(err, &jerr) {
			log.Error().Err(err).Str("guild", i.GuildID).Msg("voice join failed")
			return "❌ Could not join your voice channel."
		}
		log.Error().Err(err).Str("guild", i.GuildID).Msg("enqueue failed")
		return "❌ Could not queue that song."
	}

	if position == 0 {
		return fmt.Sprintf("🎵 Now playing **%s**", song.Title)
	}
	return fmt.Sprintf("✅ Queued **%s** at position %d", song.Title, position)
}

// stringOption extracts a top-level string option by name.
func stringOption(data discordgo.ApplicationCommandInteractionData, name string) string {
	for _, option := range data.Options {
		if option.Name == name {
			return option.StringValue()
		}
	}
	return ""
}

// intOption extracts a top-level integer option, or def when absent.
func intOption(data discordgo.ApplicationCommandInteractionData, name string, def int) int {
	for _, option := range data.Options {
		if option.Name == name {
			return int(option.IntValue())
		}
	}
	return def
}
