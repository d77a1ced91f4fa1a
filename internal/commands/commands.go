package commands

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"

	"github.com/mizube/hibiki/pkg/history"
	"github.com/mizube/hibiki/pkg/player"
	"github.com/mizube/hibiki/pkg/resolver"
)

// Resolver turns a user query into a playable track.
type Resolver interface {
	Resolve(query string) (*resolver.Result, error)
}

// Commands holds every dependency the slash command handlers need.
type Commands struct {
	Resolver Resolver
	Players  *player.Registry
	History  *history.Store
}

func New(res Resolver, players *player.Registry, hist *history.Store) *Commands {
	return &Commands{
		Resolver: res,
		Players:  players,
		History:  hist,
	}
}

// Definitions returns the slash commands the bot exposes.
func Definitions() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        "play",
			Description: "Play a song, or queue it behind the current one",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "query",
					Description: "YouTube URL or search terms",
					Required:    true,
				},
			},
		},
		{
			Name:        "skip",
			Description: "Skip the current song",
		},
		{
			Name:        "stop",
			Description: "Stop playback and clear the queue",
		},
		{
			Name:        "pause",
			Description: "Pause the current playback",
		},
		{
			Name:        "resume",
			Description: "Resume paused playback",
		},
		{
			Name:        "queue",
			Description: "Show the current queue",
		},
		{
			Name:        "nowplaying",
			Description: "Show what's currently playing",
		},
		{
			Name:        "history",
			Description: "Show recently played songs",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "count",
					Description: "How many entries to show (default 10)",
					Required:    false,
				},
			},
		},
		{
			Name:        "help",
			Description: "Show help information",
		},
	}
}

// Register overwrites the application's commands. A non-empty guildID
// scopes them to that guild, which propagates instantly.
func Register(s *discordgo.Session, appID, guildID string) error {
	defs := Definitions()
	if _, err := s.ApplicationCommandBulkOverwrite(appID, guildID, defs); err != nil {
		return fmt.Errorf("failed to register slash commands: %w", err)
	}
	log.Info().Int("count", len(defs)).Str("guild", guildID).Msg("slash commands registered")
	return nil
}
