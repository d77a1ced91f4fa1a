package commands

import (
	"errors"

	"github.com/bwmarrin/discordgo"

	"github.com/mizube/hibiki/pkg/player"
)

// Skip terminates the current song and advances to the next one.
func (c *Commands) Skip(s *discordgo.Session, i *discordgo.InteractionCreate) string {
	err := c.Players.Skip(i.GuildID)
	switch {
	case errors.Is(err, player.ErrNoSession), errors.Is(err, player.ErrNothingPlaying):
		return "❌ Nothing is playing."
	case err != nil:
		return "❌ Could not skip."
	}
	return "⏭️ Skipped."
}

// Stop ends playback, clears the queue, and leaves the voice channel.
func (c *Commands) Stop(s *discordgo.Session, i *discordgo.InteractionCreate) string {
	if err := c.Players.Stop(i.GuildID); err != nil {
		return "❌ Nothing is playing."
	}
	return "⏹️ Stopped playback and cleared the queue."
}

// Pause holds playback without ending the song.
func (c *Commands) Pause(s *discordgo.Session, i *discordgo.InteractionCreate) string {
	err := c.Players.Pause(i.GuildID)
	switch {
	case errors.Is(err, player.ErrNoSession), errors.Is(err, player.ErrNothingPlaying):
		return "❌ Nothing is playing."
	case err != nil:
		return "❌ Could not pause."
	}
	return "⏸️ Paused."
}

// Resume continues paused playback.
func (c *Commands) Resume(s *discordgo.Session, i *discordgo.InteractionCreate) string {
	err := c.Players.Resume(i.GuildID)
	switch {
	case errors.Is(err, player.ErrNoSession), errors.Is(err, player.ErrNothingPlaying):
		return "❌ Nothing is playing."
	case err != nil:
		return "❌ Could not resume."
	}
	return "▶️ Resumed."
}
