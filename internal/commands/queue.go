package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
)

// Queue lists the current song and everything waiting behind it.
func (c *Commands) Queue(s *discordgo.Session, i *discordgo.InteractionCreate) string {
	songs := c.Players.Queue(i.GuildID)
	if len(songs) == 0 {
		return "📭 The queue is empty."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🎵 Now playing: **%s** (%s)\n", songs[0].Title, formatDuration(songs[0].Duration))
	if len(songs) > 1 {
		b.WriteString("\n**Up next:**\n")
		for n, song := range songs[1:] {
			fmt.Fprintf(&b, "%d. **%s** (%s) requested by %s\n",
				n+1, song.Title, formatDuration(song.Duration), song.RequestedBy)
		}
	}
	return b.String()
}

// NowPlaying shows the current song with its pause state.
func (c *Commands) NowPlaying(s *discordgo.Session, i *discordgo.InteractionCreate) string {
	song, ok := c.Players.NowPlaying(i.GuildID)
	if !ok {
		return "📭 Nothing is currently playing."
	}

	state := "🟢 Playing"
	if session, ok := c.Players.Get(i.GuildID); ok && session.Paused() {
		state = "⏸️ Paused"
	}
	return fmt.Sprintf("🎵 %s: **%s** (%s) requested by %s",
		state, song.Title, formatDuration(song.Duration), song.RequestedBy)
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "live"
	}

	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60
	if d < time.Hour {
		return fmt.Sprintf("%d:%02d", minutes, seconds)
	}
	return fmt.Sprintf("%d:%02d:%02d", minutes/60, minutes%60, seconds)
}
