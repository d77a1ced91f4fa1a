package commands

import (
	"github.com/bwmarrin/discordgo"
)

// Help lists every command with a short description.
func (c *Commands) Help(s *discordgo.Session, i *discordgo.InteractionCreate) string {
	return `🎵 **Commands**
` + "`/play <query>`" + ` - play a YouTube URL or search result, or queue it behind the current song
` + "`/skip`" + ` - skip the current song
` + "`/stop`" + ` - stop playback, clear the queue, and leave the voice channel
` + "`/pause`" + ` / ` + "`/resume`" + ` - hold and continue playback
` + "`/queue`" + ` - show the current queue
` + "`/nowplaying`" + ` - show the current song
` + "`/history [count]`" + ` - show recently played songs`
}
