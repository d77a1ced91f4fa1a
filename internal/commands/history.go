package commands

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
)

const maxHistoryEntries = 25

// History lists the guild's most recently played songs.
func (c *Commands) HistoryList(s *discordgo.Session, i *discordgo.InteractionCreate) string {
	count := intOption(i.ApplicationCommandData(), "count", 10)
	if count > maxHistoryEntries {
		count = maxHistoryEntries
	}

	entries, err := c.History.Recent(i.GuildID, count)
	if err != nil {
		log.Error().Err(err).Str("guild", i.GuildID).Msg("history query failed")
		return "❌ Could not load the play history."
	}
	if len(entries) == 0 {
		return "📭 No songs played yet."
	}

	var b strings.Builder
	b.WriteString("📜 **Recently played:**\n")
	for n, e := range entries {
		fmt.Fprintf(&b, "%d. **%s** requested by %s (%s)\n",
			n+1, e.Title, e.RequestedBy, e.PlayedAt.Local().Format("Jan 2 15:04"))
	}
	return b.String()
}
