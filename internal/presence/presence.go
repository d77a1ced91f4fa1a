package presence

import (
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
)

// Manager keeps the bot's Discord presence in sync with playback. While
// any guild is playing, the presence shows the most recently started
// title; when the last session ends it falls back to an idle status.
type Manager struct {
	session *discordgo.Session

	mu     sync.Mutex
	titles map[string]string
}

func NewManager(session *discordgo.Session) *Manager {
	return &Manager{
		session: session,
		titles:  make(map[string]string),
	}
}

// SongStarted records the guild's current song and shows it.
func (m *Manager) SongStarted(guildID, title string) {
	m.mu.Lock()
	m.titles[guildID] = title
	m.mu.Unlock()

	m.setListening(title)
}

// SessionEnded forgets the guild's song. The presence switches to
// another still-playing guild's title, or to idle when none remain.
func (m *Manager) SessionEnded(guildID string) {
	m.mu.Lock()
	delete(m.titles, guildID)
	var remaining string
	for _, title := range m.titles {
		remaining = title
		break
	}
	m.mu.Unlock()

	if remaining != "" {
		m.setListening(remaining)
		return
	}
	m.SetIdle()
}

// SetIdle shows the default idle status.
func (m *Manager) SetIdle() {
	guilds := len(m.session.State.Guilds)
	err := m.session.UpdateStatusComplex(discordgo.UpdateStatusData{
		Status: "online",
		Activities: []*discordgo.Activity{
			{
				Name: fmt.Sprintf("%d servers", guilds),
				Type: discordgo.ActivityTypeWatching,
			},
		},
	})
	if err != nil {
		log.Warn().Err(err).Msg("failed to update idle presence")
	}
}

func (m *Manager) setListening(title string) {
	err := m.session.UpdateStatusComplex(discordgo.UpdateStatusData{
		Status: "online",
		Activities: []*discordgo.Activity{
			{
				Name:  "to",
				Type:  discordgo.ActivityTypeListening,
				State: title,
			},
		},
	})
	if err != nil {
		log.Warn().Err(err).Str("title", title).Msg("failed to update music presence")
	}
}
