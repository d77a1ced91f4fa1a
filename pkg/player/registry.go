package player

import (
	"sync"
	"time"

	"github.com/mizube/hibiki/pkg/pipeline"
	"github.com/rs/zerolog/log"
)

// Config wires a Registry. Streams defaults to the real subprocess
// pipeline; tests inject fakes.
type Config struct {
	Connector   Connector
	Streams     StreamFactory
	BufferBytes int64

	// OnSongStart is invoked from the advancement goroutine each time
	// a song begins playing. Optional.
	OnSongStart func(guildID string, song *Song)

	// OnSessionEnd is invoked after a guild's session has torn down
	// and left the voice channel. Optional.
	OnSessionEnd func(guildID string)
}

// Registry holds every guild's playback session, keyed by guild ID.
// A session exists for a guild iff that guild has an active or queued
// playback session: inserted on first enqueue, removed when the queue
// drains or the session is stopped.
type Registry struct {
	cfg Config

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewRegistry(cfg Config) *Registry {
	if cfg.BufferBytes <= 0 {
		cfg.BufferBytes = pipeline.DefaultBufferBytes
	}
	return &Registry{
		cfg:      cfg,
		sessions: make(map[string]*Session),
	}
}

// Enqueue adds a song for a guild. With no existing session it joins
// the given voice channel, creates the session, and starts playback
// immediately; otherwise the song is appended without touching current
// playback. The returned position is 0 when the song plays now.
//
// A failed voice join is fatal to this attempt only: no session is
// created and the error carries the channel identity.
func (r *Registry) Enqueue(guildID, voiceChannelID string, song *Song) (int, error) {
	r.mu.Lock()
	if s, ok := r.sessions[guildID]; ok {
		if pos, accepted := s.enqueue(song); accepted {
			r.mu.Unlock()
			return pos, nil
		}
		// The session is draining; replace it below.
		delete(r.sessions, guildID)
	}
	r.mu.Unlock()

	// Join outside the lock: the voice handshake must not block other
	// guilds' operations.
	voice, err := r.cfg.Connector.Join(guildID, voiceChannelID)
	if err != nil {
		return 0, &JoinError{GuildID: guildID, ChannelID: voiceChannelID, Err: err}
	}

	r.mu.Lock()
	if s, ok := r.sessions[guildID]; ok {
		// Lost a race with a concurrent enqueue; fold into that
		// session and release the spare connection.
		if pos, accepted := s.enqueue(song); accepted {
			r.mu.Unlock()
			if err := voice.Close(); err != nil {
				log.Warn().Str("guild", guildID).Err(err).Msg("closing spare voice connection")
			}
			return pos, nil
		}
		delete(r.sessions, guildID)
	}

	s := newSession(guildID, voice, r.cfg, r.remove)
	s.enqueue(song)
	r.sessions[guildID] = s
	r.mu.Unlock()

	go s.run()
	log.Info().Str("guild", guildID).Str("channel", voiceChannelID).Msg("playback session started")
	return 0, nil
}

// remove drops a session from the table if it is still the current one
// for its guild. Called from the session's own goroutine on teardown.
func (r *Registry) remove(s *Session) {
	r.mu.Lock()
	if r.sessions[s.guildID] == s {
		delete(r.sessions, s.guildID)
	}
	r.mu.Unlock()
}

// Get returns the active session for a guild.
func (r *Registry) Get(guildID string) (*Session, bool) {
	r.mu.Lock()
	s, ok := r.sessions[guildID]
	r.mu.Unlock()
	return s, ok
}

// Skip advances past the current song as if it had completed.
func (r *Registry) Skip(guildID string) error {
	s, ok := r.Get(guildID)
	if !ok {
		return ErrNoSession
	}
	return s.Skip()
}

// Stop tears the guild's session down: subprocesses killed, queue
// cleared, voice connection released.
func (r *Registry) Stop(guildID string) error {
	s, ok := r.Get(guildID)
	if !ok {
		return ErrNoSession
	}
	s.Stop()
	return nil
}

// Pause suspends delivery for the guild's current song.
func (r *Registry) Pause(guildID string) error {
	s, ok := r.Get(guildID)
	if !ok {
		return ErrNoSession
	}
	return s.Pause()
}

// Resume restores delivery for the guild's current song.
func (r *Registry) Resume(guildID string) error {
	s, ok := r.Get(guildID)
	if !ok {
		return ErrNoSession
	}
	return s.Resume()
}

// Queue returns a copy of the guild's queue, head first.
func (r *Registry) Queue(guildID string) []*Song {
	s, ok := r.Get(guildID)
	if !ok {
		return nil
	}
	return s.Queue()
}

// NowPlaying returns the guild's current song.
func (r *Registry) NowPlaying(guildID string) (*Song, bool) {
	s, ok := r.Get(guildID)
	if !ok {
		return nil, false
	}
	return s.NowPlaying()
}

// StopAll stops every session and waits for teardown, bounded by the
// timeout. Used on shutdown so no subprocess outlives the bot.
func (r *Registry) StopAll(timeout time.Duration) {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.Unlock()

	deadline := time.After(timeout)
	for _, s := range sessions {
		s.Stop()
	}
	for _, s := range sessions {
		select {
		case <-s.Done():
		case <-deadline:
			log.Warn().Str("guild", s.guildID).Msg("session did not stop before shutdown deadline")
			return
		}
	}
}
