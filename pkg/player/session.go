package player

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"
)

// Session is the playback state for one guild. It owns the voice
// channel and, while a song plays, that song's process pair. A single
// goroutine (run) performs all queue advancement, so no two advance
// sequences ever interleave for the same guild.
type Session struct {
	guildID string
	voice   Channel
	streams StreamFactory
	buffer  int64

	onSongStart  func(guildID string, song *Song)
	onSessionEnd func(guildID string)
	onClose      func(s *Session)

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu      sync.Mutex
	songs   []*Song
	paused  bool
	skipFn  context.CancelCauseFunc
	playing bool
	closing bool
}

func newSession(guildID string, voice Channel, cfg Config, onClose func(*Session)) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		guildID:      guildID,
		voice:        voice,
		streams:      cfg.Streams,
		buffer:       cfg.BufferBytes,
		onSongStart:  cfg.OnSongStart,
		onSessionEnd: cfg.OnSessionEnd,
		onClose:      onClose,
		ctx:          ctx,
		cancel:       cancel,
		done:         make(chan struct{}),
	}
}

// enqueue appends a song and returns its position: 0 means head
// (playing or about to play). A session that has committed to closing
// rejects the song; the registry then starts a fresh session.
func (s *Session) enqueue(song *Song) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return 0, false
	}
	s.songs = append(s.songs, song)
	return len(s.songs) - 1, true
}

// run is the advancement loop. Each iteration plays the head song and
// dequeues it regardless of outcome, so a permanently failing source
// drains the queue instead of looping forever.
func (s *Session) run() {
	defer close(s.done)
	defer s.teardown()

	for {
		song := s.head()
		if song == nil {
			return
		}

		outcome := s.playHead(song)
		s.dequeueHead()

		log.Info().
			Str("guild", s.guildID).
			Str("title", song.Title).
			Stringer("outcome", outcome).
			Int("remaining", s.Len()).
			Msg("song finished")

		if outcome == OutcomeStopped {
			return
		}
	}
}

// playHead plays one song to completion and reports how it ended. The
// song's processes are live only within this call.
func (s *Session) playHead(song *Song) Outcome {
	songCtx, cancel := context.WithCancelCause(s.ctx)
	defer cancel(nil)

	s.setCurrent(cancel)
	defer s.clearCurrent()

	stream := song.stream
	if stream == nil {
		var err error
		stream, err = s.streams(songCtx, song.URL, s.buffer)
		if err != nil {
			if s.ctx.Err() != nil {
				return OutcomeStopped
			}
			log.Warn().
				Str("guild", s.guildID).
				Str("title", song.Title).
				Err(err).
				Msg("pipeline failed to start, dropping song")
			return OutcomeErrored
		}
		song.stream = stream
	}
	defer stream.Kill()

	// A blocked read does not observe ctx, so cancellation kills the
	// stream to unblock it. Covers skip, stop, and stop mid-buffer.
	go func() {
		<-songCtx.Done()
		stream.Kill()
	}()

	if s.onSongStart != nil {
		s.onSongStart(s.guildID, song)
	}
	log.Info().Str("guild", s.guildID).Str("title", song.Title).Msg("now playing")

	err := s.voice.Stream(songCtx, stream.Output())
	switch {
	case errors.Is(context.Cause(songCtx), errSkipped):
		return OutcomeSkipped
	case s.ctx.Err() != nil:
		return OutcomeStopped
	case err != nil:
		// Runtime playback errors advance the queue the same way a
		// natural end does.
		log.Warn().Str("guild", s.guildID).Str("title", song.Title).Err(err).Msg("playback error")
		return OutcomeErrored
	default:
		return OutcomeCompleted
	}
}

func (s *Session) teardown() {
	s.mu.Lock()
	s.songs = nil
	s.mu.Unlock()

	if err := s.voice.Close(); err != nil {
		log.Warn().Str("guild", s.guildID).Err(err).Msg("closing voice connection")
	}
	if s.onClose != nil {
		s.onClose(s)
	}
	if s.onSessionEnd != nil {
		s.onSessionEnd(s.guildID)
	}
	log.Debug().Str("guild", s.guildID).Msg("playback session closed")
}

// Skip cancels the current song as if it had completed. The queue
// advances through the normal outcome path.
func (s *Session) Skip() error {
	s.mu.Lock()
	skip := s.skipFn
	s.mu.Unlock()

	if skip == nil {
		return ErrNothingPlaying
	}
	skip(errSkipped)
	return nil
}

// Stop clears the queue and cancels the session. The current song's
// processes are killed even mid-buffer.
func (s *Session) Stop() {
	s.mu.Lock()
	s.songs = nil
	s.mu.Unlock()
	s.cancel()
}

// Pause suspends frame delivery. Subprocesses stay alive.
func (s *Session) Pause() error {
	return s.setPaused(true)
}

// Resume restores frame delivery.
func (s *Session) Resume() error {
	return s.setPaused(false)
}

func (s *Session) setPaused(paused bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.playing {
		return ErrNothingPlaying
	}
	s.paused = paused
	s.voice.SetPaused(paused)
	return nil
}

// Paused reports whether delivery is currently suspended.
func (s *Session) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

// NowPlaying returns the head song if one is playing.
func (s *Session) NowPlaying() (*Song, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.playing || len(s.songs) == 0 {
		return nil, false
	}
	return s.songs[0], true
}

// Queue returns a copy of the queue; index 0 is the head song.
func (s *Session) Queue() []*Song {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Song, len(s.songs))
	copy(out, s.songs)
	return out
}

// Len returns the number of queued songs including the head.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.songs)
}

// Done is closed once the session has fully torn down.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// head returns the next song, or nil after atomically marking the
// session as closing so no enqueue can slip in between the empty check
// and teardown.
func (s *Session) head() *Song {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.songs) == 0 || s.ctx.Err() != nil {
		s.closing = true
		return nil
	}
	return s.songs[0]
}

func (s *Session) dequeueHead() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.songs) > 0 {
		s.songs = s.songs[1:]
	}
}

func (s *Session) setCurrent(skip context.CancelCauseFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.skipFn = skip
	s.playing = true
}

func (s *Session) clearCurrent() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.skipFn = nil
	s.playing = false
	s.paused = false
}
