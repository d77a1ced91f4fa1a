// Package player owns per-guild playback state: the queue of pending
// songs, the voice connection, and the downloader/transcoder pair bound
// to the song currently playing. Queue advancement is driven by the
// outcome of each playback attempt, so completion, skip, and failure all
// share one code path and FIFO order of the remainder is preserved.
package player

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

// Song is one queue entry. The stream handle is attached when the song
// becomes the head of the queue and released when it is dequeued.
type Song struct {
	Title       string
	URL         string
	RequestedBy string
	Duration    time.Duration

	stream Stream
}

// Stream is the buffered output of a running pipeline, owned by exactly
// one Song until that song is dequeued.
type Stream interface {
	Output() io.Reader
	Kill()
}

// StreamFactory creates the pipeline for a song when it reaches the
// head of the queue. Cancelling ctx must abort a pending creation.
type StreamFactory func(ctx context.Context, url string, targetBytes int64) (Stream, error)

// Channel is an established voice connection that accepts raw PCM
// (s16le, 48kHz, stereo). The transport does not decode the stream
// again; it only packetizes it.
type Channel interface {
	// Stream delivers PCM from src until end-of-stream or ctx
	// cancellation. A nil return means the song played to its end.
	Stream(ctx context.Context, src io.Reader) error
	// SetPaused toggles frame delivery without consuming src.
	SetPaused(paused bool)
	Close() error
}

// Connector joins guild voice channels.
type Connector interface {
	Join(guildID, channelID string) (Channel, error)
}

// Outcome is the result of playing one song to completion, consumed by
// the queue-advancement loop.
type Outcome int

const (
	OutcomeCompleted Outcome = iota
	OutcomeErrored
	OutcomeSkipped
	OutcomeStopped
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomeErrored:
		return "errored"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

var (
	// ErrNoSession is returned for operations on a guild with no
	// active playback session.
	ErrNoSession = errors.New("player: no active session for guild")

	// ErrNothingPlaying is returned when skip/pause/resume find no
	// current song.
	ErrNothingPlaying = errors.New("player: nothing is playing")

	errSkipped = errors.New("player: song skipped")
)

// JoinError means the voice handshake failed. Fatal to the enqueue
// attempt: no session is created and the error is surfaced to the
// caller.
type JoinError struct {
	GuildID   string
	ChannelID string
	Err       error
}

func (e *JoinError) Error() string {
	return fmt.Sprintf("player: joining voice channel %s in guild %s: %v", e.ChannelID, e.GuildID, e.Err)
}

func (e *JoinError) Unwrap() error { return e.Err }
