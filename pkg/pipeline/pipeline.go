// Package pipeline spawns the downloader and transcoder processes for a
// single song and exposes the transcoder's PCM output as a pre-buffered
// byte stream. The stream is withheld from the caller until a minimum
// number of bytes has been produced, so playback starts without a stall.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	// DefaultBufferBytes is the prefix buffered before playback starts.
	DefaultBufferBytes int64 = 5 * 1024 * 1024

	// DefaultBufferTimeout bounds how long Create waits for the buffer
	// threshold before giving up on a hung pipeline.
	DefaultBufferTimeout = 30 * time.Second

	// PCM output format fed to the voice transport.
	SampleRate = 48000
	Channels   = 2
)

// Options configures the external processes. The zero value uses yt-dlp
// and ffmpeg from PATH. The command hooks exist so tests can substitute
// shell producers for the real binaries.
type Options struct {
	Downloader    string
	Transcoder    string
	BufferTimeout time.Duration

	DownloaderCommand func(url string) *exec.Cmd
	TranscoderCommand func() *exec.Cmd
}

func (o Options) withDefaults() Options {
	if o.Downloader == "" {
		o.Downloader = "yt-dlp"
	}
	if o.Transcoder == "" {
		o.Transcoder = "ffmpeg"
	}
	if o.BufferTimeout <= 0 {
		o.BufferTimeout = DefaultBufferTimeout
	}
	return o
}

func (o Options) downloaderCmd(url string) *exec.Cmd {
	if o.DownloaderCommand != nil {
		return o.DownloaderCommand(url)
	}
	return exec.Command(o.Downloader, "-o", "-", "-f", "bestaudio", url)
}

func (o Options) transcoderCmd() *exec.Cmd {
	if o.TranscoderCommand != nil {
		return o.TranscoderCommand()
	}
	return exec.Command(o.Transcoder,
		"-hide_banner",
		"-loglevel", "error",
		"-i", "pipe:0",
		"-f", "s16le",
		"-ar", strconv.Itoa(SampleRate),
		"-ac", strconv.Itoa(Channels),
		"pipe:1")
}

// Pipeline owns the downloader/transcoder pair for one song. The caller
// is responsible for terminating both processes via Kill; consuming the
// output stream alone does not reap them.
type Pipeline struct {
	downloader *exec.Cmd
	transcoder *exec.Cmd
	out        *prebuffer
	dlStderr   *tailBuffer
	tcStderr   *tailBuffer

	killOnce sync.Once
	done     chan struct{}
}

// Create starts both processes, pipes downloader stdout into transcoder
// stdin, and blocks until the transcoder has produced targetBytes of
// output or signalled end-of-stream, whichever happens first. The
// buffer never holds more than targetBytes of unread output; past the
// threshold the transcoder is paced by the consumer.
//
// A process that fails to start, or exits before producing any output,
// yields a *StartError; the song is not retriable. A pipeline that
// produces nothing within the buffer timeout fails with ErrBufferTimeout.
func Create(ctx context.Context, url string, targetBytes int64, opts Options) (*Pipeline, error) {
	if url == "" {
		return nil, fmt.Errorf("pipeline: empty url")
	}
	if targetBytes <= 0 {
		return nil, fmt.Errorf("pipeline: target buffer size must be positive, got %d", targetBytes)
	}
	opts = opts.withDefaults()

	dl := opts.downloaderCmd(url)
	tc := opts.transcoderCmd()

	p := &Pipeline{
		downloader: dl,
		transcoder: tc,
		out:        newPrebuffer(targetBytes),
		dlStderr:   newTailBuffer(1024),
		tcStderr:   newTailBuffer(1024),
	}
	dl.Stderr = p.dlStderr
	tc.Stderr = p.tcStderr

	dlOut, err := dl.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("pipeline: downloader stdout pipe: %w", err)
	}
	tc.Stdin = dlOut
	tcOut, err := tc.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("pipeline: transcoder stdout pipe: %w", err)
	}

	if err := dl.Start(); err != nil {
		return nil, &StartError{Process: ProcDownloader, Err: err}
	}
	if err := tc.Start(); err != nil {
		dl.Process.Kill()
		dl.Wait()
		return nil, &StartError{Process: ProcTranscoder, Err: err}
	}

	dlDone := make(chan error, 1)
	go func() { dlDone <- dl.Wait() }()

	p.done = make(chan struct{})
	go p.supervise(tcOut, dlDone)

	if err := p.waitBuffered(ctx, targetBytes, opts.BufferTimeout); err != nil {
		p.Kill()
		return nil, err
	}

	log.Debug().
		Str("url", url).
		Int64("buffered", p.Buffered()).
		Int64("target", targetBytes).
		Msg("pipeline ready")
	return p, nil
}

// supervise copies transcoder output into the buffer, reaps both
// processes, and closes the buffer when the stream ends. An exit with
// zero bytes produced is classified as a start failure of whichever
// process died with an error.
func (p *Pipeline) supervise(tcOut io.Reader, dlDone <-chan error) {
	defer close(p.done)

	_, copyErr := io.Copy(p.out, tcOut)
	tcErr := p.transcoder.Wait()

	var dlErr error
	dlReaped := false

	if p.out.Written() == 0 {
		// Give the downloader reaper a moment to report so a dead
		// downloader is attributed correctly instead of surfacing as a
		// clean zero-byte EOF.
		select {
		case dlErr = <-dlDone:
			dlReaped = true
		case <-time.After(200 * time.Millisecond):
		}

		switch {
		case dlErr != nil:
			p.out.closeWrite(&StartError{Process: ProcDownloader, Err: dlErr, Stderr: p.dlStderr.String()})
		case tcErr != nil:
			p.out.closeWrite(&StartError{Process: ProcTranscoder, Err: tcErr, Stderr: p.tcStderr.String()})
		case copyErr != nil:
			p.out.closeWrite(&StartError{Process: ProcTranscoder, Err: copyErr, Stderr: p.tcStderr.String()})
		default:
			// Both processes exited cleanly without ever producing a
			// stream. Still a dead song, attributed to the source.
			p.out.closeWrite(&StartError{Process: ProcDownloader, Err: errNoStream, Stderr: p.dlStderr.String()})
		}
	} else {
		switch {
		case tcErr != nil:
			log.Warn().Err(tcErr).Int64("written", p.out.Written()).Msg("transcoder ended abnormally")
			p.out.closeWrite(fmt.Errorf("pipeline: transcoder: %w", tcErr))
		case copyErr != nil:
			log.Warn().Err(copyErr).Int64("written", p.out.Written()).Msg("stream copy ended abnormally")
			p.out.closeWrite(fmt.Errorf("pipeline: stream: %w", copyErr))
		default:
			p.out.closeWrite(nil)
		}
	}

	if !dlReaped {
		<-dlDone
	}
}

// waitBuffered blocks until the byte counter reaches target or the
// stream is closed. The write path signals the buffer's notify channel,
// so the wait wakes on progress rather than polling; process failures
// arrive as the buffer's close error.
func (p *Pipeline) waitBuffered(ctx context.Context, target int64, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		written, closed, err := p.out.status()
		if err != nil {
			return err
		}
		if written >= target || closed {
			return nil
		}
		select {
		case <-p.out.notify:
		case <-timer.C:
			return fmt.Errorf("pipeline: %w after %s (%d/%d bytes)", ErrBufferTimeout, timeout, written, target)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Output returns the buffered PCM stream. It already contains the
// buffered prefix and keeps receiving bytes as the transcoder produces
// them; reads block until data is available or the stream is closed.
func (p *Pipeline) Output() io.Reader {
	return p.out
}

// Buffered returns the total number of bytes produced so far.
func (p *Pipeline) Buffered() int64 {
	return p.out.Written()
}

// Kill terminates both processes and unblocks any pending reads.
// Safe to call more than once and mid-buffer.
func (p *Pipeline) Kill() {
	p.killOnce.Do(func() {
		if p.transcoder.Process != nil {
			p.transcoder.Process.Kill()
		}
		if p.downloader.Process != nil {
			p.downloader.Process.Kill()
		}
		p.out.closeWrite(io.ErrClosedPipe)
	})
}

// Done is closed once the output stream has ended and both processes
// have been reaped.
func (p *Pipeline) Done() <-chan struct{} {
	return p.done
}
