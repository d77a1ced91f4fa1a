package pipeline

import (
	"context"
	"errors"
	"io"
	"os/exec"
	"strings"
	"testing"
	"time"
)

func shCmd(script string) *exec.Cmd {
	return exec.Command("sh", "-c", script)
}

// testOptions wires shell producers in place of yt-dlp/ffmpeg. The
// downloader script writes bytes to stdout, the transcoder is cat.
func testOptions(producer string) Options {
	return Options{
		BufferTimeout:     5 * time.Second,
		DownloaderCommand: func(string) *exec.Cmd { return shCmd(producer) },
		TranscoderCommand: func() *exec.Cmd { return exec.Command("cat") },
	}
}

func waitDone(t *testing.T, p *Pipeline) {
	t.Helper()
	select {
	case <-p.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("pipeline processes were not reaped")
	}
}

func TestCreateResolvesAtThreshold(t *testing.T) {
	opts := testOptions("head -c 262144 /dev/zero")

	p, err := Create(context.Background(), "test://song", 65536, opts)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	defer p.Kill()

	if got := p.Buffered(); got < 65536 {
		t.Errorf("buffered %d bytes, want at least 65536", got)
	}

	data, err := io.ReadAll(p.Output())
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	if len(data) != 262144 {
		t.Errorf("read %d bytes, want 262144", len(data))
	}
	waitDone(t, p)
}

func TestCreateBoundsBufferWithoutConsumer(t *testing.T) {
	// The producer emits far more than the target; with nobody reading
	// the output, the pipeline must hold only the target, not the track.
	opts := testOptions("head -c 1048576 /dev/zero")

	p, err := Create(context.Background(), "test://long", 4096, opts)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	defer p.Kill()

	time.Sleep(200 * time.Millisecond)
	if got := p.Buffered(); got != 4096 {
		t.Errorf("buffered %d bytes with no consumer, want 4096", got)
	}

	// Consuming releases the stall and the full stream comes through.
	data, err := io.ReadAll(p.Output())
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	if len(data) != 1048576 {
		t.Errorf("read %d bytes, want 1048576", len(data))
	}
	waitDone(t, p)
}

func TestCreateResolvesAtEOFBeforeThreshold(t *testing.T) {
	opts := testOptions("printf 'hello'")

	start := time.Now()
	p, err := Create(context.Background(), "test://short", DefaultBufferBytes, opts)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	defer p.Kill()

	// Short media resolves at end-of-stream, not at the timeout.
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Create took %s, expected prompt resolve on EOF", elapsed)
	}

	data, err := io.ReadAll(p.Output())
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("output = %q, want %q", data, "hello")
	}
	waitDone(t, p)
}

func TestCreateRejectsBadArguments(t *testing.T) {
	if _, err := Create(context.Background(), "", 1024, testOptions("true")); err == nil {
		t.Error("expected error for empty url")
	}
	if _, err := Create(context.Background(), "test://x", 0, testOptions("true")); err == nil {
		t.Error("expected error for non-positive target")
	}
}

func TestDownloaderSpawnFailure(t *testing.T) {
	opts := Options{
		BufferTimeout:     time.Second,
		DownloaderCommand: func(string) *exec.Cmd { return exec.Command("/nonexistent/downloader") },
		TranscoderCommand: func() *exec.Cmd { return exec.Command("cat") },
	}

	_, err := Create(context.Background(), "test://x", 1024, opts)
	var serr *StartError
	if !errors.As(err, &serr) {
		t.Fatalf("expected StartError, got %v", err)
	}
	if serr.Process != ProcDownloader {
		t.Errorf("failing process = %s, want %s", serr.Process, ProcDownloader)
	}
}

func TestTranscoderSpawnFailure(t *testing.T) {
	opts := Options{
		BufferTimeout:     time.Second,
		DownloaderCommand: func(string) *exec.Cmd { return shCmd("sleep 10") },
		TranscoderCommand: func() *exec.Cmd { return exec.Command("/nonexistent/transcoder") },
	}

	_, err := Create(context.Background(), "test://x", 1024, opts)
	var serr *StartError
	if !errors.As(err, &serr) {
		t.Fatalf("expected StartError, got %v", err)
	}
	if serr.Process != ProcTranscoder {
		t.Errorf("failing process = %s, want %s", serr.Process, ProcTranscoder)
	}
}

func TestDownloaderExitWithoutOutputIsStartError(t *testing.T) {
	opts := testOptions("echo 'no such video' >&2; exit 3")

	_, err := Create(context.Background(), "test://gone", 1024, opts)
	var serr *StartError
	if !errors.As(err, &serr) {
		t.Fatalf("expected StartError, got %v", err)
	}
	if serr.Process != ProcDownloader {
		t.Errorf("failing process = %s, want %s", serr.Process, ProcDownloader)
	}
	if !strings.Contains(serr.Stderr, "no such video") {
		t.Errorf("stderr not captured: %q", serr.Stderr)
	}
}

func TestCleanExitWithoutOutputIsStartError(t *testing.T) {
	opts := testOptions("exit 0")

	_, err := Create(context.Background(), "test://empty", 1024, opts)
	var serr *StartError
	if !errors.As(err, &serr) {
		t.Fatalf("expected StartError, got %v", err)
	}
	if serr.Process != ProcDownloader {
		t.Errorf("failing process = %s, want %s", serr.Process, ProcDownloader)
	}
}

func TestBufferTimeout(t *testing.T) {
	opts := testOptions("sleep 30")
	opts.BufferTimeout = 200 * time.Millisecond

	_, err := Create(context.Background(), "test://hung", 1024, opts)
	if !errors.Is(err, ErrBufferTimeout) {
		t.Fatalf("expected ErrBufferTimeout, got %v", err)
	}
}

func TestContextCancelDuringBuffering(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err := Create(ctx, "test://hung", 1024, testOptions("sleep 30"))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestKillTerminatesBothProcesses(t *testing.T) {
	// Endless producer: playback starts at the threshold while the
	// processes keep running.
	opts := testOptions("while :; do head -c 4096 /dev/zero || exit; done")

	p, err := Create(context.Background(), "test://endless", 16384, opts)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	p.Kill()
	p.Kill() // idempotent
	waitDone(t, p)

	// The reader must not block forever after a kill.
	buf := make([]byte, 4096)
	for {
		if _, err := p.Output().Read(buf); err != nil {
			break
		}
	}
}
