package pipeline

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Process identifies which half of the pipeline failed.
type Process string

const (
	ProcDownloader Process = "downloader"
	ProcTranscoder Process = "transcoder"
)

// ErrBufferTimeout is returned when the pipeline produces no usable
// buffer within the configured timeout.
var ErrBufferTimeout = errors.New("buffering timed out")

// errNoStream marks a downloader that exited without writing a byte.
var errNoStream = errors.New("exited without producing a stream")

// StartError reports that a pipeline process failed to start or died
// before producing any output. Not retriable for the same URL.
type StartError struct {
	Process Process
	Err     error
	Stderr  string
}

func (e *StartError) Error() string {
	if s := strings.TrimSpace(e.Stderr); s != "" {
		return fmt.Sprintf("pipeline: %s failed: %v: %s", e.Process, e.Err, s)
	}
	return fmt.Sprintf("pipeline: %s failed: %v", e.Process, e.Err)
}

func (e *StartError) Unwrap() error { return e.Err }

// tailBuffer keeps the last max bytes written to it. Used to capture
// process stderr for error reports without growing unbounded.
type tailBuffer struct {
	mu  sync.Mutex
	max int
	buf []byte
}

func newTailBuffer(max int) *tailBuffer {
	return &tailBuffer{max: max}
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, p...)
	if len(t.buf) > t.max {
		t.buf = t.buf[len(t.buf)-t.max:]
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.buf)
}
