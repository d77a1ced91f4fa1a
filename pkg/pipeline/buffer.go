package pipeline

import (
	"io"
	"sync"
)

// prebuffer is the pass-through stream between the transcoder and the
// voice streamer. Writes append and count bytes; reads block until data
// arrives or the write side is closed. Unread bytes are capped at max:
// a writer stalls once the cap is reached and resumes as the reader
// drains, so the transcoder sees pipe-style backpressure instead of the
// whole track accumulating in memory. The notify channel carries a
// coalesced progress signal for the buffering wait in Create.
type prebuffer struct {
	mu      sync.Mutex
	cond    *sync.Cond
	buf     []byte
	max     int64
	written int64
	closed  bool
	err     error

	notify chan struct{}
}

func newPrebuffer(max int64) *prebuffer {
	b := &prebuffer{max: max, notify: make(chan struct{}, 1)}
	b.cond = sync.NewCond(&b.mu)
	return b
}

func (b *prebuffer) Write(p []byte) (int, error) {
	b.mu.Lock()

	written := 0
	for len(p) > 0 {
		for !b.closed && int64(len(b.buf)) >= b.max {
			b.cond.Wait()
		}
		if b.closed {
			b.mu.Unlock()
			if written > 0 {
				b.signal()
			}
			return written, io.ErrClosedPipe
		}

		room := b.max - int64(len(b.buf))
		chunk := int64(len(p))
		if chunk > room {
			chunk = room
		}
		b.buf = append(b.buf, p[:chunk]...)
		b.written += chunk
		written += int(chunk)
		p = p[chunk:]
		b.cond.Broadcast()
	}
	b.mu.Unlock()

	b.signal()
	return written, nil
}

func (b *prebuffer) Read(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for len(b.buf) == 0 && !b.closed {
		b.cond.Wait()
	}
	if len(b.buf) == 0 {
		if b.err != nil {
			return 0, b.err
		}
		return 0, io.EOF
	}
	n := copy(p, b.buf)
	b.buf = b.buf[n:]
	// Wake a writer stalled on the cap.
	b.cond.Broadcast()
	return n, nil
}

// closeWrite ends the stream. The first close wins; err == nil means a
// natural end-of-stream, readers drain the remainder and then see EOF.
// Stalled writers unblock and fail their write.
func (b *prebuffer) closeWrite(err error) {
	b.mu.Lock()
	if !b.closed {
		b.closed = true
		b.err = err
		b.cond.Broadcast()
	}
	b.mu.Unlock()

	b.signal()
}

func (b *prebuffer) Written() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.written
}

func (b *prebuffer) status() (written int64, closed bool, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.written, b.closed, b.err
}

func (b *prebuffer) signal() {
	select {
	case b.notify <- struct{}{}:
	default:
	}
}
