package protocol

import (
	"bytes"
	"errors"
	"fmt"
)

// DefaultMaxFrame bounds the carry-over kept while waiting for a delimiter.
const DefaultMaxFrame = 64 * 1024

var ErrFrameTooLarge = errors.New("frame exceeds size limit")

// Framer reassembles delimiter-terminated frames from arbitrarily split
// byte chunks. It keeps the bytes seen since the last delimiter between
// calls. A Framer is owned by one connection and is not safe for
// concurrent use.
type Framer struct {
	buf []byte
	max int
}

// NewFramer returns a Framer that discards any partial frame longer than
// limit bytes. limit <= 0 selects DefaultMaxFrame.
func NewFramer(limit int) *Framer {
	if limit <= 0 {
		limit = DefaultMaxFrame
	}
	return &Framer{max: limit}
}

// Feed appends chunk to the carry-over and returns every complete frame in
// arrival order. Empty frames between consecutive delimiters are skipped.
//
// If the trailing partial frame outgrows the limit it is dropped and
// ErrFrameTooLarge is returned along with the frames completed before it.
func (f *Framer) Feed(chunk []byte) ([][]byte, error) {
	f.buf = append(f.buf, chunk...)

	var frames [][]byte
	for {
		i := bytes.Index(f.buf, Delimiter)
		if i < 0 {
			break
		}
		if i > 0 {
			frame := make([]byte, i)
			copy(frame, f.buf[:i])
			frames = append(frames, frame)
		}
		f.buf = f.buf[i+len(Delimiter):]
	}

	if len(f.buf) > f.max {
		n := len(f.buf)
		f.buf = nil
		return frames, fmt.Errorf("%w: %d bytes pending", ErrFrameTooLarge, n)
	}
	if len(f.buf) == 0 {
		f.buf = nil
	} else {
		// Compact so the consumed prefix can be collected.
		f.buf = append([]byte(nil), f.buf...)
	}
	return frames, nil
}

// Buffered returns the number of bytes held waiting for a delimiter.
func (f *Framer) Buffered() int {
	return len(f.buf)
}

// Reset drops any partial frame.
func (f *Framer) Reset() {
	f.buf = nil
}
