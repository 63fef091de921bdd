package process

import (
	"bytes"
	"sync"
)

// maxLineLength bounds a buffered partial line. Longer output without a
// newline is emitted in chunks.
const maxLineLength = 1 << 20

// lineWriter splits written bytes into lines and hands each complete line
// to emit.
type lineWriter struct {
	mu   sync.Mutex
	buf  []byte
	emit func(string)
}

func newLineWriter(emit func(string)) *lineWriter {
	if emit == nil {
		return nil
	}
	return &lineWriter{emit: emit}
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf = append(w.buf, p...)
	consumed := 0
	for {
		i := bytes.IndexByte(w.buf[consumed:], '\n')
		if i < 0 {
			break
		}
		w.emit(string(bytes.TrimSuffix(w.buf[consumed:consumed+i], []byte{'\r'})))
		consumed += i + 1
	}
	for len(w.buf)-consumed >= maxLineLength {
		w.emit(string(w.buf[consumed : consumed+maxLineLength]))
		consumed += maxLineLength
	}
	if consumed > 0 {
		w.buf = append(w.buf[:0], w.buf[consumed:]...)
	}
	return len(p), nil
}

// Flush emits a trailing line that had no newline.
func (w *lineWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.buf) > 0 {
		w.emit(string(bytes.TrimSuffix(w.buf, []byte{'\r'})))
		w.buf = w.buf[:0]
	}
}
