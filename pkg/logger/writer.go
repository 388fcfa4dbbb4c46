package logger

import (
	"bufio"
	"bytes"
	"io"
	"sync"
	"time"
)

// BufferedWriter buffers log lines in memory and flushes them when the
// buffer fills, when the flush interval elapses, or immediately when an
// error/fatal level line is written.
type BufferedWriter struct {
	mu        sync.Mutex
	bufWriter *bufio.Writer
	stopChan  chan struct{}
	wg        sync.WaitGroup
}

// NewBufferedWriter creates a BufferedWriter flushing at the given interval
func NewBufferedWriter(w io.Writer, flushInterval time.Duration) *BufferedWriter {
	bw := &BufferedWriter{
		bufWriter: bufio.NewWriterSize(w, 256*1024),
		stopChan:  make(chan struct{}),
	}

	bw.wg.Add(1)
	go bw.runFlusher(flushInterval)

	return bw
}

// Write implements io.Writer
func (bw *BufferedWriter) Write(p []byte) (n int, err error) {
	bw.mu.Lock()
	defer bw.mu.Unlock()

	// Zerolog JSON format carries "level":"error" / "level":"fatal"
	isError := bytes.Contains(p, []byte(`"level":"error"`)) ||
		bytes.Contains(p, []byte(`"level":"fatal"`))

	n, err = bw.bufWriter.Write(p)

	if isError {
		_ = bw.bufWriter.Flush()
	}
	return n, err
}

// Sync flushes the buffer
func (bw *BufferedWriter) Sync() error {
	bw.mu.Lock()
	defer bw.mu.Unlock()
	return bw.bufWriter.Flush()
}

// Close stops the background flusher and flushes remaining data
func (bw *BufferedWriter) Close() error {
	close(bw.stopChan)
	bw.wg.Wait()
	return bw.Sync()
}

func (bw *BufferedWriter) runFlusher(interval time.Duration) {
	defer bw.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_ = bw.Sync()
		case <-bw.stopChan:
			return
		}
	}
}
