package tests

import (
	"bytes"
	"context"
	"regexp"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nikhilr-aj-png/EarnFlow-sub000/pkg/logger"
)

// syncBuffer guards a bytes.Buffer against the background flusher
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestRequestIDPropagation(t *testing.T) {
	out := &syncBuffer{}
	logger.Init(logger.Config{Level: "info", Format: "json", Output: out})

	requestID := logger.GenerateRequestID()
	ctx := logger.WithRequestID(context.Background(), requestID)

	logger.Info(ctx).Str("component", "settlement").Msg("request id propagation check")
	logger.Flush()

	content := out.String()
	assert.Contains(t, content, requestID, "request ID missing from log line")
	assert.Contains(t, content, `"component":"settlement"`)
	assert.Equal(t, requestID, logger.GetRequestID(ctx))
}

func TestErrorLinesFlushImmediately(t *testing.T) {
	out := &syncBuffer{}
	logger.Init(logger.Config{Level: "info", Format: "json", Output: out})

	// Error-level lines must hit the underlying writer without waiting
	// for the flush ticker or an explicit Flush.
	logger.ErrorGlobal().Msg("immediate flush check")

	assert.Contains(t, out.String(), "immediate flush check")
}

func TestWithFieldsChaining(t *testing.T) {
	out := &syncBuffer{}
	logger.Init(logger.Config{Level: "info", Format: "json", Output: out})

	ctx := logger.WithRequestID(context.Background(), "req-chain")
	ctx = logger.WithFields(ctx, map[string]interface{}{"round_id": "r-42"})
	ctx = logger.WithFields(ctx, map[string]interface{}{"user_id": int64(7)})

	logger.Info(ctx).Msg("chained fields check")
	logger.Flush()

	content := out.String()
	assert.Contains(t, content, `"request_id":"req-chain"`)
	assert.Contains(t, content, `"round_id":"r-42"`)
	assert.Contains(t, content, `"user_id":7`)
}

func TestGenerateRequestIDFormat(t *testing.T) {
	pattern := regexp.MustCompile(`^\d{14}-\d{6}-[0-9a-f]{6}$`)

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := logger.GenerateRequestID()
		assert.Regexp(t, pattern, id)
		assert.False(t, seen[id], "duplicate request ID %s", id)
		seen[id] = true
	}
}
