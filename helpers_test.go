package hookbus

import (
	"bytes"
	"log/slog"
	"strings"
	"sync"
)

// Test hook names shared across files
const (
	TestTransform   Key = "filter:test.transform"
	TestNotify      Key = "action:test.notify"
	TestGather      Key = "static:test.gather"
	TestUnknownKind Key = "custom:test.unknown"
)

// syncBuffer collects log output written from several goroutines.
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

func (b *syncBuffer) Contains(s string) bool {
	return strings.Contains(b.String(), s)
}

func newTestLogger() (*slog.Logger, *syncBuffer) {
	buf := &syncBuffer{}
	handler := slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	return slog.New(handler), buf
}

func newTestHooks[T any](opts ...Option) (*Hooks[T], *syncBuffer) {
	logger, buf := newTestLogger()
	return New[T](append([]Option{WithLogger(logger)}, opts...)...), buf
}
