package benchmarks

import (
	"io"
	"log/slog"
	"math/rand"
	"strings"
)

// TestPost represents realistic forum post data for benchmarking
type TestPost struct {
	ID      int
	Author  string
	Body    string
	Tags    []string
	Flagged bool
}

// generateRealisticPosts creates posts with a realistic body size distribution
func generateRealisticPosts(n int) []TestPost {
	posts := make([]TestPost, n)
	tags := []string{"general", "support", "announcements", "off-topic"}

	for i := range posts {
		posts[i] = TestPost{
			ID:     i,
			Author: "user" + string(rune('a'+i%26)),
			Body:   strings.Repeat("lorem ipsum ", 20+rand.Intn(80)), // 240-1200 bytes
			Tags:   []string{tags[rand.Intn(len(tags))]},
		}
	}
	return posts
}

// quietLogger discards output so benchmarks measure dispatch, not logging
func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}
