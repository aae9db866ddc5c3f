package tail

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLog() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return logrus.NewEntry(log)
}

type lineSink struct {
	mu    sync.Mutex
	lines []string
}

func (s *lineSink) add(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = append(s.lines, line)
}

func (s *lineSink) snapshot() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.lines...)
}

func (s *lineSink) waitFor(t *testing.T, n int) []string {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if lines := s.snapshot(); len(lines) >= n {
			return lines
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d lines, have %v", n, s.snapshot())
	return nil
}

func appendLine(t *testing.T, path, line string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	defer f.Close()
	_, err = f.WriteString(line + "\n")
	require.NoError(t, err)
}

func TestTailerSkipsExistingContent(t *testing.T) {
	// Arrange
	path := filepath.Join(t.TempDir(), "game.log")
	appendLine(t, path, "old line")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sink := &lineSink{}

	go New(path, 20*time.Millisecond, 5*time.Second, testLog()).Run(ctx, sink.add)
	time.Sleep(200 * time.Millisecond)

	// Act
	appendLine(t, path, "new line")

	// Assert
	lines := sink.waitFor(t, 1)
	assert.Equal(t, []string{"new line"}, lines)
}

func TestTailerDeliversLinesInOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "game.log")
	appendLine(t, path, "seed")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sink := &lineSink{}

	go New(path, 20*time.Millisecond, 5*time.Second, testLog()).Run(ctx, sink.add)
	time.Sleep(200 * time.Millisecond)

	appendLine(t, path, "one")
	appendLine(t, path, "two")
	appendLine(t, path, "three")

	assert.Equal(t, []string{"one", "two", "three"}, sink.waitFor(t, 3))
}

func TestTailerWaitsForMissingFile(t *testing.T) {
	// Arrange: the file does not exist when the tailer starts.
	path := filepath.Join(t.TempDir(), "game.log")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sink := &lineSink{}

	go New(path, 20*time.Millisecond, 5*time.Second, testLog()).Run(ctx, sink.add)
	time.Sleep(100 * time.Millisecond)

	// Act
	appendLine(t, path, "first")
	time.Sleep(200 * time.Millisecond)
	appendLine(t, path, "second")

	// Assert: content present at open time is skipped, later appends flow.
	assert.Equal(t, []string{"second"}, sink.waitFor(t, 1))
}

func TestTailerRecoversFromTruncation(t *testing.T) {
	// Arrange
	path := filepath.Join(t.TempDir(), "game.log")
	appendLine(t, path, "seed")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sink := &lineSink{}

	go New(path, 20*time.Millisecond, 5*time.Second, testLog()).Run(ctx, sink.add)
	time.Sleep(200 * time.Millisecond)

	appendLine(t, path, "before rotation")
	sink.waitFor(t, 1)

	// Act: game restart truncates the log.
	require.NoError(t, os.Truncate(path, 0))
	time.Sleep(600 * time.Millisecond)
	appendLine(t, path, "after rotation")

	// Assert
	lines := sink.waitFor(t, 2)
	assert.Equal(t, "after rotation", lines[len(lines)-1])
}

func TestTailerReopensWhenReplacementIsLarger(t *testing.T) {
	// Arrange
	path := filepath.Join(t.TempDir(), "game.log")
	appendLine(t, path, "seed")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sink := &lineSink{}

	go New(path, 20*time.Millisecond, 5*time.Second, testLog()).Run(ctx, sink.add)
	time.Sleep(200 * time.Millisecond)

	appendLine(t, path, "before rotation")
	sink.waitFor(t, 1)

	// Act: the game restart writes a fresh log that is already longer than
	// the position reached in the old one, so only the inode gives the
	// rotation away.
	require.NoError(t, os.Remove(path))
	appendLine(t, path, strings.Repeat("x", 200))
	appendLine(t, path, "after rotation")

	// Assert
	lines := sink.waitFor(t, 3)
	assert.Equal(t, "after rotation", lines[len(lines)-1])
}

func TestTailerFailsWhenFileNeverAppears(t *testing.T) {
	// Arrange
	path := filepath.Join(t.TempDir(), "game.log")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)

	// Act
	go func() {
		done <- New(path, 20*time.Millisecond, 150*time.Millisecond, testLog()).Run(ctx, func(string) {})
	}()

	// Assert
	select {
	case err := <-done:
		require.Error(t, err)
		assert.Contains(t, err.Error(), "did not appear")
	case <-time.After(2 * time.Second):
		t.Fatal("tailer did not give up on the missing file")
	}
}

func TestTailerStopsOnContextCancel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "game.log")
	appendLine(t, path, "seed")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- New(path, 20*time.Millisecond, 5*time.Second, testLog()).Run(ctx, func(string) {})
	}()
	time.Sleep(100 * time.Millisecond)

	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("tailer did not stop on cancel")
	}
}
