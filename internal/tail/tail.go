// Package tail follows an append-only log file by polling. The game writes
// its log with buffered appends and replaces the file on restart, so the
// tailer has to survive truncation, rotation and the file not existing yet.
package tail

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// DefaultInterval is the poll delay once the reader has caught up.
	DefaultInterval = 200 * time.Millisecond
	// DefaultWaitTimeout bounds how long Run waits for the log file to
	// appear before failing.
	DefaultWaitTimeout = 300 * time.Second
	// settleDelay gives the game a moment to finish re-creating the file
	// after a rotation before we start reading it.
	settleDelay = 200 * time.Millisecond
)

// Tailer follows one file and hands complete lines to a callback.
type Tailer struct {
	path        string
	interval    time.Duration
	waitTimeout time.Duration
	log         *logrus.Entry
}

func New(path string, interval, waitTimeout time.Duration, log *logrus.Entry) *Tailer {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if waitTimeout <= 0 {
		waitTimeout = DefaultWaitTimeout
	}
	return &Tailer{path: path, interval: interval, waitTimeout: waitTimeout, log: log}
}

// Run follows the file until the context is cancelled. Only lines appended
// after Run starts are delivered; the existing content is skipped so a daemon
// restart does not replay the whole session.
func (t *Tailer) Run(ctx context.Context, handle func(line string)) error {
	file, err := t.waitForFile(ctx)
	if err != nil {
		return err
	}
	if _, err := file.Seek(0, io.SeekEnd); err != nil {
		file.Close()
		return err
	}
	openInfo, err := file.Stat()
	if err != nil {
		file.Close()
		return err
	}
	t.log.WithField("path", t.path).Info("Following log file")

	reader := bufio.NewReader(file)
	var partial strings.Builder
	pos, _ := file.Seek(0, io.SeekCurrent)

	defer func() { file.Close() }()

	for {
		chunk, err := reader.ReadString('\n')
		pos += int64(len(chunk))

		if err == nil {
			partial.WriteString(chunk)
			handle(strings.TrimRight(partial.String(), "\r\n"))
			partial.Reset()
			continue
		}
		if err != io.EOF {
			return err
		}
		partial.WriteString(chunk)

		// Caught up. Sleep, then check whether the file shrank or was
		// replaced underneath us.
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(t.interval):
		}

		// The game replaces the log on restart, and the replacement can
		// already be longer than our position in the old one. Size alone
		// cannot catch that, so the path's identity is checked too; we are
		// still holding the deleted inode otherwise.
		info, statErr := os.Stat(t.path)
		if statErr != nil || info.Size() < pos || !os.SameFile(info, openInfo) {
			t.log.WithField("path", t.path).Warn("Log file rotated or truncated, reopening")
			file.Close()

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(settleDelay):
			}

			file, err = t.waitForFile(ctx)
			if err != nil {
				return err
			}
			openInfo, err = file.Stat()
			if err != nil {
				file.Close()
				return err
			}
			reader = bufio.NewReader(file)
			partial.Reset()
			pos = 0
		}
	}
}

// waitForFile polls until the file exists, the wait timeout expires or the
// context ends.
func (t *Tailer) waitForFile(ctx context.Context) (*os.File, error) {
	deadline := time.Now().Add(t.waitTimeout)
	logged := false
	for {
		file, err := os.Open(t.path)
		if err == nil {
			return file, nil
		}
		if !os.IsNotExist(err) {
			return nil, err
		}
		if !logged {
			t.log.WithField("path", t.path).Info("Waiting for log file to appear")
			logged = true
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("log file did not appear within %s: %s", t.waitTimeout, t.path)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(t.interval):
		}
	}
}
