package progress

import (
	"context"
	"log"
	"os"
	"time"
)

// gracePause is the re-check delay once growth appears to have stopped.
const gracePause = 2 * time.Second

// MonitorOptions tunes the growth poll loop.
type MonitorOptions struct {
	Timeout        time.Duration
	PollInterval   time.Duration
	StallThreshold time.Duration
	// Done, when non-nil, is an explicit completion signal from the fetcher.
	// A nil receive verifies and completes the download; an error fails it.
	// Without it, a stall past StallThreshold is presumed to be completion.
	Done <-chan error
}

// MonitorGrowth polls a file that an external writer is growing and decides
// when the download is finished. A file that does not exist yet is not counted
// as stalled. It returns true only when the download completed and verified.
func (m *Manager) MonitorGrowth(ctx context.Context, id, path string, opts MonitorOptions) bool {
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}
	if opts.StallThreshold <= 0 {
		opts.StallThreshold = 30 * time.Second
	}

	start := time.Now()
	var lastSize int64
	var noProgress time.Duration

	log.Printf("monitoring download growth: %s (%s)", id, path)

	for {
		select {
		case <-ctx.Done():
			m.MarkFailed(id, ctx.Err().Error())
			return false
		case err, ok := <-opts.Done:
			if ok && err != nil {
				m.MarkFailed(id, err.Error())
				return false
			}
			return m.MarkCompleted(id, path)
		case <-time.After(opts.PollInterval):
		}

		if opts.Timeout > 0 && time.Since(start) > opts.Timeout {
			m.MarkTimedOut(id)
			log.Printf("download timed out after %.1fs: %s", time.Since(start).Seconds(), id)
			return false
		}

		stat, err := os.Stat(path)
		if err != nil {
			continue
		}
		currentSize := stat.Size()
		m.Update(id, currentSize)

		if currentSize > lastSize {
			lastSize = currentSize
			noProgress = 0
			continue
		}
		noProgress += opts.PollInterval

		if noProgress <= opts.StallThreshold {
			continue
		}
		if opts.Done != nil {
			// Explicit completion signal available: a stall is not proof of
			// completion, keep waiting until the signal or the timeout.
			continue
		}

		// Growth stopped. Re-check once after a short grace pause; if the
		// size still has not moved, presume the download finished and verify.
		time.Sleep(gracePause)
		if stat, err := os.Stat(path); err == nil && stat.Size() == currentSize {
			return m.MarkCompleted(id, path)
		}
		noProgress = 0
	}
}
