package progress

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonitorGrowthPresumedCompletion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.mp4")
	m := NewManager()
	id := m.Register(path, "http://example.com/clip.mp4", 1024)

	go func() {
		f, err := os.Create(path)
		if err != nil {
			return
		}
		defer f.Close()
		for _, size := range []int{256, 256, 512} {
			f.Write(make([]byte, size))
			f.Sync()
			time.Sleep(30 * time.Millisecond)
		}
	}()

	done := m.MonitorGrowth(context.Background(), id, path, MonitorOptions{
		Timeout:        10 * time.Second,
		PollInterval:   10 * time.Millisecond,
		StallThreshold: 100 * time.Millisecond,
	})

	assert.True(t, done)
	require.Len(t, m.Completed(), 1)
	rec := m.Completed()[0]
	assert.Equal(t, StatusCompleted, rec.Status)
	assert.Equal(t, int64(1024), rec.Downloaded)
}

func TestMonitorGrowthFileNeverAppears(t *testing.T) {
	path := filepath.Join(t.TempDir(), "never.mp4")
	m := NewManager()
	id := m.Register(path, "http://example.com/never.mp4", 0)

	done := m.MonitorGrowth(context.Background(), id, path, MonitorOptions{
		Timeout:        150 * time.Millisecond,
		PollInterval:   10 * time.Millisecond,
		StallThreshold: 50 * time.Millisecond,
	})

	assert.False(t, done)
	assert.Empty(t, m.Completed())
	require.Len(t, m.Failed(), 1)
	assert.Equal(t, StatusTimedOut, m.Failed()[0].Status)
}

func TestMonitorGrowthDoneSignalSuccess(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.mp4")
	require.NoError(t, os.WriteFile(path, make([]byte, 512), 0o644))

	m := NewManager()
	id := m.Register(path, "http://example.com/clip.mp4", 512)

	done := make(chan error, 1)
	done <- nil

	completed := m.MonitorGrowth(context.Background(), id, path, MonitorOptions{
		Timeout:        5 * time.Second,
		PollInterval:   10 * time.Millisecond,
		StallThreshold: 50 * time.Millisecond,
		Done:           done,
	})

	assert.True(t, completed)
	assert.Len(t, m.Completed(), 1)
}

func TestMonitorGrowthDoneSignalError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.mp4")
	m := NewManager()
	id := m.Register(path, "http://example.com/clip.mp4", 0)

	done := make(chan error, 1)
	done <- errors.New("connection reset")

	completed := m.MonitorGrowth(context.Background(), id, path, MonitorOptions{
		Timeout:        5 * time.Second,
		PollInterval:   10 * time.Millisecond,
		StallThreshold: 50 * time.Millisecond,
		Done:           done,
	})

	assert.False(t, completed)
	require.Len(t, m.Failed(), 1)
	assert.Contains(t, m.Failed()[0].Error, "connection reset")
}

func TestMonitorGrowthStallWaitsForDoneSignal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.mp4")
	require.NoError(t, os.WriteFile(path, make([]byte, 256), 0o644))

	m := NewManager()
	id := m.Register(path, "http://example.com/clip.mp4", 256)

	done := make(chan error, 1)
	go func() {
		// Stall well past the threshold before signaling completion.
		time.Sleep(300 * time.Millisecond)
		done <- nil
	}()

	completed := m.MonitorGrowth(context.Background(), id, path, MonitorOptions{
		Timeout:        5 * time.Second,
		PollInterval:   10 * time.Millisecond,
		StallThreshold: 50 * time.Millisecond,
		Done:           done,
	})

	assert.True(t, completed)
	assert.Len(t, m.Completed(), 1)
}

func TestMonitorGrowthContextCanceled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.mp4")
	m := NewManager()
	id := m.Register(path, "http://example.com/clip.mp4", 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	completed := m.MonitorGrowth(ctx, id, path, MonitorOptions{
		Timeout:        5 * time.Second,
		PollInterval:   10 * time.Millisecond,
		StallThreshold: 50 * time.Millisecond,
	})

	assert.False(t, completed)
	require.Len(t, m.Failed(), 1)
	assert.Equal(t, StatusFailed, m.Failed()[0].Status)
}
