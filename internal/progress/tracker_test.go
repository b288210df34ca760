package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrackerMonotonicWhileDownloading(t *testing.T) {
	tr := NewTracker("clip.mp4", "http://example.com/clip.mp4", 1000)

	tr.Update(400, StatusDownloading)
	tr.Update(250, StatusDownloading)

	snap := tr.Snapshot()
	assert.Equal(t, int64(400), snap.Downloaded)
	assert.Equal(t, StatusDownloading, snap.Status)
	assert.InDelta(t, 40.0, snap.Percentage, 0.001)
}

func TestTrackerSetCompletedFillsTotal(t *testing.T) {
	tr := NewTracker("clip.mp4", "http://example.com/clip.mp4", 1000)
	tr.Update(600, StatusDownloading)
	tr.SetCompleted()

	snap := tr.Snapshot()
	assert.Equal(t, StatusCompleted, snap.Status)
	assert.Equal(t, int64(1000), snap.Downloaded)
	assert.InDelta(t, 100.0, snap.Percentage, 0.001)
}

func TestTrackerSetCompletedUnknownTotal(t *testing.T) {
	tr := NewTracker("clip.mp4", "http://example.com/clip.mp4", 0)
	tr.Update(600, StatusDownloading)
	tr.SetCompleted()

	snap := tr.Snapshot()
	assert.Equal(t, StatusCompleted, snap.Status)
	assert.Equal(t, int64(600), snap.Downloaded)
	assert.Zero(t, snap.Percentage)
}

func TestTrackerSetError(t *testing.T) {
	tr := NewTracker("clip.mp4", "http://example.com/clip.mp4", 1000)
	tr.SetError("connection reset")

	snap := tr.Snapshot()
	assert.Equal(t, StatusFailed, snap.Status)
	assert.Equal(t, "connection reset", snap.Error)
	assert.True(t, snap.Status.Terminal())
}

func TestTrackerSetTimedOut(t *testing.T) {
	tr := NewTracker("clip.mp4", "http://example.com/clip.mp4", 1000)
	tr.SetTimedOut()

	snap := tr.Snapshot()
	assert.Equal(t, StatusTimedOut, snap.Status)
	assert.Equal(t, "download timed out", snap.Error)
}

func TestTrackerObservers(t *testing.T) {
	tr := NewTracker("clip.mp4", "http://example.com/clip.mp4", 1000)

	var got []Snapshot
	tr.AddObserver(func(s Snapshot) { got = append(got, s) })
	tr.AddObserver(func(Snapshot) { panic("bad observer") })

	tr.Update(100, StatusDownloading)
	tr.Update(500, StatusDownloading)

	assert.Len(t, got, 2)
	assert.Equal(t, int64(100), got[0].Downloaded)
	assert.Equal(t, int64(500), got[1].Downloaded)
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, StatusInitializing.Terminal())
	assert.False(t, StatusDownloading.Terminal())
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusFailed.Terminal())
	assert.True(t, StatusTimedOut.Terminal())
}
