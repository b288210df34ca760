package progress

import (
	"log"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
)

// Status is the lifecycle state of a tracked download.
type Status string

const (
	StatusInitializing Status = "initializing"
	StatusDownloading  Status = "downloading"
	StatusCompleted    Status = "completed"
	StatusFailed       Status = "failed"
	StatusTimedOut     Status = "timed_out"
)

// Terminal reports whether the status is a terminal one.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusTimedOut
}

// Snapshot is a point-in-time view of a download's progress.
type Snapshot struct {
	FileName   string        `json:"file_name"`
	URL        string        `json:"url"`
	TotalSize  int64         `json:"total_size"`
	Downloaded int64         `json:"downloaded"`
	Percentage float64       `json:"percentage"`
	Speed      float64       `json:"speed"`
	SpeedHuman string        `json:"speed_human"`
	Elapsed    time.Duration `json:"elapsed"`
	ETA        time.Duration `json:"eta"`
	Status     Status        `json:"status"`
	Error      string        `json:"error,omitempty"`
	Timestamp  time.Time     `json:"timestamp"`
}

// Observer receives progress snapshots.
type Observer func(Snapshot)

// Tracker records the progress of a single download and fans snapshots out to
// its observers. All methods are safe for concurrent use.
type Tracker struct {
	mu             sync.Mutex
	fileName       string
	url            string
	totalSize      int64
	downloaded     int64
	lastDownloaded int64
	startTime      time.Time
	lastUpdate     time.Time
	status         Status
	errMsg         string
	observers      []Observer
}

// NewTracker creates a tracker in the initializing state.
func NewTracker(fileName, url string, totalSize int64) *Tracker {
	now := time.Now()
	return &Tracker{
		fileName:   fileName,
		url:        url,
		totalSize:  totalSize,
		startTime:  now,
		lastUpdate: now,
		status:     StatusInitializing,
	}
}

// AddObserver registers a progress observer.
func (t *Tracker) AddObserver(fn Observer) {
	t.mu.Lock()
	t.observers = append(t.observers, fn)
	t.mu.Unlock()
}

// Update records the currently observed byte count. While downloading, the
// observed size never decreases.
func (t *Tracker) Update(downloaded int64, status Status) {
	t.mu.Lock()
	if status == StatusDownloading && downloaded < t.downloaded {
		downloaded = t.downloaded
	}
	now := time.Now()

	var speed float64
	if dt := now.Sub(t.lastUpdate).Seconds(); dt > 0 {
		speed = float64(downloaded-t.lastDownloaded) / dt
	}

	t.downloaded = downloaded
	t.status = status
	t.lastUpdate = now
	t.lastDownloaded = downloaded

	snap := t.snapshotLocked(now, speed)
	observers := make([]Observer, len(t.observers))
	copy(observers, t.observers)
	t.mu.Unlock()

	for _, fn := range observers {
		notify(fn, snap)
	}
}

// SetError marks the download as failed.
func (t *Tracker) SetError(msg string) {
	t.mu.Lock()
	t.errMsg = msg
	downloaded := t.downloaded
	t.mu.Unlock()
	t.Update(downloaded, StatusFailed)
}

// SetCompleted marks the download as completed.
func (t *Tracker) SetCompleted() {
	t.mu.Lock()
	final := t.totalSize
	if final == 0 {
		final = t.downloaded
	}
	t.mu.Unlock()
	t.Update(final, StatusCompleted)
}

// SetTimedOut marks the download as timed out.
func (t *Tracker) SetTimedOut() {
	t.mu.Lock()
	t.errMsg = "download timed out"
	downloaded := t.downloaded
	t.mu.Unlock()
	t.Update(downloaded, StatusTimedOut)
}

// Snapshot returns the current progress view.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	var speed float64
	if elapsed := now.Sub(t.startTime).Seconds(); elapsed > 0 {
		speed = float64(t.downloaded) / elapsed
	}
	return t.snapshotLocked(now, speed)
}

// Status returns the current status.
func (t *Tracker) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

func (t *Tracker) snapshotLocked(now time.Time, speed float64) Snapshot {
	var percentage float64
	if t.totalSize > 0 {
		percentage = float64(t.downloaded) / float64(t.totalSize) * 100
	}
	var eta time.Duration
	if t.totalSize > 0 && speed > 0 {
		remaining := float64(t.totalSize - t.downloaded)
		if remaining > 0 {
			eta = time.Duration(remaining / speed * float64(time.Second))
		}
	}
	return Snapshot{
		FileName:   t.fileName,
		URL:        t.url,
		TotalSize:  t.totalSize,
		Downloaded: t.downloaded,
		Percentage: percentage,
		Speed:      speed,
		SpeedHuman: humanize.IBytes(uint64(speed)) + "/s",
		Elapsed:    now.Sub(t.startTime),
		ETA:        eta,
		Status:     t.status,
		Error:      t.errMsg,
		Timestamp:  now,
	}
}

func notify(fn Observer, snap Snapshot) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("progress observer panic: %v", r)
		}
	}()
	fn(snap)
}
