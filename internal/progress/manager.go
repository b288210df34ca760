package progress

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"AssetVault/internal/fileinfo"
)

// Record is the archived view of a finished download.
type Record struct {
	ID       string                    `json:"id"`
	FilePath string                    `json:"file_path,omitempty"`
	FileInfo *fileinfo.FileDescriptor  `json:"file_info,omitempty"`
	Snapshot
}

// Manager tracks in-flight downloads and archives finished ones. A download
// moves from the active set to exactly one of the completed or failed lists;
// terminal transitions are at-most-once and later attempts are ignored.
type Manager struct {
	mu        sync.Mutex
	active    map[string]*Tracker
	completed []Record
	failed    []Record
}

// NewManager creates an empty download manager.
func NewManager() *Manager {
	return &Manager{active: make(map[string]*Tracker)}
}

// Register adds a new download and returns its ID.
func (m *Manager) Register(filePath, url string, totalSize int64) string {
	fileName := filepath.Base(filePath)
	id := fmt.Sprintf("%s_%d", fileName, time.Now().Unix())

	m.mu.Lock()
	m.active[id] = NewTracker(fileName, url, totalSize)
	m.mu.Unlock()

	log.Printf("download registered: %s for %s", id, url)
	return id
}

// AddObserver attaches an observer to an active download.
func (m *Manager) AddObserver(id string, fn Observer) {
	m.mu.Lock()
	t := m.active[id]
	m.mu.Unlock()
	if t != nil {
		t.AddObserver(fn)
	}
}

// Update records the observed byte count of an active download.
func (m *Manager) Update(id string, downloaded int64) {
	m.mu.Lock()
	t := m.active[id]
	m.mu.Unlock()
	if t != nil {
		t.Update(downloaded, StatusDownloading)
	}
}

// MarkCompleted verifies the downloaded file and archives it. It returns true
// only if the file exists, its size matches the expected total (when known),
// and it passes media validation; any mismatch archives it as failed instead.
func (m *Manager) MarkCompleted(id, filePath string) bool {
	m.mu.Lock()
	t := m.active[id]
	m.mu.Unlock()
	if t == nil {
		log.Printf("cannot mark unknown download as completed: %s", id)
		return false
	}

	stat, err := os.Stat(filePath)
	if err != nil {
		t.SetError(fmt.Sprintf("downloaded file not found: %s", filePath))
		m.moveToFailed(id)
		return false
	}

	snap := t.Snapshot()
	if snap.TotalSize > 0 && stat.Size() != snap.TotalSize {
		t.SetError(fmt.Sprintf("file size mismatch: expected %d, got %d", snap.TotalSize, stat.Size()))
		m.moveToFailed(id)
		return false
	}

	if err := fileinfo.ValidateMedia(filePath); err != nil {
		t.SetError(fmt.Sprintf("invalid media file: %v", err))
		m.moveToFailed(id)
		return false
	}

	t.SetCompleted()
	desc, err := fileinfo.Describe(filePath)

	m.mu.Lock()
	if _, ok := m.active[id]; !ok {
		m.mu.Unlock()
		return false
	}
	rec := Record{ID: id, FilePath: filePath, Snapshot: t.Snapshot()}
	if err == nil {
		rec.FileInfo = &desc
	}
	m.completed = append(m.completed, rec)
	delete(m.active, id)
	m.mu.Unlock()

	log.Printf("download completed and verified: %s", id)
	return true
}

// MarkFailed archives an active download as failed.
func (m *Manager) MarkFailed(id, errMsg string) {
	m.mu.Lock()
	t := m.active[id]
	m.mu.Unlock()
	if t == nil {
		return
	}
	t.SetError(errMsg)
	m.moveToFailed(id)
}

// MarkTimedOut archives an active download as timed out.
func (m *Manager) MarkTimedOut(id string) {
	m.mu.Lock()
	t := m.active[id]
	m.mu.Unlock()
	if t == nil {
		return
	}
	t.SetTimedOut()
	m.moveToFailed(id)
}

// Info returns the current view of a download, active or archived.
func (m *Manager) Info(id string) (Record, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if t, ok := m.active[id]; ok {
		return Record{ID: id, Snapshot: t.Snapshot()}, true
	}
	for _, rec := range m.completed {
		if rec.ID == id {
			return rec, true
		}
	}
	for _, rec := range m.failed {
		if rec.ID == id {
			return rec, true
		}
	}
	return Record{}, false
}

// Active returns snapshots of all in-flight downloads keyed by ID.
func (m *Manager) Active() map[string]Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]Snapshot, len(m.active))
	for id, t := range m.active {
		out[id] = t.Snapshot()
	}
	return out
}

// Completed returns archived successful downloads.
func (m *Manager) Completed() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Record, len(m.completed))
	copy(out, m.completed)
	return out
}

// Failed returns archived failed downloads.
func (m *Manager) Failed() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Record, len(m.failed))
	copy(out, m.failed)
	return out
}

func (m *Manager) moveToFailed(id string) {
	m.mu.Lock()
	t, ok := m.active[id]
	if !ok {
		m.mu.Unlock()
		return
	}
	m.failed = append(m.failed, Record{ID: id, Snapshot: t.Snapshot()})
	delete(m.active, id)
	m.mu.Unlock()

	log.Printf("download failed: %s", id)
}
