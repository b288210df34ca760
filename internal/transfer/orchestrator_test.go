package transfer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"AssetVault/internal/fetch"
	"AssetVault/internal/storage"
)

type fakeFetcher struct {
	fileName string
	size     int
	failures int
	calls    int
}

func (f *fakeFetcher) Fetch(ctx context.Context, sourceURL, destDir string) (string, error) {
	f.calls++
	if f.calls <= f.failures {
		return "", fmt.Errorf("simulated fetch failure %d", f.calls)
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(destDir, f.fileName)
	if err := os.WriteFile(path, make([]byte, f.size), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

type asyncFakeFetcher struct {
	fakeFetcher
}

func (f *asyncFakeFetcher) Start(ctx context.Context, sourceURL, destDir string) (*fetch.PendingFetch, error) {
	path, err := f.Fetch(ctx, sourceURL, destDir)
	if err != nil {
		return nil, err
	}
	done := make(chan error, 1)
	done <- nil
	return &fetch.PendingFetch{Path: path, ExpectedSize: int64(f.size), Done: done}, nil
}

type fakeStore struct {
	authErr   error
	folderErr error
	uploadErr error
	shareErr  error

	folderID  string
	uploaded  []string
	shareLink string
}

func (s *fakeStore) Authenticate(ctx context.Context) error { return s.authErr }

func (s *fakeStore) EnsureFolder(ctx context.Context, name, parent string) (string, error) {
	if s.folderErr != nil {
		return "", s.folderErr
	}
	if s.folderID == "" {
		s.folderID = "folder-1"
	}
	return s.folderID, nil
}

func (s *fakeStore) Upload(ctx context.Context, filePath, folderID, name string) (storage.FileMeta, error) {
	if s.uploadErr != nil {
		return storage.FileMeta{}, s.uploadErr
	}
	s.uploaded = append(s.uploaded, filePath)
	stat, err := os.Stat(filePath)
	if err != nil {
		return storage.FileMeta{}, err
	}
	return storage.FileMeta{
		FileID:    "file-1",
		FileName:  name,
		MimeType:  "video/mp4",
		SizeBytes: stat.Size(),
		ViewLink:  "http://store.local/view/file-1",
	}, nil
}

func (s *fakeStore) Share(ctx context.Context, fileID string) (string, error) {
	if s.shareErr != nil {
		return "", s.shareErr
	}
	s.shareLink = "http://store.local/share/" + fileID
	return s.shareLink, nil
}

type report struct {
	state    State
	progress int
	details  string
	err      error
	extra    map[string]any
}

type recorder struct {
	reports []report
}

func (r *recorder) fn(jobID string, state State, progress int, details string, err error, extra map[string]any) {
	r.reports = append(r.reports, report{state, progress, details, err, extra})
}

func (r *recorder) last() report {
	return r.reports[len(r.reports)-1]
}

func (r *recorder) states() []State {
	out := make([]State, 0, len(r.reports))
	for _, rep := range r.reports {
		out = append(out, rep.state)
	}
	return out
}

func testOptions(t *testing.T) Options {
	t.Helper()
	return Options{
		DownloadDir:     filepath.Join(t.TempDir(), "downloads"),
		ProcessingDir:   filepath.Join(t.TempDir(), "processing"),
		FetchAttempts:   3,
		FetchRetryDelay: time.Millisecond,
		DownloadTimeout: 5 * time.Second,
		PollInterval:    10 * time.Millisecond,
		StallThreshold:  50 * time.Millisecond,
	}
}

func TestRunCompletes(t *testing.T) {
	fetcher := &fakeFetcher{fileName: "clip.mp4", size: 1024}
	store := &fakeStore{}
	rec := &recorder{}
	o := New(fetcher, store, nil, testOptions(t))

	result := o.Run(context.Background(), "job-1", "http://example.com/assets/abc123", "Client Footage", rec.fn)

	assert.True(t, result.Success)
	assert.NoError(t, result.Err)
	assert.Equal(t, "abc123", result.AssetID)
	assert.Equal(t, "file-1", result.File.FileID)
	assert.Equal(t, "http://store.local/share/file-1", result.ShareLink)
	assert.Greater(t, result.Timing.TotalSeconds, 0.0)

	assert.Equal(t, []State{
		StateExtracting,
		StateDownloading,
		StateStaging,
		StateAuthenticating,
		StateEnsuringFolder,
		StateUploading,
		StatePublishing,
		StateCleaningUp,
		StateCompleted,
	}, rec.states())

	last := rec.last()
	assert.Equal(t, 100, last.progress)
	require.NotNil(t, last.extra)
	meta, ok := last.extra["file_info"].(storage.FileMeta)
	require.True(t, ok)
	assert.Equal(t, int64(1024), meta.SizeBytes)
	assert.Equal(t, result.ShareLink, last.extra["share_link"])

	// Staged and downloaded files are removed on success.
	require.Len(t, store.uploaded, 1)
	assert.NoFileExists(t, store.uploaded[0])
}

func TestRunProgressMonotonic(t *testing.T) {
	fetcher := &fakeFetcher{fileName: "clip.mp4", size: 64}
	rec := &recorder{}
	o := New(fetcher, &fakeStore{}, nil, testOptions(t))

	o.Run(context.Background(), "job-2", "http://example.com/clip.mp4", "Footage", rec.fn)

	prev := -1
	for _, rep := range rec.reports {
		assert.GreaterOrEqual(t, rep.progress, prev)
		prev = rep.progress
	}
	assert.Equal(t, 100, prev)
}

func TestRunDownloadRetriesExhausted(t *testing.T) {
	fetcher := &fakeFetcher{fileName: "clip.mp4", size: 64, failures: 99}
	rec := &recorder{}
	o := New(fetcher, &fakeStore{}, nil, testOptions(t))

	result := o.Run(context.Background(), "job-3", "http://example.com/clip.mp4", "Footage", rec.fn)

	assert.False(t, result.Success)
	require.Error(t, result.Err)
	assert.Contains(t, result.Err.Error(), "all 3 download attempts failed")
	assert.Equal(t, 3, fetcher.calls)

	last := rec.last()
	assert.Equal(t, StateFailed, last.state)
	assert.Equal(t, 0, last.progress)
	assert.Equal(t, "Failed to download asset", last.details)
}

func TestRunDownloadRecoversAfterFailure(t *testing.T) {
	fetcher := &fakeFetcher{fileName: "clip.mp4", size: 64, failures: 2}
	rec := &recorder{}
	o := New(fetcher, &fakeStore{}, nil, testOptions(t))

	result := o.Run(context.Background(), "job-4", "http://example.com/clip.mp4", "Footage", rec.fn)

	assert.True(t, result.Success)
	assert.Equal(t, 3, fetcher.calls)
}

func TestRunRejectsEmptyDownload(t *testing.T) {
	fetcher := &fakeFetcher{fileName: "clip.mp4", size: 0}
	store := &fakeStore{}
	rec := &recorder{}
	o := New(fetcher, store, nil, testOptions(t))

	result := o.Run(context.Background(), "job-10", "http://example.com/clip.mp4", "Footage", rec.fn)

	assert.False(t, result.Success)
	assert.Empty(t, store.uploaded)
	last := rec.last()
	assert.Equal(t, StateFailed, last.state)
	assert.Equal(t, 0, last.progress)
	assert.Equal(t, "Downloaded file failed validation", last.details)
}

func TestRunRejectsNonMediaDownload(t *testing.T) {
	fetcher := &fakeFetcher{fileName: "notes.txt", size: 64}
	store := &fakeStore{}
	rec := &recorder{}
	o := New(fetcher, store, nil, testOptions(t))

	result := o.Run(context.Background(), "job-11", "http://example.com/notes.txt", "Footage", rec.fn)

	assert.False(t, result.Success)
	assert.Empty(t, store.uploaded)
	assert.Equal(t, "Downloaded file failed validation", rec.last().details)
}

func TestRunUploadFailure(t *testing.T) {
	fetcher := &fakeFetcher{fileName: "clip.mp4", size: 64}
	store := &fakeStore{uploadErr: errors.New("bucket unavailable")}
	rec := &recorder{}
	o := New(fetcher, store, nil, testOptions(t))

	result := o.Run(context.Background(), "job-5", "http://example.com/clip.mp4", "Footage", rec.fn)

	assert.False(t, result.Success)
	last := rec.last()
	assert.Equal(t, StateFailed, last.state)
	assert.Equal(t, 0, last.progress)
	assert.Equal(t, "Failed to upload file", last.details)
}

func TestRunAuthenticateFailure(t *testing.T) {
	fetcher := &fakeFetcher{fileName: "clip.mp4", size: 64}
	store := &fakeStore{authErr: errors.New("bad credentials")}
	rec := &recorder{}
	o := New(fetcher, store, nil, testOptions(t))

	result := o.Run(context.Background(), "job-6", "http://example.com/clip.mp4", "Footage", rec.fn)

	assert.False(t, result.Success)
	assert.Equal(t, "Failed to authenticate with storage", rec.last().details)
	assert.Empty(t, store.uploaded)
}

func TestRunAsyncFetcherMonitored(t *testing.T) {
	fetcher := &asyncFakeFetcher{fakeFetcher{fileName: "clip.mp4", size: 512}}
	rec := &recorder{}
	o := New(fetcher, &fakeStore{}, nil, testOptions(t))

	result := o.Run(context.Background(), "job-7", "http://example.com/clip.mp4", "Footage", rec.fn)

	assert.True(t, result.Success)
	assert.Len(t, o.Downloads().Completed(), 1)
}

func TestRunNilReporter(t *testing.T) {
	fetcher := &fakeFetcher{fileName: "clip.mp4", size: 64}
	o := New(fetcher, &fakeStore{}, nil, testOptions(t))

	result := o.Run(context.Background(), "job-8", "http://example.com/clip.mp4", "Footage", nil)
	assert.True(t, result.Success)
}

func TestRunReporterPanicShielded(t *testing.T) {
	fetcher := &fakeFetcher{fileName: "clip.mp4", size: 64}
	o := New(fetcher, &fakeStore{}, nil, testOptions(t))

	result := o.Run(context.Background(), "job-9", "http://example.com/clip.mp4", "Footage",
		func(string, State, int, string, error, map[string]any) { panic("reporter exploded") })
	assert.True(t, result.Success)
}

func TestStateTerminal(t *testing.T) {
	assert.True(t, StateCompleted.Terminal())
	assert.True(t, StateFailed.Terminal())
	assert.False(t, StateQueued.Terminal())
	assert.False(t, StateUploading.Terminal())
}
