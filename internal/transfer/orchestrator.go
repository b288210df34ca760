package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"AssetVault/internal/fetch"
	"AssetVault/internal/fileinfo"
	"AssetVault/internal/progress"
	"AssetVault/internal/storage"
)

// Options tunes a transfer run.
type Options struct {
	DownloadDir     string
	ProcessingDir   string
	FetchAttempts   int
	FetchRetryDelay time.Duration
	DownloadTimeout time.Duration
	PollInterval    time.Duration
	StallThreshold  time.Duration
}

// Result is the outcome of a transfer run. Run always returns one, success or
// not; no error escapes the pipeline without a final Failed report.
type Result struct {
	Success    bool             `json:"success"`
	JobID      string           `json:"job_id"`
	SourceURL  string           `json:"source_url"`
	FolderName string           `json:"folder_name"`
	AssetID    string           `json:"asset_id"`
	File       storage.FileMeta `json:"file"`
	ShareLink  string           `json:"share_link"`
	Timing     Timing           `json:"timing"`
	Err        error            `json:"-"`
}

// Orchestrator sequences a transfer: fetch the remote asset, stage it through
// the processing directory, upload it to the store and publish a share link.
type Orchestrator struct {
	fetcher   fetch.Fetcher
	store     storage.Store
	downloads *progress.Manager
	opts      Options
}

// New creates an orchestrator over the given collaborators.
func New(fetcher fetch.Fetcher, store storage.Store, downloads *progress.Manager, opts Options) *Orchestrator {
	if opts.FetchAttempts <= 0 {
		opts.FetchAttempts = 3
	}
	if opts.FetchRetryDelay <= 0 {
		opts.FetchRetryDelay = 2 * time.Second
	}
	if downloads == nil {
		downloads = progress.NewManager()
	}
	return &Orchestrator{
		fetcher:   fetcher,
		store:     store,
		downloads: downloads,
		opts:      opts,
	}
}

// Downloads exposes the download manager backing the orchestrator.
func (o *Orchestrator) Downloads() *progress.Manager {
	return o.downloads
}

// run carries the mutable state of a single transfer.
type run struct {
	o            *Orchestrator
	jobID        string
	report       Reporter
	lastProgress int
	result       Result

	downloadPath string
	stagedPath   string
}

// Run executes the full pipeline for one job. The reporter is invoked at
// every stage transition with a monotonically increasing progress value; on
// failure the progress is reset to zero and cleanup still runs best-effort.
func (o *Orchestrator) Run(ctx context.Context, jobID, sourceURL, folderName string, report Reporter) Result {
	r := &run{
		o:      o,
		jobID:  jobID,
		report: report,
		result: Result{
			JobID:      jobID,
			SourceURL:  sourceURL,
			FolderName: folderName,
		},
	}
	start := time.Now()
	defer func() {
		r.result.Timing.TotalSeconds = time.Since(start).Seconds()
	}()

	// Extracting.
	r.update(StateExtracting, 5, "Extracting asset information", nil, nil)
	r.result.AssetID = fetch.ExtractAssetID(sourceURL)

	// Downloading, with a bounded number of fetch attempts.
	downloadStart := time.Now()
	if err := r.download(ctx, sourceURL); err != nil {
		return r.fail("Failed to download asset", err)
	}
	r.result.Timing.DownloadSeconds = time.Since(downloadStart).Seconds()

	desc, err := fileinfo.Describe(r.downloadPath)
	if err != nil {
		return r.fail("Downloaded file unreadable", err)
	}
	// Synchronous fetchers bypass the growth monitor, so the artifact has
	// not been verified yet; re-checking a monitored one is cheap.
	if err := fileinfo.ValidateMedia(r.downloadPath); err != nil {
		return r.fail("Downloaded file failed validation", err)
	}
	log.Printf("asset downloaded: %s (%s)", r.downloadPath, desc.SizeHuman)

	// Staging: copy, never move, so the original stays recoverable.
	processingStart := time.Now()
	r.update(StateStaging, 30, fmt.Sprintf("Staging file: %s", desc.Name), nil, nil)
	stagedPath, err := r.stage(desc.Name)
	if err != nil {
		return r.fail("Failed to stage file", err)
	}
	r.stagedPath = stagedPath
	r.result.Timing.ProcessingSeconds = time.Since(processingStart).Seconds()

	// Authenticating.
	r.update(StateAuthenticating, 40, "Authenticating with storage", nil, nil)
	if err := o.store.Authenticate(ctx); err != nil {
		return r.fail("Failed to authenticate with storage", err)
	}

	// EnsuringFolder.
	r.update(StateEnsuringFolder, 50, fmt.Sprintf("Creating or finding folder: %s", folderName), nil, nil)
	folderID, err := o.store.EnsureFolder(ctx, folderName, "")
	if err == nil && folderID == "" {
		err = errors.New("empty folder id")
	}
	if err != nil {
		return r.fail(fmt.Sprintf("Failed to create/find folder: %s", folderName), err)
	}

	// Uploading.
	r.update(StateUploading, 60, fmt.Sprintf("Uploading file: %s", desc.Name), nil, nil)
	uploadStart := time.Now()
	meta, err := o.store.Upload(ctx, stagedPath, folderID, desc.Name)
	if err == nil && meta.FileID == "" {
		err = errors.New("upload returned no file id")
	}
	if err != nil {
		return r.fail("Failed to upload file", err)
	}
	r.result.File = meta
	r.result.Timing.UploadSeconds = time.Since(uploadStart).Seconds()

	// Publishing.
	r.update(StatePublishing, 80, "Generating share link", nil, nil)
	shareLink, err := o.store.Share(ctx, meta.FileID)
	if err == nil && shareLink == "" {
		err = errors.New("empty share link")
	}
	if err != nil {
		return r.fail("Failed to generate share link", err)
	}
	r.result.ShareLink = shareLink

	// CleaningUp: best-effort, never fails the job.
	r.update(StateCleaningUp, 90, "Cleaning up temporary files", nil, nil)
	r.cleanup()

	r.result.Success = true
	r.result.Timing.TotalSeconds = time.Since(start).Seconds()
	r.update(StateCompleted, 100, "Transfer completed successfully", nil, map[string]any{
		"file_info":        meta,
		"share_link":       shareLink,
		"duration_seconds": r.result.Timing.TotalSeconds,
	})
	return r.result
}

// download runs the fetch attempts. An attempt only counts as successful if
// it returned a path that exists on disk.
func (r *run) download(ctx context.Context, sourceURL string) error {
	attempts := r.o.opts.FetchAttempts
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		r.update(StateDownloading, 15+(attempt-1)*2,
			fmt.Sprintf("Download attempt %d/%d", attempt, attempts), nil, nil)

		path, err := r.fetchOnce(ctx, sourceURL)
		if err == nil && path != "" {
			if _, statErr := os.Stat(path); statErr == nil {
				r.downloadPath = path
				log.Printf("download successful on attempt %d: %s", attempt, path)
				return nil
			}
			err = fmt.Errorf("fetched file missing: %s", path)
		}
		lastErr = err
		log.Printf("download attempt %d/%d failed: %v", attempt, attempts, err)

		if ctx.Err() != nil {
			return ctx.Err()
		}
		if attempt < attempts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(r.o.opts.FetchRetryDelay):
			}
		}
	}
	if lastErr == nil {
		lastErr = errors.New("download failed")
	}
	return fmt.Errorf("all %d download attempts failed: %w", attempts, lastErr)
}

// fetchOnce performs one fetch. Asynchronous fetchers are observed through
// the growth monitor; synchronous ones block until done.
func (r *run) fetchOnce(ctx context.Context, sourceURL string) (string, error) {
	destDir := filepath.Join(r.o.opts.DownloadDir, r.jobID)

	async, ok := r.o.fetcher.(fetch.AsyncFetcher)
	if !ok {
		return r.o.fetcher.Fetch(ctx, sourceURL, destDir)
	}

	pending, err := async.Start(ctx, sourceURL, destDir)
	if err != nil {
		return "", err
	}

	id := r.o.downloads.Register(pending.Path, sourceURL, pending.ExpectedSize)
	r.o.downloads.AddObserver(id, func(snap progress.Snapshot) {
		if snap.Status != progress.StatusDownloading {
			return
		}
		pct := 15 + int(snap.Percentage*0.15)
		r.update(StateDownloading, pct,
			fmt.Sprintf("Downloading: %s of %s at %s",
				humanize.IBytes(uint64(snap.Downloaded)),
				humanize.IBytes(uint64(snap.TotalSize)),
				snap.SpeedHuman),
			nil, nil)
	})

	completed := r.o.downloads.MonitorGrowth(ctx, id, pending.Path, progress.MonitorOptions{
		Timeout:        r.o.opts.DownloadTimeout,
		PollInterval:   r.o.opts.PollInterval,
		StallThreshold: r.o.opts.StallThreshold,
		Done:           pending.Done,
	})
	if !completed {
		if rec, found := r.o.downloads.Info(id); found && rec.Error != "" {
			return "", errors.New(rec.Error)
		}
		return "", errors.New("download did not complete")
	}
	return pending.Path, nil
}

// stage copies the downloaded file into the processing directory under a
// job-namespaced name.
func (r *run) stage(fileName string) (string, error) {
	if err := os.MkdirAll(r.o.opts.ProcessingDir, 0o755); err != nil {
		return "", err
	}
	stagedPath := filepath.Join(r.o.opts.ProcessingDir, r.jobID+"_"+fileName)

	src, err := os.Open(r.downloadPath)
	if err != nil {
		return "", err
	}
	defer src.Close()

	dst, err := os.Create(stagedPath)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		_ = os.Remove(stagedPath)
		return "", err
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(stagedPath)
		return "", err
	}
	return stagedPath, nil
}

// cleanup removes whatever the run produced so far. Failures are logged only.
func (r *run) cleanup() {
	for _, path := range []string{r.downloadPath, r.stagedPath} {
		if path == "" {
			continue
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			log.Printf("cleanup: remove %s failed: %v", path, err)
		}
	}
	if r.downloadPath != "" {
		// The per-job download directory is empty once its file is gone.
		_ = os.Remove(filepath.Dir(r.downloadPath))
	}
}

// fail reports a terminal failure with progress reset to zero, runs cleanup,
// and finalizes the result.
func (r *run) fail(details string, err error) Result {
	log.Printf("transfer %s failed: %s: %v", r.jobID, details, err)
	r.cleanup()
	r.result.Success = false
	r.result.Err = err
	r.send(StateFailed, 0, details, err, nil)
	return r.result
}

// update reports a forward stage transition, keeping progress monotonic
// within the run.
func (r *run) update(state State, progress int, details string, err error, extra map[string]any) {
	if progress < r.lastProgress {
		progress = r.lastProgress
	}
	r.lastProgress = progress
	r.send(state, progress, details, err, extra)
}

// send invokes the reporter, shielding the pipeline from reporter panics.
func (r *run) send(state State, progress int, details string, err error, extra map[string]any) {
	if r.report == nil {
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("status reporter panic: %v", rec)
		}
	}()
	r.report(r.jobID, state, progress, details, err, extra)
}
