package transfer

// State is a stage of the transfer pipeline. Transitions are strictly
// forward; Failed may be entered from any non-terminal state.
type State string

const (
	StateQueued         State = "queued"
	StateExtracting     State = "extracting_asset"
	StateDownloading    State = "downloading_asset"
	StateStaging        State = "staging_file"
	StateAuthenticating State = "authenticating_storage"
	StateEnsuringFolder State = "ensuring_folder"
	StateUploading      State = "uploading_asset"
	StatePublishing     State = "publishing_share_link"
	StateCleaningUp     State = "cleaning_up"
	StateCompleted      State = "completed"
	StateFailed         State = "failed"
)

// Terminal reports whether the state ends the job lifecycle.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// Reporter publishes job status externally. It is best-effort: the pipeline
// never blocks on it and shields itself from reporter panics.
type Reporter func(jobID string, state State, progress int, details string, err error, extra map[string]any)

// Timing is the per-stage duration breakdown of a run.
type Timing struct {
	DownloadSeconds   float64 `json:"download_seconds"`
	ProcessingSeconds float64 `json:"processing_seconds"`
	UploadSeconds     float64 `json:"upload_seconds"`
	TotalSeconds      float64 `json:"total_seconds"`
}
