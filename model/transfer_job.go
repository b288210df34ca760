package model

import "time"

type TransferJob struct {
	ID string `gorm:"primaryKey;type:varchar(64)" json:"id"`

	SourceURL  string `gorm:"column:source_url;type:text;not null" json:"source_url"`
	FolderName string `gorm:"column:folder_name;type:varchar(255);not null" json:"folder_name"`

	State    string `gorm:"column:state;type:varchar(48);index;not null" json:"state"`
	Progress int    `gorm:"column:progress;default:0" json:"progress"`
	Details  string `gorm:"column:details;type:text" json:"details"`
	ErrorMsg string `gorm:"column:error_msg;type:text" json:"error_msg"`

	FileID    string `gorm:"column:file_id;type:varchar(255)" json:"file_id"`
	FileName  string `gorm:"column:file_name;type:varchar(255)" json:"file_name"`
	MimeType  string `gorm:"column:mime_type;type:varchar(128)" json:"mime_type"`
	SizeBytes int64  `gorm:"column:size_bytes;default:0" json:"size_bytes"`
	ViewLink  string `gorm:"column:view_link;type:text" json:"view_link"`
	ShareLink string `gorm:"column:share_link;type:text" json:"share_link"`

	RetryCount  int        `gorm:"column:retry_count;default:0" json:"retry_count"`
	NextRetryAt *time.Time `gorm:"column:next_retry_at" json:"next_retry_at"`
	StartedAt   *time.Time `gorm:"column:started_at" json:"started_at"`
	EndedAt     *time.Time `gorm:"column:ended_at" json:"ended_at"`

	DurationSeconds float64 `gorm:"column:duration_seconds;default:0" json:"duration_seconds"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name.
func (TransferJob) TableName() string {
	return "transfer_job"
}
