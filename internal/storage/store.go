package storage

import (
	"context"
)

// FileMeta describes an uploaded object.
type FileMeta struct {
	FileID    string `json:"file_id"`
	FileName  string `json:"file_name"`
	MimeType  string `json:"mime_type"`
	SizeBytes int64  `json:"size_bytes"`
	ViewLink  string `json:"view_link"`
}

// Store abstracts the cloud storage collaborator used by the transfer
// pipeline: authentication, folder management, upload and link sharing.
type Store interface {
	Authenticate(ctx context.Context) error
	EnsureFolder(ctx context.Context, name, parent string) (string, error)
	Upload(ctx context.Context, path, folderID, name string) (FileMeta, error)
	Share(ctx context.Context, fileID string) (string, error)
}

// Default is the main object store instance.
var Default Store
