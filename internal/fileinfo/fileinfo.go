package fileinfo

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
)

// hashSizeCeiling bounds hash cost: files at or above 1 GiB skip the digest.
const hashSizeCeiling = 1 << 30

// mediaTypes maps the media extensions the pipeline accepts to MIME types.
var mediaTypes = map[string]string{
	".mp4":  "video/mp4",
	".mov":  "video/quicktime",
	".avi":  "video/x-msvideo",
	".wmv":  "video/x-ms-wmv",
	".mkv":  "video/x-matroska",
	".webm": "video/webm",
	".flv":  "video/x-flv",
	".m4v":  "video/x-m4v",
	".3gp":  "video/3gpp",
	".3g2":  "video/3gpp2",
	".mxf":  "application/mxf",
	".mts":  "video/mp2t",
	".ts":   "video/mp2t",
	".vob":  "video/dvd",
}

// FileDescriptor is an immutable snapshot of a file on disk.
type FileDescriptor struct {
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	SizeHuman string    `json:"size_human"`
	MD5       string    `json:"md5,omitempty"`
	Extension string    `json:"extension"`
	MimeType  string    `json:"mime_type"`
	Created   time.Time `json:"created"`
	Modified  time.Time `json:"modified"`
}

// Describe stats a file and derives its metadata. The result is recomputed on
// every call, never cached.
func Describe(path string) (FileDescriptor, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return FileDescriptor{}, err
	}
	if stat.IsDir() {
		return FileDescriptor{}, fmt.Errorf("not a regular file: %s", path)
	}

	desc := FileDescriptor{
		Name:      filepath.Base(path),
		Path:      path,
		Size:      stat.Size(),
		SizeHuman: humanize.IBytes(uint64(stat.Size())),
		Extension: strings.ToLower(filepath.Ext(path)),
		MimeType:  ContentTypeFor(path),
		Created:   stat.ModTime(),
		Modified:  stat.ModTime(),
	}

	if desc.Size < hashSizeCeiling {
		if sum, err := fileMD5(path); err == nil {
			desc.MD5 = sum
		}
	}
	return desc, nil
}

// ContentTypeFor resolves a MIME type from the extension table first, falling
// back to content sniffing and finally a generic octet-stream.
func ContentTypeFor(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if mt, ok := mediaTypes[ext]; ok {
		return mt
	}
	if mt, err := mimetype.DetectFile(path); err == nil && mt != nil {
		return mt.String()
	}
	return "application/octet-stream"
}

// ValidateMedia checks whether a file is an acceptable media artifact: it must
// exist, be non-empty, and carry a known media extension or a video MIME type.
func ValidateMedia(path string) error {
	stat, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("file not found: %s", path)
	}
	if stat.Size() == 0 {
		return fmt.Errorf("file is empty: %s", path)
	}
	ext := strings.ToLower(filepath.Ext(path))
	if _, ok := mediaTypes[ext]; ok {
		return nil
	}
	if mt, err := mimetype.DetectFile(path); err == nil && mt != nil && strings.HasPrefix(mt.String(), "video/") {
		return nil
	}
	return fmt.Errorf("not a recognized media format: %s", path)
}

func fileMD5(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
