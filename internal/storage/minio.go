package storage

import (
	"AssetVault/config"
	"AssetVault/internal/fileinfo"
	"AssetVault/utils"
	"context"
	"fmt"
	"log"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioStore implements Store with a MinIO client. Folder IDs are object-key
// prefixes inside the configured bucket; file IDs are full object keys.
type MinioStore struct {
	client *minio.Client
	bucket string
}

// NewMinioStore builds a Store from a MinIO client.
func NewMinioStore(client *minio.Client, bucket string) *MinioStore {
	return &MinioStore{client: client, bucket: bucket}
}

// Authenticate verifies the bucket is reachable, creating it if missing.
func (s *MinioStore) Authenticate(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("bucket check failed: %w", err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("bucket create failed: %w", err)
		}
	}
	return nil
}

// EnsureFolder resolves a folder prefix, creating a marker object the first
// time the prefix is used so the folder shows up in listings.
func (s *MinioStore) EnsureFolder(ctx context.Context, name, parent string) (string, error) {
	clean := utils.SanitizeFolderName(name)
	if clean == "" {
		return "", fmt.Errorf("invalid folder name %q", name)
	}
	prefix := clean + "/"
	if parent != "" {
		prefix = strings.TrimSuffix(parent, "/") + "/" + prefix
	}

	listing := s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:  prefix,
		MaxKeys: 1,
	})
	for obj := range listing {
		if obj.Err != nil {
			return "", obj.Err
		}
		return prefix, nil
	}

	marker := prefix + ".keep"
	if _, err := s.client.PutObject(ctx, s.bucket, marker, strings.NewReader(""), 0, minio.PutObjectOptions{}); err != nil {
		return "", fmt.Errorf("folder marker failed: %w", err)
	}
	return prefix, nil
}

// Upload stores a local file under the folder prefix and returns its metadata.
func (s *MinioStore) Upload(ctx context.Context, filePath, folderID, name string) (FileMeta, error) {
	stat, err := os.Stat(filePath)
	if err != nil {
		return FileMeta{}, err
	}
	if name == "" {
		name = path.Base(filePath)
	}
	objectName := folderID + name
	contentType := fileinfo.ContentTypeFor(filePath)

	if _, err := s.client.FPutObject(ctx, s.bucket, objectName, filePath, minio.PutObjectOptions{
		ContentType: contentType,
	}); err != nil {
		return FileMeta{}, err
	}

	meta := FileMeta{
		FileID:    objectName,
		FileName:  name,
		MimeType:  contentType,
		SizeBytes: stat.Size(),
	}
	if viewLink, err := s.presign(ctx, objectName, "inline"); err == nil {
		meta.ViewLink = viewLink
	}
	return meta, nil
}

// Share returns a presigned download URL for an uploaded object.
func (s *MinioStore) Share(ctx context.Context, fileID string) (string, error) {
	if fileID == "" {
		return "", fmt.Errorf("empty file id")
	}
	return s.presign(ctx, fileID, "attachment")
}

func (s *MinioStore) presign(ctx context.Context, objectName, disposition string) (string, error) {
	params := url.Values{}
	params.Set("response-content-disposition",
		fmt.Sprintf("%s; filename=\"%s\"", disposition, utils.SanitizeHeaderFilename(path.Base(objectName))))
	u, err := s.client.PresignedGetObject(ctx, s.bucket, objectName, config.AppConfig.ShareLinkExpiry, params)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

// InitMinio initializes the MinIO client and bucket.
func InitMinio() {
	client, err := minio.New(fmt.Sprintf("%s:%s", config.AppConfig.MinioHost, config.AppConfig.MinioPort), &minio.Options{
		Creds:  credentials.NewStaticV4(config.AppConfig.MinioUsername, config.AppConfig.MinioPassword, ""),
		Secure: false,
	})
	if err != nil {
		log.Fatalln("minio error:", err)
	}
	store := NewMinioStore(client, config.AppConfig.BucketName)
	if err := store.Authenticate(context.Background()); err != nil {
		log.Fatalln("minio bucket error:", err)
	}
	Default = store
}
