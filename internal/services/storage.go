package services

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"reelgen-backend/internal/models"
)

const (
	signedUploadExpiry   = 10 * time.Minute
	signedDownloadExpiry = 60 * time.Minute
)

var allowedExtensions = map[string]string{
	".txt":  models.FileCategoryDocument,
	".pdf":  models.FileCategoryDocument,
	".docx": models.FileCategoryDocument,
	".png":  models.FileCategoryImage,
	".jpg":  models.FileCategoryImage,
	".jpeg": models.FileCategoryImage,
	".webp": models.FileCategoryImage,
	".mp3":  models.FileCategoryAudio,
	".wav":  models.FileCategoryAudio,
	".ogg":  models.FileCategoryAudio,
	".mp4":  models.FileCategoryVideo,
	".mov":  models.FileCategoryVideo,
	".webm": models.FileCategoryVideo,
}

// StorageService wraps the S3-compatible object store holding uploaded files
// and generated media.
type StorageService struct {
	client        *minio.Client
	bucket        string
	maxUploadSize int64
}

type StorageConfig struct {
	Endpoint        string
	AccessKey       string
	SecretKey       string
	Bucket          string
	UseSSL          bool
	MaxUploadSizeMB int
}

func NewStorageService(ctx context.Context, cfg StorageConfig) (*StorageService, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("creating minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("checking bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("creating bucket %s: %w", cfg.Bucket, err)
		}
	}

	maxSize := int64(cfg.MaxUploadSizeMB)
	if maxSize <= 0 {
		maxSize = 50
	}

	return &StorageService{
		client:        client,
		bucket:        cfg.Bucket,
		maxUploadSize: maxSize * 1024 * 1024,
	}, nil
}

func (s *StorageService) MaxUploadSize() int64 { return s.maxUploadSize }

// ValidateUpload checks extension and size limits before anything touches the
// store. Returns the file category for accepted files.
func (s *StorageService) ValidateUpload(filename string, size int64) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	category, ok := allowedExtensions[ext]
	if !ok {
		return "", fmt.Errorf("file type %s is not allowed", ext)
	}
	if size > s.maxUploadSize {
		return "", fmt.Errorf("file exceeds maximum size of %d bytes", s.maxUploadSize)
	}
	return category, nil
}

// UniqueObjectName builds a collision-free object key scoped by user:
// user_<id>/<timestamp>_<stem>_<uuid8><ext>. The stem is sanitized so object
// keys stay URL-safe.
func UniqueObjectName(userID uuid.UUID, originalFilename string) string {
	ext := strings.ToLower(filepath.Ext(originalFilename))
	stem := strings.TrimSuffix(filepath.Base(originalFilename), filepath.Ext(originalFilename))
	stem = sanitizeStem(stem)
	short := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("user_%s/%d_%s_%s%s", userID, time.Now().Unix(), stem, short, ext)
}

func sanitizeStem(stem string) string {
	var b strings.Builder
	for _, r := range stem {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "file"
	}
	return b.String()
}

func (s *StorageService) Upload(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, objectName, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("uploading %s: %w", objectName, err)
	}
	return nil
}

// UploadLocalFile pushes a file from local disk (e.g. a downloaded render)
// into the store.
func (s *StorageService) UploadLocalFile(ctx context.Context, objectName, localPath, contentType string) (int64, error) {
	info, err := s.client.FPutObject(ctx, s.bucket, objectName, localPath, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return 0, fmt.Errorf("uploading %s from %s: %w", objectName, localPath, err)
	}
	return info.Size, nil
}

// Download reads an entire object into memory. Session documents are small
// enough that buffering is fine.
func (s *StorageService) Download(ctx context.Context, objectName string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", objectName, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", objectName, err)
	}
	return data, nil
}

func (s *StorageService) Exists(ctx context.Context, objectName string) (bool, error) {
	_, err := s.client.StatObject(ctx, s.bucket, objectName, minio.StatObjectOptions{})
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *StorageService) Delete(ctx context.Context, objectName string) error {
	return s.client.RemoveObject(ctx, s.bucket, objectName, minio.RemoveObjectOptions{})
}

// SignedUploadURL returns a presigned PUT URL valid for 10 minutes.
func (s *StorageService) SignedUploadURL(ctx context.Context, objectName string) (string, time.Time, error) {
	u, err := s.client.PresignedPutObject(ctx, s.bucket, objectName, signedUploadExpiry)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing upload url for %s: %w", objectName, err)
	}
	return u.String(), time.Now().Add(signedUploadExpiry), nil
}

// SignedDownloadURL returns a presigned GET URL valid for 60 minutes. When
// downloadName is non-empty the response is served as an attachment.
func (s *StorageService) SignedDownloadURL(ctx context.Context, objectName, downloadName string) (string, time.Time, error) {
	params := url.Values{}
	if downloadName != "" {
		params.Set("response-content-disposition", fmt.Sprintf("attachment; filename=%q", downloadName))
	}
	u, err := s.client.PresignedGetObject(ctx, s.bucket, objectName, signedDownloadExpiry, params)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing download url for %s: %w", objectName, err)
	}
	return u.String(), time.Now().Add(signedDownloadExpiry), nil
}

// ContentTypeForExt maps common media extensions to MIME types, falling back
// to octet-stream.
func ContentTypeForExt(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt":
		return "text/plain"
	case ".pdf":
		return "application/pdf"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	case ".mp3":
		return "audio/mpeg"
	case ".wav":
		return "audio/wav"
	case ".ogg":
		return "audio/ogg"
	case ".mp4":
		return "video/mp4"
	case ".mov":
		return "video/quicktime"
	case ".webm":
		return "video/webm"
	default:
		return "application/octet-stream"
	}
}

// CleanupLocalFile removes a temp artifact, ignoring not-found.
func CleanupLocalFile(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return
	}
}
