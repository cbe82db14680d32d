package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"strings"

	"github.com/google/uuid"
	"github.com/krshsl/praxis/interviewer/repository"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

var ErrStorageDisabled = errors.New("recording storage is not configured")

// RecordingService uploads recorded interview video to an S3 compatible
// bucket and links it to the interview.
type RecordingService struct {
	repo      *repository.GORMRepository
	client    *minio.Client
	bucket    string
	publicURL string
}

// NewRecordingService returns a disabled service when no endpoint is
// configured. Upload then reports ErrStorageDisabled.
func NewRecordingService(ctx context.Context, cfg StorageConfig, repo *repository.GORMRepository) (*RecordingService, error) {
	s := &RecordingService{repo: repo, bucket: cfg.Bucket}
	if cfg.Endpoint == "" {
		slog.Warn("Recording storage disabled, STORAGE_ENDPOINT is not set")
		return s, nil
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", cfg.Bucket, err)
		}
		slog.Info("Created recording bucket", "bucket", cfg.Bucket)
	}

	s.client = client
	s.publicURL = strings.TrimSuffix(cfg.PublicURL, "/")
	if s.publicURL == "" {
		s.publicURL = client.EndpointURL().String()
	}
	return s, nil
}

func (s *RecordingService) Enabled() bool {
	return s.client != nil
}

// Upload stores the recording of an owned interview and returns its URL.
func (s *RecordingService) Upload(ctx context.Context, userID, interviewID string, r io.Reader, size int64, contentType string) (string, error) {
	if !s.Enabled() {
		return "", ErrStorageDisabled
	}

	interview, err := s.repo.GetInterviewForUser(ctx, interviewID, userID)
	if err != nil {
		return "", fmt.Errorf("failed to load interview: %w", err)
	}
	if interview == nil {
		return "", ErrInterviewNotFound
	}

	if contentType == "" {
		contentType = "video/webm"
	}
	object := fmt.Sprintf("interviews/%s/%s%s", interview.ID, uuid.NewString(), extensionFor(contentType))

	info, err := s.client.PutObject(ctx, s.bucket, object, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload recording: %w", err)
	}

	url := fmt.Sprintf("%s/%s/%s", s.publicURL, s.bucket, object)
	if err := s.repo.SetInterviewVideoURL(ctx, interview.ID, url); err != nil {
		return "", fmt.Errorf("failed to link recording: %w", err)
	}

	slog.Info("Recording uploaded", "interview_id", interview.ID, "object", object, "size", info.Size)
	return url, nil
}

func extensionFor(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ".webm"
	}
	switch mediaType {
	case "video/mp4":
		return ".mp4"
	case "video/quicktime":
		return ".mov"
	default:
		return ".webm"
	}
}
