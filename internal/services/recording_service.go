package services

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// RecordingService archives provider call recordings into object storage and
// hands out presigned links for playback.
type RecordingService interface {
	Archive(ctx context.Context, workspaceID, conversationID uuid.UUID, recordingURL string) (string, error)
	PresignedURL(ctx context.Context, object string, expiry time.Duration) (string, error)
	Delete(ctx context.Context, object string) error
}

type recordingService struct {
	client *minio.Client
	bucket string
	http   *http.Client
}

func NewRecordingService(endpoint, accessKey, secretKey, bucket string, useSSL bool) (RecordingService, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	svc := &recordingService{
		client: client,
		bucket: bucket,
		http:   &http.Client{Timeout: 2 * time.Minute},
	}

	exists, err := client.BucketExists(context.Background(), bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(context.Background(), bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", bucket, err)
		}
		log.Printf("Created recordings bucket %s", bucket)
	}
	return svc, nil
}

// Archive streams the provider's recording into the bucket and returns the
// object key to store on the conversation.
func (s *recordingService) Archive(ctx context.Context, workspaceID, conversationID uuid.UUID, recordingURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, recordingURL, nil)
	if err != nil {
		return "", fmt.Errorf("invalid recording url: %w", err)
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch recording: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("recording fetch returned %d", resp.StatusCode)
	}

	object := fmt.Sprintf("%s/%s.wav", workspaceID, conversationID)
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "audio/wav"
	}
	_, err = s.client.PutObject(ctx, s.bucket, object, resp.Body, resp.ContentLength, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to store recording: %w", err)
	}
	return object, nil
}

func (s *recordingService) PresignedURL(ctx context.Context, object string, expiry time.Duration) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, object, expiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("failed to presign recording: %w", err)
	}
	return u.String(), nil
}

func (s *recordingService) Delete(ctx context.Context, object string) error {
	return s.client.RemoveObject(ctx, s.bucket, object, minio.RemoveObjectOptions{})
}
