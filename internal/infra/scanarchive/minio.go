package scanarchive

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/smallsteps/growthscreen/internal/domain/screening"
)

// MinioArchive keeps remote-verified scan images in an S3-compatible object
// store for later clinical audit.
type MinioArchive struct {
	client *minio.Client
	bucket string
	logger *slog.Logger
}

// NewMinioArchive constructs the archive adapter.
func NewMinioArchive(endpoint, accessKey, secretKey, bucket, region string, logger *slog.Logger) (*MinioArchive, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cleanEndpoint := sanitizeEndpoint(endpoint)
	useSSL := strings.HasPrefix(strings.ToLower(endpoint), "https")
	client, err := minio.New(cleanEndpoint, &minio.Options{
		Creds:        credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure:       useSSL,
		Region:       region,
		BucketLookup: minio.BucketLookupPath,
	})
	if err != nil {
		return nil, fmt.Errorf("init archive client: %w", err)
	}
	return &MinioArchive{client: client, bucket: bucket, logger: logger.With("component", "scanarchive.minio")}, nil
}

func (a *MinioArchive) ensureBucket(ctx context.Context) error {
	exists, err := a.client.BucketExists(ctx, a.bucket)
	if err == nil && exists {
		return nil
	}
	err = a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{})
	if err != nil && minio.ToErrorResponse(err).Code != "BucketAlreadyOwnedByYou" {
		return err
	}
	return nil
}

// Store uploads the scan image and returns its object key.
func (a *MinioArchive) Store(ctx context.Context, req screening.AnalysisRequest) (string, error) {
	if err := a.ensureBucket(ctx); err != nil {
		return "", err
	}
	key := ObjectKey(req)
	reader := bytes.NewReader(req.ImageData)
	_, err := a.client.PutObject(ctx, a.bucket, key, reader, int64(len(req.ImageData)), minio.PutObjectOptions{
		ContentType:      "image/jpeg",
		DisableMultipart: len(req.ImageData) < 5*1024*1024, // small uploads as single part
	})
	if err != nil {
		return "", err
	}
	return key, nil
}

// ObjectKey derives a stable archive location from the capture identity.
func ObjectKey(req screening.AnalysisRequest) string {
	return fmt.Sprintf("scans/%s/%s/%d.jpg", req.SessionID, req.ScanAngle, req.CapturedAt.UTC().Unix())
}

var _ screening.ScanArchive = (*MinioArchive)(nil)

// sanitizeEndpoint removes schemes and paths to satisfy minio.New expectations.
func sanitizeEndpoint(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return raw
	}
	raw = strings.TrimPrefix(strings.TrimPrefix(raw, "https://"), "http://")
	if strings.Contains(raw, "/") {
		parts := strings.Split(raw, "/")
		raw = parts[0]
	}
	return raw
}
