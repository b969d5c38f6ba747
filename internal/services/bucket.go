package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/yungbote/school-backend/internal/platform/envutil"
	"github.com/yungbote/school-backend/internal/platform/logger"
)

// BucketService stores generated images and returns the URL clients load
// them from.
type BucketService interface {
	UploadFile(ctx context.Context, key, contentType string, file io.Reader) (string, error)
	DeleteFile(ctx context.Context, key string) error
	GetPublicURL(key string) string
}

type bucketService struct {
	log           *logger.Logger
	storageClient *storage.Client
	bucketName    string
	cdnDomain     string
}

// NewBucketService connects to GCS_BUCKET. Without a bucket configured it
// returns an error and callers fall back to NewDataURLBucket.
func NewBucketService(log *logger.Logger) (BucketService, error) {
	serviceLog := log.With("service", "BucketService")
	bucket := envutil.String("GCS_BUCKET", "", log)
	if bucket == "" {
		return nil, fmt.Errorf("missing env var GCS_BUCKET")
	}
	cdnDomain := envutil.String("CDN_DOMAIN", "", log)
	saPath := envutil.String("GOOGLE_APPLICATION_CREDENTIALS_JSON", "", log)
	if saPath == "" {
		serviceLog.Warn("GOOGLE_APPLICATION_CREDENTIALS_JSON not set, relying on default credentials")
	}

	ctx := context.Background()
	var (
		stClient *storage.Client
		err      error
	)
	if saPath != "" {
		stClient, err = storage.NewClient(ctx, option.WithCredentialsFile(saPath), option.WithScopes(storage.ScopeReadWrite))
	} else {
		stClient, err = storage.NewClient(ctx, option.WithScopes(storage.ScopeReadWrite))
	}
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &bucketService{
		log:           serviceLog,
		storageClient: stClient,
		bucketName:    bucket,
		cdnDomain:     cdnDomain,
	}, nil
}

func (bs *bucketService) UploadFile(ctx context.Context, key, contentType string, file io.Reader) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()
	w := bs.storageClient.Bucket(bs.bucketName).Object(key).NewWriter(ctx)
	w.ContentType = contentType
	w.CacheControl = "public, max-age=31536000, immutable"
	if _, err := io.Copy(w, file); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("write object %q: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("close object %q: %w", key, err)
	}
	return bs.GetPublicURL(key), nil
}

func (bs *bucketService) DeleteFile(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := bs.storageClient.Bucket(bs.bucketName).Object(key).Delete(ctx); err != nil {
		return fmt.Errorf("delete object %q: %w", key, err)
	}
	return nil
}

func (bs *bucketService) GetPublicURL(key string) string {
	if bs.cdnDomain != "" {
		return fmt.Sprintf("https://%s/%s", bs.cdnDomain, key)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", bs.bucketName, key)
}

// dataURLBucket inlines images as data URLs. Used when no bucket is
// configured; nothing is stored, so delete is a no-op.
type dataURLBucket struct{}

func NewDataURLBucket() BucketService { return dataURLBucket{} }

func (dataURLBucket) UploadFile(ctx context.Context, key, contentType string, file io.Reader) (string, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, file); err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func (dataURLBucket) DeleteFile(ctx context.Context, key string) error { return nil }

func (dataURLBucket) GetPublicURL(key string) string { return "" }
