package export

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/nbyapp/nbyapp/internal/app"
)

// S3Config configures the object storage exporter
type S3Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// S3Exporter uploads files to <bucket>/<appID>/<name> on any S3-compatible store
type S3Exporter struct {
	client   *minio.Client
	bucket   string
	region   string
	initOnce sync.Once
	initErr  error
}

// NewS3Exporter creates an exporter for cfg
func NewS3Exporter(cfg S3Config) (*S3Exporter, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("s3 endpoint is required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}

	return &S3Exporter{client: client, bucket: bucket, region: region}, nil
}

// Name returns the exporter name
func (s *S3Exporter) Name() string {
	return "s3"
}

func (s *S3Exporter) ensureBucket(ctx context.Context) error {
	s.initOnce.Do(func() {
		exists, err := s.client.BucketExists(ctx, s.bucket)
		if err != nil {
			s.initErr = err
			return
		}
		if exists {
			return
		}
		s.initErr = s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region})
	})
	return s.initErr
}

// Export uploads every file with content
func (s *S3Exporter) Export(ctx context.Context, appID string, files []app.File) (string, error) {
	if err := checkSegment(appID); err != nil {
		return "", err
	}
	if err := s.ensureBucket(ctx); err != nil {
		return "", fmt.Errorf("ensure bucket %s: %w", s.bucket, err)
	}

	for _, f := range files {
		if f.Name == "" || f.Content == "" {
			continue
		}
		key := appID + "/" + strings.TrimLeft(f.Name, "/")
		_, err := s.client.PutObject(ctx, s.bucket, key, strings.NewReader(f.Content), int64(len(f.Content)),
			minio.PutObjectOptions{ContentType: contentType(f.Type)})
		if err != nil {
			return "", fmt.Errorf("put %s: %w", key, err)
		}
	}
	return fmt.Sprintf("s3://%s/%s/", s.bucket, appID), nil
}

func contentType(t app.FileType) string {
	switch t {
	case app.FileTypeHTML:
		return "text/html; charset=utf-8"
	case app.FileTypeCSS:
		return "text/css; charset=utf-8"
	case app.FileTypeJavaScript:
		return "text/javascript; charset=utf-8"
	default:
		return "text/plain; charset=utf-8"
	}
}
