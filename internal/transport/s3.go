package transport

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"dirpush/internal/candidate"
	"dirpush/internal/outcome"
)

// S3Config configures the S3-compatible transport.
type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
	Secure    bool
}

// S3Transport uploads candidates to an S3-compatible service using
// minio-go.
type S3Transport struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewS3 creates an S3 transport.
func NewS3(cfg S3Config) (*S3Transport, error) {
	endpoint, err := cleanEndpoint(cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint: %w", err)
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
	})
	if err != nil {
		return nil, err
	}

	return &S3Transport{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
	}, nil
}

// cleanEndpoint reduces an endpoint URL to host:port form.
func cleanEndpoint(endpoint string) (string, error) {
	if endpoint == "" {
		return "", fmt.Errorf("endpoint cannot be empty")
	}

	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		if strings.Contains(endpoint, "/") {
			return "", fmt.Errorf("endpoint contains path but no protocol")
		}
		return endpoint, nil
	}

	parsed, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("parse endpoint URL: %w", err)
	}
	if parsed.Path != "" && parsed.Path != "/" {
		return "", fmt.Errorf("endpoint must be host:port, got path %q", parsed.Path)
	}

	return parsed.Host, nil
}

// Upload streams the candidate's content to the bucket under
// prefix/relative-dir/name.
func (t *S3Transport) Upload(ctx context.Context, f candidate.File) outcome.Outcome[Receipt] {
	file, err := os.Open(f.LocalPath)
	if err != nil {
		return outcome.Fail[Receipt](fmt.Errorf("open %s: %w", f.LocalPath, err))
	}
	defer file.Close()

	key := f.RemoteKey()
	if t.prefix != "" {
		key = path.Join(t.prefix, key)
	}

	_, err = t.client.PutObject(ctx, t.bucket, key, file, f.Size, minio.PutObjectOptions{
		ContentType: f.MediaType,
	})
	if err != nil {
		return outcome.Fail[Receipt](fmt.Errorf("put %s: %w", key, err))
	}

	return outcome.Ok(Receipt{
		ID:         uuid.NewString(),
		RemotePath: key,
		UploadedAt: time.Now().UTC(),
	})
}
