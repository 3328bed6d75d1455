package objectstore

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/docsense/aicore/pkg/logger"
)

// Store reads document content out of MinIO. It resolves a Document's
// storage reference ("bucket/key", or a bare key against the default
// bucket) to raw bytes. Read-only: ingestion upload plumbing is out of
// scope for this subsystem.
type Store struct {
	client *minio.Client
	cfg    Config
	logger *logger.Logger
}

// NewStore creates and validates a MinIO-backed store.
func NewStore(cfg Config, l *logger.Logger) (*Store, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("minio endpoint cannot be empty")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to minio: %w", err)
	}

	s := &Store{
		client: client,
		cfg:    cfg,
		logger: l,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.validateConnection(ctx); err != nil {
		l.Error("failed to validate minio connection", err, map[string]interface{}{
			"endpoint": cfg.Endpoint,
			"bucket":   cfg.Bucket,
		})
		return nil, err
	}

	l.Info("connected to minio", nil, map[string]interface{}{
		"endpoint": cfg.Endpoint,
		"bucket":   cfg.Bucket,
	})
	return s, nil
}

// validateConnection lists buckets to ensure the connection and credentials
// are valid.
func (s *Store) validateConnection(ctx context.Context) error {
	_, err := s.client.ListBuckets(ctx)
	return err
}

// ReadDocument resolves a storage reference to the document's raw bytes.
func (s *Store) ReadDocument(ctx context.Context, storageRef string) ([]byte, error) {
	bucket, key, err := s.resolveRef(storageRef)
	if err != nil {
		return nil, err
	}

	obj, err := s.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object %s/%s: %w", bucket, key, err)
	}
	defer func() {
		if cerr := obj.Close(); cerr != nil {
			s.logger.Error("failed to close object reader", cerr, nil)
		}
	}()

	info, err := obj.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat object %s/%s: %w", bucket, key, err)
	}

	data := make([]byte, info.Size)
	if _, err := io.ReadFull(obj, data); err != nil {
		return nil, fmt.Errorf("failed to read object %s/%s: %w", bucket, key, err)
	}
	return data, nil
}

// resolveRef splits a storage reference into bucket and key. A reference
// without a slash is a key in the default bucket.
func (s *Store) resolveRef(storageRef string) (bucket, key string, err error) {
	ref := strings.TrimSpace(storageRef)
	if ref == "" {
		return "", "", fmt.Errorf("storage reference cannot be empty")
	}

	if i := strings.Index(ref, "/"); i > 0 && i < len(ref)-1 {
		return ref[:i], ref[i+1:], nil
	}
	if strings.HasPrefix(ref, "/") || strings.HasSuffix(ref, "/") {
		return "", "", fmt.Errorf("malformed storage reference %q", storageRef)
	}
	return s.cfg.Bucket, ref, nil
}
