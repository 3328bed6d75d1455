package objectstore

import "os"

// Config contains MinIO server connection details. This subsystem only reads
// document content; upload plumbing lives elsewhere.
type Config struct {
	Endpoint        string // MinIO server endpoint, e.g. "localhost:9000"
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
	Bucket          string // default bucket for refs without an explicit bucket
	Region          string
}

// NewConfig reads from environment variables.
func NewConfig() Config {
	return Config{
		Endpoint:        envOr("MINIO_ENDPOINT", "localhost:9000"),
		AccessKeyID:     os.Getenv("MINIO_ACCESS_KEY"),
		SecretAccessKey: os.Getenv("MINIO_SECRET_KEY"),
		UseSSL:          os.Getenv("MINIO_USE_SSL") == "true",
		Bucket:          envOr("MINIO_BUCKET", "documents"),
		Region:          os.Getenv("MINIO_REGION"),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
