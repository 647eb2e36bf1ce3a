package s3

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/mwantia/lvfs/backend"
	"github.com/mwantia/lvfs/backend/storetest"
)

func getenv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// Requires an S3-compatible endpoint such as a local MinIO server, e.g.
// LVFS_TEST_S3_ENDPOINT=localhost:9000
func TestS3Backend(t *testing.T) {
	endpoint := os.Getenv("LVFS_TEST_S3_ENDPOINT")
	if endpoint == "" {
		t.Skip("LVFS_TEST_S3_ENDPOINT not set")
	}

	storetest.Run(t, func(t *testing.T) (backend.StorageBackend, error) {
		sb, err := NewS3Backend(&S3BackendConfig{
			Endpoint:     endpoint,
			Bucket:       getenv("LVFS_TEST_S3_BUCKET", "lvfs-test"),
			AccessKey:    getenv("LVFS_TEST_S3_ACCESS_KEY", "minioadmin"),
			SecretKey:    getenv("LVFS_TEST_S3_SECRET_KEY", "minioadmin"),
			Prefix:       "lvfs-test/" + uuid.NewString(),
			CreateBucket: true,
		})
		if err != nil {
			return nil, err
		}

		t.Cleanup(func() {
			removePrefix(context.Background(), sb)
		})

		return sb, nil
	})
}

func removePrefix(ctx context.Context, sb *S3Backend) {
	objects := sb.client.ListObjects(ctx, sb.config.Bucket, minio.ListObjectsOptions{
		Prefix:    sb.config.Prefix + "/",
		Recursive: true,
	})

	for range sb.client.RemoveObjects(ctx, sb.config.Bucket, objects, minio.RemoveObjectsOptions{}) {
	}
}

func TestS3Backend_Config(t *testing.T) {
	if _, err := NewS3Backend(&S3BackendConfig{Bucket: "lvfs"}); err == nil {
		t.Errorf("Expected error without endpoint")
	}

	sb, err := NewS3Backend(&S3BackendConfig{Endpoint: "localhost:9000", Bucket: "lvfs", Prefix: "/nested/"})
	if err != nil {
		t.Fatalf("Backend init failed: %v", err)
	}
	if sb.config.Prefix != "nested" {
		t.Errorf("Expected trimmed prefix 'nested', got %q", sb.config.Prefix)
	}
}

// A listing error must end the scan instead of leaving the lister waiting.
func TestS3Backend_ListError(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>` +
			`<Error><Code>AccessDenied</Code><Message>Access Denied</Message>` +
			`<BucketName>lvfs</BucketName><RequestId>1</RequestId></Error>`))
	}))
	defer server.Close()

	sb, err := NewS3Backend(&S3BackendConfig{
		Endpoint:  strings.TrimPrefix(server.URL, "http://"),
		Bucket:    "lvfs",
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
		Region:    "us-east-1",
	})
	if err != nil {
		t.Fatalf("Backend init failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(t.Context(), 10*time.Second)
	defer cancel()

	calls := 0
	err = sb.ScanAll(ctx, backend.TableMeta, func(key backend.Key, value []byte) error {
		calls++
		return nil
	})
	if err == nil {
		t.Fatalf("Expected listing error")
	}
	if ctx.Err() != nil {
		t.Fatalf("Scan did not return before the deadline: %v", err)
	}
	if calls != 0 {
		t.Errorf("Expected no records, got %d", calls)
	}

	if err := sb.DeleteByPath(ctx, backend.TableData, "/a"); err == nil {
		t.Errorf("Expected listing error from DeleteByPath")
	}
	if requests.Load() == 0 {
		t.Errorf("Expected requests against the test server")
	}
}
