package s3

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/mwantia/lvfs/backend"
	"github.com/mwantia/lvfs/data"
)

// S3Backend stores every record as one object in an S3-compatible bucket,
// named by the object name layout of the backend package.
type S3Backend struct {
	mu sync.RWMutex

	client *minio.Client
	config *S3BackendConfig
}

// S3BackendConfig contains configuration options for the S3 backend
type S3BackendConfig struct {
	Endpoint  string
	Bucket    string
	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool

	// Prefix for all object names (default: "lvfs")
	Prefix string

	// CreateBucket creates a missing bucket on Open instead of failing
	CreateBucket bool
}

func NewS3Backend(config *S3BackendConfig) (*S3Backend, error) {
	if config == nil || config.Endpoint == "" || config.Bucket == "" {
		return nil, fmt.Errorf("s3: endpoint and bucket are required")
	}

	config.Prefix = strings.Trim(config.Prefix, "/")
	if config.Prefix == "" {
		config.Prefix = "lvfs"
	}

	client, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.AccessKey, config.SecretKey, ""),
		Secure: config.UseSSL,
		Region: config.Region,
	})
	if err != nil {
		return nil, err
	}

	return &S3Backend{
		client: client,
		config: config,
	}, nil
}

// Returns the identifier name defined for this backend
func (*S3Backend) Name() string {
	return "s3"
}

// Open is part of the lifecycle behaviour and gets called when opening this backend.
func (sb *S3Backend) Open(ctx context.Context) error {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	exists, err := sb.client.BucketExists(ctx, sb.config.Bucket)
	if err != nil {
		return err
	}

	if !exists {
		if !sb.config.CreateBucket {
			return fmt.Errorf("s3: bucket '%s' does not exist", sb.config.Bucket)
		}

		if err := sb.client.MakeBucket(ctx, sb.config.Bucket, minio.MakeBucketOptions{Region: sb.config.Region}); err != nil {
			return err
		}
	}

	return sb.initSchemaUnsafe(ctx)
}

// initSchemaUnsafe checks and writes the schema marker object.
// MUST be called while holding a write lock.
func (sb *S3Backend) initSchemaUnsafe(ctx context.Context) error {
	name := sb.config.Prefix + "/schema"

	raw, exists, err := sb.getObjectUnsafe(ctx, name)
	if err != nil {
		return err
	}

	stored := 0
	if exists {
		stored, err = strconv.Atoi(string(raw))
		if err != nil {
			return fmt.Errorf("%w: malformed version %q", data.ErrSchemaVersion, raw)
		}
	}

	upgrade, err := backend.CheckSchema(stored)
	if err != nil || !upgrade {
		return err
	}

	return sb.putObjectUnsafe(ctx, name, []byte(strconv.Itoa(backend.SchemaVersion)), "text/plain")
}

// Close is part of the lifecycle behaviour and gets called when closing this backend.
func (sb *S3Backend) Close(ctx context.Context) error {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	return nil
}

// GetCapabilities returns a list of capabilities supported by this backend.
func (sb *S3Backend) GetCapabilities() *backend.BackendCapabilities {
	return &backend.BackendCapabilities{
		Capabilities: []backend.BackendCapability{
			backend.CapabilityPersistent,
			backend.CapabilityOrderedScan,
		},
	}
}
