package retention

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/s3blob"
)

// Bucket defines the interface for archive storage operations.
type Bucket interface {
	NewReader(ctx context.Context, key string, opts *blob.ReaderOptions) (Reader, error)
	NewWriter(ctx context.Context, key string, opts *blob.WriterOptions) (Writer, error)
	Copy(ctx context.Context, dstKey, srcKey string, opts *blob.CopyOptions) error
	Exists(ctx context.Context, key string) (bool, error)
}

// Reader defines the interface for reading archived objects.
type Reader interface {
	io.ReadCloser
	Size() int64
}

// Writer defines the interface for writing archive objects.
type Writer interface {
	io.WriteCloser
}

// blobBucket implements the Bucket interface using "gocloud.dev/blob".
type blobBucket struct {
	*blob.Bucket
}

// NewReader creates a new Reader for the given object key.
func (b *blobBucket) NewReader(ctx context.Context, key string, opts *blob.ReaderOptions) (Reader, error) {
	return b.Bucket.NewReader(ctx, key, opts)
}

// NewWriter creates a new Writer for the given object key.
func (b *blobBucket) NewWriter(ctx context.Context, key string, opts *blob.WriterOptions) (Writer, error) {
	return b.Bucket.NewWriter(ctx, key, opts)
}

// NewBlobBucket creates a new Bucket using "gocloud.dev/blob".
func NewBlobBucket(bucket *blob.Bucket) Bucket {
	return &blobBucket{bucket}
}

// ArchiveWriteManager appends JSONL records to one archive object and rotates
// it once the maximum size is exceeded.
type ArchiveWriteManager struct {
	bucket      Bucket
	objectName  string
	maxSize     int64
	currentSize int64
	mu          sync.Mutex
	writer      Writer
}

// NewArchiveWriteManager creates a write manager for the archive object.
func NewArchiveWriteManager(bucket Bucket, objectName string, maxSize int64) (*ArchiveWriteManager, error) {
	manager := &ArchiveWriteManager{
		bucket:     bucket,
		objectName: objectName,
		maxSize:    maxSize,
	}

	// Initialize currentSize from the existing object, if any
	ctx := context.Background()
	r, err := bucket.NewReader(ctx, objectName, nil)
	exists, existsErr := bucket.Exists(ctx, objectName)
	if existsErr != nil {
		return nil, fmt.Errorf("failed to check if object exists: %w", existsErr)
	}
	if err != nil && exists {
		return nil, fmt.Errorf("failed to create reader: %w", err)
	}
	if err == nil {
		defer r.Close()
		manager.currentSize = r.Size()
	}

	return manager, nil
}

// Write appends one record to the current object and rotates in the
// background if the maximum size is exceeded.
func (manager *ArchiveWriteManager) Write(ctx context.Context, record string) (int, error) {
	manager.mu.Lock()
	defer manager.mu.Unlock()

	if manager.writer == nil {
		var err error
		manager.writer, err = manager.bucket.NewWriter(ctx, manager.objectName, nil)
		if err != nil {
			return 0, fmt.Errorf("failed to create writer: %w", err)
		}
		manager.currentSize = 0 // Reset size for the new object
	}

	n, err := manager.writer.Write([]byte(record))
	if err != nil {
		return n, fmt.Errorf("failed to write to object: %w", err)
	}
	manager.currentSize += int64(n)

	if manager.currentSize >= manager.maxSize {
		go manager.rotateInBackground(ctx)
	}

	return n, nil
}

// rotateInBackground performs the object rotation in a separate goroutine.
func (manager *ArchiveWriteManager) rotateInBackground(ctx context.Context) {
	manager.mu.Lock() // Lock to prevent concurrent rotations
	defer manager.mu.Unlock()

	// Close the current writer before rotating
	if manager.writer != nil {
		if err := manager.writer.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close writer")
			return
		}
		manager.writer = nil
	}

	if err := manager.rotate(ctx); err != nil {
		log.Error().Err(err).Msg("failed to rotate object")
	}
}

// rotate copies the full object to a timestamped name so the original key can
// start over.
func (manager *ArchiveWriteManager) rotate(ctx context.Context) error {
	fileExt := filepath.Ext(manager.objectName)
	baseName := manager.objectName[0 : len(manager.objectName)-len(fileExt)]

	newObjectName := fmt.Sprintf("%s_%d%s", baseName, time.Now().Unix(), fileExt)
	if err := manager.bucket.Copy(ctx, newObjectName, manager.objectName, nil); err != nil {
		return fmt.Errorf("failed to copy object: %w", err)
	}

	return nil
}

// Close closes the underlying writer.
func (manager *ArchiveWriteManager) Close() error {
	manager.mu.Lock()
	defer manager.mu.Unlock()
	if manager.writer != nil {
		return manager.writer.Close()
	}
	return nil
}
