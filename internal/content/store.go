// Package content implements a content-addressed blob store. Blobs are
// named by the SHA-256 digest of their bytes, so identical payloads are
// stored once regardless of how many times they are ingested.
package content

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"vouch/internal/platform/metrics"
	"vouch/internal/sentinel"
	dErrors "vouch/pkg/domain-errors"
	psync "vouch/pkg/platform/sync"
)

// IngestResult describes the outcome of an ingest.
type IngestResult struct {
	Digest    string
	Size      int64
	Duplicate bool
}

// Store is a filesystem-backed content-addressed blob store.
//
// Layout under the root:
//
//	blobs/sha256/<digest>  published blobs, immutable once linked
//	ingest/<uuid>          in-flight temporary files
type Store struct {
	root    string
	locks   *psync.ShardedMutex
	log     *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

// Option configures the store.
type Option func(*Store)

// WithLogger sets the structured logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Store) { s.log = log }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// NewStore prepares the directory layout under root and returns a store.
func NewStore(root string, opts ...Option) (*Store, error) {
	s := &Store{
		root:   root,
		locks:  psync.NewShardedMutex(),
		log:    slog.Default(),
		tracer: otel.Tracer("vouch/content"),
	}
	for _, opt := range opts {
		opt(s)
	}

	for _, dir := range []string{s.blobDir(), s.ingestDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("prepare content store: %w", err)
		}
	}
	return s, nil
}

func (s *Store) blobDir() string {
	return filepath.Join(s.root, "blobs", "sha256")
}

func (s *Store) ingestDir() string {
	return filepath.Join(s.root, "ingest")
}

func (s *Store) blobPath(digest string) string {
	return filepath.Join(s.blobDir(), digest)
}

// Ingest reads the payload, stores it under its digest, and reports
// whether an identical blob already existed. The payload is written to a
// temporary file first and published with a hard link, which atomically
// fails when the target digest already exists. Concurrent ingests of the
// same payload therefore agree on a single stored blob.
func (s *Store) Ingest(ctx context.Context, payload io.Reader) (IngestResult, error) {
	ctx, span := s.tracer.Start(ctx, "content.Ingest")
	defer span.End()

	tmpPath := filepath.Join(s.ingestDir(), uuid.NewString())
	tmp, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return IngestResult{}, dErrors.Wrap(err, dErrors.CodeStorageFailure, "create ingest file")
	}
	defer os.Remove(tmpPath)

	hasher := sha256.New()
	size, err := io.Copy(io.MultiWriter(tmp, hasher), payload)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return IngestResult{}, dErrors.Wrap(err, dErrors.CodeStorageFailure, "write ingest file")
	}

	digest := hex.EncodeToString(hasher.Sum(nil))
	span.SetAttributes(
		attribute.String("blob.digest", digest),
		attribute.Int64("blob.size", size),
	)

	s.locks.Lock(digest)
	defer s.locks.Unlock(digest)

	if err := os.Link(tmpPath, s.blobPath(digest)); err != nil {
		if errors.Is(err, os.ErrExist) {
			if s.metrics != nil {
				s.metrics.RecordBlob("duplicate")
			}
			s.log.DebugContext(ctx, "duplicate blob", "digest", digest, "size", size)
			return IngestResult{Digest: digest, Size: size, Duplicate: true}, nil
		}
		span.RecordError(err)
		return IngestResult{}, dErrors.Wrap(err, dErrors.CodeStorageFailure, "publish blob")
	}

	if s.metrics != nil {
		s.metrics.RecordBlob("stored")
	}
	s.log.InfoContext(ctx, "blob stored", "digest", digest, "size", size)
	return IngestResult{Digest: digest, Size: size, Duplicate: false}, nil
}

// Open returns a reader over the blob with the given digest.
func (s *Store) Open(_ context.Context, digest string) (io.ReadCloser, error) {
	if err := validateDigest(digest); err != nil {
		return nil, err
	}

	f, err := os.Open(s.blobPath(digest))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, sentinel.ErrNotFound
		}
		return nil, dErrors.Wrap(err, dErrors.CodeStorageFailure, "open blob")
	}
	return f, nil
}

// Stat returns the size of the blob with the given digest.
func (s *Store) Stat(_ context.Context, digest string) (int64, error) {
	if err := validateDigest(digest); err != nil {
		return 0, err
	}

	info, err := os.Stat(s.blobPath(digest))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, sentinel.ErrNotFound
		}
		return 0, dErrors.Wrap(err, dErrors.CodeStorageFailure, "stat blob")
	}
	return info.Size(), nil
}

// validateDigest rejects anything that is not 64 lowercase hex characters
// before it can reach the filesystem.
func validateDigest(digest string) error {
	if len(digest) != sha256.Size*2 {
		return dErrors.New(dErrors.CodeValidation, "digest must be 64 hex characters")
	}
	for _, r := range digest {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return dErrors.New(dErrors.CodeValidation, "digest must be lowercase hex")
		}
	}
	return nil
}
