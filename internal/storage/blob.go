// Package storage provides the local blob store backing inline message
// images. Blobs are content-addressed: the id is the hex SHA-256 of the
// bytes, so re-uploading the same image is a cheap no-op and ids are safe
// to embed in message rows.
package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/rs/zerolog"
)

// ErrBlobNotFound is returned when no blob exists for the given id.
var ErrBlobNotFound = errors.New("blob not found")

// blobIDRE matches the hex SHA-256 ids this store hands out. Download
// rejects anything else before touching the filesystem, which also keeps
// path traversal out.
var blobIDRE = regexp.MustCompile(`^[0-9a-f]{64}$`)

// BlobStore stores image bytes on the local filesystem under a base
// directory, sharded by the first two hex characters of the id.
type BlobStore struct {
	basePath string
	log      zerolog.Logger
}

// NewBlobStore creates the base directory if needed and returns the store.
func NewBlobStore(basePath string, log zerolog.Logger) (*BlobStore, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create blob directory: %w", err)
	}
	logger := log.With().Str("component", "blob-store").Logger()
	logger.Info().Str("path", basePath).Msg("blob store initialized")
	return &BlobStore{basePath: basePath, log: logger}, nil
}

// Upload writes the bytes and returns their content id. Uploading bytes
// that are already present returns the existing id without rewriting.
func (s *BlobStore) Upload(data []byte) (string, error) {
	sum := sha256.Sum256(data)
	id := hex.EncodeToString(sum[:])

	path := s.pathFor(id)
	if _, err := os.Stat(path); err == nil {
		return id, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create blob shard: %w", err)
	}
	// Write via a temp file so a crashed upload never leaves a readable
	// partial blob under its final id.
	tmp, err := os.CreateTemp(filepath.Dir(path), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp blob: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("close blob: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("store blob: %w", err)
	}

	s.log.Debug().Str("blob_id", id).Int("bytes", len(data)).Msg("blob stored")
	return id, nil
}

// Download returns the bytes for a blob id, or ErrBlobNotFound.
func (s *BlobStore) Download(id string) ([]byte, error) {
	if !blobIDRE.MatchString(id) {
		return nil, ErrBlobNotFound
	}
	data, err := os.ReadFile(s.pathFor(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrBlobNotFound
		}
		return nil, fmt.Errorf("read blob: %w", err)
	}
	return data, nil
}

func (s *BlobStore) pathFor(id string) string {
	return filepath.Join(s.basePath, id[:2], id)
}
