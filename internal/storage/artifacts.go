package storage

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"sketchspy/internal/domain"
)

// DefaultMaxArtifactBytes caps a single uploaded drawing
const DefaultMaxArtifactBytes = 5 << 20

var artifactExtensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/webp": ".webp",
}

// ArtifactStore writes drawing images to disk and hands out URL paths for them
type ArtifactStore struct {
	dir       string
	urlPrefix string
	maxBytes  int64
}

// NewArtifactStore creates the upload directory if needed
func NewArtifactStore(dir, urlPrefix string, maxBytes int64) (*ArtifactStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxArtifactBytes
	}
	return &ArtifactStore{
		dir:       dir,
		urlPrefix: strings.TrimSuffix(urlPrefix, "/"),
		maxBytes:  maxBytes,
	}, nil
}

// Dir returns the directory artifacts are served from
func (s *ArtifactStore) Dir() string {
	return s.dir
}

// Save stores an image for a room and returns its URL path. The file only
// becomes visible once fully written.
func (s *ArtifactStore) Save(roomCode string, r io.Reader) (string, error) {
	br := bufio.NewReader(io.LimitReader(r, s.maxBytes+1))
	head, _ := br.Peek(512)
	ext, ok := artifactExtensions[http.DetectContentType(head)]
	if !ok {
		return "", fmt.Errorf("%w: unsupported image type", domain.ErrInvalidInput)
	}

	roomDir := filepath.Join(s.dir, filepath.Base(roomCode))
	if err := os.MkdirAll(roomDir, 0o755); err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrStorage, err)
	}

	tmp, err := os.CreateTemp(roomDir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrStorage, err)
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, br)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrStorage, err)
	}
	if n > s.maxBytes {
		return "", fmt.Errorf("%w: drawing exceeds %d bytes", domain.ErrInvalidInput, s.maxBytes)
	}

	name := uuid.NewString() + ext
	if err := os.Rename(tmp.Name(), filepath.Join(roomDir, name)); err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrStorage, err)
	}

	return path.Join(s.urlPrefix, filepath.Base(roomCode), name), nil
}

// Delete removes the artifact behind a URL returned by Save
func (s *ArtifactStore) Delete(url string) error {
	rel, ok := strings.CutPrefix(url, s.urlPrefix+"/")
	if !ok {
		return fmt.Errorf("%w: foreign artifact url", domain.ErrInvalidInput)
	}

	rel = path.Clean(rel)
	if strings.HasPrefix(rel, "..") || path.IsAbs(rel) {
		return fmt.Errorf("%w: foreign artifact url", domain.ErrInvalidInput)
	}

	err := os.Remove(filepath.Join(s.dir, filepath.FromSlash(rel)))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %w", domain.ErrStorage, err)
	}
	return nil
}
