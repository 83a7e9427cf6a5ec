package fs

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fwojciec/starcat"
)

// Ensure ContentStore implements starcat.ContentService at compile time.
var _ starcat.ContentService = (*ContentStore)(nil)

// ContentStore stores README content as one markdown file per entry.
type ContentStore struct {
	dir string
}

// NewContentStore creates a new ContentStore rooted at dir.
func NewContentStore(dir string) *ContentStore {
	return &ContentStore{dir: dir}
}

func (s *ContentStore) path(id string) string {
	return filepath.Join(s.dir, IDToFilename(id))
}

// FindContent returns the stored README for id.
func (s *ContentStore) FindContent(ctx context.Context, id string) (string, bool, error) {
	data, err := os.ReadFile(s.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	} else if err != nil {
		return "", false, err
	}
	return string(data), true, nil
}

// SaveContent writes the README for id, replacing any prior content.
func (s *ContentStore) SaveContent(ctx context.Context, id string, content string) error {
	if id == "" {
		return starcat.Errorf(starcat.EINVALID, "entry ID required")
	}
	return writeFileAtomic(s.path(id), []byte(content))
}

// HasContent reports whether a README is stored for id.
func (s *ContentStore) HasContent(ctx context.Context, id string) (bool, error) {
	_, err := os.Stat(s.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	} else if err != nil {
		return false, err
	}
	return true, nil
}
