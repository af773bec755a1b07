package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/valter-silva-au/tasklists/pkg/models"
	"gopkg.in/yaml.v3"
)

// BookmarkFileName is the file under the base path that remembers the last
// session's repository, path, format, mode and list choices.
const BookmarkFileName = "session.yaml"

const bookmarkVersion = "1.0"

// BookmarkStore persists the session bookmark. Tokens are never stored.
type BookmarkStore interface {
	Load() (models.Bookmark, error)
	Save(b models.Bookmark) error
	Clear() error
	Path() string
}

type fileBookmarkStore struct {
	fs       afero.Fs
	basePath string
}

// NewBookmarkStore creates a BookmarkStore backed by session.yaml in
// basePath on fsys. Pass afero.NewOsFs() for the real filesystem.
func NewBookmarkStore(fsys afero.Fs, basePath string) BookmarkStore {
	return &fileBookmarkStore{fs: fsys, basePath: basePath}
}

func (s *fileBookmarkStore) Path() string {
	return filepath.Join(s.basePath, BookmarkFileName)
}

// Load reads the bookmark. A missing file yields an empty bookmark; values
// that no longer name a known list, format or mode are discarded.
func (s *fileBookmarkStore) Load() (models.Bookmark, error) {
	var b models.Bookmark
	data, err := afero.ReadFile(s.fs, s.Path())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return models.Bookmark{Version: bookmarkVersion}, nil
		}
		return b, fmt.Errorf("loading bookmark: %w", err)
	}
	if err := yaml.Unmarshal(data, &b); err != nil {
		return models.Bookmark{}, fmt.Errorf("loading bookmark: parsing %s: %w", BookmarkFileName, err)
	}
	return sanitize(b), nil
}

// Save writes the bookmark, creating the base directory if needed.
func (s *fileBookmarkStore) Save(b models.Bookmark) error {
	b = sanitize(b)
	if err := s.fs.MkdirAll(s.basePath, 0o755); err != nil {
		return fmt.Errorf("saving bookmark: creating directory: %w", err)
	}
	data, err := yaml.Marshal(&b)
	if err != nil {
		return fmt.Errorf("saving bookmark: %w", err)
	}
	if err := afero.WriteFile(s.fs, s.Path(), data, 0o600); err != nil {
		return fmt.Errorf("saving bookmark: %w", err)
	}
	return nil
}

// Clear removes the bookmark file. Clearing a missing file is not an error.
func (s *fileBookmarkStore) Clear() error {
	if err := s.fs.Remove(s.Path()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("clearing bookmark: %w", err)
	}
	return nil
}

func sanitize(b models.Bookmark) models.Bookmark {
	if b.Version == "" {
		b.Version = bookmarkVersion
	}
	if b.Format != "" && !b.Format.Valid() {
		b.Format = ""
	}
	if b.Mode != "" && !b.Mode.Valid() {
		b.Mode = ""
	}
	if b.ActiveList != "" && !b.ActiveList.Valid() {
		b.ActiveList = ""
	}
	var displayed []models.ListID
	seen := make(map[models.ListID]bool)
	for _, id := range b.Displayed {
		if id.Valid() && !seen[id] {
			seen[id] = true
			displayed = append(displayed, id)
		}
	}
	b.Displayed = displayed
	return b
}
