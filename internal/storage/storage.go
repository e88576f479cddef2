// Package storage keeps the gallery: a flat directory of JPEG files with a
// thumbs subdirectory for previews.
package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

var (
	ErrNotFound = errors.New("file not found")
	ErrBadName  = errors.New("invalid filename")
)

// Entry describes one gallery image.
type Entry struct {
	Filename string
	Size     int64
	ModTime  time.Time
}

// Thumbnailer produces a thumbnail for src at dst. Failures during listing
// are logged and skipped.
type Thumbnailer func(src, dst string) error

type Storage struct {
	galleryDir string
	thumbsDir  string
	thumbFn    Thumbnailer
	log        *zap.SugaredLogger
}

// NewStorage creates the gallery and thumbnail directories if needed.
func NewStorage(galleryDir string, thumbFn Thumbnailer, log *zap.SugaredLogger) (*Storage, error) {
	const op = "storage.NewStorage"

	thumbsDir := filepath.Join(galleryDir, "thumbs")
	for _, dir := range []string{galleryDir, thumbsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("%s: %v", op, err)
		}
	}
	return &Storage{galleryDir: galleryDir, thumbsDir: thumbsDir, thumbFn: thumbFn, log: log}, nil
}

func (s *Storage) GalleryDir() string { return s.galleryDir }
func (s *Storage) ThumbsDir() string  { return s.thumbsDir }

// SanitizeName reduces name to a bare filename. Path separators, traversal
// components and empty names are rejected rather than silently rewritten
// beyond taking the base.
func SanitizeName(name string) (string, error) {
	base := filepath.Base(filepath.Clean(strings.ReplaceAll(name, `\`, `/`)))
	if base == "" || base == "." || base == ".." || base == string(filepath.Separator) {
		return "", ErrBadName
	}
	return base, nil
}

// ImagePath resolves name inside the gallery directory.
func (s *Storage) ImagePath(name string) (string, error) {
	base, err := SanitizeName(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.galleryDir, base), nil
}

// ThumbPath resolves name inside the thumbnails directory.
func (s *Storage) ThumbPath(name string) (string, error) {
	base, err := SanitizeName(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.thumbsDir, base), nil
}

// Save writes data under suggestedName coerced to a .jpg extension. On
// collision a numeric suffix (_1, _2, ...) is appended until a free name is
// found. The create is O_EXCL so concurrent savers cannot overwrite each
// other. Returns the filename actually used.
func (s *Storage) Save(data []byte, suggestedName string) (string, error) {
	const op = "storage.Save"

	base, err := SanitizeName(suggestedName)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" {
		stem = "image"
	}

	for i := 0; ; i++ {
		name := stem + ".jpg"
		if i > 0 {
			name = fmt.Sprintf("%s_%d.jpg", stem, i)
		}
		f, err := os.OpenFile(filepath.Join(s.galleryDir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("%s: %v", op, err)
		}
		_, werr := f.Write(data)
		cerr := f.Close()
		if werr != nil {
			return "", fmt.Errorf("%s: %v", op, werr)
		}
		if cerr != nil {
			return "", fmt.Errorf("%s: %v", op, cerr)
		}
		return name, nil
	}
}

// Delete removes the named image and its thumbnail if present. Returns
// ErrNotFound when the image does not exist.
func (s *Storage) Delete(name string) error {
	const op = "storage.Delete"

	path, err := s.ImagePath(name)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return fmt.Errorf("%s: %v", op, err)
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("%s: %v", op, err)
	}

	thumb := filepath.Join(s.thumbsDir, filepath.Base(path))
	if err := os.Remove(thumb); err != nil && !os.IsNotExist(err) {
		s.log.Warnw("could not remove thumbnail", "path", thumb, "error", err)
	}
	return nil
}

// List returns the gallery's .jpg entries sorted by modification time,
// newest first. Missing thumbnails are generated on the fly; per-file
// failures are logged and do not stop the listing.
func (s *Storage) List() ([]Entry, error) {
	const op = "storage.List"

	dirEntries, err := os.ReadDir(s.galleryDir)
	if err != nil {
		return nil, fmt.Errorf("%s: %v", op, err)
	}

	entries := make([]Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		if de.IsDir() || !strings.EqualFold(filepath.Ext(de.Name()), ".jpg") {
			continue
		}
		info, err := de.Info()
		if err != nil {
			s.log.Warnw("could not stat gallery file", "name", de.Name(), "error", err)
			continue
		}

		thumb := filepath.Join(s.thumbsDir, de.Name())
		if _, err := os.Stat(thumb); os.IsNotExist(err) && s.thumbFn != nil {
			if terr := s.thumbFn(filepath.Join(s.galleryDir, de.Name()), thumb); terr != nil {
				s.log.Warnw("could not create thumbnail", "name", de.Name(), "error", terr)
			}
		}

		entries = append(entries, Entry{
			Filename: de.Name(),
			Size:     info.Size(),
			ModTime:  info.ModTime(),
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].ModTime.After(entries[j].ModTime)
	})
	return entries, nil
}
