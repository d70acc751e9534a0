// Package storage writes accepted uploads to the local upload root. Files are
// grouped by collection: resumes/ and job_descriptions/.
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"

	"github.com/dharsanguruparan/ResumeDrop/internal/model"
)

var (
	// ErrExists is returned when a file with the same secure name is already stored.
	ErrExists = errors.New("file already exists")
	// ErrInvalidName is returned for names that are not a single path element.
	ErrInvalidName = errors.New("invalid stored file name")
)

// Metadata describes a file after it has been written.
type Metadata struct {
	Size     int64
	MIMEType string
}

// DiskStore persists files under root.
type DiskStore struct {
	root string
}

// NewDiskStore creates the collection directories under root.
func NewDiskStore(root string) (*DiskStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve upload root: %w", err)
	}
	for _, t := range []model.FileType{model.FileTypeResume, model.FileTypeJobDescription} {
		if err := os.MkdirAll(filepath.Join(abs, t.Collection()), 0o750); err != nil {
			return nil, fmt.Errorf("create %s dir: %w", t.Collection(), err)
		}
	}
	return &DiskStore{root: abs}, nil
}

// Root returns the absolute upload root.
func (d *DiskStore) Root() string { return d.root }

// Save copies r into the collection directory for fileType and returns the
// absolute path written. Existing files are never overwritten.
func (d *DiskStore) Save(fileType model.FileType, name string, r io.Reader) (string, error) {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return "", ErrInvalidName
	}
	path := filepath.Join(d.root, fileType.Collection(), name)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if errors.Is(err, os.ErrExist) {
		return "", ErrExists
	}
	if err != nil {
		return "", fmt.Errorf("create %s: %w", name, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("close %s: %w", name, err)
	}
	return path, nil
}

// Metadata stats the stored file and re-detects its MIME type from disk.
func (d *DiskStore) Metadata(path string) (Metadata, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Metadata{}, fmt.Errorf("stat %s: %w", filepath.Base(path), err)
	}
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return Metadata{}, fmt.Errorf("detect %s: %w", filepath.Base(path), err)
	}
	return Metadata{Size: info.Size(), MIMEType: mtype.String()}, nil
}

// Remove deletes a stored file. Missing files are not an error.
func (d *DiskStore) Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", filepath.Base(path), err)
	}
	return nil
}
