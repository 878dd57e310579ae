package services

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// StoredFile is the reference the storage collaborator returns once it has
// confirmed a write. No Document record is ever created without one.
type StoredFile struct {
	URL      string
	StoredAt time.Time
}

// DocumentStorage accepts a file and returns a URL plus the storage
// confirmation time. Failures surface to callers as ErrStorageUnavailable and
// leave the draft untouched.
type DocumentStorage interface {
	Store(ctx context.Context, fileName string, content io.Reader) (*StoredFile, error)
	Remove(ctx context.Context, url string) error
}

// DiskStorage writes documents under a local directory served by the static
// document file server.
type DiskStorage struct {
	dir     string
	baseURL string
}

func NewDiskStorage(dir, baseURL string) (*DiskStorage, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create document store dir: %w", err)
	}
	return &DiskStorage{dir: dir, baseURL: strings.TrimSuffix(baseURL, "/")}, nil
}

func (s *DiskStorage) Store(ctx context.Context, fileName string, content io.Reader) (*StoredFile, error) {
	ext := filepath.Ext(fileName)
	name := uuid.New().String() + ext
	path := filepath.Join(s.dir, name)

	f, err := os.Create(path)
	if err != nil {
		log.Printf("[STORAGE] Failed to create %s: %v", path, err)
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	if _, err := io.Copy(f, content); err != nil {
		f.Close()
		os.Remove(path)
		log.Printf("[STORAGE] Failed to write %s: %v", path, err)
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	if err := f.Close(); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	return &StoredFile{
		URL:      s.baseURL + "/" + name,
		StoredAt: time.Now(),
	}, nil
}

func (s *DiskStorage) Remove(ctx context.Context, url string) error {
	name := filepath.Base(url)
	if name == "." || name == "/" {
		return nil
	}
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return nil
}
