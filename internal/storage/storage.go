package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Service defines the attachment storage interface. Paths returned by Store
// are relative to the storage root.
type Service interface {
	Store(ctx context.Context, folder, fileName string, data io.Reader) (string, int64, error)
	Open(ctx context.Context, filePath string) (io.ReadCloser, error)
	Delete(ctx context.Context, filePath string) error
}

// LocalStorage implements local file system storage
type LocalStorage struct {
	basePath string
}

// NewLocalStorage creates a new local storage service rooted at basePath
func NewLocalStorage(basePath string) *LocalStorage {
	return &LocalStorage{basePath: basePath}
}

// Store writes data to <root>/<folder>/<fileName>
func (ls *LocalStorage) Store(ctx context.Context, folder, fileName string, data io.Reader) (string, int64, error) {
	relative := filepath.Join(folder, fileName)
	fullPath, err := ls.resolve(relative)
	if err != nil {
		return "", 0, err
	}

	// Create directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", 0, errors.Wrap(err, "failed to create storage directory")
	}

	file, err := os.OpenFile(fullPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", 0, errors.Wrap(err, "failed to create file")
	}
	written, err := io.Copy(file, data)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(fullPath)
		return "", 0, errors.Wrap(err, "failed to write file")
	}

	return filepath.ToSlash(relative), written, nil
}

// Open reads a stored file
func (ls *LocalStorage) Open(ctx context.Context, filePath string) (io.ReadCloser, error) {
	fullPath, err := ls.resolve(filePath)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(fullPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open file")
	}
	return file, nil
}

// Delete removes a file; a missing file is not an error
func (ls *LocalStorage) Delete(ctx context.Context, filePath string) error {
	fullPath, err := ls.resolve(filePath)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "failed to delete file")
	}
	return nil
}

// resolve maps a relative path under the root, refusing escapes
func (ls *LocalStorage) resolve(relative string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(relative))
	if filepath.IsAbs(cleaned) || cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", errors.Errorf("path %q escapes storage root", relative)
	}
	return filepath.Join(ls.basePath, cleaned), nil
}
