// Package storage keeps bucket/key objects on an afero filesystem and
// reads and writes the listings CSV object.
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/spf13/afero"
)

// ErrNotExist is returned when an object does not exist
var ErrNotExist = errors.New("object does not exist")

// Store is a minimal object store
type Store interface {
	Get(ctx context.Context, bucket, key string) ([]byte, error)
	Put(ctx context.Context, bucket, key string, data []byte) error
	Exists(ctx context.Context, bucket, key string) (bool, error)
}

// FSStore maps buckets to directories under root
type FSStore struct {
	fs   afero.Fs
	root string
}

// NewFSStore creates a store rooted at root on fs
func NewFSStore(fs afero.Fs, root string) *FSStore {
	return &FSStore{fs: fs, root: root}
}

// NewOSStore creates a store on the local disk
func NewOSStore(root string) *FSStore {
	return NewFSStore(afero.NewOsFs(), root)
}

func (s *FSStore) objectPath(bucket, key string) (string, error) {
	if bucket == "" || key == "" {
		return "", fmt.Errorf("bucket and key are required")
	}
	clean := path.Clean("/" + key)
	if strings.Contains(bucket, "/") || clean == "/" {
		return "", fmt.Errorf("invalid object %s/%s", bucket, key)
	}
	return path.Join(s.root, bucket, clean), nil
}

// Get reads an object
func (s *FSStore) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := s.objectPath(bucket, key)
	if err != nil {
		return nil, err
	}
	data, err := afero.ReadFile(s.fs, p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s/%s: %w", bucket, key, ErrNotExist)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s/%s: %w", bucket, key, err)
	}
	return data, nil
}

// Put writes an object, replacing any previous version in one rename
func (s *FSStore) Put(ctx context.Context, bucket, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := s.objectPath(bucket, key)
	if err != nil {
		return err
	}
	if err := s.fs.MkdirAll(path.Dir(p), 0755); err != nil {
		return fmt.Errorf("create bucket %s: %w", bucket, err)
	}

	tmp := p + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, data, 0644); err != nil {
		return fmt.Errorf("write %s/%s: %w", bucket, key, err)
	}
	if err := s.fs.Rename(tmp, p); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("commit %s/%s: %w", bucket, key, err)
	}
	return nil
}

// Exists reports whether an object exists
func (s *FSStore) Exists(ctx context.Context, bucket, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	p, err := s.objectPath(bucket, key)
	if err != nil {
		return false, err
	}
	return afero.Exists(s.fs, p)
}
