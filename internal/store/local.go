package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

const (
	// lockPollInterval is how often a contended shared lock is retried.
	lockPollInterval = 10 * time.Millisecond

	// DefaultLockTimeout bounds how long Open waits for a shared lock.
	DefaultLockTimeout = 5 * time.Second
)

// LocalStore serves files below a root directory.
type LocalStore struct {
	root        string
	lockTimeout time.Duration
}

// NewLocalStore returns a store rooted at dir. A non-positive lockTimeout
// selects DefaultLockTimeout.
func NewLocalStore(dir string, lockTimeout time.Duration) (*LocalStore, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("store: resolve root %s: %w", dir, err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("store: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("store: root is not a directory: %s", root)
	}
	if lockTimeout <= 0 {
		lockTimeout = DefaultLockTimeout
	}
	return &LocalStore{root: root, lockTimeout: lockTimeout}, nil
}

// Root returns the absolute root directory.
func (s *LocalStore) Root() string {
	return s.root
}

func (s *LocalStore) resolve(name string) (string, string, error) {
	clean, err := cleanName(name)
	if err != nil {
		return "", "", err
	}
	return clean, filepath.Join(s.root, filepath.FromSlash(clean)), nil
}

// Open opens the named file and holds a shared lock on it until Close.
func (s *LocalStore) Open(ctx context.Context, name string) (*Object, error) {
	clean, path, err := s.resolve(name)
	if err != nil {
		return nil, err
	}

	// Stat first: flock creates missing files when locking.
	if err := checkRegular(path); err != nil {
		return nil, err
	}

	lockCtx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()

	lock := flock.New(path)
	locked, err := lock.TryRLockContext(lockCtx, lockPollInterval)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrLockTimeout
		}
		return nil, fmt.Errorf("store: lock %s: %w", clean, err)
	}
	if !locked {
		return nil, ErrLockTimeout
	}

	f, err := os.Open(path)
	if err != nil {
		lock.Unlock()
		return nil, fmt.Errorf("store: open %s: %w", clean, err)
	}

	release := func() error {
		return errors.Join(f.Close(), lock.Unlock())
	}

	fi, err := f.Stat()
	if err != nil {
		release()
		return nil, fmt.Errorf("store: stat %s: %w", clean, err)
	}

	res := &fileResource{File: f, size: fi.Size()}
	contentType, err := DetectContentType(clean, "", res)
	if err != nil {
		release()
		return nil, err
	}

	return &Object{
		Resource: res,
		Info: Info{
			Name:        baseName(clean),
			Size:        fi.Size(),
			ContentType: contentType,
			ETag:        fmt.Sprintf("%x-%x", fi.ModTime().UnixNano(), fi.Size()),
			ModTime:     fi.ModTime(),
		},
		close: release,
	}, nil
}

// Stat returns the metadata Open would report, without keeping the file open.
func (s *LocalStore) Stat(ctx context.Context, name string) (*Info, error) {
	obj, err := s.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	info := obj.Info
	if err := obj.Close(); err != nil {
		return nil, fmt.Errorf("store: close %s: %w", name, err)
	}
	return &info, nil
}

// Close is a no-op; LocalStore holds no shared resources.
func (s *LocalStore) Close() error {
	return nil
}

func checkRegular(path string) error {
	fi, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("store: stat %s: %w", path, err)
	}
	if !fi.Mode().IsRegular() {
		return ErrNotFound
	}
	return nil
}

// fileResource adapts an open file to byterange.Resource.
type fileResource struct {
	*os.File
	size int64
}

func (r *fileResource) Size() int64 {
	return r.size
}

var _ Store = (*LocalStore)(nil)
