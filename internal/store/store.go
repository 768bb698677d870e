package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ligustah/rangeserve/pkg/byterange"
)

var (
	// ErrNotFound is returned when the named object does not exist.
	ErrNotFound = errors.New("store: object not found")

	// ErrInvalidName is returned for empty names or names escaping the store.
	ErrInvalidName = errors.New("store: invalid object name")

	// ErrLockTimeout is returned when a shared lock could not be acquired in time.
	ErrLockTimeout = errors.New("store: timeout acquiring read lock")
)

// Store opens objects by name.
type Store interface {
	Open(ctx context.Context, name string) (*Object, error)
	Stat(ctx context.Context, name string) (*Info, error)
	Close() error
}

// Info describes a stored object.
type Info struct {
	Name        string // base name, used for Content-Disposition
	Size        int64
	ContentType string
	ETag        string
	ModTime     time.Time
}

// Object is an open, seekable object. The caller must call Close.
type Object struct {
	byterange.Resource
	Info Info

	close func() error
}

// Close releases the object and any lock held on it.
func (o *Object) Close() error {
	if o.close == nil {
		return nil
	}
	err := o.close()
	o.close = nil
	return err
}

// cleanName validates a slash-separated object name and returns it without
// leading slashes.
func cleanName(name string) (string, error) {
	name = strings.TrimLeft(name, "/")
	if name == "" {
		return "", ErrInvalidName
	}
	for _, seg := range strings.Split(name, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return "", ErrInvalidName
		}
	}
	if strings.ContainsRune(name, '\\') || strings.ContainsRune(name, 0) {
		return "", ErrInvalidName
	}
	return name, nil
}

func baseName(name string) string {
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		return name[i+1:]
	}
	return name
}
