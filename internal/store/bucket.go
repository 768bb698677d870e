package store

import (
	"context"
	"errors"
	"fmt"
	"io"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"
	"gocloud.dev/gcerrors"

	"github.com/ligustah/rangeserve/pkg/byterange"
)

// BucketStore serves objects from a gocloud blob bucket.
type BucketStore struct {
	bucket *blob.Bucket
	owned  bool
}

// OpenBucketStore opens the bucket at url. Close closes the bucket.
func OpenBucketStore(ctx context.Context, url string) (*BucketStore, error) {
	bucket, err := blob.OpenBucket(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("store: open bucket: %w", err)
	}
	return &BucketStore{bucket: bucket, owned: true}, nil
}

// NewBucketStore wraps an existing bucket handle. Close leaves it open.
func NewBucketStore(bucket *blob.Bucket) *BucketStore {
	return &BucketStore{bucket: bucket}
}

// Stat returns the object's attributes.
func (s *BucketStore) Stat(ctx context.Context, name string) (*Info, error) {
	key, err := cleanName(name)
	if err != nil {
		return nil, err
	}
	attrs, err := s.bucket.Attributes(ctx, key)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: attributes %s: %w", key, err)
	}
	return &Info{
		Name:        baseName(key),
		Size:        attrs.Size,
		ContentType: attrs.ContentType,
		ETag:        attrs.ETag,
		ModTime:     attrs.ModTime,
	}, nil
}

// Open opens the named object for ranged reads.
func (s *BucketStore) Open(ctx context.Context, name string) (*Object, error) {
	info, err := s.Stat(ctx, name)
	if err != nil {
		return nil, err
	}
	key, _ := cleanName(name)

	res := &blobResource{ctx: ctx, bucket: s.bucket, key: key, size: info.Size}

	if info.Size > 0 {
		info.ContentType, err = DetectContentType(key, info.ContentType, res)
		if err != nil {
			res.Close()
			return nil, err
		}
	} else if info.ContentType == "" {
		info.ContentType = byterange.DefaultContentType
	}

	return &Object{Resource: res, Info: *info, close: res.Close}, nil
}

// Close closes the bucket if the store opened it.
func (s *BucketStore) Close() error {
	if !s.owned {
		return nil
	}
	return s.bucket.Close()
}

// blobResource is a seekable view of a blob. Reads stream from a range reader
// opened lazily at the current offset; seeking drops that reader.
type blobResource struct {
	ctx    context.Context
	bucket *blob.Bucket
	key    string
	size   int64

	offset int64
	reader *blob.Reader
}

func (r *blobResource) Size() int64 {
	return r.size
}

func (r *blobResource) Read(p []byte) (int, error) {
	if r.offset >= r.size {
		return 0, io.EOF
	}
	if r.reader == nil {
		reader, err := r.bucket.NewRangeReader(r.ctx, r.key, r.offset, -1, nil)
		if err != nil {
			return 0, fmt.Errorf("store: open range reader %s@%d: %w", r.key, r.offset, err)
		}
		r.reader = reader
	}

	n, err := r.reader.Read(p)
	r.offset += int64(n)
	return n, err
}

func (r *blobResource) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = r.offset + offset
	case io.SeekEnd:
		abs = r.size + offset
	default:
		return 0, errors.New("store: invalid whence")
	}
	if abs < 0 {
		return 0, errors.New("store: negative position")
	}

	if abs != r.offset && r.reader != nil {
		r.reader.Close()
		r.reader = nil
	}
	r.offset = abs
	return abs, nil
}

func (r *blobResource) Close() error {
	if r.reader == nil {
		return nil
	}
	err := r.reader.Close()
	r.reader = nil
	return err
}

var _ Store = (*BucketStore)(nil)
