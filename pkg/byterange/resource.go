package byterange

import (
	"bytes"
	"io"
)

// Resource is a readable, seekable source of known size.
type Resource interface {
	io.ReadSeeker

	// Size returns the total length of the resource in bytes.
	Size() int64
}

// BytesResource is an in-memory Resource.
type BytesResource struct {
	*bytes.Reader
}

// NewBytesResource returns a Resource backed by data.
func NewBytesResource(data []byte) *BytesResource {
	return &BytesResource{Reader: bytes.NewReader(data)}
}

var _ Resource = (*BytesResource)(nil)
