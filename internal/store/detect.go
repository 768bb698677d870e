package store

import (
	"fmt"
	"io"
	"mime"
	"path"

	"github.com/h2non/filetype"

	"github.com/ligustah/rangeserve/pkg/byterange"
)

// sniffLen is the number of leading bytes filetype needs to match every
// format it knows.
const sniffLen = 262

// DetectContentType picks a content type for the object called name.
// A declared type wins unless it is empty or the generic octet-stream; then
// the extension is consulted, then the first bytes of r are sniffed. r is
// left positioned at offset 0.
func DetectContentType(name, declared string, r io.ReadSeeker) (string, error) {
	if declared != "" && declared != byterange.DefaultContentType {
		return declared, nil
	}

	if ct := mime.TypeByExtension(path.Ext(name)); ct != "" && ct != byterange.DefaultContentType {
		return ct, nil
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", fmt.Errorf("store: sniff %s: %w", name, err)
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("store: rewind %s: %w", name, err)
	}

	if n > 0 {
		kind, err := filetype.Match(head[:n])
		if err == nil && kind != filetype.Unknown {
			return kind.MIME.Value, nil
		}
	}

	return byterange.DefaultContentType, nil
}
