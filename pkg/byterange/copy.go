package byterange

import (
	"fmt"
	"io"
)

// bufferSize is the chunk size used when streaming a range.
const bufferSize = 4096

// CopyRange writes exactly length bytes of res, starting at offset start, to w.
// Reads are sized so that nothing past start+length is ever requested from res.
func CopyRange(w io.Writer, res Resource, start, length int64) error {
	if _, err := res.Seek(start, io.SeekStart); err != nil {
		return fmt.Errorf("byterange: seek to %d: %w", start, err)
	}

	size := int64(bufferSize)
	if length < size {
		size = length
	}
	buf := make([]byte, size)

	toRead := length
	for toRead > 0 {
		chunk := buf
		if toRead < int64(len(chunk)) {
			chunk = chunk[:toRead]
		}

		n, err := io.ReadFull(res, chunk)
		if err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return fmt.Errorf("byterange: read at %d: %w", start+length-toRead, err)
		}

		if _, err := w.Write(chunk[:n]); err != nil {
			return fmt.Errorf("byterange: write: %w", err)
		}
		toRead -= int64(n)
	}

	return nil
}
