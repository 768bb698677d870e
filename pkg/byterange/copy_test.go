package byterange

import (
	"bytes"
	"errors"
	"io"
	"strconv"
	"testing"
)

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}

func testData(size int) []byte {
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i % 251)
	}
	return data
}

// trackingResource records how many bytes were requested from it.
type trackingResource struct {
	*BytesResource
	requested int64
	reads     int
}

func (r *trackingResource) Read(p []byte) (int, error) {
	r.requested += int64(len(p))
	r.reads++
	return r.BytesResource.Read(p)
}

func TestCopyRange(t *testing.T) {
	data := testData(3 * bufferSize)

	tests := []struct {
		name          string
		start, length int64
		reads         int
	}{
		{"small", 10, 100, 1},
		{"exactly one buffer", 0, bufferSize, 1},
		{"partial final chunk", 5, bufferSize + 10, 2},
		{"several chunks", 100, 2*bufferSize + 1, 3},
		{"whole resource", 0, int64(len(data)), 3},
		{"empty", 50, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := &trackingResource{BytesResource: NewBytesResource(data)}
			var buf bytes.Buffer

			if err := CopyRange(&buf, res, tt.start, tt.length); err != nil {
				t.Fatalf("CopyRange: %v", err)
			}
			if !bytes.Equal(buf.Bytes(), data[tt.start:tt.start+tt.length]) {
				t.Errorf("copied bytes do not match source [%d, %d)", tt.start, tt.start+tt.length)
			}
			if res.requested != tt.length {
				t.Errorf("requested %d bytes from resource, want exactly %d", res.requested, tt.length)
			}
			if res.reads != tt.reads {
				t.Errorf("performed %d reads, want %d", res.reads, tt.reads)
			}
		})
	}
}

func TestCopyRangeShortResource(t *testing.T) {
	res := NewBytesResource(testData(100))
	err := CopyRange(io.Discard, res, 50, 100)
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("expected io.ErrUnexpectedEOF, got %v", err)
	}
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) {
	return 0, errors.New("connection reset")
}

func TestCopyRangeWriteError(t *testing.T) {
	res := NewBytesResource(testData(100))
	if err := CopyRange(failingWriter{}, res, 0, 10); err == nil {
		t.Fatal("expected write error")
	}
}
