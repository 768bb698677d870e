package byterange

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
)

const (
	// Boundary separates the parts of a multipart/byteranges body.
	Boundary = "MULTIPART_BYTERANGES"

	// DefaultContentType is used for partial content and unknown types.
	DefaultContentType = "application/octet-stream"
)

// Options describes the resource being served and the incoming Range header.
type Options struct {
	// Name is the resource's original file name.
	Name string

	// Filename optionally replaces the base name in Content-Disposition.
	Filename string

	// ContentType of the resource.
	// Default: application/octet-stream
	ContentType string

	// Range is the raw Range request header; blank means no range.
	Range string
}

// Result summarizes what Respond wrote.
type Result struct {
	Status  int
	Ranges  []Range
	Written int64 // body bytes, including multipart framing
}

// Respond writes res to w, honouring opts.Range.
//
// Malformed and unsatisfiable ranges are answered with 416 and an empty body;
// they are reported through Result.Status, not as an error. The returned error
// is always an I/O failure, which may have occurred after headers were sent.
func Respond(w http.ResponseWriter, res Resource, opts Options) (Result, error) {
	total := res.Size()
	contentType := opts.ContentType
	if contentType == "" {
		contentType = DefaultContentType
	}

	h := w.Header()
	h.Set("Content-Disposition", "attachment;filename="+Filename(opts.Filename, opts.Name))
	h.Set("Accept-Ranges", "bytes")

	header := strings.TrimSpace(opts.Range)
	if header == "" {
		h.Set("Content-Type", contentType)
		h.Set("Content-Length", strconv.FormatInt(total, 10))
		w.WriteHeader(http.StatusOK)

		cw := &countingWriter{w: w}
		err := CopyRange(cw, res, 0, total)
		return Result{Status: http.StatusOK, Written: cw.n}, err
	}

	ranges, err := Parse(header, total)
	if err != nil {
		h.Set("Content-Range", UnsatisfiedRange(total))
		h.Set("Content-Length", "0")
		w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
		return Result{Status: http.StatusRequestedRangeNotSatisfiable}, nil
	}

	if len(ranges) == 1 {
		return writeSingle(w, res, ranges[0], contentType)
	}
	return writeMultipart(w, res, ranges, contentType)
}

func writeSingle(w http.ResponseWriter, res Resource, r Range, contentType string) (Result, error) {
	h := w.Header()
	h.Set("Content-Range", ContentRange(r))
	h.Set("Content-Length", strconv.FormatInt(r.Length, 10))

	status := http.StatusOK
	if !r.Full {
		contentType = DefaultContentType
		status = http.StatusPartialContent
	}
	h.Set("Content-Type", contentType)
	w.WriteHeader(status)

	cw := &countingWriter{w: w}
	err := CopyRange(cw, res, r.Start, r.Length)
	return Result{Status: status, Ranges: []Range{r}, Written: cw.n}, err
}

func writeMultipart(w http.ResponseWriter, res Resource, ranges []Range, contentType string) (Result, error) {
	h := w.Header()
	h.Set("Content-Type", "multipart/byteranges; boundary="+Boundary)
	h.Del("Content-Length")
	w.WriteHeader(http.StatusPartialContent)

	result := Result{Status: http.StatusPartialContent, Ranges: ranges}
	cw := &countingWriter{w: w}

	for _, r := range ranges {
		if _, err := io.WriteString(cw, partHeader(r, contentType)); err != nil {
			result.Written = cw.n
			return result, fmt.Errorf("byterange: write part header: %w", err)
		}
		if err := CopyRange(cw, res, r.Start, r.Length); err != nil {
			result.Written = cw.n
			return result, err
		}
	}

	if _, err := io.WriteString(cw, "\r\n--"+Boundary+"--\r\n"); err != nil {
		result.Written = cw.n
		return result, fmt.Errorf("byterange: write closing boundary: %w", err)
	}
	result.Written = cw.n

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	return result, nil
}

func partHeader(r Range, contentType string) string {
	var b strings.Builder
	b.WriteString("\r\n--" + Boundary + "\r\n")
	b.WriteString("Content-Type: " + contentType + "\r\n")
	b.WriteString("Content-Length: " + strconv.FormatInt(r.Length, 10) + "\r\n")
	b.WriteString("Content-Range: " + ContentRange(r) + "\r\n")
	b.WriteString("\r\n")
	return b.String()
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
