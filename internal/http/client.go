package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Common errors.
var (
	ErrRangeNotSupported   = errors.New("http: server does not support range requests")
	ErrRangeNotSatisfiable = errors.New("http: requested range not satisfiable")
	ErrNotFound            = errors.New("http: resource not found")
	ErrForbidden           = errors.New("http: access forbidden")
	ErrUnauthorized        = errors.New("http: unauthorized")
	ErrServerError         = errors.New("http: server error")
)

// Options configures the HTTP client.
type Options struct {
	// MaxIdleConnsPerHost sets the maximum idle connections per host.
	// Default: 100
	MaxIdleConnsPerHost int

	// Timeout for individual requests.
	// Default: 30s
	Timeout time.Duration

	// RetryAttempts is the maximum number of retry attempts.
	// Default: 5
	RetryAttempts int

	// RetryBackoff is the initial backoff duration.
	// Default: 1s
	RetryBackoff time.Duration

	// RetryMaxBackoff is the maximum backoff duration.
	// Default: 30s
	RetryMaxBackoff time.Duration
}

// DefaultOptions returns options with sensible defaults.
func DefaultOptions() Options {
	return Options{
		MaxIdleConnsPerHost: 100,
		Timeout:             30 * time.Second,
		RetryAttempts:       5,
		RetryBackoff:        time.Second,
		RetryMaxBackoff:     30 * time.Second,
	}
}

// FileInfo contains metadata about a remote file.
type FileInfo struct {
	Size          int64
	ETag          string
	AcceptsRanges bool
	ContentType   string
	Filename      string // from Content-Disposition, decoded
	LastModified  time.Time
}

// RangeResponse represents a response from a single range request.
type RangeResponse struct {
	Body          io.ReadCloser
	ContentLength int64
	ETag          string

	// Start, End and Total come from Content-Range. Total is -1 if unknown.
	Start, End, Total int64
}

// Span is an inclusive byte range to request.
// A negative End asks for everything from Start; a negative Start asks for
// the last -Start bytes.
type Span struct {
	Start, End int64
}

func (s Span) String() string {
	switch {
	case s.Start < 0:
		return "-" + strconv.FormatInt(-s.Start, 10)
	case s.End < 0:
		return strconv.FormatInt(s.Start, 10) + "-"
	default:
		return strconv.FormatInt(s.Start, 10) + "-" + strconv.FormatInt(s.End, 10)
	}
}

// Part is one decoded range of a (possibly multipart) 206 response.
type Part struct {
	Start, End, Total int64
	ContentType       string
	Data              []byte
}

// Client is an HTTP client for range requests.
type Client struct {
	client *http.Client
	opts   Options
}

// NewClient creates a new HTTP client with the given options.
func NewClient(opts Options) *Client {
	transport := &http.Transport{
		MaxIdleConnsPerHost: opts.MaxIdleConnsPerHost,
		MaxIdleConns:        opts.MaxIdleConnsPerHost * 2,
		IdleConnTimeout:     90 * time.Second,
		DisableCompression:  true, // We want raw bytes for range requests
	}

	return &Client{
		client: &http.Client{
			Transport: transport,
			Timeout:   opts.Timeout,
		},
		opts: opts,
	}
}

// do sends a request, retrying transport failures and 5xx responses with
// backoff. The caller owns the returned body.
func (c *Client) do(ctx context.Context, method, url string, header http.Header) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= c.opts.RetryAttempts; attempt++ {
		if attempt > 0 {
			if err := c.backoff(ctx, attempt); err != nil {
				return nil, err
			}
		}

		req, err := http.NewRequestWithContext(ctx, method, url, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		for k, v := range header {
			req.Header[k] = v
		}

		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			continue
		}

		// Server errors are retryable
		if resp.StatusCode >= 500 {
			resp.Body.Close()
			lastErr = fmt.Errorf("%w: %s", ErrServerError, resp.Status)
			continue
		}

		return resp, nil
	}

	return nil, fmt.Errorf("%s request failed after %d attempts: %w",
		strings.ToLower(method), c.opts.RetryAttempts+1, lastErr)
}

// Head performs a HEAD request to get file metadata.
func (c *Client) Head(ctx context.Context, url string) (*FileInfo, error) {
	resp, err := c.do(ctx, http.MethodHead, url, nil)
	if err != nil {
		return nil, err
	}
	resp.Body.Close()

	if err := checkStatusCode(resp.StatusCode); err != nil {
		return nil, err
	}

	info := &FileInfo{
		Size:          resp.ContentLength,
		ETag:          cleanETag(resp.Header.Get("ETag")),
		AcceptsRanges: resp.Header.Get("Accept-Ranges") == "bytes",
		ContentType:   resp.Header.Get("Content-Type"),
		Filename:      dispositionFilename(resp.Header.Get("Content-Disposition")),
	}

	if lm := resp.Header.Get("Last-Modified"); lm != "" {
		if t, err := http.ParseTime(lm); err == nil {
			info.LastModified = t
		}
	}

	return info, nil
}

// GetRange performs a range request to download a portion of the file.
// startByte and endByte are inclusive (like HTTP Range header); see Span
// for the meaning of negative values.
func (c *Client) GetRange(ctx context.Context, url string, startByte, endByte int64) (*RangeResponse, error) {
	header := http.Header{"Range": {"bytes=" + Span{startByte, endByte}.String()}}
	resp, err := c.do(ctx, http.MethodGet, url, header)
	if err != nil {
		return nil, err
	}

	if err := checkRangeStatus(resp); err != nil {
		resp.Body.Close()
		return nil, err
	}

	start, end, total, err := ParseContentRange(resp.Header.Get("Content-Range"))
	if err != nil {
		resp.Body.Close()
		return nil, err
	}

	return &RangeResponse{
		Body:          resp.Body,
		ContentLength: resp.ContentLength,
		ETag:          cleanETag(resp.Header.Get("ETag")),
		Start:         start,
		End:           end,
		Total:         total,
	}, nil
}

// GetRanges requests several ranges at once and decodes the answer, which
// is either a multipart/byteranges body or a single ranged part. Parts are
// returned in the order the server sent them.
func (c *Client) GetRanges(ctx context.Context, url string, spans ...Span) ([]Part, error) {
	if len(spans) == 0 {
		return nil, errors.New("http: no ranges requested")
	}
	specs := make([]string, len(spans))
	for i, s := range spans {
		specs[i] = s.String()
	}

	header := http.Header{"Range": {"bytes=" + strings.Join(specs, ",")}}
	resp, err := c.do(ctx, http.MethodGet, url, header)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := checkRangeStatus(resp); err != nil {
		return nil, err
	}

	mediaType, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err == nil && mediaType == "multipart/byteranges" {
		return readMultipart(resp.Body, params["boundary"])
	}

	start, end, total, err := ParseContentRange(resp.Header.Get("Content-Range"))
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return []Part{{
		Start:       start,
		End:         end,
		Total:       total,
		ContentType: resp.Header.Get("Content-Type"),
		Data:        data,
	}}, nil
}

func readMultipart(body io.Reader, boundary string) ([]Part, error) {
	if boundary == "" {
		return nil, errors.New("http: multipart response without boundary")
	}

	var parts []Part
	mr := multipart.NewReader(body, boundary)
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			return parts, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read part %d: %w", len(parts), err)
		}

		start, end, total, err := ParseContentRange(p.Header.Get("Content-Range"))
		if err != nil {
			return nil, fmt.Errorf("part %d: %w", len(parts), err)
		}
		data, err := io.ReadAll(p)
		if err != nil {
			return nil, fmt.Errorf("read part %d: %w", len(parts), err)
		}
		if int64(len(data)) != end-start+1 {
			return nil, fmt.Errorf("part %d: got %d bytes for range %d-%d", len(parts), len(data), start, end)
		}

		parts = append(parts, Part{
			Start:       start,
			End:         end,
			Total:       total,
			ContentType: p.Header.Get("Content-Type"),
			Data:        data,
		})
	}
}

// checkRangeStatus accepts 206, and 200 only when it carries Content-Range
// (a range covering the whole file).
func checkRangeStatus(resp *http.Response) error {
	switch resp.StatusCode {
	case http.StatusPartialContent:
		return nil
	case http.StatusOK:
		if resp.Header.Get("Content-Range") == "" {
			return ErrRangeNotSupported
		}
		return nil
	case http.StatusRequestedRangeNotSatisfiable:
		if _, _, total, err := ParseContentRange(resp.Header.Get("Content-Range")); err == nil && total >= 0 {
			return fmt.Errorf("%w: resource has %d bytes", ErrRangeNotSatisfiable, total)
		}
		return ErrRangeNotSatisfiable
	}
	if err := checkStatusCode(resp.StatusCode); err != nil {
		return err
	}
	return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
}

// Get performs a simple GET request.
func (c *Client) Get(ctx context.Context, url string) (io.ReadCloser, error) {
	resp, err := c.do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	if err := checkStatusCode(resp.StatusCode); err != nil {
		resp.Body.Close()
		return nil, err
	}

	return resp.Body, nil
}

// backoff waits for an exponentially increasing duration with jitter.
func (c *Client) backoff(ctx context.Context, attempt int) error {
	backoff := c.opts.RetryBackoff * time.Duration(1<<uint(attempt-1))
	if backoff > c.opts.RetryMaxBackoff {
		backoff = c.opts.RetryMaxBackoff
	}

	// Add jitter: 0.5 to 1.5 of backoff
	jitter := time.Duration(float64(backoff) * (0.5 + rand.Float64()))

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(jitter):
		return nil
	}
}

// checkStatusCode returns an appropriate error for non-success status codes.
func checkStatusCode(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound:
		return ErrNotFound
	case code == http.StatusForbidden:
		return ErrForbidden
	case code == http.StatusUnauthorized:
		return ErrUnauthorized
	case code == http.StatusRequestedRangeNotSatisfiable:
		return ErrRangeNotSatisfiable
	default:
		return fmt.Errorf("unexpected status code: %d", code)
	}
}

// cleanETag removes quotes from an ETag value.
func cleanETag(etag string) string {
	etag = strings.TrimPrefix(etag, "W/")
	etag = strings.Trim(etag, `"`)
	return etag
}

// dispositionFilename extracts the form-encoded filename parameter.
func dispositionFilename(header string) string {
	if header == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(header)
	if err != nil {
		return ""
	}
	name := params["filename"]
	if decoded, err := url.QueryUnescape(name); err == nil {
		return decoded
	}
	return name
}

// ParseContentRange parses a Content-Range header value.
// Returns start, end, total bytes. Total may be -1 if unknown; start and end
// are -1 for the unsatisfied form "bytes */total".
func ParseContentRange(header string) (start, end, total int64, err error) {
	// Format: bytes start-end/total, bytes start-end/* or bytes */total
	rest, ok := strings.CutPrefix(header, "bytes ")
	if !ok {
		return 0, 0, 0, fmt.Errorf("invalid Content-Range format: %q", header)
	}
	rangePart, totalPart, ok := strings.Cut(rest, "/")
	if !ok {
		return 0, 0, 0, fmt.Errorf("invalid Content-Range format: %q", header)
	}

	if totalPart == "*" {
		total = -1
	} else {
		total, err = strconv.ParseInt(totalPart, 10, 64)
		if err != nil {
			return 0, 0, 0, fmt.Errorf("invalid total bytes: %w", err)
		}
	}

	if rangePart == "*" {
		if total < 0 {
			return 0, 0, 0, fmt.Errorf("invalid Content-Range format: %q", header)
		}
		return -1, -1, total, nil
	}

	startStr, endStr, ok := strings.Cut(rangePart, "-")
	if !ok {
		return 0, 0, 0, fmt.Errorf("invalid Content-Range format: %q", header)
	}

	start, err = strconv.ParseInt(startStr, 10, 64)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid start byte: %w", err)
	}

	end, err = strconv.ParseInt(endStr, 10, 64)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid end byte: %w", err)
	}

	if start > end || (total >= 0 && end >= total) {
		return 0, 0, 0, fmt.Errorf("invalid Content-Range bounds: %q", header)
	}

	return start, end, total, nil
}
