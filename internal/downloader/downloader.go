package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	rangehttp "github.com/ligustah/rangeserve/internal/http"
)

// Options configures the downloader.
type Options struct {
	// Workers is the number of parallel download workers.
	// Default: 4
	Workers int

	// ChunkSize is the size of each range request.
	// Default: 8MB
	ChunkSize int64

	// MaxConsecutiveFailures is the number of consecutive chunk failures
	// before the circuit breaker trips and stops the download.
	// Default: 10
	MaxConsecutiveFailures int

	// HTTPOptions configures the HTTP client.
	HTTPOptions rangehttp.Options
}

// FailedChunk records information about a chunk that failed to download.
type FailedChunk struct {
	Index int   // Chunk index
	Error error // The error that occurred
}

// CircuitBreakerError is returned when too many consecutive failures occur.
// Use errors.As to extract it and inspect FailedChunks.
type CircuitBreakerError struct {
	ConsecutiveFailures int
	FailedChunks        []FailedChunk
}

func (e *CircuitBreakerError) Error() string {
	return fmt.Sprintf("circuit breaker tripped: %d consecutive failures", e.ConsecutiveFailures)
}

var (
	// ErrRangeNotSupported is returned when the server doesn't support range requests.
	ErrRangeNotSupported = errors.New("downloader: server does not support range requests")

	// ErrSourceChanged is returned when a chunk's ETag differs from the HEAD response.
	ErrSourceChanged = errors.New("downloader: source changed during download")
)

type chunk struct {
	index  int
	offset int64
	length int64
}

// Download copies the file at url into dst and returns its metadata.
func Download(ctx context.Context, url string, dst io.WriterAt, opts Options) (*rangehttp.FileInfo, error) {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = 8 * 1024 * 1024
	}
	if opts.MaxConsecutiveFailures <= 0 {
		opts.MaxConsecutiveFailures = 10
	}
	if opts.HTTPOptions.MaxIdleConnsPerHost == 0 {
		opts.HTTPOptions = rangehttp.DefaultOptions()
	}

	client := rangehttp.NewClient(opts.HTTPOptions)

	info, err := client.Head(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("get file info: %w", err)
	}
	if !info.AcceptsRanges {
		return nil, ErrRangeNotSupported
	}

	// Circuit breaker state
	var (
		mu                  sync.Mutex
		consecutiveFailures int
		failedChunks        []FailedChunk
		tripped             bool
		fatal               error
	)

	workCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// record updates the breaker after an attempt and reports whether the
	// worker should keep going.
	record := func(c chunk, err error) bool {
		mu.Lock()
		defer mu.Unlock()

		if err == nil {
			consecutiveFailures = 0
			return !tripped && fatal == nil
		}

		failedChunks = append(failedChunks, FailedChunk{Index: c.index, Error: err})
		if isPermanent(err) {
			if fatal == nil {
				fatal = err
			}
			cancel()
			return false
		}

		consecutiveFailures++
		if consecutiveFailures >= opts.MaxConsecutiveFailures {
			tripped = true
			cancel()
		}
		return !tripped
	}

	jobs := make(chan chunk, opts.Workers)
	var wg sync.WaitGroup

	for i := 0; i < opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for c := range jobs {
				for {
					if workCtx.Err() != nil {
						return
					}
					err := downloadChunk(workCtx, client, url, info.ETag, dst, c)
					if workCtx.Err() != nil {
						return
					}
					if !record(c, err) {
						return
					}
					if err == nil {
						break
					}
				}
			}
		}()
	}

	// Feed jobs to workers
	go func() {
		defer close(jobs)
		for index, offset := 0, int64(0); offset < info.Size; index, offset = index+1, offset+opts.ChunkSize {
			length := min(opts.ChunkSize, info.Size-offset)
			select {
			case jobs <- chunk{index: index, offset: offset, length: length}:
			case <-workCtx.Done():
				return
			}
		}
	}()

	wg.Wait()

	mu.Lock()
	defer mu.Unlock()

	if fatal != nil {
		return nil, fatal
	}
	if tripped {
		return nil, &CircuitBreakerError{
			ConsecutiveFailures: consecutiveFailures,
			FailedChunks:        failedChunks,
		}
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	return info, nil
}

// downloadChunk fetches one chunk and writes it at its offset.
func downloadChunk(ctx context.Context, client *rangehttp.Client, url, etag string, dst io.WriterAt, c chunk) error {
	end := c.offset + c.length - 1

	resp, err := client.GetRange(ctx, url, c.offset, end)
	if err != nil {
		return fmt.Errorf("download chunk %d: %w", c.index, err)
	}
	defer resp.Body.Close()

	if etag != "" && resp.ETag != "" && resp.ETag != etag {
		return fmt.Errorf("chunk %d: %w (etag %s, want %s)", c.index, ErrSourceChanged, resp.ETag, etag)
	}
	if resp.Start != c.offset || resp.End != end {
		return fmt.Errorf("chunk %d: server sent bytes %d-%d, want %d-%d", c.index, resp.Start, resp.End, c.offset, end)
	}

	w := io.NewOffsetWriter(dst, c.offset)
	n, err := io.Copy(w, io.LimitReader(resp.Body, c.length))
	if err != nil {
		return fmt.Errorf("write chunk %d: %w", c.index, err)
	}
	if n != c.length {
		return fmt.Errorf("chunk %d: %w after %d of %d bytes", c.index, io.ErrUnexpectedEOF, n, c.length)
	}
	return nil
}

// isPermanent reports errors that retrying the same chunk cannot fix.
func isPermanent(err error) bool {
	return errors.Is(err, ErrSourceChanged) ||
		errors.Is(err, rangehttp.ErrRangeNotSatisfiable) ||
		errors.Is(err, rangehttp.ErrRangeNotSupported) ||
		errors.Is(err, rangehttp.ErrNotFound) ||
		errors.Is(err, rangehttp.ErrForbidden) ||
		errors.Is(err, rangehttp.ErrUnauthorized)
}
