package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"path"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/ligustah/rangeserve/internal/downloader"
	rangehttp "github.com/ligustah/rangeserve/internal/http"
	"github.com/ligustah/rangeserve/internal/progress"
)

func runFetch(args []string) int {
	fs := flag.NewFlagSet("fetch", flag.ContinueOnError)

	rawURL := fs.String("url", "", "File URL (required)")
	ranges := fs.String("range", "", "Byte ranges, e.g. 0-99,500-,-100 (default whole file)")
	output := fs.String("output", "", "Output path, - for stdout (default: server-provided filename)")
	timeout := fs.Duration("timeout", 30*time.Second, "Per-request timeout")
	retries := fs.Int("retries", 5, "Retry attempts on network and server errors")
	workers := fs.Int("workers", 1, "Parallel range requests for whole-file downloads")
	chunkSize := fs.String("chunk-size", "8MB", "Chunk size for parallel downloads")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: rangeserve fetch [options]

Download a file, or byte ranges of it. Multiple ranges are fetched in one
request and written to the output in the order the server returns them.
With -workers > 1 a whole file is fetched as parallel chunks.

Options:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ExitSuccess
		}
		return ExitInvalidArgs
	}

	if *rawURL == "" {
		fmt.Fprintln(os.Stderr, "Error: -url is required")
		fs.Usage()
		return ExitInvalidArgs
	}

	spans, err := parseSpans(*ranges)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid -range: %v\n", err)
		return ExitInvalidArgs
	}

	chunk, err := progress.ParseBytes(*chunkSize)
	if err != nil || chunk <= 0 {
		fmt.Fprintf(os.Stderr, "Error: invalid -chunk-size: %q\n", *chunkSize)
		return ExitInvalidArgs
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := rangehttp.DefaultOptions()
	opts.Timeout = *timeout
	opts.RetryAttempts = *retries
	client := rangehttp.NewClient(opts)

	return fetch(ctx, client, *rawURL, spans, *output, downloader.Options{
		Workers:     *workers,
		ChunkSize:   chunk,
		HTTPOptions: opts,
	})
}

// fetch downloads rawURL, or the given spans of it, to output. Whole-file
// downloads to a real file use dl when it asks for more than one worker.
func fetch(ctx context.Context, client *rangehttp.Client, rawURL string, spans []rangehttp.Span, output string, dl downloader.Options) int {
	info, err := client.Head(ctx, rawURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitCodeFor(err)
	}
	if len(spans) > 0 && !info.AcceptsRanges {
		fmt.Fprintln(os.Stderr, "Error: server does not advertise range support")
		return ExitRangeNotSupported
	}

	if output == "" {
		output = defaultOutput(info, rawURL)
	}

	var w io.Writer = os.Stdout
	var f *os.File
	if output != "-" {
		f, err = os.Create(output)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return ExitGeneralError
		}
		defer f.Close()
		w = f
	}

	start := time.Now()
	var n int64
	if f != nil && len(spans) == 0 && dl.Workers > 1 {
		_, err = downloader.Download(ctx, rawURL, f, dl)
		n = info.Size
	} else {
		n, err = fetchTo(ctx, client, rawURL, spans, w)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitCodeFor(err)
	}

	fmt.Fprintf(os.Stderr, "[rangeserve] Fetched %s of %s in %s\n",
		progress.FormatBytes(n), progress.FormatBytes(info.Size), time.Since(start).Round(time.Millisecond))
	return ExitSuccess
}

// fetchTo writes the requested bytes to w and returns how many were written.
func fetchTo(ctx context.Context, client *rangehttp.Client, rawURL string, spans []rangehttp.Span, w io.Writer) (int64, error) {
	switch len(spans) {
	case 0:
		body, err := client.Get(ctx, rawURL)
		if err != nil {
			return 0, err
		}
		defer body.Close()
		return io.Copy(w, body)

	case 1:
		resp, err := client.GetRange(ctx, rawURL, spans[0].Start, spans[0].End)
		if err != nil {
			return 0, err
		}
		defer resp.Body.Close()
		return io.Copy(w, resp.Body)
	}

	parts, err := client.GetRanges(ctx, rawURL, spans...)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, p := range parts {
		fmt.Fprintf(os.Stderr, "[rangeserve] Part bytes %d-%d/%d\n", p.Start, p.End, p.Total)
		n, err := w.Write(p.Data)
		total += int64(n)
		if err != nil {
			return total, fmt.Errorf("write output: %w", err)
		}
	}
	return total, nil
}

// parseSpans parses "a-b,c-,-n", with an optional "bytes=" prefix.
func parseSpans(s string) ([]rangehttp.Span, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "bytes=")
	if s == "" {
		return nil, nil
	}

	var spans []rangehttp.Span
	for _, tok := range strings.Split(s, ",") {
		startStr, endStr, ok := strings.Cut(strings.TrimSpace(tok), "-")
		if !ok {
			return nil, fmt.Errorf("missing '-' in %q", tok)
		}

		switch {
		case startStr == "" && endStr == "":
			return nil, fmt.Errorf("empty range %q", tok)
		case startStr == "":
			n, err := strconv.ParseInt(endStr, 10, 64)
			if err != nil || n <= 0 {
				return nil, fmt.Errorf("invalid suffix length in %q", tok)
			}
			spans = append(spans, rangehttp.Span{Start: -n})
		default:
			start, err := strconv.ParseInt(startStr, 10, 64)
			if err != nil || start < 0 {
				return nil, fmt.Errorf("invalid start in %q", tok)
			}
			end := int64(-1)
			if endStr != "" {
				end, err = strconv.ParseInt(endStr, 10, 64)
				if err != nil || end < start {
					return nil, fmt.Errorf("invalid end in %q", tok)
				}
			}
			spans = append(spans, rangehttp.Span{Start: start, End: end})
		}
	}
	return spans, nil
}

func defaultOutput(info *rangehttp.FileInfo, rawURL string) string {
	for _, name := range []string{info.Filename, urlBase(rawURL)} {
		if base := path.Base(name); name != "" && base != "/" && base != "." && base != ".." {
			return base
		}
	}
	return "download"
}

func urlBase(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Path
}

func exitCodeFor(err error) int {
	var cbErr *downloader.CircuitBreakerError
	switch {
	case errors.As(err, &cbErr):
		return ExitGeneralError
	case errors.Is(err, rangehttp.ErrNotFound),
		errors.Is(err, rangehttp.ErrForbidden),
		errors.Is(err, rangehttp.ErrUnauthorized):
		return ExitSourceNotAccess
	case errors.Is(err, rangehttp.ErrRangeNotSupported),
		errors.Is(err, downloader.ErrRangeNotSupported):
		return ExitRangeNotSupported
	case errors.Is(err, rangehttp.ErrRangeNotSatisfiable):
		return ExitRangeNotSatisfiable
	case errors.Is(err, downloader.ErrSourceChanged):
		return ExitSourceChanged
	default:
		return ExitGeneralError
	}
}
