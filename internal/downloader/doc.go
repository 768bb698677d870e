// Package downloader fetches a file from a range server in parallel chunks.
//
// Download asks for the file's size and ETag with a HEAD request, splits it
// into fixed-size chunks and hands them to a pool of workers. Each worker
// issues a single-range GET and writes the body at the chunk's offset in the
// destination io.WriterAt, usually an *os.File.
//
// # Usage
//
//	f, _ := os.Create("movie.mkv")
//	info, err := downloader.Download(ctx, url, f, downloader.Options{
//	    Workers:   8,
//	    ChunkSize: 8 * 1024 * 1024,
//	})
//
// # Failures
//
// A failed chunk is retried by the same worker. Once MaxConsecutiveFailures
// chunk attempts fail in a row across all workers, the circuit breaker trips
// and Download returns a *CircuitBreakerError. A changed ETag or an
// unsatisfiable range aborts the download at once.
package downloader
