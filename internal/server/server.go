package server

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/ligustah/rangeserve/internal/progress"
	"github.com/ligustah/rangeserve/internal/store"
	"github.com/ligustah/rangeserve/pkg/byterange"
)

// Options configures the server.
type Options struct {
	// RateLimit caps each response body in bytes per second.
	// Default: 0 (unlimited)
	RateLimit int64

	// Logger receives one line per request.
	// Default: stderr with the "[rangeserve] " prefix
	Logger *log.Logger

	// Reporter, if set, counts requests and bytes served.
	Reporter *progress.Reporter
}

// Server serves objects from a store.
type Server struct {
	store  store.Store
	opts   Options
	logger *log.Logger
}

// New creates a server for st.
func New(st store.Store, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "[rangeserve] ", log.LstdFlags)
	}
	return &Server{store: st, opts: opts, logger: logger}
}

// Handler returns the routed handler, wrapped in request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /files/{name...}", s.handleGet)
	mux.HandleFunc("HEAD /files/{name...}", s.handleHead)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return s.logRequests(mux)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, "ok\n")
}

func (s *Server) handleHead(w http.ResponseWriter, r *http.Request) {
	info, err := s.store.Stat(r.Context(), r.PathValue("name"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	h := w.Header()
	setValidators(h, info)
	h.Set("Content-Type", info.ContentType)
	h.Set("Content-Length", strconv.FormatInt(info.Size, 10))
	h.Set("Accept-Ranges", "bytes")
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	rep := s.opts.Reporter
	if rep != nil {
		rep.RequestStarted()
	}

	obj, err := s.store.Open(r.Context(), r.PathValue("name"))
	if err != nil {
		if rep != nil {
			rep.RequestCompleted(progress.OutcomeFailed, 0)
		}
		s.writeError(w, r, err)
		return
	}
	defer obj.Close()

	setValidators(w.Header(), &obj.Info)

	var out http.ResponseWriter = w
	if s.opts.RateLimit > 0 {
		out = newThrottledWriter(r.Context(), w, s.opts.RateLimit)
	}

	result, err := byterange.Respond(out, obj, byterange.Options{
		Name:        obj.Info.Name,
		Filename:    r.URL.Query().Get("filename"),
		ContentType: obj.Info.ContentType,
		Range:       r.Header.Get("Range"),
	})
	if err != nil {
		// Headers are already on the wire; the client sees a short body.
		s.logger.Printf("serve %s: %v", obj.Info.Name, err)
	}

	if rep != nil {
		rep.RequestCompleted(outcomeOf(result, err), result.Written)
	}
}

// writeError maps store errors to status codes.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, store.ErrInvalidName):
		status = http.StatusBadRequest
	case errors.Is(err, store.ErrLockTimeout):
		status = http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled):
		// Client went away; nothing useful to send.
		return
	default:
		s.logger.Printf("open %s: %v", r.PathValue("name"), err)
	}
	http.Error(w, http.StatusText(status), status)
}

func setValidators(h http.Header, info *store.Info) {
	if info.ETag != "" {
		h.Set("ETag", quoteETag(info.ETag))
	}
	if !info.ModTime.IsZero() {
		h.Set("Last-Modified", info.ModTime.UTC().Format(http.TimeFormat))
	}
}

func quoteETag(etag string) string {
	if len(etag) >= 2 && etag[len(etag)-1] == '"' {
		return etag
	}
	return `"` + etag + `"`
}

func outcomeOf(result byterange.Result, err error) progress.Outcome {
	switch {
	case err != nil:
		return progress.OutcomeFailed
	case result.Status == http.StatusRequestedRangeNotSatisfiable:
		return progress.OutcomeUnsatisfiable
	case result.Status == http.StatusOK:
		return progress.OutcomeFull
	case len(result.Ranges) > 1:
		return progress.OutcomeMultipart
	default:
		return progress.OutcomePartial
	}
}

// logRequests logs method, path, status, body bytes and duration.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Printf("%s %s %d %d %s", r.Method, r.URL.Path, rec.status, rec.written,
			time.Since(start).Round(time.Millisecond))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	written     int64
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(code int) {
	if !r.wroteHeader {
		r.status = code
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(p []byte) (int, error) {
	r.wroteHeader = true
	n, err := r.ResponseWriter.Write(p)
	r.written += int64(n)
	return n, err
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
