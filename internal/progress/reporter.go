package progress

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Outcome classifies a finished request.
type Outcome int

const (
	// OutcomeFull is a 200 response carrying the whole resource.
	OutcomeFull Outcome = iota
	// OutcomePartial is a 206 response with a single range.
	OutcomePartial
	// OutcomeMultipart is a 206 multipart/byteranges response.
	OutcomeMultipart
	// OutcomeUnsatisfiable is a 416 response.
	OutcomeUnsatisfiable
	// OutcomeFailed is a request that ended with an error.
	OutcomeFailed

	numOutcomes
)

func (o Outcome) String() string {
	switch o {
	case OutcomeFull:
		return "full"
	case OutcomePartial:
		return "partial"
	case OutcomeMultipart:
		return "multipart"
	case OutcomeUnsatisfiable:
		return "unsatisfiable"
	case OutcomeFailed:
		return "failed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Options configures the progress reporter.
type Options struct {
	// Output is where to write progress output.
	// Default: os.Stderr
	Output io.Writer

	// UpdateInterval is how often to print a status line.
	// Default: 1m
	UpdateInterval time.Duration
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	BytesServed int64
	Active      int
	Requests    map[Outcome]int64
}

// Reporter counts served requests and periodically prints them.
type Reporter struct {
	opts Options

	mu          sync.Mutex
	bytesServed atomic.Int64
	active      atomic.Int32
	requests    [numOutcomes]atomic.Int64
	startTime   time.Time
	lastUpdate  time.Time
	lastBytes   int64
	stopCh      chan struct{}
	doneCh      chan struct{}
	started     bool
	stopped     bool
}

// NewReporter creates a new progress reporter.
func NewReporter(opts Options) *Reporter {
	if opts.Output == nil {
		opts.Output = os.Stderr
	}
	if opts.UpdateInterval == 0 {
		opts.UpdateInterval = time.Minute
	}

	return &Reporter{
		opts:      opts,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
		startTime: time.Now(),
	}
}

// Start begins printing status lines.
func (r *Reporter) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started || r.stopped {
		return
	}
	r.started = true
	r.startTime = time.Now()
	r.lastUpdate = r.startTime

	go r.updateLoop()
}

// Stop stops the reporter. If it was started, Stop waits for the summary
// to be printed.
func (r *Reporter) Stop() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	started := r.started
	r.mu.Unlock()

	close(r.stopCh)
	if started {
		<-r.doneCh
	}
}

// RequestStarted marks a request as in flight.
func (r *Reporter) RequestStarted() {
	r.active.Add(1)
}

// RequestCompleted records a finished request and the body bytes it wrote.
func (r *Reporter) RequestCompleted(outcome Outcome, written int64) {
	if outcome < 0 || outcome >= numOutcomes {
		outcome = OutcomeFailed
	}
	r.requests[outcome].Add(1)
	r.bytesServed.Add(written)
	r.active.Add(-1)
}

// Snapshot returns the current counters.
func (r *Reporter) Snapshot() Snapshot {
	s := Snapshot{
		BytesServed: r.bytesServed.Load(),
		Active:      int(r.active.Load()),
		Requests:    make(map[Outcome]int64, numOutcomes),
	}
	for o := Outcome(0); o < numOutcomes; o++ {
		s.Requests[o] = r.requests[o].Load()
	}
	return s
}

// updateLoop periodically prints the status.
func (r *Reporter) updateLoop() {
	ticker := time.NewTicker(r.opts.UpdateInterval)
	defer ticker.Stop()
	defer close(r.doneCh)

	for {
		select {
		case <-r.stopCh:
			r.printFinalStatus()
			return
		case <-ticker.C:
			r.printProgress()
		}
	}
}

// printProgress outputs the current status.
func (r *Reporter) printProgress() {
	now := time.Now()
	served := r.bytesServed.Load()

	elapsed := now.Sub(r.lastUpdate).Seconds()
	if elapsed < 0.1 {
		elapsed = 0.1
	}
	speed := float64(served-r.lastBytes) / elapsed

	r.lastUpdate = now
	r.lastBytes = served

	fmt.Fprintf(r.opts.Output, "[rangeserve] Served: %s | Speed: %s/s | Active: %d\n",
		formatBytes(served),
		formatBytes(int64(speed)),
		r.active.Load(),
	)
	r.printRequests()
}

// printFinalStatus outputs the summary on shutdown.
func (r *Reporter) printFinalStatus() {
	served := r.bytesServed.Load()
	duration := time.Since(r.startTime)
	avgSpeed := float64(served) / duration.Seconds()

	fmt.Fprintf(r.opts.Output, "[rangeserve] Served: %s | Uptime: %s | Average speed: %s/s\n",
		formatBytes(served),
		formatDuration(duration),
		formatBytes(int64(avgSpeed)),
	)
	r.printRequests()
}

func (r *Reporter) printRequests() {
	fmt.Fprintf(r.opts.Output, "[rangeserve] Requests: %d full | %d partial | %d multipart | %d unsatisfiable | %d failed\n",
		r.requests[OutcomeFull].Load(),
		r.requests[OutcomePartial].Load(),
		r.requests[OutcomeMultipart].Load(),
		r.requests[OutcomeUnsatisfiable].Load(),
		r.requests[OutcomeFailed].Load(),
	)
}

// formatBytes formats bytes as a human-readable string.
func formatBytes(b int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
		TB = GB * 1024
	)

	switch {
	case b >= TB:
		return fmt.Sprintf("%.2f TB", float64(b)/float64(TB))
	case b >= GB:
		return fmt.Sprintf("%.2f GB", float64(b)/float64(GB))
	case b >= MB:
		return fmt.Sprintf("%.2f MB", float64(b)/float64(MB))
	case b >= KB:
		return fmt.Sprintf("%.2f KB", float64(b)/float64(KB))
	default:
		return fmt.Sprintf("%d B", b)
	}
}

// formatDuration formats a duration as a human-readable string.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm %ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%dh %dm %ds", h, m, s)
}

// FormatBytes is exported for use by other packages.
func FormatBytes(b int64) string {
	return formatBytes(b)
}

// ParseBytes parses a human-readable byte string (e.g., "256MB").
// Units are binary: 1KB is 1024 bytes.
func ParseBytes(s string) (int64, error) {
	var multiplier int64 = 1
	s = strings.TrimSpace(s)

	switch {
	case strings.HasSuffix(s, "TB"):
		multiplier = 1024 * 1024 * 1024 * 1024
		s = s[:len(s)-2]
	case strings.HasSuffix(s, "GB"):
		multiplier = 1024 * 1024 * 1024
		s = s[:len(s)-2]
	case strings.HasSuffix(s, "MB"):
		multiplier = 1024 * 1024
		s = s[:len(s)-2]
	case strings.HasSuffix(s, "KB"):
		multiplier = 1024
		s = s[:len(s)-2]
	case strings.HasSuffix(s, "B"):
		s = s[:len(s)-1]
	}

	value, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || value < 0 {
		return 0, fmt.Errorf("invalid byte string: %s", s)
	}

	return int64(value * float64(multiplier)), nil
}
