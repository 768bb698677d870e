package server

import (
	"context"
	"net/http"

	"golang.org/x/time/rate"
)

// throttledWriter paces body writes through a token bucket. Writes larger
// than the burst are split so WaitN never asks for more than the bucket holds.
type throttledWriter struct {
	http.ResponseWriter
	ctx     context.Context
	limiter *rate.Limiter
}

func newThrottledWriter(ctx context.Context, w http.ResponseWriter, bytesPerSecond int64) *throttledWriter {
	return &throttledWriter{ResponseWriter: w, ctx: ctx, limiter: limiterFor(bytesPerSecond)}
}

func (t *throttledWriter) Write(p []byte) (int, error) {
	burst := t.limiter.Burst()
	written := 0
	for len(p) > 0 {
		n := len(p)
		if n > burst {
			n = burst
		}
		if err := t.limiter.WaitN(t.ctx, n); err != nil {
			return written, err
		}
		m, err := t.ResponseWriter.Write(p[:n])
		written += m
		if err != nil {
			return written, err
		}
		p = p[n:]
	}
	return written, nil
}

func (t *throttledWriter) Flush() {
	if f, ok := t.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// limiterFor builds a limiter whose burst is one second of traffic.
func limiterFor(bytesPerSecond int64) *rate.Limiter {
	burst := int(bytesPerSecond)
	if int64(burst) != bytesPerSecond || burst <= 0 {
		burst = int(^uint(0) >> 1)
	}
	return rate.NewLimiter(rate.Limit(bytesPerSecond), burst)
}
