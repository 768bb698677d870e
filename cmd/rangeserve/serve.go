package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ligustah/rangeserve/internal/config"
	"github.com/ligustah/rangeserve/internal/progress"
	"github.com/ligustah/rangeserve/internal/server"
	"github.com/ligustah/rangeserve/internal/store"
)

func runServe(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)

	configPath := fs.String("config", "", "Config file (.yaml or .toml)")
	addr := fs.String("addr", "", "Listen address (default :8080)")
	root := fs.String("root", "", "Directory to serve")
	bucket := fs.String("bucket", "", "Bucket URL to serve (file://, mem://, s3://, gs://)")
	rateLimit := fs.String("rate-limit", "", "Per-response bandwidth limit, e.g. 1MB (default unlimited)")
	lockTimeout := fs.Duration("lock-timeout", 0, "Max wait for a shared file lock (default 5s)")
	readTimeout := fs.Duration("read-timeout", 0, "HTTP read timeout (default 30s)")
	writeTimeout := fs.Duration("write-timeout", 0, "HTTP write timeout (default none)")
	shutdownTimeout := fs.Duration("shutdown-timeout", 0, "Grace period for in-flight requests (default 30s)")
	statsInterval := fs.Duration("stats-interval", 0, "Print transfer stats at this interval (default off)")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: rangeserve serve [options]

Serve files under /files/{name} with Range support.
Exactly one of -root or -bucket is required, from flags, config file,
or RANGESERVE_* environment variables. Flags take precedence.

Options:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ExitSuccess
		}
		return ExitInvalidArgs
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.LoadFromFile(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return ExitInvalidArgs
		}
	}
	if err := cfg.LoadFromEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitInvalidArgs
	}

	override := config.Config{
		Addr:            *addr,
		Root:            *root,
		Bucket:          *bucket,
		LockTimeout:     *lockTimeout,
		ReadTimeout:     *readTimeout,
		WriteTimeout:    *writeTimeout,
		ShutdownTimeout: *shutdownTimeout,
		StatsInterval:   *statsInterval,
	}
	if *rateLimit != "" {
		limit, err := progress.ParseBytes(*rateLimit)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: invalid -rate-limit: %v\n", err)
			return ExitInvalidArgs
		}
		override.RateLimit = limit
	}
	cfg = cfg.Merge(override)

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		fs.Usage()
		return ExitInvalidArgs
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := log.New(os.Stderr, "[rangeserve] ", log.LstdFlags)
	return serve(ctx, cfg, logger, nil)
}

// serve runs the server until ctx is done. ready, if set, receives the bound
// address once the listener is up.
func serve(ctx context.Context, cfg config.Config, logger *log.Logger, ready func(addr string)) int {
	st, err := openStore(ctx, cfg)
	if err != nil {
		logger.Printf("Error: %v", err)
		return ExitStorageError
	}
	defer st.Close()

	opts := server.Options{RateLimit: cfg.RateLimit, Logger: logger}
	if cfg.StatsInterval > 0 {
		opts.Reporter = progress.NewReporter(progress.Options{
			Output:         logger.Writer(),
			UpdateInterval: cfg.StatsInterval,
		})
		opts.Reporter.Start()
		defer opts.Reporter.Stop()
	}

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		logger.Printf("Error: listen %s: %v", cfg.Addr, err)
		return ExitGeneralError
	}

	srv := &http.Server{
		Handler:      server.New(st, opts).Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		ErrorLog:     logger,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	logger.Printf("Serving %s on %s", source(cfg), ln.Addr())
	if cfg.RateLimit > 0 {
		logger.Printf("Rate limit: %s/s per response", progress.FormatBytes(cfg.RateLimit))
	}
	if ready != nil {
		ready(ln.Addr().String())
	}

	select {
	case err := <-errCh:
		logger.Printf("Error: %v", err)
		return ExitGeneralError
	case <-ctx.Done():
	}

	logger.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Printf("Error: shutdown: %v", err)
		return ExitGeneralError
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Printf("Error: %v", err)
		return ExitGeneralError
	}
	return ExitSuccess
}

func openStore(ctx context.Context, cfg config.Config) (store.Store, error) {
	if cfg.Bucket != "" {
		return store.OpenBucketStore(ctx, cfg.Bucket)
	}
	return store.NewLocalStore(cfg.Root, cfg.LockTimeout)
}

func source(cfg config.Config) string {
	if cfg.Bucket != "" {
		return cfg.Bucket
	}
	return cfg.Root
}
