// Package config defines configuration structures for the rangeserve CLI.
//
// Configuration can be provided via:
//   - Command-line flags
//   - Environment variables (RANGESERVE_ prefix)
//   - YAML or TOML configuration file (chosen by the .toml extension)
//
// Later sources override earlier ones: defaults, then the file, then the
// environment, then flags.
//
// # Structure
//
//	type Config struct {
//	    Addr            string
//	    Root            string        // serve a local directory
//	    Bucket          string        // or a gocloud bucket URL
//	    RateLimit       int64         // bytes per second per response, 0 = unlimited
//	    LockTimeout     time.Duration
//	    ReadTimeout     time.Duration
//	    WriteTimeout    time.Duration
//	    ShutdownTimeout time.Duration
//	    StatsInterval   time.Duration // 0 disables periodic stats
//	}
//
// # Example
//
//	addr: ":8080"
//	root: /srv/downloads
//	rate_limit: 10MB
//	lock_timeout: 5s
//	stats_interval: 1m
package config
