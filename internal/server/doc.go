// Package server exposes a store over HTTP with byte-range support.
//
// Routes:
//   - GET /files/{name...}   serve the object, honouring Range and ?filename=
//   - HEAD /files/{name...}  object metadata without a body
//   - GET /healthz           liveness probe
//
// Responses can be throttled to a fixed number of bytes per second, and
// every request is logged and counted in an optional progress.Reporter.
//
// # Usage
//
//	st, _ := store.NewLocalStore("/srv/downloads", store.DefaultLockTimeout)
//	srv := server.New(st, server.Options{RateLimit: 1 << 20})
//	http.ListenAndServe(":8080", srv.Handler())
package server
