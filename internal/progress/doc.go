// Package progress tracks bytes served and reports transfer statistics.
//
// A [Reporter] counts requests by outcome (full, partial, multipart,
// unsatisfiable, failed) and the bytes written for them. When started it
// prints a status line to its output at a fixed interval, and a summary on
// Stop.
//
// # Usage
//
//	reporter := progress.NewReporter(progress.Options{
//	    Output:         os.Stderr,
//	    UpdateInterval: time.Minute,
//	})
//
//	reporter.Start()
//	defer reporter.Stop()
//
//	reporter.RequestStarted()
//	reporter.RequestCompleted(progress.OutcomePartial, written)
//
// # Output Format
//
//	[rangeserve] Served: 1.13 GB | Speed: 12.40 MB/s | Active: 3
//	[rangeserve] Requests: 120 full | 843 partial | 12 multipart | 4 unsatisfiable | 1 failed
//
// The package also provides [ParseBytes] and [FormatBytes] for human-readable
// sizes such as "256MB".
package progress
