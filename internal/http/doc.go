// Package http provides a range-aware HTTP client.
//
// This package handles:
//   - HEAD requests to get file metadata
//   - Single range requests, streamed
//   - Multi-range requests, decoded from multipart/byteranges
//   - Retry with exponential backoff
//
// # Usage
//
//	client := http.NewClient(http.DefaultOptions())
//
//	// Get file info
//	info, err := client.Head(ctx, url)
//	// info.Size, info.ETag, info.AcceptsRanges, info.Filename
//
//	// Download a range
//	resp, err := client.GetRange(ctx, url, startByte, endByte)
//	defer resp.Body.Close()
//
//	// Download several ranges in one round trip
//	parts, err := client.GetRanges(ctx, url, http.Span{Start: 0, End: 99}, http.Span{Start: -100})
package http
