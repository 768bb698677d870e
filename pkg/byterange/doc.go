// Package byterange serves seekable resources over HTTP with byte-range support.
//
// It implements the server side of RFC 7233: a request without a Range header
// receives the whole resource, a single range is answered with 206 Partial
// Content, and several ranges are answered with a multipart/byteranges body.
// Malformed or unsatisfiable ranges are answered with 416 and
// "Content-Range: bytes */<total>".
//
// # Parsing
//
// [Parse] is pure and never touches a response. It returns the ranges in
// request order, or a [*RangeError] wrapping [ErrMalformedRange] or
// [ErrUnsatisfiableRange]:
//
//	ranges, err := byterange.Parse("bytes=0-99,200-299", size)
//	if errors.Is(err, byterange.ErrUnsatisfiableRange) {
//	    // 416
//	}
//
// A range covering the whole resource short-circuits to a single [Range] with
// Full set, and any other specs in the header are discarded.
//
// # Responding
//
// [Respond] parses the header and writes the response:
//
//	result, err := byterange.Respond(w, res, byterange.Options{
//	    Name:        "report.pdf",
//	    Filename:    "quarterly",
//	    ContentType: "application/pdf",
//	    Range:       r.Header.Get("Range"),
//	})
//
// Range errors are answered in place and are not returned. Only I/O errors
// reach the caller.
//
// # Multipart Format
//
//	\r\n--MULTIPART_BYTERANGES\r\n
//	Content-Type: application/pdf\r\n
//	Content-Length: 100\r\n
//	Content-Range: bytes 0-99/1000\r\n
//	\r\n
//	<100 bytes>
//	\r\n--MULTIPART_BYTERANGES\r\n
//	...
//	\r\n--MULTIPART_BYTERANGES--\r\n
package byterange
