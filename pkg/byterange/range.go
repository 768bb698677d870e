package byterange

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	// ErrMalformedRange is returned when a Range header does not match
	// bytes=<spec>(,<spec>)*.
	ErrMalformedRange = errors.New("byterange: malformed range header")

	// ErrUnsatisfiableRange is returned when a range spec starts after it ends
	// or lies outside the resource.
	ErrUnsatisfiableRange = errors.New("byterange: range not satisfiable")
)

// rangePattern matches bytes=<spec>(,<spec>)* where spec is \d*-\d* with an
// optional /<ignored> suffix.
var rangePattern = regexp.MustCompile(`^bytes=\d*-\d*(/[^,]*)?(,\d*-\d*(/[^,]*)?)*$`)

// Range is an inclusive byte span of a resource of size Total.
type Range struct {
	Start  int64
	End    int64
	Length int64
	Total  int64

	// Full is set when the range spans the entire resource.
	Full bool
}

func newRange(start, end, total int64) Range {
	return Range{
		Start:  start,
		End:    end,
		Length: end - start + 1,
		Total:  total,
		Full:   start == 0 && end == total-1,
	}
}

// RangeError reports a Range header that cannot be served.
type RangeError struct {
	Header string
	Total  int64
	Err    error
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%v: %q (total %d)", e.Err, e.Header, e.Total)
}

func (e *RangeError) Unwrap() error {
	return e.Err
}

// Parse parses a Range header value against a resource of the given size.
// The header must not be blank; callers serve the full resource in that case.
func Parse(header string, total int64) ([]Range, error) {
	if !rangePattern.MatchString(header) {
		return nil, &RangeError{Header: header, Total: total, Err: ErrMalformedRange}
	}

	specs := strings.Split(strings.TrimPrefix(header, "bytes="), ",")
	ranges := make([]Range, 0, len(specs))

	for _, spec := range specs {
		if i := strings.IndexByte(spec, '/'); i >= 0 {
			spec = spec[:i]
		}

		start, end, err := parseSpec(spec, total)
		if err != nil {
			return nil, &RangeError{Header: header, Total: total, Err: err}
		}
		if start > end {
			return nil, &RangeError{Header: header, Total: total, Err: ErrUnsatisfiableRange}
		}

		r := newRange(start, end, total)
		if r.Full {
			return []Range{r}, nil
		}
		ranges = append(ranges, r)
	}

	return ranges, nil
}

// parseSpec resolves one "first-last" spec to inclusive offsets. The result
// may have start > end; Parse rejects those.
func parseSpec(spec string, total int64) (start, end int64, err error) {
	first, last, _ := strings.Cut(spec, "-")

	if first == "" {
		if last == "" {
			return 0, 0, ErrUnsatisfiableRange
		}
		// Suffix range: last is a byte count, not an offset.
		n, err := parseOffset(last)
		if err != nil {
			return 0, 0, err
		}
		start = total - n
		if start < 0 {
			start = 0
		}
		return start, total - 1, nil
	}

	start, err = parseOffset(first)
	if err != nil {
		return 0, 0, err
	}

	end = total - 1
	if last != "" {
		n, err := parseOffset(last)
		if err != nil {
			return 0, 0, err
		}
		if n < end {
			end = n
		}
	}

	return start, end, nil
}

func parseOffset(s string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, ErrMalformedRange
	}
	return n, nil
}

// ContentRange formats the Content-Range header value for r.
func ContentRange(r Range) string {
	return fmt.Sprintf("bytes %d-%d/%d", r.Start, r.End, r.Total)
}

// UnsatisfiedRange formats the Content-Range header value sent with a 416.
func UnsatisfiedRange(total int64) string {
	return fmt.Sprintf("bytes */%d", total)
}
