package byterange

import (
	"errors"
	"testing"
)

func TestParse(t *testing.T) {
	const total = 1000

	tests := []struct {
		name   string
		header string
		want   []Range
	}{
		{"single", "bytes=0-99", []Range{{Start: 0, End: 99, Length: 100, Total: total}}},
		{"first byte", "bytes=0-0", []Range{{Start: 0, End: 0, Length: 1, Total: total}}},
		{"open ended", "bytes=900-", []Range{{Start: 900, End: 999, Length: 100, Total: total}}},
		{"suffix", "bytes=-100", []Range{{Start: 900, End: 999, Length: 100, Total: total}}},
		{"end past total", "bytes=500-5000", []Range{{Start: 500, End: 999, Length: 500, Total: total}}},
		{"last byte", "bytes=999-999", []Range{{Start: 999, End: 999, Length: 1, Total: total}}},
		{"content-range suffix ignored", "bytes=10-19/1000", []Range{{Start: 10, End: 19, Length: 10, Total: total}}},
		{"multiple in order", "bytes=200-299,0-99", []Range{
			{Start: 200, End: 299, Length: 100, Total: total},
			{Start: 0, End: 99, Length: 100, Total: total},
		}},
		{"full", "bytes=0-999", []Range{{Start: 0, End: 999, Length: 1000, Total: total, Full: true}}},
		{"full open ended", "bytes=0-", []Range{{Start: 0, End: 999, Length: 1000, Total: total, Full: true}}},
		{"suffix larger than total", "bytes=-5000", []Range{{Start: 0, End: 999, Length: 1000, Total: total, Full: true}}},
		{"full discards others", "bytes=10-20,0-999,30-40", []Range{{Start: 0, End: 999, Length: 1000, Total: total, Full: true}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.header, total)
			if err != nil {
				t.Fatalf("Parse(%q): %v", tt.header, err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("Parse(%q) returned %d ranges, want %d", tt.header, len(got), len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("range %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name   string
		header string
		total  int64
		want   error
	}{
		{"wrong unit", "items=0-10", 1000, ErrMalformedRange},
		{"missing prefix", "0-10", 1000, ErrMalformedRange},
		{"no dash", "bytes=10", 1000, ErrMalformedRange},
		{"letters", "bytes=a-b", 1000, ErrMalformedRange},
		{"trailing comma", "bytes=0-10,", 1000, ErrMalformedRange},
		{"spaces", "bytes=0-10, 20-30", 1000, ErrMalformedRange},
		{"overflow", "bytes=0-99999999999999999999", 1000, ErrMalformedRange},
		{"start after end", "bytes=500-100", 1000, ErrUnsatisfiableRange},
		{"start past total", "bytes=1000-", 1000, ErrUnsatisfiableRange},
		{"empty spec", "bytes=-", 1000, ErrUnsatisfiableRange},
		{"zero suffix", "bytes=-0", 1000, ErrUnsatisfiableRange},
		{"empty resource", "bytes=0-", 0, ErrUnsatisfiableRange},
		{"one bad spec fails all", "bytes=0-10,50-20", 1000, ErrUnsatisfiableRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ranges, err := Parse(tt.header, tt.total)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Parse(%q) error = %v, want %v", tt.header, err, tt.want)
			}
			if ranges != nil {
				t.Errorf("Parse(%q) returned ranges %v alongside error", tt.header, ranges)
			}

			var rangeErr *RangeError
			if !errors.As(err, &rangeErr) {
				t.Fatalf("expected *RangeError, got %T", err)
			}
			if rangeErr.Total != tt.total {
				t.Errorf("RangeError.Total = %d, want %d", rangeErr.Total, tt.total)
			}
		})
	}
}

func TestSuffixEquivalence(t *testing.T) {
	const total = 4321

	for _, n := range []int64{1, 17, 4096, total} {
		suffix, err := Parse("bytes=-"+itoa(n), total)
		if err != nil {
			t.Fatalf("suffix %d: %v", n, err)
		}
		explicit, err := Parse("bytes="+itoa(total-n)+"-"+itoa(total-1), total)
		if err != nil {
			t.Fatalf("explicit %d: %v", n, err)
		}
		if suffix[0] != explicit[0] {
			t.Errorf("bytes=-%d = %+v, want %+v", n, suffix[0], explicit[0])
		}
	}
}

func TestContentRange(t *testing.T) {
	r := newRange(200, 299, 1000)
	if got := ContentRange(r); got != "bytes 200-299/1000" {
		t.Errorf("ContentRange = %q", got)
	}
	if got := UnsatisfiedRange(1000); got != "bytes */1000" {
		t.Errorf("UnsatisfiedRange = %q", got)
	}
}
