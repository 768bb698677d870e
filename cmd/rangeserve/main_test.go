package main

import (
	"bytes"
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ligustah/rangeserve/internal/config"
	"github.com/ligustah/rangeserve/internal/downloader"
	rangehttp "github.com/ligustah/rangeserve/internal/http"
)

func TestRunCommands(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want int
	}{
		{"no args", nil, ExitInvalidArgs},
		{"help", []string{"help"}, ExitSuccess},
		{"unknown", []string{"upload"}, ExitInvalidArgs},
		{"serve without source", []string{"serve"}, ExitInvalidArgs},
		{"serve with both sources", []string{"serve", "-root", "/tmp", "-bucket", "mem://"}, ExitInvalidArgs},
		{"serve bad rate", []string{"serve", "-root", "/tmp", "-rate-limit", "fast"}, ExitInvalidArgs},
		{"serve bad config", []string{"serve", "-config", "/nonexistent.yaml"}, ExitInvalidArgs},
		{"fetch without url", []string{"fetch"}, ExitInvalidArgs},
		{"fetch bad range", []string{"fetch", "-url", "http://localhost/x", "-range", "a-b"}, ExitInvalidArgs},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("RANGESERVE_ROOT", "")
			t.Setenv("RANGESERVE_BUCKET", "")
			if got := run(tt.args); got != tt.want {
				t.Errorf("run(%v) = %d, want %d", tt.args, got, tt.want)
			}
		})
	}
}

func TestParseSpans(t *testing.T) {
	tests := []struct {
		input   string
		want    []rangehttp.Span
		wantErr bool
	}{
		{"", nil, false},
		{"0-99", []rangehttp.Span{{Start: 0, End: 99}}, false},
		{"bytes=500-", []rangehttp.Span{{Start: 500, End: -1}}, false},
		{"-100", []rangehttp.Span{{Start: -100}}, false},
		{"0-9, 20-29,-5", []rangehttp.Span{{Start: 0, End: 9}, {Start: 20, End: 29}, {Start: -5}}, false},
		{"-", nil, true},
		{"10", nil, true},
		{"9-0", nil, true},
		{"-0", nil, true},
		{"x-1", nil, true},
	}

	for _, tt := range tests {
		got, err := parseSpans(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseSpans(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if len(got) != len(tt.want) {
			t.Errorf("parseSpans(%q) = %v, want %v", tt.input, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("parseSpans(%q)[%d] = %v, want %v", tt.input, i, got[i], tt.want[i])
			}
		}
	}
}

func TestServeAndFetch(t *testing.T) {
	root := t.TempDir()
	data := make([]byte, 64*1024)
	for i := range data {
		data[i] = byte(i % 251)
	}
	if err := os.WriteFile(filepath.Join(root, "data.bin"), data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	cfg.Addr = "127.0.0.1:0"
	cfg.Root = root
	cfg.ShutdownTimeout = 5 * time.Second

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	addrCh := make(chan string, 1)
	exitCh := make(chan int, 1)
	go func() {
		exitCh <- serve(ctx, cfg, log.New(io.Discard, "", 0), func(addr string) { addrCh <- addr })
	}()

	var base string
	select {
	case addr := <-addrCh:
		base = "http://" + addr + "/files/"
	case code := <-exitCh:
		t.Fatalf("serve exited early with %d", code)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not start")
	}

	opts := rangehttp.DefaultOptions()
	opts.RetryAttempts = 0
	client := rangehttp.NewClient(opts)
	out := t.TempDir()

	tests := []struct {
		name    string
		url     string
		spans   string
		workers int
		want    []byte
		code    int
	}{
		{"whole file", base + "data.bin", "", 0, data, ExitSuccess},
		{"parallel", base + "data.bin", "", 4, data, ExitSuccess},
		{"parallel missing", base + "nope.bin", "", 4, nil, ExitSourceNotAccess},
		{"single range", base + "data.bin", "100-199", 0, data[100:200], ExitSuccess},
		{"suffix", base + "data.bin", "-10", 0, data[len(data)-10:], ExitSuccess},
		{"multipart", base + "data.bin", "0-9,-10", 0, append(append([]byte{}, data[:10]...), data[len(data)-10:]...), ExitSuccess},
		{"missing", base + "nope.bin", "", 0, nil, ExitSourceNotAccess},
		{"unsatisfiable", base + "data.bin", "100000-", 0, nil, ExitRangeNotSatisfiable},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spans, err := parseSpans(tt.spans)
			if err != nil {
				t.Fatal(err)
			}
			output := filepath.Join(out, "out"+string(rune('a'+i)))

			dl := downloader.Options{Workers: tt.workers, ChunkSize: 10_000, HTTPOptions: opts}
			if code := fetch(ctx, client, tt.url, spans, output, dl); code != tt.code {
				t.Fatalf("fetch exit code = %d, want %d", code, tt.code)
			}
			if tt.code != ExitSuccess {
				return
			}
			got, err := os.ReadFile(output)
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(got, tt.want) {
				t.Errorf("output has %d bytes, want %d", len(got), len(tt.want))
			}
		})
	}

	cancel()
	select {
	case code := <-exitCh:
		if code != ExitSuccess {
			t.Errorf("serve exit code = %d, want %d", code, ExitSuccess)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestDefaultOutput(t *testing.T) {
	tests := []struct {
		filename string
		url      string
		want     string
	}{
		{"report.pdf", "http://host/files/x.pdf", "report.pdf"},
		{"", "http://host/files/dir/x.pdf?filename=y", "x.pdf"},
		{"", "http://host/", "download"},
		{"..", "http://host/files/a.bin", "a.bin"},
	}
	for _, tt := range tests {
		got := defaultOutput(&rangehttp.FileInfo{Filename: tt.filename}, tt.url)
		if got != tt.want {
			t.Errorf("defaultOutput(%q, %q) = %q, want %q", tt.filename, tt.url, got, tt.want)
		}
	}
}
