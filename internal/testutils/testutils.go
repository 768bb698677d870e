//go:build integration

// Package testutils provides shared infrastructure for integration tests.
package testutils

import (
	"bytes"
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"log"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"gocloud.dev/blob"

	"github.com/ligustah/rangeserve/internal/server"
	"github.com/ligustah/rangeserve/internal/store"
)

const (
	minioAccessKey = "minioadmin"
	minioSecretKey = "minioadmin"
)

// TestFile is an object to seed into a test bucket.
type TestFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// GenerateTestData generates test data of the given size.
// Up to 10MB the data follows a fixed pattern; beyond that it is random.
func GenerateTestData(t *testing.T, size int64) []byte {
	t.Helper()
	data := make([]byte, size)
	if size <= 10*1024*1024 {
		for i := range data {
			data[i] = byte(i % 251)
		}
	} else if _, err := rand.Read(data); err != nil {
		t.Fatalf("generate random data: %v", err)
	}
	return data
}

// MinioEnv contains connection information for a Minio test environment.
type MinioEnv struct {
	Container testcontainers.Container
	BucketURL string
	Endpoint  string
}

// Close terminates the Minio container.
func (e *MinioEnv) Close(ctx context.Context) error {
	if e.Container != nil {
		return e.Container.Terminate(ctx)
	}
	return nil
}

// OpenBucket opens a gocloud bucket connection to the Minio environment.
func (e *MinioEnv) OpenBucket(ctx context.Context) (*blob.Bucket, error) {
	return blob.OpenBucket(ctx, e.BucketURL)
}

// Seed uploads files into the Minio bucket.
func (e *MinioEnv) Seed(t *testing.T, ctx context.Context, files []TestFile) {
	t.Helper()

	bucket, err := e.OpenBucket(ctx)
	if err != nil {
		t.Fatalf("open bucket: %v", err)
	}
	defer bucket.Close()

	for _, f := range files {
		opts := &blob.WriterOptions{ContentType: f.ContentType}
		if err := bucket.WriteAll(ctx, f.Name, f.Data, opts); err != nil {
			t.Fatalf("upload %s: %v", f.Name, err)
		}
	}
}

// StartMinioContainer starts a Minio container with a pre-created bucket.
func StartMinioContainer(t *testing.T, ctx context.Context, bucketName string) *MinioEnv {
	t.Helper()

	// minio and mc talk over a private network
	networkName := fmt.Sprintf("rangeserve-test-net-%d", time.Now().UnixNano())
	network, err := testcontainers.GenericNetwork(ctx, testcontainers.GenericNetworkRequest{
		NetworkRequest: testcontainers.NetworkRequest{
			Name: networkName,
		},
	})
	if err != nil {
		t.Fatalf("create network: %v", err)
	}
	t.Cleanup(func() { network.Remove(ctx) })

	minioContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "minio/minio:latest",
			ExposedPorts: []string{"9000/tcp"},
			Networks:     []string{networkName},
			NetworkAliases: map[string][]string{
				networkName: {"minio"},
			},
			Env: map[string]string{
				"MINIO_ROOT_USER":     minioAccessKey,
				"MINIO_ROOT_PASSWORD": minioSecretKey,
			},
			Cmd:        []string{"server", "/data"},
			WaitingFor: wait.ForHTTP("/minio/health/ready").WithPort("9000"),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("start minio container: %v", err)
	}

	createBucket(t, ctx, networkName, bucketName)

	host, err := minioContainer.Host(ctx)
	if err != nil {
		t.Fatalf("get container host: %v", err)
	}
	port, err := minioContainer.MappedPort(ctx, "9000")
	if err != nil {
		t.Fatalf("get container port: %v", err)
	}
	endpoint := fmt.Sprintf("%s:%s", host, port.Port())

	// gocloud reads credentials from the environment
	t.Setenv("AWS_ACCESS_KEY_ID", minioAccessKey)
	t.Setenv("AWS_SECRET_ACCESS_KEY", minioSecretKey)

	return &MinioEnv{
		Container: minioContainer,
		BucketURL: fmt.Sprintf("s3://%s?endpoint=http://%s&use_path_style=true&disable_https=true&region=us-east-1",
			bucketName, endpoint),
		Endpoint: endpoint,
	}
}

// createBucket runs a one-shot minio/mc container that creates the bucket.
func createBucket(t *testing.T, ctx context.Context, networkName, bucketName string) {
	t.Helper()

	mc, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:      "minio/mc:latest",
			Networks:   []string{networkName},
			Entrypoint: []string{"/bin/sh", "-c"},
			Cmd: []string{fmt.Sprintf(
				"/usr/bin/mc config host add myminio http://minio:9000 %s %s && /usr/bin/mc mb myminio/%s; exit 0",
				minioAccessKey, minioSecretKey, bucketName,
			)},
			WaitingFor: wait.ForExit(),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("start mc container: %v", err)
	}
	defer mc.Terminate(ctx)
}

// StartRangeServer serves st over HTTP for the duration of the test.
func StartRangeServer(t *testing.T, st store.Store, opts server.Options) *httptest.Server {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard, "", 0)
	}
	ts := httptest.NewServer(server.New(st, opts).Handler())
	t.Cleanup(ts.Close)
	return ts
}

// CompareReaderToData compares reader output with expected data in chunks.
func CompareReaderToData(t *testing.T, reader io.Reader, expected []byte) {
	t.Helper()

	buf := make([]byte, 1024*1024)
	offset := 0

	for {
		n, err := reader.Read(buf)
		if n > 0 {
			if offset+n > len(expected) {
				t.Fatalf("read more data than expected: offset=%d, n=%d, expected len=%d",
					offset, n, len(expected))
			}
			if !bytes.Equal(buf[:n], expected[offset:offset+n]) {
				t.Fatalf("data mismatch at offset %d", offset)
			}
			offset += n
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("read error at offset %d: %v", offset, err)
		}
	}

	if offset != len(expected) {
		t.Fatalf("incomplete read: got %d bytes, want %d", offset, len(expected))
	}
}
