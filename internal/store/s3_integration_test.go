//go:build integration

package store

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"refile/internal/config"
	"refile/internal/refile"
)

const (
	minioAccessKey = "minioadmin"
	minioSecretKey = "minioadmin"
)

// startMinio runs a minio server and returns its endpoint URL.
func startMinio(t *testing.T, ctx context.Context) string {
	t.Helper()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "minio/minio:latest",
			ExposedPorts: []string{"9000/tcp"},
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
	t.Cleanup(func() { container.Terminate(ctx) })

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "9000")
	if err != nil {
		t.Fatalf("get container port: %v", err)
	}
	return fmt.Sprintf("http://%s:%s", host, port.Port())
}

func TestS3Store_Integration(t *testing.T) {
	ctx := context.Background()
	endpoint := startMinio(t, ctx)

	cfg := config.StoreConfig{
		Type:        "s3",
		Name:        "minio",
		S3Bucket:    "refile-test",
		S3Prefix:    "chunks",
		S3Region:    "us-east-1",
		S3Endpoint:  endpoint,
		S3PathStyle: true,
	}
	creds := Credentials{AccessKeyID: minioAccessKey, SecretAccessKey: minioSecretKey}

	s, err := NewS3Store(ctx, cfg, creds)
	if err != nil {
		t.Fatalf("NewS3Store() error = %v", err)
	}
	if _, err := s.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(cfg.S3Bucket)}); err != nil {
		t.Fatalf("CreateBucket() error = %v", err)
	}
	if err := s.ValidateSetup(ctx); err != nil {
		t.Fatalf("ValidateSetup() error = %v", err)
	}

	url, err := s.Put(ctx, "run-1/chunk_0", []byte("ciphertext"))
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if url != "s3://refile-test/chunks/run-1/chunk_0" {
		t.Errorf("Put() url = %q", url)
	}

	got, err := s.Get(ctx, url)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got) != "ciphertext" {
		t.Errorf("Get() = %q, want %q", got, "ciphertext")
	}

	_, err = s.Get(ctx, "s3://refile-test/chunks/missing")
	if !errors.Is(err, refile.ErrPermanent) {
		t.Errorf("Get() missing object error = %v, want ErrPermanent", err)
	}
}
