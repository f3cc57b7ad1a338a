//go:build integration

package s3

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/marmos91/dittosession/pkg/store"
	"github.com/marmos91/dittosession/pkg/store/storetest"
)

// localstackEndpoint returns LOCALSTACK_ENDPOINT or starts a container.
func localstackEndpoint(t *testing.T) string {
	t.Helper()

	if endpoint := os.Getenv("LOCALSTACK_ENDPOINT"); endpoint != "" {
		return endpoint
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "localstack/localstack:3.0",
			ExposedPorts: []string{"4566/tcp"},
			Env: map[string]string{
				"SERVICES":              "s3",
				"DEFAULT_REGION":        "us-east-1",
				"EAGER_SERVICE_LOADING": "1",
			},
			WaitingFor: wait.ForAll(
				wait.ForListeningPort("4566/tcp"),
				wait.ForHTTP("/_localstack/health").
					WithPort("4566/tcp").
					WithStartupTimeout(60*time.Second),
			),
		},
		Started: true,
	})
	require.NoError(t, err, "failed to start localstack container")
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "4566")
	require.NoError(t, err)

	return fmt.Sprintf("http://%s:%s", host, port.Port())
}

func TestConformance(t *testing.T) {
	base := Config{
		Region:          "us-east-1",
		Endpoint:        localstackEndpoint(t),
		AccessKeyID:     "test",
		SecretAccessKey: "test",
		ForcePathStyle:  true,
		Bucket:          "dsess-test",
	}
	base.ApplyDefaults()

	client, err := NewClient(t.Context(), base)
	require.NoError(t, err)
	_, err = client.CreateBucket(t.Context(), &s3.CreateBucketInput{Bucket: aws.String(base.Bucket)})
	require.NoError(t, err)

	storetest.RunConformanceSuite(t, func(t *testing.T) store.Backend {
		// A fresh key prefix isolates each test within the shared bucket.
		cfg := base
		cfg.KeyPrefix = uuid.NewString() + "/"
		s, err := NewWithClient(t.Context(), client, cfg)
		require.NoError(t, err)
		return s
	})
}
