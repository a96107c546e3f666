package threads

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"threadsmith-backend/lib/telemetry"
)

func TestProbe(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:scrapers/threads")
	defer cleanup()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	client, err := NewClient(ctx)
	require.NoError(t, err)
	client.Http.SetBaseURL(server.URL)

	require.NoError(t, client.Probe(ctx))
}

func TestProbeServerError(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:scrapers/threads")
	defer cleanup()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	client, err := NewClient(ctx)
	require.NoError(t, err)
	client.Http.SetBaseURL(server.URL)

	require.Error(t, client.Probe(ctx))
}
