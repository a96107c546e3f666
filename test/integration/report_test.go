package integration

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"threadsmith-backend/lib/telemetry"
	"threadsmith-backend/services/exporter"
)

func setupSmtp(t testing.TB) func() {
	// suppress logging
	testcontainers.Logger = log.New(io.Discard, "", 0)

	smtp, err := testcontainers.GenericContainer(
		context.Background(),
		testcontainers.GenericContainerRequest{
			Started: true,
			ContainerRequest: testcontainers.ContainerRequest{
				Image:        "haravich/fake-smtp-server",
				ExposedPorts: []string{"1025:1025", "1080:1080"},
				WaitingFor:   wait.ForLog("smtp://0.0.0.0:1025"),
			},
		},
	)
	if err != nil {
		t.Fatal(err)
	}
	return func() {
		err := smtp.Terminate(context.Background())
		if err != nil {
			t.Fatal(err)
		}
	}
}

var globalClient = resty.New()

func TestSendRunReport(t *testing.T) {
	cleanupTelemetry := telemetry.SetupForTesting(t, "test:integration/report")
	defer cleanupTelemetry()
	cleanup := setupSmtp(t)
	defer cleanup()

	service := exporter.NewService(exporter.Options{OutputRoot: t.TempDir()})

	ctx, cancelCtx := context.WithTimeout(context.Background(), time.Second*30)
	defer cancelCtx()

	err := service.SendRunReport(ctx, exporter.SmtpConfig{
		Server:       "localhost",
		Port:         1025,
		EmailAddress: "threadsmith@email.com",
		Password:     "default",
		Recipients:   []string{"ops@email.com"},
	}, []exporter.TargetSummary{
		{
			Target:     "エンジニア",
			PostsIn:    12,
			PostsFinal: 9,
			OutputFile: "data/output-post/エンジニア/2026-08-29/final_posts_120000.csv",
		},
	})
	require.NoError(t, err)

	res, err := globalClient.R().
		Get("http://127.0.0.1:1080/messages/1.plain")
	require.NoError(t, err)
	body := res.String()
	require.Contains(t, body, "finished")
	require.Contains(t, body, "エンジニア")
}
