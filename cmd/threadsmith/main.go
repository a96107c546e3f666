package main

import (
	"context"
	"log/slog"

	"threadsmith-backend/cmd/threadsmith/commands"
	"threadsmith-backend/lib/serviceutil"
	"threadsmith-backend/lib/telemetry"
)

func main() {
	ctx := serviceutil.SignalContext()

	t, err := telemetry.SetupFromEnv(ctx, "threadsmith")
	if err != nil {
		slog.Warn("telemetry setup failed, continuing without exporters", "err", err)
	} else {
		defer t.Shutdown(context.Background())
	}
	telemetry.InitSlog(true)

	commands.ExecuteContext(ctx)
}
