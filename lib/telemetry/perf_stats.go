package telemetry

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("threadsmith.perf_stats")
var cpuGauge, _ = meter.Float64Gauge("cpu_usage")
var memoryGauge, _ = meter.Int64Gauge("allocated_mb")
var liveObjectsGauge, _ = meter.Int64Gauge("live_objects")
var goroutineGauge, _ = meter.Int64Gauge("goroutine_count")

var postsCollectedCounter, _ = meter.Int64Counter("posts_collected")
var completionCallsCounter, _ = meter.Int64Counter("completion_calls")

// RecordPostsCollected counts posts that survived collection for a
// target.
func RecordPostsCollected(ctx context.Context, target string, count int64) {
	postsCollectedCounter.Add(ctx, count, metric.WithAttributes(
		attribute.String("target", target),
	))
}

// RecordCompletionCall counts one chat-completion request against a
// model.
func RecordCompletionCall(ctx context.Context, model string) {
	completionCallsCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("model", model),
	))
}

func InstrumentPerfStats(ctx context.Context) {
	go func() {
		var memStats runtime.MemStats
		ticker := time.NewTicker(time.Second * 30)

		for {
			select {
			case <-ticker.C:
				runtime.ReadMemStats(&memStats)

				cpuUsage, err := cpu.Percent(time.Minute, false)
				if err == nil {
					cpuGauge.Record(ctx, cpuUsage[0])
				} else {
					slog.WarnContext(ctx, "failed to read cpu usage", "err", err)
				}

				memoryGauge.Record(ctx, int64(memStats.Alloc/1_000_000))
				liveObjectsGauge.Record(ctx, int64(memStats.Mallocs)-int64(memStats.Frees))
				goroutineGauge.Record(ctx, int64(runtime.NumGoroutine()))
			case <-ctx.Done():
				ticker.Stop()
				return
			}
		}
	}()
}
