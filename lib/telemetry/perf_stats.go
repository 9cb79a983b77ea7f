package telemetry

import (
	"context"
	"log/slog"
	"os"
	"runtime"

	"github.com/shirou/gopsutil/v4/process"
	"go.opentelemetry.io/otel"
)

var meter = otel.Meter("hmcpl.perf_stats")
var cpuGauge, _ = meter.Float64Gauge("cpu_usage")
var memoryGauge, _ = meter.Int64Gauge("allocated_mb")
var childMemoryGauge, _ = meter.Int64Gauge("child_rss_mb")
var goroutineGauge, _ = meter.Int64Gauge("goroutine_count")

// RecordRunStats records the resource usage of the current process and its children (the
// browser, when one was launched). It is meant to be called once, right before Shutdown.
func RecordRunStats(ctx context.Context) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	memoryGauge.Record(ctx, int64(memStats.Alloc/1_000_000))
	goroutineGauge.Record(ctx, int64(runtime.NumGoroutine()))

	self, err := process.NewProcessWithContext(ctx, int32(os.Getpid()))
	if err != nil {
		slog.Debug("failed to inspect own process", "err", err)
		return
	}
	cpuUsage, err := self.CPUPercentWithContext(ctx)
	if err == nil {
		cpuGauge.Record(ctx, cpuUsage)
	} else {
		slog.Debug("failed to read cpu usage", "err", err)
	}

	children, err := self.ChildrenWithContext(ctx)
	if err != nil {
		// no children is reported as an error too
		return
	}
	var rss uint64
	for _, child := range children {
		info, err := child.MemoryInfoWithContext(ctx)
		if err != nil {
			continue
		}
		rss += info.RSS
	}
	childMemoryGauge.Record(ctx, int64(rss/1_000_000))
}
