package metrics

import (
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemCollector reads host and runtime statistics when Prometheus scrapes,
// so no background goroutine is needed.
type SystemCollector struct {
	uptime     *prometheus.Desc
	memoryUsed *prometheus.Desc
	cpuPercent *prometheus.Desc
	goroutines *prometheus.Desc
	gcPause    *prometheus.Desc
}

func NewSystemCollector() *SystemCollector {
	return &SystemCollector{
		uptime:     newDesc("uptime_seconds", "Ledger process uptime in seconds"),
		memoryUsed: newDesc("memory_usage_bytes", "Host memory in use"),
		cpuPercent: newDesc("cpu_usage_percent", "Host CPU utilisation since the previous scrape"),
		goroutines: newDesc("goroutines", "Goroutines in the ledger process"),
		gcPause:    newDesc("gc_pause_seconds_total", "Cumulative GC pause time"),
	}
}

func newDesc(name, help string) *prometheus.Desc {
	return prometheus.NewDesc(prometheus.BuildFQName(namespace, subsystem, name), help, nil, nil)
}

func (c *SystemCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.uptime
	ch <- c.memoryUsed
	ch <- c.cpuPercent
	ch <- c.goroutines
	ch <- c.gcPause
}

func (c *SystemCollector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(c.uptime, prometheus.GaugeValue, time.Since(startTime).Seconds())
	ch <- prometheus.MustNewConstMetric(c.goroutines, prometheus.GaugeValue, float64(runtime.NumGoroutine()))

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	ch <- prometheus.MustNewConstMetric(c.gcPause, prometheus.CounterValue, float64(ms.PauseTotalNs)/float64(time.Second))

	if vm, err := mem.VirtualMemory(); err == nil {
		ch <- prometheus.MustNewConstMetric(c.memoryUsed, prometheus.GaugeValue, float64(vm.Used))
	}
	// interval 0 compares against the previous call instead of sleeping
	if pct, err := cpu.Percent(0, false); err == nil && len(pct) > 0 {
		ch <- prometheus.MustNewConstMetric(c.cpuPercent, prometheus.GaugeValue, pct[0])
	}
}
