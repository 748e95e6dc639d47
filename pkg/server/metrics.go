package server

import (
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus metric descriptors for the command engine.
type Metrics struct {
	game      *Game
	startTime time.Time

	CommandsTotal prometheus.Counter
	BadCommands   prometheus.Counter
	CPUOverruns   prometheus.Counter

	objectsTotal    prometheus.Gauge
	queueDepth      *prometheus.GaugeVec
	uptimeSeconds   prometheus.Gauge
	memoryHeapBytes prometheus.Gauge
	goroutines      prometheus.Gauge
}

// NewMetrics creates and registers Prometheus metrics for the game.
func NewMetrics(game *Game, startTime time.Time) *Metrics {
	m := &Metrics{
		game:      game,
		startTime: startTime,
		CommandsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gomushcore_commands_processed_total",
			Help: "Total commands processed since server start.",
		}),
		BadCommands: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gomushcore_bad_commands_total",
			Help: "Total commands that matched nothing.",
		}),
		CPUOverruns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gomushcore_cpu_overruns_total",
			Help: "Queued commands that ran past the CPU threshold.",
		}),
		objectsTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gomushcore_objects_total",
			Help: "Total number of objects in the database.",
		}),
		queueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "gomushcore_queue_depth",
			Help: "Current command queue depth by type.",
		}, []string{"queue_type"}),
		uptimeSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gomushcore_uptime_seconds",
			Help: "Server uptime in seconds.",
		}),
		memoryHeapBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gomushcore_memory_heap_bytes",
			Help: "Go heap memory allocated in bytes.",
		}),
		goroutines: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gomushcore_goroutines",
			Help: "Number of active goroutines.",
		}),
	}

	prometheus.MustRegister(
		m.CommandsTotal,
		m.BadCommands,
		m.CPUOverruns,
		m.objectsTotal,
		m.queueDepth,
		m.uptimeSeconds,
		m.memoryHeapBytes,
		m.goroutines,
	)

	return m
}

// Update refreshes all gauge metrics from current game state.
func (m *Metrics) Update() {
	m.objectsTotal.Set(float64(len(m.game.DB.Objects)))

	immediate, waiting, semaphore := m.game.Queue.Stats()
	m.queueDepth.WithLabelValues("immediate").Set(float64(immediate))
	m.queueDepth.WithLabelValues("waiting").Set(float64(waiting))
	m.queueDepth.WithLabelValues("semaphore").Set(float64(semaphore))

	m.uptimeSeconds.Set(time.Since(m.startTime).Seconds())

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	m.memoryHeapBytes.Set(float64(mem.HeapAlloc))
	m.goroutines.Set(float64(runtime.NumGoroutine()))
}

// Handler returns an http.Handler that updates metrics before serving them.
func (m *Metrics) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.Update()
		promhttp.Handler().ServeHTTP(w, r)
	})
}
