// Package metrics exposes joedb's Prometheus collectors, grounded on the
// teacher's internal/metrics.MetricsServer (promauto-registered vectors
// behind a ServeMux) but trimmed to the ingest/encode/decode/dump pipeline
// this repository actually runs.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

var (
	RecordsIngestedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "joedb_records_ingested_total",
			Help: "Total number of records inserted into the database, by source",
		},
		[]string{"source"},
	)

	IngestErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "joedb_ingest_errors_total",
			Help: "Total number of records rejected by Insert, by source and error code",
		},
		[]string{"source", "code"},
	)

	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "joedb_errors_total",
			Help: "Total number of non-ingest operational errors, by component and operation",
		},
		[]string{"component", "operation"},
	)

	ColumnsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "joedb_columns_active",
		Help: "Number of columns currently held by the in-memory database",
	})

	FlushDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "joedb_flush_duration_seconds",
			Help:    "Time spent encoding and writing a container file",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"trigger"},
	)

	FlushBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "joedb_flush_bytes_total",
		Help: "Total bytes written across all flushed container files",
	})

	FlushRecordsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "joedb_flush_records_total",
		Help: "Total records written across all flushed container files",
	})

	FlushErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "joedb_flush_errors_total",
		Help: "Total number of failed flush attempts",
	})

	DumpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "joedb_dump_requests_total",
			Help: "Total HTTP requests served by the dump server, by path and status",
		},
		[]string{"path", "status"},
	)

	DumpCompressionRatio = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "joedb_dump_compression_ratio",
			Help:    "compressed_size / original_size for dump responses, by algorithm",
			Buckets: []float64{0.05, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.8, 1.0},
		},
		[]string{"algorithm"},
	)

	SourceConnectionStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "joedb_source_connection_status",
			Help: "1 if the source is currently connected/running, 0 otherwise",
		},
		[]string{"source"},
	)

	HealthSnapshotDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "joedb_health_snapshot_duration_seconds",
		Help:    "Time spent collecting a gopsutil health snapshot",
		Buckets: prometheus.DefBuckets,
	})
)

// Server serves /metrics and a trivial /health liveness endpoint, grounded
// on the teacher's MetricsServer.
type Server struct {
	server *http.Server
	logger *logrus.Logger
}

// NewServer builds a metrics server bound to addr. Collectors are
// package-level promauto vars, already registered with the default
// registry at package init.
func NewServer(addr string, logger *logrus.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return &Server{
		server: &http.Server{Addr: addr, Handler: mux},
		logger: logger,
	}
}

// Start launches the HTTP listener in the background.
func (s *Server) Start() error {
	s.logger.WithField("addr", s.server.Addr).Info("starting metrics server")
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.WithError(err).Error("metrics server error")
		}
	}()
	return nil
}

// Stop closes the listener immediately; the server carries no in-flight
// scrape state worth draining.
func (s *Server) Stop() error {
	s.logger.Info("stopping metrics server")
	return s.server.Close()
}

// RecordFlush records one flush cycle's outcome.
func RecordFlush(trigger string, duration time.Duration, bytes int, records int) {
	FlushDuration.WithLabelValues(trigger).Observe(duration.Seconds())
	FlushBytesTotal.Add(float64(bytes))
	FlushRecordsTotal.Add(float64(records))
}
