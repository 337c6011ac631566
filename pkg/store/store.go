// Package store wraps database.Database with the concurrency and
// periodic-flush lifecycle the teacher's dispatcher/buffer pair provides
// around a sink: ingestion connectors call Insert from their own
// goroutines, and a background loop periodically encodes the accumulated
// database to a container file and starts a fresh one, grounded on the
// teacher's internal/app Start/Stop sequencing and pkg/buffer's
// size/time-triggered flush.
package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/sirupsen/logrus"
	oteltrace "go.opentelemetry.io/otel/trace"

	"joedb/pkg/database"
	"joedb/pkg/encoder"
	"joedb/pkg/metrics"
	"joedb/pkg/tracing"
	"joedb/pkg/types"
)

// Store serializes access to a single database.Database and flushes it to
// disk on a timer or once a record-count threshold is reached.
type Store struct {
	mu sync.Mutex
	db *database.Database

	outputDir       string
	flushInterval   time.Duration
	flushThreshold  int
	compressionLvl  zstd.EncoderLevel
	dbOpts          []database.Option
	logger          *logrus.Logger
	tracer          oteltrace.Tracer

	lastFlush time.Time

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// Config controls Store's flush policy and output location.
type Config struct {
	OutputDirectory      string
	FlushInterval        time.Duration
	FlushRecordThreshold int
	CompressionLevel     zstd.EncoderLevel
	Patternize           bool
	Logger               *logrus.Logger
	// Tracer, if set, wraps each Insert and each Flush in a span (via
	// pkg/tracing.TraceableContext). Nil is fine: tracing is then skipped.
	Tracer oteltrace.Tracer
}

// New creates a Store with a fresh empty database.
func New(cfg Config) *Store {
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	dbOpts := []database.Option{
		database.WithPatternization(cfg.Patternize),
		database.WithLogger(cfg.Logger),
	}
	return &Store{
		db:             database.New(dbOpts...),
		outputDir:      cfg.OutputDirectory,
		flushInterval:  cfg.FlushInterval,
		flushThreshold: cfg.FlushRecordThreshold,
		compressionLvl: cfg.CompressionLevel,
		dbOpts:         dbOpts,
		logger:         cfg.Logger,
		tracer:         cfg.Tracer,
		lastFlush:      time.Now(),
	}
}

// Insert routes a record into the underlying database under the store's
// lock, then flushes immediately if the record threshold was crossed.
func (s *Store) Insert(source string, rec types.Record) error {
	var tc *tracing.TraceableContext
	if s.tracer != nil {
		tc = tracing.NewTraceableContext(context.Background(), s.tracer, "database.insert")
		tc.SetAttribute("source", source)
		defer tc.End()
	}

	s.mu.Lock()
	err := s.db.Insert(rec)
	count := s.db.RecordCount()
	columns := len(s.db.Columns())
	s.mu.Unlock()

	if err != nil {
		if tc != nil {
			tc.SetError(err)
		}
		return err
	}
	metrics.RecordsIngestedTotal.WithLabelValues(source).Inc()
	metrics.ColumnsActive.Set(float64(columns))

	if s.flushThreshold > 0 && count >= s.flushThreshold {
		if _, ferr := s.Flush("threshold"); ferr != nil {
			s.logger.WithError(ferr).Warn("threshold-triggered flush failed")
		}
	}
	return nil
}

// Flush encodes the current database, writes it to outputDir, and resets
// the store to a fresh empty database. It returns the path written, or
// ("", nil) if there was nothing to flush.
func (s *Store) Flush(trigger string) (string, error) {
	if s.tracer != nil {
		tc := tracing.NewTraceableContext(context.Background(), s.tracer, "store.flush")
		tc.SetAttribute("trigger", trigger)
		defer tc.End()
		path, err := s.flush(trigger)
		if err != nil {
			tc.SetError(err)
		} else {
			tc.SetAttribute("path", path)
		}
		return path, err
	}
	return s.flush(trigger)
}

func (s *Store) flush(trigger string) (string, error) {
	start := time.Now()

	s.mu.Lock()
	if s.db.RecordCount() == 0 {
		s.mu.Unlock()
		return "", nil
	}
	db := s.db
	s.db = database.New(s.dbOpts...)
	s.lastFlush = time.Now()
	s.mu.Unlock()

	blob, err := encoder.Encode(db, encoder.WithCompressionLevel(s.compressionLvl))
	if err != nil {
		metrics.FlushErrorsTotal.Inc()
		return "", fmt.Errorf("store: encode failed: %w", err)
	}

	if err := os.MkdirAll(s.outputDir, 0o755); err != nil {
		metrics.FlushErrorsTotal.Inc()
		return "", fmt.Errorf("store: mkdir output dir: %w", err)
	}

	name := fmt.Sprintf("joedb-%d.jdb", time.Now().UnixNano())
	path := filepath.Join(s.outputDir, name)
	if err := os.WriteFile(path, blob, 0o644); err != nil {
		metrics.FlushErrorsTotal.Inc()
		return "", fmt.Errorf("store: write container file: %w", err)
	}

	metrics.RecordFlush(trigger, time.Since(start), len(blob), db.RecordCount())
	s.logger.WithField("path", path).WithField("records", db.RecordCount()).
		WithField("bytes", len(blob)).Info("flushed container file")
	return path, nil
}

// Run starts the background flush-interval ticker; it returns once ctx is
// cancelled, after performing a final flush to avoid losing buffered
// records on shutdown.
func (s *Store) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.flushInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				if _, err := s.Flush("shutdown"); err != nil {
					s.logger.WithError(err).Warn("final flush failed")
				}
				return
			case <-ticker.C:
				if _, err := s.Flush("interval"); err != nil {
					s.logger.WithError(err).Warn("interval flush failed")
				}
			}
		}
	}()
}

// Stop cancels the flush loop and waits for the final flush to complete.
func (s *Store) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}
