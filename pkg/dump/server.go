package dump

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	oteltrace "go.opentelemetry.io/otel/trace"

	"joedb/pkg/decoder"
	"joedb/pkg/metrics"
	"joedb/pkg/tracing"
)

// Server exposes the container files written to a directory by
// pkg/store.Store as a full NDJSON decode over HTTP, grounded on the
// teacher's HTTP API surface in internal/app/handlers.go (gorilla/mux
// routes, structured per-request logging) adapted from log retrieval
// endpoints to a whole-database export. Every response is the entire
// decoded database with no filter or predicate support — an export dump,
// not a query engine.
type Server struct {
	dir    string
	logger *logrus.Logger
	server *http.Server

	// Tracer wraps each request's decode in a span when set.
	Tracer oteltrace.Tracer
}

// NewServer builds a dump server that lists and decodes container files
// under dir, bound to addr.
func NewServer(addr, dir string, logger *logrus.Logger) *Server {
	s := &Server{dir: dir, logger: logger}

	router := mux.NewRouter()
	router.HandleFunc("/dumps", s.handleList).Methods(http.MethodGet)
	router.HandleFunc("/dumps/latest", s.handleLatest).Methods(http.MethodGet)
	router.HandleFunc("/dumps/{name}", s.handleGet).Methods(http.MethodGet)

	s.server = &http.Server{Addr: addr, Handler: router}
	return s
}

// Start launches the HTTP listener in the background.
func (s *Server) Start() error {
	s.logger.WithField("addr", s.server.Addr).Info("starting dump server")
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.WithError(err).Error("dump server error")
		}
	}()
	return nil
}

// Stop shuts the HTTP listener down, giving in-flight requests 10s to
// complete.
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	names, err := s.listFiles()
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	for _, name := range names {
		w.Write([]byte(name + "\n"))
	}
	metrics.DumpRequestsTotal.WithLabelValues("/dumps", "200").Inc()
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	names, err := s.listFiles()
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, err)
		return
	}
	if len(names) == 0 {
		s.fail(w, r, http.StatusNotFound, nil)
		return
	}
	s.serveDump(w, r, names[len(names)-1])
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	s.serveDump(w, r, mux.Vars(r)["name"])
}

// serveDump decodes the named container file and rehydrates it back into
// its original flattened records, writing one JSON object per line
// (NDJSON), then applies a content-negotiated transfer compression on
// top of the whole response body.
func (s *Server) serveDump(w http.ResponseWriter, r *http.Request, name string) {
	path := filepath.Join(s.dir, filepath.Base(name))
	blob, err := os.ReadFile(path)
	if err != nil {
		s.fail(w, r, http.StatusNotFound, err)
		return
	}

	var tc *tracing.TraceableContext
	if s.Tracer != nil {
		tc = tracing.NewTraceableContext(r.Context(), s.Tracer, "decoder.decode")
		tc.SetAttribute("name", name)
		defer tc.End()
	}

	db, err := decoder.Decode(blob)
	if err != nil {
		if tc != nil {
			tc.SetError(err)
		}
		s.fail(w, r, http.StatusInternalServerError, err)
		return
	}
	records, err := decoder.Rehydrate(db)
	if err != nil {
		if tc != nil {
			tc.SetError(err)
		}
		s.fail(w, r, http.StatusInternalServerError, err)
		return
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			s.fail(w, r, http.StatusInternalServerError, err)
			return
		}
	}

	algorithm := NegotiateAlgorithm(r.Header.Get("Accept-Encoding"))
	compressed, err := Compress(buf.Bytes(), algorithm)
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, err)
		return
	}

	if algorithm != AlgorithmNone {
		w.Header().Set("Content-Encoding", string(algorithm))
		metrics.DumpCompressionRatio.WithLabelValues(string(algorithm)).
			Observe(float64(len(compressed)) / float64(buf.Len()))
	}
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)
	w.Write(compressed)
	metrics.DumpRequestsTotal.WithLabelValues("/dumps/{name}", "200").Inc()
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, status int, err error) {
	if err != nil {
		s.logger.WithError(err).WithField("path", r.URL.Path).Warn("dump request failed")
	}
	w.WriteHeader(status)
	metrics.DumpRequestsTotal.WithLabelValues(r.URL.Path, http.StatusText(status)).Inc()
}

func (s *Server) listFiles() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
