package sources

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	dockerTypes "github.com/docker/docker/api/types"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/sirupsen/logrus"
	oteltrace "go.opentelemetry.io/otel/trace"

	"joedb/pkg/metrics"
	"joedb/pkg/tracing"
	"joedb/pkg/types"
)

// readerCtx wraps an io.Reader so that every Read after ctx is cancelled
// returns ctx's error instead of reading further, grounded on the
// teacher's container_monitor.go readerCtx (it lets stdcopy.StdCopy stop
// at its next Read on shutdown). It does not interrupt a Read that is
// already blocked on the underlying stream.
type readerCtx struct {
	ctx context.Context
	r   io.Reader
}

func (r *readerCtx) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}

// DockerSource streams stdout/stderr from every running container,
// discovering new containers on a poll interval, grounded on the
// teacher's internal/monitors/container_monitor.go (ContainerMonitor),
// trimmed to drop position tracking and task-manager integration this
// repository has no equivalent of.
type DockerSource struct {
	cfg    types.DockerSourceConfig
	sink   Inserter
	logger *logrus.Logger
	cli    *client.Client

	// Tracer wraps each container's collector loop in a span when set.
	Tracer oteltrace.Tracer

	collectorsMu sync.Mutex
	collectors   map[string]context.CancelFunc

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewDockerSource dials the Docker daemon given by cfg.SocketPath (via
// client.FromEnv when unset) and verifies connectivity with a Ping.
func NewDockerSource(cfg types.DockerSourceConfig, sink Inserter, logger *logrus.Logger) (*DockerSource, error) {
	opts := []client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}
	if cfg.SocketPath != "" {
		opts = append(opts, client.WithHost(cfg.SocketPath))
	}
	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, fmt.Errorf("docker source: create client: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := cli.Ping(pingCtx); err != nil {
		cli.Close()
		return nil, fmt.Errorf("docker source: ping daemon: %w", err)
	}

	return &DockerSource{
		cfg:        cfg,
		sink:       sink,
		logger:     logger,
		cli:        cli,
		collectors: make(map[string]context.CancelFunc),
	}, nil
}

// Start begins the discovery poll loop; new containers get a collector
// goroutine, containers that disappear have theirs cancelled.
func (ds *DockerSource) Start(ctx context.Context) error {
	if !ds.cfg.Enabled {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	ds.cancel = cancel

	interval := 30 * time.Second
	if d, err := time.ParseDuration(ds.cfg.ReconnectInterval); err == nil && d > 0 {
		interval = d
	}

	ds.wg.Add(1)
	go ds.discoverLoop(ctx, interval)

	metrics.SourceConnectionStatus.WithLabelValues("docker").Set(1)
	ds.logger.Info("docker source started")
	return nil
}

func (ds *DockerSource) discoverLoop(ctx context.Context, interval time.Duration) {
	defer ds.wg.Done()
	ds.reconcile(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ds.reconcile(ctx)
		}
	}
}

func (ds *DockerSource) reconcile(ctx context.Context) {
	containersList, err := ds.cli.ContainerList(ctx, dockerTypes.ContainerListOptions{})
	if err != nil {
		ds.logger.WithError(err).Warn("failed to list containers")
		metrics.ErrorsTotal.WithLabelValues("docker", "list_containers").Inc()
		return
	}

	seen := make(map[string]bool, len(containersList))
	for _, c := range containersList {
		seen[c.ID] = true
		ds.collectorsMu.Lock()
		_, tracked := ds.collectors[c.ID]
		ds.collectorsMu.Unlock()
		if !tracked {
			ds.startCollector(ctx, c.ID)
		}
	}

	ds.collectorsMu.Lock()
	for id, cancel := range ds.collectors {
		if !seen[id] {
			cancel()
			delete(ds.collectors, id)
		}
	}
	ds.collectorsMu.Unlock()
}

func (ds *DockerSource) startCollector(parent context.Context, containerID string) {
	collectCtx, cancel := context.WithCancel(parent)
	ds.collectorsMu.Lock()
	ds.collectors[containerID] = cancel
	ds.collectorsMu.Unlock()

	ds.wg.Add(1)
	go func() {
		defer ds.wg.Done()
		defer func() {
			ds.collectorsMu.Lock()
			delete(ds.collectors, containerID)
			ds.collectorsMu.Unlock()
		}()

		if ds.Tracer != nil {
			tc := tracing.NewTraceableContext(context.Background(), ds.Tracer, "sources.docker.read_loop")
			tc.SetAttribute("container_id", shortID(containerID))
			defer tc.End()
		}

		opts := dockerTypes.ContainerLogsOptions{
			ShowStdout: ds.cfg.IncludeStdout,
			ShowStderr: ds.cfg.IncludeStderr,
			Follow:     true,
		}
		stream, err := ds.cli.ContainerLogs(collectCtx, containerID, opts)
		if err != nil {
			if collectCtx.Err() != nil {
				return
			}
			ds.logger.WithError(err).WithField("container_id", shortID(containerID)).Warn("failed to open log stream")
			return
		}
		defer stream.Close()

		wrapped := &readerCtx{ctx: collectCtx, r: stream}
		stdoutW := &lineWriter{fn: func(line string) { ds.ingest(containerID, "stdout", line) }}
		stderrW := &lineWriter{fn: func(line string) { ds.ingest(containerID, "stderr", line) }}

		if _, err := stdcopy.StdCopy(stdoutW, stderrW, wrapped); err != nil && err != context.Canceled {
			ds.logger.WithError(err).WithField("container_id", shortID(containerID)).Warn("log copy error")
		}
	}()
}

func (ds *DockerSource) ingest(containerID, stream, line string) {
	rec, ok := LineToRecord(line)
	if !ok {
		return
	}
	rec["container_id"] = types.String(shortID(containerID))
	rec["stream"] = types.String(stream)
	if err := ds.sink.Insert("docker", rec); err != nil {
		metrics.IngestErrorsTotal.WithLabelValues("docker", errCode(err)).Inc()
	}
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

// Stop cancels every active collector and closes the Docker client.
func (ds *DockerSource) Stop() {
	if ds.cancel != nil {
		ds.cancel()
	}
	ds.wg.Wait()
	ds.cli.Close()
	metrics.SourceConnectionStatus.WithLabelValues("docker").Set(0)
}
