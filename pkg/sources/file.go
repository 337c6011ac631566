package sources

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/nxadm/tail"
	"github.com/sirupsen/logrus"
	oteltrace "go.opentelemetry.io/otel/trace"

	"joedb/pkg/metrics"
	"joedb/pkg/tracing"
	"joedb/pkg/types"
)

// Inserter is the subset of pkg/store.Store every connector depends on,
// so connectors can be tested against a fake without pulling in the
// whole store package.
type Inserter interface {
	Insert(source string, rec types.Record) error
}

// FileSource tails matching files under a set of watched directories,
// discovering new files via fsnotify and reading them with nxadm/tail,
// grounded on the teacher's internal/monitors/file_monitor.go (tailer
// lifecycle, Follow+ReOpen config) combined with the fsnotify watch loop
// from pkg/hotreload/config_reloader.go for directory discovery.
type FileSource struct {
	cfg    types.FileSourceConfig
	sink   Inserter
	logger *logrus.Logger

	// Tracer wraps each tailed file's read loop in a span when set; a
	// nil Tracer (the zero value) just skips tracing.
	Tracer oteltrace.Tracer

	watcher *fsnotify.Watcher

	tailersMu sync.Mutex
	tailers   map[string]*tail.Tail

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewFileSource constructs a FileSource; it does not start watching
// until Start is called.
func NewFileSource(cfg types.FileSourceConfig, sink Inserter, logger *logrus.Logger) *FileSource {
	return &FileSource{
		cfg:     cfg,
		sink:    sink,
		logger:  logger,
		tailers: make(map[string]*tail.Tail),
	}
}

// Start discovers currently-matching files, begins tailing them, and
// watches each configured directory for new arrivals.
func (fs *FileSource) Start(ctx context.Context) error {
	if !fs.cfg.Enabled {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("file source: create watcher: %w", err)
	}
	fs.watcher = watcher

	for _, dir := range fs.cfg.WatchDirectories {
		if err := watcher.Add(dir); err != nil {
			fs.logger.WithError(err).WithField("dir", dir).Warn("failed to watch directory")
			continue
		}
		matches, err := fs.discover(dir)
		if err != nil {
			fs.logger.WithError(err).WithField("dir", dir).Warn("failed to list directory")
			continue
		}
		for _, path := range matches {
			fs.startTailer(path)
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	fs.cancel = cancel

	fs.wg.Add(1)
	go fs.watchLoop(ctx)

	metrics.SourceConnectionStatus.WithLabelValues("file").Set(1)
	fs.logger.WithField("dirs", fs.cfg.WatchDirectories).Info("file source started")
	return nil
}

func (fs *FileSource) discover(dir string) ([]string, error) {
	entries, err := filepath.Glob(filepath.Join(dir, "*"))
	if err != nil {
		return nil, err
	}
	var matches []string
	for _, p := range entries {
		if fs.matches(filepath.Base(p)) {
			matches = append(matches, p)
		}
	}
	return matches, nil
}

func (fs *FileSource) matches(name string) bool {
	for _, pat := range fs.cfg.ExcludePatterns {
		if ok, _ := filepath.Match(pat, name); ok {
			return false
		}
	}
	if len(fs.cfg.IncludePatterns) == 0 {
		return true
	}
	for _, pat := range fs.cfg.IncludePatterns {
		if ok, _ := filepath.Match(pat, name); ok {
			return true
		}
	}
	return false
}

func (fs *FileSource) watchLoop(ctx context.Context) {
	defer fs.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fs.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if fs.matches(filepath.Base(event.Name)) {
				fs.startTailer(event.Name)
			}
		case err, ok := <-fs.watcher.Errors:
			if !ok {
				return
			}
			fs.logger.WithError(err).Warn("file watcher error")
		}
	}
}

func (fs *FileSource) startTailer(path string) {
	fs.tailersMu.Lock()
	defer fs.tailersMu.Unlock()
	if _, exists := fs.tailers[path]; exists {
		return
	}

	t, err := tail.TailFile(path, tail.Config{
		Follow:   true,
		ReOpen:   fs.cfg.ReopenOnTruncation,
		Poll:     false,
		Location: &tail.SeekInfo{Offset: 0, Whence: 2},
	})
	if err != nil {
		fs.logger.WithError(err).WithField("path", path).Warn("failed to tail file")
		return
	}
	fs.tailers[path] = t

	fs.wg.Add(1)
	go fs.readLines(path, t)
	fs.logger.WithField("path", path).Info("tailing file")
}

func (fs *FileSource) readLines(path string, t *tail.Tail) {
	defer fs.wg.Done()
	defer t.Cleanup()

	if fs.Tracer != nil {
		tc := tracing.NewTraceableContext(context.Background(), fs.Tracer, "sources.file.read_loop")
		tc.SetAttribute("path", path)
		defer tc.End()
	}

	for line := range t.Lines {
		if line.Err != nil {
			fs.logger.WithError(line.Err).WithField("path", path).Warn("tail line error")
			continue
		}
		rec, ok := LineToRecord(line.Text)
		if !ok {
			continue
		}
		if err := fs.sink.Insert("file", rec); err != nil {
			metrics.IngestErrorsTotal.WithLabelValues("file", errCode(err)).Inc()
		}
	}
}

// Stop stops the directory watcher and every active tailer.
func (fs *FileSource) Stop() {
	if fs.cancel != nil {
		fs.cancel()
	}
	if fs.watcher != nil {
		fs.watcher.Close()
	}

	fs.tailersMu.Lock()
	for path, t := range fs.tailers {
		if err := t.Stop(); err != nil {
			fs.logger.WithError(err).WithField("path", path).Warn("error stopping tailer")
		}
	}
	fs.tailersMu.Unlock()

	done := make(chan struct{})
	go func() {
		fs.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		fs.logger.Warn("timed out waiting for file source shutdown")
	}

	metrics.SourceConnectionStatus.WithLabelValues("file").Set(0)
}
