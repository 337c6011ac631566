package tests

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/sirupsen/logrus"
	"go.uber.org/goleak"

	"joedb/pkg/sources"
	"joedb/pkg/store"
	"joedb/pkg/types"
)

// TestStoreAndFileSource_NoGoroutineLeaks exercises the store's
// flush-loop goroutine and a file source's watch loop through a full
// start/stop cycle.
func TestStoreAndFileSource_NoGoroutineLeaks(t *testing.T) {
	defer goleak.VerifyNone(t,
		goleak.IgnoreTopFunction("github.com/fsnotify/fsnotify.(*Watcher).readEvents"),
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
	)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	dir := t.TempDir()
	s := store.New(store.Config{
		OutputDirectory:      dir,
		FlushInterval:        time.Hour,
		FlushRecordThreshold: 0,
		CompressionLevel:     zstd.SpeedFastest,
		Logger:               logger,
	})

	fileCfg := types.FileSourceConfig{
		Enabled:          true,
		WatchDirectories: []string{dir},
		IncludePatterns:  []string{"*.log"},
	}
	fs := sources.NewFileSource(fileCfg, s, logger)

	ctx, cancel := context.WithCancel(context.Background())
	if err := fs.Start(ctx); err != nil {
		t.Fatalf("failed to start file source: %v", err)
	}
	s.Run(ctx)

	time.Sleep(50 * time.Millisecond)

	fs.Stop()
	s.Stop()
	cancel()
}
