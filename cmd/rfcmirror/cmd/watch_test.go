package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// syncBuffer makes a bytes.Buffer safe to read while the watch loop
// writes to it from another goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestRunWatch_CleanShutdownAfterChange(t *testing.T) {
	dir := t.TempDir()
	rootOpts = rootOptions{cacheDir: dir}

	c := &cobra.Command{}
	out := &syncBuffer{}
	c.SetOut(out)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- runWatch(ctx, c, 50*time.Millisecond)
	}()

	// Let the registry open and the watcher register with the kernel.
	deadline := time.After(5 * time.Second)
	for !strings.Contains(out.String(), "Watching") {
		select {
		case <-deadline:
			t.Fatal("watch loop did not start")
		case <-time.After(20 * time.Millisecond):
		}
	}
	time.Sleep(200 * time.Millisecond)

	// A new index file appears; the loop reloads and reports it.
	index := filepath.Join(dir, "rfc-index.txt")
	content := "                             RFC INDEX\n                             ---------\n"
	require.NoError(t, os.WriteFile(index, []byte(content), 0o644))

	for !strings.Contains(out.String(), "Reloaded") {
		select {
		case <-deadline:
			t.Fatal("change was not handled")
		case <-time.After(20 * time.Millisecond):
		}
	}

	// Cancelling right after a handled change shuts down cleanly.
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch loop did not stop")
	}
}
