package cache

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Entry couples a parsed record with the registry that owns it. Local
// path, remote URL and existence are derived on demand from the number
// and the registry's cache root, never cached at construction.
type Entry struct {
	Record

	registry *Registry
}

// Filename returns the cache file name for this document.
func (e *Entry) Filename() string {
	return fmt.Sprintf("rfc%d.txt", e.Number)
}

// Path returns the full local path of the cached document file.
func (e *Entry) Path() string {
	return filepath.Join(e.registry.root, filesSubdir, e.Filename())
}

// RemoteURL returns the download URL for this document. The remote
// naming scheme zero-pads numbers to four digits.
func (e *Entry) RemoteURL() string {
	return fmt.Sprintf("%srfc%04d.txt", e.registry.cfg.DocumentBaseURL, e.Number)
}

// Exists reports whether the document file is present in the local cache.
func (e *Entry) Exists() bool {
	info, err := os.Stat(e.Path())
	return err == nil && info.Mode().IsRegular()
}

// Update fetches the document body from the remote source and writes it
// to the local cache, replacing any previous copy. The containing
// directory is created if missing; an already existing directory is not
// an error.
func (e *Entry) Update(ctx context.Context) error {
	dir := filepath.Dir(e.Path())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return newError(err, "error creating directory %s: %v", dir, err)
	}

	e.registry.log.Debug("downloading document",
		slog.Int("number", e.Number),
		slog.String("url", e.RemoteURL()))

	body, err := e.registry.fetcher.Fetch(ctx, e.RemoteURL())
	if err != nil {
		return newError(err, "error downloading %s: %v", e.RemoteURL(), err)
	}

	if err := os.WriteFile(e.Path(), body, 0o644); err != nil {
		return newError(err, "error writing %s: %v", e.Path(), err)
	}

	return nil
}
