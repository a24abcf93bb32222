// Package cache maintains the local RFC mirror: the parsed in-memory
// registry, the document files on disk and the full-text search store,
// and keeps the three from diverging.
package cache

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/gofrs/flock"
	lru "github.com/hashicorp/golang-lru/v2"

	"rfcmirror/internal/config"
	"rfcmirror/internal/fetch"
	"rfcmirror/internal/searchstore"
)

// Cache directory layout under the cache root.
const (
	indexFilename = "rfc-index.txt"
	filesSubdir   = "files"
	indexSubdir   = "index"
	lockFilename  = ".lock"
)

// Index file markers.
const (
	headerMarker    = "~~~"
	notIssuedMarker = "Not Issued."
)

// staticLabels are divider lines skipped during index parsing.
var staticLabels = map[string]struct{}{
	"RFC INDEX": {},
	"---------": {},
}

// indexLineRE matches a line starting a new record: a document number
// followed by the first chunk of its description.
var indexLineRE = regexp.MustCompile(`^(\d+)\s*(.+)$`)

// lookupCacheSize bounds the LRU fronting the linear entry scan.
const lookupCacheSize = 256

// Fetcher is the retrieval boundary: it returns the raw bytes at url or
// a transport error. Any non-200 response is an error.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Registry is the ordered collection of registry entries, loaded from the
// local index file. It owns the cache directory layout and the search
// store. A Registry is not safe for concurrent use; the flock on the
// cache root keeps other processes out.
type Registry struct {
	root     string
	cfg      *config.Config
	log      *slog.Logger
	fetcher  Fetcher
	store    searchstore.Store
	lock     *flock.Flock
	excluded map[int]struct{}
	recent   *lru.Cache[int, *Entry]

	entries []*Entry
}

// Option configures a Registry before it opens its stores.
type Option func(*Registry)

// WithLogger sets the diagnostic log sink. Defaults to slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(r *Registry) {
		r.log = log
	}
}

// WithFetcher replaces the HTTP fetcher, e.g. with a fake in tests.
func WithFetcher(f Fetcher) Option {
	return func(r *Registry) {
		r.fetcher = f
	}
}

// WithStore replaces the search store, e.g. with an in-memory index.
func WithStore(s searchstore.Store) Option {
	return func(r *Registry) {
		r.store = s
	}
}

// Open prepares the cache root: creates the root and search-index
// directories if absent, locks the root against other processes, opens
// or initializes the search store, and loads the local index file if one
// exists.
func Open(cfg *config.Config, opts ...Option) (*Registry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, newError(err, "invalid configuration: %v", err)
	}

	r := &Registry{
		root:     cfg.CacheDir,
		cfg:      cfg,
		excluded: make(map[int]struct{}, len(cfg.Excluded)),
	}
	for _, n := range cfg.Excluded {
		r.excluded[n] = struct{}{}
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.log == nil {
		r.log = slog.Default()
	}

	// Only the root is created here; the search store creates its own
	// directory so a fresh cache is not mistaken for a corrupted index.
	if err := os.MkdirAll(r.root, 0o755); err != nil {
		return nil, newError(err, "error creating directory %s: %v", r.root, err)
	}

	// One process owns a cache root at a time; a second opener fails
	// fast instead of corrupting the stores.
	r.lock = flock.New(filepath.Join(r.root, lockFilename))
	locked, err := r.lock.TryLock()
	if err != nil {
		return nil, newError(err, "error locking cache root %s: %v", r.root, err)
	}
	if !locked {
		return nil, newError(nil, "cache root %s is in use by another process", r.root)
	}

	if r.fetcher == nil {
		r.fetcher = fetch.New(
			fetch.WithTimeout(cfg.FetchTimeout),
			fetch.WithRateLimit(cfg.RateLimit),
		)
	}

	if r.store == nil {
		store, err := searchstore.Open(filepath.Join(r.root, indexSubdir))
		if err != nil {
			_ = r.lock.Unlock()
			return nil, newError(err, "error opening search store: %v", err)
		}
		r.store = store
	}

	r.recent, _ = lru.New[int, *Entry](lookupCacheSize)

	if _, err := os.Stat(r.Path()); err == nil {
		if err := r.Load(); err != nil {
			_ = r.Close()
			return nil, err
		}
	}

	return r, nil
}

// Path returns the local path of the serialized index file.
func (r *Registry) Path() string {
	return filepath.Join(r.root, indexFilename)
}

// Root returns the cache root directory.
func (r *Registry) Root() string {
	return r.root
}

// Len returns the number of loaded entries.
func (r *Registry) Len() int {
	return len(r.entries)
}

// Entries returns the loaded entries in source order. The returned slice
// is a snapshot: a reload replaces it rather than rewriting it, but
// callers must not mutate it.
func (r *Registry) Entries() []*Entry {
	return r.entries
}

// Latest returns the highest loaded document number, or 0 when nothing
// is loaded.
func (r *Registry) Latest() int {
	if len(r.entries) == 0 {
		return 0
	}
	return r.entries[len(r.entries)-1].Number
}

// Close releases the search store and the cache root lock.
func (r *Registry) Close() error {
	var firstErr error
	if r.store != nil {
		if err := r.store.Close(); err != nil {
			firstErr = err
		}
	}
	if r.lock != nil {
		if err := r.lock.Unlock(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Load reads the local index file into the registry. The previous
// contents are cleared first: after a failed load the registry is empty,
// never half-populated. A fresh slice is built each time so snapshots
// handed out by Entries are never rewritten in place.
func (r *Registry) Load() error {
	r.entries = nil
	r.recent.Purge()

	f, err := os.Open(r.Path())
	if err != nil {
		return newError(err, "error loading %s: %v", r.Path(), err)
	}
	defer f.Close()

	var (
		header  bool
		number  int
		text    string
		dropped int
	)

	// finalize appends the accumulated record unless its number is
	// excluded or a parse error forces it to be dropped.
	finalize := func() {
		if number == 0 {
			return
		}
		if _, skip := r.excluded[number]; skip {
			return
		}
		rec, err := ParseRecord(number, text)
		if err != nil {
			r.log.Warn("dropping record",
				slog.Int("number", number),
				slog.String("error", err.Error()))
			dropped++
			return
		}
		r.entries = append(r.entries, &Entry{Record: rec, registry: r})
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), " \t\r")
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, headerMarker) {
			header = !header
			continue
		}
		if _, static := staticLabels[strings.TrimSpace(line)]; header || static {
			continue
		}

		if m := indexLineRE.FindStringSubmatch(line); m != nil {
			finalize()
			number, _ = strconv.Atoi(m[1])
			text = m[2]
			if text == notIssuedMarker {
				number = 0
				text = ""
			}
			continue
		}

		// Continuation line: extends the accumulating description.
		if number == 0 {
			r.entries = nil
			return newError(ErrFormat, "error loading %s: unsupported file format", r.Path())
		}
		text = text + " " + strings.TrimSpace(line)
	}

	if err := scanner.Err(); err != nil {
		r.entries = nil
		return newError(err, "error loading %s: %v", r.Path(), err)
	}

	finalize()

	r.log.Debug("index loaded",
		slog.Int("entries", len(r.entries)),
		slog.Int("dropped", dropped))

	return nil
}

// ByNumber returns the entry for the given document number.
//
// Lookups fail with a scoped error: ErrNotLoaded before any successful
// load, ErrBadNumber for non-positive numbers, ErrNotAvailable for
// numbers in the excluded set, ErrNotCached beyond the latest loaded
// number, and ErrNotFound for a gap inside the loaded range.
func (r *Registry) ByNumber(number int) (*Entry, error) {
	if len(r.entries) == 0 {
		return nil, newError(ErrNotLoaded, "no RFCs loaded to index")
	}

	if number < 1 {
		return nil, newError(ErrBadNumber, "invalid RFC number: %d", number)
	}

	if _, excluded := r.excluded[number]; excluded {
		return nil, newError(ErrNotAvailable, "RFC %04d not available from source (obsolete?)", number)
	}

	if latest := r.Latest(); number > latest {
		return nil, newError(ErrNotCached, "requested RFC %04d, latest cached RFC %04d", number, latest)
	}

	if entry, ok := r.recent.Get(number); ok {
		return entry, nil
	}

	for _, entry := range r.entries {
		if entry.Number == number {
			r.recent.Add(number, entry)
			return entry, nil
		}
	}

	return nil, newError(ErrNotFound, "RFC %04d not found in local cache", number)
}

// String describes the registry state for diagnostics.
func (r *Registry) String() string {
	return fmt.Sprintf("registry %s (%d entries)", r.root, len(r.entries))
}
