package cache

import (
	"context"
	"log/slog"
	"os"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// commitInterval is how many documents accumulate in a search store
// batch before it is committed, bounding batch memory.
const commitInterval = 50

// Update fetches the remote index file, overwrites the local copy and
// reloads the registry. A fetch or write failure aborts before the
// in-memory registry is touched.
func (r *Registry) Update(ctx context.Context) error {
	r.log.Debug("downloading index", slog.String("url", r.cfg.IndexURL))

	body, err := r.fetcher.Fetch(ctx, r.cfg.IndexURL)
	if err != nil {
		return newError(err, "error downloading %s: %v", r.cfg.IndexURL, err)
	}

	if err := os.WriteFile(r.Path(), body, 0o644); err != nil {
		return newError(err, "error writing %s: %v", r.Path(), err)
	}

	return r.Load()
}

// FetchMissing downloads every registry document without a local file.
// The first failed download aborts; completed files are kept, so a
// re-run resumes where the failure happened. The optional progress hook
// is called after each download with the counts of missing documents.
func (r *Registry) FetchMissing(ctx context.Context, progress func(done, total int)) (int, error) {
	var missing []*Entry
	for _, entry := range r.entries {
		if !entry.Exists() {
			missing = append(missing, entry)
		}
	}

	for i, entry := range missing {
		if err := entry.Update(ctx); err != nil {
			return i, err
		}
		if progress != nil {
			progress(i+1, len(missing))
		}
	}

	return len(missing), nil
}

// Indexed returns the sorted document numbers currently present in the
// search store, regardless of whether the corresponding files still
// exist on disk.
func (r *Registry) Indexed() ([]int, error) {
	numbers, err := r.store.Numbers()
	if err != nil {
		return nil, newError(err, "error listing indexed documents: %v", err)
	}
	return numbers, nil
}

// IndexMissing upserts every registry document absent from the search
// store, with title = the original description text and body = the
// cached file content. The write batch is committed every commitInterval
// documents; a failure of the final commit is logged and suppressed
// because an idempotent re-run resolves it. The returned count reflects
// attempted upserts, so after a suppressed final-commit failure it can
// overstate what the store holds; the uncommitted tail lands on the
// next run.
func (r *Registry) IndexMissing(ctx context.Context) (int, error) {
	indexed, err := r.Indexed()
	if err != nil {
		return 0, err
	}
	have := make(map[int]struct{}, len(indexed))
	for _, n := range indexed {
		have[n] = struct{}{}
	}

	batch := r.store.Batch()
	pending := 0
	added := 0

	for _, entry := range r.entries {
		if err := ctx.Err(); err != nil {
			return added, newError(err, "indexing interrupted: %v", err)
		}
		if _, ok := have[entry.Number]; ok {
			continue
		}

		r.log.Debug("indexing document", slog.Int("number", entry.Number))

		raw, err := os.ReadFile(entry.Path())
		if err != nil {
			return added, newError(err, "error reading %s: %v", entry.Path(), err)
		}

		body, err := decodeText(raw)
		if err != nil {
			return added, newError(ErrCharset, "RFC %d: unknown file charset", entry.Number)
		}

		if err := batch.Upsert(entry.Number, entry.Description, body); err != nil {
			return added, newError(err, "error indexing RFC %d: %v", entry.Number, err)
		}
		added++
		pending++

		if pending >= commitInterval {
			if err := batch.Flush(); err != nil {
				return added, newError(err, "error committing search index: %v", err)
			}
			pending = 0
		}
	}

	if err := batch.Flush(); err != nil {
		// The documents in this last batch land on the next run.
		r.log.Warn("final index commit failed", slog.String("error", err.Error()))
	}

	return added, nil
}

// decodeText decodes a cached document file as UTF-8, falling back to
// ISO-8859-1.
func decodeText(raw []byte) (string, error) {
	if utf8.Valid(raw) {
		return string(raw), nil
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}
