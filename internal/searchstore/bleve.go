package searchstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
)

// BleveStore wraps a bleve index as the document search store.
// Document IDs are decimal document numbers.
type BleveStore struct {
	mu     sync.RWMutex
	index  bleve.Index
	path   string
	closed bool
}

// document is the stored field structure for one RFC.
type document struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

var _ Store = (*BleveStore)(nil)

// Open opens or creates the search store at path.
// An empty path creates an in-memory index for tests.
func Open(path string) (*BleveStore, error) {
	im := buildIndexMapping()

	var idx bleve.Index
	var err error
	if path == "" {
		idx, err = bleve.NewMemOnly(im)
	} else {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", filepath.Dir(path), err)
		}

		if empty, emptyErr := emptyDir(path); emptyErr == nil && empty {
			// A bare directory left by an interrupted run; drop it so
			// the index is created fresh below.
			_ = os.Remove(path)
		} else if validErr := validateIndexIntegrity(path); validErr != nil {
			slog.Warn("search store corrupted, recreating",
				slog.String("path", path),
				slog.String("error", validErr.Error()))
			if removeErr := os.RemoveAll(path); removeErr != nil {
				return nil, fmt.Errorf("search store corrupted at %s and cannot remove: %w (original error: %v)", path, removeErr, validErr)
			}
		}

		idx, err = bleve.Open(path)
		if err == bleve.ErrorIndexPathDoesNotExist {
			idx, err = bleve.New(path, im)
		} else if err != nil && isCorruptionError(err) {
			slog.Warn("search store open failed, recreating",
				slog.String("path", path),
				slog.String("error", err.Error()))
			if removeErr := os.RemoveAll(path); removeErr != nil {
				return nil, fmt.Errorf("search store corrupted, cannot clear: %w (original: %v)", removeErr, err)
			}
			idx, err = bleve.New(path, im)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open search store: %w", err)
	}

	return &BleveStore{index: idx, path: path}, nil
}

// buildIndexMapping maps the title and body text fields. Bodies are
// indexed but not stored; the document files on disk hold the content.
func buildIndexMapping() *mapping.IndexMappingImpl {
	im := bleve.NewIndexMapping()

	doc := bleve.NewDocumentMapping()

	title := bleve.NewTextFieldMapping()
	doc.AddFieldMappingsAt(FieldTitle, title)

	body := bleve.NewTextFieldMapping()
	body.Store = false
	doc.AddFieldMappingsAt(FieldBody, body)

	im.DefaultMapping = doc
	return im
}

// emptyDir reports whether path is an existing directory with no entries.
func emptyDir(path string) (bool, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return false, err
	}
	return len(entries) == 0, nil
}

// validateIndexIntegrity checks the bleve metadata file before opening,
// so a half-written index from a crashed run is recreated instead of
// failing every subsequent open.
func validateIndexIntegrity(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	metaPath := filepath.Join(path, "index_meta.json")
	info, err := os.Stat(metaPath)
	if os.IsNotExist(err) {
		return fmt.Errorf("index_meta.json missing")
	}
	if err != nil {
		return fmt.Errorf("cannot stat index_meta.json: %w", err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("index_meta.json is empty")
	}

	data, err := os.ReadFile(metaPath)
	if err != nil {
		return fmt.Errorf("cannot read index_meta.json: %w", err)
	}
	var meta map[string]interface{}
	if err := json.Unmarshal(data, &meta); err != nil {
		return fmt.Errorf("index_meta.json is corrupt: %w", err)
	}

	return nil
}

// isCorruptionError checks if an error indicates bleve index corruption.
func isCorruptionError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "unexpected end of JSON") ||
		strings.Contains(errStr, "error parsing mapping JSON") ||
		strings.Contains(errStr, "failed to load segment") ||
		strings.Contains(errStr, "error opening bolt") ||
		err == bleve.ErrorIndexMetaCorrupt
}

// Numbers returns the sorted document numbers currently stored.
func (s *BleveStore) Numbers() ([]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("search store is closed")
	}

	count, err := s.index.DocCount()
	if err != nil {
		return nil, fmt.Errorf("failed to count documents: %w", err)
	}
	if count == 0 {
		return nil, nil
	}

	req := bleve.NewSearchRequest(bleve.NewMatchAllQuery())
	req.Size = int(count)

	result, err := s.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("failed to list stored documents: %w", err)
	}

	numbers := make([]int, 0, len(result.Hits))
	for _, hit := range result.Hits {
		n, err := strconv.Atoi(hit.ID)
		if err != nil {
			// Foreign document IDs do not belong to this store.
			continue
		}
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)

	return numbers, nil
}

// Query runs text as a match query scoped to field and returns the
// matching document numbers.
func (s *BleveStore) Query(ctx context.Context, field, text string) ([]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("search store is closed")
	}

	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	count, err := s.index.DocCount()
	if err != nil {
		return nil, fmt.Errorf("failed to count documents: %w", err)
	}

	query := bleve.NewMatchQuery(text)
	query.SetField(field)

	req := bleve.NewSearchRequest(query)
	req.Size = int(count)
	if req.Size < 10 {
		req.Size = 10
	}

	result, err := s.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	numbers := make([]int, 0, len(result.Hits))
	for _, hit := range result.Hits {
		n, err := strconv.Atoi(hit.ID)
		if err != nil {
			continue
		}
		numbers = append(numbers, n)
	}

	return numbers, nil
}

// Batch starts a new write batch.
func (s *BleveStore) Batch() Batch {
	return &bleveBatch{store: s, batch: s.index.NewBatch()}
}

// Close closes the underlying index.
func (s *BleveStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.index.Close()
}

// bleveBatch accumulates upserts until Flush.
type bleveBatch struct {
	store *BleveStore
	batch *bleve.Batch
}

// Upsert adds or replaces the document stored under number. Indexing the
// same ID again replaces the previous document, which gives the batch
// upsert semantics.
func (b *bleveBatch) Upsert(number int, title, body string) error {
	doc := document{Title: title, Body: body}
	if err := b.batch.Index(strconv.Itoa(number), doc); err != nil {
		return fmt.Errorf("failed to index document %d: %w", number, err)
	}
	return nil
}

// Flush commits the accumulated upserts and resets the batch.
func (b *bleveBatch) Flush() error {
	b.store.mu.Lock()
	defer b.store.mu.Unlock()

	if b.store.closed {
		return fmt.Errorf("search store is closed")
	}

	if err := b.store.index.Batch(b.batch); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}
	b.batch = b.store.index.NewBatch()
	return nil
}
