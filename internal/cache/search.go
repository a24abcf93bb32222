package cache

import (
	"context"
	"sort"
	"strings"

	"rfcmirror/internal/searchstore"
)

// Search runs the given terms as one lower-cased, space-joined match
// query against indexed titles, and with bodySearch also against document
// bodies. Matches are de-duplicated, resolved through ByNumber (a
// resolution failure propagates rather than being dropped) and returned
// ascending by number.
func (r *Registry) Search(ctx context.Context, terms []string, bodySearch bool) ([]*Entry, error) {
	lowered := make([]string, len(terms))
	for i, term := range terms {
		lowered[i] = strings.ToLower(term)
	}
	query := strings.Join(lowered, " ")

	seen := map[int]struct{}{}
	var results []*Entry

	resolve := func(numbers []int) error {
		for _, number := range numbers {
			if _, ok := seen[number]; ok {
				continue
			}
			seen[number] = struct{}{}

			entry, err := r.ByNumber(number)
			if err != nil {
				return err
			}
			results = append(results, entry)
		}
		return nil
	}

	titleMatches, err := r.store.Query(ctx, searchstore.FieldTitle, query)
	if err != nil {
		return nil, newError(err, "error searching titles for %q: %v", query, err)
	}
	if err := resolve(titleMatches); err != nil {
		return nil, err
	}

	if bodySearch {
		bodyMatches, err := r.store.Query(ctx, searchstore.FieldBody, query)
		if err != nil {
			return nil, newError(err, "error searching bodies for %q: %v", query, err)
		}
		if err := resolve(bodyMatches); err != nil {
			return nil, err
		}
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Less(results[j].Record)
	})

	return results, nil
}
