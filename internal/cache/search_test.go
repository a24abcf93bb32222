package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// searchIndex has one title-only match, one body-only match and one
// matching in both fields for the term "example".
const searchIndexText = `
0010 An Example Protocol. June 2020. (Status: INFORMATIONAL)

0020 Something Unrelated. July 2020. (Status: EXPERIMENTAL)

0030 Example Usage Guide. August 2020. (Status: INFORMATIONAL)
`

func newSearchRegistry(t *testing.T) *Registry {
	t.Helper()
	reg := newTestRegistry(t)
	loadIndex(t, reg, searchIndexText)

	bodies := map[int][]byte{
		10: []byte("protocol details without the keyword"),
		20: []byte("this body discusses an example in depth"),
		30: []byte("example appears here too"),
	}
	cacheDocuments(t, reg, func(n int) []byte { return bodies[n] })

	added, err := reg.IndexMissing(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, added)

	return reg
}

func TestSearch_TitleOnly(t *testing.T) {
	reg := newSearchRegistry(t)

	results, err := reg.Search(context.Background(), []string{"example"}, false)
	require.NoError(t, err)

	var numbers []int
	for _, entry := range results {
		numbers = append(numbers, entry.Number)
	}
	assert.Equal(t, []int{10, 30}, numbers)
}

func TestSearch_BodyAddsMatchesWithoutDuplicates(t *testing.T) {
	reg := newSearchRegistry(t)

	results, err := reg.Search(context.Background(), []string{"example"}, true)
	require.NoError(t, err)

	var numbers []int
	for _, entry := range results {
		numbers = append(numbers, entry.Number)
	}

	// Body search surfaces RFC 20; 10 and 30 appear exactly once,
	// ascending by number.
	assert.Equal(t, []int{10, 20, 30}, numbers)
}

func TestSearch_TermsAreLowercased(t *testing.T) {
	reg := newSearchRegistry(t)

	results, err := reg.Search(context.Background(), []string{"EXAMPLE"}, false)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestSearch_MultipleTermsAreJoined(t *testing.T) {
	reg := newSearchRegistry(t)

	results, err := reg.Search(context.Background(), []string{"example", "protocol"}, false)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, 10, results[0].Number)
}

func TestSearch_NoMatches(t *testing.T) {
	reg := newSearchRegistry(t)

	results, err := reg.Search(context.Background(), []string{"nonexistentterm"}, true)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearch_ResolutionFailurePropagates(t *testing.T) {
	reg := newSearchRegistry(t)

	// Shrink the registry so an indexed number is no longer loaded:
	// the search store still knows 30, but the registry's latest is 20.
	loadIndex(t, reg, `
0010 An Example Protocol. June 2020. (Status: INFORMATIONAL)

0020 Something Unrelated. July 2020. (Status: EXPERIMENTAL)
`)

	_, err := reg.Search(context.Background(), []string{"example"}, false)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotCached)
}
