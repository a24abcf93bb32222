package cache

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntry_DerivedLocations(t *testing.T) {
	reg := newTestRegistry(t)
	loadIndex(t, reg, sampleIndex)

	entry, err := reg.ByNumber(2)
	require.NoError(t, err)

	assert.Equal(t, "rfc2.txt", entry.Filename())
	assert.Equal(t, filepath.Join(reg.Root(), "files", "rfc2.txt"), entry.Path())
	// The remote naming scheme zero-pads to four digits.
	assert.Equal(t, "https://www.ietf.org/rfc/rfc0002.txt", entry.RemoteURL())
}

func TestEntry_RemoteURLWideNumbers(t *testing.T) {
	reg := newTestRegistry(t)
	loadIndex(t, reg, `
9999 Wide Number. May 2030. (Status: UNKNOWN)

12345 Wider Number. May 2030. (Status: UNKNOWN)
`)

	entry, err := reg.ByNumber(9999)
	require.NoError(t, err)
	assert.Contains(t, entry.RemoteURL(), "rfc9999.txt")

	entry, err = reg.ByNumber(12345)
	require.NoError(t, err)
	// Five-digit numbers are not truncated by the padding.
	assert.Contains(t, entry.RemoteURL(), "rfc12345.txt")
}

func TestEntry_ExistsReflectsDisk(t *testing.T) {
	reg := newTestRegistry(t)
	loadIndex(t, reg, sampleIndex)

	entry, err := reg.ByNumber(1)
	require.NoError(t, err)
	assert.False(t, entry.Exists())

	require.NoError(t, os.MkdirAll(filepath.Dir(entry.Path()), 0o755))
	require.NoError(t, os.WriteFile(entry.Path(), []byte("body"), 0o644))
	assert.True(t, entry.Exists())
}

func TestEntryUpdate_WritesFetchedBody(t *testing.T) {
	reg := newTestRegistry(t, WithFetcher(fetcherFunc(
		func(_ context.Context, url string) ([]byte, error) {
			return []byte("fetched from " + url), nil
		})))
	loadIndex(t, reg, sampleIndex)

	entry, err := reg.ByNumber(1000)
	require.NoError(t, err)

	require.NoError(t, entry.Update(context.Background()))

	data, err := os.ReadFile(entry.Path())
	require.NoError(t, err)
	assert.Equal(t, "fetched from https://www.ietf.org/rfc/rfc1000.txt", string(data))
}

func TestEntryUpdate_OverwritesPriorContent(t *testing.T) {
	reg := newTestRegistry(t, WithFetcher(fetcherFunc(
		func(_ context.Context, _ string) ([]byte, error) {
			return []byte("new content"), nil
		})))
	loadIndex(t, reg, sampleIndex)

	entry, err := reg.ByNumber(1)
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Dir(entry.Path()), 0o755))
	require.NoError(t, os.WriteFile(entry.Path(), []byte("old content"), 0o644))

	require.NoError(t, entry.Update(context.Background()))

	data, err := os.ReadFile(entry.Path())
	require.NoError(t, err)
	assert.Equal(t, "new content", string(data))
}

func TestEntryUpdate_FetchFailureWritesNothing(t *testing.T) {
	reg := newTestRegistry(t)
	loadIndex(t, reg, sampleIndex)

	entry, err := reg.ByNumber(1)
	require.NoError(t, err)

	err = entry.Update(context.Background())
	require.Error(t, err)
	var cerr *Error
	assert.ErrorAs(t, err, &cerr)
	assert.False(t, entry.Exists())
}
