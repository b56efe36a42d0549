package blobstore

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	require.NoError(t, store.Put(ctx, "report.tsv", strings.NewReader("1\t0.5\n"), -1))
	assert.Equal(t, 1, store.Len())

	rc, err := store.Open(ctx, "report.tsv")
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "1\t0.5\n", string(data))
}

func TestMemoryNotFound(t *testing.T) {
	_, err := NewMemory().Open(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocal(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Put(ctx, "run/report.tsv", strings.NewReader("2\t1.5\n"), -1))

	// Overwrite is atomic replace, not append.
	require.NoError(t, store.Put(ctx, "run/report.tsv", strings.NewReader("3\t2.5\n"), -1))

	rc, err := store.Open(ctx, "run/report.tsv")
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "3\t2.5\n", string(data))
}

func TestLocalNotFound(t *testing.T) {
	store, err := NewLocal(t.TempDir())
	require.NoError(t, err)

	_, err = store.Open(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
