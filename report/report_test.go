package report

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/hitmerge/blobstore"
	"github.com/hupe1980/hitmerge/model"
	"github.com/hupe1980/hitmerge/tree"
)

func buildTree(t *testing.T) (*tree.Pool, *tree.GlobalHitTree) {
	t.Helper()
	pool := tree.NewPool(8)
	tr := tree.New(pool)
	for _, hit := range []model.Hit{
		{ID: 30, Score: 0.5, Description: []byte("gamma")},
		{ID: 10, Score: 1.5, Description: []byte("alpha")},
		{ID: 20, Score: 2.5, Description: []byte("beta")},
	} {
		require.NoError(t, tr.Insert(hit))
	}
	return pool, tr
}

func TestWriteTSVOrdered(t *testing.T) {
	pool, tr := buildTree(t)

	var buf bytes.Buffer
	n, err := Write(&buf, tr, FormatTSV)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	want := "10\t1.5\talpha\n20\t2.5\tbeta\n30\t0.5\tgamma\n"
	assert.Equal(t, want, buf.String())

	// Print and recycle: the tree is consumed, entries returned.
	assert.Equal(t, 0, tr.Len())
	assert.Equal(t, 0, pool.Live())
}

func TestWriteJSONLines(t *testing.T) {
	_, tr := buildTree(t)

	var buf bytes.Buffer
	n, err := Write(&buf, tr, FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.JSONEq(t, `{"id":10,"score":1.5,"description":"alpha"}`, lines[0])
	assert.JSONEq(t, `{"id":30,"score":0.5,"description":"gamma"}`, lines[2])
}

func TestArchive(t *testing.T) {
	ctx := context.Background()
	_, tr := buildTree(t)

	store := blobstore.NewMemory()
	n, err := Archive(ctx, store, "search-42/report.tsv", tr, FormatTSV)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	rc, err := store.Open(ctx, "search-42/report.tsv")
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "10\t1.5\talpha\n"))
}
