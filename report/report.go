// Package report renders the master's drained hit tree into its final,
// globally sorted output.
//
// Writing a report consumes the tree: each hit is printed and its tree
// entry recycled in the same pass, so a multi-million-hit result never
// needs a second resident copy.
package report

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/hupe1980/hitmerge/blobstore"
	"github.com/hupe1980/hitmerge/model"
	"github.com/hupe1980/hitmerge/tree"
)

// Format selects the report encoding.
type Format int

const (
	// FormatTSV writes one "id <tab> score <tab> description" line per hit.
	FormatTSV Format = iota
	// FormatJSON writes one JSON object per line.
	FormatJSON
)

type jsonHit struct {
	ID          uint64  `json:"id"`
	Score       float64 `json:"score"`
	Description string  `json:"description,omitempty"`
}

// Write drains t in ascending ID order into w and returns the number of
// hits written.
func Write(w io.Writer, t *tree.GlobalHitTree, format Format) (int, error) {
	bw := bufio.NewWriter(w)

	var (
		n   int
		enc *json.Encoder
	)
	if format == FormatJSON {
		enc = json.NewEncoder(bw)
	}

	err := t.Drain(func(hit model.Hit) error {
		n++
		switch format {
		case FormatJSON:
			return enc.Encode(jsonHit{ID: hit.ID, Score: hit.Score, Description: string(hit.Description)})
		default:
			_, err := fmt.Fprintf(bw, "%d\t%g\t%s\n", hit.ID, hit.Score, hit.Description)
			return err
		}
	})
	if err != nil {
		return n, err
	}
	return n, bw.Flush()
}

// Archive renders the report and stores it under name.
func Archive(ctx context.Context, store blobstore.BlobStore, name string, t *tree.GlobalHitTree, format Format) (int, error) {
	var buf bytes.Buffer
	n, err := Write(&buf, t, format)
	if err != nil {
		return n, err
	}
	if err := store.Put(ctx, name, &buf, int64(buf.Len())); err != nil {
		return n, fmt.Errorf("report: archive %s: %w", name, err)
	}
	return n, nil
}
