package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/hupe1980/hitmerge/internal/conv"
	"github.com/hupe1980/hitmerge/model"
)

const (
	countPrefixSize  = 8
	recordHeaderSize = 8 + 8 + 4
)

var (
	// ErrShortMessage is returned when a message is too small for its
	// count prefix or ends mid-record.
	ErrShortMessage = errors.New("wire: short message")
	// ErrTrailingBytes is returned when a message holds more bytes than
	// its count prefix accounts for.
	ErrTrailingBytes = errors.New("wire: trailing bytes after last record")
)

// appendHit serializes one hit record onto buf.
func appendHit(buf []byte, hit model.Hit) []byte {
	buf = binary.LittleEndian.AppendUint64(buf, hit.ID)
	buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(hit.Score))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(hit.Description)))
	return append(buf, hit.Description...)
}

// decodeHit parses one hit record from the front of b and returns the
// record length. The hit's description aliases b; the caller guarantees
// b outlives the hit.
func decodeHit(b []byte) (model.Hit, int, error) {
	if len(b) < recordHeaderSize {
		return model.Hit{}, 0, ErrShortMessage
	}

	descLen, err := conv.Uint32ToInt(binary.LittleEndian.Uint32(b[16:20]))
	if err != nil {
		return model.Hit{}, 0, fmt.Errorf("description length: %w", err)
	}
	total := recordHeaderSize + descLen
	if len(b) < total {
		return model.Hit{}, 0, ErrShortMessage
	}

	hit := model.Hit{
		ID:    binary.LittleEndian.Uint64(b[0:8]),
		Score: math.Float64frombits(binary.LittleEndian.Uint64(b[8:16])),
	}
	if descLen > 0 {
		hit.Description = b[recordHeaderSize:total:total]
	}
	return hit, total, nil
}
