package wire

import (
	"encoding/binary"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression selects the per-message compression codec.
type Compression uint8

const (
	// CompressionNone sends messages uncompressed.
	CompressionNone Compression = iota
	// CompressionZstd compresses messages with zstd.
	CompressionZstd
	// CompressionLZ4 compresses messages with lz4 block compression.
	CompressionLZ4
)

// envelopeHeaderSize is codec byte + raw length u32.
const envelopeHeaderSize = 5

// compressor packs outgoing messages with one configured codec and
// unpacks incoming messages of any codec, so mixed senders share a
// channel.
type compressor struct {
	kind Compression

	zenc *zstd.Encoder
	zdec *zstd.Decoder
}

func newCompressor(kind Compression) (*compressor, error) {
	c := &compressor{kind: kind}

	if kind == CompressionZstd {
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderConcurrency(1))
		if err != nil {
			return nil, fmt.Errorf("wire: zstd encoder: %w", err)
		}
		c.zenc = enc
	}

	// Always able to decode zstd, whatever we send with.
	dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("wire: zstd decoder: %w", err)
	}
	c.zdec = dec

	return c, nil
}

// pack wraps msg in a compression envelope, reusing dst's storage.
func (c *compressor) pack(dst, msg []byte) ([]byte, error) {
	dst = append(dst[:0], byte(c.kind))
	dst = binary.LittleEndian.AppendUint32(dst, uint32(len(msg)))

	switch c.kind {
	case CompressionNone:
		return append(dst, msg...), nil

	case CompressionZstd:
		return c.zenc.EncodeAll(msg, dst), nil

	case CompressionLZ4:
		bound := lz4.CompressBlockBound(len(msg))
		if cap(dst) < envelopeHeaderSize+bound {
			grown := make([]byte, len(dst), envelopeHeaderSize+bound)
			copy(grown, dst)
			dst = grown
		}
		var cmp lz4.Compressor
		n, err := cmp.CompressBlock(msg, dst[envelopeHeaderSize:envelopeHeaderSize+bound])
		if err != nil {
			return nil, fmt.Errorf("wire: lz4 compress: %w", err)
		}
		if n == 0 {
			// Incompressible; store raw under the none codec.
			dst[0] = byte(CompressionNone)
			return append(dst[:envelopeHeaderSize], msg...), nil
		}
		return dst[:envelopeHeaderSize+n], nil

	default:
		return nil, fmt.Errorf("wire: unknown compression codec %d", c.kind)
	}
}

// unpack decodes an envelope into a freshly owned buffer. The result
// must own its storage: decoded hits keep referencing it after the
// receiver's frame buffer is reused.
func (c *compressor) unpack(frame []byte) ([]byte, error) {
	if len(frame) < envelopeHeaderSize {
		return nil, ErrShortMessage
	}

	kind := Compression(frame[0])
	rawLen := binary.LittleEndian.Uint32(frame[1:5])
	body := frame[envelopeHeaderSize:]

	switch kind {
	case CompressionNone:
		if len(body) != int(rawLen) {
			return nil, ErrShortMessage
		}
		return append([]byte(nil), body...), nil

	case CompressionZstd:
		msg, err := c.zdec.DecodeAll(body, make([]byte, 0, rawLen))
		if err != nil {
			return nil, fmt.Errorf("wire: zstd decompress: %w", err)
		}
		return msg, nil

	case CompressionLZ4:
		msg := make([]byte, rawLen)
		n, err := lz4.UncompressBlock(body, msg)
		if err != nil {
			return nil, fmt.Errorf("wire: lz4 decompress: %w", err)
		}
		if n != int(rawLen) {
			return nil, ErrShortMessage
		}
		return msg, nil

	default:
		return nil, fmt.Errorf("wire: unknown compression codec %d", kind)
	}
}
