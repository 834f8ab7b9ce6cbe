package rle

import (
	"context"
	"errors"
	"fmt"
)

const (
	White byte = 0
	Black byte = 1

	// MaxPixels bounds the output of a single block (384 x 16384).
	MaxPixels = 384 * 16384

	checkEvery = 4096
)

var (
	ErrEmpty    = errors.New("rle block is empty")
	ErrTooLarge = errors.New("rle block expands beyond maximum raster size")
)

// Decompressor expands little printer raster blocks.
type Decompressor struct{}

// Decompress implements the pipeline decompression stage.
func (Decompressor) Decompress(ctx context.Context, block []byte) ([]byte, error) {
	return Decode(ctx, block)
}

// Decode expands a run-length encoded block into one byte per pixel.
// Each input byte is a run; runs alternate colour starting with White.
// A zero-length run only flips the colour, which is how runs longer than
// 255 pixels are continued.
func Decode(ctx context.Context, block []byte) ([]byte, error) {
	if len(block) == 0 {
		return nil, ErrEmpty
	}

	total := 0
	for _, n := range block {
		total += int(n)
	}
	if total > MaxPixels {
		return nil, fmt.Errorf("%w: %d pixels", ErrTooLarge, total)
	}

	out := make([]byte, 0, total)
	colour := White
	for i, n := range block {
		if i%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		for j := 0; j < int(n); j++ {
			out = append(out, colour)
		}
		colour ^= 1
	}
	return out, nil
}
