// Package spool is a print sink that stores each accepted print as a
// zstd-compressed PBM bitmap, for a printer driver or operator to pick up.
package spool

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"bergbridge/internal/logger"
	"bergbridge/internal/payload"

	"github.com/zeebo/blake3"
)

const fileSuffix = ".pbm.zst"

// FileSink writes prints into Dir. Writes are serialized.
type FileSink struct {
	Dir string

	mu sync.Mutex
}

// NewFileSink creates dir if needed and returns a sink writing into it.
func NewFileSink(dir string) (*FileSink, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create spool dir: %w", err)
	}
	return &FileSink{Dir: dir}, nil
}

// Print implements printer.Sink.
func (s *FileSink) Print(ctx context.Context, bits []byte, p *payload.Payload) bool {
	path, err := s.Write(ctx, bits, p)
	if err != nil {
		logger.Error("spool print %d: %v", p.PrintID, err)
		return false
	}
	logger.Info("spooled print %d (%d rows) to %s", p.PrintID, len(bits)/p.Width, path)
	return true
}

// Write stores one print and returns the file path.
func (s *FileSink) Write(ctx context.Context, bits []byte, p *payload.Payload) (string, error) {
	bm, err := NewBitmap(bits, p.Width)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	data := compressBitmap(bm.EncodePBM())
	name := fmt.Sprintf("%08x-%s%s", p.PrintID, contentID(bm.Rows), fileSuffix)
	path := filepath.Join(s.Dir, name)

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.Dir, ".print-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write print: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to sync print: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("failed to publish print: %w", err)
	}
	return path, nil
}

// contentID returns the first 8 bytes of the BLAKE3 hash of the raster, hex encoded.
func contentID(rows []byte) string {
	h := blake3.New()
	h.Write(rows)
	sum := h.Sum(nil)
	return hex.EncodeToString(sum[:8])
}

// Bitmap is a packed 1-bit raster, MSB first, 1 = black.
type Bitmap struct {
	Width  int
	Height int
	Rows   []byte
}

// NewBitmap packs one-byte-per-pixel bits into rows of width pixels.
func NewBitmap(bits []byte, width int) (*Bitmap, error) {
	if width <= 0 {
		return nil, fmt.Errorf("invalid width %d", width)
	}
	if len(bits) == 0 || len(bits)%width != 0 {
		return nil, fmt.Errorf("raster of %d pixels is not a whole number of %d-pixel rows", len(bits), width)
	}

	stride := (width + 7) / 8
	height := len(bits) / width
	rows := make([]byte, stride*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if bits[y*width+x] != 0 {
				rows[y*stride+x/8] |= 0x80 >> (x % 8)
			}
		}
	}
	return &Bitmap{Width: width, Height: height, Rows: rows}, nil
}

// Pixel reports whether the pixel at x, y is black.
func (b *Bitmap) Pixel(x, y int) bool {
	stride := (b.Width + 7) / 8
	return b.Rows[y*stride+x/8]&(0x80>>(x%8)) != 0
}

// EncodePBM renders the bitmap as a binary (P4) portable bitmap.
func (b *Bitmap) EncodePBM() []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "P4\n%d %d\n", b.Width, b.Height)
	buf.Write(b.Rows)
	return buf.Bytes()
}

// Open reads a spooled print back into a Bitmap.
func Open(path string) (*Bitmap, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	data, err := decompressBitmap(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress %s: %w", path, err)
	}
	return ParsePBM(data)
}

// ParsePBM parses the P4 form written by EncodePBM.
func ParsePBM(data []byte) (*Bitmap, error) {
	var width, height int
	r := bytes.NewReader(data)
	if _, err := fmt.Fscanf(r, "P4\n%d %d\n", &width, &height); err != nil {
		return nil, fmt.Errorf("bad pbm header: %w", err)
	}
	if width <= 0 || height <= 0 {
		return nil, errors.New("bad pbm dimensions")
	}
	rows := data[len(data)-r.Len():]
	if len(rows) != (width+7)/8*height {
		return nil, fmt.Errorf("pbm body is %d bytes, want %d", len(rows), (width+7)/8*height)
	}
	return &Bitmap{Width: width, Height: height, Rows: rows}, nil
}
