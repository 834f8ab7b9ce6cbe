package payload

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	// HeaderSize is the fixed size of the printer payload header in bytes.
	HeaderSize = 12

	// CurrentVersion is the only payload version understood by the decoder.
	CurrentVersion = 1

	// DefaultWidth is the little printer head width in pixels.
	DefaultWidth = 384

	// MaxBlockSize bounds the RLE block (1MB).
	MaxBlockSize = 1 << 20
)

var (
	ErrTruncated          = errors.New("payload truncated")
	ErrUnsupportedVersion = errors.New("unsupported payload version")
)

// Flags represents the flags byte in the payload header.
type Flags struct {
	Face bool // Bit 0: face overlay requested
}

// ParseFlags converts a flags byte to a Flags struct.
func ParseFlags(b uint8) Flags {
	return Flags{
		Face: b&0b00000001 != 0,
	}
}

// EncodeFlags converts a Flags struct to a flags byte.
func EncodeFlags(f Flags) uint8 {
	var b uint8
	if f.Face {
		b |= 0b00000001
	}
	return b
}

// Header is the on-wire payload header (12 bytes, little-endian).
type Header struct {
	Version  uint8  // Byte 0
	Flags    uint8  // Byte 1
	PrintID  uint32 // Bytes 2-5
	Width    uint16 // Bytes 6-7: pixels per row, 0 means DefaultWidth
	BlockLen uint32 // Bytes 8-11: length of the RLE block
}

// Block is the run-length encoded raster carried by a payload.
type Block struct {
	Data []byte
}

// Payload is the decoded form of a print command blob.
type Payload struct {
	Version uint8
	Flags   Flags
	PrintID uint32
	Width   int
	RLE     Block
	Size    int // Total bytes consumed from the blob
}

// Decoder parses raw printer payloads. DefaultWidth replaces a zero width
// in the header; when unset, the package DefaultWidth is used.
type Decoder struct {
	DefaultWidth int
}

// Decode implements the printer payload decoder used by the print pipeline.
func (d Decoder) Decode(ctx context.Context, blob []byte) (*Payload, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	width := d.DefaultWidth
	if width <= 0 {
		width = DefaultWidth
	}
	return decode(blob, width)
}

// Decode parses a raw blob into a Payload. The RLE block is copied so the
// result does not alias the caller's buffer.
func Decode(blob []byte) (*Payload, error) {
	return decode(blob, DefaultWidth)
}

func decode(blob []byte, defaultWidth int) (*Payload, error) {
	h, err := ParseHeader(blob)
	if err != nil {
		return nil, err
	}

	end := HeaderSize + int(h.BlockLen)
	if len(blob) < end {
		return nil, fmt.Errorf("%w: block needs %d bytes, have %d", ErrTruncated, h.BlockLen, len(blob)-HeaderSize)
	}
	if len(blob) > end {
		return nil, fmt.Errorf("payload has %d trailing bytes", len(blob)-end)
	}

	width := int(h.Width)
	if width == 0 {
		width = defaultWidth
	}

	data := make([]byte, h.BlockLen)
	copy(data, blob[HeaderSize:end])

	return &Payload{
		Version: h.Version,
		Flags:   ParseFlags(h.Flags),
		PrintID: h.PrintID,
		Width:   width,
		RLE:     Block{Data: data},
		Size:    end,
	}, nil
}

// ParseHeader reads and validates the fixed header.
func ParseHeader(blob []byte) (Header, error) {
	if len(blob) < HeaderSize {
		return Header{}, fmt.Errorf("%w: header needs %d bytes, have %d", ErrTruncated, HeaderSize, len(blob))
	}

	h := Header{
		Version:  blob[0],
		Flags:    blob[1],
		PrintID:  binary.LittleEndian.Uint32(blob[2:6]),
		Width:    binary.LittleEndian.Uint16(blob[6:8]),
		BlockLen: binary.LittleEndian.Uint32(blob[8:12]),
	}

	if h.Version != CurrentVersion {
		return Header{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, h.Version)
	}
	if h.BlockLen > MaxBlockSize {
		return Header{}, fmt.Errorf("rle block of %d bytes exceeds maximum of %d", h.BlockLen, MaxBlockSize)
	}
	return h, nil
}

// Encode serializes a payload back to its wire form.
func Encode(p *Payload) []byte {
	buf := make([]byte, HeaderSize+len(p.RLE.Data))
	version := p.Version
	if version == 0 {
		version = CurrentVersion
	}
	width := p.Width
	if width == DefaultWidth {
		width = 0
	}
	buf[0] = version
	buf[1] = EncodeFlags(p.Flags)
	binary.LittleEndian.PutUint32(buf[2:6], p.PrintID)
	binary.LittleEndian.PutUint16(buf[6:8], uint16(width))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(len(p.RLE.Data)))
	copy(buf[HeaderSize:], p.RLE.Data)
	return buf
}
