package spool

import "github.com/klauspost/compress/zstd"

var bitmapEncoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))

// compressBitmap zstd-compresses an encoded bitmap file.
func compressBitmap(src []byte) []byte {
	return bitmapEncoder.EncodeAll(src, make([]byte, 0, len(src)/4))
}

// Shared decoder; nil reader because only DecodeAll is used.
var bitmapDecoder, _ = zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))

func decompressBitmap(src []byte) ([]byte, error) {
	return bitmapDecoder.DecodeAll(src, nil)
}
