// Package printer implements the little printer device class: it maps
// incoming command envelopes to a print (or nothing) and a response code.
package printer

import (
	"context"
	"errors"
	"fmt"

	"bergbridge/internal/logger"
	"bergbridge/internal/payload"
	"bergbridge/internal/types"
)

var ErrNoSink = errors.New("no print sink configured")

// PayloadDecoder parses a raw command blob.
type PayloadDecoder interface {
	Decode(ctx context.Context, blob []byte) (*payload.Payload, error)
}

// Decompressor expands the payload's RLE block into printable pixels.
type Decompressor interface {
	Decompress(ctx context.Context, block []byte) ([]byte, error)
}

// Sink performs or queues the physical print. It reports whether the
// print was accepted.
type Sink interface {
	Print(ctx context.Context, bits []byte, p *payload.Payload) bool
}

// Device is the little printer command handler. It holds no per-command
// state; a nil sink means printing is unavailable.
type Device struct {
	sink         Sink
	decoder      PayloadDecoder
	decompressor Decompressor
}

// New creates a printer device. sink may be nil.
func New(sink Sink, decoder PayloadDecoder, decompressor Decompressor) *Device {
	return &Device{
		sink:         sink,
		decoder:      decoder,
		decompressor: decompressor,
	}
}

// Handle dispatches one envelope and always returns a response carrying
// the envelope's command id.
func (d *Device) Handle(ctx context.Context, env *types.CommandEnvelope) types.Response {
	cmd := env.Header.Command

	switch cmd {
	case types.CmdSetDeliveryAndPrint, types.CmdSetDeliveryAndPrintNoFace:
		// NoFace is printed the same way; face overlays are not composed yet.
		ok, err := d.Print(ctx, env.Payload)
		if err != nil {
			logger.Error("print failed (command %s, id %d): %v", cmd, env.Header.CommandID, err)
		}
		if ok {
			return types.NewResponse(types.RespSuccess, env)
		}
		return types.NewResponse(types.RespBusy, env)

	// Delivery without print does no work here, so it is not acknowledged as success.
	case types.CmdSetDelivery, types.CmdSetDeliveryNoFace:
		logger.Warn("unhandled printer command: SetDelivery(NoFace) (%#x)", uint32(cmd))

	case types.CmdSetPersonality, types.CmdSetPersonalityWithMessage:
		logger.Warn("unhandled printer command: SetPersonality(WithMessage) (%#x)", uint32(cmd))

	case types.CmdSetQuip:
		logger.Warn("unhandled printer command: SetQuip (%#x)", uint32(cmd))

	default:
		logger.Warn("unknown printer command: %#x", uint32(cmd))
	}

	return types.NewResponse(types.RespBridgeError, env)
}

// Print decodes blob, expands its raster and hands it to the sink. Each
// stage runs only after the previous one succeeded.
func (d *Device) Print(ctx context.Context, blob []byte) (bool, error) {
	if d.sink == nil {
		return false, ErrNoSink
	}

	decoded, err := d.decoder.Decode(ctx, blob)
	if err != nil {
		return false, fmt.Errorf("decode payload: %w", err)
	}

	bits, err := d.decompressor.Decompress(ctx, decoded.RLE.Data)
	if err != nil {
		return false, fmt.Errorf("decompress raster: %w", err)
	}

	return d.sink.Print(ctx, bits, decoded), nil
}
