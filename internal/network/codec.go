package network

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"bergbridge/internal/types"

	"google.golang.org/protobuf/encoding/protowire"
)

// DefaultMaxFrameSize bounds a single frame (4MB).
const DefaultMaxFrameSize = 4 << 20

var ErrFrameTooLarge = errors.New("frame exceeds maximum size")

// CommandEnvelope field numbers.
const (
	envDeviceType protowire.Number = 1
	envCommand    protowire.Number = 2
	envCommandID  protowire.Number = 3
	envPayload    protowire.Number = 4
)

// Response field numbers.
const (
	respCode      protowire.Number = 1
	respCommandID protowire.Number = 2
)

// MarshalEnvelope encodes an envelope in protobuf wire format.
func MarshalEnvelope(env *types.CommandEnvelope) []byte {
	var b []byte
	b = protowire.AppendTag(b, envDeviceType, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(env.Header.DeviceType))
	b = protowire.AppendTag(b, envCommand, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(env.Header.Command))
	b = protowire.AppendTag(b, envCommandID, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(env.Header.CommandID))
	if len(env.Payload) > 0 {
		b = protowire.AppendTag(b, envPayload, protowire.BytesType)
		b = protowire.AppendBytes(b, env.Payload)
	}
	return b
}

// UnmarshalEnvelope decodes an envelope, skipping unknown fields.
func UnmarshalEnvelope(b []byte) (*types.CommandEnvelope, error) {
	env := &types.CommandEnvelope{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("envelope tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case num == envPayload && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, fmt.Errorf("envelope payload: %w", protowire.ParseError(n))
			}
			env.Payload = append([]byte(nil), v...)
			b = b[n:]

		case typ == protowire.VarintType && (num == envDeviceType || num == envCommand || num == envCommandID):
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, fmt.Errorf("envelope field %d: %w", num, protowire.ParseError(n))
			}
			if v > math.MaxUint32 {
				return nil, fmt.Errorf("envelope field %d overflows uint32: %d", num, v)
			}
			switch num {
			case envDeviceType:
				env.Header.DeviceType = types.DeviceType(v)
			case envCommand:
				env.Header.Command = types.CommandCode(v)
			case envCommandID:
				env.Header.CommandID = uint32(v)
			}
			b = b[n:]

		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, fmt.Errorf("envelope field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return env, nil
}

// MarshalResponse encodes a response in protobuf wire format.
func MarshalResponse(r types.Response) []byte {
	var b []byte
	b = protowire.AppendTag(b, respCode, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(r.Code))
	b = protowire.AppendTag(b, respCommandID, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(r.CommandID))
	return b
}

// UnmarshalResponse decodes a response, skipping unknown fields.
func UnmarshalResponse(b []byte) (types.Response, error) {
	var r types.Response
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return r, fmt.Errorf("response tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		if typ == protowire.VarintType && (num == respCode || num == respCommandID) {
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return r, fmt.Errorf("response field %d: %w", num, protowire.ParseError(n))
			}
			if num == respCode {
				r.Code = types.ResponseCode(v)
			} else {
				r.CommandID = uint32(v)
			}
			b = b[n:]
			continue
		}

		n = protowire.ConsumeFieldValue(num, typ, b)
		if n < 0 {
			return r, fmt.Errorf("response field %d: %w", num, protowire.ParseError(n))
		}
		b = b[n:]
	}
	return r, nil
}

// ReadFrame reads one length-prefixed frame.
func ReadFrame(r io.Reader, maxSize int) ([]byte, error) {
	// 1. Read Length Header (4 bytes)
	lenBuf := make([]byte, 4)
	if _, err := io.ReadFull(r, lenBuf); err != nil {
		return nil, err
	}
	msgLen := binary.BigEndian.Uint32(lenBuf)
	if int64(msgLen) > int64(maxSize) {
		return nil, fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, msgLen, maxSize)
	}

	// 2. Read Message Body
	buf := make([]byte, msgLen)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// WriteFrame writes data with its length prefix.
func WriteFrame(w io.Writer, data []byte) error {
	frame := make([]byte, 4+len(data))
	binary.BigEndian.PutUint32(frame, uint32(len(data)))
	copy(frame[4:], data)
	_, err := w.Write(frame)
	return err
}
