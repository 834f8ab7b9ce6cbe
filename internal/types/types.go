package types

import (
	"context"
	"fmt"
)

// DeviceType identifies the device class an envelope is addressed to.
type DeviceType uint32

const (
	DeviceLittlePrinter DeviceType = 1
)

func (d DeviceType) String() string {
	switch d {
	case DeviceLittlePrinter:
		return "LittlePrinter"
	}
	return fmt.Sprintf("DeviceType(%d)", uint32(d))
}

// CommandHeader is the routing part of an envelope.
type CommandHeader struct {
	DeviceType DeviceType
	Command    CommandCode
	CommandID  uint32 // Opaque correlation token, echoed in the response
}

// CommandEnvelope is one unit of work delivered by the transport.
type CommandEnvelope struct {
	Header  CommandHeader
	Payload []byte
}

// Response is returned exactly once for every envelope.
type Response struct {
	Code      ResponseCode
	CommandID uint32
}

// NewResponse builds a response correlated to the given envelope.
func NewResponse(code ResponseCode, env *CommandEnvelope) Response {
	return Response{Code: code, CommandID: env.Header.CommandID}
}

// RequestContext carries an envelope through the router.
type RequestContext struct {
	Ctx      context.Context
	Envelope *CommandEnvelope
	RespChan chan ResponseContext // Buffered; receives exactly one value
}

// ResponseContext carries the result back to the transport.
type ResponseContext struct {
	Response Response
	Error    error
}
