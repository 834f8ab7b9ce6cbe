package types

import "fmt"

// CommandCode is a little printer protocol command.
type CommandCode uint32

const (
	CmdSetDeliveryAndPrint       CommandCode = 0x1
	CmdSetDelivery               CommandCode = 0x2
	CmdSetDeliveryAndPrintNoFace CommandCode = 0x11
	CmdSetDeliveryNoFace         CommandCode = 0x12

	CmdSetPersonalityWithMessage CommandCode = 0x101
	CmdSetPersonality            CommandCode = 0x102

	CmdSetQuip CommandCode = 0x202
)

// Known reports whether c is part of the fixed command table.
func (c CommandCode) Known() bool {
	switch c {
	case CmdSetDeliveryAndPrint, CmdSetDelivery,
		CmdSetDeliveryAndPrintNoFace, CmdSetDeliveryNoFace,
		CmdSetPersonalityWithMessage, CmdSetPersonality,
		CmdSetQuip:
		return true
	}
	return false
}

func (c CommandCode) String() string {
	switch c {
	case CmdSetDeliveryAndPrint:
		return "SetDeliveryAndPrint"
	case CmdSetDelivery:
		return "SetDelivery"
	case CmdSetDeliveryAndPrintNoFace:
		return "SetDeliveryAndPrintNoFace"
	case CmdSetDeliveryNoFace:
		return "SetDeliveryNoFace"
	case CmdSetPersonalityWithMessage:
		return "SetPersonalityWithMessage"
	case CmdSetPersonality:
		return "SetPersonality"
	case CmdSetQuip:
		return "SetQuip"
	}
	return fmt.Sprintf("Unknown(%#x)", uint32(c))
}

// ResponseCode is the status sent back for every command.
type ResponseCode uint32

const (
	RespSuccess        ResponseCode = 0x00
	RespBusy           ResponseCode = 0x01
	RespBridgeError    ResponseCode = 0x02
	RespTransportError ResponseCode = 0x03
	RespTimeout        ResponseCode = 0x04
)

func (r ResponseCode) String() string {
	switch r {
	case RespSuccess:
		return "Success"
	case RespBusy:
		return "Busy"
	case RespBridgeError:
		return "BridgeError"
	case RespTransportError:
		return "TransportError"
	case RespTimeout:
		return "Timeout"
	}
	return fmt.Sprintf("ResponseCode(%#x)", uint32(r))
}
