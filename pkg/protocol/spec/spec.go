// Package spec holds the flow-divert control protocol constants.
package spec

// PacketType is the first byte of every flow-divert control packet.
type PacketType uint8

const (
	TypeConnect       PacketType = 1
	TypeConnectResult PacketType = 2
	TypeData          PacketType = 3
	TypeClose         PacketType = 4
	TypeReadNotify    PacketType = 5
	TypeGroupInit     PacketType = 6
)

// String returns a human-readable name for the packet type
func (pt PacketType) String() string {
	switch pt {
	case TypeConnect:
		return "Connect"
	case TypeConnectResult:
		return "ConnectResult"
	case TypeData:
		return "Data"
	case TypeClose:
		return "Close"
	case TypeReadNotify:
		return "ReadNotify"
	case TypeGroupInit:
		return "GroupInit"
	default:
		return "Unknown"
	}
}

// TLVType tags an attribute inside a packet body.
type TLVType uint8

const (
	TLVTokenKey TLVType = 17
)

func (t TLVType) String() string {
	switch t {
	case TLVTokenKey:
		return "TokenKey"
	default:
		return "Unknown"
	}
}
