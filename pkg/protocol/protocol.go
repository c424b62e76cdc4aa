// Package protocol encodes the flow-divert group initialization packet.
//
// Layout, tightly packed with no implicit padding:
//
//	offset  size  field
//	0       1     packet type (GroupInit)
//	1       3     padding
//	4       4     connection id (0 = group level)
//	8       1     TLV type (TokenKey)
//	9       4     TLV length, big endian
//	13      N     TLV value (key bytes)
package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"

	"kctlinit/pkg/protocol/spec"
)

const (
	// MaxKeySize is FLOW_DIVERT_MAX_KEY_SIZE.
	MaxKeySize = 1024

	// HeaderSize covers every field before the key bytes.
	HeaderSize = 1 + 3 + 4 + 1 + 4

	// GroupInitSize is the encoded size of a packet carrying a MaxKeySize key.
	GroupInitSize = HeaderSize + MaxKeySize

	offType    = 0
	offConnID  = 4
	offTLVType = 8
	offTLVLen  = 9
	offKey     = HeaderSize
)

var (
	ErrShortPacket    = errors.New("protocol: packet shorter than group init header")
	ErrNotGroupInit   = errors.New("protocol: not a group init packet")
	ErrNotTokenKey    = errors.New("protocol: first attribute is not a token key")
	ErrLengthMismatch = errors.New("protocol: token key length does not match payload")
	ErrKeyTooLarge    = errors.New("protocol: token key exceeds MaxKeySize")
)

// GroupInit reinitializes a flow-divert group with a new token key.
// The key content is opaque; only its length is significant to the peer.
type GroupInit struct {
	ConnID uint32
	Key    []byte
}

// NewGroupInit returns a group-level packet carrying a zero-filled key of
// keySize bytes.
func NewGroupInit(keySize int) (*GroupInit, error) {
	if keySize < 0 || keySize > MaxKeySize {
		return nil, fmt.Errorf("%w: %d", ErrKeyTooLarge, keySize)
	}
	return &GroupInit{Key: make([]byte, keySize)}, nil
}

// Size returns the encoded length of p.
func (p *GroupInit) Size() int {
	return HeaderSize + len(p.Key)
}

// MarshalBinary writes each field at its fixed offset.
func (p *GroupInit) MarshalBinary() ([]byte, error) {
	if len(p.Key) > MaxKeySize {
		return nil, fmt.Errorf("%w: %d", ErrKeyTooLarge, len(p.Key))
	}
	buf := make([]byte, p.Size())
	buf[offType] = byte(spec.TypeGroupInit)
	// buf[1:4] is padding and stays zero.
	binary.BigEndian.PutUint32(buf[offConnID:offConnID+4], p.ConnID)
	buf[offTLVType] = byte(spec.TLVTokenKey)
	binary.BigEndian.PutUint32(buf[offTLVLen:offTLVLen+4], uint32(len(p.Key)))
	copy(buf[offKey:], p.Key)
	return buf, nil
}

// UnmarshalBinary parses a packet produced by MarshalBinary. The padding
// bytes are ignored.
func (p *GroupInit) UnmarshalBinary(data []byte) error {
	if len(data) < HeaderSize {
		return ErrShortPacket
	}
	if spec.PacketType(data[offType]) != spec.TypeGroupInit {
		return fmt.Errorf("%w: type %s (%d)", ErrNotGroupInit, spec.PacketType(data[offType]), data[offType])
	}
	if spec.TLVType(data[offTLVType]) != spec.TLVTokenKey {
		return fmt.Errorf("%w: tlv %d", ErrNotTokenKey, data[offTLVType])
	}
	keyLen := binary.BigEndian.Uint32(data[offTLVLen : offTLVLen+4])
	if uint64(keyLen) != uint64(len(data)-HeaderSize) {
		return fmt.Errorf("%w: declared %d, have %d", ErrLengthMismatch, keyLen, len(data)-HeaderSize)
	}
	if keyLen > MaxKeySize {
		return fmt.Errorf("%w: %d", ErrKeyTooLarge, keyLen)
	}
	p.ConnID = binary.BigEndian.Uint32(data[offConnID : offConnID+4])
	p.Key = make([]byte, keyLen)
	copy(p.Key, data[offKey:])
	return nil
}

// DeclaredKeyLen reads the big-endian TLV length from an encoded packet.
func DeclaredKeyLen(data []byte) (uint32, error) {
	if len(data) < HeaderSize {
		return 0, ErrShortPacket
	}
	return binary.BigEndian.Uint32(data[offTLVLen : offTLVLen+4]), nil
}
