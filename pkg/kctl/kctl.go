// Package kctl opens kernel control sockets (PF_SYSTEM, SYSPROTO_CONTROL),
// resolves a control name to its dynamic identifier and binds the socket to
// a unit of that control.
package kctl

import (
	"encoding/binary"
	"fmt"
)

const (
	// MaxNameLen is the size of the name buffer in the CTLIOCGINFO record.
	MaxNameLen = 96

	// SizeofSockaddrCtl is the size of struct sockaddr_ctl.
	SizeofSockaddrCtl = 32

	afSystem        = 32 // AF_SYSTEM
	afSysControl    = 2  // AF_SYS_CONTROL
	sysprotoControl = 2  // SYSPROTO_CONTROL

	// AutoUnit asks the kernel to pick a free unit on connect.
	AutoUnit uint32 = 0
)

// ServiceIdentity is a control name paired with the identifier the kernel
// assigned to it for this boot.
type ServiceIdentity struct {
	Name string
	ID   uint32
}

func (s ServiceIdentity) String() string {
	return fmt.Sprintf("%s (id=%d)", s.Name, s.ID)
}

// Endpoint is the bind target of a control socket.
type Endpoint struct {
	ID   uint32
	Unit uint32
}

func (e Endpoint) String() string {
	if e.Unit == AutoUnit {
		return fmt.Sprintf("sc_id=%d sc_unit=auto", e.ID)
	}
	return fmt.Sprintf("sc_id=%d sc_unit=%d", e.ID, e.Unit)
}

// MarshalBinary renders the endpoint in the struct sockaddr_ctl layout for
// display and debug logs:
//
//	sc_len(1) sc_family(1) ss_sysaddr(2) sc_id(4) sc_unit(4) sc_reserved(20)
//
// Multi-byte fields are in host order. These bytes are never passed to the
// kernel; connect builds its own record from unix.SockaddrCtl.
func (e Endpoint) MarshalBinary() ([]byte, error) {
	buf := make([]byte, SizeofSockaddrCtl)
	buf[0] = SizeofSockaddrCtl
	buf[1] = afSystem
	binary.NativeEndian.PutUint16(buf[2:4], afSysControl)
	binary.NativeEndian.PutUint32(buf[4:8], e.ID)
	binary.NativeEndian.PutUint32(buf[8:12], e.Unit)
	return buf, nil
}

// nameRecord copies name into the fixed CTLIOCGINFO buffer. Names that do
// not fit are cut at MaxNameLen; truncated reports whether that happened.
func nameRecord(name string) (rec [MaxNameLen]byte, truncated bool) {
	n := copy(rec[:], name)
	return rec, n < len(name)
}
