//go:build darwin

package kctl

import (
	"golang.org/x/sys/unix"
)

func (systemSys) Socket() (int, error) {
	return unix.Socket(unix.AF_SYSTEM, unix.SOCK_DGRAM, sysprotoControl)
}

func (systemSys) CtlInfo(fd int, name [MaxNameLen]byte) (uint32, error) {
	info := unix.CtlInfo{Name: name}
	if err := unix.IoctlCtlInfo(fd, &info); err != nil {
		return 0, err
	}
	return info.Id, nil
}

func (systemSys) Connect(fd int, ep Endpoint) error {
	return unix.Connect(fd, &unix.SockaddrCtl{ID: ep.ID, Unit: ep.Unit})
}

// Write issues exactly one write(2). It never loops on a short count.
func (systemSys) Write(fd int, p []byte) (int, error) {
	return unix.Write(fd, p)
}

func (systemSys) Close(fd int) error {
	return unix.Close(fd)
}
