package kctl

// Sys is the system call surface a Channel needs. The darwin implementation
// talks to the kernel; tests substitute their own.
type Sys interface {
	Socket() (int, error)
	CtlInfo(fd int, name [MaxNameLen]byte) (uint32, error)
	Connect(fd int, ep Endpoint) error
	Write(fd int, p []byte) (int, error)
	Close(fd int) error
}

// System is the Sys backed by the running kernel.
var System Sys = systemSys{}

type systemSys struct{}
