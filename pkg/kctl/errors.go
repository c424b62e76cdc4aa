package kctl

import (
	"errors"
	"fmt"
	"syscall"
)

// Process exit codes for each failing stage.
const (
	ExitOK          = 0
	ExitChannelOpen = 1
	ExitResolve     = 2
	ExitBind        = 3
	ExitWrite       = 4
	ExitUsage       = 64
	ExitSoftware    = 70
)

var (
	ErrUnsupported = errors.New("kctl: kernel control sockets are only available on darwin")
	ErrClosed      = errors.New("kctl: channel closed")
)

// errnoOf extracts the system error number from err, or 0 if there is none.
func errnoOf(err error) syscall.Errno {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno
	}
	return 0
}

// ChannelOpenError reports a failed socket(PF_SYSTEM, SOCK_DGRAM, SYSPROTO_CONTROL).
type ChannelOpenError struct {
	Err error
}

func (e *ChannelOpenError) Error() string {
	return fmt.Sprintf("socket(PF_SYSTEM, SOCK_DGRAM, SYSPROTO_CONTROL) failed: %v (errno %d)", e.Err, e.Errno())
}

func (e *ChannelOpenError) Unwrap() error        { return e.Err }
func (e *ChannelOpenError) Errno() syscall.Errno { return errnoOf(e.Err) }
func (e *ChannelOpenError) ExitCode() int        { return ExitChannelOpen }

// ResolutionError reports a failed CTLIOCGINFO lookup of Name.
type ResolutionError struct {
	Name string
	Err  error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("ioctl(CTLIOCGINFO, %q) failed: %v (errno %d)", e.Name, e.Err, e.Errno())
}

func (e *ResolutionError) Unwrap() error        { return e.Err }
func (e *ResolutionError) Errno() syscall.Errno { return errnoOf(e.Err) }
func (e *ResolutionError) ExitCode() int        { return ExitResolve }

// BindError reports a failed connect to Endpoint.
type BindError struct {
	Endpoint Endpoint
	Err      error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("connect(&addr{sc_id:%d, sc_unit:%d}) failed: %v (errno %d)",
		e.Endpoint.ID, e.Endpoint.Unit, e.Err, e.Errno())
}

func (e *BindError) Unwrap() error        { return e.Err }
func (e *BindError) Errno() syscall.Errno { return errnoOf(e.Err) }
func (e *BindError) ExitCode() int        { return ExitBind }

// WriteError reports a write that did not transfer exactly Want bytes.
// Err is nil for a short write that the kernel reported as successful.
type WriteError struct {
	Want int
	Got  int
	Err  error
}

func (e *WriteError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("write: short write of %d/%d bytes", e.Got, e.Want)
	}
	return fmt.Sprintf("write: wrote %d/%d bytes: %v (errno %d)", e.Got, e.Want, e.Err, e.Errno())
}

func (e *WriteError) Unwrap() error        { return e.Err }
func (e *WriteError) Errno() syscall.Errno { return errnoOf(e.Err) }
func (e *WriteError) ExitCode() int        { return ExitWrite }

// ExitCode maps err to the process exit code of the stage that produced it.
// Errors from no known stage map to ExitSoftware.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var coder interface{ ExitCode() int }
	if errors.As(err, &coder) {
		return coder.ExitCode()
	}
	return ExitSoftware
}
