//go:build !darwin

package kctl

func (systemSys) Socket() (int, error) { return -1, ErrUnsupported }

func (systemSys) CtlInfo(int, [MaxNameLen]byte) (uint32, error) { return 0, ErrUnsupported }

func (systemSys) Connect(int, Endpoint) error { return ErrUnsupported }

func (systemSys) Write(int, []byte) (int, error) { return 0, ErrUnsupported }

func (systemSys) Close(int) error { return ErrUnsupported }
