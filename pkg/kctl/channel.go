package kctl

import (
	"encoding/hex"

	"kctlinit/pkg/log"
)

// Channel is an open kernel control socket. It is not safe for concurrent use.
type Channel struct {
	sys    Sys
	fd     int
	closed bool

	ident ServiceIdentity
	ep    Endpoint
	bound bool
}

// Open creates an unbound control socket.
func Open(sys Sys) (*Channel, error) {
	if sys == nil {
		sys = System
	}
	fd, err := sys.Socket()
	if err != nil {
		return nil, &ChannelOpenError{Err: err}
	}
	log.Debug().Int("fd", fd).Msg("control socket opened")
	return &Channel{sys: sys, fd: fd}, nil
}

// Resolve looks up the kernel-assigned identifier of the control named name.
// Names longer than MaxNameLen are truncated before the query, so an
// over-long name may resolve to a different control or fail.
func (c *Channel) Resolve(name string) (ServiceIdentity, error) {
	if c.closed {
		return ServiceIdentity{}, ErrClosed
	}
	rec, truncated := nameRecord(name)
	if truncated {
		log.Warn().Str("name", name).Int("max", MaxNameLen).Msg("control name truncated for CTLIOCGINFO")
	}
	id, err := c.sys.CtlInfo(c.fd, rec)
	if err != nil {
		return ServiceIdentity{}, &ResolutionError{Name: name, Err: err}
	}
	c.ident = ServiceIdentity{Name: name, ID: id}
	log.Info().Str("name", name).Uint32("id", id).Msg("control resolved")
	return c.ident, nil
}

// Bind connects the socket to unit of the resolved control. unit 0 lets the
// kernel allocate a fresh unit; any other value targets that existing unit.
func (c *Channel) Bind(ident ServiceIdentity, unit uint32) (Endpoint, error) {
	if c.closed {
		return Endpoint{}, ErrClosed
	}
	ep := Endpoint{ID: ident.ID, Unit: unit}
	if e := log.Debug(); e.Enabled() {
		rec, _ := ep.MarshalBinary()
		e.Str("sockaddr_ctl", hex.EncodeToString(rec)).Msg("connecting control socket")
	}
	if err := c.sys.Connect(c.fd, ep); err != nil {
		return Endpoint{}, &BindError{Endpoint: ep, Err: err}
	}
	c.ident = ident
	c.ep = ep
	c.bound = true
	log.Info().Str("name", ident.Name).Stringer("endpoint", ep).Msg("control socket bound")
	return ep, nil
}

// Write sends p as a single datagram. The returned count is whatever the
// kernel reported; callers decide what a short count means.
func (c *Channel) Write(p []byte) (int, error) {
	if c.closed {
		return 0, ErrClosed
	}
	return c.sys.Write(c.fd, p)
}

// Close releases the socket. It is safe to call more than once.
func (c *Channel) Close() error {
	if c == nil || c.closed {
		return nil
	}
	c.closed = true
	log.Debug().Int("fd", c.fd).Msg("control socket closed")
	return c.sys.Close(c.fd)
}

func (c *Channel) Identity() ServiceIdentity { return c.ident }
func (c *Channel) Endpoint() Endpoint        { return c.ep }
func (c *Channel) Bound() bool               { return c.bound }
func (c *Channel) Fd() int                   { return c.fd }

// Dial opens a control socket, resolves name and binds it to unit. On any
// failure the socket is closed before Dial returns.
func Dial(sys Sys, name string, unit uint32) (*Channel, error) {
	ch, err := Open(sys)
	if err != nil {
		return nil, err
	}

	ident, err := ch.Resolve(name)
	if err != nil {
		ch.Close()
		return nil, err
	}
	if _, err := ch.Bind(ident, unit); err != nil {
		ch.Close()
		return nil, err
	}
	return ch, nil
}
