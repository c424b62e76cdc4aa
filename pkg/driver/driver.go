// Package driver writes one encoded packet to a bound control channel over
// and over until the channel fails or the caller stops it.
package driver

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"kctlinit/pkg/kctl"
	"kctlinit/pkg/log"
)

// Writer is a datagram sink: each Write is one whole message.
type Writer interface {
	Write(p []byte) (int, error)
}

type Options struct {
	// MaxWrites stops the loop cleanly after that many writes. 0 never stops.
	MaxWrites uint64
	// ReportEvery logs progress every that many writes. 0 disables it.
	ReportEvery uint64
}

type Stats struct {
	Writes  uint64
	Bytes   uint64
	Started time.Time
	Elapsed time.Duration
}

// Rate returns writes per second over the run.
func (s Stats) Rate() float64 {
	if s.Elapsed <= 0 {
		return 0
	}
	return float64(s.Writes) / s.Elapsed.Seconds()
}

type Driver struct {
	w    Writer
	pkt  []byte
	opts Options
	now  func() time.Time
}

// New returns a Driver that sends a private copy of pkt to w.
func New(w Writer, pkt []byte, opts Options) *Driver {
	return &Driver{
		w:    w,
		pkt:  append([]byte(nil), pkt...),
		opts: opts,
		now:  time.Now,
	}
}

// Run writes the packet until a write fails, ctx is done or MaxWrites is
// reached. Every iteration is exactly one Write of the whole packet; a
// result other than the full length ends the run in that iteration with a
// *kctl.WriteError and nothing is retried.
//
// Cancellation is only observed between writes. A nil error means the run
// was stopped on purpose.
func (d *Driver) Run(ctx context.Context) (st Stats, err error) {
	want := len(d.pkt)
	st.Started = d.now()
	defer func() {
		st.Elapsed = d.now().Sub(st.Started)
		var ev *zerolog.Event
		if err != nil {
			ev = log.Error().Err(err)
		} else {
			ev = log.Info()
		}
		ev.Uint64("writes", st.Writes).
			Uint64("bytes", st.Bytes).
			Dur("elapsed", st.Elapsed).
			Msg("drive loop finished")
	}()

	log.Info().Int("size", want).Uint64("max_writes", d.opts.MaxWrites).Msg("drive loop started")
	for {
		if ctx.Err() != nil {
			log.Info().Msg("drive loop cancelled")
			return st, nil
		}
		if d.opts.MaxWrites > 0 && st.Writes >= d.opts.MaxWrites {
			return st, nil
		}

		n, werr := d.w.Write(d.pkt)
		if werr != nil || n != want {
			return st, &kctl.WriteError{Want: want, Got: n, Err: werr}
		}
		st.Writes++
		st.Bytes += uint64(n)

		if d.opts.ReportEvery > 0 && st.Writes%d.opts.ReportEvery == 0 {
			elapsed := d.now().Sub(st.Started)
			log.Info().
				Uint64("writes", st.Writes).
				Uint64("bytes", st.Bytes).
				Float64("rate", Stats{Writes: st.Writes, Elapsed: elapsed}.Rate()).
				Msg("drive progress")
		}
	}
}
