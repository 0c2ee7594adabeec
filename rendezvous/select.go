package rendezvous

import (
	"reflect"
	"time"

	"github.com/petermattis/goid"
)

// selectCase is a type-erased candidate operation. attempt performs the
// full non-blocking probe-and-claim for this case and, if it fires, runs
// the case's callback before returning true. changed returns a snapshot of
// the underlying channel's broadcast signal, to block on when no case is
// ready.
type selectCase struct {
	attempt func() bool
	changed func() <-chan struct{}
}

// Select is a value-only descriptor of candidate send and/or receive
// operations across one or more channels. Build it by chaining the case
// factories (RecvOnly, Recv, RecvFunc, SendOnly, Send), then resolve it
// with exactly one call to Wait, WaitTimeout or TryOnce.
//
// Cases are probed in the order they were added; when more than one case
// is simultaneously ready, the first-declared case wins. A Select does not
// detect, dynamically, whether two of its own cases reference opposite
// directions of the same underlying channel — such a descriptor is
// unsupported and its behavior is undefined; cmd/chanlint flags the
// lexically obvious form of this mistake statically.
type Select struct {
	cases []selectCase
}

// NewSelect returns an empty Select descriptor.
func NewSelect() *Select {
	return &Select{}
}

// RecvOnly adds a case that receives from ch and stores the value into out.
func RecvOnly[T any](s *Select, ch RecvChan[T], out *T) *Select {
	s.cases = append(s.cases, selectCase{
		attempt: func() bool {
			v, ok := ch.core.tryTake(goid.Get())
			if !ok {
				return false
			}
			*out = v
			return true
		},
		changed: ch.core.changedSnapshot,
	})
	return s
}

// Recv adds a case that receives from ch, stores the value into out, and
// then invokes cb.
func Recv[T any](s *Select, ch RecvChan[T], out *T, cb func()) *Select {
	s.cases = append(s.cases, selectCase{
		attempt: func() bool {
			v, ok := ch.core.tryTake(goid.Get())
			if !ok {
				return false
			}
			*out = v
			if cb != nil {
				cb()
			}
			return true
		},
		changed: ch.core.changedSnapshot,
	})
	return s
}

// RecvFunc adds a case that receives from ch and delivers the value to cb
// as its argument, instead of through a storage binding.
func RecvFunc[T any](s *Select, ch RecvChan[T], cb func(T)) *Select {
	s.cases = append(s.cases, selectCase{
		attempt: func() bool {
			v, ok := ch.core.tryTake(goid.Get())
			if !ok {
				return false
			}
			cb(v)
			return true
		},
		changed: ch.core.changedSnapshot,
	})
	return s
}

// SendOnly adds a case that sends v on ch.
func SendOnly[T any](s *Select, ch SendChan[T], v T) *Select {
	s.cases = append(s.cases, selectCase{
		attempt: func() bool {
			return ch.core.tryDeposit(v, goid.Get())
		},
		changed: ch.core.changedSnapshot,
	})
	return s
}

// Send adds a case that sends v on ch and, once the deposit succeeds,
// invokes cb.
func Send[T any](s *Select, ch SendChan[T], v T, cb func()) *Select {
	s.cases = append(s.cases, selectCase{
		attempt: func() bool {
			if !ch.core.tryDeposit(v, goid.Get()) {
				return false
			}
			if cb != nil {
				cb()
			}
			return true
		},
		changed: ch.core.changedSnapshot,
	})
	return s
}

// scanOnce probes every case in insertion order and claims the first one
// that is ready. It returns whether a case fired.
func (s *Select) scanOnce() bool {
	for _, c := range s.cases {
		if c.attempt() {
			return true
		}
	}
	return false
}

// snapshotAll captures the current "changed" signal of every case's
// channel before a scan, so that a state change racing with the scan is
// never missed: if anything changes after the snapshot is taken, the
// snapshotted channel is closed and a subsequent block returns
// immediately instead of waiting for a signal that already happened.
func (s *Select) snapshotAll() []<-chan struct{} {
	snaps := make([]<-chan struct{}, len(s.cases))
	for i, c := range s.cases {
		snaps[i] = c.changed()
	}
	return snaps
}

// blockOnAny blocks until any channel in snaps is closed, or (if timeoutC
// is non-nil) until timeoutC fires. It reports whether a snapshot channel
// fired first.
func blockOnAny(snaps []<-chan struct{}, timeoutC <-chan time.Time) bool {
	branches := make([]reflect.SelectCase, 0, len(snaps)+1)
	for _, ch := range snaps {
		branches = append(branches, reflect.SelectCase{
			Dir:  reflect.SelectRecv,
			Chan: reflect.ValueOf(ch),
		})
	}
	if timeoutC != nil {
		branches = append(branches, reflect.SelectCase{
			Dir:  reflect.SelectRecv,
			Chan: reflect.ValueOf(timeoutC),
		})
	}

	chosen, _, _ := reflect.Select(branches)
	return timeoutC == nil || chosen < len(snaps)
}

// TryOnce examines every case at most once and, if one is ready, fires it.
// It never blocks beyond momentary mutex acquisition inside a case's
// channel. It reports whether a case fired.
func (s *Select) TryOnce() bool {
	if len(s.cases) == 0 {
		panic("rendezvous: select has no cases")
	}
	return s.scanOnce()
}

// Wait blocks until exactly one case can fire, then fires it.
func (s *Select) Wait() {
	if len(s.cases) == 0 {
		panic("rendezvous: select has no cases")
	}
	for {
		snaps := s.snapshotAll()
		if s.scanOnce() {
			return
		}
		blockOnAny(snaps, nil)
	}
}

// WaitTimeout is like Wait, but returns false without firing any case if d
// elapses first.
func (s *Select) WaitTimeout(d time.Duration) bool {
	if len(s.cases) == 0 {
		panic("rendezvous: select has no cases")
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	for {
		snaps := s.snapshotAll()
		if s.scanOnce() {
			return true
		}
		if !blockOnAny(snaps, timer.C) {
			return false
		}
	}
}
