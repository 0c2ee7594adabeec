// Package fifocheck verifies, after the fact, that a recorded
// rendezvous.Event log obeys the per-channel FIFO guarantee: receive
// completion order equals send phase-A completion order. It is a test
// helper, not part of the library's public surface.
package fifocheck

import (
	"fmt"
	"sort"

	"github.com/ahorn/go-channel/rendezvous"
)

// Violation describes one FIFO ordering mismatch found on a channel.
type Violation struct {
	ChanID       uint64
	DepositIndex int
	DepositSeq   uint64
	TakeSeq      uint64
}

func (v Violation) String() string {
	return fmt.Sprintf("chan %d: deposit #%d (seq %d) was not taken before take with seq %d",
		v.ChanID, v.DepositIndex, v.DepositSeq, v.TakeSeq)
}

// Verify checks every channel id present in events: the k-th EventDeposit
// (by Seq, i.e. by Phase-A completion order) must have been removed by the
// k-th EventTake. It reports every channel on which that fails.
func Verify(events []rendezvous.Event) []Violation {
	byChan := groupByChan(events)

	var violations []Violation
	for chanID, evs := range byChan {
		deposits := filterSorted(evs, rendezvous.EventDeposit)
		takes := filterSorted(evs, rendezvous.EventTake)

		n := len(deposits)
		if len(takes) < n {
			n = len(takes)
		}
		for i := 0; i < n; i++ {
			if takes[i].Seq < deposits[i].Seq {
				violations = append(violations, Violation{
					ChanID:       chanID,
					DepositIndex: i,
					DepositSeq:   deposits[i].Seq,
					TakeSeq:      takes[i].Seq,
				})
			}
		}
	}

	sort.Slice(violations, func(i, j int) bool {
		if violations[i].ChanID != violations[j].ChanID {
			return violations[i].ChanID < violations[j].ChanID
		}
		return violations[i].DepositIndex < violations[j].DepositIndex
	})
	return violations
}

func groupByChan(events []rendezvous.Event) map[uint64][]rendezvous.Event {
	byChan := make(map[uint64][]rendezvous.Event)
	for _, e := range events {
		byChan[e.ChanID] = append(byChan[e.ChanID], e)
	}
	return byChan
}

func filterSorted(events []rendezvous.Event, kind rendezvous.EventKind) []rendezvous.Event {
	var out []rendezvous.Event
	for _, e := range events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out
}

// VectorClock tracks one logical clock entry per goroutine that has
// participated in a traced run. Clock construction mirrors the
// send/receive clock update rules used by classic vector-clock deadlock
// and race analyses: a deposit increments its own goroutine's entry, and a
// take merges the depositing goroutine's clock into the receiver's.
type VectorClock map[int64]int

// Clone returns an independent copy of vc.
func (vc VectorClock) Clone() VectorClock {
	out := make(VectorClock, len(vc))
	for k, v := range vc {
		out[k] = v
	}
	return out
}

// Incomparable reports whether vc and other are causally unordered: each
// has an entry strictly greater than the other's on some goroutine. Two
// incomparable clocks at a take means that take could not have been
// causally forced to happen after that particular deposit, which is the
// vector-clock signature of an alternative, equally valid communication.
func Incomparable(vc, other VectorClock) bool {
	less, greater := false, false
	for g, v := range vc {
		if w := other[g]; v < w {
			less = true
		} else if v > w {
			greater = true
		}
	}
	for g, w := range other {
		if _, ok := vc[g]; ok {
			continue
		}
		if w > 0 {
			less = true
		}
	}
	return less && greater
}

// BuildClocks replays events in Seq order and returns the vector clock
// observed immediately after each event, keyed by Seq. A deposit advances
// only its own goroutine's entry. A take advances the receiver's entry and
// then merges in the clock the matching deposit held right after it
// happened, pairing deposits to takes on the same channel by FIFO position
// exactly as Verify does.
func BuildClocks(events []rendezvous.Event) map[uint64]VectorClock {
	sorted := make([]rendezvous.Event, len(events))
	copy(sorted, events)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Seq < sorted[j].Seq })

	depositOrder := make(map[uint64][]rendezvous.Event) // chanID -> deposits seen so far, in order
	depositClockAt := make(map[uint64]VectorClock)      // deposit Seq -> clock right after that deposit
	takeCursor := make(map[uint64]int)                  // chanID -> how many takes matched so far

	clocks := make(map[uint64]VectorClock, len(sorted))
	perGoroutine := make(map[int64]VectorClock) // goroutine -> its clock after its latest event

	for _, e := range sorted {
		current := perGoroutine[e.Goroutine].Clone()
		switch e.Kind {
		case rendezvous.EventDeposit:
			next := current.Clone()
			next[e.Goroutine]++
			current = next
			depositClockAt[e.Seq] = current.Clone()
			depositOrder[e.ChanID] = append(depositOrder[e.ChanID], e)
		case rendezvous.EventTake:
			next := current.Clone()
			next[e.Goroutine]++

			i := takeCursor[e.ChanID]
			if deps := depositOrder[e.ChanID]; i < len(deps) {
				senderClock := depositClockAt[deps[i].Seq]
				for g, v := range senderClock {
					if next[g] < v {
						next[g] = v
					}
				}
				takeCursor[e.ChanID] = i + 1
			}
			current = next
		default:
			// EventAck carries no FIFO information of its own.
		}
		perGoroutine[e.Goroutine] = current
		clocks[e.Seq] = current
	}
	return clocks
}
