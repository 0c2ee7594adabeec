package rendezvous

import (
	"fmt"
	"sync"

	"github.com/petermattis/goid"
)

// elem is a buffer slot: the value together with the id of the goroutine
// that deposited it.
type elem[T any] struct {
	sender int64
	value  T
}

// core is the shared rendezvous state behind every Chan[T] handle that
// aliases it. All fields are mutated only while mu is held.
type core[T any] struct {
	mu sync.Mutex

	sendBeginCV *sync.Cond
	sendEndCV   *sync.Cond
	recvCV      *sync.Cond

	buffer   []elem[T]
	capacity int // N; capacity 0 is a synchronous channel
	id       uint64

	sendInProgress bool

	// changed is closed and replaced (under mu) on every transition that
	// could make a previously-blocked Select case ready: after a deposit and
	// after a take (an acknowledgement changes no state). Select snapshots this
	// channel before a scan and blocks on it (via reflect.Select) when
	// the scan finds nothing ready, the same role context.Done() plays
	// for "wait on an arbitrary, runtime-determined condition".
	changed chan struct{}
}

func newCore[T any](capacity int) *core[T] {
	c := &core[T]{
		capacity: capacity,
		id:       newChanID(),
		changed:  make(chan struct{}),
	}
	c.sendBeginCV = sync.NewCond(&c.mu)
	c.sendEndCV = sync.NewCond(&c.mu)
	c.recvCV = sync.NewCond(&c.mu)
	return c
}

// isFull reports whether the buffer holds more than capacity elements.
// Callers must hold mu.
func (c *core[T]) isFull() bool {
	return len(c.buffer) > c.capacity
}

// broadcastChangedLocked wakes every goroutine parked in reflect.Select on
// c.changed. Callers must hold mu.
func (c *core[T]) broadcastChangedLocked() {
	close(c.changed)
	c.changed = make(chan struct{})
}

// changedSnapshot returns the current changed channel, for a Select scan to
// block on until some case on this core becomes ready.
func (c *core[T]) changedSnapshot() <-chan struct{} {
	c.mu.Lock()
	ch := c.changed
	c.mu.Unlock()
	return ch
}

// depositBlocking performs Phase A: it blocks until the buffer is not full
// and no overflow deposit is still unacknowledged, then enqueues (selfID, v).
// sendInProgress is set only if this deposit itself used up the buffer's
// one overflow slot (capacity N holds N+1 elements before Send must wait
// for a receiver) — a deposit that lands within capacity needs no
// acknowledgement, so it leaves sendInProgress clear and never blocks a
// later sender.
func (c *core[T]) depositBlocking(v T, selfID int64) {
	c.mu.Lock()
	for c.isFull() || c.sendInProgress {
		c.sendBeginCV.Wait()
	}
	c.buffer = append(c.buffer, elem[T]{sender: selfID, value: v})
	c.sendInProgress = c.isFull()
	c.broadcastChangedLocked()
	c.mu.Unlock()

	recordEvent(EventDeposit, c.id, selfID)
	c.recvCV.Signal()
}

// tryDeposit is the non-blocking form of depositBlocking: it performs
// Phase A only if it can do so without waiting.
func (c *core[T]) tryDeposit(v T, selfID int64) bool {
	c.mu.Lock()
	if c.isFull() || c.sendInProgress {
		c.mu.Unlock()
		return false
	}
	c.buffer = append(c.buffer, elem[T]{sender: selfID, value: v})
	c.sendInProgress = c.isFull()
	c.broadcastChangedLocked()
	c.mu.Unlock()

	recordEvent(EventDeposit, c.id, selfID)
	c.recvCV.Signal()
	return true
}

// finishSendAck performs Phase B: if this goroutine's own deposit used up
// the overflow slot, it blocks until that deposit has been taken by a
// receiver (sendInProgress is cleared by takeLocked, the only place an
// overflow deposit is resolved, so this also correctly acknowledges a
// deposit originally made through tryDeposit). Otherwise it returns
// immediately: the deposit landed within capacity and needed no handoff.
func (c *core[T]) finishSendAck(selfID int64) {
	c.mu.Lock()
	for c.sendInProgress {
		c.sendEndCV.Wait()
	}
	c.mu.Unlock()

	recordEvent(EventAck, c.id, selfID)
	c.sendBeginCV.Signal()
}

// send is the full two-phase protocol behind Chan[T].Send.
func (c *core[T]) send(v T, selfID int64) {
	c.depositBlocking(v, selfID)
	c.finishSendAck(selfID)
}

// selfSendPanic is raised when a receiver would dequeue its own
// synchronous handoff. This is always a programmer error: it means a
// single goroutine tried to both send and receive the same rendezvous.
type selfSendPanic struct {
	goroutine int64
}

func (p selfSendPanic) Error() string {
	return fmt.Sprintf("rendezvous: goroutine %d received its own value during a synchronous handoff", p.goroutine)
}

// takeLocked removes and returns the front element. Callers must hold mu
// and must have already checked that the buffer is non-empty. ok is false
// iff taking the front element would be a self-send during a synchronous
// handoff, in which case the buffer is left untouched.
//
// Clearing sendInProgress here, rather than in finishSendAck, is what lets
// a deposit made through tryDeposit (which has no Phase B step of its own)
// still unblock later senders once it is taken.
func (c *core[T]) takeLocked(selfID int64) (elem[T], bool) {
	e := c.buffer[0]
	if c.isFull() && e.sender == selfID {
		return elem[T]{}, false
	}
	c.buffer = c.buffer[1:]
	c.sendInProgress = false
	c.broadcastChangedLocked()
	return e, true
}

// recv blocks until a value is available and returns it.
func (c *core[T]) recv(selfID int64) T {
	c.mu.Lock()
	for len(c.buffer) == 0 {
		c.recvCV.Wait()
	}
	e, ok := c.takeLocked(selfID)
	c.mu.Unlock()
	if !ok {
		panic(selfSendPanic{goroutine: selfID})
	}

	recordEvent(EventTake, c.id, selfID)
	c.sendEndCV.Signal()
	return e.value
}

// tryTake is the non-blocking form of recv.
func (c *core[T]) tryTake(selfID int64) (T, bool) {
	c.mu.Lock()
	if len(c.buffer) == 0 {
		c.mu.Unlock()
		var zero T
		return zero, false
	}
	e, ok := c.takeLocked(selfID)
	c.mu.Unlock()
	if !ok {
		panic(selfSendPanic{goroutine: selfID})
	}

	recordEvent(EventTake, c.id, selfID)
	c.sendEndCV.Signal()
	return e.value, true
}

// Chan is a first-class, reference-shared channel handle. Copying a Chan
// copies the handle, not the queue: every copy aliases the same underlying
// core. A Chan is never nil and is never closed.
//
// N is fixed at construction: 0 makes Chan synchronous (every Send
// rendezvous with a Recv); N > 0 makes it asynchronous with an N-element
// buffer.
type Chan[T any] struct {
	core *core[T]
}

// NewChan creates a channel carrying values of type T with the given
// buffer capacity. Capacity 0 yields a synchronous channel.
func NewChan[T any](capacity int) Chan[T] {
	if capacity < 0 {
		panic("rendezvous: capacity must be non-negative")
	}
	return Chan[T]{core: newCore[T](capacity)}
}

// Equal reports whether two handles alias the same underlying channel.
func (c Chan[T]) Equal(other Chan[T]) bool {
	return c.core == other.core
}

// EqualSender reports whether other was narrowed from c.
func (c Chan[T]) EqualSender(other SendChan[T]) bool {
	return c.core == other.core
}

// EqualReceiver reports whether other was narrowed from c.
func (c Chan[T]) EqualReceiver(other RecvChan[T]) bool {
	return c.core == other.core
}

// Send blocks until v has been enqueued and, for a synchronous channel,
// until it has also been consumed by a Recv.
func (c Chan[T]) Send(v T) {
	c.core.send(v, goid.Get())
}

// TrySend attempts to enqueue v without blocking. It reports whether the
// deposit succeeded; unlike Send, it does not wait for a synchronous
// channel's handoff to be acknowledged.
func (c Chan[T]) TrySend(v T) bool {
	return c.core.tryDeposit(v, goid.Get())
}

// Recv blocks until a value is available, removes it and returns it.
func (c Chan[T]) Recv() T {
	return c.core.recv(goid.Get())
}

// RecvInto blocks until a value is available and stores it through out.
func (c Chan[T]) RecvInto(out *T) {
	*out = c.core.recv(goid.Get())
}

// RecvBoxed blocks until a value is available and returns it as a pointer
// to a freshly allocated T.
func (c Chan[T]) RecvBoxed() *T {
	v := c.core.recv(goid.Get())
	return &v
}

// TryRecv attempts to receive a value without blocking.
func (c Chan[T]) TryRecv() (T, bool) {
	return c.core.tryTake(goid.Get())
}

// AsSender narrows c to a send-only handle on the same underlying channel.
func (c Chan[T]) AsSender() SendChan[T] {
	return SendChan[T]{core: c.core}
}

// AsReceiver narrows c to a receive-only handle on the same underlying
// channel.
func (c Chan[T]) AsReceiver() RecvChan[T] {
	return RecvChan[T]{core: c.core}
}
