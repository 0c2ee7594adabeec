package rendezvous

import "github.com/petermattis/goid"

// SendChan is a Chan narrowed to its send direction. It aliases the same
// underlying core as the Chan it was built from and imposes no runtime
// overhead over Chan itself.
type SendChan[T any] struct {
	core *core[T]
}

// Send blocks until v has been enqueued and, for a synchronous channel,
// consumed by a Recv.
func (c SendChan[T]) Send(v T) {
	c.core.send(v, goid.Get())
}

// TrySend attempts to enqueue v without blocking.
func (c SendChan[T]) TrySend(v T) bool {
	return c.core.tryDeposit(v, goid.Get())
}

// Equal reports whether other narrows the same underlying channel.
func (c SendChan[T]) Equal(other SendChan[T]) bool {
	return c.core == other.core
}

// EqualChan reports whether c was narrowed from other.
func (c SendChan[T]) EqualChan(other Chan[T]) bool {
	return c.core == other.core
}

// RecvChan is a Chan narrowed to its receive direction.
type RecvChan[T any] struct {
	core *core[T]
}

// Recv blocks until a value is available, removes it and returns it.
func (c RecvChan[T]) Recv() T {
	return c.core.recv(goid.Get())
}

// RecvInto blocks until a value is available and stores it through out.
func (c RecvChan[T]) RecvInto(out *T) {
	*out = c.core.recv(goid.Get())
}

// RecvBoxed blocks until a value is available and returns it as a pointer
// to a freshly allocated T.
func (c RecvChan[T]) RecvBoxed() *T {
	v := c.core.recv(goid.Get())
	return &v
}

// TryRecv attempts to receive a value without blocking.
func (c RecvChan[T]) TryRecv() (T, bool) {
	return c.core.tryTake(goid.Get())
}

// Equal reports whether other narrows the same underlying channel.
func (c RecvChan[T]) Equal(other RecvChan[T]) bool {
	return c.core == other.core
}

// EqualChan reports whether c was narrowed from other.
func (c RecvChan[T]) EqualChan(other Chan[T]) bool {
	return c.core == other.core
}
