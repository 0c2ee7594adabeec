// Package rendezvous provides a typed, first-class, reference-shared
// synchronization object that transports values between goroutines,
// together with a Select multiplexer that waits on one of several pending
// channel operations.
//
// Unlike a built-in Go chan, a Chan[T] is never nil and never closed: the
// rendezvous protocol (the mutex/condition-variable state machine in
// channel.go) is hand-rolled on top of sync.Mutex and sync.Cond rather than
// delegated to the runtime's own chan implementation.
//
// # Architecture
//
//   - Channel core: Chan[T] wraps a shared *core[T] guarded by one mutex
//     and three condition variables (send-begin, send-end, recv).
//   - Directional views: SendChan[T] and RecvChan[T] narrow a Chan[T] to
//     one direction without copying the underlying queue.
//   - Select: a builder of send/recv cases, resolved by Wait, WaitTimeout
//     or TryOnce.
//   - Thread / Guard: scoped join of a spawned goroutine.
//
// Senders and receivers are tagged by goroutine id (via
// github.com/petermattis/goid), so the self-send assertion during a
// synchronous handoff can be checked.
package rendezvous
