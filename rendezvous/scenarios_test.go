package rendezvous

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestScenarioPingPong bounces a counter between two goroutines across one
// synchronous channel, confirming that a capacity-0 Send does not return
// until its value has actually been taken.
func TestScenarioPingPong(t *testing.T) {
	const rounds = 10
	ch := NewChan[int](0)

	pong := Start(func() {
		for i := 0; i < rounds; i++ {
			v := ch.Recv()
			ch.Send(v + 1)
		}
	})
	guard := NewGuard(pong)
	defer guard.Close()

	v := 0
	for i := 0; i < rounds; i++ {
		ch.Send(v)
		v = ch.Recv()
	}
	assert.Equal(t, rounds, v)
}

// TestScenarioAsyncBurst sends a capacity-3 channel's worth of values before
// any receive happens, then drains it, confirming the buffer absorbs a burst
// up to its capacity and preserves FIFO order.
func TestScenarioAsyncBurst(t *testing.T) {
	ch := NewChan[string](3)

	ch.Send("a")
	ch.Send("b")
	ch.Send("c")

	assert.Equal(t, "a", ch.Recv())
	assert.Equal(t, "b", ch.Recv())
	assert.Equal(t, "c", ch.Recv())
}

// TestScenarioPrimeSieve daisy-chains a generator and a filter goroutine per
// prime found so far, reading off the i-th surviving head of the pipeline as
// the i-th prime, the classic concurrent-sieve demonstration.
func TestScenarioPrimeSieve(t *testing.T) {
	expected := []int{
		2, 3, 5, 7, 11, 13, 17, 19, 23, 29,
		31, 37, 41, 43, 47, 53, 59, 61, 67, 71,
		73, 79, 83, 89, 97,
	}

	head := NewChan[int](0)
	Start(func() { sieveGenerate(head.AsSender(), 97) })

	var primes []int
	for i := 0; i < len(expected); i++ {
		prime := head.Recv()
		primes = append(primes, prime)

		next := NewChan[int](0)
		in := head.AsReceiver()
		out := next.AsSender()
		p := prime
		Start(func() { sieveFilter(in, out, p) })
		head = next
	}

	assert.Equal(t, expected, primes)
}

func sieveGenerate(out SendChan[int], limit int) {
	for i := 2; i <= limit; i++ {
		out.Send(i)
	}
}

func sieveFilter(in RecvChan[int], out SendChan[int], prime int) {
	for {
		i := in.Recv()
		if i%prime != 0 {
			out.Send(i)
		}
	}
}

// diningFork models one fork as a goroutine that only ever talks over
// channels: picksup[i] and putsdown[i] are each taken twice per round, once
// by the philosopher to the fork's left and once by the philosopher to its
// right, so a deadlock here is a deadlock in the rendezvous protocol
// itself rather than in some other synchronization primitive.
func diningFork(i int, picksup, putsdown []Chan[int]) {
	picksup[i].Recv()
	putsdown[i].Recv()
	picksup[i].Recv()
	putsdown[i].Recv()
}

// diningPerson picks up its left fork, then its right fork, then puts both
// down in the same order.
func diningPerson(i, n int, picksup, putsdown []Chan[int]) {
	picksup[i].Send(i)
	picksup[(i+1)%n].Send(i)
	putsdown[i].Send(i)
	putsdown[(i+1)%n].Send(i)
}

// diningDifferentPerson picks up its right fork before its left fork: the
// one asymmetry needed so the philosophers don't all wait on a neighbor's
// fork at once.
func diningDifferentPerson(i, n int, picksup, putsdown []Chan[int]) {
	picksup[(i+1)%n].Send(i)
	picksup[i].Send(i)
	putsdown[i].Send(i)
	putsdown[(i+1)%n].Send(i)
}

// TestScenarioDiningPhilosophers has five philosophers pick up and put down
// shared forks entirely through Chan[int] rendezvous (picksup/putsdown per
// fork), with one philosopher reversing its pickup order to break the
// circular wait a symmetric order would deadlock on, then confirms all ten
// goroutines complete within a bounded time.
func TestScenarioDiningPhilosophers(t *testing.T) {
	const n = 5

	picksup := make([]Chan[int], n)
	putsdown := make([]Chan[int], n)
	for i := range picksup {
		picksup[i] = NewChan[int](0)
		putsdown[i] = NewChan[int](0)
	}

	var threads []*Thread
	for i := 0; i < n; i++ {
		i := i
		threads = append(threads, Start(func() { diningFork(i, picksup, putsdown) }))
	}
	for i := 0; i < n; i++ {
		i := i
		if i == 0 {
			threads = append(threads, Start(func() { diningDifferentPerson(i, n, picksup, putsdown) }))
		} else {
			threads = append(threads, Start(func() { diningPerson(i, n, picksup, putsdown) }))
		}
	}
	for _, th := range threads {
		defer NewGuard(th).Close()
	}

	done := make(chan struct{})
	go func() {
		for _, th := range threads {
			th.Join()
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("dining philosophers did not all finish: suspected deadlock")
	}
}

// TestScenarioSelectChoosesReadyCase checks the minimal case: given one
// preloaded channel and one empty channel, a select over both must choose
// the one that is actually ready.
func TestScenarioSelectChoosesReadyCase(t *testing.T) {
	loaded := NewChan[int](1)
	empty := NewChan[int](1)
	loaded.TrySend(123)

	var got int
	s := NewSelect()
	RecvOnly(s, empty.AsReceiver(), &got)
	RecvOnly(s, loaded.AsReceiver(), &got)

	require.True(t, s.WaitTimeout(time.Second))
	assert.Equal(t, 123, got)
}

// TestScenarioSelectDeque runs a three-goroutine pipeline where the middle
// goroutine's Select declares two simultaneously-live cases, {recv(c1),
// recv(c2)}, while only c2 ever has a sender while the select is running.
// It proves a Select never fires a case just because that case was probed
// first: the c1 case must never fire, even though it is examined on every
// scan alongside the c2 case that does.
func TestScenarioSelectDeque(t *testing.T) {
	c1 := NewChan[bool](0)
	c2 := NewChan[bool](0)
	c3 := NewChan[bool](0)

	t1 := Start(func() { c1.Recv() })
	defer NewGuard(t1).Close()

	t2 := Start(func() {
		s := NewSelect()
		RecvFunc(s, c1.AsReceiver(), func(bool) {
			t.Errorf("select fired the c1 case, which had no sender")
		})
		RecvFunc(s, c2.AsReceiver(), func(bool) { c3.Send(true) })
		s.Wait()
		c1.Recv()
	})
	defer NewGuard(t2).Close()

	t3 := Start(func() { c2.Send(true) })
	defer NewGuard(t3).Close()

	done := make(chan struct{})
	go func() {
		c3.Recv()
		c1.Send(true)
		c1.Send(true)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("select deque scenario did not complete: suspected deadlock")
	}
}
