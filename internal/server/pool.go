package server

import (
	"context"
	"math/rand"
	"sync"
)

// SeatPool hands out the fixed set of seat identifiers [1..N] and tracks
// the completion barrier between games. Outside of an acquire or release
// critical section the free seats plus the assigned seats always cover the
// full set exactly once.
type SeatPool struct {
	n int

	mu       sync.Mutex
	rng      *rand.Rand
	free     []int
	released int
	barrier  chan struct{}
	// freed is closed and replaced whenever a seat returns to the pool,
	// waking every blocked Acquire.
	freed chan struct{}
}

// NewSeatPool creates a pool of n seats seeded for the shuffle performed at
// the start of every game. The same seed always yields the same seat
// hand-out order.
func NewSeatPool(n int, seed int64) *SeatPool {
	p := &SeatPool{
		n:       n,
		rng:     rand.New(rand.NewSource(seed)),
		free:    make([]int, 0, n),
		barrier: make(chan struct{}),
		freed:   make(chan struct{}),
	}
	for seat := 1; seat <= n; seat++ {
		p.free = append(p.free, seat)
	}
	return p
}

// Size returns the pool's fixed capacity.
func (p *SeatPool) Size() int { return p.n }

// FreeSeats returns the number of currently unassigned seats.
func (p *SeatPool) FreeSeats() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.free)
}

// TryAcquire removes and returns a seat if one is free. Connection
// handlers use this so a full game answers with a decline instead of
// stalling the connection.
func (p *SeatPool) TryAcquire() (int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pop()
}

// Acquire blocks until a seat is free or the context is cancelled.
func (p *SeatPool) Acquire(ctx context.Context) (int, error) {
	for {
		p.mu.Lock()
		if seat, ok := p.pop(); ok {
			p.mu.Unlock()
			return seat, nil
		}
		freed := p.freed
		p.mu.Unlock()

		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-freed:
		}
	}
}

// Requeue returns a seat to the pool without crediting the barrier. This
// is the disconnect path: the seat's participation in the current game is
// not over, it is merely waiting for a replacement connection.
func (p *SeatPool) Requeue(seat int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.free = append(p.free, seat)
	p.signalFreed()
}

// Release returns a seat to the pool and credits the barrier. Handlers
// call this exactly once per seat when the game's terminal update has been
// delivered.
func (p *SeatPool) Release(seat int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.free = append(p.free, seat)
	p.released++
	if p.released == p.n {
		close(p.barrier)
	}
	p.signalFreed()
}

// AwaitAllReleased blocks until every seat has been released since the
// last Shuffle, gating the next game reset.
func (p *SeatPool) AwaitAllReleased(ctx context.Context) error {
	p.mu.Lock()
	barrier := p.barrier
	p.mu.Unlock()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-barrier:
		return nil
	}
}

// Shuffle rearranges the free seats uniformly at random and arms a fresh
// barrier. The session calls this at every reset so connection arrival
// order never determines perceived player identity.
func (p *SeatPool) Shuffle() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.rng.Shuffle(len(p.free), func(i, j int) {
		p.free[i], p.free[j] = p.free[j], p.free[i]
	})
	p.released = 0
	p.barrier = make(chan struct{})
}

func (p *SeatPool) pop() (int, bool) {
	if len(p.free) == 0 {
		return 0, false
	}
	seat := p.free[0]
	p.free = p.free[1:]
	return seat, true
}

// signalFreed must be called with p.mu held.
func (p *SeatPool) signalFreed() {
	close(p.freed)
	p.freed = make(chan struct{})
}
