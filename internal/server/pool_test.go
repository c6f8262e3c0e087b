package server

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestSeatPool_Conservation(t *testing.T) {
	pool := NewSeatPool(4, 1)

	assigned := make(map[int]bool)
	for i := 0; i < 3; i++ {
		seat, ok := pool.TryAcquire()
		if !ok {
			t.Fatalf("TryAcquire() %d unexpectedly failed", i)
		}
		if assigned[seat] {
			t.Fatalf("seat %d handed out twice", seat)
		}
		assigned[seat] = true

		if got := pool.FreeSeats() + len(assigned); got != 4 {
			t.Fatalf("free + assigned want 4, got %d", got)
		}
	}

	for seat := range assigned {
		pool.Requeue(seat)
	}
	if pool.FreeSeats() != 4 {
		t.Errorf("FreeSeats() after requeueing everything want 4, got %d", pool.FreeSeats())
	}
}

func TestSeatPool_TryAcquireExhaustion(t *testing.T) {
	pool := NewSeatPool(2, 1)

	if _, ok := pool.TryAcquire(); !ok {
		t.Fatal("first TryAcquire() unexpectedly failed")
	}
	if _, ok := pool.TryAcquire(); !ok {
		t.Fatal("second TryAcquire() unexpectedly failed")
	}
	if seat, ok := pool.TryAcquire(); ok {
		t.Fatalf("TryAcquire() on an empty pool should fail, got seat %d", seat)
	}
}

func TestSeatPool_AcquireBlocksUntilSeatFreed(t *testing.T) {
	pool := NewSeatPool(1, 1)

	seat, ok := pool.TryAcquire()
	if !ok {
		t.Fatal("TryAcquire() unexpectedly failed")
	}

	acquired := make(chan int)
	go func() {
		got, err := pool.Acquire(context.Background())
		if err != nil {
			t.Errorf("Acquire() returned an unexpected error: %s", err)
		}
		acquired <- got
	}()

	select {
	case got := <-acquired:
		t.Fatalf("Acquire() returned seat %d before any seat was freed", got)
	case <-time.After(50 * time.Millisecond):
	}

	pool.Requeue(seat)

	select {
	case got := <-acquired:
		if got != seat {
			t.Errorf("Acquire() want seat %d, got %d", seat, got)
		}
	case <-time.After(time.Second):
		t.Fatal("Acquire() did not return after the seat was freed")
	}
}

func TestSeatPool_AcquireHonorsContext(t *testing.T) {
	pool := NewSeatPool(1, 1)
	if _, ok := pool.TryAcquire(); !ok {
		t.Fatal("TryAcquire() unexpectedly failed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if _, err := pool.Acquire(ctx); err == nil {
		t.Error("Acquire() should fail when the context expires")
	}
}

func TestSeatPool_BarrierWaitsForEveryRelease(t *testing.T) {
	pool := NewSeatPool(2, 1)
	pool.Shuffle()

	first, _ := pool.TryAcquire()
	second, _ := pool.TryAcquire()

	released := make(chan error, 1)
	go func() {
		released <- pool.AwaitAllReleased(context.Background())
	}()

	pool.Release(first)
	select {
	case <-released:
		t.Fatal("AwaitAllReleased() returned with a seat still assigned")
	case <-time.After(50 * time.Millisecond):
	}

	pool.Release(second)
	select {
	case err := <-released:
		if err != nil {
			t.Errorf("AwaitAllReleased() returned an unexpected error: %s", err)
		}
	case <-time.After(time.Second):
		t.Fatal("AwaitAllReleased() did not return after every seat was released")
	}
}

func TestSeatPool_RequeueDoesNotCreditBarrier(t *testing.T) {
	pool := NewSeatPool(1, 1)
	pool.Shuffle()

	seat, _ := pool.TryAcquire()
	pool.Requeue(seat)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := pool.AwaitAllReleased(ctx); err == nil {
		t.Error("AwaitAllReleased() should not return after a requeue")
	}
}

func TestSeatPool_ShuffleIsDeterministicForASeed(t *testing.T) {
	order := func(seed int64) []int {
		pool := NewSeatPool(5, seed)
		pool.Shuffle()
		var seats []int
		for {
			seat, ok := pool.TryAcquire()
			if !ok {
				return seats
			}
			seats = append(seats, seat)
		}
	}

	if diff := cmp.Diff(order(42), order(42)); diff != "" {
		t.Errorf("equal seeds should yield equal seat orders; diff:\n%s", diff)
	}
}
