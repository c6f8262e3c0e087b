package server

import (
	"context"
	"testing"
	"time"

	"github.com/dcrodman/boardhost/internal/wire"
)

func TestMailbox_DeliversInEnqueueOrder(t *testing.T) {
	box := NewMailbox()
	box.Put(Delivery{Msg: wire.Player{Seat: 1}})
	box.Put(Delivery{Msg: wire.Error{Text: "first"}})
	box.Put(Delivery{Msg: wire.Error{Text: "second"}, AwaitReply: true})

	if box.Len() != 3 {
		t.Fatalf("Len() want 3, got %d", box.Len())
	}

	d, err := box.Get(context.Background())
	if err != nil {
		t.Fatalf("Get() returned an unexpected error: %s", err)
	}
	if _, ok := d.Msg.(wire.Player); !ok {
		t.Errorf("first delivery want wire.Player, got %T", d.Msg)
	}

	d, _ = box.Get(context.Background())
	if msg, ok := d.Msg.(wire.Error); !ok || msg.Text != "first" {
		t.Errorf("second delivery want error %q, got %v", "first", d.Msg)
	}

	d, _ = box.Get(context.Background())
	if msg, ok := d.Msg.(wire.Error); !ok || msg.Text != "second" {
		t.Errorf("third delivery want error %q, got %v", "second", d.Msg)
	}
	if !d.AwaitReply {
		t.Error("third delivery should have kept its AwaitReply flag")
	}
}

func TestMailbox_PutFrontJumpsTheQueue(t *testing.T) {
	box := NewMailbox()
	box.Put(Delivery{Msg: wire.Error{Text: "queued"}})
	box.PutFront(Delivery{Msg: wire.Error{Text: "requeued"}})

	d, err := box.Get(context.Background())
	if err != nil {
		t.Fatalf("Get() returned an unexpected error: %s", err)
	}
	if msg, ok := d.Msg.(wire.Error); !ok || msg.Text != "requeued" {
		t.Errorf("want the re-enqueued delivery first, got %v", d.Msg)
	}
}

func TestMailbox_GetBlocksUntilPut(t *testing.T) {
	box := NewMailbox()

	got := make(chan Delivery, 1)
	go func() {
		d, err := box.Get(context.Background())
		if err != nil {
			t.Errorf("Get() returned an unexpected error: %s", err)
		}
		got <- d
	}()

	select {
	case d := <-got:
		t.Fatalf("Get() returned %v from an empty mailbox", d.Msg)
	case <-time.After(50 * time.Millisecond):
	}

	box.Put(Delivery{Msg: wire.Player{Seat: 2}})

	select {
	case d := <-got:
		if msg, ok := d.Msg.(wire.Player); !ok || msg.Seat != 2 {
			t.Errorf("want the enqueued delivery, got %v", d.Msg)
		}
	case <-time.After(time.Second):
		t.Fatal("Get() did not return after a delivery was enqueued")
	}
}

func TestMailbox_GetHonorsContext(t *testing.T) {
	box := NewMailbox()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if _, err := box.Get(ctx); err == nil {
		t.Error("Get() should fail when the context expires")
	}
}
