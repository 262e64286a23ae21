package buffer

import (
	"errors"
	"io"
	"testing"
	"time"
)

func drain[T any](t *testing.T, r *Ring[T]) []T {
	t.Helper()
	var out []T
	for {
		v, err := r.Next()
		if errors.Is(err, ErrDone) {
			return out
		}
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		out = append(out, v)
	}
}

func TestRingFIFO(t *testing.T) {
	r := NewRing[int](4)
	for i := 1; i <= 3; i++ {
		if err := r.Add(i); err != nil {
			t.Fatal(err)
		}
	}
	r.CloseWrite()

	got := drain(t, r)
	if len(got) != 3 || got[0] != 1 || got[1] != 2 || got[2] != 3 {
		t.Errorf("got=%v", got)
	}
}

func TestRingDropsOldest(t *testing.T) {
	r := NewRing[int](3)
	for i := 0; i < 10; i++ {
		r.Add(i)
	}
	r.CloseWrite()

	got := drain(t, r)
	if len(got) != 3 || got[0] != 7 || got[1] != 8 || got[2] != 9 {
		t.Errorf("got=%v, want [7 8 9]", got)
	}
	if r.Dropped() != 7 {
		t.Errorf("dropped=%d, want 7", r.Dropped())
	}
}

func TestRingNextBlocksUntilAdd(t *testing.T) {
	r := NewRing[string](1)
	done := make(chan string, 1)
	go func() {
		v, err := r.Next()
		if err != nil {
			done <- err.Error()
			return
		}
		done <- v
	}()

	time.Sleep(10 * time.Millisecond)
	r.Add("hello")

	select {
	case v := <-done:
		if v != "hello" {
			t.Errorf("got %q", v)
		}
	case <-time.After(time.Second):
		t.Fatal("Next did not unblock")
	}
}

func TestRingFlush(t *testing.T) {
	r := NewRing[int](8)
	for i := 0; i < 5; i++ {
		r.Add(i)
	}
	r.Flush()
	if r.Len() != 0 {
		t.Errorf("len=%d after flush", r.Len())
	}

	// Still usable after flush.
	r.Add(42)
	v, err := r.Next()
	if err != nil || v != 42 {
		t.Errorf("got %d, %v", v, err)
	}
}

func TestRingCloseWithErrorUnblocks(t *testing.T) {
	r := NewRing[int](1)
	errc := make(chan error, 1)
	go func() {
		_, err := r.Next()
		errc <- err
	}()

	time.Sleep(10 * time.Millisecond)
	r.CloseWithError(io.ErrUnexpectedEOF)

	select {
	case err := <-errc:
		if !errors.Is(err, io.ErrUnexpectedEOF) {
			t.Errorf("err=%v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Next did not unblock on close")
	}

	if err := r.Add(1); err == nil {
		t.Error("Add after close should fail")
	}
}

func TestRingCloseWriteIdempotent(t *testing.T) {
	r := NewRing[int](1)
	if err := r.CloseWrite(); err != nil {
		t.Fatal(err)
	}
	if err := r.CloseWrite(); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Next(); !errors.Is(err, ErrDone) {
		t.Errorf("err=%v, want ErrDone", err)
	}
}
