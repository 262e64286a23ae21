package kv

import (
	"context"
	"testing"
)

func TestBadgerRequiresDir(t *testing.T) {
	if _, err := NewBadger(BadgerOptions{}); err == nil {
		t.Fatal("expected error for on-disk mode without a dir")
	}
}

func TestBadgerReopenKeepsOrder(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := NewBadger(BadgerOptions{Dir: dir})
	if err != nil {
		t.Fatal(err)
	}
	seed := []Entry{
		{Key{"history", "0000000000000001"}, []byte("first")},
		{Key{"history", "0000000000000002"}, []byte("second")},
		{Key{"history", "0000000000000003"}, []byte("third")},
	}
	if err := s.BatchSet(ctx, seed); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s, err = NewBadger(BadgerOptions{Dir: dir})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	var got []string
	for e, err := range s.List(ctx, Key{"history"}) {
		if err != nil {
			t.Fatal(err)
		}
		got = append(got, string(e.Value))
	}
	want := []string{"first", "second", "third"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}
