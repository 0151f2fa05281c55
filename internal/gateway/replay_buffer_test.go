package gateway

import (
	"strconv"
	"testing"
)

func TestReplayBuffer_Since(t *testing.T) {
	rb := NewReplayBuffer(100)
	for i := int64(1); i <= 10; i++ {
		rb.Push(i, "ACME", []byte(strconv.FormatInt(i, 10)))
	}

	got := rb.Since(7, nil)
	if len(got) != 3 {
		t.Fatalf("Since(7): expected 3, got %d", len(got))
	}
	if string(got[0]) != "8" || string(got[2]) != "10" {
		t.Errorf("unexpected order %q", got)
	}
}

func TestReplayBuffer_Wraparound(t *testing.T) {
	rb := NewReplayBuffer(5)

	// 8 pushes into 5 slots evicts seqs 1-3
	for i := int64(1); i <= 8; i++ {
		rb.Push(i, "ACME", []byte(strconv.FormatInt(i, 10)))
	}
	if rb.Len() != 5 {
		t.Fatalf("Len() = %d, want 5", rb.Len())
	}
	got := rb.Since(0, nil)
	if len(got) != 5 || string(got[0]) != "4" || string(got[4]) != "8" {
		t.Errorf("expected seqs 4..8, got %q", got)
	}
}

func TestReplayBuffer_TickerFilter(t *testing.T) {
	rb := NewReplayBuffer(10)
	rb.Push(1, "A", []byte("a1"))
	rb.Push(2, "B", []byte("b2"))
	rb.Push(3, "A", []byte("a3"))

	got := rb.Since(0, func(ticker string) bool { return ticker == "A" })
	if len(got) != 2 || string(got[1]) != "a3" {
		t.Errorf("unexpected filtered replay %q", got)
	}
}

func TestReplayBuffer_CopiesData(t *testing.T) {
	rb := NewReplayBuffer(2)
	data := []byte("orig")
	rb.Push(1, "A", data)
	data[0] = 'X'
	if got := rb.Since(0, nil); string(got[0]) != "orig" {
		t.Errorf("buffer aliased caller slice: %q", got[0])
	}
}

func TestReplayBuffer_Empty(t *testing.T) {
	if got := NewReplayBuffer(10).Since(0, nil); len(got) != 0 {
		t.Fatalf("empty buffer should replay nothing, got %d", len(got))
	}
}
