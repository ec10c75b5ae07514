package ring

import (
	"bytes"
	"math/rand"
	"testing"
)

func TestWriteWithinCapacity(t *testing.T) {
	b := New(8)
	b.Write([]byte("abc"))
	b.Write([]byte("de"))
	if got := string(b.ToArray()); got != "abcde" {
		t.Fatalf("got %q, want %q", got, "abcde")
	}
	if b.Length() != 5 {
		t.Fatalf("length = %d, want 5", b.Length())
	}
}

func TestWriteOverflowWraps(t *testing.T) {
	b := New(4)
	b.Write([]byte("abcd"))
	b.Write([]byte("ef")) // overflow by 2: drop "ab"
	if got := string(b.ToArray()); got != "cdef" {
		t.Fatalf("got %q, want %q", got, "cdef")
	}
	if b.Length() != 4 {
		t.Fatalf("length = %d, want 4", b.Length())
	}
}

func TestWriteLargerThanCapacity(t *testing.T) {
	b := New(4)
	b.Write([]byte("0123456789"))
	if got := string(b.ToArray()); got != "6789" {
		t.Fatalf("got %q, want %q", got, "6789")
	}
}

func TestClear(t *testing.T) {
	b := New(4)
	b.Write([]byte("ab"))
	b.Clear()
	if b.Length() != 0 {
		t.Fatalf("length after clear = %d, want 0", b.Length())
	}
	if got := string(b.ToArray()); got != "" {
		t.Fatalf("got %q, want empty", got)
	}
}

// TestTailInvariant is the §8 "ring buffer tail" property: after a
// sequence of writes totaling T bytes into a buffer of capacity C,
// ToArray() equals the last min(T, C) bytes of the concatenation.
func TestTailInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for trial := 0; trial < 200; trial++ {
		cap := 1 + rng.Intn(64)
		b := New(cap)
		var all []byte
		writes := 1 + rng.Intn(20)
		for i := 0; i < writes; i++ {
			chunkLen := rng.Intn(40)
			chunk := make([]byte, chunkLen)
			rng.Read(chunk)
			b.Write(chunk)
			all = append(all, chunk...)
		}
		want := all
		if len(want) > cap {
			want = want[len(want)-cap:]
		}
		got := b.ToArray()
		if !bytes.Equal(got, want) {
			t.Fatalf("trial %d: cap=%d got %q want %q", trial, cap, got, want)
		}
	}
}

func TestWriteEmptyIsNoop(t *testing.T) {
	b := New(4)
	b.Write([]byte("ab"))
	b.Write(nil)
	if got := string(b.ToArray()); got != "ab" {
		t.Fatalf("got %q, want %q", got, "ab")
	}
}
