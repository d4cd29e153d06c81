package subprocess

import (
	"bytes"
	"os"
	"testing"
)

func pattern(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte('a' + i%26)
	}
	return b
}

func TestSpooledBufferInMemory(t *testing.T) {
	b := NewSpooledBuffer(1024, t.TempDir())
	defer b.Close()

	b.Write([]byte("hello "))
	b.Write([]byte("world"))

	if b.Spilled() {
		t.Fatal("expected buffer to stay in memory")
	}
	got, err := b.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if string(got) != "hello world" {
		t.Errorf("got %q, want %q", got, "hello world")
	}
}

func TestSpooledBufferSpillsPastThreshold(t *testing.T) {
	dir := t.TempDir()
	b := NewSpooledBuffer(100, dir)

	want := pattern(1000)
	// Uneven chunks so the spill happens mid-stream.
	for off := 0; off < len(want); off += 37 {
		end := min(off+37, len(want))
		if _, err := b.Write(want[off:end]); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}

	if !b.Spilled() {
		t.Fatal("expected buffer to spill to disk")
	}
	if b.Len() != int64(len(want)) {
		t.Errorf("Len = %d, want %d", b.Len(), len(want))
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("expected 1 spool file, got %d", len(entries))
	}

	got, err := b.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("round trip mismatch: got %d bytes, want %d", len(got), len(want))
	}

	if err := b.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	entries, _ = os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("expected spool file removed, found %d entries", len(entries))
	}
}

func TestSpooledBufferRoundTripAroundThreshold(t *testing.T) {
	const threshold = 512
	for _, n := range []int{0, 1, threshold - 1, threshold, threshold + 1, 4 * threshold} {
		b := NewSpooledBuffer(threshold, t.TempDir())
		want := pattern(n)
		b.Write(want)

		got, err := b.Finalize()
		if err != nil {
			t.Fatalf("n=%d: Finalize: %v", n, err)
		}
		if !bytes.Equal(got, want) {
			t.Errorf("n=%d: got %d bytes back", n, len(got))
		}
		if spilled := b.Spilled(); spilled != (n > threshold) {
			t.Errorf("n=%d: Spilled = %v", n, spilled)
		}
		b.Close()
	}
}

func TestSpooledBufferFinalizeOnce(t *testing.T) {
	b := NewSpooledBuffer(10, t.TempDir())
	defer b.Close()
	b.Write([]byte("x"))

	if _, err := b.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if _, err := b.Finalize(); err == nil {
		t.Error("expected error on second Finalize")
	}
	if _, err := b.Write([]byte("y")); err == nil {
		t.Error("expected error writing after Finalize")
	}
}

func TestSpooledBufferCloseIdempotent(t *testing.T) {
	b := NewSpooledBuffer(1, t.TempDir())
	b.Write([]byte("spill me"))

	if err := b.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := b.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}
