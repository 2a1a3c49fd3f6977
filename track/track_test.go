package track

import (
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"pgregory.net/rapid"
)

func writeFrames(t *Track, n int) {
	written := 0
	for written < n {
		dst, avail := t.AccessWrite()
		if avail > n-written {
			avail = n - written
		}
		for i := 0; i < avail; i++ {
			dst[2*i] = int16(written + i)
			dst[2*i+1] = int16(-(written + i))
		}
		t.Commit(avail)
		written += avail
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	tr := New(44100, "a.wav", uuid.New())
	writeFrames(tr, 5000)

	if tr.Length() != 5000 {
		t.Fatalf("Length() = %d, want 5000", tr.Length())
	}
	for _, i := range []int64{0, 1, 2499, 4999} {
		s := tr.GetSample(i)
		if s[0] != int16(i) || s[1] != int16(-i) {
			t.Errorf("GetSample(%d) = %v, want {%d,%d}", i, s, int16(i), int16(-i))
		}
	}
}

func TestOutOfRangeReadsAreSilent(t *testing.T) {
	tr := New(44100, "a.wav", uuid.New())
	writeFrames(tr, 100)

	if s := tr.GetSample(100); s != ([2]int16{}) {
		t.Errorf("GetSample(100) = %v, want silence", s)
	}
	if s := tr.GetSample(-1); s != ([2]int16{}) {
		t.Errorf("GetSample(-1) = %v, want silence", s)
	}
}

func TestCrossesBlockBoundary(t *testing.T) {
	tr := New(44100, "a.wav", uuid.New())
	writeFrames(tr, blockFrames+10)

	if tr.Length() != blockFrames+10 {
		t.Fatalf("Length() = %d, want %d", tr.Length(), blockFrames+10)
	}
	idx := int64(blockFrames + 5)
	s := tr.GetSample(idx)
	if s[0] != int16(idx) { // writeFrames stores the index wrapped to int16
		t.Errorf("GetSample across block boundary = %v, want first=%d", s, blockFrames+5)
	}
}

func TestMetersCoverFullSignal(t *testing.T) {
	tr := New(44100, "a.wav", uuid.New())
	n := 10 * PPMResolution
	written := 0
	for written < n {
		dst, avail := tr.AccessWrite()
		if avail > n-written {
			avail = n - written
		}
		for i := 0; i < avail; i++ {
			dst[2*i] = 1000
			dst[2*i+1] = -1000
		}
		tr.Commit(avail)
		written += avail
	}

	if got := tr.GetPPM(0); got == 0 {
		t.Error("expected nonzero PPM meter for a loud signal")
	}
}

func TestEmptyTrackIsEmpty(t *testing.T) {
	if Empty.Length() != 0 {
		t.Fatalf("Empty.Length() = %d, want 0", Empty.Length())
	}
	if Empty.Importing() {
		t.Fatal("Empty track should never be marked importing")
	}
	if s := Empty.GetSample(0); s != ([2]int16{}) {
		t.Errorf("Empty.GetSample(0) = %v, want silence", s)
	}
}

func TestRefcountLifecycle(t *testing.T) {
	tr := New(44100, "a.wav", uuid.New())
	tr.Acquire() // refs = 2

	if tr.Release() { // refs = 1
		t.Fatal("Release should not report drop-to-zero with refs remaining")
	}
	if tr.Release() { // refs = 0, but still importing
		t.Fatal("Release should not report drop-to-zero while still importing")
	}

	tr2 := New(44100, "b.wav", uuid.New())
	tr2.SetImportDone()
	if !tr2.Release() {
		t.Fatal("Release should report drop-to-zero once refs hit 0 and import is done")
	}
}

// TestLengthMonotonic is the §8 property: track length never decreases
// across any number of commits, regardless of commit batch sizes.
func TestLengthMonotonic(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		tr := New(44100, "p.wav", uuid.New())
		sizes := rapid.SliceOfN(rapid.IntRange(0, 5000), 0, 40).Draw(rt, "commits")

		var last int64
		for _, n := range sizes {
			writeFrames(tr, n)
			cur := tr.Length()
			if cur < last {
				rt.Fatalf("Length() went from %d to %d", last, cur)
			}
			last = cur
		}
	})
}

func TestConcurrentReadDuringWrite(t *testing.T) {
	tr := New(44100, "a.wav", uuid.New())
	done := make(chan struct{})

	go func() {
		defer close(done)
		writeFrames(tr, 3*blockFrames)
	}()

	for i := 0; i < 1000; i++ {
		l := tr.Length()
		if l > 0 {
			idx := int64(rand.Intn(int(l)))
			_ = tr.GetSample(idx)
			_ = tr.GetPPM(idx)
			_ = tr.GetOverview(idx)
		}
	}
	<-done
}
