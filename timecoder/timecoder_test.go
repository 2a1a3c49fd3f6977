package timecoder

import (
	"math"
	"testing"

	"github.com/xwax-go/xwax/internal/testsignal"
	"github.com/xwax-go/xwax/timecodedef"
)

const testSampleRate = 48000.0

// TestSilentInput covers §8 scenario 1: a second of zero-valued PCM
// should never lock on, and the pitch estimate should settle at 0.
func TestSilentInput(t *testing.T) {
	tc := New(timecodedef.Serato2A, testSampleRate)
	pcm := make([]int16, 2*int(testSampleRate)) // 1 second, silence

	tc.Submit(pcm, len(pcm)/2)

	if _, _, ok := tc.GetPosition(); ok {
		t.Error("expected GetPosition to report no lock for silence")
	}
	if got := tc.CurrentPitch(); got != 0 {
		t.Errorf("CurrentPitch() = %v, want 0 after silence", got)
	}
}

// TestConstantForwardNominalSpeed covers §8 scenario 2.
func TestConstantForwardNominalSpeed(t *testing.T) {
	def := timecodedef.Serato2A
	gen := testsignal.New(def, testSampleRate)
	pcm := gen.Synthesize(2.0, 1.0, 0)

	tc := New(def, testSampleRate)
	n := len(pcm) / 2
	tc.Submit(pcm, n)

	if tc.ValidCounter <= 24 {
		t.Errorf("ValidCounter = %d, want > 24 after 2s of clean nominal-speed signal", tc.ValidCounter)
	}

	idx, _, ok := tc.GetPosition()
	if !ok {
		t.Fatal("expected a locked position after 2s of clean signal")
	}
	// Position should have advanced roughly 2000 bits (1000 bits/s for 2s),
	// generously bounded given filter settling time.
	if idx < 1000 || idx > 2200 {
		t.Errorf("position = %d, want roughly 2000 (started at 0, 2s at nominal speed)", idx)
	}

	if got := tc.CurrentPitch(); math.Abs(got-1.0) > 0.05 {
		t.Errorf("CurrentPitch() = %v, want close to 1.0", got)
	}
	if !tc.Forwards {
		t.Error("expected Forwards == true for forward playback")
	}
}

// TestReversePlay covers §8 scenario 3.
func TestReversePlay(t *testing.T) {
	def := timecodedef.Serato2A
	gen := testsignal.New(def, testSampleRate)
	// Start well into the record so reverse playback has room to move.
	pcm := gen.Synthesize(2.0, -1.0, 100000)

	tc := New(def, testSampleRate)
	n := len(pcm) / 2
	tc.Submit(pcm, n)

	if tc.ValidCounter <= 24 {
		t.Fatalf("ValidCounter = %d, want > 24", tc.ValidCounter)
	}
	if tc.Forwards {
		t.Error("expected Forwards == false for reverse playback")
	}

	idx, _, ok := tc.GetPosition()
	if !ok {
		t.Fatal("expected a locked position")
	}
	if idx >= 100000 {
		t.Errorf("position = %d, want less than start position 100000 after reverse playback", idx)
	}

	if got := tc.CurrentPitch(); math.Abs(got-(-1.0)) > 0.05 {
		t.Errorf("CurrentPitch() = %v, want close to -1.0", got)
	}
}

// TestOutOfSafePosition covers §8 scenario 5's decoder half: decoding
// still locks on beyond the safe boundary, leaving the disengage
// decision to the player (§4.3 step 2).
func TestOutOfSafePosition(t *testing.T) {
	def := timecodedef.Serato2A
	gen := testsignal.New(def, testSampleRate)
	start := def.SafeLength + 1000
	pcm := gen.Synthesize(1.0, 1.0, start)

	tc := New(def, testSampleRate)
	tc.Submit(pcm, len(pcm)/2)

	idx, _, ok := tc.GetPosition()
	if !ok {
		t.Fatal("expected a locked position")
	}
	if uint32(idx) <= tc.GetSafe() {
		t.Errorf("expected position %d beyond safe boundary %d", idx, tc.GetSafe())
	}
}

func TestResetClearsLock(t *testing.T) {
	def := timecodedef.Serato2A
	gen := testsignal.New(def, testSampleRate)
	pcm := gen.Synthesize(1.0, 1.0, 0)

	tc := New(def, testSampleRate)
	tc.Submit(pcm, len(pcm)/2)
	if _, _, ok := tc.GetPosition(); !ok {
		t.Fatal("expected a lock before Reset")
	}

	tc.Reset()
	if _, _, ok := tc.GetPosition(); ok {
		t.Error("expected no lock immediately after Reset")
	}
	if tc.CurrentPitch() != 0 {
		t.Error("expected pitch 0 after Reset")
	}
}
