package pitch

import (
	"math"
	"testing"
)

const sampleRate = 48000.0
const resolutionHz = 1000.0 // serato_2a-like
const quarterCycle = 1.0 / (4 * resolutionHz)

// feedConstantRate drives e with crossings spaced to represent forward
// playback at the given pitch for the given duration, returning the
// final estimate.
func feedConstantRate(e *Estimator, pitch float64, duration float64) float64 {
	dt := 1.0 / sampleRate
	// Real (sample-clock) seconds between crossings at this pitch.
	interval := quarterCycle / pitch
	samplesPerCrossing := interval / dt

	acc := 0.0
	for t := 0.0; t < duration; t += dt {
		acc += 1
		if acc >= samplesPerCrossing {
			acc -= samplesPerCrossing
			e.Observe(quarterCycle)
		} else {
			e.Observe(0)
		}
	}
	return e.Current()
}

func TestStepResponseConvergesWithin50ms(t *testing.T) {
	for _, pitch := range []float64{1.0, 0.5, 1.5, 2.0} {
		e := New(sampleRate)
		got := feedConstantRate(e, pitch, 0.050)
		if diff := math.Abs(got - pitch); diff > 0.01*pitch {
			t.Errorf("pitch %v: after 50ms got %v, want within 1%% (diff=%v)", pitch, got, diff)
		}
	}
}

func TestReverseConverges(t *testing.T) {
	e := New(sampleRate)
	dt := 1.0 / sampleRate
	interval := quarterCycle / 1.0
	samplesPerCrossing := interval / dt

	acc := 0.0
	for tt := 0.0; tt < 0.050; tt += dt {
		acc += 1
		if acc >= samplesPerCrossing {
			acc -= samplesPerCrossing
			e.Observe(-quarterCycle)
		} else {
			e.Observe(0)
		}
	}
	if got := e.Current(); math.Abs(got-(-1.0)) > 0.01 {
		t.Errorf("reverse pitch: got %v, want close to -1.0", got)
	}
}

func TestAlternatingSignsMeanNearZero(t *testing.T) {
	e := New(sampleRate)
	dt := 1.0 / sampleRate
	samplesPerCrossing := quarterCycle / dt

	sign := 1.0
	acc := 0.0
	for tt := 0.0; tt < 0.200; tt += dt {
		acc += 1
		if acc >= samplesPerCrossing {
			acc -= samplesPerCrossing
			e.Observe(sign * quarterCycle)
			sign = -sign
		} else {
			e.Observe(0)
		}
	}
	if got := math.Abs(e.Current()); got > 0.05 {
		t.Errorf("alternating-sign input: |current()| = %v, want near 0", got)
	}
}

func TestSilenceStaysFiniteAndZero(t *testing.T) {
	e := New(sampleRate)
	dt := 1.0 / sampleRate
	for tt := 0.0; tt < 1.0; tt += dt {
		e.Observe(0)
	}
	got := e.Current()
	if math.IsNaN(got) || math.IsInf(got, 0) {
		t.Fatalf("Current() = %v, want finite", got)
	}
	if got != 0 {
		t.Errorf("Current() = %v, want 0 for an all-silent input", got)
	}
}

func TestResetClearsHistory(t *testing.T) {
	e := New(sampleRate)
	feedConstantRate(e, 1.0, 0.050)
	if e.Current() == 0 {
		t.Fatal("expected nonzero pitch estimate before Reset")
	}
	e.Reset()
	if got := e.Current(); got != 0 {
		t.Errorf("Current() after Reset = %v, want 0", got)
	}
}
