// Package pitch implements the phase-locked pitch estimator described
// in xwax-go's timecode decoder: it fuses the per-sample displacement
// observations produced while tracking zero crossings into a smooth,
// low-latency estimate of playback rate.
package pitch

import "math"

// signalRC is the time constant of the smoothing applied to each
// instantaneous per-crossing rate measurement. Chosen so a step change
// in true rate settles to within 1% inside 50ms (settling time for an
// exponential decay to 1% is ~4.6*signalRC, about 46ms).
const signalRC = 0.010 // seconds

// Estimator is a first-order tracker with a single smoothing gain
// (signalRC) applied to per-crossing rate measurements: Observe is called
// once per input sample with the signed displacement since the
// previous sample (zero when the sample was not a zero crossing), and
// Current returns the smoothed rate estimate, 1.0 meaning forward
// playback at the nominal recorded speed.
//
// Estimator holds no indirect state and does not allocate; Observe and
// Current are safe to call from the realtime audio path.
type Estimator struct {
	dt float64 // seconds per input sample

	samplesSinceCrossing uint64
	rate                 float64
}

// New constructs an Estimator for a stream sampled at sampleRate Hz.
func New(sampleRate float64) *Estimator {
	return &Estimator{dt: 1.0 / sampleRate}
}

// Reset returns the estimator to its power-on state (zero rate, no
// history). Not RT-safe to call concurrently with Observe/Current on
// another goroutine — callers serialize through the same lock the
// decoder itself uses.
func (e *Estimator) Reset() {
	e.samplesSinceCrossing = 0
	e.rate = 0
}

// Observe consumes one sample's worth of displacement. dx is zero on
// samples that are not a zero crossing; on a crossing it is
// ±1/(4*resolution_hz) seconds, signed by direction of travel.
func (e *Estimator) Observe(dx float64) {
	// Count this sample too, so on a crossing the count spans the whole
	// interval since the previous crossing.
	e.samplesSinceCrossing++
	if dx == 0 {
		return
	}

	elapsed := float64(e.samplesSinceCrossing) * e.dt
	e.samplesSinceCrossing = 0

	if elapsed <= 0 {
		// Zero-length interval; nothing to measure. The count above
		// includes the current sample, so this is only a guard.
		return
	}

	sign := 1.0
	if dx < 0 {
		sign = -1.0
	}
	instantaneous := sign * math.Abs(dx) / elapsed

	if !isFinite(instantaneous) {
		return
	}

	// Exponential smoothing toward the new instantaneous measurement,
	// with a per-call weight derived from the elapsed real time since
	// the previous measurement (so a long gap between crossings, e.g.
	// from a slow-moving record, doesn't over-weight a single sample).
	weight := elapsed / (signalRC + elapsed)
	e.rate += weight * (instantaneous - e.rate)

	if !isFinite(e.rate) {
		e.rate = 0
	}
}

// Current returns the current smoothed rate estimate.
func (e *Estimator) Current() float64 {
	return e.rate
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
