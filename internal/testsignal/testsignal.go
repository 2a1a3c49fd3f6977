// Package testsignal synthesizes a canonical timecode waveform for a
// given TimecodeDef, for use by tests and by cmd/gentc. It is the
// "offline generator" explicitly excluded as a product feature by
// spec.md's Non-goals — here it exists purely as test tooling.
package testsignal

import (
	"math"

	"github.com/xwax-go/xwax/timecodedef"
)

const (
	strongAmp = 0.9 * 32767.0
	weakAmp   = 0.3 * 32767.0
)

// Generator synthesizes interleaved 16-bit stereo PCM for a timecode
// definition at a fixed sample rate.
type Generator struct {
	def        *timecodedef.Def
	sampleRate float64
}

// New constructs a Generator for def, sampled at sampleRate Hz.
func New(def *timecodedef.Def, sampleRate float64) *Generator {
	return &Generator{def: def, sampleRate: sampleRate}
}

// cursor tracks an LFSR state incrementally as the synthesized record
// position moves forward or backward, so generating N samples costs
// O(N) rather than O(N * position).
type cursor struct {
	def   *timecodedef.Def
	idx   int64
	state uint32
}

func newCursor(def *timecodedef.Def, start uint32) *cursor {
	c := &cursor{def: def, idx: int64(start), state: def.Seed}
	for i := uint32(0); i < start; i++ {
		c.state = def.Fwd(c.state)
	}
	return c
}

func (c *cursor) seekTo(idx int64) {
	for c.idx < idx {
		c.state = c.def.Fwd(c.state)
		c.idx++
	}
	for c.idx > idx {
		c.state = c.def.Rev(c.state)
		c.idx--
	}
}

// bit returns the bit physically encoded at the cursor's current
// position: the top bit the LFSR generator introduces when advancing
// forward from this state, i.e. parity(state & (taps|1)).
func (c *cursor) bit() uint32 {
	return parity(c.state & (c.def.Taps | 1))
}

func parity(x uint32) uint32 {
	var p uint32
	for x != 0 {
		p ^= x & 1
		x >>= 1
	}
	return p
}

// Synthesize generates durationSeconds worth of stereo PCM representing
// the record moving at the given signed pitch (positive = forward,
// negative = reverse, magnitude = speed relative to nominal) starting
// at startPosition bits into the record.
func (g *Generator) Synthesize(durationSeconds, pitch float64, startPosition uint32) []int16 {
	n := int(durationSeconds * g.sampleRate)
	out := make([]int16, 2*n)
	dt := 1.0 / g.sampleRate

	// On forward motion the secondary channel lags the primary by 90
	// degrees (270 with SwitchPhase), so the primary rises while the
	// secondary is negative.
	secondaryOffset := -math.Pi / 2
	if g.def.Flags.SwitchPhase {
		secondaryOffset = -3 * math.Pi / 2
	}

	cur := newCursor(g.def, startPosition)

	for i := 0; i < n; i++ {
		t := float64(i) * dt
		cyclePos := float64(startPosition) + pitch*g.def.ResolutionHz*t
		idx := int64(math.Floor(cyclePos))
		frac := cyclePos - float64(idx)

		cur.seekTo(idx)
		amp := weakAmp
		if cur.bit() == 1 {
			amp = strongAmp
		}

		angle := 2 * math.Pi * frac
		primaryVal := amp * math.Sin(angle)
		secondaryVal := amp * math.Sin(angle+secondaryOffset)

		left, right := primaryVal, secondaryVal
		if g.def.Flags.SwitchPrimary {
			left, right = right, left
		}

		out[2*i] = int16(clamp16(left))
		out[2*i+1] = int16(clamp16(right))
	}

	return out
}

func clamp16(v float64) float64 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return v
}
