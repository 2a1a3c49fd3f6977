// Package timecodedef holds the immutable description of a timecode
// record: its LFSR parameters and the lookup table that maps a decoded
// bitstream window back to an absolute position on the record.
package timecodedef

import (
	"math/bits"
	"sync"
	"sync/atomic"
)

// Flags carries the small per-record variations in channel/phase wiring
// that some vendors use.
type Flags struct {
	SwitchPrimary  bool // primary/secondary channel roles are swapped
	SwitchPolarity bool // bit-sample polarity is inverted
	SwitchPhase    bool // channels are 270 degrees apart instead of 90
}

// Def is an immutable timecode definition. The zero value is not
// useful; construct with New. Def is safe for concurrent use: the
// lookup table is built at most once, lazily, behind a sync.Once, and
// is never mutated afterwards.
type Def struct {
	Name         string
	ResolutionHz float64
	BitCount     uint // <= 32
	Seed         uint32
	Taps         uint32
	Length       uint32 // number of distinct bit positions on the record
	SafeLength   uint32 // last safe position; positions > this are in the unsafe run-out zone
	Flags        Flags

	mask uint32

	once   sync.Once
	built  atomic.Bool
	lookup []int32 // index: bitstream window, value: position or -1
}

// Unknown is returned by Lookup when the bitstream window does not
// correspond to any position the generator produced (corrupt or
// transient bits).
const Unknown int32 = -1

// New constructs a Def and precomputes its bit mask. The lookup table
// itself is built lazily on first use via Lookup or Build.
func New(name string, resolutionHz float64, bitCount uint, seed, taps, length, safeLength uint32, flags Flags) *Def {
	return &Def{
		Name:         name,
		ResolutionHz: resolutionHz,
		BitCount:     bitCount,
		Seed:         seed,
		Taps:         taps,
		Length:       length,
		SafeLength:   safeLength,
		Flags:        flags,
		mask:         mask(bitCount),
	}
}

func mask(bitCount uint) uint32 {
	if bitCount >= 32 {
		return 0xFFFFFFFF
	}
	return (uint32(1) << bitCount) - 1
}

func parity(x uint32) uint32 {
	return uint32(bits.OnesCount32(x) & 1)
}

// Fwd advances the LFSR by one step in the forward (record-playing-
// forwards) direction.
func (d *Def) Fwd(x uint32) uint32 {
	top := parity(x & (d.Taps | 1))
	return (x >> 1) | (top << (d.BitCount - 1))
}

// Rev advances the LFSR by one step in the reverse direction. Rev is
// the exact inverse of Fwd: Rev(Fwd(x)) == x and Fwd(Rev(x)) == x for
// every x in [0, 2^BitCount).
func (d *Def) Rev(x uint32) uint32 {
	bottom := parity(x & ((d.Taps >> 1) | (1 << (d.BitCount - 1))))
	return ((x << 1) & d.mask) | bottom
}

// Build forces construction of the lookup table if it has not already
// been built. Safe to call from multiple goroutines; only the first
// caller does the work. Not RT-safe (allocates) — call during setup,
// never from the audio callback.
func (d *Def) Build() {
	d.once.Do(d.build)
}

func (d *Def) build() {
	size := uint32(1) << d.BitCount
	lut := make([]int32, size)
	for i := range lut {
		lut[i] = Unknown
	}

	x := d.Seed & d.mask
	for n := uint32(0); n < d.Length; n++ {
		if lut[x] != Unknown {
			panic("timecodedef: LFSR generator revisited a state before covering Length positions")
		}
		lut[x] = int32(n)
		x = d.Fwd(x)
	}

	d.lookup = lut
	d.built.Store(true)
}

// Lookup returns the position index for a given bitstream window, or
// Unknown if the window was never produced by the generator. Lookup
// triggers a lazy Build on first call; callers on the realtime path
// must call Build explicitly ahead of time so Lookup never allocates.
func (d *Def) Lookup(bitstream uint32) int32 {
	d.Build()
	return d.lookup[bitstream&d.mask]
}

// Built reports whether the lookup table has already been constructed,
// without triggering the build itself.
func (d *Def) Built() bool {
	return d.built.Load()
}
