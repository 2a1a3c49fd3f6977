// Package timecoder demodulates a stereo PCM timecode signal into a
// signed pitch and an absolute position, by tracking zero crossings,
// reconstructing the maximal-length LFSR bitstream recorded on the
// record, and looking the bitstream up in the definition's
// precomputed table.
//
// A Timecoder is owned exclusively by one deck and is driven entirely
// from the realtime audio-capture path; Submit never allocates and
// never blocks.
package timecoder

import (
	"github.com/xwax-go/xwax/pitch"
	"github.com/xwax-go/xwax/timecodedef"
)

const (
	zeroRC         = 0.001 // seconds, DC estimator time constant
	zeroThreshold  = 128.0
	refPeaksAvg    = 48.0
	validThreshold = 24 // valid_counter must exceed this for a position to be trusted
)

// Channel holds the per-channel zero-crossing tracking state for one
// of the two input channels.
type Channel struct {
	Positive             bool
	ZeroFilter           float64
	CrossingsSinceChange uint32
	JustSwapped          bool
}

func (c *Channel) update(raw, alpha float64) bool {
	c.JustSwapped = false
	c.ZeroFilter += alpha * (raw - c.ZeroFilter)

	crossed := false
	if !c.Positive && raw > c.ZeroFilter+zeroThreshold {
		c.Positive = true
		crossed = true
	} else if c.Positive && raw < c.ZeroFilter-zeroThreshold {
		c.Positive = false
		crossed = true
	}

	if crossed {
		c.JustSwapped = true
		c.CrossingsSinceChange = 0
	} else {
		c.CrossingsSinceChange++
	}
	return crossed
}

// Timecoder is the per-deck decoder state.
type Timecoder struct {
	Def        *timecodedef.Def
	SampleRate float64

	Primary   Channel
	Secondary Channel

	refLevel     float64
	refLevelInit bool

	bitstream uint32
	timecode  uint32
	mask      uint32

	ValidCounter         uint32
	samplesSinceTimecode uint64

	Forwards bool

	Pitch *pitch.Estimator

	Monitor *Monitor // optional oscilloscope; nil if not attached
}

// New constructs a Timecoder for def, decoding a stream sampled at
// sampleRate Hz. The definition's lookup table is built eagerly here
// (not RT-safe) so Submit and GetPosition never allocate.
func New(def *timecodedef.Def, sampleRate float64) *Timecoder {
	def.Build()

	var m uint32 = 0xFFFFFFFF
	if def.BitCount < 32 {
		m = (uint32(1) << def.BitCount) - 1
	}

	return &Timecoder{
		Def:        def,
		SampleRate: sampleRate,
		mask:       m,
		Pitch:      pitch.New(sampleRate),
	}
}

// AttachMonitor equips the decoder with an oscilloscope-style decaying
// display of size x size pixels. Not RT-safe; call during setup.
func (t *Timecoder) AttachMonitor(size int) {
	t.Monitor = NewMonitor(size)
}

// channelValues maps the raw (primary, secondary) physical channel
// samples for this definition, honoring SwitchPrimary.
func (t *Timecoder) channelValues(left, right float64) (primaryRaw, secondaryRaw float64) {
	if t.Def.Flags.SwitchPrimary {
		return right, left
	}
	return left, right
}

// Submit processes n interleaved stereo frames of 16-bit PCM. pcm must
// have length >= 2*n. Submit is realtime-safe: no allocation, no
// blocking, no fallible I/O.
func (t *Timecoder) Submit(pcm []int16, n int) {
	alpha := (1.0 / t.SampleRate) / (zeroRC + 1.0/t.SampleRate)
	wantPolarity := !t.Def.Flags.SwitchPolarity

	for i := 0; i < n; i++ {
		left := float64(pcm[2*i])
		right := float64(pcm[2*i+1])
		primaryRaw, secondaryRaw := t.channelValues(left, right)

		primaryCrossed := t.Primary.update(primaryRaw, alpha)
		secondaryCrossed := t.Secondary.update(secondaryRaw, alpha)

		if primaryCrossed {
			t.Forwards = (t.Primary.Positive != t.Secondary.Positive) != t.Def.Flags.SwitchPhase
		}
		if secondaryCrossed {
			t.Forwards = (t.Primary.Positive == t.Secondary.Positive) != t.Def.Flags.SwitchPhase
		}

		quarterCycle := 1.0 / (4 * t.Def.ResolutionHz)
		switch {
		case primaryCrossed || secondaryCrossed:
			if t.Forwards {
				t.Pitch.Observe(quarterCycle)
			} else {
				t.Pitch.Observe(-quarterCycle)
			}
		default:
			t.Pitch.Observe(0)
		}

		t.samplesSinceTimecode++

		if secondaryCrossed && t.Primary.Positive == wantPolarity {
			t.sampleBit(primaryRaw)
		}

		if t.Monitor != nil {
			t.Monitor.Plot(primaryRaw, secondaryRaw)
		}
	}
}

// sampleBit emits one LFSR bit from the current primary-channel peak
// and advances the tracked bitstream/timecode pair.
func (t *Timecoder) sampleBit(primaryRaw float64) {
	m := primaryRaw - t.Primary.ZeroFilter
	if m < 0 {
		m = -m
	}

	if !t.refLevelInit {
		t.refLevel = m
		t.refLevelInit = true
	}

	var bit uint32
	if m > t.refLevel {
		bit = 1
	}

	t.refLevel = (t.refLevel*(refPeaksAvg-1) + m) / refPeaksAvg

	if t.Forwards {
		t.timecode = t.Def.Fwd(t.timecode)
		t.bitstream = (t.bitstream >> 1) | (bit << (t.Def.BitCount - 1))
	} else {
		t.timecode = t.Def.Rev(t.timecode)
		t.bitstream = ((t.bitstream << 1) & t.mask) | bit
	}

	if t.timecode == t.bitstream {
		t.ValidCounter++
	} else {
		t.timecode = t.bitstream
		t.ValidCounter = 0
	}
	t.samplesSinceTimecode = 0
}

// GetPosition reports the decoder's current absolute position on the
// record, and the age (in seconds) of that observation, if enough
// consecutive bits have agreed with the LFSR's own prediction and the
// current bitstream window corresponds to a known position. It
// reports ok=false while the decoder has not yet locked on, or has
// lost lock.
func (t *Timecoder) GetPosition() (index int64, age float64, ok bool) {
	if t.ValidCounter <= validThreshold {
		return 0, 0, false
	}
	pos := t.Def.Lookup(t.bitstream)
	if pos == timecodedef.Unknown {
		return 0, 0, false
	}
	return int64(pos), float64(t.samplesSinceTimecode) / t.SampleRate, true
}

// GetSafe returns the last position, in bits, still considered inside
// the record's safe (trustworthy) region.
func (t *Timecoder) GetSafe() uint32 {
	return t.Def.SafeLength
}

// Resolution returns the definition's bits-per-second rate, letting
// the player convert a bit index into a position in seconds without
// reaching into the definition itself.
func (t *Timecoder) Resolution() float64 {
	return t.Def.ResolutionHz
}

// CurrentPitch returns the current smoothed pitch estimate, 1.0 =
// forward at nominal speed.
func (t *Timecoder) CurrentPitch() float64 {
	return t.Pitch.Current()
}

// Reset returns the decoder to its power-on state. Not RT-safe.
func (t *Timecoder) Reset() {
	t.Primary = Channel{}
	t.Secondary = Channel{}
	t.refLevel = 0
	t.refLevelInit = false
	t.bitstream = 0
	t.timecode = 0
	t.ValidCounter = 0
	t.samplesSinceTimecode = 0
	t.Forwards = false
	t.Pitch.Reset()
}
