// Package player turns a Track plus a pitch/position source into PCM:
// it is the resampler at the center of every deck, and the only place
// where the timecode control loop, manual pitch bend, and plain
// needle-drop control converge on one output stream.
//
// Collect is realtime-safe: it takes only the player's own spinlock,
// never allocates, and never calls into the track's writer path.
package player

import (
	"math"

	clone "github.com/huandu/go-clone/generic"

	"github.com/xwax-go/xwax/rt"
	"github.com/xwax-go/xwax/track"
)

const (
	// syncTime is the time constant the sync loop is tuned to converge
	// within two of, per the §8 sync-convergence property.
	syncTime = 0.5 // seconds

	// syncRC is the time constant with which sync_pitch relaxes back
	// towards 1.0 while no timecode target is available.
	syncRC = 0.05 // seconds

	// syncPitchThreshold is the minimum magnitude of the timecode pitch
	// estimate below which the sync loop leaves sync_pitch alone rather
	// than divide by a near-zero rate.
	syncPitchThreshold = 0.05

	// skipThreshold is how far position and target may diverge before
	// the player gives up converging gradually and jumps straight to
	// the target (a needle drop or a timecode signal dropout/recovery).
	skipThreshold = 1.0 / 8.0 // seconds

	// volumeConst is the full-scale gain applied to a track at nominal
	// pitch magnitude (1.0); audio fades out as pitch approaches zero,
	// matching a real turntable's behaviour at a stopped platter.
	volumeConst = 7.0 / 8.0
)

// ExternalPitch is an auxiliary, non-audio pitch source (for example
// the Bluetooth IMU device sketched in the Open Questions): when
// attached, it takes priority over the value derived from the
// timecode signal for the current Collect call.
type ExternalPitch interface {
	// Pitch reports the current external pitch estimate. ok is false
	// when the source has no current reading.
	Pitch() (value float64, ok bool)
}

// TimecodeSource is the subset of *timecoder.Timecoder the player
// needs, kept as an interface so tests can supply a fake.
type TimecodeSource interface {
	GetPosition() (index int64, age float64, ok bool)
	GetSafe() uint32
	CurrentPitch() float64
	Resolution() float64
}

// Player holds one deck's playback state: which track is loaded,
// where in it playback currently sits, and the two pitch inputs
// (timecode-derived and manual/sync) that combine into the resampler
// step each Collect call.
type Player struct {
	mu rt.Spinlock

	outputRate float64

	track *track.Track

	position       float64
	targetPosition float64
	targetValid    bool
	offset         float64

	pitch       float64
	syncPitch   float64
	lastDiff    float64
	recalibrate bool

	timecodeControl bool
	timecode        TimecodeSource
	externalPitch   ExternalPitch

	volume      float64
	ditherState uint32

	punch       float64
	punchActive bool
}

// New returns a Player with no track loaded, driving output at
// outputRate Hz.
func New(outputRate float64) *Player {
	return &Player{
		outputRate:  outputRate,
		track:       track.Empty,
		ditherState: 0x9e3779b9, // any nonzero seed
	}
}

// AttachTimecoder wires a timecode source into the player. It does not
// enable timecode control; ToggleTimecodeControl does that. Not
// realtime-safe; call during deck setup.
func (p *Player) AttachTimecoder(tc TimecodeSource) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.timecode = tc
}

// AttachExternalPitch wires an auxiliary pitch source that overrides
// the timecode-derived pitch whenever it has a current reading.
func (p *Player) AttachExternalPitch(ep ExternalPitch) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.externalPitch = ep
}

// Load replaces the loaded track. The caller retains whatever
// reference it held; Load takes its own via Acquire.
func (p *Player) Load(tr *track.Track) {
	p.mu.Lock()
	defer p.mu.Unlock()
	old := p.track
	p.track = tr.Acquire()
	p.position = 0
	p.offset = 0
	p.targetValid = false
	old.Release()
}

// SeekTo moves playback to position seconds into the track, leaving
// pitch and timecode control untouched. Used by cue-point recall and
// manual needle drops.
func (p *Player) SeekTo(position float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.offset = 0
	p.position = position
}

// Recue resets the elapsed-time reference to the current position,
// without moving position itself: the moment a DJ needle-drops the
// vinyl back to its physical start groove, the software only needs to
// forget how much time has elapsed since the last cue, not where the
// decoder currently reads from.
func (p *Player) Recue() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.offset = p.position
}

// ToggleTimecodeControl flips whether incoming timecode positions
// drive the player. It always leaves position/offset untouched; when
// enabling, the recalibrate flag makes the next valid target snap
// position onto it, folding the jump into offset,
// matching the "re-arm on re-engage" behaviour in §8.
func (p *Player) ToggleTimecodeControl() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.timecodeControl = !p.timecodeControl
	if p.timecodeControl {
		p.recalibrate = true
	}
}

// TimecodeControl reports whether timecode control is currently
// enabled.
func (p *Player) TimecodeControl() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.timecodeControl
}

// Clone returns a deep, independent copy of p sharing the same
// underlying Track (with an extra reference taken on it), suitable for
// a second deck to preview or hot-swap into — §9's "duplicate a deck
// onto a spare output" feature.
func (p *Player) Clone() *Player {
	p.mu.Lock()
	defer p.mu.Unlock()

	cp := clone.Clone(p)
	cp.mu = rt.Spinlock{}
	cp.track = p.track.Acquire()
	return cp
}

// Position returns the current playback position in seconds.
func (p *Player) Position() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.position
}

// GetElapsed returns position minus offset: the track-space time in
// seconds that Collect reads from (ignoring any punch). It is 0 right
// after Recue and t right after SeekTo(t); a timecode-driven skip moves
// position without touching offset, so it changes this value too.
func (p *Player) GetElapsed() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.position - p.offset
}

// Pitch returns the last pitch value observed (timecode- or
// externally-derived, before the sync multiplier).
func (p *Player) Pitch() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pitch
}

// LastDifference returns position-target_position as of the most
// recent Collect call with a valid target, for UI/diagnostic display.
func (p *Player) LastDifference() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastDiff
}

// SetPunch sets (or clears) the deck-level punch displacement applied
// to the track-space read position: while active, Collect reads from
// position-offset+punch instead of position-offset, temporarily
// shifting what plays without touching position/offset themselves, so
// punch_out can restore normal playback with no discontinuity beyond
// the displacement itself.
func (p *Player) SetPunch(offset float64, active bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.punch = offset
	p.punchActive = active
}

// PunchIn marks the current position as a displaced reference: Collect
// starts reading punch seconds ahead of position-offset until PunchOut
// is called, letting a deck preview a later point in the track and
// then drop back out to where regular playback left off.
func (p *Player) PunchIn(punch float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.punch = punch
	p.punchActive = true
}

// PunchOut clears the punch displacement; Collect resumes reading from
// position-offset exactly as before PunchIn.
func (p *Player) PunchOut() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.punch = 0
	p.punchActive = false
}

// nextDither returns a value in [-0.5, 0.5) from a small xorshift
// generator private to this player. Collect must not touch any shared
// random source: the default math/rand generator serializes callers
// behind a mutex, which would violate the realtime no-blocking rule.
func (p *Player) nextDither() float64 {
	x := p.ditherState
	x ^= x << 13
	x ^= x >> 17
	x ^= x << 5
	p.ditherState = x
	return float64(x)/float64(math.MaxUint32) - 0.5
}

// Collect is the realtime audio callback entry point: it fills out
// with n interleaved stereo frames resampled from the loaded track at
// the player's current pitch, and advances position by exactly the
// amount of track time consumed. out must have length >= 2*n.
//
// This implements the seven-step per-callback algorithm: pull a
// timecode target if control is enabled, fold in any external pitch
// override, update the sync filter, resample into out with dither and
// a linear volume ramp, then advance position.
func (p *Player) Collect(n int, out []int16) {
	p.mu.Lock()
	defer p.mu.Unlock()

	dt := float64(n) / p.outputRate

	// Step 1: pull the current timecode-derived target, if control is
	// enabled and the decoder has a lock.
	if p.timecodeControl && p.timecode != nil {
		pitchEst := p.timecode.CurrentPitch()
		idx, age, ok := p.timecode.GetPosition()
		if ok {
			if uint32(idx) > p.timecode.GetSafe() {
				p.timecodeControl = false
			} else {
				p.targetPosition = float64(idx)/p.timecode.Resolution() + pitchEst*age
				p.targetValid = true
			}
		}
		p.pitch = pitchEst
	}

	// Step 2: an external pitch source always overrides, when present.
	if p.externalPitch != nil {
		if v, ok := p.externalPitch.Pitch(); ok {
			p.pitch = v
		}
	}

	// Step 3/4: update the sync filter, either relaxing sync_pitch
	// towards 1.0 (no target) or converging on the timecode target.
	if !p.targetValid {
		p.syncPitch += dt / (syncRC + dt) * (1 - p.syncPitch)
	} else {
		if p.recalibrate {
			p.offset += p.targetPosition - p.position
			p.position = p.targetPosition
			p.recalibrate = false
		}

		diff := p.position - p.targetPosition
		p.lastDiff = diff

		switch {
		case math.Abs(diff) > skipThreshold:
			p.position = p.targetPosition
		case math.Abs(p.pitch) > syncPitchThreshold:
			p.syncPitch = p.pitch / (diff/syncTime + p.pitch)
		}
		p.targetValid = false
	}

	// Step 5: the target volume this callback ramps towards; silence
	// as pitch approaches zero, full scale at |pitch| >= 1.
	targetVolume := math.Min(math.Abs(p.pitch), 1.0) * volumeConst

	// Step 6: resample the track into out, ramping volume and adding
	// triangular dither.
	effectivePitch := p.pitch * p.syncPitch
	sourceTime := p.position - p.offset
	if p.punchActive {
		sourceTime += p.punch
	}
	advance := p.buildPCM(out, n, sourceTime, effectivePitch, p.volume, targetVolume)

	// Step 7: advance position by the track-time actually consumed.
	p.position += advance
	p.volume = targetVolume
}

// buildPCM writes n stereo frames into out, each one a four-tap cubic
// (Catmull-Rom) interpolation of the loaded track starting sourceTime
// seconds in and advancing at pitch track-seconds per output sample,
// scaled from track.Rate to the player's outputRate. It returns the
// total track-time (in output-relative seconds, i.e. scaled by
// pitch*trackRate/outputRate already folded into sourceTime's units)
// actually advanced, which is simply n/outputRate worth of source time
// at the given pitch.
func (p *Player) buildPCM(out []int16, n int, sourceTime, pitch, startVolume, endVolume float64) float64 {
	tr := p.track
	trackRate := float64(tr.Rate)
	step := pitch * trackRate / p.outputRate
	srcFrame := sourceTime * trackRate

	for i := 0; i < n; i++ {
		src := srcFrame + step*float64(i)
		i0 := math.Floor(src)
		mu := src - i0
		base := int64(i0)

		vol := startVolume
		if n > 1 {
			vol = startVolume + (endVolume-startVolume)*float64(i)/float64(n-1)
		}

		out[2*i] = p.interpolate(tr, base, mu, 0, vol)
		out[2*i+1] = p.interpolate(tr, base, mu, 1, vol)
	}

	return float64(n) / p.outputRate * pitch
}

// interpolate computes one output sample for channel ch via 4-tap
// cubic interpolation of the track around base, scales by vol, adds
// triangular dither, and saturates to int16.
func (p *Player) interpolate(tr *track.Track, base int64, mu float64, ch int, vol float64) int16 {
	y0 := sampleAt(tr, base-1, ch)
	y1 := sampleAt(tr, base, ch)
	y2 := sampleAt(tr, base+1, ch)
	y3 := sampleAt(tr, base+2, ch)

	a0 := y3 - y2 - y0 + y1
	a1 := y0 - y1 - a0
	a2 := y2 - y0
	a3 := y1

	out := ((a0*mu+a1)*mu+a2)*mu + a3
	out *= vol
	out += 0.5 * (p.nextDither() + p.nextDither())

	return saturate16(out)
}

func sampleAt(tr *track.Track, i int64, ch int) float64 {
	if i < 0 || i >= tr.Length() {
		return 0
	}
	return float64(tr.GetSample(i)[ch])
}

func saturate16(v float64) int16 {
	switch {
	case v >= 32767:
		return 32767
	case v <= -32768:
		return -32768
	default:
		return int16(v)
	}
}
