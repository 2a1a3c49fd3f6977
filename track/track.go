// Package track implements the append-only PCM buffer shared between
// the non-realtime importer (the only writer) and any number of
// realtime player readers. Once a sample is published its value is
// immutable; length only ever increases.
package track

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

const (
	// blockFrames is the number of stereo frames held by one block.
	// Blocks are allocated on the importer thread only, never on the
	// realtime path.
	blockFrames = 1 << 16

	// PPMResolution is the downsample ratio of the fast meter: one
	// byte summarizes this many consecutive frames.
	PPMResolution = 64

	// OverviewResolution is the downsample ratio of the slow meter.
	OverviewResolution = 2048
)

type block struct {
	pcm      []int16 // fixed size blockFrames*2, preallocated
	filled   atomic.Int64
	ppm      []byte
	ppmDone  atomic.Int64
	overview []byte
	ovDone   atomic.Int64
}

func newBlock() *block {
	return &block{
		pcm:      make([]int16, blockFrames*2),
		ppm:      make([]byte, blockFrames/PPMResolution),
		overview: make([]byte, blockFrames/OverviewResolution),
	}
}

func (b *block) full() bool {
	return b.filled.Load() >= blockFrames
}

// commit advances the block's filled count by frames (already written
// into the slice returned by the most recent accessWrite) and
// finalizes any newly-complete meter buckets.
func (b *block) commit(start int64, frames int) {
	end := start + int64(frames)

	for next := b.ppmDone.Load(); (next+1)*PPMResolution <= end; next++ {
		from := next * PPMResolution
		b.ppm[next] = peakAbs(b.pcm[from*2 : (from+PPMResolution)*2])
		b.ppmDone.Store(next + 1)
	}
	for next := b.ovDone.Load(); (next+1)*OverviewResolution <= end; next++ {
		from := next * OverviewResolution
		b.overview[next] = peakAbs(b.pcm[from*2 : (from+OverviewResolution)*2])
		b.ovDone.Store(next + 1)
	}

	b.filled.Store(end)
}

func peakAbs(samples []int16) byte {
	var peak int32
	for _, s := range samples {
		v := int32(s)
		if v < 0 {
			v = -v
		}
		if v > peak {
			peak = v
		}
	}
	peak >>= 7 // 32768 >> 7 == 256, clamped below
	if peak > 255 {
		peak = 255
	}
	return byte(peak)
}

// Track is the append-only stereo 16-bit PCM buffer for one loaded
// audio file. Tracks are reference-counted: Acquire/Release, not the
// garbage collector, decide when a Track's heavyweight state may be
// dropped (see §5's shared-resource policy).
type Track struct {
	Rate       int
	Path       string
	ImporterID uuid.UUID

	importing atomic.Bool
	length    atomic.Int64
	refs      atomic.Int64

	mu     sync.Mutex // serializes block-list growth; importer thread only
	blocks atomic.Pointer[[]*block]
}

// New creates a Track for a fresh import of path at the given sample
// rate, with one reference already held by the caller.
func New(rate int, path string, importerID uuid.UUID) *Track {
	t := &Track{Rate: rate, Path: path, ImporterID: importerID}
	t.importing.Store(true)
	t.refs.Store(1)
	empty := make([]*block, 0)
	t.blocks.Store(&empty)
	return t
}

// Empty is the zero-length singleton used in place of nil so callers
// never need to special-case "no track loaded".
var Empty = newEmpty()

func newEmpty() *Track {
	t := New(44100, "", uuid.Nil)
	t.importing.Store(false)
	return t
}

// Acquire increments the reference count and returns t, for callers
// storing their own handle to an already-held Track.
func (t *Track) Acquire() *Track {
	t.refs.Add(1)
	return t
}

// Release decrements the reference count. It reports whether this was
// the release that dropped the track to zero references with
// importing already finished — the point at which the caller (always
// a non-RT thread per §5) may drop the last handle and let the
// backing blocks be collected.
func (t *Track) Release() bool {
	if t == Empty {
		return false
	}
	n := t.refs.Add(-1)
	return n == 0 && !t.importing.Load()
}

// SetImportDone marks the track's import as finished. Call exactly
// once, from the importer/rig thread, when the source subprocess has
// terminated, whether it succeeded or failed; the track keeps whatever
// was committed.
func (t *Track) SetImportDone() {
	t.importing.Store(false)
}

// Importing reports whether an importer is still appending to this
// track.
func (t *Track) Importing() bool {
	return t.importing.Load()
}

// Length returns the number of frames published so far. Safe to call
// from the realtime path.
func (t *Track) Length() int64 {
	return t.length.Load()
}

// AccessWrite returns the writable tail of the current block: up to
// framesAvail stereo frames the caller may fill in place, then pass to
// Commit. Allocates a new block if the current one is full — this is
// the only allocation in the Track write path, and it never happens on
// the realtime path because only the importer calls AccessWrite.
func (t *Track) AccessWrite() (dst []int16, framesAvail int) {
	cur := *t.blocks.Load()
	var b *block
	if len(cur) == 0 || cur[len(cur)-1].full() {
		b = newBlock()
		t.mu.Lock()
		cur = *t.blocks.Load()
		next := make([]*block, len(cur)+1)
		copy(next, cur)
		next[len(cur)] = b
		t.blocks.Store(&next)
		t.mu.Unlock()
	} else {
		b = cur[len(cur)-1]
	}

	filled := b.filled.Load()
	return b.pcm[filled*2 : blockFrames*2], int(blockFrames - filled)
}

// Commit publishes frames worth of PCM written into the slice returned
// by the most recent AccessWrite call, updates the fast/slow meters,
// and advances the published length. frames must be <= the
// framesAvail AccessWrite returned.
func (t *Track) Commit(frames int) {
	if frames == 0 {
		return
	}
	cur := *t.blocks.Load()
	b := cur[len(cur)-1]
	start := b.filled.Load()
	b.commit(start, frames)
	t.length.Add(int64(frames))
}

// GetSample returns the stereo frame at index i, or silence if i is
// out of range. Safe to call from the realtime path provided i <
// Length().
func (t *Track) GetSample(i int64) [2]int16 {
	if i < 0 || i >= t.length.Load() {
		return [2]int16{}
	}
	blocks := *t.blocks.Load()
	blockIdx := int(i / blockFrames)
	if blockIdx >= len(blocks) {
		return [2]int16{}
	}
	b := blocks[blockIdx]
	off := i % blockFrames
	if off >= b.filled.Load() {
		return [2]int16{}
	}
	return [2]int16{b.pcm[off*2], b.pcm[off*2+1]}
}

// GetPPM returns the fast meter value covering sample index i.
func (t *Track) GetPPM(i int64) byte {
	return t.meterAt(i, PPMResolution, func(b *block) ([]byte, *atomic.Int64) {
		return b.ppm, &b.ppmDone
	})
}

// GetOverview returns the slow meter value covering sample index i.
func (t *Track) GetOverview(i int64) byte {
	return t.meterAt(i, OverviewResolution, func(b *block) ([]byte, *atomic.Int64) {
		return b.overview, &b.ovDone
	})
}

func (t *Track) meterAt(i int64, resolution int64, pick func(*block) ([]byte, *atomic.Int64)) byte {
	if i < 0 || i >= t.length.Load() {
		return 0
	}
	blocks := *t.blocks.Load()
	blockIdx := int(i / blockFrames)
	if blockIdx >= len(blocks) {
		return 0
	}
	b := blocks[blockIdx]
	bucket := (i % blockFrames) / resolution
	data, done := pick(b)
	if bucket >= done.Load() {
		return 0
	}
	return data[bucket]
}
