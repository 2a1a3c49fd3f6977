// Back-end implementation on top of PortAudio, in the same style as
// modplayer's cmd/modplay stream setup: OpenDefaultStream with a
// Go-native callback, Start/Stop/Close around the process lifetime.
// Duplex here (input 2ch for timecode capture, output 2ch for player
// collect) rather than modplayer's output-only stream.
package device

import (
	"sync"

	"github.com/gordonklaus/portaudio"

	"github.com/xwax-go/xwax/rt"
)

var (
	paInitOnce  sync.Once
	paInitErr   error
	paRefCount  int
	paRefCountM sync.Mutex
)

func paInitialize() error {
	paInitOnce.Do(func() {
		paInitErr = portaudio.Initialize()
	})
	if paInitErr == nil {
		paRefCountM.Lock()
		paRefCount++
		paRefCountM.Unlock()
	}
	return paInitErr
}

func paRelease() {
	paRefCountM.Lock()
	paRefCount--
	last := paRefCount == 0
	paRefCountM.Unlock()
	if last {
		_ = portaudio.Terminate()
	}
}

// PortAudio is a callback-driven device: PortAudio hosts its own
// realtime thread and invokes the supplied submit/collect functions
// directly from the audio callback, per §4.5's callback-driven tier.
type PortAudio struct {
	rate            float64
	framesPerBuffer int
	submit          SubmitFunc
	collect         CollectFunc

	stream *portaudio.Stream
	marked bool
}

// NewPortAudio returns a duplex PortAudio device: submit is called
// with each buffer of captured input PCM, collect is asked to fill
// each buffer of output PCM. framesPerBuffer of 0 requests the host's
// default.
func NewPortAudio(rate float64, framesPerBuffer int, submit SubmitFunc, collect CollectFunc) *PortAudio {
	return &PortAudio{
		rate:            rate,
		framesPerBuffer: framesPerBuffer,
		submit:          submit,
		collect:         collect,
	}
}

func (d *PortAudio) SampleRate() float64 { return d.rate }

func (d *PortAudio) callback(in, out []int16) {
	// The PortAudio callback runs on a thread the host library owns,
	// not one the rt.Coordinator spawned; mark it realtime on first
	// entry so an accidental rt.Mutex.Lock() here still panics. Marking
	// is idempotent and cheap enough to repeat every callback.
	if !d.marked {
		rt.MarkRT()
		d.marked = true
	}

	n := len(in) / 2
	if d.submit != nil && n > 0 {
		d.submit(in, n)
	}
	if d.collect != nil {
		d.collect(len(out)/2, out)
	}
}

// Start initializes PortAudio (reference-counted across every
// PortAudio device in the process) and opens a duplex stream.
func (d *PortAudio) Start() error {
	if err := paInitialize(); err != nil {
		return err
	}

	framesPerBuffer := d.framesPerBuffer
	if framesPerBuffer == 0 {
		framesPerBuffer = portaudio.FramesPerBufferUnspecified
	}

	stream, err := portaudio.OpenDefaultStream(2, 2, d.rate, framesPerBuffer, d.callback)
	if err != nil {
		paRelease()
		return err
	}
	d.stream = stream
	return stream.Start()
}

// Stop stops and closes the stream and releases the process-wide
// PortAudio reference.
func (d *PortAudio) Stop() error {
	if d.stream == nil {
		return nil
	}
	err := d.stream.Stop()
	_ = d.stream.Close()
	d.stream = nil
	paRelease()
	return err
}

// Clear is a no-op: PortAudio owns its own ring buffers and there is
// no accumulated state in this wrapper to reset.
func (d *PortAudio) Clear() {}

// Run blocks until stop closes: PortAudio drives the actual audio
// callback on its own thread, so the coordinator's driving goroutine
// for this device has nothing to do but wait for shutdown.
func (d *PortAudio) Run(stop <-chan struct{}) error {
	<-stop
	return nil
}
