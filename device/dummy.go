package device

// Dummy is a back-end that does nothing: it advertises a fixed sample
// rate and zero fds, per §4.5. Used for headless tests and for decks
// that aren't yet bound to real hardware.
type Dummy struct {
	rate float64
}

// NewDummy returns a Dummy device advertising rate Hz.
func NewDummy(rate float64) *Dummy {
	return &Dummy{rate: rate}
}

func (d *Dummy) SampleRate() float64 { return d.rate }
func (d *Dummy) Start() error        { return nil }
func (d *Dummy) Stop() error         { return nil }
func (d *Dummy) Clear()              {}

// Run blocks until stop is closed, matching a poll-driven back-end
// with no fds ever becoming ready.
func (d *Dummy) Run(stop <-chan struct{}) error {
	<-stop
	return nil
}
