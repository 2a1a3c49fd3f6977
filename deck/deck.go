// Package deck bundles one turntable's worth of state — a device, a
// timecode decoder, a player, a cue set, and up to four controller
// bindings — into the single unit of ownership described in §3's data
// model. Nothing outside a Deck ever touches its device, timecoder,
// player or cues directly except through the Deck itself, matching
// the "exclusively owned" wording in §5.
package deck

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/xwax-go/xwax/cue"
	"github.com/xwax-go/xwax/device"
	"github.com/xwax-go/xwax/player"
	"github.com/xwax-go/xwax/timecodedef"
	"github.com/xwax-go/xwax/timecoder"
	"github.com/xwax-go/xwax/xwerr"
)

// maxControllers bounds how many controller bindings a single deck
// may carry at once (keyboard, MIDI, IMU auxiliary pitch, etc. — all
// named-interface-only external collaborators per the Non-goals).
const maxControllers = 4

// Controller is the named-interface-only seam for MIDI/keyboard/IMU
// bindings: a Deck owns zero or more, and per §7's ControllerError
// policy a misbehaving one is disabled rather than taking the whole
// deck down.
type Controller interface {
	Name() string
	Close() error
}

// DeviceFactory builds the audio back-end for a deck once its
// timecoder and player exist, since a back-end's submit/collect
// callbacks close over them at construction time (see
// device.NewPortAudio). submit receives captured input PCM; collect
// fills requested output PCM.
type DeviceFactory func(submit device.SubmitFunc, collect device.CollectFunc) device.Device

// Deck is one turntable: a device driving a timecoder on the input
// side and a player on the output side, a 16-slot cue set, and the
// controllers bound to it.
type Deck struct {
	Name string

	Device    device.Device
	Timecoder *timecoder.Timecoder
	Player    *player.Player
	Cues      *cue.Set

	mu          sync.Mutex
	controllers []Controller

	logger *log.Logger
}

// New constructs a Deck: a timecoder for def at sampleRate, a player
// driving the same rate and wired to that timecoder, and a device
// built by factory once both exist. logger may be nil to discard
// diagnostics.
func New(name string, def *timecodedef.Def, sampleRate float64, factory DeviceFactory, logger *log.Logger) *Deck {
	if logger == nil {
		logger = log.New(io.Discard)
	}

	tc := timecoder.New(def, sampleRate)
	pl := player.New(sampleRate)
	pl.AttachTimecoder(tc)

	dev := factory(tc.Submit, pl.Collect)

	return &Deck{
		Name:      name,
		Device:    dev,
		Timecoder: tc,
		Player:    pl,
		Cues:      cue.NewSet(),
		logger:    logger,
	}
}

// AddController binds c to the deck, up to maxControllers at a time.
func (d *Deck) AddController(c Controller) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.controllers) >= maxControllers {
		return xwerr.New(xwerr.Controller, "deck.AddController", d.Name,
			fmt.Errorf("deck already has %d controllers bound", maxControllers))
	}
	d.controllers = append(d.controllers, c)
	return nil
}

// DisableController removes c from the deck and closes it, per §7's
// policy of disabling only the offending controller rather than
// aborting the whole deck when a ControllerError occurs.
func (d *Deck) DisableController(c Controller) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, existing := range d.controllers {
		if existing == c {
			d.controllers = append(d.controllers[:i], d.controllers[i+1:]...)
			_ = c.Close()
			d.logger.Warn("controller disabled", "deck", d.Name, "controller", c.Name())
			return
		}
	}
}

// Controllers returns the currently bound controllers.
func (d *Deck) Controllers() []Controller {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Controller{}, d.controllers...)
}

// CueTo jumps the player to the position stored at label, reporting
// false if that slot is unset.
func (d *Deck) CueTo(label int) bool {
	pos := d.Cues.Get(label)
	if pos == cue.Unset {
		return false
	}
	d.Player.SeekTo(pos)
	return true
}

// PunchIn displaces playback to target seconds into the track without
// moving the player's position/offset bookkeeping, so PunchOut can
// return to exactly where regular playback left off.
func (d *Deck) PunchIn(target float64) {
	d.Player.PunchIn(target - d.Player.GetElapsed())
}

// PunchOut clears any active punch displacement.
func (d *Deck) PunchOut() {
	d.Player.PunchOut()
}

// Close disables every bound controller and stops the device.
func (d *Deck) Close() error {
	for _, c := range d.Controllers() {
		d.DisableController(c)
	}
	return d.Device.Stop()
}
