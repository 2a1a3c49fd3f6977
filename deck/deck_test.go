package deck

import (
	"testing"

	"github.com/xwax-go/xwax/device"
	"github.com/xwax-go/xwax/timecodedef"
	"github.com/xwax-go/xwax/xwerr"
)

func dummyFactory(submit device.SubmitFunc, collect device.CollectFunc) device.Device {
	return device.NewDummy(48000.0)
}

func newTestDeck(t *testing.T) *Deck {
	t.Helper()
	def, ok := timecodedef.ByName("serato_2a")
	if !ok {
		t.Fatal("ByName(serato_2a) not found")
	}
	return New("test", def, 48000.0, dummyFactory, nil)
}

func TestNewWiresTimecoderIntoPlayer(t *testing.T) {
	d := newTestDeck(t)
	if d.Timecoder == nil || d.Player == nil || d.Cues == nil || d.Device == nil {
		t.Fatal("New() left a component nil")
	}
}

type fakeController struct {
	name   string
	closed bool
}

func (f *fakeController) Name() string { return f.name }
func (f *fakeController) Close() error { f.closed = true; return nil }

func TestAddControllerEnforcesLimit(t *testing.T) {
	d := newTestDeck(t)
	for i := 0; i < maxControllers; i++ {
		if err := d.AddController(&fakeController{name: "c"}); err != nil {
			t.Fatalf("AddController() #%d = %v", i, err)
		}
	}
	if err := d.AddController(&fakeController{name: "one-too-many"}); err == nil {
		t.Fatal("expected AddController to reject a 5th controller")
	}
}

func TestDisableControllerClosesAndRemoves(t *testing.T) {
	d := newTestDeck(t)
	c := &fakeController{name: "midi"}
	if err := d.AddController(c); err != nil {
		t.Fatalf("AddController() = %v", err)
	}

	d.DisableController(c)

	if !c.closed {
		t.Error("DisableController() should Close() the controller")
	}
	if len(d.Controllers()) != 0 {
		t.Errorf("Controllers() = %v, want empty after disable", d.Controllers())
	}
}

func TestCueToUsesUnsetSentinel(t *testing.T) {
	d := newTestDeck(t)

	if d.CueTo(0) {
		t.Error("CueTo() on an unset slot should report false")
	}

	d.Cues.Set(0, 12.5)
	if !d.CueTo(0) {
		t.Fatal("CueTo() on a set slot should report true")
	}
	if got := d.Player.Position(); got != 12.5 {
		t.Errorf("Position() after CueTo(0) = %v, want 12.5", got)
	}
}

func TestPunchInOutRoundTrips(t *testing.T) {
	d := newTestDeck(t)
	d.Player.SeekTo(3.0)

	d.PunchIn(30.0)
	d.PunchOut()

	// PunchOut must leave position/offset exactly as PunchIn found
	// them; only the Collect-time read offset is affected.
	if got := d.Player.Position(); got != 3.0 {
		t.Errorf("Position() after PunchIn/PunchOut = %v, want unchanged at 3.0", got)
	}
}

func TestCloseStopsDeviceAndDisablesControllers(t *testing.T) {
	d := newTestDeck(t)
	c := &fakeController{name: "midi"}
	if err := d.AddController(c); err != nil {
		t.Fatalf("AddController() = %v", err)
	}

	if err := d.Close(); err != nil {
		t.Fatalf("Close() = %v", err)
	}
	if !c.closed {
		t.Error("Close() should disable every bound controller")
	}
}

func TestAddControllerErrorIsControllerKind(t *testing.T) {
	d := newTestDeck(t)
	for i := 0; i < maxControllers; i++ {
		_ = d.AddController(&fakeController{name: "c"})
	}
	err := d.AddController(&fakeController{name: "overflow"})
	if !xwerr.Is(err, xwerr.Controller) {
		t.Fatalf("AddController() overflow error = %v, want xwerr.Controller kind", err)
	}
}
