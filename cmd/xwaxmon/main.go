// Command xwaxmon is a terminal oscilloscope and transport monitor for
// a single deck: it renders the decaying Lissajous-style grid from
// Timecoder.Monitor plus the current pitch and position, styled after
// cmd/modplay's live transport display, and quits on Ctrl-C, Escape,
// or 'q'.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"atomicgo.dev/keyboard"
	"atomicgo.dev/keyboard/keys"
	"github.com/fatih/color"

	"github.com/xwax-go/xwax/deck"
	"github.com/xwax-go/xwax/device"
	"github.com/xwax-go/xwax/rt"
	"github.com/xwax-go/xwax/timecodedef"
)

var (
	flagDef     = flag.String("def", "serato_2a", "timecode definition name")
	flagRate    = flag.Float64("rate", 48000.0, "sample rate in Hz")
	flagBackend = flag.String("backend", "portaudio", "device backend: portaudio or dummy")
	flagMonSize = flag.Int("monsize", 24, "oscilloscope grid size, in characters")
)

const (
	escape     = "\x1b["
	hideCursor = escape + "?25l"
	showCursor = escape + "?25h"
)

var bright = color.New(color.FgGreen).SprintFunc()

func main() {
	flag.Parse()

	def, ok := timecodedef.ByName(*flagDef)
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown timecode definition %q\n", *flagDef)
		os.Exit(1)
	}

	factory := func(submit device.SubmitFunc, collect device.CollectFunc) device.Device {
		if *flagBackend == "dummy" {
			return device.NewDummy(*flagRate)
		}
		return device.NewPortAudio(*flagRate, 0, submit, collect)
	}

	d := deck.New("monitor", def, *flagRate, factory, nil)
	d.Timecoder.AttachMonitor(*flagMonSize)

	coord := rt.New(0)
	coord.Add(d.Device)
	if err := coord.Start(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	done := make(chan struct{})
	go func() {
		keyboard.Listen(func(key keys.Key) (stop bool, err error) {
			if key.Code == keys.CtrlC || key.Code == keys.Escape {
				return true, nil
			}
			if key.Code == keys.RuneKey && len(key.Runes) > 0 && key.Runes[0] == 'q' {
				return true, nil
			}
			return false, nil
		})
		close(done)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	fmt.Print(hideCursor)
	defer fmt.Print(showCursor)

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

loop:
	for {
		select {
		case <-done:
			break loop
		case <-sigCh:
			break loop
		case <-ticker.C:
			render(d)
		}
	}

	for _, errs := range coord.Stop() {
		fmt.Fprintln(os.Stderr, errs)
	}
}

func render(d *deck.Deck) {
	size := d.Timecoder.Monitor.Size

	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			if d.Timecoder.Monitor.At(x, y) > 0x40 {
				fmt.Print(bright("*"))
			} else {
				fmt.Print(" ")
			}
		}
		fmt.Println()
	}

	idx, age, ok := d.Timecoder.GetPosition()
	pitch := d.Timecoder.CurrentPitch()
	if ok {
		fmt.Printf("pitch % .3f  position %10d  age %.3fs\n", pitch, idx, age)
	} else {
		fmt.Printf("pitch % .3f  position --- (no lock)\n", pitch)
	}

	// Move the cursor back to the top of this frame so the next tick
	// overwrites it in place, matching cmd/modplay's live display.
	fmt.Print(escape + fmt.Sprintf("%dF", size+1))
}
