// Command xwax is the main entry point: it loads a deck/device
// topology file, builds one Deck per entry, starts them all on a
// realtime coordinator, and runs a Rig to service track imports and
// library scans until interrupted.
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"

	"github.com/xwax-go/xwax/config"
	"github.com/xwax-go/xwax/deck"
	"github.com/xwax-go/xwax/device"
	"github.com/xwax-go/xwax/rig"
	"github.com/xwax-go/xwax/rt"
	"github.com/xwax-go/xwax/timecodedef"
)

var configPath = flag.String("config", "decks.yaml", "path to the deck/device topology file")

func main() {
	flag.Parse()
	logger := log.New(os.Stderr)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("failed to load config", "err", err)
	}

	if cfg.LockMemory {
		if err := rt.LockMemory(); err != nil {
			logger.Warn("mlockall failed, continuing without locked memory", "err", err)
		}
		defer rt.UnlockMemory()
	}

	coord := rt.New(cfg.RealtimePriority)
	decks := make([]*deck.Deck, 0, len(cfg.Decks))

	for _, dc := range cfg.Decks {
		def, ok := timecodedef.ByName(dc.TimecodeDef)
		if !ok {
			logger.Fatal("unknown timecode definition", "deck", dc.Name, "def", dc.TimecodeDef)
		}

		sampleRate := dc.Device.SampleRate
		if sampleRate == 0 {
			sampleRate = 48000
		}
		framesPerBuffer := dc.Device.FramesPerBuffer

		factory := deckFactory(dc.Device.Backend, sampleRate, framesPerBuffer)

		d := deck.New(dc.Name, def, sampleRate, factory, logger)
		if dc.TimecodeControl {
			d.Player.ToggleTimecodeControl()
		}

		coord.Add(d.Device)
		decks = append(decks, d)
	}

	if err := coord.Start(); err != nil {
		logger.Fatal("failed to start realtime coordinator", "err", err)
	}

	r := rig.New(cfg.ImporterPath, cfg.ScannerPath, logger)
	r.Listen(func(ev rig.Event) {
		switch ev.Kind {
		case rig.ImportDone:
			if ev.Err != nil {
				logger.Warn("import failed", "err", ev.Err)
			}
		case rig.ScanDone:
			if ev.Err != nil {
				logger.Warn("scan failed", "err", ev.Err)
			} else {
				logger.Info("scan complete", "entries", len(ev.Entries))
			}
		}
	})
	r.Start()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down")
	r.Stop()
	for _, errs := range coord.Stop() {
		logger.Warn("device stopped with error", "err", errs)
	}
	for _, d := range decks {
		_ = d.Close()
	}
}

// deckFactory returns the device.DeviceFactory matching a config
// backend name. "dummy" ignores submit/collect entirely, since it
// never calls back into the deck.
func deckFactory(backend string, sampleRate float64, framesPerBuffer int) deck.DeviceFactory {
	switch backend {
	case "portaudio":
		return func(submit device.SubmitFunc, collect device.CollectFunc) device.Device {
			return device.NewPortAudio(sampleRate, framesPerBuffer, submit, collect)
		}
	default:
		return func(device.SubmitFunc, device.CollectFunc) device.Device {
			return device.NewDummy(sampleRate)
		}
	}
}
