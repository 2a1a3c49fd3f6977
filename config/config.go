// Package config loads the deck/device/timecode-definition topology
// that cmd/xwax wires at startup: which decks exist, which device and
// timecode definition each one uses, and the importer/scanner
// subprocess paths rig drives. Structured the same way modplayer's
// flag-based config.go separates parsed settings from the components
// that consume them, but as a YAML file rather than CLI flags, since
// xwax's topology (N decks, each with its own device) doesn't fit
// comfortably on a command line.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/xwax-go/xwax/timecodedef"
	"github.com/xwax-go/xwax/xwerr"
)

// DeviceConfig names which back-end a deck's device should use and
// any back-end-specific settings.
type DeviceConfig struct {
	Backend         string  `yaml:"backend"` // "portaudio" or "dummy"
	SampleRate      float64 `yaml:"sample_rate"`
	FramesPerBuffer int     `yaml:"frames_per_buffer"`
}

// DeckConfig describes one deck's static topology.
type DeckConfig struct {
	Name            string       `yaml:"name"`
	TimecodeDef     string       `yaml:"timecode_def"`
	TimecodeControl bool         `yaml:"timecode_control"`
	Device          DeviceConfig `yaml:"device"`
}

// Config is the full topology file: every deck plus the shared
// subprocess paths and realtime/memory-locking settings.
type Config struct {
	Decks []DeckConfig `yaml:"decks"`

	ImporterPath string `yaml:"importer_path"`
	ScannerPath  string `yaml:"scanner_path"`

	RealtimePriority int  `yaml:"realtime_priority"`
	LockMemory       bool `yaml:"lock_memory"`
}

// Load reads and parses the topology file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, xwerr.New(xwerr.Config, "config.Load", path, err)
	}

	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, xwerr.New(xwerr.Config, "config.Load", path, err)
	}

	if err := c.validate(); err != nil {
		return nil, xwerr.New(xwerr.Config, "config.Load", path, err)
	}
	return &c, nil
}

func (c *Config) validate() error {
	if len(c.Decks) == 0 {
		return fmt.Errorf("no decks configured")
	}
	for _, d := range c.Decks {
		if d.Name == "" {
			return fmt.Errorf("deck missing a name")
		}
		if _, ok := timecodedef.ByName(d.TimecodeDef); !ok {
			return fmt.Errorf("deck %q: unknown timecode definition %q", d.Name, d.TimecodeDef)
		}
		switch d.Device.Backend {
		case "portaudio", "dummy":
		default:
			return fmt.Errorf("deck %q: unknown device backend %q", d.Name, d.Device.Backend)
		}
	}
	return nil
}
