package config

import (
	"os"
	"path/filepath"
	"testing"
)

const validYAML = `
decks:
  - name: left
    timecode_def: serato_2a
    timecode_control: true
    device:
      backend: portaudio
      sample_rate: 48000
  - name: right
    timecode_def: serato_2b
    device:
      backend: dummy
importer_path: /usr/local/bin/xwax-import
scanner_path: /usr/local/bin/xwax-scan
realtime_priority: 10
lock_memory: true
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "decks.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile() = %v", err)
	}
	return path
}

func TestLoadValidConfig(t *testing.T) {
	path := writeConfig(t, validYAML)
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load() = %v", err)
	}

	if len(c.Decks) != 2 {
		t.Fatalf("got %d decks, want 2", len(c.Decks))
	}
	if c.Decks[0].Name != "left" || !c.Decks[0].TimecodeControl {
		t.Errorf("decks[0] = %+v", c.Decks[0])
	}
	if c.Decks[1].Device.Backend != "dummy" {
		t.Errorf("decks[1].Device.Backend = %q, want dummy", c.Decks[1].Device.Backend)
	}
	if !c.LockMemory || c.RealtimePriority != 10 {
		t.Errorf("LockMemory/RealtimePriority = %v/%d", c.LockMemory, c.RealtimePriority)
	}
}

func TestLoadRejectsUnknownTimecodeDef(t *testing.T) {
	path := writeConfig(t, `
decks:
  - name: left
    timecode_def: not_a_real_def
    device:
      backend: dummy
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected Load to reject an unknown timecode definition")
	}
}

func TestLoadRejectsNoDecks(t *testing.T) {
	path := writeConfig(t, "decks: []\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected Load to reject an empty deck list")
	}
}

func TestLoadRejectsMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected Load to fail on a missing file")
	}
}
