// Command gentc synthesizes a canonical timecode signal to a WAVE
// file: test tooling for exercising the decoder against known-good
// input, not the "offline generator" product feature excluded by the
// Non-goals.
package main

import (
	"encoding/binary"
	"flag"
	"log"
	"os"

	"github.com/xwax-go/xwax/internal/testsignal"
	"github.com/xwax-go/xwax/timecodedef"
)

var (
	flagDef      = flag.String("def", "serato_2a", "timecode definition name")
	flagRate     = flag.Int("rate", 44100, "sample rate in Hz")
	flagDuration = flag.Float64("duration", 10.0, "signal duration in seconds")
	flagPitch    = flag.Float64("pitch", 1.0, "signed pitch, negative plays the record backwards")
	flagStart    = flag.Uint("start", 0, "starting position, in bits into the record")
	flagOut      = flag.String("out", "timecode.wav", "output WAVE file path")
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("gentc: ")
	flag.Parse()

	def, ok := timecodedef.ByName(*flagDef)
	if !ok {
		log.Fatalf("unknown timecode definition %q", *flagDef)
	}

	gen := testsignal.New(def, float64(*flagRate))
	pcm := gen.Synthesize(*flagDuration, *flagPitch, uint32(*flagStart))

	f, err := os.Create(*flagOut)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()

	if err := writeWAV(f, *flagRate, pcm); err != nil {
		log.Fatal(err)
	}

	log.Printf("wrote %d frames of %q at %d Hz to %s", len(pcm)/2, *flagDef, *flagRate, *flagOut)
}

// writeWAV writes pcm (interleaved stereo 16-bit frames) as a
// complete WAVE file. Unlike a realtime player, which writes frames as
// they're generated and has to patch the header's size fields in
// afterwards, gentc synthesizes the whole signal up front, so the
// total length is already known and the header can be written once,
// correctly, before any sample data.
func writeWAV(w *os.File, sampleRate int, pcm []int16) error {
	const (
		channels      = 2
		bitsPerSample = 16
	)
	byteRate := sampleRate * channels * (bitsPerSample / 8)
	blockAlign := channels * (bitsPerSample / 8)
	dataSize := len(pcm) * 2

	if _, err := w.WriteString("RIFF"); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, int32(36+dataSize)); err != nil {
		return err
	}
	if _, err := w.WriteString("WAVE"); err != nil {
		return err
	}
	if _, err := w.WriteString("fmt "); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, int32(16)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, struct {
		AudioFormat   uint16
		Channels      uint16
		SampleRate    uint32
		ByteRate      uint32
		BlockAlign    uint16
		BitsPerSample uint16
	}{1, channels, uint32(sampleRate), uint32(byteRate), uint16(blockAlign), bitsPerSample}); err != nil {
		return err
	}
	if _, err := w.WriteString("data"); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, int32(dataSize)); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, pcm)
}
