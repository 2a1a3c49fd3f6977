// Package rig owns the non-realtime thread responsible for track
// imports and library scans: it spawns the importer/scanner
// subprocesses described in §6, streams their output into Tracks or
// library entries, and dispatches completion events to whatever the
// UI registered to hear about them.
//
// The original design wakes a single poll(2) loop with a byte written
// to a self-pipe whenever an import or scan has news. Go's channels
// already give every goroutine its own "self-pipe" for free, so here
// the self-pipe collapses to a buffered events channel that each
// import/scan goroutine posts to and one dispatcher goroutine drains
// — same wake-up structure, no file descriptor required. See
// DESIGN.md for the redesign note.
package rig

import (
	"context"
	"encoding/binary"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/xwax-go/xwax/proc"
	"github.com/xwax-go/xwax/track"
	"github.com/xwax-go/xwax/xwerr"
)

// importChunkFrames bounds how much PCM is read from the importer
// subprocess per syscall, balancing syscall overhead against import
// latency visible to the player.
const importChunkFrames = 4096

// LibraryEntry is one track/scan result line, per the scanner
// contract's tab-separated fields.
type LibraryEntry struct {
	Path   string
	Artist string
	Title  string
	BPM    float64
	HasBPM bool
}

// EventKind discriminates the Event union below.
type EventKind int

const (
	// ImportDone reports that an import either finished (Err == nil)
	// or failed partway through (Err != nil, Track still has whatever
	// was imported before the failure).
	ImportDone EventKind = iota
	// ScanDone reports a completed (or failed) library scan.
	ScanDone
)

// Event is posted to every registered listener as import/scan work
// completes.
type Event struct {
	Kind    EventKind
	Track   *track.Track
	Entries []LibraryEntry
	Err     error
}

// Rig dispatches import/scan completion events from their own
// goroutines to registered listeners on one dispatcher goroutine.
type Rig struct {
	importerPath string
	scannerPath  string
	logger       *log.Logger

	ctx    context.Context
	cancel context.CancelFunc

	events chan Event

	mu        sync.Mutex
	listeners []func(Event)
	wg        sync.WaitGroup
}

// New returns a Rig that invokes importerPath/scannerPath as the
// external import/scan subprocesses. logger may be nil to discard
// diagnostics.
func New(importerPath, scannerPath string, logger *log.Logger) *Rig {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Rig{
		importerPath: importerPath,
		scannerPath:  scannerPath,
		logger:       logger,
		ctx:          ctx,
		cancel:       cancel,
		events:       make(chan Event, 32),
	}
}

// Listen registers cb to be called, on the dispatcher goroutine, for
// every Event posted from here on.
func (r *Rig) Listen(cb func(Event)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, cb)
}

// Start runs the dispatcher loop until Stop is called.
func (r *Rig) Start() {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		for {
			select {
			case ev, ok := <-r.events:
				if !ok {
					return
				}
				r.dispatch(ev)
			case <-r.ctx.Done():
				return
			}
		}
	}()
}

// Stop cancels every in-flight import/scan (SIGTERM, per §5's
// cancellation policy) and waits for the dispatcher to exit.
func (r *Rig) Stop() {
	r.cancel()
	r.wg.Wait()
}

func (r *Rig) dispatch(ev Event) {
	r.mu.Lock()
	listeners := append([]func(Event){}, r.listeners...)
	r.mu.Unlock()
	for _, cb := range listeners {
		cb(ev)
	}
}

func (r *Rig) post(ev Event) {
	select {
	case r.events <- ev:
	case <-r.ctx.Done():
	}
}

// ImportTrack registers and starts a new import, returning the Track
// immediately: it is writable/readable right away, with Importing()
// true until the subprocess finishes (or fails, leaving whatever
// prefix was already committed in place, per the ImportError policy
// in §7).
func (r *Rig) ImportTrack(path string, rate int) *track.Track {
	tr := track.New(rate, path, uuid.New())

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		err := r.runImport(tr, path, rate)
		tr.SetImportDone()
		if err != nil {
			err = xwerr.New(xwerr.Import, "rig.ImportTrack", path, err)
			r.logger.Warn("track import failed", "path", path, "err", err)
		}
		r.post(Event{Kind: ImportDone, Track: tr, Err: err})
	}()

	return tr
}

// runImport streams raw interleaved stereo PCM from the importer
// subprocess's stdout into tr until EOF or a read error. It uses
// io.ReadFull rather than binary.Read so a short final read (the
// subprocess exiting mid-buffer) still commits whatever complete
// frames arrived, instead of discarding them.
func (r *Rig) runImport(tr *track.Track, path string, rate int) error {
	p, err := proc.Start(r.ctx, r.importerPath, "import", path, strconv.Itoa(rate))
	if err != nil {
		return err
	}

	raw := make([]byte, importChunkFrames*4) // 2 channels * 2 bytes
	for {
		dst, avail := tr.AccessWrite()
		if avail > importChunkFrames {
			avail = importChunkFrames
		}

		n, readErr := io.ReadFull(p.Stdout(), raw[:avail*4])
		framesRead := n / 4
		for i := 0; i < framesRead; i++ {
			dst[2*i] = int16(binary.NativeEndian.Uint16(raw[4*i : 4*i+2]))
			dst[2*i+1] = int16(binary.NativeEndian.Uint16(raw[4*i+2 : 4*i+4]))
		}
		if framesRead > 0 {
			tr.Commit(framesRead)
		}

		if readErr != nil {
			if readErr == io.EOF || readErr == io.ErrUnexpectedEOF {
				// Stdout closed: the importer's exit status decides
				// success.
				return p.Wait()
			}
			_ = p.Terminate()
			_ = p.Wait()
			return readErr
		}
	}
}

// ScanLibrary starts a library scan of dir, posting a ScanDone event
// with whatever entries it found (and a non-nil Err on subprocess
// failure, per §7's scan error policy).
func (r *Rig) ScanLibrary(dir string) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		p, err := proc.Start(r.ctx, r.scannerPath, "scan", dir)
		if err != nil {
			r.post(Event{Kind: ScanDone, Err: xwerr.New(xwerr.Import, "rig.ScanLibrary", dir, err)})
			return
		}

		var entries []LibraryEntry
		for line := range proc.Lines(p.Stdout()) {
			if e, ok := parseLibraryLine(line); ok {
				entries = append(entries, e)
			}
		}

		err = p.Wait()
		if err != nil {
			err = xwerr.New(xwerr.Import, "rig.ScanLibrary", dir, err)
		}
		r.post(Event{Kind: ScanDone, Entries: entries, Err: err})
	}()
}

// parseLibraryLine decodes one scanner output line: pathname, artist,
// title, and an optional bpm field. Malformed lines (too few fields)
// are skipped, per §6's scanner contract.
func parseLibraryLine(line string) (LibraryEntry, bool) {
	fields := strings.Split(line, "\t")
	if len(fields) < 3 {
		return LibraryEntry{}, false
	}
	e := LibraryEntry{Path: fields[0], Artist: fields[1], Title: fields[2]}
	if len(fields) >= 4 {
		if bpm, err := strconv.ParseFloat(fields[3], 64); err == nil {
			e.BPM = bpm
			e.HasBPM = true
		}
	}
	return e, true
}
