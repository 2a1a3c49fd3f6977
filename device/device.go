// Package device implements the audio back-end contract of §4.5: a
// uniform start/stop/clear/run lifecycle that the realtime coordinator
// drives identically whether the underlying hardware API is
// callback-driven (hosts its own thread) or poll-driven (driven by the
// coordinator's goroutine).
package device

import "github.com/xwax-go/xwax/rt"

// SubmitFunc forwards captured input PCM to a timecoder (or any
// consumer); n is the frame count, pcm has length >= 2*n.
type SubmitFunc func(pcm []int16, n int)

// CollectFunc fills out with n frames of output PCM from a player (or
// any producer); out has length >= 2*n.
type CollectFunc func(n int, out []int16)

// Device is the contract a back-end implements. It embeds rt.Device
// so a Device can be registered directly with an rt.Coordinator.
type Device interface {
	rt.Device

	// SampleRate reports the rate actually negotiated with the
	// hardware, which may differ from a caller's preferred rate.
	SampleRate() float64
}
