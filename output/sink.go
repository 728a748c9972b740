// Package output turns the beat stream into MIDI clock, LTC audio, a
// Link-style tempo/phase and SMPTE/MTC timecode, and multiplexes beats to
// whichever of those sinks the configuration enables.
package output

import (
	"sync"
	"time"

	"djsync/djlink"
	"djsync/midi"
	"djsync/timecode"
)

// Kind names a sink type
type Kind string

const (
	KindMIDI Kind = "midi"
	KindLTC  Kind = "ltc"
	KindLink Kind = "abletonLink"
	KindTC   Kind = "tc"
)

// Kinds lists every sink type in initialization order
var Kinds = []Kind{KindMIDI, KindLTC, KindLink, KindTC}

// Sink consumes beats. OnBeat must not block.
type Sink interface {
	Kind() Kind
	OnBeat(b djlink.BeatInfo)
	IsAvailable() bool
	Close() error
}

// Transports opens the hardware a sink writes to. Tests swap these for
// fakes.
type Transports struct {
	OpenMIDI func(device string) (out midi.Out, matched bool, err error)
	OpenPCM  func(device string, f timecode.WAVFormat) (PCMWriter, error)
	Now      func() time.Time
}

// DefaultTransports uses the real MIDI driver and file system
func DefaultTransports() Transports {
	return Transports{
		OpenMIDI: midi.OpenOut,
		OpenPCM:  OpenPCM,
		Now:      time.Now,
	}
}

// loop is the stop/done pair shared by sinks with a periodic goroutine
type loop struct {
	stop     chan struct{}
	done     chan struct{}
	started  bool
	stopOnce sync.Once
}

func newLoop() *loop {
	return &loop{stop: make(chan struct{}), done: make(chan struct{})}
}

func (l *loop) start(run func()) {
	l.started = true
	go func() {
		defer close(l.done)
		run()
	}()
}

// halt stops the goroutine and waits for it; safe to call repeatedly
func (l *loop) halt() {
	l.stopOnce.Do(func() { close(l.stop) })
	if l.started {
		<-l.done
	}
}

// ticker runs step every period until halted
func (l *loop) ticker(period time.Duration, now func() time.Time, step func(time.Time)) {
	l.start(func() {
		t := time.NewTicker(period)
		defer t.Stop()
		for {
			select {
			case <-l.stop:
				return
			case <-t.C:
				step(now())
			}
		}
	})
}
