package output

import (
	"runtime"
	"sync"
	"time"

	"djsync/config"
	"djsync/djlink"
	"djsync/logging"
	"djsync/midi"

	"github.com/sirupsen/logrus"
	gomidi "gitlab.com/gomidi/midi/v2"
)

// idleWait is how long the clock loop sleeps while no tempo is known
const idleWait = 10 * time.Millisecond

// MIDISink sends 24 ppqn timing clock plus a note on every quarter
type MIDISink struct {
	log     logrus.FieldLogger
	every   *logging.Every
	out     midi.Out
	channel uint8
	now     func() time.Time

	mu      sync.Mutex
	clock   midi.Clock
	running bool

	loop      *loop
	closeOnce sync.Once
	closeErr  error
}

// NewMIDISink opens the configured port and starts the clock loop. On a
// transport failure the sink is returned unavailable.
func NewMIDISink(cfg config.MIDIConfig, t Transports, log logrus.FieldLogger) *MIDISink {
	s := newMIDISink(cfg, t, log)
	if s.out != nil {
		s.loop.start(s.run)
	}
	return s
}

func newMIDISink(cfg config.MIDIConfig, t Transports, log logrus.FieldLogger) *MIDISink {
	s := &MIDISink{
		log:     log.WithField("component", "midi"),
		every:   logging.NewEvery(96),
		channel: uint8(cfg.Channel - 1),
		now:     t.Now,
		loop:    newLoop(),
	}
	out, matched, err := t.OpenMIDI(cfg.Device)
	if err != nil {
		s.log.WithError(err).Error("MIDI output unavailable")
		return s
	}
	if cfg.Device != "" && !matched {
		s.log.Warnf("MIDI device %q not found, using %q", cfg.Device, out.Name())
	}
	s.log.Infof("MIDI clock on %q channel %d", out.Name(), cfg.Channel)
	s.out = out
	return s
}

func (s *MIDISink) Kind() Kind { return KindMIDI }

func (s *MIDISink) IsAvailable() bool { return s.out != nil }

// OnBeat updates the tempo the clock loop runs at
func (s *MIDISink) OnBeat(b djlink.BeatInfo) {
	if b.BPM <= 0 {
		return
	}
	s.mu.Lock()
	s.clock.SetTempo(b.BPM, b.BeatInMeasure)
	s.mu.Unlock()
	s.every.Debugf(s.log, "MIDI sync: BPM=%.2f beat=%d", b.BPM, b.BeatInMeasure)
}

func (s *MIDISink) run() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	for {
		wait := s.step(s.now())
		timer := time.NewTimer(wait)
		select {
		case <-s.loop.stop:
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// step sends whatever is due at now and returns how long to sleep
func (s *MIDISink) step(now time.Time) time.Duration {
	s.mu.Lock()
	pulse, due := s.clock.Poll(now)
	interval := s.clock.Interval()
	next := s.clock.Next()
	startNow := interval > 0 && !s.running
	if startNow {
		s.running = true
	}
	s.mu.Unlock()

	if startNow {
		s.send(midi.Realtime(midi.Start))
	}
	if due {
		s.send(midi.Realtime(midi.TimingClock))
		if pulse.Beat != 0 {
			on := midi.BeatNote(s.channel, pulse.Beat)
			s.send(on.Message())
			s.send(on.Off().Message())
		}
	}

	if interval <= 0 {
		return idleWait
	}
	if wait := next.Sub(now); wait > 0 {
		return wait
	}
	return 0
}

// send logs a failed write and carries on; the next pulse is the retry
func (s *MIDISink) send(msg gomidi.Message) {
	if err := s.out.Send(msg); err != nil {
		if ok, count := s.every.Allow("send-error"); ok || count == 1 {
			s.log.WithError(err).Warn("MIDI send failed")
		}
	}
}

// Close stops the clock and releases the port
func (s *MIDISink) Close() error {
	s.closeOnce.Do(func() {
		s.loop.halt()
		if s.out == nil {
			return
		}
		s.mu.Lock()
		running := s.running
		s.running = false
		s.mu.Unlock()
		if running {
			s.send(midi.Realtime(midi.Stop))
		}
		s.closeErr = s.out.Close()
		s.log.Info("MIDI output closed")
	})
	return s.closeErr
}
