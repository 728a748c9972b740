package output

import (
	"sync"
	"time"

	"djsync/config"
	"djsync/djlink"
	"djsync/logging"
	"djsync/midi"
	"djsync/timecode"

	"github.com/sirupsen/logrus"
)

// TCSink keeps a SMPTE clock running from the first beat. With a MIDI
// device configured it also sends MTC quarter frames, four per frame.
type TCSink struct {
	log    logrus.FieldLogger
	every  *logging.Every
	format timecode.Format
	clock  *timecode.Clock
	mtc    midi.Out
	now    func() time.Time

	mu      sync.Mutex
	started bool
	piece   int
	latched timecode.Value

	loop      *loop
	closeOnce sync.Once
	closeErr  error
	failed    bool
}

// NewTCSink builds the clock and, when a device is set, starts MTC
func NewTCSink(cfg config.TCConfig, t Transports, log logrus.FieldLogger) *TCSink {
	s := newTCSink(cfg, t, log)
	if s.mtc != nil {
		fps := s.clock.FrameRate()
		s.loop.ticker(time.Second/time.Duration(fps*4), s.now, s.step)
	}
	return s
}

func newTCSink(cfg config.TCConfig, t Transports, log logrus.FieldLogger) *TCSink {
	f := timecode.Format(cfg.Format)
	s := &TCSink{
		log:    log.WithField("component", "tc"),
		every:  logging.NewEvery(30),
		format: f,
		clock:  timecode.NewClock(f),
		now:    t.Now,
		loop:   newLoop(),
	}
	if !f.Known() {
		s.log.Debugf("format %q is not a known timecode format, using %s", cfg.Format, f.Description())
	}

	if cfg.Device != "" {
		out, matched, err := t.OpenMIDI(cfg.Device)
		if err != nil {
			s.log.WithError(err).Error("MTC output unavailable")
			s.failed = true
			return s
		}
		if !matched {
			s.log.Warnf("MTC device %q not found, using %q", cfg.Device, out.Name())
		}
		s.mtc = out
		s.log.Infof("MTC on %q", out.Name())
	}

	fps, drop := f.Rate()
	if drop {
		s.log.Infof("TC initialized with framerate %d (drop-frame)", fps)
	} else {
		s.log.Infof("TC initialized with framerate %d", fps)
	}
	return s
}

func (s *TCSink) Kind() Kind { return KindTC }

// IsAvailable is false only when a configured MTC device failed to open
func (s *TCSink) IsAvailable() bool { return !s.failed }

// OnBeat drives the clock and logs each new frame
func (s *TCSink) OnBeat(b djlink.BeatInfo) {
	now := s.now()
	s.mu.Lock()
	s.started = true
	s.mu.Unlock()

	if v, advanced := s.clock.Tick(now); advanced {
		s.every.Debugf(s.log, "TC (%s): %s (BPM: %.1f)", s.format, v, b.BPM)
	}
}

// step sends the next quarter frame. The value is latched at piece 0 so
// all eight pieces describe the same frame.
func (s *TCSink) step(now time.Time) {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	if s.piece == 0 {
		s.latched, _ = s.clock.Tick(now)
	}
	msg := midi.QuarterFrameMessage(s.piece, s.latched)
	s.piece = (s.piece + 1) % 8
	s.mu.Unlock()

	if err := s.mtc.Send(msg); err != nil {
		if ok, count := s.every.Allow("mtc-error"); ok || count == 1 {
			s.log.WithError(err).Warn("MTC send failed")
		}
	}
}

// Timecode is the value last produced by the clock
func (s *TCSink) Timecode() timecode.Value {
	return s.clock.Value()
}

// Close stops MTC and releases the port
func (s *TCSink) Close() error {
	s.closeOnce.Do(func() {
		s.loop.halt()
		if s.mtc != nil {
			s.closeErr = s.mtc.Close()
		}
		s.log.Info("TC output closed")
	})
	return s.closeErr
}
