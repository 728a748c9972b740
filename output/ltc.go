package output

import (
	"sync"
	"time"

	"djsync/config"
	"djsync/djlink"
	"djsync/logging"
	"djsync/timecode"

	"github.com/sirupsen/logrus"
)

// LTCSink writes Linear Timecode audio. The timecode starts at the first
// beat and then runs on its own; every period the frames that came due
// since the last write are encoded and written out.
type LTCSink struct {
	log    logrus.FieldLogger
	every  *logging.Every
	clock  *timecode.Clock
	enc    *timecode.Encoder
	out    PCMWriter
	period time.Duration
	now    func() time.Time

	mu      sync.Mutex
	started bool
	written int64
	bpm     float64

	loop      *loop
	closeOnce sync.Once
	closeErr  error
}

// NewLTCSink opens the PCM device and starts the writer loop
func NewLTCSink(cfg config.LTCConfig, t Transports, log logrus.FieldLogger) *LTCSink {
	s := newLTCSink(cfg, t, log)
	if s.IsAvailable() {
		s.loop.ticker(s.period, s.now, s.step)
	}
	return s
}

func newLTCSink(cfg config.LTCConfig, t Transports, log logrus.FieldLogger) *LTCSink {
	s := &LTCSink{
		log:     log.WithField("component", "ltc"),
		every:   logging.NewEvery(30),
		clock:   timecode.NewClockRate(cfg.FrameRate, cfg.DropFrame),
		period:  time.Duration(cfg.PeriodMs) * time.Millisecond,
		now:     t.Now,
		written: -1,
		loop:    newLoop(),
	}
	if s.period <= 0 {
		s.period = 50 * time.Millisecond
	}

	enc, err := timecode.NewEncoder(cfg.SampleRate, cfg.BitDepth, cfg.Amplitude)
	if err != nil {
		s.log.WithError(err).Error("LTC encoder unavailable")
		return s
	}
	enc.CarrierHz = cfg.CarrierHz

	out, err := t.OpenPCM(cfg.Device, timecode.WAVFormat{SampleRate: enc.SampleRate, BitDepth: enc.BitDepth})
	if err != nil {
		s.log.WithError(err).Error("LTC output unavailable")
		return s
	}
	s.enc, s.out = enc, out

	if cfg.Device == "" {
		s.log.Infof("LTC %d fps generating without an audio device", cfg.FrameRate)
	} else {
		s.log.Infof("LTC %d fps to %s", cfg.FrameRate, cfg.Device)
	}
	return s
}

func (s *LTCSink) Kind() Kind { return KindLTC }

func (s *LTCSink) IsAvailable() bool { return s.out != nil }

// OnBeat starts the timecode on the first beat
func (s *LTCSink) OnBeat(b djlink.BeatInfo) {
	now := s.now()
	s.mu.Lock()
	s.started = true
	s.bpm = b.BPM
	s.mu.Unlock()

	if v, advanced := s.clock.Tick(now); advanced {
		s.every.Debugf(s.log, "LTC timecode: %s (BPM: %.1f)", v, b.BPM)
	}
}

// maxBacklog caps how many frames one step writes after a stall
func (s *LTCSink) maxBacklog() int64 {
	return int64(s.clock.FrameRate())
}

func (s *LTCSink) step(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return
	}

	s.clock.Tick(now)
	total := s.clock.TotalFrames()
	from := s.written + 1
	if total-from >= s.maxBacklog() {
		from = total - s.maxBacklog() + 1
	}

	fps := s.clock.FrameRate()
	for n := from; n <= total; n++ {
		v := timecode.FromFrames(n, fps, s.clock.DropFrame())
		pcm := s.enc.EncodeFrame(timecode.EncodeLTC(v), fps)
		if _, err := s.out.Write(pcm); err != nil {
			if ok, count := s.every.Allow("write-error"); ok || count == 1 {
				s.log.WithError(err).Warn("LTC write failed")
			}
			break
		}
	}
	s.written = total
}

// Timecode is the value last produced by the clock
func (s *LTCSink) Timecode() timecode.Value {
	return s.clock.Value()
}

// Close stops the writer and releases the device
func (s *LTCSink) Close() error {
	s.closeOnce.Do(func() {
		s.loop.halt()
		if s.out != nil {
			s.closeErr = s.out.Close()
		}
		s.log.Info("LTC output closed")
	})
	return s.closeErr
}
