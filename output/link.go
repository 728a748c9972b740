package output

import (
	"math"
	"sync"
	"time"

	"djsync/config"
	"djsync/djlink"
	"djsync/logging"

	"github.com/sirupsen/logrus"
)

// defaultLinkTempo is the simulator tempo before any beat arrives
const defaultLinkTempo = 120.0

// LinkState is one reading of the simulated Link session
type LinkState struct {
	Tempo   float64 `json:"tempo"`
	Phase   float64 `json:"phase"` // 0..1 through the bar
	Beat    int     `json:"beat"`  // 0-based beat inside the bar
	Quantum float64 `json:"quantum"`
}

// LinkSink simulates an Ableton Link peer. Beats snap the phase to the
// beat position; between beats the phase runs freely at the last tempo.
type LinkSink struct {
	log    logrus.FieldLogger
	every  *logging.Every
	period time.Duration
	now    func() time.Time

	mu      sync.Mutex
	tempo   float64
	phase   float64
	quantum float64
	last    time.Time

	loop      *loop
	closeOnce sync.Once
}

// NewLinkSink starts the phase update loop
func NewLinkSink(cfg config.LinkConfig, t Transports, log logrus.FieldLogger) *LinkSink {
	s := newLinkSink(cfg, t, log)
	s.loop.ticker(s.period, s.now, s.advance)
	return s
}

func newLinkSink(cfg config.LinkConfig, t Transports, log logrus.FieldLogger) *LinkSink {
	s := &LinkSink{
		log:     log.WithField("component", "link"),
		every:   logging.NewEvery(25),
		period:  time.Duration(cfg.UpdateMs) * time.Millisecond,
		now:     t.Now,
		tempo:   defaultLinkTempo,
		quantum: cfg.Quantum,
		last:    t.Now(),
		loop:    newLoop(),
	}
	if s.period <= 0 {
		s.period = 200 * time.Millisecond
	}
	if s.quantum <= 0 {
		s.quantum = 4
	}
	s.log.Infof("Ableton Link (simulated) with quantum %g", s.quantum)
	return s
}

func (s *LinkSink) Kind() Kind { return KindLink }

// IsAvailable is always true, the simulator needs no hardware
func (s *LinkSink) IsAvailable() bool { return true }

// OnBeat takes the tempo and snaps the phase to the beat position
func (s *LinkSink) OnBeat(b djlink.BeatInfo) {
	now := s.now()
	s.mu.Lock()
	if b.BPM > 0 {
		s.tempo = b.BPM
	}
	if b.BeatInMeasure >= 1 {
		s.phase = math.Mod(float64(b.BeatInMeasure-1)/s.quantum, 1)
	}
	s.last = now
	st := s.stateLocked()
	s.mu.Unlock()

	s.every.Debugf(s.log, "Link sync: BPM=%.2f beat=%d phase=%.2f", st.Tempo, st.Beat, st.Phase)
}

// advance moves the phase on by the beats elapsed since the last update
func (s *LinkSink) advance(now time.Time) {
	s.mu.Lock()
	elapsed := now.Sub(s.last).Seconds()
	if elapsed > 0 {
		beats := elapsed * s.tempo / 60
		s.phase = math.Mod(s.phase+beats/s.quantum, 1)
		s.last = now
	}
	st := s.stateLocked()
	s.mu.Unlock()

	s.every.Debugf(s.log, "Link simulation: beat=%d phase=%.2f tempo=%.1f", st.Beat, st.Phase, st.Tempo)
}

func (s *LinkSink) stateLocked() LinkState {
	return LinkState{
		Tempo:   s.tempo,
		Phase:   s.phase,
		Beat:    int(math.Floor(s.phase * s.quantum)),
		Quantum: s.quantum,
	}
}

// State returns the current tempo and phase
func (s *LinkSink) State() LinkState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

// Close stops the update loop
func (s *LinkSink) Close() error {
	s.closeOnce.Do(func() {
		s.loop.halt()
		s.log.Info("Ableton Link output closed")
	})
	return nil
}
