package output

import (
	"context"
	"sync"

	"djsync/config"
	"djsync/djlink"
	"djsync/timecode"

	"github.com/sirupsen/logrus"
)

// ConfigSource hands out read-only config snapshots
type ConfigSource interface {
	Snapshot() config.Config
}

// MasterSource reports the current tempo master, if any
type MasterSource interface {
	GetCurrentMaster() (uint8, bool)
}

// Status reports one sink kind for status screens
type Status struct {
	Kind      Kind `json:"kind"`
	Enabled   bool `json:"enabled"`
	Available bool `json:"available"`
}

// Manager holds at most one sink per kind and fans beats out to them.
// Sinks that fail to initialize are closed and left out until the next
// Reload.
type Manager struct {
	cfg        ConfigSource
	master     MasterSource
	transports Transports
	log        logrus.FieldLogger

	mu         sync.RWMutex
	sinks      map[Kind]Sink
	status     map[Kind]Status
	masterOnly bool
	closed     bool
}

// NewManager creates an empty manager; call InitOutputs to build sinks.
// master may be nil when master-only filtering is never used.
func NewManager(cfg ConfigSource, master MasterSource, t Transports, log logrus.FieldLogger) *Manager {
	return &Manager{
		cfg:        cfg,
		master:     master,
		transports: t,
		log:        log.WithField("component", "output"),
		sinks:      make(map[Kind]Sink),
		status:     make(map[Kind]Status),
	}
}

// InitOutputs builds every enabled sink from the current config
func (m *Manager) InitOutputs() {
	snap := m.cfg.Snapshot()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.masterOnly = snap.DJLink.MasterOnly
	m.initLocked(snap)
}

func (m *Manager) initLocked(snap config.Config) {
	o := snap.Outputs
	enabled := map[Kind]bool{
		KindMIDI: o.MIDI.Enabled,
		KindLTC:  o.LTC.Enabled,
		KindLink: o.AbletonLink.Enabled,
		KindTC:   o.TC.Enabled,
	}

	for _, k := range Kinds {
		st := Status{Kind: k, Enabled: enabled[k]}
		if !st.Enabled {
			m.status[k] = st
			continue
		}

		var s Sink
		switch k {
		case KindMIDI:
			s = NewMIDISink(o.MIDI, m.transports, m.log)
		case KindLTC:
			s = NewLTCSink(o.LTC, m.transports, m.log)
		case KindLink:
			s = NewLinkSink(o.AbletonLink, m.transports, m.log)
		case KindTC:
			s = NewTCSink(o.TC, m.transports, m.log)
		}

		if s.IsAvailable() {
			m.sinks[k] = s
			st.Available = true
			m.log.Infof("%s output initialized", k)
		} else {
			m.log.Warnf("%s output is not available", k)
			s.Close()
		}
		m.status[k] = st
	}
}

// HandleBeat passes b to every live sink. With master-only set, beats
// from other devices are dropped once a master is known.
func (m *Manager) HandleBeat(b djlink.BeatInfo) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return
	}
	if m.masterOnly && m.master != nil {
		if id, ok := m.master.GetCurrentMaster(); ok && id != b.DeviceID {
			return
		}
	}
	for _, k := range Kinds {
		if s, ok := m.sinks[k]; ok {
			s.OnBeat(b)
		}
	}
}

// Reload closes every sink and rebuilds from the latest config
func (m *Manager) Reload() {
	snap := m.cfg.Snapshot()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.log.Info("reloading outputs")
	m.closeLocked()
	m.masterOnly = snap.DJLink.MasterOnly
	m.initLocked(snap)
}

func (m *Manager) closeLocked() {
	for _, k := range Kinds {
		s, ok := m.sinks[k]
		if !ok {
			continue
		}
		if err := s.Close(); err != nil {
			m.log.WithError(err).Warnf("closing %s output", k)
		}
		delete(m.sinks, k)
	}
	m.status = make(map[Kind]Status)
}

// CloseAll shuts every sink down. Later calls do nothing.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	m.closeLocked()
	m.log.Info("all outputs closed")
}

// Status lists every kind in a fixed order
func (m *Manager) Status() []Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Status, 0, len(Kinds))
	for _, k := range Kinds {
		st, ok := m.status[k]
		if !ok {
			st = Status{Kind: k}
		}
		out = append(out, st)
	}
	return out
}

// LinkState reads the Link simulator when it is running
func (m *Manager) LinkState() (LinkState, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.sinks[KindLink].(*LinkSink); ok {
		return s.State(), true
	}
	return LinkState{}, false
}

// Timecode reads the TC clock, or the LTC clock when TC is off
func (m *Manager) Timecode() (timecode.Value, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, k := range []Kind{KindTC, KindLTC} {
		if s, ok := m.sinks[k].(interface{ Timecode() timecode.Value }); ok {
			return s.Timecode(), true
		}
	}
	return timecode.Value{}, false
}

// Run consumes registry events until ctx ends or the channel closes
func (m *Manager) Run(ctx context.Context, events <-chan djlink.Event) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case e, ok := <-events:
			if !ok {
				return nil
			}
			m.handleEvent(e)
		}
	}
}

func (m *Manager) handleEvent(e djlink.Event) {
	if e.Type == djlink.Beat {
		m.HandleBeat(e.Beat)
		return
	}
	m.log.WithField("event", e.Type).Debug("registry event")
}
