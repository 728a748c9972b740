package djlink

import (
	"context"
	"fmt"
	"net"
	"sort"
	"sync"
	"time"

	"djsync/logging"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// ErrBind is the cause of any listener bind failure
var ErrBind = errors.New("binding DJ Link listener")

// Options tunes ports and timers. The zero value is not usable, start from
// DefaultOptions.
type Options struct {
	ListenHost   string // empty = all addresses, needed to receive broadcasts
	AnnouncePort int
	BeatPort     int
	StatusPort   int

	KeepaliveInterval time.Duration
	SweepInterval     time.Duration
	DeviceTimeout     time.Duration
}

// DefaultOptions returns the protocol ports and timer cadences
func DefaultOptions() Options {
	return Options{
		AnnouncePort:      AnnouncePort,
		BeatPort:          BeatPort,
		StatusPort:        StatusPort,
		KeepaliveInterval: 1500 * time.Millisecond,
		SweepInterval:     2000 * time.Millisecond,
		DeviceTimeout:     5000 * time.Millisecond,
	}
}

// Identity returns the name and player number we announce ourselves with.
// It is called on every keepalive so config changes take effect.
type Identity func() (deviceName string, playerNumber uint8)

type listener int

const (
	listenAnnounce listener = iota
	listenStatus
	listenBeat
)

func (l listener) String() string {
	return [...]string{"announce", "status", "beat"}[l]
}

type packet struct {
	kind listener
	data []byte
	from net.IP
}

// Manager tracks devices, the tempo master and beats on a DJ Link network.
// All state changes happen on the goroutine running Run; snapshot getters
// are safe to call from anywhere.
type Manager struct {
	iface    Interface
	opts     Options
	identity Identity
	log      logrus.FieldLogger
	every    *logging.Every
	now      func() time.Time

	mu        sync.RWMutex
	devices   map[string]Device
	master    uint8
	hasMaster bool
	lastBeat  BeatInfo
	hasBeat   bool

	conns    [3]*net.UDPConn
	packets  chan packet
	events   chan Event
	stop     chan struct{}
	stopOnce sync.Once
	stopped  bool

	eventsOnce sync.Once
}

// NewManager creates a registry bound to iface. Call Listen then Run.
func NewManager(iface Interface, opts Options, identity Identity, log logrus.FieldLogger) *Manager {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Manager{
		iface:    iface,
		opts:     opts,
		identity: identity,
		log:      log.WithField("component", "djlink"),
		every:    logging.NewEvery(50),
		now:      time.Now,
		devices:  make(map[string]Device),
		packets:  make(chan packet, 64),
		events:   make(chan Event, 64),
		stop:     make(chan struct{}),
	}
}

// Events returns the channel of registry events. It is closed when Run returns.
func (m *Manager) Events() <-chan Event {
	return m.events
}

// Listen binds the announce, status and beat sockets. Any failure closes
// whatever was opened and returns an error wrapping ErrBind.
func (m *Manager) Listen() error {
	ports := [3]int{
		listenAnnounce: m.opts.AnnouncePort,
		listenStatus:   m.opts.StatusPort,
		listenBeat:     m.opts.BeatPort,
	}
	for i, port := range ports {
		addr := &net.UDPAddr{IP: net.ParseIP(m.opts.ListenHost), Port: port}
		conn, err := net.ListenUDP("udp4", addr)
		if err != nil {
			m.closeConns()
			return errors.Wrapf(ErrBind, "%s port %d: %v", listener(i), port, err)
		}
		m.mu.Lock()
		if m.stopped {
			m.mu.Unlock()
			conn.Close()
			m.closeConns()
			return errors.New("manager stopped")
		}
		m.conns[i] = conn
		m.mu.Unlock()
		m.log.Infof("%s socket ready on port %d", listener(i), port)
	}
	return nil
}

// localAddr returns the bound address of a listener (for tests using port 0)
func (m *Manager) localAddr(l listener) net.Addr {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if c := m.conns[l]; c != nil {
		return c.LocalAddr()
	}
	return nil
}

// Run reads packets and drives the sweep and keepalive timers until ctx is
// cancelled or Stop is called (blocking - run in goroutine). Once Stop has
// been called Run returns nil straight away without binding anything.
func (m *Manager) Run(ctx context.Context) error {
	defer m.closeEvents()

	select {
	case <-m.stop:
		return nil
	default:
	}
	if m.localAddr(listenAnnounce) == nil {
		if err := m.Listen(); err != nil {
			select {
			case <-m.stop:
				return nil
			default:
			}
			return err
		}
	}

	m.mu.RLock()
	conns := m.conns
	m.mu.RUnlock()
	for _, c := range conns {
		if c == nil {
			// stopped while binding
			return nil
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, conn := range conns {
		kind, conn := listener(i), conn
		g.Go(func() error {
			m.readLoop(conn, kind)
			return nil
		})
	}
	g.Go(func() error {
		defer m.Stop()
		return m.loop(gctx)
	})

	m.log.Infof("DJ Link manager running on %s (%s)", m.iface.Name, m.iface.Address)
	return g.Wait()
}

// Stop closes the sockets and ends Run. Safe to call more than once.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.stop)
		m.mu.Lock()
		m.stopped = true
		m.mu.Unlock()
		m.closeConns()
		m.log.Info("DJ Link manager stopped")
	})
}

func (m *Manager) closeEvents() {
	m.eventsOnce.Do(func() { close(m.events) })
}

func (m *Manager) closeConns() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, c := range m.conns {
		if c != nil {
			c.Close()
			m.conns[i] = nil
		}
	}
}

func (m *Manager) readLoop(conn *net.UDPConn, kind listener) {
	buf := make([]byte, 2048)
	for {
		n, from, err := conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-m.stop:
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			m.log.WithError(err).Warnf("%s socket read", kind)
			continue
		}
		p := packet{kind: kind, data: append([]byte(nil), buf[:n]...), from: from.IP}
		select {
		case m.packets <- p:
		case <-m.stop:
			return
		}
	}
}

func (m *Manager) loop(ctx context.Context) error {
	keepalive := time.NewTicker(m.opts.KeepaliveInterval)
	sweep := time.NewTicker(m.opts.SweepInterval)
	defer keepalive.Stop()
	defer sweep.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-m.stop:
			return nil
		case p := <-m.packets:
			switch p.kind {
			case listenAnnounce:
				m.HandleAnnounce(p.data, p.from)
			case listenStatus:
				m.HandleStatus(p.data, p.from)
			case listenBeat:
				m.HandleBeat(p.data, p.from)
			}
		case <-sweep.C:
			m.Sweep()
		case <-keepalive.C:
			m.sendKeepalive()
		}
	}
}

func deviceKey(addr string, id uint8) string {
	return fmt.Sprintf("%s:%d", addr, id)
}

// HandleAnnounce registers a new device or refreshes a known one
func (m *Manager) HandleAnnounce(raw []byte, from net.IP) {
	dev, ok := ParseAnnounce(raw)
	if !ok || m.isSelf(from, dev.ID) {
		return
	}
	dev.Address = from.String()
	dev.LastSeen = m.now()
	key := deviceKey(dev.Address, dev.ID)

	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	existing, known := m.devices[key]
	if known {
		existing.LastSeen = dev.LastSeen
		m.devices[key] = existing
		m.mu.Unlock()
		return
	}
	m.devices[key] = dev
	m.mu.Unlock()

	m.log.Infof("new DJ device: %s (ID: %d, IP: %s)", dev.Name, dev.ID, dev.Address)
	m.emit(Event{Type: DeviceConnected, Device: dev})
}

// HandleStatus refreshes a known device and tracks tempo master election.
// Status from a device that never announced is ignored.
func (m *Manager) HandleStatus(raw []byte, from net.IP) {
	st, ok := ParseStatus(raw)
	if !ok {
		return
	}
	key := deviceKey(from.String(), st.DeviceID)

	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	dev, known := m.devices[key]
	if !known {
		m.mu.Unlock()
		return
	}
	dev.LastSeen = m.now()
	m.devices[key] = dev

	changed := st.Master && (!m.hasMaster || m.master != st.DeviceID)
	if changed {
		m.master = st.DeviceID
		m.hasMaster = true
	}
	m.mu.Unlock()

	if changed {
		m.log.Infof("new tempo master: %s (ID: %d)", dev.Name, st.DeviceID)
		m.emit(Event{Type: MasterChanged, MasterID: st.DeviceID})
	}
}

// HandleBeat records the beat as the latest and emits it. Beats from every
// device are emitted, not only the master's.
func (m *Manager) HandleBeat(raw []byte, from net.IP) {
	beat, ok := ParseBeat(raw)
	if !ok {
		return
	}
	beat.Timestamp = m.now()

	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.lastBeat = beat
	m.hasBeat = true
	m.mu.Unlock()

	m.every.Debugf(m.log, "beat from %d: BPM=%.2f, beat=%d", beat.DeviceID, beat.BPM, beat.BeatInMeasure)
	m.emit(Event{Type: Beat, Beat: beat})
}

// Sweep evicts devices idle for longer than the device timeout
func (m *Manager) Sweep() {
	now := m.now()
	var stale []Device

	m.mu.Lock()
	for key, dev := range m.devices {
		if now.Sub(dev.LastSeen) > m.opts.DeviceTimeout {
			stale = append(stale, dev)
			delete(m.devices, key)
		}
	}
	m.mu.Unlock()

	sortDevices(stale)
	for _, dev := range stale {
		m.log.Infof("device disconnected: %s (ID: %d)", dev.Name, dev.ID)
		m.emit(Event{Type: DeviceDisconnected, Device: dev})
	}
}

func (m *Manager) sendKeepalive() {
	m.mu.RLock()
	conn := m.conns[listenAnnounce]
	m.mu.RUnlock()
	if conn == nil || m.identity == nil {
		return
	}
	bcast := m.iface.Broadcast()
	if bcast == nil {
		return
	}
	name, player := m.identity()
	pkt := BuildKeepalive(name, player)
	addr := &net.UDPAddr{IP: bcast, Port: m.opts.AnnouncePort}
	if _, err := conn.WriteToUDP(pkt, addr); err != nil {
		m.log.WithError(err).Warnf("sending keepalive to %s", addr)
	}
}

// isSelf filters our own keepalive echoed back on the announce socket
func (m *Manager) isSelf(from net.IP, id uint8) bool {
	if m.identity == nil || m.iface.Address == nil || !from.Equal(m.iface.Address) {
		return false
	}
	_, player := m.identity()
	return id == player
}

func (m *Manager) emit(e Event) {
	select {
	case m.events <- e:
	case <-m.stop:
	}
}

// GetDevices returns a snapshot of known devices ordered by address and id
func (m *Manager) GetDevices() []Device {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Device, 0, len(m.devices))
	for _, d := range m.devices {
		out = append(out, d)
	}
	sortDevices(out)
	return out
}

// GetCurrentMaster returns the elected tempo master id, if any
func (m *Manager) GetCurrentMaster() (uint8, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.master, m.hasMaster
}

// GetLastBeatInfo returns the most recently decoded beat, if any
func (m *Manager) GetLastBeatInfo() (BeatInfo, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastBeat, m.hasBeat
}

func sortDevices(devs []Device) {
	sort.Slice(devs, func(i, j int) bool {
		if devs[i].Address != devs[j].Address {
			return devs[i].Address < devs[j].Address
		}
		return devs[i].ID < devs[j].ID
	})
}
