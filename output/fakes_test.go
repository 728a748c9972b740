package output

import (
	"bytes"
	"errors"
	"io"
	"sync"
	"time"

	"djsync/midi"
	"djsync/timecode"

	"github.com/sirupsen/logrus"
	gomidi "gitlab.com/gomidi/midi/v2"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 4, 18, 22, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

type fakeOut struct {
	name string

	mu     sync.Mutex
	sent   [][]byte
	err    error
	closed int
}

func (f *fakeOut) Send(msg gomidi.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, append([]byte(nil), msg...))
	return nil
}

func (f *fakeOut) Name() string { return f.name }

func (f *fakeOut) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

func (f *fakeOut) Sent() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.sent...)
}

func (f *fakeOut) Closed() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

type fakePCM struct {
	mu     sync.Mutex
	buf    bytes.Buffer
	err    error
	closed bool
}

func (p *fakePCM) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return 0, p.err
	}
	return p.buf.Write(b)
}

func (p *fakePCM) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *fakePCM) Bytes() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]byte(nil), p.buf.Bytes()...)
}

var errNoDevice = errors.New("no such device")

// rig is a set of fake transports plus what they handed out
type rig struct {
	clock   *fakeClock
	outs    map[string]*fakeOut
	pcm     *fakePCM
	midiErr error
}

func newRig() *rig {
	return &rig{clock: newFakeClock(), outs: make(map[string]*fakeOut), pcm: &fakePCM{}}
}

func (r *rig) transports() Transports {
	return Transports{
		OpenMIDI: func(device string) (midi.Out, bool, error) {
			if r.midiErr != nil {
				return nil, false, r.midiErr
			}
			o := &fakeOut{name: "Fake Port " + device}
			r.outs[device] = o
			return o, device != "missing", nil
		},
		OpenPCM: func(string, timecode.WAVFormat) (PCMWriter, error) {
			return r.pcm, nil
		},
		Now: r.clock.Now,
	}
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
