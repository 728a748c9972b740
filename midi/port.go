package midi

import (
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // Register MIDI driver
)

// scanTimeout bounds a port listing; CoreMIDI can hang indefinitely
const scanTimeout = 3 * time.Second

var (
	// ErrNoPorts means the driver reports no output ports at all
	ErrNoPorts = errors.New("no MIDI output ports available")
	// ErrScanTimeout means the driver did not answer in time
	ErrScanTimeout = errors.New("MIDI port scan timed out")
)

// Out is an open MIDI output
type Out interface {
	Send(msg gomidi.Message) error
	Name() string
	Close() error
}

// Ports is a snapshot of the driver's port names
type Ports struct {
	Ins  []string
	Outs []string
}

type scanResult struct {
	ins  []drivers.In
	outs []drivers.Out
}

func scan() (scanResult, error) {
	ch := make(chan scanResult, 1)
	go func() {
		ch <- scanResult{ins: gomidi.GetInPorts(), outs: gomidi.GetOutPorts()}
	}()

	select {
	case r := <-ch:
		return r, nil
	case <-time.After(scanTimeout):
		// User needs to run: sudo killall coreaudiod midiserver
		return scanResult{}, ErrScanTimeout
	}
}

// ListPorts returns the names of every input and output port
func ListPorts() (Ports, error) {
	r, err := scan()
	if err != nil {
		return Ports{}, err
	}
	var p Ports
	for _, in := range r.ins {
		p.Ins = append(p.Ins, in.String())
	}
	for _, out := range r.outs {
		p.Outs = append(p.Outs, out.String())
	}
	return p, nil
}

// MatchPort picks the port for want: the first name containing it
// (case-insensitive), or the first port when want is empty or matches
// nothing. matched reports whether want was found.
func MatchPort(names []string, want string) (idx int, matched bool) {
	if len(names) == 0 {
		return -1, false
	}
	if want == "" {
		return 0, true
	}
	lw := strings.ToLower(want)
	for i, n := range names {
		if strings.Contains(strings.ToLower(n), lw) {
			return i, true
		}
	}
	return 0, false
}

// OpenOut opens the output port selected by MatchPort. When want names a
// port that is not present the first port is opened and matched is false.
func OpenOut(want string) (out Out, matched bool, err error) {
	r, err := scan()
	if err != nil {
		return nil, false, err
	}
	names := make([]string, len(r.outs))
	for i, o := range r.outs {
		names[i] = o.String()
	}
	idx, matched := MatchPort(names, want)
	if idx < 0 {
		return nil, false, ErrNoPorts
	}

	port := r.outs[idx]
	send, err := gomidi.SendTo(port)
	if err != nil {
		return nil, false, errors.Wrapf(err, "open output %q", port.String())
	}
	return &portOut{port: port, send: send}, matched, nil
}

type portOut struct {
	port drivers.Out
	send func(msg gomidi.Message) error

	mu     sync.Mutex
	closed bool
}

func (p *portOut) Send(msg gomidi.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return errors.New("port closed")
	}
	return p.send(msg)
}

func (p *portOut) Name() string {
	return p.port.String()
}

func (p *portOut) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.port.Close()
}

// CloseDriver releases the MIDI driver at process exit
func CloseDriver() {
	gomidi.CloseDriver()
}
