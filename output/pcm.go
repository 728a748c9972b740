package output

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"djsync/timecode"

	"github.com/pkg/errors"
)

// PCMWriter receives mono PCM sample buffers
type PCMWriter interface {
	io.Writer
	Close() error
}

// OpenPCM picks a writer for device: empty discards, a .wav path gets a
// WAV container, anything else (raw file or FIFO) gets bare samples.
func OpenPCM(device string, f timecode.WAVFormat) (PCMWriter, error) {
	switch {
	case device == "":
		return discardPCM{}, nil
	case strings.EqualFold(filepath.Ext(device), ".wav"):
		return createWAV(device, f)
	default:
		return openRaw(device)
	}
}

type discardPCM struct{}

func (discardPCM) Write(p []byte) (int, error) { return len(p), nil }
func (discardPCM) Close() error                { return nil }

func openRaw(path string) (PCMWriter, error) {
	flags := os.O_WRONLY | os.O_CREATE | os.O_APPEND
	if fi, err := os.Stat(path); err == nil && fi.Mode()&os.ModeNamedPipe != 0 {
		// a FIFO without a reader must not block startup
		flags = os.O_WRONLY | syscall.O_NONBLOCK
	}
	f, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "open PCM device %s", path)
	}
	return f, nil
}

// wavWriter streams samples after a placeholder header and fixes the
// sizes on Close
type wavWriter struct {
	mu     sync.Mutex
	f      *os.File
	n      int64
	closed bool
}

func createWAV(path string, format timecode.WAVFormat) (PCMWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrapf(err, "create %s", path)
	}
	if err := timecode.WriteWAVHeader(f, format, 0); err != nil {
		f.Close()
		return nil, err
	}
	return &wavWriter{f: f}, nil
}

func (w *wavWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return 0, os.ErrClosed
	}
	n, err := w.f.Write(p)
	w.n += int64(n)
	return n, err
}

func (w *wavWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	if err := timecode.PatchWAVHeader(w.f, uint32(w.n)); err != nil {
		w.f.Close()
		return err
	}
	return w.f.Close()
}
