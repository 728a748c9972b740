// Package logging builds the process logger and the small helpers the
// real-time loops use to keep high-frequency messages down.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// New returns a logger writing to out at level ("" means info)
func New(level string, out io.Writer) (*logrus.Logger, error) {
	l := logrus.New()
	l.SetOutput(out)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05.000",
	})
	if level == "" {
		level = "info"
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, errors.Wrapf(err, "log level %q", level)
	}
	l.SetLevel(lvl)
	return l, nil
}

// OpenFile truncates and opens a log file, creating its directory
func OpenFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.Wrap(err, "create log dir")
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, errors.Wrap(err, "open log file")
	}
	return f, nil
}

// Every lets through only every Nth call per key. Use it for per-beat and
// per-frame messages.
type Every struct {
	n int

	mu     sync.Mutex
	counts map[string]int
}

// NewEvery creates a limiter passing one call in n
func NewEvery(n int) *Every {
	if n < 1 {
		n = 1
	}
	return &Every{n: n, counts: make(map[string]int)}
}

// Allow counts a call for key and reports whether it should be logged
func (e *Every) Allow(key string) (bool, int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.counts[key]++
	c := e.counts[key]
	return c%e.n == 0, c
}

// Debugf logs at debug level every Nth call with the same format
func (e *Every) Debugf(log logrus.FieldLogger, format string, args ...any) {
	if ok, count := e.Allow(format); ok {
		log.WithFields(logrus.Fields{"every": e.n, "count": count}).Debugf(format, args...)
	}
}

// Ring keeps the last lines written to it. It is an io.Writer so the
// logger can feed a status screen directly.
type Ring struct {
	mu    sync.Mutex
	size  int
	lines []string
}

// NewRing keeps up to size lines
func NewRing(size int) *Ring {
	return &Ring{size: size}
}

func (r *Ring) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, line := range strings.Split(strings.TrimRight(string(p), "\n"), "\n") {
		if line == "" {
			continue
		}
		r.lines = append(r.lines, line)
	}
	if over := len(r.lines) - r.size; over > 0 {
		r.lines = append(r.lines[:0], r.lines[over:]...)
	}
	return len(p), nil
}

// Lines returns a copy of the buffered lines, oldest first
func (r *Ring) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.lines...)
}
