package timecode

import (
	"math"
	"sync"
	"time"
)

// Clock is a free-running frame counter driven by wall-clock time. It
// starts at 00:00:00:00 on the first Tick, not at construction.
//
// Drop-frame formats count at 30 fps. The frame-skip rule only applies
// when a count is turned into a label, in FromFrames.
type Clock struct {
	mu        sync.Mutex
	fps       int
	dropFrame bool
	start     time.Time
	started   bool
	lastFrame int64
	value     Value
}

// NewClock creates a clock for the given format
func NewClock(f Format) *Clock {
	fps, drop := f.Rate()
	return NewClockRate(fps, drop)
}

// NewClockRate creates a clock counting at fps
func NewClockRate(fps int, drop bool) *Clock {
	return &Clock{
		fps:       fps,
		dropFrame: drop,
		lastFrame: -1,
		value:     Zero(fps, drop),
	}
}

// Tick updates the clock from now and returns the current value. advanced
// is true only when a new frame boundary was crossed since the last Tick.
func (c *Clock) Tick(now time.Time) (v Value, advanced bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.started {
		c.start = now
		c.started = true
	}
	total := c.framesAt(now)
	if total > c.lastFrame {
		c.lastFrame = total
		c.value = FromFrames(total, c.fps, c.dropFrame)
		advanced = true
	}
	return c.value, advanced
}

func (c *Clock) framesAt(now time.Time) int64 {
	elapsed := now.Sub(c.start).Seconds()
	if elapsed < 0 {
		return 0
	}
	return int64(math.Floor(elapsed * float64(c.fps)))
}

// Value returns the last computed value without advancing
func (c *Clock) Value() Value {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

// TotalFrames returns the frame count at the last Tick, -1 before the first
func (c *Clock) TotalFrames() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastFrame
}

// Started reports whether the clock has been driven yet
func (c *Clock) Started() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.started
}

// FrameRate returns the counting frame rate
func (c *Clock) FrameRate() int {
	return c.fps
}

// DropFrame reports whether values carry the drop-frame flag
func (c *Clock) DropFrame() bool {
	return c.dropFrame
}

// Reset returns the clock to its unstarted state
func (c *Clock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.started = false
	c.lastFrame = -1
	c.value = Zero(c.fps, c.dropFrame)
}
