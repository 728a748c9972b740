package midi

import (
	"time"
)

// PPQ is the MIDI clock resolution in pulses per quarter note
const PPQ = 24

// resyncAfter is how many intervals the clock may fall behind before it
// drops the backlog and restarts from now
const resyncAfter = 4

// Pulse is what a Clock asks its owner to send at one poll
type Pulse struct {
	// Beat is non-zero on the pulse that completes a quarter note and
	// holds the beat-in-measure of the last tempo update
	Beat uint8
}

// Clock schedules 24 ppqn timing pulses from the latest tempo. Each pulse
// is due one interval after the previous one was scheduled, not after it
// was sent, so polling jitter does not accumulate.
type Clock struct {
	bpm           float64
	beatInMeasure uint8
	interval      time.Duration
	last          time.Time
	running       bool
	pulses        int
}

// SetTempo updates the tempo and the beat label used for beat notes.
// Non-positive tempos are ignored.
func (c *Clock) SetTempo(bpm float64, beatInMeasure uint8) {
	if bpm <= 0 {
		return
	}
	c.bpm = bpm
	c.beatInMeasure = beatInMeasure
	c.interval = PulseInterval(bpm)
}

// BPM returns the tempo in use
func (c *Clock) BPM() float64 {
	return c.bpm
}

// Interval returns the current pulse interval, zero before any tempo
func (c *Clock) Interval() time.Duration {
	return c.interval
}

// Pulses returns how many pulses have been emitted
func (c *Clock) Pulses() int {
	return c.pulses
}

// Next returns when the next pulse is due
func (c *Clock) Next() time.Time {
	return c.last.Add(c.interval)
}

// Poll returns a pulse when one is due at now. At most one pulse is
// returned per call.
func (c *Clock) Poll(now time.Time) (Pulse, bool) {
	if c.interval <= 0 {
		return Pulse{}, false
	}
	if !c.running {
		c.running = true
		c.last = now
		return Pulse{}, false
	}
	if now.Sub(c.last) < c.interval {
		return Pulse{}, false
	}

	c.last = c.last.Add(c.interval)
	if now.Sub(c.last) > resyncAfter*c.interval {
		c.last = now
	}

	c.pulses++
	var p Pulse
	if c.pulses%PPQ == 0 {
		p.Beat = c.beatInMeasure
		if p.Beat == 0 {
			p.Beat = 1
		}
	}
	return p, true
}

// Reset stops the clock until the next poll restarts it
func (c *Clock) Reset() {
	c.running = false
	c.pulses = 0
}

// PulseInterval is 60000 / (bpm * 24) milliseconds
func PulseInterval(bpm float64) time.Duration {
	if bpm <= 0 {
		return 0
	}
	return time.Duration(float64(time.Minute) / (bpm * PPQ))
}
