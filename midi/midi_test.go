package midi

import (
	"testing"
	"time"

	"djsync/timecode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPulseInterval(t *testing.T) {
	// 60000 / (120 * 24) ms
	assert.Equal(t, time.Duration(20833333), PulseInterval(120))
	assert.Equal(t, time.Duration(0), PulseInterval(0))
	assert.Equal(t, time.Duration(0), PulseInterval(-5))
}

func TestClockWaitsForTempo(t *testing.T) {
	var c Clock
	_, ok := c.Poll(time.Now())
	assert.False(t, ok)

	c.SetTempo(0, 1)
	assert.Equal(t, time.Duration(0), c.Interval())
}

func TestClockEmitsPulsesOnSchedule(t *testing.T) {
	var c Clock
	c.SetTempo(125, 1) // 20ms per pulse
	t0 := time.Date(2025, 4, 18, 21, 0, 0, 0, time.UTC)

	_, ok := c.Poll(t0)
	assert.False(t, ok, "first poll only starts the clock")

	_, ok = c.Poll(t0.Add(19 * time.Millisecond))
	assert.False(t, ok)
	_, ok = c.Poll(t0.Add(20 * time.Millisecond))
	assert.True(t, ok)

	// a late poll does not shift the schedule
	_, ok = c.Poll(t0.Add(45 * time.Millisecond))
	assert.True(t, ok)
	assert.Equal(t, t0.Add(60*time.Millisecond), c.Next())
}

func TestClockBeatEveryTwentyFourPulses(t *testing.T) {
	var c Clock
	c.SetTempo(125, 3)
	t0 := time.Date(2025, 4, 18, 21, 0, 0, 0, time.UTC)
	c.Poll(t0)

	var beats []int
	for i := 1; i <= 48; i++ {
		p, ok := c.Poll(t0.Add(time.Duration(i) * 20 * time.Millisecond))
		require.True(t, ok, "pulse %d", i)
		if p.Beat != 0 {
			beats = append(beats, i)
			assert.Equal(t, uint8(3), p.Beat)
		}
	}
	assert.Equal(t, []int{24, 48}, beats)
	assert.Equal(t, 48, c.Pulses())
}

func TestClockResyncsWhenFarBehind(t *testing.T) {
	var c Clock
	c.SetTempo(125, 1)
	t0 := time.Date(2025, 4, 18, 21, 0, 0, 0, time.UTC)
	c.Poll(t0)

	late := t0.Add(time.Second)
	_, ok := c.Poll(late)
	assert.True(t, ok)
	assert.Equal(t, late.Add(20*time.Millisecond), c.Next())
}

func TestBeatNote(t *testing.T) {
	on := BeatNote(0, 1)
	assert.Equal(t, Event{Type: NoteOn, Note: 36, Velocity: 127}, on)
	assert.Equal(t, []byte{0x90, 36, 127}, []byte(on.Message()))
	assert.Equal(t, []byte{0x80, 36, 0}, []byte(on.Off().Message()))

	on = BeatNote(9, 4)
	assert.Equal(t, uint8(39), on.Note)
	assert.Equal(t, uint8(100), on.Velocity)
	assert.Equal(t, byte(0x99), on.Message()[0])
}

func TestRealtime(t *testing.T) {
	assert.Equal(t, []byte{0xF8}, []byte(Realtime(TimingClock)))
}

func TestQuarterFrames(t *testing.T) {
	v := timecode.Value{Hours: 17, Minutes: 42, Seconds: 31, Frames: 23, FrameRate: 25}
	var got []byte
	for piece := 0; piece < 8; piece++ {
		msg := QuarterFrameMessage(piece, v)
		require.Len(t, msg, 2)
		assert.Equal(t, QuarterFrame, msg[0])
		got = append(got, msg[1])
	}
	assert.Equal(t, []byte{
		0x07, 0x11, // frames 23 = 0x17
		0x2F, 0x31, // seconds 31 = 0x1F
		0x4A, 0x52, // minutes 42 = 0x2A
		0x61, 0x73, // hours 17 = 0x11, rate 25 -> code 1
	}, got)
}

func TestMTCRateCode(t *testing.T) {
	assert.Equal(t, uint8(0), MTCRateCode(24, false))
	assert.Equal(t, uint8(1), MTCRateCode(25, false))
	assert.Equal(t, uint8(2), MTCRateCode(30, true))
	assert.Equal(t, uint8(3), MTCRateCode(30, false))
}

func TestMatchPort(t *testing.T) {
	names := []string{"Midi Through Port-0", "IAC Driver Bus 1", "USB MIDI Interface"}

	idx, ok := MatchPort(names, "iac")
	assert.True(t, ok)
	assert.Equal(t, 1, idx)

	idx, ok = MatchPort(names, "")
	assert.True(t, ok)
	assert.Equal(t, 0, idx)

	idx, ok = MatchPort(names, "missing")
	assert.False(t, ok)
	assert.Equal(t, 0, idx)

	idx, _ = MatchPort(nil, "iac")
	assert.Equal(t, -1, idx)
}
