package midi

import (
	"djsync/timecode"

	gomidi "gitlab.com/gomidi/midi/v2"
)

// MIDI status bytes used by the sync outputs
const (
	NoteOn       uint8 = 0x90
	NoteOff      uint8 = 0x80
	QuarterFrame uint8 = 0xF1
	TimingClock  uint8 = 0xF8
	Start        uint8 = 0xFA
	Continue     uint8 = 0xFB
	Stop         uint8 = 0xFC
)

// Beat marker notes: C1 for the downbeat up to D#1 for beat 4
const (
	BeatNoteBase     uint8 = 36
	DownbeatVelocity uint8 = 127
	OffbeatVelocity  uint8 = 100
)

// Event is a note pair marking a beat, channel is 0-based
type Event struct {
	Type     uint8 // NoteOn, NoteOff
	Channel  uint8
	Note     uint8
	Velocity uint8
}

// BeatNote returns the accented note-on for a beat in the measure (1..4)
func BeatNote(channel, beatInMeasure uint8) Event {
	if beatInMeasure < 1 {
		beatInMeasure = 1
	}
	vel := OffbeatVelocity
	if beatInMeasure == 1 {
		vel = DownbeatVelocity
	}
	return Event{Type: NoteOn, Channel: channel, Note: BeatNoteBase + beatInMeasure - 1, Velocity: vel}
}

// Off returns the matching note-off
func (e Event) Off() Event {
	return Event{Type: NoteOff, Channel: e.Channel, Note: e.Note}
}

// Message renders the event as a wire message
func (e Event) Message() gomidi.Message {
	if e.Type == NoteOff {
		return gomidi.NoteOff(e.Channel, e.Note)
	}
	return gomidi.NoteOn(e.Channel, e.Note, e.Velocity)
}

// Realtime returns a single-byte system realtime message
func Realtime(status uint8) gomidi.Message {
	return gomidi.Message{status}
}

// MTC rate codes carried in the top bits of the hours piece
const (
	mtcRate24   = 0
	mtcRate25   = 1
	mtcRate2997 = 2
	mtcRate30   = 3
)

// MTCRateCode maps a frame rate to its quarter-frame rate code
func MTCRateCode(fps int, dropFrame bool) uint8 {
	switch {
	case fps == 24:
		return mtcRate24
	case fps == 25:
		return mtcRate25
	case dropFrame:
		return mtcRate2997
	default:
		return mtcRate30
	}
}

// QuarterFrameData returns the data byte of quarter-frame piece 0..7 for v
func QuarterFrameData(piece int, v timecode.Value) uint8 {
	var nibble uint8
	switch piece & 7 {
	case 0:
		nibble = uint8(v.Frames) & 0x0F
	case 1:
		nibble = uint8(v.Frames>>4) & 0x01
	case 2:
		nibble = uint8(v.Seconds) & 0x0F
	case 3:
		nibble = uint8(v.Seconds>>4) & 0x03
	case 4:
		nibble = uint8(v.Minutes) & 0x0F
	case 5:
		nibble = uint8(v.Minutes>>4) & 0x03
	case 6:
		nibble = uint8(v.Hours) & 0x0F
	case 7:
		nibble = uint8(v.Hours>>4)&0x01 | MTCRateCode(v.FrameRate, v.DropFrame)<<1
	}
	return uint8(piece&7)<<4 | nibble
}

// QuarterFrameMessage is the two-byte 0xF1 message for a piece
func QuarterFrameMessage(piece int, v timecode.Value) gomidi.Message {
	return gomidi.Message{QuarterFrame, QuarterFrameData(piece, v)}
}
