// Package timecode implements SMPTE timecode values, a free-running frame
// clock, and the Linear Timecode (LTC) bit and audio encodings.
package timecode

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Format names a timecode flavour and selects its frame rate
type Format string

const (
	FormatMTC       Format = "mtc"
	FormatLTC       Format = "ltc"
	FormatSMPTE24   Format = "smpte-24"
	FormatSMPTE25   Format = "smpte-25"
	FormatSMPTE30   Format = "smpte-30"
	FormatSMPTEDrop Format = "smpte-drop"
)

// Formats lists every known format
var Formats = []Format{FormatMTC, FormatLTC, FormatSMPTE24, FormatSMPTE25, FormatSMPTE30, FormatSMPTEDrop}

// Rate returns the counting frame rate and drop-frame flag. Drop-frame
// (29.97) counts at 30. Unknown names fall back to 30 non-drop.
func (f Format) Rate() (fps int, dropFrame bool) {
	switch f {
	case FormatMTC, FormatSMPTE25:
		return 25, false
	case FormatSMPTE24:
		return 24, false
	case FormatSMPTEDrop:
		return 30, true
	default:
		return 30, false
	}
}

// Known reports whether f is one of Formats
func (f Format) Known() bool {
	for _, k := range Formats {
		if k == f {
			return true
		}
	}
	return false
}

// Description is a human readable label for the format
func (f Format) Description() string {
	switch f {
	case FormatMTC:
		return "MIDI Time Code (25 fps)"
	case FormatLTC:
		return "Linear Timecode (30 fps)"
	case FormatSMPTE24:
		return "SMPTE 24 fps (film)"
	case FormatSMPTE25:
		return "SMPTE 25 fps (PAL)"
	case FormatSMPTE30:
		return "SMPTE 30 fps non-drop"
	case FormatSMPTEDrop:
		return "SMPTE 29.97 fps drop-frame (NTSC)"
	}
	return "SMPTE 30 fps non-drop"
}

// Value is a single timecode position. Frames < FrameRate always holds for
// values produced by this package.
type Value struct {
	Hours     int  `json:"hours"`
	Minutes   int  `json:"minutes"`
	Seconds   int  `json:"seconds"`
	Frames    int  `json:"frames"`
	FrameRate int  `json:"frameRate"`
	DropFrame bool `json:"dropFrame"`
}

// Zero returns 00:00:00:00 at the given rate
func Zero(fps int, dropFrame bool) Value {
	return Value{FrameRate: fps, DropFrame: dropFrame}
}

// FromFrames converts a frame count since 00:00:00:00 into a value. With
// dropFrame set the count is labelled the drop-frame way, so frames 0 and 1
// of minutes not divisible by ten never appear. Hours wrap at 24.
func FromFrames(total int64, fps int, dropFrame bool) Value {
	if total < 0 {
		total = 0
	}
	rate := int64(fps)
	if dropFrame {
		perMinute := rate*60 - 2
		perTen := rate*600 - 18
		tens, rem := total/perTen, total%perTen
		total += 18 * tens
		if rem >= 2 {
			total += 2 * ((rem - 2) / perMinute)
		}
	}
	return Value{
		Hours:     int(total/(rate*3600)) % 24,
		Minutes:   int(total/(rate*60)) % 60,
		Seconds:   int(total/rate) % 60,
		Frames:    int(total % rate),
		FrameRate: fps,
		DropFrame: dropFrame,
	}
}

// Valid reports whether every field is inside its range and, for
// drop-frame values, that the label is one drop-frame counting uses
func (v Value) Valid() bool {
	if v.dropped() {
		return false
	}
	switch v.FrameRate {
	case 24, 25, 30:
	default:
		return false
	}
	return v.Hours >= 0 && v.Hours < 24 &&
		v.Minutes >= 0 && v.Minutes < 60 &&
		v.Seconds >= 0 && v.Seconds < 60 &&
		v.Frames >= 0 && v.Frames < v.FrameRate
}

// Advance moves v forward one frame, cascading into seconds, minutes and
// hours. With DropFrame set, frames 0 and 1 are skipped at the start of
// every minute not divisible by ten.
func (v *Value) Advance() {
	v.Frames++
	if v.Frames >= v.FrameRate {
		v.Frames = 0
		v.Seconds++
		if v.Seconds >= 60 {
			v.Seconds = 0
			v.Minutes++
			if v.Minutes >= 60 {
				v.Minutes = 0
				v.Hours = (v.Hours + 1) % 24
			}
		}
	}
	if v.dropped() {
		v.Frames = 2
	}
}

// dropped reports whether v is frame 0 or 1 of a minute that drop-frame
// counting skips
func (v Value) dropped() bool {
	return v.DropFrame && v.Seconds == 0 && v.Frames < 2 && v.Minutes%10 != 0
}

// String renders HH:MM:SS:FF, or HH:MM:SS;FF for drop-frame
func (v Value) String() string {
	sep := ':'
	if v.DropFrame {
		sep = ';'
	}
	return fmt.Sprintf("%02d:%02d:%02d%c%02d", v.Hours, v.Minutes, v.Seconds, sep, v.Frames)
}

// Parse reads HH:MM:SS:FF (or HH:MM:SS;FF, which sets DropFrame) at fps
func Parse(s string, fps int) (Value, error) {
	v := Value{FrameRate: fps}
	if i := strings.LastIndexByte(s, ';'); i >= 0 {
		v.DropFrame = true
		s = s[:i] + ":" + s[i+1:]
	}
	parts := strings.Split(s, ":")
	if len(parts) != 4 {
		return Value{}, errors.Errorf("timecode %q: want HH:MM:SS:FF", s)
	}
	fields := []*int{&v.Hours, &v.Minutes, &v.Seconds, &v.Frames}
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return Value{}, errors.Wrapf(err, "timecode %q", s)
		}
		*fields[i] = n
	}
	if !v.Valid() {
		return Value{}, errors.Errorf("timecode %s out of range at %d fps", v, fps)
	}
	return v, nil
}
