package timecode

import (
	"github.com/pkg/errors"
)

// FrameBits is the number of bits in one LTC frame
const FrameBits = 80

// SyncWord occupies bits 64..79, transmitted in this order
var SyncWord = [16]uint8{0, 0, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 0, 1}

// bit positions inside the frame
const (
	bitFrameUnits  = 0
	bitFrameTens   = 8
	bitDropFrame   = 10
	bitSecondUnits = 16
	bitSecondTens  = 24
	bitMinuteUnits = 32
	bitMinuteTens  = 40
	bitHourUnits   = 48
	bitHourTens    = 56
	bitSync        = 64
)

var (
	// ErrNoSync means bits 64..79 do not carry the sync word
	ErrNoSync = errors.New("ltc: sync word not found")
	// ErrBadBCD means a digit field decoded out of range
	ErrBadBCD = errors.New("ltc: invalid BCD digit")
)

// Bits is one LTC frame, one entry (0 or 1) per bit
type Bits [FrameBits]uint8

// EncodeLTC packs v into an 80-bit LTC frame. User bits are left zero.
func EncodeLTC(v Value) Bits {
	var b Bits
	putBCD(&b, bitFrameUnits, 4, v.Frames%10)
	putBCD(&b, bitFrameTens, 2, v.Frames/10)
	if v.DropFrame {
		b[bitDropFrame] = 1
	}
	putBCD(&b, bitSecondUnits, 4, v.Seconds%10)
	putBCD(&b, bitSecondTens, 3, v.Seconds/10)
	putBCD(&b, bitMinuteUnits, 4, v.Minutes%10)
	putBCD(&b, bitMinuteTens, 3, v.Minutes/10)
	putBCD(&b, bitHourUnits, 4, v.Hours%10)
	putBCD(&b, bitHourTens, 2, v.Hours/10)
	copy(b[bitSync:], SyncWord[:])
	return b
}

// DecodeLTC unpacks a frame produced by EncodeLTC. fps is not carried in
// the bits and must be supplied.
func DecodeLTC(b Bits, fps int) (Value, error) {
	if !HasSync(b) {
		return Value{}, ErrNoSync
	}
	v := Value{
		Frames:    getBCD(b, bitFrameTens, 2)*10 + getBCD(b, bitFrameUnits, 4),
		Seconds:   getBCD(b, bitSecondTens, 3)*10 + getBCD(b, bitSecondUnits, 4),
		Minutes:   getBCD(b, bitMinuteTens, 3)*10 + getBCD(b, bitMinuteUnits, 4),
		Hours:     getBCD(b, bitHourTens, 2)*10 + getBCD(b, bitHourUnits, 4),
		FrameRate: fps,
		DropFrame: b[bitDropFrame] == 1,
	}
	for _, units := range []int{bitFrameUnits, bitSecondUnits, bitMinuteUnits, bitHourUnits} {
		if getBCD(b, units, 4) > 9 {
			return Value{}, errors.Wrapf(ErrBadBCD, "units at bit %d", units)
		}
	}
	if !v.Valid() {
		return Value{}, errors.Wrapf(ErrBadBCD, "decoded %s", v)
	}
	return v, nil
}

// HasSync reports whether the sync word sits at bits 64..79
func HasSync(b Bits) bool {
	for i, s := range SyncWord {
		if b[bitSync+i] != s {
			return false
		}
	}
	return true
}

// putBCD writes the low n bits of digit LSB first starting at pos
func putBCD(b *Bits, pos, n, digit int) {
	for i := 0; i < n; i++ {
		b[pos+i] = uint8(digit>>i) & 1
	}
}

func getBCD(b Bits, pos, n int) int {
	d := 0
	for i := 0; i < n; i++ {
		d |= int(b[pos+i]&1) << i
	}
	return d
}
