package timecode

import (
	"encoding/binary"
	"math"

	"github.com/pkg/errors"
)

// DefaultSampleRate is used when an encoder is built with a zero rate
const DefaultSampleRate = 48000

// ErrBitDepth is returned for sample depths other than 8 and 16
var ErrBitDepth = errors.New("unsupported bit depth")

// Encoder renders LTC frames as biphase-mark PCM. The signal flips at every
// bit cell boundary and again mid-cell for a 1. Cell boundaries are placed
// at exact fractional sample positions so frames do not drift when the
// sample rate is not a multiple of fps*80.
//
// 16-bit output is signed little-endian, 8-bit output is unsigned. A
// non-zero CarrierHz modulates the envelope for audibility without moving
// any zero crossing.
type Encoder struct {
	SampleRate int
	BitDepth   int
	Amplitude  float64
	CarrierHz  float64

	level  int8
	sample int64
}

// NewEncoder validates the parameters and returns an encoder at low level
func NewEncoder(sampleRate, bitDepth int, amplitude float64) (*Encoder, error) {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	if bitDepth != 8 && bitDepth != 16 {
		return nil, errors.Wrapf(ErrBitDepth, "%d", bitDepth)
	}
	if amplitude <= 0 || amplitude > 1 {
		amplitude = 1
	}
	return &Encoder{SampleRate: sampleRate, BitDepth: bitDepth, Amplitude: amplitude, level: -1}, nil
}

// BytesPerSample is 1 or 2
func (e *Encoder) BytesPerSample() int {
	return e.BitDepth / 8
}

// SamplesPerFrame is the whole number of samples one frame occupies
func (e *Encoder) SamplesPerFrame(fps int) int {
	return e.SampleRate / fps
}

// EncodeFrame renders one frame of bits. Polarity carries over between
// calls so consecutive frames join without a glitch.
func (e *Encoder) EncodeFrame(bits Bits, fps int) []byte {
	spf := e.SamplesPerFrame(fps)
	bps := e.BytesPerSample()
	out := make([]byte, spf*bps)
	if e.level == 0 {
		e.level = -1
	}

	s := 0
	for i := 0; i < FrameBits; i++ {
		mid := (2*i + 1) * spf / (2 * FrameBits)
		end := (i + 1) * spf / FrameBits

		e.level = -e.level
		for ; s < mid; s++ {
			e.put(out, s)
		}
		if bits[i] == 1 {
			e.level = -e.level
		}
		for ; s < end; s++ {
			e.put(out, s)
		}
	}
	return out
}

func (e *Encoder) put(out []byte, s int) {
	v := float64(e.level) * e.Amplitude
	if e.CarrierHz > 0 {
		phase := 2 * math.Pi * e.CarrierHz * float64(e.sample) / float64(e.SampleRate)
		v *= 0.6 + 0.4*math.Abs(math.Sin(phase))
	}
	e.sample++
	if e.BitDepth == 16 {
		binary.LittleEndian.PutUint16(out[s*2:], uint16(int16(math.Round(v*32767))))
		return
	}
	out[s] = uint8(math.Round(127.5 + v*127.5))
}

// Decoder recovers LTC frames from PCM produced by Encoder or any other
// biphase-mark source with the same sample format.
type Decoder struct {
	SampleRate int
	BitDepth   int
	FrameRate  int
}

// Decode returns every complete frame found in pcm. The buffer edges are
// treated as transitions, so a buffer holding exactly one encoded frame
// decodes to that frame.
func (d Decoder) Decode(pcm []byte) ([]Value, error) {
	if d.BitDepth != 8 && d.BitDepth != 16 {
		return nil, errors.Wrapf(ErrBitDepth, "%d", d.BitDepth)
	}
	if d.SampleRate <= 0 || d.FrameRate <= 0 {
		return nil, errors.New("decoder needs sample rate and frame rate")
	}

	stream := d.bitStream(pcm)

	var frames []Value
	for j := FrameBits - len(SyncWord); j+len(SyncWord) <= len(stream); j++ {
		var b Bits
		copy(b[:], stream[j-bitSync:j+len(SyncWord)])
		if !HasSync(b) {
			continue
		}
		v, err := DecodeLTC(b, d.FrameRate)
		if err != nil {
			continue
		}
		frames = append(frames, v)
		j += len(SyncWord) - 1
	}
	if len(frames) == 0 {
		return nil, ErrNoSync
	}
	return frames, nil
}

// bitStream classifies the gaps between level changes as full cells (0)
// or pairs of half cells (1)
func (d Decoder) bitStream(pcm []byte) []uint8 {
	bps := d.BitDepth / 8
	n := len(pcm) / bps
	if n == 0 {
		return nil
	}
	cell := float64(d.SampleRate) / float64(d.FrameRate) / FrameBits
	short := cell * 0.75

	high := func(s int) bool {
		if bps == 2 {
			return int16(binary.LittleEndian.Uint16(pcm[s*2:])) >= 0
		}
		return pcm[s] >= 128
	}

	var bits []uint8
	halfPending := false
	edge := 0
	level := high(0)
	classify := func(at int) {
		gap := float64(at - edge)
		edge = at
		if gap < short {
			if halfPending {
				bits = append(bits, 1)
			}
			halfPending = !halfPending
			return
		}
		halfPending = false
		bits = append(bits, 0)
	}
	for s := 1; s < n; s++ {
		if h := high(s); h != level {
			level = h
			classify(s)
		}
	}
	classify(n)
	return bits
}
