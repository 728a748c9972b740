package timecode

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeLTCLayout(t *testing.T) {
	b := EncodeLTC(Value{Hours: 23, Minutes: 59, Seconds: 58, Frames: 27, FrameRate: 30})

	// BCD digits, least significant bit first
	assert.Equal(t, []uint8{1, 1, 1, 0}, b[0:4])
	assert.Equal(t, []uint8{0, 1}, b[8:10])
	assert.Equal(t, []uint8{0, 0, 0, 1}, b[16:20])
	assert.Equal(t, []uint8{1, 0, 1}, b[24:27])
	assert.Equal(t, []uint8{1, 0, 0, 1}, b[32:36])
	assert.Equal(t, []uint8{1, 0, 1}, b[40:43])
	assert.Equal(t, []uint8{1, 1, 0, 0}, b[48:52])
	assert.Equal(t, []uint8{0, 1}, b[56:58])
	assert.Equal(t, SyncWord[:], b[64:80])
	assert.Equal(t, uint8(0), b[bitDropFrame])

	// user bit groups stay zero
	for _, g := range []int{4, 12, 20, 28, 36, 44, 52, 60} {
		assert.Equal(t, []uint8{0, 0, 0, 0}, b[g:g+4], "user bits at %d", g)
	}
}

func TestEncodeLTCDropFlag(t *testing.T) {
	b := EncodeLTC(Value{Minutes: 1, Frames: 2, FrameRate: 30, DropFrame: true})
	assert.Equal(t, uint8(1), b[bitDropFrame])
}

func TestLTCRoundTripAllFields(t *testing.T) {
	v := Zero(25, false)
	for i := 0; i < 25*3600; i += 7 {
		got, err := DecodeLTC(EncodeLTC(v), 25)
		require.NoError(t, err)
		require.Equal(t, v, got)
		for j := 0; j < 7; j++ {
			v.Advance()
		}
	}
}

func TestDecodeLTCRejectsMissingSync(t *testing.T) {
	b := EncodeLTC(Zero(30, false))
	b[70] = 0
	_, err := DecodeLTC(b, 30)
	assert.ErrorIs(t, err, ErrNoSync)
}

func TestDecodeLTCRejectsBadDigits(t *testing.T) {
	b := EncodeLTC(Zero(30, false))
	copy(b[0:4], []uint8{1, 1, 1, 1}) // frame units 15
	_, err := DecodeLTC(b, 30)
	assert.ErrorIs(t, err, ErrBadBCD)
}

func TestEncoderFrameLength(t *testing.T) {
	enc, err := NewEncoder(48000, 16, 1)
	require.NoError(t, err)
	assert.Len(t, enc.EncodeFrame(EncodeLTC(Zero(30, false)), 30), 1600*2)

	enc, err = NewEncoder(44100, 8, 1)
	require.NoError(t, err)
	assert.Len(t, enc.EncodeFrame(EncodeLTC(Zero(30, false)), 30), 1470)

	_, err = NewEncoder(48000, 24, 1)
	assert.ErrorIs(t, err, ErrBitDepth)
}

func TestEncoderTransitions(t *testing.T) {
	enc, err := NewEncoder(48000, 8, 1)
	require.NoError(t, err)
	var bits Bits
	bits[0] = 1
	pcm := enc.EncodeFrame(bits, 30)

	// 20 samples per cell: bit 0 is a 1, so it flips at sample 10
	assert.Equal(t, uint8(255), pcm[0])
	assert.Equal(t, uint8(255), pcm[9])
	assert.Equal(t, uint8(0), pcm[10])
	assert.Equal(t, uint8(0), pcm[19])
	// bit 1 is a 0: flip at the boundary, none mid-cell
	assert.Equal(t, uint8(255), pcm[20])
	assert.Equal(t, uint8(255), pcm[39])
	assert.Equal(t, uint8(0), pcm[40])
}

func TestBiphaseRoundTrip(t *testing.T) {
	for _, tc := range []struct {
		rate, depth int
		format      Format
	}{
		{48000, 16, FormatSMPTE30},
		{48000, 8, FormatSMPTE25},
		{44100, 16, FormatSMPTE24},
		{44100, 16, FormatSMPTEDrop},
	} {
		fps, drop := tc.format.Rate()
		enc, err := NewEncoder(tc.rate, tc.depth, 0.8)
		require.NoError(t, err)

		start := Value{Minutes: 0, Seconds: 59, Frames: fps - 3, FrameRate: fps, DropFrame: drop}
		gen := NewGenerator(enc, start)
		var buf bytes.Buffer
		_, err = gen.WriteFrames(&buf, 6)
		require.NoError(t, err)

		frames, err := Decoder{SampleRate: tc.rate, BitDepth: tc.depth, FrameRate: fps}.Decode(buf.Bytes())
		require.NoError(t, err, string(tc.format))
		require.Len(t, frames, 6, string(tc.format))

		want := start
		for _, got := range frames {
			assert.Equal(t, want, got, string(tc.format))
			want.Advance()
		}
	}
}

func TestGeneratorDropFrameSkip(t *testing.T) {
	enc, err := NewEncoder(48000, 16, 1)
	require.NoError(t, err)
	gen := NewGenerator(enc, Value{Seconds: 59, Frames: 29, FrameRate: 30, DropFrame: true})
	gen.Next()
	assert.Equal(t, "00:01:00;02", gen.Current().String())
}

func TestGeneratorStartsPastSkippedFrames(t *testing.T) {
	enc, err := NewEncoder(48000, 16, 1)
	require.NoError(t, err)
	gen := NewGenerator(enc, Value{Minutes: 1, FrameRate: 30, DropFrame: true})
	assert.Equal(t, "00:01:00;02", gen.Current().String())

	frames, err := Decoder{SampleRate: 48000, BitDepth: 16, FrameRate: 30}.Decode(gen.Next())
	require.NoError(t, err)
	require.Len(t, frames, 1)
	assert.Equal(t, 2, frames[0].Frames)

	// tenth minutes start at frame 0
	gen = NewGenerator(enc, Value{Minutes: 10, FrameRate: 30, DropFrame: true})
	assert.Equal(t, "00:10:00;00", gen.Current().String())
}

func TestDecodeSilenceHasNoSync(t *testing.T) {
	_, err := Decoder{SampleRate: 48000, BitDepth: 16, FrameRate: 30}.Decode(make([]byte, 9600))
	assert.ErrorIs(t, err, ErrNoSync)
}

func TestWAVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ltc.wav")
	f, err := os.Create(path)
	require.NoError(t, err)

	format := WAVFormat{SampleRate: 48000, BitDepth: 16}
	require.NoError(t, WriteWAVHeader(f, format, 0))
	enc, err := NewEncoder(format.SampleRate, format.BitDepth, 1)
	require.NoError(t, err)
	n, err := NewGenerator(enc, Zero(30, false)).WriteFrames(f, 30)
	require.NoError(t, err)
	require.NoError(t, PatchWAVHeader(f, uint32(n)))
	require.NoError(t, f.Close())

	r, err := os.Open(path)
	require.NoError(t, err)
	defer r.Close()
	gotFormat, data, err := ReadWAV(r)
	require.NoError(t, err)
	assert.Equal(t, format, gotFormat)
	assert.Len(t, data, int(n))

	frames, err := Decoder{SampleRate: 48000, BitDepth: 16, FrameRate: 30}.Decode(data)
	require.NoError(t, err)
	require.Len(t, frames, 30)
	assert.Equal(t, "00:00:00:29", frames[29].String())
}

func TestReadWAVRejectsGarbage(t *testing.T) {
	_, _, err := ReadWAV(bytes.NewReader([]byte("definitely not a riff file, just some text padding it out")))
	assert.ErrorIs(t, err, ErrNotWAV)
}

func TestCarrierKeepsBitsDecodable(t *testing.T) {
	enc, err := NewEncoder(48000, 16, 1)
	require.NoError(t, err)
	enc.CarrierHz = 1000

	start := Value{Hours: 1, Minutes: 2, Seconds: 3, Frames: 4, FrameRate: 30}
	var buf bytes.Buffer
	_, err = NewGenerator(enc, start).WriteFrames(&buf, 3)
	require.NoError(t, err)

	frames, err := Decoder{SampleRate: 48000, BitDepth: 16, FrameRate: 30}.Decode(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, frames, 3)
	assert.Equal(t, "01:02:03:06", frames[2].String())
}
