package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"djsync/timecode"
)

func TestGenerateThenValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "drop.wav")
	start, err := timecode.Parse("00:00:59;28", 30)
	require.NoError(t, err)

	res, err := generateWAV(path, genOptions{
		Format:     timecode.FormatSMPTEDrop,
		Start:      &start,
		Seconds:    2,
		SampleRate: 48000,
		BitDepth:   16,
		Amplitude:  0.8,
	})
	require.NoError(t, err)
	assert.Equal(t, 60, res.Frames)
	assert.Equal(t, "00:00:59;28", res.First.String())
	assert.Equal(t, "00:01:01;29", res.Last.String())

	rep, err := validateWAV(path, 30)
	require.NoError(t, err)
	assert.Equal(t, timecode.WAVFormat{SampleRate: 48000, BitDepth: 16}, rep.Format)
	require.Len(t, rep.Frames, 60)
	assert.Equal(t, "00:01:00;02", rep.Frames[2].String())
	assert.Empty(t, rep.Gaps)
}

func TestGenerateEightBit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ebu.wav")
	res, err := generateWAV(path, genOptions{
		Format:     timecode.FormatSMPTE25,
		Seconds:    1,
		SampleRate: 44100,
		BitDepth:   8,
		Amplitude:  1,
	})
	require.NoError(t, err)
	assert.Equal(t, 25, res.Frames)

	rep, err := validateWAV(path, 25)
	require.NoError(t, err)
	assert.Len(t, rep.Frames, 25)
	assert.Equal(t, "00:00:00:24", rep.Frames[24].String())
}

func TestGenerateRejects(t *testing.T) {
	dir := t.TempDir()
	_, err := generateWAV(filepath.Join(dir, "a.wav"), genOptions{Format: timecode.FormatSMPTE30, SampleRate: 48000, BitDepth: 16})
	assert.Error(t, err, "zero length")

	_, err = generateWAV(filepath.Join(dir, "b.wav"), genOptions{Format: timecode.FormatSMPTE30, Seconds: 1, SampleRate: 48000, BitDepth: 24})
	assert.ErrorIs(t, err, timecode.ErrBitDepth)
}

func TestGenerateSkippedDropStart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "skip.wav")
	start := timecode.Value{Minutes: 1, FrameRate: 30, DropFrame: true}
	res, err := generateWAV(path, genOptions{
		Format:     timecode.FormatSMPTEDrop,
		Start:      &start,
		Seconds:    1,
		SampleRate: 48000,
		BitDepth:   16,
		Amplitude:  0.8,
	})
	require.NoError(t, err)
	assert.Equal(t, "00:01:00;02", res.First.String())

	rep, err := validateWAV(path, 30)
	require.NoError(t, err)
	require.Len(t, rep.Frames, 30)
	assert.Equal(t, "00:01:00;02", rep.Frames[0].String())
	assert.Empty(t, rep.Gaps)
}

func TestWriteLTCToClosedFile(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "closed.wav"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	enc, err := timecode.NewEncoder(48000, 16, 0.8)
	require.NoError(t, err)
	gen := timecode.NewGenerator(enc, timecode.Zero(30, false))
	_, err = writeLTC(f, timecode.WAVFormat{SampleRate: 48000, BitDepth: 16}, gen, 30)
	assert.Error(t, err)
}

func TestValidateReportsGaps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gap.wav")
	f, err := os.Create(path)
	require.NoError(t, err)

	enc, err := timecode.NewEncoder(48000, 16, 0.8)
	require.NoError(t, err)
	var pcm []byte
	for _, n := range []int64{0, 1, 5, 6} {
		pcm = append(pcm, enc.EncodeFrame(timecode.EncodeLTC(timecode.FromFrames(n, 30, false)), 30)...)
	}
	require.NoError(t, timecode.WriteWAVHeader(f, timecode.WAVFormat{SampleRate: 48000, BitDepth: 16}, uint32(len(pcm))))
	_, err = f.Write(pcm)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	rep, err := validateWAV(path, 30)
	require.NoError(t, err)
	require.Len(t, rep.Frames, 4)
	require.Len(t, rep.Gaps, 1)
	assert.Equal(t, "00:00:00:02", rep.Gaps[0].Want.String())
	assert.Equal(t, "00:00:00:05", rep.Gaps[0].Got.String())
}

func TestValidateMissingFile(t *testing.T) {
	_, err := validateWAV(filepath.Join(t.TempDir(), "none.wav"), 30)
	assert.Error(t, err)
}
