package main

import (
	"bufio"
	"math"
	"os"

	"github.com/pkg/errors"

	"djsync/timecode"
)

type genOptions struct {
	Format     timecode.Format
	Start      *timecode.Value
	Seconds    float64
	SampleRate int
	BitDepth   int
	Amplitude  float64
}

type genResult struct {
	Frames      int
	First, Last timecode.Value
}

// generateWAV renders Seconds of continuous LTC into a WAV file at path
func generateWAV(path string, g genOptions) (genResult, error) {
	fps, drop := g.Format.Rate()
	start := timecode.Zero(fps, drop)
	if g.Start != nil {
		start = *g.Start
	}
	frames := int(math.Round(g.Seconds * float64(fps)))
	if frames <= 0 {
		return genResult{}, errors.New("nothing to generate")
	}

	enc, err := timecode.NewEncoder(g.SampleRate, g.BitDepth, g.Amplitude)
	if err != nil {
		return genResult{}, err
	}
	gen := timecode.NewGenerator(enc, start)

	f, err := os.Create(path)
	if err != nil {
		return genResult{}, errors.Wrap(err, "create output")
	}
	format := timecode.WAVFormat{SampleRate: enc.SampleRate, BitDepth: enc.BitDepth}
	res, err := writeLTC(f, format, gen, frames)
	if cerr := f.Close(); err == nil {
		err = errors.Wrap(cerr, "close output")
	}
	return res, err
}

// writeLTC writes a WAV header and frames frames from gen to f, then
// patches the header with the data size
func writeLTC(f *os.File, format timecode.WAVFormat, gen *timecode.Generator, frames int) (genResult, error) {
	if err := timecode.WriteWAVHeader(f, format, 0); err != nil {
		return genResult{}, err
	}

	res := genResult{Frames: frames, First: gen.Current()}
	w := bufio.NewWriter(f)
	var n int64
	for i := 0; i < frames; i++ {
		res.Last = gen.Current()
		c, err := gen.WriteFrames(w, 1)
		n += c
		if err != nil {
			return res, err
		}
	}
	if err := w.Flush(); err != nil {
		return res, errors.Wrap(err, "flush output")
	}
	return res, timecode.PatchWAVHeader(f, uint32(n))
}

// gap is a point where the decoded sequence does not advance by one frame
type gap struct {
	After, Want, Got timecode.Value
}

type report struct {
	Format timecode.WAVFormat
	Frames []timecode.Value
	Gaps   []gap
}

// validateWAV decodes every LTC frame in the file at path and checks that
// each one follows the previous
func validateWAV(path string, fps int) (report, error) {
	f, err := os.Open(path)
	if err != nil {
		return report{}, errors.Wrap(err, "open input")
	}
	defer f.Close()

	format, pcm, err := timecode.ReadWAV(f)
	if err != nil {
		return report{}, err
	}
	dec := timecode.Decoder{SampleRate: format.SampleRate, BitDepth: format.BitDepth, FrameRate: fps}
	frames, err := dec.Decode(pcm)
	if err != nil {
		return report{}, errors.Wrapf(err, "decode %s", path)
	}

	rep := report{Format: format, Frames: frames}
	for i := 1; i < len(frames); i++ {
		want := frames[i-1]
		want.Advance()
		if frames[i] != want {
			rep.Gaps = append(rep.Gaps, gap{After: frames[i-1], Want: want, Got: frames[i]})
		}
	}
	return rep, nil
}
