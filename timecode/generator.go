package timecode

import (
	"io"

	"github.com/pkg/errors"
)

// Generator produces a continuous LTC audio stream one frame at a time,
// applying the drop-frame skip when the start value carries the flag.
type Generator struct {
	enc   *Encoder
	value Value
}

// NewGenerator starts at start and renders with enc. A drop-frame start on
// a skipped label moves on to frame 2 of that minute.
func NewGenerator(enc *Encoder, start Value) *Generator {
	if start.dropped() {
		start.Frames = 2
	}
	return &Generator{enc: enc, value: start}
}

// Current is the value the next call to Next will render
func (g *Generator) Current() Value {
	return g.value
}

// Next renders the current frame and advances by one
func (g *Generator) Next() []byte {
	pcm := g.enc.EncodeFrame(EncodeLTC(g.value), g.value.FrameRate)
	g.value.Advance()
	return pcm
}

// WriteFrames renders n frames into w and returns the bytes written
func (g *Generator) WriteFrames(w io.Writer, n int) (int64, error) {
	var total int64
	for i := 0; i < n; i++ {
		c, err := w.Write(g.Next())
		total += int64(c)
		if err != nil {
			return total, errors.Wrapf(err, "write frame %d", i)
		}
	}
	return total, nil
}
