package timecode

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

const wavHeaderLen = 44

// ErrNotWAV is returned when a file does not carry a PCM RIFF/WAVE header
var ErrNotWAV = errors.New("not a PCM WAV file")

// WAVFormat describes a mono PCM stream
type WAVFormat struct {
	SampleRate int
	BitDepth   int
}

// WriteWAVHeader writes a 44-byte mono PCM header for dataLen bytes of
// samples. Streaming writers pass 0 and call PatchWAVHeader when done.
func WriteWAVHeader(w io.Writer, f WAVFormat, dataLen uint32) error {
	h := make([]byte, wavHeaderLen)
	bps := f.BitDepth / 8
	copy(h[0:], "RIFF")
	binary.LittleEndian.PutUint32(h[4:], 36+dataLen)
	copy(h[8:], "WAVE")
	copy(h[12:], "fmt ")
	binary.LittleEndian.PutUint32(h[16:], 16)
	binary.LittleEndian.PutUint16(h[20:], 1) // PCM
	binary.LittleEndian.PutUint16(h[22:], 1) // mono
	binary.LittleEndian.PutUint32(h[24:], uint32(f.SampleRate))
	binary.LittleEndian.PutUint32(h[28:], uint32(f.SampleRate*bps))
	binary.LittleEndian.PutUint16(h[32:], uint16(bps))
	binary.LittleEndian.PutUint16(h[34:], uint16(f.BitDepth))
	copy(h[36:], "data")
	binary.LittleEndian.PutUint32(h[40:], dataLen)
	_, err := w.Write(h)
	return errors.Wrap(err, "write wav header")
}

// PatchWAVHeader fixes the size fields once the data length is known
func PatchWAVHeader(w io.WriterAt, dataLen uint32) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], 36+dataLen)
	if _, err := w.WriteAt(b[:], 4); err != nil {
		return errors.Wrap(err, "patch riff size")
	}
	binary.LittleEndian.PutUint32(b[:], dataLen)
	if _, err := w.WriteAt(b[:], 40); err != nil {
		return errors.Wrap(err, "patch data size")
	}
	return nil
}

// ReadWAV reads a mono PCM WAV written by WriteWAVHeader and returns its
// format and sample data
func ReadWAV(r io.Reader) (WAVFormat, []byte, error) {
	h := make([]byte, wavHeaderLen)
	if _, err := io.ReadFull(r, h); err != nil {
		return WAVFormat{}, nil, errors.Wrap(ErrNotWAV, err.Error())
	}
	if string(h[0:4]) != "RIFF" || string(h[8:12]) != "WAVE" || string(h[36:40]) != "data" {
		return WAVFormat{}, nil, ErrNotWAV
	}
	if binary.LittleEndian.Uint16(h[20:]) != 1 || binary.LittleEndian.Uint16(h[22:]) != 1 {
		return WAVFormat{}, nil, errors.Wrap(ErrNotWAV, "only mono PCM is supported")
	}
	f := WAVFormat{
		SampleRate: int(binary.LittleEndian.Uint32(h[24:])),
		BitDepth:   int(binary.LittleEndian.Uint16(h[34:])),
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return f, nil, errors.Wrap(err, "read wav data")
	}
	if n := int(binary.LittleEndian.Uint32(h[40:])); n > 0 && n < len(data) {
		data = data[:n]
	}
	return f, data, nil
}
