package djlink

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func announcePacket(name string, id uint8) []byte {
	b := make([]byte, 0x36)
	copy(b, Header)
	b[offType] = TypeKeepalive
	copy(b[offName:offName+nameLen], name)
	b[offAnnounce] = id
	return b
}

func statusPacket(id uint8, master bool) []byte {
	b := make([]byte, 0x100)
	copy(b, Header)
	b[offType] = TypeStatus
	b[offDeviceID] = id
	if master {
		b[offFlags] = masterFlag
	}
	return b
}

func beatPacket(id uint8, rawBPM uint16, beat uint8) []byte {
	b := make([]byte, 0x60)
	copy(b, Header)
	b[offType] = TypeBeat
	b[offDeviceID] = id
	binary.BigEndian.PutUint16(b[offBPM:], rawBPM)
	b[offBeat] = beat
	return b
}

func TestParsersRejectShortOrForeignPackets(t *testing.T) {
	inputs := [][]byte{
		nil,
		{},
		Header,
		make([]byte, 200), // no header
		append([]byte("Qspt1WmJOX"), make([]byte, 200)...),
		announcePacket("CDJ", 1)[:31],
		statusPacket(1, true)[:99],
		beatPacket(1, 12000, 1)[:95],
	}
	for _, in := range inputs {
		assert.NotPanics(t, func() {
			_, ok := ParseAnnounce(in)
			assert.False(t, ok && len(in) < minAnnounceLen)
			_, ok = ParseStatus(in)
			assert.False(t, ok)
			_, ok = ParseBeat(in)
			assert.False(t, ok)
		})
	}
}

func TestParseAnnounce(t *testing.T) {
	dev, ok := ParseAnnounce(announcePacket("CDJ-TEST", 5))
	require.True(t, ok)
	assert.Equal(t, "CDJ-TEST", dev.Name)
	assert.Equal(t, uint8(5), dev.ID)
}

func TestParseAnnounceTrimsPadding(t *testing.T) {
	pkt := announcePacket("  XDJ \x00\x00", 2)
	dev, ok := ParseAnnounce(pkt)
	require.True(t, ok)
	assert.Equal(t, "XDJ", dev.Name)
}

func TestParseStatus(t *testing.T) {
	st, ok := ParseStatus(statusPacket(3, true))
	require.True(t, ok)
	assert.Equal(t, uint8(3), st.DeviceID)
	assert.True(t, st.Master)

	st, ok = ParseStatus(statusPacket(3, false))
	require.True(t, ok)
	assert.False(t, st.Master)

	// beat type byte on a status-sized packet
	wrong := statusPacket(3, true)
	wrong[offType] = TypeBeat
	_, ok = ParseStatus(wrong)
	assert.False(t, ok)
}

func TestParseBeat(t *testing.T) {
	pkt := beatPacket(2, 0, 1)
	pkt[offBPM], pkt[offBPM+1] = 0x2E, 0xE0

	beat, ok := ParseBeat(pkt)
	require.True(t, ok)
	assert.Equal(t, uint8(2), beat.DeviceID)
	assert.InDelta(t, 117.44, beat.BPM, 1e-9)
	assert.Equal(t, uint8(1), beat.BeatInMeasure)
}

func TestParseBeatRejectsBeatOutOfRange(t *testing.T) {
	for _, b := range []uint8{0, 5, 0xFF} {
		_, ok := ParseBeat(beatPacket(1, 12000, b))
		assert.False(t, ok, "beat %d", b)
	}
}

func TestParseBeatBPMRoundTrip(t *testing.T) {
	for raw := 0; raw <= 0xFFFF; raw += 7 {
		beat, ok := ParseBeat(beatPacket(1, uint16(raw), 2))
		require.True(t, ok)
		assert.InDelta(t, float64(raw)/100, beat.BPM, 0.005)
	}
}

func TestBuildKeepalive(t *testing.T) {
	pkt := BuildKeepalive("DJ Sync Server", 5)
	require.Len(t, pkt, 0x36)
	assert.True(t, HasHeader(pkt))
	assert.Equal(t, TypeKeepalive, pkt[offType])
	assert.Equal(t, "DJ Sync Server", string(pkt[offName:offName+14]))
	assert.Equal(t, byte(0), pkt[offName+14])
	assert.Equal(t, []byte{0x01, 0x02, 0x00, 0x36, 0x05, 0x01}, pkt[0x1F:0x25])
}

func TestBuildKeepaliveTruncatesLongName(t *testing.T) {
	pkt := BuildKeepalive("a name that is far longer than twenty bytes", 1)
	assert.Equal(t, "a name that is far l", string(pkt[offName:offName+nameLen]))
	assert.Equal(t, byte(0x01), pkt[0x1F])
}
