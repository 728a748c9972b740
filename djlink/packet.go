package djlink

import (
	"bytes"
	"encoding/binary"
	"strings"
	"time"
)

// Header is the magic prefix shared by every DJ Link packet ("Qspt1WmJOL")
var Header = []byte{0x51, 0x73, 0x70, 0x74, 0x31, 0x57, 0x6d, 0x4a, 0x4f, 0x4c}

// Packet type byte at offset 10
const (
	TypeKeepalive uint8 = 0x06
	TypeStatus    uint8 = 0x0a
	TypeBeat      uint8 = 0x28
)

// UDP ports used by the protocol
const (
	AnnouncePort = 50000
	BeatPort     = 50001
	StatusPort   = 50002
)

// Minimum lengths and field offsets
const (
	minAnnounceLen = 32
	minStatusLen   = 100
	minBeatLen     = 96

	offType     = 10
	offName     = 11
	nameLen     = 20
	offAnnounce = 0x24 // device id in announce packets
	offDeviceID = 0x21 // device id in status and beat packets
	offFlags    = 0x89
	offBPM      = 0x5A
	offBeat     = 0x5C

	masterFlag = 0x20

	keepaliveLen = 0x36
)

// Device is a player or mixer seen on the network
type Device struct {
	Name     string    `json:"name"`
	ID       uint8     `json:"id"`
	Address  string    `json:"address"`
	LastSeen time.Time `json:"lastSeen"`
}

// StatusUpdate is the part of a status packet the registry cares about
type StatusUpdate struct {
	DeviceID uint8
	Master   bool
}

// BeatInfo is produced once per decoded beat packet and passed by value
type BeatInfo struct {
	DeviceID      uint8     `json:"deviceId"`
	BPM           float64   `json:"bpm"`
	Beat          uint      `json:"beat"`
	BeatInMeasure uint8     `json:"beatInMeasure"`
	Timestamp     time.Time `json:"timestamp"`
}

// HasHeader reports whether b starts with the DJ Link magic header
func HasHeader(b []byte) bool {
	return len(b) >= len(Header) && bytes.Equal(b[:len(Header)], Header)
}

// ParseAnnounce decodes an announce/keepalive packet. Address and LastSeen
// are left for the caller to fill in.
func ParseAnnounce(b []byte) (Device, bool) {
	if len(b) < minAnnounceLen || !HasHeader(b) {
		return Device{}, false
	}
	// id lives past the minimum length on short frames
	if len(b) <= offAnnounce {
		return Device{}, false
	}
	return Device{
		Name: readName(b),
		ID:   b[offAnnounce],
	}, true
}

// ParseStatus decodes the device id and tempo-master flag of a status packet
func ParseStatus(b []byte) (StatusUpdate, bool) {
	if len(b) < minStatusLen || !HasHeader(b) || b[offType] != TypeStatus {
		return StatusUpdate{}, false
	}
	// flags byte sits beyond the minimum length
	if len(b) <= offFlags {
		return StatusUpdate{DeviceID: b[offDeviceID]}, true
	}
	return StatusUpdate{
		DeviceID: b[offDeviceID],
		Master:   b[offFlags]&masterFlag != 0,
	}, true
}

// ParseBeat decodes a beat packet. Timestamp is left zero.
func ParseBeat(b []byte) (BeatInfo, bool) {
	if len(b) < minBeatLen || !HasHeader(b) || b[offType] != TypeBeat {
		return BeatInfo{}, false
	}
	beat := b[offBeat]
	if beat < 1 || beat > 4 {
		return BeatInfo{}, false
	}
	raw := binary.BigEndian.Uint16(b[offBPM : offBPM+2])
	return BeatInfo{
		DeviceID:      b[offDeviceID],
		BPM:           float64(raw) / 100,
		Beat:          uint(beat),
		BeatInMeasure: beat,
	}, true
}

// BuildKeepalive builds the announce packet we broadcast to stay visible
// on the network
func BuildKeepalive(deviceName string, playerNumber uint8) []byte {
	p := make([]byte, keepaliveLen)
	copy(p, Header)
	p[offType] = TypeKeepalive

	name := []byte(deviceName)
	if len(name) > nameLen {
		name = name[:nameLen]
	}
	copy(p[offName:offName+nameLen], name)

	p[0x1F] = 0x01
	p[0x20] = 0x02 // CDJ
	p[0x21] = 0x00
	p[0x22] = keepaliveLen
	p[0x23] = playerNumber
	p[0x24] = 0x01
	return p
}

func readName(b []byte) string {
	end := offName + nameLen
	if end > len(b) {
		end = len(b)
	}
	name := strings.ReplaceAll(string(b[offName:end]), "\x00", "")
	return strings.TrimSpace(name)
}
