package djlink

// EventType identifies a registry notification
type EventType int

const (
	DeviceConnected EventType = iota
	DeviceDisconnected
	MasterChanged
	Beat
)

func (t EventType) String() string {
	switch t {
	case DeviceConnected:
		return "deviceConnected"
	case DeviceDisconnected:
		return "deviceDisconnected"
	case MasterChanged:
		return "masterChanged"
	case Beat:
		return "beat"
	}
	return "unknown"
}

// Event is emitted by the Manager. Only the field matching Type is set.
type Event struct {
	Type     EventType
	Device   Device   // DeviceConnected, DeviceDisconnected
	MasterID uint8    // MasterChanged
	Beat     BeatInfo // Beat
}
