package djlink

import (
	"net"

	"github.com/pkg/errors"
)

// Interface is an IPv4 network interface we can run the protocol on
type Interface struct {
	Name    string
	Address net.IP
	Netmask net.IPMask
}

// Broadcast returns the subnet broadcast address (ip | ^mask)
func (i Interface) Broadcast() net.IP {
	return BroadcastAddress(i.Address, i.Netmask)
}

// BroadcastAddress computes ip | ^mask for an IPv4 address
func BroadcastAddress(ip net.IP, mask net.IPMask) net.IP {
	ip4 := ip.To4()
	if ip4 == nil {
		return nil
	}
	if len(mask) == net.IPv6len {
		mask = mask[12:]
	}
	if len(mask) != net.IPv4len {
		return nil
	}
	out := make(net.IP, net.IPv4len)
	for i := range ip4 {
		out[i] = ip4[i]&mask[i] | ^mask[i]
	}
	return out
}

// ScanInterfaces lists non-loopback interfaces with an IPv4 address
func ScanInterfaces() ([]Interface, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, errors.Wrap(err, "listing interfaces")
	}

	var result []Interface
	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 || iface.Flags&net.FlagUp == 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipnet, ok := addr.(*net.IPNet)
			if !ok || ipnet.IP.To4() == nil {
				continue
			}
			result = append(result, Interface{
				Name:    iface.Name,
				Address: ipnet.IP.To4(),
				Netmask: ipnet.Mask,
			})
		}
	}
	return result, nil
}

// FindInterface picks the named interface, or the first usable one when
// name is empty
func FindInterface(name string) (Interface, error) {
	ifaces, err := ScanInterfaces()
	if err != nil {
		return Interface{}, err
	}
	if len(ifaces) == 0 {
		return Interface{}, errors.New("no IPv4 network interface found")
	}
	if name == "" {
		return ifaces[0], nil
	}
	for _, iface := range ifaces {
		if iface.Name == name || iface.Address.String() == name {
			return iface, nil
		}
	}
	return Interface{}, errors.Errorf("network interface %q not found", name)
}
