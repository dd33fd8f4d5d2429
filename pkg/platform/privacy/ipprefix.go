// Package privacy reduces client addresses to network prefixes before they
// reach logs or events.
package privacy

import "net/netip"

const (
	v4Bits = 24
	v6Bits = 48
)

// IPPrefix returns the /24 (IPv4) or /48 (IPv6) network containing ip in
// CIDR form. IPv4-mapped IPv6 addresses are treated as IPv4. Empty or
// unparseable input yields "".
func IPPrefix(ip string) string {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return ""
	}
	addr = addr.Unmap().WithZone("")
	bits := v6Bits
	if addr.Is4() {
		bits = v4Bits
	}
	p, err := addr.Prefix(bits)
	if err != nil {
		return ""
	}
	return p.String()
}
