// Package netaddr provides the validated public address type used across the
// enrichment pipeline, plus an ordered set of those addresses.
package netaddr

import (
	"errors"
	"fmt"
	"net/netip"
)

// Common errors.
var (
	ErrInvalidAddress = errors.New("invalid IP address")
	ErrNotPublic      = errors.New("address is not publicly routable")
)

// Address is a public IPv4 or IPv6 address. The zero value is invalid and is
// never produced by Parse or FromAddr.
type Address struct {
	ip netip.Addr
}

// Parse converts text into a public Address. IPv4-mapped IPv6 forms are
// unmapped so that ::ffff:1.2.3.4 and 1.2.3.4 compare equal.
func Parse(s string) (Address, error) {
	ip, err := netip.ParseAddr(s)
	if err != nil {
		return Address{}, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	return FromAddr(ip)
}

// MustParse is like Parse but panics on error. Intended for tests and constants.
func MustParse(s string) Address {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

// FromAddr validates an already-parsed address.
func FromAddr(ip netip.Addr) (Address, error) {
	if !ip.IsValid() {
		return Address{}, ErrInvalidAddress
	}
	ip = ip.Unmap().WithZone("")
	if !IsPublic(ip) {
		return Address{}, fmt.Errorf("%w: %s", ErrNotPublic, ip)
	}
	return Address{ip: ip}, nil
}

// Addr returns the underlying netip.Addr.
func (a Address) Addr() netip.Addr { return a.ip }

// IsValid reports whether a was produced by Parse or FromAddr.
func (a Address) IsValid() bool { return a.ip.IsValid() }

// Is4 reports whether a is an IPv4 address.
func (a Address) Is4() bool { return a.ip.Is4() }

// String returns the canonical textual form.
func (a Address) String() string { return a.ip.String() }

// Compare orders addresses numerically; IPv4 sorts before IPv6.
func (a Address) Compare(b Address) int { return a.ip.Compare(b.ip) }

// Less reports whether a sorts before b.
func (a Address) Less(b Address) bool { return a.ip.Less(b.ip) }

// Uint32 returns the 32-bit numeric value of an IPv4 address, and false for IPv6.
func (a Address) Uint32() (uint32, bool) {
	if !a.ip.Is4() {
		return 0, false
	}
	b := a.ip.As4()
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3]), true
}

// MarshalText implements encoding.TextMarshaler.
func (a Address) MarshalText() ([]byte, error) {
	return a.ip.MarshalText()
}
