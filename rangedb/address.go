package rangedb

import (
	"encoding/binary"
	"fmt"
	"net"
)

// Family tells which address space a table covers. IPv4 and IPv6
// tables never answer each other's queries.
type Family uint8

const (
	FamilyIPv4 Family = 4
	FamilyIPv6 Family = 6
)

func (f Family) String() string {
	switch f {
	case FamilyIPv4:
		return "ipv4"
	case FamilyIPv6:
		return "ipv6"
	}

	return fmt.Sprintf("family(%d)", uint8(f))
}

// AddrWidth is the fixed byte width of an address of this family as it
// appears in the on-disk skip index.
func (f Family) AddrWidth() int {
	if f == FamilyIPv4 {
		return 4
	}

	return 16
}

// FamilyOf detects the address family of a parsed IP. 4-in-6 mapped
// addresses belong to the IPv4 family.
func FamilyOf(ip net.IP) Family {
	if ip.To4() != nil {
		return FamilyIPv4
	}

	return FamilyIPv6
}

// AddrToUint128 converts an IP address into the integer it compares
// as. IPv4 addresses occupy the low 32 bits.
func AddrToUint128(ip net.IP) Uint128 {
	if v4 := ip.To4(); v4 != nil {
		return Uint128{Lo: uint64(binary.BigEndian.Uint32(v4))}
	}

	v6 := ip.To16()

	return Uint128{
		Hi: binary.BigEndian.Uint64(v6[:8]),
		Lo: binary.BigEndian.Uint64(v6[8:]),
	}
}

// addrFromBytes decodes the fixed-width big-endian address form used
// by the on-disk skip index. It deliberately bypasses net.IP: a
// 16-byte value inside the v4-mapped range is IPv6 table data and
// must keep its high bits instead of being reclassified.
func addrFromBytes(b []byte) Uint128 {
	if len(b) == 4 {
		return Uint128{Lo: uint64(binary.BigEndian.Uint32(b))}
	}

	return Uint128{
		Hi: binary.BigEndian.Uint64(b[:8]),
		Lo: binary.BigEndian.Uint64(b[8:]),
	}
}

// Uint128ToAddr is the inverse of AddrToUint128 for a known family.
func Uint128ToAddr(value Uint128, family Family) net.IP {
	if family == FamilyIPv4 {
		ip := make(net.IP, 4)
		binary.BigEndian.PutUint32(ip, uint32(value.Lo))

		return ip
	}

	ip := make(net.IP, 16)
	binary.BigEndian.PutUint64(ip[:8], value.Hi)
	binary.BigEndian.PutUint64(ip[8:], value.Lo)

	return ip
}

// ParseSourceAddr parses the decimal integer address notation used by
// the tabular range sources and checks it fits the family.
func ParseSourceAddr(text string, family Family) (Uint128, error) {
	value, err := ParseDecimalUint128(text)
	if err != nil {
		return Uint128{}, err
	}

	if family == FamilyIPv4 && (value.Hi != 0 || value.Lo > 0xFFFFFFFF) {
		return Uint128{}, fmt.Errorf("address %s does not fit ipv4", text)
	}

	return value, nil
}
