package rangedb

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFamilyOf(t *testing.T) {
	assert.Equal(t, FamilyIPv4, FamilyOf(net.ParseIP("127.0.0.1")))
	assert.Equal(t, FamilyIPv4, FamilyOf(net.ParseIP("::ffff:127.0.0.1")))
	assert.Equal(t, FamilyIPv6, FamilyOf(net.ParseIP("::1")))
	assert.Equal(t, FamilyIPv6, FamilyOf(net.ParseIP("2001:db8::")))
}

func TestAddrConversionRoundtrip(t *testing.T) {
	for _, text := range []string{
		"0.0.0.0",
		"10.0.0.1",
		"255.255.255.255",
		"::",
		"::1",
		"2001:db8::dead:beef",
		"ffff:ffff:ffff:ffff:ffff:ffff:ffff:ffff",
	} {
		ip := net.ParseIP(text)
		family := FamilyOf(ip)

		restored := Uint128ToAddr(AddrToUint128(ip), family)
		assert.True(t, ip.Equal(restored), text)
	}
}

func TestAddrOrderingMatchesIntegers(t *testing.T) {
	a := AddrToUint128(net.ParseIP("1.2.3.4"))
	b := AddrToUint128(net.ParseIP("1.2.3.5"))
	c := AddrToUint128(net.ParseIP("2.0.0.0"))

	assert.True(t, a.Less(b))
	assert.True(t, b.Less(c))
	assert.Equal(t, Uint128{Lo: 0x01020304}, a)
}

func TestParseSourceAddr(t *testing.T) {
	value, err := ParseSourceAddr("16909060", FamilyIPv4)
	require.NoError(t, err)
	assert.Equal(t, Uint128{Lo: 0x01020304}, value)

	value, err = ParseSourceAddr("4294967295", FamilyIPv4)
	require.NoError(t, err)
	assert.Equal(t, Uint128{Lo: 0xFFFFFFFF}, value)

	_, err = ParseSourceAddr("4294967296", FamilyIPv4)
	assert.Error(t, err)

	value, err = ParseSourceAddr("4294967296", FamilyIPv6)
	require.NoError(t, err)
	assert.Equal(t, Uint128{Lo: 1 << 32}, value)

	_, err = ParseSourceAddr("not-a-number", FamilyIPv4)
	assert.Error(t, err)
}
