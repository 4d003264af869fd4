package rangedb

import (
	"encoding/binary"
	"fmt"
	"math"
	"net"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/suite"
)

type RoundtripTestSuite struct {
	suite.Suite

	fs afero.Fs
}

func (suite *RoundtripTestSuite) SetupTest() {
	suite.fs = afero.NewMemMapFs()
}

func (suite *RoundtripTestSuite) buildASNTables(count int) (*Table, *Table) {
	v4 := NewTable(DatasetASN, FamilyIPv4)

	for i := 0; i < count; i++ {
		start := Uint128{Lo: uint64(i) * 512}
		v4.Records = append(v4.Records, Record{
			Start: start,
			End:   start.Add(Uint128{Lo: 255}),
			Payload: ASNPayload{
				CIDR:   fmt.Sprintf("10.%d.0.0/24", i%200),
				ASN:    fmt.Sprintf("%d", 13335+i%7),
				ASName: fmt.Sprintf("NET-%d", i%7),
			},
		})
	}

	v6 := NewTable(DatasetASN, FamilyIPv6)

	for i := 0; i < count/2; i++ {
		start := Uint128{Hi: 0x2001<<48 | uint64(i), Lo: uint64(i)}
		v6.Records = append(v6.Records, Record{
			Start:   start,
			End:     start.Add(Uint128{Lo: ^uint64(0)}),
			Payload: ASNPayload{CIDR: "2001::/16", ASN: "64512", ASName: "SIX"},
		})
	}

	return v4, v6
}

func (suite *RoundtripTestSuite) TestLosslessASN() {
	v4, v6 := suite.buildASNTables(1000)

	suite.NoError(WriteDatabase(suite.fs, "asn.bin", DatasetASN, v4, v6))

	db, err := OpenDatabase(suite.fs, "asn.bin", DatasetASN)
	suite.NoError(err)
	suite.Equal(len(v4.Records)+len(v6.Records), db.Records())

	for i, rec := range v4.Records {
		loaded := db.Table(FamilyIPv4)
		suite.Equal(rec.Start, loaded.starts[i])
		suite.Equal(rec.End, loaded.ends[i])
		suite.Equal(rec.Payload, loaded.payloads[i])
	}

	for i, rec := range v6.Records {
		loaded := db.Table(FamilyIPv6)
		suite.Equal(rec.Start, loaded.starts[i])
		suite.Equal(rec.End, loaded.ends[i])
		suite.Equal(rec.Payload, loaded.payloads[i])
	}
}

func (suite *RoundtripTestSuite) TestLosslessGeoFloats() {
	v4 := NewTable(DatasetGeo, FamilyIPv4)

	// Values picked to break if anybody rounds them on the way.
	coords := [][2]float64{
		{55.755826, 37.6172999},
		{-33.8688197, 151.2092955},
		{math.Pi, -math.E},
		{5e-324, -5e-324}, // denormals survive too
	}

	for i, c := range coords {
		start := Uint128{Lo: uint64(i) * 1000}
		v4.Records = append(v4.Records, Record{
			Start:   start,
			End:     start.Add(Uint128{Lo: 999}),
			Payload: GeoPayload{Latitude: c[0], Longitude: c[1]},
		})
	}

	v6 := NewTable(DatasetGeo, FamilyIPv6)

	suite.NoError(WriteDatabase(suite.fs, "geo.bin", DatasetGeo, v4, v6))

	db, err := OpenDatabase(suite.fs, "geo.bin", DatasetGeo)
	suite.NoError(err)

	for i, c := range coords {
		payload := db.Table(FamilyIPv4).payloads[i].(GeoPayload)
		suite.Equal(math.Float64bits(c[0]), math.Float64bits(payload.Latitude))
		suite.Equal(math.Float64bits(c[1]), math.Float64bits(payload.Longitude))
	}
}

func (suite *RoundtripTestSuite) TestLosslessISPAndProxy() {
	v4 := NewTable(DatasetISP, FamilyIPv4)
	v4.Records = append(v4.Records, Record{
		Start:   Uint128{Lo: 100},
		End:     Uint128{Lo: 200},
		Payload: ISPPayload{ISP: "Example Net", Domain: "example.net", Provider: ""},
	})

	suite.NoError(WriteDatabase(suite.fs, "isp.bin", DatasetISP,
		v4, NewTable(DatasetISP, FamilyIPv6)))

	db, err := OpenDatabase(suite.fs, "isp.bin", DatasetISP)
	suite.NoError(err)
	suite.Equal(
		ISPPayload{ISP: "Example Net", Domain: "example.net"},
		db.Table(FamilyIPv4).payloads[0])

	proxy := NewTable(DatasetProxy, FamilyIPv6)
	proxy.Records = append(proxy.Records, Record{
		Start:   AddrToUint128(net.ParseIP("2001:db8::")),
		End:     AddrToUint128(net.ParseIP("2001:db8::ffff")),
		Payload: ProxyPayload{ProxyType: "VPN"},
	})

	suite.NoError(WriteDatabase(suite.fs, "proxy_types.bin", DatasetProxy,
		NewTable(DatasetProxy, FamilyIPv4), proxy))

	db, err = OpenDatabase(suite.fs, "proxy_types.bin", DatasetProxy)
	suite.NoError(err)

	payload, ok := db.Lookup(net.ParseIP("2001:db8::1234"))
	suite.True(ok)
	suite.Equal(ProxyPayload{ProxyType: "VPN"}, payload)
}

func (suite *RoundtripTestSuite) TestMappedRangeKeepsHighBits() {
	// The v6 editions of the tabular sources carry the ::ffff:0:0/96
	// block. Those rows are IPv6 table data: the skip index must keep
	// their high bits instead of reclassifying them as IPv4.
	base := Uint128{Lo: 0xFFFF01000000} // ::ffff:1.0.0.0

	v6 := NewTable(DatasetProxy, FamilyIPv6)

	for i := 0; i < 3*indexStride; i++ {
		start := base.Add(Uint128{Lo: uint64(i) * 256})
		v6.Records = append(v6.Records, Record{
			Start:   start,
			End:     start.Add(Uint128{Lo: 255}),
			Payload: ProxyPayload{ProxyType: "VPN"},
		})
	}

	data, err := EncodeDatabase(DatasetProxy, NewTable(DatasetProxy, FamilyIPv4), v6)
	suite.Require().NoError(err)

	db, err := LoadDatabase(data, DatasetProxy)
	suite.Require().NoError(err)

	table := db.Table(FamilyIPv6)
	suite.Require().Equal(3*indexStride, table.Len())
	suite.Equal(base, table.starts[0])
	suite.Equal(base, table.idxStarts[0])

	// Every block boundary answers at its true 128-bit address.
	for _, i := range []int{0, indexStride - 1, indexStride, 2 * indexStride} {
		addr := base.Add(Uint128{Lo: uint64(i) * 256})

		payload, ok := table.Lookup(addr)
		suite.Require().True(ok, "record %d", i)
		suite.Equal(ProxyPayload{ProxyType: "VPN"}, payload)
	}

	// The same numeric value without the mapping bits is a different
	// address and matches nothing.
	_, ok := table.Lookup(Uint128{Lo: 0x01000000})
	suite.False(ok)
}

func (suite *RoundtripTestSuite) TestHostileCountsRejected() {
	v4, v6 := suite.buildASNTables(10)
	data, err := EncodeDatabase(DatasetASN, v4, v6)
	suite.Require().NoError(err)

	// Header layout: v4Count at byte 8, v6Off at 24, v4IndexLen at 28.
	// Each variant keeps fileSize honest so only the new bound can
	// catch it, and must fail before any count-sized allocation.
	mangle := func(offset int, value uint32) []byte {
		mangled := append([]byte(nil), data...)
		binary.LittleEndian.PutUint32(mangled[offset:], value)

		return mangled
	}

	const hugeCount = 1 << 30

	_, err = LoadDatabase(
		mangle(8, hugeCount), DatasetASN)
	suite.ErrorIs(err, ErrTruncated, "huge v4 count")

	hostile := mangle(8, hugeCount)
	binary.LittleEndian.PutUint32(hostile[28:],
		(hugeCount+indexStride-1)/indexStride)

	_, err = LoadDatabase(hostile, DatasetASN)
	suite.ErrorIs(err, ErrTruncated, "huge v4 count with matching index")

	_, err = LoadDatabase(
		mangle(headerSize, 1<<31-1), DatasetASN)
	suite.ErrorIs(err, ErrTruncated, "huge pool count")

	_, err = LoadDatabase(
		mangle(24, uint32(len(data)+100)), DatasetASN)
	suite.ErrorIs(err, ErrTruncated, "v6 section beyond the file")
}

func (suite *RoundtripTestSuite) TestOversizedPayloadStringRejected() {
	v4 := NewTable(DatasetProxy, FamilyIPv4)
	v4.Records = []Record{
		{
			Start:   Uint128{Lo: 1},
			End:     Uint128{Lo: 2},
			Payload: ProxyPayload{ProxyType: strings.Repeat("x", 1<<16)},
		},
	}

	_, err := EncodeDatabase(DatasetProxy, v4, NewTable(DatasetProxy, FamilyIPv6))
	suite.Error(err)
	suite.Contains(err.Error(), "pool entry limit")
}

func (suite *RoundtripTestSuite) TestEncoderFailsFastOnInvariantViolation() {
	v4 := NewTable(DatasetASN, FamilyIPv4)
	v4.Records = []Record{
		{
			Start:   Uint128{Lo: 100},
			End:     Uint128{Lo: 300},
			Payload: ASNPayload{ASN: "1", ASName: "a", CIDR: "x"},
		},
		{
			Start:   Uint128{Lo: 200},
			End:     Uint128{Lo: 400},
			Payload: ASNPayload{ASN: "2", ASName: "b", CIDR: "y"},
		},
	}

	_, err := EncodeDatabase(DatasetASN, v4, NewTable(DatasetASN, FamilyIPv6))

	suite.Error(err)
	suite.IsType(&InvariantError{}, err)
}

func (suite *RoundtripTestSuite) TestFormatErrors() {
	v4, v6 := suite.buildASNTables(10)
	data, err := EncodeDatabase(DatasetASN, v4, v6)
	suite.NoError(err)

	cases := []struct {
		name     string
		mangle   func([]byte) []byte
		expected error
	}{
		{"magic", func(b []byte) []byte { b[0] = 'X'; return b }, ErrBadMagic},
		{"version", func(b []byte) []byte { b[4] = 99; return b }, ErrBadVersion},
		{"truncated", func(b []byte) []byte { return b[:len(b)-7] }, ErrTruncated},
		{"short", func(b []byte) []byte { return b[:10] }, ErrTruncated},
	}

	for _, testCase := range cases {
		mangled := testCase.mangle(append([]byte(nil), data...))

		_, err := LoadDatabase(mangled, DatasetASN)

		suite.Error(err, testCase.name)
		suite.ErrorIs(err, testCase.expected, testCase.name)

		ferr, ok := err.(*FormatError)
		suite.True(ok, testCase.name)
		suite.Equal(DatasetASN, ferr.Dataset)
	}

	// A perfectly valid file of another dataset kind.
	_, err = LoadDatabase(data, DatasetGeo)
	suite.ErrorIs(err, ErrWrongDataset)

	// Missing file.
	_, err = OpenDatabase(suite.fs, "nope.bin", DatasetASN)
	suite.Error(err)
}

func TestRoundtripTestSuite(t *testing.T) {
	suite.Run(t, &RoundtripTestSuite{})
}
