package sources

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ipatlas/ipatlas/rangedb"
)

func TestGeoRow(t *testing.T) {
	makeRow := GeoRow(rangedb.FamilyIPv4)

	record, err := makeRow([]string{
		"16777216", "16777471", "AU", "Australia", "Queensland", "Brisbane",
		"-27.467940", "153.028090",
	})
	require.NoError(t, err)
	assert.Equal(t, rangedb.Uint128{Lo: 16777216}, record.Start)
	assert.Equal(t, rangedb.Uint128{Lo: 16777471}, record.End)
	assert.Equal(t,
		rangedb.GeoPayload{Latitude: -27.467940, Longitude: 153.028090},
		record.Payload)

	cases := map[string][]string{
		"too few columns": {"16777216", "16777471", "AU"},
		"zero coordinates": {
			"16777216", "16777471", "-", "-", "-", "-", "0.000000", "0.000000"},
		"placeholder coordinates": {
			"16777216", "16777471", "-", "-", "-", "-", "-", "-"},
		"bad latitude": {
			"16777216", "16777471", "AU", "-", "-", "-", "north", "153.0"},
		"inverted range": {
			"16777471", "16777216", "AU", "-", "-", "-", "-27.5", "153.0"},
		"oversized ipv4 address": {
			"4294967296", "4294967297", "AU", "-", "-", "-", "-27.5", "153.0"},
	}
	for name, data := range cases {
		_, err := makeRow(data)
		assert.Error(t, err, name)
	}
}

func TestASNRow(t *testing.T) {
	makeRow := ASNRow(rangedb.FamilyIPv4)

	record, err := makeRow([]string{
		"16778240", "16779263", "1.0.4.0/22", "13335", "CLOUDFLARENET",
	})
	require.NoError(t, err)
	assert.Equal(t,
		rangedb.ASNPayload{CIDR: "1.0.4.0/22", ASN: "13335", ASName: "CLOUDFLARENET"},
		record.Payload)

	// Blank cidr column is synthesized from the range itself.
	record, err = makeRow([]string{
		"16778240", "16779263", "-", "13335", "CLOUDFLARENET",
	})
	require.NoError(t, err)
	assert.Equal(t, "1.0.4.0/22", record.Payload.(rangedb.ASNPayload).CIDR)

	// Placeholder name becomes the empty string, not a literal dash.
	record, err = makeRow([]string{
		"16778240", "16779263", "1.0.4.0/22", "13335", "-",
	})
	require.NoError(t, err)
	assert.Equal(t, "", record.Payload.(rangedb.ASNPayload).ASName)

	// A range nobody announces is dropped.
	_, err = makeRow([]string{"16778240", "16779263", "1.0.4.0/22", "-", "SOME"})
	assert.Error(t, err)
}

func TestISPRow(t *testing.T) {
	makeRow := ISPRow(rangedb.FamilyIPv4)

	record, err := makeRow([]string{
		"16777216", "16777471", "PUB", "US", "United States",
		"California", "Los Angeles", "Example Net", "example.net",
	})
	require.NoError(t, err)
	assert.Equal(t,
		rangedb.ISPPayload{ISP: "Example Net", Domain: "example.net"},
		record.Payload)

	// The provider column only appears in wider editions.
	record, err = makeRow([]string{
		"16777216", "16777471", "PUB", "US", "United States",
		"California", "Los Angeles", "Example Net", "example.net",
		"-", "-", "-", "-", "Example Provider",
	})
	require.NoError(t, err)
	assert.Equal(t, "Example Provider", record.Payload.(rangedb.ISPPayload).Provider)

	_, err = makeRow([]string{
		"16777216", "16777471", "PUB", "US", "United States",
		"California", "Los Angeles", "-", "-",
	})
	assert.Error(t, err, "all fields empty")

	_, err = makeRow([]string{"16777216", "16777471", "PUB"})
	assert.Error(t, err, "too few columns")
}

func TestProxyRow(t *testing.T) {
	makeRow := ProxyRow(rangedb.FamilyIPv6)

	record, err := makeRow([]string{"281470698520576", "281470698520831", "VPN"})
	require.NoError(t, err)
	assert.Equal(t, rangedb.ProxyPayload{ProxyType: "VPN"}, record.Payload)

	_, err = makeRow([]string{"281470698520576", "281470698520831", "-"})
	assert.Error(t, err, "no proxy type")

	_, err = makeRow([]string{"281470698520576", "281470698520831"})
	assert.Error(t, err, "too few columns")
}
