package sources

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ipatlas/ipatlas/rangedb"
)

type fakeGeoSource struct {
	points map[string]*GeoPoint
	ranges map[rangedb.Family][]rangedb.Record
}

func (f *fakeGeoSource) Lookup(ip net.IP) (*GeoPoint, error) {
	return f.points[ip.String()], nil
}

func (f *fakeGeoSource) Ranges(family rangedb.Family) ([]rangedb.Record, error) {
	return f.ranges[family], nil
}

func geoRecord(start, end uint64, lat, lon float64) rangedb.Record {
	return rangedb.Record{
		Start:   rangedb.Uint128{Lo: start},
		End:     rangedb.Uint128{Lo: end},
		Payload: rangedb.GeoPayload{Latitude: lat, Longitude: lon},
	}
}

func TestAugmentGeoFillsGapsOnly(t *testing.T) {
	table := rangedb.NewTable(rangedb.DatasetGeo, rangedb.FamilyIPv4)
	table.Records = []rangedb.Record{
		geoRecord(100, 200, 10, 10),
		geoRecord(300, 400, 20, 20),
	}

	added := AugmentGeo(table, []rangedb.Record{
		// Straddles the first primary record: only the flanks survive.
		geoRecord(50, 250, 99, 99),
		// Entirely inside a gap: inserted whole.
		geoRecord(500, 600, 88, 88),
		// Entirely shadowed by a primary record: contributes nothing.
		geoRecord(310, 390, 77, 77),
	})

	assert.Equal(t, 3, added)
	require.NoError(t, table.Validate())
	require.Len(t, table.Records, 5)

	expected := []rangedb.Record{
		geoRecord(50, 99, 99, 99),
		geoRecord(100, 200, 10, 10),
		geoRecord(201, 250, 99, 99),
		geoRecord(300, 400, 20, 20),
		geoRecord(500, 600, 88, 88),
	}
	assert.Equal(t, expected, table.Records)
}

func TestAugmentGeoSpanningSeveralPrimaries(t *testing.T) {
	table := rangedb.NewTable(rangedb.DatasetGeo, rangedb.FamilyIPv4)
	table.Records = []rangedb.Record{
		geoRecord(100, 200, 10, 10),
		geoRecord(300, 400, 20, 20),
		geoRecord(500, 600, 30, 30),
	}

	added := AugmentGeo(table, []rangedb.Record{geoRecord(150, 550, 99, 99)})

	assert.Equal(t, 2, added)
	require.NoError(t, table.Validate())

	expected := []rangedb.Record{
		geoRecord(100, 200, 10, 10),
		geoRecord(201, 299, 99, 99),
		geoRecord(300, 400, 20, 20),
		geoRecord(401, 499, 99, 99),
		geoRecord(500, 600, 30, 30),
	}
	assert.Equal(t, expected, table.Records)
}

func TestAugmentGeoEmptyPrimary(t *testing.T) {
	table := rangedb.NewTable(rangedb.DatasetGeo, rangedb.FamilyIPv4)

	added := AugmentGeo(table, []rangedb.Record{
		geoRecord(500, 600, 88, 88),
		geoRecord(100, 200, 77, 77),
	})

	assert.Equal(t, 2, added)
	require.NoError(t, table.Validate())
	assert.Equal(t, rangedb.Uint128{Lo: 100}, table.Records[0].Start)
	assert.Equal(t, rangedb.Uint128{Lo: 500}, table.Records[1].Start)
}

func TestCrossCheckGeo(t *testing.T) {
	table := rangedb.NewTable(rangedb.DatasetGeo, rangedb.FamilyIPv4)
	table.Records = []rangedb.Record{
		geoRecord(0x01010100, 0x010101ff, 10, 10),
		geoRecord(0x08080800, 0x080808ff, 20, 20),
		geoRecord(0x09090900, 0x090909ff, 30, 30),
	}

	source := &fakeGeoSource{
		points: map[string]*GeoPoint{
			// Within tolerance of the first record.
			"1.1.1.0": {Latitude: 10.5, Longitude: 9.5},
			// Way off the second one.
			"8.8.8.0": {Latitude: -20, Longitude: 120},
			// No answer at all for the third: not counted as checked.
		},
	}

	checked, disagreed := CrossCheckGeo(table, source, 1)
	assert.Equal(t, 2, checked)
	assert.Equal(t, 1, disagreed)

	// A coarse stride only samples the first record.
	checked, disagreed = CrossCheckGeo(table, source, 100)
	assert.Equal(t, 1, checked)
	assert.Equal(t, 0, disagreed)
}
