package sources

import (
	"net"

	"github.com/oschwald/maxminddb-golang"
	"github.com/spf13/afero"

	"github.com/juju/errors"

	"github.com/ipatlas/ipatlas/rangedb"
)

// GeoPoint is what the third-party geo database answers for one
// address. A nil GeoPoint means the database has no coverage there.
type GeoPoint struct {
	Latitude  float64
	Longitude float64
}

// GeoSource is the opaque capability the augmenter consumes: point
// lookup, plus enumeration of covered ranges for gap filling. The
// binary format behind it is somebody else's problem.
type GeoSource interface {
	Lookup(ip net.IP) (*GeoPoint, error)
	Ranges(family rangedb.Family) ([]rangedb.Record, error)
}

type maxmindLocation struct {
	Location struct {
		Latitude  float64 `maxminddb:"latitude"`
		Longitude float64 `maxminddb:"longitude"`
	} `maxminddb:"location"`
}

// MaxMind adapts a GeoLite2-City database to GeoSource.
type MaxMind struct {
	reader *maxminddb.Reader
}

func OpenMaxMind(fs afero.Fs, path string) (*MaxMind, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errors.Annotatef(err, "Cannot read maxmind database %s", path)
	}

	reader, err := maxminddb.FromBytes(data)
	if err != nil {
		return nil, errors.Annotatef(err, "Cannot parse maxmind database %s", path)
	}

	return &MaxMind{reader: reader}, nil
}

func (m *MaxMind) Lookup(ip net.IP) (*GeoPoint, error) {
	record := maxmindLocation{}

	if err := m.reader.Lookup(ip, &record); err != nil {
		return nil, errors.Annotate(err, "Cannot lookup ip address")
	}

	if record.Location.Latitude == 0 && record.Location.Longitude == 0 {
		return nil, nil
	}

	return &GeoPoint{
		Latitude:  record.Location.Latitude,
		Longitude: record.Location.Longitude,
	}, nil
}

// Ranges walks the database's search tree and returns every covered
// network of the requested family as a geo range record, sorted the
// way the tree yields them (ascending, non-overlapping).
func (m *MaxMind) Ranges(family rangedb.Family) ([]rangedb.Record, error) {
	rv := []rangedb.Record{}
	networks := m.reader.Networks(maxminddb.SkipAliasedNetworks)

	for networks.Next() {
		record := maxmindLocation{}

		subnet, err := networks.Network(&record)
		if err != nil {
			return nil, errors.Annotate(err, "Cannot decode maxmind network")
		}

		if record.Location.Latitude == 0 && record.Location.Longitude == 0 {
			continue
		}

		if rangedb.FamilyOf(subnet.IP) != family {
			continue
		}

		start, end := subnetRange(subnet)
		rv = append(rv, rangedb.Record{
			Start: start,
			End:   end,
			Payload: rangedb.GeoPayload{
				Latitude:  record.Location.Latitude,
				Longitude: record.Location.Longitude,
			},
		})
	}

	if err := networks.Err(); err != nil {
		return nil, errors.Annotate(err, "Cannot traverse maxmind database")
	}

	return rv, nil
}

func (m *MaxMind) Close() error {
	return m.reader.Close()
}

func subnetRange(subnet *net.IPNet) (rangedb.Uint128, rangedb.Uint128) {
	start := rangedb.AddrToUint128(subnet.IP)

	ones, bits := subnet.Mask.Size()
	if subnet.IP.To4() != nil && bits == 128 {
		ones -= 96
		bits = 32
	}

	return start, start.Add(hostMask(uint(bits - ones)))
}

func hostMask(hostBits uint) rangedb.Uint128 {
	switch {
	case hostBits == 0:
		return rangedb.Uint128{}
	case hostBits < 64:
		return rangedb.Uint128{Lo: 1<<hostBits - 1}
	case hostBits == 64:
		return rangedb.Uint128{Lo: ^uint64(0)}
	case hostBits < 128:
		return rangedb.Uint128{Hi: 1<<(hostBits-64) - 1, Lo: ^uint64(0)}
	}

	return rangedb.Uint128{Hi: ^uint64(0), Lo: ^uint64(0)}
}
