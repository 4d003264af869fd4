package sources

import (
	"strconv"

	"github.com/juju/errors"

	"github.com/ipatlas/ipatlas/rangedb"
)

// Column layout of the geolocation LITE CSV: start, end, country code,
// country name, region, city, latitude, longitude.
const (
	geoColumns      = 8
	geoColLatitude  = 6
	geoColLongitude = 7
)

// GeoRow parses one row of the tabular geolocation source. Rows with
// both coordinates equal to zero carry no data (the source's own "we
// do not know" marker) and are dropped.
func GeoRow(family rangedb.Family) RowFunc {
	return func(data []string) (*rangedb.Record, error) {
		if len(data) < geoColumns {
			return nil, errors.Errorf("Expected at least %d columns, got %d", geoColumns, len(data))
		}

		start, end, err := parseRowRange(data, family)
		if err != nil {
			return nil, err
		}

		latitude, err := parseCoordinate(data[geoColLatitude])
		if err != nil {
			return nil, errors.Annotate(err, "Incorrect latitude")
		}

		longitude, err := parseCoordinate(data[geoColLongitude])
		if err != nil {
			return nil, errors.Annotate(err, "Incorrect longitude")
		}

		if latitude == 0 && longitude == 0 {
			return nil, errors.New("Empty coordinates")
		}

		return &rangedb.Record{
			Start: start,
			End:   end,
			Payload: rangedb.GeoPayload{
				Latitude:  latitude,
				Longitude: longitude,
			},
		}, nil
	}
}

func parseCoordinate(text string) (float64, error) {
	if text == "" || text == "-" {
		return 0, nil
	}

	return strconv.ParseFloat(text, 64)
}

// parseRowRange reads the leading start/end address pair every tabular
// source shares. Inverted ranges are malformed input, not data.
func parseRowRange(data []string, family rangedb.Family) (rangedb.Uint128, rangedb.Uint128, error) {
	start, err := rangedb.ParseSourceAddr(data[0], family)
	if err != nil {
		return rangedb.Uint128{}, rangedb.Uint128{}, errors.Annotate(err, "Incorrect start address")
	}

	end, err := rangedb.ParseSourceAddr(data[1], family)
	if err != nil {
		return rangedb.Uint128{}, rangedb.Uint128{}, errors.Annotate(err, "Incorrect end address")
	}

	if end.Less(start) {
		return rangedb.Uint128{}, rangedb.Uint128{}, errors.Errorf("Inverted range %s-%s", data[0], data[1])
	}

	return start, end, nil
}

// cleanField maps the sources' "-" placeholder to the empty string.
func cleanField(text string) string {
	if text == "-" {
		return ""
	}

	return text
}
