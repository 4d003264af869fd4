package sources

import (
	"github.com/juju/errors"

	"github.com/ipatlas/ipatlas/rangedb"
)

// The proxy LITE CSV doubles as the ISP source: isp and domain sit at
// fixed positions, the provider column only exists in wider editions
// of the product.
const (
	ispColumns     = 9
	ispColISP      = 7
	ispColDomain   = 8
	ispColProvider = 13
)

// ISPRow parses the ISP fields out of one proxy source row. Rows where
// all three fields are absent are dropped: they would only inflate the
// table with empty payloads.
func ISPRow(family rangedb.Family) RowFunc {
	return func(data []string) (*rangedb.Record, error) {
		if len(data) < ispColumns {
			return nil, errors.Errorf("Expected at least %d columns, got %d", ispColumns, len(data))
		}

		provider := ""
		if len(data) > ispColProvider {
			provider = cleanField(data[ispColProvider])
		}

		payload := rangedb.ISPPayload{
			ISP:      cleanField(data[ispColISP]),
			Domain:   cleanField(data[ispColDomain]),
			Provider: provider,
		}

		if payload.ISP == "" && payload.Domain == "" && payload.Provider == "" {
			return nil, errors.New("Row has no ISP data")
		}

		start, end, err := parseRowRange(data, family)
		if err != nil {
			return nil, err
		}

		return &rangedb.Record{Start: start, End: end, Payload: payload}, nil
	}
}
