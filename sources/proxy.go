package sources

import (
	"github.com/juju/errors"

	"github.com/ipatlas/ipatlas/rangedb"
)

const (
	proxyColumns = 3
	proxyColType = 2
)

// ProxyRow parses one row of the proxy source. Absence of a proxy-type
// record at serve time is the normal answer for most addresses, so a
// row without a type label contributes nothing and is dropped.
func ProxyRow(family rangedb.Family) RowFunc {
	return func(data []string) (*rangedb.Record, error) {
		if len(data) < proxyColumns {
			return nil, errors.Errorf("Expected at least %d columns, got %d", proxyColumns, len(data))
		}

		proxyType := cleanField(data[proxyColType])
		if proxyType == "" {
			return nil, errors.New("Row has no proxy type")
		}

		start, end, err := parseRowRange(data, family)
		if err != nil {
			return nil, err
		}

		return &rangedb.Record{
			Start:   start,
			End:     end,
			Payload: rangedb.ProxyPayload{ProxyType: proxyType},
		}, nil
	}
}
