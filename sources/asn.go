package sources

import (
	cidrman "github.com/EvilSuperstars/go-cidrman"

	"github.com/juju/errors"

	"github.com/ipatlas/ipatlas/rangedb"
)

// Column layout of the ASN LITE CSV: start, end, cidr, asn, as_name.
const (
	asnColumns   = 5
	asnColCIDR   = 2
	asnColNumber = 3
	asnColName   = 4
)

// ASNRow parses one row of the ASN source. Rows without an AS number
// are dropped: a range nobody announces tells a lookup nothing. A
// missing cidr column is synthesized from the range itself.
func ASNRow(family rangedb.Family) RowFunc {
	return func(data []string) (*rangedb.Record, error) {
		if len(data) < asnColumns {
			return nil, errors.Errorf("Expected at least %d columns, got %d", asnColumns, len(data))
		}

		asn := cleanField(data[asnColNumber])
		if asn == "" {
			return nil, errors.New("Row has no AS number")
		}

		start, end, err := parseRowRange(data, family)
		if err != nil {
			return nil, err
		}

		cidr := cleanField(data[asnColCIDR])
		if cidr == "" {
			cidr = rangeToCIDR(start, end, family)
		}

		return &rangedb.Record{
			Start: start,
			End:   end,
			Payload: rangedb.ASNPayload{
				CIDR:   cidr,
				ASN:    asn,
				ASName: cleanField(data[asnColName]),
			},
		}, nil
	}
}

// rangeToCIDR renders the smallest leading CIDR of the range. Good
// enough for a display field the source left blank.
func rangeToCIDR(start, end rangedb.Uint128, family rangedb.Family) string {
	cidrs, err := cidrman.IPRangeToCIDRs(
		rangedb.Uint128ToAddr(start, family).String(),
		rangedb.Uint128ToAddr(end, family).String(),
	)
	if err != nil || len(cidrs) == 0 {
		return ""
	}

	return cidrs[0]
}
