package sources

import (
	log "github.com/sirupsen/logrus"

	"github.com/juju/errors"

	"github.com/ipatlas/ipatlas/rangedb"
)

// Merged is the finalized, validated pair of family tables for one
// dataset, ready for the encoder, with the build bookkeeping attached.
type Merged struct {
	Dataset      rangedb.Dataset
	V4           *rangedb.Table
	V6           *rangedb.Table
	Records      int
	PayloadBytes int
}

// Merge validates and binds the two family tables of a dataset. The
// families are never merged with each other: IPv4 and IPv6 stay
// separate tables, picked by the query's own family.
func Merge(dataset rangedb.Dataset, v4, v6 *rangedb.Table) (*Merged, error) {
	if v4.Family != rangedb.FamilyIPv4 || v6.Family != rangedb.FamilyIPv6 {
		return nil, errors.Errorf("Tables are not family-partitioned: %s/%s", v4.Family, v6.Family)
	}

	for _, table := range []*rangedb.Table{v4, v6} {
		if table.Dataset != dataset {
			return nil, errors.Errorf("Table belongs to %s, not %s", table.Dataset, dataset)
		}

		if err := table.Validate(); err != nil {
			return nil, errors.Annotatef(err, "Cannot finalize %s", dataset)
		}
	}

	merged := &Merged{
		Dataset:      dataset,
		V4:           v4,
		V6:           v6,
		Records:      len(v4.Records) + len(v6.Records),
		PayloadBytes: v4.PayloadBytes() + v6.PayloadBytes(),
	}

	log.WithFields(log.Fields{
		"dataset":       dataset.String(),
		"records":       merged.Records,
		"payload_bytes": merged.PayloadBytes,
	}).Info("Dataset finalized")

	return merged, nil
}
