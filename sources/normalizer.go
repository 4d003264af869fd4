package sources

import (
	"encoding/csv"
	"fmt"
	"io"

	log "github.com/sirupsen/logrus"

	"github.com/juju/errors"

	"github.com/ipatlas/ipatlas/rangedb"
)

const maxErrorSamples = 5

// RowStats is the build-time summary for one (dataset, family)
// source: how many rows were seen, how many were dropped and why.
// Bad rows never abort the batch, they end up here.
type RowStats struct {
	Dataset  rangedb.Dataset
	Family   rangedb.Family
	Rows     int
	Dropped  int
	Adjusted int
	Merged   int
	Samples  []string
}

func (s *RowStats) drop(data []string, err error) {
	s.Dropped++

	if len(s.Samples) < maxErrorSamples {
		s.Samples = append(s.Samples, fmt.Sprintf("%v: %v", data, err))
	}
}

// Normalize parses one raw tabular source into a canonical table:
// sorted, non-overlapping, optionally coalesced. Overlaps are resolved
// in favor of the later-declared row.
func Normalize(filefp io.Reader,
	dataset rangedb.Dataset,
	family rangedb.Family,
	makeRow RowFunc) (*rangedb.Table, *RowStats, error) {
	stats := &RowStats{Dataset: dataset, Family: family}

	counted := func(data []string) (*rangedb.Record, error) {
		stats.Rows++

		record, err := makeRow(data)
		if err != nil {
			stats.drop(data, err)
		}

		return record, err
	}

	reader := NewCSVReader(filefp, counted)
	table := rangedb.NewTable(dataset, family)

	for {
		record, err := reader.Read()

		switch {
		case err == io.EOF:
			stats.Merged = table.Coalesce()

			log.WithFields(log.Fields{
				"dataset":  dataset.String(),
				"family":   family.String(),
				"rows":     stats.Rows,
				"records":  len(table.Records),
				"dropped":  stats.Dropped,
				"adjusted": stats.Adjusted,
				"merged":   stats.Merged,
				"samples":  stats.Samples,
			}).Info("Source normalized")

			return table, stats, nil
		case err != nil:
			if _, ok := errors.Cause(err).(*csv.ParseError); ok {
				stats.Rows++
				stats.drop(nil, err)

				continue
			}

			return nil, nil, errors.Annotatef(err, "Cannot read %s %s source", dataset, family)
		case record == nil: // dropped row, already counted
			continue
		}

		stats.Adjusted += table.Insert(*record)
	}
}
