package sources

import (
	"math"
	"sort"

	log "github.com/sirupsen/logrus"

	"github.com/ipatlas/ipatlas/rangedb"
)

// crossCheckTolerance is how far (in degrees, either axis) the two geo
// sources may disagree before we call it a disagreement.
const crossCheckTolerance = 1.0

// AugmentGeo fills the gaps of the primary geo table with ranges from
// the secondary source. The policy is primary-wins, augment-fills-gaps:
// wherever both sources cover an address, the tabular record stays and
// the augmenting range is clipped away; only the uncovered remainder
// is inserted.
//
// Returns the number of records added.
func AugmentGeo(table *rangedb.Table, augment []rangedb.Record) int {
	sort.Slice(augment, func(i, j int) bool {
		return augment[i].Start.Less(augment[j].Start)
	})

	pieces := []rangedb.Record{}

	for _, rec := range augment {
		pieces = append(pieces, clipToGaps(table, rec)...)
	}

	for _, piece := range pieces {
		table.Insert(piece)
	}

	log.WithFields(log.Fields{
		"dataset": table.Dataset.String(),
		"family":  table.Family.String(),
		"added":   len(pieces),
	}).Info("Geo table augmented")

	return len(pieces)
}

// clipToGaps subtracts every primary range overlapping rec and returns
// the surviving sub-ranges.
func clipToGaps(table *rangedb.Table, rec rangedb.Record) []rangedb.Record {
	var rv []rangedb.Record

	cursor := rec.Start

	i := sort.Search(len(table.Records), func(n int) bool {
		return table.Records[n].End.Cmp(rec.Start) >= 0
	})

	for ; i < len(table.Records) && table.Records[i].Start.Cmp(rec.End) <= 0; i++ {
		primary := table.Records[i]

		if cursor.Less(primary.Start) {
			piece := rec
			piece.Start = cursor
			piece.End = primary.Start.Decr()
			rv = append(rv, piece)
		}

		if rec.End.Cmp(primary.End) <= 0 {
			return rv
		}

		cursor = primary.End.Incr()
	}

	if cursor.Cmp(rec.End) <= 0 {
		piece := rec
		piece.Start = cursor
		rv = append(rv, piece)
	}

	return rv
}

// CrossCheckGeo compares every strideth primary record against the
// augmenting source and counts material disagreements. Nothing is
// reconciled: the tabular source stays authoritative, this is a build
// report signal only.
func CrossCheckGeo(table *rangedb.Table, source GeoSource, stride int) (checked, disagreed int) {
	if stride < 1 {
		stride = 1
	}

	for i := 0; i < len(table.Records); i += stride {
		rec := table.Records[i]

		geo, ok := rec.Payload.(rangedb.GeoPayload)
		if !ok {
			continue
		}

		point, err := source.Lookup(rangedb.Uint128ToAddr(rec.Start, table.Family))
		if err != nil || point == nil {
			continue
		}

		checked++

		if math.Abs(point.Latitude-geo.Latitude) > crossCheckTolerance ||
			math.Abs(point.Longitude-geo.Longitude) > crossCheckTolerance {
			disagreed++
		}
	}

	if disagreed > 0 {
		log.WithFields(log.Fields{
			"family":    table.Family.String(),
			"checked":   checked,
			"disagreed": disagreed,
		}).Warn("Geo sources disagree; tabular source kept")
	}

	return checked, disagreed
}
