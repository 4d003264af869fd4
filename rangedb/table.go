package rangedb

import (
	"fmt"
	"sort"
)

// Table is the sorted, non-overlapping range sequence for one dataset
// and one address family. Gaps between records mean "no data".
//
// A Table is built once, validated, encoded and discarded; it is never
// the serve-time representation (see LoadedTable).
type Table struct {
	Dataset Dataset
	Family  Family
	Records []Record
}

func NewTable(dataset Dataset, family Family) *Table {
	return &Table{
		Dataset: dataset,
		Family:  family,
	}
}

// Insert adds a record preserving sortedness and non-overlap. Records
// come in source declaration order and a later row wins any overlapping
// sub-range: earlier records are truncated, split in two, or dropped so
// that the union of covered addresses never shrinks.
//
// Returns the number of earlier records that had to be adjusted.
func (t *Table) Insert(rec Record) int {
	adjusted := 0

	// First earlier record that can overlap rec.
	i := sort.Search(len(t.Records), func(n int) bool {
		return t.Records[n].End.Cmp(rec.Start) >= 0
	})

	kept := t.Records[:i:i]

	var tail []Record

	j := i
	for ; j < len(t.Records) && t.Records[j].Start.Cmp(rec.End) <= 0; j++ {
		earlier := t.Records[j]
		adjusted++

		if earlier.Start.Less(rec.Start) {
			head := earlier
			head.End = rec.Start.Decr()
			kept = append(kept, head)
		}

		if rec.End.Less(earlier.End) {
			rest := earlier
			rest.Start = rec.End.Incr()
			tail = append(tail, rest)
		}
	}

	kept = append(kept, rec)
	kept = append(kept, tail...)
	t.Records = append(kept, t.Records[j:]...)

	return adjusted
}

// Coalesce merges adjacent records with identical payloads. Pure size
// optimization, no information is lost.
func (t *Table) Coalesce() int {
	if len(t.Records) < 2 {
		return 0
	}

	merged := 0
	out := t.Records[:1]

	for _, rec := range t.Records[1:] {
		last := &out[len(out)-1]

		if last.End.Incr().Cmp(rec.Start) == 0 && last.Payload == rec.Payload {
			last.End = rec.End
			merged++

			continue
		}

		out = append(out, rec)
	}

	t.Records = out

	return merged
}

// Validate checks the invariants the encoder relies on: every range is
// ordered, sorted by start and mutually non-overlapping, and every
// payload belongs to this table's dataset.
func (t *Table) Validate() error {
	for i, rec := range t.Records {
		if rec.End.Less(rec.Start) {
			return &InvariantError{
				Dataset: t.Dataset,
				Family:  t.Family,
				Index:   i,
				Reason:  fmt.Sprintf("inverted range %s-%s", rec.Start, rec.End),
			}
		}

		if rec.Payload == nil || rec.Payload.Dataset() != t.Dataset {
			return &InvariantError{
				Dataset: t.Dataset,
				Family:  t.Family,
				Index:   i,
				Reason:  "payload does not belong to dataset",
			}
		}

		if i > 0 && t.Records[i-1].End.Cmp(rec.Start) >= 0 {
			return &InvariantError{
				Dataset: t.Dataset,
				Family:  t.Family,
				Index:   i,
				Reason: fmt.Sprintf("range %s-%s overlaps or precedes previous end %s",
					rec.Start, rec.End, t.Records[i-1].End),
			}
		}
	}

	return nil
}

// PayloadBytes estimates the raw payload volume of the table before
// interning and delta coding. Build reports use it to show the
// compression win.
func (t *Table) PayloadBytes() int {
	total := 0

	for _, rec := range t.Records {
		switch payload := rec.Payload.(type) {
		case GeoPayload:
			total += 16
		case ASNPayload:
			total += len(payload.CIDR) + len(payload.ASN) + len(payload.ASName)
		case ISPPayload:
			total += len(payload.ISP) + len(payload.Domain) + len(payload.Provider)
		case ProxyPayload:
			total += len(payload.ProxyType)
		}
	}

	return total
}
