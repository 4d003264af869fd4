package rangedb

import (
	"bytes"
	"fmt"
	"net"

	"github.com/spf13/afero"
)

// Database is the serve-time, read-only form of one dataset: both
// family tables fully decoded into memory. It is immutable after
// loading and safe for unlimited concurrent readers.
type Database struct {
	Dataset Dataset
	Path    string

	v4 *LoadedTable
	v6 *LoadedTable
}

// LoadedTable keeps the decoded records in parallel slices plus a
// stride index over starts which bounds the binary search to one
// block.
type LoadedTable struct {
	family    Family
	starts    []Uint128
	ends      []Uint128
	payloads  []Payload
	idxStarts []Uint128
}

func (t *LoadedTable) Len() int {
	return len(t.starts)
}

func (t *LoadedTable) Family() Family {
	return t.family
}

// OpenDatabase reads and validates a database file. Any failure is a
// FormatError specific to this one database; the caller decides
// whether partial capability is acceptable.
func OpenDatabase(fs afero.Fs, path string, dataset Dataset) (*Database, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, &FormatError{Path: path, Dataset: dataset, Err: err}
	}

	db, err := LoadDatabase(data, dataset)
	if err != nil {
		if ferr, ok := err.(*FormatError); ok {
			ferr.Path = path

			return nil, ferr
		}

		return nil, &FormatError{Path: path, Dataset: dataset, Err: err}
	}

	db.Path = path

	return db, nil
}

// LoadDatabase decodes an in-memory encoded database.
func LoadDatabase(data []byte, dataset Dataset) (*Database, error) {
	fail := func(err error) (*Database, error) {
		return nil, &FormatError{Dataset: dataset, Err: err}
	}

	if len(data) < headerSize {
		return fail(fmt.Errorf("%w: %d bytes is shorter than the header", ErrTruncated, len(data)))
	}

	dec := NewDecoder(data)

	if !bytes.Equal(dec.ReadRawBytes(4), magicMarker[:]) {
		return fail(ErrBadMagic)
	}

	if version := dec.ReadU8(); version != FormatVersion {
		return fail(fmt.Errorf("%w: %d", ErrBadVersion, version))
	}

	if got := Dataset(dec.ReadU8()); got != dataset {
		return fail(fmt.Errorf("%w: file holds %s, expected %s", ErrWrongDataset, got, dataset))
	}

	dec.ReadU16() // reserved

	v4Count := dec.ReadU32()
	v6Count := dec.ReadU32()
	poolOff := dec.ReadU32()
	v4Off := dec.ReadU32()
	v6Off := dec.ReadU32()
	v4IndexLen := dec.ReadU32()
	v6IndexLen := dec.ReadU32()
	fileSize := dec.ReadU32()

	if dec.Failed() || int(fileSize) != len(data) {
		return fail(fmt.Errorf("%w: header says %d bytes, file has %d", ErrTruncated, fileSize, len(data)))
	}

	if poolOff != headerSize || v4Off < poolOff || v6Off < v4Off || fileSize < v6Off {
		return fail(fmt.Errorf("%w: inconsistent section offsets %d/%d/%d",
			ErrTruncated, poolOff, v4Off, v6Off))
	}

	dec.Seek(int(poolOff))

	pool := decodeStringPool(dec)
	if pool == nil || dec.Offset() != int(v4Off) {
		return fail(fmt.Errorf("%w: broken string pool", ErrTruncated))
	}

	v4, err := decodeSection(dec, dataset, FamilyIPv4, int(v4Count), int(v4IndexLen), int(v6Off), pool)
	if err != nil {
		return fail(err)
	}

	v6, err := decodeSection(dec, dataset, FamilyIPv6, int(v6Count), int(v6IndexLen), len(data), pool)
	if err != nil {
		return fail(err)
	}

	return &Database{Dataset: dataset, v4: v4, v6: v6}, nil
}

// Lookup answers a point-containment query against the table of the
// address's own family. The second return value is false for "no
// data", which is an expected answer, not an error.
func (db *Database) Lookup(ip net.IP) (Payload, bool) {
	return db.Table(FamilyOf(ip)).Lookup(AddrToUint128(ip))
}

func (db *Database) Table(family Family) *LoadedTable {
	if family == FamilyIPv4 {
		return db.v4
	}

	return db.v6
}

func (db *Database) Records() int {
	return db.v4.Len() + db.v6.Len()
}

func decodeSection(dec *Decoder, dataset Dataset, family Family,
	count, indexLen, sectionEnd int, pool []string) (*LoadedTable, error) {
	expectedBlocks := (count + indexStride - 1) / indexStride
	if indexLen != expectedBlocks {
		return nil, fmt.Errorf("%w: %s index has %d entries, %d records need %d",
			ErrTruncated, family, indexLen, count, expectedBlocks)
	}

	// The counts come straight from the header and size the
	// allocations below, so bound them by the bytes actually present
	// first. No record is shorter than two one-byte varints plus a
	// one-byte payload.
	needed := indexLen*(family.AddrWidth()+4) + count*3
	if remaining := sectionEnd - dec.Offset(); remaining < 0 || needed > remaining {
		return nil, fmt.Errorf("%w: %s section of %d bytes cannot hold %d records",
			ErrTruncated, family, sectionEnd-dec.Offset(), count)
	}

	table := &LoadedTable{
		family:    family,
		starts:    make([]Uint128, 0, count),
		ends:      make([]Uint128, 0, count),
		payloads:  make([]Payload, 0, count),
		idxStarts: make([]Uint128, 0, indexLen),
	}

	idxOffsets := make([]uint32, 0, indexLen)

	for i := 0; i < indexLen; i++ {
		base := dec.ReadRawBytes(family.AddrWidth())
		offset := dec.ReadU32()

		if dec.Failed() {
			return nil, fmt.Errorf("%w: short %s skip index", ErrTruncated, family)
		}

		table.idxStarts = append(table.idxStarts, addrFromBytes(base))
		idxOffsets = append(idxOffsets, offset)
	}

	codec, err := newPayloadCodec(dataset)
	if err != nil {
		return nil, err
	}

	streamBase := dec.Offset()
	prevStart := Uint128{}
	prevEnd := Uint128{}

	for i := 0; i < count; i++ {
		if i%indexStride == 0 {
			block := i / indexStride

			if dec.Offset()-streamBase != int(idxOffsets[block]) {
				return nil, fmt.Errorf("%w: %s block %d starts at %d, index says %d",
					ErrTruncated, family, block, dec.Offset()-streamBase, idxOffsets[block])
			}

			prevStart = table.idxStarts[block]
			codec.reset()
		}

		start := prevStart.Add(dec.ReadUvarint128())
		end := start.Add(dec.ReadUvarint128())

		if dec.Failed() {
			return nil, fmt.Errorf("%w: short %s record stream", ErrTruncated, family)
		}

		payload, err := codec.decode(dec, pool)
		if err != nil {
			return nil, err
		}

		// Decoded output must satisfy the same invariant the encoder
		// demanded, otherwise the file is corrupt.
		if end.Less(start) || (i > 0 && prevEnd.Cmp(start) >= 0) {
			return nil, fmt.Errorf("%w: %s records out of order at %d", ErrTruncated, family, i)
		}

		table.starts = append(table.starts, start)
		table.ends = append(table.ends, end)
		table.payloads = append(table.payloads, payload)

		prevStart = start
		prevEnd = end
	}

	if dec.Offset() != sectionEnd {
		return nil, fmt.Errorf("%w: %s section has %d trailing bytes",
			ErrTruncated, family, sectionEnd-dec.Offset())
	}

	return table, nil
}
