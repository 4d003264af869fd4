package rangedb

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
)

const (
	// FormatVersion is bumped on any layout change. Loaders refuse
	// versions they do not know.
	FormatVersion = 1

	// indexStride is the number of records per skip-index block. All
	// delta state resets at block boundaries, so any block can be
	// decoded without touching the previous ones.
	indexStride = 64

	headerSize = 40

	tmpFilePrefix = "tmp_"
)

var magicMarker = [4]byte{'I', 'P', 'A', 'T'}

var fileNames = map[Dataset]string{
	DatasetGeo:   "geo.bin",
	DatasetASN:   "asn.bin",
	DatasetISP:   "isp.bin",
	DatasetProxy: "proxy_types.bin",
}

// FileName is the conventional on-disk name of a dataset's database.
// The builder writes these names and the loader looks for them.
func FileName(dataset Dataset) string {
	return fileNames[dataset]
}

type encodedSection struct {
	count uint32
	bytes []byte
	index int
}

// EncodeDatabase serializes one dataset's IPv4 and IPv6 tables plus
// their shared string pool into the on-disk layout.
//
// Tables that violate sortedness or non-overlap make it fail fast with
// InvariantError: that is a bug upstream, not input to recover from.
func EncodeDatabase(dataset Dataset, v4, v6 *Table) ([]byte, error) {
	if !dataset.Known() {
		return nil, fmt.Errorf("unknown dataset %d", uint8(dataset))
	}

	for _, table := range []*Table{v4, v6} {
		if table.Dataset != dataset {
			return nil, fmt.Errorf("table dataset %s does not match %s", table.Dataset, dataset)
		}

		if err := table.Validate(); err != nil {
			return nil, err
		}
	}

	if v4.Family != FamilyIPv4 || v6.Family != FamilyIPv6 {
		return nil, fmt.Errorf("tables are not family-partitioned: %s/%s", v4.Family, v6.Family)
	}

	pool := NewStringPool()

	v4Section, err := encodeSection(dataset, v4, pool)
	if err != nil {
		return nil, err
	}

	v6Section, err := encodeSection(dataset, v6, pool)
	if err != nil {
		return nil, err
	}

	poolEnc := &Encoder{}
	pool.encodeTo(poolEnc)

	poolOff := uint32(headerSize)
	v4Off := poolOff + uint32(poolEnc.Len())
	v6Off := v4Off + uint32(len(v4Section.bytes))
	fileSize := v6Off + uint32(len(v6Section.bytes))

	out := &Encoder{}
	out.WriteRawBytes(magicMarker[:])
	out.WriteU8(FormatVersion)
	out.WriteU8(byte(dataset))
	out.WriteU16(0) // reserved
	out.WriteU32(v4Section.count)
	out.WriteU32(v6Section.count)
	out.WriteU32(poolOff)
	out.WriteU32(v4Off)
	out.WriteU32(v6Off)
	out.WriteU32(uint32(v4Section.index))
	out.WriteU32(uint32(v6Section.index))
	out.WriteU32(fileSize)

	out.WriteRawBytes(poolEnc.Bytes())
	out.WriteRawBytes(v4Section.bytes)
	out.WriteRawBytes(v6Section.bytes)

	return out.Bytes(), nil
}

// WriteDatabase encodes and atomically replaces the file at path: the
// bytes land in a temporary sibling first and are renamed over the old
// file, so a reader observes either entirely the old or entirely the
// new database.
func WriteDatabase(fs afero.Fs, path string, dataset Dataset, v4, v6 *Table) error {
	data, err := EncodeDatabase(dataset, v4, v6)
	if err != nil {
		return err
	}

	tmp, err := afero.TempFile(fs, filepath.Dir(path), tmpFilePrefix)
	if err != nil {
		return fmt.Errorf("cannot create a temporary file: %w", err)
	}

	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		fs.Remove(tmpName) // nolint: errcheck

		return fmt.Errorf("cannot write %s: %w", tmpName, err)
	}

	if err := tmp.Close(); err != nil {
		fs.Remove(tmpName) // nolint: errcheck

		return fmt.Errorf("cannot close %s: %w", tmpName, err)
	}

	if err := fs.Rename(tmpName, path); err != nil {
		fs.Remove(tmpName) // nolint: errcheck

		return fmt.Errorf("cannot promote %s to %s: %w", tmpName, path, err)
	}

	return nil
}

// encodeSection produces the skip index and the delta-coded record
// stream for one family. Index entries carry the absolute start of
// every indexStride-th record plus its byte offset into the stream.
func encodeSection(dataset Dataset, table *Table, pool *StringPool) (encodedSection, error) {
	codec, err := newPayloadCodec(dataset)
	if err != nil {
		return encodedSection{}, err
	}

	records := &Encoder{}
	index := &Encoder{}
	indexLen := 0

	prevStart := Uint128{}

	for i, rec := range table.Records {
		if i%indexStride == 0 {
			index.WriteRawBytes(addrBytes(rec.Start, table.Family))
			index.WriteU32(uint32(records.Len()))
			indexLen++

			prevStart = rec.Start
			codec.reset()
		}

		records.WriteUvarint128(rec.Start.Sub(prevStart))
		records.WriteUvarint128(rec.End.Sub(rec.Start))

		if err := codec.encode(records, pool, rec.Payload); err != nil {
			return encodedSection{}, err
		}

		prevStart = rec.Start
	}

	section := &Encoder{}
	section.WriteRawBytes(index.Bytes())
	section.WriteRawBytes(records.Bytes())

	return encodedSection{
		count: uint32(len(table.Records)),
		bytes: section.Bytes(),
		index: indexLen,
	}, nil
}

func addrBytes(value Uint128, family Family) []byte {
	return Uint128ToAddr(value, family)
}
