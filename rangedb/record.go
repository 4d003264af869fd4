package rangedb

import "fmt"

// Dataset enumerates the four database kinds. The value is written
// into the file header so a loader cannot confuse one database for
// another.
type Dataset uint8

const (
	DatasetGeo Dataset = iota + 1
	DatasetASN
	DatasetISP
	DatasetProxy
)

var datasetNames = map[Dataset]string{
	DatasetGeo:   "geo",
	DatasetASN:   "asn",
	DatasetISP:   "isp",
	DatasetProxy: "proxy",
}

func (d Dataset) String() string {
	if name, ok := datasetNames[d]; ok {
		return name
	}

	return fmt.Sprintf("dataset(%d)", uint8(d))
}

func (d Dataset) Known() bool {
	_, ok := datasetNames[d]

	return ok
}

// Datasets lists all known dataset kinds in header value order.
func Datasets() []Dataset {
	return []Dataset{DatasetGeo, DatasetASN, DatasetISP, DatasetProxy}
}

// Payload is the dataset-specific value attached to a range. Exactly
// one of the four concrete types below implements it.
type Payload interface {
	Dataset() Dataset
}

type GeoPayload struct {
	Latitude  float64
	Longitude float64
}

func (GeoPayload) Dataset() Dataset { return DatasetGeo }

type ASNPayload struct {
	CIDR   string
	ASN    string
	ASName string
}

func (ASNPayload) Dataset() Dataset { return DatasetASN }

type ISPPayload struct {
	ISP      string
	Domain   string
	Provider string
}

func (ISPPayload) Dataset() Dataset { return DatasetISP }

type ProxyPayload struct {
	ProxyType string
}

func (ProxyPayload) Dataset() Dataset { return DatasetProxy }

// Record is one inclusive address range mapped to a payload.
type Record struct {
	Start   Uint128
	End     Uint128
	Payload Payload
}

// Contains reports whether the address falls inside the record,
// boundaries included.
func (r Record) Contains(addr Uint128) bool {
	return r.Start.Cmp(addr) <= 0 && addr.Cmp(r.End) <= 0
}
