package sources

import (
	"encoding/csv"
	"io"

	log "github.com/sirupsen/logrus"

	"github.com/juju/errors"

	"github.com/ipatlas/ipatlas/rangedb"
)

// RowFunc converts one parsed CSV row into a range record. A nil
// record with a nil error means the row carries no usable data and
// should be dropped and counted, never aborting the batch.
type RowFunc func([]string) (*rangedb.Record, error)

// CSVReader wraps csv.Reader to convert each row into a record.
type CSVReader struct {
	reader  *csv.Reader
	makeRow RowFunc
}

func (cr *CSVReader) Read() (*rangedb.Record, error) {
	data, err := cr.next()
	if err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}

		return nil, errors.Annotate(err, "Cannot read new row")
	}

	record, err := cr.makeRow(data)
	if err != nil {
		log.WithFields(log.Fields{
			"data": data,
			"err":  err,
		}).Debug("Cannot parse row")

		return nil, nil
	}

	return record, nil
}

func (cr *CSVReader) next() (data []string, err error) {
	for err == nil && len(data) == 0 {
		data, err = cr.reader.Read()
	}

	return
}

// NewCSVReader converts the given io.Reader into a CSVReader. The
// tabular sources quote every field and never have a uniform column
// count across products, hence FieldsPerRecord is disabled.
func NewCSVReader(filefp io.Reader, makeRow RowFunc) *CSVReader {
	reader := csv.NewReader(filefp)
	reader.ReuseRecord = true
	reader.Comment = '#'
	reader.FieldsPerRecord = -1

	return &CSVReader{reader, makeRow}
}
