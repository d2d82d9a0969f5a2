package fetcher

import (
	"context"
	"encoding/csv"
	"io"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Record is one CSV row keyed by header column name. Columns with no
// header name are dropped; rows shorter than the header leave the missing
// columns absent from the map.
type Record map[string]string

// EachRecord reads a header-first CSV document and invokes fn for every
// data row. Malformed rows and rows fn rejects are logged and skipped; the
// feed keeps loading. Only an unreadable header or a cancelled context
// aborts the parse.
func EachRecord(ctx context.Context, r io.Reader, fn func(rec Record) error) error {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // tolerate ragged rows

	header, err := reader.Read()
	if err != nil {
		return eris.Wrap(err, "csv: read header")
	}

	for {
		if ctx.Err() != nil {
			return eris.Wrap(ctx.Err(), "csv: context cancelled")
		}

		row, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			if _, ok := err.(*csv.ParseError); ok {
				zap.L().Warn("csv: skipping malformed row", zap.Error(err))
				continue
			}
			return eris.Wrap(err, "csv: read row")
		}

		rec := make(Record, len(header))
		for i, name := range header {
			if name == "" || i >= len(row) {
				continue
			}
			rec[name] = row[i]
		}

		if err := fn(rec); err != nil {
			zap.L().Warn("csv: skipping row", zap.Error(err))
		}
	}
}
