// README: CSV ingest and export for reservation tables.
package reservation

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gocarina/gocsv"
)

// ReadCSV reads a header row plus data rows into a RawTable. Rows may have a
// varying number of fields; short rows read as missing cells.
func ReadCSV(r io.Reader) (RawTable, error) {
	reader := gocsv.LazyCSVReader(r)
	if cr, ok := reader.(*csv.Reader); ok {
		cr.FieldsPerRecord = -1
	}
	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return RawTable{}, fmt.Errorf("read csv: empty input")
	}
	if err != nil {
		return RawTable{}, fmt.Errorf("read csv header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\uFEFF")
	}

	table := RawTable{Header: header}
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return RawTable{}, fmt.Errorf("read csv row %d: %w", len(table.Rows)+1, err)
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

// ReadCSVFile opens path and reads it with ReadCSV.
func ReadCSVFile(path string) (RawTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return RawTable{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadCSV(f)
}

// WriteCSV writes records with a header row in Columns order. The header
// comes from the Record csv tags, which follow Columns.
func WriteCSV(w io.Writer, records []Record) error {
	if records == nil {
		records = []Record{}
	}
	if err := gocsv.Marshal(records, w); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// WriteTable writes a header row followed by the data rows.
func WriteTable(w io.Writer, table RawTable) error {
	out := gocsv.DefaultCSVWriter(w)
	if err := out.Write(table.Header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for i, row := range table.Rows {
		if err := out.Write(row); err != nil {
			return fmt.Errorf("write csv row %d: %w", i+1, err)
		}
	}
	out.Flush()
	return out.Error()
}
