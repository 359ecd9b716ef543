package segmentation

import (
	"fmt"
	"io"
	"strconv"

	"github.com/gocarina/gocsv"

	"hotelsegments/internal/modules/reservation"
)

// ClusterColumn is the label column appended to exported reservations.
const ClusterColumn = "cluster"

// WriteLabeledCSV writes the reservation columns followed by the cluster label.
func WriteLabeledCSV(w io.Writer, labeled []LabeledRecord) error {
	if labeled == nil {
		labeled = []LabeledRecord{}
	}
	if err := gocsv.Marshal(labeled, w); err != nil {
		return fmt.Errorf("write labeled csv: %w", err)
	}
	return nil
}

// WriteCSV writes one row per cluster: label, numeric means, categorical modes.
func (p ProfileTable) WriteCSV(w io.Writer) error {
	header := append([]string{ClusterColumn}, p.NumericFields...)
	header = append(header, p.CategoricalFields...)
	table := reservation.RawTable{Header: header}
	for _, r := range p.Rows {
		row := []string{strconv.Itoa(r.Cluster)}
		for _, m := range r.Means {
			s, _ := m.MarshalCSV()
			row = append(row, s)
		}
		for _, m := range r.Modes {
			row = append(row, m.String)
		}
		table.Rows = append(table.Rows, row)
	}
	return reservation.WriteTable(w, table)
}
