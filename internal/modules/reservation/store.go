package reservation

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store reads raw reservation extracts from Postgres.
type Store struct {
	db *pgxpool.Pool
}

// NewStore returns a Store backed by the given connection pool.
func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// LoadRaw reads every row of table as text cells. table may be schema-qualified.
// A table lacking one of the required columns yields *SchemaError before any
// row is read.
func (s *Store) LoadRaw(ctx context.Context, table string) (RawTable, error) {
	ident := pgx.Identifier(strings.Split(table, "."))
	schema, name := "public", ident[len(ident)-1]
	if len(ident) > 1 {
		schema = ident[len(ident)-2]
	}

	rows, err := s.db.Query(ctx, `
		SELECT column_name FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
	`, schema, name)
	if err != nil {
		return RawTable{}, fmt.Errorf("list columns of %s: %w", table, err)
	}
	present, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return RawTable{}, fmt.Errorf("list columns of %s: %w", table, err)
	}
	if len(present) == 0 {
		return RawTable{}, fmt.Errorf("table %s not found", table)
	}
	have := make(map[string]bool, len(present))
	for _, c := range present {
		have[c] = true
	}
	selects := make([]string, 0, len(Columns))
	for _, c := range Columns {
		if !have[c] {
			return RawTable{}, &SchemaError{Column: c}
		}
		selects = append(selects, pgx.Identifier{c}.Sanitize()+"::text")
	}

	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(selects, ", "), ident.Sanitize())
	data, err := s.db.Query(ctx, query)
	if err != nil {
		return RawTable{}, fmt.Errorf("query %s: %w", table, err)
	}
	defer data.Close()

	out := RawTable{Header: append([]string(nil), Columns...)}
	for data.Next() {
		cells := make([]*string, len(Columns))
		dest := make([]any, len(Columns))
		for i := range cells {
			dest[i] = &cells[i]
		}
		if err := data.Scan(dest...); err != nil {
			return RawTable{}, fmt.Errorf("scan %s: %w", table, err)
		}
		row := make([]string, len(cells))
		for i, c := range cells {
			if c != nil {
				row[i] = *c
			}
		}
		out.Rows = append(out.Rows, row)
	}
	if err := data.Err(); err != nil {
		return RawTable{}, fmt.Errorf("read %s: %w", table, err)
	}
	return out, nil
}
