package store

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/roach88/catsim/internal/queryir"
)

// IngestOptions controls IngestText.
type IngestOptions struct {
	// IDColumn names the unique identifier column. Defaults to "id".
	IDColumn string

	// Replace drops an existing table of the same name first.
	Replace bool
}

// IngestText loads a whitespace-separated text table into a new table.
//
// The first non-blank line must be a header starting with '#' that names
// the columns. Every following non-blank line is one row. Column types are
// inferred from the data: all integers → INTEGER, all numbers → REAL,
// otherwise TEXT. The id column must be integral and becomes the primary key.
//
// All rows are inserted in one transaction. Returns the number of rows.
func (s *Store) IngestText(ctx context.Context, table string, r io.Reader, opts IngestOptions) (int, error) {
	if opts.IDColumn == "" {
		opts.IDColumn = "id"
	}
	if err := checkIdent(table); err != nil {
		return 0, err
	}

	header, rows, err := parseTextTable(r)
	if err != nil {
		return 0, fmt.Errorf("ingest %s: %w", table, err)
	}

	idIdx := -1
	for i, name := range header {
		if err := checkIdent(name); err != nil {
			return 0, fmt.Errorf("ingest %s: %w", table, err)
		}
		if name == opts.IDColumn {
			idIdx = i
		}
	}
	if idIdx < 0 {
		return 0, fmt.Errorf("ingest %s: header has no id column %q", table, opts.IDColumn)
	}

	types := inferTypes(header, rows)
	if types[idIdx] != colInteger {
		return 0, fmt.Errorf("ingest %s: id column %q is not integral", table, opts.IDColumn)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("ingest %s: begin tx: %w", table, err)
	}
	defer tx.Rollback() // No-op if committed

	if opts.Replace {
		if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
			return 0, fmt.Errorf("ingest %s: drop: %w", table, err)
		}
	}

	if _, err := tx.ExecContext(ctx, s.createTableSQL(table, header, types, idIdx)); err != nil {
		return 0, fmt.Errorf("ingest %s: create: %w", table, err)
	}

	stmt, err := tx.PrepareContext(ctx, s.insertSQL(table, header))
	if err != nil {
		return 0, fmt.Errorf("ingest %s: prepare insert: %w", table, err)
	}
	defer stmt.Close()

	for lineNo, row := range rows {
		args := make([]any, len(row))
		for i, field := range row {
			args[i] = convertField(field, types[i])
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return 0, fmt.Errorf("ingest %s: row %d: %w", table, lineNo+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("ingest %s: commit: %w", table, err)
	}

	return len(rows), nil
}

type colType int

const (
	colInteger colType = iota
	colReal
	colText
)

// parseTextTable splits a '#'-headed whitespace table into header and rows.
func parseTextTable(r io.Reader) ([]string, [][]string, error) {
	var header []string
	var rows [][]string

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if header == nil {
			if !strings.HasPrefix(text, "#") {
				return nil, nil, fmt.Errorf("line %d: expected '#' header", line)
			}
			header = strings.Fields(strings.TrimPrefix(text, "#"))
			if len(header) == 0 {
				return nil, nil, fmt.Errorf("line %d: empty header", line)
			}
			continue
		}
		if strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) != len(header) {
			return nil, nil, fmt.Errorf("line %d: %d fields, header has %d", line, len(fields), len(header))
		}
		rows = append(rows, fields)
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, err
	}
	if header == nil {
		return nil, nil, fmt.Errorf("missing '#' header")
	}
	return header, rows, nil
}

// inferTypes picks the narrowest type that holds every value of a column.
func inferTypes(header []string, rows [][]string) []colType {
	types := make([]colType, len(header))
	for _, row := range rows {
		for i, field := range row {
			if types[i] == colText {
				continue
			}
			if _, err := strconv.ParseInt(field, 10, 64); err == nil {
				continue
			}
			if _, err := strconv.ParseFloat(field, 64); err == nil {
				types[i] = colReal
				continue
			}
			types[i] = colText
		}
	}
	return types
}

func convertField(field string, t colType) any {
	switch t {
	case colInteger:
		v, _ := strconv.ParseInt(field, 10, 64)
		return v
	case colReal:
		v, _ := strconv.ParseFloat(field, 64)
		return v
	default:
		return field
	}
}

func (s *Store) createTableSQL(table string, header []string, types []colType, idIdx int) string {
	cols := make([]string, len(header))
	for i, name := range header {
		var sqlType string
		switch types[i] {
		case colInteger:
			sqlType = "INTEGER"
			if s.driver == DriverPostgres {
				sqlType = "BIGINT"
			}
		case colReal:
			sqlType = "REAL"
			if s.driver == DriverPostgres {
				sqlType = "DOUBLE PRECISION"
			}
		default:
			sqlType = "TEXT"
		}
		if i == idIdx {
			sqlType += " PRIMARY KEY"
		}
		cols[i] = name + " " + sqlType
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", table, strings.Join(cols, ", "))
}

func (s *Store) insertSQL(table string, header []string) string {
	placeholders := make([]string, len(header))
	for i := range header {
		if s.driver == DriverPostgres {
			placeholders[i] = "$" + strconv.Itoa(i+1)
		} else {
			placeholders[i] = "?"
		}
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(header, ", "), strings.Join(placeholders, ", "))
}

func checkIdent(name string) error {
	if !queryir.ValidIdent(name) {
		return fmt.Errorf("%q is not a valid identifier", name)
	}
	return nil
}
