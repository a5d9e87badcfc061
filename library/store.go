package library

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/google/renameio/v2"
)

// Store persists one homogeneous table as a CSV file with a header row.
//
// Every mutation reads the whole file, changes it in memory and atomically
// replaces the file. There is no caching and no locking: a Store is meant for
// a single process driven by a single user.
type Store struct {
	path    string
	columns []Column
	index   map[string]int
	logger  *slog.Logger
}

// NewStore returns a Store for the file at path. The file does not need to
// exist yet.
func NewStore(path string, columns []Column, logger *slog.Logger) *Store {
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		index[c.Name] = i
	}
	return &Store{
		path:    path,
		columns: slices.Clone(columns),
		index:   index,
		logger:  logger,
	}
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

// Columns returns the declared columns in file order.
func (s *Store) Columns() []Column { return slices.Clone(s.columns) }

func (s *Store) columnNames() []string {
	names := make([]string, len(s.columns))
	for i, c := range s.columns {
		names[i] = c.Name
	}
	return names
}

func (s *Store) column(name string) (Column, error) {
	i, ok := s.index[name]
	if !ok {
		return Column{}, fmt.Errorf("unknown column %q in %s", name, s.path)
	}
	return s.columns[i], nil
}

// ---------------------------------------------------------------------------
// File I/O
// ---------------------------------------------------------------------------

// Load reads all rows. A missing file is an empty table.
func (s *Store) Load() ([]Record, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []Record{}, nil
		}
		return nil, &StorageReadError{Path: s.path, Err: err}
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err == io.EOF {
		return []Record{}, nil
	}
	if err != nil {
		return nil, &StorageReadError{Path: s.path, Err: err}
	}
	if !slices.Equal(header, s.columnNames()) {
		return nil, &StorageReadError{
			Path: s.path,
			Line: 1,
			Err:  fmt.Errorf("header %v does not match columns %v", header, s.columnNames()),
		}
	}

	rows := []Record{}
	for {
		cells, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				return nil, &StorageReadError{Path: s.path, Line: perr.Line, Err: perr.Err}
			}
			return nil, &StorageReadError{Path: s.path, Err: err}
		}
		line, _ := r.FieldPos(0)
		rec, err := s.decode(cells)
		if err != nil {
			return nil, &StorageReadError{Path: s.path, Line: line, Err: err}
		}
		rows = append(rows, rec)
	}
	return rows, nil
}

func (s *Store) decode(cells []string) (Record, error) {
	if len(cells) != len(s.columns) {
		return nil, fmt.Errorf("got %d fields, want %d", len(cells), len(s.columns))
	}
	rec := make(Record, len(s.columns))
	for i, c := range s.columns {
		v, err := parseCell(c.Kind, cells[i])
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", c.Name, err)
		}
		rec[c.Name] = v
	}
	return rec, nil
}

// write replaces the file with header + rows. The previous content stays in
// place until the new file is fully written.
func (s *Store) write(rows []Record) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return &StorageWriteError{Path: s.path, Err: err}
	}
	pf, err := renameio.NewPendingFile(s.path, renameio.WithPermissions(0o644))
	if err != nil {
		return &StorageWriteError{Path: s.path, Err: err}
	}
	defer pf.Cleanup()

	w := csv.NewWriter(pf)
	if err := w.Write(s.columnNames()); err != nil {
		return &StorageWriteError{Path: s.path, Err: err}
	}
	cells := make([]string, len(s.columns))
	for _, row := range rows {
		for i, c := range s.columns {
			cells[i] = formatCell(row[c.Name])
		}
		if err := w.Write(cells); err != nil {
			return &StorageWriteError{Path: s.path, Err: err}
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return &StorageWriteError{Path: s.path, Err: err}
	}
	if err := pf.CloseAtomicallyReplace(); err != nil {
		return &StorageWriteError{Path: s.path, Err: err}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Operations
// ---------------------------------------------------------------------------

// Append adds rec as the last row. Columns missing from rec are stored unset.
func (s *Store) Append(rec Record) error {
	row := make(Record, len(s.columns))
	for name, v := range rec {
		c, err := s.column(name)
		if err != nil {
			return err
		}
		if row[name], err = normalize(c.Kind, v); err != nil {
			return fmt.Errorf("column %s: %w", name, err)
		}
	}
	rows, err := s.Load()
	if err != nil {
		return err
	}
	if err := s.write(append(rows, row)); err != nil {
		return err
	}
	s.logger.Debug("row appended", "rows", len(rows)+1)
	return nil
}

// DeleteWhere removes every row whose column equals value and returns how
// many were removed. Zero matches is not an error.
func (s *Store) DeleteWhere(column string, value any) (int, error) {
	v, err := s.normalizeFor(column, value)
	if err != nil {
		return 0, err
	}
	rows, err := s.Load()
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		s.logger.Warn("table is empty, nothing deleted", "column", column, "value", v)
		return 0, nil
	}
	kept := slices.DeleteFunc(rows, func(r Record) bool { return r[column] == v })
	removed := len(rows) - len(kept)
	if removed == 0 {
		return 0, nil
	}
	if err := s.write(kept); err != nil {
		return 0, err
	}
	s.logger.Debug("rows deleted", "column", column, "value", v, "count", removed)
	return removed, nil
}

// UpdateByKey overwrites, in every row whose keyColumn equals keyValue, the
// columns of patch that are set. Unset (nil or "") patch values leave the
// stored value unchanged; the key column is never rewritten. An empty table
// is reported and left alone.
func (s *Store) UpdateByKey(keyColumn string, keyValue any, patch Record) (int, error) {
	key, err := s.normalizeFor(keyColumn, keyValue)
	if err != nil {
		return 0, err
	}
	changes := make(Record, len(patch))
	for name, v := range patch {
		if name == keyColumn {
			continue
		}
		nv, err := s.normalizeFor(name, v)
		if err != nil {
			return 0, err
		}
		if nv != nil {
			changes[name] = nv
		}
	}

	rows, err := s.Load()
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		s.logger.Warn("table is empty, nothing updated", "column", keyColumn, "value", key)
		return 0, nil
	}
	touched := 0
	for _, row := range rows {
		if row[keyColumn] != key {
			continue
		}
		for name, v := range changes {
			row[name] = v
		}
		touched++
	}
	if touched == 0 || len(changes) == 0 {
		return touched, nil
	}
	if err := s.write(rows); err != nil {
		return 0, err
	}
	s.logger.Debug("rows updated", "column", keyColumn, "value", key, "count", touched)
	return touched, nil
}

// SearchWhere returns the rows whose column equals value, in file order.
func (s *Store) SearchWhere(column string, value any) ([]Record, error) {
	v, err := s.normalizeFor(column, value)
	if err != nil {
		return nil, err
	}
	rows, err := s.Load()
	if err != nil {
		return nil, err
	}
	matches := []Record{}
	for _, row := range rows {
		if row[column] == v {
			matches = append(matches, row)
		}
	}
	return matches, nil
}

// ListAll returns every row in file order.
func (s *Store) ListAll() ([]Record, error) {
	return s.Load()
}

func (s *Store) normalizeFor(column string, value any) (any, error) {
	c, err := s.column(column)
	if err != nil {
		return nil, err
	}
	v, err := normalize(c.Kind, value)
	if err != nil {
		return nil, fmt.Errorf("column %s: %w", column, err)
	}
	return v, nil
}
