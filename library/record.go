package library

import (
	"fmt"
	"math"
	"strconv"
)

// Kind is the scalar type stored in a column.
type Kind int

const (
	KindInt Kind = iota
	KindString
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Column declares one named, typed column of a table.
type Column struct {
	Name string
	Kind Kind
}

// Record is one row: column name to int64, string, bool or nil (unset).
// Column order is owned by the table the record belongs to.
type Record map[string]any

// Int returns the int64 stored in col, if set.
func (r Record) Int(col string) (int64, bool) {
	v, ok := r[col].(int64)
	return v, ok
}

// String returns the string stored in col, if set.
func (r Record) String(col string) (string, bool) {
	v, ok := r[col].(string)
	return v, ok
}

// Bool returns the bool stored in col, if set.
func (r Record) Bool(col string) (bool, bool) {
	v, ok := r[col].(bool)
	return v, ok
}

// normalize converts v to the canonical Go type of kind. Empty strings
// become nil so that "" and unset are the same thing everywhere.
func normalize(kind Kind, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch kind {
	case KindInt:
		switch n := v.(type) {
		case int:
			return int64(n), nil
		case int8:
			return int64(n), nil
		case int16:
			return int64(n), nil
		case int32:
			return int64(n), nil
		case int64:
			return n, nil
		case uint8:
			return int64(n), nil
		case uint16:
			return int64(n), nil
		case uint32:
			return int64(n), nil
		case uint:
			if uint64(n) <= math.MaxInt64 {
				return int64(n), nil
			}
		case uint64:
			if n <= math.MaxInt64 {
				return int64(n), nil
			}
		}
	case KindString:
		if s, ok := v.(string); ok {
			if s == "" {
				return nil, nil
			}
			return s, nil
		}
	case KindBool:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	}
	return nil, fmt.Errorf("value %v (%T) is not %s", v, v, kind)
}

// parseCell decodes one CSV cell. Empty cells are unset.
func parseCell(kind Kind, cell string) (any, error) {
	if cell == "" {
		return nil, nil
	}
	switch kind {
	case KindInt:
		if n, err := strconv.ParseInt(cell, 10, 64); err == nil {
			return n, nil
		}
		// Files written by spreadsheet tools store nullable integer columns
		// as floats ("12.0").
		f, err := strconv.ParseFloat(cell, 64)
		if err != nil || f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
			return nil, fmt.Errorf("%q is not an integer", cell)
		}
		return int64(f), nil
	case KindBool:
		b, err := strconv.ParseBool(cell)
		if err != nil {
			return nil, fmt.Errorf("%q is not a boolean", cell)
		}
		return b, nil
	default:
		return cell, nil
	}
}

// formatCell encodes a normalized value for CSV.
func formatCell(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	case string:
		return t
	}
	return fmt.Sprint(v)
}
