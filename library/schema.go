package library

import (
	"errors"
	"strconv"
)

var (
	errRequired    = errors.New("value is required")
	errUnparseable = errors.New("value does not match any accepted type")
)

// Parser converts captured text into a typed value.
type Parser func(string) (any, error)

// ParseInt accepts base-10 integers.
func ParseInt(s string) (any, error) { return strconv.ParseInt(s, 10, 64) }

// ParseBool accepts the spellings of strconv.ParseBool.
func ParseBool(s string) (any, error) { return strconv.ParseBool(s) }

// ParseString accepts anything.
func ParseString(s string) (any, error) { return s, nil }

// Field describes how one input field is captured and typed.
type Field struct {
	Name string
	Kind Kind
	// Parsers are tried in order; the first success wins.
	Parsers []Parser
	// Required fields must be supplied; they are the ones the shell prompts for.
	Required bool
	// Nullable fields may be supplied empty and are then unset.
	Nullable bool
	// Default is used when an optional field is missing or empty.
	Default any
}

// Schema is a static, ordered description of an input form or a table.
type Schema struct {
	Name   string
	Fields []Field
}

// Columns returns the storage columns described by the schema.
func (s Schema) Columns() []Column {
	cols := make([]Column, len(s.Fields))
	for i, f := range s.Fields {
		cols[i] = Column{Name: f.Name, Kind: f.Kind}
	}
	return cols
}

// Coerce turns captured text into a typed Record.
//
// Empty text means unset: an unset field takes its default, stays nil when
// nullable, and fails when required. Non-empty text that no parser accepts
// fails.
func (s Schema) Coerce(raw map[string]string) (Record, error) {
	rec := make(Record, len(s.Fields))
	for _, f := range s.Fields {
		text, ok := raw[f.Name]
		if !ok && f.Required {
			return nil, &ValidationError{Schema: s.Name, Field: f.Name, Err: errRequired}
		}
		if text == "" {
			switch {
			case f.Default != nil:
				rec[f.Name] = f.Default
			case f.Nullable || !f.Required:
				rec[f.Name] = nil
			default:
				return nil, &ValidationError{Schema: s.Name, Field: f.Name, Err: errRequired}
			}
			continue
		}
		v, err := f.parse(text)
		if err != nil {
			return nil, &ValidationError{Schema: s.Name, Field: f.Name, Value: text, Err: err}
		}
		rec[f.Name] = v
	}
	return rec, nil
}

func (f Field) parse(text string) (any, error) {
	for _, p := range f.Parsers {
		v, err := p(text)
		if err != nil {
			continue
		}
		nv, err := normalize(f.Kind, v)
		if err != nil {
			continue
		}
		return nv, nil
	}
	return nil, errUnparseable
}

func intField(name string, required, nullable bool, def any) Field {
	return Field{Name: name, Kind: KindInt, Parsers: []Parser{ParseInt}, Required: required, Nullable: nullable, Default: def}
}

func stringField(name string, required, nullable bool) Field {
	return Field{Name: name, Kind: KindString, Parsers: []Parser{ParseString}, Required: required, Nullable: nullable}
}

func boolField(name string, required bool, def any) Field {
	return Field{Name: name, Kind: KindBool, Parsers: []Parser{ParseBool}, Required: required, Default: def}
}

// Column names shared by schemas, tables and the shell.
const (
	ColISBN         = "isbn"
	ColTitle        = "title"
	ColAuthor       = "author"
	ColAvailability = "availability"
	ColUserID       = "user_id"
	ColName         = "name"
	ColIsCheckedOut = "is_checked_out"
)

// Storage layouts. Field order is the CSV column order.
var (
	BookColumns = Schema{Name: "Book", Fields: []Field{
		intField(ColISBN, true, false, nil),
		stringField(ColTitle, true, true),
		stringField(ColAuthor, true, true),
		intField(ColAvailability, false, true, nil),
	}}
	UserColumns = Schema{Name: "User", Fields: []Field{
		intField(ColUserID, true, false, nil),
		stringField(ColName, true, true),
		boolField(ColIsCheckedOut, false, false),
	}}
	CheckoutColumns = Schema{Name: "Checkout", Fields: []Field{
		intField(ColISBN, true, false, nil),
		intField(ColUserID, true, true, nil),
	}}
)

// Input forms.
var (
	AddBookSchema = Schema{Name: "AddBook", Fields: []Field{
		intField(ColISBN, true, false, nil),
		stringField(ColTitle, true, false),
		stringField(ColAuthor, true, false),
		intField(ColAvailability, false, false, int64(1)),
	}}
	// BookSchema is the filter / partial-update form: everything may be left
	// empty.
	BookSchema = Schema{Name: "Book", Fields: []Field{
		intField(ColISBN, true, true, nil),
		stringField(ColTitle, true, true),
		stringField(ColAuthor, true, true),
		intField(ColAvailability, false, true, nil),
	}}
	DeleteBookSchema = Schema{Name: "DeleteBook", Fields: []Field{
		intField(ColISBN, true, false, nil),
	}}

	AddUserSchema = Schema{Name: "AddUser", Fields: []Field{
		intField(ColUserID, true, false, nil),
		stringField(ColName, true, false),
		boolField(ColIsCheckedOut, false, false),
	}}
	// UserSchema has no is_checked_out field: that flag belongs to the
	// checkout workflow.
	UserSchema = Schema{Name: "User", Fields: []Field{
		intField(ColUserID, true, true, nil),
		stringField(ColName, true, true),
	}}
	DeleteUserSchema = Schema{Name: "DeleteUser", Fields: []Field{
		intField(ColUserID, true, false, nil),
	}}

	CheckoutSchema = Schema{Name: "Checkout", Fields: []Field{
		intField(ColISBN, true, false, nil),
		intField(ColUserID, true, true, nil),
	}}
	// CheckoutFilterSchema lets either key be left empty when searching.
	CheckoutFilterSchema = Schema{Name: "CheckoutFilter", Fields: []Field{
		intField(ColISBN, true, true, nil),
		intField(ColUserID, true, true, nil),
	}}
	ReturnSchema = Schema{Name: "Return", Fields: []Field{
		intField(ColISBN, true, false, nil),
	}}
)
