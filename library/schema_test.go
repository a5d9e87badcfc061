package library

import (
	"errors"
	"testing"

	"gotest.tools/assert"
)

func TestCoerceAddBook(t *testing.T) {
	rec, err := AddBookSchema.Coerce(map[string]string{
		ColISBN: "111", ColTitle: "A", ColAuthor: "X", ColAvailability: "",
	})
	assert.NilError(t, err)
	assert.DeepEqual(t, rec, Record{
		ColISBN: int64(111), ColTitle: "A", ColAuthor: "X", ColAvailability: int64(1),
	})

	rec, err = AddBookSchema.Coerce(map[string]string{ColISBN: "111", ColTitle: "A", ColAuthor: "X"})
	assert.NilError(t, err)
	assert.Equal(t, rec[ColAvailability], int64(1))
}

func TestCoerceFailures(t *testing.T) {
	tests := []struct {
		name   string
		schema Schema
		raw    map[string]string
		field  string
	}{
		{"missing required", AddBookSchema, map[string]string{ColTitle: "A", ColAuthor: "X"}, ColISBN},
		{"empty required", AddBookSchema, map[string]string{ColISBN: "1", ColTitle: "", ColAuthor: "X"}, ColTitle},
		{"not an integer", AddBookSchema, map[string]string{ColISBN: "abc", ColTitle: "A", ColAuthor: "X"}, ColISBN},
		{"optional not an integer", BookSchema, map[string]string{ColISBN: "1", ColTitle: "", ColAuthor: "", ColAvailability: "many"}, ColAvailability},
		{"not a bool", AddUserSchema, map[string]string{ColUserID: "1", ColName: "Bob", ColIsCheckedOut: "maybe"}, ColIsCheckedOut},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.schema.Coerce(tt.raw)
			var verr *ValidationError
			assert.Assert(t, errors.As(err, &verr), "got %v", err)
			assert.Equal(t, verr.Field, tt.field)
			assert.Equal(t, verr.Schema, tt.schema.Name)
		})
	}
}

func TestCoerceEmptyMeansUnset(t *testing.T) {
	rec, err := BookSchema.Coerce(map[string]string{ColISBN: "", ColTitle: "", ColAuthor: "Tolkien"})
	assert.NilError(t, err)
	assert.DeepEqual(t, rec, Record{ColISBN: nil, ColTitle: nil, ColAuthor: "Tolkien", ColAvailability: nil})

	f := BookFilterFromRecord(rec)
	assert.Assert(t, f.ISBN == nil)
	assert.Assert(t, f.Title == nil)
	assert.Equal(t, *f.Author, "Tolkien")

	_, ok := BookPatchFromRecord(rec)
	assert.Assert(t, !ok, "patch without isbn")
}

func TestCoerceTriesParsersInOrder(t *testing.T) {
	s := Schema{Name: "Mixed", Fields: []Field{
		{Name: "v", Kind: KindString, Parsers: []Parser{ParseInt, ParseString}, Required: true},
	}}
	// ParseInt succeeds but an int is not a string column value, so the
	// next parser wins.
	rec, err := s.Coerce(map[string]string{"v": "42"})
	assert.NilError(t, err)
	assert.Equal(t, rec["v"], "42")

	b := Schema{Name: "Flag", Fields: []Field{boolField("on", true, nil)}}
	rec, err = b.Coerce(map[string]string{"on": "True"})
	assert.NilError(t, err)
	assert.Equal(t, rec["on"], true)
}

func TestSchemaColumns(t *testing.T) {
	assert.DeepEqual(t, BookColumns.Columns(), []Column{
		{Name: ColISBN, Kind: KindInt},
		{Name: ColTitle, Kind: KindString},
		{Name: ColAuthor, Kind: KindString},
		{Name: ColAvailability, Kind: KindInt},
	})
	assert.DeepEqual(t, UserColumns.Columns(), []Column{
		{Name: ColUserID, Kind: KindInt},
		{Name: ColName, Kind: KindString},
		{Name: ColIsCheckedOut, Kind: KindBool},
	})
	assert.DeepEqual(t, CheckoutColumns.Columns(), []Column{
		{Name: ColISBN, Kind: KindInt},
		{Name: ColUserID, Kind: KindInt},
	})
}
