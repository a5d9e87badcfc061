package library

import "fmt"

// Book is one catalogue entry and the number of copies currently loanable.
type Book struct {
	ISBN         int64  `json:"isbn" jsonschema:"description=Primary key"`
	Title        string `json:"title"`
	Author       string `json:"author"`
	Availability int64  `json:"availability" jsonschema:"minimum=0,description=Copies currently loanable"`
}

// User is a registered library patron.
type User struct {
	UserID       int64  `json:"user_id" jsonschema:"description=Primary key"`
	Name         string `json:"name"`
	IsCheckedOut bool   `json:"is_checked_out" jsonschema:"description=True while the user holds at least one book"`
}

// Checkout is an active loan: the book isbn is out to user_id.
type Checkout struct {
	ISBN   int64 `json:"isbn"`
	UserID int64 `json:"user_id"`
}

// Record converts the book to a storage row.
func (b Book) Record() Record {
	return Record{ColISBN: b.ISBN, ColTitle: b.Title, ColAuthor: b.Author, ColAvailability: b.Availability}
}

// Record converts the user to a storage row.
func (u User) Record() Record {
	return Record{ColUserID: u.UserID, ColName: u.Name, ColIsCheckedOut: u.IsCheckedOut}
}

// Record converts the checkout to a storage row.
func (c Checkout) Record() Record {
	return Record{ColISBN: c.ISBN, ColUserID: c.UserID}
}

// BookFromRecord reads a book row. Only the key is mandatory.
func BookFromRecord(r Record) (Book, error) {
	isbn, ok := r.Int(ColISBN)
	if !ok {
		return Book{}, fmt.Errorf("book row without %s: %v", ColISBN, r)
	}
	b := Book{ISBN: isbn}
	b.Title, _ = r.String(ColTitle)
	b.Author, _ = r.String(ColAuthor)
	b.Availability, _ = r.Int(ColAvailability)
	return b, nil
}

// UserFromRecord reads a user row. Only the key is mandatory.
func UserFromRecord(r Record) (User, error) {
	id, ok := r.Int(ColUserID)
	if !ok {
		return User{}, fmt.Errorf("user row without %s: %v", ColUserID, r)
	}
	u := User{UserID: id}
	u.Name, _ = r.String(ColName)
	u.IsCheckedOut, _ = r.Bool(ColIsCheckedOut)
	return u, nil
}

// CheckoutFromRecord reads a checkout row. Only the isbn is mandatory.
func CheckoutFromRecord(r Record) (Checkout, error) {
	isbn, ok := r.Int(ColISBN)
	if !ok {
		return Checkout{}, fmt.Errorf("checkout row without %s: %v", ColISBN, r)
	}
	c := Checkout{ISBN: isbn}
	c.UserID, _ = r.Int(ColUserID)
	return c, nil
}

func fromRecords[T any](rows []Record, conv func(Record) (T, error)) ([]T, error) {
	out := make([]T, 0, len(rows))
	for _, r := range rows {
		v, err := conv(r)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Partial forms. A nil pointer means "not supplied".
// ---------------------------------------------------------------------------

// BookPatch updates the book ISBN with the fields that are set.
type BookPatch struct {
	ISBN         int64
	Title        *string
	Author       *string
	Availability *int64
}

func (p BookPatch) record() Record {
	r := Record{}
	if p.Title != nil {
		r[ColTitle] = *p.Title
	}
	if p.Author != nil {
		r[ColAuthor] = *p.Author
	}
	if p.Availability != nil {
		r[ColAvailability] = *p.Availability
	}
	return r
}

// BookFilter selects books; every set field is queried on its own.
type BookFilter struct {
	ISBN   *int64
	Title  *string
	Author *string
}

// UserPatch updates the user UserID with the fields that are set.
type UserPatch struct {
	UserID int64
	Name   *string
}

func (p UserPatch) record() Record {
	r := Record{}
	if p.Name != nil {
		r[ColName] = *p.Name
	}
	return r
}

// UserFilter selects users; every set field is queried on its own.
type UserFilter struct {
	UserID *int64
	Name   *string
}

// CheckoutPatch updates the active checkout of ISBN.
type CheckoutPatch struct {
	ISBN   int64
	UserID *int64
}

// CheckoutFilter selects checkouts; every set field is queried on its own.
type CheckoutFilter struct {
	ISBN   *int64
	UserID *int64
}

// Match is the result of one single-column query of a search.
type Match[T any] struct {
	Column string
	Value  any
	Rows   []T
}

// ---------------------------------------------------------------------------
// Decoding of coerced form records.
// ---------------------------------------------------------------------------

func optInt(r Record, col string) *int64 {
	if v, ok := r.Int(col); ok {
		return &v
	}
	return nil
}

func optString(r Record, col string) *string {
	if v, ok := r.String(col); ok {
		return &v
	}
	return nil
}

// BookFilterFromRecord reads a coerced BookSchema record as a filter.
func BookFilterFromRecord(r Record) BookFilter {
	return BookFilter{ISBN: optInt(r, ColISBN), Title: optString(r, ColTitle), Author: optString(r, ColAuthor)}
}

// BookPatchFromRecord reads a coerced BookSchema record as a patch. ok is
// false when no isbn was supplied.
func BookPatchFromRecord(r Record) (p BookPatch, ok bool) {
	isbn, ok := r.Int(ColISBN)
	return BookPatch{
		ISBN:         isbn,
		Title:        optString(r, ColTitle),
		Author:       optString(r, ColAuthor),
		Availability: optInt(r, ColAvailability),
	}, ok
}

// UserFilterFromRecord reads a coerced UserSchema record as a filter.
func UserFilterFromRecord(r Record) UserFilter {
	return UserFilter{UserID: optInt(r, ColUserID), Name: optString(r, ColName)}
}

// UserPatchFromRecord reads a coerced UserSchema record as a patch. ok is
// false when no user_id was supplied.
func UserPatchFromRecord(r Record) (p UserPatch, ok bool) {
	id, ok := r.Int(ColUserID)
	return UserPatch{UserID: id, Name: optString(r, ColName)}, ok
}

// CheckoutFilterFromRecord reads a coerced CheckoutFilterSchema record.
func CheckoutFilterFromRecord(r Record) CheckoutFilter {
	return CheckoutFilter{ISBN: optInt(r, ColISBN), UserID: optInt(r, ColUserID)}
}

// CheckoutPatchFromRecord reads a coerced CheckoutSchema record as a patch.
func CheckoutPatchFromRecord(r Record) (p CheckoutPatch, ok bool) {
	isbn, ok := r.Int(ColISBN)
	return CheckoutPatch{ISBN: isbn, UserID: optInt(r, ColUserID)}, ok
}
