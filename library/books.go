package library

import (
	"fmt"
	"log/slog"
)

// BooksTable is the book catalogue, keyed by isbn.
type BooksTable struct {
	store  *Store
	logger *slog.Logger
}

// NewBooksTable opens the books file at path.
func NewBooksTable(path string, logger *slog.Logger) *BooksTable {
	return &BooksTable{
		store:  NewStore(path, BookColumns.Columns(), logger.With("component", "store.books")),
		logger: logger.With("component", "books"),
	}
}

// Store exposes the underlying record store.
func (t *BooksTable) Store() *Store { return t.store }

// ISBNExists reports whether a book with isbn is catalogued.
func (t *BooksTable) ISBNExists(isbn int64) (bool, error) {
	rows, err := t.store.SearchWhere(ColISBN, isbn)
	if err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}

// Get returns the book with isbn.
func (t *BooksTable) Get(isbn int64) (Book, bool, error) {
	rows, err := t.store.SearchWhere(ColISBN, isbn)
	if err != nil || len(rows) == 0 {
		return Book{}, false, err
	}
	b, err := BookFromRecord(rows[0])
	if err != nil {
		return Book{}, false, err
	}
	return b, true, nil
}

// AddOrRestock inserts b, or when the isbn is already catalogued with the
// same title and author, adds b.Availability to the stored copies.
func (t *BooksTable) AddOrRestock(b Book) (Outcome, error) {
	if b.Availability < 0 {
		return skip(t.logger, "availability cannot be negative", "isbn", b.ISBN, "availability", b.Availability), nil
	}
	exists, err := t.ISBNExists(b.ISBN)
	if err != nil {
		return Outcome{}, err
	}
	if exists {
		return t.AdjustAvailability(b, true)
	}
	if err := t.store.Append(b.Record()); err != nil {
		return Outcome{}, err
	}
	t.logger.Info("book added", "isbn", b.ISBN, "title", b.Title)
	return applied, nil
}

// AdjustAvailability changes the stored copies of b.ISBN. With increase it
// adds b.Availability; otherwise it takes away exactly one copy and refuses
// when none is left. b's title and author must match the stored book.
func (t *BooksTable) AdjustAvailability(b Book, increase bool) (Outcome, error) {
	cur, ok, err := t.Get(b.ISBN)
	if err != nil {
		return Outcome{}, err
	}
	if !ok {
		return skip(t.logger, "isbn does not exist, availability not updated", "isbn", b.ISBN), nil
	}
	if cur.Title != b.Title || cur.Author != b.Author {
		return skip(t.logger, "book details do not match, availability not updated",
			"isbn", b.ISBN, "title", b.Title, "author", b.Author), nil
	}
	next := cur.Availability
	if increase {
		next += b.Availability
	} else {
		if cur.Availability <= 0 {
			return skip(t.logger, "book is already unavailable, availability not updated", "isbn", b.ISBN), nil
		}
		next--
	}
	if _, err := t.store.UpdateByKey(ColISBN, b.ISBN, Record{ColAvailability: next}); err != nil {
		return Outcome{}, err
	}
	t.logger.Info("book availability updated", "isbn", b.ISBN, "from", cur.Availability, "to", next)
	return applied, nil
}

// Remove deletes the book with isbn.
func (t *BooksTable) Remove(isbn int64) (Outcome, error) {
	exists, err := t.ISBNExists(isbn)
	if err != nil {
		return Outcome{}, err
	}
	if !exists {
		return skip(t.logger, "isbn does not exist, cannot remove book", "isbn", isbn), nil
	}
	if _, err := t.store.DeleteWhere(ColISBN, isbn); err != nil {
		return Outcome{}, err
	}
	t.logger.Info("book removed", "isbn", isbn)
	return applied, nil
}

// UpdateDetails applies the set fields of p to the book p.ISBN.
func (t *BooksTable) UpdateDetails(p BookPatch) (Outcome, error) {
	if p.Availability != nil && *p.Availability < 0 {
		return skip(t.logger, "availability cannot be negative", "isbn", p.ISBN, "availability", *p.Availability), nil
	}
	exists, err := t.ISBNExists(p.ISBN)
	if err != nil {
		return Outcome{}, err
	}
	if !exists {
		return skip(t.logger, "isbn does not exist, book not updated", "isbn", p.ISBN), nil
	}
	if _, err := t.store.UpdateByKey(ColISBN, p.ISBN, p.record()); err != nil {
		return Outcome{}, err
	}
	t.logger.Info("book details updated", "isbn", p.ISBN)
	return applied, nil
}

// Search runs one exact-match query per set field of f. Results are not
// intersected; each query is reported on its own, in isbn, title, author
// order.
func (t *BooksTable) Search(f BookFilter) ([]Match[Book], error) {
	var matches []Match[Book]
	add := func(col string, v any) error {
		rows, err := t.store.SearchWhere(col, v)
		if err != nil {
			return err
		}
		books, err := fromRecords(rows, BookFromRecord)
		if err != nil {
			return fmt.Errorf("search %s: %w", col, err)
		}
		matches = append(matches, Match[Book]{Column: col, Value: v, Rows: books})
		return nil
	}
	if f.ISBN != nil {
		if err := add(ColISBN, *f.ISBN); err != nil {
			return nil, err
		}
	}
	if f.Title != nil {
		if err := add(ColTitle, *f.Title); err != nil {
			return nil, err
		}
	}
	if f.Author != nil {
		if err := add(ColAuthor, *f.Author); err != nil {
			return nil, err
		}
	}
	return matches, nil
}

// List returns every book in file order.
func (t *BooksTable) List() ([]Book, error) {
	rows, err := t.store.ListAll()
	if err != nil {
		return nil, err
	}
	return fromRecords(rows, BookFromRecord)
}
