package library

import (
	"fmt"
	"log/slog"
)

// CheckoutTable holds active loans and coordinates the books and users tables
// when a book goes out or comes back. A row exists while the book is out.
type CheckoutTable struct {
	store  *Store
	books  *BooksTable
	users  *UsersTable
	logger *slog.Logger
}

// NewCheckoutTable opens the checkout file at path.
func NewCheckoutTable(path string, books *BooksTable, users *UsersTable, logger *slog.Logger) *CheckoutTable {
	return &CheckoutTable{
		store:  NewStore(path, CheckoutColumns.Columns(), logger.With("component", "store.checkouts")),
		books:  books,
		users:  users,
		logger: logger.With("component", "checkouts"),
	}
}

// Store exposes the underlying record store.
func (t *CheckoutTable) Store() *Store { return t.store }

// IsCheckedOut reports whether isbn has an active checkout row.
func (t *CheckoutTable) IsCheckedOut(isbn int64) (bool, error) {
	rows, err := t.store.SearchWhere(ColISBN, isbn)
	if err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}

// Get returns the active checkout of isbn.
func (t *CheckoutTable) Get(isbn int64) (Checkout, bool, error) {
	rows, err := t.store.SearchWhere(ColISBN, isbn)
	if err != nil || len(rows) == 0 {
		return Checkout{}, false, err
	}
	c, err := CheckoutFromRecord(rows[0])
	if err != nil {
		return Checkout{}, false, err
	}
	return c, true, nil
}

// loans counts the active checkout rows of a user.
func (t *CheckoutTable) loans(userID int64) (int, error) {
	rows, err := t.store.SearchWhere(ColUserID, userID)
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

// Checkout lends c.ISBN to c.UserID: one copy less, user flagged, row added.
// All preconditions are checked before the first file is written.
func (t *CheckoutTable) Checkout(c Checkout) (Outcome, error) {
	book, ok, err := t.books.Get(c.ISBN)
	if err != nil {
		return Outcome{}, err
	}
	if !ok {
		return skip(t.logger, "book does not exist, not checking out", "isbn", c.ISBN), nil
	}
	user, ok, err := t.users.Get(c.UserID)
	if err != nil {
		return Outcome{}, err
	}
	if !ok {
		return skip(t.logger, "user id does not exist, not checking out", "user_id", c.UserID), nil
	}
	out, err := t.IsCheckedOut(c.ISBN)
	if err != nil {
		return Outcome{}, err
	}
	if out {
		return skip(t.logger, "book is already checked out", "isbn", c.ISBN), nil
	}
	if book.Availability <= 0 {
		return skip(t.logger, "book is unavailable, not checking out", "isbn", c.ISBN), nil
	}

	s := newSaga("checkout", t.logger).
		step("decrement availability", func() error {
			_, err := t.books.AdjustAvailability(book, false)
			return err
		})
	if !user.IsCheckedOut {
		s.step("flag user", func() error {
			_, err := t.users.SetCheckedOutStatus(c.UserID, true)
			return err
		})
	}
	s.step("insert checkout", func() error {
		return t.store.Append(c.Record())
	})
	if err := s.run(); err != nil {
		return Outcome{}, err
	}
	t.logger.Info("book checked out", "isbn", c.ISBN, "user_id", c.UserID)
	return applied, nil
}

// Return takes isbn back: one copy more, the user's flag cleared when this was
// their only loan, row deleted.
func (t *CheckoutTable) Return(isbn int64) (Outcome, error) {
	book, ok, err := t.books.Get(isbn)
	if err != nil {
		return Outcome{}, err
	}
	if !ok {
		return skip(t.logger, "book does not exist, cannot return", "isbn", isbn), nil
	}
	loan, ok, err := t.Get(isbn)
	if err != nil {
		return Outcome{}, err
	}
	if !ok {
		return skip(t.logger, "book is not checked out, cannot return", "isbn", isbn), nil
	}
	exists, err := t.users.UserIDExists(loan.UserID)
	if err != nil {
		return Outcome{}, err
	}
	if !exists {
		return skip(t.logger, "user id does not exist, cannot return", "isbn", isbn, "user_id", loan.UserID), nil
	}
	held, err := t.loans(loan.UserID)
	if err != nil {
		return Outcome{}, err
	}

	s := newSaga("return", t.logger).
		step("increment availability", func() error {
			one := book
			one.Availability = 1
			_, err := t.books.AdjustAvailability(one, true)
			return err
		})
	if held == 1 {
		s.step("clear user flag", func() error {
			_, err := t.users.SetCheckedOutStatus(loan.UserID, false)
			return err
		})
	}
	s.step("delete checkout", func() error {
		_, err := t.store.DeleteWhere(ColISBN, isbn)
		return err
	})
	if err := s.run(); err != nil {
		return Outcome{}, err
	}
	t.logger.Info("book returned", "isbn", isbn, "user_id", loan.UserID)
	return applied, nil
}

// Update changes the active checkout of p.ISBN. Moving a loan to another user
// keeps both users' loan flags in line with the rows they hold.
func (t *CheckoutTable) Update(p CheckoutPatch) (Outcome, error) {
	loan, ok, err := t.Get(p.ISBN)
	if err != nil {
		return Outcome{}, err
	}
	if !ok {
		return skip(t.logger, "book is not checked out, cannot update", "isbn", p.ISBN), nil
	}
	if p.UserID == nil {
		return skip(t.logger, "nothing to update", "isbn", p.ISBN), nil
	}
	to := *p.UserID
	next, ok, err := t.users.Get(to)
	if err != nil {
		return Outcome{}, err
	}
	if !ok {
		return skip(t.logger, "user id does not exist, cannot update", "user_id", to), nil
	}
	if to == loan.UserID {
		return skip(t.logger, "checkout already belongs to user", "isbn", p.ISBN, "user_id", to), nil
	}
	held, err := t.loans(loan.UserID)
	if err != nil {
		return Outcome{}, err
	}

	s := newSaga("update checkout", t.logger).
		step("move checkout", func() error {
			_, err := t.store.UpdateByKey(ColISBN, p.ISBN, Record{ColUserID: to})
			return err
		})
	if !next.IsCheckedOut {
		s.step("flag new user", func() error {
			_, err := t.users.SetCheckedOutStatus(to, true)
			return err
		})
	}
	if held == 1 {
		s.step("clear previous user flag", func() error {
			_, err := t.users.SetCheckedOutStatus(loan.UserID, false)
			return err
		})
	}
	if err := s.run(); err != nil {
		return Outcome{}, err
	}
	t.logger.Info("checkout updated", "isbn", p.ISBN, "from_user_id", loan.UserID, "to_user_id", to)
	return applied, nil
}

// Search runs one exact-match query per set field of f, in isbn, user_id
// order.
func (t *CheckoutTable) Search(f CheckoutFilter) ([]Match[Checkout], error) {
	var matches []Match[Checkout]
	add := func(col string, v any) error {
		rows, err := t.store.SearchWhere(col, v)
		if err != nil {
			return err
		}
		loans, err := fromRecords(rows, CheckoutFromRecord)
		if err != nil {
			return fmt.Errorf("search %s: %w", col, err)
		}
		matches = append(matches, Match[Checkout]{Column: col, Value: v, Rows: loans})
		return nil
	}
	if f.ISBN != nil {
		if err := add(ColISBN, *f.ISBN); err != nil {
			return nil, err
		}
	}
	if f.UserID != nil {
		if err := add(ColUserID, *f.UserID); err != nil {
			return nil, err
		}
	}
	return matches, nil
}

// List returns every active checkout in file order.
func (t *CheckoutTable) List() ([]Checkout, error) {
	rows, err := t.store.ListAll()
	if err != nil {
		return nil, err
	}
	return fromRecords(rows, CheckoutFromRecord)
}
