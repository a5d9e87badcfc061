package library

import "log/slog"

// Paths are the resolved file locations of the three tables.
type Paths struct {
	Books     string
	Users     string
	Checkouts string
}

// LibraryManager is a thin façade wiring the three tables together, keeping
// CLI code simple.
type LibraryManager struct {
	books     *BooksTable
	users     *UsersTable
	checkouts *CheckoutTable
}

// NewLibraryManager opens the tables at paths. Files are created on first
// write.
func NewLibraryManager(paths Paths, logger *slog.Logger) *LibraryManager {
	books := NewBooksTable(paths.Books, logger)
	users := NewUsersTable(paths.Users, logger)
	return &LibraryManager{
		books:     books,
		users:     users,
		checkouts: NewCheckoutTable(paths.Checkouts, books, users, logger),
	}
}

func (lm *LibraryManager) Books() *BooksTable        { return lm.books }
func (lm *LibraryManager) Users() *UsersTable        { return lm.users }
func (lm *LibraryManager) Checkouts() *CheckoutTable { return lm.checkouts }
