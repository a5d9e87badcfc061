// Package shell is the numbered-menu front end over a LibraryManager.
package shell

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/term"

	"library-records/library"
)

const banner = "Welcome to the library management system. Manage books, users and checkouts from here."

// errQuit ends the session when the input runs out.
var errQuit = errors.New("end of input")

// Shell reads menu choices and form fields line by line.
type Shell struct {
	lm     *library.LibraryManager
	sc     *bufio.Scanner
	out    io.Writer
	logger *slog.Logger
	tty    bool
}

// New returns a shell reading from in and printing to out. The welcome
// banner is shown only when in is a terminal.
func New(lm *library.LibraryManager, in io.Reader, out io.Writer, logger *slog.Logger) *Shell {
	tty := false
	if f, ok := in.(*os.File); ok {
		tty = term.IsTerminal(int(f.Fd()))
	}
	return &Shell{
		lm:     lm,
		sc:     bufio.NewScanner(in),
		out:    out,
		logger: logger.With("component", "shell"),
		tty:    tty,
	}
}

type action struct {
	label string
	run   func(*Shell) error
}

type menu struct {
	label   string
	actions []action
}

var menus = []menu{
	{"Update Books in the library", []action{
		{"Add a Book in the library", (*Shell).addBook},
		{"List Books in the library", (*Shell).listBooks},
		{"Delete a Book from the library", (*Shell).deleteBook},
		{"Update Book details", (*Shell).updateBook},
		{"Search Book", (*Shell).searchBooks},
	}},
	{"Update Users in the library", []action{
		{"Add a User", (*Shell).addUser},
		{"List Users", (*Shell).listUsers},
		{"Delete a User", (*Shell).deleteUser},
		{"Update User details", (*Shell).updateUser},
		{"Search User", (*Shell).searchUsers},
	}},
	{"Update Checkouts in the library", []action{
		{"Checkout a Book", (*Shell).checkout},
		{"Return a Book", (*Shell).returnBook},
		{"Update Checkout details", (*Shell).updateCheckout},
		{"Search Checkout", (*Shell).searchCheckouts},
		{"List Checkouts", (*Shell).listCheckouts},
	}},
}

// Run loops over the main menu until the user picks -1 or the input ends.
// Storage and validation faults end the session and are returned.
func (s *Shell) Run() error {
	if s.tty {
		fmt.Fprintln(s.out, banner)
	}
	err := s.mainLoop()
	if errors.Is(err, errQuit) {
		return nil
	}
	return err
}

func (s *Shell) mainLoop() error {
	for {
		for i, m := range menus {
			fmt.Fprintf(s.out, "%d. %s\n", i+1, m.label)
		}
		fmt.Fprintln(s.out, "-1. I am done for now. Exit the system.")
		choice, err := s.readLine("Enter choice: ")
		if err != nil {
			return err
		}
		if choice == "-1" {
			return nil
		}
		m, ok := pick(menus, choice)
		if !ok {
			fmt.Fprintln(s.out, "Invalid choice, please try again.")
			continue
		}
		if err := s.subLoop(m); err != nil {
			return err
		}
	}
}

func (s *Shell) subLoop(m menu) error {
	for {
		for i, a := range m.actions {
			fmt.Fprintf(s.out, "%d. %s\n", i+1, a.label)
		}
		fmt.Fprintln(s.out, "-1. Exit")
		choice, err := s.readLine("Enter choice: ")
		if err != nil {
			return err
		}
		if choice == "-1" {
			return nil
		}
		a, ok := pick(m.actions, choice)
		if !ok {
			fmt.Fprintln(s.out, "Invalid choice, please try again.")
			continue
		}
		if err := a.run(s); err != nil {
			return err
		}
	}
}

// pick returns the 1-based entry named by choice.
func pick[T any](items []T, choice string) (T, bool) {
	var zero T
	for i := range items {
		if choice == fmt.Sprint(i+1) {
			return items[i], true
		}
	}
	return zero, false
}

func (s *Shell) readLine(prompt string) (string, error) {
	fmt.Fprint(s.out, prompt)
	if !s.sc.Scan() {
		if err := s.sc.Err(); err != nil {
			return "", err
		}
		return "", errQuit
	}
	return strings.TrimSpace(s.sc.Text()), nil
}

// ask prompts for the fields of form and coerces the answers. Fields with a
// default are not asked for.
func (s *Shell) ask(form library.Schema) (library.Record, error) {
	raw := make(map[string]string, len(form.Fields))
	for _, f := range form.Fields {
		if !f.Required && f.Default != nil {
			continue
		}
		v, err := s.readLine("Enter " + f.Name + ": ")
		if err != nil {
			return nil, err
		}
		raw[f.Name] = v
	}
	return form.Coerce(raw)
}

func (s *Shell) report(o library.Outcome, done string) {
	if o.Applied {
		fmt.Fprintln(s.out, done)
		return
	}
	fmt.Fprintf(s.out, "Nothing changed: %s.\n", o.Reason)
}

// ---------------------------------------------------------------------------
// Books
// ---------------------------------------------------------------------------

func (s *Shell) addBook() error {
	rec, err := s.ask(library.AddBookSchema)
	if err != nil {
		return err
	}
	b, err := library.BookFromRecord(rec)
	if err != nil {
		return err
	}
	o, err := s.lm.Books().AddOrRestock(b)
	if err != nil {
		return err
	}
	s.report(o, "Book saved.")
	return nil
}

func (s *Shell) listBooks() error {
	books, err := s.lm.Books().List()
	if err != nil {
		return err
	}
	if len(books) == 0 {
		fmt.Fprintln(s.out, "No books in library.")
		return nil
	}
	printBooks(s.out, books)
	return nil
}

func (s *Shell) deleteBook() error {
	rec, err := s.ask(library.DeleteBookSchema)
	if err != nil {
		return err
	}
	isbn, _ := rec.Int(library.ColISBN)
	o, err := s.lm.Books().Remove(isbn)
	if err != nil {
		return err
	}
	s.report(o, "Book removed.")
	return nil
}

func (s *Shell) updateBook() error {
	rec, err := s.ask(library.BookSchema)
	if err != nil {
		return err
	}
	p, ok := library.BookPatchFromRecord(rec)
	if !ok {
		s.logger.Warn("isbn is required to update a book")
		return nil
	}
	o, err := s.lm.Books().UpdateDetails(p)
	if err != nil {
		return err
	}
	s.report(o, "Book updated.")
	return nil
}

func (s *Shell) searchBooks() error {
	rec, err := s.ask(library.BookSchema)
	if err != nil {
		return err
	}
	matches, err := s.lm.Books().Search(library.BookFilterFromRecord(rec))
	if err != nil {
		return err
	}
	printMatches(s.out, matches, printBooks)
	return nil
}

// ---------------------------------------------------------------------------
// Users
// ---------------------------------------------------------------------------

func (s *Shell) addUser() error {
	rec, err := s.ask(library.AddUserSchema)
	if err != nil {
		return err
	}
	u, err := library.UserFromRecord(rec)
	if err != nil {
		return err
	}
	o, err := s.lm.Users().Add(u)
	if err != nil {
		return err
	}
	s.report(o, "User added.")
	return nil
}

func (s *Shell) listUsers() error {
	users, err := s.lm.Users().List()
	if err != nil {
		return err
	}
	if len(users) == 0 {
		fmt.Fprintln(s.out, "No users registered.")
		return nil
	}
	printUsers(s.out, users)
	return nil
}

func (s *Shell) deleteUser() error {
	rec, err := s.ask(library.DeleteUserSchema)
	if err != nil {
		return err
	}
	id, _ := rec.Int(library.ColUserID)
	o, err := s.lm.Users().Remove(id)
	if err != nil {
		return err
	}
	s.report(o, "User removed.")
	return nil
}

func (s *Shell) updateUser() error {
	rec, err := s.ask(library.UserSchema)
	if err != nil {
		return err
	}
	p, ok := library.UserPatchFromRecord(rec)
	if !ok {
		s.logger.Warn("user_id is required to update a user")
		return nil
	}
	o, err := s.lm.Users().UpdateDetails(p)
	if err != nil {
		return err
	}
	s.report(o, "User updated.")
	return nil
}

func (s *Shell) searchUsers() error {
	rec, err := s.ask(library.UserSchema)
	if err != nil {
		return err
	}
	matches, err := s.lm.Users().Search(library.UserFilterFromRecord(rec))
	if err != nil {
		return err
	}
	printMatches(s.out, matches, printUsers)
	return nil
}

// ---------------------------------------------------------------------------
// Checkouts
// ---------------------------------------------------------------------------

func (s *Shell) checkout() error {
	rec, err := s.ask(library.CheckoutSchema)
	if err != nil {
		return err
	}
	isbn, _ := rec.Int(library.ColISBN)
	userID, ok := rec.Int(library.ColUserID)
	if !ok {
		s.logger.Warn("user_id is required to check out a book", "isbn", isbn)
		return nil
	}
	o, err := s.lm.Checkouts().Checkout(library.Checkout{ISBN: isbn, UserID: userID})
	if err != nil {
		return err
	}
	s.report(o, "Book checked out.")
	return nil
}

func (s *Shell) returnBook() error {
	rec, err := s.ask(library.ReturnSchema)
	if err != nil {
		return err
	}
	isbn, _ := rec.Int(library.ColISBN)
	o, err := s.lm.Checkouts().Return(isbn)
	if err != nil {
		return err
	}
	s.report(o, "Book returned.")
	return nil
}

func (s *Shell) updateCheckout() error {
	rec, err := s.ask(library.CheckoutSchema)
	if err != nil {
		return err
	}
	p, _ := library.CheckoutPatchFromRecord(rec)
	o, err := s.lm.Checkouts().Update(p)
	if err != nil {
		return err
	}
	s.report(o, "Checkout updated.")
	return nil
}

func (s *Shell) searchCheckouts() error {
	rec, err := s.ask(library.CheckoutFilterSchema)
	if err != nil {
		return err
	}
	matches, err := s.lm.Checkouts().Search(library.CheckoutFilterFromRecord(rec))
	if err != nil {
		return err
	}
	printMatches(s.out, matches, printCheckouts)
	return nil
}

func (s *Shell) listCheckouts() error {
	loans, err := s.lm.Checkouts().List()
	if err != nil {
		return err
	}
	if len(loans) == 0 {
		fmt.Fprintln(s.out, "No books checked out.")
		return nil
	}
	printCheckouts(s.out, loans)
	return nil
}
