package shell

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"library-records/library"
)

func printBooks(w io.Writer, books []library.Book) {
	fmt.Fprintf(w, "%-13s %-30s %-25s %s\n", "ISBN", "Title", "Author", "Availability")
	fmt.Fprintln(w, strings.Repeat("-", 82))
	for _, b := range books {
		fmt.Fprintf(w, "%-13d %-30s %-25s %d\n",
			b.ISBN,
			truncateString(b.Title, 30),
			truncateString(b.Author, 25),
			b.Availability)
	}
}

func printUsers(w io.Writer, users []library.User) {
	fmt.Fprintf(w, "%-10s %-30s %s\n", "User ID", "Name", "Checked Out")
	fmt.Fprintln(w, strings.Repeat("-", 53))
	for _, u := range users {
		out := "No"
		if u.IsCheckedOut {
			out = "Yes"
		}
		fmt.Fprintf(w, "%-10d %-30s %s\n", u.UserID, truncateString(u.Name, 30), out)
	}
}

func printCheckouts(w io.Writer, loans []library.Checkout) {
	fmt.Fprintf(w, "%-13s %s\n", "ISBN", "User ID")
	fmt.Fprintln(w, strings.Repeat("-", 22))
	for _, c := range loans {
		fmt.Fprintf(w, "%-13d %d\n", c.ISBN, c.UserID)
	}
}

// printMatches prints one block per queried column.
func printMatches[T any](w io.Writer, matches []library.Match[T], table func(io.Writer, []T)) {
	if len(matches) == 0 {
		fmt.Fprintln(w, "Nothing to search for.")
		return
	}
	for _, m := range matches {
		if len(m.Rows) == 0 {
			fmt.Fprintf(w, "No match for %s = %v.\n", m.Column, m.Value)
			continue
		}
		fmt.Fprintf(w, "Found %d match(es) for %s = %v:\n", len(m.Rows), m.Column, m.Value)
		table(w, m.Rows)
	}
}

// truncateString shortens s to at most maxLength bytes without splitting a
// UTF-8 sequence.
func truncateString(s string, maxLength int) string {
	if len(s) <= maxLength {
		return s
	}
	cut := maxLength - 3
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
