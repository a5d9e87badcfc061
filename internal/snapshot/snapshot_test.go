package snapshot

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"library-records/library"
)

func tempManager(t *testing.T) *library.LibraryManager {
	t.Helper()
	dir := t.TempDir()
	return library.NewLibraryManager(library.Paths{
		Books:     filepath.Join(dir, "books.csv"),
		Users:     filepath.Join(dir, "users.csv"),
		Checkouts: filepath.Join(dir, "checkout.csv"),
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func tempDB(t *testing.T) *Database {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "snapshot.db"))
	if err != nil {
		t.Fatalf("open snapshot: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func count(t *testing.T, db *Database, table string) int {
	t.Helper()
	n, err := db.Count(context.Background(), table)
	if err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}

func TestExportEmptyTables(t *testing.T) {
	db := tempDB(t)
	res, err := db.Export(context.Background(), tempManager(t), false)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if res.Skipped {
		t.Fatalf("first export must not be skipped")
	}
	for _, s := range res.Sources {
		if s.Digest != "" || s.Rows != 0 {
			t.Fatalf("missing file %s: got digest %q rows %d", s.Name, s.Digest, s.Rows)
		}
	}
}

func TestExportFlow(t *testing.T) {
	ctx := context.Background()
	lm := tempManager(t)
	db := tempDB(t)

	if _, err := lm.Books().AddOrRestock(library.Book{ISBN: 111, Title: "A", Author: "X", Availability: 2}); err != nil {
		t.Fatalf("add book: %v", err)
	}
	if _, err := lm.Users().Add(library.User{UserID: 1, Name: "Bob"}); err != nil {
		t.Fatalf("add user: %v", err)
	}
	if _, err := lm.Checkouts().Checkout(library.Checkout{ISBN: 111, UserID: 1}); err != nil {
		t.Fatalf("checkout: %v", err)
	}

	res, err := db.Export(ctx, lm, false)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if res.Skipped {
		t.Fatalf("export skipped")
	}
	if got := count(t, db, "books"); got != 1 {
		t.Fatalf("want 1 book, got %d", got)
	}
	if got := count(t, db, "checkouts"); got != 1 {
		t.Fatalf("want 1 checkout, got %d", got)
	}

	var avail int
	var flagged bool
	if err := db.db.QueryRow(`SELECT b.availability, u.is_checked_out FROM checkouts c
        JOIN books b ON b.isbn = c.isbn JOIN users u ON u.user_id = c.user_id`).Scan(&avail, &flagged); err != nil {
		t.Fatalf("join: %v", err)
	}
	if avail != 1 || !flagged {
		t.Fatalf("got availability %d flagged %t", avail, flagged)
	}

	// Unchanged files: nothing to do.
	res, err = db.Export(ctx, lm, false)
	if err != nil {
		t.Fatalf("re-export: %v", err)
	}
	if !res.Skipped || len(res.Sources) != 3 {
		t.Fatalf("expected skipped export with 3 sources, got %+v", res)
	}

	// A return changes the files and the snapshot follows.
	if _, err := lm.Checkouts().Return(111); err != nil {
		t.Fatalf("return: %v", err)
	}
	res, err = db.Export(ctx, lm, false)
	if err != nil {
		t.Fatalf("export after return: %v", err)
	}
	if res.Skipped {
		t.Fatalf("changed tables must be exported")
	}
	if got := count(t, db, "checkouts"); got != 0 {
		t.Fatalf("want 0 checkouts, got %d", got)
	}

	res, err = db.Export(ctx, lm, true)
	if err != nil || res.Skipped {
		t.Fatalf("forced export: %+v %v", res, err)
	}
}

func TestCountRejectsUnknownTable(t *testing.T) {
	db := tempDB(t)
	if _, err := db.Count(context.Background(), "meta; DROP TABLE books"); err == nil {
		t.Fatalf("expected error for unknown table")
	}
}
