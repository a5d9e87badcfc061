package library

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"

	"gotest.tools/assert"
)

type snapshot struct{ books, users, checkouts string }

// tableFiles returns the raw content of the three files; missing files read as "".
func tableFiles(t *testing.T, lm *LibraryManager) snapshot {
	t.Helper()
	read := func(path string) string {
		b, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			return ""
		}
		assert.NilError(t, err)
		return string(b)
	}
	return snapshot{
		books:     read(lm.Books().Store().Path()),
		users:     read(lm.Users().Store().Path()),
		checkouts: read(lm.Checkouts().Store().Path()),
	}
}

func seed(t *testing.T) *LibraryManager {
	t.Helper()
	lm := newManager(t)
	mustApply(t)(lm.Books().AddOrRestock(Book{ISBN: 111, Title: "A", Author: "X", Availability: 2}))
	mustApply(t)(lm.Users().Add(User{UserID: 1, Name: "Bob"}))
	return lm
}

func TestCheckoutAndReturnScenario(t *testing.T) {
	lm := seed(t)

	mustApply(t)(lm.Checkouts().Checkout(Checkout{ISBN: 111, UserID: 1}))

	b, _, err := lm.Books().Get(111)
	assert.NilError(t, err)
	assert.Equal(t, b.Availability, int64(1))
	u, _, err := lm.Users().Get(1)
	assert.NilError(t, err)
	assert.Assert(t, u.IsCheckedOut)
	loans, err := lm.Checkouts().List()
	assert.NilError(t, err)
	assert.DeepEqual(t, loans, []Checkout{{ISBN: 111, UserID: 1}})

	mustApply(t)(lm.Checkouts().Return(111))

	b, _, _ = lm.Books().Get(111)
	assert.Equal(t, b.Availability, int64(2))
	u, _, _ = lm.Users().Get(1)
	assert.Assert(t, !u.IsCheckedOut)
	loans, err = lm.Checkouts().List()
	assert.NilError(t, err)
	assert.Equal(t, len(loans), 0)
}

func TestCheckoutRefusalsLeaveTablesUntouched(t *testing.T) {
	lm := seed(t)
	mustApply(t)(lm.Books().AddOrRestock(Book{ISBN: 222, Title: "Empty", Author: "Y", Availability: 0}))
	mustApply(t)(lm.Users().Add(User{UserID: 2, Name: "Ann"}))
	mustApply(t)(lm.Checkouts().Checkout(Checkout{ISBN: 111, UserID: 1}))
	before := tableFiles(t, lm)

	tests := []struct {
		name string
		c    Checkout
	}{
		{"unknown book", Checkout{ISBN: 999, UserID: 1}},
		{"unknown user", Checkout{ISBN: 111, UserID: 9}},
		{"already checked out", Checkout{ISBN: 111, UserID: 2}},
		{"no copies left", Checkout{ISBN: 222, UserID: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mustSkip(t)(lm.Checkouts().Checkout(tt.c))
			assert.Equal(t, tableFiles(t, lm), before)
		})
	}
}

func TestReturnKeepsFlagWhileUserHoldsBooks(t *testing.T) {
	lm := seed(t)
	mustApply(t)(lm.Books().AddOrRestock(Book{ISBN: 222, Title: "B", Author: "Y", Availability: 1}))
	mustApply(t)(lm.Checkouts().Checkout(Checkout{ISBN: 111, UserID: 1}))
	mustApply(t)(lm.Checkouts().Checkout(Checkout{ISBN: 222, UserID: 1}))

	mustApply(t)(lm.Checkouts().Return(111))
	u, _, err := lm.Users().Get(1)
	assert.NilError(t, err)
	assert.Assert(t, u.IsCheckedOut, "user still holds 222")

	mustApply(t)(lm.Checkouts().Return(222))
	u, _, _ = lm.Users().Get(1)
	assert.Assert(t, !u.IsCheckedOut)

	b, _, _ := lm.Books().Get(222)
	assert.Equal(t, b.Availability, int64(1))
}

func TestSecondLoanDoesNotWarn(t *testing.T) {
	var logs bytes.Buffer
	lm := newManagerWithLogger(t, slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelWarn})))
	mustApply(t)(lm.Books().AddOrRestock(Book{ISBN: 111, Title: "A", Author: "X", Availability: 1}))
	mustApply(t)(lm.Books().AddOrRestock(Book{ISBN: 222, Title: "B", Author: "Y", Availability: 1}))
	mustApply(t)(lm.Books().AddOrRestock(Book{ISBN: 333, Title: "C", Author: "Z", Availability: 1}))
	mustApply(t)(lm.Users().Add(User{UserID: 1, Name: "Bob"}))
	mustApply(t)(lm.Users().Add(User{UserID: 2, Name: "Ann"}))

	mustApply(t)(lm.Checkouts().Checkout(Checkout{ISBN: 111, UserID: 1}))
	mustApply(t)(lm.Checkouts().Checkout(Checkout{ISBN: 222, UserID: 1}))
	mustApply(t)(lm.Checkouts().Checkout(Checkout{ISBN: 333, UserID: 2}))
	// Ann already holds a book.
	mustApply(t)(lm.Checkouts().Update(CheckoutPatch{ISBN: 222, UserID: ptr(int64(2))}))

	assert.Assert(t, !strings.Contains(logs.String(), "level=WARN"), logs.String())
	bob, _, _ := lm.Users().Get(1)
	ann, _, _ := lm.Users().Get(2)
	assert.Assert(t, bob.IsCheckedOut, "bob still holds 111")
	assert.Assert(t, ann.IsCheckedOut)
}

func TestReturnRefusals(t *testing.T) {
	lm := seed(t)
	mustSkip(t)(lm.Checkouts().Return(999))
	mustSkip(t)(lm.Checkouts().Return(111))

	mustApply(t)(lm.Checkouts().Checkout(Checkout{ISBN: 111, UserID: 1}))
	// Simulate a user row deleted behind the table's back.
	_, err := lm.Users().Store().DeleteWhere(ColUserID, 1)
	assert.NilError(t, err)
	before := tableFiles(t, lm)
	mustSkip(t)(lm.Checkouts().Return(111))
	assert.Equal(t, tableFiles(t, lm), before)
}

func TestRemoveUserWithLoanIsRefused(t *testing.T) {
	lm := seed(t)
	mustApply(t)(lm.Checkouts().Checkout(Checkout{ISBN: 111, UserID: 1}))
	before := tableFiles(t, lm)

	mustSkip(t)(lm.Users().Remove(1))
	assert.Equal(t, tableFiles(t, lm), before)
}

func TestUpdateCheckoutMovesLoan(t *testing.T) {
	lm := seed(t)
	mustApply(t)(lm.Users().Add(User{UserID: 2, Name: "Ann"}))

	mustSkip(t)(lm.Checkouts().Update(CheckoutPatch{ISBN: 111, UserID: ptr(int64(2))}))

	mustApply(t)(lm.Checkouts().Checkout(Checkout{ISBN: 111, UserID: 1}))
	mustSkip(t)(lm.Checkouts().Update(CheckoutPatch{ISBN: 111, UserID: ptr(int64(9))}))
	mustSkip(t)(lm.Checkouts().Update(CheckoutPatch{ISBN: 111, UserID: ptr(int64(1))}))
	mustSkip(t)(lm.Checkouts().Update(CheckoutPatch{ISBN: 111}))

	mustApply(t)(lm.Checkouts().Update(CheckoutPatch{ISBN: 111, UserID: ptr(int64(2))}))

	loans, err := lm.Checkouts().List()
	assert.NilError(t, err)
	assert.DeepEqual(t, loans, []Checkout{{ISBN: 111, UserID: 2}})

	bob, _, _ := lm.Users().Get(1)
	ann, _, _ := lm.Users().Get(2)
	assert.Assert(t, !bob.IsCheckedOut)
	assert.Assert(t, ann.IsCheckedOut)

	b, _, _ := lm.Books().Get(111)
	assert.Equal(t, b.Availability, int64(1), "moving a loan does not change availability")
}

func TestSearchCheckouts(t *testing.T) {
	lm := seed(t)
	mustApply(t)(lm.Books().AddOrRestock(Book{ISBN: 222, Title: "B", Author: "Y", Availability: 1}))
	mustApply(t)(lm.Checkouts().Checkout(Checkout{ISBN: 111, UserID: 1}))
	mustApply(t)(lm.Checkouts().Checkout(Checkout{ISBN: 222, UserID: 1}))

	matches, err := lm.Checkouts().Search(CheckoutFilter{ISBN: ptr(int64(222)), UserID: ptr(int64(1))})
	assert.NilError(t, err)
	assert.Equal(t, len(matches), 2)
	assert.DeepEqual(t, matches[0].Rows, []Checkout{{ISBN: 222, UserID: 1}})
	assert.Equal(t, len(matches[1].Rows), 2)

	out, err := lm.Checkouts().IsCheckedOut(333)
	assert.NilError(t, err)
	assert.Assert(t, !out)
}

func TestSagaReportsCommittedSteps(t *testing.T) {
	var ran []string
	err := newSaga("demo", discardLogger()).
		step("one", func() error { ran = append(ran, "one"); return nil }).
		step("two", func() error { return errors.New("disk full") }).
		step("three", func() error { ran = append(ran, "three"); return nil }).
		run()
	assert.ErrorContains(t, err, "demo: two: disk full")
	assert.DeepEqual(t, ran, []string{"one"})
}
