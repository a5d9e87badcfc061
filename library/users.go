package library

import (
	"fmt"
	"log/slog"
)

// UsersTable holds library patrons, keyed by user_id.
type UsersTable struct {
	store  *Store
	logger *slog.Logger
}

// NewUsersTable opens the users file at path.
func NewUsersTable(path string, logger *slog.Logger) *UsersTable {
	return &UsersTable{
		store:  NewStore(path, UserColumns.Columns(), logger.With("component", "store.users")),
		logger: logger.With("component", "users"),
	}
}

// Store exposes the underlying record store.
func (t *UsersTable) Store() *Store { return t.store }

// UserIDExists reports whether id is registered.
func (t *UsersTable) UserIDExists(id int64) (bool, error) {
	rows, err := t.store.SearchWhere(ColUserID, id)
	if err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}

// Get returns the user with id.
func (t *UsersTable) Get(id int64) (User, bool, error) {
	rows, err := t.store.SearchWhere(ColUserID, id)
	if err != nil || len(rows) == 0 {
		return User{}, false, err
	}
	u, err := UserFromRecord(rows[0])
	if err != nil {
		return User{}, false, err
	}
	return u, true, nil
}

// SetCheckedOutStatus sets the loan flag of id. Setting the value it already
// has is reported and skipped.
func (t *UsersTable) SetCheckedOutStatus(id int64, status bool) (Outcome, error) {
	u, ok, err := t.Get(id)
	if err != nil {
		return Outcome{}, err
	}
	if !ok {
		return skip(t.logger, "user id does not exist, status not updated", "user_id", id), nil
	}
	if u.IsCheckedOut == status {
		return skip(t.logger, "user checkout status already set", "user_id", id, "is_checked_out", status), nil
	}
	// Stored explicitly: false is a real value here, not "leave unchanged".
	if _, err := t.store.UpdateByKey(ColUserID, id, Record{ColIsCheckedOut: status}); err != nil {
		return Outcome{}, err
	}
	t.logger.Info("user checkout status updated", "user_id", id, "is_checked_out", status)
	return applied, nil
}

// Add registers u.
func (t *UsersTable) Add(u User) (Outcome, error) {
	exists, err := t.UserIDExists(u.UserID)
	if err != nil {
		return Outcome{}, err
	}
	if exists {
		return skip(t.logger, "user id already exists, user not added", "user_id", u.UserID), nil
	}
	if err := t.store.Append(u.Record()); err != nil {
		return Outcome{}, err
	}
	t.logger.Info("user added", "user_id", u.UserID, "name", u.Name)
	return applied, nil
}

// Remove deletes the user id. Users holding a book cannot be removed.
func (t *UsersTable) Remove(id int64) (Outcome, error) {
	u, ok, err := t.Get(id)
	if err != nil {
		return Outcome{}, err
	}
	if !ok {
		return skip(t.logger, "user id does not exist, cannot remove user", "user_id", id), nil
	}
	if u.IsCheckedOut {
		return skip(t.logger, "cannot remove a user with an outstanding loan", "user_id", id), nil
	}
	if _, err := t.store.DeleteWhere(ColUserID, id); err != nil {
		return Outcome{}, err
	}
	t.logger.Info("user removed", "user_id", id)
	return applied, nil
}

// UpdateDetails applies the set fields of p to the user p.UserID.
func (t *UsersTable) UpdateDetails(p UserPatch) (Outcome, error) {
	exists, err := t.UserIDExists(p.UserID)
	if err != nil {
		return Outcome{}, err
	}
	if !exists {
		return skip(t.logger, "user id does not exist, user not updated", "user_id", p.UserID), nil
	}
	if _, err := t.store.UpdateByKey(ColUserID, p.UserID, p.record()); err != nil {
		return Outcome{}, err
	}
	t.logger.Info("user details updated", "user_id", p.UserID)
	return applied, nil
}

// Search runs one exact-match query per set field of f, in user_id, name
// order.
func (t *UsersTable) Search(f UserFilter) ([]Match[User], error) {
	var matches []Match[User]
	add := func(col string, v any) error {
		rows, err := t.store.SearchWhere(col, v)
		if err != nil {
			return err
		}
		users, err := fromRecords(rows, UserFromRecord)
		if err != nil {
			return fmt.Errorf("search %s: %w", col, err)
		}
		matches = append(matches, Match[User]{Column: col, Value: v, Rows: users})
		return nil
	}
	if f.UserID != nil {
		if err := add(ColUserID, *f.UserID); err != nil {
			return nil, err
		}
	}
	if f.Name != nil {
		if err := add(ColName, *f.Name); err != nil {
			return nil, err
		}
	}
	return matches, nil
}

// List returns every user in file order.
func (t *UsersTable) List() ([]User, error) {
	rows, err := t.store.ListAll()
	if err != nil {
		return nil, err
	}
	return fromRecords(rows, UserFromRecord)
}
