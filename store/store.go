package store

import "errors"

// ErrNotFound is returned by lookups when no row matches the filter.
var ErrNotFound = errors.New("not found")

// Store is the persistence boundary. Every collection is queried by
// exact-match filters only; callers own any cross-collection consistency.
type Store interface {
	CreateUser(user *User) error
	UserByID(id string) (*User, error)
	UserByUsername(username string) (*User, error)
	UserByEmail(email string) (*User, error)
	UpdateUser(user *User) error
	DeleteUser(id string) error

	CreateSession(sessionID string, userID string, expiresAt int64) (*Session, error)
	SessionByID(sessionID string) (*Session, error)
	RefreshSession(sessionID string, newExpiresAt int64) error
	DeleteSession(sessionID string) error
	DeleteUserSessions(userID string) error

	CreateList(list *List) error
	ListByID(id string) (*List, error)
	ListsByUser(userID string) ([]List, error)
	UpdateList(list *List) error
	DeleteList(id string) error

	CreateItem(item *Item) error
	ItemByID(id string) (*Item, error)
	ItemsByUser(userID string) ([]Item, error)
	DeleteItem(id string) error

	CreatePet(pet *Pet) error
	PetByUser(userID string) (*Pet, error)
	UpdatePet(pet *Pet) error
	DeletePetByUser(userID string) error
}

// New opens the SQLite-backed store at path.
func New(path string) (Store, error) {
	return newSQLiteStore(path)
}
