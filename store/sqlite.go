package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

type sqliteStore struct {
	db    *sql.DB
	mutex sync.Mutex
}

func newSQLiteStore(path string) (Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("error enabling WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("error enabling foreign keys: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}

	store := &sqliteStore{db: db}

	if err := store.initializeTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error initializing tables: %w", err)
	}

	return store, nil
}

func (s *sqliteStore) initializeTables() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS user (
			id TEXT NOT NULL PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			period TEXT NOT NULL DEFAULT 'none',
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS user_username_index ON user(username)`,
		`CREATE INDEX IF NOT EXISTS user_email_index ON user(email)`,
		// No foreign key on user_id: see the Session doc comment.
		`CREATE TABLE IF NOT EXISTS session (
			id TEXT NOT NULL PRIMARY KEY,
			user_id TEXT NOT NULL,
			expires_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS list (
			id TEXT NOT NULL PRIMARY KEY,
			user_id TEXT NOT NULL REFERENCES user(id),
			title TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS list_user_index ON list(user_id)`,
		`CREATE TABLE IF NOT EXISTS item (
			id TEXT NOT NULL PRIMARY KEY,
			user_id TEXT NOT NULL REFERENCES user(id),
			type TEXT NOT NULL,
			identifier TEXT NOT NULL,
			properties TEXT NOT NULL DEFAULT '',
			purchased_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS item_user_index ON item(user_id)`,
		`CREATE TABLE IF NOT EXISTS pet (
			id TEXT NOT NULL PRIMARY KEY,
			user_id TEXT NOT NULL UNIQUE REFERENCES user(id),
			health INTEGER NOT NULL,
			last_fed TIMESTAMP NOT NULL,
			items_on TEXT NOT NULL DEFAULT '[]',
			created_at TIMESTAMP NOT NULL
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("error creating schema: %w", err)
		}
	}
	return nil
}

func (s *sqliteStore) CreateUser(user *User) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	query := `
		INSERT INTO user (id, username, email, password_hash, period, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.Exec(query, user.ID, user.Username, user.Email, user.PasswordHash, user.Period, user.CreatedAt)
	if err != nil {
		return fmt.Errorf("error creating user: %w", err)
	}
	return nil
}

func (s *sqliteStore) userBy(where string, arg any) (*User, error) {
	user := &User{}
	err := s.db.QueryRow(`
		SELECT id, username, email, password_hash, period, created_at
		FROM user
		WHERE `+where+` = ?
	`, arg).Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.Period, &user.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error getting user: %w", err)
	}
	return user, nil
}

func (s *sqliteStore) UserByID(id string) (*User, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.userBy("id", id)
}

func (s *sqliteStore) UserByUsername(username string) (*User, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.userBy("username", username)
}

func (s *sqliteStore) UserByEmail(email string) (*User, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.userBy("email", email)
}

func (s *sqliteStore) UpdateUser(user *User) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	query := `
		UPDATE user SET username = ?, email = ?, password_hash = ?, period = ?
		WHERE id = ?
	`
	result, err := s.db.Exec(query, user.Username, user.Email, user.PasswordHash, user.Period, user.ID)
	if err != nil {
		return fmt.Errorf("error updating user: %w", err)
	}
	return rowsAffectedOrNotFound(result)
}

func (s *sqliteStore) DeleteUser(id string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	result, err := s.db.Exec("DELETE FROM user WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("error deleting user: %w", err)
	}
	return rowsAffectedOrNotFound(result)
}

func (s *sqliteStore) CreateSession(sessionID string, userID string, expiresAt int64) (*Session, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback()

	var exists bool
	err = tx.QueryRow("SELECT EXISTS(SELECT 1 FROM user WHERE id = ?)", userID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("error checking user existence: %w", err)
	}
	if !exists {
		return nil, ErrNotFound
	}

	_, err = tx.Exec("INSERT INTO session (id, user_id, expires_at) VALUES (?, ?, ?)", sessionID, userID, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("error creating session: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("error committing transaction: %w", err)
	}

	return &Session{ID: sessionID, UserID: userID, ExpiresAt: expiresAt}, nil
}

func (s *sqliteStore) SessionByID(sessionID string) (*Session, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	session := &Session{}
	err := s.db.QueryRow(`
		SELECT id, user_id, expires_at FROM session WHERE id = ?
	`, sessionID).Scan(&session.ID, &session.UserID, &session.ExpiresAt)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error getting session: %w", err)
	}
	return session, nil
}

func (s *sqliteStore) RefreshSession(sessionID string, newExpiresAt int64) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	_, err := s.db.Exec("UPDATE session SET expires_at = ? WHERE id = ?", newExpiresAt, sessionID)
	if err != nil {
		return fmt.Errorf("error updating session: %w", err)
	}
	return nil
}

func (s *sqliteStore) DeleteSession(sessionID string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	_, err := s.db.Exec("DELETE FROM session WHERE id = ?", sessionID)
	if err != nil {
		return fmt.Errorf("error deleting session: %w", err)
	}
	return nil
}

func (s *sqliteStore) DeleteUserSessions(userID string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	_, err := s.db.Exec("DELETE FROM session WHERE user_id = ?", userID)
	if err != nil {
		return fmt.Errorf("error deleting sessions by user: %w", err)
	}
	return nil
}

func (s *sqliteStore) CreateList(list *List) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	query := "INSERT INTO list (id, user_id, title, created_at) VALUES (?, ?, ?, ?)"
	_, err := s.db.Exec(query, list.ID, list.UserID, list.Title, list.CreatedAt)
	if err != nil {
		return fmt.Errorf("error creating list: %w", err)
	}
	return nil
}

func (s *sqliteStore) ListByID(id string) (*List, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	list := &List{}
	err := s.db.QueryRow(`
		SELECT id, user_id, title, created_at FROM list WHERE id = ?
	`, id).Scan(&list.ID, &list.UserID, &list.Title, &list.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error getting list: %w", err)
	}
	return list, nil
}

func (s *sqliteStore) ListsByUser(userID string) ([]List, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	rows, err := s.db.Query(`
		SELECT id, user_id, title, created_at
		FROM list
		WHERE user_id = ?
		ORDER BY created_at, id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("error listing lists: %w", err)
	}
	defer rows.Close()

	lists := []List{}
	for rows.Next() {
		var list List
		if err := rows.Scan(&list.ID, &list.UserID, &list.Title, &list.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning list: %w", err)
		}
		lists = append(lists, list)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating lists: %w", err)
	}
	return lists, nil
}

func (s *sqliteStore) UpdateList(list *List) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	result, err := s.db.Exec("UPDATE list SET title = ? WHERE id = ?", list.Title, list.ID)
	if err != nil {
		return fmt.Errorf("error updating list: %w", err)
	}
	return rowsAffectedOrNotFound(result)
}

func (s *sqliteStore) DeleteList(id string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	result, err := s.db.Exec("DELETE FROM list WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("error deleting list: %w", err)
	}
	return rowsAffectedOrNotFound(result)
}

func (s *sqliteStore) CreateItem(item *Item) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	query := `
		INSERT INTO item (id, user_id, type, identifier, properties, purchased_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.Exec(query, item.ID, item.UserID, item.Type, item.Identifier, item.Properties, item.PurchasedAt)
	if err != nil {
		return fmt.Errorf("error creating item: %w", err)
	}
	return nil
}

func (s *sqliteStore) ItemByID(id string) (*Item, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	item := &Item{}
	err := s.db.QueryRow(`
		SELECT id, user_id, type, identifier, properties, purchased_at
		FROM item WHERE id = ?
	`, id).Scan(&item.ID, &item.UserID, &item.Type, &item.Identifier, &item.Properties, &item.PurchasedAt)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error getting item: %w", err)
	}
	return item, nil
}

func (s *sqliteStore) ItemsByUser(userID string) ([]Item, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	rows, err := s.db.Query(`
		SELECT id, user_id, type, identifier, properties, purchased_at
		FROM item
		WHERE user_id = ?
		ORDER BY purchased_at, id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("error listing items: %w", err)
	}
	defer rows.Close()

	items := []Item{}
	for rows.Next() {
		var item Item
		if err := rows.Scan(&item.ID, &item.UserID, &item.Type, &item.Identifier, &item.Properties, &item.PurchasedAt); err != nil {
			return nil, fmt.Errorf("error scanning item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating items: %w", err)
	}
	return items, nil
}

func (s *sqliteStore) DeleteItem(id string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	result, err := s.db.Exec("DELETE FROM item WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("error deleting item: %w", err)
	}
	return rowsAffectedOrNotFound(result)
}

func (s *sqliteStore) CreatePet(pet *Pet) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	itemsOn, err := json.Marshal(pet.ItemsOn)
	if err != nil {
		return fmt.Errorf("error encoding items on: %w", err)
	}
	query := `
		INSERT INTO pet (id, user_id, health, last_fed, items_on, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err = s.db.Exec(query, pet.ID, pet.UserID, pet.Health, pet.LastFed, string(itemsOn), pet.CreatedAt)
	if err != nil {
		return fmt.Errorf("error creating pet: %w", err)
	}
	return nil
}

func (s *sqliteStore) PetByUser(userID string) (*Pet, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	pet := &Pet{}
	var itemsOn string
	err := s.db.QueryRow(`
		SELECT id, user_id, health, last_fed, items_on, created_at
		FROM pet WHERE user_id = ?
	`, userID).Scan(&pet.ID, &pet.UserID, &pet.Health, &pet.LastFed, &itemsOn, &pet.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error getting pet: %w", err)
	}
	if err := json.Unmarshal([]byte(itemsOn), &pet.ItemsOn); err != nil {
		return nil, fmt.Errorf("error decoding items on: %w", err)
	}
	return pet, nil
}

func (s *sqliteStore) UpdatePet(pet *Pet) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	itemsOn, err := json.Marshal(pet.ItemsOn)
	if err != nil {
		return fmt.Errorf("error encoding items on: %w", err)
	}
	result, err := s.db.Exec(`
		UPDATE pet SET health = ?, last_fed = ?, items_on = ? WHERE id = ?
	`, pet.Health, pet.LastFed, string(itemsOn), pet.ID)
	if err != nil {
		return fmt.Errorf("error updating pet: %w", err)
	}
	return rowsAffectedOrNotFound(result)
}

func (s *sqliteStore) DeletePetByUser(userID string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	_, err := s.db.Exec("DELETE FROM pet WHERE user_id = ?", userID)
	if err != nil {
		return fmt.Errorf("error deleting pet: %w", err)
	}
	return nil
}

func rowsAffectedOrNotFound(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
