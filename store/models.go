package store

import "time"

// NotificationPeriod values accepted on a user profile.
const (
	PeriodDaily   = "daily"
	PeriodWeekly  = "weekly"
	PeriodMonthly = "monthly"
	PeriodNone    = "none"
)

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Period       string    `json:"notificationPeriod"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Session maps a hashed client token to a user. Rows are not foreign-keyed to
// the user table: deleting an account in one client must leave sessions held
// by other clients behind, so the gate can detect and clear them.
type Session struct {
	ID        string `json:"id"`
	UserID    string `json:"userId"`
	ExpiresAt int64  `json:"expiresAt"`
}

type List struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
}

// Item records a purchase made for the pet.
type Item struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Type        string    `json:"type"`
	Identifier  string    `json:"identifier"`
	Properties  string    `json:"properties,omitempty"`
	PurchasedAt time.Time `json:"purchasedAt"`
}

type Pet struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Health    int       `json:"health"`
	LastFed   time.Time `json:"lastFed"`
	ItemsOn   []string  `json:"itemsOn"`
	CreatedAt time.Time `json:"createdAt"`
}
