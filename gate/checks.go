package gate

import (
	"errors"
	"net/http"
	"regexp"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/madisonwongtx/producktive/store"
)

var (
	usernameRe = regexp.MustCompile(`^\w+$`)
	emailRe    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

var validPeriods = map[string]bool{
	store.PeriodDaily:   true,
	store.PeriodWeekly:  true,
	store.PeriodMonthly: true,
	store.PeriodNone:    true,
}

func fieldError(status int, field, message string) *Reject {
	return &Reject{Status: status, Body: map[string]string{field: message}}
}

// LoggedIn rejects requests that do not carry a session.
func LoggedIn(env *Env) *Reject {
	if env.Session == nil {
		return &Reject{Status: http.StatusForbidden, Body: "must be logged in"}
	}
	return nil
}

// LoggedOut rejects requests that already carry a session.
func LoggedOut(env *Env) *Reject {
	if env.Session != nil {
		return &Reject{Status: http.StatusForbidden, Body: "must be logged out"}
	}
	return nil
}

// ValidUsername fires only when a username field is present.
func ValidUsername(env *Env) *Reject {
	if env.Fields.Username == nil {
		return nil
	}
	if !usernameRe.MatchString(*env.Fields.Username) {
		return fieldError(http.StatusBadRequest, "username",
			"username must contain only letters, numbers, and underscores")
	}
	return nil
}

// ValidEmail fires only when an email field is present.
func ValidEmail(env *Env) *Reject {
	if env.Fields.Email == nil {
		return nil
	}
	if !emailRe.MatchString(*env.Fields.Email) {
		return fieldError(http.StatusBadRequest, "email", "email must look like local@domain.tld")
	}
	return nil
}

// ValidPassword fires only when a password field is present.
func ValidPassword(env *Env) *Reject {
	if env.Fields.Password == nil {
		return nil
	}
	password := *env.Fields.Password
	if password == "" || strings.IndexFunc(password, isSpace) >= 0 {
		return fieldError(http.StatusBadRequest, "password",
			"password must be nonempty and contain no whitespace")
	}
	return nil
}

func isSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}

// ValidPeriod fires only when a notification period field is present.
func ValidPeriod(env *Env) *Reject {
	if env.Fields.Period == nil {
		return nil
	}
	if !validPeriods[*env.Fields.Period] {
		return fieldError(http.StatusBadRequest, "notificationPeriod",
			"notification period must be daily, weekly, monthly, or none")
	}
	return nil
}

// CurrentUserExists guards against a session whose user record is gone,
// for example an account deleted from another client. The stale session is
// cleared by the fold before the 500 is written.
func (g *Gate) CurrentUserExists(env *Env) *Reject {
	if env.Session == nil {
		return nil
	}
	_, err := g.store.UserByID(env.Session.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return &Reject{
			Status:       http.StatusInternalServerError,
			Body:         "user session not recognized",
			clearSession: true,
		}
	}
	if err != nil {
		return &Reject{Status: http.StatusInternalServerError, Body: "internal server error"}
	}
	return nil
}

// CredentialsExist requires email and password in the body and a matching
// account.
func (g *Gate) CredentialsExist(env *Env) *Reject {
	if env.Fields.Email == nil {
		return fieldError(http.StatusBadRequest, "email", "email is required")
	}
	if env.Fields.Password == nil {
		return fieldError(http.StatusBadRequest, "password", "password is required")
	}

	invalid := &Reject{Status: http.StatusUnauthorized, Body: "invalid login credentials"}

	user, err := g.store.UserByEmail(*env.Fields.Email)
	if errors.Is(err, store.ErrNotFound) {
		return invalid
	}
	if err != nil {
		return &Reject{Status: http.StatusInternalServerError, Body: "internal server error"}
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(*env.Fields.Password)) != nil {
		return invalid
	}
	return nil
}

// UsernameNotInUse rejects a candidate username owned by a different user.
// The current session's user may resubmit their own value.
func (g *Gate) UsernameNotInUse(env *Env) *Reject {
	if env.Fields.Username == nil {
		return nil
	}
	owner, err := g.store.UserByUsername(*env.Fields.Username)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return &Reject{Status: http.StatusInternalServerError, Body: "internal server error"}
	}
	if env.Session != nil && owner.ID == env.Session.UserID {
		return nil
	}
	return fieldError(http.StatusConflict, "username", "username already in use")
}

// EmailNotInUse rejects a candidate email owned by a different user.
func (g *Gate) EmailNotInUse(env *Env) *Reject {
	if env.Fields.Email == nil {
		return nil
	}
	owner, err := g.store.UserByEmail(*env.Fields.Email)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return &Reject{Status: http.StatusInternalServerError, Body: "internal server error"}
	}
	if env.Session != nil && owner.ID == env.Session.UserID {
		return nil
	}
	return fieldError(http.StatusConflict, "email", "email already in use")
}

// UsernameExists requires a nonempty username query parameter naming an
// existing user.
func (g *Gate) UsernameExists(env *Env) *Reject {
	username := env.Request.URL.Query().Get("username")
	if username == "" {
		return fieldError(http.StatusBadRequest, "username", "username query parameter is required")
	}
	_, err := g.store.UserByUsername(username)
	if errors.Is(err, store.ErrNotFound) {
		return &Reject{Status: http.StatusNotFound, Body: "user not found"}
	}
	if err != nil {
		return &Reject{Status: http.StatusInternalServerError, Body: "internal server error"}
	}
	return nil
}
