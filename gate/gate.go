// Package gate runs the ordered check pipeline that guards every route.
// A check inspects the request and either lets the chain proceed (nil) or
// rejects it with a status and JSON error body. The fold in Run guarantees
// exactly one response write on rejection and none on pass-through.
package gate

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/madisonwongtx/producktive/hr"
	"github.com/madisonwongtx/producktive/session"
	"github.com/madisonwongtx/producktive/store"
)

const maxBodyBytes = 1 << 20

// Reject carries the terminal response for a failed check. Body follows the
// API error shape: a plain string or a field-keyed map.
type Reject struct {
	Status int
	Body   any

	// clearSession asks the fold to drop the current session record and
	// cookie before responding. Only the stale-user check sets it.
	clearSession bool
}

// Fields is the request body as the checks see it. Every field is optional;
// a validator fires only when its field is present.
type Fields struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
	Period   *string `json:"notificationPeriod"`
}

// Env is the request state shared by all checks of one pipeline run.
// Session is nil when the request carries no live session.
type Env struct {
	Request *http.Request
	Fields  Fields
	Session *store.Session
}

// Check is a single gating predicate. It must not write to the response.
type Check func(env *Env) *Reject

type Gate struct {
	store    store.Store
	sessions *session.Manager
}

func New(store store.Store, sessions *session.Manager) *Gate {
	return &Gate{store: store, sessions: sessions}
}

// Run folds checks in order ahead of next. The first rejection decides the
// response; independent checks may be reordered without changing the final
// accept/reject outcome.
func (g *Gate) Run(checks []Check, next hr.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := g.sessions.Current(r)
		if err != nil {
			slog.Error("error resolving session", "err", err)
			hr.WriteError(w, http.StatusInternalServerError, "internal server error")
			return
		}

		fields, rej := parseFields(r)
		if rej == nil {
			env := &Env{Request: r, Fields: fields, Session: sess}
			for _, check := range checks {
				if rej = check(env); rej != nil {
					break
				}
			}
		}

		if rej != nil {
			if rej.clearSession && sess != nil {
				if err := g.sessions.Invalidate(sess.ID); err != nil {
					slog.Error("error clearing stale session", "err", err)
				}
				g.sessions.ClearCookie(w)
			}
			hr.WriteError(w, rej.Status, rej.Body)
			return
		}

		ctx := r.Context()
		if sess != nil {
			ctx = session.NewContext(ctx, sess)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// parseFields buffers the request body so checks and the handler can both
// read it, and decodes the optional profile fields.
func parseFields(r *http.Request) (Fields, *Reject) {
	var fields Fields
	if r.Body == nil {
		return fields, nil
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return fields, &Reject{Status: http.StatusBadRequest, Body: "unreadable request body"}
	}
	r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(data))

	if len(bytes.TrimSpace(data)) == 0 {
		return fields, nil
	}
	if err := json.Unmarshal(data, &fields); err != nil {
		return fields, &Reject{Status: http.StatusBadRequest, Body: "malformed request body"}
	}
	return fields, nil
}
