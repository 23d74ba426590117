// Package hr wraps route handlers so that every failure path produces exactly
// one JSON error response of the form {"error": string | {field: string}}.
package hr

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

type Error struct {
	Err    error
	Body   any
	Desc   string
	Status int
}

// Handler is a route handler that reports failure by returning, never by
// writing an error response itself.
type Handler func(w http.ResponseWriter, r *http.Request) *Error

func (fn Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if e := fn(w, r); e != nil {
		slog.Error("error in handler", "desc", e.Desc, "status", e.Status, "err", e.Err)
		WriteError(w, e.Status, e.Body)
	}
}

// W adapts a Handler for a route table entry.
func W(fn Handler) http.Handler {
	return fn
}

// WriteJSON writes v as the success response body.
func WriteJSON(w http.ResponseWriter, status int, v any) *Error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// The status line is already gone; nothing left to do but log.
		slog.Error("error encoding response", "err", err)
	}
	return nil
}

// WriteError writes {"error": body} with the given status. body is either a
// plain string or a field-keyed map.
func WriteError(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]any{"error": body}); err != nil {
		slog.Error("error encoding error response", "err", err)
	}
}

func Internal(err error, desc string) *Error {
	return &Error{
		Body:   "internal server error",
		Desc:   desc,
		Status: http.StatusInternalServerError,
		Err:    err,
	}
}

func BadRequest(err error, body any, desc string) *Error {
	return &Error{
		Body:   body,
		Desc:   desc,
		Status: http.StatusBadRequest,
		Err:    err,
	}
}

func Forbidden(err error, desc string) *Error {
	return &Error{
		Body:   "forbidden",
		Desc:   desc,
		Status: http.StatusForbidden,
		Err:    err,
	}
}

func NotFound(err error, body any, desc string) *Error {
	return &Error{
		Body:   body,
		Desc:   desc,
		Status: http.StatusNotFound,
		Err:    err,
	}
}
