// Package feed streams pet status over a websocket so the client can keep
// the duck on screen without polling.
package feed

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/madisonwongtx/producktive/hr"
	"github.com/madisonwongtx/producktive/session"
	"github.com/madisonwongtx/producktive/store"
)

const readDeadline = time.Minute

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type Feed struct {
	store    store.Store
	sessions *session.Manager
}

func New(store store.Store, sessions *session.Manager) *Feed {
	return &Feed{store: store, sessions: sessions}
}

type statusMessage struct {
	Type string     `json:"type"`
	Pet  *store.Pet `json:"pet,omitempty"`
}

// Handle upgrades the connection and answers "status" commands with the
// current pet snapshot. The session is checked before the upgrade; after it
// the HTTP response belongs to the websocket.
func (f *Feed) Handle(w http.ResponseWriter, r *http.Request) *hr.Error {
	sess, err := f.sessions.Current(r)
	if err != nil {
		return hr.Internal(err, "resolving feed session")
	}
	if sess == nil {
		return hr.Forbidden(errors.New("no session"), "feed without session")
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("failed to upgrade feed connection", "err", err)
		return nil
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(readDeadline))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readDeadline))
	})

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Error("feed connection error", "err", err)
			}
			return nil
		}
		if messageType != websocket.TextMessage {
			continue
		}
		conn.SetReadDeadline(time.Now().Add(readDeadline))

		switch string(data) {
		case "status":
			if err := f.writeStatus(conn, sess.UserID); err != nil {
				slog.Error("error writing feed status", "err", err)
				return nil
			}
		default:
			if err := conn.WriteJSON(map[string]string{"error": "unknown command"}); err != nil {
				return nil
			}
		}
	}
}

func (f *Feed) writeStatus(conn *websocket.Conn, userID string) error {
	pet, err := f.store.PetByUser(userID)
	if err != nil {
		return conn.WriteJSON(map[string]string{"error": "pet not found"})
	}
	msg := statusMessage{Type: "status", Pet: pet}
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}
