package server

import (
	"fmt"
	"log/slog"
	"net/http"

	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/madisonwongtx/producktive/feed"
	"github.com/madisonwongtx/producktive/gate"
	"github.com/madisonwongtx/producktive/hr"
	"github.com/madisonwongtx/producktive/items"
	"github.com/madisonwongtx/producktive/lists"
	"github.com/madisonwongtx/producktive/mail"
	mw "github.com/madisonwongtx/producktive/middleware"
	"github.com/madisonwongtx/producktive/pets"
	"github.com/madisonwongtx/producktive/session"
	"github.com/madisonwongtx/producktive/store"
	"github.com/madisonwongtx/producktive/users"
)

type Config struct {
	Port          int
	Env           string
	DBPath        string
	AllowedOrigin string
	Mail          mail.Config
}

type Server struct {
	cfg      Config
	store    store.Store
	sessions *session.Manager
	gate     *gate.Gate
	users    *users.Handler
	lists    *lists.Handler
	items    *items.Handler
	pets     *pets.Handler
	feed     *feed.Feed
}

func New(cfg Config) (*Server, error) {
	st, err := store.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("error creating store: %w", err)
	}

	sessions := session.NewManager(st, 30, 15, cfg.Env == "prod")
	mailer := mail.New(cfg.Mail)

	return &Server{
		cfg:      cfg,
		store:    st,
		sessions: sessions,
		gate:     gate.New(st, sessions),
		users:    users.New(st, sessions, mailer),
		lists:    lists.New(st),
		items:    items.New(st),
		pets:     pets.New(st),
		feed:     feed.New(st, sessions),
	}, nil
}

// Handler assembles the route table. Each route names its ordered check
// list; the gate folds the checks ahead of the handler.
func (s *Server) Handler() http.Handler {
	g := s.gate
	loggedIn := []gate.Check{g.CurrentUserExists, gate.LoggedIn}

	mux := http.NewServeMux()

	mux.Handle("POST /api/users/{$}", g.Run([]gate.Check{
		gate.LoggedOut,
		gate.ValidUsername, gate.ValidEmail, gate.ValidPassword, gate.ValidPeriod,
		g.UsernameNotInUse, g.EmailNotInUse,
	}, s.users.Register))
	mux.Handle("POST /api/users/login", g.Run([]gate.Check{
		g.CurrentUserExists, gate.LoggedOut, g.CredentialsExist,
	}, s.users.Login))
	mux.Handle("POST /api/users/logout", g.Run(loggedIn, s.users.Logout))
	mux.Handle("GET /api/users/me", g.Run(loggedIn, s.users.Me))
	mux.Handle("PATCH /api/users/{$}", g.Run([]gate.Check{
		g.CurrentUserExists, gate.LoggedIn,
		gate.ValidUsername, gate.ValidEmail, gate.ValidPassword, gate.ValidPeriod,
		g.UsernameNotInUse, g.EmailNotInUse,
	}, s.users.Update))
	mux.Handle("DELETE /api/users/{$}", g.Run(loggedIn, s.users.Delete))
	mux.Handle("GET /api/users/exists", g.Run([]gate.Check{g.UsernameExists}, s.users.Exists))

	mux.Handle("GET /api/lists/all", g.Run(loggedIn, s.lists.All))
	mux.Handle("POST /api/lists/{$}", g.Run(loggedIn, s.lists.Create))
	mux.Handle("PATCH /api/lists/{id}", g.Run(loggedIn, s.lists.Update))
	mux.Handle("DELETE /api/lists/{id}", g.Run(loggedIn, s.lists.Delete))

	mux.Handle("GET /api/items/all", g.Run(loggedIn, s.items.All))
	mux.Handle("POST /api/items/{$}", g.Run(loggedIn, s.items.Create))
	mux.Handle("DELETE /api/items/{id}", g.Run(loggedIn, s.items.Delete))

	mux.Handle("GET /api/pets/{$}", g.Run(loggedIn, s.pets.Get))
	mux.Handle("PATCH /api/pets/{$}", g.Run(loggedIn, s.pets.Update))
	mux.Handle("POST /api/pets/feed", g.Run(loggedIn, s.pets.Feed))

	mux.Handle("GET /api/feed", hr.W(s.feed.Handle))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	allowed := map[string]bool{s.cfg.AllowedOrigin: true}

	return mw.Chain(
		mux,
		mw.RateLimit(15, 50),
		mw.Logger(),
		mw.CORS(allowed),
		mw.Metrics(),
	)
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	slog.Info("server is listening", "port", s.cfg.Port, "env", s.cfg.Env)
	return http.ListenAndServe(addr, s.Handler())
}
