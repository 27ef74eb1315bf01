package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/ainoter/internal/exchange"
	"github.com/kalambet/ainoter/internal/note"
	"github.com/kalambet/ainoter/internal/reminder"
	"github.com/kalambet/ainoter/internal/session"
)

const maxRequestBodySize = 1 << 20 // 1MB

type AppDeps struct {
	Session   *session.Session
	Notes     *note.Manager
	Reminders *reminder.Manager
	Exchanges *exchange.Manager
	AI        *exchange.Client
	Token     string
	Logger    *slog.Logger // optional
}

// NewAppHandler serves the logged-in account's data. Every route except
// /health requires the session bearer token.
func NewAppHandler(deps AppDeps) http.Handler {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(RequestLogger(deps.Logger))
	r.Get("/health", handleHealth(deps))

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))

		r.Get("/notes", handleListNotes(deps))
		r.Post("/notes", handleCreateNote(deps))
		r.Get("/notes/{id}", handleGetNote(deps))
		r.Put("/notes/{id}", handleUpdateNote(deps))
		r.Delete("/notes/{id}", handleDeleteNote(deps))

		r.Get("/reminders", handleListReminders(deps))
		r.Post("/reminders", handleCreateReminder(deps))
		r.Get("/reminders/{id}", handleGetReminder(deps))
		r.Put("/reminders/{id}", handleUpdateReminder(deps))
		r.Delete("/reminders/{id}", handleDeleteReminder(deps))

		r.Get("/exchanges", handleListExchanges(deps))
		r.Post("/exchanges", handleSubmitExchange(deps))
		r.Get("/exchanges/{id}", handleGetExchange(deps))
		r.Delete("/exchanges/{id}", handleDeleteExchange(deps))

		r.Post("/session/logout", handleLogout(deps))
	})

	return r
}

func (d AppDeps) accountID() int64 {
	return d.Session.Account().ID
}

func handleHealth(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func handleLogout(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
		// Stop after responding; a delivery in progress may hold Close.
		go deps.Session.Close()
	}
}
