package api

import (
	"net/http"
	"time"

	"github.com/kalambet/ainoter/internal/reminder"
	"github.com/kalambet/ainoter/internal/storage"
)

type reminderRequest struct {
	Text string `json:"text"`
	Due  string `json:"due"` // local wall-clock time, 2006-01-02T15:04:05
}

type reminderResponse struct {
	ID        int64     `json:"id"`
	Text      string    `json:"text"`
	Due       string    `json:"due"`
	CreatedAt time.Time `json:"created_at"`
}

func toReminderResponse(r reminder.Reminder) reminderResponse {
	return reminderResponse{ID: r.ID, Text: r.Text, Due: storage.FormatDue(r.Due), CreatedAt: r.CreatedAt}
}

func (req reminderRequest) parse(w http.ResponseWriter, id int64) (reminder.Reminder, bool) {
	due, err := storage.ParseDue(req.Due)
	if err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "due: expected format %s", storage.DueLayout)
		return reminder.Reminder{}, false
	}
	return reminder.Reminder{ID: id, Text: req.Text, Due: due}, true
}

func handleListReminders(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := deps.Reminders.List(r.Context(), deps.accountID())
		if err != nil {
			writeError(w, err)
			return
		}
		out := make([]reminderResponse, len(list))
		for i, rem := range list {
			out[i] = toReminderResponse(rem)
		}
		writeJSON(w, http.StatusOK, page(r, out))
	}
}

func handleCreateReminder(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req reminderRequest
		if !decodeBody(w, r, &req) {
			return
		}
		rem, ok := req.parse(w, 0)
		if !ok {
			return
		}
		saved, err := deps.Reminders.Save(r.Context(), deps.accountID(), rem)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toReminderResponse(saved))
	}
}

func handleGetReminder(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(w, r)
		if !ok {
			return
		}
		rem, err := deps.Reminders.Load(r.Context(), deps.accountID(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toReminderResponse(rem))
	}
}

func handleUpdateReminder(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(w, r)
		if !ok {
			return
		}
		var req reminderRequest
		if !decodeBody(w, r, &req) {
			return
		}
		rem, ok := req.parse(w, id)
		if !ok {
			return
		}
		saved, err := deps.Reminders.Save(r.Context(), deps.accountID(), rem)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toReminderResponse(saved))
	}
}

func handleDeleteReminder(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(w, r)
		if !ok {
			return
		}
		if err := deps.Reminders.Delete(r.Context(), deps.accountID(), id); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
