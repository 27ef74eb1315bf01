package api

import (
	"net/http"
	"time"

	"github.com/kalambet/ainoter/internal/note"
)

type noteRequest struct {
	Title  string       `json:"title"`
	Blocks []note.Block `json:"blocks"`
}

type noteResponse struct {
	ID        int64        `json:"id"`
	Title     string       `json:"title"`
	Blocks    []note.Block `json:"blocks"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

type noteSummary struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

func toNoteResponse(n note.Note) noteResponse {
	blocks := n.Blocks
	if blocks == nil {
		blocks = []note.Block{}
	}
	return noteResponse{ID: n.ID, Title: n.Title, Blocks: blocks, CreatedAt: n.CreatedAt, UpdatedAt: n.UpdatedAt}
}

func handleListNotes(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := deps.Notes.List(r.Context(), deps.accountID())
		if err != nil {
			writeError(w, err)
			return
		}
		out := make([]noteSummary, len(list))
		for i, s := range list {
			out[i] = noteSummary{ID: s.ID, Title: s.Title, CreatedAt: s.CreatedAt}
		}
		writeJSON(w, http.StatusOK, page(r, out))
	}
}

func handleCreateNote(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req noteRequest
		if !decodeBody(w, r, &req) {
			return
		}
		n, err := deps.Notes.Save(r.Context(), deps.accountID(), note.Draft{Title: req.Title, Blocks: req.Blocks})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toNoteResponse(n))
	}
}

func handleGetNote(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(w, r)
		if !ok {
			return
		}
		n, err := deps.Notes.Load(r.Context(), deps.accountID(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toNoteResponse(n))
	}
}

func handleUpdateNote(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(w, r)
		if !ok {
			return
		}
		var req noteRequest
		if !decodeBody(w, r, &req) {
			return
		}
		n, err := deps.Notes.Save(r.Context(), deps.accountID(), note.Draft{ID: id, Title: req.Title, Blocks: req.Blocks})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toNoteResponse(n))
	}
}

func handleDeleteNote(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(w, r)
		if !ok {
			return
		}
		if err := deps.Notes.Delete(r.Context(), deps.accountID(), id); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
