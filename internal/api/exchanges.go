package api

import (
	"net/http"
	"time"

	"github.com/kalambet/ainoter/internal/exchange"
)

type exchangeResponse struct {
	ID        int64     `json:"id"`
	Prompt    string    `json:"prompt"`
	Response  string    `json:"response"`
	Pending   bool      `json:"pending"`
	CreatedAt time.Time `json:"created_at"`
}

func toExchangeResponse(e exchange.Exchange) exchangeResponse {
	return exchangeResponse{ID: e.ID, Prompt: e.Prompt, Response: e.Response, Pending: e.Pending(), CreatedAt: e.CreatedAt}
}

func handleListExchanges(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := deps.Exchanges.List(r.Context(), deps.accountID())
		if err != nil {
			writeError(w, err)
			return
		}
		out := make([]exchangeResponse, len(list))
		for i, e := range list {
			out[i] = toExchangeResponse(e)
		}
		writeJSON(w, http.StatusOK, page(r, out))
	}
}

// handleSubmitExchange returns as soon as the pending row exists; clients
// poll GET /exchanges/{id} for the response.
func handleSubmitExchange(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Prompt string `json:"prompt"`
		}
		if !decodeBody(w, r, &req) {
			return
		}
		id, err := deps.AI.Submit(r.Context(), deps.accountID(), req.Prompt)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]any{"id": id, "pending": true})
	}
}

func handleGetExchange(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(w, r)
		if !ok {
			return
		}
		e, err := deps.Exchanges.Load(r.Context(), deps.accountID(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toExchangeResponse(e))
	}
}

func handleDeleteExchange(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(w, r)
		if !ok {
			return
		}
		if err := deps.Exchanges.Delete(r.Context(), deps.accountID(), id); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
