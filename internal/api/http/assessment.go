package http

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/operating-strengths/assessment-api/internal/team"
)

// GET /api/assessment/{token}/questions
func QuestionsHandler(svc *team.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, err := svc.QuestionsForToken(r.Context(), chi.URLParam(r, "token"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeData(w, http.StatusOK, view)
	}
}

// POST /api/assessment/{token}/name
func SetNameHandler(svc *team.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name string `json:"name"`
		}
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}
		if err := svc.SetDisplayName(r.Context(), chi.URLParam(r, "token"), req.Name); err != nil {
			writeError(w, err)
			return
		}
		writeData(w, http.StatusOK, map[string]bool{"saved": true})
	}
}

// POST /api/assessment/{token}/submit
//
// Responses arrive keyed by the canonical question id as a JSON string
// ("1".."36"); non-numeric keys are rejected before scoring.
func SubmitHandler(svc *team.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Responses map[string]int `json:"responses"`
		}
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}

		responses := make(map[int]int, len(req.Responses))
		for k, v := range req.Responses {
			id, err := strconv.Atoi(k)
			if err != nil {
				writeError(w, &team.InputError{Msg: "response keys must be question ids"})
				return
			}
			responses[id] = v
		}

		result, err := svc.Submit(r.Context(), chi.URLParam(r, "token"), responses)
		if err != nil {
			writeError(w, err)
			return
		}
		writeData(w, http.StatusOK, result)
	}
}
