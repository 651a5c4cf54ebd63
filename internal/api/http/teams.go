package http

import (
	"net/http"

	"github.com/operating-strengths/assessment-api/internal/team"
)

// POST /api/teams
func CreateTeamHandler(svc *team.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req team.CreateTeamInput
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}
		out, err := svc.CreateTeam(r.Context(), req)
		if err != nil {
			writeError(w, err)
			return
		}
		writeData(w, http.StatusCreated, out)
	}
}
