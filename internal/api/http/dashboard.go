package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/operating-strengths/assessment-api/internal/team"
)

// GET /api/dashboard/{token}
func DashboardHandler(svc *team.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, err := svc.Dashboard(r.Context(), chi.URLParam(r, "token"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeData(w, http.StatusOK, view)
	}
}

// POST /api/dashboard/{token}/members
func AddMemberHandler(svc *team.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email string `json:"email"`
		}
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}
		m, err := svc.AddMember(r.Context(), chi.URLParam(r, "token"), req.Email)
		if err != nil {
			writeError(w, err)
			return
		}
		writeData(w, http.StatusCreated, m)
	}
}

// POST /api/dashboard/{token}/members/{memberID}/resend
func ResendInviteHandler(svc *team.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := svc.ResendInvite(r.Context(), chi.URLParam(r, "token"), chi.URLParam(r, "memberID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeData(w, http.StatusOK, map[string]bool{"sent": true})
	}
}

// POST /api/dashboard/{token}/report
func GenerateReportHandler(svc *team.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := svc.GenerateReport(r.Context(), chi.URLParam(r, "token"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeData(w, http.StatusOK, out)
	}
}

// POST /api/dashboard/{token}/realtime-token
func RealtimeTokenHandler(svc *team.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := svc.RealtimeToken(r.Context(), chi.URLParam(r, "token"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeData(w, http.StatusOK, out)
	}
}
