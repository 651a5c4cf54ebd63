package http

import (
	"crypto/subtle"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/operating-strengths/assessment-api/internal/assessment"
	"github.com/operating-strengths/assessment-api/internal/team"
)

// BasicAuth gates catalog authoring behind operator credentials. The
// password is checked against a bcrypt hash from config; an empty hash
// disables the surface entirely.
func BasicAuth(user, passHash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if passHash == "" {
				writeErrorMsg(w, http.StatusNotFound, "Not found", "not_found")
				return
			}
			u, p, ok := r.BasicAuth()
			if !ok ||
				subtle.ConstantTimeCompare([]byte(u), []byte(user)) != 1 ||
				bcrypt.CompareHashAndPassword([]byte(passHash), []byte(p)) != nil {
				w.Header().Set("WWW-Authenticate", `Basic realm="assessment admin"`)
				writeErrorMsg(w, http.StatusUnauthorized, "Unauthorized", "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type createVersionReq struct {
	Name      string `json:"name"`
	Activate  bool   `json:"activate"`
	Questions []struct {
		Order      int    `json:"question_order"`
		Text       string `json:"text"`
		Dimension  string `json:"dimension"`
		Subscale   string `json:"subscale"`
		IsReversed bool   `json:"is_reversed"`
	} `json:"questions"`
}

// POST /api/admin/versions
func CreateVersionHandler(svc *team.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createVersionReq
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}

		questions := make([]assessment.Question, 0, len(req.Questions))
		for _, q := range req.Questions {
			dim, err := assessment.ParseDimension(q.Dimension)
			if err != nil {
				writeError(w, &team.InputError{Msg: err.Error()})
				return
			}
			sub, err := assessment.ParseSubscale(q.Subscale)
			if err != nil {
				writeError(w, &team.InputError{Msg: err.Error()})
				return
			}
			questions = append(questions, assessment.Question{
				Order:      q.Order,
				Text:       q.Text,
				Dimension:  dim,
				Subscale:   sub,
				IsReversed: q.IsReversed,
			})
		}

		version, err := svc.CreateVersion(r.Context(), req.Name, questions, req.Activate)
		if err != nil {
			writeError(w, err)
			return
		}
		writeData(w, http.StatusCreated, version)
	}
}
