package signin

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"docklytask/internal/session"
	"docklytask/pkg/config"
	"docklytask/pkg/middleware"
	"docklytask/pkg/problems"
)

// SessionCookie carries the session token for browser clients.
const SessionCookie = "dockly_session"

const maxEventBytes = 1 << 20

type callbackResponse struct {
	session.Session
	SessionToken string `json:"sessionToken,omitempty"`
}

// RegisterHTTP mounts the callback and session endpoints.
func RegisterHTTP(r chi.Router, svc *Service, signer *session.Signer, cfg config.Config, log *zap.SugaredLogger) {
	r.With(middleware.BearerAuth(cfg, log)).Post("/v1/auth/callback", func(w http.ResponseWriter, req *http.Request) {
		var ev Event
		dec := json.NewDecoder(http.MaxBytesReader(w, req.Body, maxEventBytes))
		if err := dec.Decode(&ev); err != nil {
			problems.Write(w, http.StatusBadRequest, "invalid-event", "Invalid sign-in event", err.Error())
			return
		}
		res := svc.Handle(req.Context(), ev)
		writeJSON(w, http.StatusOK, callbackResponse{Session: res.Session, SessionToken: res.Token})
	})

	r.With(middleware.SessionAuth(SessionCookie, signer.Verify)).Get("/v1/session", func(w http.ResponseWriter, req *http.Request) {
		s, ok := middleware.SessionFrom[session.Session](req.Context())
		if !ok {
			problems.Write(w, http.StatusUnauthorized, "no-session", "No session", "")
			return
		}
		writeJSON(w, http.StatusOK, s)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
