package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/operating-strengths/assessment-api/internal/realtime"
)

// GET /api/dashboard/stream?token=<jwt>
//
// Server-sent events for one team's dashboard. The query token is the
// short-lived stream JWT from the realtime-token endpoint, never the
// dashboard token itself.
func StreamHandler(hub *realtime.Hub, streams *realtime.TokenService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		teamID, err := streams.ParseChannelToken(r.URL.Query().Get("token"))
		if err != nil {
			writeErrorMsg(w, http.StatusUnauthorized, "Invalid or expired stream token", "invalid_stream_token")
			return
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			writeErrorMsg(w, http.StatusInternalServerError, "Streaming unsupported", "internal")
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)

		events, cancel := hub.Subscribe(teamID)
		defer cancel()

		fmt.Fprintf(w, "event: connected\ndata: {}\n\n")
		flusher.Flush()

		// Keepalive comments hold intermediaries open between events.
		keepalive := time.NewTicker(25 * time.Second)
		defer keepalive.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case <-keepalive.C:
				fmt.Fprint(w, ": keepalive\n\n")
				flusher.Flush()
			case e := <-events:
				payload, err := json.Marshal(e)
				if err != nil {
					continue
				}
				fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.Type, payload)
				flusher.Flush()
			}
		}
	}
}
