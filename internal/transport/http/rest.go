package http

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"ham-exam-bot/internal/app"
	"ham-exam-bot/internal/domain"
)

// NewRouter mounts the websocket endpoint and the read-only session API.
func NewRouter(service *app.QuizService, ws *WSHandler) *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	router.HandleFunc("/ws/{scope}", ws.ServeWS)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/sessions/{scope}", sessionStatus(service)).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{scope}", evictSession(service)).Methods(http.MethodDelete)
	api.HandleFunc("/sessions/{scope}/leaderboard", sessionLeaderboard(service)).Methods(http.MethodGet)
	return router
}

func sessionStatus(service *app.QuizService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, ok := service.Status(mux.Vars(r)["scope"])
		if !ok {
			writeRejection(w, http.StatusNotFound, domain.ErrSessionNotFound)
			return
		}
		writeJSON(w, http.StatusOK, snap)
	}
}

func sessionLeaderboard(service *app.QuizService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, ok := service.Status(mux.Vars(r)["scope"])
		if !ok {
			writeRejection(w, http.StatusNotFound, domain.ErrSessionNotFound)
			return
		}
		standings, err := service.Standings(r.Context(), snap.SessionID, snap.TotalRounds)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, errorPayload{Message: err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"sessionId":   snap.SessionID,
			"totalRounds": snap.TotalRounds,
			"entries":     displayStandings(standings),
		})
	}
}

// evictSession is the operator stop: no ownership check, waits for the record
// to be finalized.
func evictSession(service *app.QuizService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scope := mux.Vars(r)["scope"]
		if _, ok := service.Status(scope); !ok {
			writeRejection(w, http.StatusNotFound, domain.ErrSessionNotFound)
			return
		}
		if err := service.Evict(r.Context(), scope); err != nil {
			writeJSON(w, http.StatusInternalServerError, errorPayload{Message: err.Error()})
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func writeRejection(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, rejectedPayload{Code: domain.RejectCode(err), Message: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
