package rest

import (
	"encoding/json"
	"net/http"

	"github.com/fafadexs1/chatflow/logger"
	"github.com/fafadexs1/chatflow/persistence"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// HandleEvent resolves an out-of-band API response against a session that
// suspended awaiting one.
func (s *Server) HandleEvent(w http.ResponseWriter, r *http.Request) {
	sessionId := mux.Vars(r)["sessionId"]

	var payload map[string]any
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	outcome, err := s.triggerService.Event(r.Context(), sessionId, payload)
	if err != nil {
		if persistence.IsNotFound(err) {
			respondWithError(w, http.StatusNotFound, err.Error())
			return
		}
		logger.Error("event processing failed", zap.String("sessionId", sessionId), zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "internal error")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": string(outcome)})
}
