package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fafadexs1/chatflow/logger"
	"github.com/fafadexs1/chatflow/persistence"
	"github.com/fafadexs1/chatflow/trigger"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// HandleWebhook is the single inbound entry point for channel deliveries.
// All handled or ignored outcomes answer 200; 404 is reserved for a missing
// workspace or unresolvable trigger.
func (s *Server) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	workspaceId := mux.Vars(r)["webhookId"]

	var payload map[string]any
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondWithJSON(w, http.StatusOK, map[string]string{"status": string(trigger.OUTCOME_IGNORED)})
		return
	}

	outcome, err := s.triggerService.Ingest(r.Context(), workspaceId, payload)
	if err != nil {
		if persistence.IsNotFound(err) || errors.Is(err, trigger.ErrNoTrigger) {
			respondWithError(w, http.StatusNotFound, err.Error())
			return
		}
		logger.Error("webhook processing failed", zap.String("workspaceId", workspaceId), zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "internal error")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": string(outcome)})
}
