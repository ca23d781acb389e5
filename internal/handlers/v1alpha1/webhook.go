package v1alpha1

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/render"
	"go.uber.org/zap"

	api "github.com/roomstudio/asset-forge/api/v1alpha1"
	"github.com/roomstudio/asset-forge/internal/store"
)

// JobWebhook receives status pushes from the generation service. The
// endpoint is unauthenticated by contract, so it tolerates replays and
// out-of-order delivery; a payload for a job never submitted is logged and
// rejected without creating ledger state.
func (h *ServiceHandler) JobWebhook(w http.ResponseWriter, r *http.Request) {
	var payload api.WebhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid webhook payload")
		return
	}
	if payload.JobID == "" {
		respondError(w, r, http.StatusBadRequest, "job_id is required")
		return
	}

	if err := h.reconciler.HandleWebhook(r.Context(), payload); err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			zap.S().Named("webhook_handler").Warnf("webhook for unknown job %s ignored", payload.JobID)
			respondError(w, r, http.StatusNotFound, "unknown job")
			return
		}
		zap.S().Named("webhook_handler").Errorf("failed to apply webhook for job %s: %v", payload.JobID, err)
		respondError(w, r, http.StatusInternalServerError, "failed to apply webhook")
		return
	}

	render.JSON(w, r, api.CancelResponse{Success: true})
}
