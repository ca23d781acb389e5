package v1alpha1

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"go.uber.org/zap"

	api "github.com/roomstudio/asset-forge/api/v1alpha1"
	"github.com/roomstudio/asset-forge/internal/service"
)

func (h *ServiceHandler) SubmitJob(w http.ResponseWriter, r *http.Request) {
	var request api.SubmitJobRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	job, err := h.jobSrv.SubmitJob(r.Context(), request)
	if err != nil {
		zap.S().Named("job_handler").Errorf("failed to submit job: %v", err)
		switch err.(type) {
		case *service.ErrInvalidRequest:
			respondError(w, r, http.StatusBadRequest, err.Error())
		case *service.ErrResourceNotFound:
			respondError(w, r, http.StatusNotFound, err.Error())
		case *service.ErrGenerationUnavailable:
			respondError(w, r, http.StatusServiceUnavailable, err.Error())
		default:
			respondError(w, r, http.StatusInternalServerError, "failed to submit job")
		}
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, job)
}

func (h *ServiceHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")

	job, err := h.jobSrv.GetJob(r.Context(), jobID)
	if err != nil {
		switch err.(type) {
		case *service.ErrResourceNotFound:
			respondError(w, r, http.StatusNotFound, err.Error())
		default:
			zap.S().Named("job_handler").Errorf("failed to get job %s: %v", jobID, err)
			respondError(w, r, http.StatusInternalServerError, "failed to get job")
		}
		return
	}

	render.JSON(w, r, job)
}

func (h *ServiceHandler) CancelJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")

	if _, err := h.jobSrv.CancelJob(r.Context(), jobID); err != nil {
		switch err.(type) {
		case *service.ErrResourceNotFound:
			respondError(w, r, http.StatusNotFound, err.Error())
		default:
			zap.S().Named("job_handler").Errorf("failed to cancel job %s: %v", jobID, err)
			respondError(w, r, http.StatusInternalServerError, "failed to cancel job")
		}
		return
	}

	render.JSON(w, r, api.CancelResponse{Success: true})
}
