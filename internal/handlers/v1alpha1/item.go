package v1alpha1

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"go.uber.org/zap"

	api "github.com/roomstudio/asset-forge/api/v1alpha1"
	"github.com/roomstudio/asset-forge/internal/service"
)

func (h *ServiceHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var request api.CreateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := h.itemSrv.CreateItem(r.Context(), request)
	if err != nil {
		switch err.(type) {
		case *service.ErrInvalidRequest:
			respondError(w, r, http.StatusBadRequest, err.Error())
		default:
			zap.S().Named("item_handler").Errorf("failed to create item: %v", err)
			respondError(w, r, http.StatusInternalServerError, "failed to create item")
		}
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, item)
}

func (h *ServiceHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid item id")
		return
	}

	item, err := h.itemSrv.GetItem(r.Context(), id)
	if err != nil {
		switch err.(type) {
		case *service.ErrResourceNotFound:
			respondError(w, r, http.StatusNotFound, err.Error())
		default:
			zap.S().Named("item_handler").Errorf("failed to get item %s: %v", id, err)
			respondError(w, r, http.StatusInternalServerError, "failed to get item")
		}
		return
	}

	render.JSON(w, r, item)
}
