package v1alpha1

import (
	"net/http"

	"github.com/go-chi/render"

	api "github.com/roomstudio/asset-forge/api/v1alpha1"
	"github.com/roomstudio/asset-forge/internal/reconciler"
	"github.com/roomstudio/asset-forge/internal/service"
)

type ServiceHandler struct {
	jobSrv     *service.JobService
	itemSrv    *service.ItemService
	reconciler *reconciler.Reconciler
}

func NewServiceHandler(jobSrv *service.JobService, itemSrv *service.ItemService, r *reconciler.Reconciler) *ServiceHandler {
	return &ServiceHandler{
		jobSrv:     jobSrv,
		itemSrv:    itemSrv,
		reconciler: r,
	}
}

func respondError(w http.ResponseWriter, r *http.Request, status int, message string) {
	render.Status(r, status)
	render.JSON(w, r, api.Error{Message: message})
}
