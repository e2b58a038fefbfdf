// Package v1 provides the REST API handlers for triggering and inspecting menu imports.
package v1

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"github.com/stacklok/menu-importer/internal/api/common"
	"github.com/stacklok/menu-importer/internal/importer"
	"github.com/stacklok/menu-importer/internal/menu"
	"github.com/stacklok/menu-importer/internal/status"
	"github.com/stacklok/menu-importer/internal/storage"
)

// maxRequestBody bounds the size of an import request
const maxRequestBody = 64 << 10

// Routes holds the dependencies of the v1 handlers
type Routes struct {
	importer          importer.Service
	repo              storage.Repository
	statusPersistence status.StatusPersistence
}

// NewRoutes creates a new Routes instance
func NewRoutes(
	importSvc importer.Service, repo storage.Repository, statusPersistence status.StatusPersistence,
) *Routes {
	return &Routes{
		importer:          importSvc,
		repo:              repo,
		statusPersistence: statusPersistence,
	}
}

// Router creates the router for the v1 API
func Router(importSvc importer.Service, repo storage.Repository, statusPersistence status.StatusPersistence) http.Handler {
	routes := NewRoutes(importSvc, repo, statusPersistence)

	r := chi.NewRouter()

	r.Post("/imports", routes.createImport)
	r.Get("/imports/status", routes.listImportStatus)
	r.Get("/imports/status/{collection}", routes.getImportStatus)
	r.Get("/menus/{collection}", routes.getMenu)

	return r
}

// createImport handles POST /v1/imports
func (rr *Routes) createImport(w http.ResponseWriter, r *http.Request) {
	var req ImportRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
	if err := dec.Decode(&req); err != nil {
		common.WriteErrorResponse(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := validateRequest(&req); err != nil {
		common.WriteErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	// A client disconnect must not leave the collection half reconciled
	ctx := context.WithoutCancel(r.Context())

	result, err := rr.importer.ImportMenus(ctx, req.Endpoint, req.Collection)
	if err != nil {
		// Details are in the importer logs
		if !errors.Is(err, importer.ErrImportFailed) {
			slog.Error("Unexpected import error", "endpoint", req.Endpoint, "error", err)
		}
		common.WriteErrorResponse(w, importer.FailureMessage, http.StatusBadGateway)
		return
	}

	common.WriteJSONResponse(w, ImportResponse{
		Message:    importer.SuccessMessage,
		Collection: result.Collection,
		Result:     result.Result,
	}, http.StatusOK)
}

// listImportStatus handles GET /v1/imports/status
func (rr *Routes) listImportStatus(w http.ResponseWriter, r *http.Request) {
	all, err := rr.statusPersistence.LoadAllStatus(r.Context())
	if err != nil {
		slog.Error("Failed to load import status", "error", err)
		common.WriteErrorResponse(w, "Failed to load import status", http.StatusInternalServerError)
		return
	}
	common.WriteJSONResponse(w, all, http.StatusOK)
}

// getImportStatus handles GET /v1/imports/status/{collection}
func (rr *Routes) getImportStatus(w http.ResponseWriter, r *http.Request) {
	collection, err := common.GetAndValidateURLParam(r, "collection")
	if err != nil {
		common.WriteErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	importStatus, err := rr.statusPersistence.LoadStatus(r.Context(), collection)
	if err != nil {
		slog.Error("Failed to load import status", "collection", collection, "error", err)
		common.WriteErrorResponse(w, "Failed to load import status", http.StatusInternalServerError)
		return
	}
	if importStatus.Phase == "" {
		common.WriteErrorResponse(w, "No import recorded for collection "+collection, http.StatusNotFound)
		return
	}

	common.WriteJSONResponse(w, importStatus, http.StatusOK)
}

// getMenu handles GET /v1/menus/{collection}
func (rr *Routes) getMenu(w http.ResponseWriter, r *http.Request) {
	collection, err := common.GetAndValidateURLParam(r, "collection")
	if err != nil {
		common.WriteErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	items, err := rr.repo.LoadAllByCollection(r.Context(), collection)
	if err != nil {
		slog.Error("Failed to load menu items", "collection", collection, "error", err)
		common.WriteErrorResponse(w, "Failed to load menu items", http.StatusInternalServerError)
		return
	}
	sortMenuItems(items)

	common.WriteJSONResponse(w, MenuResponse{Collection: collection, Items: items}, http.StatusOK)
}

// sortMenuItems orders items by weight, then title, then ID
func sortMenuItems(items []*menu.Item) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Weight != items[j].Weight {
			return items[i].Weight < items[j].Weight
		}
		if items[i].Title != items[j].Title {
			return items[i].Title < items[j].Title
		}
		return items[i].ID < items[j].ID
	})
}
