package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dfryer1193/graphmigrate/api"
	mjolnirUtils "github.com/dfryer1193/mjolnir/utils"
	"github.com/go-chi/chi/v5"
)

type StatusProvider interface {
	Status(ctx context.Context) ([]api.MigrationStatus, error)
}

type MigrationHandler struct {
	migrationsMgr StatusProvider
}

func NewMigrationHandler(mgr StatusProvider) *MigrationHandler {
	return &MigrationHandler{migrationsMgr: mgr}
}

func (h *MigrationHandler) GetMigrations(w http.ResponseWriter, r *http.Request) *mjolnirUtils.ApiError {
	statuses, err := h.migrationsMgr.Status(r.Context())
	if err != nil {
		return mjolnirUtils.InternalServerErr(fmt.Errorf("error fetching migrations: %w", err))
	}

	mjolnirUtils.RespondJSON(w, r, http.StatusOK, &api.MigrationList{Migrations: statuses})
	return nil
}

func (h *MigrationHandler) GetMigrationByFileName(w http.ResponseWriter, r *http.Request) *mjolnirUtils.ApiError {
	fileName := chi.URLParam(r, "fileName")
	if fileName == "" {
		return mjolnirUtils.BadRequestErr(fmt.Errorf("fileName is required"))
	}

	statuses, err := h.migrationsMgr.Status(r.Context())
	if err != nil {
		return mjolnirUtils.InternalServerErr(fmt.Errorf("error fetching migration %s: %w", fileName, err))
	}

	for _, status := range statuses {
		if status.FileName == fileName {
			mjolnirUtils.RespondJSON(w, r, http.StatusOK, &status)
			return nil
		}
	}

	return mjolnirUtils.NewApiError(fmt.Errorf("migration %s not found", fileName), http.StatusNotFound)
}
