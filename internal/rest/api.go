package rest

import (
	"github.com/dfryer1193/graphmigrate/internal/rest/handlers"
	mjolnirUtils "github.com/dfryer1193/mjolnir/utils"
	"github.com/go-chi/chi/v5"
)

func SetupRoutes(router *chi.Mux, migrationHandler *handlers.MigrationHandler) {
	router.Route("/migrations/v1", func(r chi.Router) {
		r.Get("/", mjolnirUtils.ErrorHandler(migrationHandler.GetMigrations))
		r.Get("/{fileName}", mjolnirUtils.ErrorHandler(migrationHandler.GetMigrationByFileName))
	})
}
