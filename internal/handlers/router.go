package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/viewlens/viewlens/internal/config"
	"github.com/viewlens/viewlens/internal/middleware"
	"github.com/viewlens/viewlens/internal/services"
	"github.com/viewlens/viewlens/internal/types"
	"github.com/viewlens/viewlens/internal/utils"
	"gorm.io/gorm"
)

// ErrorHandler maps service errors onto the uniform error envelope. Wire
// it into fiber.Config so every handler can return errors raw.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := err.Error()
	errorType := "unknown"

	var custom *types.CustomError
	if errors.As(err, &custom) {
		code = custom.Code
		message = custom.Message
		errorType = custom.Type
	} else if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return utils.ErrorResponse(c, message, code, errorType)
}

// Register mounts the API surface under /api and appends the terminal 404
// handler. Global middleware such as logging and metrics is the caller's
// concern.
func Register(app *fiber.App, cfg *config.Config, db *gorm.DB) {
	api := app.Group("/api")
	api.Use(middleware.VersionMiddleware())

	usage := &services.DBUsageReporter{DB: db}
	viewHandler := &ViewHandler{DB: db}
	searchHandler := &SearchHandler{DB: db}
	rowHandler := &RowHandler{DB: db, Usage: usage}
	tableHandler := &TableHandler{DB: db}
	permissionHandler := &PermissionHandler{DB: db}
	healthHandler := &HealthHandler{Cfg: cfg, DB: db}

	// Health
	api.Get("/health", healthHandler.GetHealth)

	// Public search tier: no session required, runs as PUBLIC unless a
	// valid session cookie upgrades the role
	api.Post("/public/views/:viewId/search", middleware.PublicSession(cfg), searchHandler.SearchView)

	// Everything else requires a session
	authed := api.Group("", middleware.AuthSession(cfg))

	// View definition routes
	authed.Post("/v2/views", viewHandler.CreateView)
	authed.Get("/v2/views/:viewId", viewHandler.GetView)
	authed.Put("/v2/views/:viewId", viewHandler.UpdateView)
	authed.Delete("/v2/views/:viewId", viewHandler.DeleteView)

	// View-scoped search
	authed.Post("/v2/views/:viewId/search", searchHandler.SearchView)

	// Row routes
	authed.Post("/rows/:sourceId", rowHandler.SaveRow)
	authed.Patch("/rows/:sourceId", rowHandler.PatchRow)
	authed.Delete("/rows/:sourceId", rowHandler.BulkDeleteRows)
	authed.Get("/tables/:tableId/rows/:rowId", rowHandler.GetRow)

	// Table and datasource registry
	authed.Post("/tables", tableHandler.CreateTable)
	authed.Get("/tables/:tableId", tableHandler.GetTable)
	authed.Post("/datasources", tableHandler.CreateDatasource)

	// Permission bindings
	authed.Post("/permissions", permissionHandler.AddPermission)

	// 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return utils.NotFoundResponse(c, "[404] Resource Not Found")
	})
}
