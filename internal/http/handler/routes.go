package handler

import (
	"database/sql"

	"github.com/gofiber/fiber/v2"

	"aigrader/internal/service"
)

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
// Handlers stay thin; grading logic lives in the service layer.
func RegisterRoutes(app *fiber.App, db *sql.DB, svc service.GradingService) {
	// Checks DB connectivity only
	app.Get("/health", HealthCheck(db))
	// Simple liveness probe
	app.Get("/healthz", LivenessProbe())

	api := app.Group("/api")
	api.Post("/upload_answer_key/", UploadAnswerKey(svc))
	api.Post("/upload/", UploadSubmission(svc))
	api.Get("/comparisons/:user_id", ListComparisons(svc))
}
