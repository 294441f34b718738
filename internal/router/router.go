package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/edustack/lms-api/internal/config"
	"github.com/edustack/lms-api/internal/handler"
	"github.com/edustack/lms-api/internal/middleware"
	"github.com/edustack/lms-api/internal/models"
	"github.com/edustack/lms-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AuthHandler        *handler.AuthHandler
	CourseHandler      *handler.CourseHandler
	EnrollmentHandler  *handler.EnrollmentHandler
	QuizHandler        *handler.QuizHandler
	AssignmentHandler  *handler.AssignmentHandler
	CertificateHandler *handler.CertificateHandler
	AdminStatsHandler  *handler.AdminStatsHandler
	JWTMiddleware      fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))
	api.Get("/metrics", observability.MetricsHandler())

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	instructorOnly := middleware.RequireRole(models.RoleInstructor, models.RoleAdmin)
	adminOnly := middleware.RequireRole(models.RoleAdmin)

	if deps.AuthHandler != nil {
		// Credential endpoints are brute-force targets.
		auth := api.Group("/auth", middleware.RateLimit("auth", 20, time.Minute))
		deps.AuthHandler.Register(auth)
		deps.AuthHandler.RegisterProtected(auth.Group("", jwtMiddleware))
	}

	if deps.CourseHandler != nil {
		courses := api.Group("/courses")
		deps.CourseHandler.RegisterPublic(courses)
		deps.CourseHandler.RegisterAuthoring(courses.Group("", jwtMiddleware, instructorOnly))
	}

	if deps.CertificateHandler != nil {
		deps.CertificateHandler.RegisterPublic(api)
	}

	if deps.EnrollmentHandler != nil {
		student := api.Group("/learn", jwtMiddleware)
		deps.EnrollmentHandler.RegisterStudent(student)

		approvals := api.Group("/enrollments", jwtMiddleware, instructorOnly)
		deps.EnrollmentHandler.RegisterApproval(approvals)
	}

	if deps.QuizHandler != nil {
		deps.QuizHandler.RegisterAuthoring(api.Group("", jwtMiddleware, instructorOnly))
		deps.QuizHandler.RegisterStudent(api.Group("/learn", jwtMiddleware))
	}

	if deps.AssignmentHandler != nil {
		deps.AssignmentHandler.RegisterAuthoring(api.Group("", jwtMiddleware, instructorOnly))
		deps.AssignmentHandler.RegisterStudent(api.Group("/learn", jwtMiddleware))
	}

	if deps.CertificateHandler != nil {
		deps.CertificateHandler.RegisterStudent(api.Group("/learn", jwtMiddleware))
	}

	if deps.AdminStatsHandler != nil {
		admin := api.Group("/admin", jwtMiddleware, adminOnly)
		deps.AdminStatsHandler.Register(admin)
	}
}
