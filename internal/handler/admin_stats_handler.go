package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/edustack/lms-api/internal/service"
	"github.com/edustack/lms-api/internal/utils"
)

// AdminStatsHandler wires the admin dashboard rollup routes.
type AdminStatsHandler struct {
	service service.AdminStatsService
	logger  zerolog.Logger
}

// NewAdminStatsHandler constructs the handler.
func NewAdminStatsHandler(service service.AdminStatsService, logger zerolog.Logger) *AdminStatsHandler {
	return &AdminStatsHandler{
		service: service,
		logger:  logger.With().Str("component", "admin_stats_handler").Logger(),
	}
}

// Register attaches the stats endpoints to the admin router group.
func (h *AdminStatsHandler) Register(router fiber.Router) {
	router.Get("/stats/users", h.users)
	router.Get("/stats/courses", h.courses)
	router.Get("/stats/approvals", h.approvals)
	router.Get("/stats/revenue", h.revenue)
	router.Get("/stats/dashboard", h.dashboard)
}

func (h *AdminStatsHandler) users(c *fiber.Ctx) error {
	stats, err := h.service.UserStats(c.Context())
	if err != nil {
		return h.internalError(c, err)
	}

	return utils.SendSuccess(c, "user stats retrieved", stats)
}

func (h *AdminStatsHandler) courses(c *fiber.Ctx) error {
	stats, err := h.service.CourseStats(c.Context())
	if err != nil {
		return h.internalError(c, err)
	}

	return utils.SendSuccess(c, "course stats retrieved", stats)
}

func (h *AdminStatsHandler) approvals(c *fiber.Ctx) error {
	stats, err := h.service.ApprovalStats(c.Context())
	if err != nil {
		return h.internalError(c, err)
	}

	return utils.SendSuccess(c, "approval stats retrieved", stats)
}

func (h *AdminStatsHandler) revenue(c *fiber.Ctx) error {
	stats, err := h.service.RevenueStats(c.Context())
	if err != nil {
		return h.internalError(c, err)
	}

	return utils.SendSuccess(c, "revenue stats retrieved", stats)
}

func (h *AdminStatsHandler) dashboard(c *fiber.Ctx) error {
	stats, err := h.service.Dashboard(c.Context())
	if err != nil {
		return h.internalError(c, err)
	}

	return utils.SendSuccess(c, "dashboard stats retrieved", stats)
}

func (h *AdminStatsHandler) internalError(c *fiber.Ctx, err error) error {
	h.logger.Error().Err(err).Msg("internal server error")
	return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
}
