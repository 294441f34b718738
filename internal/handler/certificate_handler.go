package handler

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/edustack/lms-api/internal/service"
	"github.com/edustack/lms-api/internal/utils"
)

// CertificateHandler wires certificate HTTP routes.
type CertificateHandler struct {
	service service.CertificateService
	logger  zerolog.Logger
}

// NewCertificateHandler constructs the handler.
func NewCertificateHandler(service service.CertificateService, logger zerolog.Logger) *CertificateHandler {
	return &CertificateHandler{
		service: service,
		logger:  logger.With().Str("component", "certificate_handler").Logger(),
	}
}

// RegisterStudent attaches the issuance endpoint.
func (h *CertificateHandler) RegisterStudent(router fiber.Router) {
	router.Post("/enrollments/:id/certificate", h.generate)
}

// RegisterPublic attaches the verification endpoint. Anyone holding a
// certificate number can check it.
func (h *CertificateHandler) RegisterPublic(router fiber.Router) {
	router.Get("/certificates/:certificateId", h.verify)
}

func (h *CertificateHandler) generate(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	certificate, err := h.service.Generate(c.Context(), id, actorFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "certificate issued", certificate)
}

func (h *CertificateHandler) verify(c *fiber.Ctx) error {
	certificateID := strings.TrimSpace(c.Params("certificateId"))
	if certificateID == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	certificate, err := h.service.GetByCertificateID(c.Context(), certificateID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "certificate retrieved", certificate)
}

func (h *CertificateHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrEnrollmentNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "enrollment not found")
	case errors.Is(err, service.ErrCertificateNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "certificate not found")
	case errors.Is(err, service.ErrNotCertificateOwner):
		return utils.SendError(c, fiber.StatusForbidden, "not the enrollment owner")
	case errors.Is(err, service.ErrCourseNotCompleted):
		return utils.SendError(c, fiber.StatusConflict, "course not completed")
	default:
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
