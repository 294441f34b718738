package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/edustack/lms-api/internal/service"
	"github.com/edustack/lms-api/internal/utils"
)

// EnrollmentHandler wires enrollment and progress HTTP routes.
type EnrollmentHandler struct {
	enrollments service.EnrollmentService
	progress    service.ProgressService
	logger      zerolog.Logger
}

// NewEnrollmentHandler constructs the handler.
func NewEnrollmentHandler(enrollments service.EnrollmentService, progress service.ProgressService, logger zerolog.Logger) *EnrollmentHandler {
	return &EnrollmentHandler{
		enrollments: enrollments,
		progress:    progress,
		logger:      logger.With().Str("component", "enrollment_handler").Logger(),
	}
}

// RegisterStudent attaches the student-facing endpoints.
func (h *EnrollmentHandler) RegisterStudent(router fiber.Router) {
	router.Post("/courses/:courseId/enroll", h.enroll)
	router.Get("/enrollments", h.listMine)
	router.Get("/courses/:courseId/progress", h.courseProgress)
	router.Post("/courses/:courseId/lessons/:lessonId/complete", h.completeLesson)
}

// RegisterApproval attaches the instructor/admin approval queue endpoints.
func (h *EnrollmentHandler) RegisterApproval(router fiber.Router) {
	router.Get("/pending", h.listPending)
	router.Post("/:id/approve", h.approve)
	router.Post("/:id/reject", h.reject)
}

func (h *EnrollmentHandler) enroll(c *fiber.Ctx) error {
	courseID, err := parseUintParam(c, "courseId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	enrollment, err := h.enrollments.Enroll(c.Context(), userIDFromContext(c), courseID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "enrollment requested", enrollment)
}

func (h *EnrollmentHandler) listMine(c *fiber.Ctx) error {
	enrollments, err := h.enrollments.ListMine(c.Context(), userIDFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "enrollments retrieved", enrollments)
}

func (h *EnrollmentHandler) listPending(c *fiber.Ctx) error {
	enrollments, err := h.enrollments.ListPending(c.Context(), actorFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "pending enrollments retrieved", enrollments)
}

func (h *EnrollmentHandler) approve(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	enrollment, err := h.enrollments.Approve(c.Context(), id, actorFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "enrollment approved", enrollment)
}

func (h *EnrollmentHandler) reject(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	enrollment, err := h.enrollments.Reject(c.Context(), id, actorFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "enrollment rejected", enrollment)
}

func (h *EnrollmentHandler) courseProgress(c *fiber.Ctx) error {
	courseID, err := parseUintParam(c, "courseId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	progress, err := h.enrollments.Progress(c.Context(), userIDFromContext(c), courseID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "progress retrieved", progress)
}

func (h *EnrollmentHandler) completeLesson(c *fiber.Ctx) error {
	courseID, err := parseUintParam(c, "courseId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	lessonID, err := parseUintParam(c, "lessonId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	completion, err := h.progress.CompleteLesson(c.Context(), userIDFromContext(c), courseID, lessonID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "lesson completed", completion)
}

func (h *EnrollmentHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrCourseNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "course not found")
	case errors.Is(err, service.ErrLessonNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "lesson not found")
	case errors.Is(err, service.ErrEnrollmentNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "enrollment not found")
	case errors.Is(err, service.ErrCourseNotPublished):
		return utils.SendError(c, fiber.StatusConflict, "course not open for enrollment")
	case errors.Is(err, service.ErrAlreadyEnrolled):
		return utils.SendError(c, fiber.StatusConflict, "already enrolled or pending approval")
	case errors.Is(err, service.ErrEnrollmentRejected):
		return utils.SendError(c, fiber.StatusConflict, "enrollment request was rejected")
	case errors.Is(err, service.ErrEnrollmentNotPending):
		return utils.SendError(c, fiber.StatusConflict, "enrollment not pending approval")
	case errors.Is(err, service.ErrNotCourseOwner):
		return utils.SendError(c, fiber.StatusForbidden, "not the course owner")
	case errors.Is(err, service.ErrNotEnrolled):
		return utils.SendError(c, fiber.StatusForbidden, "not enrolled in course")
	case errors.Is(err, service.ErrEnrollmentNotActive):
		return utils.SendError(c, fiber.StatusForbidden, "enrollment not active")
	default:
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
