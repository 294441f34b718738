package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"

	"github.com/edustack/lms-api/internal/dto"
	"github.com/edustack/lms-api/internal/models"
	"github.com/edustack/lms-api/internal/repository"
)

// ErrEnrollmentNotFound indicates an enrollment could not be located.
var ErrEnrollmentNotFound = errors.New("enrollment not found")

// ErrAlreadyEnrolled indicates an active or pending enrollment already exists.
var ErrAlreadyEnrolled = errors.New("already enrolled or pending approval")

// ErrEnrollmentRejected indicates a re-enrollment attempt after rejection.
var ErrEnrollmentRejected = errors.New("enrollment request was rejected")

// ErrEnrollmentNotPending indicates an approve/reject call on a decided record.
var ErrEnrollmentNotPending = errors.New("enrollment not pending approval")

// ErrCourseNotPublished indicates an enrollment attempt on a draft course.
var ErrCourseNotPublished = errors.New("course not open for enrollment")

// EnrollmentService orchestrates the enrollment approval workflow.
type EnrollmentService interface {
	Enroll(ctx context.Context, studentID, courseID uint) (dto.EnrollmentResponse, error)
	Approve(ctx context.Context, enrollmentID uint, actor Actor) (dto.EnrollmentResponse, error)
	Reject(ctx context.Context, enrollmentID uint, actor Actor) (dto.EnrollmentResponse, error)
	ListPending(ctx context.Context, actor Actor) ([]dto.EnrollmentResponse, error)
	ListMine(ctx context.Context, studentID uint) ([]dto.EnrollmentResponse, error)
	Progress(ctx context.Context, studentID, courseID uint) (dto.CourseProgressResponse, error)
}

type enrollmentService struct {
	enrollments repository.EnrollmentRepository
	courses     repository.CourseRepository
	progress    repository.ProgressRepository
	users       repository.UserRepository
	notifier    Notifier
	autoApprove bool
	logger      zerolog.Logger
	now         func() time.Time
}

// NewEnrollmentService constructs an EnrollmentService instance. autoApprove
// makes new enrollments start active instead of pending_approval.
func NewEnrollmentService(enrollments repository.EnrollmentRepository, courses repository.CourseRepository, progress repository.ProgressRepository, users repository.UserRepository, notifier Notifier, autoApprove bool, logger zerolog.Logger) EnrollmentService {
	return &enrollmentService{
		enrollments: enrollments,
		courses:     courses,
		progress:    progress,
		users:       users,
		notifier:    notifier,
		autoApprove: autoApprove,
		logger:      logger.With().Str("component", "enrollment_service").Logger(),
		now:         time.Now,
	}
}

func (s *enrollmentService) Enroll(ctx context.Context, studentID, courseID uint) (dto.EnrollmentResponse, error) {
	course, err := s.courses.GetByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.EnrollmentResponse{}, ErrCourseNotFound
		}
		return dto.EnrollmentResponse{}, err
	}

	if !course.IsPublished() {
		return dto.EnrollmentResponse{}, ErrCourseNotPublished
	}

	existing, err := s.enrollments.GetByStudentAndCourse(ctx, studentID, courseID)
	switch {
	case err == nil:
		return s.reenroll(ctx, existing)
	case errors.Is(err, gorm.ErrRecordNotFound):
		// first enrollment for the pair
	default:
		return dto.EnrollmentResponse{}, err
	}

	enrollment := models.Enrollment{
		StudentID:        studentID,
		CourseID:         courseID,
		Status:           models.EnrollmentStatusPending,
		CompletedLessons: []uint{},
	}

	if s.autoApprove {
		enrollment.Status = models.EnrollmentStatusActive
		err = s.enrollments.CreateApproved(ctx, &enrollment)
	} else {
		err = s.enrollments.Create(ctx, &enrollment)
	}
	if err != nil {
		return dto.EnrollmentResponse{}, err
	}

	created, err := s.enrollments.GetByID(ctx, enrollment.ID)
	if err != nil {
		return dto.EnrollmentResponse{}, err
	}

	s.logger.Info().Uint("enrollment_id", created.ID).Uint("student_id", studentID).Uint("course_id", courseID).Str("status", created.Status).Msg("enrollment requested")

	if s.notifier != nil && created.Student.ID != 0 {
		s.notifier.Enqueue(ctx, Notification{
			Topic:     "enrollment.requested",
			Recipient: created.Student.Email,
			Subject:   "Enrollment received",
			Body:      fmt.Sprintf("<p>Your enrollment request for <b>%s</b> has been received.</p>", created.Course.Title),
			Payload:   map[string]interface{}{"enrollment_id": created.ID, "course_id": courseID},
		})
	}

	return dto.NewEnrollmentResponse(created), nil
}

// reenroll handles the pre-existing row for the unique (student, course) pair.
// A dropped enrollment is revived into the starting state; rejection stays
// terminal; anything else conflicts.
func (s *enrollmentService) reenroll(ctx context.Context, existing models.Enrollment) (dto.EnrollmentResponse, error) {
	switch existing.Status {
	case models.EnrollmentStatusRejected:
		return dto.EnrollmentResponse{}, ErrEnrollmentRejected
	case models.EnrollmentStatusDropped:
		if s.autoApprove {
			existing.Status = models.EnrollmentStatusActive
		} else {
			existing.Status = models.EnrollmentStatusPending
		}
		if err := s.enrollments.Update(ctx, &existing); err != nil {
			return dto.EnrollmentResponse{}, err
		}
		revived, err := s.enrollments.GetByID(ctx, existing.ID)
		if err != nil {
			return dto.EnrollmentResponse{}, err
		}
		return dto.NewEnrollmentResponse(revived), nil
	default:
		return dto.EnrollmentResponse{}, ErrAlreadyEnrolled
	}
}

func (s *enrollmentService) Approve(ctx context.Context, enrollmentID uint, actor Actor) (dto.EnrollmentResponse, error) {
	tracer := otel.Tracer("github.com/edustack/lms-api/internal/service/enrollment")
	ctx, span := tracer.Start(ctx, "enrollment.approve")
	span.SetAttributes(
		attribute.Int64("enrollment.id", int64(enrollmentID)),
		attribute.Int64("enrollment.actor_id", int64(actor.ID)),
	)
	defer span.End()

	enrollment, err := s.decidableEnrollment(ctx, enrollmentID, actor)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "precondition_failed")
		return dto.EnrollmentResponse{}, err
	}

	enrollment.Status = models.EnrollmentStatusActive
	if err := s.enrollments.Approve(ctx, &enrollment); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "approve_failed")
		return dto.EnrollmentResponse{}, err
	}

	s.logger.Info().Uint("enrollment_id", enrollment.ID).Uint("actor_id", actor.ID).Msg("enrollment approved")

	if s.notifier != nil && enrollment.Student.ID != 0 {
		s.notifier.Enqueue(ctx, Notification{
			Topic:     "enrollment.approved",
			Recipient: enrollment.Student.Email,
			Subject:   "Enrollment approved",
			Body:      fmt.Sprintf("<p>You are now enrolled in <b>%s</b>.</p>", enrollment.Course.Title),
			Payload:   map[string]interface{}{"enrollment_id": enrollment.ID},
		})
	}

	span.SetAttributes(attribute.String("enrollment.status", enrollment.Status))

	return dto.NewEnrollmentResponse(enrollment), nil
}

func (s *enrollmentService) Reject(ctx context.Context, enrollmentID uint, actor Actor) (dto.EnrollmentResponse, error) {
	enrollment, err := s.decidableEnrollment(ctx, enrollmentID, actor)
	if err != nil {
		return dto.EnrollmentResponse{}, err
	}

	enrollment.Status = models.EnrollmentStatusRejected
	if err := s.enrollments.Update(ctx, &enrollment); err != nil {
		return dto.EnrollmentResponse{}, err
	}

	s.logger.Info().Uint("enrollment_id", enrollment.ID).Uint("actor_id", actor.ID).Msg("enrollment rejected")

	if s.notifier != nil && enrollment.Student.ID != 0 {
		s.notifier.Enqueue(ctx, Notification{
			Topic:     "enrollment.rejected",
			Recipient: enrollment.Student.Email,
			Subject:   "Enrollment request declined",
			Body:      fmt.Sprintf("<p>Your enrollment request for <b>%s</b> was declined.</p>", enrollment.Course.Title),
			Payload:   map[string]interface{}{"enrollment_id": enrollment.ID},
		})
	}

	return dto.NewEnrollmentResponse(enrollment), nil
}

// decidableEnrollment loads an enrollment and verifies both the pending
// precondition and the actor's authority over the course.
func (s *enrollmentService) decidableEnrollment(ctx context.Context, enrollmentID uint, actor Actor) (models.Enrollment, error) {
	enrollment, err := s.enrollments.GetByID(ctx, enrollmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Enrollment{}, ErrEnrollmentNotFound
		}
		return models.Enrollment{}, err
	}

	if !actor.IsAdmin() && enrollment.Course.InstructorID != actor.ID {
		return models.Enrollment{}, ErrNotCourseOwner
	}

	if !enrollment.IsPending() {
		return models.Enrollment{}, ErrEnrollmentNotPending
	}

	return enrollment, nil
}

func (s *enrollmentService) ListPending(ctx context.Context, actor Actor) ([]dto.EnrollmentResponse, error) {
	instructorID := actor.ID
	if actor.IsAdmin() {
		instructorID = 0
	}

	enrollments, err := s.enrollments.ListPending(ctx, instructorID)
	if err != nil {
		return nil, err
	}

	return dto.NewEnrollmentResponseSlice(enrollments), nil
}

func (s *enrollmentService) ListMine(ctx context.Context, studentID uint) ([]dto.EnrollmentResponse, error) {
	enrollments, err := s.enrollments.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}

	return dto.NewEnrollmentResponseSlice(enrollments), nil
}

func (s *enrollmentService) Progress(ctx context.Context, studentID, courseID uint) (dto.CourseProgressResponse, error) {
	enrollment, err := s.enrollments.GetByStudentAndCourse(ctx, studentID, courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.CourseProgressResponse{}, ErrEnrollmentNotFound
		}
		return dto.CourseProgressResponse{}, err
	}

	completed, err := s.progress.CountCompleted(ctx, studentID, courseID)
	if err != nil {
		return dto.CourseProgressResponse{}, err
	}

	total, err := s.courses.CountLessons(ctx, courseID)
	if err != nil {
		return dto.CourseProgressResponse{}, err
	}

	return dto.CourseProgressResponse{
		CourseID:           courseID,
		Status:             enrollment.Status,
		ProgressPercentage: enrollment.ProgressPercentage,
		CompletedLessons:   int(completed),
		TotalLessons:       int(total),
		CompletionDate:     enrollment.CompletionDate,
	}, nil
}
