package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"

	"github.com/edustack/lms-api/internal/dto"
	"github.com/edustack/lms-api/internal/models"
	"github.com/edustack/lms-api/internal/repository"
	"github.com/edustack/lms-api/pkg/certificate"
)

// ErrCourseNotCompleted indicates certificate generation on an unfinished enrollment.
var ErrCourseNotCompleted = errors.New("course not completed")

// ErrCertificateNotFound indicates a certificate could not be located.
var ErrCertificateNotFound = errors.New("certificate not found")

// ErrNotCertificateOwner indicates the actor is neither the student nor admin.
var ErrNotCertificateOwner = errors.New("not the enrollment owner")

// CertificateRenderer produces the binary certificate artifact.
type CertificateRenderer interface {
	Render(data certificate.Data) ([]byte, error)
}

// CertificateService issues completion certificates.
type CertificateService interface {
	Generate(ctx context.Context, enrollmentID uint, actor Actor) (dto.CertificateResponse, error)
	GetByCertificateID(ctx context.Context, certificateID string) (dto.CertificateResponse, error)
}

type certificateService struct {
	certificates repository.CertificateRepository
	enrollments  repository.EnrollmentRepository
	renderer     CertificateRenderer
	uploader     BytesUploader
	notifier     Notifier
	logger       zerolog.Logger
	now          func() time.Time
}

// NewCertificateService constructs a CertificateService instance.
func NewCertificateService(certificates repository.CertificateRepository, enrollments repository.EnrollmentRepository, renderer CertificateRenderer, uploader BytesUploader, notifier Notifier, logger zerolog.Logger) CertificateService {
	return &certificateService{
		certificates: certificates,
		enrollments:  enrollments,
		renderer:     renderer,
		uploader:     uploader,
		notifier:     notifier,
		logger:       logger.With().Str("component", "certificate_service").Logger(),
		now:          time.Now,
	}
}

func (s *certificateService) Generate(ctx context.Context, enrollmentID uint, actor Actor) (dto.CertificateResponse, error) {
	tracer := otel.Tracer("github.com/edustack/lms-api/internal/service/certificate")
	ctx, span := tracer.Start(ctx, "certificate.generate")
	span.SetAttributes(attribute.Int64("certificate.enrollment_id", int64(enrollmentID)))
	defer span.End()

	enrollment, err := s.enrollments.GetByID(ctx, enrollmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			span.SetStatus(codes.Error, "enrollment_not_found")
			return dto.CertificateResponse{}, ErrEnrollmentNotFound
		}
		span.RecordError(err)
		return dto.CertificateResponse{}, err
	}

	if !actor.IsAdmin() && enrollment.StudentID != actor.ID {
		span.SetStatus(codes.Error, "forbidden")
		return dto.CertificateResponse{}, ErrNotCertificateOwner
	}

	if enrollment.Status != models.EnrollmentStatusCompleted {
		span.SetStatus(codes.Error, "course_not_completed")
		return dto.CertificateResponse{}, ErrCourseNotCompleted
	}

	// Idempotence: a repeat call returns the existing record unchanged.
	existing, err := s.certificates.GetByStudentAndCourse(ctx, enrollment.StudentID, enrollment.CourseID)
	if err == nil {
		span.SetAttributes(attribute.Bool("certificate.idempotent", true))
		return dto.NewCertificateResponse(existing), nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		span.RecordError(err)
		return dto.CertificateResponse{}, err
	}

	completionDate := s.now()
	if enrollment.CompletionDate != nil {
		completionDate = *enrollment.CompletionDate
	}

	certificateID := newCertificateID(enrollment.CourseID)

	artifact, err := s.renderer.Render(certificate.Data{
		StudentName:    enrollment.Student.Name,
		CourseTitle:    enrollment.Course.Title,
		CompletionDate: completionDate,
		CertificateID:  certificateID,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "render_failed")
		return dto.CertificateResponse{}, fmt.Errorf("failed to render certificate: %w", err)
	}

	url, err := s.uploader.UploadBytes(ctx, certificateID+".png", artifact)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "upload_failed")
		return dto.CertificateResponse{}, fmt.Errorf("failed to store certificate: %w", err)
	}

	record := models.Certificate{
		StudentID:      enrollment.StudentID,
		CourseID:       enrollment.CourseID,
		CertificateID:  certificateID,
		URL:            url,
		CompletionDate: completionDate,
	}

	if err := s.certificates.Create(ctx, &record); err != nil {
		// The unique (student, course) index backstops a concurrent issue:
		// whoever lost the race returns the winner's record.
		if existing, lookupErr := s.certificates.GetByStudentAndCourse(ctx, enrollment.StudentID, enrollment.CourseID); lookupErr == nil {
			span.SetAttributes(attribute.Bool("certificate.idempotent", true))
			return dto.NewCertificateResponse(existing), nil
		}
		span.RecordError(err)
		return dto.CertificateResponse{}, err
	}

	enrollment.CertificateID = certificateID
	if err := s.enrollments.Update(ctx, &enrollment); err != nil {
		s.logger.Warn().Err(err).Uint("enrollment_id", enrollment.ID).Msg("failed to stamp certificate id on enrollment")
		span.RecordError(err)
	}

	s.logger.Info().Str("certificate_id", certificateID).Uint("enrollment_id", enrollment.ID).Msg("certificate issued")

	if s.notifier != nil && enrollment.Student.ID != 0 {
		s.notifier.Enqueue(ctx, Notification{
			Topic:     "certificate.issued",
			Recipient: enrollment.Student.Email,
			Subject:   "Your certificate is ready",
			Body:      fmt.Sprintf("<p>Your certificate for <b>%s</b> is ready: <a href=%q>download</a>.</p>", enrollment.Course.Title, url),
			Payload:   map[string]interface{}{"certificate_id": certificateID},
		})
	}

	created, err := s.certificates.GetByStudentAndCourse(ctx, enrollment.StudentID, enrollment.CourseID)
	if err != nil {
		return dto.NewCertificateResponse(record), nil
	}

	return dto.NewCertificateResponse(created), nil
}

func (s *certificateService) GetByCertificateID(ctx context.Context, certificateID string) (dto.CertificateResponse, error) {
	record, err := s.certificates.GetByCertificateID(ctx, certificateID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.CertificateResponse{}, ErrCertificateNotFound
		}
		return dto.CertificateResponse{}, err
	}

	return dto.NewCertificateResponse(record), nil
}

func newCertificateID(courseID uint) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
	return fmt.Sprintf("CERT-%d-%s", courseID, suffix)
}
