package service

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/edustack/lms-api/internal/dto"
	"github.com/edustack/lms-api/internal/models"
	"github.com/edustack/lms-api/internal/repository"
)

// ErrAssignmentNotFound indicates an assignment could not be located.
var ErrAssignmentNotFound = errors.New("assignment not found")

// ErrAssignmentExists indicates the lesson already carries an assignment.
var ErrAssignmentExists = errors.New("assignment already exists for lesson")

// ErrLessonNotAssignment indicates the target lesson is not of assignment type.
var ErrLessonNotAssignment = errors.New("lesson is not an assignment lesson")

// ErrSubmissionNotFound indicates a submission could not be located.
var ErrSubmissionNotFound = errors.New("submission not found")

// ErrAlreadySubmitted indicates a graded submission blocks resubmission.
var ErrAlreadySubmitted = errors.New("assignment already submitted")

// AssignmentService orchestrates assignment and submission workflows.
type AssignmentService interface {
	CreateForLesson(ctx context.Context, courseID, lessonID uint, payload dto.AssignmentCreateRequest, actor Actor) (dto.AssignmentResponse, error)
	Get(ctx context.Context, assignmentID uint) (dto.AssignmentResponse, error)
	Submit(ctx context.Context, assignmentID, studentID uint, payload dto.SubmissionCreateRequest, file *multipart.FileHeader) (dto.SubmissionResponse, error)
	Grade(ctx context.Context, submissionID uint, payload dto.GradeRequest, actor Actor) (dto.SubmissionResponse, error)
	ListSubmissions(ctx context.Context, filter repository.SubmissionFilter, actor Actor) ([]dto.SubmissionResponse, error)
}

type assignmentService struct {
	assignments repository.AssignmentRepository
	courses     repository.CourseRepository
	validator   *validator.Validate
	uploader    FileUploader
	notifier    Notifier
	logger      zerolog.Logger
	now         func() time.Time
}

// NewAssignmentService constructs an AssignmentService instance.
func NewAssignmentService(assignments repository.AssignmentRepository, courses repository.CourseRepository, validate *validator.Validate, uploader FileUploader, notifier Notifier, logger zerolog.Logger) AssignmentService {
	return &assignmentService{
		assignments: assignments,
		courses:     courses,
		validator:   validate,
		uploader:    uploader,
		notifier:    notifier,
		logger:      logger.With().Str("component", "assignment_service").Logger(),
		now:         time.Now,
	}
}

func (s *assignmentService) CreateForLesson(ctx context.Context, courseID, lessonID uint, payload dto.AssignmentCreateRequest, actor Actor) (dto.AssignmentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AssignmentResponse{}, err
	}

	dueDate, err := time.Parse(time.RFC3339, payload.DueDate)
	if err != nil {
		return dto.AssignmentResponse{}, fmt.Errorf("invalid due date: %w", err)
	}

	course, err := s.courses.GetByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AssignmentResponse{}, ErrCourseNotFound
		}
		return dto.AssignmentResponse{}, err
	}

	if !actor.IsAdmin() && course.InstructorID != actor.ID {
		return dto.AssignmentResponse{}, ErrNotCourseOwner
	}

	lesson, err := s.courses.GetLessonByID(ctx, lessonID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AssignmentResponse{}, ErrLessonNotFound
		}
		return dto.AssignmentResponse{}, err
	}

	if lesson.CourseID != courseID {
		return dto.AssignmentResponse{}, ErrLessonNotFound
	}

	if lesson.Type != models.LessonTypeAssignment {
		return dto.AssignmentResponse{}, ErrLessonNotAssignment
	}

	if _, err := s.assignments.GetByLessonID(ctx, lessonID); err == nil {
		return dto.AssignmentResponse{}, ErrAssignmentExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.AssignmentResponse{}, err
	}

	maxSubmissions := payload.MaxSubmissions
	if maxSubmissions == 0 {
		maxSubmissions = 1
	}

	assignment := models.Assignment{
		LessonID:       lessonID,
		CourseID:       courseID,
		Title:          payload.Title,
		Instructions:   payload.Instructions,
		DueDate:        dueDate,
		MaxSubmissions: maxSubmissions,
	}

	if err := s.assignments.Create(ctx, &assignment); err != nil {
		return dto.AssignmentResponse{}, err
	}

	s.logger.Info().Uint("assignment_id", assignment.ID).Uint("lesson_id", lessonID).Msg("assignment created")

	return dto.NewAssignmentResponse(assignment), nil
}

func (s *assignmentService) Get(ctx context.Context, assignmentID uint) (dto.AssignmentResponse, error) {
	assignment, err := s.assignments.GetByID(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AssignmentResponse{}, ErrAssignmentNotFound
		}
		return dto.AssignmentResponse{}, err
	}

	return dto.NewAssignmentResponse(assignment), nil
}

func (s *assignmentService) Submit(ctx context.Context, assignmentID, studentID uint, payload dto.SubmissionCreateRequest, file *multipart.FileHeader) (dto.SubmissionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, err
	}

	if file == nil && payload.TextResponse == "" {
		return dto.SubmissionResponse{}, fmt.Errorf("a file or text response is required")
	}

	assignment, err := s.assignments.GetByID(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, ErrAssignmentNotFound
		}
		return dto.SubmissionResponse{}, err
	}

	submission := models.Submission{
		AssignmentID: assignmentID,
		StudentID:    studentID,
	}

	existing, err := s.assignments.GetSubmissionByAssignmentAndStudent(ctx, assignmentID, studentID)
	switch {
	case err == nil:
		if existing.IsGraded() && assignment.MaxSubmissions <= 1 {
			return dto.SubmissionResponse{}, ErrAlreadySubmitted
		}
		// Resubmission overwrites the existing row.
		submission = existing
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		return dto.SubmissionResponse{}, err
	}

	if file != nil {
		if err := validateSubmissionFile(file); err != nil {
			return dto.SubmissionResponse{}, err
		}

		reader, err := file.Open()
		if err != nil {
			return dto.SubmissionResponse{}, fmt.Errorf("failed to open file: %w", err)
		}
		defer reader.Close()

		url, err := s.uploader.Upload(ctx, file.Filename, reader)
		if err != nil {
			return dto.SubmissionResponse{}, fmt.Errorf("failed to upload file: %w", err)
		}
		submission.FileURL = url
	}

	submission.TextResponse = payload.TextResponse
	submission.Status = models.SubmissionStatusSubmitted
	submission.IsLate = assignment.IsPastDue(s.now())
	submission.Grade = nil
	submission.GradedBy = nil
	submission.GradedDate = nil
	submission.Feedback = ""

	if err := s.assignments.SaveSubmission(ctx, &submission); err != nil {
		return dto.SubmissionResponse{}, err
	}

	created, err := s.assignments.GetSubmissionByID(ctx, submission.ID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	s.logger.Info().Uint("submission_id", created.ID).Bool("is_late", created.IsLate).Msg("submission received")

	return dto.NewSubmissionResponse(created), nil
}

func (s *assignmentService) Grade(ctx context.Context, submissionID uint, payload dto.GradeRequest, actor Actor) (dto.SubmissionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, err
	}

	submission, err := s.assignments.GetSubmissionByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, ErrSubmissionNotFound
		}
		return dto.SubmissionResponse{}, err
	}

	course, err := s.courses.GetByID(ctx, submission.Assignment.CourseID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	if !actor.IsAdmin() && course.InstructorID != actor.ID {
		return dto.SubmissionResponse{}, ErrNotCourseOwner
	}

	grade := payload.Grade
	gradedAt := s.now()
	gradedBy := actor.ID

	submission.Grade = &grade
	submission.Feedback = payload.Feedback
	submission.Status = models.SubmissionStatusGraded
	submission.GradedBy = &gradedBy
	submission.GradedDate = &gradedAt

	if err := s.assignments.SaveSubmission(ctx, &submission); err != nil {
		return dto.SubmissionResponse{}, err
	}

	s.logger.Info().Uint("submission_id", submission.ID).Float64("grade", grade).Msg("submission graded")

	if s.notifier != nil && submission.Student.ID != 0 {
		s.notifier.Enqueue(ctx, Notification{
			Topic:     "submission.graded",
			Recipient: submission.Student.Email,
			Subject:   "Your assignment has been graded",
			Body:      fmt.Sprintf("<p>Your submission for <b>%s</b> received a grade of %.1f.</p>", submission.Assignment.Title, grade),
			Payload:   map[string]interface{}{"submission_id": submission.ID, "grade": grade},
		})
	}

	return dto.NewSubmissionResponse(submission), nil
}

func (s *assignmentService) ListSubmissions(ctx context.Context, filter repository.SubmissionFilter, actor Actor) ([]dto.SubmissionResponse, error) {
	if filter.AssignmentID != nil {
		assignment, err := s.assignments.GetByID(ctx, *filter.AssignmentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrAssignmentNotFound
			}
			return nil, err
		}

		course, err := s.courses.GetByID(ctx, assignment.CourseID)
		if err != nil {
			return nil, err
		}

		if !actor.IsAdmin() && course.InstructorID != actor.ID {
			return nil, ErrNotCourseOwner
		}
	}

	submissions, err := s.assignments.ListSubmissions(ctx, filter)
	if err != nil {
		return nil, err
	}

	return dto.NewSubmissionResponseSlice(submissions), nil
}

func validateSubmissionFile(file *multipart.FileHeader) error {
	reader, err := file.Open()
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer reader.Close()

	mime, err := mimetype.DetectReader(reader)
	if err != nil {
		return fmt.Errorf("failed to detect file type: %w", err)
	}

	allowed := []string{"application/pdf", "application/zip", "application/x-zip-compressed", "text/plain"}
	for _, a := range allowed {
		if mime.Is(a) {
			return nil
		}
	}

	return fmt.Errorf("unsupported file type: %s", mime.String())
}
