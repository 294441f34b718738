package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/edustack/lms-api/internal/dto"
	"github.com/edustack/lms-api/internal/models"
	"github.com/edustack/lms-api/internal/repository"
)

// ErrNotEnrolled indicates the student has no enrollment for the course.
var ErrNotEnrolled = errors.New("not enrolled in course")

// ErrEnrollmentNotActive indicates the enrollment does not accept lesson
// completion events in its current status.
var ErrEnrollmentNotActive = errors.New("enrollment not active")

// ProgressService records lesson completions and maintains enrollment progress.
type ProgressService interface {
	CompleteLesson(ctx context.Context, studentID, courseID, lessonID uint) (dto.LessonCompletionResponse, error)
}

type progressService struct {
	progress    repository.ProgressRepository
	enrollments repository.EnrollmentRepository
	courses     repository.CourseRepository
	notifier    Notifier
	locks       *keyedLocks
	logger      zerolog.Logger
	now         func() time.Time
}

// NewProgressService constructs a ProgressService instance.
func NewProgressService(progress repository.ProgressRepository, enrollments repository.EnrollmentRepository, courses repository.CourseRepository, notifier Notifier, logger zerolog.Logger) ProgressService {
	return &progressService{
		progress:    progress,
		enrollments: enrollments,
		courses:     courses,
		notifier:    notifier,
		locks:       newKeyedLocks(),
		logger:      logger.With().Str("component", "progress_service").Logger(),
		now:         time.Now,
	}
}

func (s *progressService) CompleteLesson(ctx context.Context, studentID, courseID, lessonID uint) (dto.LessonCompletionResponse, error) {
	lesson, err := s.courses.GetLessonByID(ctx, lessonID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.LessonCompletionResponse{}, ErrLessonNotFound
		}
		return dto.LessonCompletionResponse{}, err
	}

	if lesson.CourseID != courseID {
		return dto.LessonCompletionResponse{}, ErrLessonNotFound
	}

	// Serialize the recompute per (student, course) so concurrent
	// completions cannot lose progress updates.
	unlock := s.locks.lock(fmt.Sprintf("%d:%d", studentID, courseID))
	defer unlock()

	enrollment, err := s.enrollments.GetByStudentAndCourse(ctx, studentID, courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.LessonCompletionResponse{}, ErrNotEnrolled
		}
		return dto.LessonCompletionResponse{}, err
	}

	if !enrollment.AllowsLessonCompletion() {
		return dto.LessonCompletionResponse{}, ErrEnrollmentNotActive
	}

	completedAt := s.now()
	progress := models.LessonProgress{
		LessonID:      lessonID,
		StudentID:     studentID,
		CourseID:      courseID,
		IsCompleted:   true,
		CompletedDate: &completedAt,
	}

	if err := s.progress.Upsert(ctx, &progress); err != nil {
		return dto.LessonCompletionResponse{}, err
	}

	completed, err := s.progress.CountCompleted(ctx, studentID, courseID)
	if err != nil {
		return dto.LessonCompletionResponse{}, err
	}

	total, err := s.courses.CountLessons(ctx, courseID)
	if err != nil {
		return dto.LessonCompletionResponse{}, err
	}

	percentage := 0
	if total > 0 {
		percentage = int(math.Round(100 * float64(completed) / float64(total)))
	}

	enrollment.AddCompletedLesson(lessonID)

	// Progress never regresses, even if the course gained lessons after
	// earlier completions pushed the stored value higher.
	if percentage > enrollment.ProgressPercentage {
		enrollment.ProgressPercentage = percentage
	}

	courseCompleted := false
	if percentage == 100 && enrollment.Status != models.EnrollmentStatusCompleted {
		enrollment.Status = models.EnrollmentStatusCompleted
		enrollment.CompletionDate = &completedAt
		courseCompleted = true
	}

	if err := s.enrollments.Update(ctx, &enrollment); err != nil {
		return dto.LessonCompletionResponse{}, err
	}

	s.logger.Info().
		Uint("student_id", studentID).
		Uint("course_id", courseID).
		Uint("lesson_id", lessonID).
		Int("percentage", enrollment.ProgressPercentage).
		Msg("lesson completed")

	if courseCompleted && s.notifier != nil {
		student, err := s.usersEmail(ctx, enrollment)
		if err == nil && student != "" {
			s.notifier.Enqueue(ctx, Notification{
				Topic:     "course.completed",
				Recipient: student,
				Subject:   "Course completed",
				Body:      "<p>Congratulations, you finished the course. Your certificate is ready to be generated.</p>",
				Payload:   map[string]interface{}{"enrollment_id": enrollment.ID, "course_id": courseID},
			})
		}
	}

	return dto.LessonCompletionResponse{
		LessonID:           lessonID,
		CourseID:           courseID,
		IsCompleted:        true,
		CompletedDate:      &completedAt,
		ProgressPercentage: enrollment.ProgressPercentage,
		CourseCompleted:    courseCompleted,
	}, nil
}

func (s *progressService) usersEmail(ctx context.Context, enrollment models.Enrollment) (string, error) {
	if enrollment.Student.ID != 0 {
		return enrollment.Student.Email, nil
	}

	full, err := s.enrollments.GetByID(ctx, enrollment.ID)
	if err != nil {
		return "", err
	}

	return full.Student.Email, nil
}

// keyedLocks hands out one mutex per key. Entries are kept for the process
// lifetime; the key space is bounded by (students x courses) seen per node.
type keyedLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedLocks() *keyedLocks {
	return &keyedLocks{locks: make(map[string]*sync.Mutex)}
}

func (k *keyedLocks) lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
