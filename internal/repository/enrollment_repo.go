package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/edustack/lms-api/internal/models"
)

// EnrollmentRepository defines persistence operations for enrollments.
type EnrollmentRepository interface {
	Create(ctx context.Context, enrollment *models.Enrollment) error
	CreateApproved(ctx context.Context, enrollment *models.Enrollment) error
	GetByID(ctx context.Context, id uint) (models.Enrollment, error)
	GetByStudentAndCourse(ctx context.Context, studentID, courseID uint) (models.Enrollment, error)
	ListByStudent(ctx context.Context, studentID uint) ([]models.Enrollment, error)
	ListPending(ctx context.Context, instructorID uint) ([]models.Enrollment, error)
	Update(ctx context.Context, enrollment *models.Enrollment) error
	Approve(ctx context.Context, enrollment *models.Enrollment) error
	CountByStatus(ctx context.Context, status string) (int64, error)
}

type enrollmentRepository struct {
	db *gorm.DB
}

// NewEnrollmentRepository instantiates a GORM-backed repository.
func NewEnrollmentRepository(db *gorm.DB) EnrollmentRepository {
	return &enrollmentRepository{db: db}
}

func (r *enrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	return r.db.WithContext(ctx).Create(enrollment).Error
}

// CreateApproved inserts an enrollment that starts active (auto-approve mode)
// and bumps the course counter in the same transaction.
func (r *enrollmentRepository) CreateApproved(ctx context.Context, enrollment *models.Enrollment) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(enrollment).Error; err != nil {
			return err
		}

		return incrementEnrollmentCount(tx, enrollment.CourseID)
	})
}

func (r *enrollmentRepository) GetByID(ctx context.Context, id uint) (models.Enrollment, error) {
	var enrollment models.Enrollment
	err := r.db.WithContext(ctx).
		Preload("Student").
		Preload("Course").
		First(&enrollment, id).Error
	if err != nil {
		return models.Enrollment{}, err
	}

	return enrollment, nil
}

func (r *enrollmentRepository) GetByStudentAndCourse(ctx context.Context, studentID, courseID uint) (models.Enrollment, error) {
	var enrollment models.Enrollment
	err := r.db.WithContext(ctx).
		Where("student_id = ? AND course_id = ?", studentID, courseID).
		First(&enrollment).Error
	if err != nil {
		return models.Enrollment{}, err
	}

	return enrollment, nil
}

func (r *enrollmentRepository) ListByStudent(ctx context.Context, studentID uint) ([]models.Enrollment, error) {
	var enrollments []models.Enrollment
	err := r.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Preload("Course").
		Order("created_at DESC").
		Find(&enrollments).Error
	if err != nil {
		return nil, err
	}

	return enrollments, nil
}

// ListPending returns pending enrollments. A non-zero instructorID narrows the
// queue to courses owned by that instructor.
func (r *enrollmentRepository) ListPending(ctx context.Context, instructorID uint) ([]models.Enrollment, error) {
	query := r.db.WithContext(ctx).
		Where("enrollments.status = ?", models.EnrollmentStatusPending)

	if instructorID != 0 {
		query = query.
			Joins("JOIN courses ON courses.id = enrollments.course_id").
			Where("courses.instructor_id = ?", instructorID)
	}

	var enrollments []models.Enrollment
	err := query.
		Preload("Student").
		Preload("Course").
		Order("enrollments.created_at ASC").
		Find(&enrollments).Error
	if err != nil {
		return nil, err
	}

	return enrollments, nil
}

func (r *enrollmentRepository) Update(ctx context.Context, enrollment *models.Enrollment) error {
	return r.db.WithContext(ctx).Save(enrollment).Error
}

// Approve persists the active status and increments the course enrollment
// counter with a SQL expression so concurrent approvals never lose updates.
func (r *enrollmentRepository) Approve(ctx context.Context, enrollment *models.Enrollment) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(enrollment).Error; err != nil {
			return err
		}

		return incrementEnrollmentCount(tx, enrollment.CourseID)
	})
}

func (r *enrollmentRepository) CountByStatus(ctx context.Context, status string) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.Enrollment{}).
		Where("status = ?", status).
		Count(&total).Error
	return total, err
}

func incrementEnrollmentCount(tx *gorm.DB, courseID uint) error {
	return tx.Model(&models.Course{}).
		Where("id = ?", courseID).
		UpdateColumn("enrollment_count", gorm.Expr("enrollment_count + ?", 1)).Error
}
