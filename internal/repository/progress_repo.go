package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/edustack/lms-api/internal/models"
)

// ProgressRepository defines persistence operations for lesson progress rows.
type ProgressRepository interface {
	Upsert(ctx context.Context, progress *models.LessonProgress) error
	GetByLessonAndStudent(ctx context.Context, lessonID, studentID uint) (models.LessonProgress, error)
	CountCompleted(ctx context.Context, studentID, courseID uint) (int64, error)
}

type progressRepository struct {
	db *gorm.DB
}

// NewProgressRepository instantiates a GORM-backed repository.
func NewProgressRepository(db *gorm.DB) ProgressRepository {
	return &progressRepository{db: db}
}

// Upsert creates the progress row on first completion and updates the
// completion fields on repeats, keyed by the (lesson, student) unique index.
func (r *progressRepository) Upsert(ctx context.Context, progress *models.LessonProgress) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "lesson_id"}, {Name: "student_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"is_completed", "completed_date", "updated_at"}),
		}).
		Create(progress).Error
}

func (r *progressRepository) GetByLessonAndStudent(ctx context.Context, lessonID, studentID uint) (models.LessonProgress, error) {
	var progress models.LessonProgress
	err := r.db.WithContext(ctx).
		Where("lesson_id = ? AND student_id = ?", lessonID, studentID).
		First(&progress).Error
	if err != nil {
		return models.LessonProgress{}, err
	}

	return progress, nil
}

func (r *progressRepository) CountCompleted(ctx context.Context, studentID, courseID uint) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.LessonProgress{}).
		Where("student_id = ? AND course_id = ? AND is_completed = ?", studentID, courseID, true).
		Count(&total).Error
	return total, err
}
