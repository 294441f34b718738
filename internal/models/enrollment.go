package models

import (
	"time"

	"gorm.io/datatypes"
)

// Enrollment links a student to a course and carries the approval and
// completion state for that relationship.
type Enrollment struct {
	ID                 uint                      `gorm:"primaryKey" json:"id"`
	StudentID          uint                      `gorm:"not null;uniqueIndex:idx_enrollment_student_course" json:"student_id"`
	CourseID           uint                      `gorm:"not null;uniqueIndex:idx_enrollment_student_course" json:"course_id"`
	Status             string                    `gorm:"size:32;not null;default:pending_approval" json:"status"`
	ProgressPercentage int                       `gorm:"not null;default:0" json:"progress_percentage"`
	CompletedLessons   datatypes.JSONSlice[uint] `gorm:"type:json" json:"completed_lessons"`
	CompletionDate     *time.Time                `json:"completion_date"`
	CertificateID      string                    `gorm:"size:64" json:"certificate_id"`
	CreatedAt          time.Time                 `json:"created_at"`
	UpdatedAt          time.Time                 `json:"updated_at"`
	Student            User                      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"student"`
	Course             Course                    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"course"`
}

const (
	// EnrollmentStatusPending awaits instructor or admin approval.
	EnrollmentStatusPending = "pending_approval"
	// EnrollmentStatusActive grants access to course content.
	EnrollmentStatusActive = "active"
	// EnrollmentStatusCompleted is reached when progress hits 100 percent.
	EnrollmentStatusCompleted = "completed"
	// EnrollmentStatusDropped marks a student who left the course.
	EnrollmentStatusDropped = "dropped"
	// EnrollmentStatusRejected is the terminal state of a denied request.
	EnrollmentStatusRejected = "rejected"
)

// IsPending reports whether the enrollment still awaits a decision.
func (e Enrollment) IsPending() bool {
	return e.Status == EnrollmentStatusPending
}

// AllowsLessonCompletion reports whether lesson completion events are
// accepted for this enrollment. Completed stays accepted so re-watching
// the final lesson remains idempotent instead of erroring.
func (e Enrollment) AllowsLessonCompletion() bool {
	return e.Status == EnrollmentStatusActive || e.Status == EnrollmentStatusCompleted
}

// HasCompletedLesson reports set membership of a lesson in the completed list.
func (e Enrollment) HasCompletedLesson(lessonID uint) bool {
	for _, id := range e.CompletedLessons {
		if id == lessonID {
			return true
		}
	}
	return false
}

// AddCompletedLesson appends a lesson id with set semantics.
func (e *Enrollment) AddCompletedLesson(lessonID uint) {
	if e.HasCompletedLesson(lessonID) {
		return
	}
	e.CompletedLessons = append(e.CompletedLessons, lessonID)
}

// LessonProgress is the per-student completion marker for a single lesson.
// Rows are created lazily on the first completion event.
type LessonProgress struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	LessonID      uint       `gorm:"not null;uniqueIndex:idx_progress_lesson_student" json:"lesson_id"`
	StudentID     uint       `gorm:"not null;uniqueIndex:idx_progress_lesson_student" json:"student_id"`
	CourseID      uint       `gorm:"not null;index" json:"course_id"`
	IsCompleted   bool       `gorm:"not null;default:false" json:"is_completed"`
	CompletedDate *time.Time `json:"completed_date"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}
