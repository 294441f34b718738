package models

import "time"

// Assignment is a gradable task attached to an assignment-type lesson.
type Assignment struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	LessonID       uint      `gorm:"not null;uniqueIndex" json:"lesson_id"`
	CourseID       uint      `gorm:"not null;index" json:"course_id"`
	Title          string    `gorm:"size:255;not null" json:"title"`
	Instructions   string    `gorm:"type:text" json:"instructions"`
	DueDate        time.Time `gorm:"not null" json:"due_date"`
	MaxSubmissions int       `gorm:"not null;default:1" json:"max_submissions"`
	FileURL        string    `gorm:"size:512" json:"file_url"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// IsPastDue returns true when the assignment deadline has already passed.
func (a Assignment) IsPastDue(reference time.Time) bool {
	return reference.After(a.DueDate)
}

// Submission represents a student's response to an assignment.
type Submission struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	AssignmentID uint       `gorm:"not null;uniqueIndex:idx_submission_assignment_student" json:"assignment_id"`
	StudentID    uint       `gorm:"not null;uniqueIndex:idx_submission_assignment_student" json:"student_id"`
	FileURL      string     `gorm:"size:512" json:"file_url"`
	TextResponse string     `gorm:"type:text" json:"text_response"`
	Status       string     `gorm:"size:32;not null" json:"status"`
	Grade        *float64   `json:"grade"`
	Feedback     string     `gorm:"type:text" json:"feedback"`
	GradedBy     *uint      `json:"graded_by"`
	GradedDate   *time.Time `json:"graded_date"`
	IsLate       bool       `gorm:"not null;default:false" json:"is_late"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	Assignment   Assignment `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"assignment"`
	Student      User       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"student"`
}

const (
	// SubmissionStatusSubmitted indicates the submission awaits grading.
	SubmissionStatusSubmitted = "submitted"
	// SubmissionStatusGraded indicates the submission has been evaluated.
	SubmissionStatusGraded = "graded"
	// SubmissionStatusPendingReview indicates a flagged submission held back for review.
	SubmissionStatusPendingReview = "pending_review"
)

// IsGraded reports whether the submission has a final grade.
func (s Submission) IsGraded() bool {
	return s.Status == SubmissionStatusGraded
}
