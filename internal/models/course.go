package models

import "time"

// Course is the top level catalog entity owned by an instructor.
type Course struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	Title           string         `gorm:"size:255;not null" json:"title"`
	Description     string         `gorm:"type:text" json:"description"`
	Category        string         `gorm:"size:128;index" json:"category"`
	ThumbnailURL    string         `gorm:"size:512" json:"thumbnail_url"`
	InstructorID    uint           `gorm:"not null;index" json:"instructor_id"`
	Status          string         `gorm:"size:32;not null;default:draft" json:"status"`
	EnrollmentCount int64          `gorm:"not null;default:0" json:"enrollment_count"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	Instructor      User           `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"instructor"`
	Modules         []CourseModule `json:"modules,omitempty"`
}

const (
	// CourseStatusDraft marks a course not yet visible to students.
	CourseStatusDraft = "draft"
	// CourseStatusPublished marks a course open for enrollment.
	CourseStatusPublished = "published"
)

// IsPublished reports whether students may enroll in the course.
func (c Course) IsPublished() bool {
	return c.Status == CourseStatusPublished
}

// CourseModule groups lessons inside a course. Order is advisory.
type CourseModule struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CourseID  uint      `gorm:"not null;index" json:"course_id"`
	Title     string    `gorm:"size:255;not null" json:"title"`
	Order     int       `gorm:"column:position;not null;default:0" json:"order"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Lessons   []Lesson  `gorm:"foreignKey:ModuleID" json:"lessons,omitempty"`
}

// Lesson is a single unit of course content.
type Lesson struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	ModuleID      uint      `gorm:"not null;index" json:"module_id"`
	CourseID      uint      `gorm:"not null;index" json:"course_id"`
	Title         string    `gorm:"size:255;not null" json:"title"`
	Type          string    `gorm:"size:32;not null" json:"type"`
	Content       string    `gorm:"type:text" json:"content"`
	VideoURL      string    `gorm:"size:512" json:"video_url"`
	AttachmentURL string    `gorm:"size:512" json:"attachment_url"`
	Order         int       `gorm:"column:position;not null;default:0" json:"order"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

const (
	// LessonTypeVideo is a streamed video lesson.
	LessonTypeVideo = "video"
	// LessonTypeText is a rich-text reading lesson.
	LessonTypeText = "text"
	// LessonTypeQuiz carries an attached quiz.
	LessonTypeQuiz = "quiz"
	// LessonTypeAssignment carries an attached assignment.
	LessonTypeAssignment = "assignment"
)

// ValidLessonType reports whether t is one of the supported lesson types.
func ValidLessonType(t string) bool {
	switch t {
	case LessonTypeVideo, LessonTypeText, LessonTypeQuiz, LessonTypeAssignment:
		return true
	default:
		return false
	}
}
