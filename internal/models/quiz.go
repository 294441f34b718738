package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Quiz is a question set attached to a quiz-type lesson.
type Quiz struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	LessonID        uint           `gorm:"not null;uniqueIndex" json:"lesson_id"`
	CourseID        uint           `gorm:"not null;index" json:"course_id"`
	Title           string         `gorm:"size:255;not null" json:"title"`
	Questions       datatypes.JSON `gorm:"type:json" json:"questions"`
	TotalPoints     float64        `gorm:"not null;default:0" json:"total_points"`
	PassingScore    int            `gorm:"not null;default:60" json:"passing_score"`
	AttemptsAllowed int            `gorm:"not null;default:1" json:"attempts_allowed"`
	TimeLimitSec    int            `gorm:"not null;default:0" json:"time_limit_sec"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// QuizQuestion is one entry of the JSON question set.
type QuizQuestion struct {
	ID            string   `json:"id"`
	Text          string   `json:"text"`
	Type          string   `json:"type"`
	Options       []string `json:"options,omitempty"`
	CorrectAnswer string   `json:"correct_answer"`
	Points        float64  `json:"points"`
}

// QuestionSet decodes the stored question set.
func (q Quiz) QuestionSet() ([]QuizQuestion, error) {
	if len(q.Questions) == 0 {
		return nil, nil
	}

	var questions []QuizQuestion
	if err := json.Unmarshal(q.Questions, &questions); err != nil {
		return nil, err
	}

	return questions, nil
}

// QuizAttempt records one graded submission of answers against a quiz.
type QuizAttempt struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	QuizID        uint           `gorm:"not null;index" json:"quiz_id"`
	StudentID     uint           `gorm:"not null;index" json:"student_id"`
	CourseID      uint           `gorm:"not null;index" json:"course_id"`
	Score         float64        `gorm:"not null;default:0" json:"score"`
	Percentage    int            `gorm:"not null;default:0" json:"percentage"`
	Status        string         `gorm:"size:32;not null" json:"status"`
	AttemptNumber int            `gorm:"not null;default:1" json:"attempt_number"`
	TimeTakenSec  int            `gorm:"not null;default:0" json:"time_taken_sec"`
	Answers       datatypes.JSON `gorm:"type:json" json:"answers"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

const (
	// QuizAttemptStatusPassed indicates the percentage met the passing score.
	QuizAttemptStatusPassed = "passed"
	// QuizAttemptStatusFailed indicates the percentage fell short.
	QuizAttemptStatusFailed = "failed"
)
