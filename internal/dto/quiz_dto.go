package dto

import (
	"time"

	"github.com/edustack/lms-api/internal/models"
)

// QuizQuestionInput is one question of a quiz creation payload.
type QuizQuestionInput struct {
	ID            string   `json:"id" validate:"required,min=1,max=64"`
	Text          string   `json:"text" validate:"required,min=1"`
	Type          string   `json:"type" validate:"required,oneof=multiple_choice true_false short_answer"`
	Options       []string `json:"options" validate:"omitempty,dive,min=1"`
	CorrectAnswer string   `json:"correct_answer" validate:"required"`
	Points        float64  `json:"points" validate:"omitempty,gte=0"`
}

// QuizCreateRequest attaches a quiz to a quiz-type lesson.
type QuizCreateRequest struct {
	Title           string              `json:"title" validate:"required,min=2,max=255"`
	Questions       []QuizQuestionInput `json:"questions" validate:"required,min=1,dive"`
	PassingScore    int                 `json:"passing_score" validate:"omitempty,gte=0,lte=100"`
	AttemptsAllowed int                 `json:"attempts_allowed" validate:"omitempty,gte=1"`
	TimeLimitSec    int                 `json:"time_limit_sec" validate:"omitempty,gte=0"`
}

// QuizAnswerInput matches a submitted answer to its question by id.
type QuizAnswerInput struct {
	QuestionID string `json:"question_id" validate:"required"`
	Answer     string `json:"answer"`
}

// QuizSubmitRequest carries a student's answers for grading.
type QuizSubmitRequest struct {
	Answers      []QuizAnswerInput `json:"answers" validate:"required,min=1,dive"`
	TimeTakenSec int               `json:"time_taken_sec" validate:"omitempty,gte=0"`
}

// QuizResponse is the student-safe view of a quiz: correct answers are
// stripped from the question set.
type QuizResponse struct {
	ID              uint               `json:"id"`
	LessonID        uint               `json:"lesson_id"`
	CourseID        uint               `json:"course_id"`
	Title           string             `json:"title"`
	Questions       []QuizQuestionView `json:"questions"`
	TotalPoints     float64            `json:"total_points"`
	PassingScore    int                `json:"passing_score"`
	AttemptsAllowed int                `json:"attempts_allowed"`
	TimeLimitSec    int                `json:"time_limit_sec"`
	CreatedAt       time.Time          `json:"created_at"`
}

// QuizQuestionView is a question without its correct answer.
type QuizQuestionView struct {
	ID      string   `json:"id"`
	Text    string   `json:"text"`
	Type    string   `json:"type"`
	Options []string `json:"options,omitempty"`
	Points  float64  `json:"points"`
}

// QuizAttemptResponse serializes a graded attempt.
type QuizAttemptResponse struct {
	ID            uint      `json:"id"`
	QuizID        uint      `json:"quiz_id"`
	StudentID     uint      `json:"student_id"`
	Score         float64   `json:"score"`
	Percentage    int       `json:"percentage"`
	Status        string    `json:"status"`
	AttemptNumber int       `json:"attempt_number"`
	TimeTakenSec  int       `json:"time_taken_sec"`
	CreatedAt     time.Time `json:"created_at"`
}

// NewQuizResponse converts a Quiz model into its student-safe DTO.
func NewQuizResponse(model models.Quiz) (QuizResponse, error) {
	questions, err := model.QuestionSet()
	if err != nil {
		return QuizResponse{}, err
	}

	views := make([]QuizQuestionView, 0, len(questions))
	for _, question := range questions {
		views = append(views, QuizQuestionView{
			ID:      question.ID,
			Text:    question.Text,
			Type:    question.Type,
			Options: question.Options,
			Points:  question.Points,
		})
	}

	return QuizResponse{
		ID:              model.ID,
		LessonID:        model.LessonID,
		CourseID:        model.CourseID,
		Title:           model.Title,
		Questions:       views,
		TotalPoints:     model.TotalPoints,
		PassingScore:    model.PassingScore,
		AttemptsAllowed: model.AttemptsAllowed,
		TimeLimitSec:    model.TimeLimitSec,
		CreatedAt:       model.CreatedAt,
	}, nil
}

// NewQuizAttemptResponse converts a QuizAttempt model into a DTO.
func NewQuizAttemptResponse(model models.QuizAttempt) QuizAttemptResponse {
	return QuizAttemptResponse{
		ID:            model.ID,
		QuizID:        model.QuizID,
		StudentID:     model.StudentID,
		Score:         model.Score,
		Percentage:    model.Percentage,
		Status:        model.Status,
		AttemptNumber: model.AttemptNumber,
		TimeTakenSec:  model.TimeTakenSec,
		CreatedAt:     model.CreatedAt,
	}
}
