package dto

import (
	"time"

	"github.com/edustack/lms-api/internal/models"
)

// AssignmentCreateRequest attaches an assignment to an assignment-type lesson.
type AssignmentCreateRequest struct {
	Title          string `json:"title" validate:"required,min=2,max=255"`
	Instructions   string `json:"instructions" validate:"omitempty"`
	DueDate        string `json:"due_date" validate:"required"`
	MaxSubmissions int    `json:"max_submissions" validate:"omitempty,gte=1"`
}

// SubmissionCreateRequest describes the multipart payload for a submission.
type SubmissionCreateRequest struct {
	TextResponse string `form:"text_response" validate:"omitempty,max=50000"`
}

// GradeRequest records an instructor grade on a submission.
type GradeRequest struct {
	Grade    float64 `json:"grade" validate:"gte=0,lte=100"`
	Feedback string  `json:"feedback" validate:"omitempty,max=10000"`
}

// AssignmentResponse serializes an assignment.
type AssignmentResponse struct {
	ID             uint      `json:"id"`
	LessonID       uint      `json:"lesson_id"`
	CourseID       uint      `json:"course_id"`
	Title          string    `json:"title"`
	Instructions   string    `json:"instructions"`
	DueDate        time.Time `json:"due_date"`
	MaxSubmissions int       `json:"max_submissions"`
	FileURL        string    `json:"file_url"`
	CreatedAt      time.Time `json:"created_at"`
}

// SubmissionResponse serializes a submission with its summaries.
type SubmissionResponse struct {
	ID           uint           `json:"id"`
	AssignmentID uint           `json:"assignment_id"`
	StudentID    uint           `json:"student_id"`
	FileURL      string         `json:"file_url"`
	TextResponse string         `json:"text_response"`
	Status       string         `json:"status"`
	Grade        *float64       `json:"grade"`
	Feedback     string         `json:"feedback"`
	GradedBy     *uint          `json:"graded_by"`
	GradedDate   *time.Time     `json:"graded_date"`
	IsLate       bool           `json:"is_late"`
	Assignment   AssignmentLite `json:"assignment"`
	Student      UserResponse   `json:"student"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// AssignmentLite summarizes an assignment in submission responses.
type AssignmentLite struct {
	ID      uint      `json:"id"`
	Title   string    `json:"title"`
	DueDate time.Time `json:"due_date"`
}

// NewAssignmentResponse converts an Assignment model into a DTO.
func NewAssignmentResponse(model models.Assignment) AssignmentResponse {
	return AssignmentResponse{
		ID:             model.ID,
		LessonID:       model.LessonID,
		CourseID:       model.CourseID,
		Title:          model.Title,
		Instructions:   model.Instructions,
		DueDate:        model.DueDate,
		MaxSubmissions: model.MaxSubmissions,
		FileURL:        model.FileURL,
		CreatedAt:      model.CreatedAt,
	}
}

// NewSubmissionResponse converts a Submission model into a DTO.
func NewSubmissionResponse(model models.Submission) SubmissionResponse {
	response := SubmissionResponse{
		ID:           model.ID,
		AssignmentID: model.AssignmentID,
		StudentID:    model.StudentID,
		FileURL:      model.FileURL,
		TextResponse: model.TextResponse,
		Status:       model.Status,
		Grade:        model.Grade,
		Feedback:     model.Feedback,
		GradedBy:     model.GradedBy,
		GradedDate:   model.GradedDate,
		IsLate:       model.IsLate,
		CreatedAt:    model.CreatedAt,
		UpdatedAt:    model.UpdatedAt,
	}

	if model.Assignment.ID != 0 {
		response.Assignment = AssignmentLite{
			ID:      model.Assignment.ID,
			Title:   model.Assignment.Title,
			DueDate: model.Assignment.DueDate,
		}
	}

	if model.Student.ID != 0 {
		response.Student = NewUserResponse(model.Student)
	}

	return response
}

// NewSubmissionResponseSlice converts submission models into DTOs.
func NewSubmissionResponseSlice(submissions []models.Submission) []SubmissionResponse {
	responses := make([]SubmissionResponse, 0, len(submissions))
	for _, submission := range submissions {
		responses = append(responses, NewSubmissionResponse(submission))
	}

	return responses
}
