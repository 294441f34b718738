package dto

import (
	"time"

	"github.com/edustack/lms-api/internal/models"
)

// EnrollmentResponse serializes an enrollment with course and student summaries.
type EnrollmentResponse struct {
	ID                 uint         `json:"id"`
	Status             string       `json:"status"`
	ProgressPercentage int          `json:"progress_percentage"`
	CompletedLessons   []uint       `json:"completed_lessons"`
	CompletionDate     *time.Time   `json:"completion_date"`
	CertificateID      string       `json:"certificate_id,omitempty"`
	Student            UserResponse `json:"student"`
	Course             CourseLite   `json:"course"`
	CreatedAt          time.Time    `json:"created_at"`
	UpdatedAt          time.Time    `json:"updated_at"`
}

// LessonCompletionResponse is returned after marking a lesson complete.
type LessonCompletionResponse struct {
	LessonID           uint       `json:"lesson_id"`
	CourseID           uint       `json:"course_id"`
	IsCompleted        bool       `json:"is_completed"`
	CompletedDate      *time.Time `json:"completed_date"`
	ProgressPercentage int        `json:"progress_percentage"`
	CourseCompleted    bool       `json:"course_completed"`
}

// CourseProgressResponse summarizes a student's progress within one course.
type CourseProgressResponse struct {
	CourseID           uint       `json:"course_id"`
	Status             string     `json:"status"`
	ProgressPercentage int        `json:"progress_percentage"`
	CompletedLessons   int        `json:"completed_lessons"`
	TotalLessons       int        `json:"total_lessons"`
	CompletionDate     *time.Time `json:"completion_date"`
}

// NewEnrollmentResponse converts an Enrollment model into a DTO.
func NewEnrollmentResponse(model models.Enrollment) EnrollmentResponse {
	response := EnrollmentResponse{
		ID:                 model.ID,
		Status:             model.Status,
		ProgressPercentage: model.ProgressPercentage,
		CompletedLessons:   model.CompletedLessons,
		CompletionDate:     model.CompletionDate,
		CertificateID:      model.CertificateID,
		CreatedAt:          model.CreatedAt,
		UpdatedAt:          model.UpdatedAt,
	}

	if response.CompletedLessons == nil {
		response.CompletedLessons = []uint{}
	}

	if model.Student.ID != 0 {
		response.Student = NewUserResponse(model.Student)
	}

	if model.Course.ID != 0 {
		response.Course = NewCourseLite(model.Course)
	}

	return response
}

// NewEnrollmentResponseSlice converts enrollment models into DTOs.
func NewEnrollmentResponseSlice(enrollments []models.Enrollment) []EnrollmentResponse {
	responses := make([]EnrollmentResponse, 0, len(enrollments))
	for _, enrollment := range enrollments {
		responses = append(responses, NewEnrollmentResponse(enrollment))
	}

	return responses
}
