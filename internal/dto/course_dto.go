package dto

import (
	"time"

	"github.com/edustack/lms-api/internal/models"
)

// CourseCreateRequest describes the payload for course creation.
type CourseCreateRequest struct {
	Title       string `json:"title" validate:"required,min=3,max=255"`
	Description string `json:"description" validate:"omitempty,max=10000"`
	Category    string `json:"category" validate:"omitempty,max=128"`
}

// CourseUpdateRequest mutates an existing course. Nil fields stay untouched.
type CourseUpdateRequest struct {
	Title       *string `json:"title" validate:"omitempty,min=3,max=255"`
	Description *string `json:"description" validate:"omitempty,max=10000"`
	Category    *string `json:"category" validate:"omitempty,max=128"`
}

// CourseFilter describes query string filters for the course catalog.
type CourseFilter struct {
	Search   string `query:"search"`
	Category string `query:"category"`
	Status   string `query:"status" validate:"omitempty,oneof=draft published"`
	Page     int    `query:"page" validate:"omitempty,gte=1"`
	PageSize int    `query:"page_size" validate:"omitempty,gte=1,lte=100"`
}

// ModuleCreateRequest adds a module to a course.
type ModuleCreateRequest struct {
	Title string `json:"title" validate:"required,min=2,max=255"`
	Order int    `json:"order" validate:"omitempty,gte=0"`
}

// LessonCreateRequest adds a lesson to a module.
type LessonCreateRequest struct {
	Title    string `json:"title" validate:"required,min=2,max=255"`
	Type     string `json:"type" validate:"required"`
	Content  string `json:"content" validate:"omitempty"`
	VideoURL string `json:"video_url" validate:"omitempty,url"`
	Order    int    `json:"order" validate:"omitempty,gte=0"`
}

// CourseResponse is the catalog view of a course.
type CourseResponse struct {
	ID              uint             `json:"id"`
	Title           string           `json:"title"`
	Description     string           `json:"description"`
	Category        string           `json:"category"`
	ThumbnailURL    string           `json:"thumbnail_url"`
	Status          string           `json:"status"`
	EnrollmentCount int64            `json:"enrollment_count"`
	Instructor      UserResponse     `json:"instructor"`
	Modules         []ModuleResponse `json:"modules,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// ModuleResponse serializes a course module with its lessons.
type ModuleResponse struct {
	ID      uint             `json:"id"`
	Title   string           `json:"title"`
	Order   int              `json:"order"`
	Lessons []LessonResponse `json:"lessons,omitempty"`
}

// LessonResponse serializes a lesson.
type LessonResponse struct {
	ID            uint   `json:"id"`
	ModuleID      uint   `json:"module_id"`
	CourseID      uint   `json:"course_id"`
	Title         string `json:"title"`
	Type          string `json:"type"`
	Content       string `json:"content"`
	VideoURL      string `json:"video_url"`
	AttachmentURL string `json:"attachment_url"`
	Order         int    `json:"order"`
}

// CourseLite summarizes a course inside other resources.
type CourseLite struct {
	ID       uint   `json:"id"`
	Title    string `json:"title"`
	Category string `json:"category"`
	Status   string `json:"status"`
}

// NewCourseResponse converts a Course model into a DTO.
func NewCourseResponse(model models.Course) CourseResponse {
	response := CourseResponse{
		ID:              model.ID,
		Title:           model.Title,
		Description:     model.Description,
		Category:        model.Category,
		ThumbnailURL:    model.ThumbnailURL,
		Status:          model.Status,
		EnrollmentCount: model.EnrollmentCount,
		CreatedAt:       model.CreatedAt,
		UpdatedAt:       model.UpdatedAt,
	}

	if model.Instructor.ID != 0 {
		response.Instructor = NewUserResponse(model.Instructor)
	}

	if len(model.Modules) > 0 {
		modules := make([]ModuleResponse, 0, len(model.Modules))
		for _, module := range model.Modules {
			modules = append(modules, NewModuleResponse(module))
		}
		response.Modules = modules
	}

	return response
}

// NewCourseResponseSlice converts course models into DTOs.
func NewCourseResponseSlice(courses []models.Course) []CourseResponse {
	responses := make([]CourseResponse, 0, len(courses))
	for _, course := range courses {
		responses = append(responses, NewCourseResponse(course))
	}

	return responses
}

// NewModuleResponse converts a CourseModule model into a DTO.
func NewModuleResponse(model models.CourseModule) ModuleResponse {
	response := ModuleResponse{
		ID:    model.ID,
		Title: model.Title,
		Order: model.Order,
	}

	if len(model.Lessons) > 0 {
		lessons := make([]LessonResponse, 0, len(model.Lessons))
		for _, lesson := range model.Lessons {
			lessons = append(lessons, NewLessonResponse(lesson))
		}
		response.Lessons = lessons
	}

	return response
}

// NewLessonResponse converts a Lesson model into a DTO.
func NewLessonResponse(model models.Lesson) LessonResponse {
	return LessonResponse{
		ID:            model.ID,
		ModuleID:      model.ModuleID,
		CourseID:      model.CourseID,
		Title:         model.Title,
		Type:          model.Type,
		Content:       model.Content,
		VideoURL:      model.VideoURL,
		AttachmentURL: model.AttachmentURL,
		Order:         model.Order,
	}
}

// NewCourseLite summarizes a course.
func NewCourseLite(model models.Course) CourseLite {
	return CourseLite{
		ID:       model.ID,
		Title:    model.Title,
		Category: model.Category,
		Status:   model.Status,
	}
}
