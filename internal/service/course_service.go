package service

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/edustack/lms-api/internal/dto"
	"github.com/edustack/lms-api/internal/models"
	"github.com/edustack/lms-api/internal/repository"
)

// ErrCourseNotFound indicates a course could not be located.
var ErrCourseNotFound = errors.New("course not found")

// ErrModuleNotFound indicates a module could not be located.
var ErrModuleNotFound = errors.New("module not found")

// ErrLessonNotFound indicates a lesson could not be located.
var ErrLessonNotFound = errors.New("lesson not found")

// ErrNotCourseOwner indicates the actor neither owns the course nor is admin.
var ErrNotCourseOwner = errors.New("not the course owner")

// ErrCourseAlreadyPublished indicates a repeated publish call.
var ErrCourseAlreadyPublished = errors.New("course already published")

// ErrInvalidLessonType indicates an unsupported lesson type value.
var ErrInvalidLessonType = errors.New("invalid lesson type")

// CourseService manages the course/module/lesson hierarchy.
type CourseService interface {
	Create(ctx context.Context, payload dto.CourseCreateRequest, actor Actor) (dto.CourseResponse, error)
	Get(ctx context.Context, id uint) (dto.CourseResponse, error)
	List(ctx context.Context, filter dto.CourseFilter) ([]dto.CourseResponse, int64, error)
	Update(ctx context.Context, id uint, payload dto.CourseUpdateRequest, actor Actor) (dto.CourseResponse, error)
	Delete(ctx context.Context, id uint, actor Actor) error
	Publish(ctx context.Context, id uint, actor Actor) (dto.CourseResponse, error)

	AddModule(ctx context.Context, courseID uint, payload dto.ModuleCreateRequest, actor Actor) (dto.ModuleResponse, error)
	ListModules(ctx context.Context, courseID uint) ([]dto.ModuleResponse, error)
	AddLesson(ctx context.Context, courseID, moduleID uint, payload dto.LessonCreateRequest, actor Actor) (dto.LessonResponse, error)
	AttachLessonFile(ctx context.Context, courseID, lessonID uint, file *multipart.FileHeader, actor Actor) (dto.LessonResponse, error)
}

type courseService struct {
	courses   repository.CourseRepository
	validator *validator.Validate
	uploader  FileUploader
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
}

// NewCourseService constructs a CourseService instance.
func NewCourseService(courses repository.CourseRepository, validate *validator.Validate, uploader FileUploader, logger zerolog.Logger) CourseService {
	return &courseService{
		courses:   courses,
		validator: validate,
		uploader:  uploader,
		sanitizer: bluemonday.UGCPolicy(),
		logger:    logger.With().Str("component", "course_service").Logger(),
	}
}

func (s *courseService) Create(ctx context.Context, payload dto.CourseCreateRequest, actor Actor) (dto.CourseResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.CourseResponse{}, err
	}

	course := models.Course{
		Title:        payload.Title,
		Description:  s.sanitizer.Sanitize(payload.Description),
		Category:     payload.Category,
		InstructorID: actor.ID,
		Status:       models.CourseStatusDraft,
	}

	if err := s.courses.Create(ctx, &course); err != nil {
		return dto.CourseResponse{}, err
	}

	created, err := s.courses.GetByID(ctx, course.ID)
	if err != nil {
		return dto.CourseResponse{}, err
	}

	s.logger.Info().Uint("course_id", created.ID).Uint("instructor_id", actor.ID).Msg("course created")

	return dto.NewCourseResponse(created), nil
}

func (s *courseService) Get(ctx context.Context, id uint) (dto.CourseResponse, error) {
	course, err := s.courses.GetByIDWithContent(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.CourseResponse{}, ErrCourseNotFound
		}
		return dto.CourseResponse{}, err
	}

	return dto.NewCourseResponse(course), nil
}

func (s *courseService) List(ctx context.Context, filter dto.CourseFilter) ([]dto.CourseResponse, int64, error) {
	if err := s.validator.Struct(filter); err != nil {
		return nil, 0, err
	}

	repoFilter := repository.CourseFilter{
		Search:   filter.Search,
		Category: filter.Category,
		Status:   filter.Status,
		Page:     filter.Page,
		PageSize: filter.PageSize,
	}

	courses, total, err := s.courses.ListWithFilter(ctx, repoFilter)
	if err != nil {
		return nil, 0, err
	}

	return dto.NewCourseResponseSlice(courses), total, nil
}

func (s *courseService) Update(ctx context.Context, id uint, payload dto.CourseUpdateRequest, actor Actor) (dto.CourseResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.CourseResponse{}, err
	}

	course, err := s.ownedCourse(ctx, id, actor)
	if err != nil {
		return dto.CourseResponse{}, err
	}

	if payload.Title != nil {
		course.Title = *payload.Title
	}
	if payload.Description != nil {
		course.Description = s.sanitizer.Sanitize(*payload.Description)
	}
	if payload.Category != nil {
		course.Category = *payload.Category
	}

	if err := s.courses.Update(ctx, &course); err != nil {
		return dto.CourseResponse{}, err
	}

	return dto.NewCourseResponse(course), nil
}

func (s *courseService) Delete(ctx context.Context, id uint, actor Actor) error {
	if _, err := s.ownedCourse(ctx, id, actor); err != nil {
		return err
	}

	return s.courses.Delete(ctx, id)
}

func (s *courseService) Publish(ctx context.Context, id uint, actor Actor) (dto.CourseResponse, error) {
	course, err := s.ownedCourse(ctx, id, actor)
	if err != nil {
		return dto.CourseResponse{}, err
	}

	if course.IsPublished() {
		return dto.CourseResponse{}, ErrCourseAlreadyPublished
	}

	course.Status = models.CourseStatusPublished
	if err := s.courses.Update(ctx, &course); err != nil {
		return dto.CourseResponse{}, err
	}

	s.logger.Info().Uint("course_id", course.ID).Msg("course published")

	return dto.NewCourseResponse(course), nil
}

func (s *courseService) AddModule(ctx context.Context, courseID uint, payload dto.ModuleCreateRequest, actor Actor) (dto.ModuleResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ModuleResponse{}, err
	}

	if _, err := s.ownedCourse(ctx, courseID, actor); err != nil {
		return dto.ModuleResponse{}, err
	}

	module := models.CourseModule{
		CourseID: courseID,
		Title:    payload.Title,
		Order:    payload.Order,
	}

	if err := s.courses.CreateModule(ctx, &module); err != nil {
		return dto.ModuleResponse{}, err
	}

	return dto.NewModuleResponse(module), nil
}

func (s *courseService) ListModules(ctx context.Context, courseID uint) ([]dto.ModuleResponse, error) {
	if _, err := s.courses.GetByID(ctx, courseID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCourseNotFound
		}
		return nil, err
	}

	modules, err := s.courses.ListModules(ctx, courseID)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.ModuleResponse, 0, len(modules))
	for _, module := range modules {
		responses = append(responses, dto.NewModuleResponse(module))
	}

	return responses, nil
}

func (s *courseService) AddLesson(ctx context.Context, courseID, moduleID uint, payload dto.LessonCreateRequest, actor Actor) (dto.LessonResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.LessonResponse{}, err
	}

	if !models.ValidLessonType(payload.Type) {
		return dto.LessonResponse{}, ErrInvalidLessonType
	}

	if _, err := s.ownedCourse(ctx, courseID, actor); err != nil {
		return dto.LessonResponse{}, err
	}

	module, err := s.courses.GetModuleByID(ctx, moduleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.LessonResponse{}, ErrModuleNotFound
		}
		return dto.LessonResponse{}, err
	}

	if module.CourseID != courseID {
		return dto.LessonResponse{}, ErrModuleNotFound
	}

	lesson := models.Lesson{
		ModuleID: module.ID,
		CourseID: courseID,
		Title:    payload.Title,
		Type:     payload.Type,
		Content:  s.sanitizer.Sanitize(payload.Content),
		VideoURL: payload.VideoURL,
		Order:    payload.Order,
	}

	if err := s.courses.CreateLesson(ctx, &lesson); err != nil {
		return dto.LessonResponse{}, err
	}

	return dto.NewLessonResponse(lesson), nil
}

func (s *courseService) AttachLessonFile(ctx context.Context, courseID, lessonID uint, file *multipart.FileHeader, actor Actor) (dto.LessonResponse, error) {
	if file == nil {
		return dto.LessonResponse{}, fmt.Errorf("attachment file is required")
	}

	if _, err := s.ownedCourse(ctx, courseID, actor); err != nil {
		return dto.LessonResponse{}, err
	}

	lesson, err := s.courses.GetLessonByID(ctx, lessonID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.LessonResponse{}, ErrLessonNotFound
		}
		return dto.LessonResponse{}, err
	}

	if lesson.CourseID != courseID {
		return dto.LessonResponse{}, ErrLessonNotFound
	}

	reader, err := file.Open()
	if err != nil {
		return dto.LessonResponse{}, fmt.Errorf("failed to open file: %w", err)
	}
	defer reader.Close()

	url, err := s.uploader.Upload(ctx, file.Filename, reader)
	if err != nil {
		return dto.LessonResponse{}, fmt.Errorf("failed to upload file: %w", err)
	}

	lesson.AttachmentURL = url
	if err := s.courses.UpdateLesson(ctx, &lesson); err != nil {
		return dto.LessonResponse{}, err
	}

	return dto.NewLessonResponse(lesson), nil
}

func (s *courseService) ownedCourse(ctx context.Context, id uint, actor Actor) (models.Course, error) {
	course, err := s.courses.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Course{}, ErrCourseNotFound
		}
		return models.Course{}, err
	}

	if !actor.IsAdmin() && course.InstructorID != actor.ID {
		return models.Course{}, ErrNotCourseOwner
	}

	return course, nil
}
