package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gorm.io/gorm"

	"github.com/edustack/lms-api/internal/dto"
	"github.com/edustack/lms-api/internal/models"
	"github.com/edustack/lms-api/internal/repository"
)

// ErrQuizNotFound indicates a quiz could not be located.
var ErrQuizNotFound = errors.New("quiz not found")

// ErrQuizExists indicates the lesson already carries a quiz.
var ErrQuizExists = errors.New("quiz already exists for lesson")

// ErrLessonNotQuiz indicates the target lesson is not of quiz type.
var ErrLessonNotQuiz = errors.New("lesson is not a quiz lesson")

// ErrInvalidQuestionSet indicates the submitted question set failed schema or
// consistency checks.
var ErrInvalidQuestionSet = errors.New("invalid question set")

// ErrMaxAttemptsExceeded indicates the student used up the allowed attempts.
var ErrMaxAttemptsExceeded = errors.New("maximum attempts exceeded")

// ErrUnknownQuestion indicates an answer references a question id that is not
// part of the quiz.
var ErrUnknownQuestion = errors.New("unknown question id")

// questionSetSchema constrains the JSON question set persisted with a quiz.
const questionSetSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "array",
  "minItems": 1,
  "items": {
    "type": "object",
    "required": ["id", "text", "type", "correct_answer"],
    "properties": {
      "id": {"type": "string", "minLength": 1, "maxLength": 64},
      "text": {"type": "string", "minLength": 1},
      "type": {"enum": ["multiple_choice", "true_false", "short_answer"]},
      "options": {"type": "array", "items": {"type": "string"}},
      "correct_answer": {"type": "string", "minLength": 1},
      "points": {"type": "number", "minimum": 0}
    }
  }
}`

// QuizService manages quiz creation and synchronous grading.
type QuizService interface {
	CreateForLesson(ctx context.Context, courseID, lessonID uint, payload dto.QuizCreateRequest, actor Actor) (dto.QuizResponse, error)
	Get(ctx context.Context, quizID uint) (dto.QuizResponse, error)
	Submit(ctx context.Context, quizID, studentID uint, payload dto.QuizSubmitRequest) (dto.QuizAttemptResponse, error)
	ListAttempts(ctx context.Context, quizID, studentID uint) ([]dto.QuizAttemptResponse, error)
}

type quizService struct {
	quizzes   repository.QuizRepository
	courses   repository.CourseRepository
	validator *validator.Validate
	schema    *jsonschema.Schema
	logger    zerolog.Logger
	now       func() time.Time
}

// NewQuizService constructs a QuizService instance.
func NewQuizService(quizzes repository.QuizRepository, courses repository.CourseRepository, validate *validator.Validate, logger zerolog.Logger) (QuizService, error) {
	schema, err := jsonschema.CompileString("questions.json", questionSetSchema)
	if err != nil {
		return nil, fmt.Errorf("failed to compile question schema: %w", err)
	}

	return &quizService{
		quizzes:   quizzes,
		courses:   courses,
		validator: validate,
		schema:    schema,
		logger:    logger.With().Str("component", "quiz_service").Logger(),
		now:       time.Now,
	}, nil
}

func (s *quizService) CreateForLesson(ctx context.Context, courseID, lessonID uint, payload dto.QuizCreateRequest, actor Actor) (dto.QuizResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.QuizResponse{}, err
	}

	course, err := s.courses.GetByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.QuizResponse{}, ErrCourseNotFound
		}
		return dto.QuizResponse{}, err
	}

	if !actor.IsAdmin() && course.InstructorID != actor.ID {
		return dto.QuizResponse{}, ErrNotCourseOwner
	}

	lesson, err := s.courses.GetLessonByID(ctx, lessonID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.QuizResponse{}, ErrLessonNotFound
		}
		return dto.QuizResponse{}, err
	}

	if lesson.CourseID != courseID {
		return dto.QuizResponse{}, ErrLessonNotFound
	}

	if lesson.Type != models.LessonTypeQuiz {
		return dto.QuizResponse{}, ErrLessonNotQuiz
	}

	if _, err := s.quizzes.GetByLessonID(ctx, lessonID); err == nil {
		return dto.QuizResponse{}, ErrQuizExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.QuizResponse{}, err
	}

	questions, totalPoints, err := s.buildQuestionSet(payload.Questions)
	if err != nil {
		return dto.QuizResponse{}, err
	}

	raw, err := json.Marshal(questions)
	if err != nil {
		return dto.QuizResponse{}, fmt.Errorf("failed to encode questions: %w", err)
	}

	passingScore := payload.PassingScore
	if passingScore == 0 {
		passingScore = 60
	}

	attemptsAllowed := payload.AttemptsAllowed
	if attemptsAllowed == 0 {
		attemptsAllowed = 1
	}

	quiz := models.Quiz{
		LessonID:        lessonID,
		CourseID:        courseID,
		Title:           payload.Title,
		Questions:       raw,
		TotalPoints:     totalPoints,
		PassingScore:    passingScore,
		AttemptsAllowed: attemptsAllowed,
		TimeLimitSec:    payload.TimeLimitSec,
	}

	if err := s.quizzes.Create(ctx, &quiz); err != nil {
		return dto.QuizResponse{}, err
	}

	s.logger.Info().Uint("quiz_id", quiz.ID).Uint("lesson_id", lessonID).Float64("total_points", totalPoints).Msg("quiz created")

	return dto.NewQuizResponse(quiz)
}

// buildQuestionSet validates questions against the JSON schema plus the
// consistency rules the schema cannot express, and applies the default point
// value of 1 to unpointed questions.
func (s *quizService) buildQuestionSet(inputs []dto.QuizQuestionInput) ([]models.QuizQuestion, float64, error) {
	questions := make([]models.QuizQuestion, 0, len(inputs))
	for _, input := range inputs {
		points := input.Points
		if points == 0 {
			points = 1
		}
		questions = append(questions, models.QuizQuestion{
			ID:            input.ID,
			Text:          input.Text,
			Type:          input.Type,
			Options:       input.Options,
			CorrectAnswer: input.CorrectAnswer,
			Points:        points,
		})
	}

	raw, err := json.Marshal(questions)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to encode questions: %w", err)
	}

	var decoded interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, 0, fmt.Errorf("failed to decode questions: %w", err)
	}

	if err := s.schema.Validate(decoded); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrInvalidQuestionSet, err)
	}

	seen := make(map[string]struct{}, len(questions))
	total := 0.0
	for _, question := range questions {
		if _, ok := seen[question.ID]; ok {
			return nil, 0, fmt.Errorf("%w: duplicate question id %q", ErrInvalidQuestionSet, question.ID)
		}
		seen[question.ID] = struct{}{}

		if question.Type == "multiple_choice" {
			if len(question.Options) < 2 {
				return nil, 0, fmt.Errorf("%w: question %q needs at least two options", ErrInvalidQuestionSet, question.ID)
			}
			if !containsString(question.Options, question.CorrectAnswer) {
				return nil, 0, fmt.Errorf("%w: correct answer of question %q is not among its options", ErrInvalidQuestionSet, question.ID)
			}
		}

		total += question.Points
	}

	return questions, total, nil
}

func (s *quizService) Get(ctx context.Context, quizID uint) (dto.QuizResponse, error) {
	quiz, err := s.quizzes.GetByID(ctx, quizID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.QuizResponse{}, ErrQuizNotFound
		}
		return dto.QuizResponse{}, err
	}

	return dto.NewQuizResponse(quiz)
}

func (s *quizService) Submit(ctx context.Context, quizID, studentID uint, payload dto.QuizSubmitRequest) (dto.QuizAttemptResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.QuizAttemptResponse{}, err
	}

	quiz, err := s.quizzes.GetByID(ctx, quizID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.QuizAttemptResponse{}, ErrQuizNotFound
		}
		return dto.QuizAttemptResponse{}, err
	}

	prior, err := s.quizzes.CountAttempts(ctx, quizID, studentID)
	if err != nil {
		return dto.QuizAttemptResponse{}, err
	}

	if prior >= int64(quiz.AttemptsAllowed) {
		return dto.QuizAttemptResponse{}, ErrMaxAttemptsExceeded
	}

	questions, err := quiz.QuestionSet()
	if err != nil {
		return dto.QuizAttemptResponse{}, fmt.Errorf("failed to decode question set: %w", err)
	}

	byID := make(map[string]models.QuizQuestion, len(questions))
	for _, question := range questions {
		byID[question.ID] = question
	}

	// Answers are matched to questions by id; an unknown id fails the whole
	// submission instead of being silently misgraded.
	score := 0.0
	answered := make(map[string]struct{}, len(payload.Answers))
	for _, answer := range payload.Answers {
		question, ok := byID[answer.QuestionID]
		if !ok {
			return dto.QuizAttemptResponse{}, fmt.Errorf("%w: %q", ErrUnknownQuestion, answer.QuestionID)
		}
		if _, ok := answered[answer.QuestionID]; ok {
			return dto.QuizAttemptResponse{}, fmt.Errorf("%w: question %q answered twice", ErrUnknownQuestion, answer.QuestionID)
		}
		answered[answer.QuestionID] = struct{}{}

		if answer.Answer == question.CorrectAnswer {
			score += question.Points
		}
	}

	percentage := 0
	if quiz.TotalPoints > 0 {
		percentage = int(math.Round(100 * score / quiz.TotalPoints))
	}

	status := models.QuizAttemptStatusFailed
	if percentage >= quiz.PassingScore {
		status = models.QuizAttemptStatusPassed
	}

	rawAnswers, err := json.Marshal(payload.Answers)
	if err != nil {
		return dto.QuizAttemptResponse{}, fmt.Errorf("failed to encode answers: %w", err)
	}

	attempt := models.QuizAttempt{
		QuizID:        quizID,
		StudentID:     studentID,
		CourseID:      quiz.CourseID,
		Score:         score,
		Percentage:    percentage,
		Status:        status,
		AttemptNumber: int(prior) + 1,
		TimeTakenSec:  payload.TimeTakenSec,
		Answers:       rawAnswers,
	}

	if err := s.quizzes.CreateAttempt(ctx, &attempt); err != nil {
		return dto.QuizAttemptResponse{}, err
	}

	s.logger.Info().
		Uint("quiz_id", quizID).
		Uint("student_id", studentID).
		Int("attempt", attempt.AttemptNumber).
		Str("status", status).
		Msg("quiz attempt graded")

	return dto.NewQuizAttemptResponse(attempt), nil
}

func (s *quizService) ListAttempts(ctx context.Context, quizID, studentID uint) ([]dto.QuizAttemptResponse, error) {
	attempts, err := s.quizzes.ListAttempts(ctx, quizID, studentID)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.QuizAttemptResponse, 0, len(attempts))
	for _, attempt := range attempts {
		responses = append(responses, dto.NewQuizAttemptResponse(attempt))
	}

	return responses, nil
}

func containsString(values []string, target string) bool {
	for _, value := range values {
		if value == target {
			return true
		}
	}
	return false
}
