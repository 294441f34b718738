package service

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/edustack/lms-api/internal/dto"
	"github.com/edustack/lms-api/internal/models"
)

type quizFixture struct {
	service QuizService
	quizzes *memoryQuizRepo
	courses *memoryCourseRepo
	course  models.Course
	lesson  models.Lesson
}

func newQuizFixture(t *testing.T) *quizFixture {
	t.Helper()

	quizzes := newMemoryQuizRepo()
	courses := newMemoryCourseRepo()

	service, err := NewQuizService(quizzes, courses, validator.New(validator.WithRequiredStructEnabled()), testLogger())
	require.NoError(t, err)

	fixture := &quizFixture{service: service, quizzes: quizzes, courses: courses}

	course := models.Course{Title: "Algorithms", InstructorID: 10, Status: models.CourseStatusPublished}
	require.NoError(t, courses.Create(context.Background(), &course))
	fixture.course = course

	module := models.CourseModule{CourseID: course.ID, Title: "Graphs"}
	require.NoError(t, courses.CreateModule(context.Background(), &module))

	lesson := models.Lesson{ModuleID: module.ID, CourseID: course.ID, Title: "Final quiz", Type: models.LessonTypeQuiz}
	require.NoError(t, courses.CreateLesson(context.Background(), &lesson))
	fixture.lesson = lesson

	return fixture
}

func sampleQuizRequest() dto.QuizCreateRequest {
	return dto.QuizCreateRequest{
		Title: "Graph theory check",
		Questions: []dto.QuizQuestionInput{
			{
				ID:            "q1",
				Text:          "Which traversal uses a queue?",
				Type:          "multiple_choice",
				Options:       []string{"BFS", "DFS"},
				CorrectAnswer: "BFS",
				Points:        2,
			},
			{
				ID:            "q2",
				Text:          "Dijkstra handles negative edges",
				Type:          "true_false",
				CorrectAnswer: "false",
			},
		},
		PassingScore:    60,
		AttemptsAllowed: 2,
	}
}

func (f *quizFixture) createQuiz(t *testing.T) dto.QuizResponse {
	t.Helper()

	quiz, err := f.service.CreateForLesson(context.Background(), f.course.ID, f.lesson.ID, sampleQuizRequest(), Actor{ID: 10, Role: models.RoleInstructor})
	require.NoError(t, err)
	return quiz
}

func TestCreateQuizForLesson(t *testing.T) {
	fixture := newQuizFixture(t)

	quiz := fixture.createQuiz(t)
	require.Equal(t, fixture.lesson.ID, quiz.LessonID)
	require.Equal(t, float64(3), quiz.TotalPoints)
	require.Len(t, quiz.Questions, 2)
}

func TestCreateQuizRequiresQuizLesson(t *testing.T) {
	fixture := newQuizFixture(t)

	video := models.Lesson{ModuleID: 1, CourseID: fixture.course.ID, Title: "Intro", Type: models.LessonTypeVideo}
	require.NoError(t, fixture.courses.CreateLesson(context.Background(), &video))

	_, err := fixture.service.CreateForLesson(context.Background(), fixture.course.ID, video.ID, sampleQuizRequest(), Actor{ID: 10, Role: models.RoleInstructor})
	require.ErrorIs(t, err, ErrLessonNotQuiz)
}

func TestCreateQuizRequiresOwnership(t *testing.T) {
	fixture := newQuizFixture(t)

	_, err := fixture.service.CreateForLesson(context.Background(), fixture.course.ID, fixture.lesson.ID, sampleQuizRequest(), Actor{ID: 55, Role: models.RoleInstructor})
	require.ErrorIs(t, err, ErrNotCourseOwner)
}

func TestCreateQuizRejectsDuplicate(t *testing.T) {
	fixture := newQuizFixture(t)
	fixture.createQuiz(t)

	_, err := fixture.service.CreateForLesson(context.Background(), fixture.course.ID, fixture.lesson.ID, sampleQuizRequest(), Actor{ID: 10, Role: models.RoleInstructor})
	require.ErrorIs(t, err, ErrQuizExists)
}

func TestCreateQuizValidatesQuestionSet(t *testing.T) {
	fixture := newQuizFixture(t)
	actor := Actor{ID: 10, Role: models.RoleInstructor}

	duplicated := sampleQuizRequest()
	duplicated.Questions[1].ID = "q1"
	_, err := fixture.service.CreateForLesson(context.Background(), fixture.course.ID, fixture.lesson.ID, duplicated, actor)
	require.ErrorIs(t, err, ErrInvalidQuestionSet)

	singleOption := sampleQuizRequest()
	singleOption.Questions[0].Options = []string{"BFS"}
	_, err = fixture.service.CreateForLesson(context.Background(), fixture.course.ID, fixture.lesson.ID, singleOption, actor)
	require.ErrorIs(t, err, ErrInvalidQuestionSet)

	strayAnswer := sampleQuizRequest()
	strayAnswer.Questions[0].CorrectAnswer = "A*"
	_, err = fixture.service.CreateForLesson(context.Background(), fixture.course.ID, fixture.lesson.ID, strayAnswer, actor)
	require.ErrorIs(t, err, ErrInvalidQuestionSet)
}

func TestSubmitGradesByQuestionID(t *testing.T) {
	fixture := newQuizFixture(t)
	quiz := fixture.createQuiz(t)

	// Answers arrive out of order; grading matches them by question id.
	attempt, err := fixture.service.Submit(context.Background(), quiz.ID, 42, dto.QuizSubmitRequest{
		Answers: []dto.QuizAnswerInput{
			{QuestionID: "q2", Answer: "false"},
			{QuestionID: "q1", Answer: "BFS"},
		},
	})
	require.NoError(t, err)
	require.Equal(t, float64(3), attempt.Score)
	require.Equal(t, 100, attempt.Percentage)
	require.Equal(t, models.QuizAttemptStatusPassed, attempt.Status)
	require.Equal(t, 1, attempt.AttemptNumber)
}

func TestSubmitFailsBelowPassingScore(t *testing.T) {
	fixture := newQuizFixture(t)
	quiz := fixture.createQuiz(t)

	attempt, err := fixture.service.Submit(context.Background(), quiz.ID, 42, dto.QuizSubmitRequest{
		Answers: []dto.QuizAnswerInput{
			{QuestionID: "q1", Answer: "DFS"},
			{QuestionID: "q2", Answer: "false"},
		},
	})
	require.NoError(t, err)
	require.Equal(t, float64(1), attempt.Score)
	require.Equal(t, 33, attempt.Percentage)
	require.Equal(t, models.QuizAttemptStatusFailed, attempt.Status)
}

func TestSubmitRejectsUnknownQuestion(t *testing.T) {
	fixture := newQuizFixture(t)
	quiz := fixture.createQuiz(t)

	_, err := fixture.service.Submit(context.Background(), quiz.ID, 42, dto.QuizSubmitRequest{
		Answers: []dto.QuizAnswerInput{{QuestionID: "q9", Answer: "BFS"}},
	})
	require.ErrorIs(t, err, ErrUnknownQuestion)
}

func TestSubmitRejectsDuplicateAnswer(t *testing.T) {
	fixture := newQuizFixture(t)
	quiz := fixture.createQuiz(t)

	_, err := fixture.service.Submit(context.Background(), quiz.ID, 42, dto.QuizSubmitRequest{
		Answers: []dto.QuizAnswerInput{
			{QuestionID: "q1", Answer: "BFS"},
			{QuestionID: "q1", Answer: "DFS"},
		},
	})
	require.ErrorIs(t, err, ErrUnknownQuestion)
}

func TestSubmitEnforcesAttemptLimit(t *testing.T) {
	fixture := newQuizFixture(t)
	quiz := fixture.createQuiz(t)

	submission := dto.QuizSubmitRequest{
		Answers: []dto.QuizAnswerInput{{QuestionID: "q1", Answer: "BFS"}},
	}

	for i := 0; i < 2; i++ {
		_, err := fixture.service.Submit(context.Background(), quiz.ID, 42, submission)
		require.NoError(t, err)
	}

	_, err := fixture.service.Submit(context.Background(), quiz.ID, 42, submission)
	require.ErrorIs(t, err, ErrMaxAttemptsExceeded)
}

func TestQuizResponseHidesCorrectAnswers(t *testing.T) {
	fixture := newQuizFixture(t)
	created := fixture.createQuiz(t)

	quiz, err := fixture.service.Get(context.Background(), created.ID)
	require.NoError(t, err)
	for _, question := range quiz.Questions {
		require.NotEmpty(t, question.ID)
		require.NotEmpty(t, question.Text)
	}
}

func TestListAttemptsScopedToStudent(t *testing.T) {
	fixture := newQuizFixture(t)
	quiz := fixture.createQuiz(t)

	submission := dto.QuizSubmitRequest{
		Answers: []dto.QuizAnswerInput{{QuestionID: "q2", Answer: "false"}},
	}

	_, err := fixture.service.Submit(context.Background(), quiz.ID, 42, submission)
	require.NoError(t, err)
	_, err = fixture.service.Submit(context.Background(), quiz.ID, 43, submission)
	require.NoError(t, err)

	attempts, err := fixture.service.ListAttempts(context.Background(), quiz.ID, 42)
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	require.Equal(t, uint(42), attempts[0].StudentID)
}
