package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/edustack/lms-api/internal/models"
)

type enrollmentFixture struct {
	service     EnrollmentService
	users       *memoryUserRepo
	courses     *memoryCourseRepo
	enrollments *memoryEnrollmentRepo
	progress    *memoryProgressRepo
	notifier    *recordingNotifier
}

func newEnrollmentFixture(t *testing.T, autoApprove bool) enrollmentFixture {
	t.Helper()

	users := newMemoryUserRepo()
	courses := newMemoryCourseRepo()
	enrollments := newMemoryEnrollmentRepo(courses, users)
	progress := newMemoryProgressRepo()
	notifier := &recordingNotifier{}

	return enrollmentFixture{
		service:     NewEnrollmentService(enrollments, courses, progress, users, notifier, autoApprove, testLogger()),
		users:       users,
		courses:     courses,
		enrollments: enrollments,
		progress:    progress,
		notifier:    notifier,
	}
}

func (f enrollmentFixture) seedStudent(t *testing.T) models.User {
	t.Helper()

	student := models.User{Name: "Ana Lima", Email: "ana@example.com", Role: models.RoleStudent, IsActive: true}
	require.NoError(t, f.users.Create(context.Background(), &student))
	return student
}

func (f enrollmentFixture) seedCourse(t *testing.T, instructorID uint, status string) models.Course {
	t.Helper()

	course := models.Course{Title: "Go Fundamentals", InstructorID: instructorID, Status: status}
	require.NoError(t, f.courses.Create(context.Background(), &course))
	return course
}

func TestEnrollCreatesPendingRequest(t *testing.T) {
	fixture := newEnrollmentFixture(t, false)
	student := fixture.seedStudent(t)
	course := fixture.seedCourse(t, 10, models.CourseStatusPublished)

	response, err := fixture.service.Enroll(context.Background(), student.ID, course.ID)
	require.NoError(t, err)
	require.Equal(t, models.EnrollmentStatusPending, response.Status)
	require.Equal(t, 0, response.ProgressPercentage)
	require.Empty(t, response.CompletedLessons)

	require.Equal(t, 0, fixture.courses.counterBumps)
	require.Len(t, fixture.notifier.notifications, 1)
	require.Equal(t, "enrollment.requested", fixture.notifier.notifications[0].Topic)
	require.Equal(t, student.Email, fixture.notifier.notifications[0].Recipient)
}

func TestEnrollAutoApproveActivatesImmediately(t *testing.T) {
	fixture := newEnrollmentFixture(t, true)
	student := fixture.seedStudent(t)
	course := fixture.seedCourse(t, 10, models.CourseStatusPublished)

	response, err := fixture.service.Enroll(context.Background(), student.ID, course.ID)
	require.NoError(t, err)
	require.Equal(t, models.EnrollmentStatusActive, response.Status)
	require.Equal(t, 1, fixture.courses.counterBumps)
}

func TestEnrollRejectsDraftCourse(t *testing.T) {
	fixture := newEnrollmentFixture(t, false)
	student := fixture.seedStudent(t)
	course := fixture.seedCourse(t, 10, models.CourseStatusDraft)

	_, err := fixture.service.Enroll(context.Background(), student.ID, course.ID)
	require.ErrorIs(t, err, ErrCourseNotPublished)
}

func TestEnrollUnknownCourse(t *testing.T) {
	fixture := newEnrollmentFixture(t, false)
	student := fixture.seedStudent(t)

	_, err := fixture.service.Enroll(context.Background(), student.ID, 999)
	require.ErrorIs(t, err, ErrCourseNotFound)
}

func TestEnrollExistingEnrollmentConflicts(t *testing.T) {
	fixture := newEnrollmentFixture(t, false)
	student := fixture.seedStudent(t)
	course := fixture.seedCourse(t, 10, models.CourseStatusPublished)

	_, err := fixture.service.Enroll(context.Background(), student.ID, course.ID)
	require.NoError(t, err)

	_, err = fixture.service.Enroll(context.Background(), student.ID, course.ID)
	require.ErrorIs(t, err, ErrAlreadyEnrolled)
}

func TestEnrollAfterRejectionStaysTerminal(t *testing.T) {
	fixture := newEnrollmentFixture(t, false)
	student := fixture.seedStudent(t)
	course := fixture.seedCourse(t, 10, models.CourseStatusPublished)

	enrollment := models.Enrollment{StudentID: student.ID, CourseID: course.ID, Status: models.EnrollmentStatusRejected}
	require.NoError(t, fixture.enrollments.Create(context.Background(), &enrollment))

	_, err := fixture.service.Enroll(context.Background(), student.ID, course.ID)
	require.ErrorIs(t, err, ErrEnrollmentRejected)
}

func TestEnrollRevivesDroppedEnrollment(t *testing.T) {
	fixture := newEnrollmentFixture(t, false)
	student := fixture.seedStudent(t)
	course := fixture.seedCourse(t, 10, models.CourseStatusPublished)

	enrollment := models.Enrollment{StudentID: student.ID, CourseID: course.ID, Status: models.EnrollmentStatusDropped}
	require.NoError(t, fixture.enrollments.Create(context.Background(), &enrollment))

	response, err := fixture.service.Enroll(context.Background(), student.ID, course.ID)
	require.NoError(t, err)
	require.Equal(t, enrollment.ID, response.ID)
	require.Equal(t, models.EnrollmentStatusPending, response.Status)
}

func TestApproveActivatesAndBumpsCounter(t *testing.T) {
	fixture := newEnrollmentFixture(t, false)
	student := fixture.seedStudent(t)
	course := fixture.seedCourse(t, 10, models.CourseStatusPublished)

	created, err := fixture.service.Enroll(context.Background(), student.ID, course.ID)
	require.NoError(t, err)

	response, err := fixture.service.Approve(context.Background(), created.ID, Actor{ID: 10, Role: models.RoleInstructor})
	require.NoError(t, err)
	require.Equal(t, models.EnrollmentStatusActive, response.Status)
	require.Equal(t, 1, fixture.courses.counterBumps)

	stored := fixture.courses.courses[course.ID]
	require.Equal(t, int64(1), stored.EnrollmentCount)

	topics := make([]string, 0, len(fixture.notifier.notifications))
	for _, notification := range fixture.notifier.notifications {
		topics = append(topics, notification.Topic)
	}
	require.Contains(t, topics, "enrollment.approved")
}

func TestApproveRequiresCourseOwnership(t *testing.T) {
	fixture := newEnrollmentFixture(t, false)
	student := fixture.seedStudent(t)
	course := fixture.seedCourse(t, 10, models.CourseStatusPublished)

	created, err := fixture.service.Enroll(context.Background(), student.ID, course.ID)
	require.NoError(t, err)

	_, err = fixture.service.Approve(context.Background(), created.ID, Actor{ID: 77, Role: models.RoleInstructor})
	require.ErrorIs(t, err, ErrNotCourseOwner)

	_, err = fixture.service.Approve(context.Background(), created.ID, Actor{ID: 1, Role: models.RoleAdmin})
	require.NoError(t, err)
}

func TestApproveNonPendingConflicts(t *testing.T) {
	fixture := newEnrollmentFixture(t, false)
	student := fixture.seedStudent(t)
	course := fixture.seedCourse(t, 10, models.CourseStatusPublished)

	created, err := fixture.service.Enroll(context.Background(), student.ID, course.ID)
	require.NoError(t, err)

	_, err = fixture.service.Approve(context.Background(), created.ID, Actor{ID: 10, Role: models.RoleInstructor})
	require.NoError(t, err)

	_, err = fixture.service.Approve(context.Background(), created.ID, Actor{ID: 10, Role: models.RoleInstructor})
	require.ErrorIs(t, err, ErrEnrollmentNotPending)
}

func TestRejectMarksTerminalWithoutCounterBump(t *testing.T) {
	fixture := newEnrollmentFixture(t, false)
	student := fixture.seedStudent(t)
	course := fixture.seedCourse(t, 10, models.CourseStatusPublished)

	created, err := fixture.service.Enroll(context.Background(), student.ID, course.ID)
	require.NoError(t, err)

	response, err := fixture.service.Reject(context.Background(), created.ID, Actor{ID: 10, Role: models.RoleInstructor})
	require.NoError(t, err)
	require.Equal(t, models.EnrollmentStatusRejected, response.Status)
	require.Equal(t, 0, fixture.courses.counterBumps)
}

func TestListPendingScopesToInstructor(t *testing.T) {
	fixture := newEnrollmentFixture(t, false)
	student := fixture.seedStudent(t)
	mine := fixture.seedCourse(t, 10, models.CourseStatusPublished)
	other := fixture.seedCourse(t, 20, models.CourseStatusPublished)

	_, err := fixture.service.Enroll(context.Background(), student.ID, mine.ID)
	require.NoError(t, err)
	_, err = fixture.service.Enroll(context.Background(), student.ID, other.ID)
	require.NoError(t, err)

	pending, err := fixture.service.ListPending(context.Background(), Actor{ID: 10, Role: models.RoleInstructor})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, mine.ID, pending[0].Course.ID)

	all, err := fixture.service.ListPending(context.Background(), Actor{ID: 1, Role: models.RoleAdmin})
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func TestProgressSummary(t *testing.T) {
	fixture := newEnrollmentFixture(t, true)
	student := fixture.seedStudent(t)
	course := fixture.seedCourse(t, 10, models.CourseStatusPublished)

	module := models.CourseModule{CourseID: course.ID, Title: "Basics"}
	require.NoError(t, fixture.courses.CreateModule(context.Background(), &module))
	for i := 0; i < 4; i++ {
		lesson := models.Lesson{ModuleID: module.ID, CourseID: course.ID, Title: "Lesson", Type: models.LessonTypeText}
		require.NoError(t, fixture.courses.CreateLesson(context.Background(), &lesson))
	}

	_, err := fixture.service.Enroll(context.Background(), student.ID, course.ID)
	require.NoError(t, err)

	require.NoError(t, fixture.progress.Upsert(context.Background(), &models.LessonProgress{
		LessonID: 1, StudentID: student.ID, CourseID: course.ID, IsCompleted: true,
	}))

	summary, err := fixture.service.Progress(context.Background(), student.ID, course.ID)
	require.NoError(t, err)
	require.Equal(t, 1, summary.CompletedLessons)
	require.Equal(t, 4, summary.TotalLessons)
	require.Equal(t, models.EnrollmentStatusActive, summary.Status)
}

func TestProgressRequiresEnrollment(t *testing.T) {
	fixture := newEnrollmentFixture(t, false)
	student := fixture.seedStudent(t)
	course := fixture.seedCourse(t, 10, models.CourseStatusPublished)

	_, err := fixture.service.Progress(context.Background(), student.ID, course.ID)
	require.ErrorIs(t, err, ErrEnrollmentNotFound)
}
