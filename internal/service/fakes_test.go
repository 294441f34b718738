package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/edustack/lms-api/internal/models"
	"github.com/edustack/lms-api/internal/repository"
	"github.com/edustack/lms-api/pkg/certificate"
	"github.com/edustack/lms-api/pkg/mailer"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

type memoryUserRepo struct {
	users  map[uint]models.User
	nextID uint
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{users: make(map[uint]models.User), nextID: 1}
}

func (m *memoryUserRepo) Create(_ context.Context, user *models.User) error {
	user.ID = m.nextID
	user.CreatedAt = time.Now()
	m.users[m.nextID] = *user
	m.nextID++
	return nil
}

func (m *memoryUserRepo) GetByID(_ context.Context, id uint) (models.User, error) {
	user, ok := m.users[id]
	if !ok {
		return models.User{}, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (m *memoryUserRepo) GetByEmail(_ context.Context, email string) (models.User, error) {
	for _, user := range m.users {
		if strings.EqualFold(user.Email, email) {
			return user, nil
		}
	}
	return models.User{}, gorm.ErrRecordNotFound
}

func (m *memoryUserRepo) Update(_ context.Context, user *models.User) error {
	if _, ok := m.users[user.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	m.users[user.ID] = *user
	return nil
}

func (m *memoryUserRepo) Count(_ context.Context) (int64, error) {
	return int64(len(m.users)), nil
}

func (m *memoryUserRepo) CountActive(_ context.Context) (int64, error) {
	var total int64
	for _, user := range m.users {
		if user.IsActive {
			total++
		}
	}
	return total, nil
}

func (m *memoryUserRepo) CountByRole(_ context.Context) (map[string]int64, error) {
	counts := make(map[string]int64)
	for _, user := range m.users {
		counts[user.Role]++
	}
	return counts, nil
}

type memoryCourseRepo struct {
	courses      map[uint]models.Course
	modules      map[uint]models.CourseModule
	lessons      map[uint]models.Lesson
	nextCourse   uint
	nextModule   uint
	nextLesson   uint
	counterBumps int
}

func newMemoryCourseRepo() *memoryCourseRepo {
	return &memoryCourseRepo{
		courses:    make(map[uint]models.Course),
		modules:    make(map[uint]models.CourseModule),
		lessons:    make(map[uint]models.Lesson),
		nextCourse: 1,
		nextModule: 1,
		nextLesson: 1,
	}
}

func (m *memoryCourseRepo) Create(_ context.Context, course *models.Course) error {
	course.ID = m.nextCourse
	course.CreatedAt = time.Now()
	m.courses[m.nextCourse] = *course
	m.nextCourse++
	return nil
}

func (m *memoryCourseRepo) GetByID(_ context.Context, id uint) (models.Course, error) {
	course, ok := m.courses[id]
	if !ok {
		return models.Course{}, gorm.ErrRecordNotFound
	}
	return course, nil
}

func (m *memoryCourseRepo) GetByIDWithContent(ctx context.Context, id uint) (models.Course, error) {
	course, err := m.GetByID(ctx, id)
	if err != nil {
		return models.Course{}, err
	}

	for _, module := range m.modules {
		if module.CourseID != id {
			continue
		}
		for _, lesson := range m.lessons {
			if lesson.ModuleID == module.ID {
				module.Lessons = append(module.Lessons, lesson)
			}
		}
		course.Modules = append(course.Modules, module)
	}

	return course, nil
}

func (m *memoryCourseRepo) ListWithFilter(_ context.Context, filter repository.CourseFilter) ([]models.Course, int64, error) {
	filtered := make([]models.Course, 0, len(m.courses))
	search := strings.ToLower(strings.TrimSpace(filter.Search))
	for _, course := range m.courses {
		if search != "" && !strings.Contains(strings.ToLower(course.Title), search) {
			continue
		}
		if filter.Category != "" && course.Category != filter.Category {
			continue
		}
		if filter.Status != "" && course.Status != filter.Status {
			continue
		}
		filtered = append(filtered, course)
	}
	return filtered, int64(len(filtered)), nil
}

func (m *memoryCourseRepo) Update(_ context.Context, course *models.Course) error {
	if _, ok := m.courses[course.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	m.courses[course.ID] = *course
	return nil
}

func (m *memoryCourseRepo) Delete(_ context.Context, id uint) error {
	if _, ok := m.courses[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.courses, id)
	return nil
}

func (m *memoryCourseRepo) Count(_ context.Context) (int64, error) {
	return int64(len(m.courses)), nil
}

func (m *memoryCourseRepo) CountByStatus(_ context.Context) (map[string]int64, error) {
	counts := make(map[string]int64)
	for _, course := range m.courses {
		counts[course.Status]++
	}
	return counts, nil
}

func (m *memoryCourseRepo) CountByCategory(_ context.Context) (map[string]int64, error) {
	counts := make(map[string]int64)
	for _, course := range m.courses {
		if course.Category != "" {
			counts[course.Category]++
		}
	}
	return counts, nil
}

func (m *memoryCourseRepo) CreateModule(_ context.Context, module *models.CourseModule) error {
	module.ID = m.nextModule
	m.modules[m.nextModule] = *module
	m.nextModule++
	return nil
}

func (m *memoryCourseRepo) GetModuleByID(_ context.Context, id uint) (models.CourseModule, error) {
	module, ok := m.modules[id]
	if !ok {
		return models.CourseModule{}, gorm.ErrRecordNotFound
	}
	return module, nil
}

func (m *memoryCourseRepo) ListModules(_ context.Context, courseID uint) ([]models.CourseModule, error) {
	modules := make([]models.CourseModule, 0)
	for _, module := range m.modules {
		if module.CourseID == courseID {
			modules = append(modules, module)
		}
	}
	return modules, nil
}

func (m *memoryCourseRepo) CreateLesson(_ context.Context, lesson *models.Lesson) error {
	lesson.ID = m.nextLesson
	m.lessons[m.nextLesson] = *lesson
	m.nextLesson++
	return nil
}

func (m *memoryCourseRepo) GetLessonByID(_ context.Context, id uint) (models.Lesson, error) {
	lesson, ok := m.lessons[id]
	if !ok {
		return models.Lesson{}, gorm.ErrRecordNotFound
	}
	return lesson, nil
}

func (m *memoryCourseRepo) ListLessons(_ context.Context, moduleID uint) ([]models.Lesson, error) {
	lessons := make([]models.Lesson, 0)
	for _, lesson := range m.lessons {
		if lesson.ModuleID == moduleID {
			lessons = append(lessons, lesson)
		}
	}
	return lessons, nil
}

func (m *memoryCourseRepo) UpdateLesson(_ context.Context, lesson *models.Lesson) error {
	if _, ok := m.lessons[lesson.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	m.lessons[lesson.ID] = *lesson
	return nil
}

func (m *memoryCourseRepo) CountLessons(_ context.Context, courseID uint) (int64, error) {
	var total int64
	for _, lesson := range m.lessons {
		if lesson.CourseID == courseID {
			total++
		}
	}
	return total, nil
}

func (m *memoryCourseRepo) bumpEnrollmentCount(courseID uint) {
	course, ok := m.courses[courseID]
	if !ok {
		return
	}
	course.EnrollmentCount++
	m.courses[courseID] = course
	m.counterBumps++
}

type memoryEnrollmentRepo struct {
	enrollments map[uint]models.Enrollment
	nextID      uint
	courses     *memoryCourseRepo
	users       *memoryUserRepo
}

func newMemoryEnrollmentRepo(courses *memoryCourseRepo, users *memoryUserRepo) *memoryEnrollmentRepo {
	return &memoryEnrollmentRepo{
		enrollments: make(map[uint]models.Enrollment),
		nextID:      1,
		courses:     courses,
		users:       users,
	}
}

func (m *memoryEnrollmentRepo) Create(_ context.Context, enrollment *models.Enrollment) error {
	enrollment.ID = m.nextID
	enrollment.CreatedAt = time.Now()
	m.enrollments[m.nextID] = *enrollment
	m.nextID++
	return nil
}

func (m *memoryEnrollmentRepo) CreateApproved(ctx context.Context, enrollment *models.Enrollment) error {
	if err := m.Create(ctx, enrollment); err != nil {
		return err
	}
	if m.courses != nil {
		m.courses.bumpEnrollmentCount(enrollment.CourseID)
	}
	return nil
}

func (m *memoryEnrollmentRepo) GetByID(_ context.Context, id uint) (models.Enrollment, error) {
	enrollment, ok := m.enrollments[id]
	if !ok {
		return models.Enrollment{}, gorm.ErrRecordNotFound
	}
	m.preload(&enrollment)
	return enrollment, nil
}

func (m *memoryEnrollmentRepo) GetByStudentAndCourse(_ context.Context, studentID, courseID uint) (models.Enrollment, error) {
	for _, enrollment := range m.enrollments {
		if enrollment.StudentID == studentID && enrollment.CourseID == courseID {
			m.preload(&enrollment)
			return enrollment, nil
		}
	}
	return models.Enrollment{}, gorm.ErrRecordNotFound
}

func (m *memoryEnrollmentRepo) ListByStudent(_ context.Context, studentID uint) ([]models.Enrollment, error) {
	results := make([]models.Enrollment, 0)
	for _, enrollment := range m.enrollments {
		if enrollment.StudentID == studentID {
			m.preload(&enrollment)
			results = append(results, enrollment)
		}
	}
	return results, nil
}

func (m *memoryEnrollmentRepo) ListPending(_ context.Context, instructorID uint) ([]models.Enrollment, error) {
	results := make([]models.Enrollment, 0)
	for _, enrollment := range m.enrollments {
		if enrollment.Status != models.EnrollmentStatusPending {
			continue
		}
		m.preload(&enrollment)
		if instructorID != 0 && enrollment.Course.InstructorID != instructorID {
			continue
		}
		results = append(results, enrollment)
	}
	return results, nil
}

func (m *memoryEnrollmentRepo) Update(_ context.Context, enrollment *models.Enrollment) error {
	if _, ok := m.enrollments[enrollment.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	stored := *enrollment
	stored.Student = models.User{}
	stored.Course = models.Course{}
	m.enrollments[enrollment.ID] = stored
	return nil
}

func (m *memoryEnrollmentRepo) Approve(ctx context.Context, enrollment *models.Enrollment) error {
	if err := m.Update(ctx, enrollment); err != nil {
		return err
	}
	if m.courses != nil {
		m.courses.bumpEnrollmentCount(enrollment.CourseID)
	}
	return nil
}

func (m *memoryEnrollmentRepo) CountByStatus(_ context.Context, status string) (int64, error) {
	var total int64
	for _, enrollment := range m.enrollments {
		if enrollment.Status == status {
			total++
		}
	}
	return total, nil
}

func (m *memoryEnrollmentRepo) preload(enrollment *models.Enrollment) {
	if m.courses != nil {
		if course, ok := m.courses.courses[enrollment.CourseID]; ok {
			enrollment.Course = course
		}
	}
	if m.users != nil {
		if user, ok := m.users.users[enrollment.StudentID]; ok {
			enrollment.Student = user
		}
	}
}

type memoryProgressRepo struct {
	mu      sync.Mutex
	records map[string]models.LessonProgress
	nextID  uint
}

func newMemoryProgressRepo() *memoryProgressRepo {
	return &memoryProgressRepo{records: make(map[string]models.LessonProgress), nextID: 1}
}

func progressKey(lessonID, studentID uint) string {
	return fmt.Sprintf("%d:%d", lessonID, studentID)
}

func (m *memoryProgressRepo) Upsert(_ context.Context, progress *models.LessonProgress) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := progressKey(progress.LessonID, progress.StudentID)
	if existing, ok := m.records[key]; ok {
		progress.ID = existing.ID
	} else {
		progress.ID = m.nextID
		m.nextID++
	}
	m.records[key] = *progress
	return nil
}

func (m *memoryProgressRepo) GetByLessonAndStudent(_ context.Context, lessonID, studentID uint) (models.LessonProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	progress, ok := m.records[progressKey(lessonID, studentID)]
	if !ok {
		return models.LessonProgress{}, gorm.ErrRecordNotFound
	}
	return progress, nil
}

func (m *memoryProgressRepo) CountCompleted(_ context.Context, studentID, courseID uint) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var total int64
	for _, progress := range m.records {
		if progress.StudentID == studentID && progress.CourseID == courseID && progress.IsCompleted {
			total++
		}
	}
	return total, nil
}

type memoryQuizRepo struct {
	quizzes  map[uint]models.Quiz
	attempts map[uint]models.QuizAttempt
	nextQuiz uint
	nextAtt  uint
}

func newMemoryQuizRepo() *memoryQuizRepo {
	return &memoryQuizRepo{
		quizzes:  make(map[uint]models.Quiz),
		attempts: make(map[uint]models.QuizAttempt),
		nextQuiz: 1,
		nextAtt:  1,
	}
}

func (m *memoryQuizRepo) Create(_ context.Context, quiz *models.Quiz) error {
	quiz.ID = m.nextQuiz
	m.quizzes[m.nextQuiz] = *quiz
	m.nextQuiz++
	return nil
}

func (m *memoryQuizRepo) GetByID(_ context.Context, id uint) (models.Quiz, error) {
	quiz, ok := m.quizzes[id]
	if !ok {
		return models.Quiz{}, gorm.ErrRecordNotFound
	}
	return quiz, nil
}

func (m *memoryQuizRepo) GetByLessonID(_ context.Context, lessonID uint) (models.Quiz, error) {
	for _, quiz := range m.quizzes {
		if quiz.LessonID == lessonID {
			return quiz, nil
		}
	}
	return models.Quiz{}, gorm.ErrRecordNotFound
}

func (m *memoryQuizRepo) CreateAttempt(_ context.Context, attempt *models.QuizAttempt) error {
	attempt.ID = m.nextAtt
	attempt.CreatedAt = time.Now()
	m.attempts[m.nextAtt] = *attempt
	m.nextAtt++
	return nil
}

func (m *memoryQuizRepo) CountAttempts(_ context.Context, quizID, studentID uint) (int64, error) {
	var total int64
	for _, attempt := range m.attempts {
		if attempt.QuizID == quizID && attempt.StudentID == studentID {
			total++
		}
	}
	return total, nil
}

func (m *memoryQuizRepo) ListAttempts(_ context.Context, quizID, studentID uint) ([]models.QuizAttempt, error) {
	results := make([]models.QuizAttempt, 0)
	for _, attempt := range m.attempts {
		if attempt.QuizID == quizID && attempt.StudentID == studentID {
			results = append(results, attempt)
		}
	}
	return results, nil
}

type memoryAssignmentRepo struct {
	assignments map[uint]models.Assignment
	submissions map[uint]models.Submission
	nextAssign  uint
	nextSub     uint
}

func newMemoryAssignmentRepo() *memoryAssignmentRepo {
	return &memoryAssignmentRepo{
		assignments: make(map[uint]models.Assignment),
		submissions: make(map[uint]models.Submission),
		nextAssign:  1,
		nextSub:     1,
	}
}

func (m *memoryAssignmentRepo) Create(_ context.Context, assignment *models.Assignment) error {
	assignment.ID = m.nextAssign
	m.assignments[m.nextAssign] = *assignment
	m.nextAssign++
	return nil
}

func (m *memoryAssignmentRepo) GetByID(_ context.Context, id uint) (models.Assignment, error) {
	assignment, ok := m.assignments[id]
	if !ok {
		return models.Assignment{}, gorm.ErrRecordNotFound
	}
	return assignment, nil
}

func (m *memoryAssignmentRepo) GetByLessonID(_ context.Context, lessonID uint) (models.Assignment, error) {
	for _, assignment := range m.assignments {
		if assignment.LessonID == lessonID {
			return assignment, nil
		}
	}
	return models.Assignment{}, gorm.ErrRecordNotFound
}

func (m *memoryAssignmentRepo) SaveSubmission(_ context.Context, submission *models.Submission) error {
	if submission.ID == 0 {
		submission.ID = m.nextSub
		submission.CreatedAt = time.Now()
		m.nextSub++
	}
	stored := *submission
	stored.Assignment = models.Assignment{}
	stored.Student = models.User{}
	m.submissions[submission.ID] = stored
	return nil
}

func (m *memoryAssignmentRepo) GetSubmissionByID(_ context.Context, id uint) (models.Submission, error) {
	submission, ok := m.submissions[id]
	if !ok {
		return models.Submission{}, gorm.ErrRecordNotFound
	}
	if assignment, ok := m.assignments[submission.AssignmentID]; ok {
		submission.Assignment = assignment
	}
	return submission, nil
}

func (m *memoryAssignmentRepo) GetSubmissionByAssignmentAndStudent(_ context.Context, assignmentID, studentID uint) (models.Submission, error) {
	for _, submission := range m.submissions {
		if submission.AssignmentID == assignmentID && submission.StudentID == studentID {
			return submission, nil
		}
	}
	return models.Submission{}, gorm.ErrRecordNotFound
}

func (m *memoryAssignmentRepo) ListSubmissions(_ context.Context, filter repository.SubmissionFilter) ([]models.Submission, error) {
	results := make([]models.Submission, 0)
	for _, submission := range m.submissions {
		if filter.AssignmentID != nil && submission.AssignmentID != *filter.AssignmentID {
			continue
		}
		if filter.StudentID != nil && submission.StudentID != *filter.StudentID {
			continue
		}
		if filter.Status != nil && submission.Status != *filter.Status {
			continue
		}
		results = append(results, submission)
	}
	return results, nil
}

type memoryCertificateRepo struct {
	certificates map[uint]models.Certificate
	nextID       uint
}

func newMemoryCertificateRepo() *memoryCertificateRepo {
	return &memoryCertificateRepo{certificates: make(map[uint]models.Certificate), nextID: 1}
}

func (m *memoryCertificateRepo) Create(_ context.Context, cert *models.Certificate) error {
	for _, existing := range m.certificates {
		if existing.StudentID == cert.StudentID && existing.CourseID == cert.CourseID {
			return gorm.ErrDuplicatedKey
		}
	}
	cert.ID = m.nextID
	cert.CreatedAt = time.Now()
	m.certificates[m.nextID] = *cert
	m.nextID++
	return nil
}

func (m *memoryCertificateRepo) GetByStudentAndCourse(_ context.Context, studentID, courseID uint) (models.Certificate, error) {
	for _, cert := range m.certificates {
		if cert.StudentID == studentID && cert.CourseID == courseID {
			return cert, nil
		}
	}
	return models.Certificate{}, gorm.ErrRecordNotFound
}

func (m *memoryCertificateRepo) GetByCertificateID(_ context.Context, certificateID string) (models.Certificate, error) {
	for _, cert := range m.certificates {
		if cert.CertificateID == certificateID {
			return cert, nil
		}
	}
	return models.Certificate{}, gorm.ErrRecordNotFound
}

func (m *memoryCertificateRepo) Count(_ context.Context) (int64, error) {
	return int64(len(m.certificates)), nil
}

type memoryOutboxRepo struct {
	entries map[uint]models.NotificationOutbox
	nextID  uint
}

func newMemoryOutboxRepo() *memoryOutboxRepo {
	return &memoryOutboxRepo{entries: make(map[uint]models.NotificationOutbox), nextID: 1}
}

func (m *memoryOutboxRepo) Create(_ context.Context, entry *models.NotificationOutbox) error {
	entry.ID = m.nextID
	entry.CreatedAt = time.Now()
	m.entries[m.nextID] = *entry
	m.nextID++
	return nil
}

func (m *memoryOutboxRepo) ListPending(_ context.Context, limit int) ([]models.NotificationOutbox, error) {
	results := make([]models.NotificationOutbox, 0)
	for _, entry := range m.entries {
		if entry.Status == models.OutboxStatusPending {
			results = append(results, entry)
		}
		if limit > 0 && len(results) >= limit {
			break
		}
	}
	return results, nil
}

func (m *memoryOutboxRepo) MarkSent(_ context.Context, id uint, sentAt time.Time) error {
	entry, ok := m.entries[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	entry.Status = models.OutboxStatusSent
	entry.SentAt = &sentAt
	m.entries[id] = entry
	return nil
}

func (m *memoryOutboxRepo) MarkFailed(_ context.Context, id uint, reason string) error {
	entry, ok := m.entries[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	entry.Status = models.OutboxStatusFailed
	entry.LastError = reason
	m.entries[id] = entry
	return nil
}

type stubUploader struct {
	uploads int
}

func (s *stubUploader) Upload(_ context.Context, name string, _ io.Reader) (string, error) {
	s.uploads++
	return "https://cdn.example.com/" + name, nil
}

type stubBytesUploader struct {
	uploads int
}

func (s *stubBytesUploader) UploadBytes(_ context.Context, name string, _ []byte) (string, error) {
	s.uploads++
	return "https://cdn.example.com/" + name, nil
}

type stubRenderer struct {
	renders int
}

func (s *stubRenderer) Render(_ certificate.Data) ([]byte, error) {
	s.renders++
	return []byte("png"), nil
}

type stubMailer struct {
	sent []mailer.Message
	fail bool
}

func (s *stubMailer) Send(_ context.Context, msg mailer.Message) error {
	if s.fail {
		return io.ErrClosedPipe
	}
	s.sent = append(s.sent, msg)
	return nil
}

type recordingNotifier struct {
	notifications []Notification
}

func (r *recordingNotifier) Enqueue(_ context.Context, notification Notification) {
	r.notifications = append(r.notifications, notification)
}
