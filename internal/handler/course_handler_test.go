package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/edustack/lms-api/internal/dto"
	"github.com/edustack/lms-api/internal/models"
	"github.com/edustack/lms-api/internal/repository"
	"github.com/edustack/lms-api/internal/service"
	"github.com/edustack/lms-api/internal/utils"
)

type noopUploader struct{}

func (noopUploader) Upload(_ context.Context, name string, _ io.Reader) (string, error) {
	return "https://cdn.example.com/" + name, nil
}

func setupCourseTestApp(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Course{}, &models.CourseModule{}, &models.Lesson{}))

	validate := validator.New(validator.WithRequiredStructEnabled())
	courseService := service.NewCourseService(repository.NewCourseRepository(db), validate, noopUploader{}, zerolog.Nop())
	courseHandler := NewCourseHandler(courseService, zerolog.Nop())

	app := fiber.New()
	courses := app.Group("/courses", func(c *fiber.Ctx) error {
		if raw := c.Get("X-Test-User"); raw != "" {
			if id, err := strconv.ParseUint(raw, 10, 64); err == nil {
				c.Locals("user_id", uint(id))
			}
		}
		if role := c.Get("X-Test-Role"); role != "" {
			c.Locals("user_role", role)
		}
		return c.Next()
	})
	courseHandler.RegisterPublic(courses)
	courseHandler.RegisterAuthoring(courses)

	return app, db
}

func seedInstructor(t *testing.T, db *gorm.DB, name, email string) models.User {
	t.Helper()
	user := models.User{Name: name, Email: email, Role: models.RoleInstructor, IsActive: true}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func jsonRequest(t *testing.T, method, target, userID, role string, payload interface{}) *http.Request {
	t.Helper()

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, target, body)
	if payload != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if userID != "" {
		req.Header.Set("X-Test-User", userID)
	}
	if role != "" {
		req.Header.Set("X-Test-Role", role)
	}

	return req
}

func decodeData(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()

	var envelope utils.APIResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	require.True(t, envelope.Success)

	raw, err := json.Marshal(envelope.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, out))
}

func TestCourseLifecycleAgainstDatabase(t *testing.T) {
	app, db := setupCourseTestApp(t)
	instructor := seedInstructor(t, db, "Ada", "ada@example.com")
	actorID := strconv.FormatUint(uint64(instructor.ID), 10)

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/courses", actorID, models.RoleInstructor, dto.CourseCreateRequest{
		Title:       "Distributed Systems",
		Description: "<p>Consensus</p><script>alert(1)</script>",
		Category:    "programming",
	}))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var course dto.CourseResponse
	decodeData(t, resp, &course)
	require.Equal(t, models.CourseStatusDraft, course.Status)
	require.NotContains(t, course.Description, "script")
	require.Equal(t, instructor.ID, course.Instructor.ID)

	base := fmt.Sprintf("/courses/%d", course.ID)

	resp, err = app.Test(jsonRequest(t, http.MethodPost, base+"/publish", actorID, models.RoleInstructor, nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(jsonRequest(t, http.MethodPost, base+"/publish", actorID, models.RoleInstructor, nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)

	resp, err = app.Test(jsonRequest(t, http.MethodPost, base+"/modules", actorID, models.RoleInstructor, dto.ModuleCreateRequest{Title: "Consensus", Order: 1}))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var module dto.ModuleResponse
	decodeData(t, resp, &module)

	resp, err = app.Test(jsonRequest(t, http.MethodPost, fmt.Sprintf("%s/modules/%d/lessons", base, module.ID), actorID, models.RoleInstructor, dto.LessonCreateRequest{
		Title: "Raft",
		Type:  models.LessonTypeText,
	}))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp, err = app.Test(jsonRequest(t, http.MethodGet, base, "", "", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var loaded dto.CourseResponse
	decodeData(t, resp, &loaded)
	require.Equal(t, models.CourseStatusPublished, loaded.Status)
	require.Len(t, loaded.Modules, 1)
	require.Len(t, loaded.Modules[0].Lessons, 1)
	require.Equal(t, "Raft", loaded.Modules[0].Lessons[0].Title)
}

func TestCourseAuthoringOwnershipAgainstDatabase(t *testing.T) {
	app, db := setupCourseTestApp(t)
	owner := seedInstructor(t, db, "Ada", "ada@example.com")
	intruder := seedInstructor(t, db, "Eve", "eve@example.com")
	ownerID := strconv.FormatUint(uint64(owner.ID), 10)
	intruderID := strconv.FormatUint(uint64(intruder.ID), 10)

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/courses", ownerID, models.RoleInstructor, dto.CourseCreateRequest{Title: "Databases"}))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var course dto.CourseResponse
	decodeData(t, resp, &course)

	title := "Hijacked"
	resp, err = app.Test(jsonRequest(t, http.MethodPatch, fmt.Sprintf("/courses/%d", course.ID), intruderID, models.RoleInstructor, dto.CourseUpdateRequest{Title: &title}))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp, err = app.Test(jsonRequest(t, http.MethodPatch, fmt.Sprintf("/courses/%d", course.ID), intruderID, models.RoleAdmin, dto.CourseUpdateRequest{Title: &title}))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestAddLessonRejectsUnknownTypeOverHTTP(t *testing.T) {
	app, db := setupCourseTestApp(t)
	instructor := seedInstructor(t, db, "Ada", "ada@example.com")
	actorID := strconv.FormatUint(uint64(instructor.ID), 10)

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/courses", actorID, models.RoleInstructor, dto.CourseCreateRequest{Title: "Networks"}))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var course dto.CourseResponse
	decodeData(t, resp, &course)

	resp, err = app.Test(jsonRequest(t, http.MethodPost, fmt.Sprintf("/courses/%d/modules", course.ID), actorID, models.RoleInstructor, dto.ModuleCreateRequest{Title: "Layer 4"}))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var module dto.ModuleResponse
	decodeData(t, resp, &module)

	resp, err = app.Test(jsonRequest(t, http.MethodPost, fmt.Sprintf("/courses/%d/modules/%d/lessons", course.ID, module.ID), actorID, models.RoleInstructor, dto.LessonCreateRequest{
		Title: "Webinar",
		Type:  "webinar",
	}))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestGetCourseNotFoundAgainstDatabase(t *testing.T) {
	app, _ := setupCourseTestApp(t)

	resp, err := app.Test(jsonRequest(t, http.MethodGet, "/courses/999", "", "", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
