// Package testenv boots the full HTTP stack over an in-memory sqlite store for
// contract and end-to-end tests.
package testenv

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/noah-isme/activity-portal-api/internal/config"
	"github.com/noah-isme/activity-portal-api/internal/database"
	"github.com/noah-isme/activity-portal-api/internal/dto"
	"github.com/noah-isme/activity-portal-api/internal/middleware"
	"github.com/noah-isme/activity-portal-api/internal/router"
)

// Bootstrap administrator credentials.
const (
	AdminUsername = "admin"
	AdminPassword = "admin-pass"
)

var dbSeq int64

// Env is a running portal backed by sqlite and miniredis.
type Env struct {
	App    *fiber.App
	DB     *gorm.DB
	Redis  *miniredis.Miniredis
	Config config.Config
}

// New builds the application the way main does, minus postgres.
func New(t testing.TB) *Env {
	t.Helper()

	dsn := fmt.Sprintf("file:testenv_%d_%d?mode=memory&cache=shared", time.Now().UnixNano(), atomic.AddInt64(&dbSeq, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.Migrate(db))

	server, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(server.Close)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := config.Config{
		AppName:      "Activity Portal Test",
		AppEnv:       "test",
		JWTSecret:    "integration-secret",
		JWTTTL:       time.Hour,
		BackupDir:    t.TempDir(),
		LoginRateMax: 1000,
		LoginRateWin: time.Minute,
		Timezone:     "UTC",
		Location:     time.UTC,
	}

	log := zerolog.Nop()
	container, err := router.Build(router.Components{Config: cfg, DB: db, Redis: client, Logger: log})
	require.NoError(t, err)

	created, err := container.Auth.EnsureAdmin(context.Background(), AdminUsername, "", AdminPassword)
	require.NoError(t, err)
	require.True(t, created)

	app := fiber.New()
	middleware.Register(app, middleware.Config{Logger: log})
	router.Register(app, cfg, container.Dependencies)

	return &Env{App: app, DB: db, Redis: server, Config: cfg}
}

// Do performs a JSON request against the app.
func (e *Env) Do(t testing.TB, method, path, token string, body interface{}) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(fiber.HeaderAccept, fiber.MIMEApplicationJSON)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}

	resp, err := e.App.Test(req, -1)
	require.NoError(t, err)
	return resp
}

// Login returns a session token for the given credentials.
func (e *Env) Login(t testing.TB, username, password string) string {
	t.Helper()

	resp := e.Do(t, http.MethodPost, "/api/v1/auth/login", "", dto.LoginRequest{Username: username, Password: password})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Data dto.LoginResponse `json:"data"`
	}
	Decode(t, resp, &body)
	require.NotEmpty(t, body.Data.Token)
	return body.Data.Token
}

// SignupStudent registers a student account through the API and logs it in.
func (e *Env) SignupStudent(t testing.TB, username, studentID, college string) string {
	t.Helper()

	resp := e.Do(t, http.MethodPost, "/api/v1/auth/register", "", dto.SignupRequest{
		Username:        username,
		Email:           username + "@campus.edu",
		Password:        "secret123",
		ConfirmPassword: "secret123",
		RealName:        strings.ToUpper(username[:1]) + username[1:],
		StudentID:       studentID,
		Grade:           "2021",
		Major:           "Computer Science",
		College:         college,
		Phone:           "13800000000",
		QQ:              "123456",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	_ = resp.Body.Close()

	return e.Login(t, username, "secret123")
}

// CreateActivity creates an activity as admin and returns its id.
func (e *Env) CreateActivity(t testing.TB, adminToken, title string, capacity int, deadline time.Time) uint {
	t.Helper()

	resp := e.Do(t, http.MethodPost, "/api/v1/admin/activities", adminToken, dto.ActivityCreateRequest{
		Title:                title,
		Description:          title + " **details**",
		Location:             "Main Hall",
		StartTime:            deadline.Add(24 * time.Hour),
		EndTime:              deadline.Add(26 * time.Hour),
		RegistrationDeadline: deadline,
		MaxParticipants:      capacity,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var body struct {
		Data dto.ActivityResponse `json:"data"`
	}
	Decode(t, resp, &body)
	return body.Data.ID
}

// Decode reads a JSON response body into target.
func Decode(t testing.TB, resp *http.Response, target interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(target))
}
