package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/activity-portal-api/internal/middleware"
	"github.com/noah-isme/activity-portal-api/internal/service"
)

const (
	studentToken = "student-token"
	adminToken   = "admin-token"
)

type stubVerifier struct{}

func (stubVerifier) Verify(_ context.Context, token string) (service.SessionClaims, error) {
	switch token {
	case studentToken:
		return service.SessionClaims{Role: "student", RegisteredClaims: jwt.RegisteredClaims{Subject: "7", ID: "jti-student"}}, nil
	case adminToken:
		return service.SessionClaims{Role: "admin", RegisteredClaims: jwt.RegisteredClaims{Subject: "1", ID: "jti-admin"}}, nil
	}
	return service.SessionClaims{}, jwt.ErrTokenMalformed
}

func newTestApp() *fiber.App {
	app := fiber.New()
	app.Use(middleware.Authenticate(stubVerifier{}, true))
	return app
}

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func doRequest(t *testing.T, app *fiber.App, method, path, token string, body interface{}) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

type envelope struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data"`
	Meta    json.RawMessage   `json:"meta"`
	Details map[string]string `json:"details"`
}

func decodeResponse(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(target))
}
