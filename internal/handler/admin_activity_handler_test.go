package handler_test

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/activity-portal-api/internal/authz"
	"github.com/noah-isme/activity-portal-api/internal/dto"
	"github.com/noah-isme/activity-portal-api/internal/handler"
	"github.com/noah-isme/activity-portal-api/internal/middleware"
	"github.com/noah-isme/activity-portal-api/internal/service"
)

type stubReports struct {
	service.ReportService
	format string
}

func (s *stubReports) ExportRoster(_ context.Context, principal authz.Principal, activityID uint, format string) (dto.RosterExport, error) {
	if err := authz.Authorize(principal, authz.ActionExportRoster); err != nil {
		return dto.RosterExport{}, err
	}
	s.format = format
	if format == "pdf" {
		return dto.RosterExport{}, service.NewValidationError(map[string]string{"format": "must be one of: csv xlsx"})
	}
	return dto.RosterExport{
		Filename:    "Chess_报名信息_20240601120000.csv",
		ContentType: "text/csv; charset=utf-8",
		Body:        []byte("\ufeff用户名\n"),
	}, nil
}

type stubRegistrations struct {
	service.RegistrationService
	changed bool
}

func (s *stubRegistrations) CheckIn(_ context.Context, _ authz.Principal, _ uint, req dto.CheckInRequest) (dto.CheckInResponse, error) {
	if req.StudentID == "" {
		return dto.CheckInResponse{}, service.NewValidationError(map[string]string{"student_id": "is required"})
	}
	if req.StudentID == "0000000" {
		return dto.CheckInResponse{}, service.ErrStudentNotFound
	}
	return dto.CheckInResponse{RealName: "Alice", StudentID: req.StudentID, Changed: s.changed}, nil
}

func newAdminActivityApp(registrations service.RegistrationService, reports service.ReportService) *fiber.App {
	app := newTestApp()
	group := app.Group("/api/v1/admin", middleware.RequireAction(authz.ActionManageActivities))
	handler.NewAdminActivityHandler(nil, registrations, reports, testLogger()).Register(group.Group("/activities"))
	return app
}

func TestAdminExportSetsDownloadHeaders(t *testing.T) {
	reports := &stubReports{}
	app := newAdminActivityApp(nil, reports)

	resp := doRequest(t, app, http.MethodGet, "/api/v1/admin/activities/4/export?format=csv", adminToken, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "csv", reports.format)
	require.Equal(t, "text/csv; charset=utf-8", resp.Header.Get(fiber.HeaderContentType))

	disposition := resp.Header.Get(fiber.HeaderContentDisposition)
	require.Contains(t, disposition, `filename="roster.csv"`)
	require.Contains(t, disposition, "filename*=UTF-8''Chess_%E6%8A%A5%E5%90%8D%E4%BF%A1%E6%81%AF_20240601120000.csv")

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, "\ufeff用户名\n", string(body))

	resp = doRequest(t, app, http.MethodGet, "/api/v1/admin/activities/4/export?format=pdf", adminToken, nil)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	var failure envelope
	decodeResponse(t, resp, &failure)
	require.Equal(t, "must be one of: csv xlsx", failure.Details["format"])
}

func TestAdminRoutesRejectStudents(t *testing.T) {
	app := newAdminActivityApp(nil, &stubReports{})

	resp := doRequest(t, app, http.MethodGet, "/api/v1/admin/activities/4/export", studentToken, nil)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp = doRequest(t, app, http.MethodGet, "/api/v1/admin/activities/4/export", "", nil)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestAdminCheckIn(t *testing.T) {
	app := newAdminActivityApp(&stubRegistrations{changed: true}, nil)

	resp := doRequest(t, app, http.MethodPost, "/api/v1/admin/activities/4/checkin", adminToken, dto.CheckInRequest{StudentID: "2021001"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var body envelope
	decodeResponse(t, resp, &body)
	require.Equal(t, "Alice checked in", body.Message)

	repeat := newAdminActivityApp(&stubRegistrations{changed: false}, nil)
	resp = doRequest(t, repeat, http.MethodPost, "/api/v1/admin/activities/4/checkin", adminToken, dto.CheckInRequest{StudentID: "2021001"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	decodeResponse(t, resp, &body)
	require.Equal(t, "Alice was already checked in", body.Message)

	resp = doRequest(t, app, http.MethodPost, "/api/v1/admin/activities/4/checkin", adminToken, dto.CheckInRequest{})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	decodeResponse(t, resp, &body)
	require.Equal(t, "is required", body.Details["student_id"])

	resp = doRequest(t, app, http.MethodPost, "/api/v1/admin/activities/4/checkin", adminToken, dto.CheckInRequest{StudentID: "0000000"})
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
