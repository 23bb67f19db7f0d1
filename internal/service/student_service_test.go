package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/activity-portal-api/internal/authz"
	"github.com/noah-isme/activity-portal-api/internal/dto"
)

func newStudentService(f *fixture) StudentService {
	return NewStudentService(f.students, f.activities, f.registrations, NewValidator(), f.recorder, testLogger())
}

func TestStudentProfileRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := newStudentService(f)
	alice := f.student(t, "alice", "2021001", "Engineering", "2021")

	profile, err := svc.Profile(ctx, alice)
	require.NoError(t, err)
	require.Equal(t, "2021001", profile.StudentID)

	updated, err := svc.UpdateProfile(ctx, alice, dto.StudentProfileUpdateRequest{
		RealName: "Alice Liddell",
		Grade:    "2022",
		Major:    "Mathematics",
		College:  "Science",
		Phone:    "13700000000",
		QQ:       "888888",
	})
	require.NoError(t, err)
	require.Equal(t, "Alice Liddell", updated.RealName)
	require.Equal(t, "2021001", updated.StudentID)
	require.Equal(t, "Science", updated.College)

	_, err = svc.UpdateProfile(ctx, alice, dto.StudentProfileUpdateRequest{RealName: "A", Grade: "1", Major: "M", College: "C", Phone: "bad", QQ: "1"})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.Profile(ctx, f.admin(t))
	require.ErrorIs(t, err, authz.ErrForbidden)

	require.Equal(t, []string{ActionProfileUpdate}, f.recorder.actions())
}

func TestStudentDashboard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := newStudentService(f)
	registrations := f.registrationService()
	now := time.Now()
	alice := f.student(t, "alice", "2021001", "Engineering", "2021")

	joined := f.activity(t, "Joined", 0, now.Add(time.Hour))
	dropped := f.activity(t, "Dropped", 0, now.Add(time.Hour))
	for i := 0; i < 6; i++ {
		f.activity(t, "Open", 0, now.Add(time.Duration(i+2)*time.Hour))
	}
	f.activity(t, "Closed", 0, now.Add(-time.Hour))

	_, err := registrations.Register(ctx, alice, joined.ID)
	require.NoError(t, err)
	_, err = registrations.Register(ctx, alice, dropped.ID)
	require.NoError(t, err)
	_, err = registrations.Cancel(ctx, alice, dropped.ID)
	require.NoError(t, err)

	dashboard, err := svc.Dashboard(ctx, alice)
	require.NoError(t, err)
	require.Len(t, dashboard.Registered, 1)
	require.Equal(t, joined.ID, dashboard.Registered[0].ID)
	require.EqualValues(t, 1, dashboard.Registered[0].RegisteredCount)

	require.Len(t, dashboard.Suggestions, dashboardSuggestionMax)
	for _, suggestion := range dashboard.Suggestions {
		require.NotEqual(t, joined.ID, suggestion.ID)
		require.NotEqual(t, dropped.ID, suggestion.ID)
		require.True(t, suggestion.IsOpen)
	}
}

func TestStudentAdminList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := newStudentService(f)
	admin := f.admin(t)

	f.student(t, "alice", "2021001", "Engineering", "2021")
	f.student(t, "bob", "2021002", "Science", "2022")
	carol := f.student(t, "carol", "2021003", "Engineering", "2023")

	all, err := svc.List(ctx, admin, dto.AdminStudentListRequest{})
	require.NoError(t, err)
	require.EqualValues(t, 3, all.Pagination.TotalItems)
	require.Equal(t, "2021001", all.Items[0].StudentID)

	engineering, err := svc.List(ctx, admin, dto.AdminStudentListRequest{Search: "engineer"})
	require.NoError(t, err)
	require.Len(t, engineering.Items, 2)

	paged, err := svc.List(ctx, admin, dto.AdminStudentListRequest{Page: 2, PageSize: 2})
	require.NoError(t, err)
	require.Len(t, paged.Items, 1)
	require.Equal(t, 2, paged.Pagination.TotalPages)

	_, err = svc.List(ctx, carol, dto.AdminStudentListRequest{})
	require.ErrorIs(t, err, authz.ErrForbidden)
}
