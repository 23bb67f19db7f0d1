package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/activity-portal-api/internal/authz"
	"github.com/noah-isme/activity-portal-api/internal/dto"
	"github.com/noah-isme/activity-portal-api/internal/models"
	"github.com/noah-isme/activity-portal-api/internal/observability"
)

func TestRegisterHappyPathRecordsOutcome(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.student(t, "alice", "2021001", "Engineering", "2021")
	activity := f.activity(t, "Hackathon", 2, time.Now().Add(48*time.Hour))
	svc := f.registrationService()

	before := testutil.ToFloat64(observability.RegistrationAttempts().WithLabelValues(observability.OutcomeRegistered))

	registration, err := svc.Register(ctx, alice, activity.ID)
	require.NoError(t, err)
	require.Equal(t, models.RegistrationStatusRegistered, registration.Status)
	require.Equal(t, activity.ID, registration.ActivityID)

	after := testutil.ToFloat64(observability.RegistrationAttempts().WithLabelValues(observability.OutcomeRegistered))
	require.Equal(t, before+1, after)
	require.Equal(t, []string{ActionActivityRegister}, f.recorder.actions())
}

func TestRegisterGuardOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := f.registrationService()
	now := time.Now()

	alice := f.student(t, "alice", "2021001", "Engineering", "2021")
	bob := f.student(t, "bob", "2021002", "Engineering", "2021")

	_, err := svc.Register(ctx, alice, 9999)
	require.ErrorIs(t, err, ErrActivityNotFound)
	require.ErrorIs(t, err, ErrNotFound)

	// Alice holds the only seat.
	full := f.activity(t, "Full", 1, now.Add(time.Hour))
	_, err = svc.Register(ctx, alice, full.ID)
	require.NoError(t, err)

	_, err = svc.Register(ctx, alice, full.ID)
	require.ErrorIs(t, err, ErrAlreadyRegistered, "duplicate wins over full")

	_, err = svc.Register(ctx, bob, full.ID)
	require.ErrorIs(t, err, ErrActivityFull)
	require.ErrorIs(t, err, ErrConflict)

	// Once the deadline passes, closed wins over both.
	svc.now = func() time.Time { return now.Add(2 * time.Hour) }
	_, err = svc.Register(ctx, alice, full.ID)
	require.ErrorIs(t, err, ErrRegistrationClosed)
	_, err = svc.Register(ctx, bob, full.ID)
	require.ErrorIs(t, err, ErrRegistrationClosed)
	require.ErrorIs(t, err, ErrDenied)
}

func TestRegisterRejectsNonStudents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := f.registrationService()
	activity := f.activity(t, "Talk", 0, time.Now().Add(time.Hour))

	_, err := svc.Register(ctx, authz.Anonymous(), activity.ID)
	require.ErrorIs(t, err, authz.ErrUnauthenticated)

	_, err = svc.Register(ctx, f.admin(t), activity.ID)
	require.ErrorIs(t, err, authz.ErrForbidden)
}

func TestRegisterRejectsCancelledActivity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := f.registrationService()
	alice := f.student(t, "alice", "2021001", "Engineering", "2021")
	activity := f.activity(t, "Talk", 0, time.Now().Add(time.Hour))
	require.NoError(t, f.db.Model(&activity).Update("status", models.ActivityStatusCancelled).Error)

	_, err := svc.Register(ctx, alice, activity.ID)
	require.ErrorIs(t, err, ErrRegistrationClosed)
}

func TestRegisterConcurrentNeverOverfills(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := f.registrationService()
	activity := f.activity(t, "Limited", 5, time.Now().Add(time.Hour))

	const attempts = 20
	principals := make([]authz.Principal, 0, attempts)
	for i := 0; i < attempts; i++ {
		principals = append(principals, f.student(t, fmt.Sprintf("student%02d", i), fmt.Sprintf("20219%02d", i), "Science", "2021"))
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, principal := range principals {
		wg.Add(1)
		go func(principal authz.Principal) {
			defer wg.Done()
			_, err := svc.Register(ctx, principal, activity.ID)
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
		}(principal)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		require.ErrorIs(t, err, ErrActivityFull)
	}
	require.Equal(t, 5, succeeded)

	count, err := f.registrations.CountRegistered(ctx, activity.ID)
	require.NoError(t, err)
	require.EqualValues(t, 5, count)
}

func TestCancelRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := f.registrationService()
	now := time.Now()

	alice := f.student(t, "alice", "2021001", "Engineering", "2021")
	activity := f.activity(t, "Workshop", 1, now.Add(time.Hour))

	_, err := svc.Cancel(ctx, alice, activity.ID)
	require.ErrorIs(t, err, ErrRegistrationNotFound)

	_, err = svc.Cancel(ctx, alice, 4242)
	require.ErrorIs(t, err, ErrActivityNotFound)

	_, err = svc.Register(ctx, alice, activity.ID)
	require.NoError(t, err)

	cancelled, err := svc.Cancel(ctx, alice, activity.ID)
	require.NoError(t, err)
	require.Equal(t, models.RegistrationStatusCancelled, cancelled.Status)

	_, err = svc.Cancel(ctx, alice, activity.ID)
	require.ErrorIs(t, err, ErrRegistrationNotFound)

	// A cancelled seat can be claimed again.
	_, err = svc.Register(ctx, alice, activity.ID)
	require.NoError(t, err)

	svc.now = func() time.Time { return activity.StartTime.Add(time.Minute) }
	_, err = svc.Cancel(ctx, alice, activity.ID)
	require.ErrorIs(t, err, ErrActivityStarted)
	require.ErrorIs(t, err, ErrDenied)

	require.Equal(t, []string{ActionActivityRegister, ActionActivityUnregister, ActionActivityRegister}, f.recorder.actions())
}

func TestCancelAttendedIsDenied(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := f.registrationService()
	admin := f.admin(t)
	alice := f.student(t, "alice", "2021001", "Engineering", "2021")
	activity := f.activity(t, "Workshop", 0, time.Now().Add(time.Hour))

	_, err := svc.Register(ctx, alice, activity.ID)
	require.NoError(t, err)
	_, err = svc.CheckIn(ctx, admin, activity.ID, dto.CheckInRequest{StudentID: "2021001"})
	require.NoError(t, err)

	_, err = svc.Cancel(ctx, alice, activity.ID)
	require.ErrorIs(t, err, ErrAlreadyAttended)
}

func TestCheckInIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := f.registrationService()
	admin := f.admin(t)
	alice := f.student(t, "alice", "2021001", "Engineering", "2021")
	activity := f.activity(t, "Workshop", 0, time.Now().Add(time.Hour))

	_, err := svc.Register(ctx, alice, activity.ID)
	require.NoError(t, err)

	first, err := svc.CheckIn(ctx, admin, activity.ID, dto.CheckInRequest{StudentID: " 2021001 "})
	require.NoError(t, err)
	require.True(t, first.Changed)
	require.Equal(t, models.RegistrationStatusAttended, first.Registration.Status)
	require.Equal(t, "Alice", first.RealName)

	second, err := svc.CheckIn(ctx, admin, activity.ID, dto.CheckInRequest{StudentID: "2021001"})
	require.NoError(t, err)
	require.False(t, second.Changed)
	require.Equal(t, models.RegistrationStatusAttended, second.Registration.Status)

	count := 0
	for _, action := range f.recorder.actions() {
		if action == ActionActivityCheckIn {
			count++
		}
	}
	require.Equal(t, 1, count)
}

func TestCheckInFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := f.registrationService()
	admin := f.admin(t)
	alice := f.student(t, "alice", "2021001", "Engineering", "2021")
	activity := f.activity(t, "Workshop", 0, time.Now().Add(time.Hour))

	_, err := svc.CheckIn(ctx, alice, activity.ID, dto.CheckInRequest{StudentID: "2021001"})
	require.ErrorIs(t, err, authz.ErrForbidden)

	_, err = svc.CheckIn(ctx, admin, activity.ID, dto.CheckInRequest{StudentID: ""})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.CheckIn(ctx, admin, 777, dto.CheckInRequest{StudentID: "2021001"})
	require.ErrorIs(t, err, ErrActivityNotFound)

	_, err = svc.CheckIn(ctx, admin, activity.ID, dto.CheckInRequest{StudentID: "2029999"})
	require.ErrorIs(t, err, ErrStudentNotFound)

	_, err = svc.CheckIn(ctx, admin, activity.ID, dto.CheckInRequest{StudentID: "2021001"})
	require.ErrorIs(t, err, ErrRegistrationNotFound)

	_, err = svc.Register(ctx, alice, activity.ID)
	require.NoError(t, err)
	_, err = svc.Cancel(ctx, alice, activity.ID)
	require.NoError(t, err)

	_, err = svc.CheckIn(ctx, admin, activity.ID, dto.CheckInRequest{StudentID: "2021001"})
	require.ErrorIs(t, err, ErrRegistrationNotFound, "cancelled rows cannot be checked in")
}

func TestListMineScopes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := f.registrationService()
	now := time.Now()
	alice := f.student(t, "alice", "2021001", "Engineering", "2021")

	upcoming := f.activity(t, "Upcoming", 0, now.Add(time.Hour))
	dropped := f.activity(t, "Dropped", 0, now.Add(2*time.Hour))
	_, err := svc.Register(ctx, alice, upcoming.ID)
	require.NoError(t, err)
	_, err = svc.Register(ctx, alice, dropped.ID)
	require.NoError(t, err)
	_, err = svc.Cancel(ctx, alice, dropped.ID)
	require.NoError(t, err)

	all, err := svc.ListMine(ctx, alice, dto.MyRegistrationListRequest{})
	require.NoError(t, err)
	require.EqualValues(t, 2, all.Pagination.TotalItems)

	active, err := svc.ListMine(ctx, alice, dto.MyRegistrationListRequest{Scope: "upcoming"})
	require.NoError(t, err)
	require.Len(t, active.Items, 1)
	require.NotNil(t, active.Items[0].Activity)
	require.Equal(t, "Upcoming", active.Items[0].Activity.Title)
	require.EqualValues(t, 1, active.Items[0].Activity.RegisteredCount)

	cancelled, err := svc.ListMine(ctx, alice, dto.MyRegistrationListRequest{Scope: "cancelled"})
	require.NoError(t, err)
	require.Len(t, cancelled.Items, 1)
	require.Equal(t, dropped.ID, cancelled.Items[0].Registration.ActivityID)

	_, err = svc.ListMine(ctx, alice, dto.MyRegistrationListRequest{Scope: "someday"})
	require.ErrorIs(t, err, ErrValidation)
}

func TestRosterAndCheckInSheet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := f.registrationService()
	admin := f.admin(t)
	activity := f.activity(t, "Concert", 0, time.Now().Add(time.Hour))

	alice := f.student(t, "alice", "2021001", "Engineering", "2021")
	bob := f.student(t, "bob", "2021002", "Science", "2022")
	carol := f.student(t, "carol", "2021003", "Arts", "2023")
	for _, principal := range []authz.Principal{alice, bob, carol} {
		_, err := svc.Register(ctx, principal, activity.ID)
		require.NoError(t, err)
	}
	_, err := svc.Cancel(ctx, carol, activity.ID)
	require.NoError(t, err)
	_, err = svc.CheckIn(ctx, admin, activity.ID, dto.CheckInRequest{StudentID: "2021002"})
	require.NoError(t, err)

	roster, err := svc.ListForActivity(ctx, admin, activity.ID, 1)
	require.NoError(t, err)
	require.Len(t, roster.Items, 3)
	require.Equal(t, rosterPageSize, roster.Pagination.PageSize)
	require.EqualValues(t, 1, roster.Activity.RegisteredCount)

	sheet, err := svc.CheckInSheet(ctx, admin, activity.ID)
	require.NoError(t, err)
	require.Len(t, sheet.Attended, 1)
	require.Equal(t, "2021002", sheet.Attended[0].StudentID)
	require.Len(t, sheet.Pending, 1)
	require.Equal(t, "2021001", sheet.Pending[0].StudentID)

	_, err = svc.ListForActivity(ctx, alice, activity.ID, 1)
	require.ErrorIs(t, err, authz.ErrForbidden)

	_, err = svc.CheckInSheet(ctx, admin, 555)
	require.ErrorIs(t, err, ErrActivityNotFound)
}
