package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/activity-portal-api/internal/authz"
	"github.com/noah-isme/activity-portal-api/internal/dto"
	"github.com/noah-isme/activity-portal-api/internal/models"
	"github.com/noah-isme/activity-portal-api/internal/repository"
)

func newActivityRequest(now time.Time) dto.ActivityCreateRequest {
	return dto.ActivityCreateRequest{
		Title:                "Orientation",
		Description:          "<p>Welcome</p><script>alert(1)</script>",
		Location:             "Gym",
		StartTime:            now.Add(48 * time.Hour),
		EndTime:              now.Add(50 * time.Hour),
		RegistrationDeadline: now.Add(24 * time.Hour),
		MaxParticipants:      30,
	}
}

func TestActivityCreateSanitizesAndValidates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := f.activityService()
	admin := f.admin(t)
	now := time.Now()

	created, err := svc.Create(ctx, admin, newActivityRequest(now))
	require.NoError(t, err)
	require.Equal(t, models.ActivityStatusActive, created.Status)
	require.Equal(t, "<p>Welcome</p>", created.Description)
	require.Equal(t, admin.UserID, created.CreatedBy)
	require.True(t, created.IsOpen)
	require.EqualValues(t, 30, created.RemainingSeats)

	inverted := newActivityRequest(now)
	inverted.EndTime = inverted.StartTime.Add(-time.Minute)
	_, err = svc.Create(ctx, admin, inverted)
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	require.Contains(t, validationErr.Fields, "end_time")

	negative := newActivityRequest(now)
	negative.MaxParticipants = -1
	_, err = svc.Create(ctx, admin, negative)
	require.ErrorIs(t, err, ErrValidation)

	missing := newActivityRequest(now)
	missing.Title = ""
	_, err = svc.Create(ctx, admin, missing)
	require.ErrorAs(t, err, &validationErr)
	require.Contains(t, validationErr.Fields, "title")

	student := f.student(t, "alice", "2021001", "Engineering", "2021")
	_, err = svc.Create(ctx, student, newActivityRequest(now))
	require.ErrorIs(t, err, authz.ErrForbidden)
}

func TestActivityUpdateMergesSchedule(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := f.activityService()
	admin := f.admin(t)
	activity := f.activity(t, "Seminar", 10, time.Now().Add(time.Hour))

	title := "Seminar II"
	updated, err := svc.Update(ctx, admin, activity.ID, dto.ActivityUpdateRequest{Title: &title})
	require.NoError(t, err)
	require.Equal(t, "Seminar II", updated.Title)
	require.Equal(t, activity.Location, updated.Location)

	badEnd := activity.StartTime.Add(-time.Hour)
	_, err = svc.Update(ctx, admin, activity.ID, dto.ActivityUpdateRequest{EndTime: &badEnd})
	require.ErrorIs(t, err, ErrValidation)

	reloaded, err := f.activities.GetByID(ctx, activity.ID)
	require.NoError(t, err)
	require.WithinDuration(t, activity.EndTime, reloaded.EndTime, time.Second)

	_, err = svc.Update(ctx, admin, 9999, dto.ActivityUpdateRequest{Title: &title})
	require.ErrorIs(t, err, ErrActivityNotFound)
}

func TestActivityDeleteOrCancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := f.activityService()
	registrations := f.registrationService()
	admin := f.admin(t)
	alice := f.student(t, "alice", "2021001", "Engineering", "2021")

	empty := f.activity(t, "Empty", 0, time.Now().Add(time.Hour))
	result, err := svc.DeleteOrCancel(ctx, admin, empty.ID)
	require.NoError(t, err)
	require.Equal(t, string(repository.DeleteOutcomeDeleted), result.Outcome)
	_, err = svc.Get(ctx, empty.ID)
	require.ErrorIs(t, err, ErrActivityNotFound)

	busy := f.activity(t, "Busy", 0, time.Now().Add(time.Hour))
	_, err = registrations.Register(ctx, alice, busy.ID)
	require.NoError(t, err)
	_, err = registrations.Cancel(ctx, alice, busy.ID)
	require.NoError(t, err)

	// Only a cancelled registration remains, which still blocks deletion.
	result, err = svc.DeleteOrCancel(ctx, admin, busy.ID)
	require.NoError(t, err)
	require.Equal(t, string(repository.DeleteOutcomeCancelled), result.Outcome)

	kept, err := svc.Get(ctx, busy.ID)
	require.NoError(t, err)
	require.Equal(t, models.ActivityStatusCancelled, kept.Status)

	_, err = svc.DeleteOrCancel(ctx, admin, 4040)
	require.ErrorIs(t, err, ErrActivityNotFound)

	require.Contains(t, f.recorder.actions(), ActionActivityDelete)
	require.Contains(t, f.recorder.actions(), ActionActivityCancel)
}

func TestActivityComplete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := f.activityService()
	admin := f.admin(t)
	activity := f.activity(t, "Run", 0, time.Now().Add(time.Hour))

	completed, err := svc.Complete(ctx, admin, activity.ID)
	require.NoError(t, err)
	require.Equal(t, models.ActivityStatusCompleted, completed.Status)
	require.False(t, completed.IsOpen)

	_, err = svc.Complete(ctx, admin, activity.ID)
	require.ErrorIs(t, err, ErrActivityNotActive)
	require.ErrorIs(t, err, ErrDenied)
}

func TestActivityListVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := f.activityService()
	admin := f.admin(t)
	now := time.Now()

	f.activity(t, "Open Talk", 0, now.Add(time.Hour))
	f.activity(t, "Closed Talk", 0, now.Add(-time.Hour))
	cancelled := f.activity(t, "Cancelled Talk", 0, now.Add(time.Hour))
	require.NoError(t, f.db.Model(&cancelled).Update("status", models.ActivityStatusCancelled).Error)

	open, err := svc.List(ctx, authz.Anonymous(), dto.ActivityListRequest{Visibility: "open"})
	require.NoError(t, err)
	require.Len(t, open.Items, 1)
	require.Equal(t, "Open Talk", open.Items[0].Title)

	past, err := svc.List(ctx, authz.Anonymous(), dto.ActivityListRequest{Visibility: "past"})
	require.NoError(t, err)
	require.Len(t, past.Items, 1)
	require.Equal(t, "Closed Talk", past.Items[0].Title)

	search, err := svc.List(ctx, authz.Anonymous(), dto.ActivityListRequest{Query: "closed"})
	require.NoError(t, err)
	require.Len(t, search.Items, 1)

	byStatus, err := svc.List(ctx, admin, dto.ActivityListRequest{Status: "cancelled"})
	require.NoError(t, err)
	require.Len(t, byStatus.Items, 1)

	ignored, err := svc.List(ctx, authz.Anonymous(), dto.ActivityListRequest{Status: "cancelled"})
	require.NoError(t, err)
	require.Len(t, ignored.Items, 3, "status filter is admin only")

	_, err = svc.List(ctx, authz.Anonymous(), dto.ActivityListRequest{Visibility: "soon"})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.List(ctx, admin, dto.ActivityListRequest{Status: "paused"})
	require.ErrorIs(t, err, ErrValidation)
}

func TestActivityDetailForStudent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := f.activityService()
	registrations := f.registrationService()
	alice := f.student(t, "alice", "2021001", "Engineering", "2021")
	bob := f.student(t, "bob", "2021002", "Engineering", "2021")
	activity := f.activity(t, "Single", 1, time.Now().Add(time.Hour))

	detail, err := svc.Detail(ctx, alice, activity.ID)
	require.NoError(t, err)
	require.True(t, detail.CanRegister)
	require.False(t, detail.CanCancel)
	require.Nil(t, detail.Registration)

	_, err = registrations.Register(ctx, alice, activity.ID)
	require.NoError(t, err)

	detail, err = svc.Detail(ctx, alice, activity.ID)
	require.NoError(t, err)
	require.False(t, detail.CanRegister)
	require.True(t, detail.CanCancel)
	require.NotNil(t, detail.Registration)
	require.True(t, detail.Activity.IsFull)

	other, err := svc.Detail(ctx, bob, activity.ID)
	require.NoError(t, err)
	require.False(t, other.CanRegister)
	require.EqualValues(t, 0, other.Activity.RemainingSeats)

	anonymous, err := svc.Detail(ctx, authz.Anonymous(), activity.ID)
	require.NoError(t, err)
	require.False(t, anonymous.CanRegister)

	_, err = svc.Detail(ctx, alice, 31337)
	require.ErrorIs(t, err, ErrActivityNotFound)
}

func TestActivityHome(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := f.activityService()
	registrations := f.registrationService()
	now := time.Now()

	alice := f.student(t, "alice", "2021001", "Engineering", "2021")
	bob := f.student(t, "bob", "2021002", "Engineering", "2021")

	soon := f.activity(t, "Soon", 0, now.Add(time.Hour))
	popular := f.activity(t, "Popular", 0, now.Add(72*time.Hour))
	for i := 0; i < 8; i++ {
		f.activity(t, "Filler", 0, now.Add(96*time.Hour))
	}
	for _, principal := range []authz.Principal{alice, bob} {
		_, err := registrations.Register(ctx, principal, popular.ID)
		require.NoError(t, err)
	}

	home, err := svc.Home(ctx)
	require.NoError(t, err)
	require.Len(t, home.Latest, homeLatestLimit)
	require.Len(t, home.Popular, homePopularLimit)
	require.Equal(t, popular.ID, home.Popular[0].ID)
	require.EqualValues(t, 2, home.Popular[0].RegisteredCount)
	require.Equal(t, soon.ID, home.ClosingSoon[0].ID)
}
