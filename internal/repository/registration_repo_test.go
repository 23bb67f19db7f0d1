package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/activity-portal-api/internal/models"
)

var errSeatTaken = errors.New("seat taken")

func capacityGuard(state SeatState) error {
	if state.Existing != nil {
		return errSeatTaken
	}
	if state.Activity.IsFull(state.Registered) {
		return errSeatTaken
	}
	return nil
}

func TestRegistrationRepositoryReserveNeverOverbooks(t *testing.T) {
	db := newTestDB(t)
	repo := NewRegistrationRepository(db)
	activity := seedActivity(t, db, "Hackathon", 3, time.Now().Add(48*time.Hour))

	const attempts = 12
	users := make([]models.User, attempts)
	for i := range users {
		users[i] = seedStudent(t, db, fmt.Sprintf("student%02d", i), fmt.Sprintf("2024%04d", i), "Engineering", "2024")
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
		failures  []error
	)
	for _, user := range users {
		wg.Add(1)
		go func(userID uint) {
			defer wg.Done()
			_, err := repo.Reserve(context.Background(), userID, activity.ID, time.Now(), capacityGuard)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, errSeatTaken):
				rejected++
			default:
				failures = append(failures, err)
			}
		}(user.ID)
	}
	wg.Wait()

	require.Empty(t, failures)
	require.Equal(t, 3, succeeded)
	require.Equal(t, attempts-3, rejected)

	count, err := repo.CountRegistered(context.Background(), activity.ID)
	require.NoError(t, err)
	require.Equal(t, int64(3), count)
}

func TestRegistrationRepositoryReserveMissingActivity(t *testing.T) {
	db := newTestDB(t)
	repo := NewRegistrationRepository(db)
	user := seedStudent(t, db, "alice", "20240001", "Science", "2024")

	_, err := repo.Reserve(context.Background(), user.ID, 404, time.Now(), capacityGuard)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRegistrationRepositoryUniqueIndexRejectsDuplicateActiveRow(t *testing.T) {
	db := newTestDB(t)
	repo := NewRegistrationRepository(db)
	activity := seedActivity(t, db, "Lecture", 0, time.Now().Add(time.Hour))
	user := seedStudent(t, db, "alice", "20240001", "Science", "2024")

	allowAll := func(SeatState) error { return nil }
	_, err := repo.Reserve(context.Background(), user.ID, activity.ID, time.Now(), allowAll)
	require.NoError(t, err)

	_, err = repo.Reserve(context.Background(), user.ID, activity.ID, time.Now(), allowAll)
	require.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	var rows int64
	require.NoError(t, db.Model(&models.Registration{}).Where("user_id = ?", user.ID).Count(&rows).Error)
	require.Equal(t, int64(1), rows)
}

func TestRegistrationRepositoryCancelFreesSeat(t *testing.T) {
	db := newTestDB(t)
	repo := NewRegistrationRepository(db)
	activity := seedActivity(t, db, "Workshop", 1, time.Now().Add(time.Hour))
	first := seedStudent(t, db, "alice", "20240001", "Science", "2024")
	second := seedStudent(t, db, "bob", "20240002", "Science", "2024")

	_, err := repo.Reserve(context.Background(), first.ID, activity.ID, time.Now(), capacityGuard)
	require.NoError(t, err)

	_, err = repo.Reserve(context.Background(), second.ID, activity.ID, time.Now(), capacityGuard)
	require.ErrorIs(t, err, errSeatTaken)

	cancelled, err := repo.Cancel(context.Background(), first.ID, activity.ID, func(state CancelState) error {
		require.NotNil(t, state.Registration)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, models.RegistrationStatusCancelled, cancelled.Status)

	_, err = repo.Reserve(context.Background(), second.ID, activity.ID, time.Now(), capacityGuard)
	require.NoError(t, err)

	_, err = repo.Reserve(context.Background(), first.ID, activity.ID, time.Now(), capacityGuard)
	require.ErrorIs(t, err, errSeatTaken)
}

func TestRegistrationRepositoryCancelGuardAbortsWithoutChanges(t *testing.T) {
	db := newTestDB(t)
	repo := NewRegistrationRepository(db)
	activity := seedActivity(t, db, "Workshop", 0, time.Now().Add(time.Hour))
	user := seedStudent(t, db, "alice", "20240001", "Science", "2024")

	registration, err := repo.Reserve(context.Background(), user.ID, activity.ID, time.Now(), capacityGuard)
	require.NoError(t, err)

	denied := errors.New("denied")
	_, err = repo.Cancel(context.Background(), user.ID, activity.ID, func(CancelState) error { return denied })
	require.ErrorIs(t, err, denied)

	var stored models.Registration
	require.NoError(t, db.First(&stored, registration.ID).Error)
	require.Equal(t, models.RegistrationStatusRegistered, stored.Status)
}

func TestRegistrationRepositoryMarkAttendedIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	repo := NewRegistrationRepository(db)
	activity := seedActivity(t, db, "Seminar", 0, time.Now().Add(time.Hour))
	user := seedStudent(t, db, "alice", "20240001", "Science", "2024")

	_, _, err := repo.MarkAttended(context.Background(), user.ID, activity.ID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	_, err = repo.Reserve(context.Background(), user.ID, activity.ID, time.Now(), capacityGuard)
	require.NoError(t, err)

	registration, changed, err := repo.MarkAttended(context.Background(), user.ID, activity.ID)
	require.NoError(t, err)
	require.True(t, changed)
	require.Equal(t, models.RegistrationStatusAttended, registration.Status)

	registration, changed, err = repo.MarkAttended(context.Background(), user.ID, activity.ID)
	require.NoError(t, err)
	require.False(t, changed)
	require.Equal(t, models.RegistrationStatusAttended, registration.Status)
}

func TestRegistrationRepositoryListMineScopes(t *testing.T) {
	db := newTestDB(t)
	repo := NewRegistrationRepository(db)
	user := seedStudent(t, db, "alice", "20240001", "Science", "2024")
	now := time.Now()

	upcoming := seedActivity(t, db, "Upcoming", 0, now.Add(time.Hour))
	past := seedActivity(t, db, "Past", 0, now.Add(-72*time.Hour))
	dropped := seedActivity(t, db, "Dropped", 0, now.Add(time.Hour))

	for _, activity := range []models.Activity{upcoming, past, dropped} {
		require.NoError(t, db.Create(&models.Registration{
			UserID: user.ID, ActivityID: activity.ID, RegisterTime: now, Status: models.RegistrationStatusRegistered,
		}).Error)
	}
	require.NoError(t, db.Model(&models.Registration{}).
		Where("activity_id = ?", dropped.ID).
		Update("status", models.RegistrationStatusCancelled).Error)

	cases := map[string][]string{
		ScopeAll:       {"Upcoming", "Dropped", "Past"},
		ScopeUpcoming:  {"Upcoming"},
		ScopePast:      {"Past"},
		ScopeCancelled: {"Dropped"},
	}
	for scope, expected := range cases {
		items, total, err := repo.ListMine(context.Background(), MyRegistrationFilter{UserID: user.ID, Scope: scope, Now: now, PageSize: 10})
		require.NoError(t, err, scope)
		require.Equal(t, int64(len(expected)), total, scope)
		titles := make([]string, 0, len(items))
		for _, item := range items {
			require.NotNil(t, item.Activity)
			titles = append(titles, item.Activity.Title)
		}
		require.ElementsMatch(t, expected, titles, scope)
	}

	_, _, err := repo.ListMine(context.Background(), MyRegistrationFilter{UserID: user.ID, Scope: "someday"})
	require.ErrorIs(t, err, ErrUnsupportedScope)
}

func TestRegistrationRepositoryRosterOrderIsStable(t *testing.T) {
	db := newTestDB(t)
	repo := NewRegistrationRepository(db)
	activity := seedActivity(t, db, "Concert", 0, time.Now().Add(time.Hour))
	at := time.Now().Truncate(time.Second)

	for i := 0; i < 5; i++ {
		user := seedStudent(t, db, fmt.Sprintf("s%d", i), fmt.Sprintf("2024000%d", i), "Arts", "2023")
		require.NoError(t, db.Create(&models.Registration{
			UserID: user.ID, ActivityID: activity.ID, RegisterTime: at, Status: models.RegistrationStatusRegistered,
		}).Error)
	}

	first, total, err := repo.ListForActivity(context.Background(), activity.ID, 1, 3)
	require.NoError(t, err)
	require.Equal(t, int64(5), total)
	require.Len(t, first, 3)

	second, _, err := repo.ListForActivity(context.Background(), activity.ID, 2, 3)
	require.NoError(t, err)
	require.Len(t, second, 2)
	require.Less(t, first[2].RegistrationID, second[0].RegistrationID)
	require.Equal(t, "20240000", first[0].StudentID)
	require.Equal(t, "Arts", first[0].College)

	attended, err := repo.RosterByStatus(context.Background(), activity.ID, models.RegistrationStatusAttended)
	require.NoError(t, err)
	require.Empty(t, attended)
}
