package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/activity-portal-api/internal/authz"
	"github.com/noah-isme/activity-portal-api/internal/models"
)

func TestNotificationsForStudent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Now()
	alice := f.student(t, "alice", "2021001", "Engineering", "2021")

	// f.activity starts one day after the deadline.
	soon := f.activity(t, "Soon", 0, now.Add(-12*time.Hour))
	later := f.activity(t, "Later", 0, now.Add(48*time.Hour))
	for _, id := range []uint{soon.ID, later.ID} {
		require.NoError(t, f.db.Create(&models.Registration{UserID: alice.UserID, ActivityID: id, RegisterTime: now, Status: models.RegistrationStatusRegistered}).Error)
	}

	svc := NewNotificationService(f.activities, f.registrations, time.FixedZone("CST", 8*3600), testLogger())
	items, err := svc.List(ctx, alice)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, NotificationActivityStarting, items[0].Kind)
	require.Equal(t, soon.ID, items[0].ActivityID)
	require.Contains(t, items[0].Message, "Soon")
	require.Contains(t, items[0].Message, "Main Hall")
}

func TestNotificationsForAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Now()
	admin := f.admin(t)

	closing := f.activity(t, "Closing", 0, now.Add(3*time.Hour))
	f.activity(t, "Far", 0, now.Add(72*time.Hour))
	f.activity(t, "Closed", 0, now.Add(-time.Hour))

	svc := NewNotificationService(f.activities, f.registrations, nil, testLogger())
	items, err := svc.List(ctx, admin)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, NotificationDeadlineClosing, items[0].Kind)
	require.Equal(t, closing.ID, items[0].ActivityID)

	_, err = svc.List(ctx, authz.Anonymous())
	require.ErrorIs(t, err, authz.ErrUnauthenticated)
}
