package repository

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/activity-portal-api/internal/models"
)

func TestSystemLogRepositoryListAndActions(t *testing.T) {
	db := newTestDB(t)
	repo := NewSystemLogRepository(db)
	userID := uint(7)

	for _, action := range []string{"login", "register_activity", "login"} {
		require.NoError(t, repo.Create(context.Background(), &models.SystemLog{
			UserID:   &userID,
			Action:   action,
			Details:  action + " details",
			Metadata: datatypes.JSONMap{"activity_id": 1},
		}))
	}
	require.NoError(t, repo.Create(context.Background(), &models.SystemLog{Action: "system_backup"}))

	entries, total, err := repo.List(context.Background(), SystemLogFilter{Action: "login", PageSize: 20})
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	require.Len(t, entries, 2)
	require.Greater(t, entries[0].ID, entries[1].ID)

	entries, total, err = repo.List(context.Background(), SystemLogFilter{UserID: &userID})
	require.NoError(t, err)
	require.Equal(t, int64(3), total)
	require.Len(t, entries, 3)

	actions, err := repo.Actions(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"login", "register_activity", "system_backup"}, actions)
}

func TestAnnouncementRepositoryCRUD(t *testing.T) {
	db := newTestDB(t)
	repo := NewAnnouncementRepository(db)

	draft := models.Announcement{Title: "Draft", Content: "soon", CreatedBy: 1, Status: models.AnnouncementStatusDraft}
	published := models.Announcement{Title: "Live", Content: "**now**", CreatedBy: 1, Status: models.AnnouncementStatusPublished}
	require.NoError(t, repo.Create(context.Background(), &draft))
	require.NoError(t, repo.Create(context.Background(), &published))

	items, total, err := repo.List(context.Background(), AnnouncementFilter{Status: models.AnnouncementStatusPublished, PageSize: 10})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Equal(t, "Live", items[0].Title)

	updated, err := repo.Update(context.Background(), draft.ID, map[string]interface{}{"status": models.AnnouncementStatusPublished})
	require.NoError(t, err)
	require.Equal(t, models.AnnouncementStatusPublished, updated.Status)

	require.NoError(t, repo.Delete(context.Background(), draft.ID))
	require.ErrorIs(t, repo.Delete(context.Background(), draft.ID), gorm.ErrRecordNotFound)
	_, err = repo.Update(context.Background(), draft.ID, map[string]interface{}{"title": "x"})
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestTokenRevocationStore(t *testing.T) {
	server, err := miniredis.Run()
	require.NoError(t, err)
	defer server.Close()

	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer client.Close()

	store := NewTokenRevocationStore(client)
	ctx := context.Background()

	revoked, err := store.IsRevoked(ctx, "token-1")
	require.NoError(t, err)
	require.False(t, revoked)

	require.NoError(t, store.Revoke(ctx, "token-1", time.Minute))
	revoked, err = store.IsRevoked(ctx, "token-1")
	require.NoError(t, err)
	require.True(t, revoked)

	server.FastForward(2 * time.Minute)
	revoked, err = store.IsRevoked(ctx, "token-1")
	require.NoError(t, err)
	require.False(t, revoked)

	require.NoError(t, store.Revoke(ctx, "expired", 0))
	revoked, err = store.IsRevoked(ctx, "expired")
	require.NoError(t, err)
	require.False(t, revoked)
}
