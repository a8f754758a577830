package repository

import (
	"context"
	"testing"
	"time"

	"Mansoor88-6/activity-hub/internal/apperror"
	"Mansoor88-6/activity-hub/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func strPtr(s string) *string { return &s }

func TestDeviceRepository_RecordHeartbeat(t *testing.T) {
	repo := NewDeviceRepository(newTestDB(t), zap.NewNop())
	ctx := context.Background()

	d, err := repo.RecordHeartbeat(ctx, "dev-1", models.ChannelClient, baseTime)
	require.NoError(t, err)
	assert.Equal(t, "dev-1", d.DeviceID)
	require.NotNil(t, d.LastClientHeartbeatAt)
	assert.True(t, baseTime.Equal(*d.LastClientHeartbeatAt))
	assert.Nil(t, d.LastServiceHeartbeatAt)
	assert.True(t, baseTime.Equal(d.CreatedAt))

	later := baseTime.Add(time.Minute)
	d, err = repo.RecordHeartbeat(ctx, "dev-1", models.ChannelService, later)
	require.NoError(t, err)
	assert.True(t, baseTime.Equal(*d.LastClientHeartbeatAt), "client channel untouched")
	assert.True(t, later.Equal(*d.LastServiceHeartbeatAt))
	assert.True(t, later.Equal(*d.LastSeenAt))
	assert.True(t, baseTime.Equal(d.CreatedAt))

	// An out-of-order heartbeat does not move lastSeenAt backwards.
	d, err = repo.RecordHeartbeat(ctx, "dev-1", models.ChannelClient, baseTime.Add(-time.Minute))
	require.NoError(t, err)
	assert.True(t, later.Equal(*d.LastSeenAt))

	_, err = repo.RecordHeartbeat(ctx, "dev-1", models.Channel("printer"), baseTime)
	assert.True(t, apperror.IsValidation(err))
}

func TestDeviceRepository_UpdateAssignment(t *testing.T) {
	repo := NewDeviceRepository(newTestDB(t), zap.NewNop())
	ctx := context.Background()

	_, err := repo.UpdateAssignment(ctx, "ghost", models.AssignmentUpdate{UserID: strPtr("u1")}, baseTime)
	assert.True(t, apperror.IsNotFound(err))

	_, err = repo.RecordHeartbeat(ctx, "dev-1", models.ChannelClient, baseTime)
	require.NoError(t, err)

	checkIn := baseTime.Add(-time.Hour)
	d, err := repo.UpdateAssignment(ctx, "dev-1", models.AssignmentUpdate{
		UserID:      strPtr("u1"),
		Username:    strPtr("alice"),
		CheckInTime: &checkIn,
	}, baseTime.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, "alice", *d.Username)
	assert.True(t, checkIn.Equal(*d.CheckInTime))
	assert.Nil(t, d.Designation)

	d, err = repo.UpdateAssignment(ctx, "dev-1", models.AssignmentUpdate{Designation: strPtr("Engineer")}, baseTime.Add(2*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, "alice", *d.Username, "unset fields are kept")
	assert.Equal(t, "Engineer", *d.Designation)

	ref, err := repo.LookupAssignment(ctx, "dev-1")
	require.NoError(t, err)
	assert.Equal(t, "u1", *ref.UserID)
	assert.Equal(t, "alice", *ref.Username)

	ref, err = repo.LookupAssignment(ctx, "unknown")
	require.NoError(t, err)
	assert.Nil(t, ref.UserID)
}

func TestDeviceRepository_TouchSeenAndList(t *testing.T) {
	repo := NewDeviceRepository(newTestDB(t), zap.NewNop())
	ctx := context.Background()

	_, err := repo.RecordHeartbeat(ctx, "dev-b", models.ChannelClient, baseTime.Add(time.Hour))
	require.NoError(t, err)

	require.NoError(t, repo.TouchSeen(ctx, []string{"dev-a", "dev-b"}, baseTime))
	require.NoError(t, repo.TouchSeen(ctx, nil, baseTime))

	devices, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, devices, 2)
	assert.Equal(t, "dev-a", devices[0].DeviceID)
	assert.True(t, baseTime.Equal(*devices[0].LastSeenAt))
	assert.Nil(t, devices[0].LastClientHeartbeatAt)
	assert.True(t, baseTime.Add(time.Hour).Equal(*devices[1].LastSeenAt))

	ok, err := repo.Exists(ctx, "dev-a")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = repo.Exists(ctx, "dev-z")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = repo.Get(ctx, "dev-z")
	assert.True(t, apperror.IsNotFound(err))
}
