package service

import (
	"context"
	"testing"
	"time"

	"Mansoor88-6/activity-hub/internal/apperror"
	"Mansoor88-6/activity-hub/internal/models"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeviceService_HeartbeatAndPresence(t *testing.T) {
	env := newTestEnv(t, ingestNow)
	ctx := context.Background()

	resp, err := env.deviceSvc.Heartbeat(ctx, models.HeartbeatRequest{DeviceID: "dev-1", Channel: models.ChannelClient})
	require.NoError(t, err)
	assert.Equal(t, models.PresenceOnline, resp.Device.ClientStatus)
	assert.Equal(t, models.PresenceOffline, resp.Device.ServiceStatus)
	assert.True(t, ingestNow.Equal(*resp.Device.LastSeen))
	assert.Empty(t, resp.Commands)
	assert.Nil(t, resp.Claimed)
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.Heartbeats.WithLabelValues("client")))

	env.at = ingestNow.Add(89 * time.Second)
	view, err := env.deviceSvc.Get(ctx, "dev-1")
	require.NoError(t, err)
	assert.Equal(t, models.PresenceOnline, view.ClientStatus)

	env.at = ingestNow.Add(91 * time.Second)
	view, err = env.deviceSvc.Get(ctx, "dev-1")
	require.NoError(t, err)
	assert.Equal(t, models.PresenceOffline, view.ClientStatus)

	_, err = env.deviceSvc.Heartbeat(ctx, models.HeartbeatRequest{DeviceID: "dev-1", Channel: "tray"})
	assert.True(t, apperror.IsValidation(err))
}

func TestDeviceService_HeartbeatClaims(t *testing.T) {
	env := newTestEnv(t, ingestNow)
	ctx := context.Background()
	registerDevice(t, env, "dev-1")

	_, err := env.commandSvc.Create(ctx, models.CreateCommandRequest{DeviceID: "dev-1", Channel: models.ChannelClient, Type: "hide"})
	require.NoError(t, err)
	env.at = ingestNow.Add(time.Second)
	_, err = env.commandSvc.Create(ctx, models.CreateCommandRequest{DeviceID: "dev-1", Channel: models.ChannelClient, Type: "ping"})
	require.NoError(t, err)
	_, err = env.commandSvc.Create(ctx, models.CreateCommandRequest{DeviceID: "dev-1", Channel: models.ChannelService, Type: "restart-service"})
	require.NoError(t, err)

	resp, err := env.deviceSvc.Heartbeat(ctx, models.HeartbeatRequest{DeviceID: "dev-1", Channel: models.ChannelClient})
	require.NoError(t, err)
	assert.Len(t, resp.Commands, 2, "listing does not claim")
	assert.Nil(t, resp.Claimed)

	resp, err = env.deviceSvc.Heartbeat(ctx, models.HeartbeatRequest{DeviceID: "dev-1", Channel: models.ChannelClient, Claim: true})
	require.NoError(t, err)
	require.NotNil(t, resp.Claimed)
	assert.Equal(t, "ping", resp.Claimed.Type)
	require.Len(t, resp.Commands, 1)
	assert.Equal(t, "hide", resp.Commands[0].Type)
}

func TestDeviceService_AssignAndOverview(t *testing.T) {
	env := newTestEnv(t, ingestNow)
	ctx := context.Background()

	_, err := env.deviceSvc.Assign(ctx, "dev-1", models.AssignmentUpdate{UserID: str("u1")})
	assert.True(t, apperror.IsNotFound(err))

	registerDevice(t, env, "dev-1")
	registerDevice(t, env, "dev-2")

	view, err := env.deviceSvc.Assign(ctx, "dev-1", models.AssignmentUpdate{UserID: str("u1"), DisplayName: str("Alice")})
	require.NoError(t, err)
	assert.Equal(t, "Alice", *view.DisplayName)
	require.NotNil(t, view.CheckInTime)
	assert.True(t, ingestNow.Equal(*view.CheckInTime))

	ingest(t, env, chunkInput("dev-1", ingestNow.Add(-time.Minute), 200, 100))
	_, err = env.commandSvc.Create(ctx, models.CreateCommandRequest{DeviceID: "dev-1", Channel: models.ChannelClient, Type: "lock"})
	require.NoError(t, err)

	overview, err := env.deviceSvc.Overview(ctx)
	require.NoError(t, err)
	require.Len(t, overview, 2)

	assert.Equal(t, "dev-1", overview[0].DeviceID)
	require.NotNil(t, overview[0].ActivityToday)
	assert.Equal(t, models.StateActive, overview[0].ActivityToday.ActivityState)
	require.NotNil(t, overview[0].CommandsSummary.LastPending)
	assert.Equal(t, "lock", overview[0].CommandsSummary.LastPending.Type)
	assert.Equal(t, 1, overview[0].CommandsSummary.Totals[models.CommandPending])

	assert.Equal(t, "dev-2", overview[1].DeviceID)
	assert.Nil(t, overview[1].ActivityToday)
	assert.Nil(t, overview[1].CommandsSummary.LastPending)
}
