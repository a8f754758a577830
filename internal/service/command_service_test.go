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

func registerDevice(t *testing.T, env *testEnv, deviceID string) {
	t.Helper()
	_, err := env.devices.RecordHeartbeat(context.Background(), deviceID, models.ChannelClient, env.at)
	require.NoError(t, err)
}

func TestCommandService_CreateValidates(t *testing.T) {
	env := newTestEnv(t, ingestNow)
	ctx := context.Background()
	registerDevice(t, env, "dev-1")

	_, err := env.commandSvc.Create(ctx, models.CreateCommandRequest{DeviceID: "dev-1", Channel: "desktop", Type: "lock"})
	assert.True(t, apperror.IsValidation(err))

	_, err = env.commandSvc.Create(ctx, models.CreateCommandRequest{DeviceID: "dev-1", Channel: models.ChannelService, Type: "lock"})
	assert.True(t, apperror.IsValidation(err), "lock is a client command")

	_, err = env.commandSvc.Create(ctx, models.CreateCommandRequest{DeviceID: "ghost", Channel: models.ChannelClient, Type: "lock"})
	assert.True(t, apperror.IsNotFound(err))

	cmd, err := env.commandSvc.Create(ctx, models.CreateCommandRequest{
		DeviceID: "dev-1",
		Channel:  models.ChannelService,
		Type:     "restart-client",
		Payload:  map[string]interface{}{"reason": "update"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, cmd.CommandID)
	assert.Equal(t, models.CommandPending, cmd.Status)
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.CommandsCreated.WithLabelValues("service")))
}

func TestCommandService_DuplicatePendingIsConflict(t *testing.T) {
	env := newTestEnv(t, ingestNow)
	ctx := context.Background()
	registerDevice(t, env, "dev-1")
	req := models.CreateCommandRequest{DeviceID: "dev-1", Channel: models.ChannelClient, Type: "show-popup-message"}

	first, err := env.commandSvc.Create(ctx, req)
	require.NoError(t, err)

	_, err = env.commandSvc.Create(ctx, req)
	assert.True(t, apperror.IsConflict(err))
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.CommandConflicts))

	_, err = env.commandSvc.Acknowledge(ctx, first.CommandID)
	require.NoError(t, err)
	_, err = env.commandSvc.Create(ctx, req)
	assert.NoError(t, err, "acknowledged commands do not block new ones")
}

func TestCommandService_ClaimAndLifecycle(t *testing.T) {
	env := newTestEnv(t, ingestNow)
	ctx := context.Background()
	registerDevice(t, env, "dev-1")

	claimed, err := env.commandSvc.Claim(ctx, models.ClaimRequest{DeviceID: "dev-1", Channel: models.ChannelClient})
	require.NoError(t, err)
	assert.Nil(t, claimed)

	_, err = env.commandSvc.Create(ctx, models.CreateCommandRequest{DeviceID: "dev-1", Channel: models.ChannelClient, Type: "ping"})
	require.NoError(t, err)
	env.at = ingestNow.Add(time.Second)
	newest, err := env.commandSvc.Create(ctx, models.CreateCommandRequest{DeviceID: "dev-1", Channel: models.ChannelClient, Type: "quote"})
	require.NoError(t, err)

	pending, err := env.commandSvc.ListPending(ctx, "dev-1", "")
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	claimed, err = env.commandSvc.Claim(ctx, models.ClaimRequest{DeviceID: "dev-1", Channel: models.ChannelClient})
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, newest.CommandID, claimed.CommandID)
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.CommandsClaimed.WithLabelValues("client")))

	_, err = env.commandSvc.Acknowledge(ctx, claimed.CommandID)
	assert.True(t, apperror.IsConflict(err))

	done, err := env.commandSvc.Complete(ctx, claimed.CommandID)
	require.NoError(t, err)
	assert.Equal(t, models.CommandCompleted, done.Status)

	_, err = env.commandSvc.ListPending(ctx, "dev-1", "printer")
	assert.True(t, apperror.IsValidation(err))

	env.at = ingestNow.Add(48 * time.Hour)
	n, err := env.commandSvc.PurgeCompleted(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestCommandService_List(t *testing.T) {
	env := newTestEnv(t, ingestNow)
	ctx := context.Background()
	registerDevice(t, env, "dev-1")

	for i, typ := range []string{"hide", "refresh", "lock"} {
		env.at = ingestNow.Add(time.Duration(i) * time.Minute)
		_, err := env.commandSvc.Create(ctx, models.CreateCommandRequest{DeviceID: "dev-1", Channel: models.ChannelClient, Type: typ})
		require.NoError(t, err)
	}

	commands, total, err := env.commandSvc.List(ctx, models.CommandFilter{DeviceID: "dev-1"})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, commands, 3)
	assert.Equal(t, "lock", commands[0].Type)

	_, _, err = env.commandSvc.List(ctx, models.CommandFilter{Status: "lost"})
	assert.True(t, apperror.IsValidation(err))
}

func TestAllowedCommandTypes(t *testing.T) {
	assert.Equal(t, []string{"restart-client", "restart-service"}, AllowedCommandTypes(models.ChannelService))
	assert.Len(t, AllowedCommandTypes(models.ChannelClient), 17)
	assert.Empty(t, AllowedCommandTypes("other"))
}
