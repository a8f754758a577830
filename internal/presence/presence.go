// Package presence derives per-channel liveness from heartbeat timestamps.
// Nothing here is stored; callers evaluate it on every read.
package presence

import (
	"time"

	"Mansoor88-6/activity-hub/internal/models"
)

// GraceMultiplier allows a heartbeat to be up to 50% late before the channel
// is reported offline.
const GraceMultiplier = 1.5

// Compute returns the presence of device at now under settings.
func Compute(device models.Device, settings models.TrackingSettings, now time.Time) models.Presence {
	p := models.Presence{
		ClientStatus:  channelStatus(device.LastClientHeartbeatAt, settings.HeartbeatInterval(models.ChannelClient), now),
		ServiceStatus: channelStatus(device.LastServiceHeartbeatAt, settings.HeartbeatInterval(models.ChannelService), now),
	}

	switch {
	case device.LastClientHeartbeatAt != nil && device.LastServiceHeartbeatAt != nil:
		last := *device.LastClientHeartbeatAt
		if device.LastServiceHeartbeatAt.After(last) {
			last = *device.LastServiceHeartbeatAt
		}
		p.LastSeen = &last
	case device.LastClientHeartbeatAt != nil:
		last := *device.LastClientHeartbeatAt
		p.LastSeen = &last
	case device.LastServiceHeartbeatAt != nil:
		last := *device.LastServiceHeartbeatAt
		p.LastSeen = &last
	}
	return p
}

// Online reports whether one channel is alive.
func Online(lastHeartbeat *time.Time, interval time.Duration, now time.Time) bool {
	if lastHeartbeat == nil {
		return false
	}
	grace := time.Duration(float64(interval) * GraceMultiplier)
	return now.Sub(*lastHeartbeat) < grace
}

func channelStatus(lastHeartbeat *time.Time, interval time.Duration, now time.Time) models.PresenceStatus {
	if Online(lastHeartbeat, interval, now) {
		return models.PresenceOnline
	}
	return models.PresenceOffline
}

// View attaches presence to a device.
func View(device models.Device, settings models.TrackingSettings, now time.Time) models.DeviceView {
	return models.DeviceView{Device: device, Presence: Compute(device, settings, now)}
}
