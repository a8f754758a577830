package service

import (
	"context"
	"time"

	"Mansoor88-6/activity-hub/internal/metrics"
	"Mansoor88-6/activity-hub/internal/models"
	"Mansoor88-6/activity-hub/internal/presence"
	"Mansoor88-6/activity-hub/internal/validation"

	"go.uber.org/zap"
)

// TodayReader supplies the per-device activity snapshot shown in overviews.
type TodayReader interface {
	Today(ctx context.Context, deviceID string, date *time.Time) (*models.TodaySnapshot, error)
}

// DeviceService handles heartbeats, assignments and device listings.
// Presence is computed on every read and never stored.
type DeviceService struct {
	devices   DeviceStore
	commands  CommandStore
	activity  TodayReader
	settings  SettingsProvider
	validator *validation.Validator
	metrics   *metrics.Metrics
	logger    *zap.Logger
	now       func() time.Time
}

func NewDeviceService(
	devices DeviceStore,
	commands CommandStore,
	activity TodayReader,
	settings SettingsProvider,
	v *validation.Validator,
	m *metrics.Metrics,
	logger *zap.Logger,
) *DeviceService {
	return &DeviceService{
		devices:   devices,
		commands:  commands,
		activity:  activity,
		settings:  settings,
		validator: v,
		metrics:   m,
		logger:    logger,
		now:       time.Now,
	}
}

// Heartbeat registers liveness on one channel and returns the device with its
// presence and the channel's pending commands. With Claim set, the newest
// pending command is acknowledged and returned separately.
func (s *DeviceService) Heartbeat(ctx context.Context, req models.HeartbeatRequest) (*models.HeartbeatResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}
	now := s.now().UTC()

	device, err := s.devices.RecordHeartbeat(ctx, req.DeviceID, req.Channel, now)
	if err != nil {
		return nil, err
	}
	s.metrics.Heartbeats.WithLabelValues(string(req.Channel)).Inc()

	resp := &models.HeartbeatResponse{}
	if req.Claim {
		resp.Claimed, err = s.commands.ClaimNewest(ctx, req.DeviceID, req.Channel, now)
		if err != nil {
			return nil, err
		}
		if resp.Claimed != nil {
			s.metrics.CommandsClaimed.WithLabelValues(string(req.Channel)).Inc()
		}
	}

	resp.Commands, err = s.commands.ListPending(ctx, req.DeviceID, req.Channel)
	if err != nil {
		return nil, err
	}
	resp.Device = presence.View(*device, s.settings.Current(ctx), now)

	s.logger.Debug("Heartbeat received",
		zap.String("device_id", req.DeviceID),
		zap.String("channel", string(req.Channel)),
		zap.Int("pending_commands", len(resp.Commands)),
	)
	return resp, nil
}

func (s *DeviceService) Get(ctx context.Context, deviceID string) (*models.DeviceView, error) {
	device, err := s.devices.Get(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	view := presence.View(*device, s.settings.Current(ctx), s.now())
	return &view, nil
}

// Assign updates the assignment fields of a known device. CheckInTime
// defaults to now.
func (s *DeviceService) Assign(ctx context.Context, deviceID string, update models.AssignmentUpdate) (*models.DeviceView, error) {
	if err := requireDevice(deviceID); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	if update.CheckInTime == nil {
		update.CheckInTime = &now
	}

	device, err := s.devices.UpdateAssignment(ctx, deviceID, update, now)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Device assignment updated", zap.String("device_id", deviceID))
	view := presence.View(*device, s.settings.Current(ctx), now)
	return &view, nil
}

// List returns all devices with presence.
func (s *DeviceService) List(ctx context.Context) ([]models.DeviceView, error) {
	devices, err := s.devices.List(ctx)
	if err != nil {
		return nil, err
	}
	settings := s.settings.Current(ctx)
	now := s.now()

	views := make([]models.DeviceView, 0, len(devices))
	for _, d := range devices {
		views = append(views, presence.View(d, settings, now))
	}
	return views, nil
}

// Overview combines presence, a command summary and today's activity for
// every device.
func (s *DeviceService) Overview(ctx context.Context) ([]models.DeviceOverview, error) {
	views, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	overviews := make([]models.DeviceOverview, 0, len(views))
	for _, v := range views {
		summary, err := s.commands.Summary(ctx, v.DeviceID)
		if err != nil {
			return nil, err
		}
		today, err := s.activity.Today(ctx, v.DeviceID, nil)
		if err != nil {
			return nil, err
		}
		overviews = append(overviews, models.DeviceOverview{
			DeviceView:      v,
			CommandsSummary: summary,
			ActivityToday:   today,
		})
	}
	return overviews, nil
}
