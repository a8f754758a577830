package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"Mansoor88-6/activity-hub/internal/apperror"
	"Mansoor88-6/activity-hub/internal/metrics"
	"Mansoor88-6/activity-hub/internal/models"
	"Mansoor88-6/activity-hub/internal/validation"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Command types each channel understands.
var allowedCommandTypes = map[models.Channel]map[string]bool{
	models.ChannelClient: setOf(
		"show-popup-announcement",
		"show-popup-message",
		"show-popup-celebration",
		"focus-hours-start",
		"focus-hours-end",
		"hide",
		"refresh",
		"lock",
		"unlock",
		"ping",
		"attention",
		"disco",
		"rain",
		"samosa-party",
		"open-action",
		"quote",
		"requires-update",
	),
	models.ChannelService: setOf(
		"restart-service",
		"restart-client",
	),
}

func setOf(values ...string) map[string]bool {
	m := make(map[string]bool, len(values))
	for _, v := range values {
		m[v] = true
	}
	return m
}

// AllowedCommandTypes returns the sorted command types of a channel.
func AllowedCommandTypes(ch models.Channel) []string {
	types := make([]string, 0, len(allowedCommandTypes[ch]))
	for t := range allowedCommandTypes[ch] {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

type CommandService struct {
	commands  CommandStore
	devices   DeviceStore
	validator *validation.Validator
	metrics   *metrics.Metrics
	logger    *zap.Logger
	now       func() time.Time
}

func NewCommandService(commands CommandStore, devices DeviceStore, v *validation.Validator, m *metrics.Metrics, logger *zap.Logger) *CommandService {
	return &CommandService{
		commands:  commands,
		devices:   devices,
		validator: v,
		metrics:   m,
		logger:    logger,
		now:       time.Now,
	}
}

// Create queues a command for a known device. A pending command with the same
// (device, channel, type) yields a ConflictError.
func (s *CommandService) Create(ctx context.Context, req models.CreateCommandRequest) (*models.Command, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}
	if !allowedCommandTypes[req.Channel][req.Type] {
		return nil, apperror.Validation("invalid command type", apperror.Issue{
			Path:    "type",
			Message: fmt.Sprintf("must be one of: %s", strings.Join(AllowedCommandTypes(req.Channel), ", ")),
			Code:    "oneof",
		})
	}

	exists, err := s.devices.Exists(ctx, req.DeviceID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperror.NotFound("device", req.DeviceID)
	}

	cmd, err := s.commands.Create(ctx, models.Command{
		CommandID: uuid.NewString(),
		DeviceID:  req.DeviceID,
		Channel:   req.Channel,
		Type:      req.Type,
		Payload:   req.Payload,
		CreatedAt: s.now(),
	})
	if apperror.IsConflict(err) {
		s.metrics.CommandConflicts.Inc()
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	s.metrics.CommandsCreated.WithLabelValues(string(cmd.Channel)).Inc()
	s.logger.Info("Command created",
		zap.String("command_id", cmd.CommandID),
		zap.String("device_id", cmd.DeviceID),
		zap.String("channel", string(cmd.Channel)),
		zap.String("type", cmd.Type),
	)
	return cmd, nil
}

// Claim atomically acknowledges and returns the newest pending command of a
// channel, or nil when there is none.
func (s *CommandService) Claim(ctx context.Context, req models.ClaimRequest) (*models.Command, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}
	cmd, err := s.commands.ClaimNewest(ctx, req.DeviceID, req.Channel, s.now())
	if err != nil {
		return nil, err
	}
	if cmd != nil {
		s.metrics.CommandsClaimed.WithLabelValues(string(req.Channel)).Inc()
	}
	return cmd, nil
}

// ListPending returns pending commands oldest first without claiming them.
// An empty channel covers both channels.
func (s *CommandService) ListPending(ctx context.Context, deviceID string, ch models.Channel) ([]models.Command, error) {
	if err := requireDevice(deviceID); err != nil {
		return nil, err
	}
	if ch != "" && !ch.Valid() {
		return nil, apperror.Validation("invalid channel",
			apperror.Issue{Path: "target", Message: "must be one of: client service", Code: "oneof"})
	}
	return s.commands.ListPending(ctx, deviceID, ch)
}

func (s *CommandService) Acknowledge(ctx context.Context, commandID string) (*models.Command, error) {
	return s.commands.Acknowledge(ctx, commandID, s.now())
}

func (s *CommandService) Complete(ctx context.Context, commandID string) (*models.Command, error) {
	cmd, err := s.commands.Complete(ctx, commandID, s.now())
	if err != nil {
		return nil, err
	}
	s.logger.Info("Command completed",
		zap.String("command_id", cmd.CommandID),
		zap.String("device_id", cmd.DeviceID),
	)
	return cmd, nil
}

// List returns commands newest first with the total count.
func (s *CommandService) List(ctx context.Context, filter models.CommandFilter) ([]models.Command, int, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, apperror.Validation("invalid status",
			apperror.Issue{Path: "status", Message: "must be one of: pending acknowledged completed", Code: "oneof"})
	}
	if filter.From != nil && filter.To != nil && !filter.From.Before(*filter.To) {
		return nil, 0, apperror.Validation("invalid range",
			apperror.Issue{Path: "from", Message: "must be before to", Code: "range"})
	}
	filter.Limit = clampLimit(filter.Limit, DefaultChunkLimit, MaxChunkLimit)
	if filter.Skip < 0 {
		filter.Skip = 0
	}
	return s.commands.List(ctx, filter)
}

// PurgeCompleted drops completed commands older than retention.
func (s *CommandService) PurgeCompleted(ctx context.Context, retention time.Duration) (int64, error) {
	return s.commands.PurgeCompleted(ctx, s.now().Add(-retention))
}
