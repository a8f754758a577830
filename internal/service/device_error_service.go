package service

import (
	"context"
	"time"

	"Mansoor88-6/activity-hub/internal/models"
	"Mansoor88-6/activity-hub/internal/validation"

	"go.uber.org/zap"
)

const (
	DefaultErrorPageSize = 50
	MaxErrorPageSize     = 200
)

// DeviceErrorService records error reports sent by agents.
type DeviceErrorService struct {
	store     DeviceErrorStore
	validator *validation.Validator
	logger    *zap.Logger
	now       func() time.Time
}

func NewDeviceErrorService(store DeviceErrorStore, v *validation.Validator, logger *zap.Logger) *DeviceErrorService {
	return &DeviceErrorService{store: store, validator: v, logger: logger, now: time.Now}
}

func (s *DeviceErrorService) LogError(ctx context.Context, req models.CreateDeviceErrorRequest) (*models.DeviceError, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}
	report, err := s.store.Create(ctx, req, s.now())
	if err != nil {
		return nil, err
	}

	s.logger.Warn("Device reported an error",
		zap.String("device_id", req.DeviceID),
		zap.String("error_type", req.ErrorType),
		zap.String("message", req.Message),
	)
	return report, nil
}

// ListErrors pages through reports newest first. Page is 1-based.
func (s *DeviceErrorService) ListErrors(ctx context.Context, filter models.DeviceErrorFilter) ([]models.DeviceError, int, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	filter.Limit = clampLimit(filter.Limit, DefaultErrorPageSize, MaxErrorPageSize)
	return s.store.List(ctx, filter)
}
