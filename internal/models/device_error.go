package models

import "time"

// DeviceError is an error report sent by an agent.
type DeviceError struct {
	ID        int64                  `json:"id"`
	DeviceID  string                 `json:"deviceId"`
	ErrorType string                 `json:"errorType"`
	Message   string                 `json:"message"`
	Stack     *string                `json:"stack,omitempty"`
	Context   map[string]interface{} `json:"context,omitempty"`
	CreatedAt time.Time              `json:"createdAt"`
}

type CreateDeviceErrorRequest struct {
	DeviceID  string                 `json:"deviceId" validate:"required"`
	ErrorType string                 `json:"errorType" validate:"required"`
	Message   string                 `json:"message" validate:"required"`
	Stack     *string                `json:"stack,omitempty"`
	Context   map[string]interface{} `json:"context,omitempty"`
}

type DeviceErrorFilter struct {
	DeviceID  string
	ErrorType string
	Page      int
	Limit     int
}
