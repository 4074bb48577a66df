package handler

import (
	"time"

	"github.com/yndnr/kiss-go/internal/infra/buildinfo"
	"github.com/yndnr/kiss-go/internal/storage"
)

// Response is the standard admin API response envelope.
// All JSON responses use this format (except /metrics which uses Prometheus format).
type Response struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data,omitempty"`
}

// NewResponse creates a success response.
func NewResponse(requestID string, data any) *Response {
	return &Response{
		Code:      "OK",
		Message:   "Success",
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
		Data:      data,
	}
}

// NewErrorResponse creates an error response.
func NewErrorResponse(requestID, code, message string) *Response {
	return &Response{
		Code:      code,
		Message:   message,
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
	}
}

// ProbeResponse is the body of /health and /ready.
type ProbeResponse struct {
	Status string `json:"status"`
	Ready  bool   `json:"ready"`
}

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	State         string              `json:"state"`
	UptimeSeconds int64               `json:"uptime_seconds"`
	Build         buildinfo.Info      `json:"build"`
	Cache         *storage.BuildStats `json:"cache,omitempty"`
}
