package server

import (
	"net/http"

	"promise-harness/internal/promise"
)

var kindStatus = map[string]int{
	"network_failure":  http.StatusBadGateway,
	"remote_error":     http.StatusBadGateway,
	"script_timeout":   http.StatusGatewayTimeout,
	"timeout":          http.StatusGatewayTimeout,
	"invocation_error": http.StatusInternalServerError,
	"already_active":   http.StatusConflict,
	"panel_closed":     http.StatusServiceUnavailable,
	"canceled":         499,
}

func statusFor(err error) int {
	if status, ok := kindStatus[promise.Kind(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}
