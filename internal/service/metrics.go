package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeSuccess            = "success"
	outcomeInvalidCredentials = "invalid_credentials"
	outcomeThrottled          = "throttled"
	outcomeUnauthorized       = "unauthorized"
	outcomeError              = "error"
)

var (
	loginAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_login_attempts_total",
			Help: "Login attempts by outcome",
		},
		[]string{"outcome"},
	)

	refreshAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_refresh_attempts_total",
			Help: "Token refresh attempts by outcome",
		},
		[]string{"outcome"},
	)
)
