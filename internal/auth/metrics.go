package auth

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	stageAuthenticate = "authenticate"
	stageAuthorize    = "authorize"

	outcomeAllowed        = "allowed"
	outcomeOpen           = "open"
	outcomeNoToken        = "no_token"
	outcomeInvalidToken   = "invalid_token"
	outcomeUnknownAccount = "unknown_account"
	outcomeNoPrincipal    = "no_principal"
	outcomeForbidden      = "forbidden"
	outcomeError          = "error"
)

var gateDecisions = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "auth_gate_decisions_total",
		Help: "Auth and policy gate decisions by stage and outcome",
	},
	[]string{"stage", "outcome"},
)
