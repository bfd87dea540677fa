package api

import "github.com/hammamikhairi/tomato/internal/domain"

// CommandResponse answers every mutating command.
type CommandResponse struct {
	Success bool               `json:"success"`
	State   *domain.TimerState `json:"state,omitempty"`
	Error   string             `json:"error,omitempty"`
}

// Routes.
const (
	PathCommand  = "/v1/command"
	PathState    = "/v1/state"
	PathStream   = "/v1/stream"
	PathActivate = "/v1/notifications/activate"
)
