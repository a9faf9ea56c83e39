package audit

import "time"

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp time.Time
	TenantID  string
	Subject   string
	Action    string
	Outcome   string
	Reason    string
	RequestID string
}

type Action string

const (
	ActionTenantOnboarded     Action = "tenant_onboarded"
	ActionConnectionIssued    Action = "connection_issued"
	ActionConnectionRotated   Action = "connection_rotated"
	ActionConnectionRevoked   Action = "connection_revoked"
	ActionCapabilityGranted   Action = "capability_granted"
	ActionCapabilityRevoked   Action = "capability_revoked"
	ActionGrantDenied         Action = "grant_denied"
	ActionModelRegistered     Action = "model_registered"
	ActionModelDecommissioned Action = "model_decommissioned"
)
