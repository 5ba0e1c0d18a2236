package models

// Health is the body of the liveness and readiness probes. Liveness reports
// the build; readiness reports one status per store or cache it pinged.
type Health struct {
	Status    HealthStatus            `json:"status"`
	Time      Timestamp               `json:"time"`
	Version   string                  `json:"version,omitempty"`
	BuildTime string                  `json:"buildTime,omitempty"`
	Checks    map[string]HealthStatus `json:"checks,omitempty"`
}

// SystemStatus is the operator view behind GET /v1/ops/status.
type SystemStatus struct {
	Status     HealthStatus      `json:"status"`
	Time       Timestamp         `json:"time"`
	Version    string            `json:"version"`
	Subsystems []SubsystemStatus `json:"subsystems"`
	Providers  []ProviderStatus  `json:"providers"`
	// ActiveDegradationFlags lists the switches (recommendations off,
	// cached-only, read-only trail status...) that are currently on.
	ActiveDegradationFlags []string `json:"activeDegradationFlags,omitempty"`
}

// SubsystemStatus is the result of one readiness check.
type SubsystemStatus struct {
	Name   string       `json:"name"`
	Status HealthStatus `json:"status"`
	Detail *string      `json:"detail,omitempty"`
}

// ProviderStatus describes an upstream such as the recommendation service,
// as seen through its circuit breaker.
type ProviderStatus struct {
	Provider            string       `json:"provider"`
	Status              HealthStatus `json:"status"`
	Circuit             string       `json:"circuit"`
	ConsecutiveFailures uint32       `json:"consecutiveFailures"`
	LastSuccessAt       *Timestamp   `json:"lastSuccessAt,omitempty"`
	LastFailureAt       *Timestamp   `json:"lastFailureAt,omitempty"`
	Message             *string      `json:"message,omitempty"`
}
