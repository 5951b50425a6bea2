package models

// StatusUnknown is reported until the first successful refresh.
const StatusUnknown = "unknown"

// HealthStatus is the liveness indicator reported by the monitor backend.
type HealthStatus struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp,omitempty"`
}

// DefaultHealth returns the health shown before anything has been fetched.
func DefaultHealth() HealthStatus {
	return HealthStatus{Status: StatusUnknown}
}
