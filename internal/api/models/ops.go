package models

// Health represents the health status of the service.
type Health struct {
	Status  HealthStatus           `json:"status"`
	Time    Timestamp              `json:"time"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// SystemStatus represents upstream and station status.
type SystemStatus struct {
	Status    HealthStatus     `json:"status"`
	Time      Timestamp        `json:"time"`
	Providers []ProviderStatus `json:"providers"`
	Stations  []StationStatus  `json:"stations"`
	Refresh   *RefreshStatus   `json:"refresh,omitempty"`
}

// ProviderStatus represents the status of an upstream client.
type ProviderStatus struct {
	Provider      string       `json:"provider"`
	Status        HealthStatus `json:"status"`
	CircuitState  string       `json:"circuitState"`
	LastSuccessAt *Timestamp   `json:"lastSuccessAt,omitempty"`
	LastFailureAt *Timestamp   `json:"lastFailureAt,omitempty"`
	Message       *string      `json:"message,omitempty"`
}

// StationStatus represents the refresh status of a station.
type StationStatus struct {
	StationID     string       `json:"stationId"`
	Status        HealthStatus `json:"status"`
	Available     bool         `json:"available"`
	LastSuccessAt *Timestamp   `json:"lastSuccessAt,omitempty"`
	LastFailureAt *Timestamp   `json:"lastFailureAt,omitempty"`
	Message       *string      `json:"message,omitempty"`
}

// RefreshStatus summarizes the scheduled refresh job.
type RefreshStatus struct {
	TotalRuns         int64      `json:"totalRuns"`
	SuccessfulRefresh int64      `json:"successfulRefreshes"`
	FailedRefreshes   int64      `json:"failedRefreshes"`
	LastRunAt         *Timestamp `json:"lastRunAt,omitempty"`
	LastDurationMs    int64      `json:"lastDurationMs"`
}
