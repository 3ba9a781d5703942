package metrics

// ProcessingStats captures how an analysis result was produced.
type ProcessingStats struct {
	RemoteAttempts int    `json:"remote_attempts"`
	DurationMs     int64  `json:"duration_ms"`
	Source         string `json:"source"`
}

// IsZero reports whether stats data is absent.
func (s ProcessingStats) IsZero() bool {
	return s.RemoteAttempts == 0 && s.DurationMs == 0 && s.Source == ""
}
