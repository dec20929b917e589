package server

import (
	"context"
	"time"
)

// SystemStatus represents the health of the service or one dependency.
type SystemStatus string

const (
	StatusHealthy  SystemStatus = "healthy"
	StatusDegraded SystemStatus = "degraded"
	StatusCritical SystemStatus = "critical"
)

// Check probes one dependency. Critical checks make the whole service
// critical when they fail; others only degrade it.
type Check struct {
	Name     string
	Critical bool
	Probe    func(ctx context.Context) error
}

// ComponentHealth is the result of one check.
type ComponentHealth struct {
	Status SystemStatus `json:"status"`
	Error  string       `json:"error,omitempty"`
}

// HealthReport contains the full health report.
type HealthReport struct {
	SystemStatus SystemStatus               `json:"system_status"`
	Components   map[string]ComponentHealth `json:"components"`
	Transport    any                        `json:"transport,omitempty"`
}

func runChecks(ctx context.Context, checks []Check) HealthReport {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	report := HealthReport{SystemStatus: StatusHealthy, Components: make(map[string]ComponentHealth, len(checks))}
	for _, c := range checks {
		err := c.Probe(ctx)
		if err == nil {
			report.Components[c.Name] = ComponentHealth{Status: StatusHealthy}
			continue
		}
		status := StatusDegraded
		if c.Critical {
			status = StatusCritical
		}
		report.Components[c.Name] = ComponentHealth{Status: status, Error: err.Error()}

		// Worst case wins
		if status == StatusCritical || report.SystemStatus == StatusHealthy {
			report.SystemStatus = status
		}
	}
	return report
}
