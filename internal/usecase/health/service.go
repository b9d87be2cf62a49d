package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure; search still answers via the
	// degradation ladder.
	Degraded Status = "degraded"
	// Unhealthy indicates the catalog is down: hydration is impossible,
	// so search cannot answer at all.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	catalog   CatalogPinger
	index     IndexPinger
	embedding EmbeddingChecker
}

// New creates a Service. index and embedding can be nil.
func New(catalog CatalogPinger, index IndexPinger, embedding EmbeddingChecker) *Service {
	return &Service{catalog: catalog, index: index, embedding: embedding}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	catalogDown := false
	if err := s.catalog.Ping(ctx); err != nil {
		checks["catalog"] = CheckError
		catalogDown = true
	} else {
		checks["catalog"] = CheckOK
	}

	if s.index != nil {
		if err := s.index.Ping(ctx); err != nil {
			checks["vector_index"] = CheckError
		} else {
			checks["vector_index"] = CheckOK
		}
	}

	if s.embedding != nil {
		if err := s.embedding.HealthCheck(ctx); err != nil {
			checks["embedding"] = CheckError
		} else {
			checks["embedding"] = CheckOK
		}
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}
	if catalogDown {
		status = Unhealthy
	}

	return Report{Status: status, Checks: checks}
}
