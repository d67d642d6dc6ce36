package health

import (
	"context"

	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded means the database answers but configured collections are missing.
	Degraded Status = "degraded"
	// Unhealthy means the database is unreachable.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckMissing marks a configured collection that does not exist yet.
	CheckMissing CheckResult = "missing"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status Status                 `json:"status"`
	Checks map[string]CheckResult `json:"checks"`
}

// Service coordinates health checks.
type Service struct {
	db          DBPinger
	lister      CollectionLister
	collections []string
}

// New creates a Service. lister can be nil, in which case collections
// are not checked.
func New(db DBPinger, lister CollectionLister, collections []string) *Service {
	return &Service{db: db, lister: lister, collections: collections}
}

// Check pings the database and, when it answers, verifies that every
// configured collection exists.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult, len(s.collections)+1)

	if err := s.db.Ping(ctx); err != nil {
		checks["database"] = CheckError
		return Report{Status: Unhealthy, Checks: checks}
	}
	checks["database"] = CheckOK

	if s.lister == nil || len(s.collections) == 0 {
		return Report{Status: Healthy, Checks: checks}
	}

	status := Healthy
	names, err := s.lister.ListCollectionNames(ctx, bson.D{})
	for _, c := range s.collections {
		key := "collection:" + c
		switch {
		case err != nil:
			checks[key] = CheckError
			status = Degraded
		case lo.Contains(names, c):
			checks[key] = CheckOK
		default:
			checks[key] = CheckMissing
			status = Degraded
		}
	}

	return Report{Status: status, Checks: checks}
}
