package health

import (
	"context"
	"sync"
	"time"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates an optional component is failing.
	Degraded Status = "degraded"
	// Unhealthy indicates the database is down.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	CheckOK    CheckResult = "ok"
	CheckError CheckResult = "error"
)

const defaultProbeTimeout = 2 * time.Second

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

type probe struct {
	name     string
	critical bool
	run      func(ctx context.Context) error
}

// Option registers an optional component.
type Option func(*Service)

// WithCache checks the key-value cache. A nil pinger is ignored.
func WithCache(p Pinger) Option {
	return func(s *Service) {
		if p != nil {
			s.probes = append(s.probes, probe{name: "cache", run: p.Ping})
		}
	}
}

// WithClassifier checks the semantic classifier. A nil checker is ignored.
func WithClassifier(c Checker) Option {
	return func(s *Service) {
		if c != nil {
			s.probes = append(s.probes, probe{name: "classifier", run: c.HealthCheck})
		}
	}
}

// WithPipeline checks the tool behind a conversion mode, reported as "pipeline_<mode>".
func WithPipeline(mode string, c Checker) Option {
	return func(s *Service) {
		s.probes = append(s.probes, probe{name: "pipeline_" + mode, run: c.HealthCheck})
	}
}

// WithProbeTimeout bounds each individual check.
func WithProbeTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// Service runs health probes concurrently.
type Service struct {
	probes  []probe
	timeout time.Duration
}

// New creates a Service. The database is the only critical component.
func New(db Pinger, opts ...Option) *Service {
	s := &Service{
		probes:  []probe{{name: "database", critical: true, run: db.Ping}},
		timeout: defaultProbeTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Check runs every probe. A failing critical probe makes the service
// unhealthy; any other failure degrades it.
func (s *Service) Check(ctx context.Context) Report {
	results := make([]CheckResult, len(s.probes))

	var wg sync.WaitGroup
	for i, p := range s.probes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pctx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()
			results[i] = result(p.run(pctx))
		}()
	}
	wg.Wait()

	report := Report{Status: Healthy, Checks: make(map[string]CheckResult, len(s.probes))}
	for i, p := range s.probes {
		report.Checks[p.name] = results[i]
		if results[i] == CheckOK {
			continue
		}
		if p.critical {
			report.Status = Unhealthy
		} else if report.Status == Healthy {
			report.Status = Degraded
		}
	}
	return report
}

func result(err error) CheckResult {
	if err != nil {
		return CheckError
	}
	return CheckOK
}
