package health

import "context"

// Pinger checks availability of a storage backend.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Checker is a component that can verify its own dependencies, such as the
// classifier provider or a conversion tool binary.
type Checker interface {
	HealthCheck(ctx context.Context) error
}
