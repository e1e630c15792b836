package interfaces

import "context"

type HealthService interface {
	Check(ctx context.Context) (*HealthCheckResponse, error)
}
