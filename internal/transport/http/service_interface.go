package http

import (
	"context"

	"csvcompare/internal/services"
)

// CompareServiceInterface abstracts the pipeline orchestrator for
// testing.
type CompareServiceInterface interface {
	Process(ctx context.Context, req services.Request) (*services.Response, error)
}
