package port

import (
	"context"

	"custreg/internal/domain"
)

// RegistryStore persists a completed run's four artifact tables. The engine
// never touches persistence itself; a run result is handed over whole, and
// the store must write it atomically or not at all.
type RegistryStore interface {
	SaveRun(ctx context.Context, result *domain.RunResult) error
}
