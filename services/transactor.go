package services

import (
	"context"

	"github.com/beachcup/tournament-system/repositories"
)

// Transactor runs a function inside a single database transaction. Multi-step
// generation (group schedule, knockout bracket) goes through it so a mid-
// sequence failure can never leave a category with a partially created match
// set. The db package provides the *sql.DB-backed implementation.
type Transactor interface {
	RunInTx(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error
}
