// Package bootstrap prepares external state at startup: schema migrations,
// the content store layout, and the fixed intake control on the review board.
package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"

	"vouch/internal/notify"
	"vouch/migrations"
)

// Migrate applies the embedded SQL migrations in filename order.
// Statements are idempotent, so reapplying on every start is safe.
func Migrate(ctx context.Context, db *sql.DB, log *slog.Logger) error {
	entries, err := fs.Glob(migrations.FS, "*.sql")
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	sort.Strings(entries)

	for _, name := range entries {
		script, err := fs.ReadFile(migrations.FS, name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := db.ExecContext(ctx, string(script)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
		log.InfoContext(ctx, "migration applied", "name", name)
	}
	return nil
}

// EnsureIntakeControl restores the review board's intake control so
// requesters can always start a submission after a restart.
func EnsureIntakeControl(ctx context.Context, board notify.ReviewBoard, log *slog.Logger) error {
	if err := board.EnsureIntakeControl(ctx); err != nil {
		return fmt.Errorf("ensure intake control: %w", err)
	}
	log.InfoContext(ctx, "intake control ready")
	return nil
}
