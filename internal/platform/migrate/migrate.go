package migrate

import (
	"context"
	"fmt"

	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"

	"huddle/migrations"
)

// Apply runs any pending SQL migrations bundled with the binary. It is safe to call repeatedly.
func Apply(ctx context.Context, db *sqlx.DB, logger *slog.Logger) error {
	goose.SetBaseFS(migrations.Files)
	goose.SetLogger(gooseSlogLogger{logger: logger})
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("migrate: set goose dialect: %w", err)
	}

	before, err := goose.GetDBVersionContext(ctx, db.DB)
	if err != nil {
		return fmt.Errorf("migrate: check goose version: %w", err)
	}

	if err := goose.UpContext(ctx, db.DB, "."); err != nil {
		return fmt.Errorf("migrate: goose up: %w", err)
	}

	after, err := goose.GetDBVersionContext(ctx, db.DB)
	if err != nil {
		return fmt.Errorf("migrate: check goose version: %w", err)
	}
	if logger != nil && after != before {
		logger.Info("database migrated", "from_version", before, "to_version", after)
	}

	return nil
}
