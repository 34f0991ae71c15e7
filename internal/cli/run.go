package cli

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	// Drivers for the two production stores. Tests open SQLite instead;
	// the engine only ever sees database/sql.
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"

	"replant/internal/config"
	"replant/internal/legacy"
	"replant/internal/migrate"
	"replant/internal/shopdb"
)

// runMigration opens both stores and executes one full run. Any fatal
// error propagates out, and main turns it into a non-zero exit.
func runMigration(ctx context.Context, opts *RootOptions) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}

	level := zerolog.InfoLevel
	if opts.Verbose {
		level = zerolog.DebugLevel
	}
	runToken := newRunToken()
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Str("run", runToken).Logger()

	sourceDB, err := sql.Open(cfg.Source.Driver, cfg.Source.DSN)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer sourceDB.Close()
	if err := sourceDB.PingContext(ctx); err != nil {
		return fmt.Errorf("connect source: %w", err)
	}

	destDB, err := shopdb.Open(cfg.Destination.Driver, cfg.Destination.DSN)
	if err != nil {
		return err
	}
	defer destDB.Close()

	m := migrate.New(legacy.NewReader(sourceDB), destDB, log, migrate.Options{
		Exceptions: cfg.Exceptions,
		DryRun:     opts.DryRun,
	})
	if err := m.Run(ctx, runToken); err != nil {
		log.Error().Err(err).Msg("migration aborted")
		return err
	}
	log.Info().Str("summary", m.Stats().Summary()).Msg("Migration Complete")
	return nil
}

// newRunToken returns the UUIDv7 that stamps this run's log lines and its
// migration_runs row.
func newRunToken() string {
	token, err := uuid.NewV7()
	if err != nil {
		// NewV7 only fails when the random source does; fall back to v4
		// rather than refusing to run.
		return uuid.New().String()
	}
	return token.String()
}
