package server

import (
	"context"
	"fmt"

	"appraisal/internal/domain/appraisal"
	"appraisal/internal/domain/audit"
	"appraisal/internal/domain/directory"
	"appraisal/internal/platform/config"
	"appraisal/internal/platform/db"
)

// Stores bundles the persistence for one configured driver.
type Stores struct {
	Appraisals appraisal.StoreAPI
	Audit      audit.Store
	close      func()
}

func (s *Stores) Close() {
	if s != nil && s.close != nil {
		s.close()
	}
}

// OpenStores connects to the configured database and, when migrate is set, applies
// pending migrations before returning.
func OpenStores(ctx context.Context, cfg config.Config, migrate bool) (*Stores, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		pool, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("db connect: %w", err)
		}
		if migrate {
			if err := db.Migrate(ctx, pool); err != nil {
				pool.Close()
				return nil, fmt.Errorf("migrations: %w", err)
			}
		}
		return &Stores{
			Appraisals: appraisal.NewPostgresStore(pool),
			Audit:      audit.NewPostgresStore(pool),
			close:      pool.Close,
		}, nil
	case config.DriverSQLite:
		conn, err := db.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		if migrate {
			if err := db.MigrateSQLite(ctx, conn); err != nil {
				_ = conn.Close()
				return nil, fmt.Errorf("migrations: %w", err)
			}
		}
		return &Stores{
			Appraisals: appraisal.NewSQLiteStore(conn),
			Audit:      audit.NewSQLiteStore(conn),
			close:      func() { _ = conn.Close() },
		}, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}

// OpenDirectory returns the remote directory client or the YAML fixture, whichever
// is configured.
func OpenDirectory(cfg config.Config) (directory.Directory, error) {
	if cfg.DirectoryFile != "" {
		dir, err := directory.LoadFile(cfg.DirectoryFile)
		if err != nil {
			return nil, fmt.Errorf("load directory file: %w", err)
		}
		return dir, nil
	}
	if cfg.DirectoryURL == "" {
		return nil, fmt.Errorf("no directory configured")
	}
	return directory.NewHTTPDirectory(directory.HTTPConfig{
		BaseURL:         cfg.DirectoryURL,
		Timeout:         cfg.DirectoryTimeout,
		BreakerFailures: cfg.BreakerFailures,
		BreakerCooldown: cfg.BreakerCooldown,
	}), nil
}
