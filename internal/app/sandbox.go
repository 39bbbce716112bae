// Package app wires the sandbox gateway: database, migrations and fixture
// seeding.
package app

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"staffline/internal/config"
	"staffline/internal/db"
	"staffline/internal/engine"
	"staffline/internal/logger"
	"staffline/internal/migrate"
)

// MemoryWorkspace selects an in-memory sandbox database.
const MemoryWorkspace = ":memory:"

//go:embed fixtures/default.yml
var defaultFixture []byte

// LoadFixture reads a seed fixture. An empty path selects the built-in one.
func LoadFixture(path string) (engine.SeedData, error) {
	data := defaultFixture
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return engine.SeedData{}, err
		}
		data = b
	}
	var seed engine.SeedData
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return engine.SeedData{}, fmt.Errorf("invalid fixture yaml: %w", err)
	}
	return seed, nil
}

// OpenSandbox opens the sandbox database, applies migrations and seeds it
// from the configured fixture when it holds no employees yet.
func OpenSandbox(ctx context.Context, cfg config.SandboxConfig, log logrus.FieldLogger) (engine.Engine, *sql.DB, error) {
	log = logger.OrDiscard(log)
	dbCfg := db.Config{Workspace: cfg.Workspace}
	if cfg.Workspace == MemoryWorkspace {
		dbCfg = db.Config{InMemory: true}
	}
	conn, err := db.Open(dbCfg)
	if err != nil {
		return engine.Engine{}, nil, fmt.Errorf("open db: %w", err)
	}
	version, err := migrate.Migrate(ctx, conn, log)
	if err != nil {
		conn.Close()
		return engine.Engine{}, nil, fmt.Errorf("migrate: %w", err)
	}
	e := engine.New(conn, log)
	seeded, err := e.Seeded(ctx)
	if err != nil {
		conn.Close()
		return engine.Engine{}, nil, err
	}
	if !seeded {
		data, err := LoadFixture(cfg.SeedFile)
		if err != nil {
			conn.Close()
			return engine.Engine{}, nil, fmt.Errorf("load fixture: %w", err)
		}
		if err := e.Seed(ctx, data); err != nil {
			conn.Close()
			return engine.Engine{}, nil, fmt.Errorf("seed: %w", err)
		}
	}
	log.WithFields(logrus.Fields{"schema_version": version, "workspace": cfg.Workspace}).Info("sandbox ready")
	return e, conn, nil
}
