// Package testutil provides testing utilities for the planning backend.
// It includes testcontainers for PostgreSQL, mock factories and common
// test fixtures.
package testutil

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// PostgresContainer wraps a testcontainers PostgreSQL instance
type PostgresContainer struct {
	*postgres.PostgresContainer
	DSN string
}

// PostgresContainerConfig configures the test PostgreSQL container
type PostgresContainerConfig struct {
	Database string
	Username string
	Password string
	Image    string // Optional: defaults to postgres:15-alpine
}

// DefaultPostgresConfig returns sensible defaults for test containers
func DefaultPostgresConfig() PostgresContainerConfig {
	return PostgresContainerConfig{
		Database: "bakery_planning_test",
		Username: "test",
		Password: "test",
		Image:    "postgres:15-alpine",
	}
}

// NewPostgresContainer creates a new PostgreSQL test container.
//
// Usage:
//
//	func TestMain(m *testing.M) {
//	    ctx := context.Background()
//	    container, err := testutil.NewPostgresContainer(ctx, testutil.DefaultPostgresConfig())
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    defer container.Terminate(ctx)
//
//	    // Run tests
//	    code := m.Run()
//	    os.Exit(code)
//	}
func NewPostgresContainer(ctx context.Context, cfg PostgresContainerConfig) (*PostgresContainer, error) {
	if cfg.Image == "" {
		cfg.Image = "postgres:15-alpine"
	}
	if cfg.Database == "" {
		cfg.Database = "bakery_planning_test"
	}
	if cfg.Username == "" {
		cfg.Username = "test"
	}
	if cfg.Password == "" {
		cfg.Password = "test"
	}

	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage(cfg.Image),
		postgres.WithDatabase(cfg.Database),
		postgres.WithUsername(cfg.Username),
		postgres.WithPassword(cfg.Password),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	return &PostgresContainer{
		PostgresContainer: container,
		DSN:               dsn,
	}, nil
}

// Connect returns a sqlx.DB connection to the container
func (c *PostgresContainer) Connect(ctx context.Context) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", c.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to test database: %w", err)
	}
	return db, nil
}

// Terminate stops and removes the container
func (c *PostgresContainer) Terminate(ctx context.Context) error {
	return c.PostgresContainer.Terminate(ctx)
}

// CreatePlanningSchema creates the planning service tables
func (c *PostgresContainer) CreatePlanningSchema(ctx context.Context, db *sqlx.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS products (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			name VARCHAR(255) NOT NULL,
			category VARCHAR(50) NOT NULL,
			unit VARCHAR(20) NOT NULL DEFAULT 'g',
			weight_normalized BOOLEAN NOT NULL DEFAULT FALSE,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS production_runs (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			resource_id UUID NOT NULL,
			product_id UUID NOT NULL REFERENCES products(id),
			quantity NUMERIC(14,4) NOT NULL,
			starts_at TIMESTAMPTZ NOT NULL,
			ends_at TIMESTAMPTZ NOT NULL,
			created_by UUID NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT run_range_valid CHECK (ends_at > starts_at),
			CONSTRAINT quantity_positive CHECK (quantity > 0)
		);
		CREATE INDEX IF NOT EXISTS idx_runs_resource_time ON production_runs (resource_id, starts_at);

		CREATE TABLE IF NOT EXISTS bill_of_materials (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			product_id UUID NOT NULL REFERENCES products(id),
			material_id UUID NOT NULL REFERENCES products(id),
			quantity_needed NUMERIC(18,8) NOT NULL,
			original_quantity NUMERIC(18,8) NOT NULL,
			operation_id UUID,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_bom_product ON bill_of_materials (product_id);

		CREATE TABLE IF NOT EXISTS explosion_purchase_tracking (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			material_id UUID NOT NULL,
			requirement_date DATE NOT NULL,
			quantity_needed NUMERIC(14,4) NOT NULL DEFAULT 0,
			quantity_ordered NUMERIC(14,4) NOT NULL DEFAULT 0,
			quantity_received NUMERIC(14,4) NOT NULL DEFAULT 0,
			status VARCHAR(30) NOT NULL DEFAULT 'ordered',
			order_line_id UUID,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT material_requirement_date UNIQUE (material_id, requirement_date)
		);

		CREATE TABLE IF NOT EXISTS inventory_locations (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			code VARCHAR(50) NOT NULL,
			name VARCHAR(255) NOT NULL,
			resource_id UUID,
			is_central_warehouse BOOLEAN NOT NULL DEFAULT FALSE,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT location_code UNIQUE (code)
		);

		CREATE TABLE IF NOT EXISTS inventory_balances (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			product_id UUID NOT NULL,
			location_id UUID NOT NULL REFERENCES inventory_locations(id),
			quantity_on_hand NUMERIC(14,4) NOT NULL DEFAULT 0,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT product_location UNIQUE (product_id, location_id),
			CONSTRAINT quantity_on_hand_non_negative CHECK (quantity_on_hand >= 0)
		);

		CREATE TABLE IF NOT EXISTS inventory_movements (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			pair_id UUID NOT NULL,
			product_id UUID NOT NULL,
			quantity NUMERIC(14,4) NOT NULL,
			location_from_id UUID NOT NULL REFERENCES inventory_locations(id),
			location_to_id UUID NOT NULL REFERENCES inventory_locations(id),
			type VARCHAR(20) NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'pending',
			reference_type VARCHAR(30),
			notes TEXT,
			recorded_by UUID NOT NULL,
			accepted_by UUID,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			confirmed_at TIMESTAMPTZ,
			CONSTRAINT quantity_positive CHECK (quantity > 0),
			CONSTRAINT movement_type_valid CHECK (type IN ('transfer_out', 'transfer_in')),
			CONSTRAINT movement_status_valid CHECK (status IN ('pending', 'confirmed'))
		);
		CREATE INDEX IF NOT EXISTS idx_movements_pair ON inventory_movements (pair_id);
	`

	_, err := db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("failed to create planning schema: %w", err)
	}

	return nil
}
