package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresHelper owns a throwaway schema that is dropped on cleanup. The pool's
// search_path points at it, so migrations land there too.
type PostgresHelper struct {
	Pool   *pgxpool.Pool
	Schema string
}

func NewPostgresHelper(t *testing.T) *PostgresHelper {
	t.Helper()
	dsn := DatabaseURL(t)

	ctx, cancel := context.WithTimeout(context.Background(), ConnectionTimeout)
	defer cancel()

	schema := UniqueName("nestbook_test")

	admin, err := pgx.Connect(ctx, dsn)
	if err != nil {
		t.Fatalf("failed to connect to Postgres: %v", err)
	}
	defer admin.Close(ctx)
	if _, err := admin.Exec(ctx, "CREATE SCHEMA "+pgx.Identifier{schema}.Sanitize()); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		t.Fatalf("failed to parse DSN: %v", err)
	}
	cfg.ConnConfig.RuntimeParams["search_path"] = schema
	cfg.MaxConns = 16

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		t.Fatalf("failed to create pool: %v", err)
	}

	h := &PostgresHelper{Pool: pool, Schema: schema}
	t.Cleanup(func() { h.close(t, dsn) })
	return h
}

func (p *PostgresHelper) close(t *testing.T, dsn string) {
	p.Pool.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	admin, err := pgx.Connect(ctx, dsn)
	if err != nil {
		t.Logf("warning: failed to reconnect to Postgres: %v", err)
		return
	}
	defer admin.Close(ctx)
	if _, err := admin.Exec(ctx, "DROP SCHEMA "+pgx.Identifier{p.Schema}.Sanitize()+" CASCADE"); err != nil {
		t.Logf("warning: failed to drop schema %s: %v", p.Schema, err)
	}
}
