package gateway

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

var _ Gateway = (*Postgres)(nil)

// Postgres keeps records in the kv_store table (see internal/migrate/sql).
type Postgres struct {
	db *sql.DB
}

// OpenPostgres connects through the pgx stdlib driver.
func OpenPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	// Single-user workload; a handful of connections is plenty.
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Postgres{db: db}, nil
}

// NewPostgres wraps an existing pool.
func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

func (p *Postgres) Close() error { return p.db.Close() }

func (p *Postgres) DB() *sql.DB { return p.db }

func (p *Postgres) Get(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, ErrInvalidKey
	}
	var value []byte
	err := p.db.QueryRowContext(ctx, `select value from kv_store where key=$1`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, readErr(key, err)
	}
	return value, nil
}

func (p *Postgres) Set(ctx context.Context, key string, value []byte) error {
	if key == "" {
		return ErrInvalidKey
	}
	_, err := p.db.ExecContext(ctx, `
		insert into kv_store(key, value, updated_at)
		values ($1, $2, now())
		on conflict (key) do update
		set value = excluded.value, updated_at = now()
	`, key, value)
	if err != nil {
		return writeErr(key, err)
	}
	return nil
}

func (p *Postgres) Remove(ctx context.Context, key string) error {
	if key == "" {
		return ErrInvalidKey
	}
	if _, err := p.db.ExecContext(ctx, `delete from kv_store where key=$1`, key); err != nil {
		return writeErr(key, err)
	}
	return nil
}
