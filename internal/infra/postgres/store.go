// Package postgres implements port.Store on PostgreSQL via pgx.
// Write operations go through a circuit breaker and retry with backoff, the
// same guard the service once used around its remote store.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/prestabook/prestabook/internal/domain"
	"github.com/prestabook/prestabook/internal/infra/resilience"
)

const schema = `
CREATE TABLE IF NOT EXISTS clients (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	last_name   TEXT NOT NULL,
	document_id TEXT NOT NULL UNIQUE,
	phone       TEXT NOT NULL DEFAULT '',
	email       TEXT NOT NULL DEFAULT '',
	address     TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS loans (
	id                 TEXT PRIMARY KEY,
	client_id          TEXT NOT NULL REFERENCES clients(id) ON DELETE CASCADE,
	amount             NUMERIC(12,2) NOT NULL,
	interest_rate      NUMERIC(5,2) NOT NULL,
	installments       INT NOT NULL,
	installment_amount NUMERIC(12,2) NOT NULL,
	total_amount       NUMERIC(12,2) NOT NULL,
	start_date         DATE NOT NULL,
	end_date           DATE NOT NULL,
	status             TEXT NOT NULL DEFAULT 'active',
	created_at         TIMESTAMPTZ NOT NULL,
	updated_at         TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS installments (
	id               TEXT PRIMARY KEY,
	loan_id          TEXT NOT NULL REFERENCES loans(id) ON DELETE CASCADE,
	number           INT NOT NULL,
	amount           NUMERIC(12,2) NOT NULL,
	overdue_interest NUMERIC(12,2) NOT NULL DEFAULT 0,
	total_amount     NUMERIC(12,2) NOT NULL,
	due_date         DATE NOT NULL,
	paid_date        DATE,
	status           TEXT NOT NULL DEFAULT 'pending',
	days_overdue     INT NOT NULL DEFAULT 0,
	created_at       TIMESTAMPTZ NOT NULL,
	updated_at       TIMESTAMPTZ NOT NULL,
	UNIQUE (loan_id, number)
);

CREATE INDEX IF NOT EXISTS idx_installments_status ON installments (status, due_date);
CREATE INDEX IF NOT EXISTS idx_loans_client ON loans (client_id);
`

// Store is the PostgreSQL-backed lending book store.
type Store struct {
	pool   *pgxpool.Pool
	cb     *gobreaker.CircuitBreaker
	retry  resilience.Config
	logger *zap.Logger
}

// New connects to the database, bootstraps the schema and returns the store.
func New(ctx context.Context, databaseURL string, cb *gobreaker.CircuitBreaker, retry resilience.Config, logger *zap.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("bootstrap schema: %w", err)
	}
	return &Store{pool: pool, cb: cb, retry: retry, logger: logger}, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Ping reports database health.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// guard runs a write through the circuit breaker with retry. Breaker-open is
// surfaced as a domain error so the handler layer can map it to 503.
func (s *Store) guard(ctx context.Context, op string, fn func(context.Context) error) error {
	_, err := s.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, s.retry, func() error {
			return fn(ctx)
		})
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		s.logger.Error("store circuit breaker open", zap.String("op", op))
		return &domain.ErrCircuitOpen{Service: "postgres"}
	}
	return err
}

// notFound maps pgx.ErrNoRows onto the domain error.
func notFound(err error, resource, id string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return &domain.ErrNotFound{Resource: resource, ID: id}
	}
	return err
}

// isUniqueViolation reports a duplicate-key insert.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
