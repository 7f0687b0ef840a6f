package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB is the query surface repositories run against. Both *pgxpool.Pool and
// pgx.Tx satisfy it, so the same repository code serves pooled reads and
// transactional units of work.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repositories bundles every repository bound to one DB handle.
type Repositories struct {
	Tickets      TicketRepository
	Assignments  AssignmentRepository
	WorkSessions WorkSessionRepository
	Activities   ActivityRepository
	Technicians  TechnicianRepository
	Users        UserRepository
	Messages     MessageRepository
}

// TxManager runs a function inside a single database transaction. Every
// mutating coordinator operation goes through this, so an error anywhere in
// the unit of work rolls back all of its writes.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, r Repositories) error) error
}

// Store owns the connection pool and hands out repositories.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore builds a Store over the given pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Repositories returns repositories bound to the pool (auto-commit reads).
func (s *Store) Repositories() Repositories {
	return bindRepositories(s.pool)
}

// WithinTx begins a transaction, binds repositories to it, and commits when
// fn returns nil. Any error rolls the transaction back and is returned as-is.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, r Repositories) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := fn(ctx, bindRepositories(tx)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func bindRepositories(db DB) Repositories {
	return Repositories{
		Tickets:      NewTicketRepository(db),
		Assignments:  NewAssignmentRepository(db),
		WorkSessions: NewWorkSessionRepository(db),
		Activities:   NewActivityRepository(db),
		Technicians:  NewTechnicianRepository(db),
		Users:        NewUserRepository(db),
		Messages:     NewMessageRepository(db),
	}
}
