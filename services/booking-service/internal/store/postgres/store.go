// Package postgres implements store.Store on pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/md-rashed-zaman/apptbook/libs/db"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/outbox"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/store"
)

type Store struct {
	*queries
	pool db.Beginner
}

var _ store.Store = (*Store)(nil)

func New(pool db.Beginner) *Store {
	return &Store{
		queries: &queries{db: pool, outbox: outbox.NewRepository()},
		pool:    pool,
	}
}

func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx store.Queries) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(ctx, &queries{db: tx, outbox: s.outbox}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return mapError(fmt.Errorf("commit: %w", err))
	}
	return nil
}

type queries struct {
	db     db.DBTX
	outbox *outbox.Repository
}

func (q *queries) EnqueueEvent(ctx context.Context, evt outbox.Event) error {
	return mapError(q.outbox.Insert(ctx, q.db, evt))
}

// mapError translates driver errors into the store sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if db.IsNotFound(err) {
		return store.ErrNotFound
	}
	switch db.ErrorCode(err) {
	case db.CodeExclusionViolation, db.CodeSerializationFailure, db.CodeDeadlockDetected:
		return fmt.Errorf("%w: %v", store.ErrConflict, err)
	case db.CodeUniqueViolation:
		return fmt.Errorf("%w: %v", store.ErrDuplicate, err)
	}
	return err
}

// rowScanner is satisfied by pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func mustAffect(rows int64) error {
	if rows == 0 {
		return store.ErrNotFound
	}
	return nil
}

var errNilRecord = errors.New("postgres: nil record")
