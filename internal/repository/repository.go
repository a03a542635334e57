package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bubelovv/team-tracker/internal/store"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var errTxRequired = errors.New("transaction is required")

// Repository keeps state blobs in the snapshots table, one row per key.
type Repository struct {
	pool *pgxpool.Pool
}

var _ store.Persister = (*Repository)(nil)

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) RunInTx(ctx context.Context, fn func(context.Context, pgx.Tx) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(ctx, tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("rollback tx: %v (original err: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

func (r *Repository) Read(ctx context.Context, key string) ([]byte, error) {
	var payload []byte
	err := r.pool.QueryRow(ctx, `SELECT payload FROM snapshots WHERE snapshot_key = $1`, key).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNoValue
	}
	if err != nil {
		return nil, fmt.Errorf("select snapshot: %w", err)
	}
	return payload, nil
}

func (r *Repository) Write(ctx context.Context, key string, data []byte) error {
	return r.RunInTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		return r.upsertSnapshot(ctx, tx, key, data)
	})
}

func (r *Repository) upsertSnapshot(ctx context.Context, tx pgx.Tx, key string, data []byte) error {
	if tx == nil {
		return errTxRequired
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO snapshots (snapshot_key, payload)
		VALUES ($1, $2::jsonb)
		ON CONFLICT (snapshot_key)
		DO UPDATE SET payload = EXCLUDED.payload,
		              revision = snapshots.revision + 1,
		              updated_at = NOW()
	`, key, string(data)); err != nil {
		if isInvalidJSON(err) {
			return fmt.Errorf("snapshot %s is not valid JSON: %w", key, err)
		}
		return fmt.Errorf("upsert snapshot: %w", err)
	}

	return nil
}

func (r *Repository) Delete(ctx context.Context, key string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM snapshots WHERE snapshot_key = $1`, key); err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	return nil
}

// SnapshotInfo describes the stored row without loading its payload.
type SnapshotInfo struct {
	Key       string
	Revision  int64
	UpdatedAt time.Time
}

func (r *Repository) Info(ctx context.Context, key string) (SnapshotInfo, error) {
	info := SnapshotInfo{Key: key}
	err := r.pool.QueryRow(ctx, `
		SELECT revision, updated_at
		FROM snapshots
		WHERE snapshot_key = $1
	`, key).Scan(&info.Revision, &info.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return SnapshotInfo{}, store.ErrNoValue
	}
	if err != nil {
		return SnapshotInfo{}, fmt.Errorf("select snapshot info: %w", err)
	}
	return info, nil
}

func isInvalidJSON(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "22P02"
	}
	return false
}
