package state

import (
	"context"
	"errors"
	"fmt"

	"github.com/af-corp/aireader-gateway/internal/types"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PGConn is satisfied by both *pgxpool.Pool and *pgx.Conn.
type PGConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore keeps routing state in the route_active and route_cursors
// tables created by cmd/migrate. Each write is a single-row upsert.
type PostgresStore struct {
	db PGConn
}

func NewPostgresStore(db PGConn) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Load(ctx context.Context) (*Snapshot, error) {
	active, err := s.Active(ctx)
	if err != nil {
		return nil, err
	}
	snap := NewSnapshot()
	snap.Active = active

	rows, err := s.db.Query(ctx, `SELECT kind, credential, model_index FROM route_cursors`)
	if err != nil {
		return nil, fmt.Errorf("query route_cursors: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var kind, key string
		var idx int
		if err := rows.Scan(&kind, &key, &idx); err != nil {
			return nil, fmt.Errorf("scan route_cursors: %w", err)
		}
		k, ok := types.ParseKind(kind)
		if !ok {
			continue
		}
		snap.SetCursor(k, key, idx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate route_cursors: %w", err)
	}
	return snap, nil
}

func (s *PostgresStore) Active(ctx context.Context) (int, error) {
	var idx int
	err := s.db.QueryRow(ctx, `SELECT credential_index FROM route_active WHERE id = 1`).Scan(&idx)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("query route_active: %w", err)
	}
	return idx, nil
}

func (s *PostgresStore) SetActive(ctx context.Context, index int) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO route_active (id, credential_index, updated_at)
		VALUES (1, $1, NOW())
		ON CONFLICT (id) DO UPDATE
		SET credential_index = EXCLUDED.credential_index, updated_at = NOW()
	`, index)
	if err != nil {
		return fmt.Errorf("upsert route_active: %w", err)
	}
	return nil
}

func (s *PostgresStore) Cursor(ctx context.Context, kind types.Kind, key string) (int, error) {
	var idx int
	err := s.db.QueryRow(ctx,
		`SELECT model_index FROM route_cursors WHERE kind = $1 AND credential = $2`,
		string(kind), key,
	).Scan(&idx)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("query route_cursors: %w", err)
	}
	return idx, nil
}

func (s *PostgresStore) SetCursor(ctx context.Context, kind types.Kind, key string, index int) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO route_cursors (kind, credential, model_index, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (kind, credential) DO UPDATE
		SET model_index = EXCLUDED.model_index, updated_at = NOW()
	`, string(kind), key, index)
	if err != nil {
		return fmt.Errorf("upsert route_cursors: %w", err)
	}
	return nil
}

func (s *PostgresStore) Clear(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM route_cursors`); err != nil {
		return fmt.Errorf("clear route_cursors: %w", err)
	}
	if _, err := s.db.Exec(ctx, `DELETE FROM route_active`); err != nil {
		return fmt.Errorf("clear route_active: %w", err)
	}
	return nil
}
