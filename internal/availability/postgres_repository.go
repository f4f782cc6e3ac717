package availability

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PgxPool is the subset of pgxpool.Pool used here; pgxmock satisfies it in tests.
type PgxPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

const selectSlotsSQL = `
	SELECT id, advisor_id, day, start_time, end_time, is_available, created_at
	FROM availability_slots
	WHERE advisor_id = $1
	ORDER BY created_at, id
`

// PostgresRepository stores availability rows in Postgres.
type PostgresRepository struct {
	pool PgxPool
}

func NewPostgresRepository(pool PgxPool) *PostgresRepository {
	if pool == nil {
		panic("availability: pgx pool required")
	}
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) List(ctx context.Context, advisorID string) ([]TimeSlot, error) {
	return listSlots(ctx, r.pool, advisorID)
}

// Update serialises edits per advisor with a transaction-scoped advisory lock,
// then writes only the rows fn added or removed.
func (r *PostgresRepository) Update(ctx context.Context, advisorID string, fn UpdateFunc) ([]TimeSlot, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("availability: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, advisorID); err != nil {
		return nil, fmt.Errorf("availability: lock advisor: %w", err)
	}
	current, err := listSlots(ctx, tx, advisorID)
	if err != nil {
		return nil, err
	}
	next, err := fn(cloneSlots(current))
	if err != nil {
		return nil, err
	}

	before := make(map[string]struct{}, len(current))
	for _, s := range current {
		before[s.ID] = struct{}{}
	}
	after := make(map[string]struct{}, len(next))
	for _, s := range next {
		after[s.ID] = struct{}{}
	}

	for _, s := range current {
		if _, ok := after[s.ID]; ok {
			continue
		}
		if _, err := tx.Exec(ctx, `DELETE FROM availability_slots WHERE advisor_id = $1 AND id = $2`, advisorID, s.ID); err != nil {
			return nil, fmt.Errorf("availability: delete slot: %w", err)
		}
	}
	for _, s := range next {
		if _, ok := before[s.ID]; ok {
			continue
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO availability_slots (id, advisor_id, day, start_time, end_time, is_available, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, s.ID, advisorID, string(s.Day), s.StartTime, s.EndTime, s.IsAvailable, s.CreatedAt); err != nil {
			return nil, fmt.Errorf("availability: insert slot: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("availability: commit: %w", err)
	}
	return next, nil
}

func listSlots(ctx context.Context, q querier, advisorID string) ([]TimeSlot, error) {
	rows, err := q.Query(ctx, selectSlotsSQL, advisorID)
	if err != nil {
		return nil, fmt.Errorf("availability: list slots: %w", err)
	}
	defer rows.Close()

	slots := []TimeSlot{}
	for rows.Next() {
		var (
			s   TimeSlot
			day string
		)
		if err := rows.Scan(&s.ID, &s.AdvisorID, &day, &s.StartTime, &s.EndTime, &s.IsAvailable, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("availability: scan slot: %w", err)
		}
		s.Day = Day(day)
		slots = append(slots, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("availability: iterate slots: %w", err)
	}
	return slots, nil
}
