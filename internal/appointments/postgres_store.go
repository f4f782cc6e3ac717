package appointments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/wolfman30/advisor-match/internal/events"
)

// PgxPool is the subset of pgxpool.Pool used here; pgxmock satisfies it in tests.
type PgxPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const appointmentColumns = `id, advisor_id, consumer_id, category_id, title, appointment_date, start_time, end_time, status, notes, location, created_at, updated_at`

// PostgresStore persists appointments with pgx.
type PostgresStore struct {
	pool PgxPool
}

func NewPostgresStore(pool PgxPool) *PostgresStore {
	if pool == nil {
		panic("appointments: pgx pool required")
	}
	return &PostgresStore{pool: pool}
}

// Create takes an advisory lock on (advisor, date) so concurrent bookings of
// the same day are checked one at a time. The outbox row shares the insert's
// transaction.
func (s *PostgresStore) Create(ctx context.Context, appt Appointment, guard Guard, emit EventFunc) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("appointments: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if guard != nil {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, appt.AdvisorID+"|"+appt.Date); err != nil {
			return fmt.Errorf("appointments: lock day: %w", err)
		}
		rows, err := tx.Query(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE advisor_id = $1 AND appointment_date = $2`, appt.AdvisorID, appt.Date)
		if err != nil {
			return fmt.Errorf("appointments: load day: %w", err)
		}
		sameDay, err := collectAppointments(rows)
		if err != nil {
			return err
		}
		if err := guard(sameDay); err != nil {
			return err
		}
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO appointments (`+appointmentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, appt.ID, appt.AdvisorID, appt.ConsumerID, appt.CategoryID, appt.Title, appt.Date, appt.StartTime, appt.EndTime,
		string(appt.Status), appt.Notes, appt.Location, appt.CreatedAt, appt.UpdatedAt); err != nil {
		return fmt.Errorf("appointments: insert: %w", err)
	}
	if err := writeEvent(ctx, tx, emit, appt, ""); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("appointments: commit: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (Appointment, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1`, id)
	a, err := scanAppointment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Appointment{}, ErrNotFound
	}
	if err != nil {
		return Appointment{}, fmt.Errorf("appointments: get: %w", err)
	}
	return a, nil
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, id string, decide DecideFunc, at time.Time, emit EventFunc) (Appointment, Status, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Appointment{}, "", fmt.Errorf("appointments: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1 FOR UPDATE`, id)
	current, err := scanAppointment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Appointment{}, "", ErrNotFound
	}
	if err != nil {
		return Appointment{}, "", fmt.Errorf("appointments: lock row: %w", err)
	}

	next, err := decide(current)
	if err != nil {
		return Appointment{}, "", err
	}
	if _, err := tx.Exec(ctx, `UPDATE appointments SET status = $2, updated_at = $3 WHERE id = $1`, id, string(next), at); err != nil {
		return Appointment{}, "", fmt.Errorf("appointments: update status: %w", err)
	}
	prev := current.Status
	current.Status = next
	current.UpdatedAt = at
	if err := writeEvent(ctx, tx, emit, current, prev); err != nil {
		return Appointment{}, "", err
	}
	if err := tx.Commit(ctx); err != nil {
		return Appointment{}, "", fmt.Errorf("appointments: commit: %w", err)
	}
	return current, prev, nil
}

func writeEvent(ctx context.Context, tx pgx.Tx, emit EventFunc, appt Appointment, prev Status) error {
	if emit == nil {
		return nil
	}
	evt := emit(appt, prev)
	if _, err := events.InsertOutbox(ctx, tx, appt.ID, evt.Type, evt); err != nil {
		return fmt.Errorf("appointments: record event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByAdvisor(ctx context.Context, advisorID string) ([]Appointment, error) {
	return s.list(ctx, `WHERE advisor_id = $1`, advisorID)
}

func (s *PostgresStore) ListByConsumer(ctx context.Context, consumerID string) ([]Appointment, error) {
	return s.list(ctx, `WHERE consumer_id = $1`, consumerID)
}

func (s *PostgresStore) list(ctx context.Context, where string, arg string) ([]Appointment, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+appointmentColumns+` FROM appointments `+where+` ORDER BY appointment_date, start_time`, arg)
	if err != nil {
		return nil, fmt.Errorf("appointments: list: %w", err)
	}
	return collectAppointments(rows)
}

func collectAppointments(rows pgx.Rows) ([]Appointment, error) {
	defer rows.Close()
	out := []Appointment{}
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("appointments: scan: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("appointments: iterate: %w", err)
	}
	return out, nil
}

func scanAppointment(row pgx.Row) (Appointment, error) {
	var (
		a      Appointment
		status string
	)
	err := row.Scan(&a.ID, &a.AdvisorID, &a.ConsumerID, &a.CategoryID, &a.Title, &a.Date, &a.StartTime, &a.EndTime,
		&status, &a.Notes, &a.Location, &a.CreatedAt, &a.UpdatedAt)
	a.Status = Status(status)
	return a, err
}
