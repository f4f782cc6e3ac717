package dashboard

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

// SQLSource aggregates straight from Postgres.
type SQLSource struct {
	db *sql.DB
}

func NewSQLSource(db *sql.DB) *SQLSource {
	if db == nil {
		panic("dashboard: db required")
	}
	return &SQLSource{db: db}
}

func participantColumn(role Role) (string, error) {
	switch role {
	case RoleAdvisor:
		return "advisor_id", nil
	case RoleConsumer:
		return "consumer_id", nil
	}
	return "", fmt.Errorf("dashboard: unknown scope %q", role)
}

func (s *SQLSource) Summary(ctx context.Context, scope Scope, weekStart, weekEnd string) (Summary, error) {
	col, err := participantColumn(scope.Role)
	if err != nil {
		return Summary{}, err
	}
	ids := pq.Array(scope.IDs)
	sum := Summary{AppointmentsByStatus: map[string]int64{}}

	sum.AppointmentsByStatus, err = s.countBy(ctx,
		`SELECT status, COUNT(*) FROM appointments WHERE `+col+` = ANY($1) GROUP BY status`, ids)
	if err != nil {
		return Summary{}, fmt.Errorf("dashboard: appointments by status: %w", err)
	}

	query := `
		SELECT COUNT(*) FROM appointments
		WHERE ` + col + ` = ANY($1)
		  AND status IN ('pending', 'confirmed')
		  AND appointment_date >= $2 AND appointment_date < $3`
	if err := s.db.QueryRowContext(ctx, query, ids, weekStart, weekEnd).Scan(&sum.UpcomingThisWeek); err != nil {
		return Summary{}, fmt.Errorf("dashboard: upcoming: %w", err)
	}

	if scope.Role != RoleAdvisor {
		return sum, nil
	}

	sum.LeadsByStatus, err = s.countBy(ctx,
		`SELECT status, COUNT(*) FROM leads WHERE advisor_id = ANY($1) GROUP BY status`, ids)
	if err != nil {
		return Summary{}, fmt.Errorf("dashboard: leads by status: %w", err)
	}
	for status, n := range sum.LeadsByStatus {
		if openLead(status) {
			sum.OpenLeads += n
		}
	}

	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM availability_slots WHERE advisor_id = ANY($1) AND is_available`, ids,
	).Scan(&sum.OfferedSlots); err != nil {
		return Summary{}, fmt.Errorf("dashboard: offered slots: %w", err)
	}
	return sum, nil
}

func (s *SQLSource) countBy(ctx context.Context, query string, args ...any) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]int64{}
	for rows.Next() {
		var key string
		var n int64
		if err := rows.Scan(&key, &n); err != nil {
			return nil, err
		}
		out[key] = n
	}
	return out, rows.Err()
}
