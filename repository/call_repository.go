package repository

import (
	"context"
	"fmt"
	"time"

	"enip/database"
	"enip/models"
)

// CallRepository reads and writes the president_calls and senate_calls registers
type CallRepository struct {
	q queryable
}

// NewCallRepository creates a new call repository
func NewCallRepository(db *database.DB) *CallRepository {
	return &CallRepository{q: db}
}

func newCallRepositoryWithTx(tx queryable) *CallRepository {
	return &CallRepository{q: tx}
}

func callTable(office models.Office) (string, error) {
	switch office {
	case models.OfficePresident:
		return "president_calls", nil
	case models.OfficeSenate:
		return "senate_calls", nil
	}
	return "", fmt.Errorf("office %q has no call register", office)
}

// List returns every register entry for both offices
func (r *CallRepository) List(ctx context.Context) ([]models.Call, error) {
	rows, err := r.q.Query(ctx, `
		SELECT 'P', state, ap_call, ap_called_at, published FROM president_calls
		UNION ALL
		SELECT 'S', state, ap_call, ap_called_at, published FROM senate_calls
		ORDER BY 1, 2
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list calls: %w", err)
	}
	defer rows.Close()

	var calls []models.Call
	for rows.Next() {
		var c models.Call
		var office string
		var apCall *string
		if err := rows.Scan(&office, &c.State, &apCall, &c.APCalledAt, &c.Published); err != nil {
			return nil, fmt.Errorf("failed to scan call: %w", err)
		}
		c.Office = models.Office(office)
		if apCall != nil {
			p := models.Party(*apCall)
			c.APCall = &p
		}
		if c.APCalledAt != nil {
			t := c.APCalledAt.UTC()
			c.APCalledAt = &t
		}
		calls = append(calls, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating calls: %w", err)
	}
	return calls, nil
}

// Upsert records the feed's call for each geography. A row is only written when the
// call differs from the stored one, so ap_called_at keeps the time of the last real
// change. The published flag is never touched. Returns the number of rows written.
func (r *CallRepository) Upsert(ctx context.Context, updates []models.CallUpdate, at time.Time) (int64, error) {
	var written int64
	for _, u := range updates {
		table, err := callTable(u.Office)
		if err != nil {
			return written, err
		}

		var call *string
		var calledAt *time.Time
		if u.Party != nil {
			s := string(*u.Party)
			call = &s
			t := at.UTC()
			calledAt = &t
		}

		tag, err := r.q.Exec(ctx, fmt.Sprintf(`
			INSERT INTO %[1]s (state, ap_call, ap_called_at)
			VALUES ($1, $2, $3)
			ON CONFLICT (state) DO UPDATE
			SET ap_call = EXCLUDED.ap_call, ap_called_at = EXCLUDED.ap_called_at
			WHERE %[1]s.ap_call IS DISTINCT FROM EXCLUDED.ap_call
		`, table), u.State, call, calledAt)
		if err != nil {
			return written, fmt.Errorf("failed to upsert %s call for %s: %w", u.Office, u.State, err)
		}
		written += tag.RowsAffected()
	}
	return written, nil
}

// SetPublished flips the editor's approval for a race. Returns false when the register
// has no entry for it.
func (r *CallRepository) SetPublished(ctx context.Context, office models.Office, state string, published bool) (bool, error) {
	table, err := callTable(office)
	if err != nil {
		return false, err
	}

	tag, err := r.q.Exec(ctx, fmt.Sprintf(`
		UPDATE %s SET published = $2 WHERE state = $1
	`, table), state, published)
	if err != nil {
		return false, fmt.Errorf("failed to set published for %s %s: %w", office, state, err)
	}
	return tag.RowsAffected() > 0, nil
}
