// Package history records allocation status transitions.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"staffline/internal/domain"
	"staffline/internal/lifecycle"
)

type Writer struct {
	Now func() time.Time
}

// Append records a transition from one status to another inside tx. The
// time spent in the previous status is measured from since.
func (w Writer) Append(ctx context.Context, tx *sql.Tx, allocationID int64, from, to string, since time.Time) (domain.StatusHistoryEntry, error) {
	if w.Now == nil {
		w.Now = time.Now
	}
	changed := w.Now().UTC().Truncate(time.Second)
	var spent *string
	if !since.IsZero() {
		d := changed.Sub(since)
		v := lifecycle.FormatDuration(d)
		spent = &v
	}
	res, err := tx.ExecContext(ctx, `INSERT INTO status_history(allocation_id,from_status,to_status,changed_at,duration_spent) VALUES (?,?,?,?,?)`,
		allocationID, from, to, changed.Format(time.RFC3339), nullable(spent))
	if err != nil {
		return domain.StatusHistoryEntry{}, fmt.Errorf("insert status history: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.StatusHistoryEntry{}, err
	}
	return domain.StatusHistoryEntry{
		ID:            id,
		AllocationID:  allocationID,
		FromStatus:    from,
		ToStatus:      to,
		ChangedAt:     changed,
		DurationSpent: spent,
	}, nil
}

func nullable(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}
