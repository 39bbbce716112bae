package repo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"staffline/internal/domain"
)

// AllocationRecord is an allocation row plus the time its status last changed.
type AllocationRecord struct {
	domain.Allocation
	StatusChangedAt time.Time
}

const allocationSelect = `SELECT id,project_id,employee_id,role,deadline,allocated_on,status,status_changed_at FROM allocations`

func scanAllocation(row rowScanner) (AllocationRecord, error) {
	var (
		rec     AllocationRecord
		changed string
	)
	if err := row.Scan(&rec.ID, &rec.ProjectID, &rec.EmployeeID, &rec.Role, &rec.Deadline, &rec.AllocatedOn, &rec.Status, &changed); err != nil {
		return rec, err
	}
	ts, err := time.Parse(time.RFC3339, changed)
	if err != nil {
		return rec, err
	}
	rec.StatusChangedAt = ts
	return rec, nil
}

// InsertAllocationTx stores a new allocation and returns its id.
func (r Repo) InsertAllocationTx(ctx context.Context, tx *sql.Tx, a domain.Allocation, at time.Time) (int64, error) {
	res, err := tx.ExecContext(ctx, `INSERT INTO allocations(project_id,employee_id,role,deadline,allocated_on,status,status_changed_at) VALUES (?,?,?,?,?,?,?)`,
		a.ProjectID, a.EmployeeID, a.Role, a.Deadline, a.AllocatedOn, a.Status, at.UTC().Format(time.RFC3339))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r Repo) GetAllocation(ctx context.Context, q Querier, id int64) (AllocationRecord, error) {
	rec, err := scanAllocation(q.QueryRowContext(ctx, allocationSelect+` WHERE id=?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return rec, ErrNotFound
	}
	return rec, err
}

// FindAllocation looks up the allocation of employeeID on projectID.
func (r Repo) FindAllocation(ctx context.Context, q Querier, projectID, employeeID int64) (AllocationRecord, error) {
	rec, err := scanAllocation(q.QueryRowContext(ctx, allocationSelect+` WHERE project_id=? AND employee_id=?`, projectID, employeeID))
	if errors.Is(err, sql.ErrNoRows) {
		return rec, ErrNotFound
	}
	return rec, err
}

func (r Repo) CountProjectAllocations(ctx context.Context, q Querier, projectID int64) (int, error) {
	var n int
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM allocations WHERE project_id=?`, projectID).Scan(&n)
	return n, err
}

// ListProjectAllocations returns a project's allocations with nested employees.
func (r Repo) ListProjectAllocations(ctx context.Context, projectID int64) ([]domain.Allocation, error) {
	recs, err := r.listAllocations(ctx, allocationSelect+` WHERE project_id=? ORDER BY id`, projectID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Allocation, 0, len(recs))
	for _, rec := range recs {
		a := rec.Allocation
		if e, err := r.GetEmployee(ctx, r.DB, a.EmployeeID); err == nil {
			a.Employee = &e
		} else if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// ListEmployeeAllocations returns an employee's allocations with nested projects.
func (r Repo) ListEmployeeAllocations(ctx context.Context, employeeID int64) ([]domain.Allocation, error) {
	recs, err := r.listAllocations(ctx, allocationSelect+` WHERE employee_id=? ORDER BY id`, employeeID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Allocation, 0, len(recs))
	for _, rec := range recs {
		a := rec.Allocation
		if p, err := r.GetProject(ctx, r.DB, a.ProjectID); err == nil {
			a.Project = &p
		} else if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func (r Repo) listAllocations(ctx context.Context, query string, args ...any) ([]AllocationRecord, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []AllocationRecord
	for rows.Next() {
		rec, err := scanAllocation(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, rec)
	}
	return res, rows.Err()
}

func (r Repo) DeleteAllocationTx(ctx context.Context, tx *sql.Tx, id int64) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM allocations WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) UpdateAllocationStatusTx(ctx context.Context, tx *sql.Tx, id int64, status string, at time.Time) error {
	res, err := tx.ExecContext(ctx, `UPDATE allocations SET status=?, status_changed_at=? WHERE id=?`, status, at.UTC().Format(time.RFC3339), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListStatusHistory returns the transitions of an allocation, oldest first.
func (r Repo) ListStatusHistory(ctx context.Context, allocationID int64) ([]domain.StatusHistoryEntry, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,allocation_id,from_status,to_status,changed_at,duration_spent FROM status_history WHERE allocation_id=? ORDER BY id`, allocationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.StatusHistoryEntry{}
	for rows.Next() {
		var (
			h       domain.StatusHistoryEntry
			changed string
			spent   sql.NullString
		)
		if err := rows.Scan(&h.ID, &h.AllocationID, &h.FromStatus, &h.ToStatus, &changed, &spent); err != nil {
			return nil, err
		}
		ts, err := time.Parse(time.RFC3339, changed)
		if err != nil {
			return nil, err
		}
		h.ChangedAt = ts
		if spent.Valid {
			v := spent.String
			h.DurationSpent = &v
		}
		res = append(res, h)
	}
	return res, rows.Err()
}
