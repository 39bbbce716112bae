package repo

import (
	"context"
	"database/sql"
	"errors"
	"strconv"

	"staffline/internal/domain"
)

const employeeSelect = `SELECT e.id,e.employee_code,e.name,COALESCE(e.email,''),e.experience,e.skills_json,
  d.id,d.name,d.code, g.id,g.name,g.code, s.id,s.name,s.code
FROM employees e
LEFT JOIN reference_items d ON d.kind='department' AND d.id=e.department_id
LEFT JOIN reference_items g ON g.kind='designation' AND g.id=e.designation_id
LEFT JOIN reference_items s ON s.kind='shift' AND s.id=e.shift_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEmployee(row rowScanner) (domain.Employee, error) {
	var (
		e                   domain.Employee
		skills              string
		dID, gID, sID       sql.NullInt64
		dName, gName, sName sql.NullString
		dCode, gCode, sCode sql.NullString
	)
	if err := row.Scan(&e.ID, &e.EmployeeCode, &e.Name, &e.Email, &e.Experience, &skills,
		&dID, &dName, &dCode, &gID, &gName, &gCode, &sID, &sName, &sCode); err != nil {
		return e, err
	}
	tags, err := decodeTags(skills)
	if err != nil {
		return e, err
	}
	e.Skills = tags
	e.Department = refOrNil(dID, dName, dCode)
	e.Designation = refOrNil(gID, gName, gCode)
	e.Shift = refOrNil(sID, sName, sCode)
	return e, nil
}

func refID(ref *domain.Ref) int64 {
	if ref == nil {
		return 0
	}
	return ref.ID
}

func (r Repo) InsertEmployeeTx(ctx context.Context, tx *sql.Tx, e domain.Employee) error {
	skills, err := encodeTags(e.Skills)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO employees(id,employee_code,name,email,experience,skills_json,department_id,designation_id,shift_id)
VALUES (?,?,?,?,?,?,?,?,?)`,
		e.ID, e.EmployeeCode, e.Name, nullable(e.Email), e.Experience, skills,
		nullableID(refID(e.Department)), nullableID(refID(e.Designation)), nullableID(refID(e.Shift)))
	return err
}

func (r Repo) ListEmployees(ctx context.Context) ([]domain.Employee, error) {
	rows, err := r.DB.QueryContext(ctx, employeeSelect+` ORDER BY e.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

func (r Repo) GetEmployee(ctx context.Context, q Querier, id int64) (domain.Employee, error) {
	e, err := scanEmployee(q.QueryRowContext(ctx, employeeSelect+` WHERE e.id=?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return e, ErrNotFound
	}
	return e, err
}

func (r Repo) UpsertScoreTx(ctx context.Context, tx *sql.Tx, employeeID int64, score float64) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO performance_scores(employee_id,score) VALUES (?,?)
ON CONFLICT(employee_id) DO UPDATE SET score=excluded.score`, employeeID, score)
	return err
}

// ListScores returns scores with employee ids rendered as strings, the way
// the scoring service reports them.
func (r Repo) ListScores(ctx context.Context) ([]domain.PerformanceScore, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT employee_id,score FROM performance_scores ORDER BY employee_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.PerformanceScore
	for rows.Next() {
		var (
			id    int64
			score float64
		)
		if err := rows.Scan(&id, &score); err != nil {
			return nil, err
		}
		res = append(res, domain.PerformanceScore{EmployeeID: strconv.FormatInt(id, 10), Score: score})
	}
	return res, rows.Err()
}
