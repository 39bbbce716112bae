package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"staffline/internal/domain"
)

const projectSelect = `SELECT id,code,name,COALESCE(description,''),COALESCE(start_date,''),COALESCE(end_date,''),
  max_team_size,min_experience,required_skills_json,COALESCE(status,''),COALESCE(priority,'')
FROM projects`

func scanProject(row rowScanner) (domain.Project, error) {
	var (
		p      domain.Project
		skills string
	)
	if err := row.Scan(&p.ID, &p.Code, &p.Name, &p.Description, &p.StartDate, &p.EndDate,
		&p.MaxTeamSize, &p.MinExperience, &skills, &p.Status, &p.Priority); err != nil {
		return p, err
	}
	tags, err := decodeTags(skills)
	if err != nil {
		return p, err
	}
	p.RequiredSkills = tags
	return p, nil
}

func (r Repo) InsertProjectTx(ctx context.Context, tx *sql.Tx, p domain.Project) error {
	skills, err := encodeTags(p.RequiredSkills)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO projects(id,code,name,description,start_date,end_date,max_team_size,min_experience,required_skills_json,status,priority)
VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		p.ID, p.Code, p.Name, nullable(p.Description), nullable(p.StartDate), nullable(p.EndDate),
		p.MaxTeamSize, p.MinExperience, skills, nullable(p.Status), nullable(p.Priority))
	return err
}

func (r Repo) ListProjects(ctx context.Context) ([]domain.Project, error) {
	rows, err := r.DB.QueryContext(ctx, projectSelect+` ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

func (r Repo) GetProject(ctx context.Context, q Querier, id int64) (domain.Project, error) {
	p, err := scanProject(q.QueryRowContext(ctx, projectSelect+` WHERE id=?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return p, ErrNotFound
	}
	return p, err
}

// SetSuggestionsTx replaces the ranked shortlist of a project.
func (r Repo) SetSuggestionsTx(ctx context.Context, tx *sql.Tx, projectID int64, employeeIDs []int64) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM project_suggestions WHERE project_id=?`, projectID); err != nil {
		return err
	}
	for rank, id := range employeeIDs {
		if _, err := tx.ExecContext(ctx, `INSERT INTO project_suggestions(project_id,employee_id,rank) VALUES (?,?,?)`, projectID, id, rank); err != nil {
			return fmt.Errorf("insert suggestion %d: %w", id, err)
		}
	}
	return nil
}

func (r Repo) ListSuggestions(ctx context.Context, projectID int64) ([]int64, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT employee_id FROM project_suggestions WHERE project_id=? ORDER BY rank`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		res = append(res, id)
	}
	return res, rows.Err()
}
