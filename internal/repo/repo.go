package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"staffline/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

// Querier is satisfied by *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Reference list kinds.
const (
	RefShift       = "shift"
	RefDepartment  = "department"
	RefDesignation = "designation"
)

// Vocabulary kinds.
const (
	VocabRole             = "role"
	VocabProjectStatus    = "project_status"
	VocabPriority         = "priority"
	VocabAllocationStatus = "allocation_status"
)

func (r Repo) UpsertRefTx(ctx context.Context, tx *sql.Tx, kind string, ref domain.Ref) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO reference_items(kind,id,name,code) VALUES (?,?,?,?)
ON CONFLICT(kind,id) DO UPDATE SET name=excluded.name, code=excluded.code`, kind, ref.ID, ref.Name, nullable(ref.Code))
	return err
}

func (r Repo) ListRefs(ctx context.Context, kind string) ([]domain.Ref, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,name,COALESCE(code,'') FROM reference_items WHERE kind=? ORDER BY name, id`, kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Ref
	for rows.Next() {
		var ref domain.Ref
		if err := rows.Scan(&ref.ID, &ref.Name, &ref.Code); err != nil {
			return nil, err
		}
		res = append(res, ref)
	}
	return res, rows.Err()
}

// ReplaceVocabularyTx stores values for kind in the given order.
func (r Repo) ReplaceVocabularyTx(ctx context.Context, tx *sql.Tx, kind string, values []string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM vocabulary WHERE kind=?`, kind); err != nil {
		return err
	}
	for i, v := range values {
		if _, err := tx.ExecContext(ctx, `INSERT INTO vocabulary(kind,value,position) VALUES (?,?,?)`, kind, v, i); err != nil {
			return fmt.Errorf("insert %s %q: %w", kind, v, err)
		}
	}
	return nil
}

func (r Repo) Vocabulary(ctx context.Context, kind string) (domain.Vocabulary, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT value FROM vocabulary WHERE kind=? ORDER BY position`, kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := domain.Vocabulary{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		res = append(res, v)
	}
	return res, rows.Err()
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullableID(v int64) any {
	if v == 0 {
		return nil
	}
	return v
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	return string(b), err
}

func decodeTags(raw string) ([]string, error) {
	tags := []string{}
	if raw == "" {
		return tags, nil
	}
	if err := json.Unmarshal([]byte(raw), &tags); err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}
	return tags, nil
}

func refOrNil(id sql.NullInt64, name, code sql.NullString) *domain.Ref {
	if !id.Valid {
		return nil
	}
	return &domain.Ref{ID: id.Int64, Name: name.String, Code: code.String}
}
