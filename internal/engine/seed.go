package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"staffline/internal/domain"
	"staffline/internal/repo"
)

// SeedData is the content of a sandbox fixture file. Scores and suggestion
// lists are stored as given; the sandbox does not compute them.
type SeedData struct {
	Shifts       []domain.Ref              `yaml:"shifts"`
	Departments  []domain.Ref              `yaml:"departments"`
	Designations []domain.Ref              `yaml:"designations"`
	Employees    []domain.Employee         `yaml:"employees"`
	Scores       []domain.PerformanceScore `yaml:"scores"`
	Projects     []domain.Project          `yaml:"projects"`
	Suggestions  map[int64][]int64         `yaml:"suggestions"`
	Vocabulary   struct {
		Roles              []string `yaml:"roles"`
		ProjectStatuses    []string `yaml:"project_statuses"`
		Priorities         []string `yaml:"priorities"`
		AllocationStatuses []string `yaml:"allocation_statuses"`
	} `yaml:"vocabulary"`
	Allocations []SeedAllocation `yaml:"allocations"`
}

type SeedAllocation struct {
	ProjectID   int64  `yaml:"project_id"`
	EmployeeID  int64  `yaml:"employee_id"`
	Role        string `yaml:"role"`
	Deadline    string `yaml:"deadline"`
	AllocatedOn string `yaml:"allocated_on"`
	Status      string `yaml:"status"`
}

// Seeded reports whether any employee exists.
func (e Engine) Seeded(ctx context.Context) (bool, error) {
	var n int
	if err := e.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM employees`).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// Seed loads a fixture into an empty database in one transaction.
func (e Engine) Seed(ctx context.Context, data SeedData) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	refs := []struct {
		kind  string
		items []domain.Ref
	}{
		{repo.RefShift, data.Shifts},
		{repo.RefDepartment, data.Departments},
		{repo.RefDesignation, data.Designations},
	}
	for _, group := range refs {
		for _, ref := range group.items {
			if err := e.Repo.UpsertRefTx(ctx, tx, group.kind, ref); err != nil {
				return fmt.Errorf("seed %s %d: %w", group.kind, ref.ID, err)
			}
		}
	}
	vocab := map[string][]string{
		repo.VocabRole:             data.Vocabulary.Roles,
		repo.VocabProjectStatus:    data.Vocabulary.ProjectStatuses,
		repo.VocabPriority:         data.Vocabulary.Priorities,
		repo.VocabAllocationStatus: data.Vocabulary.AllocationStatuses,
	}
	for kind, values := range vocab {
		if err := e.Repo.ReplaceVocabularyTx(ctx, tx, kind, values); err != nil {
			return fmt.Errorf("seed vocabulary: %w", err)
		}
	}
	for _, emp := range data.Employees {
		if err := e.Repo.InsertEmployeeTx(ctx, tx, emp); err != nil {
			return fmt.Errorf("seed employee %d: %w", emp.ID, err)
		}
	}
	for _, s := range data.Scores {
		var id int64
		if _, err := fmt.Sscanf(s.EmployeeID, "%d", &id); err != nil {
			return fmt.Errorf("seed score: invalid employee id %q", s.EmployeeID)
		}
		if err := e.Repo.UpsertScoreTx(ctx, tx, id, s.Score); err != nil {
			return fmt.Errorf("seed score %d: %w", id, err)
		}
	}
	for _, p := range data.Projects {
		if p.MaxTeamSize <= 0 {
			return fmt.Errorf("seed project %d: max_team_size must be positive", p.ID)
		}
		if err := e.Repo.InsertProjectTx(ctx, tx, p); err != nil {
			return fmt.Errorf("seed project %d: %w", p.ID, err)
		}
	}
	for projectID, ids := range data.Suggestions {
		if err := e.Repo.SetSuggestionsTx(ctx, tx, projectID, ids); err != nil {
			return fmt.Errorf("seed suggestions for %d: %w", projectID, err)
		}
	}
	defaultStatus := DefaultAllocationStatus
	if len(data.Vocabulary.AllocationStatuses) > 0 {
		defaultStatus = data.Vocabulary.AllocationStatuses[0]
	}
	for _, sa := range data.Allocations {
		changed, err := time.Parse(domain.DateLayout, sa.AllocatedOn)
		if err != nil {
			return fmt.Errorf("seed allocation %d/%d: allocated_on: %w", sa.ProjectID, sa.EmployeeID, err)
		}
		status := sa.Status
		if status == "" {
			status = defaultStatus
		}
		a := domain.Allocation{
			ProjectID:   sa.ProjectID,
			EmployeeID:  sa.EmployeeID,
			Role:        sa.Role,
			Deadline:    sa.Deadline,
			AllocatedOn: sa.AllocatedOn,
			Status:      status,
		}
		if _, err := e.Repo.InsertAllocationTx(ctx, tx, a, changed); err != nil {
			return fmt.Errorf("seed allocation %d/%d: %w", sa.ProjectID, sa.EmployeeID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	e.log().WithFields(logrus.Fields{
		"employees":   len(data.Employees),
		"projects":    len(data.Projects),
		"allocations": len(data.Allocations),
	}).Info("sandbox seeded")
	return nil
}
