package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"staffline/internal/domain"
	"staffline/internal/engine/auth"
	"staffline/internal/history"
	"staffline/internal/logger"
	"staffline/internal/repo"
)

// DefaultAllocationStatus is used when no allocation status vocabulary exists.
const DefaultAllocationStatus = "assigned"

type Engine struct {
	DB      *sql.DB
	Repo    repo.Repo
	History history.Writer
	Log     logrus.FieldLogger
	Now     func() time.Time
}

func New(db *sql.DB, log logrus.FieldLogger) Engine {
	return Engine{
		DB:      db,
		Repo:    repo.Repo{DB: db},
		History: history.Writer{Now: time.Now},
		Log:     logger.OrDiscard(log),
		Now:     time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) log() logrus.FieldLogger {
	return logger.OrDiscard(e.Log)
}

var validate = validator.New()

func (e Engine) Employees(ctx context.Context) ([]domain.Employee, error) {
	return e.Repo.ListEmployees(ctx)
}

func (e Engine) PerformanceScores(ctx context.Context) ([]domain.PerformanceScore, error) {
	return e.Repo.ListScores(ctx)
}

// SuggestedEmployees returns the stored shortlist of a project, best first.
func (e Engine) SuggestedEmployees(ctx context.Context, projectID int64) ([]int64, error) {
	if _, err := e.Repo.GetProject(ctx, e.DB, projectID); err != nil {
		return nil, err
	}
	return e.Repo.ListSuggestions(ctx, projectID)
}

func (e Engine) Projects(ctx context.Context) ([]domain.Project, error) {
	return e.Repo.ListProjects(ctx)
}

func (e Engine) Project(ctx context.Context, id int64) (domain.Project, error) {
	return e.Repo.GetProject(ctx, e.DB, id)
}

func (e Engine) ProjectsMetadata(ctx context.Context) (domain.ProjectsMetadata, error) {
	var (
		md  domain.ProjectsMetadata
		err error
	)
	if md.Roles, err = e.Repo.Vocabulary(ctx, repo.VocabRole); err != nil {
		return md, err
	}
	if md.Statuses, err = e.Repo.Vocabulary(ctx, repo.VocabProjectStatus); err != nil {
		return md, err
	}
	if md.Priorities, err = e.Repo.Vocabulary(ctx, repo.VocabPriority); err != nil {
		return md, err
	}
	return md, nil
}

func (e Engine) AllocationStatuses(ctx context.Context) ([]string, error) {
	v, err := e.Repo.Vocabulary(ctx, repo.VocabAllocationStatus)
	return []string(v), err
}

// Refs lists one reference kind: repo.RefShift, repo.RefDepartment or repo.RefDesignation.
func (e Engine) Refs(ctx context.Context, kind string) ([]domain.Ref, error) {
	return e.Repo.ListRefs(ctx, kind)
}

func (e Engine) ProjectAllocations(ctx context.Context, projectID int64) ([]domain.Allocation, error) {
	if _, err := e.Repo.GetProject(ctx, e.DB, projectID); err != nil {
		return nil, err
	}
	return e.Repo.ListProjectAllocations(ctx, projectID)
}

// CreateAllocation adds an employee to a project. One allocation per
// (project, employee) pair exists at most and the team never exceeds the
// project's max_team_size.
func (e Engine) CreateAllocation(ctx context.Context, actor auth.Actor, in domain.AllocationCreate) (domain.Allocation, error) {
	if err := auth.RequireRole(actor, auth.RoleAdmin); err != nil {
		return domain.Allocation{}, err
	}
	if err := checkCreate(in); err != nil {
		return domain.Allocation{}, err
	}
	roles, err := e.Repo.Vocabulary(ctx, repo.VocabRole)
	if err != nil {
		return domain.Allocation{}, err
	}
	if in.Role != "" && len(roles) > 0 && !roles.Contains(in.Role) {
		return domain.Allocation{}, ValidationError{Field: "role", Reason: fmt.Sprintf("unknown role %q", in.Role)}
	}
	statuses, err := e.Repo.Vocabulary(ctx, repo.VocabAllocationStatus)
	if err != nil {
		return domain.Allocation{}, err
	}
	status := statuses.First()
	if status == "" {
		status = DefaultAllocationStatus
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Allocation{}, err
	}
	defer tx.Rollback()
	p, err := e.Repo.GetProject(ctx, tx, in.ProjectID)
	if err != nil {
		return domain.Allocation{}, fmt.Errorf("project %d: %w", in.ProjectID, err)
	}
	emp, err := e.Repo.GetEmployee(ctx, tx, in.EmployeeID)
	if err != nil {
		return domain.Allocation{}, fmt.Errorf("employee %d: %w", in.EmployeeID, err)
	}
	if _, err := e.Repo.FindAllocation(ctx, tx, in.ProjectID, in.EmployeeID); err == nil {
		return domain.Allocation{}, ConflictError{Message: fmt.Sprintf("employee %d is already allocated to project %d", in.EmployeeID, in.ProjectID)}
	} else if !errors.Is(err, repo.ErrNotFound) {
		return domain.Allocation{}, err
	}
	n, err := e.Repo.CountProjectAllocations(ctx, tx, in.ProjectID)
	if err != nil {
		return domain.Allocation{}, err
	}
	if n >= p.MaxTeamSize {
		return domain.Allocation{}, CapacityError{ProjectID: p.ID, Max: p.MaxTeamSize}
	}
	a := domain.Allocation{
		ProjectID:   in.ProjectID,
		EmployeeID:  in.EmployeeID,
		Role:        in.Role,
		Deadline:    in.Deadline,
		AllocatedOn: in.AllocatedOn,
		Status:      status,
	}
	id, err := e.Repo.InsertAllocationTx(ctx, tx, a, e.now())
	if err != nil {
		return domain.Allocation{}, fmt.Errorf("insert allocation: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return domain.Allocation{}, err
	}
	a.ID = id
	a.Employee = &emp
	e.log().WithFields(logrus.Fields{"allocation_id": id, "project_id": a.ProjectID, "employee_id": a.EmployeeID}).Info("allocation created")
	return a, nil
}

func checkCreate(in domain.AllocationCreate) error {
	if err := validate.Struct(in); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return ValidationError{Field: jsonName(fe.Field()), Reason: fe.Tag()}
		}
		return err
	}
	for field, v := range map[string]string{"deadline": in.Deadline, "allocated_on": in.AllocatedOn} {
		if _, err := time.Parse(domain.DateLayout, v); err != nil {
			return ValidationError{Field: field, Reason: "expected YYYY-MM-DD"}
		}
	}
	return nil
}

func jsonName(field string) string {
	switch field {
	case "ProjectID":
		return "project_id"
	case "EmployeeID":
		return "employee_id"
	case "AllocatedOn":
		return "allocated_on"
	}
	return strings.ToLower(field)
}

func (e Engine) DeleteAllocation(ctx context.Context, actor auth.Actor, id int64) error {
	if err := auth.RequireRole(actor, auth.RoleAdmin); err != nil {
		return err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Repo.DeleteAllocationTx(ctx, tx, id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	e.log().WithField("allocation_id", id).Info("allocation deleted")
	return nil
}

// MyAllocations lists the actor's allocations with nested projects.
func (e Engine) MyAllocations(ctx context.Context, actor auth.Actor) ([]domain.Allocation, error) {
	return e.Repo.ListEmployeeAllocations(ctx, actor.EmployeeID)
}

// ChangeStatus moves one of the actor's allocations to status and records the
// transition. Any status in the vocabulary may follow any other.
func (e Engine) ChangeStatus(ctx context.Context, actor auth.Actor, id int64, status string) (domain.Allocation, error) {
	status = strings.TrimSpace(status)
	if status == "" {
		return domain.Allocation{}, ValidationError{Field: "status", Reason: "required"}
	}
	statuses, err := e.Repo.Vocabulary(ctx, repo.VocabAllocationStatus)
	if err != nil {
		return domain.Allocation{}, err
	}
	if len(statuses) > 0 && !statuses.Contains(status) {
		return domain.Allocation{}, ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", status)}
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Allocation{}, err
	}
	defer tx.Rollback()
	rec, err := e.Repo.GetAllocation(ctx, tx, id)
	if err != nil {
		return domain.Allocation{}, err
	}
	if err := auth.RequireOwner(actor, rec.EmployeeID); err != nil {
		return domain.Allocation{}, err
	}
	now := e.now()
	if err := e.Repo.UpdateAllocationStatusTx(ctx, tx, id, status, now); err != nil {
		return domain.Allocation{}, err
	}
	hw := e.History
	hw.Now = func() time.Time { return now }
	if _, err := hw.Append(ctx, tx, id, rec.Status, status, rec.StatusChangedAt); err != nil {
		return domain.Allocation{}, err
	}
	p, pErr := e.Repo.GetProject(ctx, tx, rec.ProjectID)
	if pErr != nil && !errors.Is(pErr, repo.ErrNotFound) {
		return domain.Allocation{}, pErr
	}
	if err := tx.Commit(); err != nil {
		return domain.Allocation{}, err
	}
	a := rec.Allocation
	a.Status = status
	if pErr == nil {
		a.Project = &p
	}
	e.log().WithFields(logrus.Fields{"allocation_id": id, "from": rec.Status, "to": status}).Info("allocation status changed")
	return a, nil
}

// StatusHistory returns the recorded transitions of one of the actor's allocations.
func (e Engine) StatusHistory(ctx context.Context, actor auth.Actor, id int64) ([]domain.StatusHistoryEntry, error) {
	rec, err := e.Repo.GetAllocation(ctx, e.DB, id)
	if err != nil {
		return nil, err
	}
	if err := auth.RequireOwner(actor, rec.EmployeeID); err != nil {
		return nil, err
	}
	return e.Repo.ListStatusHistory(ctx, id)
}
