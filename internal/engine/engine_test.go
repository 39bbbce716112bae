package engine_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"staffline/internal/db"
	"staffline/internal/domain"
	"staffline/internal/engine"
	"staffline/internal/engine/auth"
	"staffline/internal/migrate"
	"staffline/internal/repo"
)

type testEnv struct {
	Engine engine.Engine
	Ctx    context.Context
}

var admin = auth.Actor{EmployeeID: 1, Roles: []string{auth.RoleAdmin}}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	ctx := context.Background()
	if _, err := migrate.Migrate(ctx, conn, nil); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	eng := engine.New(conn, nil)
	eng.Now = func() time.Time { return time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC) }
	var seed engine.SeedData
	seed.Vocabulary.Roles = []string{"Developer", "Tester"}
	seed.Vocabulary.AllocationStatuses = []string{"assigned", "in_progress", "completed"}
	seed.Employees = []domain.Employee{
		{ID: 1, EmployeeCode: "E1", Name: "Asha"},
		{ID: 2, EmployeeCode: "E2", Name: "Ben"},
		{ID: 3, EmployeeCode: "E3", Name: "Chen"},
	}
	seed.Projects = []domain.Project{{ID: 7, Code: "P7", Name: "Atlas", EndDate: "2026-12-31", MaxTeamSize: 2, RequiredSkills: []string{"go"}}}
	seed.Suggestions = map[int64][]int64{7: {3, 1}}
	seed.Allocations = []engine.SeedAllocation{{ProjectID: 7, EmployeeID: 1, Role: "Developer", Deadline: "2026-12-31", AllocatedOn: "2026-10-14"}}
	if err := eng.Seed(ctx, seed); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return testEnv{Engine: eng, Ctx: ctx}
}

func create(employeeID int64) domain.AllocationCreate {
	return domain.AllocationCreate{ProjectID: 7, EmployeeID: employeeID, Role: "Tester", Deadline: "2026-12-31", AllocatedOn: "2026-10-14"}
}

func TestSeededData(t *testing.T) {
	env := newTestEnv(t)
	seeded, err := env.Engine.Seeded(env.Ctx)
	if err != nil || !seeded {
		t.Fatalf("expected seeded database: %v", err)
	}
	ids, err := env.Engine.SuggestedEmployees(env.Ctx, 7)
	if err != nil || len(ids) != 2 || ids[0] != 3 {
		t.Fatalf("unexpected suggestions %v %v", ids, err)
	}
	p, err := env.Engine.Project(env.Ctx, 7)
	if err != nil || len(p.RequiredSkills) != 1 {
		t.Fatalf("unexpected project %+v %v", p, err)
	}
	allocations, err := env.Engine.ProjectAllocations(env.Ctx, 7)
	if err != nil || len(allocations) != 1 || allocations[0].Status != "assigned" {
		t.Fatalf("unexpected allocations %+v %v", allocations, err)
	}
}

func TestCreateAllocationRules(t *testing.T) {
	env := newTestEnv(t)

	var fe auth.ForbiddenError
	if _, err := env.Engine.CreateAllocation(env.Ctx, auth.Actor{EmployeeID: 2}, create(2)); !errors.As(err, &fe) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	var ce engine.ConflictError
	if _, err := env.Engine.CreateAllocation(env.Ctx, admin, create(1)); !errors.As(err, &ce) {
		t.Fatalf("expected conflict, got %v", err)
	}
	bad := create(2)
	bad.Role = "Pilot"
	var ve engine.ValidationError
	if _, err := env.Engine.CreateAllocation(env.Ctx, admin, bad); !errors.As(err, &ve) || ve.Field != "role" {
		t.Fatalf("expected role validation error, got %v", err)
	}
	bad = create(2)
	bad.Deadline = "31/12/2026"
	if _, err := env.Engine.CreateAllocation(env.Ctx, admin, bad); !errors.As(err, &ve) || ve.Field != "deadline" {
		t.Fatalf("expected deadline validation error, got %v", err)
	}

	a, err := env.Engine.CreateAllocation(env.Ctx, admin, create(2))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if a.ID == 0 || a.Status != "assigned" || a.Employee == nil || a.Employee.Name != "Ben" {
		t.Fatalf("unexpected allocation %+v", a)
	}
	var capErr engine.CapacityError
	if _, err := env.Engine.CreateAllocation(env.Ctx, admin, create(3)); !errors.As(err, &capErr) || capErr.Max != 2 {
		t.Fatalf("expected capacity error, got %v", err)
	}
	missing := create(3)
	missing.ProjectID = 99
	if _, err := env.Engine.CreateAllocation(env.Ctx, admin, missing); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDeleteFreesCapacity(t *testing.T) {
	env := newTestEnv(t)
	a, err := env.Engine.CreateAllocation(env.Ctx, admin, create(2))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := env.Engine.DeleteAllocation(env.Ctx, admin, a.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := env.Engine.DeleteAllocation(env.Ctx, admin, a.ID); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
	if _, err := env.Engine.CreateAllocation(env.Ctx, admin, create(3)); err != nil {
		t.Fatalf("create after delete: %v", err)
	}
}

func TestChangeStatusRecordsHistory(t *testing.T) {
	env := newTestEnv(t)
	asha := auth.Actor{EmployeeID: 1}
	mine, err := env.Engine.MyAllocations(env.Ctx, asha)
	if err != nil || len(mine) != 1 {
		t.Fatalf("my allocations: %+v %v", mine, err)
	}
	id := mine[0].ID

	// The seeded allocation started at midnight; the clock reads noon.
	a, err := env.Engine.ChangeStatus(env.Ctx, asha, id, "completed")
	if err != nil || a.Status != "completed" || a.Project == nil {
		t.Fatalf("change status: %+v %v", a, err)
	}
	env.Engine.Now = func() time.Time { return time.Date(2026, 10, 14, 13, 30, 5, 0, time.UTC) }
	if _, err := env.Engine.ChangeStatus(env.Ctx, asha, id, "assigned"); err != nil {
		t.Fatalf("revert status: %v", err)
	}

	entries, err := env.Engine.StatusHistory(env.Ctx, asha, id)
	if err != nil || len(entries) != 2 {
		t.Fatalf("history: %+v %v", entries, err)
	}
	if entries[0].FromStatus != "assigned" || entries[0].ToStatus != "completed" || *entries[0].DurationSpent != "PT12H" {
		t.Fatalf("unexpected first entry %+v", entries[0])
	}
	if entries[1].ToStatus != "assigned" || *entries[1].DurationSpent != "PT1H30M5S" {
		t.Fatalf("unexpected second entry %+v", entries[1])
	}

	var fe auth.ForbiddenError
	if _, err := env.Engine.ChangeStatus(env.Ctx, auth.Actor{EmployeeID: 2}, id, "completed"); !errors.As(err, &fe) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	var ve engine.ValidationError
	if _, err := env.Engine.ChangeStatus(env.Ctx, asha, id, "lost"); !errors.As(err, &ve) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := env.Engine.ChangeStatus(env.Ctx, asha, 999, "completed"); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
