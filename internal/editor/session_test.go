package editor_test

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staffline/internal/domain"
	"staffline/internal/editor"
	"staffline/internal/filter"
	"staffline/internal/notify"
	stafflinesdk "staffline/sdk/go"
)

// memGateway keeps allocations in memory and records every mutation in order.
type memGateway struct {
	employees   []domain.Employee
	scores      []domain.PerformanceScore
	suggestions []int64
	metadata    domain.ProjectsMetadata
	allocations []domain.Allocation
	nextID      int64
	calls       []string
	deleteErr   map[int64]error
	createErr   map[int64]error
	metadataErr error
	allocErr    error
	maxTeam     int
}

func newMemGateway() *memGateway {
	day := &domain.Ref{ID: 1, Name: "Day"}
	eng := &domain.Ref{ID: 10, Name: "Engineering"}
	return &memGateway{
		employees: []domain.Employee{
			{ID: 1, EmployeeCode: "E1", Name: "Asha", Skills: []string{"go", "sql"}, Shift: day, Department: eng},
			{ID: 2, EmployeeCode: "E2", Name: "Ben", Skills: []string{"go"}, Shift: day},
			{ID: 3, EmployeeCode: "E3", Name: "Chen", Skills: []string{"sql"}},
			{ID: 4, EmployeeCode: "E4", Name: "Dana", Skills: []string{"go", "sql"}},
		},
		scores:      []domain.PerformanceScore{{EmployeeID: "3", Score: 80}, {EmployeeID: "1", Score: 60}},
		suggestions: []int64{4, 1},
		metadata: domain.ProjectsMetadata{
			Roles:    domain.Vocabulary{"Developer", "Tester"},
			Statuses: domain.Vocabulary{"active", "closed"},
		},
		nextID:    100,
		deleteErr: map[int64]error{},
		createErr: map[int64]error{},
	}
}

func (g *memGateway) Employees(context.Context) ([]domain.Employee, error) { return g.employees, nil }
func (g *memGateway) PerformanceScores(context.Context) ([]domain.PerformanceScore, error) {
	return g.scores, nil
}
func (g *memGateway) SuggestedEmployees(context.Context, int64) ([]int64, error) {
	return g.suggestions, nil
}
func (g *memGateway) ProjectsMetadata(context.Context) (domain.ProjectsMetadata, error) {
	return g.metadata, g.metadataErr
}
func (g *memGateway) Shifts(context.Context) ([]domain.Ref, error) {
	return []domain.Ref{{ID: 1, Name: "Day"}}, nil
}
func (g *memGateway) Departments(context.Context) ([]domain.Ref, error) { return nil, nil }
func (g *memGateway) Designations(context.Context) ([]domain.Ref, error) {
	return nil, &stafflinesdk.APIError{StatusCode: http.StatusNotFound}
}

func (g *memGateway) ProjectAllocations(_ context.Context, projectID int64) ([]domain.Allocation, error) {
	if g.allocErr != nil {
		return nil, g.allocErr
	}
	var out []domain.Allocation
	for _, a := range g.allocations {
		if a.ProjectID == projectID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (g *memGateway) CreateAllocation(_ context.Context, in domain.AllocationCreate) (domain.Allocation, error) {
	g.calls = append(g.calls, "create")
	if err := g.createErr[in.EmployeeID]; err != nil {
		return domain.Allocation{}, err
	}
	if current, _ := g.ProjectAllocations(context.Background(), in.ProjectID); g.maxTeam > 0 && len(current) >= g.maxTeam {
		return domain.Allocation{}, &stafflinesdk.APIError{StatusCode: http.StatusUnprocessableEntity}
	}
	g.nextID++
	a := domain.Allocation{ID: g.nextID, ProjectID: in.ProjectID, EmployeeID: in.EmployeeID, Role: in.Role, Deadline: in.Deadline, AllocatedOn: in.AllocatedOn, Status: "assigned"}
	g.allocations = append(g.allocations, a)
	return a, nil
}

func (g *memGateway) DeleteAllocation(_ context.Context, id int64) error {
	g.calls = append(g.calls, "delete")
	if err := g.deleteErr[id]; err != nil {
		return err
	}
	for i, a := range g.allocations {
		if a.ID == id {
			g.allocations = append(g.allocations[:i], g.allocations[i+1:]...)
			return nil
		}
	}
	return &stafflinesdk.APIError{StatusCode: http.StatusNotFound}
}

func project(maxTeam int) domain.Project {
	return domain.Project{ID: 7, Code: "P7", Name: "Atlas", EndDate: "2026-12-31", MaxTeamSize: maxTeam, RequiredSkills: []string{}}
}

func fixedNow() time.Time { return time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC) }

func openSession(t *testing.T, gw *memGateway, p domain.Project) (*editor.Session, *notify.Recorder) {
	t.Helper()
	rec := &notify.Recorder{}
	s, err := editor.Open(context.Background(), gw, p, editor.Options{Notifier: rec, Now: fixedNow})
	require.NoError(t, err)
	return s, rec
}

func employee(gw *memGateway, id int64) domain.Employee {
	for _, e := range gw.employees {
		if e.ID == id {
			return e
		}
	}
	panic("unknown employee")
}

func ids(items []domain.Employee) []int64 {
	out := make([]int64, 0, len(items))
	for _, e := range items {
		out = append(out, e.ID)
	}
	return out
}

func TestOpenRejectsInvalidProject(t *testing.T) {
	gw := newMemGateway()
	for _, p := range []domain.Project{
		{MaxTeamSize: 2, RequiredSkills: []string{}},
		{ID: 7, RequiredSkills: []string{}},
		{ID: 7, MaxTeamSize: 2},
	} {
		_, err := editor.Open(context.Background(), gw, p, editor.Options{})
		var verr editor.ValidationError
		assert.ErrorAs(t, err, &verr)
	}
}

func TestOpenLoadsViews(t *testing.T) {
	gw := newMemGateway()
	s, _ := openSession(t, gw, project(3))
	assert.Equal(t, []int64{3, 1, 2, 4}, ids(s.Directory()))
	assert.Equal(t, []int64{4, 1}, ids(s.Suggested()))
	assert.Equal(t, []int64{3, 1, 2, 4}, ids(s.Filtered()))
	assert.Len(t, s.Refs().Shifts, 1)
	assert.NoError(t, s.LoadErr())
}

func TestOpenSurvivesLoadFailures(t *testing.T) {
	gw := newMemGateway()
	gw.metadataErr = errors.New("boom")
	gw.allocErr = &stafflinesdk.APIError{StatusCode: http.StatusInternalServerError}
	s, rec := openSession(t, gw, project(3))
	require.Error(t, s.LoadErr())
	assert.NotEmpty(t, rec.Messages)
	assert.Empty(t, s.Allocations())

	require.NoError(t, s.StageCreate(employee(gw, 1)))
	assert.Equal(t, "", s.Staged()[0].Role)
}

func TestFailedMetadataFetchLeavesVocabularyEmpty(t *testing.T) {
	for name, err := range map[string]error{
		"server error": &stafflinesdk.APIError{StatusCode: http.StatusBadGateway},
		"not found":    &stafflinesdk.APIError{StatusCode: http.StatusNotFound},
	} {
		gw := newMemGateway()
		gw.metadataErr = err
		s, _ := openSession(t, gw, project(3))
		assert.Empty(t, s.Metadata().Roles, name)
		assert.Empty(t, s.Metadata().Statuses, name)

		require.NoError(t, s.StageCreate(employee(gw, 2)), name)
		assert.Equal(t, "", s.Staged()[0].Role, name)
	}
}

func TestStageCreateDefaults(t *testing.T) {
	gw := newMemGateway()
	s, _ := openSession(t, gw, project(3))
	require.NoError(t, s.StageCreate(employee(gw, 2)))
	st := s.Staged()
	require.Len(t, st, 1)
	assert.Equal(t, "Developer", st[0].Role)
	assert.Equal(t, "2026-12-31", st[0].Deadline)
	assert.Equal(t, "2026-10-14", st[0].AllocatedOn)
	assert.Equal(t, int64(7), st[0].ProjectID)
	assert.Equal(t, editor.ActionRemoveStaged, s.Action(2))
}

func TestCapacityNeverExceeded(t *testing.T) {
	gw := newMemGateway()
	gw.allocations = []domain.Allocation{{ID: 50, ProjectID: 7, EmployeeID: 1}}
	s, rec := openSession(t, gw, project(3))

	require.NoError(t, s.StageCreate(employee(gw, 2)))
	require.NoError(t, s.StageCreate(employee(gw, 3)))
	before := s.Staged()

	err := s.StageCreate(employee(gw, 4))
	var capErr editor.CapacityError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, 3, capErr.Max)
	assert.Equal(t, before, s.Staged())
	assert.Equal(t, 3, len(s.Allocations())+len(s.Staged()))

	msg, _ := rec.Last()
	assert.Equal(t, notify.LevelWarning, msg.Level)
	assert.Contains(t, msg.Text, "3")
}

func TestCapacityUsesPreSaveCounts(t *testing.T) {
	gw := newMemGateway()
	gw.allocations = []domain.Allocation{{ID: 50, ProjectID: 7, EmployeeID: 1}, {ID: 51, ProjectID: 7, EmployeeID: 2}}
	s, _ := openSession(t, gw, project(2))
	require.True(t, s.StageRemoval(50))
	var capErr editor.CapacityError
	assert.ErrorAs(t, s.StageCreate(employee(gw, 3)), &capErr)
}

func TestStagingIsIdempotent(t *testing.T) {
	gw := newMemGateway()
	gw.allocations = []domain.Allocation{{ID: 50, ProjectID: 7, EmployeeID: 1}}
	s, _ := openSession(t, gw, project(5))

	require.NoError(t, s.StageCreate(employee(gw, 2)))
	require.NoError(t, s.StageCreate(employee(gw, 2)))
	assert.Len(t, s.Staged(), 1)

	require.NoError(t, s.StageCreate(employee(gw, 1)))
	assert.Len(t, s.Staged(), 1)
	assert.Equal(t, editor.ActionAllocated, s.Action(1))

	before := s.Staged()
	assert.False(t, s.UnstageCreate(4))
	assert.Equal(t, before, s.Staged())
	assert.True(t, s.UnstageCreate(2))
	assert.Empty(t, s.Staged())
	assert.Equal(t, editor.ActionAdd, s.Action(2))
}

func TestToggleFollowsButtonState(t *testing.T) {
	gw := newMemGateway()
	s, _ := openSession(t, gw, project(5))
	require.NoError(t, s.Toggle(employee(gw, 3)))
	assert.Len(t, s.Staged(), 1)
	require.NoError(t, s.Toggle(employee(gw, 3)))
	assert.Empty(t, s.Staged())
}

func TestSetStagedFields(t *testing.T) {
	gw := newMemGateway()
	s, _ := openSession(t, gw, project(5))
	require.NoError(t, s.StageCreate(employee(gw, 2)))
	assert.True(t, s.SetStagedRole(2, "Tester"))
	assert.True(t, s.SetStagedDeadline(2, "2027-01-15"))
	assert.False(t, s.SetStagedRole(3, "Tester"))
	st := s.Staged()[0]
	assert.Equal(t, "Tester", st.Role)
	assert.Equal(t, "2027-01-15", st.Deadline)
}

func TestRemovalToggleRestoresState(t *testing.T) {
	gw := newMemGateway()
	gw.allocations = []domain.Allocation{{ID: 50, ProjectID: 7, EmployeeID: 1}}
	s, _ := openSession(t, gw, project(5))

	assert.Empty(t, s.Removals())
	assert.True(t, s.StageRemoval(50))
	assert.False(t, s.StageRemoval(50))
	assert.True(t, s.MarkedForRemoval(50))
	assert.True(t, s.UnstageRemoval(50))
	assert.False(t, s.UnstageRemoval(50))
	assert.Empty(t, s.Removals())
	assert.False(t, s.StageRemoval(999))
}

func TestSkillFiltersRerunAutomatically(t *testing.T) {
	gw := newMemGateway()
	s, _ := openSession(t, gw, project(5))
	s.AddSkillFilter("go")
	s.AddSkillFilter("go")
	assert.Equal(t, []string{"go"}, s.Criteria().Skills)
	assert.Equal(t, []int64{1, 2, 4}, ids(s.Filtered()))
	s.AddSkillFilter("sql")
	assert.Equal(t, []int64{1, 4}, ids(s.Filtered()))
	s.SetShift(1)
	assert.Equal(t, []int64{1}, ids(s.Filtered()))
	s.RemoveSkillFilter("sql")
	assert.Equal(t, []int64{1, 2}, ids(s.Filtered()))
	s.ClearFilters()
	assert.Len(t, s.Filtered(), 4)

	got := s.FilterEmployees(filter.Criteria{Query: "chen"})
	assert.Equal(t, []int64{3}, ids(got))
	assert.Len(t, s.Filtered(), 4)
	assert.Len(t, s.Directory(), 4)
}

func TestSaveRemovesBeforeCreating(t *testing.T) {
	gw := newMemGateway()
	gw.maxTeam = 2
	gw.allocations = []domain.Allocation{{ID: 50, ProjectID: 7, EmployeeID: 1}, {ID: 51, ProjectID: 7, EmployeeID: 2}}

	// The server holds the team at two; the session was opened with room for
	// a third so the creation can be staged alongside the removal.
	s, rec := openSession(t, gw, project(3))
	require.NoError(t, s.StageCreate(employee(gw, 3)))
	require.True(t, s.StageRemoval(50))
	assert.Equal(t, 2, s.TeamCount())

	res, err := s.Save(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"delete", "create"}, gw.calls)
	assert.Equal(t, []int64{50}, res.Removed)
	require.Len(t, res.Created, 1)
	var employees []int64
	for _, a := range res.Allocations {
		employees = append(employees, a.EmployeeID)
	}
	sort.Slice(employees, func(i, j int) bool { return employees[i] < employees[j] })
	assert.Equal(t, []int64{2, 3}, employees)
	assert.True(t, s.Closed())
	msg, _ := rec.Last()
	assert.Equal(t, notify.LevelSuccess, msg.Level)
	assert.Equal(t, "Allocations saved (1 removed, 1 added)", msg.Text)
}

func TestSavePartialFailureKeepsAppliedPrefix(t *testing.T) {
	gw := newMemGateway()
	gw.allocations = []domain.Allocation{{ID: 50, ProjectID: 7, EmployeeID: 1}}
	gw.createErr[3] = &stafflinesdk.APIError{StatusCode: http.StatusConflict, Body: `{"error":{"message":"already allocated"}}`}
	s, rec := openSession(t, gw, project(5))
	require.NoError(t, s.StageCreate(employee(gw, 2)))
	require.NoError(t, s.StageCreate(employee(gw, 3)))
	require.NoError(t, s.StageCreate(employee(gw, 4)))
	require.True(t, s.StageRemoval(50))

	res, err := s.Save(context.Background())
	var saveErr *editor.SaveError
	require.ErrorAs(t, err, &saveErr)
	assert.Equal(t, "create", saveErr.Op)
	assert.Equal(t, int64(3), saveErr.EmployeeID)
	assert.Equal(t, []int64{50}, saveErr.Removed)
	assert.Len(t, saveErr.Created, 1)

	assert.Equal(t, []string{"delete", "create", "create"}, gw.calls)
	require.Len(t, res.Allocations, 1)
	assert.Equal(t, int64(2), res.Allocations[0].EmployeeID)
	assert.True(t, s.Closed())
	assert.Empty(t, s.Staged())

	msg, _ := rec.Last()
	assert.Equal(t, notify.LevelError, msg.Level)
	assert.Contains(t, msg.Text, "already allocated")
	assert.Contains(t, msg.Text, "1 removed, 1 added")
}

func TestSaveRemovalFailureSkipsCreations(t *testing.T) {
	gw := newMemGateway()
	gw.allocations = []domain.Allocation{{ID: 50, ProjectID: 7, EmployeeID: 1}}
	gw.deleteErr[50] = errors.New("timeout")
	s, _ := openSession(t, gw, project(5))
	require.NoError(t, s.StageCreate(employee(gw, 2)))
	require.True(t, s.StageRemoval(50))

	_, err := s.Save(context.Background())
	var saveErr *editor.SaveError
	require.ErrorAs(t, err, &saveErr)
	assert.Equal(t, "delete", saveErr.Op)
	assert.Equal(t, []string{"delete"}, gw.calls)
}

func TestSaveValidatesBeforeAnyRequest(t *testing.T) {
	gw := newMemGateway()
	s, _ := openSession(t, gw, project(5))
	require.NoError(t, s.StageCreate(employee(gw, 2)))
	require.True(t, s.SetStagedDeadline(2, ""))

	_, err := s.Save(context.Background())
	var verr editor.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Deadline", verr.Field)
	assert.Empty(t, gw.calls)
	assert.False(t, s.Closed())
}

func TestClosedSessionRejectsChanges(t *testing.T) {
	gw := newMemGateway()
	s, _ := openSession(t, gw, project(5))
	require.NoError(t, s.StageCreate(employee(gw, 2)))
	s.Close()
	assert.Empty(t, s.Staged())
	assert.ErrorIs(t, s.StageCreate(employee(gw, 3)), editor.ErrClosed)
	_, err := s.Save(context.Background())
	assert.ErrorIs(t, err, editor.ErrClosed)
	assert.ErrorIs(t, s.Reload(context.Background()), editor.ErrClosed)
}
