package ranking_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staffline/internal/domain"
	"staffline/internal/ranking"
	stafflinesdk "staffline/sdk/go"
)

type fakeSource struct {
	employees      []domain.Employee
	employeesErr   error
	scores         []domain.PerformanceScore
	scoresErr      error
	scoreCalls     int
	suggestions    []int64
	suggestionsErr error
}

func (f *fakeSource) Employees(context.Context) ([]domain.Employee, error) {
	return f.employees, f.employeesErr
}

func (f *fakeSource) PerformanceScores(context.Context) ([]domain.PerformanceScore, error) {
	f.scoreCalls++
	return f.scores, f.scoresErr
}

func (f *fakeSource) SuggestedEmployees(context.Context, int64) ([]int64, error) {
	return f.suggestions, f.suggestionsErr
}

func employeeIDs(items []domain.Employee) []int64 {
	out := make([]int64, 0, len(items))
	for _, e := range items {
		out = append(out, e.ID)
	}
	return out
}

func TestDirectorySortedByScoreWithDefaultZero(t *testing.T) {
	src := &fakeSource{
		employees: []domain.Employee{{ID: 1}, {ID: 2}, {ID: 3}, {ID: 4}},
		scores: []domain.PerformanceScore{
			{EmployeeID: "2", Score: 71.5},
			{EmployeeID: "4", Score: 90},
			{EmployeeID: "99", Score: 100},
		},
	}
	dir, err := ranking.New(src, nil).LoadDirectoryWithScores(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int64{4, 2, 1, 3}, employeeIDs(dir))
	assert.Equal(t, 0.0, dir[2].Score)
	assert.Equal(t, 90.0, dir[0].Score)
}

func TestEmptyDirectorySkipsScoreFetch(t *testing.T) {
	src := &fakeSource{}
	dir, err := ranking.New(src, nil).LoadDirectoryWithScores(context.Background())
	require.NoError(t, err)
	assert.Empty(t, dir)
	assert.Equal(t, 0, src.scoreCalls)
}

func TestScoreFailureKeepsUnscoredDirectory(t *testing.T) {
	src := &fakeSource{
		employees: []domain.Employee{{ID: 1}, {ID: 2}},
		scoresErr: errors.New("connection reset"),
	}
	dir, err := ranking.New(src, nil).LoadDirectoryWithScores(context.Background())
	require.Error(t, err)
	assert.Equal(t, []int64{1, 2}, employeeIDs(dir))
}

func TestDirectoryNotFoundIsEmptyState(t *testing.T) {
	src := &fakeSource{employeesErr: &stafflinesdk.APIError{StatusCode: http.StatusNotFound}}
	dir, err := ranking.New(src, nil).LoadDirectoryWithScores(context.Background())
	require.NoError(t, err)
	assert.Empty(t, dir)
}

func TestSuggestionsKeepServerOrder(t *testing.T) {
	dir := []domain.Employee{{ID: 1, Score: 99}, {ID: 2, Score: 50}, {ID: 3, Score: 10}, {ID: 4, Score: 80}}
	src := &fakeSource{suggestions: []int64{3, 1, 2}}
	got, err := ranking.New(src, nil).LoadSuggestions(context.Background(), 7, dir)
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 1, 2}, employeeIDs(got))
}

func TestSuggestionsSkipUnknownAndDuplicateIDs(t *testing.T) {
	dir := []domain.Employee{{ID: 1}, {ID: 2}}
	got := ranking.OrderBySuggestion([]int64{2, 42, 2, 1}, dir)
	assert.Equal(t, []int64{2, 1}, employeeIDs(got))
}

func TestSuggestionFailureLeavesListEmpty(t *testing.T) {
	src := &fakeSource{suggestionsErr: &stafflinesdk.APIError{StatusCode: http.StatusInternalServerError}}
	got, err := ranking.New(src, nil).LoadSuggestions(context.Background(), 7, []domain.Employee{{ID: 1}})
	require.Error(t, err)
	assert.Empty(t, got)
}
