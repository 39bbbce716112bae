// Package ranking combines the employee directory with externally computed
// performance scores and consumes the backend's suggestion list. No ranking
// logic lives here; scores and suggestion order are opaque server outputs.
package ranking

import (
	"context"
	"sort"
	"strconv"

	"github.com/sirupsen/logrus"

	"staffline/internal/domain"
	"staffline/internal/logger"
	stafflinesdk "staffline/sdk/go"
)

// Source is the subset of the API gateway the ranking component reads from.
type Source interface {
	Employees(ctx context.Context) ([]domain.Employee, error)
	PerformanceScores(ctx context.Context) ([]domain.PerformanceScore, error)
	SuggestedEmployees(ctx context.Context, projectID int64) ([]int64, error)
}

type Ranker struct {
	Source Source
	Log    logrus.FieldLogger
}

func New(src Source, log logrus.FieldLogger) Ranker {
	return Ranker{Source: src, Log: logger.OrDiscard(log)}
}

func (r Ranker) log() logrus.FieldLogger {
	return logger.OrDiscard(r.Log)
}

// LoadDirectoryWithScores fetches the directory, left-joins performance scores
// onto it and orders it by descending score. Employees with equal scores keep
// their fetch order. A 404 on either fetch is an empty state. On any other
// failure the error is logged and returned together with whatever could be
// built: an empty directory if the employee fetch failed, the unscored
// directory if the score fetch failed.
func (r Ranker) LoadDirectoryWithScores(ctx context.Context) ([]domain.Employee, error) {
	employees, err := r.Source.Employees(ctx)
	if err != nil {
		if stafflinesdk.IsNotFound(err) {
			return []domain.Employee{}, nil
		}
		r.log().WithError(err).WithField("op", "load_directory").Error("fetch employees failed")
		return []domain.Employee{}, err
	}
	if len(employees) == 0 {
		return []domain.Employee{}, nil
	}
	scores, err := r.Source.PerformanceScores(ctx)
	if err != nil && !stafflinesdk.IsNotFound(err) {
		r.log().WithError(err).WithField("op", "load_scores").Error("fetch performance scores failed")
		return MergeScores(employees, nil), err
	}
	return MergeScores(employees, scores), nil
}

// MergeScores returns a copy of employees with Score set from scores (0 when
// absent), sorted by descending score with a stable tie-break.
func MergeScores(employees []domain.Employee, scores []domain.PerformanceScore) []domain.Employee {
	byID := make(map[string]float64, len(scores))
	for _, s := range scores {
		byID[s.EmployeeID] = s.Score
	}
	out := make([]domain.Employee, len(employees))
	for i, e := range employees {
		e.Score = byID[strconv.FormatInt(e.ID, 10)]
		out[i] = e
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// LoadSuggestions fetches the server-ranked suggestion ids for a project and
// resolves them against dir, keeping the server's order.
func (r Ranker) LoadSuggestions(ctx context.Context, projectID int64, dir []domain.Employee) ([]domain.Employee, error) {
	ids, err := r.Source.SuggestedEmployees(ctx, projectID)
	if err != nil {
		if stafflinesdk.IsNotFound(err) {
			return []domain.Employee{}, nil
		}
		r.log().WithError(err).WithFields(logrus.Fields{"op": "load_suggestions", "project_id": projectID}).Error("fetch suggestions failed")
		return []domain.Employee{}, err
	}
	return OrderBySuggestion(ids, dir), nil
}

// OrderBySuggestion keeps the employees of dir whose id is in ids, ordered as
// ids lists them. Unknown and repeated ids are skipped.
func OrderBySuggestion(ids []int64, dir []domain.Employee) []domain.Employee {
	byID := make(map[int64]domain.Employee, len(dir))
	for _, e := range dir {
		byID[e.ID] = e
	}
	seen := make(map[int64]bool, len(ids))
	out := make([]domain.Employee, 0, len(ids))
	for _, id := range ids {
		e, ok := byID[id]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, e)
	}
	return out
}
