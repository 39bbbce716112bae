// Package editor stages allocation changes for one project and commits them
// as a batch. A Session is built by Open and discarded by Close or Save;
// nothing it stages reaches the server before Save.
package editor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"staffline/internal/domain"
	"staffline/internal/filter"
	"staffline/internal/logger"
	"staffline/internal/notify"
	"staffline/internal/ranking"
	stafflinesdk "staffline/sdk/go"
)

// Gateway is the subset of the API the editor reads from and writes to.
type Gateway interface {
	ranking.Source
	ProjectsMetadata(ctx context.Context) (domain.ProjectsMetadata, error)
	ProjectAllocations(ctx context.Context, projectID int64) ([]domain.Allocation, error)
	Shifts(ctx context.Context) ([]domain.Ref, error)
	Departments(ctx context.Context) ([]domain.Ref, error)
	Designations(ctx context.Context) ([]domain.Ref, error)
	CreateAllocation(ctx context.Context, in domain.AllocationCreate) (domain.Allocation, error)
	DeleteAllocation(ctx context.Context, id int64) error
}

type Options struct {
	Notifier notify.Notifier
	Log      logrus.FieldLogger
	Now      func() time.Time
}

// Staged is a pending creation. It has no id until saved.
type Staged struct {
	Employee    domain.Employee
	ProjectID   int64
	Role        string
	Deadline    string
	AllocatedOn string
}

func (s Staged) Create() domain.AllocationCreate {
	return domain.AllocationCreate{
		ProjectID:   s.ProjectID,
		EmployeeID:  s.Employee.ID,
		Role:        s.Role,
		Deadline:    s.Deadline,
		AllocatedOn: s.AllocatedOn,
	}
}

// Refs holds the reference lists offered as filter selectors.
type Refs struct {
	Shifts       []domain.Ref
	Departments  []domain.Ref
	Designations []domain.Ref
}

// Action is what the per-employee button does next.
type Action string

const (
	ActionAdd          Action = "add"
	ActionRemoveStaged Action = "remove-staged"
	ActionAllocated    Action = "allocated"
)

var validate = validator.New()

type Session struct {
	gw       Gateway
	ranker   ranking.Ranker
	notifier notify.Notifier
	log      logrus.FieldLogger
	now      func() time.Time

	mu          sync.Mutex
	project     domain.Project
	metadata    domain.ProjectsMetadata
	refs        Refs
	directory   []domain.Employee
	suggested   []domain.Employee
	allocations []domain.Allocation
	staged      []Staged
	removals    []int64
	criteria    filter.Criteria
	skills      filter.SkillSet
	filtered    []domain.Employee
	loadGen     string
	loadErr     error
	saving      bool
	closed      bool
}

// Open validates project and loads everything the editor shows. Load
// failures are logged and reported but do not prevent opening; they are
// available from LoadErr.
func Open(ctx context.Context, gw Gateway, project domain.Project, opts Options) (*Session, error) {
	if err := checkProject(project); err != nil {
		return nil, err
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	log := logger.OrDiscard(opts.Log).WithField("project_id", project.ID)
	s := &Session{
		gw:       gw,
		ranker:   ranking.New(gw, log),
		notifier: notify.OrDiscard(opts.Notifier),
		log:      log,
		now:      now,
		project:  project,
	}
	s.Reload(ctx)
	return s, nil
}

func checkProject(p domain.Project) error {
	switch {
	case p.ID <= 0:
		return ValidationError{Field: "project.id", Reason: "must be set"}
	case p.MaxTeamSize <= 0:
		return ValidationError{Field: "project.max_team_size", Reason: "must be a positive integer"}
	case p.RequiredSkills == nil:
		return ValidationError{Field: "project.required_skills", Reason: "must be defined"}
	}
	return nil
}

// Reload refetches metadata, reference lists, the scored directory, the
// suggestions and the persisted allocations. Staged changes are reset. When
// reloads overlap, only the latest one is applied.
func (s *Session) Reload(ctx context.Context) error {
	gen := uuid.NewString()
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.loadGen = gen
	projectID := s.project.ID
	s.mu.Unlock()

	var errs []error
	record := func(what string, err error) {
		if err == nil || stafflinesdk.IsNotFound(err) {
			return
		}
		errs = append(errs, fmt.Errorf("%s: %w", what, err))
		s.notifier.Notify(notify.LevelError, notify.Summarize("Loading "+what, err))
	}

	metadata, err := s.gw.ProjectsMetadata(ctx)
	if err != nil {
		if !stafflinesdk.IsNotFound(err) {
			s.log.WithError(err).WithField("op", "load_metadata").Error("fetch projects metadata failed")
		}
		metadata = domain.ProjectsMetadata{}
	}
	record("project metadata", err)

	refs := Refs{}
	refs.Shifts = s.loadRefs(ctx, "shifts", s.gw.Shifts)
	refs.Departments = s.loadRefs(ctx, "departments", s.gw.Departments)
	refs.Designations = s.loadRefs(ctx, "designations", s.gw.Designations)

	directory, err := s.ranker.LoadDirectoryWithScores(ctx)
	record("employees", err)
	suggested, err := s.ranker.LoadSuggestions(ctx, projectID, directory)
	record("suggested employees", err)

	allocations, err := s.gw.ProjectAllocations(ctx, projectID)
	if err != nil {
		if !stafflinesdk.IsNotFound(err) {
			s.log.WithError(err).WithField("op", "load_allocations").Error("fetch project allocations failed")
		}
		allocations = nil
	}
	record("allocations", err)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadGen != gen || s.closed {
		s.log.WithField("op", "reload").Debug("discarding superseded load")
		return nil
	}
	s.metadata = metadata
	s.refs = refs
	s.directory = directory
	s.suggested = suggested
	s.allocations = allocations
	s.staged = nil
	s.removals = nil
	s.loadErr = errors.Join(errs...)
	s.refilterLocked()
	return s.loadErr
}

func (s *Session) loadRefs(ctx context.Context, kind string, fetch func(context.Context) ([]domain.Ref, error)) []domain.Ref {
	items, err := fetch(ctx)
	if err != nil {
		if !stafflinesdk.IsNotFound(err) {
			s.log.WithError(err).WithField("op", "load_"+kind).Warn("fetch reference list failed")
		}
		return nil
	}
	return items
}

// LoadErr returns the failures of the most recent applied load.
func (s *Session) LoadErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadErr
}

func (s *Session) today() string {
	return s.now().Format(domain.DateLayout)
}

// Close discards all staged changes. The session cannot be used afterwards.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.staged = nil
	s.removals = nil
}

func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
