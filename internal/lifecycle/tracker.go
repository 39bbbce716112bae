// Package lifecycle lets an employee inspect and change the status of their
// own allocations and browse the status-change history of each one.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"staffline/internal/domain"
	"staffline/internal/logger"
	"staffline/internal/notify"
	stafflinesdk "staffline/sdk/go"
)

var (
	ErrUnknownAllocation = errors.New("allocation not loaded")
	ErrEmptyStatus       = errors.New("status is required")
)

// Gateway is the subset of the API the tracker needs.
type Gateway interface {
	AllocationStatuses(ctx context.Context) ([]string, error)
	MyAllocations(ctx context.Context) ([]domain.Allocation, error)
	UpdateAllocationStatus(ctx context.Context, id int64, status string) (domain.Allocation, error)
	StatusHistory(ctx context.Context, id int64) ([]domain.StatusHistoryEntry, error)
}

type Options struct {
	Notifier notify.Notifier
	Log      logrus.FieldLogger
	// RollbackOnFailure restores the previous status when the server rejects
	// a change.
	RollbackOnFailure bool
}

// Tracker owns the caller's allocations table: the loaded rows, the status
// vocabulary, expanded history rows and the history memo. The memo is only
// appended to; a new Tracker starts empty.
type Tracker struct {
	gw       Gateway
	notifier notify.Notifier
	log      logrus.FieldLogger
	rollback bool

	mu          sync.Mutex
	allocations []domain.Allocation
	statuses    domain.Vocabulary
	history     *cache.Cache
	expanded    map[int64]bool
	historyGen  map[int64]string
	statusGen   map[int64]string
}

func NewTracker(gw Gateway, opts Options) *Tracker {
	return &Tracker{
		gw:         gw,
		notifier:   notify.OrDiscard(opts.Notifier),
		log:        logger.OrDiscard(opts.Log),
		rollback:   opts.RollbackOnFailure,
		history:    cache.New(cache.NoExpiration, 0),
		expanded:   map[int64]bool{},
		historyGen: map[int64]string{},
		statusGen:  map[int64]string{},
	}
}

// Load fetches the status vocabulary and the caller's allocations. A failed
// fetch is reported and leaves that list empty.
func (t *Tracker) Load(ctx context.Context) error {
	var errs []error
	statuses, err := t.gw.AllocationStatuses(ctx)
	if err != nil && !stafflinesdk.IsNotFound(err) {
		t.log.WithError(err).WithField("op", "load_statuses").Error("fetch allocation statuses failed")
		t.notifier.Notify(notify.LevelError, notify.Summarize("Loading statuses", err))
		errs = append(errs, fmt.Errorf("load statuses: %w", err))
		statuses = nil
	}
	allocations, err := t.gw.MyAllocations(ctx)
	if err != nil && !stafflinesdk.IsNotFound(err) {
		t.log.WithError(err).WithField("op", "load_allocations").Error("fetch my allocations failed")
		t.notifier.Notify(notify.LevelError, notify.Summarize("Loading allocations", err))
		errs = append(errs, fmt.Errorf("load allocations: %w", err))
		allocations = nil
	}
	t.mu.Lock()
	t.statuses = domain.Vocabulary(statuses)
	t.allocations = allocations
	t.mu.Unlock()
	return errors.Join(errs...)
}

func (t *Tracker) Statuses() domain.Vocabulary {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(domain.Vocabulary, len(t.statuses))
	copy(out, t.statuses)
	return out
}

func (t *Tracker) Allocations() []domain.Allocation {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]domain.Allocation, len(t.allocations))
	copy(out, t.allocations)
	return out
}

// Allocation returns a loaded allocation by id.
func (t *Tracker) Allocation(id int64) (domain.Allocation, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	i := t.indexOf(id)
	if i < 0 {
		return domain.Allocation{}, false
	}
	return t.allocations[i], true
}

func (t *Tracker) indexOf(id int64) int {
	for i, a := range t.allocations {
		if a.ID == id {
			return i
		}
	}
	return -1
}

// ChangeStatus applies status locally right away and sends it to the server.
// Any status may follow any other; the server decides whether a transition
// is legal. On failure the previous value is restored when the tracker was
// built with RollbackOnFailure, otherwise the optimistic value stays until
// the next Load.
func (t *Tracker) ChangeStatus(ctx context.Context, id int64, status string) (domain.Allocation, error) {
	if status == "" {
		return domain.Allocation{}, ErrEmptyStatus
	}
	t.mu.Lock()
	i := t.indexOf(id)
	if i < 0 {
		t.mu.Unlock()
		return domain.Allocation{}, ErrUnknownAllocation
	}
	previous := t.allocations[i].Status
	t.allocations[i].Status = status
	gen := uuid.NewString()
	t.statusGen[id] = gen
	t.mu.Unlock()

	updated, err := t.gw.UpdateAllocationStatus(ctx, id, status)

	t.mu.Lock()
	defer t.mu.Unlock()
	current := t.statusGen[id] == gen
	i = t.indexOf(id)
	fields := logrus.Fields{"op": "change_status", "allocation_id": id, "status": status}
	if err != nil {
		t.log.WithError(err).WithFields(fields).Error("update allocation status failed")
		t.notifier.Notify(notify.LevelError, notify.Summarize("Updating status", err))
		if t.rollback && current && i >= 0 {
			t.allocations[i].Status = previous
		}
		if i >= 0 {
			return t.allocations[i], err
		}
		return domain.Allocation{}, err
	}
	if current && i >= 0 && updated.ID == id {
		// Keep the nested entities we already have if the server omits them.
		if updated.Project == nil {
			updated.Project = t.allocations[i].Project
		}
		if updated.Employee == nil {
			updated.Employee = t.allocations[i].Employee
		}
		t.allocations[i] = updated
	}
	t.log.WithFields(fields).Info("allocation status updated")
	t.notifier.Notify(notify.LevelSuccess, fmt.Sprintf("Status updated to %s", status))
	if i >= 0 {
		return t.allocations[i], nil
	}
	return updated, nil
}

// LoadHistory returns the status history of one allocation, fetching it the
// first time only. A 404 is remembered as an empty history. Other failures
// are reported, return an empty list and are retried on the next call.
func (t *Tracker) LoadHistory(ctx context.Context, id int64) ([]domain.StatusHistoryEntry, error) {
	key := strconv.FormatInt(id, 10)
	if v, ok := t.history.Get(key); ok {
		return v.([]domain.StatusHistoryEntry), nil
	}
	gen := uuid.NewString()
	t.mu.Lock()
	t.historyGen[id] = gen
	t.mu.Unlock()

	entries, err := t.gw.StatusHistory(ctx, id)
	if err != nil {
		if !stafflinesdk.IsNotFound(err) {
			t.log.WithError(err).WithFields(logrus.Fields{"op": "load_history", "allocation_id": id}).Error("fetch status history failed")
			t.notifier.Notify(notify.LevelError, notify.Summarize("Loading status history", err))
			return []domain.StatusHistoryEntry{}, err
		}
		entries = []domain.StatusHistoryEntry{}
	}
	if entries == nil {
		entries = []domain.StatusHistoryEntry{}
	}

	t.mu.Lock()
	superseded := t.historyGen[id] != gen
	t.mu.Unlock()
	if superseded {
		// A later fetch owns the memo entry.
		if v, ok := t.history.Get(key); ok {
			return v.([]domain.StatusHistoryEntry), nil
		}
		return entries, nil
	}
	t.history.Set(key, entries, cache.NoExpiration)
	return entries, nil
}

// HistoryLoaded reports whether the history of id is memoized.
func (t *Tracker) HistoryLoaded(id int64) bool {
	_, ok := t.history.Get(strconv.FormatInt(id, 10))
	return ok
}

// History returns a lazy sequence over the status history of id. Nothing is
// fetched until the sequence is ranged over, and only on a memo miss.
func (t *Tracker) History(ctx context.Context, id int64) iter.Seq[domain.StatusHistoryEntry] {
	return func(yield func(domain.StatusHistoryEntry) bool) {
		entries, _ := t.LoadHistory(ctx, id)
		for _, e := range entries {
			if !yield(e) {
				return
			}
		}
	}
}

// ToggleHistoryRow flips the expanded state of a row. Expanding loads the
// history when it is not memoized yet.
func (t *Tracker) ToggleHistoryRow(ctx context.Context, id int64) (bool, []domain.StatusHistoryEntry, error) {
	t.mu.Lock()
	expanded := !t.expanded[id]
	t.expanded[id] = expanded
	t.mu.Unlock()
	if !expanded {
		return false, nil, nil
	}
	entries, err := t.LoadHistory(ctx, id)
	return true, entries, err
}

func (t *Tracker) Expanded(id int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.expanded[id]
}
