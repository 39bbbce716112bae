package editor

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"staffline/internal/domain"
	"staffline/internal/notify"
)

// SaveResult describes what a save applied and the allocations the server
// reported afterwards.
type SaveResult struct {
	Removed     []int64
	Created     []domain.Allocation
	Allocations []domain.Allocation
}

// Save commits the staged changes: every removal first, then every
// creation, one request at a time in staging order. The first failing
// request stops the batch; earlier requests stay applied. Whatever the
// outcome, once requests were issued the allocation list is refreshed from
// the server and the session is closed.
//
// Local validation failures (capacity, missing fields) return before any
// request and leave the session open.
func (s *Session) Save(ctx context.Context) (SaveResult, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return SaveResult{}, ErrClosed
	}
	if s.saving {
		s.mu.Unlock()
		return SaveResult{}, ErrSaveInProgress
	}
	if err := s.checkLocked(); err != nil {
		s.mu.Unlock()
		s.log.WithError(err).WithField("op", "save").Warn("save rejected")
		s.notifier.Notify(notify.LevelWarning, notify.Summarize("Saving allocations", err))
		return SaveResult{}, err
	}
	s.saving = true
	removals := append([]int64(nil), s.removals...)
	creates := make([]domain.AllocationCreate, 0, len(s.staged))
	for _, st := range s.staged {
		creates = append(creates, st.Create())
	}
	projectID := s.project.ID
	s.mu.Unlock()

	log := s.log.WithField("op", "save")
	var res SaveResult
	batchErr := s.applyRemovals(ctx, log, removals, &res)
	if batchErr == nil {
		batchErr = s.applyCreates(ctx, log, creates, &res)
	}

	allocations, err := s.gw.ProjectAllocations(ctx, projectID)
	if err != nil {
		log.WithError(err).Error("refresh allocations after save failed")
	} else {
		res.Allocations = allocations
	}

	s.mu.Lock()
	s.saving = false
	s.closed = true
	s.staged = nil
	s.removals = nil
	if err == nil {
		s.allocations = allocations
	}
	s.mu.Unlock()

	if batchErr != nil {
		s.notifier.Notify(notify.LevelError, fmt.Sprintf("%s (%d removed, %d added before the failure)",
			notify.Summarize("Saving allocations", batchErr), len(res.Removed), len(res.Created)))
		return res, batchErr
	}
	log.WithFields(logrus.Fields{"removed": len(res.Removed), "created": len(res.Created)}).Info("allocations saved")
	s.notifier.Notify(notify.LevelSuccess, fmt.Sprintf("Allocations saved (%d removed, %d added)", len(res.Removed), len(res.Created)))
	return res, nil
}

func (s *Session) applyRemovals(ctx context.Context, log logrus.FieldLogger, ids []int64, res *SaveResult) error {
	for _, id := range ids {
		if err := s.gw.DeleteAllocation(ctx, id); err != nil {
			log.WithError(err).WithField("allocation_id", id).Error("delete allocation failed")
			return &SaveError{Op: "delete", AllocationID: id, Removed: res.Removed, Created: createdIDs(res.Created), Err: err}
		}
		res.Removed = append(res.Removed, id)
	}
	return nil
}

func (s *Session) applyCreates(ctx context.Context, log logrus.FieldLogger, creates []domain.AllocationCreate, res *SaveResult) error {
	for _, in := range creates {
		a, err := s.gw.CreateAllocation(ctx, in)
		if err != nil {
			log.WithError(err).WithField("employee_id", in.EmployeeID).Error("create allocation failed")
			return &SaveError{Op: "create", EmployeeID: in.EmployeeID, Removed: res.Removed, Created: createdIDs(res.Created), Err: err}
		}
		res.Created = append(res.Created, a)
	}
	return nil
}

func createdIDs(items []domain.Allocation) []int64 {
	out := make([]int64, 0, len(items))
	for _, a := range items {
		out = append(out, a.ID)
	}
	return out
}

// checkLocked validates staged creations and the resulting team size.
func (s *Session) checkLocked() error {
	if n := s.teamCountLocked(); n > s.project.MaxTeamSize {
		return CapacityError{Max: s.project.MaxTeamSize}
	}
	for _, st := range s.staged {
		if err := validate.Struct(st.Create()); err != nil {
			var fieldErrs validator.ValidationErrors
			if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
				fe := fieldErrs[0]
				return ValidationError{EmployeeID: st.Employee.ID, Field: fe.Field(), Reason: reasonFor(fe.Tag())}
			}
			return err
		}
	}
	return nil
}

func reasonFor(tag string) string {
	switch tag {
	case "required":
		return "is required"
	case "gt":
		return "must be positive"
	default:
		return "is invalid (" + tag + ")"
	}
}
