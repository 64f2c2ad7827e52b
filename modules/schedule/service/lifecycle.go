package service

import (
	"context"
	"strings"

	"cfp-scheduler/core/database"
	"cfp-scheduler/core/errors"
	"cfp-scheduler/core/logger"
	"cfp-scheduler/modules/schedule/entity"
	"cfp-scheduler/modules/schedule/repository"
)

type FreezeRequest struct {
	Name           string
	Comment        string
	NotifySpeakers bool
}

// FreezeResult carries the new release, the replacement WIP and whatever the
// post-release observers had to say. Rejections never undo the release.
type FreezeResult struct {
	Released    *entity.Schedule
	WIP         *entity.Schedule
	Rejections  []ObserverRejection
	QueuedMails int
}

func versionError(err error) *errors.AppError {
	return errors.NewAppError(errors.ErrPreconditionFailed, err.Error(), err)
}

// Freeze turns the WIP into an immutable release and replaces it with a fresh WIP
func (s *ScheduleService) Freeze(ctx context.Context, schedule *entity.Schedule, req FreezeRequest) (*FreezeResult, *errors.AppError) {
	switch schedule.State().(type) {
	case entity.WorkInProgress:
	case entity.Released:
		return nil, versionError(entity.ErrScheduleReleased)
	default:
		panic("unknown schedule state")
	}

	name := strings.TrimSpace(req.Name)
	if err := entity.ValidateVersionName(name); err != nil {
		return nil, versionError(err)
	}

	logger.Info("ScheduleService:Freeze:Start", "event_id", schedule.EventID, "schedule_id", schedule.ID, "version", name)

	var released, wip *entity.Schedule
	err := s.repo.WithTx(ctx, func(repo repository.ScheduleRepositoryInterface) error {
		slots, err := repo.GetSlotsByScheduleID(ctx, schedule.ID)
		if err != nil {
			return err
		}
		submissions, err := repo.GetSubmissionsByEventID(ctx, schedule.EventID)
		if err != nil {
			return err
		}
		bySubmission := indexSubmissions(submissions)

		released, err = repo.CreateSchedule(ctx, entity.NewReleasedSchedule(schedule.EventID, name, s.now(), req.Comment))
		if err != nil {
			return err
		}

		releasedSlots := make([]entity.TalkSlot, 0, len(slots))
		for _, slot := range slots {
			c := slot.CopyTo(released.ID)
			c.IsVisible = isVisibleOnRelease(&c, bySubmission)
			releasedSlots = append(releasedSlots, c)
		}
		if err := repo.CreateSlots(ctx, releasedSlots); err != nil {
			return err
		}
		if err := repo.DeleteSlotsByType(ctx, released.ID, entity.SlotTypeBlocker); err != nil {
			return err
		}

		// only one WIP may exist per event, so the old one goes first
		if err := repo.DeleteSchedule(ctx, schedule.ID); err != nil {
			return err
		}
		wip, err = repo.CreateSchedule(ctx, entity.NewWIPSchedule(schedule.EventID))
		if err != nil {
			return err
		}

		wipSlots := make([]entity.TalkSlot, 0, len(slots))
		for _, slot := range slots {
			wipSlots = append(wipSlots, slot.CopyTo(wip.ID))
		}
		return repo.CreateSlots(ctx, wipSlots)
	})
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, errors.NewAppError(errors.ErrAlreadyExists, entity.ErrVersionTaken.Error(), entity.ErrVersionTaken)
		}
		logger.Error("ScheduleService:Freeze:Error:", err)
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to release schedule", err)
	}

	s.InvalidateChanges(ctx, schedule)
	s.invalidateUnreleasedChanges(ctx, schedule.EventID)

	result := &FreezeResult{Released: released, WIP: wip}
	result.Rejections = s.notifyObservers(ctx, ReleaseEvent{Released: released, WIP: wip})

	if req.NotifySpeakers {
		result.QueuedMails = s.notifySpeakers(ctx, released)
	}

	logger.Info("ScheduleService:Freeze:Success", "event_id", schedule.EventID, "release_id", released.ID, "wip_id", wip.ID, "version", name)
	return result, nil
}

// isVisibleOnRelease: breaks are always public, talks only once accepted
func isVisibleOnRelease(slot *entity.TalkSlot, submissions map[int64]entity.Submission) bool {
	switch slot.SlotType {
	case entity.SlotTypeBreak:
		return true
	case entity.SlotTypeTalk:
		if slot.SubmissionID == nil {
			return false
		}
		sub, ok := submissions[*slot.SubmissionID]
		return ok && sub.State.IsAccepted()
	default:
		return false
	}
}

// Unfreeze restores a release as the WIP. Work on talks the release does not know
// about survives, along with the organizer's blockers.
func (s *ScheduleService) Unfreeze(ctx context.Context, schedule *entity.Schedule) (*entity.Schedule, *errors.AppError) {
	switch schedule.State().(type) {
	case entity.Released:
	case entity.WorkInProgress:
		return nil, versionError(entity.ErrScheduleNotReleased)
	default:
		panic("unknown schedule state")
	}

	logger.Info("ScheduleService:Unfreeze:Start", "event_id", schedule.EventID, "schedule_id", schedule.ID)

	var oldWIP, wip *entity.Schedule
	err := s.repo.WithTx(ctx, func(repo repository.ScheduleRepositoryInterface) error {
		releaseSlots, err := repo.GetSlotsByScheduleID(ctx, schedule.ID)
		if err != nil {
			return err
		}

		inRelease := make(map[int64]bool)
		for _, slot := range releaseSlots {
			if slot.SubmissionID != nil {
				inRelease[*slot.SubmissionID] = true
			}
		}

		var kept []entity.TalkSlot
		oldWIP, err = repo.GetWIPSchedule(ctx, schedule.EventID)
		if err != nil {
			return err
		}
		if oldWIP != nil {
			wipSlots, err := repo.GetSlotsByScheduleID(ctx, oldWIP.ID)
			if err != nil {
				return err
			}
			for _, slot := range wipSlots {
				switch {
				case slot.SubmissionID != nil && !inRelease[*slot.SubmissionID]:
					kept = append(kept, slot)
				case slot.SubmissionID == nil && slot.SlotType == entity.SlotTypeBlocker:
					kept = append(kept, slot)
				case slot.SlotType == entity.SlotTypeBreak && !hasBreak(releaseSlots, &slot):
					kept = append(kept, slot)
				}
			}
			if err := repo.DeleteSchedule(ctx, oldWIP.ID); err != nil {
				return err
			}
		}

		wip, err = repo.CreateSchedule(ctx, entity.NewWIPSchedule(schedule.EventID))
		if err != nil {
			return err
		}

		restored := make([]entity.TalkSlot, 0, len(releaseSlots)+len(kept))
		for _, slot := range releaseSlots {
			restored = append(restored, slot.CopyTo(wip.ID))
		}
		for _, slot := range kept {
			restored = append(restored, slot.CopyTo(wip.ID))
		}
		return repo.CreateSlots(ctx, restored)
	})
	if err != nil {
		logger.Error("ScheduleService:Unfreeze:Error:", err)
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to restore schedule", err)
	}

	if oldWIP != nil {
		s.InvalidateChanges(ctx, oldWIP)
	}
	s.invalidateUnreleasedChanges(ctx, schedule.EventID)

	logger.Info("ScheduleService:Unfreeze:Success", "event_id", schedule.EventID, "version", schedule.Name(), "wip_id", wip.ID)
	return wip, nil
}

func hasBreak(slots []entity.TalkSlot, slot *entity.TalkSlot) bool {
	for i := range slots {
		if slots[i].SameBreak(slot) {
			return true
		}
	}
	return false
}
