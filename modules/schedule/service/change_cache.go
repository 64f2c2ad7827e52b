package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"cfp-scheduler/core/cache"
	"cfp-scheduler/core/constants"
	"cfp-scheduler/core/errors"
	"cfp-scheduler/core/logger"
	"cfp-scheduler/modules/schedule/entity"
)

// changesPayload is the cached form of Changes: entities are reduced to ids,
// submissions to their code and timestamps to ISO-8601 strings.
type changesPayload struct {
	Count         int                `json:"count"`
	Action        ChangeAction       `json:"action"`
	NewTalks      []int64            `json:"new_talks"`
	CanceledTalks []int64            `json:"canceled_talks"`
	MovedTalks    []movedTalkPayload `json:"moved_talks"`
}

type movedTalkPayload struct {
	Submission string `json:"submission"`
	OldRoom    int64  `json:"old_room"`
	NewRoom    int64  `json:"new_room"`
	OldStart   string `json:"old_start"`
	NewStart   string `json:"new_start"`
	NewSlot    int64  `json:"new_slot"`
}

func scheduleChangesKey(scheduleID int64) string {
	return fmt.Sprintf(constants.CacheKeyScheduleChanges, scheduleID)
}

func unreleasedChangesKey(eventID int64) string {
	return fmt.Sprintf(constants.CacheKeyEventUnreleasedChanges, eventID)
}

func serializeChanges(changes *Changes) changesPayload {
	payload := changesPayload{
		Count:         changes.Count,
		Action:        changes.Action,
		NewTalks:      make([]int64, 0, len(changes.NewTalks)),
		CanceledTalks: make([]int64, 0, len(changes.CanceledTalks)),
		MovedTalks:    make([]movedTalkPayload, 0, len(changes.MovedTalks)),
	}
	for _, talk := range changes.NewTalks {
		payload.NewTalks = append(payload.NewTalks, talk.Slot.ID)
	}
	for _, talk := range changes.CanceledTalks {
		payload.CanceledTalks = append(payload.CanceledTalks, talk.Slot.ID)
	}
	for _, moved := range changes.MovedTalks {
		payload.MovedTalks = append(payload.MovedTalks, movedTalkPayload{
			Submission: moved.Submission.Code,
			OldRoom:    moved.OldRoom.ID,
			NewRoom:    moved.NewRoom.ID,
			OldStart:   moved.OldStart.Format(time.RFC3339Nano),
			NewStart:   moved.NewStart.Format(time.RFC3339Nano),
			NewSlot:    moved.NewSlot.ID,
		})
	}
	return payload
}

// parseChangesPayload fails on anything that is not a well-formed payload
func parseChangesPayload(raw string) (*changesPayload, error) {
	var payload changesPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, err
	}
	if payload.Action != ChangeActionCreate && payload.Action != ChangeActionUpdate {
		return nil, fmt.Errorf("unknown change action %q", payload.Action)
	}
	return &payload, nil
}

// deserializeChanges resolves payload ids inside eventID. References to rows that
// no longer exist are dropped; only storage failures are returned.
func (s *ScheduleService) deserializeChanges(ctx context.Context, payload *changesPayload, eventID int64) (*Changes, error) {
	changes := newChanges(payload.Action)
	changes.Count = payload.Count

	slotIDs := make([]int64, 0, len(payload.NewTalks)+len(payload.CanceledTalks)+len(payload.MovedTalks))
	slotIDs = append(slotIDs, payload.NewTalks...)
	slotIDs = append(slotIDs, payload.CanceledTalks...)
	for _, moved := range payload.MovedTalks {
		slotIDs = append(slotIDs, moved.NewSlot)
	}
	if len(slotIDs) == 0 {
		return changes, nil
	}

	slotList, err := s.repo.GetSlotsByIDs(ctx, eventID, slotIDs)
	if err != nil {
		return nil, err
	}
	submissionList, err := s.repo.GetSubmissionsByEventID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	roomList, err := s.repo.GetRoomsByEventID(ctx, eventID)
	if err != nil {
		return nil, err
	}

	slots := make(map[int64]entity.TalkSlot, len(slotList))
	for _, slot := range slotList {
		slots[slot.ID] = slot
	}
	submissions := indexSubmissions(submissionList)
	byCode := make(map[string]entity.Submission, len(submissionList))
	for _, sub := range submissionList {
		byCode[sub.Code] = sub
	}
	rooms := indexRooms(roomList)

	resolveTalk := func(slotID int64) (TalkChange, bool) {
		slot, ok := slots[slotID]
		if !ok || slot.SubmissionID == nil {
			return TalkChange{}, false
		}
		sub, ok := submissions[*slot.SubmissionID]
		if !ok {
			return TalkChange{}, false
		}
		change := TalkChange{Slot: slot, Submission: sub}
		if slot.RoomID != nil {
			if room, ok := rooms[*slot.RoomID]; ok {
				change.Room = &room
			}
		}
		return change, true
	}

	for _, id := range payload.NewTalks {
		if talk, ok := resolveTalk(id); ok {
			changes.NewTalks = append(changes.NewTalks, talk)
		}
	}
	for _, id := range payload.CanceledTalks {
		if talk, ok := resolveTalk(id); ok {
			changes.CanceledTalks = append(changes.CanceledTalks, talk)
		}
	}
	for _, moved := range payload.MovedTalks {
		sub, okSub := byCode[moved.Submission]
		oldRoom, okOld := rooms[moved.OldRoom]
		newRoom, okNew := rooms[moved.NewRoom]
		slot, okSlot := slots[moved.NewSlot]
		oldStart, errOld := time.Parse(time.RFC3339Nano, moved.OldStart)
		newStart, errNew := time.Parse(time.RFC3339Nano, moved.NewStart)
		if !okSub || !okOld || !okNew || !okSlot || errOld != nil || errNew != nil {
			continue
		}
		changes.MovedTalks = append(changes.MovedTalks, MovedTalk{
			Submission: sub,
			OldRoom:    oldRoom,
			NewRoom:    newRoom,
			OldStart:   oldStart,
			NewStart:   newStart,
			NewSlot:    slot,
		})
	}

	return changes, nil
}

// GetCachedChanges serves the diff from cache, recomputing on a miss or an unreadable payload.
// Recomputed results are stored without expiry until the next invalidation.
func (s *ScheduleService) GetCachedChanges(ctx context.Context, schedule *entity.Schedule) (*Changes, *errors.AppError) {
	key := scheduleChangesKey(schedule.ID)

	raw, err := s.cache.Get(ctx, key)
	switch {
	case err == nil:
		payload, parseErr := parseChangesPayload(raw)
		if parseErr == nil {
			changes, resolveErr := s.deserializeChanges(ctx, payload, schedule.EventID)
			if resolveErr != nil {
				return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to load cached changes", resolveErr)
			}
			return changes, nil
		}
		logger.Warn("ScheduleService:GetCachedChanges:CorruptPayload", "key", key, "error", parseErr)
	case errors.Is(err, cache.ErrCacheMiss):
	default:
		logger.Warn("ScheduleService:GetCachedChanges:CacheGet", "key", key, "error", err)
	}

	changes, appErr := s.CalculateChanges(ctx, schedule)
	if appErr != nil {
		return nil, appErr
	}

	body, err := json.Marshal(serializeChanges(changes))
	if err != nil {
		logger.Error("ScheduleService:GetCachedChanges:Marshal:Error:", err)
		return changes, nil
	}
	if err := s.cache.Set(ctx, key, string(body)); err != nil {
		logger.Warn("ScheduleService:GetCachedChanges:CacheSet", "key", key, "error", err)
	}

	return changes, nil
}

// InvalidateChanges drops the cached diff; the next read recomputes it
func (s *ScheduleService) InvalidateChanges(ctx context.Context, schedule *entity.Schedule) {
	if err := s.cache.Del(ctx, scheduleChangesKey(schedule.ID)); err != nil {
		logger.Warn("ScheduleService:InvalidateChanges", "schedule_id", schedule.ID, "error", err)
	}
}

func (s *ScheduleService) invalidateUnreleasedChanges(ctx context.Context, eventID int64) {
	if err := s.cache.Del(ctx, unreleasedChangesKey(eventID)); err != nil {
		logger.Warn("ScheduleService:InvalidateUnreleasedChanges", "event_id", eventID, "error", err)
	}
}

// HasUnreleasedChanges reports whether the WIP differs from the latest release
func (s *ScheduleService) HasUnreleasedChanges(ctx context.Context, eventID int64) (bool, *errors.AppError) {
	raw, err := s.cache.Get(ctx, unreleasedChangesKey(eventID))
	if err == nil {
		if value, parseErr := strconv.ParseBool(raw); parseErr == nil {
			return value, nil
		}
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		logger.Warn("ScheduleService:HasUnreleasedChanges:CacheGet", "event_id", eventID, "error", err)
	}
	return s.UpdateUnreleasedChanges(ctx, eventID, nil)
}

// UpdateUnreleasedChanges stores value, or recomputes the flag from the WIP when value is nil
func (s *ScheduleService) UpdateUnreleasedChanges(ctx context.Context, eventID int64, value *bool) (bool, *errors.AppError) {
	var result bool
	if value != nil {
		result = *value
	} else {
		computed, appErr := s.computeUnreleasedChanges(ctx, eventID)
		if appErr != nil {
			return false, appErr
		}
		result = computed
	}

	if err := s.cache.Set(ctx, unreleasedChangesKey(eventID), strconv.FormatBool(result)); err != nil {
		logger.Warn("ScheduleService:UpdateUnreleasedChanges:CacheSet", "event_id", eventID, "error", err)
	}
	return result, nil
}

func (s *ScheduleService) computeUnreleasedChanges(ctx context.Context, eventID int64) (bool, *errors.AppError) {
	wip, err := s.repo.GetWIPSchedule(ctx, eventID)
	if err != nil {
		return false, errors.NewAppError(errors.ErrInternalServer, "Failed to get WIP schedule", err)
	}
	if wip == nil {
		return false, nil
	}

	changes, appErr := s.GetCachedChanges(ctx, wip)
	if appErr != nil {
		return false, appErr
	}

	switch changes.Action {
	case ChangeActionCreate:
		slots, err := s.repo.GetSlotsByScheduleID(ctx, wip.ID)
		if err != nil {
			return false, errors.NewAppError(errors.ErrInternalServer, "Failed to get slots", err)
		}
		for i := range slots {
			if slots[i].IsPlaced() {
				return true, nil
			}
		}
		return false, nil
	default:
		return changes.Count > 0, nil
	}
}
