package service

import (
	"context"
	"sort"
	"time"

	"cfp-scheduler/core/errors"
	"cfp-scheduler/modules/schedule/entity"
)

type ChangeAction string

const (
	ChangeActionCreate ChangeAction = "create"
	ChangeActionUpdate ChangeAction = "update"
)

// TalkChange is a new or canceled occurrence of a submission
type TalkChange struct {
	Slot       entity.TalkSlot
	Submission entity.Submission
	Room       *entity.Room
}

// MovedTalk is an occurrence whose room or start changed
type MovedTalk struct {
	Submission entity.Submission
	OldRoom    entity.Room
	NewRoom    entity.Room
	OldStart   time.Time
	NewStart   time.Time
	NewSlot    entity.TalkSlot
}

// Changes is the difference between a schedule and the release before it
type Changes struct {
	Action        ChangeAction
	Count         int
	NewTalks      []TalkChange
	CanceledTalks []TalkChange
	MovedTalks    []MovedTalk
}

func newChanges(action ChangeAction) *Changes {
	return &Changes{
		Action:        action,
		NewTalks:      []TalkChange{},
		CanceledTalks: []TalkChange{},
		MovedTalks:    []MovedTalk{},
	}
}

// previousSchedule is the latest release published before schedule; for the WIP the latest release overall
func (s *ScheduleService) previousSchedule(ctx context.Context, schedule *entity.Schedule) (*entity.Schedule, error) {
	switch st := schedule.State().(type) {
	case entity.WorkInProgress:
		return s.repo.GetLatestRelease(ctx, schedule.EventID, nil, schedule.ID)
	case entity.Released:
		return s.repo.GetLatestRelease(ctx, schedule.EventID, &st.Published, schedule.ID)
	default:
		panic("unknown schedule state")
	}
}

// CalculateChanges diffs schedule against its predecessor without touching the cache
func (s *ScheduleService) CalculateChanges(ctx context.Context, schedule *entity.Schedule) (*Changes, *errors.AppError) {
	previous, err := s.previousSchedule(ctx, schedule)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to get previous schedule", err)
	}
	if previous == nil {
		return newChanges(ChangeActionCreate), nil
	}

	oldSlots, err := s.repo.GetSlotsByScheduleID(ctx, previous.ID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to get previous slots", err)
	}
	newSlots, err := s.repo.GetSlotsByScheduleID(ctx, schedule.ID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to get slots", err)
	}
	submissions, err := s.repo.GetSubmissionsByEventID(ctx, schedule.EventID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to get submissions", err)
	}
	rooms, err := s.repo.GetRoomsByEventID(ctx, schedule.EventID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to get rooms", err)
	}

	return diffSlots(oldSlots, newSlots, indexSubmissions(submissions), indexRooms(rooms)), nil
}

// groupBySubmission keeps scheduled slots only, each submission's slots ordered by start
func groupBySubmission(slots []entity.TalkSlot) map[int64][]entity.TalkSlot {
	grouped := make(map[int64][]entity.TalkSlot)
	for _, slot := range slots {
		if !slot.IsScheduled() {
			continue
		}
		grouped[*slot.SubmissionID] = append(grouped[*slot.SubmissionID], slot)
	}
	for _, list := range grouped {
		sort.SliceStable(list, func(i, j int) bool {
			if !list[i].Start.Equal(*list[j].Start) {
				return list[i].Start.Before(*list[j].Start)
			}
			return list[i].ID < list[j].ID
		})
	}
	return grouped
}

// diffSlots pairs each submission's old and new occurrences by position.
// A submission whose occurrences all move at once may be attributed to the wrong pair.
func diffSlots(oldSlots, newSlots []entity.TalkSlot, submissions map[int64]entity.Submission, rooms map[int64]entity.Room) *Changes {
	changes := newChanges(ChangeActionUpdate)

	oldBySub := groupBySubmission(oldSlots)
	newBySub := groupBySubmission(newSlots)

	ids := make([]int64, 0, len(oldBySub)+len(newBySub))
	for id := range oldBySub {
		ids = append(ids, id)
	}
	for id := range newBySub {
		if _, seen := oldBySub[id]; !seen {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	submissionFor := func(id int64) entity.Submission {
		if sub, ok := submissions[id]; ok {
			return sub
		}
		return entity.Submission{ID: id}
	}
	roomFor := func(id int64) entity.Room {
		if room, ok := rooms[id]; ok {
			return room
		}
		return entity.Room{ID: id}
	}
	talkChange := func(slot entity.TalkSlot) TalkChange {
		room := roomFor(*slot.RoomID)
		return TalkChange{Slot: slot, Submission: submissionFor(*slot.SubmissionID), Room: &room}
	}

	for _, id := range ids {
		oldList, newList := oldBySub[id], newBySub[id]
		paired := min(len(oldList), len(newList))

		for i := 0; i < paired; i++ {
			before, after := oldList[i], newList[i]
			if *before.RoomID == *after.RoomID && before.Start.Equal(*after.Start) {
				continue
			}
			changes.MovedTalks = append(changes.MovedTalks, MovedTalk{
				Submission: submissionFor(id),
				OldRoom:    roomFor(*before.RoomID),
				NewRoom:    roomFor(*after.RoomID),
				OldStart:   *before.Start,
				NewStart:   *after.Start,
				NewSlot:    after,
			})
		}
		for _, slot := range oldList[paired:] {
			changes.CanceledTalks = append(changes.CanceledTalks, talkChange(slot))
		}
		for _, slot := range newList[paired:] {
			changes.NewTalks = append(changes.NewTalks, talkChange(slot))
		}
	}

	changes.Count = len(changes.NewTalks) + len(changes.CanceledTalks) + len(changes.MovedTalks)
	return changes
}
