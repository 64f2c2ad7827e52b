package service

import (
	"context"
	"fmt"
	"time"

	"cfp-scheduler/core/errors"
	"cfp-scheduler/modules/schedule/entity"
)

type WarningType string

const (
	WarningRoomOverlap    WarningType = "room_overlap"
	WarningRoom           WarningType = "room"
	WarningSpeakerOverlap WarningType = "speaker_overlap"
	WarningSpeaker        WarningType = "speaker"
)

type Warning struct {
	Type             WarningType `json:"type"`
	Message          string      `json:"message"`
	Speaker          string      `json:"speaker,omitempty"`
	ConflictingSlots []int64     `json:"conflicting_slots,omitempty"`
}

// conflictIndex holds everything needed to check one schedule's slots
type conflictIndex struct {
	slots          []entity.TalkSlot
	submissions    map[int64]entity.Submission
	rooms          map[int64]entity.Room
	speakers       map[int64][]entity.Speaker // by submission
	speakerSubs    map[int64]map[int64]bool   // speaker -> submissions
	roomWindows    map[int64][]entity.Interval
	speakerWindows map[int64][]entity.Interval
}

func newConflictIndex(
	slots []entity.TalkSlot,
	submissions []entity.Submission,
	rooms []entity.Room,
	speakers []entity.SubmissionSpeaker,
	availabilities []entity.Availability,
) *conflictIndex {
	ix := &conflictIndex{
		slots:          slots,
		submissions:    indexSubmissions(submissions),
		rooms:          indexRooms(rooms),
		speakers:       indexSpeakers(speakers),
		speakerSubs:    make(map[int64]map[int64]bool),
		roomWindows:    make(map[int64][]entity.Interval),
		speakerWindows: make(map[int64][]entity.Interval),
	}

	for _, row := range speakers {
		if ix.speakerSubs[row.ID] == nil {
			ix.speakerSubs[row.ID] = make(map[int64]bool)
		}
		ix.speakerSubs[row.ID][row.SubmissionID] = true
	}

	for _, a := range availabilities {
		switch {
		case a.RoomID != nil:
			ix.roomWindows[*a.RoomID] = append(ix.roomWindows[*a.RoomID], a.Interval())
		case a.SpeakerID != nil:
			ix.speakerWindows[*a.SpeakerID] = append(ix.speakerWindows[*a.SpeakerID], a.Interval())
		}
	}
	return ix
}

func (s *ScheduleService) loadConflictIndex(ctx context.Context, schedule *entity.Schedule) (*conflictIndex, error) {
	slots, err := s.repo.GetSlotsByScheduleID(ctx, schedule.ID)
	if err != nil {
		return nil, err
	}
	submissions, err := s.repo.GetSubmissionsByEventID(ctx, schedule.EventID)
	if err != nil {
		return nil, err
	}
	rooms, err := s.repo.GetRoomsByEventID(ctx, schedule.EventID)
	if err != nil {
		return nil, err
	}
	speakers, err := s.repo.GetSpeakersByEventID(ctx, schedule.EventID)
	if err != nil {
		return nil, err
	}
	availabilities, err := s.repo.GetAvailabilitiesByEventID(ctx, schedule.EventID)
	if err != nil {
		return nil, err
	}
	return newConflictIndex(slots, submissions, rooms, speakers, availabilities), nil
}

// interval uses the submission duration when the slot has no end
func (ix *conflictIndex) interval(slot *entity.TalkSlot) (entity.Interval, bool) {
	var fallback time.Duration
	if slot.SubmissionID != nil {
		if sub, ok := ix.submissions[*slot.SubmissionID]; ok {
			fallback = sub.Duration()
		}
	}
	return slot.Interval(fallback)
}

func (ix *conflictIndex) roomName(id int64) string {
	if room, ok := ix.rooms[id]; ok {
		return room.Name
	}
	return fmt.Sprintf("#%d", id)
}

// warningsFor runs every check independently. roomWindows overrides the room's
// declared availability when non-nil.
func (ix *conflictIndex) warningsFor(slot *entity.TalkSlot, withSpeakers bool, roomWindows []entity.Interval) []Warning {
	warnings := []Warning{}
	if !slot.IsPlaced() {
		return warnings
	}
	iv, ok := ix.interval(slot)
	if !ok {
		return warnings
	}
	roomID := *slot.RoomID

	var roomConflicts []int64
	for i := range ix.slots {
		other := &ix.slots[i]
		if other.ID == slot.ID || other.RoomID == nil || *other.RoomID != roomID {
			continue
		}
		if otherIv, ok := ix.interval(other); ok && iv.Overlaps(otherIv) {
			roomConflicts = append(roomConflicts, other.ID)
		}
	}
	if len(roomConflicts) > 0 {
		warnings = append(warnings, Warning{
			Type:             WarningRoomOverlap,
			Message:          fmt.Sprintf("Another session in room %s overlaps with this one.", ix.roomName(roomID)),
			ConflictingSlots: roomConflicts,
		})
	}

	if roomWindows == nil {
		roomWindows = ix.roomWindows[roomID]
	}
	if len(roomWindows) > 0 && !iv.CoveredBy(roomWindows) {
		warnings = append(warnings, Warning{
			Type:    WarningRoom,
			Message: fmt.Sprintf("Room %s is not available at the scheduled time.", ix.roomName(roomID)),
		})
	}

	if !withSpeakers {
		return warnings
	}

	for _, speaker := range ix.speakers[*slot.SubmissionID] {
		var speakerConflicts []int64
		for i := range ix.slots {
			other := &ix.slots[i]
			if other.ID == slot.ID || other.SubmissionID == nil || !ix.speakerSubs[speaker.ID][*other.SubmissionID] {
				continue
			}
			if other.RoomID == nil {
				continue
			}
			if otherIv, ok := ix.interval(other); ok && iv.Overlaps(otherIv) {
				speakerConflicts = append(speakerConflicts, other.ID)
			}
		}
		if len(speakerConflicts) > 0 {
			warnings = append(warnings, Warning{
				Type:             WarningSpeakerOverlap,
				Message:          fmt.Sprintf("%s is scheduled for another session at the same time.", speaker.Name),
				Speaker:          speaker.Code,
				ConflictingSlots: speakerConflicts,
			})
		}

		if windows := ix.speakerWindows[speaker.ID]; len(windows) > 0 && !iv.CoveredBy(windows) {
			warnings = append(warnings, Warning{
				Type:    WarningSpeaker,
				Message: fmt.Sprintf("%s is not available at the scheduled time.", speaker.Name),
				Speaker: speaker.Code,
			})
		}
	}

	return warnings
}

// WarningsFor checks a single slot. Unplaced slots never produce warnings.
// roomAvailabilities, when given, replaces the stored availability of the slot's room.
func (s *ScheduleService) WarningsFor(ctx context.Context, schedule *entity.Schedule, slot *entity.TalkSlot, withSpeakers bool, roomAvailabilities []entity.Availability) ([]Warning, *errors.AppError) {
	if !slot.IsPlaced() {
		return []Warning{}, nil
	}

	ix, err := s.loadConflictIndex(ctx, schedule)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to load schedule", err)
	}

	var roomWindows []entity.Interval
	if roomAvailabilities != nil {
		roomWindows = []entity.Interval{}
		for _, a := range roomAvailabilities {
			if a.RoomID == nil || *a.RoomID == *slot.RoomID {
				roomWindows = append(roomWindows, a.Interval())
			}
		}
	}

	return ix.warningsFor(slot, withSpeakers, roomWindows), nil
}

// AllWarnings returns warnings keyed by slot id. Slots without warnings have no entry.
func (s *ScheduleService) AllWarnings(ctx context.Context, schedule *entity.Schedule, withSpeakers bool, updatedSince *time.Time) (map[int64][]Warning, *errors.AppError) {
	ix, err := s.loadConflictIndex(ctx, schedule)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to load schedule", err)
	}

	result := make(map[int64][]Warning)
	for i := range ix.slots {
		slot := &ix.slots[i]
		if !slot.IsPlaced() {
			continue
		}
		if updatedSince != nil && slot.UpdatedAt.Before(*updatedSince) {
			continue
		}
		if warnings := ix.warningsFor(slot, withSpeakers, nil); len(warnings) > 0 {
			result[slot.ID] = warnings
		}
	}
	return result, nil
}
