package entity

import (
	"time"

	"cfp-scheduler/core/entity"
)

type SlotType string

const (
	SlotTypeTalk    SlotType = "talk"
	SlotTypeBreak   SlotType = "break"
	SlotTypeBlocker SlotType = "blocker"
)

func (t SlotType) Valid() bool {
	switch t {
	case SlotTypeTalk, SlotTypeBreak, SlotTypeBlocker:
		return true
	}
	return false
}

// TalkSlot places a submission, break or blocker in one schedule
type TalkSlot struct {
	entity.BaseEntity
	ScheduleID   int64      `db:"schedule_id" json:"schedule_id"`
	SubmissionID *int64     `db:"submission_id" json:"submission_id,omitempty"`
	RoomID       *int64     `db:"room_id" json:"room_id,omitempty"`
	Start        *time.Time `db:"start_at" json:"start,omitempty"`
	End          *time.Time `db:"end_at" json:"end,omitempty"`
	IsVisible    bool       `db:"is_visible" json:"is_visible"`
	SlotType     SlotType   `db:"slot_type" json:"slot_type"`
	Description  string     `db:"description" json:"description"`
}

// IsPlaced reports whether the slot takes part in conflict checks
func (t *TalkSlot) IsPlaced() bool {
	return t.RoomID != nil && t.Start != nil && t.SubmissionID != nil
}

// IsScheduled reports whether the slot takes part in schedule diffs
func (t *TalkSlot) IsScheduled() bool {
	return t.SubmissionID != nil && t.RoomID != nil && t.Start != nil && t.End != nil
}

// Interval falls back to start+duration when no end is stored
func (t *TalkSlot) Interval(fallback time.Duration) (Interval, bool) {
	if t.Start == nil {
		return Interval{}, false
	}
	end := t.Start.Add(fallback)
	if t.End != nil {
		end = *t.End
	}
	return Interval{Start: *t.Start, End: end}, true
}

// CopyTo returns a new, unsaved row with the same field values on another schedule
func (t TalkSlot) CopyTo(scheduleID int64) TalkSlot {
	c := t
	c.BaseEntity = entity.BaseEntity{}
	c.ScheduleID = scheduleID
	return c
}

func (t *TalkSlot) SameSubmission(other *TalkSlot) bool {
	return t.SubmissionID != nil && other.SubmissionID != nil && *t.SubmissionID == *other.SubmissionID
}

// SameBreak reports whether both slots are breaks in the same room and time with the same description
func (t *TalkSlot) SameBreak(other *TalkSlot) bool {
	return t.SlotType == SlotTypeBreak && other.SlotType == SlotTypeBreak &&
		equalID(t.RoomID, other.RoomID) &&
		equalTime(t.Start, other.Start) &&
		equalTime(t.End, other.End) &&
		t.Description == other.Description
}

func equalID(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
