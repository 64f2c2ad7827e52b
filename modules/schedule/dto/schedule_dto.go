package dto

import (
	"time"

	"cfp-scheduler/modules/schedule/entity"
)

// ========== Schedule DTOs ==========

type ScheduleResponse struct {
	ID        int64      `json:"id"`
	EventID   int64      `json:"event_id"`
	Version   string     `json:"version"`
	IsWIP     bool       `json:"is_wip"`
	Published *time.Time `json:"published,omitempty"`
	Comment   string     `json:"comment"`
	CreatedAt time.Time  `json:"created_at"`
}

type ScheduleListResponse struct {
	Schedules []ScheduleResponse `json:"schedules"`
}

type FreezeRequest struct {
	Version        string `json:"version"`
	Comment        string `json:"comment"`
	NotifySpeakers *bool  `json:"notify_speakers,omitempty"`
}

type ObserverRejectionResponse struct {
	Observer string `json:"observer"`
	Reason   string `json:"reason"`
}

type FreezeResponse struct {
	Released    ScheduleResponse            `json:"released"`
	WIP         ScheduleResponse            `json:"wip"`
	Rejections  []ObserverRejectionResponse `json:"rejections"`
	QueuedMails int                         `json:"queued_mails"`
}

// ========== Slot DTOs ==========

// SlotRequest times are RFC3339
type SlotRequest struct {
	SubmissionID *int64  `json:"submission_id"`
	RoomID       *int64  `json:"room_id"`
	Start        *string `json:"start"`
	End          *string `json:"end"`
	SlotType     string  `json:"slot_type"`
	Description  string  `json:"description"`
	IsVisible    bool    `json:"is_visible"`
}

type SlotResponse struct {
	ID           int64           `json:"id"`
	ScheduleID   int64           `json:"schedule_id"`
	SubmissionID *int64          `json:"submission_id"`
	RoomID       *int64          `json:"room_id"`
	Start        *time.Time      `json:"start"`
	End          *time.Time      `json:"end"`
	SlotType     entity.SlotType `json:"slot_type"`
	Description  string          `json:"description"`
	IsVisible    bool            `json:"is_visible"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// ========== Changes DTOs ==========

type TalkChangeResponse struct {
	SlotID     int64      `json:"slot_id"`
	Submission string     `json:"submission"`
	Title      string     `json:"title"`
	Room       string     `json:"room,omitempty"`
	Start      *time.Time `json:"start,omitempty"`
}

type MovedTalkResponse struct {
	Submission string    `json:"submission"`
	Title      string    `json:"title"`
	OldRoom    string    `json:"old_room"`
	NewRoom    string    `json:"new_room"`
	OldStart   time.Time `json:"old_start"`
	NewStart   time.Time `json:"new_start"`
	NewSlotID  int64     `json:"new_slot_id"`
}

type ChangesResponse struct {
	Action        string               `json:"action"`
	Count         int                  `json:"count"`
	NewTalks      []TalkChangeResponse `json:"new_talks"`
	CanceledTalks []TalkChangeResponse `json:"canceled_talks"`
	MovedTalks    []MovedTalkResponse  `json:"moved_talks"`
}

type UnreleasedChangesResponse struct {
	EventID              int64 `json:"event_id"`
	HasUnreleasedChanges bool  `json:"has_unreleased_changes"`
}

// ========== Warning DTOs ==========

type WarningResponse struct {
	Type             string  `json:"type"`
	Message          string  `json:"message"`
	Speaker          string  `json:"speaker,omitempty"`
	ConflictingSlots []int64 `json:"conflicting_slots,omitempty"`
}

type SlotWarningsResponse struct {
	SlotID   int64             `json:"slot_id"`
	Warnings []WarningResponse `json:"warnings"`
}

type ScheduleWarningsResponse struct {
	Slots []SlotWarningsResponse `json:"slots"`
}
