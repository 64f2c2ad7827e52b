package entity

import "time"

// The types below are owned by other services; the schedule module only reads them.

type Event struct {
	ID       int64  `db:"id" json:"id"`
	Name     string `db:"name" json:"name"`
	Slug     string `db:"slug" json:"slug"`
	Timezone string `db:"timezone" json:"timezone"`
}

type SubmissionState string

const (
	SubmissionStateSubmitted SubmissionState = "submitted"
	SubmissionStateAccepted  SubmissionState = "accepted"
	SubmissionStateConfirmed SubmissionState = "confirmed"
	SubmissionStateRejected  SubmissionState = "rejected"
	SubmissionStateCanceled  SubmissionState = "canceled"
	SubmissionStateWithdrawn SubmissionState = "withdrawn"
)

// IsAccepted covers accepted and speaker-confirmed submissions
func (s SubmissionState) IsAccepted() bool {
	return s == SubmissionStateAccepted || s == SubmissionStateConfirmed
}

type Submission struct {
	ID              int64           `db:"id" json:"id"`
	EventID         int64           `db:"event_id" json:"event_id"`
	Code            string          `db:"code" json:"code"`
	Title           string          `db:"title" json:"title"`
	State           SubmissionState `db:"state" json:"state"`
	SlotCount       int             `db:"slot_count" json:"slot_count"`
	DurationMinutes int             `db:"duration" json:"duration"`
	TrackID         *int64          `db:"track_id" json:"track_id,omitempty"`
}

func (s *Submission) Duration() time.Duration {
	return time.Duration(s.DurationMinutes) * time.Minute
}

type Room struct {
	ID       int64  `db:"id" json:"id"`
	EventID  int64  `db:"event_id" json:"event_id"`
	Name     string `db:"name" json:"name"`
	Position int    `db:"position" json:"position"`
}

type Track struct {
	ID      int64  `db:"id" json:"id"`
	EventID int64  `db:"event_id" json:"event_id"`
	Name    string `db:"name" json:"name"`
	Color   string `db:"color" json:"color"`
}

type Speaker struct {
	ID    int64  `db:"id" json:"id"`
	Code  string `db:"code" json:"code"`
	Name  string `db:"name" json:"name"`
	Email string `db:"email" json:"-"`
}

// SubmissionSpeaker is one row of the submission/speaker join
type SubmissionSpeaker struct {
	SubmissionID int64 `db:"submission_id"`
	Speaker
}

// Availability is a window in which a room or a speaker can be scheduled.
// Exactly one of RoomID and SpeakerID is set.
type Availability struct {
	ID        int64     `db:"id" json:"id"`
	EventID   int64     `db:"event_id" json:"event_id"`
	RoomID    *int64    `db:"room_id" json:"room_id,omitempty"`
	SpeakerID *int64    `db:"speaker_id" json:"speaker_id,omitempty"`
	Start     time.Time `db:"start_at" json:"start"`
	End       time.Time `db:"end_at" json:"end"`
}

func (a Availability) Interval() Interval {
	return Interval{Start: a.Start, End: a.End}
}
