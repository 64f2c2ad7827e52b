package entity

import (
	"errors"
	"strings"
	"time"

	"cfp-scheduler/core/constants"
	"cfp-scheduler/core/entity"
)

var (
	ErrVersionRequired     = errors.New("a version name is required to release a schedule")
	ErrVersionReserved     = errors.New("this version name is reserved")
	ErrScheduleReleased    = errors.New("schedule is already released")
	ErrScheduleNotReleased = errors.New("only released schedules can be unfrozen")
	ErrVersionTaken        = errors.New("a schedule with this version already exists")
)

// Schedule is one snapshot of an event's timetable. Version and Published are
// both nil for the work-in-progress schedule and both set once released.
type Schedule struct {
	entity.BaseEntity
	EventID   int64      `db:"event_id" json:"event_id"`
	Version   *string    `db:"version" json:"version,omitempty"`
	Published *time.Time `db:"published" json:"published,omitempty"`
	Comment   string     `db:"comment" json:"comment"`
}

// State is either WorkInProgress or Released
type State interface {
	scheduleState()
}

type WorkInProgress struct{}

type Released struct {
	Version   string
	Published time.Time
}

func (WorkInProgress) scheduleState() {}
func (Released) scheduleState()       {}

func (s *Schedule) State() State {
	if s.Version == nil {
		return WorkInProgress{}
	}
	released := Released{Version: *s.Version}
	if s.Published != nil {
		released.Published = *s.Published
	}
	return released
}

func (s *Schedule) IsWIP() bool {
	_, ok := s.State().(WorkInProgress)
	return ok
}

// Name is the version for released schedules and "wip" otherwise
func (s *Schedule) Name() string {
	switch st := s.State().(type) {
	case WorkInProgress:
		return constants.ScheduleRefWIP
	case Released:
		return st.Version
	default:
		panic("unknown schedule state")
	}
}

func NewWIPSchedule(eventID int64) *Schedule {
	return &Schedule{EventID: eventID}
}

func NewReleasedSchedule(eventID int64, version string, published time.Time, comment string) *Schedule {
	return &Schedule{
		EventID:   eventID,
		Version:   &version,
		Published: &published,
		Comment:   comment,
	}
}

// ValidateVersionName rejects names that cannot identify a release
func ValidateVersionName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrVersionRequired
	}
	if IsReservedRef(name) {
		return ErrVersionReserved
	}
	return nil
}

// IsReservedRef reports whether ref is one of the path aliases "wip" or "latest"
func IsReservedRef(ref string) bool {
	return strings.EqualFold(ref, constants.ScheduleRefWIP) || strings.EqualFold(ref, constants.ScheduleRefLatest)
}
