package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"cfp-scheduler/core/cache"
	"cfp-scheduler/core/constants"
	"cfp-scheduler/core/errors"
	"cfp-scheduler/core/logger"
	mailEntity "cfp-scheduler/modules/mail/entity"
	"cfp-scheduler/modules/schedule/entity"
	"cfp-scheduler/modules/schedule/repository"
)

// MailQueue enqueues a templated mail without waiting for delivery
type MailQueue interface {
	Enqueue(ctx context.Context, eventID int64, recipient string, template string, data map[string]any) (*mailEntity.QueuedMail, error)
}

// ScheduleService handles schedule versioning, diffs, conflicts and exports
type ScheduleService struct {
	repo      repository.ScheduleRepositoryInterface
	cache     cache.Cache
	mail      MailQueue
	observers []ReleaseObserver
	now       func() time.Time
}

// ScheduleServiceInterface defines the service contract
type ScheduleServiceInterface interface {
	ListSchedules(ctx context.Context, eventID int64) ([]entity.Schedule, *errors.AppError)
	ResolveSchedule(ctx context.Context, eventID int64, ref string) (*entity.Schedule, *errors.AppError)

	Freeze(ctx context.Context, schedule *entity.Schedule, req FreezeRequest) (*FreezeResult, *errors.AppError)
	Unfreeze(ctx context.Context, schedule *entity.Schedule) (*entity.Schedule, *errors.AppError)

	CalculateChanges(ctx context.Context, schedule *entity.Schedule) (*Changes, *errors.AppError)
	GetCachedChanges(ctx context.Context, schedule *entity.Schedule) (*Changes, *errors.AppError)
	HasUnreleasedChanges(ctx context.Context, eventID int64) (bool, *errors.AppError)
	UpdateUnreleasedChanges(ctx context.Context, eventID int64, value *bool) (bool, *errors.AppError)

	GetSlot(ctx context.Context, schedule *entity.Schedule, slotID int64) (*entity.TalkSlot, *errors.AppError)
	WarningsFor(ctx context.Context, schedule *entity.Schedule, slot *entity.TalkSlot, withSpeakers bool, roomAvailabilities []entity.Availability) ([]Warning, *errors.AppError)
	AllWarnings(ctx context.Context, schedule *entity.Schedule, withSpeakers bool, updatedSince *time.Time) (map[int64][]Warning, *errors.AppError)

	BuildData(ctx context.Context, schedule *entity.Schedule, opts ExportOptions) (*ExportData, *errors.AppError)

	CreateSlot(ctx context.Context, schedule *entity.Schedule, slot *entity.TalkSlot) (*entity.TalkSlot, *errors.AppError)
	UpdateSlot(ctx context.Context, schedule *entity.Schedule, slot *entity.TalkSlot) (*entity.TalkSlot, *errors.AppError)
	DeleteSlot(ctx context.Context, schedule *entity.Schedule, slotID int64) *errors.AppError
}

// NewScheduleService creates a new schedule service
func NewScheduleService(repo repository.ScheduleRepositoryInterface, c cache.Cache, mail MailQueue) *ScheduleService {
	return &ScheduleService{
		repo:  repo,
		cache: c,
		mail:  mail,
		now:   time.Now,
	}
}

// RegisterObserver appends an observer; observers run in registration order after each freeze
func (s *ScheduleService) RegisterObserver(o ReleaseObserver) {
	s.observers = append(s.observers, o)
}

// ListSchedules returns the WIP first, then releases newest first
func (s *ScheduleService) ListSchedules(ctx context.Context, eventID int64) ([]entity.Schedule, *errors.AppError) {
	schedules, err := s.repo.GetSchedulesByEventID(ctx, eventID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to get schedules", err)
	}
	return schedules, nil
}

// ResolveSchedule accepts a numeric id, "wip", "latest" or a version name
func (s *ScheduleService) ResolveSchedule(ctx context.Context, eventID int64, ref string) (*entity.Schedule, *errors.AppError) {
	ref = strings.TrimSpace(ref)

	var (
		schedule *entity.Schedule
		err      error
	)
	switch {
	case strings.EqualFold(ref, constants.ScheduleRefWIP):
		schedule, err = s.repo.GetWIPSchedule(ctx, eventID)
	case strings.EqualFold(ref, constants.ScheduleRefLatest):
		schedule, err = s.repo.GetLatestRelease(ctx, eventID, nil, 0)
	default:
		// a version name wins over a schedule id with the same digits
		schedule, err = s.repo.GetScheduleByVersion(ctx, eventID, ref)
		if err == nil && schedule == nil {
			if id, parseErr := strconv.ParseInt(ref, 10, 64); parseErr == nil {
				schedule, err = s.repo.GetScheduleByID(ctx, eventID, id)
			}
		}
	}

	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to get schedule", err)
	}
	if schedule == nil {
		return nil, errors.NewAppError(errors.ErrNotFound, "Schedule not found", nil)
	}
	return schedule, nil
}

// ===================== WIP editing =====================

func (s *ScheduleService) GetSlot(ctx context.Context, schedule *entity.Schedule, slotID int64) (*entity.TalkSlot, *errors.AppError) {
	slot, err := s.repo.GetSlotByID(ctx, schedule.ID, slotID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to get slot", err)
	}
	if slot == nil {
		return nil, errors.NewAppError(errors.ErrNotFound, "Slot not found", nil)
	}
	return slot, nil
}

func requireWIP(schedule *entity.Schedule) *errors.AppError {
	switch schedule.State().(type) {
	case entity.WorkInProgress:
		return nil
	case entity.Released:
		return errors.NewAppError(errors.ErrPreconditionFailed, "Released schedules cannot be edited", entity.ErrScheduleReleased)
	default:
		panic("unknown schedule state")
	}
}

func (s *ScheduleService) validateSlot(ctx context.Context, schedule *entity.Schedule, slot *entity.TalkSlot) *errors.AppError {
	if slot.SlotType == "" {
		slot.SlotType = entity.SlotTypeTalk
	}
	if !slot.SlotType.Valid() {
		return errors.NewAppError(errors.ErrInvalidInput, "Unknown slot type", nil)
	}
	if slot.SlotType != entity.SlotTypeTalk && slot.SubmissionID != nil {
		return errors.NewAppError(errors.ErrInvalidInput, "Breaks and blockers cannot reference a submission", nil)
	}
	if slot.Start != nil && slot.End != nil && !slot.End.After(*slot.Start) {
		return errors.NewAppError(errors.ErrInvalidInput, "Slot must end after it starts", nil)
	}

	if slot.RoomID != nil {
		rooms, err := s.repo.GetRoomsByEventID(ctx, schedule.EventID)
		if err != nil {
			return errors.NewAppError(errors.ErrInternalServer, "Failed to get rooms", err)
		}
		if _, ok := indexRooms(rooms)[*slot.RoomID]; !ok {
			return errors.NewAppError(errors.ErrInvalidInput, "Room does not belong to this event", nil)
		}
	}
	if slot.SubmissionID != nil {
		submissions, err := s.repo.GetSubmissionsByEventID(ctx, schedule.EventID)
		if err != nil {
			return errors.NewAppError(errors.ErrInternalServer, "Failed to get submissions", err)
		}
		if _, ok := indexSubmissions(submissions)[*slot.SubmissionID]; !ok {
			return errors.NewAppError(errors.ErrInvalidInput, "Submission does not belong to this event", nil)
		}
	}
	return nil
}

// touchWIP drops derived state after an organizer edit
func (s *ScheduleService) touchWIP(ctx context.Context, schedule *entity.Schedule) {
	s.InvalidateChanges(ctx, schedule)
	s.invalidateUnreleasedChanges(ctx, schedule.EventID)
}

func (s *ScheduleService) CreateSlot(ctx context.Context, schedule *entity.Schedule, slot *entity.TalkSlot) (*entity.TalkSlot, *errors.AppError) {
	if appErr := requireWIP(schedule); appErr != nil {
		return nil, appErr
	}
	if appErr := s.validateSlot(ctx, schedule, slot); appErr != nil {
		return nil, appErr
	}

	slot.ScheduleID = schedule.ID
	created, err := s.repo.CreateSlot(ctx, slot)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to create slot", err)
	}

	s.touchWIP(ctx, schedule)
	return created, nil
}

func (s *ScheduleService) UpdateSlot(ctx context.Context, schedule *entity.Schedule, slot *entity.TalkSlot) (*entity.TalkSlot, *errors.AppError) {
	if appErr := requireWIP(schedule); appErr != nil {
		return nil, appErr
	}
	if _, appErr := s.GetSlot(ctx, schedule, slot.ID); appErr != nil {
		return nil, appErr
	}
	if appErr := s.validateSlot(ctx, schedule, slot); appErr != nil {
		return nil, appErr
	}

	slot.ScheduleID = schedule.ID
	if err := s.repo.UpdateSlot(ctx, slot); err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to update slot", err)
	}

	s.touchWIP(ctx, schedule)
	return s.GetSlot(ctx, schedule, slot.ID)
}

func (s *ScheduleService) DeleteSlot(ctx context.Context, schedule *entity.Schedule, slotID int64) *errors.AppError {
	if appErr := requireWIP(schedule); appErr != nil {
		return appErr
	}
	if _, appErr := s.GetSlot(ctx, schedule, slotID); appErr != nil {
		return appErr
	}

	if err := s.repo.DeleteSlot(ctx, slotID); err != nil {
		return errors.NewAppError(errors.ErrInternalServer, "Failed to delete slot", err)
	}

	s.touchWIP(ctx, schedule)
	logger.Info("ScheduleService:DeleteSlot", "schedule_id", schedule.ID, "slot_id", slotID)
	return nil
}

// ===================== lookups =====================

func indexRooms(rooms []entity.Room) map[int64]entity.Room {
	m := make(map[int64]entity.Room, len(rooms))
	for _, r := range rooms {
		m[r.ID] = r
	}
	return m
}

func indexSubmissions(submissions []entity.Submission) map[int64]entity.Submission {
	m := make(map[int64]entity.Submission, len(submissions))
	for _, sub := range submissions {
		m[sub.ID] = sub
	}
	return m
}

func indexSpeakers(rows []entity.SubmissionSpeaker) map[int64][]entity.Speaker {
	m := make(map[int64][]entity.Speaker)
	for _, row := range rows {
		m[row.SubmissionID] = append(m[row.SubmissionID], row.Speaker)
	}
	return m
}
