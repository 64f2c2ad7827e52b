package service

import (
	"context"
	"sort"
	"time"

	"cfp-scheduler/core/constants"
	"cfp-scheduler/core/logger"
	"cfp-scheduler/modules/schedule/entity"
)

type speakerMail struct {
	speaker entity.Speaker
	talks   []map[string]any
}

func talkMailContext(sub entity.Submission, room *entity.Room, start *time.Time) map[string]any {
	talk := map[string]any{
		"code":  sub.Code,
		"title": sub.Title,
	}
	if room != nil {
		talk["room"] = room.Name
	}
	if start != nil {
		talk["start"] = start.Format(time.RFC3339)
	}
	return talk
}

// notifySpeakers enqueues one mail per affected speaker and returns how many were queued.
// Failures are logged and never fail the release.
func (s *ScheduleService) notifySpeakers(ctx context.Context, released *entity.Schedule) int {
	if s.mail == nil {
		return 0
	}

	changes, appErr := s.GetCachedChanges(ctx, released)
	if appErr != nil {
		logger.Error("ScheduleService:NotifySpeakers:GetCachedChanges:Error:", appErr)
		return 0
	}

	rows, err := s.repo.GetSpeakersByEventID(ctx, released.EventID)
	if err != nil {
		logger.Error("ScheduleService:NotifySpeakers:GetSpeakers:Error:", err)
		return 0
	}
	speakers := indexSpeakers(rows)

	template := constants.MailTemplateScheduleUpdate
	affected := make(map[int64]*speakerMail)
	add := func(sub entity.Submission, room *entity.Room, start *time.Time) {
		for _, sp := range speakers[sub.ID] {
			if sp.Email == "" {
				continue
			}
			m, ok := affected[sp.ID]
			if !ok {
				m = &speakerMail{speaker: sp}
				affected[sp.ID] = m
			}
			m.talks = append(m.talks, talkMailContext(sub, room, start))
		}
	}

	switch changes.Action {
	case ChangeActionCreate:
		template = constants.MailTemplateScheduleFirstRelease
		if err := s.collectReleasedTalks(ctx, released, add); err != nil {
			logger.Error("ScheduleService:NotifySpeakers:CollectReleasedTalks:Error:", err)
			return 0
		}
	case ChangeActionUpdate:
		for _, talk := range changes.NewTalks {
			add(talk.Submission, talk.Room, talk.Slot.Start)
		}
		for _, moved := range changes.MovedTalks {
			room := moved.NewRoom
			start := moved.NewStart
			add(moved.Submission, &room, &start)
		}
	}

	ids := make([]int64, 0, len(affected))
	for id := range affected {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	queued := 0
	for _, id := range ids {
		m := affected[id]
		data := map[string]any{
			"event_id": released.EventID,
			"version":  released.Name(),
			"speaker":  m.speaker.Name,
			"talks":    m.talks,
		}
		if _, err := s.mail.Enqueue(ctx, released.EventID, m.speaker.Email, template, data); err != nil {
			logger.Error("ScheduleService:NotifySpeakers:Enqueue:Error:", err, "speaker", m.speaker.Code)
			continue
		}
		queued++
	}

	logger.Info("ScheduleService:NotifySpeakers", "event_id", released.EventID, "template", template, "queued", queued)
	return queued
}

// collectReleasedTalks walks every visible placed talk of a release
func (s *ScheduleService) collectReleasedTalks(ctx context.Context, released *entity.Schedule, add func(entity.Submission, *entity.Room, *time.Time)) error {
	slots, err := s.repo.GetSlotsByScheduleID(ctx, released.ID)
	if err != nil {
		return err
	}
	submissions, err := s.repo.GetSubmissionsByEventID(ctx, released.EventID)
	if err != nil {
		return err
	}
	rooms, err := s.repo.GetRoomsByEventID(ctx, released.EventID)
	if err != nil {
		return err
	}
	bySubmission := indexSubmissions(submissions)
	byRoom := indexRooms(rooms)

	for i := range slots {
		slot := &slots[i]
		if !slot.IsVisible || !slot.IsPlaced() {
			continue
		}
		sub, ok := bySubmission[*slot.SubmissionID]
		if !ok {
			continue
		}
		var room *entity.Room
		if r, ok := byRoom[*slot.RoomID]; ok {
			room = &r
		}
		add(sub, room, slot.Start)
	}
	return nil
}
