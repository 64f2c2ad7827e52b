package mapper

import (
	"sort"
	"time"

	"cfp-scheduler/modules/schedule/dto"
	"cfp-scheduler/modules/schedule/entity"
	"cfp-scheduler/modules/schedule/service"
)

func ToScheduleResponse(schedule *entity.Schedule) *dto.ScheduleResponse {
	return &dto.ScheduleResponse{
		ID:        schedule.ID,
		EventID:   schedule.EventID,
		Version:   schedule.Name(),
		IsWIP:     schedule.IsWIP(),
		Published: schedule.Published,
		Comment:   schedule.Comment,
		CreatedAt: schedule.CreatedAt,
	}
}

func ToScheduleListResponse(schedules []entity.Schedule) *dto.ScheduleListResponse {
	items := make([]dto.ScheduleResponse, len(schedules))
	for i := range schedules {
		items[i] = *ToScheduleResponse(&schedules[i])
	}
	return &dto.ScheduleListResponse{Schedules: items}
}

func ToFreezeRequest(req *dto.FreezeRequest, notifyDefault bool) service.FreezeRequest {
	notify := notifyDefault
	if req.NotifySpeakers != nil {
		notify = *req.NotifySpeakers
	}
	return service.FreezeRequest{
		Name:           req.Version,
		Comment:        req.Comment,
		NotifySpeakers: notify,
	}
}

func ToFreezeResponse(result *service.FreezeResult) *dto.FreezeResponse {
	rejections := make([]dto.ObserverRejectionResponse, len(result.Rejections))
	for i, r := range result.Rejections {
		rejections[i] = dto.ObserverRejectionResponse{Observer: r.Observer, Reason: r.Reason}
	}
	return &dto.FreezeResponse{
		Released:    *ToScheduleResponse(result.Released),
		WIP:         *ToScheduleResponse(result.WIP),
		Rejections:  rejections,
		QueuedMails: result.QueuedMails,
	}
}

// ToSlotEntity expects a request that already passed validation
func ToSlotEntity(req *dto.SlotRequest) *entity.TalkSlot {
	return &entity.TalkSlot{
		SubmissionID: req.SubmissionID,
		RoomID:       req.RoomID,
		Start:        parseTime(req.Start),
		End:          parseTime(req.End),
		SlotType:     entity.SlotType(req.SlotType),
		Description:  req.Description,
		IsVisible:    req.IsVisible,
	}
}

func parseTime(value *string) *time.Time {
	if value == nil || *value == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, *value)
	if err != nil {
		return nil
	}
	return &t
}

func ToSlotResponse(slot *entity.TalkSlot) *dto.SlotResponse {
	return &dto.SlotResponse{
		ID:           slot.ID,
		ScheduleID:   slot.ScheduleID,
		SubmissionID: slot.SubmissionID,
		RoomID:       slot.RoomID,
		Start:        slot.Start,
		End:          slot.End,
		SlotType:     slot.SlotType,
		Description:  slot.Description,
		IsVisible:    slot.IsVisible,
		UpdatedAt:    slot.UpdatedAt,
	}
}

func toTalkChangeResponse(talk service.TalkChange) dto.TalkChangeResponse {
	response := dto.TalkChangeResponse{
		SlotID:     talk.Slot.ID,
		Submission: talk.Submission.Code,
		Title:      talk.Submission.Title,
		Start:      talk.Slot.Start,
	}
	if talk.Room != nil {
		response.Room = talk.Room.Name
	}
	return response
}

func ToChangesResponse(changes *service.Changes) *dto.ChangesResponse {
	response := &dto.ChangesResponse{
		Action:        string(changes.Action),
		Count:         changes.Count,
		NewTalks:      make([]dto.TalkChangeResponse, 0, len(changes.NewTalks)),
		CanceledTalks: make([]dto.TalkChangeResponse, 0, len(changes.CanceledTalks)),
		MovedTalks:    make([]dto.MovedTalkResponse, 0, len(changes.MovedTalks)),
	}
	for _, talk := range changes.NewTalks {
		response.NewTalks = append(response.NewTalks, toTalkChangeResponse(talk))
	}
	for _, talk := range changes.CanceledTalks {
		response.CanceledTalks = append(response.CanceledTalks, toTalkChangeResponse(talk))
	}
	for _, moved := range changes.MovedTalks {
		response.MovedTalks = append(response.MovedTalks, dto.MovedTalkResponse{
			Submission: moved.Submission.Code,
			Title:      moved.Submission.Title,
			OldRoom:    moved.OldRoom.Name,
			NewRoom:    moved.NewRoom.Name,
			OldStart:   moved.OldStart,
			NewStart:   moved.NewStart,
			NewSlotID:  moved.NewSlot.ID,
		})
	}
	return response
}

func ToWarningResponses(warnings []service.Warning) []dto.WarningResponse {
	responses := make([]dto.WarningResponse, len(warnings))
	for i, w := range warnings {
		responses[i] = dto.WarningResponse{
			Type:             string(w.Type),
			Message:          w.Message,
			Speaker:          w.Speaker,
			ConflictingSlots: w.ConflictingSlots,
		}
	}
	return responses
}

// ToScheduleWarningsResponse orders slots by id so responses are stable
func ToScheduleWarningsResponse(all map[int64][]service.Warning) *dto.ScheduleWarningsResponse {
	ids := make([]int64, 0, len(all))
	for id := range all {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	response := &dto.ScheduleWarningsResponse{Slots: make([]dto.SlotWarningsResponse, 0, len(ids))}
	for _, id := range ids {
		response.Slots = append(response.Slots, dto.SlotWarningsResponse{
			SlotID:   id,
			Warnings: ToWarningResponses(all[id]),
		})
	}
	return response
}
