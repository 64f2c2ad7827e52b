package service

import (
	"context"
	"sort"
	"time"

	"cfp-scheduler/core/errors"
	"cfp-scheduler/modules/schedule/entity"

	"github.com/gosimple/slug"
)

type ExportOptions struct {
	AllTalks          bool       // include talks whose submission is not accepted
	IncludeBlockers   bool
	IncludeEmptyRooms bool
	UpdatedSince      *time.Time
}

type ExportData struct {
	Event     ExportEvent     `json:"event"`
	Version   string          `json:"version"`
	Published *time.Time      `json:"published,omitempty"`
	Rooms     []ExportRoom    `json:"rooms"`
	Tracks    []ExportTrack   `json:"tracks"`
	Speakers  []ExportSpeaker `json:"speakers"`
}

type ExportEvent struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Slug     string `json:"slug"`
	Timezone string `json:"timezone"`
}

type ExportRoom struct {
	ID       int64        `json:"id"`
	Name     string       `json:"name"`
	Slug     string       `json:"slug"`
	Position int          `json:"position"`
	Talks    []ExportTalk `json:"talks"`
}

type ExportTalk struct {
	SlotID      int64           `json:"slot_id"`
	SlotType    entity.SlotType `json:"slot_type"`
	Code        string          `json:"code,omitempty"`
	Title       string          `json:"title,omitempty"`
	State       string          `json:"state,omitempty"`
	Description string          `json:"description,omitempty"`
	Start       time.Time       `json:"start"`
	End         time.Time       `json:"end"`
	TrackID     *int64          `json:"track_id,omitempty"`
	Speakers    []string        `json:"speakers"`
}

type ExportTrack struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Slug  string `json:"slug"`
	Color string `json:"color"`
}

type ExportSpeaker struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// BuildData flattens a schedule into rooms with their talks, plus the tracks and
// speakers those talks reference
func (s *ScheduleService) BuildData(ctx context.Context, schedule *entity.Schedule, opts ExportOptions) (*ExportData, *errors.AppError) {
	event, err := s.repo.GetEventByID(ctx, schedule.EventID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to get event", err)
	}
	if event == nil {
		return nil, errors.NewAppError(errors.ErrNotFound, "Event not found", nil)
	}

	slots, err := s.repo.GetSlotsByScheduleID(ctx, schedule.ID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to get slots", err)
	}
	submissionList, err := s.repo.GetSubmissionsByEventID(ctx, schedule.EventID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to get submissions", err)
	}
	roomList, err := s.repo.GetRoomsByEventID(ctx, schedule.EventID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to get rooms", err)
	}
	trackList, err := s.repo.GetTracksByEventID(ctx, schedule.EventID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to get tracks", err)
	}
	speakerRows, err := s.repo.GetSpeakersByEventID(ctx, schedule.EventID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to get speakers", err)
	}

	submissions := indexSubmissions(submissionList)
	speakers := indexSpeakers(speakerRows)

	data := &ExportData{
		Event: ExportEvent{
			ID:       event.ID,
			Name:     event.Name,
			Slug:     event.Slug,
			Timezone: event.Timezone,
		},
		Version:   schedule.Name(),
		Published: schedule.Published,
		Rooms:     []ExportRoom{},
		Tracks:    []ExportTrack{},
		Speakers:  []ExportSpeaker{},
	}
	if data.Event.Slug == "" {
		data.Event.Slug = slug.Make(event.Name)
	}

	talksByRoom := make(map[int64][]ExportTalk)
	usedTracks := make(map[int64]bool)
	usedSpeakers := make(map[string]entity.Speaker)

	for i := range slots {
		slot := &slots[i]
		if slot.RoomID == nil || slot.Start == nil {
			continue
		}
		if opts.UpdatedSince != nil && slot.UpdatedAt.Before(*opts.UpdatedSince) {
			continue
		}

		talk := ExportTalk{
			SlotID:      slot.ID,
			SlotType:    slot.SlotType,
			Description: slot.Description,
			Speakers:    []string{},
		}

		var fallback time.Duration
		switch slot.SlotType {
		case entity.SlotTypeTalk:
			if slot.SubmissionID == nil {
				continue
			}
			sub, ok := submissions[*slot.SubmissionID]
			if !ok || (!opts.AllTalks && !sub.State.IsAccepted()) {
				continue
			}
			fallback = sub.Duration()
			talk.Code = sub.Code
			talk.Title = sub.Title
			talk.State = string(sub.State)
			talk.TrackID = sub.TrackID
			if sub.TrackID != nil {
				usedTracks[*sub.TrackID] = true
			}
			for _, sp := range speakers[sub.ID] {
				talk.Speakers = append(talk.Speakers, sp.Code)
				usedSpeakers[sp.Code] = sp
			}
		case entity.SlotTypeBreak:
		case entity.SlotTypeBlocker:
			if !opts.IncludeBlockers {
				continue
			}
		default:
			continue
		}

		iv, _ := slot.Interval(fallback)
		talk.Start, talk.End = iv.Start, iv.End
		talksByRoom[*slot.RoomID] = append(talksByRoom[*slot.RoomID], talk)
	}

	sort.Slice(roomList, func(i, j int) bool {
		if roomList[i].Position != roomList[j].Position {
			return roomList[i].Position < roomList[j].Position
		}
		return roomList[i].ID < roomList[j].ID
	})
	for _, room := range roomList {
		talks := talksByRoom[room.ID]
		if len(talks) == 0 && !opts.IncludeEmptyRooms {
			continue
		}
		if talks == nil {
			talks = []ExportTalk{}
		}
		sort.Slice(talks, func(i, j int) bool {
			if !talks[i].Start.Equal(talks[j].Start) {
				return talks[i].Start.Before(talks[j].Start)
			}
			return talks[i].SlotID < talks[j].SlotID
		})
		data.Rooms = append(data.Rooms, ExportRoom{
			ID:       room.ID,
			Name:     room.Name,
			Slug:     slug.Make(room.Name),
			Position: room.Position,
			Talks:    talks,
		})
	}

	for _, track := range trackList {
		if !usedTracks[track.ID] {
			continue
		}
		data.Tracks = append(data.Tracks, ExportTrack{
			ID:    track.ID,
			Name:  track.Name,
			Slug:  slug.Make(track.Name),
			Color: track.Color,
		})
	}
	sort.Slice(data.Tracks, func(i, j int) bool { return data.Tracks[i].ID < data.Tracks[j].ID })

	for code, sp := range usedSpeakers {
		data.Speakers = append(data.Speakers, ExportSpeaker{Code: code, Name: sp.Name})
	}
	sort.Slice(data.Speakers, func(i, j int) bool { return data.Speakers[i].Code < data.Speakers[j].Code })

	return data, nil
}
