package service

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"cfp-scheduler/core/constants"
	"cfp-scheduler/core/errors"
	"cfp-scheduler/modules/schedule/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func slotsOf(t *testing.T, repo *fakeRepo, scheduleID int64) []entity.TalkSlot {
	t.Helper()
	slots, err := repo.GetSlotsByScheduleID(context.Background(), scheduleID)
	require.NoError(t, err)
	return slots
}

func countByType(slots []entity.TalkSlot, slotType entity.SlotType) int {
	n := 0
	for _, s := range slots {
		if s.SlotType == slotType {
			n++
		}
	}
	return n
}

type recordingObserver struct {
	name   string
	calls  *[]string
	reject bool
}

func (o recordingObserver) Name() string { return o.name }

func (o recordingObserver) OnRelease(_ context.Context, event ReleaseEvent) *ObserverRejection {
	*o.calls = append(*o.calls, o.name+":"+event.Released.Name())
	if o.reject {
		return &ObserverRejection{Reason: "not today"}
	}
	return nil
}

func TestFreeze_RejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name    string
		version string
		want    error
	}{
		{name: "empty", version: "", want: entity.ErrVersionRequired},
		{name: "blank", version: "  ", want: entity.ErrVersionRequired},
		{name: "wip", version: "wip", want: entity.ErrVersionReserved},
		{name: "latest", version: "latest", want: entity.ErrVersionReserved},
		{name: "latest mixed case", version: " Latest ", want: entity.ErrVersionReserved},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			wip := f.repo.addSchedule(entity.NewWIPSchedule(testEvent))

			result, appErr := f.svc.Freeze(context.Background(), wip, FreezeRequest{Name: tt.version})
			require.NotNil(t, appErr)
			assert.Nil(t, result)
			assert.Equal(t, errors.ErrPreconditionFailed, appErr.Code)
			assert.ErrorIs(t, appErr, tt.want)
			assert.Len(t, f.repo.schedules, 1)
		})
	}

	t.Run("already released", func(t *testing.T) {
		f := newFixture()
		released := f.repo.addSchedule(entity.NewReleasedSchedule(testEvent, "v1", testNow, ""))

		_, appErr := f.svc.Freeze(context.Background(), released, FreezeRequest{Name: "v2"})
		require.NotNil(t, appErr)
		assert.Equal(t, errors.ErrPreconditionFailed, appErr.Code)
		assert.ErrorIs(t, appErr, entity.ErrScheduleReleased)
	})
}

func TestFreeze_CopiesSlots(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	wip := f.repo.addSchedule(entity.NewWIPSchedule(testEvent))

	f.repo.addSlot(talk(wip.ID, 1, 1, at(9, 0), at(10, 0)))
	f.repo.addSlot(talk(wip.ID, 3, 2, at(9, 0), at(10, 0)))
	f.repo.addSlot(entity.TalkSlot{ScheduleID: wip.ID, RoomID: ptr[int64](1), Start: at(12, 0), End: at(13, 0), SlotType: entity.SlotTypeBreak, Description: "Lunch"})
	f.repo.addSlot(entity.TalkSlot{ScheduleID: wip.ID, RoomID: ptr[int64](2), Start: at(12, 0), End: at(13, 0), SlotType: entity.SlotTypeBlocker})
	f.repo.addSlot(entity.TalkSlot{ScheduleID: wip.ID, SubmissionID: ptr[int64](2), SlotType: entity.SlotTypeTalk})

	_ = f.cache.Set(ctx, scheduleChangesKey(wip.ID), "stale")
	_ = f.cache.Set(ctx, unreleasedChangesKey(testEvent), "true")

	result, appErr := f.svc.Freeze(ctx, wip, FreezeRequest{Name: "v1", Comment: "first", NotifySpeakers: true})
	require.Nil(t, appErr)

	t.Run("release row", func(t *testing.T) {
		require.NotNil(t, result.Released.Version)
		assert.Equal(t, "v1", *result.Released.Version)
		assert.Equal(t, testNow, *result.Released.Published)
		assert.Equal(t, "first", result.Released.Comment)
	})

	t.Run("exactly one fresh WIP", func(t *testing.T) {
		assert.NotEqual(t, wip.ID, result.WIP.ID)
		assert.True(t, result.WIP.IsWIP())
		assert.Equal(t, 1, f.repo.countWIPs(testEvent))
		_, stillThere := f.repo.schedules[wip.ID]
		assert.False(t, stillThere)
	})

	t.Run("release drops blockers and recomputes visibility", func(t *testing.T) {
		slots := slotsOf(t, f.repo, result.Released.ID)
		require.Len(t, slots, 4)
		assert.Zero(t, countByType(slots, entity.SlotTypeBlocker))

		visible := map[string]bool{}
		for _, s := range slots {
			key := string(s.SlotType)
			if s.SubmissionID != nil {
				key = f.repo.submissions[*s.SubmissionID-1].Code
			}
			visible[key] = s.IsVisible
		}
		assert.Equal(t, map[string]bool{"S1": true, "S2": true, "S3": false, "break": true}, visible)
	})

	t.Run("new WIP keeps everything unmodified", func(t *testing.T) {
		slots := slotsOf(t, f.repo, result.WIP.ID)
		require.Len(t, slots, 5)
		assert.Equal(t, 1, countByType(slots, entity.SlotTypeBlocker))
		for _, s := range slots {
			assert.False(t, s.IsVisible)
		}
	})

	t.Run("caches invalidated", func(t *testing.T) {
		assert.False(t, f.cache.has(scheduleChangesKey(wip.ID)))
		assert.False(t, f.cache.has(unreleasedChangesKey(testEvent)))
		assert.True(t, f.cache.has(scheduleChangesKey(result.Released.ID)))
	})

	t.Run("first release mails speakers of visible placed talks", func(t *testing.T) {
		assert.Equal(t, 1, result.QueuedMails)
		require.Len(t, f.mail.sent, 1)
		assert.Equal(t, "ada@example.org", f.mail.sent[0].recipient)
		assert.Equal(t, constants.MailTemplateScheduleFirstRelease, f.mail.sent[0].template)
		assert.Equal(t, "v1", f.mail.sent[0].data["version"])
	})
}

func TestFreeze_SecondReleaseMailsAffectedSpeakers(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	wip := f.repo.addSchedule(entity.NewWIPSchedule(testEvent))
	f.repo.addSlot(talk(wip.ID, 1, 1, at(9, 0), at(10, 0)))
	f.repo.addSlot(talk(wip.ID, 3, 1, at(11, 0), at(12, 0)))

	first, appErr := f.svc.Freeze(ctx, wip, FreezeRequest{Name: "v1"})
	require.Nil(t, appErr)
	assert.Empty(t, f.mail.sent)

	for _, s := range slotsOf(t, f.repo, first.WIP.ID) {
		if *s.SubmissionID == 1 {
			s.RoomID = ptr[int64](2)
			require.NoError(t, f.repo.UpdateSlot(ctx, &s))
		}
	}
	f.repo.addSlot(talk(first.WIP.ID, 2, 1, at(14, 0), at(15, 0)))

	f.svc.now = func() time.Time { return testNow.Add(time.Hour) }
	second, appErr := f.svc.Freeze(ctx, first.WIP, FreezeRequest{Name: "v2", NotifySpeakers: true})
	require.Nil(t, appErr)

	assert.Equal(t, 2, second.QueuedMails)
	assert.Equal(t, []string{"ada@example.org", "bob@example.org"}, f.mail.recipients())
	for _, m := range f.mail.sent {
		assert.Equal(t, constants.MailTemplateScheduleUpdate, m.template)
	}
}

func TestFreeze_MailFailureDoesNotFailRelease(t *testing.T) {
	f := newFixture()
	f.mail.err = errBoom
	wip := f.repo.addSchedule(entity.NewWIPSchedule(testEvent))
	f.repo.addSlot(talk(wip.ID, 1, 1, at(9, 0), at(10, 0)))

	result, appErr := f.svc.Freeze(context.Background(), wip, FreezeRequest{Name: "v1", NotifySpeakers: true})
	require.Nil(t, appErr)
	assert.Zero(t, result.QueuedMails)
	assert.NotNil(t, result.Released)
}

func TestFreeze_DuplicateVersion(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	wip := f.repo.addSchedule(entity.NewWIPSchedule(testEvent))

	first, appErr := f.svc.Freeze(ctx, wip, FreezeRequest{Name: "v1"})
	require.Nil(t, appErr)

	_, appErr = f.svc.Freeze(ctx, first.WIP, FreezeRequest{Name: "v1"})
	require.NotNil(t, appErr)
	assert.Equal(t, errors.ErrAlreadyExists, appErr.Code)
	assert.ErrorIs(t, appErr, entity.ErrVersionTaken)

	current, err := f.repo.GetWIPSchedule(ctx, testEvent)
	require.NoError(t, err)
	assert.Equal(t, first.WIP.ID, current.ID)
}

func TestFreeze_RollsBackOnStorageFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	wip := f.repo.addSchedule(entity.NewWIPSchedule(testEvent))
	f.repo.addSlot(talk(wip.ID, 1, 1, at(9, 0), at(10, 0)))
	f.repo.failOn, f.repo.failErr = "CreateSlots", errBoom

	_, appErr := f.svc.Freeze(ctx, wip, FreezeRequest{Name: "v1"})
	require.NotNil(t, appErr)
	assert.Equal(t, errors.ErrInternalServer, appErr.Code)
	assert.ErrorIs(t, appErr, errBoom)

	require.Len(t, f.repo.schedules, 1)
	current, err := f.repo.GetWIPSchedule(ctx, testEvent)
	require.NoError(t, err)
	assert.Equal(t, wip.ID, current.ID)
	assert.Len(t, slotsOf(t, f.repo, wip.ID), 1)
}

func TestFreeze_Observers(t *testing.T) {
	f := newFixture()
	var calls []string
	f.svc.RegisterObserver(recordingObserver{name: "first", calls: &calls})
	f.svc.RegisterObserver(recordingObserver{name: "grumpy", calls: &calls, reject: true})
	f.svc.RegisterObserver(recordingObserver{name: "last", calls: &calls})

	wip := f.repo.addSchedule(entity.NewWIPSchedule(testEvent))
	result, appErr := f.svc.Freeze(context.Background(), wip, FreezeRequest{Name: "v1"})
	require.Nil(t, appErr)

	assert.Equal(t, []string{"first:v1", "grumpy:v1", "last:v1"}, calls)
	require.Len(t, result.Rejections, 1)
	assert.Equal(t, "grumpy", result.Rejections[0].Observer)
	assert.Equal(t, "not today", result.Rejections[0].Reason)
	assert.NotNil(t, result.Released)
}

func TestExportPublisher(t *testing.T) {
	t.Run("uploads release export", func(t *testing.T) {
		f := newFixture()
		uploader := &fakeUploader{}
		f.svc.RegisterObserver(LogObserver{})
		f.svc.RegisterObserver(NewExportPublisher(f.svc, uploader, "exports"))

		wip := f.repo.addSchedule(entity.NewWIPSchedule(testEvent))
		f.repo.addSlot(talk(wip.ID, 1, 1, at(9, 0), at(10, 0)))

		result, appErr := f.svc.Freeze(context.Background(), wip, FreezeRequest{Name: "v1.0"})
		require.Nil(t, appErr)
		assert.Empty(t, result.Rejections)

		require.Len(t, uploader.keys, 1)
		assert.True(t, strings.HasPrefix(uploader.keys[0], "exports/1/v1-0-"), uploader.keys[0])
		assert.True(t, strings.HasSuffix(uploader.keys[0], ".json"))

		var data ExportData
		require.NoError(t, json.Unmarshal(uploader.bodies[0], &data))
		assert.Equal(t, "v1.0", data.Version)
		require.Len(t, data.Rooms, 1)
		assert.Equal(t, "S1", data.Rooms[0].Talks[0].Code)
	})

	t.Run("upload failure is a rejection", func(t *testing.T) {
		f := newFixture()
		f.svc.RegisterObserver(NewExportPublisher(f.svc, &fakeUploader{err: errBoom}, "exports"))

		wip := f.repo.addSchedule(entity.NewWIPSchedule(testEvent))
		result, appErr := f.svc.Freeze(context.Background(), wip, FreezeRequest{Name: "v1"})
		require.Nil(t, appErr)

		require.Len(t, result.Rejections, 1)
		assert.Equal(t, "export", result.Rejections[0].Observer)
		assert.ErrorIs(t, result.Rejections[0].Err, errBoom)
	})
}

func TestUnfreeze(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects the WIP", func(t *testing.T) {
		f := newFixture()
		wip := f.repo.addSchedule(entity.NewWIPSchedule(testEvent))

		_, appErr := f.svc.Unfreeze(ctx, wip)
		require.NotNil(t, appErr)
		assert.Equal(t, errors.ErrPreconditionFailed, appErr.Code)
		assert.ErrorIs(t, appErr, entity.ErrScheduleNotReleased)
	})

	t.Run("restores release and keeps unreleased work", func(t *testing.T) {
		f := newFixture()
		wip := f.repo.addSchedule(entity.NewWIPSchedule(testEvent))
		f.repo.addSlot(talk(wip.ID, 1, 1, at(9, 0), at(10, 0)))
		f.repo.addSlot(entity.TalkSlot{ScheduleID: wip.ID, RoomID: ptr[int64](2), Start: at(12, 0), End: at(13, 0), SlotType: entity.SlotTypeBlocker})

		first, appErr := f.svc.Freeze(ctx, wip, FreezeRequest{Name: "v1"})
		require.Nil(t, appErr)

		// edits after the release
		for _, s := range slotsOf(t, f.repo, first.WIP.ID) {
			if s.SubmissionID != nil && *s.SubmissionID == 1 {
				s.RoomID = ptr[int64](2)
				require.NoError(t, f.repo.UpdateSlot(ctx, &s))
			}
		}
		f.repo.addSlot(talk(first.WIP.ID, 2, 1, at(14, 0), at(15, 0)))
		f.repo.addSlot(entity.TalkSlot{ScheduleID: first.WIP.ID, RoomID: ptr[int64](1), Start: at(16, 0), End: at(16, 30), SlotType: entity.SlotTypeBreak, Description: "Coffee"})
		_ = f.cache.Set(ctx, scheduleChangesKey(first.WIP.ID), "stale")

		restored, appErr := f.svc.Unfreeze(ctx, first.Released)
		require.Nil(t, appErr)

		assert.True(t, restored.IsWIP())
		assert.NotEqual(t, first.WIP.ID, restored.ID)
		assert.Equal(t, 1, f.repo.countWIPs(testEvent))
		assert.False(t, f.cache.has(scheduleChangesKey(first.WIP.ID)))

		slots := slotsOf(t, f.repo, restored.ID)
		require.Len(t, slots, 4)

		var s1Room int64
		subs := map[int64]bool{}
		for _, s := range slots {
			if s.SubmissionID != nil {
				subs[*s.SubmissionID] = true
				if *s.SubmissionID == 1 {
					s1Room = *s.RoomID
				}
			}
		}
		assert.Equal(t, map[int64]bool{1: true, 2: true}, subs)
		assert.Equal(t, int64(1), s1Room)
		assert.Equal(t, 1, countByType(slots, entity.SlotTypeBlocker))
		assert.Equal(t, 1, countByType(slots, entity.SlotTypeBreak))

		assert.Len(t, slotsOf(t, f.repo, first.Released.ID), 1)
	})

	t.Run("breaks added after the release survive without duplicating released ones", func(t *testing.T) {
		f := newFixture()
		wip := f.repo.addSchedule(entity.NewWIPSchedule(testEvent))
		f.repo.addSlot(talk(wip.ID, 1, 1, at(9, 0), at(10, 0)))
		f.repo.addSlot(entity.TalkSlot{ScheduleID: wip.ID, RoomID: ptr[int64](1), Start: at(10, 0), End: at(10, 30), SlotType: entity.SlotTypeBreak, Description: "Coffee"})

		first, appErr := f.svc.Freeze(ctx, wip, FreezeRequest{Name: "v1"})
		require.Nil(t, appErr)

		f.repo.addSlot(entity.TalkSlot{ScheduleID: first.WIP.ID, RoomID: ptr[int64](1), Start: at(12, 0), End: at(13, 0), SlotType: entity.SlotTypeBreak, Description: "Lunch"})

		restored, appErr := f.svc.Unfreeze(ctx, first.Released)
		require.Nil(t, appErr)

		slots := slotsOf(t, f.repo, restored.ID)
		require.Len(t, slots, 3)

		descriptions := []string{}
		for _, s := range slots {
			if s.SlotType == entity.SlotTypeBreak {
				descriptions = append(descriptions, s.Description)
			}
		}
		assert.ElementsMatch(t, []string{"Coffee", "Lunch"}, descriptions)
	})
}
