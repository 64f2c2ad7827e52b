package service

import (
	"context"
	"testing"
	"time"

	"cfp-scheduler/modules/schedule/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// twoReleases builds v1 (S1 in Room 1, S3 in Room 1) and v2 (S1 moved to Room 2,
// S2 added, S3 dropped) and a WIP identical to v2.
func twoReleases(t *testing.T, f *fixture) (v1, v2, wip *entity.Schedule) {
	t.Helper()
	v1 = f.repo.addSchedule(entity.NewReleasedSchedule(testEvent, "v1", testNow, ""))
	f.repo.addSlot(talk(v1.ID, 1, 1, at(10, 0), at(10, 30)))
	f.repo.addSlot(talk(v1.ID, 3, 1, at(11, 0), at(11, 30)))

	v2 = f.repo.addSchedule(entity.NewReleasedSchedule(testEvent, "v2", testNow.Add(24*time.Hour), ""))
	f.repo.addSlot(talk(v2.ID, 1, 2, at(10, 0), at(10, 30)))
	f.repo.addSlot(talk(v2.ID, 2, 1, at(11, 0), at(11, 30)))

	wip = f.repo.addSchedule(entity.NewWIPSchedule(testEvent))
	f.repo.addSlot(talk(wip.ID, 1, 2, at(10, 0), at(10, 30)))
	f.repo.addSlot(talk(wip.ID, 2, 1, at(11, 0), at(11, 30)))
	return v1, v2, wip
}

func TestCalculateChanges_FirstSchedule(t *testing.T) {
	f := newFixture()
	wip := f.repo.addSchedule(entity.NewWIPSchedule(testEvent))
	f.repo.addSlot(talk(wip.ID, 1, 1, at(10, 0), at(10, 30)))

	changes, appErr := f.svc.CalculateChanges(context.Background(), wip)
	require.Nil(t, appErr)

	assert.Equal(t, ChangeActionCreate, changes.Action)
	assert.Zero(t, changes.Count)
	assert.NotNil(t, changes.NewTalks)
	assert.Empty(t, changes.NewTalks)
	assert.Empty(t, changes.CanceledTalks)
	assert.Empty(t, changes.MovedTalks)
}

func TestCalculateChanges_BetweenReleases(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	v1, v2, wip := twoReleases(t, f)

	t.Run("oldest release has nothing before it", func(t *testing.T) {
		changes, appErr := f.svc.CalculateChanges(ctx, v1)
		require.Nil(t, appErr)
		assert.Equal(t, ChangeActionCreate, changes.Action)
	})

	t.Run("v2 against v1", func(t *testing.T) {
		changes, appErr := f.svc.CalculateChanges(ctx, v2)
		require.Nil(t, appErr)

		assert.Equal(t, ChangeActionUpdate, changes.Action)
		assert.Equal(t, 3, changes.Count)

		require.Len(t, changes.MovedTalks, 1)
		moved := changes.MovedTalks[0]
		assert.Equal(t, "S1", moved.Submission.Code)
		assert.Equal(t, "Room 1", moved.OldRoom.Name)
		assert.Equal(t, "Room 2", moved.NewRoom.Name)
		assert.Equal(t, *at(10, 0), moved.OldStart)
		assert.Equal(t, *at(10, 0), moved.NewStart)

		require.Len(t, changes.NewTalks, 1)
		assert.Equal(t, "S2", changes.NewTalks[0].Submission.Code)
		require.Len(t, changes.CanceledTalks, 1)
		assert.Equal(t, "S3", changes.CanceledTalks[0].Submission.Code)
	})

	t.Run("WIP identical to latest release", func(t *testing.T) {
		changes, appErr := f.svc.CalculateChanges(ctx, wip)
		require.Nil(t, appErr)
		assert.Equal(t, ChangeActionUpdate, changes.Action)
		assert.Zero(t, changes.Count)
	})
}

func TestDiffSlots(t *testing.T) {
	submissions := indexSubmissions(newFixture().repo.submissions)
	rooms := indexRooms(newFixture().repo.rooms)

	tests := []struct {
		name                 string
		old, new             []entity.TalkSlot
		wantNew, wantCancel  int
		wantMoved, wantCount int
	}{
		{
			name: "identical placement",
			old:  []entity.TalkSlot{talk(1, 1, 1, at(9, 0), at(10, 0))},
			new:  []entity.TalkSlot{talk(2, 1, 1, at(9, 0), at(10, 0))},
		},
		{
			name:      "only in newer snapshot",
			new:       []entity.TalkSlot{talk(2, 2, 1, at(9, 0), at(10, 0))},
			wantNew:   1,
			wantCount: 1,
		},
		{
			name:       "removed",
			old:        []entity.TalkSlot{talk(1, 2, 1, at(9, 0), at(10, 0))},
			wantCancel: 1,
			wantCount:  1,
		},
		{
			name:      "start changed",
			old:       []entity.TalkSlot{talk(1, 1, 1, at(9, 0), at(10, 0))},
			new:       []entity.TalkSlot{talk(2, 1, 1, at(9, 30), at(10, 30))},
			wantMoved: 1,
			wantCount: 1,
		},
		{
			name:      "end change alone is not a move",
			old:       []entity.TalkSlot{talk(1, 1, 1, at(9, 0), at(10, 0))},
			new:       []entity.TalkSlot{talk(2, 1, 1, at(9, 0), at(11, 0))},
			wantCount: 0,
		},
		{
			name: "slots without end are ignored",
			old:  []entity.TalkSlot{talk(1, 1, 1, at(9, 0), nil)},
			new:  []entity.TalkSlot{talk(2, 1, 2, at(9, 0), nil)},
		},
		{
			name: "extra occurrence is new, existing paired by position",
			old:  []entity.TalkSlot{talk(1, 1, 1, at(9, 0), at(10, 0))},
			new: []entity.TalkSlot{
				talk(2, 1, 1, at(9, 0), at(10, 0)),
				talk(2, 1, 1, at(14, 0), at(15, 0)),
			},
			wantNew:   1,
			wantCount: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			changes := diffSlots(tt.old, tt.new, submissions, rooms)
			assert.Equal(t, ChangeActionUpdate, changes.Action)
			assert.Len(t, changes.NewTalks, tt.wantNew)
			assert.Len(t, changes.CanceledTalks, tt.wantCancel)
			assert.Len(t, changes.MovedTalks, tt.wantMoved)
			assert.Equal(t, tt.wantCount, changes.Count)
		})
	}
}
