package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"cfp-scheduler/core/cache"
	mailEntity "cfp-scheduler/modules/mail/entity"
	"cfp-scheduler/modules/schedule/entity"
	"cfp-scheduler/modules/schedule/repository"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

var testNow = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

// at returns 2026-05-04 hh:mm UTC
func at(hh, mm int) *time.Time {
	t := time.Date(2026, 5, 4, hh, mm, 0, 0, time.UTC)
	return &t
}

func ptr[T any](v T) *T { return &v }

// ===== fake repository =====

type fakeRepo struct {
	nextScheduleID int64
	nextSlotID     int64
	schedules      map[int64]entity.Schedule
	slots          map[int64]entity.TalkSlot

	events         map[int64]entity.Event
	submissions    []entity.Submission
	rooms          []entity.Room
	tracks         []entity.Track
	speakers       []entity.SubmissionSpeaker
	availabilities []entity.Availability

	now     time.Time
	failOn  string
	failErr error
}

var _ repository.ScheduleRepositoryInterface = (*fakeRepo)(nil)

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		schedules: map[int64]entity.Schedule{},
		slots:     map[int64]entity.TalkSlot{},
		events:    map[int64]entity.Event{},
		now:       testNow,
	}
}

func (r *fakeRepo) fail(op string) error {
	if r.failOn == op {
		return r.failErr
	}
	return nil
}

func (r *fakeRepo) WithTx(_ context.Context, fn func(repo repository.ScheduleRepositoryInterface) error) error {
	schedules := make(map[int64]entity.Schedule, len(r.schedules))
	for k, v := range r.schedules {
		schedules[k] = v
	}
	slots := make(map[int64]entity.TalkSlot, len(r.slots))
	for k, v := range r.slots {
		slots[k] = v
	}
	nextSchedule, nextSlot := r.nextScheduleID, r.nextSlotID

	if err := fn(r); err != nil {
		r.schedules, r.slots = schedules, slots
		r.nextScheduleID, r.nextSlotID = nextSchedule, nextSlot
		return err
	}
	return nil
}

func (r *fakeRepo) CreateSchedule(_ context.Context, schedule *entity.Schedule) (*entity.Schedule, error) {
	if err := r.fail("CreateSchedule"); err != nil {
		return nil, err
	}
	for _, existing := range r.schedules {
		if existing.EventID != schedule.EventID {
			continue
		}
		if existing.Version == nil && schedule.Version == nil {
			return nil, &pq.Error{Code: "23505", Constraint: "schedules_one_wip_per_event"}
		}
		if existing.Version != nil && schedule.Version != nil && *existing.Version == *schedule.Version {
			return nil, &pq.Error{Code: "23505", Constraint: "schedules_event_version_key"}
		}
	}
	r.nextScheduleID++
	created := *schedule
	created.ID = r.nextScheduleID
	created.CreatedAt = r.now
	created.UpdatedAt = r.now
	r.schedules[created.ID] = created
	return &created, nil
}

func (r *fakeRepo) GetScheduleByID(_ context.Context, eventID int64, id int64) (*entity.Schedule, error) {
	s, ok := r.schedules[id]
	if !ok || s.EventID != eventID {
		return nil, nil
	}
	return &s, nil
}

func (r *fakeRepo) GetScheduleByVersion(_ context.Context, eventID int64, version string) (*entity.Schedule, error) {
	for _, s := range r.schedules {
		if s.EventID == eventID && s.Version != nil && *s.Version == version {
			return &s, nil
		}
	}
	return nil, nil
}

func (r *fakeRepo) GetWIPSchedule(_ context.Context, eventID int64) (*entity.Schedule, error) {
	for _, s := range r.schedules {
		if s.EventID == eventID && s.Version == nil {
			return &s, nil
		}
	}
	return nil, nil
}

func (r *fakeRepo) GetLatestRelease(_ context.Context, eventID int64, publishedBefore *time.Time, excludeID int64) (*entity.Schedule, error) {
	var latest *entity.Schedule
	for _, s := range r.schedules {
		if s.EventID != eventID || s.Version == nil || s.ID == excludeID {
			continue
		}
		if publishedBefore != nil && !s.Published.Before(*publishedBefore) {
			continue
		}
		if latest == nil || s.Published.After(*latest.Published) ||
			(s.Published.Equal(*latest.Published) && s.ID > latest.ID) {
			c := s
			latest = &c
		}
	}
	return latest, nil
}

func (r *fakeRepo) GetSchedulesByEventID(_ context.Context, eventID int64) ([]entity.Schedule, error) {
	var list []entity.Schedule
	for _, s := range r.schedules {
		if s.EventID == eventID {
			list = append(list, s)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if (a.Version == nil) != (b.Version == nil) {
			return a.Version == nil
		}
		if a.Published != nil && b.Published != nil && !a.Published.Equal(*b.Published) {
			return a.Published.After(*b.Published)
		}
		return a.ID > b.ID
	})
	return list, nil
}

func (r *fakeRepo) DeleteSchedule(_ context.Context, id int64) error {
	if err := r.fail("DeleteSchedule"); err != nil {
		return err
	}
	delete(r.schedules, id)
	for slotID, slot := range r.slots {
		if slot.ScheduleID == id {
			delete(r.slots, slotID)
		}
	}
	return nil
}

func (r *fakeRepo) GetSlotsByScheduleID(_ context.Context, scheduleID int64) ([]entity.TalkSlot, error) {
	list := []entity.TalkSlot{}
	for _, slot := range r.slots {
		if slot.ScheduleID == scheduleID {
			list = append(list, slot)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

func (r *fakeRepo) GetSlotsByIDs(_ context.Context, eventID int64, ids []int64) ([]entity.TalkSlot, error) {
	list := []entity.TalkSlot{}
	for _, id := range ids {
		slot, ok := r.slots[id]
		if !ok {
			continue
		}
		if s, ok := r.schedules[slot.ScheduleID]; ok && s.EventID == eventID {
			list = append(list, slot)
		}
	}
	return list, nil
}

func (r *fakeRepo) GetSlotByID(_ context.Context, scheduleID int64, id int64) (*entity.TalkSlot, error) {
	slot, ok := r.slots[id]
	if !ok || slot.ScheduleID != scheduleID {
		return nil, nil
	}
	return &slot, nil
}

func (r *fakeRepo) CreateSlot(_ context.Context, slot *entity.TalkSlot) (*entity.TalkSlot, error) {
	r.nextSlotID++
	created := *slot
	created.ID = r.nextSlotID
	created.CreatedAt = r.now
	created.UpdatedAt = r.now
	r.slots[created.ID] = created
	return &created, nil
}

func (r *fakeRepo) CreateSlots(ctx context.Context, slots []entity.TalkSlot) error {
	if err := r.fail("CreateSlots"); err != nil {
		return err
	}
	for i := range slots {
		if _, err := r.CreateSlot(ctx, &slots[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeRepo) UpdateSlot(_ context.Context, slot *entity.TalkSlot) error {
	existing, ok := r.slots[slot.ID]
	if !ok {
		return nil
	}
	updated := *slot
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = r.now
	r.slots[slot.ID] = updated
	return nil
}

func (r *fakeRepo) DeleteSlot(_ context.Context, id int64) error {
	delete(r.slots, id)
	return nil
}

func (r *fakeRepo) DeleteSlotsByType(_ context.Context, scheduleID int64, slotType entity.SlotType) error {
	for slotID, slot := range r.slots {
		if slot.ScheduleID == scheduleID && slot.SlotType == slotType {
			delete(r.slots, slotID)
		}
	}
	return nil
}

func (r *fakeRepo) GetEventByID(_ context.Context, id int64) (*entity.Event, error) {
	e, ok := r.events[id]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (r *fakeRepo) GetSubmissionsByEventID(_ context.Context, eventID int64) ([]entity.Submission, error) {
	var list []entity.Submission
	for _, s := range r.submissions {
		if s.EventID == eventID {
			list = append(list, s)
		}
	}
	return list, nil
}

func (r *fakeRepo) GetRoomsByEventID(_ context.Context, eventID int64) ([]entity.Room, error) {
	var list []entity.Room
	for _, room := range r.rooms {
		if room.EventID == eventID {
			list = append(list, room)
		}
	}
	return list, nil
}

func (r *fakeRepo) GetTracksByEventID(_ context.Context, eventID int64) ([]entity.Track, error) {
	var list []entity.Track
	for _, t := range r.tracks {
		if t.EventID == eventID {
			list = append(list, t)
		}
	}
	return list, nil
}

// speakers are not scoped by event in the fixtures
func (r *fakeRepo) GetSpeakersByEventID(_ context.Context, _ int64) ([]entity.SubmissionSpeaker, error) {
	return append([]entity.SubmissionSpeaker(nil), r.speakers...), nil
}

func (r *fakeRepo) GetAvailabilitiesByEventID(_ context.Context, eventID int64) ([]entity.Availability, error) {
	var list []entity.Availability
	for _, a := range r.availabilities {
		if a.EventID == eventID {
			list = append(list, a)
		}
	}
	return list, nil
}

// helpers

func (r *fakeRepo) addSchedule(s *entity.Schedule) *entity.Schedule {
	created, err := r.CreateSchedule(context.Background(), s)
	if err != nil {
		panic(err)
	}
	return created
}

func (r *fakeRepo) addSlot(slot entity.TalkSlot) entity.TalkSlot {
	if slot.SlotType == "" {
		slot.SlotType = entity.SlotTypeTalk
	}
	created, _ := r.CreateSlot(context.Background(), &slot)
	return *created
}

func (r *fakeRepo) countWIPs(eventID int64) int {
	n := 0
	for _, s := range r.schedules {
		if s.EventID == eventID && s.Version == nil {
			n++
		}
	}
	return n
}

// ===== fake cache =====

type fakeCache struct {
	mu     sync.Mutex
	values map[string]string
	getErr error
	sets   int
}

var _ cache.Cache = (*fakeCache)(nil)

func newFakeCache() *fakeCache {
	return &fakeCache{values: map[string]string{}}
}

func (c *fakeCache) Get(_ context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return "", c.getErr
	}
	v, ok := c.values[key]
	if !ok {
		return "", cache.ErrCacheMiss
	}
	return v, nil
}

func (c *fakeCache) Set(_ context.Context, key string, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = value
	c.sets++
	return nil
}

func (c *fakeCache) Del(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.values, k)
	}
	return nil
}

func (c *fakeCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.values[key]
	return ok
}

// ===== fake mail queue =====

type sentMail struct {
	recipient string
	template  string
	data      map[string]any
}

type fakeMail struct {
	sent []sentMail
	err  error
}

func (m *fakeMail) Enqueue(_ context.Context, eventID int64, recipient string, template string, data map[string]any) (*mailEntity.QueuedMail, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.sent = append(m.sent, sentMail{recipient: recipient, template: template, data: data})
	return &mailEntity.QueuedMail{ID: uuid.New(), EventID: eventID, Recipient: recipient, Template: template}, nil
}

func (m *fakeMail) recipients() []string {
	var out []string
	for _, s := range m.sent {
		out = append(out, s.recipient)
	}
	sort.Strings(out)
	return out
}

// ===== fake uploader =====

type fakeUploader struct {
	keys   []string
	bodies [][]byte
	err    error
}

func (u *fakeUploader) Upload(_ context.Context, key string, body []byte, _ string) (string, error) {
	if u.err != nil {
		return "", u.err
	}
	u.keys = append(u.keys, key)
	u.bodies = append(u.bodies, body)
	return "s3://exports/" + key, nil
}

var errBoom = errors.New("boom")

// ===== fixture =====

const testEvent int64 = 1

// fixture is a small event: three rooms, four submissions with one speaker each
// (S4 shares Ada with S1), all accepted except S3.
type fixture struct {
	repo  *fakeRepo
	cache *fakeCache
	mail  *fakeMail
	svc   *ScheduleService
}

func newFixture() *fixture {
	repo := newFakeRepo()
	repo.events[testEvent] = entity.Event{ID: testEvent, Name: "PyCon Test", Slug: "pycon-test", Timezone: "UTC"}
	repo.rooms = []entity.Room{
		{ID: 1, EventID: testEvent, Name: "Room 1", Position: 1},
		{ID: 2, EventID: testEvent, Name: "Room 2", Position: 2},
		{ID: 3, EventID: testEvent, Name: "Empty Hall", Position: 3},
	}
	repo.tracks = []entity.Track{
		{ID: 1, EventID: testEvent, Name: "Web Dev", Color: "#ff0000"},
		{ID: 2, EventID: testEvent, Name: "Unused", Color: "#00ff00"},
	}
	repo.submissions = []entity.Submission{
		{ID: 1, EventID: testEvent, Code: "S1", Title: "First", State: entity.SubmissionStateConfirmed, SlotCount: 1, DurationMinutes: 30, TrackID: ptr[int64](1)},
		{ID: 2, EventID: testEvent, Code: "S2", Title: "Second", State: entity.SubmissionStateAccepted, SlotCount: 1, DurationMinutes: 30},
		{ID: 3, EventID: testEvent, Code: "S3", Title: "Third", State: entity.SubmissionStateSubmitted, SlotCount: 1, DurationMinutes: 30},
		{ID: 4, EventID: testEvent, Code: "S4", Title: "Fourth", State: entity.SubmissionStateAccepted, SlotCount: 1, DurationMinutes: 45},
	}
	ada := entity.Speaker{ID: 10, Code: "ADA", Name: "Ada", Email: "ada@example.org"}
	repo.speakers = []entity.SubmissionSpeaker{
		{SubmissionID: 1, Speaker: ada},
		{SubmissionID: 2, Speaker: entity.Speaker{ID: 11, Code: "BOB", Name: "Bob", Email: "bob@example.org"}},
		{SubmissionID: 3, Speaker: entity.Speaker{ID: 12, Code: "CY", Name: "Cy", Email: "cy@example.org"}},
		{SubmissionID: 4, Speaker: ada},
	}

	c := newFakeCache()
	m := &fakeMail{}
	svc := NewScheduleService(repo, c, m)
	svc.now = func() time.Time { return testNow }

	return &fixture{repo: repo, cache: c, mail: m, svc: svc}
}

func talk(scheduleID, submissionID, roomID int64, start, end *time.Time) entity.TalkSlot {
	return entity.TalkSlot{
		ScheduleID:   scheduleID,
		SubmissionID: ptr(submissionID),
		RoomID:       ptr(roomID),
		Start:        start,
		End:          end,
		SlotType:     entity.SlotTypeTalk,
	}
}
