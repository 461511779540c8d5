package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/makerlabExp/pickupConnect/internal/dto"
	"github.com/makerlabExp/pickupConnect/internal/feed"
	"github.com/makerlabExp/pickupConnect/internal/models"
)

type pickupRepoStub struct {
	created []models.PickupRequest
	saved   []models.PickupRequest
	err     error
}

func (r *pickupRepoStub) List(ctx context.Context) ([]models.PickupRequest, error) {
	return nil, nil
}

func (r *pickupRepoStub) GetByStudent(ctx context.Context, studentID string) (models.PickupRequest, error) {
	return models.PickupRequest{}, nil
}

func (r *pickupRepoStub) Create(ctx context.Context, request *models.PickupRequest) error {
	if r.err != nil {
		return r.err
	}
	r.created = append(r.created, *request)
	return nil
}

func (r *pickupRepoStub) Save(ctx context.Context, request *models.PickupRequest) error {
	if r.err != nil {
		return r.err
	}
	r.saved = append(r.saved, *request)
	return nil
}

func (r *pickupRepoStub) UpdateFields(ctx context.Context, id string, fields map[string]interface{}) error {
	return r.err
}

func (r *pickupRepoStub) DeleteAll(ctx context.Context) error {
	return r.err
}

func TestUpdateStatusCreatesRequest(t *testing.T) {
	state := seededStore()
	repo := &pickupRepoStub{}
	svc := NewPickupService(state, repo, testBroker(), testValidator(), testLogger())

	request, err := svc.UpdateStatus(context.Background(), dto.StatusUpdateRequest{
		StudentID: "s1",
		Status:    "on_way",
	})
	require.NoError(t, err)
	require.NotEmpty(t, request.ID)
	require.Equal(t, "s1", request.StudentID)
	require.Equal(t, "p1", request.ParentID)
	require.Equal(t, models.StatusOnWay, request.Status)
	require.Len(t, repo.created, 1)
	require.Empty(t, repo.saved)

	mirrored, ok := state.PickupByStudent("s1")
	require.True(t, ok)
	require.Equal(t, models.StatusOnWay, mirrored.Status)
}

func TestUpdateStatusArrivedRearmsAnnouncer(t *testing.T) {
	state := seededStore()
	svc := NewPickupService(state, nil, testBroker(), testValidator(), testLogger())

	request, err := svc.UpdateStatus(context.Background(), dto.StatusUpdateRequest{StudentID: "s1", Status: "on_way"})
	require.NoError(t, err)

	// Simulate a completed announcement cycle.
	request.HasAnnounced = true
	request.AIAnnouncement = "old text"
	request.AudioBase64 = "b2xk"
	state.PutPickup(request)

	updated, err := svc.UpdateStatus(context.Background(), dto.StatusUpdateRequest{StudentID: "s1", Status: "arrived"})
	require.NoError(t, err)
	require.Equal(t, models.StatusArrived, updated.Status)
	require.False(t, updated.HasAnnounced)
	require.Empty(t, updated.AIAnnouncement)
	require.Empty(t, updated.AudioBase64)
}

func TestUpdateStatusSurvivesPersistenceFailure(t *testing.T) {
	state := seededStore()
	repo := &pickupRepoStub{err: errors.New("backend down")}
	svc := NewPickupService(state, repo, testBroker(), testValidator(), testLogger())

	request, err := svc.UpdateStatus(context.Background(), dto.StatusUpdateRequest{StudentID: "s1", Status: "arrived"})
	require.NoError(t, err)
	require.Equal(t, models.StatusArrived, request.Status)
	require.False(t, request.HasAnnounced)

	// The mirror records the transition even though the backend write failed.
	mirrored, ok := state.PickupByStudent("s1")
	require.True(t, ok)
	require.Equal(t, models.StatusArrived, mirrored.Status)
	require.False(t, mirrored.HasAnnounced)
}

func TestUpdateStatusUnknownStudent(t *testing.T) {
	svc := NewPickupService(seededStore(), nil, testBroker(), testValidator(), testLogger())

	_, err := svc.UpdateStatus(context.Background(), dto.StatusUpdateRequest{StudentID: "ghost", Status: "arrived"})
	require.ErrorIs(t, err, ErrUnknownStudent)
}

func TestUpdateStatusRejectsUnknownStatus(t *testing.T) {
	svc := NewPickupService(seededStore(), nil, testBroker(), testValidator(), testLogger())

	_, err := svc.UpdateStatus(context.Background(), dto.StatusUpdateRequest{StudentID: "s1", Status: "teleported"})
	require.Error(t, err)
}

func TestUpdateStatusPublishesFeedEvent(t *testing.T) {
	broker := testBroker()
	events, cleanup := broker.Subscribe()
	defer cleanup()

	svc := NewPickupService(seededStore(), nil, broker, testValidator(), testLogger())

	_, err := svc.UpdateStatus(context.Background(), dto.StatusUpdateRequest{StudentID: "s1", Status: "on_way"})
	require.NoError(t, err)

	select {
	case event := <-events:
		require.Equal(t, feed.TablePickups, event.Table)
		require.Equal(t, feed.TypeInsert, event.Type)
		require.Equal(t, uint64(1), event.Version)
	case <-time.After(time.Second):
		t.Fatal("no feed event published")
	}
}

func TestSendMessageAppendsToThread(t *testing.T) {
	state := seededStore()
	svc := NewPickupService(state, nil, testBroker(), testValidator(), testLogger())

	request, err := svc.SendMessage(context.Background(), dto.ChatSendRequest{
		StudentID: "s1",
		Text:      "On my way!",
		Sender:    models.SenderParent,
	})
	require.NoError(t, err)
	require.Equal(t, models.StatusScheduled, request.Status)

	messages := request.Messages()
	require.Len(t, messages, 1)
	require.Equal(t, models.SenderParent, messages[0].Sender)
	require.Equal(t, "On my way!", messages[0].Text)
	require.NotEmpty(t, messages[0].ID)

	second, err := svc.SendMessage(context.Background(), dto.ChatSendRequest{
		StudentID: "s1",
		Text:      "Almost there",
		Sender:    models.SenderStudent,
	})
	require.NoError(t, err)
	require.Equal(t, request.ID, second.ID)
	require.Len(t, second.Messages(), 2)
}

func TestSendMessageStripsMarkup(t *testing.T) {
	svc := NewPickupService(seededStore(), nil, testBroker(), testValidator(), testLogger())

	request, err := svc.SendMessage(context.Background(), dto.ChatSendRequest{
		StudentID: "s1",
		Text:      "<script>alert('x')</script>hello",
		Sender:    models.SenderStudent,
	})
	require.NoError(t, err)
	require.Equal(t, "hello", request.Messages()[0].Text)
}

func TestSendMessageEmptyAfterSanitize(t *testing.T) {
	svc := NewPickupService(seededStore(), nil, testBroker(), testValidator(), testLogger())

	_, err := svc.SendMessage(context.Background(), dto.ChatSendRequest{
		StudentID: "s1",
		Text:      "<script>alert('x')</script>",
		Sender:    models.SenderStudent,
	})
	require.Error(t, err)
}

func TestQueueFiltersByDayAndClassroom(t *testing.T) {
	state := seededStore()
	svc := NewPickupService(state, nil, testBroker(), testValidator(), testLogger())

	state.PutPickup(models.PickupRequest{
		ID:        "today-salle1",
		StudentID: "s1",
		Status:    models.StatusArrived,
		Timestamp: time.Now().UnixMilli(),
	})
	state.PutPickup(models.PickupRequest{
		ID:        "today-diy",
		StudentID: "s2",
		Status:    models.StatusOnWay,
		Timestamp: time.Now().UnixMilli(),
	})
	state.PutPickup(models.PickupRequest{
		ID:        "yesterday",
		StudentID: "s1",
		Status:    models.StatusCompleted,
		Timestamp: time.Now().Add(-48 * time.Hour).UnixMilli(),
	})
	state.PutPickup(models.PickupRequest{
		ID:        "not-started",
		StudentID: "s3",
		Status:    models.StatusScheduled,
		Timestamp: time.Now().UnixMilli(),
	})

	queue, err := svc.Queue(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, queue, 2)

	salle1, err := svc.Queue(context.Background(), "Salle 1")
	require.NoError(t, err)
	require.Len(t, salle1, 1)
	require.Equal(t, "today-salle1", salle1[0].ID)
}

func TestQueueDayBoundaryIsLocalMidnight(t *testing.T) {
	state := seededStore()
	svc := NewPickupService(state, nil, testBroker(), testValidator(), testLogger())

	now := time.Now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	state.PutPickup(models.PickupRequest{
		ID:        "at-midnight",
		StudentID: "s1",
		Status:    models.StatusOnWay,
		Timestamp: midnight.UnixMilli(),
	})
	state.PutPickup(models.PickupRequest{
		ID:        "before-midnight",
		StudentID: "s2",
		Status:    models.StatusOnWay,
		Timestamp: midnight.Add(-time.Minute).UnixMilli(),
	})

	queue, err := svc.Queue(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, queue, 1)
	require.Equal(t, "at-midnight", queue[0].ID)
}

func TestAudioReturnsCachedPayload(t *testing.T) {
	state := seededStore()
	state.PutPickup(models.PickupRequest{
		ID:             "r1",
		StudentID:      "s1",
		Status:         models.StatusArrived,
		AIAnnouncement: "Attention please.",
		AudioBase64:    "UklGRg==",
	})
	svc := NewPickupService(state, nil, testBroker(), testValidator(), testLogger())

	resp, err := svc.Audio(context.Background(), "r1")
	require.NoError(t, err)
	require.Equal(t, "r1", resp.RequestID)
	require.Equal(t, "UklGRg==", resp.AudioBase64)
	require.Equal(t, "Attention please.", resp.Text)

	_, err = svc.Audio(context.Background(), "missing")
	require.ErrorIs(t, err, ErrRequestNotFound)
}

func TestAudioWithoutCache(t *testing.T) {
	state := seededStore()
	state.PutPickup(models.PickupRequest{ID: "r1", StudentID: "s1", Status: models.StatusArrived})
	svc := NewPickupService(state, nil, testBroker(), testValidator(), testLogger())

	_, err := svc.Audio(context.Background(), "r1")
	require.ErrorIs(t, err, ErrNoAudio)
}

func TestMarkAnnounced(t *testing.T) {
	state := seededStore()
	state.PutPickup(models.PickupRequest{ID: "r1", StudentID: "s1", Status: models.StatusArrived})
	svc := NewPickupService(state, nil, testBroker(), testValidator(), testLogger())

	request, err := svc.MarkAnnounced(context.Background(), "r1")
	require.NoError(t, err)
	require.True(t, request.HasAnnounced)

	_, err = svc.MarkAnnounced(context.Background(), "missing")
	require.ErrorIs(t, err, ErrRequestNotFound)
}
