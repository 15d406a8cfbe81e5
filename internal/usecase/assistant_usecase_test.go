package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carlink/internal/domain/entity"
	"carlink/pkg/errors"
)

type fakeStore struct {
	data map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string]string)}
}

func (s *fakeStore) Get(key string) (string, bool) {
	v, ok := s.data[key]
	return v, ok
}

func (s *fakeStore) Set(key, value string) { s.data[key] = value }
func (s *fakeStore) Delete(key string)     { delete(s.data, key) }

type fakeResponder struct {
	calls int
	reply func(history []entity.ChatTurn, text string) (*entity.AssistantReply, error)
}

func (r *fakeResponder) Reply(ctx context.Context, history []entity.ChatTurn, text string) (*entity.AssistantReply, error) {
	r.calls++
	return r.reply(history, text)
}

func echoResponder() *fakeResponder {
	return &fakeResponder{reply: func(history []entity.ChatTurn, text string) (*entity.AssistantReply, error) {
		return &entity.AssistantReply{Text: "you said: " + text}, nil
	}}
}

func newAssistantFixture(responder *fakeResponder) (*AssistantUseCase, *fakeStore, *fakeVehicleRepo) {
	store := newFakeStore()
	vehicleRepo := newFakeVehicleRepo()
	uc := NewAssistantUseCase(store, responder, vehicleRepo, 30*time.Minute)
	return uc, store, vehicleRepo
}

func writeTranscript(store *fakeStore, userID string, turns []entity.ChatTurn) {
	data, _ := json.Marshal(turns)
	store.Set(transcriptKeyPrefix+userID, string(data))
}

func sampleTranscript(n int) []entity.ChatTurn {
	turns := []entity.ChatTurn{{Origin: entity.TurnOriginAssistant, Text: greetingText, Timestamp: time.Now().Add(-20 * time.Minute)}}
	for i := 1; i < n; i++ {
		origin := entity.TurnOriginUser
		if i%2 == 0 {
			origin = entity.TurnOriginAssistant
		}
		turns = append(turns, entity.ChatTurn{
			Origin:    origin,
			Text:      fmt.Sprintf("turn %d", i),
			Timestamp: time.Now().Add(time.Duration(i-20) * time.Minute),
		})
	}
	return turns
}

func TestFirstRunStartsWithGreeting(t *testing.T) {
	uc, _, _ := newAssistantFixture(echoResponder())

	transcript := uc.Transcript("u1")
	require.Len(t, transcript, 1)
	assert.Equal(t, entity.TurnOriginAssistant, transcript[0].Origin)
	assert.Equal(t, greetingText, transcript[0].Text)
}

func TestRestorePreservesRecentHistory(t *testing.T) {
	uc, store, _ := newAssistantFixture(echoResponder())
	writeTranscript(store, "u1", sampleTranscript(5))
	store.Set(lastActiveKeyPrefix+"u1", time.Now().Add(-10*time.Minute).UTC().Format(time.RFC3339))

	transcript := uc.Transcript("u1")
	assert.Len(t, transcript, 5, "10 idle minutes must not clear history")
}

func TestTerminationHeuristicClearsStaleHistory(t *testing.T) {
	uc, store, _ := newAssistantFixture(echoResponder())
	writeTranscript(store, "u1", sampleTranscript(5))
	store.Set(lastActiveKeyPrefix+"u1", time.Now().Add(-31*time.Minute).UTC().Format(time.RFC3339))

	transcript := uc.Transcript("u1")
	require.Len(t, transcript, 1, "31 idle minutes must reset to the greeting")
	assert.Equal(t, greetingText, transcript[0].Text)
}

func TestMissingActivityMarkerResets(t *testing.T) {
	uc, store, _ := newAssistantFixture(echoResponder())
	writeTranscript(store, "u1", sampleTranscript(5))
	// No last-active marker at all: treated as a fresh start.

	transcript := uc.Transcript("u1")
	assert.Len(t, transcript, 1)
}

func TestUnreadableTranscriptFallsBackToGreeting(t *testing.T) {
	uc, store, _ := newAssistantFixture(echoResponder())
	store.Set(transcriptKeyPrefix+"u1", "{not valid json")
	store.Set(lastActiveKeyPrefix+"u1", time.Now().UTC().Format(time.RFC3339))

	transcript := uc.Transcript("u1")
	require.Len(t, transcript, 1)
	assert.Equal(t, greetingText, transcript[0].Text)
}

func TestRecordActivityKeepsSessionAlive(t *testing.T) {
	uc, store, _ := newAssistantFixture(echoResponder())
	writeTranscript(store, "u1", sampleTranscript(3))
	uc.RecordActivity("u1")

	assert.Len(t, uc.Transcript("u1"), 3)
}

func TestSendTurnAppendsUserAndAssistantTurns(t *testing.T) {
	uc, store, _ := newAssistantFixture(echoResponder())
	uc.RecordActivity("u1")

	transcript, err := uc.SendTurn(context.Background(), "u1", "  find SUVs ")
	require.NoError(t, err)
	require.Len(t, transcript, 3)
	assert.Equal(t, greetingText, transcript[0].Text)
	assert.Equal(t, entity.TurnOriginUser, transcript[1].Origin)
	assert.Equal(t, "find SUVs", transcript[1].Text, "input must be trimmed")
	assert.Equal(t, entity.TurnOriginAssistant, transcript[2].Origin)

	// The persisted copy is the full transcript with RFC 3339 timestamps.
	raw, ok := store.Get(transcriptKeyPrefix + "u1")
	require.True(t, ok)

	var persisted []struct {
		Origin    string `json:"origin"`
		Timestamp string `json:"timestamp"`
	}
	require.NoError(t, json.Unmarshal([]byte(raw), &persisted))
	require.Len(t, persisted, 3)
	for _, turn := range persisted {
		_, err := time.Parse(time.RFC3339, turn.Timestamp)
		assert.NoError(t, err, "timestamp %q must be RFC 3339", turn.Timestamp)
	}
}

func TestSendTurnDoesNotEchoPendingTurnInHistory(t *testing.T) {
	var gotHistory []entity.ChatTurn
	responder := &fakeResponder{reply: func(history []entity.ChatTurn, text string) (*entity.AssistantReply, error) {
		gotHistory = history
		return &entity.AssistantReply{Text: "ok"}, nil
	}}
	uc, _, _ := newAssistantFixture(responder)

	_, err := uc.SendTurn(context.Background(), "u1", "hello")
	require.NoError(t, err)
	require.Len(t, gotHistory, 1, "history carries prior turns only; the new text goes separately")
	assert.Equal(t, greetingText, gotHistory[0].Text)
}

func TestSendTurnRejectsEmptyText(t *testing.T) {
	responder := echoResponder()
	uc, _, _ := newAssistantFixture(responder)

	_, err := uc.SendTurn(context.Background(), "u1", "   ")
	require.Error(t, err)
	assert.True(t, errors.Is(err, "PRECONDITION_FAILED"))
	assert.Equal(t, 0, responder.calls)
}

func TestSendTurnFailureAppendsSingleFallbackTurn(t *testing.T) {
	responder := &fakeResponder{reply: func(history []entity.ChatTurn, text string) (*entity.AssistantReply, error) {
		return nil, fmt.Errorf("connection reset")
	}}
	uc, _, _ := newAssistantFixture(responder)

	transcript, err := uc.SendTurn(context.Background(), "u1", "find SUVs")
	require.NoError(t, err, "remote failures never propagate")
	require.Len(t, transcript, 3)
	assert.Equal(t, fallbackText, transcript[2].Text)

	fallbacks := 0
	for _, turn := range transcript {
		if turn.Text == fallbackText {
			fallbacks++
		}
	}
	assert.Equal(t, 1, fallbacks)
}

func TestVehicleEnrichmentUsesPrefetchCache(t *testing.T) {
	responder := &fakeResponder{reply: func(history []entity.ChatTurn, text string) (*entity.AssistantReply, error) {
		return &entity.AssistantReply{Text: "take a look", VehicleIDs: []string{"v1"}}, nil
	}}
	uc, _, vehicleRepo := newAssistantFixture(responder)
	vehicleRepo.vehicles["v1"] = &entity.Vehicle{ID: "v1", Make: "Toyota", Model: "RAV4"}

	_, err := uc.SendTurn(context.Background(), "u1", "show me SUVs")
	require.NoError(t, err)
	transcript, err := uc.SendTurn(context.Background(), "u1", "tell me more about it")
	require.NoError(t, err)

	assert.Equal(t, 1, vehicleRepo.getCalls["v1"], "second reference must hit the cache")
	last := transcript[len(transcript)-1]
	require.Len(t, last.Vehicles, 1)
	assert.Equal(t, "RAV4", last.Vehicles[0].Model)
}

func TestVehicleEnrichmentIsCapped(t *testing.T) {
	var ids []string
	for i := 0; i < 12; i++ {
		ids = append(ids, fmt.Sprintf("v%d", i))
	}
	responder := &fakeResponder{reply: func(history []entity.ChatTurn, text string) (*entity.AssistantReply, error) {
		return &entity.AssistantReply{Text: "plenty of choice", VehicleIDs: ids}, nil
	}}
	uc, _, vehicleRepo := newAssistantFixture(responder)
	for _, id := range ids {
		vehicleRepo.vehicles[id] = &entity.Vehicle{ID: id}
	}

	transcript, err := uc.SendTurn(context.Background(), "u1", "show me everything")
	require.NoError(t, err)
	last := transcript[len(transcript)-1]
	assert.Len(t, last.Vehicles, maxVehiclesPerReply)
}

func TestFailedVehicleLookupsAreSkippedNotCached(t *testing.T) {
	responder := &fakeResponder{reply: func(history []entity.ChatTurn, text string) (*entity.AssistantReply, error) {
		return &entity.AssistantReply{Text: "two options", VehicleIDs: []string{"v1", "missing"}}, nil
	}}
	uc, _, vehicleRepo := newAssistantFixture(responder)
	vehicleRepo.vehicles["v1"] = &entity.Vehicle{ID: "v1"}

	transcript, err := uc.SendTurn(context.Background(), "u1", "what do you have?")
	require.NoError(t, err)
	last := transcript[len(transcript)-1]
	assert.Len(t, last.Vehicles, 1, "a reply may carry fewer vehicles than ids")
	assert.Equal(t, []string{"v1"}, last.VehicleIDs)
}

func TestClearResetsTranscriptCacheAndStorage(t *testing.T) {
	responder := &fakeResponder{reply: func(history []entity.ChatTurn, text string) (*entity.AssistantReply, error) {
		return &entity.AssistantReply{Text: "sure", VehicleIDs: []string{"v1"}}, nil
	}}
	uc, store, vehicleRepo := newAssistantFixture(responder)
	vehicleRepo.vehicles["v1"] = &entity.Vehicle{ID: "v1"}

	_, err := uc.SendTurn(context.Background(), "u1", "show me v1")
	require.NoError(t, err)

	transcript := uc.Clear("u1")
	require.Len(t, transcript, 1)
	assert.Equal(t, greetingText, transcript[0].Text)

	_, ok := store.Get(transcriptKeyPrefix + "u1")
	assert.False(t, ok, "persisted history must be removed")

	// The vehicle cache was dropped too: the next reference re-fetches.
	uc.RecordActivity("u1")
	_, err = uc.SendTurn(context.Background(), "u1", "show me v1 again")
	require.NoError(t, err)
	assert.Equal(t, 2, vehicleRepo.getCalls["v1"])
}

type blockingVehicleRepo struct {
	entered chan struct{}
	release chan struct{}
}

func (r *blockingVehicleRepo) GetByID(ctx context.Context, id string) (*entity.Vehicle, error) {
	r.entered <- struct{}{}
	<-r.release
	return &entity.Vehicle{ID: id}, nil
}

func (r *blockingVehicleRepo) List(ctx context.Context, filter map[string]interface{}, limit, offset int) ([]*entity.Vehicle, int64, error) {
	return nil, 0, nil
}

func TestTranscriptReadsDoNotWaitOnVehicleLookups(t *testing.T) {
	repo := &blockingVehicleRepo{entered: make(chan struct{}), release: make(chan struct{})}
	responder := &fakeResponder{reply: func(history []entity.ChatTurn, text string) (*entity.AssistantReply, error) {
		return &entity.AssistantReply{Text: "take a look", VehicleIDs: []string{"v1"}}, nil
	}}
	uc := NewAssistantUseCase(newFakeStore(), responder, repo, 30*time.Minute)

	done := make(chan struct{})
	go func() {
		_, _ = uc.SendTurn(context.Background(), "u1", "show me v1")
		close(done)
	}()

	<-repo.entered

	read := make(chan int)
	go func() {
		read <- len(uc.Transcript("u1"))
	}()

	select {
	case n := <-read:
		assert.Equal(t, 2, n, "greeting plus the pending user turn")
	case <-time.After(2 * time.Second):
		t.Fatal("transcript read blocked behind a vehicle lookup")
	}

	close(repo.release)
	<-done
}

func TestClosedSessionDoesNotMutateOnResume(t *testing.T) {
	uc, _, _ := newAssistantFixture(echoResponder())
	responder := &fakeResponder{reply: func(history []entity.ChatTurn, text string) (*entity.AssistantReply, error) {
		// Session ends while the call is in flight.
		uc.Session("u1").Close()
		return &entity.AssistantReply{Text: "too late"}, nil
	}}
	uc.responder = responder

	transcript, err := uc.SendTurn(context.Background(), "u1", "hello")
	require.NoError(t, err)
	require.Len(t, transcript, 2, "greeting plus the optimistic user turn only")
	for _, turn := range transcript {
		assert.NotEqual(t, "too late", turn.Text)
	}
}
