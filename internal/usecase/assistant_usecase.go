package usecase

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"sync"
	"time"

	"carlink/internal/domain/entity"
	"carlink/internal/domain/repository"
	"carlink/internal/infrastructure/ratelimit"
	"carlink/pkg/errors"
)

const (
	transcriptKeyPrefix = "assistant:transcript:"
	lastActiveKeyPrefix = "assistant:last_active:"

	greetingText = "Hi! I'm your Carlink assistant. Ask me anything about the vehicles on the marketplace."
	fallbackText = "Sorry, I ran into a problem answering that. Please try again in a moment."

	// At most this many referenced vehicles are resolved per reply.
	maxVehiclesPerReply = 8
)

// KeyValueStore is the durable local store behind assistant sessions.
// Implementations log failures instead of returning them.
type KeyValueStore interface {
	Get(key string) (string, bool)
	Set(key, value string)
	Delete(key string)
}

// Responder is the remote assistant collaborator.
type Responder interface {
	Reply(ctx context.Context, history []entity.ChatTurn, text string) (*entity.AssistantReply, error)
}

// AssistantUseCase owns one assistant session per user: a bounded transcript
// persisted through the local store, a per-session vehicle prefetch cache,
// and the elapsed-time heuristic that treats a long-idle client as a fresh
// start.
type AssistantUseCase struct {
	store       KeyValueStore
	responder   Responder
	vehicleRepo repository.VehicleRepository
	rateLimiter *ratelimit.RateLimiter
	idleTimeout time.Duration
	now         func() time.Time

	mu       sync.Mutex
	sessions map[string]*AssistantSession
}

func NewAssistantUseCase(
	store KeyValueStore,
	responder Responder,
	vehicleRepo repository.VehicleRepository,
	idleTimeout time.Duration,
) *AssistantUseCase {
	rateLimiter := ratelimit.NewRateLimiter()
	rateLimiter.StartCleanupRoutine()

	return &AssistantUseCase{
		store:       store,
		responder:   responder,
		vehicleRepo: vehicleRepo,
		rateLimiter: rateLimiter,
		idleTimeout: idleTimeout,
		now:         time.Now,
		sessions:    make(map[string]*AssistantSession),
	}
}

// Session returns the user's session, restoring persisted history on first
// access and applying the termination heuristic on every access so stale
// history is cleared before the user sees it.
func (uc *AssistantUseCase) Session(userID string) *AssistantSession {
	uc.mu.Lock()
	session, ok := uc.sessions[userID]
	if !ok {
		session = &AssistantSession{
			userID:       userID,
			uc:           uc,
			vehicleCache: make(map[string]*entity.Vehicle),
		}
		session.restore()
		uc.sessions[userID] = session
	}
	uc.mu.Unlock()

	session.checkTermination()
	return session
}

// RecordActivity overwrites the persisted last-active marker. The client
// calls this on every foregrounding, not just launch, so briefly backgrounded
// users keep their history while long-idle ones start fresh.
func (uc *AssistantUseCase) RecordActivity(userID string) {
	uc.store.Set(lastActiveKeyPrefix+userID, uc.now().UTC().Format(time.RFC3339))
}

func (uc *AssistantUseCase) Transcript(userID string) []entity.ChatTurn {
	return uc.Session(userID).Transcript()
}

func (uc *AssistantUseCase) SendTurn(ctx context.Context, userID, text string) ([]entity.ChatTurn, error) {
	allowed, waitTime := uc.rateLimiter.Allow(userID, "assistant_turn")
	if !allowed {
		log.Printf("SendTurn rate limited: user %s must wait %v", userID, waitTime)
		return nil, errors.TooManyRequests("Rate limit exceeded. Please slow down")
	}
	return uc.Session(userID).SendTurn(ctx, text)
}

func (uc *AssistantUseCase) Clear(userID string) []entity.ChatTurn {
	return uc.Session(userID).Clear()
}

// CloseAll marks every session closed so in-flight responder calls stop
// mutating state on resume.
func (uc *AssistantUseCase) CloseAll() {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	for _, session := range uc.sessions {
		session.Close()
	}
}

// AssistantSession is the per-user state. All mutation happens under the
// session mutex; the remote responder call is made outside it and re-checks
// liveness before touching the transcript on resume.
type AssistantSession struct {
	userID string
	uc     *AssistantUseCase

	mu           sync.Mutex
	transcript   []entity.ChatTurn
	vehicleCache map[string]*entity.Vehicle
	closed       bool
}

func (s *AssistantSession) transcriptKey() string { return transcriptKeyPrefix + s.userID }
func (s *AssistantSession) lastActiveKey() string { return lastActiveKeyPrefix + s.userID }

func (s *AssistantSession) greetingTranscript() []entity.ChatTurn {
	return []entity.ChatTurn{{
		Origin:    entity.TurnOriginAssistant,
		Text:      greetingText,
		Timestamp: s.uc.now(),
	}}
}

// restore rehydrates the persisted transcript. Any storage or parse problem
// falls back to the greeting-only transcript; it never fails.
func (s *AssistantSession) restore() {
	raw, ok := s.uc.store.Get(s.transcriptKey())
	if !ok {
		s.transcript = s.greetingTranscript()
		return
	}

	var turns []entity.ChatTurn
	if err := json.Unmarshal([]byte(raw), &turns); err != nil || len(turns) == 0 {
		log.Printf("Assistant session %s: discarding unreadable transcript: %v", s.userID, err)
		s.transcript = s.greetingTranscript()
		return
	}
	s.transcript = turns
}

// checkTermination resets the transcript when the last-active marker is
// missing or older than the idle timeout. Elapsed wall-clock time is a proxy
// for "the app was killed"; a backgrounded-but-alive client idle past the
// threshold is reset too, which is intended.
func (s *AssistantSession) checkTermination() {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, ok := s.uc.store.Get(s.lastActiveKey())
	if ok {
		lastActive, err := time.Parse(time.RFC3339, raw)
		if err == nil && s.uc.now().Sub(lastActive) <= s.uc.idleTimeout {
			return
		}
	}

	s.resetLocked()
}

func (s *AssistantSession) resetLocked() {
	s.transcript = s.greetingTranscript()
	s.vehicleCache = make(map[string]*entity.Vehicle)
	s.persistLocked()
}

func (s *AssistantSession) persistLocked() {
	data, err := json.Marshal(s.transcript)
	if err != nil {
		log.Printf("Assistant session %s: failed to marshal transcript: %v", s.userID, err)
		return
	}
	s.uc.store.Set(s.transcriptKey(), string(data))
}

// SendTurn appends the user's turn optimistically, invokes the remote
// assistant, and appends either the enriched reply or a single fallback turn.
// Remote failures never propagate; a broken chat is never shown.
func (s *AssistantSession) SendTurn(ctx context.Context, text string) ([]entity.ChatTurn, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.Precondition("Message must not be empty", nil)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, errors.Precondition("Session is closed", nil)
	}
	history := s.snapshotLocked() // prior turns only; text goes separately
	s.transcript = append(s.transcript, entity.ChatTurn{
		Origin:    entity.TurnOriginUser,
		Text:      text,
		Timestamp: s.uc.now(),
	})
	s.persistLocked()
	s.mu.Unlock()

	s.uc.RecordActivity(s.userID)

	reply, err := s.uc.responder.Reply(ctx, history, text)

	if err != nil {
		log.Printf("Assistant session %s: responder failed: %v", s.userID, err)
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closed {
			// The session ended while the call was in flight; do not mutate.
			return s.snapshotLocked(), nil
		}
		s.transcript = append(s.transcript, entity.ChatTurn{
			Origin:    entity.TurnOriginAssistant,
			Text:      fallbackText,
			Timestamp: s.uc.now(),
		})
		s.persistLocked()
		return s.snapshotLocked(), nil
	}

	ids := reply.VehicleIDs
	if len(ids) > maxVehiclesPerReply {
		ids = ids[:maxVehiclesPerReply]
	}
	vehicles := s.resolveVehicles(ctx, ids)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return s.snapshotLocked(), nil
	}

	turn := entity.ChatTurn{
		Origin:    entity.TurnOriginAssistant,
		Text:      reply.Text,
		Timestamp: s.uc.now(),
	}
	for _, vehicle := range vehicles {
		turn.VehicleIDs = append(turn.VehicleIDs, vehicle.ID)
		turn.Vehicles = append(turn.Vehicles, vehicle)
	}

	s.transcript = append(s.transcript, turn)
	s.persistLocked()
	return s.snapshotLocked(), nil
}

// resolveVehicles memoizes vehicle lookups for the session lifetime; there is
// no eviction. Cache access takes the session mutex but the remote fetches
// run outside it so a slow lookup never blocks concurrent transcript reads.
func (s *AssistantSession) resolveVehicles(ctx context.Context, ids []string) []*entity.Vehicle {
	var resolved []*entity.Vehicle
	for _, id := range ids {
		s.mu.Lock()
		vehicle, ok := s.vehicleCache[id]
		s.mu.Unlock()

		if !ok {
			var err error
			vehicle, err = s.uc.vehicleRepo.GetByID(ctx, id)
			if err != nil {
				log.Printf("Assistant session %s: failed to resolve vehicle %s: %v", s.userID, id, err)
				continue // Failed lookups are skipped, not cached
			}
			s.mu.Lock()
			s.vehicleCache[id] = vehicle
			s.mu.Unlock()
		}

		resolved = append(resolved, vehicle)
	}
	return resolved
}

// Clear is the explicit user-triggered reset: greeting-only transcript,
// empty vehicle cache, persisted history removed.
func (s *AssistantSession) Clear() []entity.ChatTurn {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.transcript = s.greetingTranscript()
	s.vehicleCache = make(map[string]*entity.Vehicle)
	s.uc.store.Delete(s.transcriptKey())
	s.uc.store.Delete(s.lastActiveKey())
	return s.snapshotLocked()
}

// Close marks the session dead. In-flight sends notice on resume and stop.
func (s *AssistantSession) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

func (s *AssistantSession) Transcript() []entity.ChatTurn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *AssistantSession) snapshotLocked() []entity.ChatTurn {
	out := make([]entity.ChatTurn, len(s.transcript))
	copy(out, s.transcript)
	return out
}
