package history

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"careerbot/internal/apperr"
	"careerbot/internal/models"
)

const sessionKeyPrefix = "careerbot:history:"

// SessionStore keeps anonymous conversations in a KV with a sliding ttl.
type SessionStore struct {
	kv  KV
	ttl time.Duration
	now func() time.Time

	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func NewSessionStore(kv KV, ttl time.Duration) *SessionStore {
	return &SessionStore{
		kv:    kv,
		ttl:   ttl,
		now:   func() time.Time { return time.Now().UTC() },
		locks: make(map[string]*keyLock),
	}
}

func (s *SessionStore) Read(ctx context.Context, subject models.Subject, feature models.Feature) ([]models.Turn, error) {
	key, err := sessionKey(subject, feature)
	if err != nil {
		return nil, err
	}
	turns, err := s.load(ctx, key)
	if err != nil {
		return nil, err
	}
	if len(turns) > 0 && s.ttl > 0 {
		if err := s.kv.Expire(ctx, key, s.ttl); err != nil {
			return nil, fmt.Errorf("refresh session ttl: %w", err)
		}
	}
	return turns, nil
}

func (s *SessionStore) Append(ctx context.Context, subject models.Subject, feature models.Feature, role models.Role, content string) ([]models.Turn, error) {
	key, err := sessionKey(subject, feature)
	if err != nil {
		return nil, err
	}
	unlock := s.lock(key)
	defer unlock()

	turns, err := s.load(ctx, key)
	if err != nil {
		return nil, err
	}
	var last time.Time
	if n := len(turns); n > 0 {
		last = turns[n-1].Timestamp
	}
	turn := models.Turn{Role: role, Content: content, Timestamp: stamp(s.now(), last)}
	raw, err := json.Marshal(turn)
	if err != nil {
		return nil, err
	}
	if err := s.kv.RPush(ctx, key, s.ttl, string(raw)); err != nil {
		return nil, fmt.Errorf("append session turn: %w", err)
	}
	return append(turns, turn), nil
}

func (s *SessionStore) Clear(ctx context.Context, subject models.Subject, feature models.Feature) error {
	key, err := sessionKey(subject, feature)
	if err != nil {
		return err
	}
	return s.kv.Del(ctx, key)
}

func (s *SessionStore) load(ctx context.Context, key string) ([]models.Turn, error) {
	raw, err := s.kv.LRange(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load session history: %w", err)
	}
	turns := make([]models.Turn, 0, len(raw))
	for _, item := range raw {
		var turn models.Turn
		if err := json.Unmarshal([]byte(item), &turn); err != nil {
			return nil, fmt.Errorf("decode session turn: %w", err)
		}
		turns = append(turns, turn)
	}
	return turns, nil
}

// lock serializes read-then-push per conversation within this process.
func (s *SessionStore) lock(key string) func() {
	s.mu.Lock()
	l, ok := s.locks[key]
	if !ok {
		l = &keyLock{}
		s.locks[key] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, key)
		}
		s.mu.Unlock()
	}
}

func sessionKey(subject models.Subject, feature models.Feature) (string, error) {
	if subject.SessionID == "" {
		return "", apperr.Validation("session", "anonymous session id required")
	}
	if !feature.Valid() {
		return "", apperr.Validation("feature", fmt.Sprintf("unknown feature %d", int(feature)))
	}
	return fmt.Sprintf("%s%s:%d", sessionKeyPrefix, subject.SessionID, int(feature)), nil
}
