package security

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisSessionPrefix = "sentinel:session:"
	redisUserSessions  = "sentinel:user:%s:sessions"
	redisUserFPs       = "sentinel:user:%s:fps"
	redisOpTimeout     = 2 * time.Second
	redisFPRetention   = 24 * time.Hour
)

// RedisSessionStore implements SessionStore on Redis so multiple service
// instances share session state. Sessions expire via key TTL; the idle
// and fingerprint checks mirror MemorySessionStore.
type RedisSessionStore struct {
	client *redis.Client
	config SessionConfig
	logger *slog.Logger
	now    func() time.Time
}

func NewRedisSessionStore(client *redis.Client, config SessionConfig, logger *slog.Logger) *RedisSessionStore {
	return &RedisSessionStore{
		client: client,
		config: config.withDefaults(),
		logger: logger,
		now:    time.Now,
	}
}

func (s *RedisSessionStore) Create(userID, fingerprint string, data map[string]string) (*Session, error) {
	id, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session id: %w", err)
	}

	now := s.now()
	session := &Session{
		ID:           id,
		UserID:       userID,
		Fingerprint:  fingerprint,
		Data:         data,
		CreatedAt:    now,
		LastActivity: now,
		ExpiresAt:    now.Add(s.config.MaxAge),
	}

	payload, err := json.Marshal(session)
	if err != nil {
		return nil, fmt.Errorf("failed to encode session: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, redisSessionPrefix+id, payload, s.config.MaxAge)
	pipe.SAdd(ctx, fmt.Sprintf(redisUserSessions, userID), id)
	pipe.SAdd(ctx, fmt.Sprintf(redisUserFPs, userID), fingerprint)
	pipe.Expire(ctx, fmt.Sprintf(redisUserFPs, userID), redisFPRetention)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}

	return session, nil
}

func (s *RedisSessionStore) Get(sessionID, fingerprint string) (*Session, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	raw, err := s.client.Get(ctx, redisSessionPrefix+sessionID).Bytes()
	if err != nil {
		return nil, false
	}

	var session Session
	if err := json.Unmarshal(raw, &session); err != nil {
		s.logger.Warn("dropping undecodable session", slog.String("session_id", sessionID))
		s.Destroy(sessionID)
		return nil, false
	}

	now := s.now()
	if now.After(session.ExpiresAt) || now.Sub(session.LastActivity) >= s.config.IdleTimeout {
		s.Destroy(sessionID)
		return nil, false
	}

	registered, err := s.client.SIsMember(ctx, fmt.Sprintf(redisUserFPs, session.UserID), fingerprint).Result()
	if err != nil || !registered {
		s.Destroy(sessionID)
		return nil, false
	}

	session.LastActivity = now
	if session.ExpiresAt.Sub(now) < s.config.RenewWindow {
		session.ExpiresAt = now.Add(s.config.MaxAge)
	}

	payload, err := json.Marshal(&session)
	if err == nil {
		ttl := time.Until(session.ExpiresAt)
		if setErr := s.client.Set(ctx, redisSessionPrefix+sessionID, payload, ttl).Err(); setErr != nil {
			s.logger.Warn("failed to refresh session", slog.String("session_id", sessionID), slog.Any("error", setErr))
		}
	}

	return &session, true
}

func (s *RedisSessionStore) Destroy(sessionID string) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	raw, err := s.client.Get(ctx, redisSessionPrefix+sessionID).Bytes()
	if err == nil {
		var session Session
		if json.Unmarshal(raw, &session) == nil {
			s.client.SRem(ctx, fmt.Sprintf(redisUserSessions, session.UserID), sessionID)
		}
	}
	s.client.Del(ctx, redisSessionPrefix+sessionID)
}

func (s *RedisSessionStore) DestroyAllForUser(userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	ids, err := s.client.SMembers(ctx, fmt.Sprintf(redisUserSessions, userID)).Result()
	if err == nil {
		for _, id := range ids {
			s.client.Del(ctx, redisSessionPrefix+id)
		}
	}
	s.client.Del(ctx, fmt.Sprintf(redisUserSessions, userID))
	s.client.Del(ctx, fmt.Sprintf(redisUserFPs, userID))
}

// ActiveSessionCount counts sessions whose keys are still live.
func (s *RedisSessionStore) ActiveSessionCount(userID string) int {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	ids, err := s.client.SMembers(ctx, fmt.Sprintf(redisUserSessions, userID)).Result()
	if err != nil {
		return 0
	}

	count := 0
	for _, id := range ids {
		exists, err := s.client.Exists(ctx, redisSessionPrefix+id).Result()
		if err == nil && exists > 0 {
			count++
		}
	}
	return count
}

// Maintenance prunes session-set members whose session keys have expired
// and drops fingerprint sets with no remaining sessions. Session values
// themselves expire via TTL.
func (s *RedisSessionStore) Maintenance() int {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	removed := 0
	iter := s.client.Scan(ctx, 0, fmt.Sprintf(redisUserSessions, "*"), 100).Iterator()
	for iter.Next(ctx) {
		setKey := iter.Val()
		ids, err := s.client.SMembers(ctx, setKey).Result()
		if err != nil {
			continue
		}

		live := 0
		for _, id := range ids {
			exists, err := s.client.Exists(ctx, redisSessionPrefix+id).Result()
			if err != nil {
				live++ // assume alive on error
				continue
			}
			if exists == 0 {
				s.client.SRem(ctx, setKey, id)
				removed++
			} else {
				live++
			}
		}

		if live == 0 {
			fpKey := setKey[:len(setKey)-len("sessions")] + "fps"
			s.client.Del(ctx, setKey, fpKey)
		}
	}

	if err := iter.Err(); err != nil {
		s.logger.Warn("session maintenance scan failed", slog.Any("error", err))
	}
	return removed
}
