package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/servimatch/go-servi/models"
)

const sessionKeyPrefix = "servi:session:"

// RedisStore persists logged-in identities. Sessions are written only by the
// login/logout flows and read at screen-focus time, so the store is read-mostly.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	logger models.Logger
}

func NewRedisStore(redisUrl string, logger models.Logger) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisUrl)
	if err != nil {
		return nil, err
	}
	return &RedisStore{
		client: redis.NewClient(opts),
		ttl:    models.DefaultSessionTtl,
		logger: logger,
	}, nil
}

func (s *RedisStore) Save(ctx context.Context, session *models.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		s.logger.Errorf("sessions: error marshaling session %s: %v", session.Id, err)
		return err
	}
	if err = s.client.Set(ctx, sessionKeyPrefix+session.Id, data, s.ttl).Err(); err != nil {
		s.logger.Errorf("sessions: error saving session %s: %v", session.Id, err)
		return err
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, sessionId string) (*models.Session, error) {
	data, err := s.client.Get(ctx, sessionKeyPrefix+sessionId).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		s.logger.Errorf("sessions: error loading session %s: %v", sessionId, err)
		return nil, err
	}
	session := new(models.Session)
	if err = json.Unmarshal([]byte(data), session); err != nil {
		s.logger.Errorf("sessions: error unmarshaling session %s: %v", sessionId, err)
		return nil, err
	}
	return session, nil
}

func (s *RedisStore) Delete(ctx context.Context, sessionId string) error {
	if err := s.client.Del(ctx, sessionKeyPrefix+sessionId).Err(); err != nil {
		s.logger.Errorf("sessions: error deleting session %s: %v", sessionId, err)
		return err
	}
	return nil
}
