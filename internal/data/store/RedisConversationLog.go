package store

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/akolanti/DocChat/internal/config"
	"github.com/akolanti/DocChat/internal/data/redisStore"
	"github.com/akolanti/DocChat/internal/domain/commonModels"
	"github.com/akolanti/DocChat/internal/domain/ragErrors"
	"github.com/akolanti/DocChat/pkg/logger_i"
)

const sessionKeyPrefix = "chat:"

// RedisConversationLog keeps each session as a redis list of JSON turns.
// Sessions expire ttl after their last turn.
type RedisConversationLog struct {
	store  *redisStore.Store
	ttl    time.Duration
	logger *logger_i.Logger
}

func NewRedisConversationLog(store *redisStore.Store, ttl time.Duration) *RedisConversationLog {
	return &RedisConversationLog{
		store:  store,
		ttl:    ttl,
		logger: logger_i.NewLogger("MessageStore"),
	}
}

func (s *RedisConversationLog) AppendTurn(ctx context.Context, turn commonModels.ConversationTurn) error {
	log := s.logger.WithTrace(ctx, config.TRACE_ID_KEY).With("sessionId", turn.SessionId)
	if turn.Timestamp.IsZero() {
		turn.Timestamp = time.Now()
	}
	data, err := json.Marshal(turn)
	if err != nil {
		return ragErrors.NewStoreError("append turn", turn.SessionId, err)
	}
	if err := s.store.ListPush(ctx, sessionKeyPrefix+turn.SessionId, data, s.ttl); err != nil {
		log.Error("error saving chat", "error:", err)
		return ragErrors.NewStoreError("append turn", turn.SessionId, err)
	}
	log.Debug("Saved chat successfully")
	return nil
}

func (s *RedisConversationLog) GetChatHistory(ctx context.Context, sessionId string) ([]commonModels.ConversationTurn, error) {
	log := s.logger.WithTrace(ctx, config.TRACE_ID_KEY).With("sessionId", sessionId)
	log.Debug("Getting message history")

	res, err := s.store.ListGetAll(ctx, sessionKeyPrefix+sessionId)
	if err != nil && !s.store.IsNil(err) {
		log.Error("Error getting history", "error:", err)
		return nil, ragErrors.NewStoreError("get chat history", sessionId, err)
	}

	turns := make([]commonModels.ConversationTurn, 0, len(res))
	for _, raw := range res {
		var turn commonModels.ConversationTurn
		if err := json.Unmarshal([]byte(raw), &turn); err != nil {
			log.Warn("skipping unreadable turn", "error", err)
			continue
		}
		turns = append(turns, turn)
	}
	// list order is append order; concurrent writers can interleave it
	sort.SliceStable(turns, func(i, j int) bool { return turns[i].Timestamp.Before(turns[j].Timestamp) })
	return turns, nil
}

func (s *RedisConversationLog) Close() error {
	return s.store.Close()
}
