package store

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/akolanti/DocChat/internal/domain/commonModels"
	"github.com/akolanti/DocChat/pkg/logger_i"
)

var inMemLogger = logger_i.NewLogger("InMem MessageStore")

type InMemoryConversationLog struct {
	chatLock *sync.RWMutex
	chatMap  map[string][]commonModels.ConversationTurn
}

func NewInMemoryConversationLog() *InMemoryConversationLog {
	return &InMemoryConversationLog{
		chatLock: new(sync.RWMutex),
		chatMap:  make(map[string][]commonModels.ConversationTurn),
	}
}

func (store *InMemoryConversationLog) AppendTurn(ctx context.Context, turn commonModels.ConversationTurn) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if turn.Timestamp.IsZero() {
		turn.Timestamp = time.Now()
	}
	store.chatLock.Lock()
	defer store.chatLock.Unlock()
	store.chatMap[turn.SessionId] = append(store.chatMap[turn.SessionId], turn)
	inMemLogger.Debug("Saved turn to chat message store", "sessionId", turn.SessionId)
	return nil
}

func (store *InMemoryConversationLog) GetChatHistory(ctx context.Context, sessionId string) ([]commonModels.ConversationTurn, error) {
	store.chatLock.RLock()
	turns := slices.Clone(store.chatMap[sessionId])
	store.chatLock.RUnlock()

	sort.SliceStable(turns, func(i, j int) bool { return turns[i].Timestamp.Before(turns[j].Timestamp) })
	return turns, nil
}

func (store *InMemoryConversationLog) Close() error {
	return nil
}
