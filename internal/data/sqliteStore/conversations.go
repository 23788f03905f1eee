package sqliteStore

import (
	"context"
	"time"

	"github.com/akolanti/DocChat/internal/domain/commonModels"
	"github.com/akolanti/DocChat/internal/domain/ragErrors"
)

func (s *Store) AppendTurn(ctx context.Context, turn commonModels.ConversationTurn) error {
	if turn.Timestamp.IsZero() {
		turn.Timestamp = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO application_logs (session_id, user_query, gpt_response, model, created_at) VALUES (?, ?, ?, ?, ?)",
		turn.SessionId, turn.Question, turn.Answer, turn.Model, turn.Timestamp.UnixNano())
	if err != nil {
		return ragErrors.NewStoreError("append turn", turn.SessionId, err)
	}
	return nil
}

// GetChatHistory returns the turns of sessionId oldest first. Unknown sessions have no turns.
func (s *Store) GetChatHistory(ctx context.Context, sessionId string) ([]commonModels.ConversationTurn, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id, user_query, gpt_response, model, created_at
		   FROM application_logs
		  WHERE session_id = ?
		  ORDER BY created_at ASC, id ASC`, sessionId)
	if err != nil {
		return nil, ragErrors.NewStoreError("get chat history", sessionId, err)
	}
	defer rows.Close()

	var turns []commonModels.ConversationTurn
	for rows.Next() {
		var (
			turn commonModels.ConversationTurn
			ts   int64
		)
		if err := rows.Scan(&turn.SessionId, &turn.Question, &turn.Answer, &turn.Model, &ts); err != nil {
			return nil, ragErrors.NewStoreError("get chat history", sessionId, err)
		}
		turn.Timestamp = time.Unix(0, ts).UTC()
		turns = append(turns, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, ragErrors.NewStoreError("get chat history", sessionId, err)
	}
	return turns, nil
}
