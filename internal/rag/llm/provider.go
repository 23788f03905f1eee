package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/akolanti/DocChat/internal/config"
	"github.com/akolanti/DocChat/internal/domain/commonModels"
	"github.com/akolanti/DocChat/internal/domain/ragErrors"
)

type Provider interface {
	Generate(ctx context.Context, prompt Prompt) (string, error)
}

type Task int

const (
	// TaskAnswer answers Question from Context.
	TaskAnswer Task = iota
	// TaskReformulate rewrites Question so it stands alone without History.
	TaskReformulate
)

func (t Task) String() string {
	if t == TaskReformulate {
		return "reformulate"
	}
	return "answer"
}

type Prompt struct {
	Task              Task
	SystemInstruction string
	Context           []string
	History           []commonModels.ConversationTurn
	Question          string
}

// UserMessage is the final user turn sent after the history.
func (p Prompt) UserMessage() string {
	if p.Task == TaskReformulate || len(p.Context) == 0 {
		return p.Question
	}
	return fmt.Sprintf("Context:\n%s\n\nUser Question: %s", strings.Join(p.Context, "\n\n"), p.Question)
}

type ModelType string

const (
	GeminiFlashLite ModelType = config.GeminiFlashLiteModel
	GeminiFlash     ModelType = config.GeminiFlashModel
	GPT4oMini       ModelType = config.OpenAIChatModel
)

func Models() []ModelType {
	return []ModelType{GeminiFlashLite, GeminiFlash, GPT4oMini}
}

func ParseModel(raw string) (ModelType, error) {
	for _, m := range Models() {
		if string(m) == raw {
			return m, nil
		}
	}
	return "", ragErrors.NewValidationError("model", fmt.Sprintf("unknown model %q", raw), ragErrors.ErrUnknownModel)
}

// Registry maps every supported model to the provider serving it. It is
// filled once at startup and only read afterwards.
type Registry struct {
	providers    map[ModelType]Provider
	defaultModel ModelType
}

func NewRegistry(defaultModel ModelType) *Registry {
	return &Registry{
		providers:    make(map[ModelType]Provider),
		defaultModel: defaultModel,
	}
}

func (r *Registry) Register(model ModelType, provider Provider) {
	r.providers[model] = provider
}

func (r *Registry) Default() ModelType {
	return r.defaultModel
}

// Resolve parses raw (empty means the default model) and returns its provider.
func (r *Registry) Resolve(raw string) (ModelType, Provider, error) {
	if raw == "" {
		raw = string(r.defaultModel)
	}
	model, err := ParseModel(raw)
	if err != nil {
		return "", nil, err
	}
	p, ok := r.providers[model]
	if !ok {
		return "", nil, ragErrors.NewValidationError("model", fmt.Sprintf("model %q is not configured", raw), ragErrors.ErrUnknownModel)
	}
	return model, p, nil
}
